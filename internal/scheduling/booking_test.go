package scheduling

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBookWaveSlot(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	doctor := addDoctor(repo)
	patient := addPatient(repo)
	avail := addWaveAvailability(repo, doctor.ID, "09:00", "12:00", 30, 2, "MON",
		date(2026, 3, 2), date(2026, 3, 2))

	slot := slotAt(repo, avail.ID, date(2026, 3, 2), "09:00")
	require.NotNil(t, slot)

	appt, err := svc.BookWaveSlot(ctx, patient.ID, slot.ID, date(2026, 3, 2))
	require.NoError(t, err)

	assert.Equal(t, StatusConfirmed, appt.Status)
	assert.Equal(t, doctor.ID, appt.DoctorID)
	assert.Equal(t, avail.ID, appt.AvailabilityID)
	assert.Equal(t, mustParseTime("09:00"), appt.StartTime)
	assert.Equal(t, mustParseTime("09:30"), appt.EndTime)

	stored, err := repo.GetSlotByID(ctx, slot.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.BookedCount)
}

func TestBookWaveSlotFull(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	doctor := addDoctor(repo)
	avail := addWaveAvailability(repo, doctor.ID, "09:00", "10:00", 30, 1, "MON",
		date(2026, 3, 2), date(2026, 3, 2))
	slot := slotAt(repo, avail.ID, date(2026, 3, 2), "09:00")
	require.NotNil(t, slot)

	first := addPatient(repo)
	second := addPatient(repo)

	_, err := svc.BookWaveSlot(ctx, first.ID, slot.ID, date(2026, 3, 2))
	require.NoError(t, err)

	_, err = svc.BookWaveSlot(ctx, second.ID, slot.ID, date(2026, 3, 2))
	assert.ErrorIs(t, err, ErrSlotFull)

	stored, err := repo.GetSlotByID(ctx, slot.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.BookedCount)
}

func TestBookWaveSlotDateMismatch(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)

	doctor := addDoctor(repo)
	patient := addPatient(repo)
	avail := addWaveAvailability(repo, doctor.ID, "09:00", "10:00", 30, 1, "MON",
		date(2026, 3, 2), date(2026, 3, 2))
	slot := slotAt(repo, avail.ID, date(2026, 3, 2), "09:00")
	require.NotNil(t, slot)

	_, err := svc.BookWaveSlot(context.Background(), patient.ID, slot.ID, date(2026, 3, 3))
	assert.ErrorIs(t, err, ErrSlotDateMismatch)
}

func TestBookWaveSlotUnknownEntities(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	patient := addPatient(repo)

	_, err := svc.BookWaveSlot(ctx, uuid.New(), uuid.New(), date(2026, 3, 2))
	assert.ErrorIs(t, err, ErrPatientNotFound)

	_, err = svc.BookWaveSlot(ctx, patient.ID, uuid.New(), date(2026, 3, 2))
	assert.ErrorIs(t, err, ErrSlotNotFound)
}

func TestBookStreamSequentialPacking(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	doctor := addDoctor(repo)
	addStreamAvailability(repo, doctor.ID, "09:00", "12:00", 5, "MON",
		date(2026, 3, 2), date(2026, 3, 30))

	first, err := svc.BookStreamSlot(ctx, addPatient(repo).ID, doctor.ID, date(2026, 3, 2))
	require.NoError(t, err)
	assert.Equal(t, mustParseTime("09:00"), first.StartTime)
	assert.Equal(t, mustParseTime("09:30"), first.EndTime)

	second, err := svc.BookStreamSlot(ctx, addPatient(repo).ID, doctor.ID, date(2026, 3, 2))
	require.NoError(t, err)
	assert.Equal(t, mustParseTime("09:30"), second.StartTime)
	assert.Equal(t, mustParseTime("10:00"), second.EndTime)

	// A different date packs independently.
	nextWeek, err := svc.BookStreamSlot(ctx, addPatient(repo).ID, doctor.ID, date(2026, 3, 9))
	require.NoError(t, err)
	assert.Equal(t, mustParseTime("09:00"), nextWeek.StartTime)
}

func TestBookStreamGapsNeverReused(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	doctor := addDoctor(repo)
	addStreamAvailability(repo, doctor.ID, "09:00", "12:00", 5, "MON",
		date(2026, 3, 2), date(2026, 3, 30))

	first, err := svc.BookStreamSlot(ctx, addPatient(repo).ID, doctor.ID, date(2026, 3, 2))
	require.NoError(t, err)

	patient := addPatient(repo)
	_, err = svc.BookStreamSlot(ctx, patient.ID, doctor.ID, date(2026, 3, 2))
	require.NoError(t, err)

	// Cancel the first appointment; its 09:00-09:30 window stays vacant.
	firstOwner, err := repo.GetPatientByID(ctx, first.PatientID)
	require.NoError(t, err)
	_, err = svc.CancelAppointment(ctx, first.ID, firstOwner.UserID, RolePatient)
	require.NoError(t, err)

	third, err := svc.BookStreamSlot(ctx, addPatient(repo).ID, doctor.ID, date(2026, 3, 2))
	require.NoError(t, err)
	assert.Equal(t, mustParseTime("10:00"), third.StartTime)
}

func TestBookStreamCapacityExhausted(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	doctor := addDoctor(repo)
	addStreamAvailability(repo, doctor.ID, "09:00", "12:00", 2, "MON",
		date(2026, 3, 2), date(2026, 3, 30))

	_, err := svc.BookStreamSlot(ctx, addPatient(repo).ID, doctor.ID, date(2026, 3, 2))
	require.NoError(t, err)
	_, err = svc.BookStreamSlot(ctx, addPatient(repo).ID, doctor.ID, date(2026, 3, 2))
	require.NoError(t, err)

	_, err = svc.BookStreamSlot(ctx, addPatient(repo).ID, doctor.ID, date(2026, 3, 2))
	assert.ErrorIs(t, err, ErrStreamFull)
}

func TestBookStreamWindowExhausted(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	// One hour window fits only two 30 minute consultations even though
	// the capacity pool would allow more.
	doctor := addDoctor(repo)
	addStreamAvailability(repo, doctor.ID, "09:00", "10:00", 5, "MON",
		date(2026, 3, 2), date(2026, 3, 30))

	_, err := svc.BookStreamSlot(ctx, addPatient(repo).ID, doctor.ID, date(2026, 3, 2))
	require.NoError(t, err)
	_, err = svc.BookStreamSlot(ctx, addPatient(repo).ID, doctor.ID, date(2026, 3, 2))
	require.NoError(t, err)

	_, err = svc.BookStreamSlot(ctx, addPatient(repo).ID, doctor.ID, date(2026, 3, 2))
	assert.ErrorIs(t, err, ErrStreamWindowExhausted)
}

func TestBookStreamRecurrenceChecks(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	doctor := addDoctor(repo)
	patient := addPatient(repo)
	addStreamAvailability(repo, doctor.ID, "09:00", "12:00", 5, "MON",
		date(2026, 3, 2), date(2026, 3, 30))

	_, err := svc.BookStreamSlot(ctx, patient.ID, doctor.ID, date(2026, 4, 6))
	assert.ErrorIs(t, err, ErrOutsideRecurrence)

	// Tuesday inside the range but not a recurrence day.
	_, err = svc.BookStreamSlot(ctx, patient.ID, doctor.ID, date(2026, 3, 3))
	assert.ErrorIs(t, err, ErrDayNotAvailable)
}
