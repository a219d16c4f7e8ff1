package scheduling

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShrinkWaveRelocatesIntoKeptWindow(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	doctor := addDoctor(repo)
	patient := addPatient(repo)
	avail := addWaveAvailability(repo, doctor.ID, "09:00", "12:00", 30, 1, "MON",
		date(2026, 3, 2), date(2026, 3, 2))

	slot := slotAt(repo, avail.ID, date(2026, 3, 2), "09:00")
	require.NotNil(t, slot)
	appt, err := svc.BookWaveSlot(ctx, patient.ID, slot.ID, date(2026, 3, 2))
	require.NoError(t, err)

	result, err := svc.ShrinkWaveSession(ctx, ShrinkInput{
		AvailabilityID: avail.ID,
		SessionDate:    date(2026, 3, 2),
		NewStartTime:   timePtr("10:00"),
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.TotalAffected)
	assert.Equal(t, 1, result.RelocatedNewWindow)
	assert.Zero(t, result.Cancelled)

	require.Len(t, result.RescheduledAppointments, 1)
	moved := result.RescheduledAppointments[0]
	assert.Equal(t, appt.ID, moved.AppointmentID)
	assert.Equal(t, patient.Name, moved.PatientName)
	assert.Equal(t, mustParseTime("09:00"), moved.OldStart)
	assert.Equal(t, mustParseTime("10:00"), moved.NewStart)
	assert.Equal(t, mustParseTime("10:30"), moved.NewEnd)
	assert.Equal(t, TierNewWindow, moved.Tier)

	stored, err := repo.GetAppointmentByID(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, stored.Status)
	assert.Equal(t, mustParseTime("10:00"), stored.StartTime)

	// The destination slot picked up the seat.
	dest := slotAt(repo, avail.ID, date(2026, 3, 2), "10:00")
	require.NotNil(t, dest)
	assert.Equal(t, 1, dest.BookedCount)
}

func TestShrinkWaveCancelsWhenNothingFits(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	doctor := addDoctor(repo)
	avail := addWaveAvailability(repo, doctor.ID, "09:00", "11:00", 30, 1, "MON",
		date(2026, 3, 2), date(2026, 3, 2))

	// Fill every slot so the kept window has no spare seats.
	var displaced []string
	for _, start := range []string{"09:00", "09:30", "10:00", "10:30"} {
		slot := slotAt(repo, avail.ID, date(2026, 3, 2), start)
		require.NotNil(t, slot)
		_, err := svc.BookWaveSlot(ctx, addPatient(repo).ID, slot.ID, date(2026, 3, 2))
		require.NoError(t, err)
		if start == "09:00" || start == "09:30" {
			displaced = append(displaced, start)
		}
	}

	result, err := svc.ShrinkWaveSession(ctx, ShrinkInput{
		AvailabilityID: avail.ID,
		SessionDate:    date(2026, 3, 2),
		NewStartTime:   timePtr("10:00"),
	})
	require.NoError(t, err)

	assert.Equal(t, len(displaced), result.TotalAffected)
	assert.Equal(t, len(displaced), result.Cancelled)
	assert.Zero(t, result.RelocatedNewWindow)
	assert.Zero(t, result.RelocatedSameDay)
	assert.Zero(t, result.RelocatedNextWeek)

	require.Len(t, result.CancelledAppointments, 2)
	for _, c := range result.CancelledAppointments {
		assert.Equal(t, "doctor session shrunk - no alternative slots available", c.Reason)

		stored, err := repo.GetAppointmentByID(ctx, c.AppointmentID)
		require.NoError(t, err)
		assert.Equal(t, StatusCancelled, stored.Status)
		assert.NotNil(t, stored.CancellationDate)
	}

	// Untouched kept-window appointments stay put.
	confirmed, err := repo.ListAppointmentsByDoctorAndDate(ctx, doctor.ID, date(2026, 3, 2), StatusConfirmed)
	require.NoError(t, err)
	assert.Len(t, confirmed, 2)
}

func TestShrinkWaveNextWeekTier(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	doctor := addDoctor(repo)
	avail := addWaveAvailability(repo, doctor.ID, "09:00", "10:00", 30, 1, "MON",
		date(2026, 3, 2), date(2026, 3, 9))

	first := slotAt(repo, avail.ID, date(2026, 3, 2), "09:00")
	require.NotNil(t, first)
	appt, err := svc.BookWaveSlot(ctx, addPatient(repo).ID, first.ID, date(2026, 3, 2))
	require.NoError(t, err)

	// Fill the only kept-window slot so same-day search has no fit.
	second := slotAt(repo, avail.ID, date(2026, 3, 2), "09:30")
	require.NotNil(t, second)
	_, err = svc.BookWaveSlot(ctx, addPatient(repo).ID, second.ID, date(2026, 3, 2))
	require.NoError(t, err)

	result, err := svc.ShrinkWaveSession(ctx, ShrinkInput{
		AvailabilityID: avail.ID,
		SessionDate:    date(2026, 3, 2),
		NewStartTime:   timePtr("09:30"),
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.TotalAffected)
	assert.Equal(t, 1, result.RelocatedNextWeek)
	assert.Zero(t, result.Cancelled)

	require.Len(t, result.RescheduledAppointments, 1)
	moved := result.RescheduledAppointments[0]
	assert.Equal(t, appt.ID, moved.AppointmentID)
	assert.Equal(t, date(2026, 3, 9), moved.NewDate)
	assert.Equal(t, mustParseTime("09:00"), moved.NewStart)
	assert.Equal(t, TierNextWeek, moved.Tier)

	dest := slotAt(repo, avail.ID, date(2026, 3, 9), "09:00")
	require.NotNil(t, dest)
	assert.Equal(t, 1, dest.BookedCount)
}

func TestShrinkStreamRelocationRepacksKeptWindow(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	doctor := addDoctor(repo)
	avail := addStreamAvailability(repo, doctor.ID, "09:00", "12:00", 10, "MON",
		date(2026, 3, 2), date(2026, 3, 30))

	first, err := svc.BookStreamSlot(ctx, addPatient(repo).ID, doctor.ID, date(2026, 3, 2))
	require.NoError(t, err)
	second, err := svc.BookStreamSlot(ctx, addPatient(repo).ID, doctor.ID, date(2026, 3, 2))
	require.NoError(t, err)

	result, err := svc.ShrinkStreamSession(ctx, ShrinkInput{
		AvailabilityID: avail.ID,
		SessionDate:    date(2026, 3, 2),
		NewStartTime:   timePtr("10:00"),
	})
	require.NoError(t, err)

	assert.Equal(t, 2, result.TotalAffected)
	assert.Equal(t, 2, result.RelocatedNewWindow)
	assert.Equal(t, 6, result.NewCapacity)

	movedFirst, err := repo.GetAppointmentByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, mustParseTime("10:00"), movedFirst.StartTime)
	assert.Equal(t, mustParseTime("10:30"), movedFirst.EndTime)

	movedSecond, err := repo.GetAppointmentByID(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, mustParseTime("10:30"), movedSecond.StartTime)
	assert.Equal(t, mustParseTime("11:00"), movedSecond.EndTime)
}

func TestShrinkStreamRelocationAvoidsBoundaryStraddler(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	doctor := addDoctor(repo)
	avail := addStreamAvailability(repo, doctor.ID, "09:00", "12:00", 10, "MON",
		date(2026, 3, 2), date(2026, 3, 30))

	first, err := svc.BookStreamSlot(ctx, addPatient(repo).ID, doctor.ID, date(2026, 3, 2))
	require.NoError(t, err)
	second, err := svc.BookStreamSlot(ctx, addPatient(repo).ID, doctor.ID, date(2026, 3, 2))
	require.NoError(t, err)
	straddler, err := svc.BookStreamSlot(ctx, addPatient(repo).ID, doctor.ID, date(2026, 3, 2))
	require.NoError(t, err)

	// A 10:15 start leaves the 10:00-10:30 appointment half outside the
	// removed range: it stays confirmed, and no relocation may land on
	// top of it.
	result, err := svc.ShrinkStreamSession(ctx, ShrinkInput{
		AvailabilityID: avail.ID,
		SessionDate:    date(2026, 3, 2),
		NewStartTime:   timePtr("10:15"),
	})
	require.NoError(t, err)

	assert.Equal(t, 2, result.TotalAffected)
	assert.Equal(t, 2, result.RelocatedNewWindow)
	assert.Zero(t, result.Cancelled)

	// 10:15 is blocked by the straddler, so the first free candidates
	// are 10:45 and 11:15.
	movedFirst, err := repo.GetAppointmentByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, mustParseTime("10:45"), movedFirst.StartTime)

	movedSecond, err := repo.GetAppointmentByID(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, mustParseTime("11:15"), movedSecond.StartTime)

	untouched, err := repo.GetAppointmentByID(ctx, straddler.ID)
	require.NoError(t, err)
	assert.Equal(t, mustParseTime("10:00"), untouched.StartTime)

	confirmed, err := repo.ListAppointmentsByDoctorAndDate(ctx, doctor.ID, date(2026, 3, 2), StatusConfirmed)
	require.NoError(t, err)
	require.Len(t, confirmed, 3)
	for i := range confirmed {
		for j := i + 1; j < len(confirmed); j++ {
			assert.False(t, intervalsOverlap(
				confirmed[i].StartTime, confirmed[i].EndTime,
				confirmed[j].StartTime, confirmed[j].EndTime,
			), "%s-%s overlaps %s-%s",
				confirmed[i].StartTime, confirmed[i].EndTime,
				confirmed[j].StartTime, confirmed[j].EndTime)
		}
	}
}

func TestShrinkStreamRelocatesToOtherStreamSameDay(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	doctor := addDoctor(repo)
	morning := addStreamAvailability(repo, doctor.ID, "09:00", "11:00", 10, "MON",
		date(2026, 3, 2), date(2026, 3, 30))
	afternoon := addStreamAvailability(repo, doctor.ID, "14:00", "16:00", 5, "MON",
		date(2026, 3, 2), date(2026, 3, 30))

	kept, err := svc.BookStreamSlot(ctx, addPatient(repo).ID, doctor.ID, date(2026, 3, 2))
	require.NoError(t, err)
	displaced, err := svc.BookStreamSlot(ctx, addPatient(repo).ID, doctor.ID, date(2026, 3, 2))
	require.NoError(t, err)

	// Cut the tail: only the end moves, so the new-window tier is skipped
	// and the 09:30-10:00 appointment has to find another session.
	result, err := svc.ShrinkStreamSession(ctx, ShrinkInput{
		AvailabilityID: morning.ID,
		SessionDate:    date(2026, 3, 2),
		NewEndTime:     timePtr("09:30"),
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.TotalAffected)
	assert.Equal(t, 1, result.RelocatedSameDay)

	require.Len(t, result.RescheduledAppointments, 1)
	moved := result.RescheduledAppointments[0]
	assert.Equal(t, displaced.ID, moved.AppointmentID)
	assert.Equal(t, date(2026, 3, 2), moved.NewDate)
	assert.Equal(t, mustParseTime("14:00"), moved.NewStart)
	assert.Equal(t, TierSameDay, moved.Tier)

	stored, err := repo.GetAppointmentByID(ctx, displaced.ID)
	require.NoError(t, err)
	assert.Equal(t, afternoon.ID, stored.AvailabilityID)

	// The destination pool picked up the seat.
	dest, err := repo.GetAvailabilityByID(ctx, afternoon.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, dest.BookedCount)

	// The kept 09:00-09:30 appointment was never displaced.
	untouched, err := repo.GetAppointmentByID(ctx, kept.ID)
	require.NoError(t, err)
	assert.Equal(t, mustParseTime("09:00"), untouched.StartTime)
	assert.Equal(t, morning.ID, untouched.AvailabilityID)
}
