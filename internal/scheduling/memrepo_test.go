package scheduling

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
)

// memRepo is an in-memory Repository for service tests. Reads return
// copies so mutations only stick after an explicit Save, mirroring how
// the Postgres repository behaves.
type memRepo struct {
	patients       map[uuid.UUID]Patient
	doctors        map[uuid.UUID]Doctor
	availabilities map[uuid.UUID]Availability
	slots          map[uuid.UUID]Slot
	appointments   map[uuid.UUID]Appointment
	elastic        map[string]ElasticSession
}

func newMemRepo() *memRepo {
	return &memRepo{
		patients:       make(map[uuid.UUID]Patient),
		doctors:        make(map[uuid.UUID]Doctor),
		availabilities: make(map[uuid.UUID]Availability),
		slots:          make(map[uuid.UUID]Slot),
		appointments:   make(map[uuid.UUID]Appointment),
		elastic:        make(map[string]ElasticSession),
	}
}

func elasticKey(availabilityID uuid.UUID, date time.Time) string {
	return availabilityID.String() + "|" + DateOnly(date).Format("2006-01-02")
}

func (r *memRepo) GetPatientByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	p, ok := r.patients[id]
	if !ok {
		return nil, ErrPatientNotFound
	}
	return &p, nil
}

func (r *memRepo) GetDoctorByID(_ context.Context, id uuid.UUID) (*Doctor, error) {
	d, ok := r.doctors[id]
	if !ok {
		return nil, ErrDoctorNotFound
	}
	return &d, nil
}

func (r *memRepo) CreateAvailability(_ context.Context, a *Availability) error {
	r.availabilities[a.ID] = *a
	return nil
}

func (r *memRepo) GetAvailabilityByID(_ context.Context, id uuid.UUID) (*Availability, error) {
	a, ok := r.availabilities[id]
	if !ok {
		return nil, ErrAvailabilityNotFound
	}
	return &a, nil
}

func (r *memRepo) GetStreamAvailabilityByDoctor(_ context.Context, doctorID uuid.UUID) (*Availability, error) {
	var best *Availability
	for id := range r.availabilities {
		a := r.availabilities[id]
		if a.DoctorID != doctorID || a.Discipline != DisciplineStream || !a.IsAvailable {
			continue
		}
		if best == nil || a.StartTime < best.StartTime {
			copied := a
			best = &copied
		}
	}
	if best == nil {
		return nil, ErrAvailabilityNotFound
	}
	return best, nil
}

func (r *memRepo) ListAvailabilitiesByDoctor(_ context.Context, doctorID uuid.UUID, discipline Discipline) ([]Availability, error) {
	var out []Availability
	for id := range r.availabilities {
		a := r.availabilities[id]
		if a.DoctorID != doctorID || !a.IsAvailable {
			continue
		}
		if discipline != "" && a.Discipline != discipline {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime < out[j].StartTime })
	return out, nil
}

func (r *memRepo) SaveAvailability(_ context.Context, a *Availability) error {
	existing, ok := r.availabilities[a.ID]
	if !ok {
		return ErrAvailabilityNotFound
	}
	// booked_count changes only through AdjustAvailabilityBooked.
	saved := *a
	saved.BookedCount = existing.BookedCount
	r.availabilities[a.ID] = saved
	return nil
}

func (r *memRepo) AdjustAvailabilityBooked(_ context.Context, availabilityID uuid.UUID, delta int) error {
	a, ok := r.availabilities[availabilityID]
	if !ok {
		return ErrAvailabilityNotFound
	}
	if delta > 0 && a.BookedCount >= a.TotalCapacity {
		return ErrStreamFull
	}
	a.BookedCount += delta
	if a.BookedCount < 0 {
		a.BookedCount = 0
	}
	r.availabilities[availabilityID] = a
	return nil
}

func (r *memRepo) CreateSlots(_ context.Context, slots []Slot) error {
	for _, s := range slots {
		r.slots[s.ID] = s
	}
	return nil
}

func (r *memRepo) GetSlotByID(_ context.Context, id uuid.UUID) (*Slot, error) {
	s, ok := r.slots[id]
	if !ok {
		return nil, ErrSlotNotFound
	}
	return &s, nil
}

func (r *memRepo) GetSlotByStart(_ context.Context, availabilityID uuid.UUID, date time.Time, start TimeOfDay) (*Slot, error) {
	day := DateOnly(date)
	for id := range r.slots {
		s := r.slots[id]
		if s.AvailabilityID == availabilityID && s.Date.Equal(day) && s.StartTime == start {
			return &s, nil
		}
	}
	return nil, ErrSlotNotFound
}

func (r *memRepo) ListSlotsByAvailabilityAndDate(_ context.Context, availabilityID uuid.UUID, date time.Time) ([]Slot, error) {
	day := DateOnly(date)
	var out []Slot
	for id := range r.slots {
		s := r.slots[id]
		if s.AvailabilityID == availabilityID && s.Date.Equal(day) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime < out[j].StartTime })
	return out, nil
}

func (r *memRepo) ListSlotsByDoctorAndDate(_ context.Context, doctorID uuid.UUID, date time.Time) ([]Slot, error) {
	day := DateOnly(date)
	var out []Slot
	for id := range r.slots {
		s := r.slots[id]
		if s.DoctorID == doctorID && s.Date.Equal(day) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime < out[j].StartTime })
	return out, nil
}

func (r *memRepo) AdjustSlotBooked(_ context.Context, slotID uuid.UUID, delta int) error {
	s, ok := r.slots[slotID]
	if !ok {
		return ErrSlotNotFound
	}
	if delta > 0 && s.BookedCount >= s.CapacityPerSlot {
		return ErrSlotFull
	}
	s.BookedCount += delta
	if s.BookedCount < 0 {
		s.BookedCount = 0
	}
	r.slots[slotID] = s
	return nil
}

func (r *memRepo) DeleteSlots(_ context.Context, ids []uuid.UUID) error {
	for _, id := range ids {
		delete(r.slots, id)
	}
	return nil
}

func (r *memRepo) CreateAppointment(_ context.Context, a *Appointment) error {
	r.appointments[a.ID] = *a
	return nil
}

func (r *memRepo) GetAppointmentByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	a, ok := r.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	return &a, nil
}

func (r *memRepo) ListAppointmentsByDoctorAndDate(_ context.Context, doctorID uuid.UUID, date time.Time, status AppointmentStatus) ([]Appointment, error) {
	day := DateOnly(date)
	var out []Appointment
	for id := range r.appointments {
		a := r.appointments[id]
		if a.DoctorID != doctorID || !DateOnly(a.Date).Equal(day) {
			continue
		}
		if status != "" && a.Status != status {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime < out[j].StartTime })
	return out, nil
}

func (r *memRepo) SaveAppointment(_ context.Context, a *Appointment) error {
	if _, ok := r.appointments[a.ID]; !ok {
		return ErrAppointmentNotFound
	}
	r.appointments[a.ID] = *a
	return nil
}

func (r *memRepo) GetElasticSession(_ context.Context, availabilityID uuid.UUID, date time.Time) (*ElasticSession, error) {
	es, ok := r.elastic[elasticKey(availabilityID, date)]
	if !ok {
		return nil, nil
	}
	return &es, nil
}

func (r *memRepo) CreateElasticSession(_ context.Context, es *ElasticSession) error {
	r.elastic[elasticKey(es.AvailabilityID, es.SessionDate)] = *es
	return nil
}

func (r *memRepo) WithTx(_ context.Context, fn func(Repository) error) error {
	return fn(r)
}

// noopLocker runs critical sections without any coordination.
type noopLocker struct{}

func (noopLocker) WithLock(ctx context.Context, _ string, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// Test fixtures.

func newTestService(repo Repository) *Service {
	svc := NewService(repo, noopLocker{}, nil)
	svc.now = func() time.Time {
		return time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC) // a Monday
	}
	return svc
}

func addDoctor(r *memRepo) *Doctor {
	d := Doctor{ID: uuid.New(), UserID: uuid.New(), Name: "Dr. Reyes"}
	r.doctors[d.ID] = d
	return &d
}

func addPatient(r *memRepo) *Patient {
	p := Patient{ID: uuid.New(), UserID: uuid.New(), Name: "Ana Soler"}
	r.patients[p.ID] = p
	return &p
}

func mustParseTime(s string) TimeOfDay {
	t, err := ParseTimeOfDay(s)
	if err != nil {
		panic(err)
	}
	return t
}

func mustParseDays(s string) WeekdaySet {
	w, err := ParseWeekdaySet(s)
	if err != nil {
		panic(err)
	}
	return w
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// addWaveAvailability materializes slots just like CreateAvailability.
func addWaveAvailability(r *memRepo, doctorID uuid.UUID, start, end string, slotDuration, capacityPerSlot int, days string, from, to time.Time) *Availability {
	a := Availability{
		ID:              uuid.New(),
		DoctorID:        doctorID,
		Discipline:      DisciplineWave,
		StartTime:       mustParseTime(start),
		EndTime:         mustParseTime(end),
		SlotDuration:    slotDuration,
		CapacityPerSlot: capacityPerSlot,
		RecurrenceDays:  mustParseDays(days),
		RecurrenceStart: from,
		RecurrenceEnd:   to,
		IsAvailable:     true,
	}
	r.availabilities[a.ID] = a
	for _, s := range GenerateSlots(&a) {
		r.slots[s.ID] = s
	}
	return &a
}

func addStreamAvailability(r *memRepo, doctorID uuid.UUID, start, end string, totalCapacity int, days string, from, to time.Time) *Availability {
	a := Availability{
		ID:              uuid.New(),
		DoctorID:        doctorID,
		Discipline:      DisciplineStream,
		StartTime:       mustParseTime(start),
		EndTime:         mustParseTime(end),
		TotalCapacity:   totalCapacity,
		RecurrenceDays:  mustParseDays(days),
		RecurrenceStart: from,
		RecurrenceEnd:   to,
		IsAvailable:     true,
	}
	r.availabilities[a.ID] = a
	return &a
}

func slotAt(r *memRepo, availabilityID uuid.UUID, d time.Time, start string) *Slot {
	want := mustParseTime(start)
	day := DateOnly(d)
	for id := range r.slots {
		s := r.slots[id]
		if s.AvailabilityID == availabilityID && s.Date.Equal(day) && s.StartTime == want {
			return &s
		}
	}
	return nil
}
