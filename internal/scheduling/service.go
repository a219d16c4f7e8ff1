package scheduling

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/medisched/elastic-clinic-scheduling/internal/metrics"
	redisclient "github.com/medisched/elastic-clinic-scheduling/internal/redis"
)

type Service struct {
	repo    Repository
	locker  redisclient.Locker
	metrics *metrics.SchedulingMetrics
	now     func() time.Time
}

func NewService(repo Repository, locker redisclient.Locker, m *metrics.SchedulingMetrics) *Service {
	return &Service{
		repo:    repo,
		locker:  locker,
		metrics: m,
		now:     time.Now,
	}
}

func (s *Service) today() time.Time {
	return DateOnly(s.now())
}

type CreateAvailabilityInput struct {
	DoctorID        uuid.UUID
	Discipline      Discipline
	Session         *string
	StartTime       TimeOfDay
	EndTime         TimeOfDay
	SlotDuration    int
	CapacityPerSlot int
	TotalCapacity   int
	RecurrenceDays  WeekdaySet
	RecurrenceStart time.Time
	RecurrenceEnd   time.Time
}

// CreateAvailability publishes a doctor's recurring window. Wave
// availabilities get their slots materialized eagerly for every
// recurrence-matching date.
func (s *Service) CreateAvailability(ctx context.Context, in CreateAvailabilityInput) (*Availability, int, error) {
	if _, err := s.repo.GetDoctorByID(ctx, in.DoctorID); err != nil {
		return nil, 0, err
	}

	if in.EndTime <= in.StartTime {
		return nil, 0, ErrInvalidWindow
	}
	if in.RecurrenceDays.IsEmpty() {
		return nil, 0, ErrEmptyRecurrence
	}
	if DateOnly(in.RecurrenceEnd).Before(DateOnly(in.RecurrenceStart)) {
		return nil, 0, ErrInvalidDateRange
	}

	switch in.Discipline {
	case DisciplineWave:
		if in.SlotDuration != 30 && in.SlotDuration != 60 {
			return nil, 0, ErrInvalidSlotDuration
		}
		if in.CapacityPerSlot < 1 {
			return nil, 0, ErrInvalidSlotCapacity
		}
	case DisciplineStream:
		if in.TotalCapacity < 1 {
			return nil, 0, ErrCapacityTooLow
		}
	default:
		return nil, 0, fmt.Errorf("unknown discipline %q", in.Discipline)
	}

	a := &Availability{
		ID:              uuid.New(),
		DoctorID:        in.DoctorID,
		Discipline:      in.Discipline,
		Session:         in.Session,
		StartTime:       in.StartTime,
		EndTime:         in.EndTime,
		SlotDuration:    in.SlotDuration,
		CapacityPerSlot: in.CapacityPerSlot,
		TotalCapacity:   in.TotalCapacity,
		BookedCount:     0,
		RecurrenceDays:  in.RecurrenceDays,
		RecurrenceStart: DateOnly(in.RecurrenceStart),
		RecurrenceEnd:   DateOnly(in.RecurrenceEnd),
		IsAvailable:     true,
	}

	var created int
	err := s.repo.WithTx(ctx, func(repo Repository) error {
		if err := repo.CreateAvailability(ctx, a); err != nil {
			return err
		}
		if a.Discipline == DisciplineWave {
			slots := GenerateSlots(a)
			if err := repo.CreateSlots(ctx, slots); err != nil {
				return fmt.Errorf("materialize slots: %w", err)
			}
			created = len(slots)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	return a, created, nil
}

// DaySlot is one bookable interval presented to callers: a materialized
// wave slot, or the single derived stream window.
type DaySlot struct {
	SlotID         *uuid.UUID
	StartTime      TimeOfDay
	EndTime        TimeOfDay
	Capacity       int
	BookedCount    int
	AvailableSeats int
	IsFull         bool
}

// ListDaySlots returns the bookable intervals a doctor offers on a date.
func (s *Service) ListDaySlots(ctx context.Context, doctorID uuid.UUID, date time.Time) (Discipline, []DaySlot, error) {
	if _, err := s.repo.GetDoctorByID(ctx, doctorID); err != nil {
		return "", nil, err
	}

	avails, err := s.repo.ListAvailabilitiesByDoctor(ctx, doctorID, "")
	if err != nil {
		return "", nil, fmt.Errorf("list availabilities: %w", err)
	}

	var match *Availability
	for i := range avails {
		if avails[i].CoversDate(date) {
			match = &avails[i]
			break
		}
	}
	if match == nil {
		return "", nil, ErrAvailabilityNotFound
	}

	if match.Discipline == DisciplineStream {
		seats := match.TotalCapacity - match.BookedCount
		return DisciplineStream, []DaySlot{{
			StartTime:      match.StartTime,
			EndTime:        match.EndTime,
			Capacity:       match.TotalCapacity,
			BookedCount:    match.BookedCount,
			AvailableSeats: seats,
			IsFull:         seats <= 0,
		}}, nil
	}

	slots, err := s.repo.ListSlotsByAvailabilityAndDate(ctx, match.ID, date)
	if err != nil {
		return "", nil, fmt.Errorf("list slots: %w", err)
	}

	out := make([]DaySlot, 0, len(slots))
	for i := range slots {
		slot := slots[i]
		id := slot.ID
		out = append(out, DaySlot{
			SlotID:         &id,
			StartTime:      slot.StartTime,
			EndTime:        slot.EndTime,
			Capacity:       slot.CapacityPerSlot,
			BookedCount:    slot.BookedCount,
			AvailableSeats: slot.CapacityPerSlot - slot.BookedCount,
			IsFull:         !slot.HasCapacity(),
		})
	}
	return DisciplineWave, out, nil
}

// AppointmentDetail is an appointment hydrated with participant names.
type AppointmentDetail struct {
	Appointment
	PatientName string
	DoctorName  string
}

func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*AppointmentDetail, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}

	patient, err := s.repo.GetPatientByID(ctx, appt.PatientID)
	if err != nil {
		return nil, fmt.Errorf("load patient: %w", err)
	}
	doctor, err := s.repo.GetDoctorByID(ctx, appt.DoctorID)
	if err != nil {
		return nil, fmt.Errorf("load doctor: %w", err)
	}

	return &AppointmentDetail{
		Appointment: *appt,
		PatientName: patient.Name,
		DoctorName:  doctor.Name,
	}, nil
}
