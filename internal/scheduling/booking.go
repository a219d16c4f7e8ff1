package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	redisclient "github.com/medisched/elastic-clinic-scheduling/internal/redis"
)

// BookWaveSlot books a specific materialized wave slot for a patient.
// The appointment takes the slot's exact times. The critical section
// (capacity re-check plus counter increment) runs under the slot lock.
func (s *Service) BookWaveSlot(ctx context.Context, patientID, slotID uuid.UUID, date time.Time) (*Appointment, error) {
	if _, err := s.repo.GetPatientByID(ctx, patientID); err != nil {
		return nil, err
	}

	slot, err := s.repo.GetSlotByID(ctx, slotID)
	if err != nil {
		return nil, err
	}

	if !slot.Date.Equal(DateOnly(date)) {
		return nil, ErrSlotDateMismatch
	}
	if !slot.HasCapacity() {
		s.metrics.ObserveBooking(string(DisciplineWave), "conflict")
		return nil, ErrSlotFull
	}

	var created *Appointment
	err = s.locker.WithLock(ctx, redisclient.SlotKey(slotID), func(lockCtx context.Context) error {
		// Re-check inside the critical section, another request may have
		// taken the last seat between the read above and lock acquisition.
		slot, err := s.repo.GetSlotByID(lockCtx, slotID)
		if err != nil {
			return err
		}
		if !slot.HasCapacity() {
			return ErrSlotFull
		}

		appt := &Appointment{
			ID:             uuid.New(),
			PatientID:      patientID,
			DoctorID:       slot.DoctorID,
			AvailabilityID: slot.AvailabilityID,
			Date:           slot.Date,
			StartTime:      slot.StartTime,
			EndTime:        slot.EndTime,
			Status:         StatusConfirmed,
		}

		return s.repo.WithTx(lockCtx, func(repo Repository) error {
			if err := repo.CreateAppointment(lockCtx, appt); err != nil {
				return fmt.Errorf("create appointment: %w", err)
			}
			// Relative write with its own capacity guard, so a writer
			// holding a different lock cannot clobber the count.
			if err := repo.AdjustSlotBooked(lockCtx, slot.ID, 1); err != nil {
				return err
			}
			created = appt
			return nil
		})
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			s.metrics.ObserveBooking(string(DisciplineWave), "conflict")
			return nil, ErrResourceBusy
		}
		if errors.Is(err, ErrSlotFull) {
			s.metrics.ObserveBooking(string(DisciplineWave), "conflict")
		} else {
			s.metrics.ObserveBooking(string(DisciplineWave), "error")
		}
		return nil, err
	}

	s.metrics.ObserveBooking(string(DisciplineWave), "success")
	return created, nil
}

// BookStreamSlot books the doctor's stream pool for a date. The exact
// time is assigned by strict sequential packing: the new appointment
// starts where the latest-ending confirmed appointment ends, or at the
// window start when the day is empty. Gaps left by cancellations are
// never reused.
func (s *Service) BookStreamSlot(ctx context.Context, patientID, doctorID uuid.UUID, date time.Time) (*Appointment, error) {
	if _, err := s.repo.GetPatientByID(ctx, patientID); err != nil {
		return nil, err
	}

	avail, err := s.repo.GetStreamAvailabilityByDoctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}

	day := DateOnly(date)
	if day.Before(DateOnly(avail.RecurrenceStart)) || day.After(DateOnly(avail.RecurrenceEnd)) {
		return nil, ErrOutsideRecurrence
	}
	if !avail.RecurrenceDays.Contains(day.Weekday()) {
		return nil, ErrDayNotAvailable
	}
	if avail.BookedCount >= avail.TotalCapacity {
		s.metrics.ObserveBooking(string(DisciplineStream), "conflict")
		return nil, ErrStreamFull
	}

	var created *Appointment
	err = s.locker.WithLock(ctx, redisclient.AvailabilityKey(avail.ID), func(lockCtx context.Context) error {
		avail, err := s.repo.GetAvailabilityByID(lockCtx, avail.ID)
		if err != nil {
			return err
		}
		if avail.BookedCount >= avail.TotalCapacity {
			return ErrStreamFull
		}

		confirmed, err := s.repo.ListAppointmentsByDoctorAndDate(lockCtx, doctorID, day, StatusConfirmed)
		if err != nil {
			return fmt.Errorf("list appointments: %w", err)
		}

		start := avail.StartTime
		for i := range confirmed {
			if confirmed[i].EndTime > start {
				start = confirmed[i].EndTime
			}
		}
		end := start.Add(StreamUnitMinutes)
		if end > avail.EndTime {
			return ErrStreamWindowExhausted
		}

		appt := &Appointment{
			ID:             uuid.New(),
			PatientID:      patientID,
			DoctorID:       doctorID,
			AvailabilityID: avail.ID,
			Date:           day,
			StartTime:      start,
			EndTime:        end,
			Status:         StatusConfirmed,
		}

		return s.repo.WithTx(lockCtx, func(repo Repository) error {
			if err := repo.CreateAppointment(lockCtx, appt); err != nil {
				return fmt.Errorf("create appointment: %w", err)
			}
			if err := repo.AdjustAvailabilityBooked(lockCtx, avail.ID, 1); err != nil {
				return err
			}
			created = appt
			return nil
		})
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			s.metrics.ObserveBooking(string(DisciplineStream), "conflict")
			return nil, ErrResourceBusy
		}
		if errors.Is(err, ErrStreamFull) || errors.Is(err, ErrStreamWindowExhausted) {
			s.metrics.ObserveBooking(string(DisciplineStream), "conflict")
		} else {
			s.metrics.ObserveBooking(string(DisciplineStream), "error")
		}
		return nil, err
	}

	s.metrics.ObserveBooking(string(DisciplineStream), "success")
	return created, nil
}
