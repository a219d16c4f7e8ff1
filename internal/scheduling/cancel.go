package scheduling

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	redisclient "github.com/medisched/elastic-clinic-scheduling/internal/redis"
)

// CancelAppointment cancels on behalf of the owning doctor or patient
// and releases one capacity unit: the backing slot's booked_count (wave)
// and the parent availability's booked_count, both floored at zero.
func (s *Service) CancelAppointment(ctx context.Context, appointmentID, actorUserID uuid.UUID, role ActorRole) (*Appointment, error) {
	if role != RoleDoctor && role != RolePatient {
		return nil, ErrInvalidRole
	}

	appt, err := s.repo.GetAppointmentByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}

	if appt.Status == StatusCancelled {
		return nil, ErrAlreadyCancelled
	}
	if DateOnly(appt.Date).Before(s.today()) {
		return nil, ErrPastAppointment
	}

	switch role {
	case RoleDoctor:
		doctor, err := s.repo.GetDoctorByID(ctx, appt.DoctorID)
		if err != nil {
			return nil, fmt.Errorf("load doctor: %w", err)
		}
		if doctor.UserID != actorUserID {
			return nil, ErrNotOwner
		}
	case RolePatient:
		patient, err := s.repo.GetPatientByID(ctx, appt.PatientID)
		if err != nil {
			return nil, fmt.Errorf("load patient: %w", err)
		}
		if patient.UserID != actorUserID {
			return nil, ErrNotOwner
		}
	}

	err = s.locker.WithLock(ctx, redisclient.AvailabilityKey(appt.AvailabilityID), func(lockCtx context.Context) error {
		return s.repo.WithTx(lockCtx, func(repo Repository) error {
			appt, err := repo.GetAppointmentByID(lockCtx, appointmentID)
			if err != nil {
				return err
			}
			if appt.Status == StatusCancelled {
				return ErrAlreadyCancelled
			}

			now := s.now()
			appt.Status = StatusCancelled
			appt.CancelledBy = &role
			appt.CancellationDate = &now
			if err := repo.SaveAppointment(lockCtx, appt); err != nil {
				return err
			}

			// Release the exact slot backing this appointment; stream
			// appointments have no slot row, which is fine. Decrements
			// are relative writes floored at zero.
			slot, err := repo.GetSlotByStart(lockCtx, appt.AvailabilityID, appt.Date, appt.StartTime)
			if err != nil && !errors.Is(err, ErrSlotNotFound) {
				return fmt.Errorf("find slot: %w", err)
			}
			if slot != nil {
				if err := repo.AdjustSlotBooked(lockCtx, slot.ID, -1); err != nil {
					return fmt.Errorf("release slot: %w", err)
				}
			}

			if err := repo.AdjustAvailabilityBooked(lockCtx, appt.AvailabilityID, -1); err != nil && !errors.Is(err, ErrAvailabilityNotFound) {
				return fmt.Errorf("release availability: %w", err)
			}
			return nil
		})
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrResourceBusy
		}
		return nil, err
	}

	s.metrics.ObserveCancellation(string(role))
	return s.repo.GetAppointmentByID(ctx, appointmentID)
}
