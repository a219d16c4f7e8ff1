package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	minShiftMinutes = 10
	maxShiftMinutes = 180
)

type RescheduledAppointment struct {
	AppointmentID uuid.UUID
	PatientName   string
	Date          time.Time
	OldStart      TimeOfDay
	OldEnd        TimeOfDay
	NewStart      TimeOfDay
	NewEnd        TimeOfDay
}

type RescheduleFailure struct {
	AppointmentID uuid.UUID
	Reason        string
}

type RescheduleResult struct {
	DoctorID         uuid.UUID
	TotalRequested   int
	TotalRescheduled int
	TotalFailed      int
	Rescheduled      []RescheduledAppointment
	Failed           []RescheduleFailure
}

func validateShift(shiftMinutes int) error {
	abs := shiftMinutes
	if abs < 0 {
		abs = -abs
	}
	if abs < minShiftMinutes || abs > maxShiftMinutes {
		return ErrInvalidShiftRange
	}
	return nil
}

// RescheduleAllFutureAppointments shifts every confirmed appointment for
// (doctor, date) by shiftMinutes. No overlap or capacity re-validation
// happens here; the caller owns that tradeoff.
func (s *Service) RescheduleAllFutureAppointments(ctx context.Context, doctorID uuid.UUID, date time.Time, shiftMinutes int) (*RescheduleResult, error) {
	if err := validateShift(shiftMinutes); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetDoctorByID(ctx, doctorID); err != nil {
		return nil, err
	}

	result := &RescheduleResult{DoctorID: doctorID}
	err := s.repo.WithTx(ctx, func(repo Repository) error {
		appts, err := repo.ListAppointmentsByDoctorAndDate(ctx, doctorID, date, StatusConfirmed)
		if err != nil {
			return fmt.Errorf("list appointments: %w", err)
		}

		result.TotalRequested = len(appts)
		for i := range appts {
			appt := appts[i]
			moved, err := s.shiftAppointment(ctx, repo, &appt, shiftMinutes)
			if err != nil {
				return err
			}
			result.Rescheduled = append(result.Rescheduled, *moved)
		}
		result.TotalRescheduled = len(result.Rescheduled)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RescheduleSelectedAppointments shifts an explicit id list, recording a
// per-id failure reason instead of aborting the batch. Partial success
// is the expected outcome.
func (s *Service) RescheduleSelectedAppointments(ctx context.Context, doctorID uuid.UUID, appointmentIDs []uuid.UUID, shiftMinutes int) (*RescheduleResult, error) {
	if err := validateShift(shiftMinutes); err != nil {
		return nil, err
	}
	if len(appointmentIDs) == 0 {
		return nil, ErrNoAppointmentIDs
	}
	if _, err := s.repo.GetDoctorByID(ctx, doctorID); err != nil {
		return nil, err
	}

	result := &RescheduleResult{DoctorID: doctorID, TotalRequested: len(appointmentIDs)}
	err := s.repo.WithTx(ctx, func(repo Repository) error {
		for _, id := range appointmentIDs {
			appt, err := repo.GetAppointmentByID(ctx, id)
			if err != nil {
				if errors.Is(err, ErrAppointmentNotFound) {
					result.Failed = append(result.Failed, RescheduleFailure{
						AppointmentID: id,
						Reason:        "appointment not found",
					})
					continue
				}
				return err
			}
			if appt.DoctorID != doctorID {
				result.Failed = append(result.Failed, RescheduleFailure{
					AppointmentID: id,
					Reason:        "appointment does not belong to this doctor",
				})
				continue
			}
			if appt.Status != StatusConfirmed {
				result.Failed = append(result.Failed, RescheduleFailure{
					AppointmentID: id,
					Reason:        fmt.Sprintf("cannot reschedule %s appointment", appt.Status),
				})
				continue
			}

			moved, err := s.shiftAppointment(ctx, repo, appt, shiftMinutes)
			if err != nil {
				return err
			}
			result.Rescheduled = append(result.Rescheduled, *moved)
		}
		result.TotalRescheduled = len(result.Rescheduled)
		result.TotalFailed = len(result.Failed)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Service) shiftAppointment(ctx context.Context, repo Repository, appt *Appointment, shiftMinutes int) (*RescheduledAppointment, error) {
	oldStart, oldEnd := appt.StartTime, appt.EndTime
	appt.StartTime = appt.StartTime.Add(shiftMinutes)
	appt.EndTime = appt.EndTime.Add(shiftMinutes)
	if err := repo.SaveAppointment(ctx, appt); err != nil {
		return nil, fmt.Errorf("shift appointment %s: %w", appt.ID, err)
	}

	name := ""
	if patient, err := repo.GetPatientByID(ctx, appt.PatientID); err == nil {
		name = patient.Name
	}

	return &RescheduledAppointment{
		AppointmentID: appt.ID,
		PatientName:   name,
		Date:          appt.Date,
		OldStart:      oldStart,
		OldEnd:        oldEnd,
		NewStart:      appt.StartTime,
		NewEnd:        appt.EndTime,
	}, nil
}
