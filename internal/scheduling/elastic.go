package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	redisclient "github.com/medisched/elastic-clinic-scheduling/internal/redis"
)

type ExpandInput struct {
	AvailabilityID   uuid.UUID
	SessionDate      time.Time
	NewStartTime     *TimeOfDay
	NewEndTime       *TimeOfDay
	NewTotalCapacity *int // stream only
}

type ExpandResult struct {
	DoctorID       uuid.UUID
	AvailabilityID uuid.UUID
	SessionDate    time.Time
	OriginalStart  TimeOfDay
	OriginalEnd    TimeOfDay
	NewStart       TimeOfDay
	NewEnd         TimeOfDay
	SlotsAdded     int // wave
	// Stream capacity accounting.
	OriginalCapacity int
	NewCapacity      int
	AvailableSeats   int
}

type ShrinkInput struct {
	AvailabilityID uuid.UUID
	SessionDate    time.Time
	NewStartTime   *TimeOfDay
	NewEndTime     *TimeOfDay
}

type ShrinkResult struct {
	DoctorID       uuid.UUID
	AvailabilityID uuid.UUID
	Discipline     Discipline
	SessionDate    time.Time
	OriginalStart  TimeOfDay
	OriginalEnd    TimeOfDay
	NewStart       TimeOfDay
	NewEnd         TimeOfDay
	// Stream capacity accounting.
	OriginalCapacity int
	NewCapacity      int

	SlotsRemoved  int
	TotalAffected int

	RelocatedNewWindow int
	RelocatedSameDay   int
	RelocatedNextWeek  int
	Cancelled          int

	RescheduledAppointments []RelocatedAppointment
	CancelledAppointments   []CancelledAppointment
}

// resolveBounds fills absent bounds from the original window.
func resolveBounds(a *Availability, newStart, newEnd *TimeOfDay) (TimeOfDay, TimeOfDay) {
	start, end := a.StartTime, a.EndTime
	if newStart != nil {
		start = *newStart
	}
	if newEnd != nil {
		end = *newEnd
	}
	return start, end
}

// ExpandWaveSession widens one day's wave window outward and
// materializes slots only over the newly added sub-ranges. Existing
// slots are untouched.
func (s *Service) ExpandWaveSession(ctx context.Context, in ExpandInput) (*ExpandResult, error) {
	if in.NewStartTime == nil && in.NewEndTime == nil {
		return nil, ErrMissingBounds
	}

	avail, err := s.repo.GetAvailabilityByID(ctx, in.AvailabilityID)
	if err != nil {
		return nil, err
	}
	if avail.Discipline != DisciplineWave {
		return nil, ErrNotWave
	}

	day := DateOnly(in.SessionDate)
	finalStart, finalEnd := resolveBounds(avail, in.NewStartTime, in.NewEndTime)
	if finalStart >= avail.StartTime && finalEnd <= avail.EndTime {
		return nil, ErrNotOutward
	}

	var added int
	err = s.locker.WithLock(ctx, redisclient.AvailabilityKey(avail.ID), func(lockCtx context.Context) error {
		return s.repo.WithTx(lockCtx, func(repo Repository) error {
			existing, err := repo.GetElasticSession(lockCtx, avail.ID, day)
			if err != nil {
				return fmt.Errorf("check elastic session: %w", err)
			}
			if existing != nil {
				return ErrElasticSessionExists
			}

			if err := repo.CreateElasticSession(lockCtx, &ElasticSession{
				ID:             uuid.New(),
				AvailabilityID: avail.ID,
				SessionDate:    day,
				NewStartTime:   finalStart,
				NewEndTime:     finalEnd,
				Action:         ActionExpand,
			}); err != nil {
				return err
			}

			var slots []Slot
			if finalStart < avail.StartTime {
				slots = append(slots, GenerateSlotsForDate(avail, day, finalStart, avail.StartTime)...)
			}
			if finalEnd > avail.EndTime {
				slots = append(slots, GenerateSlotsForDate(avail, day, avail.EndTime, finalEnd)...)
			}
			if err := repo.CreateSlots(lockCtx, slots); err != nil {
				return fmt.Errorf("materialize expansion slots: %w", err)
			}
			added = len(slots)
			return nil
		})
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrResourceBusy
		}
		return nil, err
	}

	s.metrics.ObserveElastic(string(DisciplineWave), string(ActionExpand))
	return &ExpandResult{
		DoctorID:       avail.DoctorID,
		AvailabilityID: avail.ID,
		SessionDate:    day,
		OriginalStart:  avail.StartTime,
		OriginalEnd:    avail.EndTime,
		NewStart:       finalStart,
		NewEnd:         finalEnd,
		SlotsAdded:     added,
	}, nil
}

// ExpandStreamSession widens one day's stream window outward. No rows
// are materialized; the derived window and capacity live on the audit
// record.
func (s *Service) ExpandStreamSession(ctx context.Context, in ExpandInput) (*ExpandResult, error) {
	if in.NewStartTime == nil && in.NewEndTime == nil {
		return nil, ErrMissingBounds
	}

	avail, err := s.repo.GetAvailabilityByID(ctx, in.AvailabilityID)
	if err != nil {
		return nil, err
	}
	if avail.Discipline != DisciplineStream {
		return nil, ErrNotStream
	}

	day := DateOnly(in.SessionDate)
	finalStart, finalEnd := resolveBounds(avail, in.NewStartTime, in.NewEndTime)
	if finalStart >= avail.StartTime && finalEnd <= avail.EndTime {
		return nil, ErrNotOutward
	}

	capacity := avail.TotalCapacity
	if in.NewTotalCapacity != nil {
		capacity = *in.NewTotalCapacity
	}
	if capacity < 1 {
		return nil, ErrCapacityTooLow
	}

	err = s.locker.WithLock(ctx, redisclient.AvailabilityKey(avail.ID), func(lockCtx context.Context) error {
		return s.repo.WithTx(lockCtx, func(repo Repository) error {
			existing, err := repo.GetElasticSession(lockCtx, avail.ID, day)
			if err != nil {
				return fmt.Errorf("check elastic session: %w", err)
			}
			if existing != nil {
				return ErrElasticSessionExists
			}

			return repo.CreateElasticSession(lockCtx, &ElasticSession{
				ID:               uuid.New(),
				AvailabilityID:   avail.ID,
				SessionDate:      day,
				NewStartTime:     finalStart,
				NewEndTime:       finalEnd,
				NewTotalCapacity: &capacity,
				Action:           ActionExpand,
			})
		})
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrResourceBusy
		}
		return nil, err
	}

	s.metrics.ObserveElastic(string(DisciplineStream), string(ActionExpand))
	return &ExpandResult{
		DoctorID:         avail.DoctorID,
		AvailabilityID:   avail.ID,
		SessionDate:      day,
		OriginalStart:    avail.StartTime,
		OriginalEnd:      avail.EndTime,
		NewStart:         finalStart,
		NewEnd:           finalEnd,
		OriginalCapacity: avail.TotalCapacity,
		NewCapacity:      capacity,
		AvailableSeats:   capacity - avail.BookedCount,
	}, nil
}

func (s *Service) ShrinkWaveSession(ctx context.Context, in ShrinkInput) (*ShrinkResult, error) {
	return s.shrink(ctx, in, DisciplineWave)
}

func (s *Service) ShrinkStreamSession(ctx context.Context, in ShrinkInput) (*ShrinkResult, error) {
	return s.shrink(ctx, in, DisciplineStream)
}

// shrink narrows one day's window inward, removes the displaced
// structures, and pushes every affected appointment through the
// relocation cascade. The whole thing runs as a single transaction
// under the availability lock: either every relocation, counter change,
// and the audit record land together, or none do.
func (s *Service) shrink(ctx context.Context, in ShrinkInput, discipline Discipline) (*ShrinkResult, error) {
	if in.NewStartTime == nil && in.NewEndTime == nil {
		return nil, ErrMissingBounds
	}

	day := DateOnly(in.SessionDate)
	if day.Before(s.today()) {
		return nil, ErrPastSessionDate
	}

	avail, err := s.repo.GetAvailabilityByID(ctx, in.AvailabilityID)
	if err != nil {
		return nil, err
	}
	if avail.Discipline != discipline {
		if discipline == DisciplineWave {
			return nil, ErrNotWave
		}
		return nil, ErrNotStream
	}

	origStart, origEnd := avail.StartTime, avail.EndTime
	newStart, newEnd := resolveBounds(avail, in.NewStartTime, in.NewEndTime)
	if newEnd <= newStart {
		return nil, ErrInvalidWindow
	}
	if newStart <= origStart && newEnd >= origEnd {
		return nil, ErrNotInward
	}

	var removed []span
	removedMinutes := 0
	if newStart > origStart {
		removed = append(removed, span{origStart, newStart})
		removedMinutes += int(newStart - origStart)
	}
	if newEnd < origEnd {
		removed = append(removed, span{newEnd, origEnd})
		removedMinutes += int(origEnd - newEnd)
	}

	result := &ShrinkResult{
		DoctorID:       avail.DoctorID,
		AvailabilityID: avail.ID,
		Discipline:     discipline,
		SessionDate:    day,
		OriginalStart:  origStart,
		OriginalEnd:    origEnd,
		NewStart:       newStart,
		NewEnd:         newEnd,
	}

	err = s.locker.WithLock(ctx, redisclient.AvailabilityKey(avail.ID), func(lockCtx context.Context) error {
		return s.repo.WithTx(lockCtx, func(repo Repository) error {
			existing, err := repo.GetElasticSession(lockCtx, avail.ID, day)
			if err != nil {
				return fmt.Errorf("check elastic session: %w", err)
			}
			if existing != nil {
				return ErrElasticSessionExists
			}

			session := &ElasticSession{
				ID:             uuid.New(),
				AvailabilityID: avail.ID,
				SessionDate:    day,
				NewStartTime:   newStart,
				NewEndTime:     newEnd,
				Action:         ActionShrink,
			}

			if discipline == DisciplineWave {
				slots, err := repo.ListSlotsByAvailabilityAndDate(lockCtx, avail.ID, day)
				if err != nil {
					return fmt.Errorf("list slots: %w", err)
				}
				var doomed []uuid.UUID
				for i := range slots {
					if insideRemoved(removed, slots[i].StartTime, slots[i].EndTime) {
						doomed = append(doomed, slots[i].ID)
					}
				}
				if err := repo.DeleteSlots(lockCtx, doomed); err != nil {
					return err
				}
				result.SlotsRemoved = len(doomed)
			} else {
				reduction := ceilDiv(avail.TotalCapacity*removedMinutes, int(origEnd-origStart))
				newCapacity := avail.TotalCapacity - reduction
				if newCapacity <= 0 {
					return ErrShrinkBelowZero
				}
				result.OriginalCapacity = avail.TotalCapacity
				result.NewCapacity = newCapacity
				avail.TotalCapacity = newCapacity
				if err := repo.SaveAvailability(lockCtx, avail); err != nil {
					return fmt.Errorf("reduce capacity: %w", err)
				}
				session.NewTotalCapacity = &newCapacity
			}

			if err := repo.CreateElasticSession(lockCtx, session); err != nil {
				return err
			}

			confirmed, err := repo.ListAppointmentsByDoctorAndDate(lockCtx, avail.DoctorID, day, StatusConfirmed)
			if err != nil {
				return fmt.Errorf("list appointments: %w", err)
			}
			var affected []Appointment
			for i := range confirmed {
				if insideRemoved(removed, confirmed[i].StartTime, confirmed[i].EndTime) {
					affected = append(affected, confirmed[i])
				}
			}
			result.TotalAffected = len(affected)

			c := &cascade{
				repo:           repo,
				discipline:     discipline,
				doctorID:       avail.DoctorID,
				availabilityID: avail.ID,
				sessionDate:    day,
				newStart:       newStart,
				newEnd:         newEnd,
				startShrunk:    newStart > origStart,
				removed:        removed,
				now:            s.now,
			}
			out, err := c.run(lockCtx, affected)
			if err != nil {
				return err
			}

			result.RescheduledAppointments = out.Rescheduled
			result.CancelledAppointments = out.Cancelled
			result.Cancelled = len(out.Cancelled)
			for _, r := range out.Rescheduled {
				switch r.Tier {
				case TierNewWindow:
					result.RelocatedNewWindow++
				case TierSameDay:
					result.RelocatedSameDay++
				case TierNextWeek:
					result.RelocatedNextWeek++
				}
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

	s.metrics.ObserveElastic(string(discipline), string(ActionShrink))
	for _, r := range result.RescheduledAppointments {
		s.metrics.ObserveRelocation(r.Tier.String())
	}
	for range result.CancelledAppointments {
		s.metrics.ObserveRelocation(TierCancelled.String())
	}

	return result, nil
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
