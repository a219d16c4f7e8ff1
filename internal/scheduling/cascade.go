package scheduling

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// relocationStepMinutes is the step between candidate start times when
// scanning a window for a free interval.
const relocationStepMinutes = 30

type RelocationTier int

const (
	TierNewWindow RelocationTier = iota + 1
	TierSameDay
	TierNextWeek
	TierCancelled
)

func (t RelocationTier) String() string {
	switch t {
	case TierNewWindow:
		return "new_window"
	case TierSameDay:
		return "same_day"
	case TierNextWeek:
		return "next_week"
	case TierCancelled:
		return "cancelled"
	}
	return "unknown"
}

type RelocatedAppointment struct {
	AppointmentID uuid.UUID
	PatientName   string
	OldDate       time.Time
	OldStart      TimeOfDay
	OldEnd        TimeOfDay
	NewDate       time.Time
	NewStart      TimeOfDay
	NewEnd        TimeOfDay
	Tier          RelocationTier
}

type CancelledAppointment struct {
	AppointmentID uuid.UUID
	PatientName   string
	Date          time.Time
	StartTime     TimeOfDay
	EndTime       TimeOfDay
	Reason        string
}

type cascadeResult struct {
	Rescheduled []RelocatedAppointment
	Cancelled   []CancelledAppointment
}

// span is a half-open [start, end) time range removed by a shrink.
type span struct {
	start, end TimeOfDay
}

func (sp span) containsInterval(start, end TimeOfDay) bool {
	return start >= sp.start && end <= sp.end
}

func insideRemoved(removed []span, start, end TimeOfDay) bool {
	for _, sp := range removed {
		if sp.containsInterval(start, end) {
			return true
		}
	}
	return false
}

// cascade relocates appointments displaced by a shrink through a fixed
// pipeline of tier searches: the kept window on the same date, other
// same-day sessions, the next seven days, then cancellation. Each tier
// search returns nil when it has no fit; that is control flow, not an
// error.
type cascade struct {
	repo           Repository
	discipline     Discipline
	doctorID       uuid.UUID
	availabilityID uuid.UUID
	sessionDate    time.Time
	newStart       TimeOfDay
	newEnd         TimeOfDay
	startShrunk    bool
	removed        []span
	now            func() time.Time
}

// placement is a concrete destination for one displaced appointment.
// slot is set for wave destinations, availability for stream
// destinations outside the shrunk session; both nil means the kept
// window of the shrunk stream session.
type placement struct {
	date         time.Time
	start        TimeOfDay
	end          TimeOfDay
	slot         *Slot
	availability *Availability
}

func (c *cascade) run(ctx context.Context, affected []Appointment) (*cascadeResult, error) {
	res := &cascadeResult{}

	searches := []struct {
		tier RelocationTier
		fn   func(context.Context, *Appointment) (*placement, error)
	}{
		{TierNewWindow, c.searchNewWindow},
		{TierSameDay, c.searchSameDay},
		{TierNextWeek, c.searchNextWeek},
	}

	for i := range affected {
		appt := &affected[i]

		name := ""
		if patient, err := c.repo.GetPatientByID(ctx, appt.PatientID); err == nil {
			name = patient.Name
		}

		oldDate, oldStart, oldEnd := appt.Date, appt.StartTime, appt.EndTime

		var dest *placement
		var tier RelocationTier
		for _, search := range searches {
			p, err := search.fn(ctx, appt)
			if err != nil {
				return nil, err
			}
			if p != nil {
				dest = p
				tier = search.tier
				break
			}
		}

		if dest == nil {
			if err := c.cancel(ctx, appt); err != nil {
				return nil, err
			}
			res.Cancelled = append(res.Cancelled, CancelledAppointment{
				AppointmentID: appt.ID,
				PatientName:   name,
				Date:          oldDate,
				StartTime:     oldStart,
				EndTime:       oldEnd,
				Reason:        c.cancelReason(),
			})
			continue
		}

		if err := c.apply(ctx, appt, dest); err != nil {
			return nil, err
		}
		res.Rescheduled = append(res.Rescheduled, RelocatedAppointment{
			AppointmentID: appt.ID,
			PatientName:   name,
			OldDate:       oldDate,
			OldStart:      oldStart,
			OldEnd:        oldEnd,
			NewDate:       dest.date,
			NewStart:      dest.start,
			NewEnd:        dest.end,
			Tier:          tier,
		})
	}

	return res, nil
}

// searchNewWindow runs only when the start moved forward, so the shrink
// kept a trailing window on the same date.
func (c *cascade) searchNewWindow(ctx context.Context, appt *Appointment) (*placement, error) {
	if !c.startShrunk {
		return nil, nil
	}

	var slots []Slot
	if c.discipline == DisciplineWave {
		all, err := c.repo.ListSlotsByAvailabilityAndDate(ctx, c.availabilityID, c.sessionDate)
		if err != nil {
			return nil, fmt.Errorf("list slots: %w", err)
		}
		slots = all
	}

	return c.scanWindow(ctx, c.sessionDate, c.newStart, c.newEnd, appt.DurationMinutes(), appt.ID, slots)
}

// searchSameDay looks at the doctor's other sessions on the shrink date.
func (c *cascade) searchSameDay(ctx context.Context, appt *Appointment) (*placement, error) {
	if c.discipline == DisciplineWave {
		return c.searchWaveSlots(ctx, c.sessionDate, appt, c.removed)
	}
	return c.searchOtherStreams(ctx, c.sessionDate, appt)
}

// searchNextWeek repeats the same-day search over the following seven
// calendar dates; within a date candidates run in time order, and the
// first date with a fit wins.
func (c *cascade) searchNextWeek(ctx context.Context, appt *Appointment) (*placement, error) {
	for i := 1; i <= RelocationSearchDays; i++ {
		date := c.sessionDate.AddDate(0, 0, i)

		var p *placement
		var err error
		if c.discipline == DisciplineWave {
			p, err = c.searchWaveSlots(ctx, date, appt, nil)
		} else {
			p, err = c.searchOtherStreams(ctx, date, appt)
		}
		if err != nil {
			return nil, err
		}
		if p != nil {
			return p, nil
		}
	}
	return nil, nil
}

// searchWaveSlots picks the earliest slot of the doctor on the date with
// spare capacity and enough length, skipping intervals inside excluded
// spans. The appointment takes the slot's full interval.
func (c *cascade) searchWaveSlots(ctx context.Context, date time.Time, appt *Appointment, excluded []span) (*placement, error) {
	slots, err := c.repo.ListSlotsByDoctorAndDate(ctx, c.doctorID, date)
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}

	duration := appt.DurationMinutes()
	for i := range slots {
		slot := slots[i]
		if insideRemoved(excluded, slot.StartTime, slot.EndTime) {
			continue
		}
		if !slot.HasCapacity() {
			continue
		}
		if slot.DurationMinutes() < duration {
			continue
		}
		return &placement{
			date:  DateOnly(date),
			start: slot.StartTime,
			end:   slot.EndTime,
			slot:  &slot,
		}, nil
	}
	return nil, nil
}

// searchOtherStreams scans the doctor's other stream availabilities
// (the shrunk one excluded) that recur on the date and still have seats.
func (c *cascade) searchOtherStreams(ctx context.Context, date time.Time, appt *Appointment) (*placement, error) {
	avails, err := c.repo.ListAvailabilitiesByDoctor(ctx, c.doctorID, DisciplineStream)
	if err != nil {
		return nil, fmt.Errorf("list availabilities: %w", err)
	}

	for i := range avails {
		avail := avails[i]
		if avail.ID == c.availabilityID {
			continue
		}
		if !avail.CoversDate(date) {
			continue
		}
		if avail.BookedCount >= avail.TotalCapacity {
			continue
		}

		p, err := c.scanWindow(ctx, date, avail.StartTime, avail.EndTime, appt.DurationMinutes(), appt.ID, nil)
		if err != nil {
			return nil, err
		}
		if p != nil {
			p.availability = &avail
			return p, nil
		}
	}
	return nil, nil
}

// scanWindow walks candidate start times in 30 minute steps inside
// [windowStart, windowEnd) and returns the earliest interval of the
// given duration that overlaps no confirmed appointment on the date.
// When slots is non-nil (wave), the interval must also sit inside a
// slot with spare capacity; the winning slot rides on the placement.
func (c *cascade) scanWindow(ctx context.Context, date time.Time, windowStart, windowEnd TimeOfDay, durationMinutes int, excludeAppt uuid.UUID, slots []Slot) (*placement, error) {
	confirmed, err := c.repo.ListAppointmentsByDoctorAndDate(ctx, c.doctorID, date, StatusConfirmed)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}

	// Every confirmed interval touching the window blocks candidates,
	// including ones straddling the window boundary.
	var booked []span
	for i := range confirmed {
		a := confirmed[i]
		if a.ID == excludeAppt {
			continue
		}
		if intervalsOverlap(a.StartTime, a.EndTime, windowStart, windowEnd) {
			booked = append(booked, span{a.StartTime, a.EndTime})
		}
	}

	for start := windowStart; start.Add(durationMinutes) <= windowEnd; start = start.Add(relocationStepMinutes) {
		end := start.Add(durationMinutes)

		overlaps := false
		for _, b := range booked {
			if intervalsOverlap(start, end, b.start, b.end) {
				overlaps = true
				break
			}
		}
		if overlaps {
			continue
		}

		if slots != nil {
			slot := findCoveringSlot(slots, start, end)
			if slot == nil {
				continue
			}
			return &placement{date: DateOnly(date), start: start, end: end, slot: slot}, nil
		}
		return &placement{date: DateOnly(date), start: start, end: end}, nil
	}
	return nil, nil
}

func findCoveringSlot(slots []Slot, start, end TimeOfDay) *Slot {
	for i := range slots {
		s := &slots[i]
		if s.StartTime <= start && s.EndTime >= end && s.HasCapacity() {
			return s
		}
	}
	return nil
}

// apply moves the appointment in place and increments the destination's
// capacity counter. Counters of structures removed by the shrink are
// left alone.
func (c *cascade) apply(ctx context.Context, appt *Appointment, dest *placement) error {
	appt.Date = dest.date
	appt.StartTime = dest.start
	appt.EndTime = dest.end

	if dest.slot != nil {
		appt.AvailabilityID = dest.slot.AvailabilityID
		if err := c.repo.AdjustSlotBooked(ctx, dest.slot.ID, 1); err != nil {
			return fmt.Errorf("increment destination slot: %w", err)
		}
	}
	if dest.availability != nil {
		appt.AvailabilityID = dest.availability.ID
		if err := c.repo.AdjustAvailabilityBooked(ctx, dest.availability.ID, 1); err != nil {
			return fmt.Errorf("increment destination availability: %w", err)
		}
	}

	if err := c.repo.SaveAppointment(ctx, appt); err != nil {
		return fmt.Errorf("relocate appointment %s: %w", appt.ID, err)
	}
	return nil
}

func (c *cascade) cancel(ctx context.Context, appt *Appointment) error {
	now := c.now()
	appt.Status = StatusCancelled
	appt.CancellationDate = &now
	if err := c.repo.SaveAppointment(ctx, appt); err != nil {
		return fmt.Errorf("cancel appointment %s: %w", appt.ID, err)
	}
	return nil
}

func (c *cascade) cancelReason() string {
	if c.discipline == DisciplineWave {
		return "doctor session shrunk - no alternative slots available"
	}
	return "stream session shrunk - no alternative slots available"
}
