package scheduling

import (
	"time"

	"github.com/google/uuid"
)

// GenerateSlots materializes wave slots for every date in the
// availability's recurrence range whose weekday matches the recurrence
// set. The window is partitioned into consecutive slot_duration
// intervals; a trailing interval shorter than slot_duration is
// discarded. An empty result is valid.
func GenerateSlots(a *Availability) []Slot {
	var slots []Slot
	end := DateOnly(a.RecurrenceEnd)
	for d := DateOnly(a.RecurrenceStart); !d.After(end); d = d.AddDate(0, 0, 1) {
		if !a.RecurrenceDays.Contains(d.Weekday()) {
			continue
		}
		slots = append(slots, GenerateSlotsForDate(a, d, a.StartTime, a.EndTime)...)
	}
	return slots
}

// GenerateSlotsForDate partitions [windowStart, windowEnd) on one date.
// The elastic expand path uses it to fill only the newly added
// sub-ranges of a window.
func GenerateSlotsForDate(a *Availability, date time.Time, windowStart, windowEnd TimeOfDay) []Slot {
	var slots []Slot
	for start := windowStart; start.Add(a.SlotDuration) <= windowEnd; start = start.Add(a.SlotDuration) {
		slots = append(slots, Slot{
			ID:              uuid.New(),
			AvailabilityID:  a.ID,
			DoctorID:        a.DoctorID,
			Date:            DateOnly(date),
			StartTime:       start,
			EndTime:         start.Add(a.SlotDuration),
			BookedCount:     0,
			CapacityPerSlot: a.CapacityPerSlot,
		})
	}
	return slots
}
