package scheduling

import "errors"

// Not found.
var (
	ErrPatientNotFound      = errors.New("patient not found")
	ErrDoctorNotFound       = errors.New("doctor not found")
	ErrSlotNotFound         = errors.New("slot not found")
	ErrAvailabilityNotFound = errors.New("availability not found")
	ErrAppointmentNotFound  = errors.New("appointment not found")
)

// Validation.
var (
	ErrMissingBounds       = errors.New("at least one of new start time or new end time must be provided")
	ErrNotOutward          = errors.New("times must expand (start earlier or end later)")
	ErrNotInward           = errors.New("times must shrink (start later or end earlier)")
	ErrCapacityTooLow      = errors.New("total capacity must be at least 1")
	ErrShrinkBelowZero     = errors.New("shrink would reduce capacity to zero or below")
	ErrInvalidShiftRange   = errors.New("shift must be between 10 and 180 minutes")
	ErrNoAppointmentIDs    = errors.New("at least one appointment id must be provided")
	ErrInvalidSlotDuration = errors.New("slot duration must be 30 or 60 minutes")
	ErrInvalidSlotCapacity = errors.New("capacity per slot must be at least 1")
	ErrInvalidWindow       = errors.New("end time must be after start time")
	ErrEmptyRecurrence     = errors.New("recurrence days must not be empty")
	ErrInvalidDateRange    = errors.New("recurrence end date must not be before start date")
	ErrOutsideRecurrence   = errors.New("date is outside the availability recurrence range")
	ErrDayNotAvailable     = errors.New("doctor is not available on this weekday")
	ErrInvalidRole         = errors.New("role must be doctor or patient")
)

// Capacity.
var (
	ErrSlotFull   = errors.New("slot is full")
	ErrStreamFull = errors.New("stream is full")
)

// State conflicts.
var (
	ErrSlotDateMismatch      = errors.New("slot is not offered on the requested date")
	ErrStreamWindowExhausted = errors.New("no available time left in this stream window")
	ErrElasticSessionExists  = errors.New("elastic session already exists for this availability and date")
	ErrPastSessionDate       = errors.New("cannot resize past sessions")
	ErrAlreadyCancelled      = errors.New("appointment is already cancelled")
	ErrPastAppointment       = errors.New("cannot cancel past appointments")
	ErrResourceBusy          = errors.New("resource is currently being modified, please retry")
)

// Authorization.
var ErrNotOwner = errors.New("not authorized to act on this appointment")

// Discipline mismatches.
var (
	ErrNotWave   = errors.New("availability is not wave scheduled")
	ErrNotStream = errors.New("availability is not stream scheduled")
)
