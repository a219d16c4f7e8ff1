package scheduling

import (
	"time"

	"github.com/google/uuid"
)

type Discipline string

const (
	DisciplineWave   Discipline = "wave"
	DisciplineStream Discipline = "stream"
)

type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCancelled AppointmentStatus = "cancelled"
	StatusCompleted AppointmentStatus = "completed"
)

type ActorRole string

const (
	RoleDoctor  ActorRole = "doctor"
	RolePatient ActorRole = "patient"
)

type ElasticAction string

const (
	ActionExpand ElasticAction = "expand"
	ActionShrink ElasticAction = "shrink"
)

// StreamUnitMinutes is the fixed consultation length assigned by stream
// scheduling's sequential packing.
const StreamUnitMinutes = 30

// RelocationSearchDays is how many calendar days ahead the relocation
// cascade searches after same-day tiers are exhausted.
const RelocationSearchDays = 7

type Doctor struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Name      string
	Specialty *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Patient struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Name      string
	Email     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Availability is a doctor's recurring bookable window under one
// scheduling discipline. Wave windows are partitioned into fixed slots
// with per-slot capacity; stream windows hold one capacity pool per day
// and assign exact times by sequential packing.
type Availability struct {
	ID              uuid.UUID
	DoctorID        uuid.UUID
	Discipline      Discipline
	Session         *string // morning, afternoon, evening
	StartTime       TimeOfDay
	EndTime         TimeOfDay
	SlotDuration    int // minutes, wave only
	CapacityPerSlot int // wave only
	TotalCapacity   int // stream only
	BookedCount     int
	RecurrenceDays  WeekdaySet
	RecurrenceStart time.Time
	RecurrenceEnd   time.Time
	IsAvailable     bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (a *Availability) DurationMinutes() int {
	return int(a.EndTime - a.StartTime)
}

// CoversDate reports whether the availability recurs on the given date.
func (a *Availability) CoversDate(date time.Time) bool {
	d := DateOnly(date)
	if d.Before(DateOnly(a.RecurrenceStart)) || d.After(DateOnly(a.RecurrenceEnd)) {
		return false
	}
	return a.RecurrenceDays.Contains(d.Weekday())
}

// Slot is one materialized wave interval. CapacityPerSlot is denormalized
// from the parent availability by repository queries and never persisted
// on the slot row.
type Slot struct {
	ID              uuid.UUID
	AvailabilityID  uuid.UUID
	DoctorID        uuid.UUID
	Date            time.Time
	StartTime       TimeOfDay
	EndTime         TimeOfDay
	BookedCount     int
	CapacityPerSlot int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (s *Slot) DurationMinutes() int {
	return int(s.EndTime - s.StartTime)
}

func (s *Slot) HasCapacity() bool {
	return s.BookedCount < s.CapacityPerSlot
}

type Appointment struct {
	ID               uuid.UUID
	PatientID        uuid.UUID
	DoctorID         uuid.UUID
	AvailabilityID   uuid.UUID
	Date             time.Time
	StartTime        TimeOfDay
	EndTime          TimeOfDay
	Status           AppointmentStatus
	CancelledBy      *ActorRole
	CancellationDate *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (a *Appointment) DurationMinutes() int {
	return int(a.EndTime - a.StartTime)
}

// ElasticSession is the append-only audit record of a one-shot-per-day
// expand or shrink of a published availability window.
type ElasticSession struct {
	ID               uuid.UUID
	AvailabilityID   uuid.UUID
	SessionDate      time.Time
	NewStartTime     TimeOfDay
	NewEndTime       TimeOfDay
	NewTotalCapacity *int
	Action           ElasticAction
	CreatedAt        time.Time
}

// intervalsOverlap reports whether [aStart,aEnd) and [bStart,bEnd) intersect.
func intervalsOverlap(aStart, aEnd, bStart, bEnd TimeOfDay) bool {
	return aStart < bEnd && bStart < aEnd
}
