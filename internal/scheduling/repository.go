package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository contains all DB interactions needed by the service.
// List methods return rows ordered by date then start time so that
// sequential packing and the relocation cascade are deterministic.
type Repository interface {
	GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error)

	CreateAvailability(ctx context.Context, a *Availability) error
	GetAvailabilityByID(ctx context.Context, id uuid.UUID) (*Availability, error)
	GetStreamAvailabilityByDoctor(ctx context.Context, doctorID uuid.UUID) (*Availability, error)
	ListAvailabilitiesByDoctor(ctx context.Context, doctorID uuid.UUID, discipline Discipline) ([]Availability, error)
	// SaveAvailability persists window, capacity, and availability flag
	// changes. booked_count moves only through AdjustAvailabilityBooked.
	SaveAvailability(ctx context.Context, a *Availability) error
	// AdjustAvailabilityBooked changes the pool's booked_count by delta
	// as a single relative write. Positive deltas fail with ErrStreamFull
	// at capacity; negative deltas floor at zero.
	AdjustAvailabilityBooked(ctx context.Context, availabilityID uuid.UUID, delta int) error

	CreateSlots(ctx context.Context, slots []Slot) error
	GetSlotByID(ctx context.Context, id uuid.UUID) (*Slot, error)
	// GetSlotByStart locates the exact slot backing an appointment.
	GetSlotByStart(ctx context.Context, availabilityID uuid.UUID, date time.Time, start TimeOfDay) (*Slot, error)
	ListSlotsByAvailabilityAndDate(ctx context.Context, availabilityID uuid.UUID, date time.Time) ([]Slot, error)
	ListSlotsByDoctorAndDate(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]Slot, error)
	// AdjustSlotBooked changes a slot's booked_count by delta as a single
	// relative write. Positive deltas fail with ErrSlotFull at capacity;
	// negative deltas floor at zero.
	AdjustSlotBooked(ctx context.Context, slotID uuid.UUID, delta int) error
	DeleteSlots(ctx context.Context, ids []uuid.UUID) error

	CreateAppointment(ctx context.Context, a *Appointment) error
	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	// ListAppointmentsByDoctorAndDate filters by status when status is non-empty.
	ListAppointmentsByDoctorAndDate(ctx context.Context, doctorID uuid.UUID, date time.Time, status AppointmentStatus) ([]Appointment, error)
	SaveAppointment(ctx context.Context, a *Appointment) error

	// GetElasticSession returns (nil, nil) when no session exists for the pair.
	GetElasticSession(ctx context.Context, availabilityID uuid.UUID, date time.Time) (*ElasticSession, error)
	CreateElasticSession(ctx context.Context, es *ElasticSession) error

	// WithTx runs fn against a transactional view of the repository. The
	// shrink cascade uses it so a mid-cascade failure rolls back every
	// relocation and counter change together.
	WithTx(ctx context.Context, fn func(Repository) error) error
}
