package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PgRepository struct {
	pool *pgxpool.Pool
	db   querier
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool, db: pool}
}

func (r *PgRepository) WithTx(ctx context.Context, fn func(Repository) error) error {
	if r.pool == nil {
		// Already inside a transaction, reuse it.
		return fn(r)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&PgRepository{db: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Helpers

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	var email *string

	err := row.Scan(&p.ID, &p.UserID, &p.Name, &email, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}

	p.Email = email
	return &p, nil
}

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	var specialty *string

	err := row.Scan(&d.ID, &d.UserID, &d.Name, &specialty, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDoctorNotFound
		}
		return nil, err
	}

	d.Specialty = specialty
	return &d, nil
}

func scanAvailability(row pgx.Row) (*Availability, error) {
	var a Availability
	var start, end, slotDuration int
	var days string

	err := row.Scan(
		&a.ID,
		&a.DoctorID,
		&a.Discipline,
		&a.Session,
		&start,
		&end,
		&slotDuration,
		&a.CapacityPerSlot,
		&a.TotalCapacity,
		&a.BookedCount,
		&days,
		&a.RecurrenceStart,
		&a.RecurrenceEnd,
		&a.IsAvailable,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAvailabilityNotFound
		}
		return nil, err
	}

	a.StartTime = TimeOfDay(start)
	a.EndTime = TimeOfDay(end)
	a.SlotDuration = slotDuration

	parsed, err := ParseWeekdaySet(days)
	if err != nil {
		return nil, fmt.Errorf("parse recurrence days: %w", err)
	}
	a.RecurrenceDays = parsed

	return &a, nil
}

func scanSlot(row pgx.Row) (*Slot, error) {
	var s Slot
	var start, end int

	err := row.Scan(
		&s.ID,
		&s.AvailabilityID,
		&s.DoctorID,
		&s.Date,
		&start,
		&end,
		&s.BookedCount,
		&s.CapacityPerSlot,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}

	s.StartTime = TimeOfDay(start)
	s.EndTime = TimeOfDay(end)
	return &s, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var start, end int
	var cancelledBy *string
	var cancellationDate *time.Time

	err := row.Scan(
		&a.ID,
		&a.PatientID,
		&a.DoctorID,
		&a.AvailabilityID,
		&a.Date,
		&start,
		&end,
		&a.Status,
		&cancelledBy,
		&cancellationDate,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	a.StartTime = TimeOfDay(start)
	a.EndTime = TimeOfDay(end)
	if cancelledBy != nil {
		role := ActorRole(*cancelledBy)
		a.CancelledBy = &role
	}
	a.CancellationDate = cancellationDate
	return &a, nil
}

const slotColumns = `
	s.id, s.availability_id, s.doctor_id, s.slot_date, s.start_minute, s.end_minute,
	s.booked_count, a.capacity_per_slot, s.created_at, s.updated_at`

const appointmentColumns = `
	id, patient_id, doctor_id, availability_id, appointment_date, start_minute, end_minute,
	status, cancelled_by, cancellation_date, created_at, updated_at`

const availabilityColumns = `
	id, doctor_id, discipline, session, start_minute, end_minute, slot_duration,
	capacity_per_slot, total_capacity, booked_count, recurrence_days,
	recurrence_start, recurrence_end, is_available, created_at, updated_at`

// Interface methods

func (r *PgRepository) GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, user_id, name, email, created_at, updated_at
		FROM patients
		WHERE id = $1
	`, id)
	return scanPatient(row)
}

func (r *PgRepository) GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, user_id, name, specialty, created_at, updated_at
		FROM doctors
		WHERE id = $1
	`, id)
	return scanDoctor(row)
}

func (r *PgRepository) CreateAvailability(ctx context.Context, a *Availability) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO availabilities (
			id, doctor_id, discipline, session, start_minute, end_minute, slot_duration,
			capacity_per_slot, total_capacity, booked_count, recurrence_days,
			recurrence_start, recurrence_end, is_available, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, now(), now())
	`, a.ID, a.DoctorID, a.Discipline, a.Session, int(a.StartTime), int(a.EndTime),
		a.SlotDuration, a.CapacityPerSlot, a.TotalCapacity, a.BookedCount,
		a.RecurrenceDays.String(), a.RecurrenceStart, a.RecurrenceEnd, a.IsAvailable)
	if err != nil {
		return fmt.Errorf("insert availability: %w", err)
	}
	return nil
}

func (r *PgRepository) GetAvailabilityByID(ctx context.Context, id uuid.UUID) (*Availability, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+availabilityColumns+`
		FROM availabilities
		WHERE id = $1
	`, id)
	return scanAvailability(row)
}

func (r *PgRepository) GetStreamAvailabilityByDoctor(ctx context.Context, doctorID uuid.UUID) (*Availability, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+availabilityColumns+`
		FROM availabilities
		WHERE doctor_id = $1 AND discipline = 'stream' AND is_available
		ORDER BY start_minute
		LIMIT 1
	`, doctorID)
	return scanAvailability(row)
}

func (r *PgRepository) ListAvailabilitiesByDoctor(ctx context.Context, doctorID uuid.UUID, discipline Discipline) ([]Availability, error) {
	query := `
		SELECT ` + availabilityColumns + `
		FROM availabilities
		WHERE doctor_id = $1 AND is_available`
	args := []any{doctorID}
	if discipline != "" {
		query += ` AND discipline = $2`
		args = append(args, discipline)
	}
	query += ` ORDER BY start_minute`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Availability
	for rows.Next() {
		a, err := scanAvailability(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	return result, rows.Err()
}

func (r *PgRepository) SaveAvailability(ctx context.Context, a *Availability) error {
	_, err := r.db.Exec(ctx, `
		UPDATE availabilities
		SET start_minute = $2,
		    end_minute = $3,
		    total_capacity = $4,
		    is_available = $5,
		    updated_at = now()
		WHERE id = $1
	`, a.ID, int(a.StartTime), int(a.EndTime), a.TotalCapacity, a.IsAvailable)
	if err != nil {
		return fmt.Errorf("save availability: %w", err)
	}
	return nil
}

func (r *PgRepository) AdjustAvailabilityBooked(ctx context.Context, availabilityID uuid.UUID, delta int) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE availabilities
		SET booked_count = GREATEST(booked_count + $2, 0),
		    updated_at = now()
		WHERE id = $1 AND ($2 <= 0 OR booked_count < total_capacity)
	`, availabilityID, delta)
	if err != nil {
		return fmt.Errorf("adjust availability count: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if delta > 0 {
			return ErrStreamFull
		}
		return ErrAvailabilityNotFound
	}
	return nil
}

func (r *PgRepository) CreateSlots(ctx context.Context, slots []Slot) error {
	for i := range slots {
		s := &slots[i]
		_, err := r.db.Exec(ctx, `
			INSERT INTO slots (id, availability_id, doctor_id, slot_date, start_minute, end_minute, booked_count, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
		`, s.ID, s.AvailabilityID, s.DoctorID, s.Date, int(s.StartTime), int(s.EndTime), s.BookedCount)
		if err != nil {
			return fmt.Errorf("insert slot: %w", err)
		}
	}
	return nil
}

func (r *PgRepository) GetSlotByID(ctx context.Context, id uuid.UUID) (*Slot, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+slotColumns+`
		FROM slots s
		JOIN availabilities a ON a.id = s.availability_id
		WHERE s.id = $1
	`, id)
	return scanSlot(row)
}

func (r *PgRepository) GetSlotByStart(ctx context.Context, availabilityID uuid.UUID, date time.Time, start TimeOfDay) (*Slot, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+slotColumns+`
		FROM slots s
		JOIN availabilities a ON a.id = s.availability_id
		WHERE s.availability_id = $1 AND s.slot_date = $2 AND s.start_minute = $3
	`, availabilityID, DateOnly(date), int(start))
	return scanSlot(row)
}

func (r *PgRepository) ListSlotsByAvailabilityAndDate(ctx context.Context, availabilityID uuid.UUID, date time.Time) ([]Slot, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+slotColumns+`
		FROM slots s
		JOIN availabilities a ON a.id = s.availability_id
		WHERE s.availability_id = $1 AND s.slot_date = $2
		ORDER BY s.start_minute
	`, availabilityID, DateOnly(date))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSlots(rows)
}

func (r *PgRepository) ListSlotsByDoctorAndDate(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]Slot, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+slotColumns+`
		FROM slots s
		JOIN availabilities a ON a.id = s.availability_id
		WHERE s.doctor_id = $1 AND s.slot_date = $2
		ORDER BY s.start_minute
	`, doctorID, DateOnly(date))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSlots(rows)
}

func collectSlots(rows pgx.Rows) ([]Slot, error) {
	var result []Slot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}
	return result, rows.Err()
}

func (r *PgRepository) AdjustSlotBooked(ctx context.Context, slotID uuid.UUID, delta int) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE slots s
		SET booked_count = GREATEST(s.booked_count + $2, 0),
		    updated_at = now()
		FROM availabilities a
		WHERE s.id = $1 AND a.id = s.availability_id
		  AND ($2 <= 0 OR s.booked_count < a.capacity_per_slot)
	`, slotID, delta)
	if err != nil {
		return fmt.Errorf("adjust slot count: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if delta > 0 {
			return ErrSlotFull
		}
		return ErrSlotNotFound
	}
	return nil
}

func (r *PgRepository) DeleteSlots(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.db.Exec(ctx, `DELETE FROM slots WHERE id = ANY($1)`, ids)
	if err != nil {
		return fmt.Errorf("delete slots: %w", err)
	}
	return nil
}

func (r *PgRepository) CreateAppointment(ctx context.Context, a *Appointment) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO appointments (
			id, patient_id, doctor_id, availability_id, appointment_date,
			start_minute, end_minute, status, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
	`, a.ID, a.PatientID, a.DoctorID, a.AvailabilityID, a.Date,
		int(a.StartTime), int(a.EndTime), a.Status)
	if err != nil {
		return fmt.Errorf("insert appointment: %w", err)
	}
	return nil
}

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) ListAppointmentsByDoctorAndDate(ctx context.Context, doctorID uuid.UUID, date time.Time, status AppointmentStatus) ([]Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE doctor_id = $1 AND appointment_date = $2`
	args := []any{doctorID, DateOnly(date)}
	if status != "" {
		query += ` AND status = $3`
		args = append(args, status)
	}
	query += ` ORDER BY start_minute`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	return result, rows.Err()
}

func (r *PgRepository) SaveAppointment(ctx context.Context, a *Appointment) error {
	var cancelledBy *string
	if a.CancelledBy != nil {
		s := string(*a.CancelledBy)
		cancelledBy = &s
	}

	_, err := r.db.Exec(ctx, `
		UPDATE appointments
		SET availability_id = $2,
		    appointment_date = $3,
		    start_minute = $4,
		    end_minute = $5,
		    status = $6,
		    cancelled_by = $7,
		    cancellation_date = $8,
		    updated_at = now()
		WHERE id = $1
	`, a.ID, a.AvailabilityID, a.Date, int(a.StartTime), int(a.EndTime),
		a.Status, cancelledBy, a.CancellationDate)
	if err != nil {
		return fmt.Errorf("save appointment: %w", err)
	}
	return nil
}

func (r *PgRepository) GetElasticSession(ctx context.Context, availabilityID uuid.UUID, date time.Time) (*ElasticSession, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, availability_id, session_date, new_start_minute, new_end_minute,
		       new_total_capacity, action, created_at
		FROM elastic_sessions
		WHERE availability_id = $1 AND session_date = $2
	`, availabilityID, DateOnly(date))

	var es ElasticSession
	var start, end int
	err := row.Scan(&es.ID, &es.AvailabilityID, &es.SessionDate, &start, &end,
		&es.NewTotalCapacity, &es.Action, &es.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	es.NewStartTime = TimeOfDay(start)
	es.NewEndTime = TimeOfDay(end)
	return &es, nil
}

func (r *PgRepository) CreateElasticSession(ctx context.Context, es *ElasticSession) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO elastic_sessions (
			id, availability_id, session_date, new_start_minute, new_end_minute,
			new_total_capacity, action, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
	`, es.ID, es.AvailabilityID, DateOnly(es.SessionDate), int(es.NewStartTime),
		int(es.NewEndTime), es.NewTotalCapacity, es.Action)
	if err != nil {
		return fmt.Errorf("insert elastic session: %w", err)
	}
	return nil
}
