package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medisched/elastic-clinic-scheduling/internal/db"
	"github.com/medisched/elastic-clinic-scheduling/internal/scheduling"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	doctorIDs, err := seedDoctors(context.Background(), pool, 50)
	if err != nil {
		log.Fatalf("seed doctors: %v", err)
	}
	if err := seedPatients(context.Background(), pool, 5000); err != nil {
		log.Fatalf("seed patients: %v", err)
	}
	if err := seedAvailabilities(context.Background(), pool, doctorIDs); err != nil {
		log.Fatalf("seed availabilities: %v", err)
	}

	log.Println("seed complete")
}

func seedDoctors(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d doctors", count)

	specialties := []string{
		"Dermatology",
		"Cardiology",
		"General Practice",
		"Orthopedics",
		"Endocrinology",
		"Neurology",
		"Pediatrics",
		"Psychiatry",
		"Ophthalmology",
		"ENT",
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()
		name := gofakeit.Name()
		spec := specialties[gofakeit.Number(0, len(specialties)-1)]

		_, err := tx.Exec(ctx, `
			INSERT INTO doctors (id, user_id, name, specialty, created_at, updated_at)
			VALUES ($1, $2, $3, $4, now(), now())
		`, id, uuid.New(), name, spec)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	log.Println("doctors seeded")
	return ids, nil
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Printf("seeding %d patients", count)

	const batchSize = 500

	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		for i := offset; i < end; i++ {
			id := uuid.New()
			name := gofakeit.Name()
			email := gofakeit.Email()

			_, err := tx.Exec(ctx, `
				INSERT INTO patients (id, user_id, name, email, created_at, updated_at)
				VALUES ($1, $2, $3, $4, now(), now())
			`, id, uuid.New(), name, email)
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}

		log.Printf("patients seeded: %d/%d", end, count)
	}

	log.Println("patients seeded")
	return nil
}

// seedAvailabilities gives every doctor one availability for the next
// four weeks, alternating wave and stream, and materializes slots for
// the wave ones.
func seedAvailabilities(ctx context.Context, pool *pgxpool.Pool, doctorIDs []uuid.UUID) error {
	log.Printf("seeding availabilities for %d doctors", len(doctorIDs))

	repo := scheduling.NewPgRepository(pool)
	days, err := scheduling.ParseWeekdaySet("MON,TUE,WED,THU,FRI")
	if err != nil {
		return err
	}

	start := time.Now()
	end := start.AddDate(0, 0, 28)
	session := "morning"

	totalSlots := 0
	for i, doctorID := range doctorIDs {
		a := &scheduling.Availability{
			ID:              uuid.New(),
			DoctorID:        doctorID,
			Session:         &session,
			StartTime:       scheduling.TimeOfDay(9 * 60),
			EndTime:         scheduling.TimeOfDay(13 * 60),
			RecurrenceDays:  days,
			RecurrenceStart: scheduling.DateOnly(start),
			RecurrenceEnd:   scheduling.DateOnly(end),
			IsAvailable:     true,
		}
		if i%2 == 0 {
			a.Discipline = scheduling.DisciplineWave
			a.SlotDuration = 30
			a.CapacityPerSlot = gofakeit.Number(1, 3)
		} else {
			a.Discipline = scheduling.DisciplineStream
			a.TotalCapacity = gofakeit.Number(4, 8)
		}

		if err := repo.CreateAvailability(ctx, a); err != nil {
			return err
		}
		if a.Discipline == scheduling.DisciplineWave {
			slots := scheduling.GenerateSlots(a)
			if err := repo.CreateSlots(ctx, slots); err != nil {
				return err
			}
			totalSlots += len(slots)
		}
	}

	log.Printf("availabilities seeded, %d wave slots materialized", totalSlots)
	return nil
}
