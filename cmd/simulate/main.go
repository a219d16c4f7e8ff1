package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/medisched/elastic-clinic-scheduling/internal/db"
)

type SimConfig struct {
	APIBaseURL  string
	Duration    time.Duration
	Workers     int
	WaveRatio   float64
	StreamRatio float64
	ReadRatio   float64
	PatientLim  int
	SlotLimit   int
	PostgresDSN string
}

type waveTarget struct {
	SlotID uuid.UUID
	Date   time.Time
}

type streamTarget struct {
	DoctorID uuid.UUID
	Date     time.Time
}

type DataPool struct {
	Patients []uuid.UUID
	Waves    []waveTarget
	Streams  []streamTarget

	mu           sync.RWMutex
	appointments []uuid.UUID
}

func (dp *DataPool) AddAppointment(id uuid.UUID) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.appointments = append(dp.appointments, id)
}

func (dp *DataPool) GetRandomAppointment() (uuid.UUID, bool) {
	dp.mu.RLock()
	defer dp.mu.RUnlock()
	if len(dp.appointments) == 0 {
		return uuid.Nil, false
	}
	return dp.appointments[rand.Intn(len(dp.appointments))], true
}

type OperationMetrics struct {
	Total     int64
	Success   int64
	Conflict  int64
	Error     int64
	Latencies []time.Duration
	mu        sync.Mutex
}

func (om *OperationMetrics) Record(latency time.Duration, success, conflict bool) {
	atomic.AddInt64(&om.Total, 1)
	if success {
		atomic.AddInt64(&om.Success, 1)
	} else if conflict {
		atomic.AddInt64(&om.Conflict, 1)
	} else {
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.Latencies = append(om.Latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, min, max, p50, p95 time.Duration) {
	om.mu.Lock()
	defer om.mu.Unlock()

	if len(om.Latencies) == 0 {
		return 0, 0, 0, 0, 0
	}

	latencies := make([]time.Duration, len(om.Latencies))
	copy(latencies, om.Latencies)
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}

	avg = sum / time.Duration(len(latencies))
	min = latencies[0]
	max = latencies[len(latencies)-1]

	p50Idx := len(latencies) * 50 / 100
	if p50Idx >= len(latencies) {
		p50Idx = len(latencies) - 1
	}
	p50 = latencies[p50Idx]

	p95Idx := len(latencies) * 95 / 100
	if p95Idx >= len(latencies) {
		p95Idx = len(latencies) - 1
	}
	p95 = latencies[p95Idx]

	return avg, min, max, p50, p95
}

type Metrics struct {
	WaveBooking   OperationMetrics
	StreamBooking OperationMetrics
	ReadByID      OperationMetrics
}

type Simulator struct {
	config  SimConfig
	pool    *DataPool
	client  *http.Client
	metrics Metrics
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("simulator starting")

	cfg := loadSimConfig()
	if err := validateSimConfig(cfg); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	log.Printf("config: duration=%s workers=%d wave=%.2f stream=%.2f read=%.2f",
		cfg.Duration, cfg.Workers, cfg.WaveRatio, cfg.StreamRatio, cfg.ReadRatio)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pgPool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pgPool.Close()

	dataPool, err := loadDataPool(ctx, pgPool, cfg)
	if err != nil {
		log.Fatalf("load data pool: %v", err)
	}

	log.Printf("loaded: %d patients, %d wave slots, %d stream targets",
		len(dataPool.Patients), len(dataPool.Waves), len(dataPool.Streams))

	sim := &Simulator{
		config: cfg,
		pool:   dataPool,
		client: &http.Client{Timeout: 10 * time.Second},
	}

	sim.Run()
	sim.PrintReport()
}

func loadSimConfig() SimConfig {
	_ = godotenv.Load()

	cfg := SimConfig{
		APIBaseURL:  getEnv("SIM_API_BASE_URL", "http://localhost:8080"),
		Duration:    getDuration("SIM_DURATION", 30*time.Second),
		Workers:     getInt("SIM_WORKERS", 10),
		WaveRatio:   getFloat("SIM_WAVE_RATIO", 0.4),
		StreamRatio: getFloat("SIM_STREAM_RATIO", 0.3),
		ReadRatio:   getFloat("SIM_READ_RATIO", 0.3),
		PatientLim:  getInt("SIM_PATIENT_LIMIT", 4000),
		SlotLimit:   getInt("SIM_SLOT_LIMIT", 2400),
		PostgresDSN: os.Getenv("POSTGRES_DSN"),
	}

	total := cfg.WaveRatio + cfg.StreamRatio + cfg.ReadRatio
	if total > 0 {
		cfg.WaveRatio /= total
		cfg.StreamRatio /= total
		cfg.ReadRatio /= total
	}

	return cfg
}

func validateSimConfig(cfg SimConfig) error {
	if cfg.PostgresDSN == "" {
		return fmt.Errorf("POSTGRES_DSN is required (set in .env or environment)")
	}
	if cfg.Workers <= 0 {
		return fmt.Errorf("SIM_WORKERS must be > 0")
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("SIM_DURATION must be > 0")
	}
	return nil
}

func loadDataPool(ctx context.Context, pool *pgxpool.Pool, cfg SimConfig) (*DataPool, error) {
	dataPool := &DataPool{}

	rows, err := pool.Query(ctx, `SELECT id FROM patients LIMIT $1`, cfg.PatientLim)
	if err != nil {
		return nil, fmt.Errorf("load patients: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		dataPool.Patients = append(dataPool.Patients, id)
	}

	rows, err = pool.Query(ctx, `
		SELECT s.id, s.slot_date
		FROM slots s
		JOIN availabilities a ON a.id = s.availability_id
		WHERE s.slot_date >= current_date AND s.booked_count < a.capacity_per_slot
		LIMIT $1
	`, cfg.SlotLimit)
	if err != nil {
		return nil, fmt.Errorf("load wave slots: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var t waveTarget
		if err := rows.Scan(&t.SlotID, &t.Date); err != nil {
			return nil, err
		}
		dataPool.Waves = append(dataPool.Waves, t)
	}

	rows, err = pool.Query(ctx, `
		SELECT doctor_id, recurrence_start
		FROM availabilities
		WHERE discipline = 'stream' AND is_available AND recurrence_end >= current_date
		LIMIT $1
	`, cfg.SlotLimit)
	if err != nil {
		return nil, fmt.Errorf("load stream targets: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var t streamTarget
		if err := rows.Scan(&t.DoctorID, &t.Date); err != nil {
			return nil, err
		}
		dataPool.Streams = append(dataPool.Streams, t)
	}

	if len(dataPool.Patients) == 0 {
		return nil, fmt.Errorf("no patients loaded")
	}
	if len(dataPool.Waves) == 0 && len(dataPool.Streams) == 0 {
		return nil, fmt.Errorf("no bookable targets loaded")
	}

	return dataPool, nil
}

func (s *Simulator) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Duration)
	defer cancel()

	log.Printf("starting simulation for %s with %d workers", s.config.Duration, s.config.Workers)

	var wg sync.WaitGroup
	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			s.worker(ctx, workerID)
		}(i)
	}

	wg.Wait()
	log.Println("simulation complete")
}

func (s *Simulator) worker(ctx context.Context, workerID int) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))

	for {
		select {
		case <-ctx.Done():
			return
		default:
			r := rng.Float64()
			switch {
			case r < s.config.WaveRatio:
				s.doWaveBooking(ctx, rng)
			case r < s.config.WaveRatio+s.config.StreamRatio:
				s.doStreamBooking(ctx, rng)
			default:
				s.doReadByID(ctx, rng)
			}
		}
	}
}

func (s *Simulator) postBooking(ctx context.Context, path string, body map[string]string, om *OperationMetrics) {
	payload, _ := json.Marshal(body)

	start := time.Now()
	req, _ := http.NewRequestWithContext(ctx, "POST", s.config.APIBaseURL+path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	latency := time.Since(start)

	success := false
	conflict := false
	if err == nil {
		defer resp.Body.Close()
		if resp.StatusCode == http.StatusCreated {
			success = true
			var apptResp struct {
				ID uuid.UUID `json:"id"`
			}
			bodyBytes, _ := io.ReadAll(resp.Body)
			if len(bodyBytes) > 0 {
				_ = json.Unmarshal(bodyBytes, &apptResp)
				if apptResp.ID != uuid.Nil {
					s.pool.AddAppointment(apptResp.ID)
				}
			}
		} else if resp.StatusCode == http.StatusConflict {
			conflict = true
		}
	}

	om.Record(latency, success, conflict)
}

func (s *Simulator) doWaveBooking(ctx context.Context, rng *rand.Rand) {
	if len(s.pool.Waves) == 0 || len(s.pool.Patients) == 0 {
		return
	}

	target := s.pool.Waves[rng.Intn(len(s.pool.Waves))]
	patientID := s.pool.Patients[rng.Intn(len(s.pool.Patients))]

	s.postBooking(ctx, "/appointments/wave", map[string]string{
		"patient_id": patientID.String(),
		"slot_id":    target.SlotID.String(),
		"date":       target.Date.Format("2006-01-02"),
	}, &s.metrics.WaveBooking)
}

func (s *Simulator) doStreamBooking(ctx context.Context, rng *rand.Rand) {
	if len(s.pool.Streams) == 0 || len(s.pool.Patients) == 0 {
		return
	}

	target := s.pool.Streams[rng.Intn(len(s.pool.Streams))]
	patientID := s.pool.Patients[rng.Intn(len(s.pool.Patients))]

	// Aim a few days ahead so the date lands inside the recurrence.
	date := time.Now().AddDate(0, 0, rng.Intn(5)+1)

	s.postBooking(ctx, "/appointments/stream", map[string]string{
		"patient_id": patientID.String(),
		"doctor_id":  target.DoctorID.String(),
		"date":       date.Format("2006-01-02"),
	}, &s.metrics.StreamBooking)
}

func (s *Simulator) doReadByID(ctx context.Context, rng *rand.Rand) {
	apptID, ok := s.pool.GetRandomAppointment()
	if !ok {
		return
	}

	start := time.Now()
	req, _ := http.NewRequestWithContext(ctx, "GET",
		fmt.Sprintf("%s/appointments/%s", s.config.APIBaseURL, apptID.String()), nil)

	resp, err := s.client.Do(req)
	latency := time.Since(start)

	success := false
	if err == nil {
		defer resp.Body.Close()
		success = resp.StatusCode == http.StatusOK
	}

	s.metrics.ReadByID.Record(latency, success, false)
}

func (s *Simulator) PrintReport() {
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("SIMULATION REPORT")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Duration: %s\n", s.config.Duration)
	fmt.Printf("Workers: %d\n", s.config.Workers)
	fmt.Println()

	printOperationReport("Wave Booking", &s.metrics.WaveBooking)
	printOperationReport("Stream Booking", &s.metrics.StreamBooking)
	printOperationReport("Read by ID", &s.metrics.ReadByID)
}

func printOperationReport(name string, om *OperationMetrics) {
	total := atomic.LoadInt64(&om.Total)
	if total == 0 {
		return
	}

	success := atomic.LoadInt64(&om.Success)
	conflict := atomic.LoadInt64(&om.Conflict)
	errCount := atomic.LoadInt64(&om.Error)

	avg, min, max, p50, p95 := om.Stats()

	fmt.Printf("%s:\n", name)
	fmt.Printf("  Total: %d\n", total)
	fmt.Printf("  Success: %d (%.1f%%)\n", success, float64(success)/float64(total)*100)
	if conflict > 0 {
		fmt.Printf("  Conflicts: %d (%.1f%%)\n", conflict, float64(conflict)/float64(total)*100)
	}
	if errCount > 0 {
		fmt.Printf("  Errors: %d (%.1f%%)\n", errCount, float64(errCount)/float64(total)*100)
	}
	fmt.Printf("  Latency: avg=%s min=%s max=%s p50=%s p95=%s\n",
		avg.Round(time.Millisecond), min.Round(time.Millisecond), max.Round(time.Millisecond),
		p50.Round(time.Millisecond), p95.Round(time.Millisecond))
	fmt.Println()
}

// Helper functions

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
