package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/odontocare/citas-service/internal/auth"
	"github.com/odontocare/citas-service/internal/db"
)

// Booking-race simulator: many workers compete to create citas over a small
// pool of slots, which makes most requests collide. Afterwards the citas table
// is checked for double bookings, so a correctness regression in the conflict
// handling shows up as a non-zero count at the end.

type simConfig struct {
	apiBaseURL  string
	postgresDSN string
	jwtSecret   string
	duration    time.Duration
	workers     int
	doctors     int
	centros     int
	slotsPerDay int
	patients    int
}

type slot struct {
	doctorID int64
	centroID int64
	fecha    time.Time
}

type opMetrics struct {
	total     int64
	created   int64
	conflicts int64
	errors    int64

	mu        sync.Mutex
	latencies []time.Duration
}

func (m *opMetrics) record(latency time.Duration, status int) {
	atomic.AddInt64(&m.total, 1)
	switch {
	case status == http.StatusCreated:
		atomic.AddInt64(&m.created, 1)
	case status == http.StatusBadRequest || status == http.StatusConflict:
		atomic.AddInt64(&m.conflicts, 1)
	default:
		atomic.AddInt64(&m.errors, 1)
	}

	m.mu.Lock()
	m.latencies = append(m.latencies, latency)
	m.mu.Unlock()
}

func (m *opMetrics) stats() (avg, p50, p95, max time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.latencies) == 0 {
		return 0, 0, 0, 0
	}

	sorted := make([]time.Duration, len(m.latencies))
	copy(sorted, m.latencies)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var sum time.Duration
	for _, l := range sorted {
		sum += l
	}

	avg = sum / time.Duration(len(sorted))
	p50 = sorted[len(sorted)*50/100]
	p95 = sorted[min(len(sorted)*95/100, len(sorted)-1)]
	max = sorted[len(sorted)-1]
	return avg, p50, p95, max
}

func main() {
	cfg := simConfig{
		apiBaseURL:  envOr("API_BASE_URL", "http://127.0.0.1:8080"),
		postgresDSN: os.Getenv("POSTGRES_DSN"),
		jwtSecret:   os.Getenv("JWT_SECRET"),
	}
	flag.DurationVar(&cfg.duration, "duration", 30*time.Second, "simulation duration")
	flag.IntVar(&cfg.workers, "workers", 16, "concurrent booking workers")
	flag.IntVar(&cfg.doctors, "doctors", 3, "doctor id range")
	flag.IntVar(&cfg.centros, "centros", 2, "centro id range")
	flag.IntVar(&cfg.slotsPerDay, "slots", 8, "distinct slot times per doctor/centro")
	flag.IntVar(&cfg.patients, "patients", 50, "paciente id range")
	flag.Parse()

	if cfg.jwtSecret == "" {
		fmt.Fprintln(os.Stderr, "JWT_SECRET is required")
		os.Exit(1)
	}

	token, err := auth.SignToken([]byte(cfg.jwtSecret), 1, auth.RoleAdmin, cfg.duration+time.Minute)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sign token: %v\n", err)
		os.Exit(1)
	}

	slots := buildSlots(cfg)
	fmt.Printf("simulating %d workers over %d contested slots for %s\n",
		cfg.workers, len(slots), cfg.duration)

	metrics := &opMetrics{}
	client := &http.Client{Timeout: 10 * time.Second}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.duration)
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < cfg.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ctx.Err() == nil {
				s := slots[rand.Intn(len(slots))]
				bookSlot(ctx, client, cfg, token, s, metrics)
			}
		}()
	}
	wg.Wait()

	report(metrics)

	if cfg.postgresDSN != "" {
		verifyNoDoubleBooking(cfg.postgresDSN)
	}
}

func buildSlots(cfg simConfig) []slot {
	base := time.Now().UTC().Truncate(24 * time.Hour).AddDate(0, 0, 1).Add(9 * time.Hour)

	var slots []slot
	for d := 1; d <= cfg.doctors; d++ {
		for c := 1; c <= cfg.centros; c++ {
			for i := 0; i < cfg.slotsPerDay; i++ {
				slots = append(slots, slot{
					doctorID: int64(d),
					centroID: int64(c),
					fecha:    base.Add(time.Duration(i) * 30 * time.Minute),
				})
			}
		}
	}
	return slots
}

func bookSlot(ctx context.Context, client *http.Client, cfg simConfig, token string, s slot, metrics *opMetrics) {
	payload := map[string]any{
		"fecha":       s.fecha.Format(time.RFC3339),
		"motivo":      gofakeit.Sentence(4),
		"estado":      "Activa",
		"id_paciente": rand.Intn(cfg.patients) + 1,
		"id_doctor":   s.doctorID,
		"id_centro":   s.centroID,
	}
	body, _ := json.Marshal(payload)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.apiBaseURL+"/api/v1/citas", bytes.NewReader(body))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() == nil {
			metrics.record(time.Since(start), 0)
		}
		return
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()

	metrics.record(time.Since(start), resp.StatusCode)
}

func report(m *opMetrics) {
	avg, p50, p95, max := m.stats()
	fmt.Printf("\nrequests:   %d\n", atomic.LoadInt64(&m.total))
	fmt.Printf("created:    %d\n", atomic.LoadInt64(&m.created))
	fmt.Printf("conflicts:  %d\n", atomic.LoadInt64(&m.conflicts))
	fmt.Printf("errors:     %d\n", atomic.LoadInt64(&m.errors))
	fmt.Printf("latency:    avg=%s p50=%s p95=%s max=%s\n", avg, p50, p95, max)
}

func verifyNoDoubleBooking(dsn string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "verify: connect postgres: %v\n", err)
		return
	}
	defer pool.Close()

	var violations int
	err = pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM (
			SELECT id_doctor, id_centro, fecha
			FROM citas
			WHERE estado IN ('Pendiente', 'Activa')
			GROUP BY id_doctor, id_centro, fecha
			HAVING COUNT(*) > 1
		) doubled
	`).Scan(&violations)
	if err != nil {
		fmt.Fprintf(os.Stderr, "verify: query: %v\n", err)
		return
	}

	if violations == 0 {
		fmt.Println("invariant OK: no doubly booked slots")
	} else {
		fmt.Printf("INVARIANT VIOLATED: %d doubly booked slots\n", violations)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
