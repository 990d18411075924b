package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/rs/zerolog"

	"github.com/odontocare/citas-service/internal/cita"
	"github.com/odontocare/citas-service/internal/db"
)

// Seeds the citas table with plausible bookings for local development. The
// directory entities (doctors, centros, pacientes) live in user-admin, so only
// their id ranges are assumed here.
func main() {
	var (
		count    = flag.Int("count", 500, "citas to create")
		doctors  = flag.Int("doctors", 20, "doctor id range [1, n]")
		centros  = flag.Int("centros", 5, "centro id range [1, n]")
		patients = flag.Int("patients", 200, "paciente id range [1, n]")
		days     = flag.Int("days", 14, "schedule within the next n days")
	)
	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	logger.Info().Msg("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		logger.Fatal().Msg("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect postgres")
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		logger.Fatal().Err(err).Msg("migrate")
	}

	store := cita.NewPgStore(pool)
	estados := []cita.Estado{cita.EstadoPendiente, cita.EstadoActiva, cita.EstadoCancelada}

	created, conflicts := 0, 0
	for created+conflicts < *count {
		// Slots are aligned to half hours during office time.
		day := gofakeit.Number(0, *days-1)
		hour := gofakeit.Number(8, 19)
		halves := gofakeit.Number(0, 1)
		fecha := time.Now().UTC().Truncate(24 * time.Hour).
			AddDate(0, 0, day).
			Add(time.Duration(hour)*time.Hour + time.Duration(halves*30)*time.Minute)

		_, err := store.Insert(context.Background(), cita.Cita{
			Fecha:         fecha,
			Motivo:        gofakeit.Sentence(6),
			Estado:        estados[gofakeit.Number(0, len(estados)-1)],
			PacienteID:    int64(gofakeit.Number(1, *patients)),
			DoctorID:      int64(gofakeit.Number(1, *doctors)),
			CentroID:      int64(gofakeit.Number(1, *centros)),
			RegistradaPor: 1,
		})
		switch {
		case err == nil:
			created++
		case errors.Is(err, cita.ErrSlotTaken):
			conflicts++
		default:
			logger.Fatal().Err(err).Msg("insert cita")
		}
	}

	logger.Info().Int("created", created).Int("slot_conflicts", conflicts).Msg("seed complete")
}
