package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

func ConnectPostgres(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}

	cfg.MaxConns = 10
	cfg.MinConns = 1
	cfg.HealthCheckPeriod = 30 * time.Second
	cfg.MaxConnLifetime = time.Hour
	cfg.MaxConnIdleTime = 15 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return pool, nil
}

// Migrate creates the citas schema. The partial unique index is the
// authoritative guard for the no-double-booking invariant: a cancelled cita
// leaves the slot bookable, a Pendiente/Activa one does not.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS citas (
			id_cita             BIGSERIAL PRIMARY KEY,
			fecha               TIMESTAMPTZ NOT NULL,
			motivo              TEXT        NOT NULL,
			estado              TEXT        NOT NULL,
			id_paciente         BIGINT      NOT NULL,
			id_doctor           BIGINT      NOT NULL,
			id_centro           BIGINT      NOT NULL,
			id_usuario_registra BIGINT      NOT NULL
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS citas_slot_activa_unique
			ON citas (id_doctor, id_centro, fecha)
			WHERE estado IN ('Pendiente', 'Activa')`,
		`CREATE INDEX IF NOT EXISTS citas_fecha_idx ON citas (fecha)`,
	}

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}

	return nil
}
