package cita

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgStore persists citas in Postgres. The no-double-booking invariant is
// enforced by a partial unique index on (id_doctor, id_centro, fecha) over
// Pendiente/Activa rows, so Insert is race-free even without a lock.
type PgStore struct {
	pool *pgxpool.Pool
}

func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

const citaColumns = "id_cita, fecha, motivo, estado, id_paciente, id_doctor, id_centro, id_usuario_registra"

func scanCita(row pgx.Row) (*Cita, error) {
	var c Cita

	err := row.Scan(
		&c.ID,
		&c.Fecha,
		&c.Motivo,
		&c.Estado,
		&c.PacienteID,
		&c.DoctorID,
		&c.CentroID,
		&c.RegistradaPor,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCitaNotFound
		}
		return nil, err
	}

	c.Fecha = c.Fecha.UTC()
	return &c, nil
}

func (s *PgStore) Insert(ctx context.Context, c Cita) (*Cita, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO citas (fecha, motivo, estado, id_paciente, id_doctor, id_centro, id_usuario_registra)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+citaColumns+`
	`, c.Fecha.UTC(), c.Motivo, c.Estado, c.PacienteID, c.DoctorID, c.CentroID, c.RegistradaPor)

	created, err := scanCita(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrSlotTaken
		}
		return nil, fmt.Errorf("insert cita: %w", err)
	}

	return created, nil
}

func (s *PgStore) FindByID(ctx context.Context, id int64) (*Cita, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+citaColumns+`
		FROM citas
		WHERE id_cita = $1
	`, id)
	return scanCita(row)
}

func (s *PgStore) FindMatching(ctx context.Context, f Filter) ([]Cita, error) {
	var (
		where []string
		args  []any
	)

	add := func(cond string, val any) {
		args = append(args, val)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}

	if f.PacienteID != nil {
		add("id_paciente = $%d", *f.PacienteID)
	}
	if f.DoctorID != nil {
		add("id_doctor = $%d", *f.DoctorID)
	}
	if f.CentroID != nil {
		add("id_centro = $%d", *f.CentroID)
	}
	if f.Estado != nil {
		add("estado = $%d", *f.Estado)
	}
	if f.From != nil {
		add("fecha >= $%d", f.From.UTC())
	}
	if f.To != nil {
		add("fecha < $%d", f.To.UTC())
	}

	query := "SELECT " + citaColumns + " FROM citas"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY fecha ASC, id_cita ASC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list citas: %w", err)
	}
	defer rows.Close()

	var result []Cita
	for rows.Next() {
		c, err := scanCita(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *c)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (s *PgStore) ExistsConflict(ctx context.Context, doctorID, centroID int64, fecha time.Time) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM citas
			WHERE id_doctor = $1
			  AND id_centro = $2
			  AND fecha = $3
			  AND estado IN ($4, $5)
		)
	`, doctorID, centroID, fecha.UTC(), EstadoPendiente, EstadoActiva).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check conflict: %w", err)
	}
	return exists, nil
}

func (s *PgStore) UpdateStatus(ctx context.Context, id int64, estado Estado) (*Cita, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE citas
		SET estado = $2
		WHERE id_cita = $1
		RETURNING `+citaColumns+`
	`, id, estado)

	return scanCita(row)
}
