package cita

import (
	"context"
	"errors"
	"time"
)

var (
	ErrCitaNotFound = errors.New("cita not found")

	// ErrSlotTaken is returned by Store.Insert when a Pendiente/Activa cita
	// already occupies the (doctor, centro, fecha) slot. Implementations must
	// enforce this atomically with respect to concurrent inserts.
	ErrSlotTaken = errors.New("slot already has an active cita")
)

// Store contains all persistence interactions needed by the service.
type Store interface {
	// Insert persists c, assigns its ID and returns the stored record.
	// Fails with ErrSlotTaken if the slot is occupied by a blocking cita.
	Insert(ctx context.Context, c Cita) (*Cita, error)

	FindByID(ctx context.Context, id int64) (*Cita, error)

	// FindMatching returns citas matching f, ordered by fecha ascending.
	FindMatching(ctx context.Context, f Filter) ([]Cita, error)

	// ExistsConflict reports whether a blocking cita occupies the exact
	// (doctor, centro, fecha) instant.
	ExistsConflict(ctx context.Context, doctorID, centroID int64, fecha time.Time) (bool, error)

	UpdateStatus(ctx context.Context, id int64, estado Estado) (*Cita, error)
}
