package cita

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/odontocare/citas-service/internal/auth"
	"github.com/odontocare/citas-service/internal/directory"
	redisclient "github.com/odontocare/citas-service/internal/redis"
)

var (
	ErrRoleNotAllowed = errors.New("role not allowed for this operation")

	// ErrDirectoryRejected covers a missing doctor, centro or paciente, and
	// inactive pacientes. The API reports them with one combined message.
	ErrDirectoryRejected = errors.New("doctor, centro o paciente does not exist or is inactive")

	// ErrSlotBeingBooked means another request holds the slot lock right now.
	ErrSlotBeingBooked = errors.New("slot is currently being booked, please retry")
)

// SlotConflictError reports an occupied slot with enough context to render the
// documented conflict message.
type SlotConflictError struct {
	DoctorApellido string
	CentroNombre   string
	Fecha          time.Time
}

func (e *SlotConflictError) Error() string {
	return fmt.Sprintf(
		"Ya hay una cita asignada para el Dr. %s en el centro %s para el dia %s a las %s horas",
		e.DoctorApellido,
		e.CentroNombre,
		e.Fecha.UTC().Format("2006-01-02"),
		e.Fecha.UTC().Format("15:04"),
	)
}

// CreateRequest is the raw create payload. Which fields are honored depends on
// the caller role; see NormalizeCreate.
type CreateRequest struct {
	Fecha      *string `json:"fecha"`
	Motivo     *string `json:"motivo"`
	DoctorID   *int64  `json:"id_doctor"`
	CentroID   *int64  `json:"id_centro"`
	PacienteID *int64  `json:"id_paciente"`
	Estado     *string `json:"estado"`
}

// NewCita is a canonical, role-normalized creation command.
type NewCita struct {
	Fecha      time.Time
	Motivo     string
	Estado     Estado
	PacienteID int64
	DoctorID   int64
	CentroID   int64
}

// NormalizeCreate validates req against the role schema and resolves the
// role-dependent fields:
//
//   - patient: paciente is always the requester and estado is always
//     Pendiente; any supplied values are ignored, not rejected.
//   - admin: id_paciente and estado are required and taken as given.
//
// Pure function, so the override behavior is testable without persistence.
func NormalizeCreate(role auth.Role, requesterID int64, req CreateRequest) (NewCita, error) {
	if req.Fecha == nil || req.Motivo == nil || req.DoctorID == nil || req.CentroID == nil {
		return NewCita{}, ErrSchemaViolation
	}

	fecha, err := ParseFecha(*req.Fecha)
	if err != nil {
		return NewCita{}, ErrSchemaViolation
	}

	out := NewCita{
		Fecha:    fecha,
		Motivo:   *req.Motivo,
		DoctorID: *req.DoctorID,
		CentroID: *req.CentroID,
	}

	switch role {
	case auth.RolePatient:
		out.PacienteID = requesterID
		out.Estado = EstadoPendiente
	case auth.RoleAdmin:
		if req.PacienteID == nil || req.Estado == nil {
			return NewCita{}, ErrSchemaViolation
		}
		estado, ok := ParseEstado(*req.Estado)
		if !ok {
			return NewCita{}, ErrSchemaViolation
		}
		out.PacienteID = *req.PacienteID
		out.Estado = estado
	default:
		return NewCita{}, ErrRoleNotAllowed
	}

	return out, nil
}

// Service owns the cita state machine and role policy. Creation is serialized
// per slot by the optional locker; the store's own atomic insert remains the
// authoritative guard either way.
type Service struct {
	store     Store
	directory directory.Gateway
	checker   *ConflictChecker
	locker    redisclient.Locker
	log       zerolog.Logger
}

func NewService(store Store, gw directory.Gateway, locker redisclient.Locker, log zerolog.Logger) *Service {
	return &Service{
		store:     store,
		directory: gw,
		checker:   NewConflictChecker(store),
		locker:    locker,
		log:       log.With().Str("component", "cita-service").Logger(),
	}
}

// Create books a cita if the directory accepts all referenced entities and the
// slot is free. Directory validation completes before the critical section so
// the locked window stays minimal. Exactly one durable write happens on
// success; none on any failure.
func (s *Service) Create(ctx context.Context, role auth.Role, requesterID int64, req CreateRequest) (*Cita, error) {
	cmd, err := NormalizeCreate(role, requesterID, req)
	if err != nil {
		return nil, err
	}

	doctor, err := s.directory.GetDoctor(ctx, cmd.DoctorID, role)
	if err != nil {
		return nil, directoryErr(err)
	}
	centro, err := s.directory.GetCentro(ctx, cmd.CentroID)
	if err != nil {
		return nil, directoryErr(err)
	}
	paciente, err := s.directory.GetPaciente(ctx, cmd.PacienteID, role)
	if err != nil {
		return nil, directoryErr(err)
	}
	if !paciente.Activo() {
		return nil, ErrDirectoryRejected
	}

	conflict := &SlotConflictError{
		DoctorApellido: doctor.Apellido,
		CentroNombre:   centro.Nombre,
		Fecha:          cmd.Fecha,
	}

	var created *Cita

	err = s.withSlotLock(ctx, SlotKey(cmd.DoctorID, cmd.CentroID, cmd.Fecha), func(lockCtx context.Context) error {
		occupied, err := s.checker.Exists(lockCtx, cmd.DoctorID, cmd.CentroID, cmd.Fecha)
		if err != nil {
			return err
		}
		if occupied {
			return conflict
		}

		c, err := s.store.Insert(lockCtx, Cita{
			Fecha:         cmd.Fecha,
			Motivo:        cmd.Motivo,
			Estado:        cmd.Estado,
			PacienteID:    cmd.PacienteID,
			DoctorID:      cmd.DoctorID,
			CentroID:      cmd.CentroID,
			RegistradaPor: requesterID,
		})
		if err != nil {
			if errors.Is(err, ErrSlotTaken) {
				// Lost the race to a concurrent insert; same outcome as the
				// pre-check.
				return conflict
			}
			return fmt.Errorf("insert cita: %w", err)
		}

		created = c
		return nil
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrSlotBeingBooked
		}
		return nil, err
	}

	s.log.Info().
		Int64("id_cita", created.ID).
		Int64("id_doctor", created.DoctorID).
		Int64("id_centro", created.CentroID).
		Time("fecha", created.Fecha).
		Str("estado", string(created.Estado)).
		Msg("cita created")

	return created, nil
}

// List returns citas under the role-scoped filter rules of BuildFilter. A
// query matching nothing yields an empty slice, never an error.
func (s *Service) List(ctx context.Context, role auth.Role, requesterID int64, rawFilters []byte) ([]Cita, error) {
	filter, err := BuildFilter(role, requesterID, rawFilters)
	if err != nil {
		return nil, err
	}

	citas, err := s.store.FindMatching(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list citas: %w", err)
	}
	return citas, nil
}

// CancelResult distinguishes the two cancel success variants.
type CancelResult int

const (
	// Cancelled means this call performed the transition.
	Cancelled CancelResult = iota
	// AlreadyCancelled means the cita was terminal before the call; nothing
	// was mutated.
	AlreadyCancelled
)

// Cancel transitions a cita to Cancelada. Idempotent by contract: repeated
// calls succeed and converge on the same terminal state. Concurrent cancels
// need no lock; the status update is atomic in the store and Cancelada is
// absorbing.
func (s *Service) Cancel(ctx context.Context, role auth.Role, id int64) (CancelResult, error) {
	if role != auth.RoleAdmin && role != auth.RoleSecretariat {
		return 0, ErrRoleNotAllowed
	}

	current, err := s.store.FindByID(ctx, id)
	if err != nil {
		return 0, err
	}

	if current.Estado == EstadoCancelada {
		return AlreadyCancelled, nil
	}

	if _, err := s.store.UpdateStatus(ctx, id, EstadoCancelada); err != nil {
		return 0, fmt.Errorf("cancel cita: %w", err)
	}

	s.log.Info().Int64("id_cita", id).Msg("cita cancelled")
	return Cancelled, nil
}

func (s *Service) withSlotLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	if s.locker == nil {
		return fn(ctx)
	}
	return s.locker.WithSlotLock(ctx, key, fn)
}

func directoryErr(err error) error {
	if errors.Is(err, directory.ErrNotFound) {
		return ErrDirectoryRejected
	}
	return fmt.Errorf("directory lookup: %w", err)
}
