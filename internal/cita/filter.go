package cita

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/odontocare/citas-service/internal/auth"
)

var (
	ErrMalformedPayload = errors.New("malformed or missing JSON payload")
	ErrSchemaViolation  = errors.New("payload does not match the role schema")
	ErrNoFilter         = errors.New("at least one filter parameter is required")
)

// Filter is a normalized query predicate over the citas store. Nil fields do
// not constrain. The From/To window is half-open: fecha >= From && fecha < To.
type Filter struct {
	PacienteID *int64
	DoctorID   *int64
	CentroID   *int64
	Estado     *Estado
	From       *time.Time
	To         *time.Time
}

func (f Filter) empty() bool {
	return f.PacienteID == nil && f.DoctorID == nil && f.CentroID == nil &&
		f.Estado == nil && f.From == nil
}

// Matches reports whether c satisfies the predicate. Shared by the in-memory
// store; the Postgres store compiles the same predicate to SQL.
func (f Filter) Matches(c Cita) bool {
	if f.PacienteID != nil && c.PacienteID != *f.PacienteID {
		return false
	}
	if f.DoctorID != nil && c.DoctorID != *f.DoctorID {
		return false
	}
	if f.CentroID != nil && c.CentroID != *f.CentroID {
		return false
	}
	if f.Estado != nil && c.Estado != *f.Estado {
		return false
	}
	if f.From != nil && c.Fecha.Before(*f.From) {
		return false
	}
	if f.To != nil && !c.Fecha.Before(*f.To) {
		return false
	}
	return true
}

// rawFilter carries the fields a list payload may legally contain. Which of
// them are admitted depends on the caller role.
type rawFilter struct {
	PacienteID *int64  `json:"id_paciente"`
	DoctorID   *int64  `json:"id_doctor"`
	CentroID   *int64  `json:"id_centro"`
	Estado     *string `json:"estado"`
	Fecha      *string `json:"fecha"`
}

var filterKeys = map[string]struct{}{
	"id_paciente": {},
	"id_doctor":   {},
	"id_centro":   {},
	"estado":      {},
	"fecha":       {},
}

// BuildFilter translates a role plus raw list payload into a validated
// predicate. Pure: no persistence or directory access happens here.
//
// Legality per role:
//   - admin: any combination of the five keys, at least one required.
//   - secretariat: only fecha, and it is required.
//   - doctor: the body is ignored entirely; the predicate is always
//     {id_doctor = requesterID}.
func BuildFilter(role auth.Role, requesterID int64, body []byte) (Filter, error) {
	if role == auth.RoleDoctor {
		id := requesterID
		return Filter{DoctorID: &id}, nil
	}

	var keys map[string]json.RawMessage
	if err := json.Unmarshal(body, &keys); err != nil {
		return Filter{}, ErrMalformedPayload
	}

	switch role {
	case auth.RoleAdmin:
		// all keys legal
	case auth.RoleSecretariat:
		for k := range keys {
			if k != "fecha" {
				return Filter{}, ErrSchemaViolation
			}
		}
	default:
		return Filter{}, ErrRoleNotAllowed
	}

	for k := range keys {
		if _, ok := filterKeys[k]; !ok {
			return Filter{}, ErrSchemaViolation
		}
	}

	var raw rawFilter
	if err := json.Unmarshal(body, &raw); err != nil {
		return Filter{}, ErrSchemaViolation
	}

	f := Filter{
		PacienteID: raw.PacienteID,
		DoctorID:   raw.DoctorID,
		CentroID:   raw.CentroID,
	}

	if raw.Estado != nil {
		estado, ok := ParseEstado(*raw.Estado)
		if !ok {
			return Filter{}, ErrSchemaViolation
		}
		f.Estado = &estado
	}

	if raw.Fecha != nil {
		start, err := ParseFecha(*raw.Fecha)
		if err != nil {
			return Filter{}, ErrSchemaViolation
		}
		end := start.Add(24 * time.Hour)
		f.From = &start
		f.To = &end
	}

	if f.empty() {
		return Filter{}, ErrNoFilter
	}

	return f, nil
}

var fechaLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseFecha accepts a full RFC 3339 timestamp or a bare date. Times without a
// zone are taken as UTC.
func ParseFecha(s string) (time.Time, error) {
	var lastErr error
	for _, layout := range fechaLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t.UTC(), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
