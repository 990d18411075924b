// Package directory consumes the user-admin service, which owns the domain of
// patients, doctors and clinic centers. The citas core consults it only for
// existence and active-status checks.
package directory

import (
	"context"
	"errors"

	"github.com/odontocare/citas-service/internal/auth"
)

var (
	// ErrNotFound means the referenced entity does not exist (or, for
	// patients, is not active). A request validation problem, not a fault.
	ErrNotFound = errors.New("directory entity not found")

	// ErrUnavailable means the directory could not be reached or answered
	// abnormally. An infrastructure fault, never retried by the core.
	ErrUnavailable = errors.New("directory service unavailable")
)

type Doctor struct {
	ID       int64  `json:"id_doctor"`
	Nombre   string `json:"nombre"`
	Apellido string `json:"apellido"`
}

type Centro struct {
	ID     int64  `json:"id_centro"`
	Nombre string `json:"nombre"`
}

type Paciente struct {
	ID     int64  `json:"id_paciente"`
	Estado string `json:"estado"`
}

// Activo reports whether the patient may be booked.
func (p *Paciente) Activo() bool {
	return p.Estado != "inactivo"
}

// Gateway is the consumed boundary to the user-admin service. The userRole
// parameter travels inside the service token so user-admin can resolve
// doctor/patient ids from user ids on internal requests.
type Gateway interface {
	GetDoctor(ctx context.Context, id int64, userRole auth.Role) (*Doctor, error)
	GetCentro(ctx context.Context, id int64) (*Centro, error)
	GetPaciente(ctx context.Context, id int64, userRole auth.Role) (*Paciente, error)
}
