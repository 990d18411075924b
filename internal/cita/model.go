package cita

import "time"

// Estado is the lifecycle state of a cita. The Spanish values are part of the
// wire contract.
type Estado string

const (
	EstadoPendiente Estado = "Pendiente"
	EstadoActiva    Estado = "Activa"
	EstadoCancelada Estado = "Cancelada"
)

func ParseEstado(s string) (Estado, bool) {
	switch Estado(s) {
	case EstadoPendiente, EstadoActiva, EstadoCancelada:
		return Estado(s), true
	}
	return "", false
}

// Blocking reports whether a cita in this state occupies its slot. Cancelled
// citas free the slot for rebooking.
func (e Estado) Blocking() bool {
	return e == EstadoPendiente || e == EstadoActiva
}

// Cita is an appointment record. Everything except Estado is immutable after
// creation; Estado only ever moves to Cancelada, which is terminal.
type Cita struct {
	ID         int64
	Fecha      time.Time
	Motivo     string
	Estado     Estado
	PacienteID int64
	DoctorID   int64
	CentroID   int64
	// RegistradaPor is the user that registered the cita.
	RegistradaPor int64
}
