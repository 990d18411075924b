package api

import (
	"time"

	"github.com/odontocare/citas-service/internal/cita"
)

// CitaResponse is the wire shape of a persisted cita.
type CitaResponse struct {
	IDCita            int64  `json:"id_cita"`
	Fecha             string `json:"fecha"`
	Motivo            string `json:"motivo"`
	Estado            string `json:"estado"`
	IDPaciente        int64  `json:"id_paciente"`
	IDDoctor          int64  `json:"id_doctor"`
	IDCentro          int64  `json:"id_centro"`
	IDUsuarioRegistra int64  `json:"id_usuario_registra"`
}

func toCitaResponse(c cita.Cita) CitaResponse {
	return CitaResponse{
		IDCita:            c.ID,
		Fecha:             c.Fecha.UTC().Format(time.RFC3339),
		Motivo:            c.Motivo,
		Estado:            string(c.Estado),
		IDPaciente:        c.PacienteID,
		IDDoctor:          c.DoctorID,
		IDCentro:          c.CentroID,
		IDUsuarioRegistra: c.RegistradaPor,
	}
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type MessageResponse struct {
	Message string `json:"message"`
}
