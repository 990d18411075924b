package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/odontocare/citas-service/internal/auth"
	"github.com/odontocare/citas-service/internal/cita"
	"github.com/odontocare/citas-service/internal/directory"
	redisclient "github.com/odontocare/citas-service/internal/redis"
)

const (
	msgMalformedJSON   = "JSON invalido o faltante"
	msgSchemaViolation = "Schema de request no válido. Faltan campos o son erroneos"
	msgNoFilter        = "Se necesita al menos un parametro de filtrado"
	msgDirectory       = "El doctor, centro o paciente no existe o esta inactivo"
	msgForbidden       = "Permiso denegado"
	msgSlotBeingBooked = "La franja está siendo reservada en este momento, reintente"
	msgCancelled       = "Cita cancelada"
	msgAlreadyDone     = "La cita ya estaba cancelada"
)

func createCitaHandler(svc *cita.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident, ok := auth.IdentityFrom(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "Token no proporcionado")
			return
		}

		var req cita.CreateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, msgMalformedJSON)
			return
		}

		created, err := svc.Create(r.Context(), ident.Role, ident.UserID, req)
		if err != nil {
			handleCreateError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toCitaResponse(*created))
	}
}

func listCitasHandler(svc *cita.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident, ok := auth.IdentityFrom(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "Token no proporcionado")
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			writeError(w, http.StatusBadRequest, msgMalformedJSON)
			return
		}

		citas, err := svc.List(r.Context(), ident.Role, ident.UserID, body)
		if err != nil {
			handleListError(w, err)
			return
		}

		// The documented API answers {} rather than [] when nothing matches.
		if len(citas) == 0 {
			writeJSON(w, http.StatusOK, struct{}{})
			return
		}

		resp := make([]CitaResponse, 0, len(citas))
		for _, c := range citas {
			resp = append(resp, toCitaResponse(c))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func cancelCitaHandler(svc *cita.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident, ok := auth.IdentityFrom(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "Token no proporcionado")
			return
		}

		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			http.Error(w, "Cita no encontrada", http.StatusNotFound)
			return
		}

		result, err := svc.Cancel(r.Context(), ident.Role, id)
		if err != nil {
			handleCancelError(w, err)
			return
		}

		msg := msgCancelled
		if result == cita.AlreadyCancelled {
			msg = msgAlreadyDone
		}
		writeJSON(w, http.StatusOK, MessageResponse{Message: msg})
	}
}

func handleCreateError(w http.ResponseWriter, err error) {
	var conflict *cita.SlotConflictError

	switch {
	case errors.As(err, &conflict):
		writeJSON(w, http.StatusBadRequest, MessageResponse{Message: conflict.Error()})
	case errors.Is(err, cita.ErrSchemaViolation):
		writeError(w, http.StatusBadRequest, msgSchemaViolation)
	case errors.Is(err, cita.ErrDirectoryRejected):
		writeError(w, http.StatusNotFound, msgDirectory)
	case errors.Is(err, cita.ErrSlotBeingBooked),
		errors.Is(err, redisclient.ErrLockNotAcquired):
		writeError(w, http.StatusConflict, msgSlotBeingBooked)
	case errors.Is(err, cita.ErrRoleNotAllowed):
		writeJSON(w, http.StatusForbidden, MessageResponse{Message: msgForbidden})
	case errors.Is(err, directory.ErrUnavailable):
		writeError(w, http.StatusBadGateway, "Servicio user-admin no disponible")
	default:
		writeError(w, http.StatusInternalServerError, "Error interno")
	}
}

func handleListError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, cita.ErrMalformedPayload):
		writeError(w, http.StatusBadRequest, msgMalformedJSON)
	case errors.Is(err, cita.ErrSchemaViolation):
		writeError(w, http.StatusBadRequest, msgSchemaViolation)
	case errors.Is(err, cita.ErrNoFilter):
		writeError(w, http.StatusBadRequest, msgNoFilter)
	case errors.Is(err, cita.ErrRoleNotAllowed):
		writeJSON(w, http.StatusForbidden, MessageResponse{Message: msgForbidden})
	default:
		writeError(w, http.StatusInternalServerError, "Error interno")
	}
}

func handleCancelError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, cita.ErrCitaNotFound):
		http.Error(w, "Cita no encontrada", http.StatusNotFound)
	case errors.Is(err, cita.ErrRoleNotAllowed):
		writeJSON(w, http.StatusForbidden, MessageResponse{Message: msgForbidden})
	default:
		writeError(w, http.StatusInternalServerError, "Error interno")
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
