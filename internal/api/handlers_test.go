package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/suite"

	"github.com/odontocare/citas-service/internal/auth"
	"github.com/odontocare/citas-service/internal/cita"
	"github.com/odontocare/citas-service/internal/directory"
)

var testSecret = []byte("secreto-de-test")

// HandlersSuite runs the documented API scenario end to end over the full
// router, with the in-memory store and a static directory.
type HandlersSuite struct {
	suite.Suite
	router http.Handler
	store  *cita.MemoryStore
}

func (s *HandlersSuite) SetupTest() {
	gateway := directory.NewStaticGateway().
		AddDoctor(directory.Doctor{ID: 7, Nombre: "Ana", Apellido: "Gomez"}).
		AddDoctor(directory.Doctor{ID: 8, Nombre: "Luis", Apellido: "Marin"}).
		AddCentro(directory.Centro{ID: 3, Nombre: "Centro Sur"}).
		AddPaciente(directory.Paciente{ID: 14, Estado: "activo"}).
		AddPaciente(directory.Paciente{ID: 15, Estado: "inactivo"})

	s.store = cita.NewMemoryStore()
	service := cita.NewService(s.store, gateway, nil, zerolog.Nop())

	s.router = NewRouter(RouterConfig{
		Service:  service,
		Verifier: auth.NewVerifier(testSecret),
		Logger:   zerolog.Nop(),
		Env:      "test",
		Version:  "test",
	})
}

func TestHandlersSuite(t *testing.T) {
	suite.Run(t, new(HandlersSuite))
}

func (s *HandlersSuite) token(userID int64, role auth.Role) string {
	token, err := auth.SignToken(testSecret, userID, role, time.Minute)
	s.Require().NoError(err)
	return token
}

func (s *HandlersSuite) request(method, path, token string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *HandlersSuite) adminPayload() map[string]any {
	return map[string]any{
		"fecha":       "2026-02-05T09:00:00Z",
		"motivo":      "revision anual",
		"estado":      "Activa",
		"id_paciente": 14,
		"id_doctor":   7,
		"id_centro":   3,
	}
}

func (s *HandlersSuite) TestDocumentedScenario() {
	admin := s.token(1, auth.RoleAdmin)
	secretary := s.token(2, auth.RoleSecretariat)

	// Admin books the slot.
	rec := s.request(http.MethodPost, "/api/v1/citas", admin, s.adminPayload())
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())

	var created CitaResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &created))
	s.EqualValues(14, created.IDPaciente)
	s.Equal("Activa", created.Estado)
	s.EqualValues(1, created.IDUsuarioRegistra)

	// Second booking of the same slot conflicts, naming the slot.
	rec = s.request(http.MethodPost, "/api/v1/citas", admin, s.adminPayload())
	s.Require().Equal(http.StatusBadRequest, rec.Code)
	s.Contains(rec.Body.String(), "Dr. Gomez")
	s.Contains(rec.Body.String(), "Centro Sur")
	s.Contains(rec.Body.String(), "2026-02-05")
	s.Contains(rec.Body.String(), "09:00")

	// Secretary cancels it.
	idPath := "/api/v1/citas/" + strconv.FormatInt(created.IDCita, 10)
	rec = s.request(http.MethodPut, idPath, secretary, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), "Cita cancelada")

	// Cancelling again succeeds with the idempotent message.
	rec = s.request(http.MethodPut, idPath, secretary, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), "La cita ya estaba cancelada")

	// The slot is bookable again.
	rec = s.request(http.MethodPost, "/api/v1/citas", admin, s.adminPayload())
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
}

func (s *HandlersSuite) TestPatientCannotEscalate() {
	patient := s.token(14, auth.RolePatient)

	payload := map[string]any{
		"fecha":       "2026-02-05T10:00:00Z",
		"motivo":      "limpieza",
		"id_doctor":   7,
		"id_centro":   3,
		"id_paciente": 99,       // ignored
		"estado":      "Activa", // ignored
	}

	rec := s.request(http.MethodPost, "/api/v1/citas", patient, payload)
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())

	var created CitaResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &created))
	s.EqualValues(14, created.IDPaciente)
	s.Equal("Pendiente", created.Estado)
}

func (s *HandlersSuite) TestCreateRejections() {
	admin := s.token(1, auth.RoleAdmin)

	s.Run("malformed body", func() {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/citas", bytes.NewReader([]byte("{")))
		req.Header.Set("Authorization", "Bearer "+admin)
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, req)

		s.Equal(http.StatusBadRequest, rec.Code)
		s.Contains(rec.Body.String(), "JSON invalido")
	})

	s.Run("missing fields", func() {
		payload := s.adminPayload()
		delete(payload, "fecha")
		rec := s.request(http.MethodPost, "/api/v1/citas", admin, payload)
		s.Equal(http.StatusBadRequest, rec.Code)
		s.Contains(rec.Body.String(), "Schema de request")
	})

	s.Run("unknown doctor", func() {
		payload := s.adminPayload()
		payload["id_doctor"] = 70
		rec := s.request(http.MethodPost, "/api/v1/citas", admin, payload)
		s.Equal(http.StatusNotFound, rec.Code)
		s.Contains(rec.Body.String(), "no existe o esta inactivo")
	})

	s.Run("inactive paciente", func() {
		payload := s.adminPayload()
		payload["id_paciente"] = 15
		rec := s.request(http.MethodPost, "/api/v1/citas", admin, payload)
		s.Equal(http.StatusNotFound, rec.Code)
	})

	s.Run("secretariat may not create", func() {
		rec := s.request(http.MethodPost, "/api/v1/citas", s.token(2, auth.RoleSecretariat), s.adminPayload())
		s.Equal(http.StatusForbidden, rec.Code)
	})

	s.Run("no token", func() {
		rec := s.request(http.MethodPost, "/api/v1/citas", "", s.adminPayload())
		s.Equal(http.StatusUnauthorized, rec.Code)
	})
}

func (s *HandlersSuite) TestListFilters() {
	admin := s.token(1, auth.RoleAdmin)

	rec := s.request(http.MethodPost, "/api/v1/citas", admin, s.adminPayload())
	s.Require().Equal(http.StatusCreated, rec.Code)

	s.Run("admin filters by doctor", func() {
		rec := s.request(http.MethodGet, "/api/v1/citas", admin, map[string]any{"id_doctor": 7})
		s.Require().Equal(http.StatusOK, rec.Code)

		var citas []CitaResponse
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &citas))
		s.Len(citas, 1)
	})

	s.Run("zero matches answers the empty-object sentinel", func() {
		rec := s.request(http.MethodGet, "/api/v1/citas", admin, map[string]any{"id_doctor": 8})
		s.Require().Equal(http.StatusOK, rec.Code)
		s.JSONEq(`{}`, rec.Body.String())
	})

	s.Run("admin without filters", func() {
		rec := s.request(http.MethodGet, "/api/v1/citas", admin, map[string]any{})
		s.Equal(http.StatusBadRequest, rec.Code)
		s.Contains(rec.Body.String(), "al menos un parametro")
	})

	s.Run("secretariat by fecha", func() {
		rec := s.request(http.MethodGet, "/api/v1/citas", s.token(2, auth.RoleSecretariat), map[string]any{"fecha": "2026-02-05"})
		s.Require().Equal(http.StatusOK, rec.Code)

		var citas []CitaResponse
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &citas))
		s.Len(citas, 1)
	})

	s.Run("secretariat with a forbidden filter", func() {
		rec := s.request(http.MethodGet, "/api/v1/citas", s.token(2, auth.RoleSecretariat), map[string]any{"id_doctor": 7})
		s.Equal(http.StatusBadRequest, rec.Code)
		s.Contains(rec.Body.String(), "Schema de request")
	})

	s.Run("doctor needs no body and sees own citas", func() {
		rec := s.request(http.MethodGet, "/api/v1/citas", s.token(7, auth.RoleDoctor), nil)
		s.Require().Equal(http.StatusOK, rec.Code)

		var citas []CitaResponse
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &citas))
		s.Len(citas, 1)
		s.EqualValues(7, citas[0].IDDoctor)
	})

	s.Run("patient may not list", func() {
		rec := s.request(http.MethodGet, "/api/v1/citas", s.token(14, auth.RolePatient), map[string]any{"fecha": "2026-02-05"})
		s.Equal(http.StatusForbidden, rec.Code)
	})
}

func (s *HandlersSuite) TestCancelNotFoundIsPlainText() {
	secretary := s.token(2, auth.RoleSecretariat)

	rec := s.request(http.MethodPut, "/api/v1/citas/424242", secretary, nil)
	s.Equal(http.StatusNotFound, rec.Code)
	s.Contains(rec.Header().Get("Content-Type"), "text/plain")

	rec = s.request(http.MethodPut, "/api/v1/citas/no-numerica", secretary, nil)
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *HandlersSuite) TestCancelRoleGate() {
	admin := s.token(1, auth.RoleAdmin)
	rec := s.request(http.MethodPost, "/api/v1/citas", admin, s.adminPayload())
	s.Require().Equal(http.StatusCreated, rec.Code)

	var created CitaResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &created))
	idPath := "/api/v1/citas/" + strconv.FormatInt(created.IDCita, 10)

	rec = s.request(http.MethodPut, idPath, s.token(14, auth.RolePatient), nil)
	s.Equal(http.StatusForbidden, rec.Code)

	rec = s.request(http.MethodPut, idPath, s.token(7, auth.RoleDoctor), nil)
	s.Equal(http.StatusForbidden, rec.Code)
}

func (s *HandlersSuite) TestHealthEndpointsAreOpen() {
	rec := s.request(http.MethodGet, "/health/live", "", nil)
	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), `"status":"ok"`)
}
