package directory

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odontocare/citas-service/internal/auth"
)

var testSecret = []byte("secreto-de-test")

func newTestManager() *TokenManager {
	return NewTokenManager(testSecret, 30*time.Minute, 2*time.Minute)
}

func newUserAdminStub(t *testing.T) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		switch r.URL.Path {
		case "/api/v1/admin/doctor/7":
			w.Write([]byte(`{"id_doctor": 7, "id_usuario": 70, "nombre": "Ana", "apellido": "Gomez", "especialidad": "Ortodoncia"}`))
		case "/api/v1/admin/centro/3":
			w.Write([]byte(`{"id_centro": 3, "nombre": "Centro Sur", "direccion": "Calle Mayor 1"}`))
		case "/api/v1/admin/paciente/14":
			w.Write([]byte(`{"id_paciente": 14, "id_usuario": 140, "estado": "activo"}`))
		case "/api/v1/admin/paciente/15":
			w.Write([]byte(`{"id_paciente": 15, "id_usuario": 150, "estado": "inactivo"}`))
		case "/api/v1/admin/doctor/500":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestClientLookups(t *testing.T) {
	server := newUserAdminStub(t)
	defer server.Close()

	client := NewClient(server.URL, newTestManager())
	ctx := context.Background()

	t.Run("doctor", func(t *testing.T) {
		doctor, err := client.GetDoctor(ctx, 7, auth.RoleAdmin)
		require.NoError(t, err)
		assert.EqualValues(t, 7, doctor.ID)
		assert.Equal(t, "Gomez", doctor.Apellido)
	})

	t.Run("centro", func(t *testing.T) {
		centro, err := client.GetCentro(ctx, 3)
		require.NoError(t, err)
		assert.Equal(t, "Centro Sur", centro.Nombre)
	})

	t.Run("paciente activity", func(t *testing.T) {
		activo, err := client.GetPaciente(ctx, 14, auth.RolePatient)
		require.NoError(t, err)
		assert.True(t, activo.Activo())

		inactivo, err := client.GetPaciente(ctx, 15, auth.RolePatient)
		require.NoError(t, err)
		assert.False(t, inactivo.Activo())
	})

	t.Run("missing entity is ErrNotFound", func(t *testing.T) {
		_, err := client.GetDoctor(ctx, 8, auth.RoleAdmin)
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("server fault is ErrUnavailable, not ErrNotFound", func(t *testing.T) {
		_, err := client.GetDoctor(ctx, 500, auth.RoleAdmin)
		require.ErrorIs(t, err, ErrUnavailable)
		require.NotErrorIs(t, err, ErrNotFound)
	})
}

func TestClientUnreachableHost(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", newTestManager())

	_, err := client.GetCentro(context.Background(), 3)
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestTokenManagerCachesPerRole(t *testing.T) {
	m := newTestManager()

	first, err := m.Token(auth.RoleAdmin)
	require.NoError(t, err)

	again, err := m.Token(auth.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, first, again, "token far from expiry is reused")

	other, err := m.Token(auth.RolePatient)
	require.NoError(t, err)
	assert.NotEqual(t, first, other, "user_role is baked into the token")
}

func TestTokenManagerRemintsNearExpiry(t *testing.T) {
	// ttl shorter than delta, so every cached token already counts as
	// expiring and each call mints a fresh one.
	m := NewTokenManager(testSecret, time.Second, time.Minute)

	first, err := m.Token(auth.RoleAdmin)
	require.NoError(t, err)

	time.Sleep(1100 * time.Millisecond)

	second, err := m.Token(auth.RoleAdmin)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}
