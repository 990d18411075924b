package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("secreto-de-test")

func protectedEndpoint(t *testing.T, roles ...Role) http.Handler {
	t.Helper()

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ident, ok := IdentityFrom(r.Context())
		require.True(t, ok)
		w.Header().Set("X-Caller-Role", string(ident.Role))
		w.WriteHeader(http.StatusNoContent)
	})

	handler := http.Handler(inner)
	if len(roles) > 0 {
		handler = RequireRoles(roles...)(handler)
	}
	return Authenticate(NewVerifier(testSecret))(handler)
}

func doRequest(handler http.Handler, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/citas", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestAuthenticate(t *testing.T) {
	handler := protectedEndpoint(t)

	t.Run("valid token passes and exposes the identity", func(t *testing.T) {
		token, err := SignToken(testSecret, 14, RolePatient, time.Minute)
		require.NoError(t, err)

		rec := doRequest(handler, "Bearer "+token)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("missing header", func(t *testing.T) {
		rec := doRequest(handler, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "Token no proporcionado")
	})

	t.Run("not a bearer header", func(t *testing.T) {
		rec := doRequest(handler, "Basic dXNlcjpwYXNz")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "Formato de autorización incorrecto")
	})

	t.Run("garbage token", func(t *testing.T) {
		rec := doRequest(handler, "Bearer no.es.jwt")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("wrong signing key", func(t *testing.T) {
		token, err := SignToken([]byte("otro-secreto"), 14, RolePatient, time.Minute)
		require.NoError(t, err)

		rec := doRequest(handler, "Bearer "+token)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("expired token", func(t *testing.T) {
		token, err := SignToken(testSecret, 14, RolePatient, -time.Minute)
		require.NoError(t, err)

		rec := doRequest(handler, "Bearer "+token)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "expirado")
	})
}

func TestRequireRoles(t *testing.T) {
	handler := protectedEndpoint(t, RoleAdmin, RoleSecretariat)

	t.Run("allowed role", func(t *testing.T) {
		token, err := SignToken(testSecret, 2, RoleSecretariat, time.Minute)
		require.NoError(t, err)

		rec := doRequest(handler, "Bearer "+token)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("disallowed role", func(t *testing.T) {
		token, err := SignToken(testSecret, 14, RolePatient, time.Minute)
		require.NoError(t, err)

		rec := doRequest(handler, "Bearer "+token)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Contains(t, rec.Body.String(), "Permiso denegado")
	})
}

func TestVerifierRejectsUnknownRole(t *testing.T) {
	v := NewVerifier(testSecret)

	token, err := SignToken(testSecret, 1, Role("superuser"), time.Minute)
	require.NoError(t, err)

	_, err = v.Verify(token)
	require.ErrorIs(t, err, ErrTokenInvalid)
}
