package directory

import (
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/odontocare/citas-service/internal/auth"
)

// serviceClaims is the payload of service-to-service tokens. Unlike login
// tokens it carries a fixed service role plus the role of the user whose
// request is being forwarded.
type serviceClaims struct {
	Role     string `json:"role"`
	UserRole string `json:"user_role"`
	jwt.RegisteredClaims
}

// TokenManager mints and caches HS256 service tokens for directory calls.
// A token is reused until it gets within delta of its expiry, then re-minted.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	delta  time.Duration

	mu     sync.Mutex
	tokens map[auth.Role]cachedToken
}

type cachedToken struct {
	value   string
	expires time.Time
}

func NewTokenManager(secret []byte, ttl, delta time.Duration) *TokenManager {
	return &TokenManager{
		secret: secret,
		ttl:    ttl,
		delta:  delta,
		tokens: make(map[auth.Role]cachedToken),
	}
}

func (m *TokenManager) Token(userRole auth.Role) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()

	if cached, ok := m.tokens[userRole]; ok && now.Before(cached.expires.Add(-m.delta)) {
		return cached.value, nil
	}

	expires := now.Add(m.ttl)
	claims := serviceClaims{
		Role:     string(auth.RoleService),
		UserRole: string(userRole),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign service token: %w", err)
	}

	m.tokens[userRole] = cachedToken{value: token, expires: expires}
	return token, nil
}
