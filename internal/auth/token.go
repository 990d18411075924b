package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrTokenInvalid = errors.New("token invalido")
	ErrTokenExpired = errors.New("el token ha expirado")
)

// Identity is the verified (user, role) pair extracted from an access token.
type Identity struct {
	UserID int64
	Role   Role
}

// Claims mirrors the payload minted by the user-admin login endpoint.
type Claims struct {
	UserID int64  `json:"id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Verifier validates HS256 access tokens issued by the user-admin service.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret []byte) *Verifier {
	return &Verifier{secret: secret}
}

func (v *Verifier) Verify(token string) (Identity, error) {
	var claims Claims

	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return v.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, ErrTokenExpired
		}
		return Identity{}, ErrTokenInvalid
	}
	if !parsed.Valid {
		return Identity{}, ErrTokenInvalid
	}

	role, ok := ParseRole(claims.Role)
	if !ok {
		return Identity{}, ErrTokenInvalid
	}

	return Identity{UserID: claims.UserID, Role: role}, nil
}

// SignToken mints an HS256 token with the login payload layout. Used by the
// seed/simulate tools and by tests; the real tokens come from user-admin.
func SignToken(secret []byte, userID int64, role Role, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		UserID: userID,
		Role:   string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}
