package jwt

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the payload embedded in every issued token: the user's stable
// id plus the username. Expiry is whatever the signing layer enforces; we
// deliberately do not stamp our own exp claim.
type Claims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Manager signs and verifies tokens with a single shared HS256 secret.
type Manager struct {
	secret string
}

// NewManager creates a new token manager.
func NewManager(secret string) *Manager {
	return &Manager{secret: secret}
}

// Generate issues a signed token for the given user.
func (m *Manager) Generate(userID, username string) (string, error) {
	claims := Claims{
		UserID:   userID,
		Username: username,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(m.secret))
}

// Validate parses the token and verifies its signature. A token that fails
// for any reason (malformed, bad signature, expired) returns an error; the
// caller decides whether that is fatal.
func (m *Manager) Validate(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(m.secret), nil
	})
	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	return claims, nil
}
