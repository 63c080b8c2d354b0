// Package auth issues and checks group edit tokens.
//
// A group is readable by anyone who knows its ID. Edits may additionally
// require the token handed out when the group was created.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Issuer is the iss claim of every edit token.
const Issuer = "brokewise"

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrMissingToken = errors.New("authorization token required")
	ErrWrongGroup   = errors.New("token does not grant access to this group")
)

// JWTManager handles edit token generation and validation.
type JWTManager struct {
	secretKey     []byte
	tokenDuration time.Duration
	now           func() time.Time
}

// Claims represents the custom JWT claims of a group edit token.
type Claims struct {
	GroupID string `json:"group_id"`
	jwt.RegisteredClaims
}

// NewJWTManager creates a new JWT manager with the given secret and token duration.
// secretKey should be a strong random string (e.g., 32 bytes).
// A zero tokenDuration issues tokens that never expire.
func NewJWTManager(secretKey string, tokenDuration time.Duration) *JWTManager {
	return &JWTManager{
		secretKey:     []byte(secretKey),
		tokenDuration: tokenDuration,
		now:           time.Now,
	}
}

// Generate creates a new edit token for the given group.
func (m *JWTManager) Generate(groupID string) (string, error) {
	now := m.now()
	claims := &Claims{
		GroupID: groupID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   groupID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	if m.tokenDuration > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(m.tokenDuration))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(m.secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

// Validate parses and validates a token, returning the claims if valid.
func (m *JWTManager) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&Claims{},
		func(*jwt.Token) (any, error) { return m.secretKey, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithTimeFunc(m.now),
	)

	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	// Subject and group claim must agree.
	if !ok || !token.Valid || claims.GroupID == "" || claims.Subject != claims.GroupID {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// Authorize checks that tokenString grants edits to groupID.
func (m *JWTManager) Authorize(tokenString, groupID string) error {
	claims, err := m.Validate(tokenString)
	if err != nil {
		return err
	}
	if claims.GroupID != groupID {
		return ErrWrongGroup
	}
	return nil
}
