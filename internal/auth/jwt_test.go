package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestJWTManager(t *testing.T) {
	m := NewJWTManager("test-secret-key-that-is-long-enough", time.Hour)

	token, err := m.Generate("group-1")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	claims, err := m.Validate(token)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if claims.GroupID != "group-1" {
		t.Errorf("GroupID = %q, want group-1", claims.GroupID)
	}

	if err := m.Authorize(token, "group-1"); err != nil {
		t.Errorf("Authorize for own group failed: %v", err)
	}
	if err := m.Authorize(token, "group-2"); !errors.Is(err, ErrWrongGroup) {
		t.Errorf("Authorize for other group = %v, want ErrWrongGroup", err)
	}
}

func TestJWTManager_Rejects(t *testing.T) {
	m := NewJWTManager("secret-a", time.Hour)
	other := NewJWTManager("secret-b", time.Hour)

	foreign, err := other.Generate("group-1")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	expiring := NewJWTManager("secret-a", time.Minute)
	expired, err := expiring.Generate("group-1")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	m.now = func() time.Time { return time.Now().Add(time.Hour) }

	none := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{GroupID: "group-1"})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("SignedString failed: %v", err)
	}

	otherIssuer, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		GroupID:          "group-1",
		RegisteredClaims: jwt.RegisteredClaims{Issuer: "someone-else", Subject: "group-1"},
	}).SignedString([]byte("secret-a"))
	if err != nil {
		t.Fatalf("SignedString failed: %v", err)
	}

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"signed with another secret", foreign},
		{"expired", expired},
		{"alg none", unsigned},
		{"other issuer", otherIssuer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := m.Validate(tt.token); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("Validate = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func TestJWTManager_NoExpiry(t *testing.T) {
	m := NewJWTManager("secret", 0)
	token, err := m.Generate("group-1")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	m.now = func() time.Time { return time.Now().Add(10 * 365 * 24 * time.Hour) }
	if _, err := m.Validate(token); err != nil {
		t.Errorf("Validate of non-expiring token failed: %v", err)
	}
}
