package authutil

import (
	"encoding/base64"
	"testing"
)

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		email   string
		wantErr error
	}{
		{"a@x.com", nil},
		{"first.last@sub.example.org", nil},
		{"", ErrEmailRequired},
		{"no-at-sign", ErrInvalidEmail},
		{"@x.com", ErrInvalidEmail},
		{"a@x", ErrInvalidEmail},
		{"a@.com", ErrInvalidEmail},
		{"a@x.", ErrInvalidEmail},
		{"a@b@x.com", ErrInvalidEmail},
		{"a b@x.com", ErrInvalidEmail},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			if err := ValidateEmail(tt.email); err != tt.wantErr {
				t.Errorf("ValidateEmail(%q) = %v, want %v", tt.email, err, tt.wantErr)
			}
		})
	}
}

func TestNewToken(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		tok, err := NewToken()
		if err != nil {
			t.Fatalf("NewToken() error = %v", err)
		}
		raw, err := base64.URLEncoding.DecodeString(tok)
		if err != nil {
			t.Fatalf("token is not base64url: %v", err)
		}
		if len(raw) != TokenBytes {
			t.Errorf("token decodes to %d bytes, want %d", len(raw), TokenBytes)
		}
		if seen[tok] {
			t.Fatalf("duplicate token %q", tok)
		}
		seen[tok] = true
	}
}
