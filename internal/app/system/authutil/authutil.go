// internal/app/system/authutil/authutil.go
// Package authutil holds the credential helpers shared by signup and login:
// email and password validation, bcrypt hashing and session token generation.
package authutil

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"strings"
)

// Email validation errors
var (
	ErrEmailRequired = errors.New("Email is required.")
	ErrInvalidEmail  = errors.New("Please enter a valid email address.")
)

// TokenBytes is the entropy of a session token before encoding.
const TokenBytes = 32

// ValidateEmail checks an already-normalized email address.
func ValidateEmail(email string) error {
	if email == "" {
		return ErrEmailRequired
	}
	if !isValidEmail(email) {
		return ErrInvalidEmail
	}
	return nil
}

// isValidEmail performs a basic email format validation.
// It checks for the presence of @ and at least one character on each side.
func isValidEmail(email string) bool {
	if strings.ContainsAny(email, " \t\r\n") {
		return false
	}
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return false
	}
	if len(parts[0]) == 0 {
		return false
	}
	// Domain must contain at least one dot after @
	domain := parts[1]
	dotIdx := strings.LastIndex(domain, ".")
	if dotIdx < 1 || dotIdx >= len(domain)-1 {
		return false
	}
	return true
}

// NewToken returns a random URL-safe bearer token.
func NewToken() (string, error) {
	b := make([]byte, TokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
