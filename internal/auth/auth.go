// Package auth provides admin authentication against a bcrypt password hash.
package auth

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrUnauthorized is returned for a wrong password or when no admin hash is configured.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNoPassword is returned by HashPassword for an empty password.
	ErrNoPassword = errors.New("password is required")
)

// Admin verifies the admin password.
type Admin struct {
	hash []byte
}

// NewAdmin creates an Admin from a bcrypt hash. An empty hash rejects every password.
func NewAdmin(passwordHash string) (*Admin, error) {
	passwordHash = strings.TrimSpace(passwordHash)
	if passwordHash == "" {
		return &Admin{}, nil
	}
	if _, err := bcrypt.Cost([]byte(passwordHash)); err != nil {
		return nil, fmt.Errorf("parse admin password hash: %w", err)
	}
	return &Admin{hash: []byte(passwordHash)}, nil
}

// Enabled reports whether an admin hash is configured.
func (a *Admin) Enabled() bool {
	return len(a.hash) > 0
}

// Authenticate returns nil when password matches the configured hash.
func (a *Admin) Authenticate(password string) error {
	if !a.Enabled() || password == "" {
		return ErrUnauthorized
	}
	if err := bcrypt.CompareHashAndPassword(a.hash, []byte(password)); err != nil {
		return ErrUnauthorized
	}
	return nil
}

// PasswordEnv is the environment variable consulted for the admin password.
const PasswordEnv = "HOMEPAGE_ADMIN_PASSWORD"

// PasswordFromEnv returns the admin password from the environment, if set.
func PasswordFromEnv() string {
	return os.Getenv(PasswordEnv)
}

// HashPassword produces a bcrypt hash suitable for admin.password_hash.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrNoPassword
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}
