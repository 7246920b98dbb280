// Package security hashes and checks login passwords for clinic users.
package security

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// MaxPasswordBytes is the longest input bcrypt accepts.
const MaxPasswordBytes = 72

var (
	ErrPasswordShort    = errors.New("password too short")
	ErrPasswordLong     = errors.New("password longer than 72 bytes")
	ErrPasswordMismatch = errors.New("password does not match")
)

// HasherConfig comes from the auth section of the configuration.
type HasherConfig struct {
	Cost      int
	MinLength int
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

type bcryptHasher struct {
	cost      int
	minLength int
}

// NewBcryptHasher falls back to bcrypt.DefaultCost for an out-of-range cost
// and to a minimum length of 1.
func NewBcryptHasher(cfg HasherConfig) PasswordHasher {
	if cfg.Cost < bcrypt.MinCost || cfg.Cost > bcrypt.MaxCost {
		cfg.Cost = bcrypt.DefaultCost
	}
	if cfg.MinLength < 1 {
		cfg.MinLength = 1
	}
	return &bcryptHasher{cost: cfg.Cost, minLength: cfg.MinLength}
}

func (b *bcryptHasher) Hash(password string) (string, error) {
	switch {
	case len(password) < b.minLength:
		return "", fmt.Errorf("%w: need at least %d characters", ErrPasswordShort, b.minLength)
	case len(password) > MaxPasswordBytes:
		return "", ErrPasswordLong
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), b.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// Compare returns nil only when password matches the salted hash. Any other
// outcome, including a malformed hash, is ErrPasswordMismatch.
func (b *bcryptHasher) Compare(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return fmt.Errorf("%w: %v", ErrPasswordMismatch, err)
	}
	return nil
}
