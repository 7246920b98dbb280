package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/jwalitptl/dentalclinic-api/internal/model"
	"github.com/jwalitptl/dentalclinic-api/internal/repository"
	"github.com/jwalitptl/dentalclinic-api/pkg/auth"
	apperrors "github.com/jwalitptl/dentalclinic-api/pkg/errors"
	"github.com/jwalitptl/dentalclinic-api/pkg/security"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTooManyAttempts    = errors.New("too many failed login attempts")
)

const (
	maxLoginAttempts = 5
	lockoutDuration  = 15 * time.Minute
)

type Service struct {
	users    repository.UserRepository
	hasher   security.PasswordHasher
	tokens   auth.JWTService
	attempts *cache.Cache

	dummyOnce sync.Once
	dummyHash string
}

func NewService(users repository.UserRepository, hasher security.PasswordHasher, tokens auth.JWTService) *Service {
	return &Service{
		users:    users,
		hasher:   hasher,
		tokens:   tokens,
		attempts: cache.New(lockoutDuration, 2*lockoutDuration),
	}
}

// Login checks dni and password and mints a session token. Unknown dni and
// wrong password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, dni, password string) (*model.Session, error) {
	dni = strings.TrimSpace(dni)
	if s.locked(dni) {
		return nil, ErrTooManyAttempts
	}

	user, err := s.users.GetByDNI(ctx, dni)
	if err != nil {
		if !apperrors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("failed to look up user: %w", err)
		}
		// Spend the same bcrypt work as a real comparison.
		_ = s.hasher.Compare(s.dummy(), password)
		s.fail(dni)
		return nil, ErrInvalidCredentials
	}

	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		s.fail(dni)
		return nil, ErrInvalidCredentials
	}
	s.attempts.Delete(dni)

	token, expires, err := s.tokens.GenerateAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	session := &model.Session{
		Token:     token,
		ExpiresAt: expires,
		User: model.SessionUser{
			ID:        user.ID,
			DNI:       user.DNI,
			FirstName: user.FirstName,
			LastName:  user.LastName,
			Role:      user.UserType,
		},
	}
	if user.Email != nil {
		session.User.Email = *user.Email
	}
	return session, nil
}

// Session returns the identity carried by a valid token.
func (s *Service) Session(token string) (*model.SessionUser, error) {
	claims, err := s.tokens.ValidateToken(token)
	if err != nil {
		return nil, err
	}
	user := claims.SessionUser()
	return &user, nil
}

func (s *Service) locked(dni string) bool {
	n, ok := s.attempts.Get(dni)
	return ok && n.(int) >= maxLoginAttempts
}

func (s *Service) fail(dni string) {
	if err := s.attempts.Add(dni, 1, lockoutDuration); err != nil {
		_, _ = s.attempts.IncrementInt(dni, 1)
	}
}

func (s *Service) dummy() string {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = s.hasher.Hash(model.DefaultPassword)
	})
	return s.dummyHash
}
