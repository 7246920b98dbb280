package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/jwalitptl/dentalclinic-api/internal/model"
)

var (
	ErrMissingSecret = errors.New("auth secret is required")
	ErrInvalidToken  = errors.New("invalid token")
)

// Claims is the session carried by an access token.
type Claims struct {
	UserID    int64      `json:"id"`
	DNI       string     `json:"dni"`
	FirstName string     `json:"first_name"`
	LastName  string     `json:"last_name"`
	Role      model.Role `json:"role"`
	Email     string     `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// SessionUser returns the identity part of the claims.
func (c *Claims) SessionUser() model.SessionUser {
	return model.SessionUser{
		ID:        c.UserID,
		DNI:       c.DNI,
		FirstName: c.FirstName,
		LastName:  c.LastName,
		Role:      c.Role,
		Email:     c.Email,
	}
}

type JWTService interface {
	GenerateAccessToken(user *model.User) (string, time.Time, error)
	ValidateToken(token string) (*Claims, error)
}

type jwtService struct {
	secret []byte
	expiry time.Duration
	now    func() time.Time
}

// NewJWTService signs HS256 tokens with secret.
func NewJWTService(secret string, expiry time.Duration) (JWTService, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	if expiry <= 0 {
		expiry = 24 * time.Hour
	}
	return &jwtService{secret: []byte(secret), expiry: expiry, now: time.Now}, nil
}

func (s *jwtService) GenerateAccessToken(user *model.User) (string, time.Time, error) {
	issued := s.now()
	expires := issued.Add(s.expiry)

	claims := Claims{
		UserID:    user.ID,
		DNI:       user.DNI,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Role:      user.UserType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   fmt.Sprintf("%d", user.ID),
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	if user.Email != nil {
		claims.Email = *user.Email
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expires, nil
}

func (s *jwtService) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.UserID == 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
