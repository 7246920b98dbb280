package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/dentalclinic-api/internal/model"
)

func testUser() *model.User {
	email := "ana@clinica.pe"
	return &model.User{
		Base:      model.Base{ID: 42},
		FirstName: "Ana",
		LastName:  "Torres",
		DNI:       "87654321",
		Email:     &email,
		UserType:  model.RoleReceptionist,
	}
}

func TestNewJWTServiceRequiresSecret(t *testing.T) {
	_, err := NewJWTService("", time.Hour)
	assert.ErrorIs(t, err, ErrMissingSecret)
}

func TestTokenRoundTripCarriesStoredRole(t *testing.T) {
	svc, err := NewJWTService("s3cret", time.Hour)
	require.NoError(t, err)

	token, expires, err := svc.GenerateAccessToken(testUser())
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, 5*time.Second)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, model.RoleReceptionist, claims.Role)
	assert.Equal(t, "ana@clinica.pe", claims.Email)
	assert.NotEmpty(t, claims.ID)

	user := claims.SessionUser()
	assert.Equal(t, "87654321", user.DNI)
}

func TestValidateRejectsForeignSignature(t *testing.T) {
	issuer, _ := NewJWTService("one", time.Hour)
	verifier, _ := NewJWTService("two", time.Hour)

	token, _, err := issuer.GenerateAccessToken(testUser())
	require.NoError(t, err)

	_, err = verifier.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateRejectsExpired(t *testing.T) {
	svc, _ := NewJWTService("s3cret", time.Minute)
	s := svc.(*jwtService)
	s.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	token, _, err := s.GenerateAccessToken(testUser())
	require.NoError(t, err)

	s.now = time.Now
	_, err = s.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
