package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/dentalclinic-api/internal/model"
	"github.com/jwalitptl/dentalclinic-api/pkg/auth"
	apperrors "github.com/jwalitptl/dentalclinic-api/pkg/errors"
	"github.com/jwalitptl/dentalclinic-api/pkg/security"
)

type mockUserRepo struct {
	mock.Mock
}

func (m *mockUserRepo) GetByDNI(ctx context.Context, dni string) (*model.User, error) {
	args := m.Called(ctx, dni)
	if u := args.Get(0); u != nil {
		return u.(*model.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserRepo) Get(ctx context.Context, id int64) (*model.User, error) {
	args := m.Called(ctx, id)
	if u := args.Get(0); u != nil {
		return u.(*model.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func newTestService(t *testing.T) (*Service, *mockUserRepo, security.PasswordHasher) {
	t.Helper()
	hasher := security.NewBcryptHasher(security.HasherConfig{Cost: 4, MinLength: 8})
	tokens, err := auth.NewJWTService("test-secret", time.Hour)
	require.NoError(t, err)
	repo := &mockUserRepo{}
	return NewService(repo, hasher, tokens), repo, hasher
}

func storedUser(t *testing.T, hasher security.PasswordHasher) *model.User {
	t.Helper()
	hash, err := hasher.Hash("correct-horse")
	require.NoError(t, err)
	return &model.User{
		Base:         model.Base{ID: 3},
		FirstName:    "Luis",
		LastName:     "Rojas",
		DNI:          "11223344",
		PasswordHash: hash,
		UserType:     model.RoleDoctor,
	}
}

func TestLoginUnknownDNI(t *testing.T) {
	svc, repo, _ := newTestService(t)
	repo.On("GetByDNI", mock.Anything, "00000000").Return(nil, apperrors.NotFound("user", nil))

	session, err := svc.Login(context.Background(), "00000000", "whatever")

	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Nil(t, session)
}

func TestLoginWrongPassword(t *testing.T) {
	svc, repo, hasher := newTestService(t)
	repo.On("GetByDNI", mock.Anything, "11223344").Return(storedUser(t, hasher), nil)

	session, err := svc.Login(context.Background(), "11223344", "wrong-password")

	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Nil(t, session)
}

func TestLoginIssuesTokenWithStoredRole(t *testing.T) {
	svc, repo, hasher := newTestService(t)
	repo.On("GetByDNI", mock.Anything, "11223344").Return(storedUser(t, hasher), nil)

	session, err := svc.Login(context.Background(), " 11223344 ", "correct-horse")
	require.NoError(t, err)

	assert.NotEmpty(t, session.Token)
	assert.Equal(t, model.RoleDoctor, session.User.Role)

	user, err := svc.Session(session.Token)
	require.NoError(t, err)
	assert.Equal(t, int64(3), user.ID)
	assert.Equal(t, model.RoleDoctor, user.Role)
}

func TestLoginLocksAfterRepeatedFailures(t *testing.T) {
	svc, repo, hasher := newTestService(t)
	repo.On("GetByDNI", mock.Anything, "11223344").Return(storedUser(t, hasher), nil)

	for i := 0; i < maxLoginAttempts; i++ {
		_, err := svc.Login(context.Background(), "11223344", "nope-nope")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}

	_, err := svc.Login(context.Background(), "11223344", "correct-horse")
	assert.ErrorIs(t, err, ErrTooManyAttempts)
}

func TestLoginRepositoryFailureIsNotCredentialError(t *testing.T) {
	svc, repo, _ := newTestService(t)
	repo.On("GetByDNI", mock.Anything, "11223344").Return(nil, assert.AnError)

	_, err := svc.Login(context.Background(), "11223344", "x")

	assert.ErrorIs(t, err, assert.AnError)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
}

func TestSessionRejectsGarbage(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.Session("not-a-token")
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}
