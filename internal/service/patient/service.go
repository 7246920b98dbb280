package patient

import (
	"context"
	"fmt"
	"time"

	"github.com/jwalitptl/dentalclinic-api/internal/model"
	"github.com/jwalitptl/dentalclinic-api/internal/repository"
	apperrors "github.com/jwalitptl/dentalclinic-api/pkg/errors"
	"github.com/jwalitptl/dentalclinic-api/pkg/listquery"
	"github.com/jwalitptl/dentalclinic-api/pkg/security"
	"github.com/jwalitptl/dentalclinic-api/pkg/timeutil"
)

type Service struct {
	repo     repository.PatientRepository
	hasher   security.PasswordHasher
	loc      *time.Location
	pageSize int
	now      func() time.Time
}

func NewService(repo repository.PatientRepository, hasher security.PasswordHasher, loc *time.Location, pageSize int) *Service {
	return &Service{repo: repo, hasher: hasher, loc: loc, pageSize: pageSize, now: time.Now}
}

// Create registers a patient and its user. An empty password falls back to
// model.DefaultPassword.
func (s *Service) Create(ctx context.Context, req model.PatientRequest) (*model.Patient, error) {
	patient, err := s.build(req, true)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, patient); err != nil {
		return nil, fmt.Errorf("failed to create patient: %w", err)
	}
	return patient, nil
}

// Update rewrites the patient. The password is only changed when one is sent.
func (s *Service) Update(ctx context.Context, id int64, req model.PatientRequest) (*model.Patient, error) {
	patient, err := s.build(req, req.Password != "")
	if err != nil {
		return nil, err
	}
	patient.ID = id

	if err := s.repo.Update(ctx, patient, req.Password != ""); err != nil {
		return nil, fmt.Errorf("failed to update patient: %w", err)
	}
	return patient, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete patient: %w", err)
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id int64) (*model.Patient, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, params listquery.Params) (listquery.Page[model.Patient], error) {
	return s.repo.List(ctx, params, s.pageSize)
}

func (s *Service) build(req model.PatientRequest, withPassword bool) (*model.Patient, error) {
	birth, err := timeutil.ParseCivilDate(req.BirthDate, s.loc)
	if err != nil {
		return nil, apperrors.BadRequest("invalid birth date", err)
	}
	if birth.After(timeutil.CivilDate(s.now(), s.loc)) {
		return nil, apperrors.BadRequest("birth date is in the future", nil)
	}

	user := req.ToUser()
	user.UserType = model.RolePatient
	if withPassword {
		password := req.Password
		if password == "" {
			password = model.DefaultPassword
		}
		hash, err := s.hasher.Hash(password)
		if err != nil {
			return nil, apperrors.BadRequest("invalid password", err)
		}
		user.PasswordHash = hash
	}

	return &model.Patient{BirthDate: birth, User: user}, nil
}
