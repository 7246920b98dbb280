package employee

import (
	"context"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/jwalitptl/dentalclinic-api/internal/model"
	"github.com/jwalitptl/dentalclinic-api/internal/repository"
	apperrors "github.com/jwalitptl/dentalclinic-api/pkg/errors"
	"github.com/jwalitptl/dentalclinic-api/pkg/listquery"
	"github.com/jwalitptl/dentalclinic-api/pkg/security"
)

type Service struct {
	repo     repository.EmployeeRepository
	hasher   security.PasswordHasher
	pageSize int
}

func NewService(repo repository.EmployeeRepository, hasher security.PasswordHasher, pageSize int) *Service {
	return &Service{repo: repo, hasher: hasher, pageSize: pageSize}
}

// Create registers an employee with its user and role set. Without roles the
// employee is a doctor.
func (s *Service) Create(ctx context.Context, req model.EmployeeRequest) (*model.Employee, error) {
	employee, err := s.build(req, true)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, employee); err != nil {
		return nil, fmt.Errorf("failed to create employee: %w", err)
	}
	return employee, nil
}

func (s *Service) Update(ctx context.Context, id int64, req model.EmployeeRequest) (*model.Employee, error) {
	employee, err := s.build(req, req.Password != "")
	if err != nil {
		return nil, err
	}
	employee.ID = id

	if err := s.repo.Update(ctx, employee, req.Password != ""); err != nil {
		return nil, fmt.Errorf("failed to update employee: %w", err)
	}
	return employee, nil
}

func (s *Service) UpdateSpecialty(ctx context.Context, id int64, specialty string) error {
	specialty = strings.TrimSpace(specialty)
	if specialty == "" {
		return apperrors.BadRequest("specialty is required", nil)
	}
	if err := s.repo.UpdateSpecialty(ctx, id, specialty); err != nil {
		return fmt.Errorf("failed to update specialty: %w", err)
	}
	return nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete employee: %w", err)
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id int64) (*model.Employee, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, params listquery.Params) (listquery.Page[model.Employee], error) {
	return s.repo.List(ctx, params, s.pageSize)
}

func (s *Service) Doctors(ctx context.Context) ([]model.Employee, error) {
	return s.repo.ListDoctors(ctx)
}

func (s *Service) build(req model.EmployeeRequest, withPassword bool) (*model.Employee, error) {
	roles := req.RoleSet()

	req.UserInput.Email = req.Email
	user := req.ToUser()
	user.UserType = model.PrimaryRole(roles)

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

	names := make(pq.StringArray, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}

	return &model.Employee{
		Specialty: strings.TrimSpace(req.Specialty),
		Roles:     names,
		User:      user,
	}, nil
}
