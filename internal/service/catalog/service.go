// Package catalog manages the billable services offered by the clinic.
package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/jwalitptl/dentalclinic-api/internal/model"
	"github.com/jwalitptl/dentalclinic-api/internal/repository"
	apperrors "github.com/jwalitptl/dentalclinic-api/pkg/errors"
	"github.com/jwalitptl/dentalclinic-api/pkg/listquery"
)

type Service struct {
	repo     repository.ServiceRepository
	pageSize int
}

func NewService(repo repository.ServiceRepository, pageSize int) *Service {
	return &Service{repo: repo, pageSize: pageSize}
}

func (s *Service) Create(ctx context.Context, req model.ServiceRequest) (*model.Service, error) {
	service, err := build(req)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, service); err != nil {
		return nil, fmt.Errorf("failed to create service: %w", err)
	}
	return service, nil
}

func (s *Service) Update(ctx context.Context, id int64, req model.ServiceRequest) (*model.Service, error) {
	service, err := build(req)
	if err != nil {
		return nil, err
	}
	service.ID = id
	if err := s.repo.Update(ctx, service); err != nil {
		return nil, fmt.Errorf("failed to update service: %w", err)
	}
	return service, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete service: %w", err)
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id int64) (*model.Service, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, params listquery.Params) (listquery.Page[model.Service], error) {
	return s.repo.List(ctx, params, s.pageSize)
}

func build(req model.ServiceRequest) (*model.Service, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperrors.BadRequest("name is required", nil)
	}
	if req.Fee < 0 {
		return nil, apperrors.BadRequest("fee must not be negative", nil)
	}
	return &model.Service{Name: name, Fee: model.RoundMoney(req.Fee)}, nil
}
