package appointment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jwalitptl/dentalclinic-api/internal/model"
	"github.com/jwalitptl/dentalclinic-api/internal/repository"
	apperrors "github.com/jwalitptl/dentalclinic-api/pkg/errors"
	"github.com/jwalitptl/dentalclinic-api/pkg/listquery"
	"github.com/jwalitptl/dentalclinic-api/pkg/timeutil"
)

type Service struct {
	repo     repository.AppointmentRepository
	loc      *time.Location
	pageSize int
	now      func() time.Time
}

func NewService(repo repository.AppointmentRepository, loc *time.Location, pageSize int) *Service {
	return &Service{repo: repo, loc: loc, pageSize: pageSize, now: time.Now}
}

// Create books an appointment. Its owed amount is the sum of fee x quantity
// over the requested services.
func (s *Service) Create(ctx context.Context, req model.AppointmentRequest) (*model.Appointment, error) {
	appt, err := s.build(req)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, appt, req.MergedLines()); err != nil {
		return nil, fmt.Errorf("failed to create appointment: %w", err)
	}
	return appt, nil
}

// Update replaces the appointment fields and its services.
func (s *Service) Update(ctx context.Context, id int64, req model.AppointmentRequest) (*model.Appointment, error) {
	appt, err := s.build(req)
	if err != nil {
		return nil, err
	}
	appt.ID = id
	if err := s.repo.Update(ctx, appt, req.MergedLines()); err != nil {
		return nil, fmt.Errorf("failed to update appointment: %w", err)
	}
	return appt, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete appointment: %w", err)
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id int64) (*model.Appointment, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, params listquery.Params, filter model.AppointmentFilter) (listquery.Page[model.Appointment], error) {
	return s.repo.List(ctx, params, filter, s.pageSize)
}

// Summary returns the dashboard counters as of today in the clinic zone.
func (s *Service) Summary(ctx context.Context) (*model.AppointmentSummary, error) {
	return s.repo.Summary(ctx, timeutil.CivilDate(s.now(), s.loc))
}

func (s *Service) build(req model.AppointmentRequest) (*model.Appointment, error) {
	date, err := timeutil.ParseCivilDate(req.Date, s.loc)
	if err != nil {
		return nil, apperrors.BadRequest("invalid appointment date", err)
	}
	if _, err := timeutil.ParseClock(req.StartTime); err != nil {
		return nil, apperrors.BadRequest("invalid start time", err)
	}
	if len(req.Services) == 0 {
		return nil, apperrors.BadRequest("at least one service is required", nil)
	}

	status := req.Status
	if status == "" {
		status = model.AppointmentPending
	}

	appt := &model.Appointment{
		PatientID:  req.PatientID,
		EmployeeID: req.EmployeeID,
		Date:       date,
		StartTime:  req.StartTime,
		Status:     status,
	}
	if notes := strings.TrimSpace(req.Notes); notes != "" {
		appt.Notes = &notes
	}
	return appt, nil
}
