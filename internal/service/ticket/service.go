package ticket

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jwalitptl/dentalclinic-api/internal/model"
	"github.com/jwalitptl/dentalclinic-api/internal/repository"
	apperrors "github.com/jwalitptl/dentalclinic-api/pkg/errors"
	"github.com/jwalitptl/dentalclinic-api/pkg/listquery"
	"github.com/jwalitptl/dentalclinic-api/pkg/timeutil"
)

type Service struct {
	repo     repository.TicketRepository
	loc      *time.Location
	pageSize int
	now      func() time.Time
	recorded prometheus.Counter
}

func NewService(repo repository.TicketRepository, loc *time.Location, pageSize int) *Service {
	return &Service{repo: repo, loc: loc, pageSize: pageSize, now: time.Now}
}

// WithPaymentCounter counts every recorded payment on c.
func (s *Service) WithPaymentCounter(c prometheus.Counter) *Service {
	s.recorded = c
	return s
}

// Create issues a ticket for the given appointments of one patient, with an
// optional initial payment made by the ticket's payment method.
func (s *Service) Create(ctx context.Context, req model.CreateTicketRequest) (*model.Ticket, error) {
	issued, err := s.date(req.IssueDate)
	if err != nil {
		return nil, apperrors.BadRequest("invalid issue date", err)
	}

	ticket := &model.Ticket{
		PatientID:     req.PatientID,
		IssueDate:     issued,
		ReceiptType:   req.ReceiptType,
		PaymentMethod: req.PaymentMethod,
	}

	var initial *model.Payment
	if req.InitialPayment > 0 {
		initial = &model.Payment{
			Amount: req.InitialPayment,
			Method: req.PaymentMethod,
			PaidAt: issued,
		}
	}

	if err := s.repo.Create(ctx, ticket, req.AppointmentIDs, initial); err != nil {
		return nil, fmt.Errorf("failed to create ticket: %w", err)
	}
	return ticket, nil
}

func (s *Service) Update(ctx context.Context, id int64, req model.UpdateTicketRequest) (*model.Ticket, error) {
	issued, err := s.date(req.IssueDate)
	if err != nil {
		return nil, apperrors.BadRequest("invalid issue date", err)
	}

	ticket := &model.Ticket{
		Base:          model.Base{ID: id},
		IssueDate:     issued,
		ReceiptType:   req.ReceiptType,
		PaymentMethod: req.PaymentMethod,
	}
	if err := s.repo.Update(ctx, ticket); err != nil {
		return nil, fmt.Errorf("failed to update ticket: %w", err)
	}
	return ticket, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete ticket: %w", err)
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id int64) (*model.Ticket, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, params listquery.Params, ticketID int64) (listquery.Page[model.Ticket], error) {
	return s.repo.List(ctx, params, ticketID, s.pageSize)
}

// RecordPayment pays into a ticket. The payment status is derived from the
// ticket balance at the time of payment.
func (s *Service) RecordPayment(ctx context.Context, ticketID int64, req model.PaymentRequest) (*model.Payment, error) {
	paidAt, err := s.date(req.PaidAt)
	if err != nil {
		return nil, apperrors.BadRequest("invalid payment date", err)
	}
	if req.Amount <= 0 {
		return nil, apperrors.BadRequest("payment amount must be positive", nil)
	}

	payment := &model.Payment{Amount: req.Amount, Method: req.Method, PaidAt: paidAt}
	if err := s.repo.RecordPayment(ctx, ticketID, payment); err != nil {
		return nil, fmt.Errorf("failed to record payment: %w", err)
	}
	if s.recorded != nil {
		s.recorded.Inc()
	}
	return payment, nil
}

// date parses raw in the clinic zone; empty means today.
func (s *Service) date(raw string) (time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return timeutil.CivilDate(s.now(), s.loc), nil
	}
	return timeutil.ParseCivilDate(strings.TrimSpace(raw), s.loc)
}
