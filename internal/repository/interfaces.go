package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/dentalclinic-api/internal/model"
	"github.com/jwalitptl/dentalclinic-api/pkg/listquery"
)

// All repository interfaces in one file
type (
	UserRepository interface {
		GetByDNI(ctx context.Context, dni string) (*model.User, error)
		Get(ctx context.Context, id int64) (*model.User, error)
	}

	// PatientRepository writes the patient and its backing user together.
	PatientRepository interface {
		Create(ctx context.Context, patient *model.Patient) error
		Update(ctx context.Context, patient *model.Patient, withPassword bool) error
		SoftDelete(ctx context.Context, id int64) error
		Get(ctx context.Context, id int64) (*model.Patient, error)
		List(ctx context.Context, params listquery.Params, pageSize int) (listquery.Page[model.Patient], error)
	}

	EmployeeRepository interface {
		Create(ctx context.Context, employee *model.Employee) error
		Update(ctx context.Context, employee *model.Employee, withPassword bool) error
		UpdateSpecialty(ctx context.Context, id int64, specialty string) error
		SoftDelete(ctx context.Context, id int64) error
		Get(ctx context.Context, id int64) (*model.Employee, error)
		List(ctx context.Context, params listquery.Params, pageSize int) (listquery.Page[model.Employee], error)
		ListDoctors(ctx context.Context) ([]model.Employee, error)
	}

	ServiceRepository interface {
		Create(ctx context.Context, service *model.Service) error
		Update(ctx context.Context, service *model.Service) error
		SoftDelete(ctx context.Context, id int64) error
		Get(ctx context.Context, id int64) (*model.Service, error)
		List(ctx context.Context, params listquery.Params, pageSize int) (listquery.Page[model.Service], error)
	}

	// AppointmentRepository prices line items from the service catalog.
	AppointmentRepository interface {
		Create(ctx context.Context, appointment *model.Appointment, lines []model.ServiceLine) error
		Update(ctx context.Context, appointment *model.Appointment, lines []model.ServiceLine) error
		SoftDelete(ctx context.Context, id int64) error
		Get(ctx context.Context, id int64) (*model.Appointment, error)
		List(ctx context.Context, params listquery.Params, filter model.AppointmentFilter, pageSize int) (listquery.Page[model.Appointment], error)
		Summary(ctx context.Context, today time.Time) (*model.AppointmentSummary, error)
		Notice(ctx context.Context, id int64) (*model.AppointmentNotice, error)
	}

	TicketRepository interface {
		Create(ctx context.Context, ticket *model.Ticket, appointmentIDs []int64, initial *model.Payment) error
		Update(ctx context.Context, ticket *model.Ticket) error
		SoftDelete(ctx context.Context, id int64) error
		Get(ctx context.Context, id int64) (*model.Ticket, error)
		List(ctx context.Context, params listquery.Params, ticketID int64, pageSize int) (listquery.Page[model.Ticket], error)
		RecordPayment(ctx context.Context, ticketID int64, payment *model.Payment) error
	}

	// FormDataRepository serves the read-only side queries behind forms.
	FormDataRepository interface {
		ActivePatients(ctx context.Context) ([]model.PersonRef, error)
		ActiveAppointments(ctx context.Context) ([]model.AppointmentRow, error)
		AppointmentLines(ctx context.Context, appointmentIDs []int64) ([]model.LineItem, error)
		ActiveDoctors(ctx context.Context) ([]model.PersonRef, error)
		ActiveServices(ctx context.Context) ([]model.Service, error)
		ActiveTickets(ctx context.Context) ([]model.TicketRow, error)
		TicketLinks(ctx context.Context) ([]model.TicketLink, error)
		TicketPayments(ctx context.Context, ticketIDs []int64) ([]model.Payment, error)
		PatientUsers(ctx context.Context) ([]model.Option, error)
		EmployeeUsers(ctx context.Context) ([]model.Option, error)
	}

	OutboxRepository interface {
		WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error
		GetPendingEventsWithLock(ctx context.Context, tx *sqlx.Tx, limit int) ([]*model.OutboxEvent, error)
		UpdateStatusTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, status model.OutboxStatus, errorMessage *string, retryAt *time.Time) error
		CountPending(ctx context.Context) (int, error)
		DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
	}
)
