package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/dentalclinic-api/internal/model"
	"github.com/jwalitptl/dentalclinic-api/internal/repository"
)

// formDataRepository runs the read-only lookups that feed form option lists.
type formDataRepository struct {
	BaseRepository
}

func NewFormDataRepository(db *sqlx.DB) repository.FormDataRepository {
	return &formDataRepository{NewBaseRepository(db)}
}

func (r *formDataRepository) ActivePatients(ctx context.Context) ([]model.PersonRef, error) {
	query := `
		SELECT p.id, u.first_name, u.last_name
		FROM patients p JOIN users u ON u.id = p.user_id
		WHERE ` + notDeleted("p") + ` AND ` + notDeleted("u") + `
		ORDER BY u.last_name, u.first_name, p.id`

	patients := []model.PersonRef{}
	if err := r.db.SelectContext(ctx, &patients, query); err != nil {
		return nil, fmt.Errorf("failed to load patients: %w", err)
	}
	return patients, nil
}

func (r *formDataRepository) ActiveAppointments(ctx context.Context) ([]model.AppointmentRow, error) {
	query := `
		SELECT a.id, a.patient_id, a.appointment_date, a.status, a.paid_amount, a.owed_amount
		FROM appointments a
		WHERE ` + notDeleted("a") + `
		ORDER BY a.appointment_date, a.id`

	rows := []model.AppointmentRow{}
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to load appointments: %w", err)
	}
	return rows, nil
}

func (r *formDataRepository) AppointmentLines(ctx context.Context, appointmentIDs []int64) ([]model.LineItem, error) {
	if len(appointmentIDs) == 0 {
		return []model.LineItem{}, nil
	}
	return selectLines(ctx, r.db, appointmentIDs)
}

func (r *formDataRepository) ActiveDoctors(ctx context.Context) ([]model.PersonRef, error) {
	query := `
		SELECT e.id, u.first_name, u.last_name
		FROM employees e JOIN users u ON u.id = e.user_id
		WHERE ` + notDeleted("e") + ` AND ` + notDeleted("u") + `
		AND EXISTS (
			SELECT 1 FROM user_roles ur JOIN roles r ON r.id = ur.role_id
			WHERE ur.user_id = u.id AND r.name = $1
		)
		ORDER BY u.last_name, u.first_name, e.id`

	doctors := []model.PersonRef{}
	if err := r.db.SelectContext(ctx, &doctors, query, model.RoleDoctor); err != nil {
		return nil, fmt.Errorf("failed to load doctors: %w", err)
	}
	return doctors, nil
}

func (r *formDataRepository) ActiveServices(ctx context.Context) ([]model.Service, error) {
	query := serviceSelect + ` WHERE ` + notDeleted("s") + ` ORDER BY s.name, s.id`

	services := []model.Service{}
	if err := r.db.SelectContext(ctx, &services, query); err != nil {
		return nil, fmt.Errorf("failed to load services: %w", err)
	}
	return services, nil
}

func (r *formDataRepository) ActiveTickets(ctx context.Context) ([]model.TicketRow, error) {
	query := `
		SELECT t.id, t.patient_id, t.issue_date, t.receipt_type, t.payment_method,
			t.total_amount, t.paid_amount, t.owed_amount,
			pu.first_name AS patient_first_name, pu.last_name AS patient_last_name
		` + ticketFrom + `
		WHERE ` + notDeleted("t") + ` AND ` + notDeleted("p") + `
		ORDER BY t.issue_date DESC, t.id DESC`

	tickets := []model.TicketRow{}
	if err := r.db.SelectContext(ctx, &tickets, query); err != nil {
		return nil, fmt.Errorf("failed to load tickets: %w", err)
	}
	return tickets, nil
}

func (r *formDataRepository) TicketLinks(ctx context.Context) ([]model.TicketLink, error) {
	query := `
		SELECT ta.ticket_id, ta.appointment_id
		FROM ticket_appointments ta
		JOIN tickets t ON t.id = ta.ticket_id
		WHERE ` + notDeleted("t") + `
		ORDER BY ta.ticket_id, ta.appointment_id`

	links := []model.TicketLink{}
	if err := r.db.SelectContext(ctx, &links, query); err != nil {
		return nil, fmt.Errorf("failed to load ticket links: %w", err)
	}
	return links, nil
}

func (r *formDataRepository) TicketPayments(ctx context.Context, ticketIDs []int64) ([]model.Payment, error) {
	if len(ticketIDs) == 0 {
		return []model.Payment{}, nil
	}
	return selectPayments(ctx, r.db, ticketIDs)
}

func (r *formDataRepository) PatientUsers(ctx context.Context) ([]model.Option, error) {
	return r.userOptions(ctx, "patients")
}

func (r *formDataRepository) EmployeeUsers(ctx context.Context) ([]model.Option, error) {
	return r.userOptions(ctx, "employees")
}

// userOptions lists active users backing an active row of table.
func (r *formDataRepository) userOptions(ctx context.Context, table string) ([]model.Option, error) {
	query := fmt.Sprintf(`
		SELECT u.id, u.first_name || ' ' || u.last_name AS name
		FROM users u JOIN %s x ON x.user_id = u.id
		WHERE u.deleted_at IS NULL AND x.deleted_at IS NULL
		ORDER BY u.last_name, u.first_name, u.id`, table)

	options := []model.Option{}
	if err := r.db.SelectContext(ctx, &options, query); err != nil {
		return nil, fmt.Errorf("failed to load %s users: %w", table, err)
	}
	return options, nil
}
