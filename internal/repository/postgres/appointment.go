package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/jwalitptl/dentalclinic-api/internal/model"
	"github.com/jwalitptl/dentalclinic-api/internal/repository"
	apperrors "github.com/jwalitptl/dentalclinic-api/pkg/errors"
	"github.com/jwalitptl/dentalclinic-api/pkg/listquery"
)

const appointmentFrom = `FROM appointments a
	JOIN patients p ON p.id = a.patient_id
	JOIN users pu ON pu.id = p.user_id
	JOIN employees e ON e.id = a.employee_id
	JOIN users eu ON eu.id = e.user_id`

const appointmentSelect = `SELECT a.id, a.patient_id, a.employee_id, a.appointment_date,
	to_char(a.start_time, 'HH24:MI') AS start_time, a.status, a.paid_amount, a.owed_amount, a.notes,
	a.created_at, a.updated_at, a.deleted_at,
	pu.first_name || ' ' || pu.last_name AS patient_name, pu.dni AS patient_dni,
	eu.first_name || ' ' || eu.last_name AS doctor_name ` + appointmentFrom

var appointmentList = listquery.Spec{
	SoftDelete:    []string{"a", "p"},
	SearchColumns: []string{"pu.first_name", "pu.last_name", "pu.dni"},
	DateColumn:    "a.appointment_date",
	DateOnly:      true,
	Columns: map[string]string{
		"fecha":       "a.appointment_date",
		"date":        "a.appointment_date",
		"hora":        "a.start_time",
		"start_time":  "a.start_time",
		"estado":      "a.status",
		"status":      "a.status",
		"paciente":    "pu.last_name",
		"patient":     "pu.last_name",
		"doctor":      "eu.last_name",
		"owed_amount": "a.owed_amount",
	},
	DefaultOrder: "a.appointment_date",
	TieBreaker:   "a.id",
}

type appointmentRepository struct {
	BaseRepository
}

func NewAppointmentRepository(db *sqlx.DB) repository.AppointmentRepository {
	return &appointmentRepository{NewBaseRepository(db)}
}

func (r *appointmentRepository) Create(ctx context.Context, appt *model.Appointment, lines []model.ServiceLine) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := checkParties(ctx, tx, appt); err != nil {
			return err
		}

		items, err := priceLines(ctx, tx, lines)
		if err != nil {
			return err
		}
		appt.PaidAmount = 0
		appt.OwedAmount = model.LinesTotal(items)

		query := `
			INSERT INTO appointments (
				patient_id, employee_id, appointment_date, start_time, status,
				paid_amount, owed_amount, notes, created_at, updated_at
			) VALUES ($1, $2, $3, $4::time, $5, $6, $7, $8, NOW(), NOW())
			RETURNING id, created_at, updated_at`
		err = tx.QueryRowxContext(ctx, query,
			appt.PatientID,
			appt.EmployeeID,
			appt.Date.Format(listquery.DateLayout),
			appt.StartTime,
			appt.Status,
			appt.PaidAmount,
			appt.OwedAmount,
			appt.Notes,
		).Scan(&appt.ID, &appt.CreatedAt, &appt.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to create appointment: %w", classify(err, "appointment"))
		}

		if err := insertLines(ctx, tx, appt.ID, items); err != nil {
			return err
		}
		appt.Services = withAppointment(items, appt.ID)

		return writeEvent(ctx, tx, model.EventAppointmentCreated, "appointment", appt.ID)
	})
}

// Update replaces the line items and recomputes the owed amount against what
// has already been paid.
func (r *appointmentRepository) Update(ctx context.Context, appt *model.Appointment, lines []model.ServiceLine) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		var paid float64
		err := tx.GetContext(ctx, &paid,
			`SELECT paid_amount FROM appointments WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`, appt.ID)
		if err != nil {
			return classify(err, "appointment")
		}

		if err := checkParties(ctx, tx, appt); err != nil {
			return err
		}

		items, err := priceLines(ctx, tx, lines)
		if err != nil {
			return err
		}
		appt.PaidAmount = paid
		appt.OwedAmount = model.Owed(model.LinesTotal(items), paid)

		_, err = tx.ExecContext(ctx, `
			UPDATE appointments SET
				patient_id = $1, employee_id = $2, appointment_date = $3, start_time = $4::time,
				status = $5, notes = $6, owed_amount = $7, updated_at = NOW()
			WHERE id = $8`,
			appt.PatientID,
			appt.EmployeeID,
			appt.Date.Format(listquery.DateLayout),
			appt.StartTime,
			appt.Status,
			appt.Notes,
			appt.OwedAmount,
			appt.ID,
		)
		if err != nil {
			return fmt.Errorf("failed to update appointment: %w", classify(err, "appointment"))
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM appointment_services WHERE appointment_id = $1`, appt.ID); err != nil {
			return fmt.Errorf("failed to clear appointment services: %w", err)
		}
		if err := insertLines(ctx, tx, appt.ID, items); err != nil {
			return err
		}
		appt.Services = withAppointment(items, appt.ID)

		return writeEvent(ctx, tx, model.EventAppointmentUpdated, "appointment", appt.ID)
	})
}

func (r *appointmentRepository) SoftDelete(ctx context.Context, id int64) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE appointments SET deleted_at = NOW(), updated_at = NOW()
			WHERE id = $1 AND deleted_at IS NULL`, id)
		if err != nil {
			return fmt.Errorf("failed to delete appointment: %w", err)
		}
		if err := requireAffected(res, "appointment"); err != nil {
			return err
		}
		return writeEvent(ctx, tx, model.EventAppointmentDeleted, "appointment", id)
	})
}

func (r *appointmentRepository) Get(ctx context.Context, id int64) (*model.Appointment, error) {
	query := appointmentSelect + ` WHERE a.id = $1 AND ` + notDeleted("a") + ` AND ` + notDeleted("p")
	var appt model.Appointment
	if err := r.db.GetContext(ctx, &appt, query, id); err != nil {
		return nil, classify(err, "appointment")
	}

	appts := []model.Appointment{appt}
	if err := r.attachLines(ctx, appts); err != nil {
		return nil, err
	}
	return &appts[0], nil
}

func (r *appointmentRepository) List(ctx context.Context, params listquery.Params, filter model.AppointmentFilter, pageSize int) (listquery.Page[model.Appointment], error) {
	var filters []listquery.Filter
	if filter.PatientID > 0 {
		filters = append(filters, listquery.Eq("a.patient_id", filter.PatientID))
	}
	if filter.EmployeeID > 0 {
		filters = append(filters, listquery.Eq("a.employee_id", filter.EmployeeID))
	}
	if filter.Status != "" {
		filters = append(filters, listquery.Eq("a.status", filter.Status))
	}

	q := appointmentList.Build(params, pageSize, filters...)
	countQuery := `SELECT COUNT(*) ` + appointmentFrom + ` ` + q.Where
	selectQuery := appointmentSelect + ` ` + q.Where + ` ` + q.OrderBy + ` ` + q.PageClause()

	appts := []model.Appointment{}
	total, err := r.listPage(ctx, countQuery, selectQuery, q.Args, &appts)
	if err != nil {
		return listquery.Page[model.Appointment]{}, fmt.Errorf("failed to list appointments: %w", err)
	}
	if err := r.attachLines(ctx, appts); err != nil {
		return listquery.Page[model.Appointment]{}, err
	}

	return listquery.Page[model.Appointment]{Items: appts, Total: total, Page: params.Page, PageSize: q.Limit}, nil
}

// Summary counts active appointments, active patients and appointments from
// today on that are still pending or confirmed.
func (r *appointmentRepository) Summary(ctx context.Context, today time.Time) (*model.AppointmentSummary, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM appointments a JOIN patients p ON p.id = a.patient_id
				WHERE a.deleted_at IS NULL AND p.deleted_at IS NULL) AS total_appointments,
			(SELECT COUNT(*) FROM patients p WHERE p.deleted_at IS NULL) AS total_patients,
			(SELECT COUNT(*) FROM appointments a JOIN patients p ON p.id = a.patient_id
				WHERE a.deleted_at IS NULL AND p.deleted_at IS NULL
				AND a.appointment_date >= $1::date AND a.status IN ($2, $3)) AS upcoming_appointments`

	var summary model.AppointmentSummary
	err := r.db.GetContext(ctx, &summary, query,
		today.Format(listquery.DateLayout), model.AppointmentPending, model.AppointmentConfirmed)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize appointments: %w", err)
	}
	return &summary, nil
}

func (r *appointmentRepository) Notice(ctx context.Context, id int64) (*model.AppointmentNotice, error) {
	query := `
		SELECT a.id, a.appointment_date, to_char(a.start_time, 'HH24:MI') AS start_time,
			pu.first_name || ' ' || pu.last_name AS patient_name, pu.email AS patient_email,
			eu.first_name || ' ' || eu.last_name AS doctor_name
		` + appointmentFrom + `
		WHERE a.id = $1 AND ` + notDeleted("a") + ` AND ` + notDeleted("p")

	var notice model.AppointmentNotice
	if err := r.db.GetContext(ctx, &notice, query, id); err != nil {
		return nil, classify(err, "appointment")
	}
	return &notice, nil
}

func (r *appointmentRepository) attachLines(ctx context.Context, appts []model.Appointment) error {
	if len(appts) == 0 {
		return nil
	}
	ids := make([]int64, len(appts))
	for i := range appts {
		ids[i] = appts[i].ID
	}

	lines, err := selectLines(ctx, r.db, ids)
	if err != nil {
		return err
	}

	byAppt := make(map[int64][]model.LineItem, len(appts))
	for _, l := range lines {
		byAppt[l.AppointmentID] = append(byAppt[l.AppointmentID], l)
	}
	for i := range appts {
		appts[i].Services = byAppt[appts[i].ID]
	}
	return nil
}

// selectLines loads the line items of the given appointments. Lines keep
// pointing at services deleted after the appointment was booked.
func selectLines(ctx context.Context, q sqlx.QueryerContext, appointmentIDs []int64) ([]model.LineItem, error) {
	query := `
		SELECT aps.appointment_id, aps.service_id, s.name, s.fee, aps.quantity
		FROM appointment_services aps
		JOIN services s ON s.id = aps.service_id
		WHERE aps.appointment_id = ANY($1)
		ORDER BY aps.appointment_id, s.name, aps.service_id`

	lines := []model.LineItem{}
	if err := sqlx.SelectContext(ctx, q, &lines, query, pq.Int64Array(appointmentIDs)); err != nil {
		return nil, fmt.Errorf("failed to load appointment services: %w", err)
	}
	return lines, nil
}

func checkParties(ctx context.Context, tx *sqlx.Tx, appt *model.Appointment) error {
	if err := ensureActive(ctx, tx, "patients", appt.PatientID, "patient"); err != nil {
		return err
	}
	return ensureActive(ctx, tx, "employees", appt.EmployeeID, "employee")
}

// priceLines reads the current fee of every requested service. A missing or
// deleted service rejects the whole request.
func priceLines(ctx context.Context, tx *sqlx.Tx, lines []model.ServiceLine) ([]model.LineItem, error) {
	if len(lines) == 0 {
		return nil, apperrors.BadRequest("at least one service is required", nil)
	}

	ids := make([]int64, len(lines))
	for i, l := range lines {
		ids[i] = l.ServiceID
	}

	var services []model.Service
	err := tx.SelectContext(ctx, &services,
		`SELECT id, name, fee FROM services WHERE id = ANY($1) AND deleted_at IS NULL`, pq.Int64Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to price services: %w", err)
	}

	byID := make(map[int64]model.Service, len(services))
	for _, s := range services {
		byID[s.ID] = s
	}

	items := make([]model.LineItem, 0, len(lines))
	for _, l := range lines {
		s, ok := byID[l.ServiceID]
		if !ok {
			return nil, apperrors.BadRequest(fmt.Sprintf("service %d does not exist", l.ServiceID), nil)
		}
		items = append(items, model.LineItem{ServiceID: s.ID, Name: s.Name, Fee: s.Fee, Quantity: l.Quantity})
	}
	return items, nil
}

func insertLines(ctx context.Context, tx *sqlx.Tx, appointmentID int64, items []model.LineItem) error {
	for _, item := range items {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO appointment_services (appointment_id, service_id, quantity)
			VALUES ($1, $2, $3)`, appointmentID, item.ServiceID, item.Quantity)
		if err != nil {
			return fmt.Errorf("failed to add service to appointment: %w", classify(err, "appointment service"))
		}
	}
	return nil
}

func withAppointment(items []model.LineItem, appointmentID int64) []model.LineItem {
	for i := range items {
		items[i].AppointmentID = appointmentID
	}
	return items
}
