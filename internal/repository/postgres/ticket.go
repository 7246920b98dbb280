package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/jwalitptl/dentalclinic-api/internal/model"
	"github.com/jwalitptl/dentalclinic-api/internal/repository"
	apperrors "github.com/jwalitptl/dentalclinic-api/pkg/errors"
	"github.com/jwalitptl/dentalclinic-api/pkg/listquery"
)

const ticketFrom = `FROM tickets t
	JOIN patients p ON p.id = t.patient_id
	JOIN users pu ON pu.id = p.user_id`

const ticketSelect = `SELECT t.id, t.patient_id, t.issue_date, t.receipt_type, t.payment_method,
	t.total_amount, t.paid_amount, t.owed_amount, t.created_at, t.updated_at, t.deleted_at,
	pu.first_name || ' ' || pu.last_name AS patient_name, pu.dni AS patient_dni,
	ARRAY(SELECT ta.appointment_id FROM ticket_appointments ta
		WHERE ta.ticket_id = t.id ORDER BY ta.appointment_id) AS appointment_ids ` + ticketFrom

var ticketList = listquery.Spec{
	SoftDelete:    []string{"t", "p"},
	SearchColumns: []string{"pu.first_name", "pu.last_name", "pu.dni"},
	SearchID:      "t.id",
	DateColumn:    "t.issue_date",
	DateOnly:      true,
	Columns: map[string]string{
		"id":             "t.id",
		"fecha":          "t.issue_date",
		"issue_date":     "t.issue_date",
		"monto":          "t.total_amount",
		"total_amount":   "t.total_amount",
		"paciente":       "pu.last_name",
		"patient":        "pu.last_name",
		"receipt_type":   "t.receipt_type",
		"payment_method": "t.payment_method",
	},
	DefaultOrder: "t.issue_date",
	TieBreaker:   "t.id",
}

type ticketRepository struct {
	BaseRepository
}

func NewTicketRepository(db *sqlx.DB) repository.TicketRepository {
	return &ticketRepository{NewBaseRepository(db)}
}

// Create issues a ticket over the patient's appointments. The total is the sum
// of what those appointments owe at issue time. An initial payment, when
// given, is recorded in the same transaction.
func (r *ticketRepository) Create(ctx context.Context, ticket *model.Ticket, appointmentIDs []int64, initial *model.Payment) error {
	ids := uniqueIDs(appointmentIDs)
	if len(ids) == 0 {
		return apperrors.BadRequest("at least one appointment is required", nil)
	}

	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := ensureActive(ctx, tx, "patients", ticket.PatientID, "patient"); err != nil {
			return err
		}

		var balances []model.Balance
		err := tx.SelectContext(ctx, &balances, `
			SELECT id, owed_amount FROM appointments
			WHERE id = ANY($1) AND patient_id = $2 AND deleted_at IS NULL
			ORDER BY appointment_date, id
			FOR UPDATE`, pq.Int64Array(ids), ticket.PatientID)
		if err != nil {
			return fmt.Errorf("failed to lock appointments: %w", err)
		}
		if len(balances) != len(ids) {
			return apperrors.BadRequest("appointments must exist and belong to the patient", nil)
		}
		if err := ensureUnbilled(ctx, tx, ids); err != nil {
			return err
		}

		var total float64
		for _, b := range balances {
			total += b.Owed
		}
		ticket.TotalAmount = model.RoundMoney(total)
		ticket.PaidAmount = 0
		ticket.OwedAmount = ticket.TotalAmount

		query := `
			INSERT INTO tickets (
				patient_id, issue_date, receipt_type, payment_method,
				total_amount, paid_amount, owed_amount, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
			RETURNING id, created_at, updated_at`
		err = tx.QueryRowxContext(ctx, query,
			ticket.PatientID,
			ticket.IssueDate.Format(listquery.DateLayout),
			ticket.ReceiptType,
			ticket.PaymentMethod,
			ticket.TotalAmount,
			ticket.PaidAmount,
			ticket.OwedAmount,
		).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to create ticket: %w", classify(err, "ticket"))
		}

		for _, id := range ids {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO ticket_appointments (ticket_id, appointment_id) VALUES ($1, $2)`, ticket.ID, id)
			if err != nil {
				return fmt.Errorf("failed to link appointment: %w", classify(err, "ticket"))
			}
		}
		ticket.AppointmentIDs = pq.Int64Array(ids)

		if err := writeEvent(ctx, tx, model.EventTicketCreated, "ticket", ticket.ID); err != nil {
			return err
		}

		if initial == nil || initial.Amount <= 0 {
			return nil
		}
		if err := applyPayment(ctx, tx, ticket.ID, ticket.OwedAmount, balances, initial); err != nil {
			return err
		}
		ticket.PaidAmount = model.RoundMoney(initial.Amount)
		ticket.OwedAmount = model.Owed(ticket.TotalAmount, ticket.PaidAmount)
		ticket.Payments = []model.Payment{*initial}
		return nil
	})
}

func (r *ticketRepository) Update(ctx context.Context, ticket *model.Ticket) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE tickets SET issue_date = $1, receipt_type = $2, payment_method = $3, updated_at = NOW()
			WHERE id = $4 AND deleted_at IS NULL`,
			ticket.IssueDate.Format(listquery.DateLayout), ticket.ReceiptType, ticket.PaymentMethod, ticket.ID)
		if err != nil {
			return fmt.Errorf("failed to update ticket: %w", classify(err, "ticket"))
		}
		if err := requireAffected(res, "ticket"); err != nil {
			return err
		}
		return writeEvent(ctx, tx, model.EventTicketUpdated, "ticket", ticket.ID)
	})
}

func (r *ticketRepository) SoftDelete(ctx context.Context, id int64) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE tickets SET deleted_at = NOW(), updated_at = NOW()
			WHERE id = $1 AND deleted_at IS NULL`, id)
		if err != nil {
			return fmt.Errorf("failed to delete ticket: %w", err)
		}
		if err := requireAffected(res, "ticket"); err != nil {
			return err
		}
		return writeEvent(ctx, tx, model.EventTicketDeleted, "ticket", id)
	})
}

func (r *ticketRepository) Get(ctx context.Context, id int64) (*model.Ticket, error) {
	query := ticketSelect + ` WHERE t.id = $1 AND ` + notDeleted("t") + ` AND ` + notDeleted("p")
	var ticket model.Ticket
	if err := r.db.GetContext(ctx, &ticket, query, id); err != nil {
		return nil, classify(err, "ticket")
	}

	tickets := []model.Ticket{ticket}
	if err := r.attachPayments(ctx, tickets); err != nil {
		return nil, err
	}
	return &tickets[0], nil
}

func (r *ticketRepository) List(ctx context.Context, params listquery.Params, ticketID int64, pageSize int) (listquery.Page[model.Ticket], error) {
	var filters []listquery.Filter
	if ticketID > 0 {
		filters = append(filters, listquery.Eq("t.id", ticketID))
	}

	q := ticketList.Build(params, pageSize, filters...)
	countQuery := `SELECT COUNT(*) ` + ticketFrom + ` ` + q.Where
	selectQuery := ticketSelect + ` ` + q.Where + ` ` + q.OrderBy + ` ` + q.PageClause()

	tickets := []model.Ticket{}
	total, err := r.listPage(ctx, countQuery, selectQuery, q.Args, &tickets)
	if err != nil {
		return listquery.Page[model.Ticket]{}, fmt.Errorf("failed to list tickets: %w", err)
	}
	if err := r.attachPayments(ctx, tickets); err != nil {
		return listquery.Page[model.Ticket]{}, err
	}

	return listquery.Page[model.Ticket]{Items: tickets, Total: total, Page: params.Page, PageSize: q.Limit}, nil
}

// RecordPayment adds a payment to the ticket and spreads it over the linked
// appointments, oldest first.
func (r *ticketRepository) RecordPayment(ctx context.Context, ticketID int64, payment *model.Payment) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		var owed float64
		err := tx.GetContext(ctx, &owed,
			`SELECT owed_amount FROM tickets WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`, ticketID)
		if err != nil {
			return classify(err, "ticket")
		}

		var balances []model.Balance
		err = tx.SelectContext(ctx, &balances, `
			SELECT a.id, a.owed_amount
			FROM appointments a
			JOIN ticket_appointments ta ON ta.appointment_id = a.id
			WHERE ta.ticket_id = $1 AND a.deleted_at IS NULL
			ORDER BY a.appointment_date, a.id
			FOR UPDATE OF a`, ticketID)
		if err != nil {
			return fmt.Errorf("failed to lock appointments: %w", err)
		}

		return applyPayment(ctx, tx, ticketID, owed, balances, payment)
	})
}

func (r *ticketRepository) attachPayments(ctx context.Context, tickets []model.Ticket) error {
	if len(tickets) == 0 {
		return nil
	}
	ids := make([]int64, len(tickets))
	for i := range tickets {
		ids[i] = tickets[i].ID
	}

	payments, err := selectPayments(ctx, r.db, ids)
	if err != nil {
		return err
	}

	byTicket := make(map[int64][]model.Payment, len(tickets))
	for _, p := range payments {
		byTicket[p.TicketID] = append(byTicket[p.TicketID], p)
	}
	for i := range tickets {
		tickets[i].Payments = byTicket[tickets[i].ID]
	}
	return nil
}

// ensureUnbilled rejects appointments already linked to an active ticket.
// The appointment rows must be locked by the caller.
func ensureUnbilled(ctx context.Context, tx *sqlx.Tx, ids []int64) error {
	var billed []int64
	err := tx.SelectContext(ctx, &billed, `
		SELECT DISTINCT ta.appointment_id
		FROM ticket_appointments ta
		JOIN tickets t ON t.id = ta.ticket_id
		WHERE ta.appointment_id = ANY($1) AND t.deleted_at IS NULL
		ORDER BY ta.appointment_id`, pq.Int64Array(ids))
	if err != nil {
		return fmt.Errorf("failed to check billed appointments: %w", err)
	}
	if len(billed) > 0 {
		return apperrors.Conflict(fmt.Sprintf("appointments already billed: %v", billed), nil)
	}
	return nil
}

// applyPayment inserts the payment, lowers the ticket balance and allocates
// the amount over balances in order. owed is the ticket balance before the
// payment. A payment larger than the ticket balance, or than what the linked
// appointments still owe, is rejected before anything is written.
func applyPayment(ctx context.Context, tx *sqlx.Tx, ticketID int64, owed float64, balances []model.Balance, p *model.Payment) error {
	amount := model.RoundMoney(p.Amount)
	if amount <= 0 {
		return apperrors.BadRequest("payment amount must be positive", nil)
	}
	if amount > model.RoundMoney(owed) {
		return apperrors.BadRequest("payment exceeds the owed amount", nil)
	}
	allocs, rest := model.Allocate(amount, balances)
	if rest > 0 {
		return apperrors.BadRequest("payment exceeds what the ticket appointments owe", nil)
	}

	p.Amount = amount
	p.TicketID = ticketID
	p.Status = model.PaymentStatusFor(amount, owed)

	err := tx.QueryRowxContext(ctx, `
		INSERT INTO payments (ticket_id, amount, paid_at, method, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING id, created_at, updated_at`,
		p.TicketID, p.Amount, p.PaidAt.Format(listquery.DateLayout), p.Method, p.Status,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create payment: %w", classify(err, "payment"))
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE tickets SET
			paid_amount = paid_amount + $1,
			owed_amount = GREATEST(owed_amount - $1, 0),
			updated_at = NOW()
		WHERE id = $2`, amount, ticketID)
	if err != nil {
		return fmt.Errorf("failed to update ticket balance: %w", err)
	}

	for _, a := range allocs {
		_, err := tx.ExecContext(ctx, `
			UPDATE appointments SET
				paid_amount = paid_amount + $1,
				owed_amount = GREATEST(owed_amount - $1, 0),
				updated_at = NOW()
			WHERE id = $2`, a.Amount, a.AppointmentID)
		if err != nil {
			return fmt.Errorf("failed to update appointment balance: %w", err)
		}
	}

	return writeEvent(ctx, tx, model.EventPaymentRecorded, "payment", p.ID)
}

func selectPayments(ctx context.Context, q sqlx.QueryerContext, ticketIDs []int64) ([]model.Payment, error) {
	query := `
		SELECT id, ticket_id, amount, paid_at, method, status, created_at, updated_at, deleted_at
		FROM payments
		WHERE ticket_id = ANY($1) AND deleted_at IS NULL
		ORDER BY ticket_id, paid_at, id`

	payments := []model.Payment{}
	if err := sqlx.SelectContext(ctx, q, &payments, query, pq.Int64Array(ticketIDs)); err != nil {
		return nil, fmt.Errorf("failed to load payments: %w", err)
	}
	return payments, nil
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id > 0 && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
