package model

import (
	"time"

	"github.com/lib/pq"
)

type ReceiptType string

const (
	ReceiptBoleta  ReceiptType = "BOLETA"
	ReceiptFactura ReceiptType = "FACTURA"
)

type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "EFECTIVO"
	PaymentCard     PaymentMethod = "TARJETA"
	PaymentTransfer PaymentMethod = "TRANSFERENCIA"
	PaymentYape     PaymentMethod = "YAPE"
)

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "PENDIENTE"
	PaymentComplete PaymentStatus = "COMPLETADO"
	PaymentPartial  PaymentStatus = "FRACCIONADO"
)

type Ticket struct {
	Base
	PatientID     int64         `json:"patient_id" db:"patient_id"`
	IssueDate     time.Time     `json:"issue_date" db:"issue_date"`
	ReceiptType   ReceiptType   `json:"receipt_type" db:"receipt_type"`
	PaymentMethod PaymentMethod `json:"payment_method" db:"payment_method"`
	TotalAmount   float64       `json:"total_amount" db:"total_amount"`
	PaidAmount    float64       `json:"paid_amount" db:"paid_amount"`
	OwedAmount    float64       `json:"owed_amount" db:"owed_amount"`

	PatientName string `json:"patient_name,omitempty" db:"patient_name"`
	PatientDNI  string `json:"patient_dni,omitempty" db:"patient_dni"`

	AppointmentIDs pq.Int64Array `json:"appointment_ids,omitempty" db:"appointment_ids"`
	Payments       []Payment     `json:"payments,omitempty" db:"-"`
}

type Payment struct {
	Base
	TicketID int64         `json:"ticket_id" db:"ticket_id"`
	Amount   float64       `json:"amount" db:"amount"`
	PaidAt   time.Time     `json:"paid_at" db:"paid_at"`
	Method   PaymentMethod `json:"method" db:"method"`
	Status   PaymentStatus `json:"status" db:"status"`
}

type CreateTicketRequest struct {
	PatientID      int64         `json:"patient_id" binding:"required,gt=0"`
	IssueDate      string        `json:"issue_date"`
	ReceiptType    ReceiptType   `json:"receipt_type" binding:"required,oneof=BOLETA FACTURA"`
	PaymentMethod  PaymentMethod `json:"payment_method" binding:"required,oneof=EFECTIVO TARJETA TRANSFERENCIA YAPE"`
	AppointmentIDs []int64       `json:"appointment_ids" binding:"required,min=1,dive,gt=0"`
	InitialPayment float64       `json:"initial_payment" binding:"gte=0"`
}

type UpdateTicketRequest struct {
	IssueDate     string        `json:"issue_date"`
	ReceiptType   ReceiptType   `json:"receipt_type" binding:"required,oneof=BOLETA FACTURA"`
	PaymentMethod PaymentMethod `json:"payment_method" binding:"required,oneof=EFECTIVO TARJETA TRANSFERENCIA YAPE"`
}

type PaymentRequest struct {
	Amount float64       `json:"amount" binding:"required,gt=0"`
	Method PaymentMethod `json:"method" binding:"required,oneof=EFECTIVO TARJETA TRANSFERENCIA YAPE"`
	PaidAt string        `json:"paid_at"`
}

// PaymentStatusFor classifies a payment against the balance it pays into.
func PaymentStatusFor(amount, owedBefore float64) PaymentStatus {
	switch {
	case amount <= 0:
		return PaymentPending
	case RoundMoney(amount) >= RoundMoney(owedBefore):
		return PaymentComplete
	default:
		return PaymentPartial
	}
}

// Balance is an appointment's outstanding amount, used for allocation.
type Balance struct {
	AppointmentID int64   `db:"id"`
	Owed          float64 `db:"owed_amount"`
}

// Allocation is the part of a payment applied to one appointment.
type Allocation struct {
	AppointmentID int64
	Amount        float64
}

// Allocate spreads amount over balances in order, never exceeding an
// appointment's owed amount. Whatever cannot be placed is returned as rest.
func Allocate(amount float64, balances []Balance) (allocs []Allocation, rest float64) {
	remaining := RoundMoney(amount)
	for _, b := range balances {
		if remaining <= 0 {
			break
		}
		if b.Owed <= 0 {
			continue
		}
		part := b.Owed
		if remaining < part {
			part = remaining
		}
		part = RoundMoney(part)
		allocs = append(allocs, Allocation{AppointmentID: b.AppointmentID, Amount: part})
		remaining = RoundMoney(remaining - part)
	}
	return allocs, remaining
}
