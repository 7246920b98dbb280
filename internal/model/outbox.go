package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "pending"
	OutboxStatusRetry     OutboxStatus = "retry"
	OutboxStatusProcessed OutboxStatus = "processed"
	OutboxStatusFailed    OutboxStatus = "failed"
)

// Event types written alongside mutations.
const (
	EventPatientCreated     = "patient.created"
	EventPatientUpdated     = "patient.updated"
	EventPatientDeleted     = "patient.deleted"
	EventEmployeeCreated    = "employee.created"
	EventEmployeeUpdated    = "employee.updated"
	EventEmployeeDeleted    = "employee.deleted"
	EventServiceCreated     = "service.created"
	EventServiceUpdated     = "service.updated"
	EventServiceDeleted     = "service.deleted"
	EventAppointmentCreated = "appointment.created"
	EventAppointmentUpdated = "appointment.updated"
	EventAppointmentDeleted = "appointment.deleted"
	EventTicketCreated      = "ticket.created"
	EventTicketUpdated      = "ticket.updated"
	EventTicketDeleted      = "ticket.deleted"
	EventPaymentRecorded    = "payment.recorded"
)

type OutboxEvent struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	EventType    string          `db:"event_type" json:"event_type"`
	Payload      json.RawMessage `db:"payload" json:"payload"`
	Status       OutboxStatus    `db:"status" json:"status"`
	ErrorMessage *string         `db:"error_message" json:"error_message,omitempty"`
	RetryCount   int             `db:"retry_count" json:"retry_count"`
	RetryAt      *time.Time      `db:"retry_at" json:"retry_at,omitempty"`
	ProcessedAt  *time.Time      `db:"processed_at" json:"processed_at,omitempty"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
}

// EntityEvent is the payload of every entity event.
type EntityEvent struct {
	Entity string    `json:"entity"`
	ID     int64     `json:"id"`
	At     time.Time `json:"at"`
}
