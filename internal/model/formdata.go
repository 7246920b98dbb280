package model

import "time"

// FormMode is the mode a form is opened in.
type FormMode string

const (
	FormCreate FormMode = "create"
	FormUpdate FormMode = "update"
	FormView   FormMode = "view"
	FormDelete FormMode = "delete"
)

// Option is an entry of a select input.
type Option struct {
	ID   int64  `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

// PersonRef is a patient or employee reduced to id and names.
type PersonRef struct {
	ID        int64  `json:"id" db:"id"`
	FirstName string `json:"first_name" db:"first_name"`
	LastName  string `json:"last_name" db:"last_name"`
}

// AppointmentRow is a flat appointment as read for form data.
type AppointmentRow struct {
	ID         int64             `db:"id"`
	PatientID  int64             `db:"patient_id"`
	Date       time.Time         `db:"appointment_date"`
	Status     AppointmentStatus `db:"status"`
	PaidAmount float64           `db:"paid_amount"`
	OwedAmount float64           `db:"owed_amount"`
}

// TicketRow is a flat ticket with its patient's names.
type TicketRow struct {
	ID               int64         `db:"id"`
	PatientID        int64         `db:"patient_id"`
	IssueDate        time.Time     `db:"issue_date"`
	ReceiptType      ReceiptType   `db:"receipt_type"`
	PaymentMethod    PaymentMethod `db:"payment_method"`
	TotalAmount      float64       `db:"total_amount"`
	PaidAmount       float64       `db:"paid_amount"`
	OwedAmount       float64       `db:"owed_amount"`
	PatientFirstName string        `db:"patient_first_name"`
	PatientLastName  string        `db:"patient_last_name"`
}

// TicketLink joins a ticket to an appointment.
type TicketLink struct {
	TicketID      int64 `db:"ticket_id"`
	AppointmentID int64 `db:"appointment_id"`
}

// AppointmentView is the nested appointment shape shared by every form.
type AppointmentView struct {
	ID         int64             `json:"id"`
	Date       time.Time         `json:"date"`
	Status     AppointmentStatus `json:"status"`
	Total      float64           `json:"total"`
	PaidAmount float64           `json:"paid_amount"`
	OwedAmount float64           `json:"owed_amount"`
	Services   []LineItem        `json:"services"`
	Payments   []Payment         `json:"payments"`
}

// PatientAccount is a patient with its active appointments.
type PatientAccount struct {
	PersonRef
	Appointments []AppointmentView `json:"appointments"`
}

type TicketView struct {
	ID            int64             `json:"id"`
	IssueDate     time.Time         `json:"issue_date"`
	ReceiptType   ReceiptType       `json:"receipt_type"`
	PaymentMethod PaymentMethod     `json:"payment_method"`
	TotalAmount   float64           `json:"total_amount"`
	PaidAmount    float64           `json:"paid_amount"`
	OwedAmount    float64           `json:"owed_amount"`
	Patient       PersonRef         `json:"patient"`
	Payments      []Payment         `json:"payments"`
	Appointments  []AppointmentView `json:"appointments"`
}

type AppointmentFormData struct {
	Patients         []PatientAccount `json:"patients"`
	Employees        []PersonRef      `json:"employees"`
	Services         []Service        `json:"services"`
	SelectedServices []LineItem       `json:"selected_services"`
}

type TicketFormData struct {
	Tickets  []TicketView     `json:"tickets"`
	Patients []PatientAccount `json:"patients"`
}

type UserOptions struct {
	Users []Option `json:"users"`
}

type DoctorOptions struct {
	Doctors []Option `json:"doctors"`
}

// EmptyFormData is returned for forms that need no reference data.
type EmptyFormData struct{}
