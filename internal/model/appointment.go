package model

import "time"

type AppointmentStatus string

const (
	AppointmentPending   AppointmentStatus = "PENDIENTE"
	AppointmentConfirmed AppointmentStatus = "CONFIRMADA"
	AppointmentAttended  AppointmentStatus = "ATENDIDA"
	AppointmentCancelled AppointmentStatus = "CANCELADA"
)

type Appointment struct {
	Base
	PatientID  int64             `json:"patient_id" db:"patient_id"`
	EmployeeID int64             `json:"employee_id" db:"employee_id"`
	Date       time.Time         `json:"date" db:"appointment_date"`
	StartTime  string            `json:"start_time" db:"start_time"`
	Status     AppointmentStatus `json:"status" db:"status"`
	PaidAmount float64           `json:"paid_amount" db:"paid_amount"`
	OwedAmount float64           `json:"owed_amount" db:"owed_amount"`
	Notes      *string           `json:"notes,omitempty" db:"notes"`

	PatientName string `json:"patient_name,omitempty" db:"patient_name"`
	PatientDNI  string `json:"patient_dni,omitempty" db:"patient_dni"`
	DoctorName  string `json:"doctor_name,omitempty" db:"doctor_name"`

	Services []LineItem `json:"services,omitempty" db:"-"`
}

// LineItem is a service charged on an appointment.
type LineItem struct {
	AppointmentID int64   `json:"-" db:"appointment_id"`
	ServiceID     int64   `json:"service_id" db:"service_id"`
	Name          string  `json:"name" db:"name"`
	Fee           float64 `json:"fee" db:"fee"`
	Quantity      int     `json:"quantity" db:"quantity"`
}

func (l LineItem) Total() float64 {
	return RoundMoney(l.Fee * float64(l.Quantity))
}

// LinesTotal sums fee x quantity over lines.
func LinesTotal(lines []LineItem) float64 {
	var total float64
	for _, l := range lines {
		total += l.Fee * float64(l.Quantity)
	}
	return RoundMoney(total)
}

// Owed is the outstanding balance, never negative.
func Owed(total, paid float64) float64 {
	owed := RoundMoney(total - paid)
	if owed < 0 {
		return 0
	}
	return owed
}

type ServiceLine struct {
	ServiceID int64 `json:"service_id" binding:"required,gt=0"`
	Quantity  int   `json:"quantity" binding:"required,gt=0"`
}

type AppointmentRequest struct {
	PatientID  int64             `json:"patient_id" binding:"required,gt=0"`
	EmployeeID int64             `json:"employee_id" binding:"required,gt=0"`
	Date       string            `json:"date" binding:"required"`
	StartTime  string            `json:"start_time" binding:"required,hhmm"`
	Status     AppointmentStatus `json:"status" binding:"omitempty,oneof=PENDIENTE CONFIRMADA ATENDIDA CANCELADA"`
	Notes      string            `json:"notes" binding:"omitempty,max=500"`
	Services   []ServiceLine     `json:"services" binding:"required,min=1,dive"`
}

// MergedLines folds repeated services into one line each, keeping first-seen order.
func (r AppointmentRequest) MergedLines() []ServiceLine {
	index := make(map[int64]int, len(r.Services))
	out := make([]ServiceLine, 0, len(r.Services))
	for _, l := range r.Services {
		if i, ok := index[l.ServiceID]; ok {
			out[i].Quantity += l.Quantity
			continue
		}
		index[l.ServiceID] = len(out)
		out = append(out, l)
	}
	return out
}

// AppointmentFilter carries the appointment-only list filters.
type AppointmentFilter struct {
	PatientID  int64
	EmployeeID int64
	Status     AppointmentStatus
}

// AppointmentSummary backs the dashboard counters.
type AppointmentSummary struct {
	TotalAppointments    int `json:"total_appointments" db:"total_appointments"`
	TotalPatients        int `json:"total_patients" db:"total_patients"`
	UpcomingAppointments int `json:"upcoming_appointments" db:"upcoming_appointments"`
}

// AppointmentNotice is what a confirmation message needs to know.
type AppointmentNotice struct {
	ID           int64     `db:"id"`
	Date         time.Time `db:"appointment_date"`
	StartTime    string    `db:"start_time"`
	PatientName  string    `db:"patient_name"`
	PatientEmail *string   `db:"patient_email"`
	DoctorName   string    `db:"doctor_name"`
}
