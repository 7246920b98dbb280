// Package formdata gathers the reference data a create, update or view form
// needs: option lists and patients or tickets with their nested appointments.
package formdata

import (
	"context"
	"fmt"
	"strings"

	"github.com/jwalitptl/dentalclinic-api/internal/model"
	"github.com/jwalitptl/dentalclinic-api/internal/repository"
	apperrors "github.com/jwalitptl/dentalclinic-api/pkg/errors"
)

// Tables accepted by RelatedData, keyed by every name a client may use.
const (
	TableAppointment = "appointment"
	TablePatient     = "patient"
	TableEmployee    = "employee"
	TableDoctor      = "doctor"
	TableTicket      = "ticket"
	TableService     = "service"
)

var tableAliases = map[string]string{
	"appointment": TableAppointment,
	"cita":        TableAppointment,
	"patient":     TablePatient,
	"paciente":    TablePatient,
	"employee":    TableEmployee,
	"empleado":    TableEmployee,
	"doctor":      TableDoctor,
	"ticket":      TableTicket,
	"boleta":      TableTicket,
	"service":     TableService,
	"servicio":    TableService,
}

type Service struct {
	repo repository.FormDataRepository
}

func NewService(repo repository.FormDataRepository) *Service {
	return &Service{repo: repo}
}

// RelatedData returns the reference data for table opened in mode. id is the
// record being edited or viewed and may be zero.
func (s *Service) RelatedData(ctx context.Context, table string, mode model.FormMode, id int64) (interface{}, error) {
	name, ok := tableAliases[strings.ToLower(strings.TrimSpace(table))]
	if !ok {
		return nil, apperrors.BadRequest(fmt.Sprintf("unknown table %q", table), nil)
	}

	switch mode {
	case model.FormCreate, model.FormUpdate, model.FormView:
	case model.FormDelete:
		return model.EmptyFormData{}, nil
	default:
		return nil, apperrors.BadRequest(fmt.Sprintf("unknown form type %q", mode), nil)
	}

	switch name {
	case TableAppointment:
		return s.appointmentForm(ctx, mode, id)
	case TablePatient:
		users, err := s.repo.PatientUsers(ctx)
		if err != nil {
			return nil, err
		}
		return model.UserOptions{Users: users}, nil
	case TableEmployee:
		users, err := s.repo.EmployeeUsers(ctx)
		if err != nil {
			return nil, err
		}
		return model.UserOptions{Users: users}, nil
	case TableDoctor:
		doctors, err := s.repo.ActiveDoctors(ctx)
		if err != nil {
			return nil, err
		}
		options := make([]model.Option, len(doctors))
		for i, d := range doctors {
			options[i] = model.Option{ID: d.ID, Name: strings.TrimSpace(d.FirstName + " " + d.LastName)}
		}
		return model.DoctorOptions{Doctors: options}, nil
	case TableTicket:
		return s.ticketForm(ctx)
	default:
		return model.EmptyFormData{}, nil
	}
}

func (s *Service) appointmentForm(ctx context.Context, mode model.FormMode, id int64) (*model.AppointmentFormData, error) {
	idx, err := s.load(ctx, false)
	if err != nil {
		return nil, err
	}

	doctors, err := s.repo.ActiveDoctors(ctx)
	if err != nil {
		return nil, err
	}
	services, err := s.repo.ActiveServices(ctx)
	if err != nil {
		return nil, err
	}

	data := &model.AppointmentFormData{
		Patients:         idx.patientAccounts(),
		Employees:        doctors,
		Services:         services,
		SelectedServices: []model.LineItem{},
	}

	if id > 0 && (mode == model.FormUpdate || mode == model.FormView) {
		if lines, ok := idx.lines[id]; ok {
			data.SelectedServices = lines
		} else {
			lines, err := s.repo.AppointmentLines(ctx, []int64{id})
			if err != nil {
				return nil, err
			}
			data.SelectedServices = lines
		}
	}
	return data, nil
}

func (s *Service) ticketForm(ctx context.Context) (*model.TicketFormData, error) {
	idx, err := s.load(ctx, true)
	if err != nil {
		return nil, err
	}

	tickets := make([]model.TicketView, 0, len(idx.tickets))
	for _, t := range idx.tickets {
		tickets = append(tickets, model.TicketView{
			ID:            t.ID,
			IssueDate:     t.IssueDate,
			ReceiptType:   t.ReceiptType,
			PaymentMethod: t.PaymentMethod,
			TotalAmount:   t.TotalAmount,
			PaidAmount:    t.PaidAmount,
			OwedAmount:    t.OwedAmount,
			Patient: model.PersonRef{
				ID:        t.PatientID,
				FirstName: t.PatientFirstName,
				LastName:  t.PatientLastName,
			},
			Payments:     nonNil(idx.ticketPayments[t.ID]),
			Appointments: idx.shapeAppointments(idx.ticketAppointments[t.ID]),
		})
	}

	return &model.TicketFormData{
		Tickets:  tickets,
		Patients: idx.patientAccounts(),
	}, nil
}

// index holds the flat rows of one form request, keyed for nesting.
type index struct {
	patients     []model.PersonRef
	appointments map[int64]model.AppointmentRow
	byPatient    map[int64][]int64
	lines        map[int64][]model.LineItem

	tickets            []model.TicketRow
	ticketAppointments map[int64][]int64
	ticketPayments     map[int64][]model.Payment
	appointmentPayment map[int64][]model.Payment
}

func (s *Service) load(ctx context.Context, withTickets bool) (*index, error) {
	patients, err := s.repo.ActivePatients(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.ActiveAppointments(ctx)
	if err != nil {
		return nil, err
	}

	idx := &index{
		patients:           patients,
		appointments:       make(map[int64]model.AppointmentRow, len(rows)),
		byPatient:          make(map[int64][]int64),
		lines:              make(map[int64][]model.LineItem, len(rows)),
		ticketAppointments: make(map[int64][]int64),
		ticketPayments:     make(map[int64][]model.Payment),
		appointmentPayment: make(map[int64][]model.Payment),
	}

	ids := make([]int64, 0, len(rows))
	for _, r := range rows {
		idx.appointments[r.ID] = r
		idx.byPatient[r.PatientID] = append(idx.byPatient[r.PatientID], r.ID)
		ids = append(ids, r.ID)
	}

	lines, err := s.repo.AppointmentLines(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, l := range lines {
		idx.lines[l.AppointmentID] = append(idx.lines[l.AppointmentID], l)
	}

	if !withTickets {
		return idx, nil
	}

	if idx.tickets, err = s.repo.ActiveTickets(ctx); err != nil {
		return nil, err
	}
	links, err := s.repo.TicketLinks(ctx)
	if err != nil {
		return nil, err
	}

	ticketIDs := make([]int64, len(idx.tickets))
	for i, t := range idx.tickets {
		ticketIDs[i] = t.ID
	}
	payments, err := s.repo.TicketPayments(ctx, ticketIDs)
	if err != nil {
		return nil, err
	}

	for _, p := range payments {
		idx.ticketPayments[p.TicketID] = append(idx.ticketPayments[p.TicketID], p)
	}
	for _, l := range links {
		idx.ticketAppointments[l.TicketID] = append(idx.ticketAppointments[l.TicketID], l.AppointmentID)
		idx.appointmentPayment[l.AppointmentID] = append(idx.appointmentPayment[l.AppointmentID], idx.ticketPayments[l.TicketID]...)
	}
	return idx, nil
}

func (idx *index) patientAccounts() []model.PatientAccount {
	accounts := make([]model.PatientAccount, len(idx.patients))
	for i, p := range idx.patients {
		accounts[i] = model.PatientAccount{
			PersonRef:    p,
			Appointments: idx.shapeAppointments(idx.byPatient[p.ID]),
		}
	}
	return accounts
}

// shapeAppointments nests services and payments under each appointment id.
// Ids of appointments that are not active are skipped. Both patient and
// ticket forms go through here; only the list of ids differs.
func (idx *index) shapeAppointments(ids []int64) []model.AppointmentView {
	views := make([]model.AppointmentView, 0, len(ids))
	for _, id := range ids {
		row, ok := idx.appointments[id]
		if !ok {
			continue
		}
		lines := nonNil(idx.lines[id])
		views = append(views, model.AppointmentView{
			ID:         row.ID,
			Date:       row.Date,
			Status:     row.Status,
			Total:      model.LinesTotal(lines),
			PaidAmount: row.PaidAmount,
			OwedAmount: row.OwedAmount,
			Services:   lines,
			Payments:   nonNil(idx.appointmentPayment[id]),
		})
	}
	return views
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
