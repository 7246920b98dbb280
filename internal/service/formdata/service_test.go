package formdata

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/dentalclinic-api/internal/model"
	apperrors "github.com/jwalitptl/dentalclinic-api/pkg/errors"
)

type fakeRepo struct {
	patients     []model.PersonRef
	appointments []model.AppointmentRow
	lines        []model.LineItem
	doctors      []model.PersonRef
	services     []model.Service
	tickets      []model.TicketRow
	links        []model.TicketLink
	payments     []model.Payment
	users        []model.Option

	lineCalls [][]int64
}

func (f *fakeRepo) ActivePatients(context.Context) ([]model.PersonRef, error) {
	return f.patients, nil
}

func (f *fakeRepo) ActiveAppointments(context.Context) ([]model.AppointmentRow, error) {
	return f.appointments, nil
}

func (f *fakeRepo) AppointmentLines(_ context.Context, ids []int64) ([]model.LineItem, error) {
	f.lineCalls = append(f.lineCalls, ids)
	want := make(map[int64]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []model.LineItem
	for _, l := range f.lines {
		if want[l.AppointmentID] {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeRepo) ActiveDoctors(context.Context) ([]model.PersonRef, error) {
	return f.doctors, nil
}

func (f *fakeRepo) ActiveServices(context.Context) ([]model.Service, error) {
	return f.services, nil
}

func (f *fakeRepo) ActiveTickets(context.Context) ([]model.TicketRow, error) {
	return f.tickets, nil
}

func (f *fakeRepo) TicketLinks(context.Context) ([]model.TicketLink, error) {
	return f.links, nil
}

func (f *fakeRepo) TicketPayments(context.Context, []int64) ([]model.Payment, error) {
	return f.payments, nil
}

func (f *fakeRepo) PatientUsers(context.Context) ([]model.Option, error) {
	return f.users, nil
}

func (f *fakeRepo) EmployeeUsers(context.Context) ([]model.Option, error) {
	return f.users, nil
}

func clinicData() *fakeRepo {
	day := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	return &fakeRepo{
		patients: []model.PersonRef{
			{ID: 1, FirstName: "Maria", LastName: "Quispe"},
			{ID: 2, FirstName: "Jose", LastName: "Rojas"},
		},
		appointments: []model.AppointmentRow{
			{ID: 10, PatientID: 1, Date: day, Status: model.AppointmentAttended, PaidAmount: 50, OwedAmount: 30},
			{ID: 11, PatientID: 1, Date: day.AddDate(0, 0, 7), Status: model.AppointmentPending, OwedAmount: 35},
		},
		lines: []model.LineItem{
			{AppointmentID: 10, ServiceID: 1, Name: "Limpieza", Fee: 40, Quantity: 2},
			{AppointmentID: 11, ServiceID: 2, Name: "Resina", Fee: 35, Quantity: 1},
			{AppointmentID: 99, ServiceID: 2, Name: "Resina", Fee: 35, Quantity: 1},
		},
		doctors:  []model.PersonRef{{ID: 5, FirstName: "Ana", LastName: "Diaz"}},
		services: []model.Service{{Name: "Limpieza", Fee: 40}},
		tickets: []model.TicketRow{
			{ID: 20, PatientID: 1, IssueDate: day, TotalAmount: 80, PaidAmount: 50, OwedAmount: 30,
				PatientFirstName: "Maria", PatientLastName: "Quispe"},
		},
		links: []model.TicketLink{
			{TicketID: 20, AppointmentID: 10},
			{TicketID: 20, AppointmentID: 99},
		},
		payments: []model.Payment{
			{TicketID: 20, Amount: 50, Status: model.PaymentPartial},
		},
		users: []model.Option{{ID: 7, Name: "Maria Quispe"}},
	}
}

func TestRelatedDataUnknownTable(t *testing.T) {
	_, err := NewService(clinicData()).RelatedData(context.Background(), "invoices", model.FormCreate, 0)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrBadRequest))
}

func TestRelatedDataUnknownMode(t *testing.T) {
	_, err := NewService(clinicData()).RelatedData(context.Background(), "cita", model.FormMode("edit"), 0)
	assert.True(t, apperrors.Is(err, apperrors.ErrBadRequest))
}

func TestRelatedDataDeleteIsEmpty(t *testing.T) {
	data, err := NewService(clinicData()).RelatedData(context.Background(), "boleta", model.FormDelete, 20)
	require.NoError(t, err)
	assert.Equal(t, model.EmptyFormData{}, data)
}

func TestRelatedDataAppointmentForm(t *testing.T) {
	repo := clinicData()
	data, err := NewService(repo).RelatedData(context.Background(), "cita", model.FormUpdate, 10)
	require.NoError(t, err)

	form, ok := data.(*model.AppointmentFormData)
	require.True(t, ok)

	require.Len(t, form.Patients, 2)
	maria := form.Patients[0]
	require.Len(t, maria.Appointments, 2)
	assert.Equal(t, 80.0, maria.Appointments[0].Total)
	assert.Equal(t, "Limpieza", maria.Appointments[0].Services[0].Name)
	assert.Empty(t, maria.Appointments[0].Payments)
	assert.NotNil(t, form.Patients[1].Appointments)
	assert.Empty(t, form.Patients[1].Appointments)

	assert.Equal(t, repo.doctors, form.Employees)
	require.Len(t, form.SelectedServices, 1)
	assert.Equal(t, int64(1), form.SelectedServices[0].ServiceID)
	assert.Len(t, repo.lineCalls, 1, "selected services come from the loaded lines")
}

func TestRelatedDataAppointmentCreateHasNoSelection(t *testing.T) {
	data, err := NewService(clinicData()).RelatedData(context.Background(), "appointment", model.FormCreate, 0)
	require.NoError(t, err)

	form := data.(*model.AppointmentFormData)
	assert.NotNil(t, form.SelectedServices)
	assert.Empty(t, form.SelectedServices)
}

func TestRelatedDataTicketFormNestsPaymentsThroughLinks(t *testing.T) {
	data, err := NewService(clinicData()).RelatedData(context.Background(), "ticket", model.FormView, 20)
	require.NoError(t, err)

	form, ok := data.(*model.TicketFormData)
	require.True(t, ok)
	require.Len(t, form.Tickets, 1)

	ticket := form.Tickets[0]
	assert.Equal(t, model.PersonRef{ID: 1, FirstName: "Maria", LastName: "Quispe"}, ticket.Patient)
	require.Len(t, ticket.Payments, 1)
	require.Len(t, ticket.Appointments, 1, "inactive appointment 99 is skipped")
	assert.Equal(t, int64(10), ticket.Appointments[0].ID)
	require.Len(t, ticket.Appointments[0].Payments, 1)
	assert.Equal(t, 50.0, ticket.Appointments[0].Payments[0].Amount)

	maria := form.Patients[0]
	assert.Equal(t, ticket.Appointments[0], maria.Appointments[0], "patient and ticket roots share one shape")
	assert.Empty(t, maria.Appointments[1].Payments)
}

func TestRelatedDataOptions(t *testing.T) {
	svc := NewService(clinicData())

	data, err := svc.RelatedData(context.Background(), "paciente", model.FormCreate, 0)
	require.NoError(t, err)
	assert.Equal(t, model.UserOptions{Users: []model.Option{{ID: 7, Name: "Maria Quispe"}}}, data)

	data, err = svc.RelatedData(context.Background(), "doctor", model.FormCreate, 0)
	require.NoError(t, err)
	assert.Equal(t, model.DoctorOptions{Doctors: []model.Option{{ID: 5, Name: "Ana Diaz"}}}, data)

	data, err = svc.RelatedData(context.Background(), "servicio", model.FormCreate, 0)
	require.NoError(t, err)
	assert.Equal(t, model.EmptyFormData{}, data)
}
