package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/dentalclinic-api/internal/model"
	apperrors "github.com/jwalitptl/dentalclinic-api/pkg/errors"
)

func expectParties(mock sqlmock.Sqlmock, patientID, employeeID int64) {
	mock.ExpectQuery(q("SELECT EXISTS (SELECT 1 FROM patients")).
		WithArgs(patientID).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(q("SELECT EXISTS (SELECT 1 FROM employees")).
		WithArgs(employeeID).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
}

func TestAppointmentCreatePricesLines(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAppointmentRepository(db)

	mock.ExpectBegin()
	expectParties(mock, 1, 2)
	mock.ExpectQuery(q("SELECT id, name, fee FROM services WHERE id = ANY($1)")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "fee"}).
			AddRow(10, "Limpieza", 80.5).
			AddRow(11, "Extraccion", 35.0))
	mock.ExpectQuery(q("INSERT INTO appointments")).
		WithArgs(int64(1), int64(2), "2024-03-10", "09:30", "PENDIENTE", 0.0, 196.0, nil).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(7, now, now))
	mock.ExpectExec(q("INSERT INTO appointment_services")).
		WithArgs(int64(7), int64(10), 2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q("INSERT INTO appointment_services")).
		WithArgs(int64(7), int64(11), 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	expectEvent(mock, model.EventAppointmentCreated)
	mock.ExpectCommit()

	appt := &model.Appointment{
		PatientID:  1,
		EmployeeID: 2,
		Date:       time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
		StartTime:  "09:30",
		Status:     model.AppointmentPending,
	}
	lines := []model.ServiceLine{{ServiceID: 10, Quantity: 2}, {ServiceID: 11, Quantity: 1}}

	require.NoError(t, repo.Create(context.Background(), appt, lines))

	assert.Equal(t, int64(7), appt.ID)
	assert.Equal(t, 196.0, appt.OwedAmount)
	require.Len(t, appt.Services, 2)
	assert.Equal(t, int64(7), appt.Services[0].AppointmentID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentCreateRejectsUnknownService(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAppointmentRepository(db)

	mock.ExpectBegin()
	expectParties(mock, 1, 2)
	mock.ExpectQuery(q("SELECT id, name, fee FROM services")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "fee"}).AddRow(10, "Limpieza", 80.5))
	mock.ExpectRollback()

	appt := &model.Appointment{PatientID: 1, EmployeeID: 2, StartTime: "09:30"}
	err := repo.Create(context.Background(), appt, []model.ServiceLine{
		{ServiceID: 10, Quantity: 1},
		{ServiceID: 99, Quantity: 1},
	})

	assert.True(t, apperrors.Is(err, apperrors.ErrBadRequest))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentUpdateKeepsPaidAmount(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAppointmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(q("SELECT paid_amount FROM appointments WHERE id = $1")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"paid_amount"}).AddRow(50.0))
	expectParties(mock, 1, 2)
	mock.ExpectQuery(q("SELECT id, name, fee FROM services")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "fee"}).AddRow(10, "Limpieza", 80.0))
	mock.ExpectExec(q("UPDATE appointments SET")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q("DELETE FROM appointment_services WHERE appointment_id = $1")).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(q("INSERT INTO appointment_services")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	expectEvent(mock, model.EventAppointmentUpdated)
	mock.ExpectCommit()

	appt := &model.Appointment{
		Base:       model.Base{ID: 7},
		PatientID:  1,
		EmployeeID: 2,
		StartTime:  "10:00",
		Status:     model.AppointmentConfirmed,
	}
	require.NoError(t, repo.Update(context.Background(), appt, []model.ServiceLine{{ServiceID: 10, Quantity: 1}}))

	assert.Equal(t, 50.0, appt.PaidAmount)
	assert.Equal(t, 30.0, appt.OwedAmount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentSoftDeleteMissing(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAppointmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(q("UPDATE appointments SET deleted_at = NOW()")).
		WithArgs(int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.SoftDelete(context.Background(), 3)

	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentSummaryCountsFromToday(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAppointmentRepository(db)

	today := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(q("a.appointment_date >= $1::date AND a.status IN ($2, $3)")).
		WithArgs("2024-03-01", model.AppointmentPending, model.AppointmentConfirmed).
		WillReturnRows(sqlmock.NewRows([]string{"total_appointments", "total_patients", "upcoming_appointments"}).
			AddRow(40, 25, 6))

	summary, err := repo.Summary(context.Background(), today)

	require.NoError(t, err)
	assert.Equal(t, model.AppointmentSummary{TotalAppointments: 40, TotalPatients: 25, UpcomingAppointments: 6}, *summary)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentSummaryError(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAppointmentRepository(db)

	mock.ExpectQuery(q("AS total_appointments")).WillReturnError(sql.ErrConnDone)

	_, err := repo.Summary(context.Background(), time.Now())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to summarize appointments")
}
