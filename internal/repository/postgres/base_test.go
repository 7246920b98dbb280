package postgres

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/jwalitptl/dentalclinic-api/pkg/errors"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "postgres"), mock
}

func q(s string) string {
	return regexp.QuoteMeta(s)
}

var now = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func expectEvent(mock sqlmock.Sqlmock, eventType string) {
	mock.ExpectExec(q("INSERT INTO outbox_events")).
		WithArgs(sqlmock.AnyArg(), eventType, sqlmock.AnyArg(), "pending").
		WillReturnResult(sqlmock.NewResult(0, 1))
}

func TestClassify(t *testing.T) {
	assert.Nil(t, classify(nil, "patient"))
	assert.True(t, apperrors.Is(classify(sql.ErrNoRows, "patient"), apperrors.ErrNotFound))

	dup := &pq.Error{Code: "23505", Constraint: "users_dni_key"}
	err := classify(dup, "user")
	assert.True(t, apperrors.Is(err, apperrors.ErrConflict))
	assert.Contains(t, err.Error(), "dni already registered")

	fk := &pq.Error{Code: "23503"}
	assert.True(t, apperrors.Is(classify(fk, "appointment"), apperrors.ErrBadRequest))

	other := errors.New("connection reset")
	assert.Equal(t, other, classify(other, "patient"))
}

func TestWithTxRollsBackOnError(t *testing.T) {
	db, mock := newMock(t)
	base := NewBaseRepository(db)

	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("boom")
	err := base.WithTx(context.Background(), func(*sqlx.Tx) error { return boom })

	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListPageRunsInOneTransaction(t *testing.T) {
	db, mock := newMock(t)
	base := NewBaseRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(q("SELECT COUNT(*) FROM services s")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))
	mock.ExpectQuery(q("SELECT id, name FROM services s")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(1, "Limpieza"))
	mock.ExpectCommit()

	var dest []struct {
		ID   int64  `db:"id"`
		Name string `db:"name"`
	}
	total, err := base.listPage(context.Background(),
		"SELECT COUNT(*) FROM services s", "SELECT id, name FROM services s", nil, &dest)

	require.NoError(t, err)
	assert.Equal(t, 12, total)
	assert.Len(t, dest, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}
