package postgres

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/dentalclinic-api/internal/model"
	apperrors "github.com/jwalitptl/dentalclinic-api/pkg/errors"
	"github.com/jwalitptl/dentalclinic-api/pkg/listquery"
)

func TestServiceCreate(t *testing.T) {
	db, mock := newMock(t)
	repo := NewServiceRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(q("INSERT INTO services (name, fee, created_at, updated_at)")).
		WithArgs("Limpieza", 80.0).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(2, now, now))
	expectEvent(mock, model.EventServiceCreated)
	mock.ExpectCommit()

	s := &model.Service{Name: "Limpieza", Fee: 80}
	require.NoError(t, repo.Create(context.Background(), s))

	assert.Equal(t, int64(2), s.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestServiceCreateDuplicateName(t *testing.T) {
	db, mock := newMock(t)
	repo := NewServiceRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(q("INSERT INTO services")).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "services_name_key"})
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &model.Service{Name: "Limpieza", Fee: 80})

	assert.True(t, apperrors.Is(err, apperrors.ErrConflict))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestServiceUpdateMissing(t *testing.T) {
	db, mock := newMock(t)
	repo := NewServiceRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(q("UPDATE services SET name = $1, fee = $2")).
		WithArgs("Limpieza", 90.0, int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Update(context.Background(), &model.Service{Base: model.Base{ID: 2}, Name: "Limpieza", Fee: 90})

	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestServiceSoftDelete(t *testing.T) {
	db, mock := newMock(t)
	repo := NewServiceRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(q("UPDATE services SET deleted_at = NOW()")).
		WithArgs(int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	expectEvent(mock, model.EventServiceDeleted)
	mock.ExpectCommit()

	require.NoError(t, repo.SoftDelete(context.Background(), 2))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestServiceGetMissing(t *testing.T) {
	db, mock := newMock(t)
	repo := NewServiceRepository(db)

	mock.ExpectQuery(q("WHERE s.id = $1 AND s.deleted_at IS NULL")).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "fee", "created_at", "updated_at", "deleted_at"}))

	_, err := repo.Get(context.Background(), 5)

	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestServiceListSortsByFee(t *testing.T) {
	db, mock := newMock(t)
	repo := NewServiceRepository(db)

	where := "WHERE s.deleted_at IS NULL AND (s.name ILIKE $1)"

	mock.ExpectBegin()
	mock.ExpectQuery(q("SELECT COUNT(*) FROM services s " + where)).
		WithArgs("%limp%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(q(where + " ORDER BY s.fee DESC, s.id DESC LIMIT 10 OFFSET 0")).
		WithArgs("%limp%").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "fee", "created_at", "updated_at", "deleted_at"}).
			AddRow(2, "Limpieza", 80.0, now, now, nil))
	mock.ExpectCommit()

	params := listquery.Params{Search: "limp", Column: "precio", Sort: listquery.SortDesc, Page: 1}
	page, err := repo.List(context.Background(), params, 10)

	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
	require.Len(t, page.Items, 1)
	assert.Equal(t, 80.0, page.Items[0].Fee)
	assert.NoError(t, mock.ExpectationsWereMet())
}
