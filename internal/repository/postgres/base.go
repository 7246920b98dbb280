package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/jwalitptl/dentalclinic-api/internal/model"
	apperrors "github.com/jwalitptl/dentalclinic-api/pkg/errors"
	"github.com/jwalitptl/dentalclinic-api/pkg/listquery"
)

// BaseRepository provides common functionality for all repositories
type BaseRepository struct {
	db *sqlx.DB
}

// NewBaseRepository creates a new base repository
func NewBaseRepository(db *sqlx.DB) BaseRepository {
	return BaseRepository{db: db}
}

// GetDB returns the database instance
func (r *BaseRepository) GetDB() *sqlx.DB {
	return r.db
}

// WithTx executes a function within a transaction
func (r *BaseRepository) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	return r.withTxOptions(ctx, nil, fn)
}

func (r *BaseRepository) withTxOptions(ctx context.Context, opts *sql.TxOptions, fn func(*sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// listPage counts and fetches one page from the same snapshot so the total
// always agrees with the rows returned.
func (r *BaseRepository) listPage(ctx context.Context, countQuery, selectQuery string, args []interface{}, dest interface{}) (int, error) {
	var total int
	opts := &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
	err := r.withTxOptions(ctx, opts, func(tx *sqlx.Tx) error {
		if err := tx.GetContext(ctx, &total, countQuery, args...); err != nil {
			return fmt.Errorf("failed to count rows: %w", err)
		}
		if err := tx.SelectContext(ctx, dest, selectQuery, args...); err != nil {
			return fmt.Errorf("failed to select rows: %w", err)
		}
		return nil
	})
	return total, err
}

func notDeleted(alias string) string {
	return listquery.NotDeleted(alias)
}

// writeEvent records an outbox event inside the caller's transaction.
func writeEvent(ctx context.Context, tx *sqlx.Tx, eventType, entity string, id int64) error {
	payload, err := json.Marshal(model.EntityEvent{Entity: entity, ID: id, At: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO outbox_events (id, event_type, payload, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())`,
		uuid.New(), eventType, string(payload), model.OutboxStatusPending,
	)
	if err != nil {
		return fmt.Errorf("failed to write %s event: %w", eventType, err)
	}
	return nil
}

// requireAffected maps an update that touched nothing to not found.
func requireAffected(res sql.Result, resource string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return apperrors.NotFound(resource, nil)
	}
	return nil
}

// ensureActive checks that a non-deleted row with id exists in table.
func ensureActive(ctx context.Context, tx *sqlx.Tx, table string, id int64, resource string) error {
	var exists bool
	query := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1 AND deleted_at IS NULL)`, table)
	if err := tx.GetContext(ctx, &exists, query, id); err != nil {
		return fmt.Errorf("failed to check %s: %w", resource, err)
	}
	if !exists {
		return apperrors.NotFound(resource, nil)
	}
	return nil
}

// classify turns driver errors into application errors.
func classify(err error, resource string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return apperrors.NotFound(resource, err)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505":
			if pqErr.Constraint == "users_dni_key" {
				return apperrors.Conflict("dni already registered", err)
			}
			return apperrors.Conflict(resource+" already exists", err)
		case "23503":
			return apperrors.BadRequest("referenced record does not exist", err)
		case "23514":
			return apperrors.BadRequest("value out of range", err)
		}
	}
	return err
}
