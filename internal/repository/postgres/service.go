package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/dentalclinic-api/internal/model"
	"github.com/jwalitptl/dentalclinic-api/internal/repository"
	"github.com/jwalitptl/dentalclinic-api/pkg/listquery"
)

const serviceSelect = `SELECT s.id, s.name, s.fee, s.created_at, s.updated_at, s.deleted_at FROM services s`

var serviceList = listquery.Spec{
	SoftDelete:    []string{"s"},
	SearchColumns: []string{"s.name"},
	DateColumn:    "s.created_at",
	Columns: map[string]string{
		"nombre":     "s.name",
		"name":       "s.name",
		"precio":     "s.fee",
		"fee":        "s.fee",
		"created_at": "s.created_at",
	},
	DefaultOrder: "s.created_at",
	TieBreaker:   "s.id",
}

type serviceRepository struct {
	BaseRepository
}

func NewServiceRepository(db *sqlx.DB) repository.ServiceRepository {
	return &serviceRepository{NewBaseRepository(db)}
}

func (r *serviceRepository) Create(ctx context.Context, service *model.Service) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		query := `
			INSERT INTO services (name, fee, created_at, updated_at)
			VALUES ($1, $2, NOW(), NOW())
			RETURNING id, created_at, updated_at`
		err := tx.QueryRowxContext(ctx, query, service.Name, service.Fee).
			Scan(&service.ID, &service.CreatedAt, &service.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to create service: %w", classify(err, "service"))
		}
		return writeEvent(ctx, tx, model.EventServiceCreated, "service", service.ID)
	})
}

func (r *serviceRepository) Update(ctx context.Context, service *model.Service) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE services SET name = $1, fee = $2, updated_at = NOW()
			WHERE id = $3 AND deleted_at IS NULL`, service.Name, service.Fee, service.ID)
		if err != nil {
			return fmt.Errorf("failed to update service: %w", classify(err, "service"))
		}
		if err := requireAffected(res, "service"); err != nil {
			return err
		}
		return writeEvent(ctx, tx, model.EventServiceUpdated, "service", service.ID)
	})
}

func (r *serviceRepository) SoftDelete(ctx context.Context, id int64) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE services SET deleted_at = NOW(), updated_at = NOW()
			WHERE id = $1 AND deleted_at IS NULL`, id)
		if err != nil {
			return fmt.Errorf("failed to delete service: %w", err)
		}
		if err := requireAffected(res, "service"); err != nil {
			return err
		}
		return writeEvent(ctx, tx, model.EventServiceDeleted, "service", id)
	})
}

func (r *serviceRepository) Get(ctx context.Context, id int64) (*model.Service, error) {
	var service model.Service
	query := serviceSelect + ` WHERE s.id = $1 AND ` + notDeleted("s")
	if err := r.db.GetContext(ctx, &service, query, id); err != nil {
		return nil, classify(err, "service")
	}
	return &service, nil
}

func (r *serviceRepository) List(ctx context.Context, params listquery.Params, pageSize int) (listquery.Page[model.Service], error) {
	q := serviceList.Build(params, pageSize)
	countQuery := `SELECT COUNT(*) FROM services s ` + q.Where
	selectQuery := serviceSelect + ` ` + q.Where + ` ` + q.OrderBy + ` ` + q.PageClause()

	services := []model.Service{}
	total, err := r.listPage(ctx, countQuery, selectQuery, q.Args, &services)
	if err != nil {
		return listquery.Page[model.Service]{}, fmt.Errorf("failed to list services: %w", err)
	}

	return listquery.Page[model.Service]{Items: services, Total: total, Page: params.Page, PageSize: q.Limit}, nil
}
