package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/dentalclinic-api/internal/model"
	"github.com/jwalitptl/dentalclinic-api/internal/repository"
	"github.com/jwalitptl/dentalclinic-api/pkg/listquery"
)

const patientFrom = `FROM patients p JOIN users u ON u.id = p.user_id`

const patientSelect = `SELECT p.id, p.user_id, p.birth_date, p.created_at, p.updated_at, p.deleted_at, ` +
	userJoinColumns + ` ` + patientFrom

var patientList = listquery.Spec{
	SoftDelete:    []string{"p", "u"},
	SearchColumns: []string{"u.first_name", "u.last_name", "u.dni"},
	DateColumn:    "u.created_at",
	Columns: map[string]string{
		"dni":              "u.dni",
		"telefono":         "u.phone",
		"phone":            "u.phone",
		"nombre":           "u.first_name",
		"first_name":       "u.first_name",
		"apellido":         "u.last_name",
		"last_name":        "u.last_name",
		"fecha_nacimiento": "p.birth_date",
		"birth_date":       "p.birth_date",
		"created_at":       "u.created_at",
	},
	DefaultOrder: "u.created_at",
	TieBreaker:   "p.id",
}

type patientRepository struct {
	BaseRepository
}

func NewPatientRepository(db *sqlx.DB) repository.PatientRepository {
	return &patientRepository{NewBaseRepository(db)}
}

func (r *patientRepository) Create(ctx context.Context, patient *model.Patient) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := insertUser(ctx, tx, &patient.User); err != nil {
			return err
		}
		patient.UserID = patient.User.ID

		query := `
			INSERT INTO patients (user_id, birth_date, created_at, updated_at)
			VALUES ($1, $2, NOW(), NOW())
			RETURNING id, created_at, updated_at`
		err := tx.QueryRowxContext(ctx, query, patient.UserID, patient.BirthDate.Format(listquery.DateLayout)).
			Scan(&patient.ID, &patient.CreatedAt, &patient.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to create patient: %w", classify(err, "patient"))
		}

		return writeEvent(ctx, tx, model.EventPatientCreated, "patient", patient.ID)
	})
}

func (r *patientRepository) Update(ctx context.Context, patient *model.Patient, withPassword bool) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		var userID int64
		err := tx.GetContext(ctx, &userID,
			`SELECT user_id FROM patients WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`, patient.ID)
		if err != nil {
			return classify(err, "patient")
		}
		patient.UserID = userID
		patient.User.ID = userID

		if err := updateUser(ctx, tx, &patient.User, withPassword); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE patients SET birth_date = $1, updated_at = NOW() WHERE id = $2`,
			patient.BirthDate.Format(listquery.DateLayout), patient.ID)
		if err != nil {
			return fmt.Errorf("failed to update patient: %w", err)
		}

		return writeEvent(ctx, tx, model.EventPatientUpdated, "patient", patient.ID)
	})
}

// SoftDelete marks the patient and its user as deleted together.
func (r *patientRepository) SoftDelete(ctx context.Context, id int64) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		var userID int64
		err := tx.GetContext(ctx, &userID, `
			UPDATE patients SET deleted_at = NOW(), updated_at = NOW()
			WHERE id = $1 AND deleted_at IS NULL
			RETURNING user_id`, id)
		if err != nil {
			return classify(err, "patient")
		}

		if err := softDeleteUser(ctx, tx, userID); err != nil {
			return err
		}

		return writeEvent(ctx, tx, model.EventPatientDeleted, "patient", id)
	})
}

func (r *patientRepository) Get(ctx context.Context, id int64) (*model.Patient, error) {
	query := patientSelect + ` WHERE p.id = $1 AND ` + notDeleted("p") + ` AND ` + notDeleted("u")
	var patient model.Patient
	if err := r.db.GetContext(ctx, &patient, query, id); err != nil {
		return nil, classify(err, "patient")
	}
	return &patient, nil
}

func (r *patientRepository) List(ctx context.Context, params listquery.Params, pageSize int) (listquery.Page[model.Patient], error) {
	q := patientList.Build(params, pageSize)
	countQuery := `SELECT COUNT(*) ` + patientFrom + ` ` + q.Where
	selectQuery := patientSelect + ` ` + q.Where + ` ` + q.OrderBy + ` ` + q.PageClause()

	patients := []model.Patient{}
	total, err := r.listPage(ctx, countQuery, selectQuery, q.Args, &patients)
	if err != nil {
		return listquery.Page[model.Patient]{}, fmt.Errorf("failed to list patients: %w", err)
	}

	return listquery.Page[model.Patient]{
		Items:    patients,
		Total:    total,
		Page:     params.Page,
		PageSize: q.Limit,
	}, nil
}
