package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/jwalitptl/dentalclinic-api/internal/model"
	"github.com/jwalitptl/dentalclinic-api/internal/repository"
	apperrors "github.com/jwalitptl/dentalclinic-api/pkg/errors"
	"github.com/jwalitptl/dentalclinic-api/pkg/listquery"
)

const employeeFrom = `FROM employees e JOIN users u ON u.id = e.user_id`

const employeeRoles = `ARRAY(
		SELECT r.name FROM user_roles ur JOIN roles r ON r.id = ur.role_id
		WHERE ur.user_id = u.id ORDER BY r.name
	) AS roles`

const employeeSelect = `SELECT e.id, e.user_id, e.specialty, e.created_at, e.updated_at, e.deleted_at, ` +
	employeeRoles + `, ` + userJoinColumns + ` ` + employeeFrom

var employeeList = listquery.Spec{
	SoftDelete:    []string{"e", "u"},
	SearchColumns: []string{"u.first_name", "u.last_name", "u.dni"},
	DateColumn:    "u.created_at",
	Columns: map[string]string{
		"nombre":         "u.first_name",
		"first_name":     "u.first_name",
		"apellido":       "u.last_name",
		"last_name":      "u.last_name",
		"especialidad":   "e.specialty",
		"specialty":      "e.specialty",
		"fecha_creacion": "u.created_at",
		"created_at":     "u.created_at",
		"dni":            "u.dni",
	},
	DefaultOrder: "u.created_at",
	TieBreaker:   "e.id",
}

type employeeRepository struct {
	BaseRepository
}

func NewEmployeeRepository(db *sqlx.DB) repository.EmployeeRepository {
	return &employeeRepository{NewBaseRepository(db)}
}

func (r *employeeRepository) Create(ctx context.Context, employee *model.Employee) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := insertUser(ctx, tx, &employee.User); err != nil {
			return err
		}
		employee.UserID = employee.User.ID

		query := `
			INSERT INTO employees (user_id, specialty, created_at, updated_at)
			VALUES ($1, $2, NOW(), NOW())
			RETURNING id, created_at, updated_at`
		err := tx.QueryRowxContext(ctx, query, employee.UserID, employee.Specialty).
			Scan(&employee.ID, &employee.CreatedAt, &employee.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to create employee: %w", classify(err, "employee"))
		}

		if err := replaceRoles(ctx, tx, employee.UserID, employee.Roles); err != nil {
			return err
		}

		return writeEvent(ctx, tx, model.EventEmployeeCreated, "employee", employee.ID)
	})
}

// Update rewrites the user fields, specialty and the whole role set.
func (r *employeeRepository) Update(ctx context.Context, employee *model.Employee, withPassword bool) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		var userID int64
		err := tx.GetContext(ctx, &userID,
			`SELECT user_id FROM employees WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`, employee.ID)
		if err != nil {
			return classify(err, "employee")
		}
		employee.UserID = userID
		employee.User.ID = userID

		if err := updateUser(ctx, tx, &employee.User, withPassword); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE employees SET specialty = $1, updated_at = NOW() WHERE id = $2`,
			employee.Specialty, employee.ID)
		if err != nil {
			return fmt.Errorf("failed to update employee: %w", err)
		}

		if err := replaceRoles(ctx, tx, userID, employee.Roles); err != nil {
			return err
		}

		return writeEvent(ctx, tx, model.EventEmployeeUpdated, "employee", employee.ID)
	})
}

func (r *employeeRepository) UpdateSpecialty(ctx context.Context, id int64, specialty string) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE employees SET specialty = $1, updated_at = NOW()
			WHERE id = $2 AND deleted_at IS NULL`, specialty, id)
		if err != nil {
			return fmt.Errorf("failed to update specialty: %w", err)
		}
		if err := requireAffected(res, "employee"); err != nil {
			return err
		}
		return writeEvent(ctx, tx, model.EventEmployeeUpdated, "employee", id)
	})
}

func (r *employeeRepository) SoftDelete(ctx context.Context, id int64) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		var userID int64
		err := tx.GetContext(ctx, &userID, `
			UPDATE employees SET deleted_at = NOW(), updated_at = NOW()
			WHERE id = $1 AND deleted_at IS NULL
			RETURNING user_id`, id)
		if err != nil {
			return classify(err, "employee")
		}

		if err := softDeleteUser(ctx, tx, userID); err != nil {
			return err
		}

		return writeEvent(ctx, tx, model.EventEmployeeDeleted, "employee", id)
	})
}

func (r *employeeRepository) Get(ctx context.Context, id int64) (*model.Employee, error) {
	query := employeeSelect + ` WHERE e.id = $1 AND ` + notDeleted("e") + ` AND ` + notDeleted("u")
	var employee model.Employee
	if err := r.db.GetContext(ctx, &employee, query, id); err != nil {
		return nil, classify(err, "employee")
	}
	return &employee, nil
}

func (r *employeeRepository) List(ctx context.Context, params listquery.Params, pageSize int) (listquery.Page[model.Employee], error) {
	q := employeeList.Build(params, pageSize)
	countQuery := `SELECT COUNT(*) ` + employeeFrom + ` ` + q.Where
	selectQuery := employeeSelect + ` ` + q.Where + ` ` + q.OrderBy + ` ` + q.PageClause()

	employees := []model.Employee{}
	total, err := r.listPage(ctx, countQuery, selectQuery, q.Args, &employees)
	if err != nil {
		return listquery.Page[model.Employee]{}, fmt.Errorf("failed to list employees: %w", err)
	}

	return listquery.Page[model.Employee]{
		Items:    employees,
		Total:    total,
		Page:     params.Page,
		PageSize: q.Limit,
	}, nil
}

// ListDoctors returns active employees holding the doctor role.
func (r *employeeRepository) ListDoctors(ctx context.Context) ([]model.Employee, error) {
	query := employeeSelect + ` WHERE ` + notDeleted("e") + ` AND ` + notDeleted("u") + `
		AND EXISTS (
			SELECT 1 FROM user_roles ur JOIN roles r ON r.id = ur.role_id
			WHERE ur.user_id = u.id AND r.name = $1
		)
		ORDER BY u.last_name, u.first_name, e.id`

	doctors := []model.Employee{}
	if err := r.db.SelectContext(ctx, &doctors, query, model.RoleDoctor); err != nil {
		return nil, fmt.Errorf("failed to list doctors: %w", err)
	}
	return doctors, nil
}

// replaceRoles swaps the user's role set for roles. Unknown role names are
// rejected.
func replaceRoles(ctx context.Context, tx *sqlx.Tx, userID int64, roles pq.StringArray) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM user_roles WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to clear roles: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO user_roles (user_id, role_id)
		SELECT $1, id FROM roles WHERE name = ANY($2)`, userID, roles)
	if err != nil {
		return fmt.Errorf("failed to assign roles: %w", classify(err, "role"))
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if int(n) != len(roles) {
		return apperrors.BadRequest("unknown role", nil)
	}
	return nil
}
