package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/dentalclinic-api/internal/model"
	"github.com/jwalitptl/dentalclinic-api/internal/repository"
)

const userColumns = `id, first_name, last_name, dni, password_hash, phone, email, sex, address,
	user_type, created_at, updated_at, deleted_at`

// userJoinColumns selects users aliased as u into a nested `db:"user"` field.
const userJoinColumns = `u.id AS "user.id", u.first_name AS "user.first_name", u.last_name AS "user.last_name",
	u.dni AS "user.dni", u.phone AS "user.phone", u.email AS "user.email", u.sex AS "user.sex",
	u.address AS "user.address", u.user_type AS "user.user_type", u.created_at AS "user.created_at",
	u.updated_at AS "user.updated_at"`

type userRepository struct {
	BaseRepository
}

func NewUserRepository(db *sqlx.DB) repository.UserRepository {
	return &userRepository{NewBaseRepository(db)}
}

func (r *userRepository) GetByDNI(ctx context.Context, dni string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE dni = $1 AND ` + notDeleted("")
	var user model.User
	if err := r.db.GetContext(ctx, &user, query, strings.TrimSpace(dni)); err != nil {
		return nil, classify(err, "user")
	}
	return &user, nil
}

func (r *userRepository) Get(ctx context.Context, id int64) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 AND ` + notDeleted("")
	var user model.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		return nil, classify(err, "user")
	}
	return &user, nil
}

func insertUser(ctx context.Context, tx *sqlx.Tx, u *model.User) error {
	query := `
		INSERT INTO users (
			first_name, last_name, dni, password_hash, phone, email, sex, address,
			user_type, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
		RETURNING id, created_at, updated_at`

	err := tx.QueryRowxContext(ctx, query,
		u.FirstName,
		u.LastName,
		u.DNI,
		u.PasswordHash,
		u.Phone,
		u.Email,
		u.Sex,
		u.Address,
		u.UserType,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", classify(err, "user"))
	}
	return nil
}

// updateUser rewrites the identity fields of an active user. The password
// hash is only touched when withPassword is set.
func updateUser(ctx context.Context, tx *sqlx.Tx, u *model.User, withPassword bool) error {
	sets := []string{
		"first_name = $1", "last_name = $2", "dni = $3", "phone = $4",
		"email = $5", "sex = $6", "address = $7", "user_type = $8",
	}
	args := []interface{}{u.FirstName, u.LastName, u.DNI, u.Phone, u.Email, u.Sex, u.Address, u.UserType}
	if withPassword {
		args = append(args, u.PasswordHash)
		sets = append(sets, fmt.Sprintf("password_hash = $%d", len(args)))
	}
	args = append(args, u.ID)

	query := fmt.Sprintf(`UPDATE users SET %s, updated_at = NOW() WHERE id = $%d AND deleted_at IS NULL`,
		strings.Join(sets, ", "), len(args))

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", classify(err, "user"))
	}
	return requireAffected(res, "user")
}

func softDeleteUser(ctx context.Context, tx *sqlx.Tx, id int64) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE users SET deleted_at = NOW(), updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}
