package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/compass/core/user"
)

const operatorSelect = `SELECT id, name, email, is_active, is_admin, password_hash, created_at, updated_at, last_login
	FROM operator`

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil)

func NewUserRepository(db *sqlx.DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) get(ctx context.Context, where string, arg interface{}) (user.User, error) {
	var row operatorRow
	if err := repo.db.GetContext(ctx, &row, operatorSelect+" WHERE "+where, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "selecting operator")
	}
	return row.toUser(), nil
}

func (repo *userRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedUsers ...user.User) error {
	excluded := make([]string, 0, len(excludedUsers))
	for _, usr := range excludedUsers {
		excluded = append(excluded, usr.ID)
	}

	query := "SELECT COUNT(*) FROM operator WHERE email = ?"
	args := []interface{}{email}
	if len(excluded) > 0 {
		var err error
		query, args, err = sqlx.In(query+" AND id NOT IN (?)", email, excluded)
		if err != nil {
			return errors.Wrap(err, "binding excluded operators")
		}
	}

	var count int
	if err := repo.db.GetContext(ctx, &count, repo.db.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "checking email uniqueness")
	}
	if count > 0 {
		return user.ErrEmailExists
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	_, err := repo.db.NamedExecContext(ctx, `INSERT INTO operator
		(id, name, email, is_active, is_admin, password_hash, created_at, updated_at, last_login)
		VALUES (:id, :name, :email, :is_active, :is_admin, :password_hash, :created_at, :updated_at, :last_login)`,
		newOperatorRow(usr))
	if err != nil {
		return user.User{}, errors.Wrap(err, "inserting operator")
	}
	return repo.GetUserByID(ctx, usr.ID)
}

func (repo *userRepository) GetUserByID(ctx context.Context, id string) (user.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return user.User{}, user.ErrNotFound
	}
	return repo.get(ctx, "id = $1", id)
}

func (repo *userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	return repo.get(ctx, "email = $1", email)
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	res, err := repo.db.NamedExecContext(ctx, `UPDATE operator SET
		name = :name, email = :email, is_active = :is_active, is_admin = :is_admin,
		password_hash = :password_hash, updated_at = :updated_at, last_login = :last_login
		WHERE id = :id`, newOperatorRow(usr))
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating operator")
	}
	if err := checkAffected(res, user.ErrNotFound); err != nil {
		return user.User{}, err
	}
	return repo.GetUserByID(ctx, usr.ID)
}
