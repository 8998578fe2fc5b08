// Package users stores chat users and their roles.
package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/stockkeeper/internal/common"
	"github.com/dmitrijs2005/stockkeeper/internal/dbx"
	"github.com/dmitrijs2005/stockkeeper/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Touch inserts the user or refreshes username and full name, keeping the
// stored role. user.Role is used only for a new row and is updated from the
// stored value on return.
func (r *PostgresRepository) Touch(ctx context.Context, user *models.User) (*models.User, error) {
	query :=
		`INSERT INTO users (user_id, username, full_name, role)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (user_id) DO UPDATE
		 SET username = EXCLUDED.username, full_name = EXCLUDED.full_name
		 RETURNING role, created_at
		 `

	role := user.Role
	if role == "" {
		role = models.RoleShop
	}

	var stored string
	err := r.db.QueryRowContext(ctx, query, user.ID, user.Username, user.FullName, string(role)).
		Scan(&stored, &user.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	user.Role = models.Role(stored)

	return user, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id int64) (*models.User, error) {
	query :=
		`SELECT user_id, username, full_name, role, created_at FROM users
		 WHERE user_id = $1
		 `

	u := &models.User{}
	var role string
	err := r.db.QueryRowContext(ctx, query, id).Scan(&u.ID, &u.Username, &u.FullName, &role, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	u.Role = models.Role(role)

	return u, nil
}

// Ensure creates a bare row for id when none exists. An existing row is
// left untouched.
func (r *PostgresRepository) Ensure(ctx context.Context, id int64, role models.Role) error {
	query :=
		`INSERT INTO users (user_id, role) VALUES ($1, $2)
		 ON CONFLICT (user_id) DO NOTHING
		 `

	if _, err := r.db.ExecContext(ctx, query, id, string(role)); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) SetRole(ctx context.Context, id int64, role models.Role) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET role = $1 WHERE user_id = $2`, string(role), id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

// List returns a page of users, newest first.
func (r *PostgresRepository) List(ctx context.Context, limit, offset int) ([]models.User, error) {
	query :=
		`SELECT user_id, username, full_name, role, created_at FROM users
		 ORDER BY created_at DESC, user_id
		 LIMIT $1 OFFSET $2
		 `

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []models.User
	for rows.Next() {
		var (
			u    models.User
			role string
		)
		if err := rows.Scan(&u.ID, &u.Username, &u.FullName, &role, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		u.Role = models.Role(role)
		result = append(result, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) IDs(ctx context.Context) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT user_id FROM users ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return ids, nil
}
