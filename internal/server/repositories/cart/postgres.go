// Package cart stores per-user cart lines.
package cart

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/stockkeeper/internal/dbx"
	"github.com/dmitrijs2005/stockkeeper/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Set stores quantity for (userID, article), replacing any previous value.
func (r *PostgresRepository) Set(ctx context.Context, userID int64, article string, quantity int) error {
	query :=
		`INSERT INTO cart (user_id, article, quantity, updated_at)
		 VALUES ($1, $2, $3, CURRENT_TIMESTAMP)
		 ON CONFLICT (user_id, article) DO UPDATE
		 SET quantity = EXCLUDED.quantity, updated_at = CURRENT_TIMESTAMP
		 `

	if _, err := r.db.ExecContext(ctx, query, userID, article, quantity); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// Lines returns the user's cart joined with products, ordered by name.
func (r *PostgresRepository) Lines(ctx context.Context, userID int64) ([]models.CartLine, error) {
	query :=
		`SELECT c.article, p.name, c.quantity, p.department, COALESCE(p.supplier, ''),
			p.stock_qty, p.stock_sum, p.sales_qty, p.sales_sum
		 FROM cart c
		 JOIN products p ON p.article = c.article
		 WHERE c.user_id = $1
		 ORDER BY p.name, c.article
		 `

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []models.CartLine
	for rows.Next() {
		var l models.CartLine
		if err := rows.Scan(&l.Article, &l.Name, &l.Quantity, &l.Department, &l.Supplier,
			&l.StockQty, &l.StockSum, &l.SalesQty, &l.SalesSum); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) Clear(ctx context.Context, userID int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM cart WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// RemoveLine deletes the line only while it still holds quantity and
// reports whether it did.
func (r *PostgresRepository) RemoveLine(ctx context.Context, userID int64, article string, quantity int) (bool, error) {
	query :=
		`DELETE FROM cart
		 WHERE user_id = $1 AND article = $2 AND quantity = $3
		 `

	res, err := r.db.ExecContext(ctx, query, userID, article, quantity)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n > 0, nil
}

// HeldByOthers sums the quantity of article sitting in every cart except
// userID's.
func (r *PostgresRepository) HeldByOthers(ctx context.Context, article string, userID int64) (int, error) {
	query :=
		`SELECT COALESCE(SUM(quantity), 0) FROM cart
		 WHERE article = $1 AND user_id <> $2
		 `

	var held int
	if err := r.db.QueryRowContext(ctx, query, article, userID).Scan(&held); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return held, nil
}
