// Package products stores catalog rows keyed by article.
package products

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/stockkeeper/internal/common"
	"github.com/dmitrijs2005/stockkeeper/internal/dbx"
	"github.com/dmitrijs2005/stockkeeper/internal/server/models"
)

const selectColumns = `article, name, department, category_path,
		COALESCE(supplier, ''), COALESCE(resident, ''), COALESCE(cluster, ''),
		sales_qty, sales_sum, stock_qty, stock_sum, updated_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProduct(s scanner) (models.Product, error) {
	var p models.Product
	err := s.Scan(&p.Article, &p.Name, &p.Department, &p.CategoryPath,
		&p.Supplier, &p.Resident, &p.Cluster,
		&p.SalesQty, &p.SalesSum, &p.StockQty, &p.StockSum, &p.UpdatedAt)
	return p, err
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]models.Product, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []models.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) one(ctx context.Context, query string, args ...any) (*models.Product, error) {
	p, err := scanProduct(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &p, nil
}

// UpsertBatch inserts or replaces every product of batch by article. All
// business fields are overwritten and updated_at is bumped.
func (r *PostgresRepository) UpsertBatch(ctx context.Context, batch []models.Product) error {
	query :=
		`INSERT INTO products (article, name, department, category_path, supplier, resident, cluster,
			sales_qty, sales_sum, stock_qty, stock_sum, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, CURRENT_TIMESTAMP)
		 ON CONFLICT (article) DO UPDATE SET
			name = EXCLUDED.name,
			department = EXCLUDED.department,
			category_path = EXCLUDED.category_path,
			supplier = EXCLUDED.supplier,
			resident = EXCLUDED.resident,
			cluster = EXCLUDED.cluster,
			sales_qty = EXCLUDED.sales_qty,
			sales_sum = EXCLUDED.sales_sum,
			stock_qty = EXCLUDED.stock_qty,
			stock_sum = EXCLUDED.stock_sum,
			updated_at = CURRENT_TIMESTAMP
		 `

	for _, p := range batch {
		_, err := r.db.ExecContext(ctx, query,
			p.Article, p.Name, p.Department, p.CategoryPath, p.Supplier, p.Resident, p.Cluster,
			p.SalesQty, p.SalesSum, p.StockQty, p.StockSum)
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}
	}
	return nil
}

func (r *PostgresRepository) GetByArticle(ctx context.Context, article string) (*models.Product, error) {
	return r.one(ctx, `SELECT `+selectColumns+` FROM products WHERE article = $1`, article)
}

// LockByArticle reads the product holding a row lock until the enclosing
// transaction ends.
func (r *PostgresRepository) LockByArticle(ctx context.Context, article string) (*models.Product, error) {
	return r.one(ctx, `SELECT `+selectColumns+` FROM products WHERE article = $1 FOR UPDATE`, article)
}

func (r *PostgresRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) Departments(ctx context.Context) ([]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT department FROM products ORDER BY department`)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []int
	for rows.Next() {
		var d int
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

// PathsUnder returns the distinct non-empty category paths of department
// that equal prefix or lie below it. An empty prefix returns all of them.
func (r *PostgresRepository) PathsUnder(ctx context.Context, department int, prefix string) ([]string, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if prefix == "" {
		rows, err = r.db.QueryContext(ctx,
			`SELECT DISTINCT category_path FROM products
			 WHERE department = $1 AND category_path <> ''`, department)
	} else {
		rows, err = r.db.QueryContext(ctx,
			`SELECT DISTINCT category_path FROM products
			 WHERE department = $1 AND (category_path = $2 OR category_path LIKE $3 ESCAPE '\')`,
			department, prefix, EscapeLike(prefix)+"/%")
	}
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) ListByPath(ctx context.Context, department int, path string, limit, offset int) ([]models.Product, error) {
	return r.list(ctx,
		`SELECT `+selectColumns+` FROM products
		 WHERE department = $1 AND category_path = $2
		 ORDER BY name, article
		 LIMIT $3 OFFSET $4`,
		department, path, limit, offset)
}

func (r *PostgresRepository) CountByPath(ctx context.Context, department int, path string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM products WHERE department = $1 AND category_path = $2`,
		department, path).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

// Search matches the article exactly or the name as a case-insensitive
// substring.
func (r *PostgresRepository) Search(ctx context.Context, query string, limit int) ([]models.Product, error) {
	return r.list(ctx,
		`SELECT `+selectColumns+` FROM products
		 WHERE article = $1 OR name ILIKE $2 ESCAPE '\'
		 ORDER BY name, article
		 LIMIT $3`,
		query, "%"+EscapeLike(query)+"%", limit)
}

// ListAll returns every product ordered by department and name, optionally
// restricted to one department.
func (r *PostgresRepository) ListAll(ctx context.Context, department *int) ([]models.Product, error) {
	if department != nil {
		return r.list(ctx,
			`SELECT `+selectColumns+` FROM products WHERE department = $1 ORDER BY department, name`,
			*department)
	}
	return r.list(ctx, `SELECT `+selectColumns+` FROM products ORDER BY department, name`)
}

// ReplenishmentCandidates returns selling products whose stock is below
// sales or below the critical level.
func (r *PostgresRepository) ReplenishmentCandidates(ctx context.Context, critical float64) ([]models.Product, error) {
	return r.list(ctx,
		`SELECT `+selectColumns+` FROM products
		 WHERE (stock_qty < sales_qty OR stock_qty < $1) AND sales_qty > 0
		 ORDER BY supplier, name`,
		critical)
}

func (r *PostgresRepository) LowStock(ctx context.Context, below float64) ([]models.Product, error) {
	return r.list(ctx,
		`SELECT `+selectColumns+` FROM products
		 WHERE stock_qty < $1
		 ORDER BY department, name`,
		below)
}

func (r *PostgresRepository) TopSales(ctx context.Context, limit int) ([]models.Product, error) {
	return r.list(ctx,
		`SELECT `+selectColumns+` FROM products
		 ORDER BY sales_sum DESC
		 LIMIT $1`,
		limit)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// EscapeLike escapes LIKE wildcards in s for use with ESCAPE '\'.
func EscapeLike(s string) string {
	return likeEscaper.Replace(s)
}
