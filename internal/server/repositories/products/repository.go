package products

import (
	"context"

	"github.com/dmitrijs2005/stockkeeper/internal/server/models"
)

type Repository interface {
	UpsertBatch(ctx context.Context, batch []models.Product) error
	GetByArticle(ctx context.Context, article string) (*models.Product, error)
	LockByArticle(ctx context.Context, article string) (*models.Product, error)
	Count(ctx context.Context) (int, error)
	Departments(ctx context.Context) ([]int, error)
	PathsUnder(ctx context.Context, department int, prefix string) ([]string, error)
	ListByPath(ctx context.Context, department int, path string, limit, offset int) ([]models.Product, error)
	CountByPath(ctx context.Context, department int, path string) (int, error)
	Search(ctx context.Context, query string, limit int) ([]models.Product, error)
	ListAll(ctx context.Context, department *int) ([]models.Product, error)
	ReplenishmentCandidates(ctx context.Context, critical float64) ([]models.Product, error)
	LowStock(ctx context.Context, below float64) ([]models.Product, error)
	TopSales(ctx context.Context, limit int) ([]models.Product, error)
}
