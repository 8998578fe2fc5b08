package cart

import (
	"context"

	"github.com/dmitrijs2005/stockkeeper/internal/server/models"
)

type Repository interface {
	Set(ctx context.Context, userID int64, article string, quantity int) error
	Lines(ctx context.Context, userID int64) ([]models.CartLine, error)
	Clear(ctx context.Context, userID int64) error
	RemoveLine(ctx context.Context, userID int64, article string, quantity int) (bool, error)
	HeldByOthers(ctx context.Context, article string, userID int64) (int, error)
}
