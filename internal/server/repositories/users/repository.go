package users

import (
	"context"

	"github.com/dmitrijs2005/stockkeeper/internal/server/models"
)

type Repository interface {
	Touch(ctx context.Context, user *models.User) (*models.User, error)
	Get(ctx context.Context, id int64) (*models.User, error)
	Ensure(ctx context.Context, id int64, role models.Role) error
	SetRole(ctx context.Context, id int64, role models.Role) error
	List(ctx context.Context, limit, offset int) ([]models.User, error)
	Count(ctx context.Context) (int, error)
	IDs(ctx context.Context) ([]int64, error)
}
