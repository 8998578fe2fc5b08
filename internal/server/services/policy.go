package services

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/stockkeeper/internal/common"
	"github.com/dmitrijs2005/stockkeeper/internal/server/config"
	"github.com/dmitrijs2005/stockkeeper/internal/server/models"
	"github.com/dmitrijs2005/stockkeeper/internal/server/repositories/users"
)

const defaultPageSize = 10

// resolvePolicy looks up the stored role of userID. Unknown users get the
// shop policy; configured admins always get the admin policy.
func resolvePolicy(ctx context.Context, repo users.Repository, cfg config.Config, userID int64) (models.Policy, error) {
	role := models.RoleShop

	if cfg.IsAdmin(userID) {
		role = models.RoleAdmin
	} else {
		u, err := repo.Get(ctx, userID)
		switch {
		case err == nil:
			role = u.Role
		case !errors.Is(err, common.ErrorNotFound):
			return models.Policy{}, err
		}
	}
	return models.PolicyFor(role, cfg.ShopReserve, cfg.MaxOrderQty), nil
}

func pageSize(cfg config.Config) int {
	if cfg.PageSize <= 0 {
		return defaultPageSize
	}
	return cfg.PageSize
}

// pageCount is at least 1 so an empty listing still has a page.
func pageCount(total, size int) int {
	if total <= 0 {
		return 1
	}
	return (total + size - 1) / size
}

func clampPage(page, pages int) int {
	if page < 1 {
		return 1
	}
	if page > pages {
		return pages
	}
	return page
}
