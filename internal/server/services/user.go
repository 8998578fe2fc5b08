// Package services contains the bot's business logic. This file implements
// UserService, which registers chat users, manages their roles and feeds
// the admin dashboard.
package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/stockkeeper/internal/common"
	"github.com/dmitrijs2005/stockkeeper/internal/logging"
	"github.com/dmitrijs2005/stockkeeper/internal/server/config"
	"github.com/dmitrijs2005/stockkeeper/internal/server/models"
	"github.com/dmitrijs2005/stockkeeper/internal/server/repositories/repomanager"
)

// Auditor records administrative actions.
type Auditor interface {
	Info(ctx context.Context, text string)
}

// SendFunc delivers a text message to one chat user.
type SendFunc func(ctx context.Context, userID int64, text string) error

// UserPage is one page of the user list, newest first.
type UserPage struct {
	Users []models.User
	Page  int
	Pages int
	Total int
}

// Stats backs the admin dashboard.
type Stats struct {
	Users    int
	Products int
}

type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	cfg         config.Config
	audit       Auditor
	log         logging.Logger
}

// NewUserService constructs a UserService. audit may be nil.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, cfg config.Config, audit Auditor, log logging.Logger) *UserService {
	return &UserService{
		db:          db,
		repomanager: m,
		cfg:         cfg,
		audit:       audit,
		log:         log.With("module", "users"),
	}
}

// Touch registers the user on first contact and refreshes their names
// afterwards. Configured admin ids are promoted to admin.
func (s *UserService) Touch(ctx context.Context, user models.User) (*models.User, error) {
	repo := s.repomanager.Users(s.db)

	u, err := repo.Touch(ctx, &user)
	if err != nil {
		return nil, fmt.Errorf("error saving user: %w", err)
	}

	if s.cfg.IsAdmin(u.ID) && u.Role != models.RoleAdmin {
		if err := repo.SetRole(ctx, u.ID, models.RoleAdmin); err != nil {
			return nil, fmt.Errorf("error promoting admin: %w", err)
		}
		u.Role = models.RoleAdmin
		s.log.Info(ctx, "configured admin promoted", "user_id", u.ID)
	}
	return u, nil
}

func (s *UserService) Get(ctx context.Context, id int64) (*models.User, error) {
	return s.repomanager.Users(s.db).Get(ctx, id)
}

// List returns the 1-based page of users. Out-of-range pages are clamped.
func (s *UserService) List(ctx context.Context, page int) (*UserPage, error) {
	repo := s.repomanager.Users(s.db)

	total, err := repo.Count(ctx)
	if err != nil {
		return nil, err
	}

	size := pageSize(s.cfg)
	pages := pageCount(total, size)
	page = clampPage(page, pages)

	users, err := repo.List(ctx, size, (page-1)*size)
	if err != nil {
		return nil, err
	}
	return &UserPage{Users: users, Page: page, Pages: pages, Total: total}, nil
}

// SetRole changes the role of target. Only admins may do this. The target
// is told about the change through notify when it is not nil.
func (s *UserService) SetRole(ctx context.Context, actorID, targetID int64, role string, notify SendFunc) error {
	r, err := models.ParseRole(role)
	if err != nil {
		return err
	}

	if err := s.requireRole(ctx, actorID, models.RoleAdmin); err != nil {
		return err
	}

	if err := s.repomanager.Users(s.db).SetRole(ctx, targetID, r); err != nil {
		return err
	}

	if s.audit != nil {
		s.audit.Info(ctx, fmt.Sprintf("👮‍♂️ <b>Role change</b>\nAdmin: %d\nUser ID: %d\nNew role: <b>%s</b>", actorID, targetID, r))
	}
	if notify != nil {
		if err := notify(ctx, targetID, fmt.Sprintf("Your role is now %s", r)); err != nil {
			s.log.Warn(ctx, "cannot notify user about role change", "user_id", targetID, "error", err)
		}
	}
	return nil
}

func (s *UserService) Stats(ctx context.Context) (*Stats, error) {
	users, err := s.repomanager.Users(s.db).Count(ctx)
	if err != nil {
		return nil, err
	}
	products, err := s.repomanager.Products(s.db).Count(ctx)
	if err != nil {
		return nil, err
	}
	return &Stats{Users: users, Products: products}, nil
}

// Broadcast sends text to every registered user and returns how many
// messages were delivered. Individual failures are logged and skipped.
func (s *UserService) Broadcast(ctx context.Context, actorID int64, text string, send SendFunc) (int, error) {
	if err := s.requireRole(ctx, actorID, models.RoleAdmin); err != nil {
		return 0, err
	}

	ids, err := s.repomanager.Users(s.db).IDs(ctx)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return sent, err
		}
		if err := send(ctx, id, text); err != nil {
			s.log.Warn(ctx, "broadcast delivery failed", "user_id", id, "error", err)
			continue
		}
		sent++
	}
	s.log.Info(ctx, "broadcast finished", "sent", sent, "total", len(ids))
	return sent, nil
}

func (s *UserService) requireRole(ctx context.Context, userID int64, role models.Role) error {
	p, err := resolvePolicy(ctx, s.repomanager.Users(s.db), s.cfg, userID)
	if err != nil {
		return err
	}
	if p.Role != role {
		return common.ErrorUnauthorized
	}
	return nil
}
