package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/stockkeeper/internal/common"
	"github.com/dmitrijs2005/stockkeeper/internal/dbx"
	"github.com/dmitrijs2005/stockkeeper/internal/logging"
	"github.com/dmitrijs2005/stockkeeper/internal/server/config"
	"github.com/dmitrijs2005/stockkeeper/internal/server/models"
	"github.com/dmitrijs2005/stockkeeper/internal/server/repositories/repomanager"
	"github.com/shopspring/decimal"
)

// Outcome is the result of a reservation attempt.
type Outcome int

const (
	Reserved Outcome = iota
	InsufficientStock
	ProductNotFound
)

func (o Outcome) String() string {
	switch o {
	case Reserved:
		return "reserved"
	case InsufficientStock:
		return "insufficient_stock"
	case ProductNotFound:
		return "not_found"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Reservation reports a cart quantity change. Limit is the live
// availability for the user's role at the time of the attempt.
type Reservation struct {
	Outcome  Outcome
	Article  string
	Quantity int
	Limit    int
}

// Err converts a failed outcome into an error for callers that prefer one.
func (r *Reservation) Err() error {
	switch r.Outcome {
	case InsufficientStock:
		return &common.InsufficientStockError{Article: r.Article, Requested: r.Quantity, Limit: r.Limit}
	case ProductNotFound:
		return fmt.Errorf("product %s: %w", r.Article, common.ErrorNotFound)
	default:
		return nil
	}
}

// CartView is the content of a cart with its estimated value.
type CartView struct {
	Lines []models.CartLine
	Total decimal.Decimal
}

type CartService struct {
	db          *sql.DB
	tx          dbx.Transactor
	repomanager repomanager.RepositoryManager
	cfg         config.Config
	log         logging.Logger
}

func NewCartService(db *sql.DB, m repomanager.RepositoryManager, cfg config.Config, log logging.Logger) *CartService {
	return &CartService{
		db:          db,
		tx:          dbx.NewTransactor(db, nil),
		repomanager: m,
		cfg:         cfg,
		log:         log.With("module", "cart"),
	}
}

// SetQuantity sets the cart quantity of article for userID, replacing any
// earlier value. Quantities held in other carts count against the stock.
// The product row is locked for the whole check-and-write, so concurrent
// reservations against the same stock are serialized.
func (s *CartService) SetQuantity(ctx context.Context, userID int64, article string, qty int) (*Reservation, error) {
	if qty <= 0 {
		return nil, common.ErrInvalidQuantity
	}

	res := &Reservation{Article: article, Quantity: qty}

	err := s.tx.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		policy, err := resolvePolicy(ctx, s.repomanager.Users(tx), s.cfg, userID)
		if err != nil {
			return err
		}

		p, err := s.repomanager.Products(tx).LockByArticle(ctx, article)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				res.Outcome = ProductNotFound
				return nil
			}
			return err
		}

		held, err := s.repomanager.Cart(tx).HeldByOthers(ctx, article, userID)
		if err != nil {
			return err
		}

		res.Limit = policy.Limit(p.StockQty - float64(held))
		if qty > res.Limit {
			res.Outcome = InsufficientStock
			return nil
		}

		// cart rows reference users; a first-time user gets a row here
		if err := s.repomanager.Users(tx).Ensure(ctx, userID, policy.Role); err != nil {
			return err
		}
		if err := s.repomanager.Cart(tx).Set(ctx, userID, article, qty); err != nil {
			return err
		}
		res.Outcome = Reserved
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Debug(ctx, "reservation", "user_id", userID, "article", article,
		"qty", qty, "limit", res.Limit, "outcome", res.Outcome.String())
	return res, nil
}

func (s *CartService) View(ctx context.Context, userID int64) (*CartView, error) {
	lines, err := s.repomanager.Cart(s.db).Lines(ctx, userID)
	if err != nil {
		return nil, err
	}

	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Total())
	}
	return &CartView{Lines: lines, Total: total}, nil
}

func (s *CartService) Clear(ctx context.Context, userID int64) error {
	return s.repomanager.Cart(s.db).Clear(ctx, userID)
}
