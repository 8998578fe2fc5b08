package services

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/dmitrijs2005/stockkeeper/internal/common"
	"github.com/dmitrijs2005/stockkeeper/internal/dbx"
	"github.com/dmitrijs2005/stockkeeper/internal/filex"
	"github.com/dmitrijs2005/stockkeeper/internal/logging"
	"github.com/dmitrijs2005/stockkeeper/internal/server/config"
	"github.com/dmitrijs2005/stockkeeper/internal/server/exporter"
	"github.com/dmitrijs2005/stockkeeper/internal/server/models"
	"github.com/dmitrijs2005/stockkeeper/internal/server/repositories/repomanager"
)

const (
	// criticalStock is the on-hand quantity below which an item is
	// reordered or reported regardless of sales.
	criticalStock = 3
	// fallbackReorderQty replaces a non-positive recommended quantity.
	fallbackReorderQty = 2
	topSalesLimit      = 50
	topSalesGroup      = "TOP-50_GLOBAL"
)

// Delivery summarises files produced and handed to a Deliverer.
type Delivery struct {
	Lines    int
	Files    int
	Mode     models.GroupingMode
	Archived []string
}

// OrderService turns carts and catalog analytics into spreadsheets.
type OrderService struct {
	db          *sql.DB
	tx          dbx.Transactor
	repomanager repomanager.RepositoryManager
	cfg         config.Config
	exporter    *exporter.Exporter
	archiver    exporter.Archiver
	log         logging.Logger
}

// NewOrderService constructs an OrderService. Submitted orders are archived
// with archiver; a nil archiver deletes them after delivery.
func NewOrderService(db *sql.DB, m repomanager.RepositoryManager, cfg config.Config, exp *exporter.Exporter, archiver exporter.Archiver, log logging.Logger) *OrderService {
	return &OrderService{
		db:          db,
		tx:          dbx.NewTransactor(db, nil),
		repomanager: m,
		cfg:         cfg,
		exporter:    exp,
		archiver:    archiver,
		log:         log.With("module", "orders"),
	}
}

func (s *OrderService) policy(ctx context.Context, userID int64) (models.Policy, error) {
	return resolvePolicy(ctx, s.repomanager.Users(s.db), s.cfg, userID)
}

func (s *OrderService) analyticsPolicy(ctx context.Context, userID int64) (models.Policy, error) {
	p, err := s.policy(ctx, userID)
	if err != nil {
		return p, err
	}
	if !p.Analytics {
		return p, common.ErrorUnauthorized
	}
	return p, nil
}

// Submit exports the user's cart grouped the way their role requires,
// delivers and archives the files, and removes the exported lines from the
// cart. A line whose quantity changed after it was read stays in the cart.
// The cart is kept when generation or delivery fails.
func (s *OrderService) Submit(ctx context.Context, userID int64, deliver exporter.Deliverer) (*Delivery, error) {
	p, err := s.policy(ctx, userID)
	if err != nil {
		return nil, err
	}

	lines, err := s.repomanager.Cart(s.db).Lines(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, common.ErrEmptyCart
	}

	items := make([]models.OrderItem, 0, len(lines))
	for _, l := range lines {
		items = append(items, models.OrderItem{
			Article:    l.Article,
			Name:       l.Name,
			Quantity:   l.Quantity,
			Department: strconv.Itoa(l.Department),
			Supplier:   l.Supplier,
		})
	}

	d, err := s.deliver(ctx, items, p.Grouping, deliver, s.archiver)
	if err != nil {
		return nil, err
	}

	kept := 0
	err = s.tx.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Cart(tx)
		for _, l := range lines {
			removed, err := repo.RemoveLine(ctx, userID, l.Article, l.Quantity)
			if err != nil {
				return err
			}
			if !removed {
				kept++
			}
		}
		return nil
	})
	if err != nil {
		return d, fmt.Errorf("order delivered but cart not cleared: %w", err)
	}

	s.log.Info(ctx, "order submitted", "user_id", userID, "lines", d.Lines, "files", d.Files,
		"mode", d.Mode.String(), "kept", kept)
	return d, nil
}

// AutoOrder proposes a replenishment for items selling faster than their
// stock or close to running out.
func (s *OrderService) AutoOrder(ctx context.Context, userID int64, mode models.GroupingMode, deliver exporter.Deliverer) (*Delivery, error) {
	if _, err := s.analyticsPolicy(ctx, userID); err != nil {
		return nil, err
	}

	products, err := s.repomanager.Products(s.db).ReplenishmentCandidates(ctx, criticalStock)
	if err != nil {
		return nil, err
	}

	items := make([]models.OrderItem, 0, len(products))
	for _, p := range products {
		qty := int(p.SalesQty - p.StockQty)
		if qty <= 0 {
			qty = fallbackReorderQty
		}
		items = append(items, orderItem(p, qty))
	}
	return s.deliver(ctx, items, mode, deliver, nil)
}

// LowStock reports items with fewer than three units on hand; the quantity
// column carries the current stock.
func (s *OrderService) LowStock(ctx context.Context, userID int64, deliver exporter.Deliverer) (*Delivery, error) {
	if _, err := s.analyticsPolicy(ctx, userID); err != nil {
		return nil, err
	}

	products, err := s.repomanager.Products(s.db).LowStock(ctx, criticalStock)
	if err != nil {
		return nil, err
	}

	items := make([]models.OrderItem, 0, len(products))
	for _, p := range products {
		items = append(items, orderItem(p, int(p.StockQty)))
	}
	return s.deliver(ctx, items, models.GroupByDepartment, deliver, nil)
}

// TopSales writes the fifty best sellers by revenue into a single file.
func (s *OrderService) TopSales(ctx context.Context, userID int64, deliver exporter.Deliverer) (*Delivery, error) {
	if _, err := s.analyticsPolicy(ctx, userID); err != nil {
		return nil, err
	}

	products, err := s.repomanager.Products(s.db).TopSales(ctx, topSalesLimit)
	if err != nil {
		return nil, err
	}

	items := make([]models.OrderItem, 0, len(products))
	for _, p := range products {
		it := orderItem(p, int(p.SalesQty))
		it.Name = fmt.Sprintf("%s (%.0f грн)", p.Name, p.SalesSum)
		it.Department = topSalesGroup
		items = append(items, it)
	}
	return s.deliver(ctx, items, models.GroupByDepartment, deliver, nil)
}

// ExportBase dumps the catalog, optionally one department only, in the
// import layout. Admins only.
func (s *OrderService) ExportBase(ctx context.Context, userID int64, department *int, deliver exporter.Deliverer) (*Delivery, error) {
	p, err := s.policy(ctx, userID)
	if err != nil {
		return nil, err
	}
	if p.Role != models.RoleAdmin {
		return nil, common.ErrorUnauthorized
	}

	products, err := s.repomanager.Products(s.db).ListAll(ctx, department)
	if err != nil {
		return nil, err
	}

	path, err := s.exporter.ExportFullBase(ctx, products, department)
	if err != nil {
		return nil, err
	}
	if _, err := exporter.Dispatch(ctx, []string{path}, deliver, nil, s.log); err != nil {
		return nil, err
	}
	return &Delivery{Lines: len(products), Files: 1}, nil
}

// Archive lists the most recent archived order files.
func (s *OrderService) Archive(ctx context.Context, limit int) ([]exporter.ArchivedFile, error) {
	if s.archiver == nil {
		return nil, nil
	}
	return s.archiver.Recent(ctx, limit)
}

func (s *OrderService) deliver(ctx context.Context, items []models.OrderItem, mode models.GroupingMode, deliver exporter.Deliverer, archiver exporter.Archiver) (*Delivery, error) {
	files, err := s.exporter.GenerateOrderFiles(ctx, items, mode)
	if err != nil {
		for _, f := range files {
			_ = filex.Remove(f)
		}
		return nil, err
	}

	locs, err := exporter.Dispatch(ctx, files, deliver, archiver, s.log)
	if err != nil {
		return nil, err
	}
	return &Delivery{Lines: len(items), Files: len(files), Mode: mode, Archived: locs}, nil
}

func orderItem(p models.Product, qty int) models.OrderItem {
	return models.OrderItem{
		Article:    p.Article,
		Name:       p.Name,
		Quantity:   qty,
		Department: strconv.Itoa(p.Department),
		Supplier:   p.Supplier,
	}
}
