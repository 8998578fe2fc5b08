package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/stockkeeper/internal/dbx"
	"github.com/dmitrijs2005/stockkeeper/internal/logging"
	"github.com/dmitrijs2005/stockkeeper/internal/server/config"
	"github.com/dmitrijs2005/stockkeeper/internal/server/importer"
	"github.com/dmitrijs2005/stockkeeper/internal/server/repositories/repomanager"
)

const defaultBatchSize = 1000

// ImportResult summarises one import run.
type ImportResult struct {
	Stats    importer.Stats
	Upserted int
	// CatalogSize is the product count after the run, or -1 if it could
	// not be read.
	CatalogSize int
	Duration    time.Duration
}

// ImportService loads stock/sales spreadsheets into the catalog.
type ImportService struct {
	db          *sql.DB
	tx          dbx.Transactor
	repomanager repomanager.RepositoryManager
	cfg         config.Config
	log         logging.Logger
}

func NewImportService(db *sql.DB, m repomanager.RepositoryManager, cfg config.Config, log logging.Logger) *ImportService {
	return &ImportService{
		db:          db,
		tx:          dbx.NewTransactor(db, nil),
		repomanager: m,
		cfg:         cfg,
		log:         log.With("module", "import"),
	}
}

// Import reads the file at path, normalizes it and upserts the surviving
// rows in batches. Each batch commits on its own: when a batch fails the
// earlier ones stay applied and the result reports how many rows made it.
// Cancelling ctx stops the run between batches. progress may be nil.
func (s *ImportService) Import(ctx context.Context, path string, progress importer.ProgressFunc) (*ImportResult, error) {
	start := time.Now()
	report := func(processed, total int, stage importer.Stage) {
		if progress != nil {
			progress(processed, total, stage)
		}
	}

	report(0, 0, importer.StageReading)
	t, err := importer.ReadTable(path)
	if err != nil {
		return nil, err
	}

	th := importer.Thresholds{MinSales: s.cfg.MinSales, MinStock: s.cfg.MinStock}
	rows, stats, err := importer.Normalize(t, th)
	if err != nil {
		return nil, err
	}
	s.log.Info(ctx, "file normalized",
		"file", path, "read", stats.Read, "no_article", stats.NoArticle,
		"dead_stock", stats.DeadStock, "kept", stats.Normalized)

	res := &ImportResult{Stats: stats, CatalogSize: -1}

	batch := s.cfg.ImportBatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}

	total := len(rows)
	for i := 0; i < total; i += batch {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		end := min(i+batch, total)
		err := s.tx.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
			return s.repomanager.Products(tx).UpsertBatch(ctx, rows[i:end])
		})
		if err != nil {
			s.log.Error(ctx, "batch upsert failed", "from", i, "to", end, "error", err)
			return res, fmt.Errorf("upsert rows %d-%d: %w", i+1, end, err)
		}

		res.Upserted = end
		report(end, total, importer.StageInserting)
	}

	if n, err := s.repomanager.Products(s.db).Count(ctx); err != nil {
		s.log.Warn(ctx, "cannot count products", "error", err)
	} else {
		res.CatalogSize = n
	}
	res.Duration = time.Since(start)

	s.log.Info(ctx, "import finished", "upserted", res.Upserted, "catalog", res.CatalogSize, "took", res.Duration)
	return res, nil
}
