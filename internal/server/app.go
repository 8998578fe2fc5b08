// Package server wires the inventory bot core: storage, migrations, the
// navigation registry, the order archive and the services, and runs the
// console front end until it exits or a termination signal arrives.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/dmitrijs2005/stockkeeper/internal/logging"
	"github.com/dmitrijs2005/stockkeeper/internal/netx"
	"github.com/dmitrijs2005/stockkeeper/internal/notify"
	"github.com/dmitrijs2005/stockkeeper/internal/server/catalog"
	"github.com/dmitrijs2005/stockkeeper/internal/server/config"
	"github.com/dmitrijs2005/stockkeeper/internal/server/console"
	"github.com/dmitrijs2005/stockkeeper/internal/server/exporter"
	"github.com/dmitrijs2005/stockkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/stockkeeper/internal/server/services"
	"github.com/dmitrijs2005/stockkeeper/internal/server/store"
)

type App struct {
	config  config.Config
	logger  logging.Logger
	db      *sql.DB
	closers []io.Closer
	console *console.Console
	in      io.Reader
}

// openDB is a seam for tests.
var openDB = store.Open

func NewApp(ctx context.Context, cfg config.Config) (*App, error) {
	logger, err := logging.New(logging.Options{Backend: cfg.LogBackend, Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		return nil, fmt.Errorf("logger init error: %w", err)
	}

	db, err := openDB(ctx, cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	app := &App{config: cfg, logger: logger, db: db, in: os.Stdin}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		app.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	registry, err := app.newRegistry(ctx)
	if err != nil {
		app.Close()
		return nil, err
	}

	archiver, err := newArchiver(ctx, cfg)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("archive init error: %w", err)
	}

	notifier := notify.New(logger, notify.NewWriterForwarder(os.Stderr))
	exp := exporter.New(cfg.TempDir, cfg.MaxFileSize)

	svc := console.Services{
		Catalog:  services.NewCatalogService(db, rm, cfg, registry, logger),
		Cart:     services.NewCartService(db, rm, cfg, logger),
		Orders:   services.NewOrderService(db, rm, cfg, exp, archiver, logger),
		Users:    services.NewUserService(db, rm, cfg, notifier, logger),
		Imports:  services.NewImportService(db, rm, cfg, logger),
		Sources:  netx.NewDownloader(cfg.DownloadTimeout),
		Notifier: notifier,
	}
	app.console = console.New(svc, consoleUser(cfg), outboxDir(cfg), cfg.TempDir, logger)

	return app, nil
}

// newRegistry uses Redis when an address is configured and an in-process
// registry otherwise.
func (app *App) newRegistry(ctx context.Context) (catalog.Registry, error) {
	cfg := app.config
	if cfg.RedisAddr == "" {
		return catalog.NewMemoryRegistry(cfg.NavRefTTL, cfg.NavRefCapacity), nil
	}
	client, err := catalog.NewRedisClient(ctx, cfg.RedisAddr)
	if err != nil {
		return nil, fmt.Errorf("redis init error: %w", err)
	}
	app.closers = append(app.closers, client)
	return catalog.NewRedisRegistry(client, cfg.NavRefTTL), nil
}

// newArchiver uses S3 when a bucket is configured and the local archive
// directory otherwise.
func newArchiver(ctx context.Context, cfg config.Config) (exporter.Archiver, error) {
	if cfg.S3Bucket == "" {
		return exporter.NewDirArchiver(cfg.ArchiveDir), nil
	}
	client, err := exporter.NewS3Client(ctx, exporter.S3Options{
		Region:   cfg.S3Region,
		User:     cfg.S3RootUser,
		Password: cfg.S3RootPassword,
		Endpoint: cfg.S3BaseEndpoint,
		Bucket:   cfg.S3Bucket,
	})
	if err != nil {
		return nil, err
	}
	return exporter.NewS3Archiver(client, cfg.S3Bucket), nil
}

// consoleUser is the first configured admin, or 1 when none is set.
func consoleUser(cfg config.Config) int64 {
	if len(cfg.AdminIDs) > 0 {
		return cfg.AdminIDs[0]
	}
	return 1
}

func outboxDir(cfg config.Config) string {
	return filepath.Join(filepath.Dir(filepath.Clean(cfg.TempDir)), "outbox")
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")
	app.initSignalHandler(cancelFunc)

	err := app.console.Run(ctx, app.in)

	app.logger.Info(ctx, "Stopping app...")
	app.Close()
	return err
}

// Close releases the database pool and the optional Redis client.
func (app *App) Close() {
	ctx := context.Background()
	for _, c := range app.closers {
		if err := c.Close(); err != nil {
			app.logger.Error(ctx, "close error", "error", err)
		}
	}
	app.closers = nil
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error(ctx, "db close error", "error", err)
		}
		app.db = nil
	}
}
