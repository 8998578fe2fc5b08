package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/stockkeeper/internal/timex"
)

// JsonConfig is the DTO read from the JSON config file. Pointer and
// zero-value fields that are absent leave the current setting untouched.
// Durations accept "30m" or integer nanoseconds.
type JsonConfig struct {
	DatabaseDSN     string          `json:"database_dsn"`
	AdminIDs        []int64         `json:"admin_ids"`
	MinSales        *float64        `json:"min_sales"`
	MinStock        *float64        `json:"min_stock"`
	ShopReserve     *int            `json:"shop_reserve"`
	MaxOrderQty     int             `json:"max_order_qty"`
	ImportBatchSize int             `json:"import_batch_size"`
	PageSize        int             `json:"page_size"`
	TempDir         string          `json:"temp_dir"`
	ArchiveDir      string          `json:"archive_dir"`
	MaxFileSize     int64           `json:"max_file_size"`
	S3RootUser      string          `json:"s3_root_user"`
	S3RootPassword  string          `json:"s3_root_password"`
	S3Bucket        string          `json:"s3_bucket"`
	S3Region        string          `json:"s3_region"`
	S3BaseEndpoint  string          `json:"s3_base_endpoint"`
	RedisAddr       string          `json:"redis_addr"`
	NavRefTTL       *timex.Duration `json:"nav_ref_ttl"`
	NavRefCapacity  int             `json:"nav_ref_capacity"`
	DownloadTimeout *timex.Duration `json:"download_timeout"`
	LogFile         string          `json:"log_file"`
	LogLevel        string          `json:"log_level"`
	LogBackend      string          `json:"log_backend"`
}

// parseJson overlays values from the JSON file at path onto config.
// An empty path is a no-op.
func parseJson(config *Config, path string) error {
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	setString(&config.DatabaseDSN, c.DatabaseDSN)
	if c.AdminIDs != nil {
		config.AdminIDs = c.AdminIDs
	}
	if c.MinSales != nil {
		config.MinSales = *c.MinSales
	}
	if c.MinStock != nil {
		config.MinStock = *c.MinStock
	}
	if c.ShopReserve != nil {
		config.ShopReserve = *c.ShopReserve
	}
	setInt(&config.MaxOrderQty, c.MaxOrderQty)
	setInt(&config.ImportBatchSize, c.ImportBatchSize)
	setInt(&config.PageSize, c.PageSize)
	setString(&config.TempDir, c.TempDir)
	setString(&config.ArchiveDir, c.ArchiveDir)
	if c.MaxFileSize > 0 {
		config.MaxFileSize = c.MaxFileSize
	}
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.RedisAddr, c.RedisAddr)
	if c.NavRefTTL != nil {
		config.NavRefTTL = c.NavRefTTL.Duration
	}
	setInt(&config.NavRefCapacity, c.NavRefCapacity)
	if c.DownloadTimeout != nil {
		config.DownloadTimeout = c.DownloadTimeout.Duration
	}
	setString(&config.LogFile, c.LogFile)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.LogBackend, c.LogBackend)

	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v > 0 {
		*dst = v
	}
}
