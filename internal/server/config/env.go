package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// parseEnv loads envFile (or ./.env when empty) into the process
// environment and overlays recognised variables onto config. A missing
// default .env file is not an error; a missing explicit one is.
//
// Recognised variables:
//
//	DATABASE_DSN, or DB_USER/DB_PASS/DB_HOST/DB_PORT/DB_NAME
//	ADMIN_IDS           comma-separated chat user ids
//	MIN_SALES, MIN_STOCK, SHOP_RESERVE, MAX_ORDER_QTY
//	REDIS_ADDR, or REDIS_HOST/REDIS_PORT
//	S3_BUCKET, S3_REGION, S3_ENDPOINT, S3_USER, S3_PASSWORD
//	LOG_FILE, LOG_LEVEL, LOG_BACKEND
func parseEnv(config *Config, envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("load env file %s: %w", envFile, err)
		}
	} else if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	if v, ok := os.LookupEnv("DATABASE_DSN"); ok {
		config.DatabaseDSN = v
	} else if host := os.Getenv("DB_HOST"); host != "" {
		config.DatabaseDSN = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
			os.Getenv("DB_USER"), os.Getenv("DB_PASS"), host, envOr("DB_PORT", "5432"), os.Getenv("DB_NAME"))
	}

	if v, ok := os.LookupEnv("ADMIN_IDS"); ok {
		ids, err := ParseAdminIDs(v)
		if err != nil {
			return err
		}
		config.AdminIDs = ids
	}

	if v, ok := os.LookupEnv("REDIS_ADDR"); ok {
		config.RedisAddr = v
	} else if host := os.Getenv("REDIS_HOST"); host != "" {
		config.RedisAddr = host + ":" + envOr("REDIS_PORT", "6379")
	}

	var err error
	if config.MinSales, err = envFloat("MIN_SALES", config.MinSales); err != nil {
		return err
	}
	if config.MinStock, err = envFloat("MIN_STOCK", config.MinStock); err != nil {
		return err
	}
	if config.ShopReserve, err = envInt("SHOP_RESERVE", config.ShopReserve); err != nil {
		return err
	}
	if config.MaxOrderQty, err = envInt("MAX_ORDER_QTY", config.MaxOrderQty); err != nil {
		return err
	}
	if v, ok := os.LookupEnv("NAV_REF_TTL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("NAV_REF_TTL: %w", err)
		}
		config.NavRefTTL = d
	}

	config.S3Bucket = envOr("S3_BUCKET", config.S3Bucket)
	config.S3Region = envOr("S3_REGION", config.S3Region)
	config.S3BaseEndpoint = envOr("S3_ENDPOINT", config.S3BaseEndpoint)
	config.S3RootUser = envOr("S3_USER", config.S3RootUser)
	config.S3RootPassword = envOr("S3_PASSWORD", config.S3RootPassword)
	config.LogFile = envOr("LOG_FILE", config.LogFile)
	config.LogLevel = envOr("LOG_LEVEL", config.LogLevel)
	config.LogBackend = envOr("LOG_BACKEND", config.LogBackend)

	return nil
}

// ParseAdminIDs parses "123,456" into ids, skipping blank entries.
func ParseAdminIDs(s string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid admin id %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func envOr(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func envFloat(key string, def float64) (float64, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}
