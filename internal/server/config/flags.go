package config

import (
	"flag"
	"fmt"
	"io"

	"github.com/dmitrijs2005/stockkeeper/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-d string   PostgreSQL DSN
//	-a string   comma-separated admin ids
//	-r int      shop reserve (units)
//	-q int      max order quantity per line
//	-t string   temp directory
//	-o string   orders archive directory
//	-b string   S3 bucket name (empty keeps archive local)
//	-e string   S3 base endpoint
//	-g string   S3 region
//	-k string   redis address for the navigation registry
//	-l string   log level
//
// Args are filtered with flagx.FilterArgs first so -c/-env and foreign
// flags do not trip the parser.
func parseFlags(config *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-d", "-a", "-r", "-q", "-t", "-o", "-b", "-e", "-g", "-k", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	admins := fs.String("a", "", "comma-separated admin ids")
	fs.IntVar(&config.ShopReserve, "r", config.ShopReserve, "units held back from shop role")
	fs.IntVar(&config.MaxOrderQty, "q", config.MaxOrderQty, "max order quantity per line")
	fs.StringVar(&config.TempDir, "t", config.TempDir, "temp directory")
	fs.StringVar(&config.ArchiveDir, "o", config.ArchiveDir, "orders archive directory")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.RedisAddr, "k", config.RedisAddr, "redis address")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}

	if *admins != "" {
		ids, err := ParseAdminIDs(*admins)
		if err != nil {
			return err
		}
		config.AdminIDs = ids
	}
	return nil
}
