// Package exporter renders order lines and catalog dumps to xlsx files,
// one file per group, and owns their lifecycle until they are archived.
package exporter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/stockkeeper/internal/common"
	"github.com/dmitrijs2005/stockkeeper/internal/server/models"
)

// Output headers.
const (
	ColDepartment = "Відділ"
	ColArticle    = "Артикул"
	ColName       = "Найменування"
	ColQuantity   = "Кількість"
	ColSupplier   = "Постачальник"
)

// Group fallbacks and file prefixes.
const (
	DefaultDepartment = "General"
	DefaultSupplier   = "Other"

	PrefixTransfer = "ЗПТ_"
	PrefixOrder    = "Order_"
)

// FullBaseColumns is the fixed column order of a full catalog export; it
// matches the import layout.
var FullBaseColumns = []string{
	"Відділ", "Департамент", "Піддеп-т", "Група", "Підгрупа",
	"Артикул", "Найменування", "Постачальник", "Резидент", "DP",
	"Розхід, кіл.", "Розхід ц.р., грн.", "Залишок, кіл.", "Залишок, грн.",
}

type Exporter struct {
	dir     string
	maxSize int64
	now     func() time.Time
}

// New returns an Exporter writing into dir. Files larger than maxSize are
// zipped before being handed back.
func New(dir string, maxSize int64) *Exporter {
	return &Exporter{dir: dir, maxSize: maxSize, now: time.Now}
}

// GenerateOrderFiles writes one file per distinct group value of items and
// returns their paths in group order. Department mode omits the supplier
// column; supplier mode puts rows without a supplier into "Other".
func (e *Exporter) GenerateOrderFiles(ctx context.Context, items []models.OrderItem, mode models.GroupingMode) ([]string, error) {
	if len(items) == 0 {
		return nil, common.ErrNothingToExport
	}
	if err := os.MkdirAll(e.dir, 0o770); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", e.dir, err)
	}

	header := []string{ColDepartment, ColArticle, ColName, ColQuantity}
	prefix := PrefixTransfer
	if mode == models.GroupBySupplier {
		header = append(header, ColSupplier)
		prefix = PrefixOrder
	}

	groups := make(map[string][][]any)
	for _, it := range items {
		dept := it.Department
		if strings.TrimSpace(dept) == "" {
			dept = DefaultDepartment
		}
		row := []any{dept, it.Article, it.Name, it.Quantity}

		key := dept
		if mode == models.GroupBySupplier {
			supplier := it.Supplier
			if strings.TrimSpace(supplier) == "" {
				supplier = DefaultSupplier
			}
			row = append(row, supplier)
			key = supplier
		}
		groups[key] = append(groups[key], row)
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	now := e.now()
	paths := make([]string, 0, len(keys))
	for _, k := range keys {
		if err := ctx.Err(); err != nil {
			return paths, err
		}
		path := filepath.Join(e.dir, fileName(prefix, Slug(k), now))
		if err := writeSheet(path, header, groups[k]); err != nil {
			return paths, err
		}
		out, err := guardSize(path, e.maxSize)
		if err != nil {
			return paths, err
		}
		paths = append(paths, out)
	}
	return paths, nil
}

// ExportFullBase writes products in the import layout, re-splitting the
// category path into the four hierarchy columns. department, when set,
// keeps only that department.
func (e *Exporter) ExportFullBase(ctx context.Context, products []models.Product, department *int) (string, error) {
	rows := make([][]any, 0, len(products))
	for _, p := range products {
		if department != nil && p.Department != *department {
			continue
		}
		levels := SplitCategoryPath(p.CategoryPath)
		rows = append(rows, []any{
			p.Department, levels[0], levels[1], levels[2], levels[3],
			p.Article, p.Name, p.Supplier, p.Resident, p.Cluster,
			p.SalesQty, p.SalesSum, p.StockQty, p.StockSum,
		})
	}
	if len(rows) == 0 {
		return "", common.ErrNothingToExport
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(e.dir, 0o770); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", e.dir, err)
	}

	prefix, slug := "Export_", "FULL_Base"
	if department != nil {
		prefix, slug = "Export_Dept_", Slug(strconv.Itoa(*department))
	}
	path := filepath.Join(e.dir, fileName(prefix, slug, e.now()))
	if err := writeSheet(path, FullBaseColumns, rows); err != nil {
		return "", err
	}
	return guardSize(path, e.maxSize)
}

// SplitCategoryPath is the inverse of path synthesis: it returns exactly
// four levels, padding with empty strings. Levels beyond the fourth are
// folded into the last one.
func SplitCategoryPath(path string) [4]string {
	var out [4]string
	if path == "" {
		return out
	}
	parts := strings.SplitN(path, common.CategorySeparator, 4)
	copy(out[:], parts)
	return out
}
