package importer

import (
	"math"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/stockkeeper/internal/common"
	"github.com/dmitrijs2005/stockkeeper/internal/server/models"
)

// Canonical field names.
const (
	FieldDepartment = "department"
	FieldArticle    = "article"
	FieldName       = "name"
	FieldSupplier   = "supplier"
	FieldResident   = "resident"
	FieldCluster    = "cluster"
	FieldSalesQty   = "sales_qty"
	FieldSalesSum   = "sales_sum"
	FieldStockQty   = "stock_qty"
	FieldStockSum   = "stock_sum"
)

// Source header names.
const (
	HeaderDepartment = "Відділ"
	HeaderArticle    = "Артикул"
	HeaderName       = "Найменування"
	HeaderSupplier   = "Постачальник"
	HeaderResident   = "Резидент"
	HeaderCluster    = "DP"
	HeaderSalesQty   = "Розхід, кіл."
	HeaderSalesSum   = "Розхід ц.р., грн."
	HeaderStockQty   = "Залишок, кіл."
	HeaderStockSum   = "Залишок, грн."
)

// ColumnMapping maps source headers to canonical field names. Headers not
// listed here (and not already canonical) are dropped.
var ColumnMapping = map[string]string{
	HeaderDepartment: FieldDepartment,
	HeaderArticle:    FieldArticle,
	HeaderName:       FieldName,
	HeaderSupplier:   FieldSupplier,
	HeaderResident:   FieldResident,
	HeaderCluster:    FieldCluster,
	HeaderSalesQty:   FieldSalesQty,
	HeaderSalesSum:   FieldSalesSum,
	HeaderStockQty:   FieldStockQty,
	HeaderStockSum:   FieldStockSum,
}

// HierarchyColumns are the category levels, outermost first. They feed the
// category path only.
var HierarchyColumns = []string{"Департамент", "Піддеп-т", "Група", "Підгрупа"}

// Thresholds configure the dead-stock filter. Zero keeps everything.
type Thresholds struct {
	MinSales float64
	MinStock float64
}

// Keep reports whether a row with the given sales and stock survives.
func (t Thresholds) Keep(salesQty, stockQty float64) bool {
	return salesQty >= t.MinSales || stockQty >= t.MinStock
}

// Stats summarises one normalization run.
type Stats struct {
	Read       int
	NoArticle  int
	DeadStock  int
	Normalized int
}

// BuildCategoryPath joins the usable levels with "/". Empty values, the
// literal "0" and "nan" markers are skipped.
func BuildCategoryPath(levels ...string) string {
	parts := make([]string, 0, len(levels))
	for _, l := range levels {
		l = strings.TrimSpace(l)
		if l == "" || l == "0" || strings.EqualFold(l, "nan") {
			continue
		}
		parts = append(parts, strings.ReplaceAll(l, common.CategorySeparator, levelSeparatorSubstitute))
	}
	return strings.Join(parts, common.CategorySeparator)
}

// levelSeparatorSubstitute replaces the path separator inside a single level
// value, so one level stays one segment.
const levelSeparatorSubstitute = "-"

var numberCleaner = strings.NewReplacer(",", ".", "\u00a0", "", "\u202f", "", " ", "")

// ParseNumber reads a locale-formatted number ("1 234,56"). Anything
// unparseable, NaN or infinite becomes 0. The sign is kept.
func ParseNumber(s string) float64 {
	s = numberCleaner.Replace(strings.TrimSpace(s))
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// parseDepartment reads a department number. Values outside the int32
// range of the department column become 0.
func parseDepartment(s string) int {
	f := math.Trunc(ParseNumber(s))
	if f < math.MinInt32 || f > math.MaxInt32 {
		return 0
	}
	return int(f)
}

// columns resolves each canonical field and hierarchy level to a column
// index (-1 when absent). Canonical names are accepted as headers too.
type columns struct {
	field     map[string]int
	hierarchy []int
}

func (c columns) idx(field string) int {
	if i, ok := c.field[field]; ok {
		return i
	}
	return -1
}

func (c columns) has(field string) bool {
	_, ok := c.field[field]
	return ok
}

func resolveColumns(header []string) columns {
	c := columns{field: make(map[string]int), hierarchy: make([]int, len(HierarchyColumns))}
	canonical := make(map[string]struct{}, len(ColumnMapping))
	for _, f := range ColumnMapping {
		canonical[f] = struct{}{}
	}

	for i, h := range header {
		if f, ok := ColumnMapping[h]; ok {
			if _, seen := c.field[f]; !seen {
				c.field[f] = i
			}
			continue
		}
		if _, ok := canonical[h]; ok {
			if _, seen := c.field[h]; !seen {
				c.field[h] = i
			}
		}
	}

	for level, name := range HierarchyColumns {
		c.hierarchy[level] = -1
		for i, h := range header {
			if h == name {
				c.hierarchy[level] = i
				break
			}
		}
	}
	return c
}

// Normalize converts t into products. It fails with *common.SchemaError
// when no article column exists; rows without an article are dropped and
// the dead-stock filter runs only when both sales and stock columns exist.
func Normalize(t *Table, th Thresholds) ([]models.Product, Stats, error) {
	cols := resolveColumns(t.Header)
	if !cols.has(FieldArticle) {
		return nil, Stats{}, &common.SchemaError{Column: HeaderArticle}
	}

	filter := cols.has(FieldSalesQty) && cols.has(FieldStockQty)
	stats := Stats{Read: len(t.Rows)}
	result := make([]models.Product, 0, len(t.Rows))

	for _, row := range t.Rows {
		article := t.Cell(row, cols.idx(FieldArticle))
		if article == "" || strings.EqualFold(article, "nan") {
			stats.NoArticle++
			continue
		}

		levels := make([]string, len(cols.hierarchy))
		for i, ci := range cols.hierarchy {
			levels[i] = t.Cell(row, ci)
		}

		p := models.Product{
			Article:      article,
			Name:         t.Cell(row, cols.idx(FieldName)),
			Department:   parseDepartment(t.Cell(row, cols.idx(FieldDepartment))),
			CategoryPath: BuildCategoryPath(levels...),
			Supplier:     t.Cell(row, cols.idx(FieldSupplier)),
			Resident:     t.Cell(row, cols.idx(FieldResident)),
			Cluster:      t.Cell(row, cols.idx(FieldCluster)),
			SalesQty:     ParseNumber(t.Cell(row, cols.idx(FieldSalesQty))),
			SalesSum:     ParseNumber(t.Cell(row, cols.idx(FieldSalesSum))),
			StockQty:     ParseNumber(t.Cell(row, cols.idx(FieldStockQty))),
			StockSum:     ParseNumber(t.Cell(row, cols.idx(FieldStockSum))),
		}

		if filter && !th.Keep(p.SalesQty, p.StockQty) {
			stats.DeadStock++
			continue
		}
		result = append(result, p)
	}

	stats.Normalized = len(result)
	return result, stats, nil
}
