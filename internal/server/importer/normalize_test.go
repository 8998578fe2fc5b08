package importer

import (
	"errors"
	"strings"
	"testing"

	"github.com/dmitrijs2005/stockkeeper/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNumber(t *testing.T) {
	tests := map[string]float64{
		"1 234,56":     1234.56,
		"1\u00a0234,5": 1234.5,
		"1\u202f000":   1000,
		"":             0,
		"abc":          0,
		"  42 ":        42,
		"10.0":         10,
		"-3,5":         -3.5,
		"NaN":          0,
		"Inf":          0,
		"1e3":          1000,
	}
	for in, want := range tests {
		assert.InDelta(t, want, ParseNumber(in), 1e-9, "input %q", in)
	}
}

func TestBuildCategoryPath(t *testing.T) {
	assert.Equal(t, "Tools/Fasteners/Bolts", BuildCategoryPath(" Tools ", "Fasteners", "", "Bolts"))
	assert.Equal(t, "", BuildCategoryPath("", "0", "nan", "NaN"))
	assert.Equal(t, "A/B", BuildCategoryPath("A", "0", "B"))
	assert.Equal(t, "Побут-Хімія/Мило", BuildCategoryPath("Побут/Хімія", "Мило"))
}

func TestParseDepartment(t *testing.T) {
	tests := map[string]int{
		"10":          10,
		"20.0":        20,
		"7,9":         7,
		"-3":          -3,
		"":            0,
		"abc":         0,
		"99999999999": 0,
		"1e30":        0,
		"-1e30":       0,
		"2147483647":  2147483647,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseDepartment(in), "input %q", in)
	}
}

func TestBuildCategoryPath_RoundTrip(t *testing.T) {
	values := []string{"", "Garden", "Tools", "Hand"}
	for _, a := range values {
		for _, b := range values {
			for _, c := range values {
				for _, d := range values {
					levels := []string{a, b, c, d}
					var want []string
					for _, l := range levels {
						if l != "" {
							want = append(want, l)
						}
					}
					path := BuildCategoryPath(levels...)
					if len(want) == 0 {
						assert.Equal(t, "", path)
						continue
					}
					assert.Equal(t, want, strings.Split(path, "/"))
				}
			}
		}
	}
}

func TestNormalize_MissingArticle(t *testing.T) {
	tbl := &Table{Header: []string{"Найменування"}, Rows: [][]string{{"Bolt"}}}

	_, _, err := Normalize(tbl, Thresholds{})
	var se *common.SchemaError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, HeaderArticle, se.Column)
}

func TestNormalize_CanonicalHeadersAccepted(t *testing.T) {
	tbl := &Table{
		Header: []string{"article", "name", "stock_qty"},
		Rows:   [][]string{{"A1", "Bolt", "5"}},
	}
	got, _, err := Normalize(tbl, Thresholds{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 5.0, got[0].StockQty)
}

func TestNormalize_FullRow(t *testing.T) {
	tbl := &Table{
		Header: []string{"Відділ", "Департамент", "Піддеп-т", "Група", "Підгрупа", "Артикул", "Найменування",
			"Постачальник", "Резидент", "DP", "Розхід, кіл.", "Розхід ц.р., грн.", "Залишок, кіл.", "Залишок, грн.", "Ignored"},
		Rows: [][]string{
			{"10", "Tools", "Hand", "0", "Hammers", "A1", "Hammer", "Acme", "UA", "A", "5", "1 250,00", "7", "1 750,5", "x"},
			{"", "", "", "", "", "", "orphan"},
			{"20.0", "", "", "", "", "A2", "Loose"},
			{"99999999999", "", "", "", "", "A3", "Overflow"},
			{"1e30", "Побут/Хімія", "", "", "", "A4", "Huge"},
		},
	}

	got, stats, err := Normalize(tbl, Thresholds{})
	require.NoError(t, err)
	require.Len(t, got, 4)

	p := got[0]
	assert.Equal(t, "A1", p.Article)
	assert.Equal(t, 10, p.Department)
	assert.Equal(t, "Tools/Hand/Hammers", p.CategoryPath)
	assert.Equal(t, "Acme", p.Supplier)
	assert.Equal(t, "UA", p.Resident)
	assert.Equal(t, "A", p.Cluster)
	assert.Equal(t, 5.0, p.SalesQty)
	assert.Equal(t, 1250.0, p.SalesSum)
	assert.Equal(t, 7.0, p.StockQty)
	assert.Equal(t, 1750.5, p.StockSum)

	assert.Equal(t, 20, got[1].Department)
	assert.Equal(t, "", got[1].CategoryPath)

	assert.Equal(t, 0, got[2].Department)
	assert.Equal(t, 0, got[3].Department)
	assert.Equal(t, "Побут-Хімія", got[3].CategoryPath)

	assert.Equal(t, Stats{Read: 5, NoArticle: 1, Normalized: 4}, stats)
}

func TestNormalize_DeadStockFilter(t *testing.T) {
	tbl := &Table{
		Header: []string{"Артикул", "Розхід, кіл.", "Залишок, кіл."},
		Rows: [][]string{
			{"A1", "5", "0"},
			{"A2", "0", "0"},
			{"A3", "0", "10"},
		},
	}

	got, stats, err := Normalize(tbl, Thresholds{MinSales: 1, MinStock: 1})
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.Equal(t, "A1", got[0].Article)
	assert.Equal(t, "A3", got[1].Article)
	assert.Equal(t, 1, stats.DeadStock)

	all, _, err := Normalize(tbl, Thresholds{})
	require.NoError(t, err)
	assert.Len(t, all, 3, "zero thresholds keep everything")
}

func TestNormalize_FilterNeedsBothColumns(t *testing.T) {
	tbl := &Table{
		Header: []string{"Артикул", "Розхід, кіл."},
		Rows:   [][]string{{"A1", "0"}},
	}
	got, _, err := Normalize(tbl, Thresholds{MinSales: 1, MinStock: 1})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestThresholds_Keep(t *testing.T) {
	th := Thresholds{MinSales: 2, MinStock: 3}
	assert.False(t, th.Keep(0, 0))
	assert.True(t, th.Keep(2, 0))
	assert.True(t, th.Keep(0, 3))
	assert.False(t, th.Keep(1.9, 2.9))
}
