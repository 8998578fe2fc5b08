// Package models defines the records persisted in the store and the pure
// role policy derived from configuration.
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is one catalog row keyed by Article. CategoryPath is the
// "/"-joined materialized hierarchy (up to four levels, possibly empty).
type Product struct {
	Article      string
	Name         string
	Department   int
	CategoryPath string
	Supplier     string
	Resident     string
	Cluster      string
	SalesQty     float64
	SalesSum     float64
	StockQty     float64
	StockSum     float64
	UpdatedAt    time.Time
}

// UnitPrice derives the price from stock totals, falling back to sales
// totals, and zero when neither has a quantity.
func (p Product) UnitPrice() decimal.Decimal {
	return unitPrice(p.StockQty, p.StockSum, p.SalesQty, p.SalesSum)
}

func unitPrice(stockQty, stockSum, salesQty, salesSum float64) decimal.Decimal {
	switch {
	case stockQty > 0:
		return decimal.NewFromFloat(stockSum).Div(decimal.NewFromFloat(stockQty)).Round(2)
	case salesQty > 0:
		return decimal.NewFromFloat(salesSum).Div(decimal.NewFromFloat(salesQty)).Round(2)
	default:
		return decimal.Zero
	}
}
