package models

import "github.com/shopspring/decimal"

// OrderItem is one line handed to the export engine.
type OrderItem struct {
	Article    string
	Name       string
	Quantity   int
	Department string
	Supplier   string
}

// CartLine is a cart row joined with its product.
type CartLine struct {
	Article    string
	Name       string
	Quantity   int
	Department int
	Supplier   string
	StockQty   float64
	StockSum   float64
	SalesQty   float64
	SalesSum   float64
}

// UnitPrice is the derived price of the product on this line.
func (l CartLine) UnitPrice() decimal.Decimal {
	return unitPrice(l.StockQty, l.StockSum, l.SalesQty, l.SalesSum)
}

// Total is UnitPrice times Quantity.
func (l CartLine) Total() decimal.Decimal {
	return l.UnitPrice().Mul(decimal.NewFromInt(int64(l.Quantity)))
}
