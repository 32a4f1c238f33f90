// Package reports builds the dashboard summary.
package reports

import (
	"time"

	"github.com/shopspring/decimal"
)

// TopLowStock is how many low-stock products the dashboard lists.
const TopLowStock = 5

// Range is an inclusive invoice date range.
type Range struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// Totals aggregates invoices within a range.
type Totals struct {
	Count int             `json:"count"`
	Total decimal.Decimal `json:"total"`
}

// LowStockItem is one row of the dashboard low-stock table.
type LowStockItem struct {
	ID          int64  `json:"id"`
	ProductName string `json:"product_name"`
	PartNo      string `json:"part_no"`
	Stock       int    `json:"stock"`
	MinStock    int    `json:"min_stock"`
}

// Summary is the dashboard payload.
type Summary struct {
	Range         Range          `json:"range"`
	ProductCount  int            `json:"productCount"`
	LowStockCount int            `json:"lowStockCount"`
	Purchases     Totals         `json:"purchases"`
	Sales         Totals         `json:"sales"`
	LowStock      []LowStockItem `json:"lowStock"`
	GeneratedAt   time.Time      `json:"generatedAt"`
}
