// Package catalog owns the product master and its enriched, paginated listing.
package catalog

import (
	"strconv"
	"time"

	"github.com/partsdesk/partsdesk/internal/shared"
)

// lowStockFloor flags any product holding fewer units, whatever its min_stock.
const lowStockFloor = 2

// Product is a catalog row. Category, Company and Subcategory carry lookup ids
// as strings; Subcategory is the comma-joined, ordered id list built from the
// product_subcategories join table.
type Product struct {
	ID          int64     `json:"id"`
	ProductName string    `json:"product_name"`
	PartNo      string    `json:"part_no"`
	HSN         string    `json:"hsn"`
	Category    string    `json:"product_category"`
	Subcategory string    `json:"product_subcategory"`
	Company     string    `json:"company"`
	Stock       int       `json:"stock"`
	MinStock    int       `json:"min_stock"`
	Rate        float64   `json:"rate"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Key is the product id in the string form used by rate maps and line items.
func (p Product) Key() string {
	return strconv.FormatInt(p.ID, 10)
}

// IsLowStock reports stock < min_stock or stock < 2.
func (p Product) IsLowStock() bool {
	return p.Stock < p.MinStock || p.Stock < lowStockFloor
}

// EnrichedProduct is a product with its display names and latest purchase rate.
type EnrichedProduct struct {
	Product
	CategoryName       string  `json:"categoryName"`
	CompanyName        string  `json:"companyName"`
	SubcategoryNames   string  `json:"subcategoryNames"`
	LatestPurchaseRate float64 `json:"latestPurchaseRate"`
}

// ListFilter carries the listing query parameters.
type ListFilter struct {
	Page        shared.PageRequest
	Search      string
	Category    string
	Subcategory string
	Company     string
	LowStock    bool
}

// ListResult is the listing response body.
type ListResult struct {
	Products   []EnrichedProduct `json:"products"`
	Pagination shared.Pagination `json:"pagination"`
}

// ProductInput is the create/update payload.
type ProductInput struct {
	ProductName string  `json:"product_name" validate:"required,max=200"`
	PartNo      string  `json:"part_no" validate:"max=100"`
	HSN         string  `json:"hsn" validate:"max=20"`
	Category    string  `json:"product_category" validate:"omitempty,numeric"`
	Subcategory string  `json:"product_subcategory"`
	Company     string  `json:"company" validate:"omitempty,numeric"`
	Stock       int     `json:"stock" validate:"gte=0"`
	MinStock    int     `json:"min_stock" validate:"gte=0"`
	Rate        float64 `json:"rate" validate:"gte=0"`
}
