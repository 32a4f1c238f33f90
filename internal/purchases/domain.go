// Package purchases records vendor invoices. Each line raises product stock
// and becomes the purchase history the catalog reads latest rates from.
package purchases

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/partsdesk/partsdesk/internal/shared"
)

// DateLayout is the wire format of invoice dates.
const DateLayout = "2006-01-02"

// Invoice is a purchase invoice header. Lines is only populated by Get.
type Invoice struct {
	ID          int64           `json:"id"`
	InvoiceNo   string          `json:"invoice_no"`
	VendorID    int64           `json:"vendor_id"`
	VendorName  string          `json:"vendorName"`
	InvoiceDate time.Time       `json:"invoice_date"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	GSTAmount   decimal.Decimal `json:"gst_amount"`
	Total       decimal.Decimal `json:"total"`
	CreatedAt   time.Time       `json:"created_at"`
	Lines       []Line          `json:"lines,omitempty"`
}

// Line is one purchase_line_items row. NameOfProduct holds the product id as
// a string, which is the key the latest-rate queries match on.
type Line struct {
	ID            int64           `json:"id"`
	InvoiceID     int64           `json:"purchase_invoice_id"`
	NameOfProduct string          `json:"name_of_product"`
	Qty           int             `json:"qty"`
	Rate          decimal.Decimal `json:"rate"`
	GSTPercent    decimal.Decimal `json:"gst_percent"`
	Amount        decimal.Decimal `json:"amount"`
	InvoiceDate   time.Time       `json:"invoice_date"`
}

// CreateInput is the create payload.
type CreateInput struct {
	InvoiceNo   string      `json:"invoice_no" validate:"required,max=60"`
	VendorName  string      `json:"vendor_name" validate:"required,max=160"`
	InvoiceDate string      `json:"invoice_date" validate:"required,datetime=2006-01-02"`
	Lines       []LineInput `json:"lines" validate:"required,min=1,dive"`
}

// LineInput is one requested line.
type LineInput struct {
	ProductID  int64           `json:"product_id" validate:"required,gt=0"`
	Qty        int             `json:"qty" validate:"required,gt=0"`
	Rate       decimal.Decimal `json:"rate"`
	GSTPercent decimal.Decimal `json:"gst_percent"`
}

// ListFilter narrows the invoice listing. Zero dates are unbounded.
type ListFilter struct {
	Page     shared.PageRequest
	Search   string
	VendorID int64
	From     time.Time
	To       time.Time
}

// ListResult is the listing response body.
type ListResult struct {
	Invoices   []Invoice         `json:"invoices"`
	Pagination shared.Pagination `json:"pagination"`
}
