// Package sales records customer invoices and takes the sold quantities out
// of product stock.
package sales

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/partsdesk/partsdesk/internal/shared"
)

// DateLayout is the wire format of invoice dates.
const DateLayout = "2006-01-02"

// Invoice is a sales invoice header. Lines is only populated by Get and Create.
type Invoice struct {
	ID           int64           `json:"id"`
	InvoiceNo    string          `json:"invoice_no"`
	CustomerID   int64           `json:"customer_id"`
	CustomerName string          `json:"customerName"`
	InvoiceDate  time.Time       `json:"invoice_date"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	GSTAmount    decimal.Decimal `json:"gst_amount"`
	Total        decimal.Decimal `json:"total"`
	CreatedAt    time.Time       `json:"created_at"`
	Lines        []Line          `json:"lines,omitempty"`
}

// Line is one sales_line_items row.
type Line struct {
	ID         int64           `json:"id"`
	InvoiceID  int64           `json:"sales_invoice_id"`
	ProductID  int64           `json:"product_id"`
	Qty        int             `json:"qty"`
	Rate       decimal.Decimal `json:"rate"`
	GSTPercent decimal.Decimal `json:"gst_percent"`
	Amount     decimal.Decimal `json:"amount"`
}

// CreateInput is the create payload. A blank invoice number is generated.
type CreateInput struct {
	InvoiceNo    string      `json:"invoice_no" validate:"max=60"`
	CustomerName string      `json:"customer_name" validate:"required,max=160"`
	InvoiceDate  string      `json:"invoice_date" validate:"required,datetime=2006-01-02"`
	Lines        []LineInput `json:"lines" validate:"required,min=1,dive"`
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
	Page       shared.PageRequest
	Search     string
	CustomerID int64
	From       time.Time
	To         time.Time
}

// ListResult is the listing response body.
type ListResult struct {
	Invoices   []Invoice         `json:"invoices"`
	Pagination shared.Pagination `json:"pagination"`
}
