package shared

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// LineTotals is the money breakdown of one invoice line, rounded to paise.
type LineTotals struct {
	Net    decimal.Decimal
	GST    decimal.Decimal
	Amount decimal.Decimal
}

// ComputeLine prices qty units at rate plus gstPercent tax.
func ComputeLine(qty int, rate, gstPercent decimal.Decimal) LineTotals {
	net := rate.Mul(decimal.NewFromInt(int64(qty))).Round(2)
	gst := net.Mul(gstPercent).Div(hundred).Round(2)
	return LineTotals{Net: net, GST: gst, Amount: net.Add(gst)}
}

// InvoiceTotals sums line totals into invoice subtotal, tax and grand total.
func InvoiceTotals(lines []LineTotals) (subtotal, gst, total decimal.Decimal) {
	for _, l := range lines {
		subtotal = subtotal.Add(l.Net)
		gst = gst.Add(l.GST)
		total = total.Add(l.Amount)
	}
	return subtotal, gst, total
}

// CheckMoney rejects negative rates and GST outside 0..100.
func CheckMoney(field string, rate, gstPercent decimal.Decimal) error {
	if rate.IsNegative() {
		return fmt.Errorf("%w: %s rate must not be negative", ErrValidation, field)
	}
	if gstPercent.IsNegative() || gstPercent.GreaterThan(hundred) {
		return fmt.Errorf("%w: %s gst_percent must be between 0 and 100", ErrValidation, field)
	}
	return nil
}
