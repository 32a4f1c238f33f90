package purchases

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/partsdesk/partsdesk/internal/catalog"
	"github.com/partsdesk/partsdesk/internal/parties"
	"github.com/partsdesk/partsdesk/internal/shared"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (Invoice, error)
	List(ctx context.Context, f ListFilter) ([]Invoice, int, error)
}

// PartyNames resolves vendor names for a page of invoices.
type PartyNames interface {
	Names(ctx context.Context, kind parties.Kind, ids []int64) (map[int64]string, error)
}

// Bumper is told after every committed write so derived caches refresh.
type Bumper interface {
	Bump(ctx context.Context) error
}

// Service orchestrates purchase invoice flows.
type Service struct {
	repo    RepositoryPort
	names   PartyNames
	bumper  Bumper
	logger  *slog.Logger
	nowFunc func() time.Time
}

// NewService constructs the purchase service. bumper may be nil.
func NewService(repo RepositoryPort, names PartyNames, bumper Bumper, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, names: names, bumper: bumper, logger: logger, nowFunc: time.Now}
}

// Create records an invoice. The vendor upsert, the header, every line and
// the stock increments commit together or not at all.
func (s *Service) Create(ctx context.Context, in CreateInput) (Invoice, error) {
	in.InvoiceNo = strings.TrimSpace(in.InvoiceNo)
	in.VendorName = strings.TrimSpace(in.VendorName)
	if err := shared.Validate(in); err != nil {
		return Invoice{}, err
	}
	date, err := time.Parse(DateLayout, in.InvoiceDate)
	if err != nil {
		return Invoice{}, fmt.Errorf("%w: invoice_date: %v", shared.ErrValidation, err)
	}

	inv := Invoice{InvoiceNo: in.InvoiceNo, VendorName: shared.NormalizeName(in.VendorName), InvoiceDate: date}
	totals := make([]shared.LineTotals, 0, len(in.Lines))
	deltas := catalog.StockDeltas{}
	for i, l := range in.Lines {
		if err := shared.CheckMoney(fmt.Sprintf("line %d", i+1), l.Rate, l.GSTPercent); err != nil {
			return Invoice{}, err
		}
		t := shared.ComputeLine(l.Qty, l.Rate, l.GSTPercent)
		totals = append(totals, t)
		deltas.Add(l.ProductID, l.Qty)
		inv.Lines = append(inv.Lines, Line{
			NameOfProduct: strconv.FormatInt(l.ProductID, 10),
			Qty:           l.Qty,
			Rate:          l.Rate,
			GSTPercent:    l.GSTPercent,
			Amount:        t.Amount,
			InvoiceDate:   date,
		})
	}
	inv.Subtotal, inv.GSTAmount, inv.Total = shared.InvoiceTotals(totals)

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		vendorID, err := tx.UpsertVendor(ctx, inv.VendorName)
		if err != nil {
			return err
		}
		inv.VendorID = vendorID
		id, err := tx.CreateInvoice(ctx, inv)
		if err != nil {
			return err
		}
		inv.ID = id
		for i := range inv.Lines {
			inv.Lines[i].InvoiceID = id
		}
		if err := tx.InsertLines(ctx, inv.Lines); err != nil {
			return err
		}
		return tx.ApplyStock(ctx, deltas)
	})
	if err != nil {
		return Invoice{}, err
	}
	inv.CreatedAt = s.nowFunc()
	s.logger.Info("purchase invoice recorded",
		slog.Int64("id", inv.ID), slog.String("invoice_no", inv.InvoiceNo),
		slog.Int("lines", len(inv.Lines)), slog.String("total", inv.Total.StringFixed(2)))
	s.bump(ctx)
	return inv, nil
}

// Get returns an invoice with its lines.
func (s *Service) Get(ctx context.Context, id int64) (Invoice, error) {
	if id <= 0 {
		return Invoice{}, fmt.Errorf("%w: invalid purchase invoice id", shared.ErrValidation)
	}
	return s.repo.Get(ctx, id)
}

// List pages invoice headers and attaches vendor names with one batch lookup.
// A vendor that cannot be resolved shows its id.
func (s *Service) List(ctx context.Context, f ListFilter) (ListResult, error) {
	invoices, total, err := s.repo.List(ctx, f)
	if err != nil {
		return ListResult{}, err
	}
	if invoices == nil {
		invoices = []Invoice{}
	}
	ids := make([]int64, 0, len(invoices))
	seen := map[int64]struct{}{}
	for _, inv := range invoices {
		if _, ok := seen[inv.VendorID]; !ok {
			seen[inv.VendorID] = struct{}{}
			ids = append(ids, inv.VendorID)
		}
	}
	if len(ids) > 0 {
		names, err := s.names.Names(ctx, parties.KindVendor, ids)
		if err != nil {
			return ListResult{}, fmt.Errorf("purchases: vendor names: %w", err)
		}
		for i := range invoices {
			if name, ok := names[invoices[i].VendorID]; ok {
				invoices[i].VendorName = name
			} else {
				invoices[i].VendorName = strconv.FormatInt(invoices[i].VendorID, 10)
			}
		}
	}
	return ListResult{Invoices: invoices, Pagination: shared.NewPagination(f.Page, total)}, nil
}

// Delete removes an invoice and takes its quantities back out of stock. It
// fails with shared.ErrInsufficientStock when the goods were already sold.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: invalid purchase invoice id", shared.ErrValidation)
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inv, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		deltas := catalog.StockDeltas{}
		for _, l := range inv.Lines {
			productID, err := strconv.ParseInt(l.NameOfProduct, 10, 64)
			if err != nil {
				continue
			}
			deltas.Add(productID, -l.Qty)
		}
		if err := tx.ApplyStock(ctx, deltas); err != nil {
			return err
		}
		return tx.DeleteInvoice(ctx, id)
	})
	if err != nil {
		return err
	}
	s.logger.Info("purchase invoice deleted", slog.Int64("id", id))
	s.bump(ctx)
	return nil
}

func (s *Service) bump(ctx context.Context) {
	if s.bumper == nil {
		return
	}
	if err := s.bumper.Bump(ctx); err != nil {
		s.logger.Warn("bump dashboard cache", slog.Any("error", err))
	}
}
