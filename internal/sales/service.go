package sales

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

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

// PartyNames resolves customer names for a page of invoices.
type PartyNames interface {
	Names(ctx context.Context, kind parties.Kind, ids []int64) (map[int64]string, error)
}

// Bumper is told after every committed sale.
type Bumper interface {
	Bump(ctx context.Context) error
}

// Service orchestrates sales invoice flows.
type Service struct {
	repo    RepositoryPort
	names   PartyNames
	bumper  Bumper
	logger  *slog.Logger
	nowFunc func() time.Time
	numbers func(time.Time) string
}

// NewService constructs the sales service. bumper may be nil.
func NewService(repo RepositoryPort, names PartyNames, bumper Bumper, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:    repo,
		names:   names,
		bumper:  bumper,
		logger:  logger,
		nowFunc: time.Now,
		numbers: generateNumber,
	}
}

// generateNumber builds SI-<date>-<8 hex chars> for invoices entered without
// a number.
func generateNumber(date time.Time) string {
	id := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return fmt.Sprintf("SI-%s-%s", date.Format("20060102"), id[:8])
}

// Create records a sale. Stock is checked and decremented in the same
// transaction as the invoice; any line short of stock aborts the whole sale
// with shared.ErrInsufficientStock.
func (s *Service) Create(ctx context.Context, in CreateInput) (Invoice, error) {
	in.InvoiceNo = strings.TrimSpace(in.InvoiceNo)
	in.CustomerName = strings.TrimSpace(in.CustomerName)
	if err := shared.Validate(in); err != nil {
		return Invoice{}, err
	}
	date, err := time.Parse(DateLayout, in.InvoiceDate)
	if err != nil {
		return Invoice{}, fmt.Errorf("%w: invoice_date: %v", shared.ErrValidation, err)
	}
	if in.InvoiceNo == "" {
		in.InvoiceNo = s.numbers(date)
	}

	inv := Invoice{InvoiceNo: in.InvoiceNo, CustomerName: shared.NormalizeName(in.CustomerName), InvoiceDate: date}
	totals := make([]shared.LineTotals, 0, len(in.Lines))
	deltas := catalog.StockDeltas{}
	for i, l := range in.Lines {
		if err := shared.CheckMoney(fmt.Sprintf("line %d", i+1), l.Rate, l.GSTPercent); err != nil {
			return Invoice{}, err
		}
		t := shared.ComputeLine(l.Qty, l.Rate, l.GSTPercent)
		totals = append(totals, t)
		deltas.Add(l.ProductID, -l.Qty)
		inv.Lines = append(inv.Lines, Line{
			ProductID:  l.ProductID,
			Qty:        l.Qty,
			Rate:       l.Rate,
			GSTPercent: l.GSTPercent,
			Amount:     t.Amount,
		})
	}
	inv.Subtotal, inv.GSTAmount, inv.Total = shared.InvoiceTotals(totals)

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		customerID, err := tx.UpsertCustomer(ctx, inv.CustomerName)
		if err != nil {
			return err
		}
		inv.CustomerID = customerID
		id, err := tx.CreateInvoice(ctx, inv)
		if err != nil {
			return err
		}
		inv.ID = id
		if err := tx.ApplyStock(ctx, deltas); err != nil {
			return err
		}
		for i := range inv.Lines {
			inv.Lines[i].InvoiceID = id
		}
		return tx.InsertLines(ctx, inv.Lines)
	})
	if err != nil {
		return Invoice{}, err
	}
	inv.CreatedAt = s.nowFunc()
	s.logger.Info("sales invoice recorded",
		slog.Int64("id", inv.ID), slog.String("invoice_no", inv.InvoiceNo),
		slog.String("total", inv.Total.StringFixed(2)))
	if s.bumper != nil {
		if err := s.bumper.Bump(ctx); err != nil {
			s.logger.Warn("bump dashboard cache", slog.Any("error", err))
		}
	}
	return inv, nil
}

// Get returns an invoice with its lines.
func (s *Service) Get(ctx context.Context, id int64) (Invoice, error) {
	if id <= 0 {
		return Invoice{}, fmt.Errorf("%w: invalid sales invoice id", shared.ErrValidation)
	}
	return s.repo.Get(ctx, id)
}

// List pages invoice headers and attaches customer names in one batch.
func (s *Service) List(ctx context.Context, f ListFilter) (ListResult, error) {
	invoices, total, err := s.repo.List(ctx, f)
	if err != nil {
		return ListResult{}, err
	}
	if invoices == nil {
		invoices = []Invoice{}
	}
	var ids []int64
	seen := map[int64]bool{}
	for _, inv := range invoices {
		if !seen[inv.CustomerID] {
			seen[inv.CustomerID] = true
			ids = append(ids, inv.CustomerID)
		}
	}
	if len(ids) > 0 {
		names, err := s.names.Names(ctx, parties.KindCustomer, ids)
		if err != nil {
			return ListResult{}, fmt.Errorf("sales: customer names: %w", err)
		}
		for i := range invoices {
			name, ok := names[invoices[i].CustomerID]
			if !ok {
				name = strconv.FormatInt(invoices[i].CustomerID, 10)
			}
			invoices[i].CustomerName = name
		}
	}
	return ListResult{Invoices: invoices, Pagination: shared.NewPagination(f.Page, total)}, nil
}
