package parties

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/partsdesk/partsdesk/internal/shared"
)

// Service validates party writes.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService builds a Service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// List returns one page of parties and the total match count.
func (s *Service) List(ctx context.Context, kind Kind, search string, page shared.PageRequest) ([]Party, shared.Pagination, error) {
	list, total, err := s.repo.List(ctx, kind, strings.TrimSpace(search), page.Limit, page.Offset())
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	if list == nil {
		list = []Party{}
	}
	return list, shared.NewPagination(page, total), nil
}

func (s *Service) Get(ctx context.Context, kind Kind, id int64) (Party, error) {
	if id <= 0 {
		return Party{}, fmt.Errorf("%w: invalid %s id", shared.ErrValidation, kind.Label())
	}
	return s.repo.Get(ctx, kind, id)
}

func (s *Service) Create(ctx context.Context, kind Kind, in Input) (Party, error) {
	p, err := fromInput(in)
	if err != nil {
		return Party{}, err
	}
	created, err := s.repo.Create(ctx, kind, p)
	if err != nil {
		return Party{}, err
	}
	s.logger.Info("party created", slog.String("kind", kind.Label()), slog.Int64("id", created.ID))
	return created, nil
}

func (s *Service) Update(ctx context.Context, kind Kind, id int64, in Input) (Party, error) {
	if id <= 0 {
		return Party{}, fmt.Errorf("%w: invalid %s id", shared.ErrValidation, kind.Label())
	}
	p, err := fromInput(in)
	if err != nil {
		return Party{}, err
	}
	p.ID = id
	return s.repo.Update(ctx, kind, p)
}

// Names resolves party ids for invoice listings.
func (s *Service) Names(ctx context.Context, kind Kind, ids []int64) (map[int64]string, error) {
	return s.repo.NamesByIDs(ctx, kind, ids)
}

func fromInput(in Input) (Party, error) {
	in.Name = shared.NormalizeName(in.Name)
	in.GSTIN = strings.ToUpper(strings.TrimSpace(in.GSTIN))
	in.Phone = strings.TrimSpace(in.Phone)
	in.Address = strings.TrimSpace(in.Address)
	if err := shared.Validate(in); err != nil {
		return Party{}, err
	}
	return Party{Name: in.Name, GSTIN: in.GSTIN, Phone: in.Phone, Address: in.Address}, nil
}
