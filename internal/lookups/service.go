package lookups

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/partsdesk/partsdesk/internal/lookup"
	"github.com/partsdesk/partsdesk/internal/shared"
)

// Service validates lookup writes and keeps the lookup cache honest: every
// successful write invalidates the cached name maps of its table.
type Service struct {
	repo   Repository
	cache  lookup.Cache
	logger *slog.Logger
}

// NewService wires a Service. cache may be nil.
func NewService(repo Repository, cache lookup.Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, cache: cache, logger: logger}
}

// List returns one page of entries and the total match count.
func (s *Service) List(ctx context.Context, kind Kind, search string, page shared.PageRequest) ([]Entry, shared.Pagination, error) {
	entries, total, err := s.repo.List(ctx, kind, search, page.Limit, page.Offset())
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	if entries == nil {
		entries = []Entry{}
	}
	return entries, shared.NewPagination(page, total), nil
}

// Get fetches one entry.
func (s *Service) Get(ctx context.Context, kind Kind, id int64) (Entry, error) {
	if id <= 0 {
		return Entry{}, fmt.Errorf("%w: invalid %s id", shared.ErrValidation, kind.Label())
	}
	return s.repo.Get(ctx, kind, id)
}

// Create inserts a new entry.
func (s *Service) Create(ctx context.Context, kind Kind, in EntryInput) (Entry, error) {
	name, err := s.validate(in)
	if err != nil {
		return Entry{}, err
	}
	entry, err := s.repo.Create(ctx, kind, name)
	if err != nil {
		return Entry{}, err
	}
	s.invalidate(ctx, kind)
	return entry, nil
}

// Update renames an entry.
func (s *Service) Update(ctx context.Context, kind Kind, id int64, in EntryInput) (Entry, error) {
	if id <= 0 {
		return Entry{}, fmt.Errorf("%w: invalid %s id", shared.ErrValidation, kind.Label())
	}
	name, err := s.validate(in)
	if err != nil {
		return Entry{}, err
	}
	entry, err := s.repo.Update(ctx, kind, id, name)
	if err != nil {
		return Entry{}, err
	}
	s.invalidate(ctx, kind)
	return entry, nil
}

// Delete removes an entry. Products referencing it fall back to no value.
func (s *Service) Delete(ctx context.Context, kind Kind, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: invalid %s id", shared.ErrValidation, kind.Label())
	}
	if err := s.repo.Delete(ctx, kind, id); err != nil {
		return err
	}
	s.invalidate(ctx, kind)
	return nil
}

func (s *Service) validate(in EntryInput) (string, error) {
	in.Name = shared.NormalizeName(in.Name)
	if err := shared.Validate(in); err != nil {
		return "", err
	}
	return in.Name, nil
}

// invalidate failures only widen the staleness window back to the TTL, so
// they are logged rather than failing the write.
func (s *Service) invalidate(ctx context.Context, kind Kind) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, string(kind)); err != nil {
		s.logger.Warn("invalidate lookup cache", slog.String("kind", string(kind)), slog.Any("error", err))
	}
}
