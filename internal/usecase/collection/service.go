package collection

import (
	"context"
	"fmt"

	"github.com/scholarmesh/paperdex/internal/domain"
	domcol "github.com/scholarmesh/paperdex/internal/domain/collection"
	"github.com/scholarmesh/paperdex/internal/domain/collection/field"
)

// Stats is a per-collection document count snapshot.
type Stats struct {
	Name      string
	Documents int
	VectorDim int
}

// Service handles collection CRUD operations and statistics.
type Service struct {
	repo      Repository
	docs      DocumentCounter
	vectorDim int
}

// New creates a collection service. vectorDim is the default dimension for
// new collections.
func New(repo Repository, docs DocumentCounter, vectorDim int) *Service {
	return &Service{repo: repo, docs: docs, vectorDim: vectorDim}
}

// Create validates and stores a new collection.
func (s *Service) Create(ctx context.Context, name string, fields []field.Field) (domcol.Collection, error) {
	col, err := domcol.New(name, fields, s.vectorDim)
	if err != nil {
		return domcol.Collection{}, fmt.Errorf("validate collection: %w: %w", domain.ErrInvalidSchema, err)
	}

	if err := s.repo.Create(ctx, col); err != nil {
		return domcol.Collection{}, fmt.Errorf("create collection: %w", err)
	}

	return col, nil
}

// Get retrieves a collection by name.
func (s *Service) Get(ctx context.Context, name string) (domcol.Collection, error) {
	col, err := s.repo.Get(ctx, name)
	if err != nil {
		return domcol.Collection{}, fmt.Errorf("get collection: %w", err)
	}
	return col, nil
}

// List returns all collections.
func (s *Service) List(ctx context.Context) ([]domcol.Collection, error) {
	cols, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	return cols, nil
}

// Delete removes a collection.
func (s *Service) Delete(ctx context.Context, name string) error {
	if err := s.repo.Delete(ctx, name); err != nil {
		return fmt.Errorf("delete collection: %w", err)
	}
	return nil
}

// Statistics returns per-collection document counts.
func (s *Service) Statistics(ctx context.Context) ([]Stats, error) {
	cols, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}

	stats := make([]Stats, 0, len(cols))
	for _, col := range cols {
		count, err := s.docs.Count(ctx, col.Name())
		if err != nil {
			return nil, fmt.Errorf("count %s: %w", col.Name(), err)
		}
		stats = append(stats, Stats{Name: col.Name(), Documents: count, VectorDim: col.VectorDim()})
	}
	return stats, nil
}
