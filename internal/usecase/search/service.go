package search

import (
	"context"
	"fmt"

	"github.com/scholarmesh/paperdex/internal/domain"
	domcol "github.com/scholarmesh/paperdex/internal/domain/collection"
	"github.com/scholarmesh/paperdex/internal/domain/collection/field"
	"github.com/scholarmesh/paperdex/internal/domain/search/filter"
	"github.com/scholarmesh/paperdex/internal/domain/search/mode"
	"github.com/scholarmesh/paperdex/internal/domain/search/request"
	"github.com/scholarmesh/paperdex/internal/domain/search/result"
)

// Service handles document search across semantic, keyword, and hybrid modes.
type Service struct {
	repo      Repository
	colls     CollectionReader
	embed     Embedder
	overfetch int
}

// New creates a search service. overfetchFactor scales the per-side candidate
// pool for hybrid fusion; values below 1 select the default.
func New(repo Repository, colls CollectionReader, embed Embedder, overfetchFactor int) *Service {
	if overfetchFactor < 1 {
		overfetchFactor = DefaultOverfetchFactor
	}
	return &Service{repo: repo, colls: colls, embed: embed, overfetch: overfetchFactor}
}

// Search executes a document search. An empty result list is a valid
// outcome, not an error.
func (s *Service) Search(
	ctx context.Context, collectionName string, req *request.Request,
) ([]result.Result, error) {
	col, err := s.colls.Get(ctx, collectionName)
	if err != nil {
		return nil, fmt.Errorf("get collection: %w", err)
	}

	if err = validateFiltersAgainstSchema(req.Filters(), col); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidSchema, err)
	}

	switch req.Mode() {
	case mode.Semantic:
		return s.searchSemantic(ctx, collectionName, req)
	case mode.Keyword:
		return s.searchKeyword(ctx, collectionName, req)
	case mode.Hybrid:
		return s.searchHybrid(ctx, collectionName, req)
	default:
		return nil, fmt.Errorf("unsupported search mode: %s", req.Mode())
	}
}

// searchSemantic embeds the query and runs KNN search.
func (s *Service) searchSemantic(
	ctx context.Context, collectionName string, req *request.Request,
) ([]result.Result, error) {
	embResult, err := s.embed.Embed(ctx, req.Query())
	if err != nil {
		return nil, fmt.Errorf("vectorize query: %w", err)
	}

	domain.UsageFromContext(ctx).AddTokens(embResult.TotalTokens)

	results, err := s.repo.SearchKNN(
		ctx, collectionName, embResult.Embedding, req.Filters(), req.TopK(), req.IncludeVectors(), false,
	)
	if err != nil {
		return nil, fmt.Errorf("search knn: %w", err)
	}
	return results, nil
}

// searchKeyword runs BM25 search (requires a TEXT-capable backend).
func (s *Service) searchKeyword(
	ctx context.Context, collectionName string, req *request.Request,
) ([]result.Result, error) {
	if !s.repo.SupportsTextSearch(ctx) {
		return nil, domain.ErrKeywordSearchNotSupported
	}

	results, err := s.repo.SearchBM25(
		ctx, collectionName, req.Query(), req.Filters(), req.TopK(),
	)
	if err != nil {
		return nil, fmt.Errorf("search bm25: %w", err)
	}
	return results, nil
}

// searchHybrid over-fetches KNN and BM25 candidates, then fuses them with
// the request's alpha weight. KNN runs with raw scores so the fusion sees
// cosine distances.
func (s *Service) searchHybrid(
	ctx context.Context, collectionName string, req *request.Request,
) ([]result.Result, error) {
	if !s.repo.SupportsTextSearch(ctx) {
		return nil, domain.ErrKeywordSearchNotSupported
	}

	embResult, err := s.embed.Embed(ctx, req.Query())
	if err != nil {
		return nil, fmt.Errorf("vectorize query: %w", err)
	}

	domain.UsageFromContext(ctx).AddTokens(embResult.TotalTokens)

	fetchK := req.TopK() * s.overfetch

	knnResults, err := s.repo.SearchKNN(
		ctx, collectionName, embResult.Embedding, req.Filters(), fetchK, req.IncludeVectors(), true,
	)
	if err != nil {
		return nil, fmt.Errorf("search knn: %w", err)
	}

	bm25Results, err := s.repo.SearchBM25(
		ctx, collectionName, req.Query(), req.Filters(), fetchK,
	)
	if err != nil {
		return nil, fmt.Errorf("search bm25: %w", err)
	}

	return fuseAlpha(bm25Results, knnResults, req.Alpha(), req.TopK()), nil
}

// validateFiltersAgainstSchema ensures filter fields exist in the collection
// and that the condition shape matches the field type.
func validateFiltersAgainstSchema(expr filter.Expression, col domcol.Collection) error {
	if expr.IsEmpty() {
		return nil
	}
	for _, c := range expr.Conditions() {
		f, ok := col.FieldByName(c.Key())
		if !ok {
			return fmt.Errorf("unknown filter field %q", c.Key())
		}
		switch {
		case c.IsMatch(), c.IsIn():
			if f.FieldType() != field.Tag && f.FieldType() != field.List {
				return fmt.Errorf("match filter on non-tag field %q", c.Key())
			}
		case c.IsEquals():
			if f.FieldType() != field.Numeric {
				return fmt.Errorf("equality filter on non-numeric field %q", c.Key())
			}
		}
	}
	return nil
}
