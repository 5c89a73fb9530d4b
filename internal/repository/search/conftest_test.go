package search

import (
	"context"
	"testing"

	"github.com/scholarmesh/paperdex/internal/db"
	"github.com/scholarmesh/paperdex/internal/domain/search/filter"
)

func emptyFilters() filter.Expression { return filter.Expression{} }

// mockStore implements the consumer interface for tests.
type mockStore struct {
	searchKNNFn        func(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	searchBM25Fn       func(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error)
	supportsTextSearch bool
}

func (m *mockStore) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if m.searchKNNFn != nil {
		return m.searchKNNFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func (m *mockStore) SearchBM25(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error) {
	if m.searchBM25Fn != nil {
		return m.searchBM25Fn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func (m *mockStore) SupportsTextSearch(_ context.Context) bool {
	return m.supportsTextSearch
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{supportsTextSearch: true}
	return New(ms), ms
}
