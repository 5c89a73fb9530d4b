package search

import (
	"context"
	"testing"

	"github.com/scholarmesh/paperdex/internal/domain"
	domcol "github.com/scholarmesh/paperdex/internal/domain/collection"
	"github.com/scholarmesh/paperdex/internal/domain/collection/field"
	"github.com/scholarmesh/paperdex/internal/domain/search/filter"
	"github.com/scholarmesh/paperdex/internal/domain/search/result"
)

const testVectorDim = 4

// mockRepo implements Repository for tests.
type mockRepo struct {
	searchKNNFn        func(ctx context.Context, collection string, vector []float32, filters filter.Expression, topK int, includeVectors, rawScores bool) ([]result.Result, error)
	searchBM25Fn       func(ctx context.Context, collection, query string, filters filter.Expression, topK int) ([]result.Result, error)
	supportsTextSearch bool
}

func (m *mockRepo) SearchKNN(
	ctx context.Context, collection string, vector []float32,
	filters filter.Expression, topK int, includeVectors, rawScores bool,
) ([]result.Result, error) {
	if m.searchKNNFn != nil {
		return m.searchKNNFn(ctx, collection, vector, filters, topK, includeVectors, rawScores)
	}
	return nil, nil
}

func (m *mockRepo) SearchBM25(
	ctx context.Context, collection, query string,
	filters filter.Expression, topK int,
) ([]result.Result, error) {
	if m.searchBM25Fn != nil {
		return m.searchBM25Fn(ctx, collection, query, filters, topK)
	}
	return nil, nil
}

func (m *mockRepo) SupportsTextSearch(_ context.Context) bool {
	return m.supportsTextSearch
}

// mockCollections implements CollectionReader for tests.
type mockCollections struct {
	getFn func(ctx context.Context, name string) (domcol.Collection, error)
}

func (m *mockCollections) Get(ctx context.Context, name string) (domcol.Collection, error) {
	if m.getFn != nil {
		return m.getFn(ctx, name)
	}
	return testCollection(), nil
}

// mockEmbedder implements Embedder for tests.
type mockEmbedder struct {
	embedFn func(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	if m.embedFn != nil {
		return m.embedFn(ctx, text)
	}
	return domain.EmbeddingResult{Embedding: make([]float32, testVectorDim), TotalTokens: 3}, nil
}

func testCollection() domcol.Collection {
	fields := []field.Field{
		mustField("title", field.Tag),
		mustField("year", field.Numeric),
		mustField("authors", field.List),
	}
	return domcol.Reconstruct("papers", fields, testVectorDim, 0, 1)
}

func mustField(name string, ft field.Type) field.Field {
	f, err := field.New(name, ft)
	if err != nil {
		panic(err)
	}
	return f
}

func newTestService(t *testing.T) (*Service, *mockRepo) {
	t.Helper()
	repo := &mockRepo{supportsTextSearch: true}
	svc := New(repo, &mockCollections{}, &mockEmbedder{}, DefaultOverfetchFactor)
	return svc, repo
}
