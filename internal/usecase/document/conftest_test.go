package document

import (
	"context"

	"github.com/scholarmesh/paperdex/internal/domain"
	domcol "github.com/scholarmesh/paperdex/internal/domain/collection"
	"github.com/scholarmesh/paperdex/internal/domain/collection/field"
	domdoc "github.com/scholarmesh/paperdex/internal/domain/document"
)

const testVectorDim = 3

// mockRepo implements Repository for tests.
type mockRepo struct {
	upsertFn func(ctx context.Context, collection string, doc *domdoc.Document) (bool, error)
	getFn    func(ctx context.Context, collection, id string) (domdoc.Document, error)
	listFn   func(ctx context.Context, collection, cursor string, limit int) ([]domdoc.Document, string, error)
	deleteFn func(ctx context.Context, collection, id string) error
	countFn  func(ctx context.Context, collection string) (int, error)
	resetFn  func(ctx context.Context, collection string) (int, error)

	upserted []domdoc.Document
}

func (m *mockRepo) Upsert(ctx context.Context, collection string, doc *domdoc.Document) (bool, error) {
	if m.upsertFn != nil {
		return m.upsertFn(ctx, collection, doc)
	}
	m.upserted = append(m.upserted, *doc)
	return true, nil
}

func (m *mockRepo) Get(ctx context.Context, collection, id string) (domdoc.Document, error) {
	if m.getFn != nil {
		return m.getFn(ctx, collection, id)
	}
	return domdoc.Document{}, domain.ErrDocumentNotFound
}

func (m *mockRepo) List(ctx context.Context, collection, cursor string, limit int) ([]domdoc.Document, string, error) {
	if m.listFn != nil {
		return m.listFn(ctx, collection, cursor, limit)
	}
	return nil, "", nil
}

func (m *mockRepo) Delete(ctx context.Context, collection, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, collection, id)
	}
	return nil
}

func (m *mockRepo) Count(ctx context.Context, collection string) (int, error) {
	if m.countFn != nil {
		return m.countFn(ctx, collection)
	}
	return len(m.upserted), nil
}

func (m *mockRepo) Reset(ctx context.Context, collection string) (int, error) {
	if m.resetFn != nil {
		return m.resetFn(ctx, collection)
	}
	removed := len(m.upserted)
	m.upserted = nil
	return removed, nil
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

// mockFieldEmbedder implements FieldEmbedder for tests.
type mockFieldEmbedder struct {
	buildFn func(ctx context.Context, fields map[string]string) (domain.EmbeddingResult, error)
	calls   int
}

func (m *mockFieldEmbedder) Build(ctx context.Context, fields map[string]string) (domain.EmbeddingResult, error) {
	m.calls++
	if m.buildFn != nil {
		return m.buildFn(ctx, fields)
	}
	return domain.EmbeddingResult{Embedding: make([]float32, testVectorDim), TotalTokens: 5}, nil
}

func testCollection() domcol.Collection {
	fields := []field.Field{
		mustField("title", field.Tag),
		mustField("year", field.Numeric),
		mustField("authors", field.List),
		mustField("chunk_index", field.Numeric),
		mustField("total_chunks", field.Numeric),
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
