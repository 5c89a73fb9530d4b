package document

import (
	"context"

	"github.com/scholarmesh/paperdex/internal/domain"
	domcol "github.com/scholarmesh/paperdex/internal/domain/collection"
	domdoc "github.com/scholarmesh/paperdex/internal/domain/document"
)

// Repository defines the storage contract for documents.
type Repository interface {
	Upsert(ctx context.Context, collectionName string, doc *domdoc.Document) (created bool, err error)
	Get(ctx context.Context, collectionName, id string) (domdoc.Document, error)
	List(ctx context.Context, collectionName, cursor string, limit int) (
		docs []domdoc.Document, nextCursor string, err error,
	)
	Delete(ctx context.Context, collectionName, id string) error
	Count(ctx context.Context, collectionName string) (int, error)
	Reset(ctx context.Context, collectionName string) (removed int, err error)
}

// CollectionReader reads collections for existence and schema validation.
type CollectionReader interface {
	Get(ctx context.Context, name string) (domcol.Collection, error)
}

// FieldEmbedder builds one vector from weighted document fields.
type FieldEmbedder interface {
	Build(ctx context.Context, fields map[string]string) (domain.EmbeddingResult, error)
}
