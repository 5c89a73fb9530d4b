package search

import (
	"context"

	"github.com/scholarmesh/paperdex/internal/domain"
	domcol "github.com/scholarmesh/paperdex/internal/domain/collection"
	"github.com/scholarmesh/paperdex/internal/domain/search/filter"
	"github.com/scholarmesh/paperdex/internal/domain/search/result"
)

// Repository defines the storage contract for search operations.
type Repository interface {
	SearchKNN(
		ctx context.Context, collectionName string,
		vector []float32, filters filter.Expression, topK int,
		includeVectors bool, rawScores bool,
	) ([]result.Result, error)

	SearchBM25(
		ctx context.Context, collectionName string,
		query string, filters filter.Expression, topK int,
	) ([]result.Result, error)

	SupportsTextSearch(ctx context.Context) bool
}

// CollectionReader reads collections for existence checks.
type CollectionReader interface {
	Get(ctx context.Context, name string) (domcol.Collection, error)
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
