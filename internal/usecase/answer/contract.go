package answer

import (
	"context"

	"github.com/scholarmesh/paperdex/internal/domain/search/request"
	"github.com/scholarmesh/paperdex/internal/domain/search/result"
)

// Searcher runs retrieval queries against a collection.
type Searcher interface {
	Search(ctx context.Context, collectionName string, req *request.Request) ([]result.Result, error)
}

// UsageRecorder accumulates generation token counts.
type UsageRecorder interface {
	Record(ctx context.Context, inputTokens, outputTokens int) error
}
