package embedding

import (
	"context"

	"github.com/scholarmesh/paperdex/internal/domain"
)

// mockEmbedder implements domain.Embedder for tests.
type mockEmbedder struct {
	embedFn func(ctx context.Context, text string) (domain.EmbeddingResult, error)
	calls   []string
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	m.calls = append(m.calls, text)
	if m.embedFn != nil {
		return m.embedFn(ctx, text)
	}
	return domain.EmbeddingResult{Embedding: []float32{1, 0, 0}, PromptTokens: 2, TotalTokens: 2}, nil
}
