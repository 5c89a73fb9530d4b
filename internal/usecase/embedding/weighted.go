package embedding

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/scholarmesh/paperdex/internal/domain"
)

// DefaultFieldWeights is the built-in relative importance of paper fields.
// Title dominates, categories contribute least.
var DefaultFieldWeights = map[string]float64{
	"title":      1.5,
	"abstract":   1.0,
	"authors":    0.5,
	"categories": 0.3,
	"keywords":   0.8,
}

// Constructor builds a single document vector from weighted field embeddings.
type Constructor struct {
	embed   domain.Embedder
	weights map[string]float64
	dim     int
}

// NewConstructor creates a weighted embedding constructor.
// Nil weights select DefaultFieldWeights. dim is the vector dimension used
// for the zero-vector fallback when no weighted field is present.
func NewConstructor(embed domain.Embedder, weights map[string]float64, dim int) *Constructor {
	if weights == nil {
		weights = DefaultFieldWeights
	}
	return &Constructor{embed: embed, weights: weights, dim: dim}
}

// Build embeds each present weighted field, renormalizes the weights of the
// fields that are actually present to sum to 1, averages element-wise, and
// L2-normalizes the result. Fields with empty text or without a weight are
// skipped. When nothing is embeddable the zero vector comes back, never an
// error.
func (c *Constructor) Build(ctx context.Context, fields map[string]string) (domain.EmbeddingResult, error) {
	names := make([]string, 0, len(fields))
	for name, text := range fields {
		if text == "" {
			continue
		}
		if _, ok := c.weights[name]; !ok {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	if len(names) == 0 {
		return domain.EmbeddingResult{Embedding: make([]float32, c.dim)}, nil
	}

	vectors := make([][]float32, 0, len(names))
	weights := make([]float64, 0, len(names))
	var weightSum float64
	var promptTokens, totalTokens int

	for _, name := range names {
		res, err := c.embed.Embed(ctx, fields[name])
		if err != nil {
			return domain.EmbeddingResult{}, fmt.Errorf("embed field %s: %w", name, err)
		}
		vectors = append(vectors, res.Embedding)
		weights = append(weights, c.weights[name])
		weightSum += c.weights[name]
		promptTokens += res.PromptTokens
		totalTokens += res.TotalTokens
	}

	dim := len(vectors[0])
	combined := make([]float64, dim)
	for i, vec := range vectors {
		if len(vec) != dim {
			return domain.EmbeddingResult{}, fmt.Errorf(
				"field %s: dimension %d differs from %d", names[i], len(vec), dim)
		}
		w := weights[i] / weightSum
		for j, v := range vec {
			combined[j] += w * float64(v)
		}
	}

	var norm float64
	for _, v := range combined {
		norm += v * v
	}
	norm = math.Sqrt(norm)

	out := make([]float32, dim)
	for j, v := range combined {
		if norm > 0 {
			out[j] = float32(v / norm)
		} else {
			out[j] = float32(v)
		}
	}

	return domain.EmbeddingResult{
		Embedding:    out,
		PromptTokens: promptTokens,
		TotalTokens:  totalTokens,
	}, nil
}
