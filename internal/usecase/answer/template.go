package answer

import (
	"context"
	"fmt"
	"strings"

	"github.com/scholarmesh/paperdex/internal/domain"
)

// TemplateGenerator is the generation fallback used when no LLM provider is
// configured. It echoes the assembled context so the caller still gets a
// readable answer body.
type TemplateGenerator struct{}

// NewTemplateGenerator creates a TemplateGenerator.
func NewTemplateGenerator() *TemplateGenerator {
	return &TemplateGenerator{}
}

// Generate renders a results-only answer. It never fails and consumes no
// tokens.
func (g *TemplateGenerator) Generate(_ context.Context, question, contextBlock string) (domain.GenerationResult, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Text generation is not configured. Showing the most relevant matches for %q.\n\n", question)
	b.WriteString(strings.TrimSpace(contextBlock))
	return domain.GenerationResult{Text: b.String()}, nil
}
