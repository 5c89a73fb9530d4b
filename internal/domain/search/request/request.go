package request

import (
	"fmt"

	"github.com/scholarmesh/paperdex/internal/domain/search/filter"
	"github.com/scholarmesh/paperdex/internal/domain/search/mode"
)

// Search parameter limits.
const (
	// MaxQueryLength is the maximum allowed search query length.
	MaxQueryLength = 4096
	DefaultTopK    = 10
	MaxTopK        = 500
	// DefaultAlpha weights hybrid fusion toward the semantic side.
	DefaultAlpha = 0.7
)

// Request is a validated search query.
type Request struct {
	query          string
	searchMode     mode.Mode
	filters        filter.Expression
	topK           int
	alpha          float64
	includeVectors bool
}

// New validates and normalizes search parameters.
// Defaults: mode=hybrid, topK=10, alpha=0.7 (alpha<0 selects the default).
// Alpha 0 is keyword-only scoring, 1 is semantic-only.
func New(
	query string,
	m mode.Mode,
	filters filter.Expression,
	topK int,
	alpha float64,
	includeVectors bool,
) (Request, error) {
	if query == "" {
		return Request{}, fmt.Errorf("query is required")
	}
	if len(query) > MaxQueryLength {
		return Request{}, fmt.Errorf("query too long (max %d chars)", MaxQueryLength)
	}
	if m == "" {
		m = mode.Hybrid
	}
	if !m.IsValid() {
		return Request{}, fmt.Errorf("invalid search mode: %q", m)
	}
	if topK <= 0 {
		topK = DefaultTopK
	}
	if topK > MaxTopK {
		topK = MaxTopK
	}
	if alpha < 0 {
		alpha = DefaultAlpha
	}
	if alpha > 1 {
		return Request{}, fmt.Errorf("alpha must be between 0 and 1")
	}

	return Request{
		query:          query,
		searchMode:     m,
		filters:        filters,
		topK:           topK,
		alpha:          alpha,
		includeVectors: includeVectors,
	}, nil
}

// Query returns the search query text.
func (r *Request) Query() string { return r.query }

// Mode returns the search strategy.
func (r *Request) Mode() mode.Mode { return r.searchMode }

// Filters returns the pre-filter expression.
func (r *Request) Filters() filter.Expression { return r.filters }

// TopK returns the number of results to return.
func (r *Request) TopK() int { return r.topK }

// Alpha returns the hybrid fusion weight for the semantic side.
func (r *Request) Alpha() float64 { return r.alpha }

// IncludeVectors reports whether vectors should be included in results.
func (r *Request) IncludeVectors() bool { return r.includeVectors }
