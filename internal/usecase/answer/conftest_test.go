package answer

import (
	"context"

	"github.com/scholarmesh/paperdex/internal/domain"
	"github.com/scholarmesh/paperdex/internal/domain/search/request"
	"github.com/scholarmesh/paperdex/internal/domain/search/result"
)

// mockSearcher implements Searcher for tests.
type mockSearcher struct {
	searchFn func(ctx context.Context, collection string, req *request.Request) ([]result.Result, error)
	requests map[string]*request.Request
}

func (m *mockSearcher) Search(ctx context.Context, collection string, req *request.Request) ([]result.Result, error) {
	if m.requests == nil {
		m.requests = make(map[string]*request.Request)
	}
	m.requests[collection] = req
	if m.searchFn != nil {
		return m.searchFn(ctx, collection, req)
	}
	return nil, nil
}

// mockGenerator implements domain.Generator for tests.
type mockGenerator struct {
	generateFn func(ctx context.Context, question, contextBlock string) (domain.GenerationResult, error)
	calls      int
}

func (m *mockGenerator) Generate(ctx context.Context, question, contextBlock string) (domain.GenerationResult, error) {
	m.calls++
	if m.generateFn != nil {
		return m.generateFn(ctx, question, contextBlock)
	}
	return domain.GenerationResult{Text: "generated answer", InputTokens: 100, OutputTokens: 50}, nil
}

// mockUsageRecorder implements UsageRecorder for tests.
type mockUsageRecorder struct {
	recordFn func(ctx context.Context, inputTokens, outputTokens int) error
	input    int
	output   int
	calls    int
}

func (m *mockUsageRecorder) Record(ctx context.Context, inputTokens, outputTokens int) error {
	m.calls++
	m.input += inputTokens
	m.output += outputTokens
	if m.recordFn != nil {
		return m.recordFn(ctx, inputTokens, outputTokens)
	}
	return nil
}

func paperResult(id, title, abstract string, score float64, authors []string, year float64) result.Result {
	return result.New(id, score, abstract,
		map[string]string{"title": title},
		map[string]float64{"year": year},
		map[string][]string{"authors": authors},
		nil)
}

func facultyResult(id, name, bio string, score float64, areas []string) result.Result {
	return result.New(id, score, bio,
		map[string]string{"name": name, "title": "Professor", "department": "Computer Science"},
		nil,
		map[string][]string{"research_areas": areas},
		nil)
}
