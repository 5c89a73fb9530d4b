package answer

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/scholarmesh/paperdex/internal/domain"
	"github.com/scholarmesh/paperdex/internal/domain/search/filter"
	"github.com/scholarmesh/paperdex/internal/domain/search/mode"
	"github.com/scholarmesh/paperdex/internal/domain/search/request"
	"github.com/scholarmesh/paperdex/internal/domain/search/result"
	"github.com/scholarmesh/paperdex/internal/domain/usage"
)

// Status reports the outcome of an answer request.
type Status string

const (
	// StatusSuccess indicates the answer was generated from retrieved context.
	StatusSuccess Status = "success"
	// StatusNoResults indicates retrieval found nothing to answer from.
	StatusNoResults Status = "no_results"
	// StatusDegraded indicates retrieval succeeded but generation failed.
	StatusDegraded Status = "degraded"
)

// Default retrieval depths per section.
const (
	DefaultPaperTopK   = 5
	DefaultFacultyTopK = 3
)

// Fallback answers returned when generation degrades.
const (
	fallbackNoResults       = "No relevant documents were found for this question. Try rephrasing or broadening the query."
	fallbackAccessDenied    = "Access to the generation model was denied. Check the configured API credentials. Returning search results only."
	fallbackModelMissing    = "The configured generation model is not available. Returning search results only."
	fallbackGenerationError = "Answer generation failed. Returning search results only."
)

// Request is an answer query with per-section retrieval depths.
// Zero depths select the defaults. A section is skipped when disabled.
type Request struct {
	Question    string
	PaperTopK   int
	FacultyTopK int
	SkipPapers  bool
	SkipFaculty bool
}

// Response carries the generated answer together with the retrieval output.
// Retrieval output is always populated, even when generation degrades.
type Response struct {
	Answer        string
	Papers        []result.Result
	Faculty       []result.Result
	InputTokens   int
	OutputTokens  int
	EstimatedCost float64
	Status        Status
}

// Service assembles retrieved context and generates answers.
type Service struct {
	search     Searcher
	gen        domain.Generator
	usage      UsageRecorder
	rates      usage.Rates
	paperCol   string
	facultyCol string
	log        *zap.Logger
}

// New creates an answer service. usageRec can be nil.
func New(
	search Searcher, gen domain.Generator, usageRec UsageRecorder,
	rates usage.Rates, paperCollection, facultyCollection string,
	log *zap.Logger,
) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		search:     search,
		gen:        gen,
		usage:      usageRec,
		rates:      rates,
		paperCol:   paperCollection,
		facultyCol: facultyCollection,
		log:        log,
	}
}

// Ask retrieves relevant documents and generates an answer from them.
// Generation failures degrade to a results-only response. Retrieval
// failures fail the call.
func (s *Service) Ask(ctx context.Context, req Request) (Response, error) {
	papers, err := s.retrieve(ctx, s.paperCol, req.Question, req.PaperTopK, DefaultPaperTopK, req.SkipPapers)
	if err != nil {
		return Response{}, fmt.Errorf("search papers: %w", err)
	}

	faculty, err := s.retrieve(ctx, s.facultyCol, req.Question, req.FacultyTopK, DefaultFacultyTopK, req.SkipFaculty)
	if err != nil {
		return Response{}, fmt.Errorf("search faculty: %w", err)
	}

	if len(papers) == 0 && len(faculty) == 0 {
		return Response{
			Answer:  fallbackNoResults,
			Papers:  papers,
			Faculty: faculty,
			Status:  StatusNoResults,
		}, nil
	}

	contextBlock := buildContext(papers, faculty)

	gen, err := s.gen.Generate(ctx, req.Question, contextBlock)
	if err != nil {
		s.log.Warn("answer generation degraded",
			zap.String("question", req.Question),
			zap.Error(err))
		return Response{
			Answer:  fallbackFor(err),
			Papers:  papers,
			Faculty: faculty,
			Status:  StatusDegraded,
		}, nil
	}

	if s.usage != nil {
		if err = s.usage.Record(ctx, gen.InputTokens, gen.OutputTokens); err != nil {
			s.log.Warn("failed to record usage", zap.Error(err))
		}
	}

	return Response{
		Answer:        gen.Text,
		Papers:        papers,
		Faculty:       faculty,
		InputTokens:   gen.InputTokens,
		OutputTokens:  gen.OutputTokens,
		EstimatedCost: usage.EstimateCost(gen.InputTokens, gen.OutputTokens, s.rates),
		Status:        StatusSuccess,
	}, nil
}

// retrieve runs a hybrid search against one collection. A missing
// collection yields an empty section rather than failing the question.
func (s *Service) retrieve(
	ctx context.Context, collection, question string,
	topK, defaultTopK int, skip bool,
) ([]result.Result, error) {
	if skip || collection == "" {
		return nil, nil
	}
	if topK <= 0 {
		topK = defaultTopK
	}

	req, err := request.New(question, mode.Hybrid, filter.Expression{}, topK, -1, false)
	if err != nil {
		return nil, err
	}

	results, err := s.search.Search(ctx, collection, &req)
	if err != nil {
		if errors.Is(err, domain.ErrCollectionNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return results, nil
}

func fallbackFor(err error) string {
	switch {
	case errors.Is(err, domain.ErrAccessDenied):
		return fallbackAccessDenied
	case errors.Is(err, domain.ErrModelNotAvailable):
		return fallbackModelMissing
	default:
		return fallbackGenerationError
	}
}
