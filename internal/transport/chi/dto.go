package chi

import (
	"fmt"
	"time"

	"github.com/scholarmesh/paperdex/internal/domain/batch"
	domcol "github.com/scholarmesh/paperdex/internal/domain/collection"
	"github.com/scholarmesh/paperdex/internal/domain/collection/field"
	domdoc "github.com/scholarmesh/paperdex/internal/domain/document"
	"github.com/scholarmesh/paperdex/internal/domain/search/filter"
	"github.com/scholarmesh/paperdex/internal/domain/search/mode"
	"github.com/scholarmesh/paperdex/internal/domain/search/request"
	"github.com/scholarmesh/paperdex/internal/domain/search/result"
	answeruc "github.com/scholarmesh/paperdex/internal/usecase/answer"
	documentuc "github.com/scholarmesh/paperdex/internal/usecase/document"
)

// Error codes returned in error responses.
const (
	codeBadRequest         = "bad_request"
	codeValidationFailed   = "validation_failed"
	codeCollectionNotFound = "collection_not_found"
	codeCollectionExists   = "collection_already_exists"
	codeDocumentNotFound   = "document_not_found"
	codeDimensionMismatch  = "dimension_mismatch"
	codeRateLimited        = "rate_limited"
	codeEmbeddingError     = "embedding_unavailable"
	codeKeywordUnsupported = "keyword_search_not_supported"
	codeGenerationFailed   = "generation_failed"
	codeInternalError      = "internal_error"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type fieldDTO struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type createCollectionRequest struct {
	Name   string     `json:"name"`
	Fields []fieldDTO `json:"fields,omitempty"`
}

type collectionResponse struct {
	Name             string     `json:"name"`
	Fields           []fieldDTO `json:"fields,omitempty"`
	VectorDimensions int        `json:"vector_dimensions"`
	CreatedAt        time.Time  `json:"created_at"`
	Revision         int        `json:"revision"`
	DocumentCount    *int       `json:"document_count,omitempty"`
}

type collectionListResponse struct {
	Items []collectionResponse `json:"items"`
}

type collectionStatsItem struct {
	Name             string `json:"name"`
	Documents        int    `json:"documents"`
	VectorDimensions int    `json:"vector_dimensions"`
}

type collectionStatsResponse struct {
	Collections []collectionStatsItem `json:"collections"`
}

type ingestDocumentDTO struct {
	ID       string              `json:"id,omitempty"`
	Content  string              `json:"content"`
	Tags     map[string]string   `json:"tags,omitempty"`
	Numerics map[string]float64  `json:"numerics,omitempty"`
	Lists    map[string][]string `json:"lists,omitempty"`
}

type ingestRequest struct {
	Documents []ingestDocumentDTO `json:"documents"`
}

type batchResultDTO struct {
	ID     string         `json:"id"`
	Status string         `json:"status"`
	Error  *errorResponse `json:"error,omitempty"`
}

type ingestResponse struct {
	Items     []batchResultDTO `json:"items"`
	Succeeded int              `json:"succeeded"`
	Failed    int              `json:"failed"`
}

type documentResponse struct {
	ID       string              `json:"id"`
	Content  string              `json:"content"`
	Revision int                 `json:"revision"`
	Tags     map[string]string   `json:"tags,omitempty"`
	Numerics map[string]float64  `json:"numerics,omitempty"`
	Lists    map[string][]string `json:"lists,omitempty"`
}

type documentListResponse struct {
	Items      []documentResponse `json:"items"`
	HasMore    bool               `json:"has_more"`
	NextCursor *string            `json:"next_cursor,omitempty"`
}

type resetResponse struct {
	Removed int `json:"removed"`
}

type countResponse struct {
	Count int `json:"count"`
}

type filterConditionDTO struct {
	Key    string   `json:"key"`
	Match  *string  `json:"match,omitempty"`
	In     []string `json:"in,omitempty"`
	Equals *float64 `json:"equals,omitempty"`
}

type searchRequestDTO struct {
	Query          string               `json:"query"`
	Mode           *string              `json:"mode,omitempty"`
	Filters        []filterConditionDTO `json:"filters,omitempty"`
	TopK           *int                 `json:"top_k,omitempty"`
	Alpha          *float64             `json:"alpha,omitempty"`
	IncludeVectors *bool                `json:"include_vectors,omitempty"`
}

type searchResultDTO struct {
	ID       string              `json:"id"`
	Score    float64             `json:"score"`
	Content  string              `json:"content"`
	Tags     map[string]string   `json:"tags,omitempty"`
	Numerics map[string]float64  `json:"numerics,omitempty"`
	Lists    map[string][]string `json:"lists,omitempty"`
	Vector   []float32           `json:"vector,omitempty"`
}

type searchResponse struct {
	Items []searchResultDTO `json:"items"`
	Total int               `json:"total"`
}

type askRequest struct {
	Question    string `json:"question"`
	PaperTopK   *int   `json:"paper_top_k,omitempty"`
	FacultyTopK *int   `json:"faculty_top_k,omitempty"`
	SkipPapers  *bool  `json:"skip_papers,omitempty"`
	SkipFaculty *bool  `json:"skip_faculty,omitempty"`
}

type askResponse struct {
	Answer           string            `json:"answer"`
	Status           string            `json:"status"`
	Papers           []searchResultDTO `json:"papers"`
	Faculty          []searchResultDTO `json:"faculty"`
	InputTokens      int               `json:"input_tokens"`
	OutputTokens     int               `json:"output_tokens"`
	EstimatedCostUSD float64           `json:"estimated_cost_usd"`
}

type usageResponse struct {
	InputTokens      int     `json:"input_tokens"`
	OutputTokens     int     `json:"output_tokens"`
	Requests         int     `json:"requests"`
	EstimatedCostUSD float64 `json:"estimated_cost_usd"`
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func collectionToDTO(c domcol.Collection) collectionResponse {
	var fields []fieldDTO
	if len(c.Fields()) > 0 {
		fields = make([]fieldDTO, len(c.Fields()))
		for i, f := range c.Fields() {
			fields[i] = fieldDTO{Name: f.Name(), Type: string(f.FieldType())}
		}
	}

	return collectionResponse{
		Name:             c.Name(),
		Fields:           fields,
		VectorDimensions: c.VectorDim(),
		CreatedAt:        time.UnixMilli(c.CreatedAt()).UTC(),
		Revision:         c.Revision(),
	}
}

func fieldsFromDTO(ff []fieldDTO) ([]field.Field, error) {
	if len(ff) == 0 {
		return nil, nil
	}
	fields := make([]field.Field, len(ff))
	for i, f := range ff {
		fld, err := field.New(f.Name, field.Type(f.Type))
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Name, err)
		}
		fields[i] = fld
	}
	return fields, nil
}

func documentToDTO(doc *domdoc.Document) documentResponse {
	return documentResponse{
		ID:       doc.ID(),
		Content:  doc.Content(),
		Revision: doc.Revision(),
		Tags:     doc.Tags(),
		Numerics: doc.Numerics(),
		Lists:    doc.Lists(),
	}
}

func ingestDocsFromDTO(items []ingestDocumentDTO) []documentuc.IngestDoc {
	docs := make([]documentuc.IngestDoc, len(items))
	for i, item := range items {
		docs[i] = documentuc.IngestDoc{
			ID:       item.ID,
			Content:  item.Content,
			Tags:     item.Tags,
			Numerics: item.Numerics,
			Lists:    item.Lists,
		}
	}
	return docs
}

func batchResultToDTO(r batch.Result) batchResultDTO {
	item := batchResultDTO{
		ID:     r.ID(),
		Status: string(r.Status()),
	}
	if r.Err() != nil {
		item.Error = &errorResponse{
			Code:    domainErrorCode(r.Err()),
			Message: safeDomainMessage(r.Err()),
		}
	}
	return item
}

func searchRequestFromDTO(req searchRequestDTO) (request.Request, error) {
	var m mode.Mode
	if req.Mode != nil {
		m = mode.Mode(*req.Mode)
	}

	filters, err := filtersFromDTO(req.Filters)
	if err != nil {
		return request.Request{}, fmt.Errorf("parse filters: %w", err)
	}

	topK := 0
	if req.TopK != nil {
		topK = *req.TopK
	}
	alpha := -1.0
	if req.Alpha != nil {
		alpha = *req.Alpha
	}
	includeVectors := req.IncludeVectors != nil && *req.IncludeVectors

	r, err := request.New(req.Query, m, filters, topK, alpha, includeVectors)
	if err != nil {
		return request.Request{}, fmt.Errorf("build search request: %w", err)
	}
	return r, nil
}

func filtersFromDTO(conditions []filterConditionDTO) (filter.Expression, error) {
	if len(conditions) == 0 {
		return filter.Expression{}, nil
	}

	out := make([]filter.Condition, 0, len(conditions))
	for _, c := range conditions {
		cond, err := filterConditionFromDTO(c)
		if err != nil {
			return filter.Expression{}, err
		}
		out = append(out, cond)
	}

	expr, err := filter.NewExpression(out)
	if err != nil {
		return filter.Expression{}, fmt.Errorf("new expression: %w", err)
	}
	return expr, nil
}

func filterConditionFromDTO(c filterConditionDTO) (filter.Condition, error) {
	set := 0
	if c.Match != nil {
		set++
	}
	if len(c.In) > 0 {
		set++
	}
	if c.Equals != nil {
		set++
	}
	if set != 1 {
		return filter.Condition{},
			fmt.Errorf("filter condition for %q must have exactly one of match, in, equals", c.Key)
	}

	switch {
	case c.Match != nil:
		cond, err := filter.NewMatch(c.Key, *c.Match)
		if err != nil {
			return filter.Condition{}, fmt.Errorf("match filter: %w", err)
		}
		return cond, nil
	case len(c.In) > 0:
		cond, err := filter.NewIn(c.Key, c.In)
		if err != nil {
			return filter.Condition{}, fmt.Errorf("in filter: %w", err)
		}
		return cond, nil
	default:
		cond, err := filter.NewEquals(c.Key, *c.Equals)
		if err != nil {
			return filter.Condition{}, fmt.Errorf("equals filter: %w", err)
		}
		return cond, nil
	}
}

func searchResultToDTO(r *result.Result) searchResultDTO {
	return searchResultDTO{
		ID:       r.ID(),
		Score:    r.Score(),
		Content:  r.Content(),
		Tags:     r.Tags(),
		Numerics: r.Numerics(),
		Lists:    r.Lists(),
		Vector:   r.Vector(),
	}
}

func searchResultsToDTO(results []result.Result) []searchResultDTO {
	items := make([]searchResultDTO, len(results))
	for i := range results {
		items[i] = searchResultToDTO(&results[i])
	}
	return items
}

func askRequestFromDTO(req askRequest) answeruc.Request {
	out := answeruc.Request{Question: req.Question}
	if req.PaperTopK != nil {
		out.PaperTopK = *req.PaperTopK
	}
	if req.FacultyTopK != nil {
		out.FacultyTopK = *req.FacultyTopK
	}
	if req.SkipPapers != nil {
		out.SkipPapers = *req.SkipPapers
	}
	if req.SkipFaculty != nil {
		out.SkipFaculty = *req.SkipFaculty
	}
	return out
}
