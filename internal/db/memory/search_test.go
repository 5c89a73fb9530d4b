package memory

import (
	"context"
	"encoding/binary"
	"math"
	"testing"

	"github.com/scholarmesh/paperdex/internal/db"
	"github.com/scholarmesh/paperdex/internal/domain/search/filter"
)

const testPrefix = "paperdex:doc:papers:"

func vectorBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}

func newSearchStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore()

	def := &db.IndexDefinition{
		Name:     "idx:papers",
		Prefixes: []string{testPrefix},
		Fields: []db.IndexField{
			{Name: "title", Type: db.IndexFieldTag},
			{Name: "year", Type: db.IndexFieldNumeric},
			{Name: "authors", Type: db.IndexFieldTag, TagSeparator: "|"},
			{Name: "__text", Type: db.IndexFieldText},
			{Name: "__vector", Type: db.IndexFieldVector, VectorDim: 2},
		},
	}
	if err := s.CreateIndex(context.Background(), def); err != nil {
		t.Fatalf("create index: %v", err)
	}
	return s
}

func addDoc(t *testing.T, s *Store, id string, fields map[string]string) {
	t.Helper()
	if err := s.HSet(context.Background(), testPrefix+id, fields); err != nil {
		t.Fatalf("store doc %s: %v", id, err)
	}
}

func TestSearchKNN_OrdersByDistance(t *testing.T) {
	s := newSearchStore(t)
	addDoc(t, s, "east", map[string]string{"__vector": vectorBytes([]float32{1, 0})})
	addDoc(t, s, "north", map[string]string{"__vector": vectorBytes([]float32{0, 1})})
	addDoc(t, s, "diag", map[string]string{"__vector": vectorBytes([]float32{0.7071, 0.7071})})

	res, err := s.SearchKNN(context.Background(), &db.KNNQuery{
		IndexName: "idx:papers",
		Vector:    []float32{1, 0},
		K:         3,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(res.Entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(res.Entries))
	}
	if res.Entries[0].Key != testPrefix+"east" {
		t.Errorf("expected exact match first, got %s", res.Entries[0].Key)
	}
	if res.Entries[1].Key != testPrefix+"diag" {
		t.Errorf("expected diagonal second, got %s", res.Entries[1].Key)
	}

	// similarity scoring: identical vector scores 1
	if math.Abs(res.Entries[0].Score-1.0) > 1e-6 {
		t.Errorf("expected similarity 1.0 for identical vector, got %f", res.Entries[0].Score)
	}
}

func TestSearchKNN_RawScoresAreDistances(t *testing.T) {
	s := newSearchStore(t)
	addDoc(t, s, "east", map[string]string{"__vector": vectorBytes([]float32{1, 0})})
	addDoc(t, s, "north", map[string]string{"__vector": vectorBytes([]float32{0, 1})})

	res, err := s.SearchKNN(context.Background(), &db.KNNQuery{
		IndexName: "idx:papers",
		Vector:    []float32{1, 0},
		K:         2,
		RawScores: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if math.Abs(res.Entries[0].Score) > 1e-6 {
		t.Errorf("expected raw distance 0 for identical vector, got %f", res.Entries[0].Score)
	}
	if math.Abs(res.Entries[1].Score-1.0) > 1e-6 {
		t.Errorf("expected raw distance 1 for orthogonal vector, got %f", res.Entries[1].Score)
	}
}

func TestSearchKNN_SkipsMismatchedDimensions(t *testing.T) {
	s := newSearchStore(t)
	addDoc(t, s, "good", map[string]string{"__vector": vectorBytes([]float32{1, 0})})
	addDoc(t, s, "bad", map[string]string{"__vector": vectorBytes([]float32{1, 0, 0})})
	addDoc(t, s, "novector", map[string]string{"title": "no vector at all"})

	res, err := s.SearchKNN(context.Background(), &db.KNNQuery{
		IndexName: "idx:papers",
		Vector:    []float32{1, 0},
		K:         10,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Entries) != 1 {
		t.Fatalf("expected only the matching-dimension doc, got %d", len(res.Entries))
	}
}

func TestSearchKNN_UnknownIndex(t *testing.T) {
	s := NewStore()

	_, err := s.SearchKNN(context.Background(), &db.KNNQuery{
		IndexName: "idx:missing",
		Vector:    []float32{1},
		K:         1,
	})
	if err == nil {
		t.Fatal("expected error for unknown index")
	}
}

func TestSearchKNN_FilterRestrictsCandidates(t *testing.T) {
	s := newSearchStore(t)
	addDoc(t, s, "old", map[string]string{"__vector": vectorBytes([]float32{1, 0}), "year": "2017"})
	addDoc(t, s, "new", map[string]string{"__vector": vectorBytes([]float32{0.9, 0.1}), "year": "2023"})

	cond, err := filter.NewEquals("year", 2023)
	if err != nil {
		t.Fatal(err)
	}
	expr, err := filter.NewExpression([]filter.Condition{cond})
	if err != nil {
		t.Fatal(err)
	}

	res, err := s.SearchKNN(context.Background(), &db.KNNQuery{
		IndexName: "idx:papers",
		Vector:    []float32{1, 0},
		K:         10,
		Filters:   expr,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Entries) != 1 || res.Entries[0].Key != testPrefix+"new" {
		t.Errorf("expected only the 2023 doc, got %v", res.Entries)
	}
}

func TestSearchKNN_ListFieldFilterMatchesElements(t *testing.T) {
	s := newSearchStore(t)
	addDoc(t, s, "match", map[string]string{
		"__vector": vectorBytes([]float32{1, 0}),
		"authors":  "vaswani|shazeer|parmar",
	})
	addDoc(t, s, "other", map[string]string{
		"__vector": vectorBytes([]float32{1, 0}),
		"authors":  "goodfellow",
	})

	cond, err := filter.NewMatch("authors", "shazeer")
	if err != nil {
		t.Fatal(err)
	}
	expr, err := filter.NewExpression([]filter.Condition{cond})
	if err != nil {
		t.Fatal(err)
	}

	res, err := s.SearchKNN(context.Background(), &db.KNNQuery{
		IndexName: "idx:papers",
		Vector:    []float32{1, 0},
		K:         10,
		Filters:   expr,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Entries) != 1 || res.Entries[0].Key != testPrefix+"match" {
		t.Errorf("expected the separator-joined list element to match, got %v", res.Entries)
	}
}

func TestSearchBM25_ScoresTermOverlap(t *testing.T) {
	s := newSearchStore(t)
	addDoc(t, s, "relevant", map[string]string{"__text": "neural networks for neural machine translation"})
	addDoc(t, s, "partial", map[string]string{"__text": "convolutional networks"})
	addDoc(t, s, "unrelated", map[string]string{"__text": "quantum chemistry methods"})

	res, err := s.SearchBM25(context.Background(), &db.TextQuery{
		IndexName: "idx:papers",
		Query:     "neural networks",
		TopK:      10,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(res.Entries) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(res.Entries))
	}
	if res.Entries[0].Key != testPrefix+"relevant" {
		t.Errorf("expected higher-overlap doc first, got %s", res.Entries[0].Key)
	}
	if res.Entries[0].Score <= res.Entries[1].Score {
		t.Errorf("expected descending scores, got %f then %f", res.Entries[0].Score, res.Entries[1].Score)
	}
}

func TestSearchBM25_ScansDenormalizedText(t *testing.T) {
	s := newSearchStore(t)

	// the term appears in the title (part of __text) but not in the abstract
	addDoc(t, s, "hit", map[string]string{
		"__content": "methods for simulating one dimensional spin chains",
		"__text":    "methods for simulating one dimensional spin chains\nZeitgeist methods for spin chains",
		"title":     "Zeitgeist methods for spin chains",
	})
	addDoc(t, s, "other", map[string]string{
		"__content": "convolutional networks for image classification",
		"__text":    "convolutional networks for image classification\nImage classification at scale",
	})

	res, err := s.SearchBM25(context.Background(), &db.TextQuery{
		IndexName: "idx:papers",
		Query:     "zeitgeist",
		TopK:      5,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Entries) != 1 || res.Entries[0].Key != testPrefix+"hit" {
		t.Fatalf("expected the title-only term to match, got %v", res.Entries)
	}
}

func TestSearchBM25_CaseInsensitive(t *testing.T) {
	s := newSearchStore(t)
	addDoc(t, s, "doc", map[string]string{"__text": "Reinforcement Learning"})

	res, err := s.SearchBM25(context.Background(), &db.TextQuery{
		IndexName: "idx:papers",
		Query:     "reinforcement learning",
		TopK:      5,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Entries) != 1 {
		t.Fatalf("expected case-insensitive match, got %d entries", len(res.Entries))
	}
}

func TestSearchList_PaginatesInKeyOrder(t *testing.T) {
	s := newSearchStore(t)
	addDoc(t, s, "a", map[string]string{"title": "A"})
	addDoc(t, s, "b", map[string]string{"title": "B"})
	addDoc(t, s, "c", map[string]string{"title": "C"})

	res, err := s.SearchList(context.Background(), "idx:papers", "*", 1, 1, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.Total != 3 {
		t.Errorf("expected total 3, got %d", res.Total)
	}
	if len(res.Entries) != 1 || res.Entries[0].Key != testPrefix+"b" {
		t.Errorf("expected the middle key, got %v", res.Entries)
	}
}

func TestSearchCount(t *testing.T) {
	s := newSearchStore(t)
	addDoc(t, s, "a", map[string]string{"title": "A"})
	addDoc(t, s, "b", map[string]string{"title": "B"})

	count, err := s.SearchCount(context.Background(), "idx:papers", "*")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2, got %d", count)
	}
}

func TestProjectFields_StripsVectorByDefault(t *testing.T) {
	s := newSearchStore(t)
	addDoc(t, s, "doc", map[string]string{
		"__vector": vectorBytes([]float32{1, 0}),
		"title":    "T",
	})

	res, err := s.SearchKNN(context.Background(), &db.KNNQuery{
		IndexName: "idx:papers",
		Vector:    []float32{1, 0},
		K:         1,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, ok := res.Entries[0].Fields["__vector"]; ok {
		t.Error("expected vector stripped from default projection")
	}
	if res.Entries[0].Fields["title"] != "T" {
		t.Errorf("expected metadata kept, got %v", res.Entries[0].Fields)
	}
}
