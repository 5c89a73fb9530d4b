package search

import (
	"context"
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/scholarmesh/paperdex/internal/db"
)

func vectorField(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}

func TestSearchKNN_BuildsQueryAndParsesResults(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.searchKNNFn = func(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
		if q.IndexName != "paperdex:papers:idx" {
			t.Errorf("unexpected index: %s", q.IndexName)
		}
		if q.K != 5 || !q.RawScores {
			t.Errorf("unexpected query params: K=%d raw=%v", q.K, q.RawScores)
		}
		return &db.SearchResult{
			Total: 1,
			Entries: []db.SearchEntry{{
				Key:   "paperdex:papers:p1",
				Score: 0.12,
				Fields: map[string]string{
					"__content": "the transformer architecture",
					"__lists":   `{"authors":["vaswani","shazeer"]}`,
					"authors":   "vaswani|shazeer",
					"title":     "Attention Is All You Need",
					"year":      "2017",
				},
			}},
		}, nil
	}

	results, err := repo.SearchKNN(context.Background(), "papers", []float32{1, 0}, emptyFilters(), 5, false, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}

	r := results[0]
	if r.ID() != "p1" {
		t.Errorf("expected key prefix stripped, got %s", r.ID())
	}
	if r.Score() != 0.12 {
		t.Errorf("expected score 0.12, got %f", r.Score())
	}
	if r.Content() != "the transformer architecture" {
		t.Errorf("unexpected content: %q", r.Content())
	}
	if r.Tags()["title"] != "Attention Is All You Need" {
		t.Errorf("unexpected tags: %v", r.Tags())
	}
	if r.Numerics()["year"] != 2017 {
		t.Errorf("unexpected numerics: %v", r.Numerics())
	}
	if got := r.Lists()["authors"]; len(got) != 2 || got[1] != "shazeer" {
		t.Errorf("unexpected lists: %v", r.Lists())
	}
	// list field must not leak into tags via its joined representation
	if _, ok := r.Tags()["authors"]; ok {
		t.Error("expected joined list excluded from tags")
	}
}

func TestSearchKNN_VectorOnlyWhenRequested(t *testing.T) {
	repo, ms := newTestRepo(t)

	entryFields := map[string]string{
		"__content": "c",
		"__vector":  vectorField([]float32{0.5, 0.5}),
	}
	ms.searchKNNFn = func(_ context.Context, _ *db.KNNQuery) (*db.SearchResult, error) {
		return &db.SearchResult{
			Total:   1,
			Entries: []db.SearchEntry{{Key: "paperdex:papers:p1", Fields: entryFields}},
		}, nil
	}

	without, err := repo.SearchKNN(context.Background(), "papers", []float32{1, 0}, emptyFilters(), 5, false, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(without[0].Vector()) != 0 {
		t.Error("expected no vector without includeVectors")
	}

	with, err := repo.SearchKNN(context.Background(), "papers", []float32{1, 0}, emptyFilters(), 5, true, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(with[0].Vector()) != 2 {
		t.Errorf("expected vector with includeVectors, got %v", with[0].Vector())
	}
}

func TestSearchKNN_StoreErrorPropagates(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.searchKNNFn = func(_ context.Context, _ *db.KNNQuery) (*db.SearchResult, error) {
		return nil, errors.New("index missing")
	}

	_, err := repo.SearchKNN(context.Background(), "papers", []float32{1}, emptyFilters(), 5, false, false)
	if err == nil {
		t.Fatal("expected error from store")
	}
}

func TestSearchKNN_EmptyResult(t *testing.T) {
	repo, _ := newTestRepo(t)

	results, err := repo.SearchKNN(context.Background(), "papers", []float32{1}, emptyFilters(), 5, false, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected no results, got %d", len(results))
	}
}

func TestSearchBM25_BuildsQuery(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.searchBM25Fn = func(_ context.Context, q *db.TextQuery) (*db.SearchResult, error) {
		if q.IndexName != "paperdex:faculty:idx" {
			t.Errorf("unexpected index: %s", q.IndexName)
		}
		if q.Query != "reinforcement learning" || q.TopK != 3 {
			t.Errorf("unexpected query: %q topK=%d", q.Query, q.TopK)
		}
		return &db.SearchResult{
			Total: 1,
			Entries: []db.SearchEntry{{
				Key:    "paperdex:faculty:f1",
				Score:  2.5,
				Fields: map[string]string{"__content": "bio", "name": "Dana Kim"},
			}},
		}, nil
	}

	results, err := repo.SearchBM25(context.Background(), "faculty", "reinforcement learning", emptyFilters(), 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 || results[0].ID() != "f1" {
		t.Fatalf("unexpected results: %v", results)
	}
	if results[0].Tags()["name"] != "Dana Kim" {
		t.Errorf("unexpected tags: %v", results[0].Tags())
	}
}

func TestSupportsTextSearch_Proxies(t *testing.T) {
	repo, ms := newTestRepo(t)

	if !repo.SupportsTextSearch(context.Background()) {
		t.Error("expected capability proxied from store")
	}
	ms.supportsTextSearch = false
	if repo.SupportsTextSearch(context.Background()) {
		t.Error("expected capability disabled")
	}
}
