package memory

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/scholarmesh/paperdex/internal/db"
	"github.com/scholarmesh/paperdex/internal/domain/search/filter"
)

// SearchKNN runs a brute-force cosine scan over documents under the index prefixes.
func (s *Store) SearchKNN(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if q.IndexName == "" {
		return nil, fmt.Errorf("index name is required")
	}
	if len(q.Vector) == 0 {
		return nil, fmt.Errorf("vector is required")
	}
	if q.K <= 0 {
		return nil, fmt.Errorf("k must be positive")
	}

	docs, _, err := s.snapshot(q.IndexName, q.Filters)
	if err != nil {
		return nil, err
	}

	type scored struct {
		key    string
		dist   float64
		fields map[string]string
	}

	candidates := make([]scored, 0, len(docs))
	for key, fields := range docs {
		vec, ok := bytesToVector(fields["__vector"])
		if !ok || len(vec) != len(q.Vector) {
			continue
		}
		candidates = append(candidates, scored{key: key, dist: cosineDistance(q.Vector, vec), fields: fields})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].dist != candidates[j].dist {
			return candidates[i].dist < candidates[j].dist
		}
		return candidates[i].key < candidates[j].key
	})

	if len(candidates) > q.K {
		candidates = candidates[:q.K]
	}

	entries := make([]db.SearchEntry, 0, len(candidates))
	for _, c := range candidates {
		score := c.dist
		if !q.RawScores {
			score = max(0, 1.0-c.dist)
		}
		entries = append(entries, db.SearchEntry{
			Key:    c.key,
			Score:  score,
			Fields: projectFields(c.fields, q.ReturnFields),
		})
	}

	return &db.SearchResult{Total: len(entries), Entries: entries}, nil
}

// SearchBM25 scores documents by query-term overlap against the __text field.
func (s *Store) SearchBM25(_ context.Context, q *db.TextQuery) (*db.SearchResult, error) {
	if q.IndexName == "" {
		return nil, fmt.Errorf("index name is required")
	}
	if q.Query == "" {
		return nil, fmt.Errorf("query is required")
	}
	if q.TopK <= 0 {
		return nil, fmt.Errorf("topK must be positive")
	}

	docs, _, err := s.snapshot(q.IndexName, q.Filters)
	if err != nil {
		return nil, err
	}

	queryTerms := tokenize(q.Query)
	if len(queryTerms) == 0 {
		return &db.SearchResult{}, nil
	}

	type scored struct {
		key    string
		score  float64
		fields map[string]string
	}

	var candidates []scored
	for key, fields := range docs {
		terms := termCounts(tokenize(fields["__text"]))
		var hits float64
		for _, t := range queryTerms {
			hits += float64(terms[t])
		}
		if hits == 0 {
			continue
		}
		candidates = append(candidates, scored{key: key, score: hits / float64(len(queryTerms)), fields: fields})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].key < candidates[j].key
	})

	if len(candidates) > q.TopK {
		candidates = candidates[:q.TopK]
	}

	entries := make([]db.SearchEntry, 0, len(candidates))
	for _, c := range candidates {
		entries = append(entries, db.SearchEntry{
			Key:    c.key,
			Score:  c.score,
			Fields: projectFields(c.fields, q.ReturnFields),
		})
	}

	return &db.SearchResult{Total: len(entries), Entries: entries}, nil
}

// SearchList returns documents under the index prefixes in key order.
// Only the match-all query is supported.
func (s *Store) SearchList(
	_ context.Context, index, query string, offset, limit int, fields []string,
) (*db.SearchResult, error) {
	if query != "*" {
		return nil, fmt.Errorf("memory store supports only the match-all query")
	}

	docs, _, err := s.snapshot(index, filter.Expression{})
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(docs))
	for k := range docs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	total := len(keys)
	if offset > len(keys) {
		offset = len(keys)
	}
	keys = keys[offset:]
	if limit >= 0 && len(keys) > limit {
		keys = keys[:limit]
	}

	entries := make([]db.SearchEntry, 0, len(keys))
	for _, k := range keys {
		entries = append(entries, db.SearchEntry{Key: k, Fields: projectFields(docs[k], fields)})
	}

	return &db.SearchResult{Total: total, Entries: entries}, nil
}

// SearchCount counts documents under the index prefixes.
func (s *Store) SearchCount(_ context.Context, index, query string) (int, error) {
	if query != "*" {
		return 0, fmt.Errorf("memory store supports only the match-all query")
	}
	docs, _, err := s.snapshot(index, filter.Expression{})
	if err != nil {
		return 0, err
	}
	return len(docs), nil
}

// snapshot copies documents under the index prefixes that pass the filter.
func (s *Store) snapshot(index string, filters filter.Expression) (map[string]map[string]string, *db.IndexDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	def, ok := s.indexes[index]
	if !ok {
		return nil, nil, db.ErrIndexNotFound
	}

	out := make(map[string]map[string]string)
	for key, fields := range s.hashes {
		if !hasAnyPrefix(key, def.Prefixes) {
			continue
		}
		if !matchesFilter(def, fields, filters) {
			continue
		}
		cp := make(map[string]string, len(fields))
		for k, v := range fields {
			cp[k] = v
		}
		out[key] = cp
	}
	return out, def, nil
}

func hasAnyPrefix(key string, prefixes []string) bool {
	if len(prefixes) == 0 {
		return true
	}
	for _, p := range prefixes {
		if strings.HasPrefix(key, p) {
			return true
		}
	}
	return false
}

// matchesFilter evaluates the conjunction of filter conditions against raw
// hash fields, honoring per-field tag separators for multi-valued fields.
func matchesFilter(def *db.IndexDefinition, fields map[string]string, expr filter.Expression) bool {
	if expr.IsEmpty() {
		return true
	}
	for _, cond := range expr.Conditions() {
		raw, ok := fields[cond.Key()]
		if !ok {
			return false
		}
		values := splitFieldValues(def, cond.Key(), raw)
		switch {
		case cond.IsMatch():
			if !containsValue(values, cond.Match()) {
				return false
			}
		case cond.IsIn():
			found := false
			for _, want := range cond.In() {
				if containsValue(values, want) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		case cond.IsEquals():
			num, err := strconv.ParseFloat(raw, 64)
			if err != nil || num != *cond.Equals() {
				return false
			}
		}
	}
	return true
}

func splitFieldValues(def *db.IndexDefinition, name, raw string) []string {
	for i := range def.Fields {
		f := &def.Fields[i]
		key := f.Name
		if f.Alias != "" {
			key = f.Alias
		}
		if key == name && f.TagSeparator != "" {
			return strings.Split(raw, f.TagSeparator)
		}
	}
	return []string{raw}
}

func containsValue(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}

func projectFields(fields map[string]string, returnFields []string) map[string]string {
	if len(returnFields) == 0 {
		out := make(map[string]string, len(fields))
		for k, v := range fields {
			out[k] = v
		}
		delete(out, "__vector")
		return out
	}
	out := make(map[string]string, len(returnFields))
	for _, k := range returnFields {
		if v, ok := fields[k]; ok {
			out[k] = v
		}
	}
	return out
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		isAlpha := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		return !isAlpha
	})
}

func termCounts(tokens []string) map[string]int {
	m := make(map[string]int, len(tokens))
	for _, t := range tokens {
		m[t]++
	}
	return m
}

func bytesToVector(s string) ([]float32, bool) {
	if s == "" || len(s)%4 != 0 {
		return nil, false
	}
	v := make([]float32, len(s)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32([]byte(s[i*4 : i*4+4])))
	}
	return v, true
}

// cosineDistance assumes both vectors are L2-normalized, so distance is 1 - dot.
func cosineDistance(a, b []float32) float64 {
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return 1 - dot
}
