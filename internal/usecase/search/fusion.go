package search

import (
	"sort"

	"github.com/scholarmesh/paperdex/internal/domain/search/result"
)

// distanceEpsilon keeps the inverse-distance score finite for exact matches.
const distanceEpsilon = 0.001

// DefaultOverfetchFactor is how many times topK candidates each side
// retrieves before fusion. Over-fetching keeps documents that rank well on
// only one side inside the candidate pool.
const DefaultOverfetchFactor = 2

// fuseAlpha merges keyword and semantic candidate lists with a weighted union.
// Keyword candidates score 1/(rank+1) by 0-based rank; semantic candidates
// score 1/(distance+eps) from raw cosine distance. A document missing from
// one side contributes zero there. Combined score is
// (1-alpha)*keyword + alpha*semantic, sorted descending with ties broken by
// ascending ID so identical inputs always produce identical output.
func fuseAlpha(keyword, semantic []result.Result, alpha float64, topK int) []result.Result {
	type scored struct {
		res        result.Result
		keyword    float64
		semantic   float64
		inSemantic bool
	}

	merged := make(map[string]*scored)

	for rank, r := range keyword {
		merged[r.ID()] = &scored{res: r, keyword: 1.0 / float64(rank+1)}
	}

	for _, r := range semantic {
		s := 1.0 / (r.Score() + distanceEpsilon)
		if existing, ok := merged[r.ID()]; ok {
			existing.semantic = s
			existing.inSemantic = true
			// Semantic result takes priority (it may contain the vector)
			existing.res = r
		} else {
			merged[r.ID()] = &scored{res: r, semantic: s, inSemantic: true}
		}
	}

	results := make([]result.Result, 0, len(merged))
	for _, s := range merged {
		combined := (1-alpha)*s.keyword + alpha*s.semantic
		results = append(results, s.res.WithScore(combined))
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score() != results[j].Score() {
			return results[i].Score() > results[j].Score()
		}
		return results[i].ID() < results[j].ID()
	})

	if len(results) > topK {
		results = results[:topK]
	}

	return results
}
