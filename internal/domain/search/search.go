package search

import "github.com/trialgrid/trialsearch/internal/domain/trial"

// Tier marks how a hit was found: by satisfying the structured query
// (possibly after relaxation) or by content similarity fallback.
type Tier string

const (
	TierExact   Tier = "exact"
	TierSimilar Tier = "similar"
)

// Type classifies the executed search for the response envelope.
type Type string

const (
	// TypeBasic: no structured clauses were available, text match only.
	TypeBasic Type = "basic"
	// TypeExact: the structured query was satisfied without relaxation
	// or fallback.
	TypeExact Type = "exact"
	// TypeHybrid: relaxation or the similarity fallback contributed.
	TypeHybrid Type = "hybrid"
)

// Hit is one matched trial with its ranking metadata.
type Hit struct {
	Trial      trial.Trial
	Score      float64
	Tier       Tier
	Highlights map[string][]string
}

// Page is one page of a result set. Pagination covers the exact tier
// only. Similarity-fallback hits ride along whole in Similar and never
// shift the page numbering.
type Page struct {
	Hits       []Hit
	Similar    []Hit
	Total      int
	Page       int
	PageSize   int
	TotalPages int
	SearchType Type
}

// TotalPages returns the page count for total results at the given page
// size, rounding up. Zero results means zero pages.
func TotalPages(total, pageSize int) int {
	if total <= 0 || pageSize <= 0 {
		return 0
	}
	return (total + pageSize - 1) / pageSize
}

// Slice returns the hits of the requested 1-based page. Pages past the
// end yield an empty slice, never an error.
func Slice(hits []Hit, page, pageSize int) []Hit {
	if page < 1 || pageSize < 1 {
		return nil
	}
	start := (page - 1) * pageSize
	if start >= len(hits) {
		return nil
	}
	end := start + pageSize
	if end > len(hits) {
		end = len(hits)
	}
	return hits[start:end]
}
