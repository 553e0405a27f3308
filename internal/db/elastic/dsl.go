package elastic

import (
	"fmt"
	"strings"

	"github.com/trialgrid/trialsearch/internal/domain/query"
	"github.com/trialgrid/trialsearch/internal/domain/trial"
)

// More-like-this tuning. Loose term thresholds suit short clinical
// abstracts where most terms appear once.
const (
	mltMinTermFreq   = 1
	mltMinDocFreq    = 2
	mltMaxQueryTerms = 25
)

var mltFields = []string{
	trial.FieldBriefTitle,
	trial.FieldBriefSummary,
	trial.FieldDetailedDescription,
	trial.FieldKeywords,
}

type m = map[string]any

// buildQuery translates a query spec into the backend's bool query.
func buildQuery(spec query.Spec, exclude []string) m {
	var must []any
	for _, c := range spec.Clauses() {
		must = append(must, clauseQuery(c))
	}
	b := m{}
	if len(must) > 0 {
		b["must"] = must
	}
	if len(exclude) > 0 {
		b["must_not"] = []any{m{"ids": m{"values": exclude}}}
	}
	if len(b) == 0 {
		b["must"] = []any{m{"match_all": m{}}}
	}
	return m{"bool": b}
}

func clauseQuery(c query.Clause) m {
	switch {
	case c.Kind == query.KindText:
		return m{"multi_match": m{
			"query":  c.Text,
			"fields": boostedNames(c.Fields),
		}}
	case c.Path != "":
		return m{"nested": m{
			"path":  c.Path,
			"query": valueUnion(c),
		}}
	default:
		return valueUnion(c)
	}
}

// valueUnion matches any of the clause's values against its fields.
func valueUnion(c query.Clause) m {
	var should []any
	for _, v := range c.Values {
		if len(c.Fields) == 1 {
			should = append(should, m{"match": m{c.Fields[0].Name: v}})
			continue
		}
		should = append(should, m{"multi_match": m{
			"query":  v,
			"fields": boostedNames(c.Fields),
		}})
	}
	if len(should) == 1 {
		return should[0].(m)
	}
	return m{"bool": m{"should": should, "minimum_should_match": 1}}
}

func boostedNames(fields []query.BoostedField) []string {
	names := make([]string, 0, len(fields))
	for _, f := range fields {
		if f.Boost > 0 && f.Boost != 1 {
			names = append(names, fmt.Sprintf("%s^%g", f.Name, f.Boost))
			continue
		}
		names = append(names, f.Name)
	}
	return names
}

func buildHighlight(h query.Highlight) m {
	if len(h.Fields) == 0 {
		return nil
	}
	fields := m{}
	for _, f := range h.Fields {
		fields[f] = m{
			"fragment_size":       h.FragmentSize,
			"number_of_fragments": h.Fragments,
		}
	}
	return m{"fields": fields}
}

// buildMLT builds a more-like-this query seeded by one document.
func buildMLT(index, nctID string, exclude []string) m {
	notIDs := append([]string{nctID}, exclude...)
	return m{"bool": m{
		"must": []any{m{"more_like_this": m{
			"fields":          mltFields,
			"like":            []any{m{"_index": index, "_id": nctID}},
			"min_term_freq":   mltMinTermFreq,
			"min_doc_freq":    mltMinDocFreq,
			"max_query_terms": mltMaxQueryTerms,
		}}},
		"must_not": []any{m{"ids": m{"values": notIDs}}},
	}}
}

// buildFacets builds terms aggregations for the given fields. Dotted
// paths aggregate inside their nested object.
func buildFacets(fields []string, size int) m {
	aggs := m{}
	for _, f := range fields {
		if path, _, ok := strings.Cut(f, "."); ok {
			aggs[f] = m{
				"nested": m{"path": path},
				"aggs": m{
					"values": m{"terms": m{"field": f + ".keyword", "size": size}},
				},
			}
			continue
		}
		aggs[f] = m{"terms": m{"field": f, "size": size}}
	}
	return aggs
}
