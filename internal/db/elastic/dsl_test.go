package elastic

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/trialgrid/trialsearch/internal/domain/entities"
	"github.com/trialgrid/trialsearch/internal/domain/query"
)

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(data)
}

func TestBuildQueryTextClause(t *testing.T) {
	b := query.NewBuilder(query.Config{})
	spec, err := b.Build("brca1 breast cancer", entities.Normalized{}, query.Filters{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	got := mustJSON(t, buildQuery(spec, nil))
	for _, want := range []string{
		`"multi_match"`,
		`"brca1 breast cancer"`,
		`"brief_title^3"`,
		`"official_title^2"`,
		`"brief_summary^1.5"`,
		`"detailed_description"`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("query missing %s:\n%s", want, got)
		}
	}
	if strings.Contains(got, "must_not") {
		t.Errorf("unexpected must_not without exclusions:\n%s", got)
	}
}

func TestBuildQueryNestedClause(t *testing.T) {
	b := query.NewBuilder(query.Config{})
	spec, err := b.Build("q", entities.Normalized{
		Conditions: []string{"breast cancer", "ovarian cancer"},
	}, query.Filters{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	got := mustJSON(t, buildQuery(spec, nil))
	for _, want := range []string{
		`"nested"`,
		`"path":"conditions"`,
		`"conditions.name"`,
		`"minimum_should_match":1`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("query missing %s:\n%s", want, got)
		}
	}
}

func TestBuildQueryExclusions(t *testing.T) {
	b := query.NewBuilder(query.Config{})
	spec, err := b.Build("q", entities.Normalized{}, query.Filters{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	got := mustJSON(t, buildQuery(spec, []string{"NCT00000001", "NCT00000002"}))
	if !strings.Contains(got, `"ids":{"values":["NCT00000001","NCT00000002"]}`) {
		t.Errorf("exclusions not serialized:\n%s", got)
	}
}

func TestBuildQueryEmptySpec(t *testing.T) {
	got := mustJSON(t, buildQuery(query.Spec{}, nil))
	if !strings.Contains(got, "match_all") {
		t.Errorf("empty spec should match all:\n%s", got)
	}
}

func TestBuildMLT(t *testing.T) {
	got := mustJSON(t, buildMLT("clinical_trials", "NCT01234567", []string{"NCT99999999"}))
	for _, want := range []string{
		`"more_like_this"`,
		`"min_term_freq":1`,
		`"min_doc_freq":2`,
		`"max_query_terms":25`,
		`"_id":"NCT01234567"`,
		`"values":["NCT01234567","NCT99999999"]`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("mlt query missing %s:\n%s", want, got)
		}
	}
}

func TestBuildHighlight(t *testing.T) {
	h := buildHighlight(query.Highlight{
		Fields:       []string{"brief_title", "brief_summary"},
		Fragments:    3,
		FragmentSize: 150,
	})
	got := mustJSON(t, h)
	for _, want := range []string{
		`"fragment_size":150`,
		`"number_of_fragments":3`,
		`"brief_title"`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("highlight missing %s:\n%s", want, got)
		}
	}

	if buildHighlight(query.Highlight{}) != nil {
		t.Error("empty highlight should be nil")
	}
}

func TestBuildFacets(t *testing.T) {
	got := mustJSON(t, buildFacets([]string{"phase", "conditions.name"}, 100))
	for _, want := range []string{
		`"phase":{"terms":{"field":"phase","size":100}}`,
		`"nested":{"path":"conditions"}`,
		`"field":"conditions.name.keyword"`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("facets missing %s:\n%s", want, got)
		}
	}
}
