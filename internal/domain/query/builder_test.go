package query

import (
	"errors"
	"reflect"
	"testing"

	"github.com/trialgrid/trialsearch/internal/domain"
	"github.com/trialgrid/trialsearch/internal/domain/entities"
)

func TestBuildEmptyQuery(t *testing.T) {
	b := NewBuilder(Config{})

	_, err := b.Build("   ", entities.Normalized{}, Filters{})
	if !errors.Is(err, domain.ErrEmptyQuery) {
		t.Fatalf("err = %v, want ErrEmptyQuery", err)
	}
}

func TestBuildTextOnly(t *testing.T) {
	b := NewBuilder(Config{})

	spec, err := b.Build("brca1 breast cancer", entities.Normalized{}, Filters{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	clauses := spec.Clauses()
	if len(clauses) != 1 {
		t.Fatalf("clauses = %d, want 1", len(clauses))
	}
	if clauses[0].Kind != KindText || clauses[0].Text != "brca1 breast cancer" {
		t.Errorf("unexpected text clause: %+v", clauses[0])
	}
	if spec.Structured() {
		t.Error("text-only spec reported structured")
	}
	if clauses[0].Fields[0].Name != "brief_title" || clauses[0].Fields[0].Boost != 3 {
		t.Errorf("unexpected first boosted field: %+v", clauses[0].Fields[0])
	}
}

func TestBuildEntityClausesOrder(t *testing.T) {
	b := NewBuilder(Config{})

	spec, err := b.Build("q", entities.Normalized{
		Phase:         "PHASE2",
		Status:        "RECRUITING",
		Conditions:    []string{"breast cancer"},
		Interventions: []string{"olaparib"},
		Keywords:      []string{"brca1"},
	}, Filters{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	want := []Kind{KindText, KindPhase, KindStatus, KindConditions, KindInterventions, KindKeywords}
	var got []Kind
	for _, c := range spec.Clauses() {
		got = append(got, c.Kind)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("clause order = %v, want %v", got, want)
	}
	if got := spec.Relaxable(); len(got) != 5 {
		t.Errorf("relaxable kinds = %v, want 5 entries", got)
	}
}

func TestFilterMergesEntityByUnion(t *testing.T) {
	b := NewBuilder(Config{})

	spec, err := b.Build("q", entities.Normalized{Phase: "PHASE2"}, Filters{Phases: []string{"PHASE3"}})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	phases := 0
	for _, c := range spec.Clauses() {
		if c.Kind == KindPhase {
			phases++
			if c.Relaxable {
				t.Error("merged phase filter must not be relaxable")
			}
			if !reflect.DeepEqual(c.Values, []string{"PHASE3", "PHASE2"}) {
				t.Errorf("phase filter values = %v, want union [PHASE3 PHASE2]", c.Values)
			}
		}
	}
	if phases != 1 {
		t.Fatalf("phase clauses = %d, want exactly 1", phases)
	}

	// A hard filter has nothing to relax away.
	if _, ok := spec.Without(KindPhase); ok {
		t.Error("Without(KindPhase) removed a hard filter")
	}
}

func TestCityFilterSurvivesRelaxation(t *testing.T) {
	b := NewBuilder(Config{})

	spec, err := b.Build("q", entities.Normalized{Locations: []string{"Boston"}}, Filters{City: "Houston"})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	relaxed, ok := spec.Without(KindLocations)
	if !ok {
		t.Fatal("Without(KindLocations) removed nothing")
	}
	locations := 0
	for _, c := range relaxed.Clauses() {
		if c.Kind == KindLocations {
			locations++
			if c.Relaxable {
				t.Error("relaxable locations clause survived relaxation")
			}
			if c.Values[0] != "Houston" {
				t.Errorf("surviving city filter = %v, want Houston", c.Values)
			}
		}
	}
	if locations != 1 {
		t.Errorf("location clauses after relaxation = %d, want 1", locations)
	}
}

func TestWithoutAbsentKind(t *testing.T) {
	b := NewBuilder(Config{})

	spec, err := b.Build("q", entities.Normalized{}, Filters{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if _, ok := spec.Without(KindSponsors); ok {
		t.Error("Without reported removal for absent kind")
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	b := NewBuilder(Config{})
	ents := entities.Normalized{
		Conditions: []string{"melanoma", "breast cancer"},
		Sponsors:   []string{"NCI"},
	}

	a, _ := b.Build("immunotherapy", ents, Filters{})
	c, _ := b.Build("immunotherapy", ents, Filters{})
	if !reflect.DeepEqual(a.Clauses(), c.Clauses()) {
		t.Error("identical inputs produced different specs")
	}
}
