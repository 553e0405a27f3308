package query

// Kind identifies what a clause constrains. Structured kinds map
// one-to-one to extracted entity fields and can be relaxed away;
// the text kind is the free-text match and is never relaxed.
type Kind string

const (
	KindText          Kind = "text"
	KindPhase         Kind = "phase"
	KindStatus        Kind = "status"
	KindStudyType     Kind = "study_type"
	KindConditions    Kind = "conditions"
	KindInterventions Kind = "interventions"
	KindSponsors      Kind = "sponsors"
	KindKeywords      Kind = "keywords"
	KindLocations     Kind = "locations"
)

// BoostedField is an index field with its relevance weight.
type BoostedField struct {
	Name  string
	Boost float64
}

// Clause is a single constraint of a query. Exactly one of Text or
// Values is set depending on the kind. Path is the nested object path
// for clauses on nested documents, empty for top-level fields.
type Clause struct {
	Kind      Kind
	Path      string
	Fields    []BoostedField
	Values    []string
	Text      string
	Relaxable bool
}

// Highlight tells the search backend which fields to highlight and how.
type Highlight struct {
	Fields       []string
	Fragments    int
	FragmentSize int
}

// Spec is an immutable search query: a set of clauses plus a highlight
// directive. Derive narrower specs with Without instead of mutating.
type Spec struct {
	clauses   []Clause
	highlight Highlight
}

// NewSpec builds a spec from its clauses. The slice is copied.
func NewSpec(clauses []Clause, highlight Highlight) Spec {
	cp := make([]Clause, len(clauses))
	copy(cp, clauses)
	return Spec{clauses: cp, highlight: highlight}
}

// Clauses returns a copy of the spec's clauses.
func (s Spec) Clauses() []Clause {
	cp := make([]Clause, len(s.clauses))
	copy(cp, s.clauses)
	return cp
}

// Highlight returns the highlight directive.
func (s Spec) Highlight() Highlight { return s.highlight }

// Has reports whether the spec carries a clause of the given kind.
func (s Spec) Has(kind Kind) bool {
	for _, c := range s.clauses {
		if c.Kind == kind {
			return true
		}
	}
	return false
}

// Relaxable returns the kinds of the relaxable clauses, in clause order.
func (s Spec) Relaxable() []Kind {
	var kinds []Kind
	for _, c := range s.clauses {
		if c.Relaxable {
			kinds = append(kinds, c.Kind)
		}
	}
	return kinds
}

// Structured reports whether the spec carries any structured clause,
// relaxable or not, beyond the free-text match.
func (s Spec) Structured() bool {
	for _, c := range s.clauses {
		if c.Kind != KindText {
			return true
		}
	}
	return false
}

// Without derives a spec with the relaxable clauses of the given kind
// removed. Hard filter clauses of the same kind survive. The second
// result is false when no clause matched.
func (s Spec) Without(kind Kind) (Spec, bool) {
	kept := make([]Clause, 0, len(s.clauses))
	removed := false
	for _, c := range s.clauses {
		if c.Kind == kind && c.Relaxable {
			removed = true
			continue
		}
		kept = append(kept, c)
	}
	if !removed {
		return s, false
	}
	return Spec{clauses: kept, highlight: s.highlight}, true
}

// Empty reports whether the spec has no clauses at all.
func (s Spec) Empty() bool { return len(s.clauses) == 0 }
