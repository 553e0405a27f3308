package query

import (
	"strings"

	"github.com/trialgrid/trialsearch/internal/domain"
	"github.com/trialgrid/trialsearch/internal/domain/entities"
	"github.com/trialgrid/trialsearch/internal/domain/trial"
)

// Boosts are the relevance weights of the free-text match fields.
type Boosts struct {
	BriefTitle          float64 `yaml:"brief_title"`
	OfficialTitle       float64 `yaml:"official_title"`
	BriefSummary        float64 `yaml:"brief_summary"`
	DetailedDescription float64 `yaml:"detailed_description"`
	ConditionName       float64 `yaml:"condition_name"`
	InterventionName    float64 `yaml:"intervention_name"`
	Keywords            float64 `yaml:"keywords"`
}

// DefaultBoosts returns the weights tuned for the trial index.
func DefaultBoosts() Boosts {
	return Boosts{
		BriefTitle:          3,
		OfficialTitle:       2,
		BriefSummary:        1.5,
		DetailedDescription: 1,
		ConditionName:       2,
		InterventionName:    2,
		Keywords:            1,
	}
}

// Config tunes the builder.
type Config struct {
	Boosts                Boosts
	HighlightFragments    int
	HighlightFragmentSize int
}

// Filters are hard constraints from the request. They always apply and
// are never relaxed. Values within one field are a union, fields
// intersect.
type Filters struct {
	Phases   []string
	Statuses []string
	City     string
}

func (f Filters) empty() bool {
	return len(f.Phases) == 0 && len(f.Statuses) == 0 && f.City == ""
}

// Builder turns a user query and its extracted entities into a Spec.
type Builder struct {
	cfg Config
}

// NewBuilder creates a builder. Zero boosts fall back to the defaults.
func NewBuilder(cfg Config) *Builder {
	def := DefaultBoosts()
	if cfg.Boosts == (Boosts{}) {
		cfg.Boosts = def
	}
	if cfg.HighlightFragments <= 0 {
		cfg.HighlightFragments = 3
	}
	if cfg.HighlightFragmentSize <= 0 {
		cfg.HighlightFragmentSize = 150
	}
	return &Builder{cfg: cfg}
}

// Build composes a spec from the free text, the normalized entities and
// the request filters. Returns domain.ErrEmptyQuery when all three are
// empty. Clause order is deterministic: text first, then entity clauses
// from least to most specific, then the hard filters. A categorical
// entity whose field also carries a request filter is merged into that
// filter by union, so one field never holds two contradicting clauses.
func (b *Builder) Build(text string, ents entities.Normalized, filters Filters) (Spec, error) {
	text = strings.TrimSpace(text)
	if text == "" && ents.IsEmpty() && filters.empty() {
		return Spec{}, domain.ErrEmptyQuery
	}

	if len(filters.Phases) > 0 && ents.Phase != "" {
		filters.Phases = appendMissing(filters.Phases, ents.Phase)
		ents.Phase = ""
	}
	if len(filters.Statuses) > 0 && ents.Status != "" {
		filters.Statuses = appendMissing(filters.Statuses, ents.Status)
		ents.Status = ""
	}

	var clauses []Clause
	if text != "" {
		clauses = append(clauses, Clause{
			Kind:   KindText,
			Text:   text,
			Fields: b.textFields(),
		})
	}
	clauses = append(clauses, entityClauses(ents)...)
	clauses = append(clauses, filterClauses(filters)...)

	return NewSpec(clauses, Highlight{
		Fields: []string{
			trial.FieldBriefTitle,
			trial.FieldBriefSummary,
			trial.FieldDetailedDescription,
		},
		Fragments:    b.cfg.HighlightFragments,
		FragmentSize: b.cfg.HighlightFragmentSize,
	}), nil
}

func (b *Builder) textFields() []BoostedField {
	bo := b.cfg.Boosts
	return []BoostedField{
		{Name: trial.FieldBriefTitle, Boost: bo.BriefTitle},
		{Name: trial.FieldOfficialTitle, Boost: bo.OfficialTitle},
		{Name: trial.FieldBriefSummary, Boost: bo.BriefSummary},
		{Name: trial.FieldDetailedDescription, Boost: bo.DetailedDescription},
		{Name: trial.FieldConditionName, Boost: bo.ConditionName},
		{Name: trial.FieldInterventionName, Boost: bo.InterventionName},
		{Name: trial.FieldKeywords, Boost: bo.Keywords},
	}
}

func entityClauses(ents entities.Normalized) []Clause {
	var clauses []Clause
	if ents.Phase != "" {
		clauses = append(clauses, Clause{
			Kind:      KindPhase,
			Fields:    []BoostedField{{Name: trial.FieldPhase}},
			Values:    []string{ents.Phase},
			Relaxable: true,
		})
	}
	if ents.Status != "" {
		clauses = append(clauses, Clause{
			Kind:      KindStatus,
			Fields:    []BoostedField{{Name: trial.FieldOverallStatus}},
			Values:    []string{ents.Status},
			Relaxable: true,
		})
	}
	if ents.StudyType != "" {
		clauses = append(clauses, Clause{
			Kind:      KindStudyType,
			Fields:    []BoostedField{{Name: trial.FieldStudyType}},
			Values:    []string{ents.StudyType},
			Relaxable: true,
		})
	}
	if len(ents.Conditions) > 0 {
		clauses = append(clauses, Clause{
			Kind:      KindConditions,
			Path:      trial.NestedConditions,
			Fields:    []BoostedField{{Name: trial.FieldConditionName}},
			Values:    append([]string(nil), ents.Conditions...),
			Relaxable: true,
		})
	}
	if len(ents.Interventions) > 0 {
		clauses = append(clauses, Clause{
			Kind:      KindInterventions,
			Path:      trial.NestedInterventions,
			Fields:    []BoostedField{{Name: trial.FieldInterventionName}},
			Values:    append([]string(nil), ents.Interventions...),
			Relaxable: true,
		})
	}
	if len(ents.Sponsors) > 0 {
		clauses = append(clauses, Clause{
			Kind:      KindSponsors,
			Path:      trial.NestedSponsors,
			Fields:    []BoostedField{{Name: trial.FieldSponsorName}},
			Values:    append([]string(nil), ents.Sponsors...),
			Relaxable: true,
		})
	}
	if len(ents.Locations) > 0 {
		clauses = append(clauses, Clause{
			Kind: KindLocations,
			Path: trial.NestedFacilities,
			Fields: []BoostedField{
				{Name: trial.FieldFacilityCity},
				{Name: trial.FieldFacilityState},
				{Name: trial.FieldFacilityCountry},
			},
			Values:    append([]string(nil), ents.Locations...),
			Relaxable: true,
		})
	}
	if len(ents.Keywords) > 0 {
		clauses = append(clauses, Clause{
			Kind:      KindKeywords,
			Fields:    []BoostedField{{Name: trial.FieldKeywords}},
			Values:    append([]string(nil), ents.Keywords...),
			Relaxable: true,
		})
	}
	return clauses
}

func filterClauses(f Filters) []Clause {
	var clauses []Clause
	if len(f.Phases) > 0 {
		clauses = append(clauses, Clause{
			Kind:   KindPhase,
			Fields: []BoostedField{{Name: trial.FieldPhase}},
			Values: append([]string(nil), f.Phases...),
		})
	}
	if len(f.Statuses) > 0 {
		clauses = append(clauses, Clause{
			Kind:   KindStatus,
			Fields: []BoostedField{{Name: trial.FieldOverallStatus}},
			Values: append([]string(nil), f.Statuses...),
		})
	}
	if f.City != "" {
		clauses = append(clauses, Clause{
			Kind:   KindLocations,
			Path:   trial.NestedFacilities,
			Fields: []BoostedField{{Name: trial.FieldFacilityCity}},
			Values: []string{f.City},
		})
	}
	return clauses
}

func appendMissing(values []string, v string) []string {
	for _, have := range values {
		if strings.EqualFold(have, v) {
			return values
		}
	}
	return append(append([]string(nil), values...), v)
}
