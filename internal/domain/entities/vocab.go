package entities

import "strings"

// Vocabulary is the set of allowed values for one categorical field.
// Matching is case-insensitive; the canonical (upper-case) form is returned.
type Vocabulary struct {
	canonical map[string]string
}

// NewVocabulary builds a vocabulary from its allowed values.
func NewVocabulary(values []string) Vocabulary {
	canonical := make(map[string]string, len(values))
	for _, v := range values {
		canonical[strings.ToUpper(strings.TrimSpace(v))] = v
	}
	return Vocabulary{canonical: canonical}
}

// Resolve returns the canonical form of v, or "" when v is not in the
// vocabulary. Spaces and hyphens are tolerated ("Phase 2" -> "PHASE2").
func (vo Vocabulary) Resolve(v string) string {
	v = strings.ToUpper(strings.TrimSpace(v))
	if v == "" {
		return ""
	}
	if c, ok := vo.canonical[v]; ok {
		return c
	}
	compact := strings.NewReplacer(" ", "", "-", "").Replace(v)
	if c, ok := vo.canonical[compact]; ok {
		return c
	}
	underscored := strings.ReplaceAll(v, " ", "_")
	if c, ok := vo.canonical[underscored]; ok {
		return c
	}
	return ""
}

// Len returns the number of allowed values.
func (vo Vocabulary) Len() int { return len(vo.canonical) }

// Vocabularies groups the controlled vocabularies of all categorical fields.
type Vocabularies struct {
	Phases     Vocabulary
	Statuses   Vocabulary
	StudyTypes Vocabulary
}

// Default vocabulary values, matching the index's categorical fields.
var (
	DefaultPhases = []string{
		"EARLY_PHASE1", "PHASE1", "PHASE1/PHASE2", "PHASE2",
		"PHASE2/PHASE3", "PHASE3", "PHASE4", "NA",
	}
	DefaultStatuses = []string{
		"RECRUITING", "NOT_YET_RECRUITING", "ACTIVE_NOT_RECRUITING",
		"ENROLLING_BY_INVITATION", "COMPLETED", "TERMINATED",
		"SUSPENDED", "WITHDRAWN", "UNKNOWN",
	}
	DefaultStudyTypes = []string{
		"INTERVENTIONAL", "OBSERVATIONAL", "EXPANDED_ACCESS", "NA",
	}
)

// DefaultVocabularies returns the built-in controlled vocabularies.
func DefaultVocabularies() Vocabularies {
	return Vocabularies{
		Phases:     NewVocabulary(DefaultPhases),
		Statuses:   NewVocabulary(DefaultStatuses),
		StudyTypes: NewVocabulary(DefaultStudyTypes),
	}
}
