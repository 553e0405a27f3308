package entities

import "strings"

// Normalizer validates raw extracted entities against the controlled
// vocabularies and tidies the free-text lists.
type Normalizer struct {
	vocab Vocabularies
}

// NewNormalizer creates a normalizer over the given vocabularies.
func NewNormalizer(vocab Vocabularies) *Normalizer {
	return &Normalizer{vocab: vocab}
}

// Normalize drops categorical values outside their vocabularies and
// trims, dedups and lowercase-folds free-text lists. A nil input yields
// an empty result.
func (n *Normalizer) Normalize(raw *Extracted) Normalized {
	if raw == nil {
		return Normalized{}
	}
	return Normalized{
		Phase:         n.vocab.Phases.Resolve(raw.Phase),
		Status:        n.vocab.Statuses.Resolve(raw.Status),
		StudyType:     n.vocab.StudyTypes.Resolve(raw.StudyType),
		Conditions:    cleanList(raw.Conditions),
		Interventions: cleanList(raw.Interventions),
		Sponsors:      cleanList(raw.Sponsors),
		Locations:     cleanList(raw.Locations),
		Keywords:      cleanList(raw.Keywords),
		Confidence:    clampConfidence(raw.Confidence),
	}
}

func cleanList(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.Join(strings.Fields(v), " ")
		if v == "" {
			continue
		}
		key := strings.ToLower(v)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func clampConfidence(c float64) float64 {
	switch {
	case c < 0:
		return 0
	case c > 1:
		return 1
	default:
		return c
	}
}
