// Package entities holds the structured hints extracted from a
// natural-language query and their validation against controlled
// vocabularies. Extraction output is untrusted input: nothing leaves
// this package without vocabulary validation.
package entities

// Extracted is the raw, possibly malformed output of the
// entity-extraction collaborator. Every field is independently optional.
type Extracted struct {
	Phase         string   `json:"phase"`
	Conditions    []string `json:"conditions"`
	Interventions []string `json:"interventions"`
	Status        string   `json:"status"`
	StudyType     string   `json:"study_type"`
	Sponsors      []string `json:"sponsors"`
	Locations     []string `json:"locations"`
	Keywords      []string `json:"keywords"`
	Confidence    float64  `json:"confidence"`
}

// IsEmpty reports whether no entity field carries a value.
func (e Extracted) IsEmpty() bool {
	return e.Phase == "" && e.Status == "" && e.StudyType == "" &&
		len(e.Conditions) == 0 && len(e.Interventions) == 0 &&
		len(e.Sponsors) == 0 && len(e.Locations) == 0 && len(e.Keywords) == 0
}

// Normalized is the vocabulary-validated form of Extracted.
// Categorical fields hold either a canonical vocabulary value or "".
type Normalized struct {
	Phase         string
	Status        string
	StudyType     string
	Conditions    []string
	Interventions []string
	Sponsors      []string
	Locations     []string
	Keywords      []string
	Confidence    float64
}

// IsEmpty reports whether no normalized field carries a value.
func (n Normalized) IsEmpty() bool {
	return n.Phase == "" && n.Status == "" && n.StudyType == "" &&
		len(n.Conditions) == 0 && len(n.Interventions) == 0 &&
		len(n.Sponsors) == 0 && len(n.Locations) == 0 && len(n.Keywords) == 0
}
