package entities

import (
	"reflect"
	"testing"
)

func TestVocabularyResolve(t *testing.T) {
	phases := NewVocabulary(DefaultPhases)

	cases := []struct {
		in   string
		want string
	}{
		{"PHASE2", "PHASE2"},
		{"phase2", "PHASE2"},
		{"Phase 2", "PHASE2"},
		{"phase1/phase2", "PHASE1/PHASE2"},
		{"  na  ", "NA"},
		{"PHASE9", ""},
		{"", ""},
	}
	for _, tc := range cases {
		if got := phases.Resolve(tc.in); got != tc.want {
			t.Errorf("Resolve(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeDropsUnknownCategoricals(t *testing.T) {
	n := NewNormalizer(DefaultVocabularies())

	got := n.Normalize(&Extracted{
		Phase:     "phase 3",
		Status:    "paused", // not a real status
		StudyType: "interventional",
	})
	if got.Phase != "PHASE3" {
		t.Errorf("Phase = %q, want PHASE3", got.Phase)
	}
	if got.Status != "" {
		t.Errorf("Status = %q, want empty", got.Status)
	}
	if got.StudyType != "INTERVENTIONAL" {
		t.Errorf("StudyType = %q, want INTERVENTIONAL", got.StudyType)
	}
}

func TestNormalizeCleansLists(t *testing.T) {
	n := NewNormalizer(DefaultVocabularies())

	got := n.Normalize(&Extracted{
		Conditions: []string{"  breast   cancer ", "Breast Cancer", "", "melanoma"},
	})
	want := []string{"breast cancer", "melanoma"}
	if !reflect.DeepEqual(got.Conditions, want) {
		t.Errorf("Conditions = %v, want %v", got.Conditions, want)
	}
}

func TestNormalizeNilInput(t *testing.T) {
	n := NewNormalizer(DefaultVocabularies())

	got := n.Normalize(nil)
	if !got.IsEmpty() {
		t.Errorf("Normalize(nil) = %+v, want empty", got)
	}
}

func TestNormalizeClampsConfidence(t *testing.T) {
	n := NewNormalizer(DefaultVocabularies())

	if got := n.Normalize(&Extracted{Confidence: 1.4}); got.Confidence != 1 {
		t.Errorf("Confidence = %v, want 1", got.Confidence)
	}
	if got := n.Normalize(&Extracted{Confidence: -0.1}); got.Confidence != 0 {
		t.Errorf("Confidence = %v, want 0", got.Confidence)
	}
}
