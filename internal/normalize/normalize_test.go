package normalize

import (
	"errors"
	"strings"
	"testing"

	"github.com/trialgrid/trialsearch/internal/domain"
)

type warnings []string

func (w *warnings) Warn(msg string) { *w = append(*w, msg) }

func record(overrides map[string]any) map[string]any {
	raw := map[string]any{
		"nct_id":      "NCT01234567",
		"brief_title": "A Study of Something",
	}
	for k, v := range overrides {
		raw[k] = v
	}
	return raw
}

func TestRecordMissingID(t *testing.T) {
	var w warnings

	_, err := Record(map[string]any{"brief_title": "x"}, &w)
	if !errors.Is(err, domain.ErrMissingRequiredField) {
		t.Fatalf("err = %v, want ErrMissingRequiredField", err)
	}

	_, err = Record(map[string]any{"nct_id": "  "}, &w)
	if !errors.Is(err, domain.ErrMissingRequiredField) {
		t.Fatalf("blank id: err = %v, want ErrMissingRequiredField", err)
	}
}

func TestRecordTruncatesLongText(t *testing.T) {
	var w warnings

	long := strings.Repeat("a", MaxTextLen+500)
	tr, err := Record(record(map[string]any{"detailed_description": long}), &w)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	got := *tr.DetailedDescription
	if want := MaxTextLen + len("... [truncated]"); len(got) != want {
		t.Errorf("len = %d, want %d", len(got), want)
	}
	if !strings.HasSuffix(got, "... [truncated]") {
		t.Errorf("missing truncation marker: %q", got[len(got)-30:])
	}
	if got[:MaxTextLen] != long[:MaxTextLen] {
		t.Error("truncation cut into the capped prefix")
	}
	if len(w) != 1 || w[0] != "NCT01234567: Truncated detailed_description" {
		t.Errorf("warnings = %v", w)
	}
}

func TestRecordCleansText(t *testing.T) {
	var w warnings

	tr, err := Record(record(map[string]any{
		"brief_summary": "line one\n\n  line\ttwo\x00\x07 end  ",
	}), &w)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if got := *tr.BriefSummary; got != "line one line two end" {
		t.Errorf("BriefSummary = %q", got)
	}
}

func TestRecordNullSentinels(t *testing.T) {
	var w warnings

	tr, err := Record(record(map[string]any{
		"official_title": "None",
		"source":         "NA",
		"brief_summary":  "",
	}), &w)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if tr.OfficialTitle != nil || tr.Source != nil || tr.BriefSummary != nil {
		t.Errorf("sentinels not nulled: %v %v %v", tr.OfficialTitle, tr.Source, tr.BriefSummary)
	}
}

func TestRecordCategoricalDefaults(t *testing.T) {
	var w warnings

	tr, err := Record(record(nil), &w)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if tr.Phase != "NA" {
		t.Errorf("Phase = %q, want NA", tr.Phase)
	}
	if tr.OverallStatus != "UNKNOWN" {
		t.Errorf("OverallStatus = %q, want UNKNOWN", tr.OverallStatus)
	}
	if tr.Gender != "ALL" {
		t.Errorf("Gender = %q, want ALL", tr.Gender)
	}

	tr, err = Record(record(map[string]any{"phase": "phase2"}), &w)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if tr.Phase != "PHASE2" {
		t.Errorf("Phase = %q, want PHASE2", tr.Phase)
	}
}

func TestRecordIntCoercion(t *testing.T) {
	var w warnings

	tr, err := Record(record(map[string]any{
		"enrollment":       "1,250",
		"number_of_arms":   float64(3),
		"number_of_groups": "many",
	}), &w)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if tr.Enrollment == nil || *tr.Enrollment != 1250 {
		t.Errorf("Enrollment = %v, want 1250", tr.Enrollment)
	}
	if tr.NumberOfArms == nil || *tr.NumberOfArms != 3 {
		t.Errorf("NumberOfArms = %v, want 3", tr.NumberOfArms)
	}
	if tr.NumberOfGroups != nil {
		t.Errorf("NumberOfGroups = %v, want nil", tr.NumberOfGroups)
	}
	if len(w) != 1 {
		t.Errorf("warnings = %v, want one invalid-integer warning", w)
	}
}

func TestRecordBoolCoercion(t *testing.T) {
	var w warnings

	tr, err := Record(record(map[string]any{
		"healthy_volunteers": "Yes",
		"has_results":        false,
		"has_dmc":            "0",
	}), &w)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if tr.HealthyVolunteers == nil || !*tr.HealthyVolunteers {
		t.Errorf("HealthyVolunteers = %v, want true", tr.HealthyVolunteers)
	}
	if tr.HasResults == nil || *tr.HasResults {
		t.Errorf("HasResults = %v, want false", tr.HasResults)
	}
	if tr.HasDMC == nil || *tr.HasDMC {
		t.Errorf("HasDMC = %v, want false", tr.HasDMC)
	}
}

func TestRecordStrictDates(t *testing.T) {
	var w warnings

	tr, err := Record(record(map[string]any{
		"start_date":              "2021-03-15",
		"completion_date":         "March 2021",
		"primary_completion_date": "2022-08-01T00:00:00Z",
	}), &w)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if tr.StartDate == nil || *tr.StartDate != "2021-03-15" {
		t.Errorf("StartDate = %v", tr.StartDate)
	}
	if tr.CompletionDate != nil {
		t.Errorf("CompletionDate = %v, want nil", tr.CompletionDate)
	}
	if tr.PrimaryCompletionDate == nil || *tr.PrimaryCompletionDate != "2022-08-01" {
		t.Errorf("PrimaryCompletionDate = %v, want 2022-08-01", tr.PrimaryCompletionDate)
	}
	if len(w) != 1 || !strings.Contains(w[0], "completion_date") {
		t.Errorf("warnings = %v", w)
	}
}

func TestRecordNestedRepair(t *testing.T) {
	var w warnings

	tr, err := Record(record(map[string]any{
		"conditions": nil,
		"interventions": map[string]any{
			"name": "olaparib", "intervention_type": "DRUG",
		},
		"sponsors": []any{
			map[string]any{"name": "NCI"},
			"garbage",
			map[string]any{"name": ""},
		},
	}), &w)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if tr.Conditions == nil || len(tr.Conditions) != 0 {
		t.Errorf("Conditions = %v, want empty non-nil", tr.Conditions)
	}
	if len(tr.Interventions) != 1 || tr.Interventions[0].Name != "olaparib" {
		t.Errorf("Interventions = %v", tr.Interventions)
	}
	if len(tr.Sponsors) != 1 || tr.Sponsors[0].Name != "NCI" {
		t.Errorf("Sponsors = %v", tr.Sponsors)
	}
	if len(w) != 2 {
		t.Fatalf("warnings = %v, want wrap and dropped-entry warnings", w)
	}
	if !strings.Contains(w[0], "Wrapped lone object in interventions") {
		t.Errorf("warnings[0] = %q", w[0])
	}
	if !strings.Contains(w[1], "Dropped malformed entry in sponsors") {
		t.Errorf("warnings[1] = %q", w[1])
	}
}

func TestRecordKeywords(t *testing.T) {
	var w warnings

	tr, err := Record(record(map[string]any{
		"keywords": []any{"brca1", "", "None", " immunotherapy "},
	}), &w)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if len(tr.Keywords) != 2 || tr.Keywords[0] != "brca1" || tr.Keywords[1] != "immunotherapy" {
		t.Errorf("Keywords = %v", tr.Keywords)
	}
}

func TestRecordKeywordObjects(t *testing.T) {
	var w warnings

	tr, err := Record(record(map[string]any{
		"keywords": []any{
			map[string]any{"name": "BRCA1"},
			map[string]any{"name": "NA"},
			map[string]any{"id": float64(7)},
			"immunotherapy",
		},
	}), &w)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if len(tr.Keywords) != 2 || tr.Keywords[0] != "BRCA1" || tr.Keywords[1] != "immunotherapy" {
		t.Errorf("Keywords = %v", tr.Keywords)
	}
}

func TestRecordIdempotent(t *testing.T) {
	var w warnings

	raw := record(map[string]any{
		"brief_summary": "  spaced\n text ",
		"phase":         "phase1",
		"enrollment":    "42",
	})
	a, err := Record(raw, &w)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	b, err := Record(raw, &w)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if *a.BriefSummary != *b.BriefSummary || a.Phase != b.Phase || *a.Enrollment != *b.Enrollment {
		t.Error("repeated normalization diverged")
	}
}
