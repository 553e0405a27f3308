// Package normalize turns raw trial records into normalized ones.
// Every rule is total: malformed values become nulls or defaults with
// a recorded warning, and only a missing identifier rejects a record.
package normalize

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/trialgrid/trialsearch/internal/domain"
	"github.com/trialgrid/trialsearch/internal/domain/trial"
)

// MaxTextLen caps long text fields. Longer values are cut and marked.
const MaxTextLen = 30000

const truncationMarker = "... [truncated]"

// categorical fields and their defaults when the value is missing or null.
var categoricalDefaults = map[string]string{
	trial.FieldPhase:         "NA",
	trial.FieldStudyType:     "NA",
	trial.FieldOverallStatus: "UNKNOWN",
	"allocation":             "NA",
	"intervention_model":     "NA",
	"observational_model":    "NA",
	"primary_purpose":        "NA",
	"masking":                "NA",
	"gender":                 "ALL",
}

// Warner collects per-record normalization warnings.
type Warner interface {
	Warn(msg string)
}

// WarnFunc adapts a function to the Warner interface.
type WarnFunc func(msg string)

func (f WarnFunc) Warn(msg string) { f(msg) }

// Record converts one raw record into a normalized trial. Returns
// domain.ErrMissingRequiredField when nct_id is absent or empty; every
// other defect degrades to a null or default plus a warning.
func Record(raw map[string]any, w Warner) (trial.Trial, error) {
	nctID := cleanString(raw["nct_id"])
	if nctID == nil || *nctID == "" {
		return trial.Trial{}, fmt.Errorf("nct_id: %w", domain.ErrMissingRequiredField)
	}
	r := reader{raw: raw, nctID: *nctID, warner: w}

	t := trial.Trial{
		NCTID: *nctID,

		BriefTitle:          r.text("brief_title"),
		OfficialTitle:       r.text("official_title"),
		BriefSummary:        r.text("brief_summary"),
		DetailedDescription: r.text("detailed_description"),
		Source:              r.text("source"),

		Phase:              r.categorical("phase"),
		OverallStatus:      r.categorical("overall_status"),
		StudyType:          r.categorical("study_type"),
		Gender:             r.categorical("gender"),
		Allocation:         r.categorical("allocation"),
		InterventionModel:  r.categorical("intervention_model"),
		ObservationalModel: r.categorical("observational_model"),
		PrimaryPurpose:     r.categorical("primary_purpose"),
		Masking:            r.categorical("masking"),

		Enrollment:     r.intField("enrollment"),
		NumberOfArms:   r.intField("number_of_arms"),
		NumberOfGroups: r.intField("number_of_groups"),

		HealthyVolunteers: r.boolField("healthy_volunteers"),
		HasResults:        r.boolField("has_results"),
		HasDMC:            r.boolField("has_dmc"),

		StartDate:             r.date("start_date"),
		CompletionDate:        r.date("completion_date"),
		PrimaryCompletionDate: r.date("primary_completion_date"),
		FirstSubmittedDate:    r.date("study_first_submitted_date"),
		LastUpdateDate:        r.date("last_update_submitted_date"),

		Conditions:    conditions(r.objects("conditions")),
		Interventions: interventions(r.objects("interventions")),
		Sponsors:      sponsors(r.objects("sponsors")),
		Facilities:    facilities(r.objects("facilities")),
		Outcomes:      outcomes(r.objects("design_outcomes")),
		Keywords:      keywords(raw["keywords"]),
	}
	return t, nil
}

type reader struct {
	raw    map[string]any
	nctID  string
	warner Warner
}

func (r reader) warnf(format string, args ...any) {
	if r.warner != nil {
		r.warner.Warn(fmt.Sprintf(format, args...))
	}
}

// text cleans a free-text field and enforces the length cap.
func (r reader) text(field string) *string {
	s := cleanString(r.raw[field])
	if s == nil {
		return nil
	}
	if len(*s) > MaxTextLen {
		cut := (*s)[:MaxTextLen] + truncationMarker
		s = &cut
		r.warnf("%s: Truncated %s", r.nctID, field)
	}
	return s
}

func (r reader) categorical(field string) string {
	def := categoricalDefaults[field]
	s := cleanString(r.raw[field])
	if s == nil || *s == "" {
		return def
	}
	return strings.ToUpper(*s)
}

func (r reader) intField(field string) *int {
	v, ok := r.raw[field]
	if !ok || v == nil {
		return nil
	}
	switch n := v.(type) {
	case float64:
		i := int(n)
		return &i
	case int:
		return &n
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(n), ",", "")
		if s == "" || isNullSentinel(s) {
			return nil
		}
		i, err := strconv.Atoi(s)
		if err != nil {
			r.warnf("%s: Invalid integer in %s: %q", r.nctID, field, n)
			return nil
		}
		return &i
	default:
		r.warnf("%s: Invalid integer in %s", r.nctID, field)
		return nil
	}
}

func (r reader) boolField(field string) *bool {
	v, ok := r.raw[field]
	if !ok || v == nil {
		return nil
	}
	switch b := v.(type) {
	case bool:
		return &b
	case string:
		s := strings.ToLower(strings.TrimSpace(b))
		if s == "" || isNullSentinel(s) {
			return nil
		}
		t := s == "true" || s == "yes" || s == "1" || s == "t" || s == "y"
		return &t
	case float64:
		t := b != 0
		return &t
	default:
		return nil
	}
}

// date accepts YYYY-MM-DD, or a full timestamp reduced to its date
// part; anything else becomes null with a warning.
func (r reader) date(field string) *string {
	s := cleanString(r.raw[field])
	if s == nil || *s == "" {
		return nil
	}
	if _, err := time.Parse("2006-01-02", *s); err == nil {
		return s
	}
	if ts, err := time.Parse(time.RFC3339, *s); err == nil {
		d := ts.Format("2006-01-02")
		return &d
	}
	r.warnf("%s: Invalid date in %s: %q", r.nctID, field, *s)
	return nil
}

// objects pulls a nested list, repairing the common defects: a null
// becomes an empty list, a lone object gets wrapped, and non-object
// entries are dropped with a warning.
func (r reader) objects(field string) []map[string]any {
	v, ok := r.raw[field]
	if !ok || v == nil {
		return []map[string]any{}
	}
	switch items := v.(type) {
	case []any:
		out := make([]map[string]any, 0, len(items))
		for _, item := range items {
			m, ok := item.(map[string]any)
			if !ok {
				r.warnf("%s: Dropped malformed entry in %s", r.nctID, field)
				continue
			}
			out = append(out, m)
		}
		return out
	case map[string]any:
		r.warnf("%s: Wrapped lone object in %s", r.nctID, field)
		return []map[string]any{items}
	default:
		r.warnf("%s: Dropped malformed entry in %s", r.nctID, field)
		return []map[string]any{}
	}
}

func conditions(items []map[string]any) []trial.Condition {
	out := make([]trial.Condition, 0, len(items))
	for _, m := range items {
		name := stringOrEmpty(m["name"])
		if name == "" {
			continue
		}
		out = append(out, trial.Condition{Name: name})
	}
	return out
}

func interventions(items []map[string]any) []trial.Intervention {
	out := make([]trial.Intervention, 0, len(items))
	for _, m := range items {
		name := stringOrEmpty(m["name"])
		if name == "" {
			continue
		}
		out = append(out, trial.Intervention{
			Type:        stringOrEmpty(m["intervention_type"]),
			Name:        name,
			Description: stringOrEmpty(m["description"]),
		})
	}
	return out
}

func sponsors(items []map[string]any) []trial.Sponsor {
	out := make([]trial.Sponsor, 0, len(items))
	for _, m := range items {
		name := stringOrEmpty(m["name"])
		if name == "" {
			continue
		}
		out = append(out, trial.Sponsor{
			Name:               name,
			LeadOrCollaborator: stringOrEmpty(m["lead_or_collaborator"]),
		})
	}
	return out
}

func facilities(items []map[string]any) []trial.Facility {
	out := make([]trial.Facility, 0, len(items))
	for _, m := range items {
		f := trial.Facility{
			Name:    stringOrEmpty(m["name"]),
			City:    stringOrEmpty(m["city"]),
			State:   stringOrEmpty(m["state"]),
			Country: stringOrEmpty(m["country"]),
		}
		if f == (trial.Facility{}) {
			continue
		}
		out = append(out, f)
	}
	return out
}

func outcomes(items []map[string]any) []trial.Outcome {
	out := make([]trial.Outcome, 0, len(items))
	for _, m := range items {
		measure := stringOrEmpty(m["measure"])
		if measure == "" {
			continue
		}
		out = append(out, trial.Outcome{
			Measure:     measure,
			Description: stringOrEmpty(m["description"]),
			TimeFrame:   stringOrEmpty(m["time_frame"]),
		})
	}
	return out
}

func keywords(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		// Some exports wrap each keyword in an object with a name key.
		if m, ok := item.(map[string]any); ok {
			item = m["name"]
		}
		k := stringOrEmpty(item)
		if k == "" {
			continue
		}
		out = append(out, k)
	}
	return out
}

func stringOrEmpty(v any) string {
	s := cleanString(v)
	if s == nil {
		return ""
	}
	return *s
}

// cleanString normalizes a raw value to a cleaned string pointer:
// nil for nulls and null sentinels, otherwise trimmed text with
// control characters stripped and runs of whitespace collapsed.
// Newlines, carriage returns, and tabs survive as single spaces.
func cleanString(v any) *string {
	if v == nil {
		return nil
	}
	s, ok := v.(string)
	if !ok {
		s = fmt.Sprintf("%v", v)
	}
	s = stripControl(s)
	s = strings.Join(strings.Fields(s), " ")
	if isNullSentinel(s) {
		return nil
	}
	return &s
}

func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' || r == '\t' {
			return r
		}
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, s)
}

func isNullSentinel(s string) bool {
	switch s {
	case "", "None", "none", "NONE", "NA", "N/A", "null", "NULL":
		return true
	}
	return false
}
