// Package trial defines the normalized clinical-trial record and its
// nested value types. Only normalized records ever reach the index;
// raw input stays behind the normalize package boundary.
package trial

// Trial is a fully normalized clinical-trial record.
// Every scalar is either a type-correct value or nil; every nested
// list is present (possibly empty), never nil.
type Trial struct {
	NCTID string `json:"nct_id"`

	BriefTitle          *string `json:"brief_title"`
	OfficialTitle       *string `json:"official_title"`
	BriefSummary        *string `json:"brief_summary"`
	DetailedDescription *string `json:"detailed_description"`
	Source              *string `json:"source"`

	Phase              string `json:"phase"`
	OverallStatus      string `json:"overall_status"`
	StudyType          string `json:"study_type"`
	Gender             string `json:"gender"`
	Allocation         string `json:"allocation"`
	InterventionModel  string `json:"intervention_model"`
	ObservationalModel string `json:"observational_model"`
	PrimaryPurpose     string `json:"primary_purpose"`
	Masking            string `json:"masking"`

	Enrollment     *int `json:"enrollment"`
	NumberOfArms   *int `json:"number_of_arms"`
	NumberOfGroups *int `json:"number_of_groups"`

	HealthyVolunteers *bool `json:"healthy_volunteers"`
	HasResults        *bool `json:"has_results"`
	HasDMC            *bool `json:"has_dmc"`

	StartDate             *string `json:"start_date"`
	CompletionDate        *string `json:"completion_date"`
	PrimaryCompletionDate *string `json:"primary_completion_date"`
	FirstSubmittedDate    *string `json:"study_first_submitted_date"`
	LastUpdateDate        *string `json:"last_update_submitted_date"`

	Conditions    []Condition    `json:"conditions"`
	Interventions []Intervention `json:"interventions"`
	Sponsors      []Sponsor      `json:"sponsors"`
	Facilities    []Facility     `json:"facilities"`
	Outcomes      []Outcome      `json:"design_outcomes"`
	Keywords      []string       `json:"keywords"`
}

// Condition is a studied medical condition.
type Condition struct {
	Name string `json:"name"`
}

// Intervention is a treatment, drug, or procedure under study.
type Intervention struct {
	Type        string `json:"intervention_type,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Sponsor is a sponsoring or collaborating organization.
type Sponsor struct {
	Name               string `json:"name"`
	LeadOrCollaborator string `json:"lead_or_collaborator,omitempty"`
}

// Facility is a study location.
type Facility struct {
	Name    string `json:"name,omitempty"`
	City    string `json:"city,omitempty"`
	State   string `json:"state,omitempty"`
	Country string `json:"country,omitempty"`
}

// Outcome is a designed outcome measure.
type Outcome struct {
	Measure     string `json:"measure"`
	Description string `json:"description,omitempty"`
	TimeFrame   string `json:"time_frame,omitempty"`
}
