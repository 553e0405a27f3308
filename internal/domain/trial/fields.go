package trial

// Index field names referenced by the query builder and the store client.
const (
	FieldNCTID               = "nct_id"
	FieldBriefTitle          = "brief_title"
	FieldOfficialTitle       = "official_title"
	FieldBriefSummary        = "brief_summary"
	FieldDetailedDescription = "detailed_description"
	FieldSource              = "source"
	FieldPhase               = "phase"
	FieldOverallStatus       = "overall_status"
	FieldStudyType           = "study_type"
	FieldKeywords            = "keywords"

	NestedConditions    = "conditions"
	NestedInterventions = "interventions"
	NestedSponsors      = "sponsors"
	NestedFacilities    = "facilities"

	FieldConditionName           = "conditions.name"
	FieldInterventionName        = "interventions.name"
	FieldInterventionDescription = "interventions.description"
	FieldSponsorName             = "sponsors.name"
	FieldFacilityCity            = "facilities.city"
	FieldFacilityState           = "facilities.state"
	FieldFacilityCountry         = "facilities.country"
)
