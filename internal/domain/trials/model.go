package trials

import "time"

// CriterionType is the coarse category tag assigned to an eligibility
// statement at ingestion. It selects the evaluation strategy.
type CriterionType string

const (
	CriterionAge         CriterionType = "age"
	CriterionGender      CriterionType = "gender"
	CriterionPerformance CriterionType = "performance"
	CriterionStage       CriterionType = "stage"
	CriterionMutation    CriterionType = "mutation"
	CriterionTreatment   CriterionType = "treatment"
	CriterionMetastasis  CriterionType = "metastasis"
	CriterionDiagnosis   CriterionType = "diagnosis"
	CriterionInclusion   CriterionType = "inclusion"
	CriterionExclusion   CriterionType = "exclusion"
)

// Criterion is one atomic eligibility statement. Immutable once loaded
// from its parent trial.
type Criterion struct {
	Text string        `json:"text"`
	Type CriterionType `json:"type"`
}

// ClinicalTrial mirrors a registry study record. Criteria lists are stored
// as JSONB; a missing or empty list means zero criteria of that kind, not
// an error.
type ClinicalTrial struct {
	ID                string      `json:"id"`
	Title             string      `json:"title"`
	Phase             string      `json:"phase"`
	Description       string      `json:"description"`
	InclusionCriteria []Criterion `json:"inclusion_criteria"`
	ExclusionCriteria []Criterion `json:"exclusion_criteria"`
	Status            string      `json:"status"`
	StartDate         string      `json:"start_date,omitempty"`
	CompletionDate    string      `json:"completion_date,omitempty"`
	Sponsor           string      `json:"sponsor,omitempty"`
	Locations         []string    `json:"locations,omitempty"`
	MinAge            string      `json:"min_age,omitempty"`
	MaxAge            string      `json:"max_age,omitempty"`
	Gender            string      `json:"gender,omitempty"`
	OrgStudyID        string      `json:"org_study_id,omitempty"`
	SecondaryIDs      []string    `json:"secondary_ids,omitempty"`
	CreatedAt         time.Time   `json:"created_at,omitempty"`
	UpdatedAt         time.Time   `json:"updated_at,omitempty"`
}

// CriteriaCount returns the total number of usable criteria.
func (t *ClinicalTrial) CriteriaCount() int {
	return len(t.InclusionCriteria) + len(t.ExclusionCriteria)
}
