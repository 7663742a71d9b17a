package matching

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/medmatch/medmatch/internal/domain/extraction"
	"github.com/medmatch/medmatch/internal/domain/trials"
)

// Evaluate answers whether the patient satisfies one criterion as written.
// It never errors: indeterminate cases resolve to a conservative
// not-matched verdict with an explanation. Inclusion/exclusion semantics
// are applied one level up by the matcher.
func Evaluate(c trials.Criterion, features *extraction.FeatureSet) MatchResult {
	switch c.Type {
	case trials.CriterionAge:
		return evaluateAge(c, features)
	case trials.CriterionGender:
		return evaluateGender(c, features)
	case trials.CriterionPerformance:
		return evaluatePerformance(c, features)
	case trials.CriterionStage:
		return evaluateStage(c, features)
	case trials.CriterionMutation:
		return evaluateTermOverlap(c, features.Mutations, "biomarker")
	case trials.CriterionTreatment:
		return evaluateTermOverlap(c, features.PreviousTreatments, "treatment")
	case trials.CriterionMetastasis:
		return evaluateTermOverlap(c, features.Metastases, "metastasis site")
	case trials.CriterionDiagnosis:
		return evaluateDiagnosis(c, features)
	default:
		return MatchResult{
			Criterion:   c,
			Matched:     false,
			Explanation: "criterion requires clinical judgment and cannot be assessed by rules",
		}
	}
}

// Threshold keyword families for age and performance criteria. The
// minimum family is checked first; a criterion stating both bounds is
// evaluated against the minimum.
var (
	minThresholdPattern = regexp.MustCompile(`(?i)(?:≥|>=|greater than or equal to|at least|minimum(?: of)?|older than|>|greater than)\s*(\d{1,3})`)
	maxThresholdPattern = regexp.MustCompile(`(?i)(?:≤|<=|less than or equal to|maximum(?: of)?|up to|younger than|<|less than)\s*(\d{1,3})`)
	agesRangePattern    = regexp.MustCompile(`(?i)\b(\d{1,3})\s*(?:-|to)\s*(\d{1,3})\s*years?\b`)
	bareDigitPattern    = regexp.MustCompile(`\b([0-4])\b`)
	ecogRangePattern    = regexp.MustCompile(`\b([0-4])\s*(?:-|to|or)\s*([0-4])\b`)

	criterionFemalePattern = regexp.MustCompile(`\b(female|women|woman)\b`)
	criterionMalePattern   = regexp.MustCompile(`\b(male|men|man)\b`)
	criterionStagePattern  = regexp.MustCompile(`(?i)\b(iv|iii|ii|i)([a-c])?\b`)
)

func evaluateAge(c trials.Criterion, features *extraction.FeatureSet) MatchResult {
	if features.Age == nil {
		return MatchResult{Criterion: c, Matched: false, Explanation: "age unknown"}
	}
	age := features.Age.Value

	if m := agesRangePattern.FindStringSubmatch(c.Text); m != nil {
		lo, _ := strconv.Atoi(m[1])
		hi, _ := strconv.Atoi(m[2])
		if age < lo {
			return MatchResult{Criterion: c, Matched: false,
				Explanation: fmt.Sprintf("patient age %d is below the minimum of %d", age, lo)}
		}
		if age > hi {
			return MatchResult{Criterion: c, Matched: false,
				Explanation: fmt.Sprintf("patient age %d exceeds the maximum of %d", age, hi)}
		}
		return MatchResult{Criterion: c, Matched: true,
			Explanation: fmt.Sprintf("patient age %d is within %d-%d", age, lo, hi)}
	}

	if m := minThresholdPattern.FindStringSubmatch(c.Text); m != nil {
		threshold, _ := strconv.Atoi(m[1])
		if age < threshold {
			return MatchResult{Criterion: c, Matched: false,
				Explanation: fmt.Sprintf("patient age %d is below the minimum of %d", age, threshold)}
		}
		return MatchResult{Criterion: c, Matched: true,
			Explanation: fmt.Sprintf("patient age %d meets the minimum of %d", age, threshold)}
	}
	if m := maxThresholdPattern.FindStringSubmatch(c.Text); m != nil {
		threshold, _ := strconv.Atoi(m[1])
		if age > threshold {
			return MatchResult{Criterion: c, Matched: false,
				Explanation: fmt.Sprintf("patient age %d exceeds the maximum of %d", age, threshold)}
		}
		return MatchResult{Criterion: c, Matched: true,
			Explanation: fmt.Sprintf("patient age %d is under the maximum of %d", age, threshold)}
	}

	return MatchResult{Criterion: c, Matched: true, Explanation: "age criterion has no numeric bound, patient age recorded"}
}

func evaluateGender(c trials.Criterion, features *extraction.FeatureSet) MatchResult {
	lower := strings.ToLower(c.Text)
	// Female is checked before male: "female" contains "male" so the
	// word-boundary check alone is not enough when scanning the criterion.
	wantsFemale := criterionFemalePattern.MatchString(lower)
	wantsMale := criterionMalePattern.MatchString(lower)

	if wantsFemale && wantsMale {
		return MatchResult{Criterion: c, Matched: true, Explanation: "criterion accepts all genders"}
	}
	if features.Gender == nil || (!wantsFemale && !wantsMale) {
		return MatchResult{Criterion: c, Matched: false, Explanation: "cannot determine gender match"}
	}
	want := extraction.GenderMale
	if wantsFemale {
		want = extraction.GenderFemale
	}
	if features.Gender.Value == want {
		return MatchResult{Criterion: c, Matched: true,
			Explanation: fmt.Sprintf("patient gender %s matches the criterion", features.Gender.Value)}
	}
	return MatchResult{Criterion: c, Matched: false,
		Explanation: fmt.Sprintf("patient gender %s does not match the criterion", features.Gender.Value)}
}

func evaluatePerformance(c trials.Criterion, features *extraction.FeatureSet) MatchResult {
	if features.ECOG == nil {
		return MatchResult{Criterion: c, Matched: false, Explanation: "performance status unknown"}
	}
	ecog := features.ECOG.Value

	if m := ecogRangePattern.FindStringSubmatch(c.Text); m != nil {
		lo, _ := strconv.Atoi(m[1])
		hi, _ := strconv.Atoi(m[2])
		if ecog >= lo && ecog <= hi {
			return MatchResult{Criterion: c, Matched: true,
				Explanation: fmt.Sprintf("ECOG %d is within %d-%d", ecog, lo, hi)}
		}
		return MatchResult{Criterion: c, Matched: false,
			Explanation: fmt.Sprintf("ECOG %d is outside %d-%d", ecog, lo, hi)}
	}

	// A single bare digit is read as the allowed maximum, matching how
	// eligibility text like "ECOG performance status 1" is meant.
	if m := bareDigitPattern.FindStringSubmatch(c.Text); m != nil {
		max, _ := strconv.Atoi(m[1])
		if ecog <= max {
			return MatchResult{Criterion: c, Matched: true,
				Explanation: fmt.Sprintf("ECOG %d is within the maximum of %d", ecog, max)}
		}
		return MatchResult{Criterion: c, Matched: false,
			Explanation: fmt.Sprintf("ECOG %d exceeds the maximum of %d", ecog, max)}
	}

	return MatchResult{Criterion: c, Matched: false, Explanation: "cannot determine performance status requirement"}
}

func evaluateStage(c trials.Criterion, features *extraction.FeatureSet) MatchResult {
	if features.Stage == nil {
		return MatchResult{Criterion: c, Matched: false, Explanation: "disease stage unknown"}
	}
	wanted := criterionStagePattern.FindAllStringSubmatch(c.Text, -1)
	if wanted == nil {
		return MatchResult{Criterion: c, Matched: false, Explanation: "cannot determine stage requirement"}
	}

	patient := strings.ToUpper(features.Stage.Value)
	patientNumeral := strings.TrimRight(patient, "ABC")
	for _, m := range wanted {
		if strings.ToUpper(m[1]) == patientNumeral {
			return MatchResult{Criterion: c, Matched: true,
				Explanation: fmt.Sprintf("patient stage %s matches the criterion", patient)}
		}
	}
	return MatchResult{Criterion: c, Matched: false,
		Explanation: fmt.Sprintf("patient stage %s is not among the required stages", patient)}
}

// evaluateTermOverlap matches list-valued features (biomarkers, previous
// treatments, metastasis sites) against a criterion by term overlap: the
// criterion is satisfied when any recorded value appears in its text.
func evaluateTermOverlap(c trials.Criterion, values []extraction.Feature, kind string) MatchResult {
	if len(values) == 0 {
		return MatchResult{Criterion: c, Matched: false,
			Explanation: fmt.Sprintf("no %s recorded for the patient", kind)}
	}
	lower := strings.ToLower(c.Text)
	for _, v := range values {
		if strings.Contains(lower, strings.ToLower(v.Value)) {
			return MatchResult{Criterion: c, Matched: true,
				Explanation: fmt.Sprintf("patient %s %q appears in the criterion", kind, v.Value)}
		}
	}
	return MatchResult{Criterion: c, Matched: false,
		Explanation: fmt.Sprintf("no recorded %s appears in the criterion", kind)}
}

func evaluateDiagnosis(c trials.Criterion, features *extraction.FeatureSet) MatchResult {
	if features.Diagnosis == nil {
		return MatchResult{Criterion: c, Matched: false, Explanation: "diagnosis unknown"}
	}
	lower := strings.ToLower(c.Text)
	if strings.Contains(lower, strings.ToLower(features.Diagnosis.Value)) {
		return MatchResult{Criterion: c, Matched: true,
			Explanation: fmt.Sprintf("patient diagnosis %q appears in the criterion", features.Diagnosis.Value)}
	}
	return MatchResult{Criterion: c, Matched: false,
		Explanation: fmt.Sprintf("patient diagnosis %q does not appear in the criterion", features.Diagnosis.Value)}
}
