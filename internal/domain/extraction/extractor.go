package extraction

import (
	"regexp"
	"strconv"
	"strings"
)

// Extract runs the rule-based pattern library over a clinical narrative and
// returns the structured feature set. It is pure and deterministic: the
// same text always yields the same features, and signals the rules cannot
// find are left nil or empty rather than reported as errors.
func Extract(text string) *FeatureSet {
	fs := &FeatureSet{OriginalText: text}
	if strings.TrimSpace(text) == "" {
		return fs
	}

	fs.Age = extractAge(text)
	fs.Gender = extractGender(text)
	fs.Diagnosis = extractDiagnosis(text)
	fs.Stage = extractStage(text)
	fs.ECOG = extractECOG(text)
	fs.Mutations = extractTerms(text, mutationPatterns, mutationRule)
	fs.Metastases = extractTerms(text, metastasisPatterns, metastasisRule)
	fs.PreviousTreatments = extractTerms(text, treatmentPatterns, treatmentRule)
	fs.LabValues = extractLabs(text)
	return fs
}

func extractAge(text string) *IntFeature {
	m := agePattern.FindStringSubmatchIndex(text)
	if m == nil {
		return nil
	}
	raw := text[m[2]:m[3]]
	age, err := strconv.Atoi(raw)
	if err != nil || age <= 0 || age > 130 {
		return nil
	}
	return &IntFeature{Value: age, Source: text[m[0]:m[1]]}
}

// extractGender checks female markers before male ones. "female" contains
// "male" as a substring, so the order plus word boundaries keeps a female
// note from being read as male.
func extractGender(text string) *Feature {
	if m := femalePattern.FindStringIndex(text); m != nil {
		return &Feature{Value: GenderFemale, Source: text[m[0]:m[1]]}
	}
	if m := malePattern.FindStringIndex(text); m != nil {
		return &Feature{Value: GenderMale, Source: text[m[0]:m[1]]}
	}
	return nil
}

func extractDiagnosis(text string) *Feature {
	for i, p := range diagnosisPatterns {
		m := p.FindStringIndex(text)
		if m == nil {
			continue
		}
		source := sentenceAround(text, m[0])
		if source == "" {
			source = text[m[0]:m[1]]
		}
		return &Feature{Value: diagnosisLabels[i], Source: source}
	}
	return nil
}

func extractStage(text string) *Feature {
	m := stagePattern.FindStringSubmatchIndex(text)
	if m == nil {
		return nil
	}
	value := normalizeStage(text[m[2]:m[3]])
	if m[4] >= 0 {
		value += strings.ToUpper(text[m[4]:m[5]])
	}
	return &Feature{Value: value, Source: strings.TrimSpace(text[m[0]:m[1]])}
}

// normalizeStage renders the captured numeral as an uppercase roman
// numeral, so "stage 4" and "Stage IV" both yield "IV".
func normalizeStage(s string) string {
	switch strings.ToLower(s) {
	case "1":
		return "I"
	case "2":
		return "II"
	case "3":
		return "III"
	case "4":
		return "IV"
	default:
		return strings.ToUpper(s)
	}
}

func extractECOG(text string) *IntFeature {
	m := ecogPattern.FindStringSubmatchIndex(text)
	if m == nil {
		return nil
	}
	v, err := strconv.Atoi(text[m[2]:m[3]])
	if err != nil {
		return nil
	}
	return &IntFeature{Value: v, Source: text[m[0]:m[1]]}
}

// extractTerms scans text for every term of a rule table. For each term,
// candidate sentences compete on specificity: the longer source span wins,
// and at equal length the span containing a qualifier word wins. Values
// keep the rule table's canonical casing (EGFR, PD-L1); duplicates are
// folded on the lowercased form so each term contributes at most once.
func extractTerms(text string, patterns []*regexp.Regexp, rule termRule) []Feature {
	var out []Feature
	seen := make(map[string]bool)
	for i, p := range patterns {
		value := rule.terms[i]
		key := strings.ToLower(value)
		if seen[key] {
			continue
		}
		locs := p.FindAllStringIndex(text, -1)
		if locs == nil {
			continue
		}
		best := ""
		bestQualified := false
		for _, loc := range locs {
			src := sentenceAround(text, loc[0])
			if src == "" {
				src = text[loc[0]:loc[1]]
			}
			qualified := hasQualifier(src, rule.qualifiers)
			if better(src, qualified, best, bestQualified) {
				best, bestQualified = src, qualified
			}
		}
		seen[key] = true
		out = append(out, Feature{Value: value, Source: best})
	}
	return out
}

func better(src string, qualified bool, best string, bestQualified bool) bool {
	if best == "" {
		return true
	}
	if len(src) != len(best) {
		return len(src) > len(best)
	}
	return qualified && !bestQualified
}

func hasQualifier(src string, qualifiers []string) bool {
	lower := strings.ToLower(src)
	for _, q := range qualifiers {
		if strings.Contains(lower, q) {
			return true
		}
	}
	return false
}

func extractLabs(text string) map[string]Feature {
	var labs map[string]Feature
	for _, lr := range labRules {
		m := lr.pattern.FindStringIndex(text)
		if m == nil {
			continue
		}
		if labs == nil {
			labs = make(map[string]Feature)
		}
		src := sentenceAround(text, m[0])
		if src == "" {
			src = text[m[0]:m[1]]
		}
		labs[lr.name] = Feature{Value: strings.TrimSpace(text[m[0]:m[1]]), Source: src}
	}
	return labs
}
