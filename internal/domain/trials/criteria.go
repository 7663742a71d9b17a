package trials

import (
	"regexp"
	"strings"
)

// Eligibility text from registries is a single free-text block with
// "Inclusion Criteria:" / "Exclusion Criteria:" headings and bulleted or
// numbered lines underneath. The parser splits the block, strips the list
// markers and tags each line with a coarse criterion type.

var (
	inclusionSectionPattern = regexp.MustCompile(`(?is)(?:inclusion criteria|criteri di inclusione):\s*(.+?)(?:(?:exclusion criteria|criteri di esclusione):|$)`)
	exclusionSectionPattern = regexp.MustCompile(`(?is)(?:exclusion criteria|criteri di esclusione):\s*(.+)$`)

	bulletPattern = regexp.MustCompile(`^\s*(\d+[.)]\s*|-\s*|•\s*|\*\s*)`)
)

var criterionTypeRules = []struct {
	pattern *regexp.Regexp
	ctype   CriterionType
}{
	{regexp.MustCompile(`\bage\b|\byears old\b|\byears of age\b`), CriterionAge},
	{regexp.MustCompile(`\b(?:male|female|gender|sex)\b`), CriterionGender},
	{regexp.MustCompile(`\becog\b|\bperformance status\b|\bps\b`), CriterionPerformance},
	{regexp.MustCompile(`\bstage\b`), CriterionStage},
	{regexp.MustCompile(`\bmutation\b|\baltered\b|\bexpression\b|\bpositive\b|\bnegative\b`), CriterionMutation},
	{regexp.MustCompile(`\bprior\b|\bprevious\b|\btreatment\b|\btherapy\b|\bsurgery\b|\bradiation\b|\bchemotherapy\b`), CriterionTreatment},
	{regexp.MustCompile(`\bmetasta\w+\b`), CriterionMetastasis},
	{regexp.MustCompile(`\bcancer\b|\btumor\b|\bcarcinoma\b|\bsarcoma\b|\bleukemia\b|\blymphoma\b|\bmelanoma\b|\bglioma\b|\bblastoma\b`), CriterionDiagnosis},
}

// SplitEligibility extracts the inclusion and exclusion criteria lists
// from a raw eligibility block. Empty or heading-less text degrades to
// empty lists, never an error.
func SplitEligibility(text string) (inclusion, exclusion []Criterion) {
	text = strings.ReplaceAll(strings.ReplaceAll(text, "\r\n", "\n"), "\r", "\n")

	if m := inclusionSectionPattern.FindStringSubmatch(text); m != nil {
		inclusion = ParseCriteria(m[1], CriterionInclusion)
	}
	if m := exclusionSectionPattern.FindStringSubmatch(text); m != nil {
		exclusion = ParseCriteria(m[1], CriterionExclusion)
	}
	return inclusion, exclusion
}

// ParseCriteria splits a criteria section into atomic statements. Each
// non-empty line becomes one criterion after list markers are stripped; a
// section with no line structure is kept as a single criterion with the
// section's default type.
func ParseCriteria(text string, defaultType CriterionType) []Criterion {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(bulletPattern.ReplaceAllString(line, ""))
		if line != "" {
			lines = append(lines, line)
		}
	}

	if len(lines) <= 1 {
		return []Criterion{{Text: text, Type: defaultType}}
	}

	out := make([]Criterion, 0, len(lines))
	for _, line := range lines {
		out = append(out, Criterion{Text: line, Type: IdentifyCriterionType(line, defaultType)})
	}
	return out
}

// IdentifyCriterionType tags a single eligibility statement. The first
// keyword rule that fires wins; statements matching no rule keep the
// section default (inclusion or exclusion).
func IdentifyCriterionType(text string, defaultType CriterionType) CriterionType {
	lower := strings.ToLower(text)
	for _, rule := range criterionTypeRules {
		if rule.pattern.MatchString(lower) {
			return rule.ctype
		}
	}
	return defaultType
}
