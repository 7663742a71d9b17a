package extraction

import (
	"regexp"
	"strings"
)

// The rule tables below are fixed at build time. Order matters for the
// label and term lists: more specific entries come first so that a match
// on "non-small cell lung cancer" shadows the later "lung cancer".

var (
	agePattern = regexp.MustCompile(`(?i)\b(\d{1,3})\s*-?\s*(?:(?:year|yr)s?\s*-?\s*old|anni|years\s+of\s+age)\b`)

	stagePattern = regexp.MustCompile(`(?i)\b(?:stage|stadio)\s*[:\-]?\s*(iv|iii|ii|i|4|3|2|1)\s*([a-c])?\b`)

	ecogPattern = regexp.MustCompile(`(?i)\becog(?:\s+(?:ps|performance\s+status))?\s*(?:of|:|=|score\s*(?:of|:)?)?\s*([0-4])\b`)

	femalePattern = regexp.MustCompile(`(?i)\b(female|woman|donna|femminile)\b`)
	malePattern   = regexp.MustCompile(`(?i)\b(male|man|uomo|maschile)\b`)
)

// diagnosisLabels is the recognized diagnosis vocabulary in priority order:
// specific labels shadow their more generic substrings.
var diagnosisLabels = []string{
	"non-small cell lung cancer",
	"non small cell lung cancer",
	"small cell lung cancer",
	"triple-negative breast cancer",
	"triple negative breast cancer",
	"hepatocellular carcinoma",
	"renal cell carcinoma",
	"squamous cell carcinoma",
	"adenocarcinoma",
	"nsclc",
	"sclc",
	"glioblastoma",
	"mesothelioma",
	"cholangiocarcinoma",
	"osteosarcoma",
	"neuroblastoma",
	"lung cancer",
	"breast cancer",
	"colorectal cancer",
	"colon cancer",
	"rectal cancer",
	"prostate cancer",
	"pancreatic cancer",
	"ovarian cancer",
	"gastric cancer",
	"stomach cancer",
	"bladder cancer",
	"kidney cancer",
	"liver cancer",
	"thyroid cancer",
	"cervical cancer",
	"endometrial cancer",
	"esophageal cancer",
	"head and neck cancer",
	"melanoma",
	"lymphoma",
	"leukemia",
	"myeloma",
	"sarcoma",
	"carcinoma",
}

// termRule binds a term list to the qualifier words that make one candidate
// span more specific than another of the same length.
type termRule struct {
	terms      []string
	qualifiers []string
}

var mutationRule = termRule{
	terms: []string{
		"EGFR", "ALK", "ROS1", "KRAS", "NRAS", "BRAF", "HER2",
		"BRCA1", "BRCA2", "PD-L1", "MSI-H", "dMMR", "NTRK", "RET",
		"MET", "TP53", "PIK3CA", "FGFR", "IDH1", "IDH2",
	},
	qualifiers: []string{
		"mutation", "mutated", "mutant", "positive", "negative",
		"amplification", "amplified", "rearrangement", "fusion",
		"deletion", "insertion", "translocation", "expression",
		"mutazione", "mutato", "positivo", "negativo",
		"alterazione", "delezione", "inserzione", "traslocazione",
	},
}

var metastasisRule = termRule{
	terms: []string{
		"brain", "liver", "bone", "lung", "adrenal", "lymph node",
		"peritoneal", "pleural", "skin", "spinal",
		"cervello", "fegato", "osso", "ossee", "polmone",
	},
	qualifiers: []string{
		"metastasis", "metastases", "metastatic", "lesion", "lesions",
		"spread", "secondary", "mets",
		"metastasi", "metastatico", "lesione", "lesioni", "secondarie",
	},
}

var treatmentRule = termRule{
	terms: []string{
		"chemotherapy", "radiotherapy", "radiation therapy", "surgery",
		"immunotherapy", "targeted therapy", "hormone therapy",
		"cisplatin", "carboplatin", "paclitaxel", "docetaxel",
		"pemetrexed", "gemcitabine", "pembrolizumab", "nivolumab",
		"atezolizumab", "durvalumab", "osimertinib", "erlotinib",
		"gefitinib", "afatinib", "crizotinib", "alectinib",
		"trastuzumab", "bevacizumab", "tamoxifen", "letrozole",
		"chemioterapia", "radioterapia", "chirurgia", "immunoterapia",
	},
	qualifiers: []string{
		"cycle", "cycles", "line", "first-line", "second-line",
		"adjuvant", "neoadjuvant", "mg", "dose", "course", "regimen",
		"ciclo", "cicli", "linea", "adiuvante", "dosaggio",
	},
}

// labRule names a lab test and the pattern that captures its value.
// Ordered slice, not a map, so extraction output is deterministic.
type labRule struct {
	name    string
	pattern *regexp.Regexp
}

var labRules = []labRule{
	{"hemoglobin", regexp.MustCompile(`(?i)\b(?:hemoglobin|haemoglobin|emoglobina|hgb|hb)\s*[:=]?\s*(\d+(?:[.,]\d+)?)\s*(g/d[lL])?`)},
	{"white blood cell count", regexp.MustCompile(`(?i)\b(?:white blood cells?|wbc|leucociti|leukocytes?)\s*(?:count)?\s*[:=]?\s*(\d+(?:[.,]\d+)?)`)},
	{"platelets", regexp.MustCompile(`(?i)\b(?:platelets?|piastrine|plt)\s*(?:count)?\s*[:=]?\s*(\d+(?:[.,]\d+)?)`)},
	{"creatinine", regexp.MustCompile(`(?i)\b(?:creatinine|creatinina)\s*[:=]?\s*(\d+(?:[.,]\d+)?)\s*(mg/d[lL])?`)},
	{"alt", regexp.MustCompile(`(?i)\b(?:alt|alanine aminotransferase|sgpt)\s*[:=]?\s*(\d+(?:[.,]\d+)?)\s*(U/[lL])?`)},
	{"ast", regexp.MustCompile(`(?i)\b(?:ast|aspartate aminotransferase|sgot)\s*[:=]?\s*(\d+(?:[.,]\d+)?)\s*(U/[lL])?`)},
}

// termPatterns precompiles a word-boundary regex per term. Terms containing
// regex metacharacters (PD-L1, MSI-H) are quoted.
func termPatterns(terms []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(terms))
	for i, t := range terms {
		out[i] = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(t) + `\b`)
	}
	return out
}

var (
	mutationPatterns   = termPatterns(mutationRule.terms)
	metastasisPatterns = termPatterns(metastasisRule.terms)
	treatmentPatterns  = termPatterns(treatmentRule.terms)
	diagnosisPatterns  = termPatterns(diagnosisLabels)
)

// Secondary patterns used by the formatter to scrape sub-details out of
// already-extracted source spans.
var (
	percentPattern       = regexp.MustCompile(`\d+(?:[.,]\d+)?\s*%`)
	proteinChangePattern = regexp.MustCompile(`\b[A-Z]\d{2,4}[A-Z]\b`)
	statusPattern        = regexp.MustCompile(`\b(positive|negative|positivo|negativo|amplified|mutated)\b`)
	// Lesion counts are one or two digits; the bound keeps a bare year
	// ("noted in 2020") from being read as a count.
	countSizePattern = regexp.MustCompile(`(?i)\b(?:multiple|single|solitary|\d{1,2})\b`)
	cyclesPattern    = regexp.MustCompile(`(?i)\b\d+\s*(?:cycles?|cicli|ciclo)\b`)
	dosePattern      = regexp.MustCompile(`(?i)\b\d+(?:[.,]\d+)?\s*(?:mg(?:/m2|/m²)?|gy)\b`)
	yearPattern      = regexp.MustCompile(`\b(?:19|20)\d{2}\b`)
)

// sentenceAround returns the sentence of text enclosing the span that
// starts at idx. Boundaries are the nearest period, newline or start/end
// of the text, so the result is always a verbatim substring of text.
func sentenceAround(text string, idx int) string {
	if idx < 0 || idx >= len(text) {
		return ""
	}
	start := idx
	for start > 0 && text[start-1] != '.' && text[start-1] != '\n' {
		start--
	}
	end := idx
	for end < len(text) && text[end] != '.' && text[end] != '\n' {
		end++
	}
	if end < len(text) && text[end] == '.' {
		end++
	}
	return strings.TrimSpace(text[start:end])
}
