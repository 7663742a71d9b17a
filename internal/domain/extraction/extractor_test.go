package extraction

import (
	"reflect"
	"strings"
	"testing"
)

const narrativeNSCLC = "Patient is a 58-year-old female with stage IV non-small cell lung cancer, ECOG PS 1, positive for EGFR T790M mutation, brain metastases noted."

func TestExtractClinicalNarrative(t *testing.T) {
	fs := Extract(narrativeNSCLC)

	if fs.Age == nil || fs.Age.Value != 58 {
		t.Fatalf("age = %+v, want 58", fs.Age)
	}
	if fs.Gender == nil || fs.Gender.Value != GenderFemale {
		t.Fatalf("gender = %+v, want female", fs.Gender)
	}
	if fs.Diagnosis == nil || fs.Diagnosis.Value != "non-small cell lung cancer" {
		t.Fatalf("diagnosis = %+v, want non-small cell lung cancer", fs.Diagnosis)
	}
	if fs.Stage == nil || fs.Stage.Value != "IV" {
		t.Fatalf("stage = %+v, want IV", fs.Stage)
	}
	if fs.ECOG == nil || fs.ECOG.Value != 1 {
		t.Fatalf("ecog = %+v, want 1", fs.ECOG)
	}
	if !fs.HasMutation("egfr") {
		t.Fatalf("mutations = %+v, want egfr entry", fs.Mutations)
	}
	if !fs.HasMetastasis("brain") {
		t.Fatalf("metastases = %+v, want brain entry", fs.Metastases)
	}
	if fs.OriginalText != narrativeNSCLC {
		t.Fatal("original text not retained")
	}
}

func TestExtractEmptyInput(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\t"} {
		fs := Extract(text)
		if fs == nil {
			t.Fatal("nil feature set")
		}
		if fs.Age != nil || fs.Gender != nil || fs.Diagnosis != nil ||
			fs.Stage != nil || fs.ECOG != nil ||
			len(fs.Mutations) != 0 || len(fs.Metastases) != 0 ||
			len(fs.PreviousTreatments) != 0 || len(fs.LabValues) != 0 {
			t.Fatalf("expected all-empty feature set for %q, got %+v", text, fs)
		}
	}
}

func TestExtractIdempotent(t *testing.T) {
	a := Extract(narrativeNSCLC)
	b := Extract(narrativeNSCLC)
	if !reflect.DeepEqual(a, b) {
		t.Fatal("repeated extraction produced different results")
	}
}

func TestExtractSourcesAreSubstrings(t *testing.T) {
	text := "A 72-year-old man with stage IIIB adenocarcinoma. Previous chemotherapy with cisplatin, 4 cycles. ALK rearrangement negative, KRAS G12C mutation. Liver metastases. Hemoglobin 11.2 g/dL."
	fs := Extract(text)
	lower := strings.ToLower(text)

	check := func(name, source string) {
		t.Helper()
		if source == "" {
			t.Fatalf("%s has empty source", name)
		}
		if !strings.Contains(lower, strings.ToLower(source)) {
			t.Fatalf("%s source %q not a substring of original text", name, source)
		}
	}

	if fs.Age != nil {
		check("age", fs.Age.Source)
	}
	if fs.Gender != nil {
		check("gender", fs.Gender.Source)
	}
	if fs.Diagnosis != nil {
		check("diagnosis", fs.Diagnosis.Source)
	}
	if fs.Stage != nil {
		check("stage", fs.Stage.Source)
	}
	for _, m := range fs.Mutations {
		check("mutation "+m.Value, m.Source)
	}
	for _, m := range fs.Metastases {
		check("metastasis "+m.Value, m.Source)
	}
	for _, tr := range fs.PreviousTreatments {
		check("treatment "+tr.Value, tr.Source)
	}
	for name, lv := range fs.LabValues {
		check("lab "+name, lv.Source)
	}
}

func TestExtractAge(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"58-year-old female", 58},
		{"a 63 year old man", 63},
		{"patient aged 70 yrs old", 70},
		{"paziente di 45 anni", 45},
		{"25 years of age at diagnosis", 25},
	}
	for _, tt := range tests {
		fs := Extract(tt.text)
		if fs.Age == nil {
			t.Fatalf("Extract(%q).Age = nil, want %d", tt.text, tt.want)
		}
		if fs.Age.Value != tt.want {
			t.Errorf("Extract(%q).Age = %d, want %d", tt.text, fs.Age.Value, tt.want)
		}
	}

	if fs := Extract("no age mentioned here"); fs.Age != nil {
		t.Errorf("unexpected age %+v", fs.Age)
	}
}

func TestExtractGenderFemaleBeforeMale(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"a female patient", GenderFemale},
		{"a male patient", GenderMale},
		{"the woman reported", GenderFemale},
		{"the man reported", GenderMale},
		// "female" contains "male"; the female check runs first and word
		// boundaries keep the substring from matching on its own.
		{"female", GenderFemale},
		{"no marker here", ""},
	}
	for _, tt := range tests {
		fs := Extract(tt.text)
		switch {
		case tt.want == "" && fs.Gender != nil:
			t.Errorf("Extract(%q).Gender = %+v, want nil", tt.text, fs.Gender)
		case tt.want != "" && (fs.Gender == nil || fs.Gender.Value != tt.want):
			t.Errorf("Extract(%q).Gender = %+v, want %s", tt.text, fs.Gender, tt.want)
		}
	}
}

func TestExtractDiagnosisPriority(t *testing.T) {
	// The specific label must shadow its generic substring.
	fs := Extract("Diagnosis of non-small cell lung cancer confirmed.")
	if fs.Diagnosis == nil || fs.Diagnosis.Value != "non-small cell lung cancer" {
		t.Fatalf("diagnosis = %+v, want non-small cell lung cancer", fs.Diagnosis)
	}

	fs = Extract("History of lung cancer in 2019.")
	if fs.Diagnosis == nil || fs.Diagnosis.Value != "lung cancer" {
		t.Fatalf("diagnosis = %+v, want lung cancer", fs.Diagnosis)
	}
}

func TestExtractDiagnosisSentenceSource(t *testing.T) {
	text := "Referred by GP. Confirmed diagnosis of breast cancer with lymph node involvement. Scheduled for staging."
	fs := Extract(text)
	if fs.Diagnosis == nil {
		t.Fatal("no diagnosis extracted")
	}
	want := "Confirmed diagnosis of breast cancer with lymph node involvement."
	if fs.Diagnosis.Source != want {
		t.Fatalf("diagnosis source = %q, want %q", fs.Diagnosis.Source, want)
	}
}

func TestExtractStage(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"stage IV disease", "IV"},
		{"Stage IIIB NSCLC", "IIIB"},
		{"stage 2 breast cancer", "II"},
		{"stadio III", "III"},
	}
	for _, tt := range tests {
		fs := Extract(tt.text)
		if fs.Stage == nil || fs.Stage.Value != tt.want {
			t.Errorf("Extract(%q).Stage = %+v, want %s", tt.text, fs.Stage, tt.want)
		}
	}
}

func TestExtractECOG(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"ECOG PS 1", 1},
		{"ECOG performance status of 2", 2},
		{"ECOG: 0", 0},
		{"ecog score of 3", 3},
	}
	for _, tt := range tests {
		fs := Extract(tt.text)
		if fs.ECOG == nil || fs.ECOG.Value != tt.want {
			t.Errorf("Extract(%q).ECOG = %+v, want %d", tt.text, fs.ECOG, tt.want)
		}
	}

	if fs := Extract("ECOG 7 is out of range"); fs.ECOG != nil {
		t.Errorf("unexpected ecog %+v", fs.ECOG)
	}
}

func TestExtractMutationDedupAndSpecificity(t *testing.T) {
	text := "EGFR noted. EGFR exon 19 deletion mutation confirmed on repeat biopsy with 40% allele frequency."
	fs := Extract(text)

	count := 0
	var got Feature
	for _, m := range fs.Mutations {
		if strings.EqualFold(m.Value, "egfr") {
			count++
			got = m
		}
	}
	if count != 1 {
		t.Fatalf("egfr entries = %d, want exactly 1", count)
	}
	if !strings.Contains(got.Source, "exon 19 deletion") {
		t.Fatalf("egfr source = %q, want the more specific sentence", got.Source)
	}
}

func TestExtractTermCanonicalCasing(t *testing.T) {
	// Narrative casing does not leak into the value: the rule table's
	// canonical spelling is reported even for a lowercase mention.
	fs := Extract("Tumor is egfr mutated with pd-l1 expression of 60%. Prior treatment: CISPLATIN.")

	wantMutations := []string{"EGFR", "PD-L1"}
	if len(fs.Mutations) != len(wantMutations) {
		t.Fatalf("mutations = %+v, want %v", fs.Mutations, wantMutations)
	}
	for i, want := range wantMutations {
		if fs.Mutations[i].Value != want {
			t.Errorf("mutation[%d] = %q, want %q", i, fs.Mutations[i].Value, want)
		}
	}

	found := false
	for _, tr := range fs.PreviousTreatments {
		if tr.Value == "cisplatin" {
			found = true
		}
	}
	if !found {
		t.Fatalf("treatments = %+v, want cisplatin entry", fs.PreviousTreatments)
	}
}

func TestBetterPrefersQualifiedAtEqualLength(t *testing.T) {
	if !better("EGFR mutation", true, "EGFR noted ab", false) {
		t.Fatal("qualified span should win at equal length")
	}
	if better("short", true, "a much longer unqualified span", false) {
		t.Fatal("longer span should win regardless of qualifiers")
	}
}

func TestExtractLabValues(t *testing.T) {
	text := "Labs: hemoglobin 10.5 g/dL, platelets 180, creatinine 1.1 mg/dL."
	fs := Extract(text)

	for _, name := range []string{"hemoglobin", "platelets", "creatinine"} {
		if _, ok := fs.LabValues[name]; !ok {
			t.Errorf("lab %q missing from %+v", name, fs.LabValues)
		}
	}
	if _, ok := fs.LabValues["ast"]; ok {
		t.Error("ast reported without a match")
	}
}

func TestSentenceAround(t *testing.T) {
	text := "First sentence. Second with marker. Third."
	got := sentenceAround(text, strings.Index(text, "marker"))
	if got != "Second with marker." {
		t.Fatalf("sentenceAround = %q", got)
	}

	// No trailing period: the sentence runs to the end of the text so the
	// source stays a verbatim substring.
	text = "Trailing sentence with marker"
	got = sentenceAround(text, strings.Index(text, "marker"))
	if got != "Trailing sentence with marker" {
		t.Fatalf("sentenceAround = %q", got)
	}
}
