package extraction

import (
	"fmt"
	"strings"
)

// ConciseFeatures is the single-line display form of a FeatureSet. Sub-
// details (biomarker percentage, treatment cycles, metastasis count) are
// scraped from source spans; when none is found the plain value is shown.
type ConciseFeatures struct {
	Age                string            `json:"age,omitempty"`
	Gender             string            `json:"gender,omitempty"`
	Diagnosis          string            `json:"diagnosis,omitempty"`
	Stage              string            `json:"stage,omitempty"`
	ECOG               string            `json:"ecog,omitempty"`
	Mutations          []string          `json:"mutations,omitempty"`
	Metastases         []string          `json:"metastases,omitempty"`
	PreviousTreatments []string          `json:"previous_treatments,omitempty"`
	LabValues          map[string]string `json:"lab_values,omitempty"`
}

// Concise renders a feature set for display. Values are never altered,
// only decorated with qualifiers confidently found in the source span.
func Concise(fs *FeatureSet) *ConciseFeatures {
	if fs == nil {
		return &ConciseFeatures{}
	}
	out := &ConciseFeatures{}
	if fs.Age != nil {
		out.Age = fmt.Sprintf("%d years", fs.Age.Value)
	}
	if fs.Gender != nil {
		out.Gender = fs.Gender.Value
	}
	if fs.Diagnosis != nil {
		out.Diagnosis = fs.Diagnosis.Value
	}
	if fs.Stage != nil {
		out.Stage = fs.Stage.Value
	}
	if fs.ECOG != nil {
		out.ECOG = fmt.Sprintf("ECOG %d", fs.ECOG.Value)
	}
	for _, m := range fs.Mutations {
		out.Mutations = append(out.Mutations, conciseMutation(m))
	}
	for _, m := range fs.Metastases {
		out.Metastases = append(out.Metastases, conciseMetastasis(m))
	}
	for _, t := range fs.PreviousTreatments {
		out.PreviousTreatments = append(out.PreviousTreatments, conciseTreatment(t))
	}
	if len(fs.LabValues) > 0 {
		out.LabValues = make(map[string]string, len(fs.LabValues))
		for name, lv := range fs.LabValues {
			out.LabValues[name] = lv.Value
		}
	}
	return out
}

func conciseMutation(f Feature) string {
	src := f.Source
	if m := percentPattern.FindString(src); m != "" {
		return f.Value + " " + strings.TrimSpace(m)
	}
	if m := proteinChangePattern.FindString(src); m != "" {
		return f.Value + " " + m
	}
	if m := statusPattern.FindString(strings.ToLower(src)); m != "" {
		return f.Value + " " + m
	}
	return f.Value
}

func conciseMetastasis(f Feature) string {
	if m := countSizePattern.FindString(f.Source); m != "" {
		return strings.TrimSpace(m) + " " + f.Value + " metastasis"
	}
	return f.Value + " metastasis"
}

func conciseTreatment(f Feature) string {
	var details []string
	if m := cyclesPattern.FindString(f.Source); m != "" {
		details = append(details, strings.TrimSpace(m))
	}
	if m := dosePattern.FindString(f.Source); m != "" {
		details = append(details, strings.TrimSpace(m))
	}
	if m := yearPattern.FindString(f.Source); m != "" {
		details = append(details, strings.TrimSpace(m))
	}
	if len(details) == 0 {
		return f.Value
	}
	return fmt.Sprintf("%s (%s)", f.Value, strings.Join(details, ", "))
}
