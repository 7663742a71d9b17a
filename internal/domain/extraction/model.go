package extraction

import (
	"context"
	"strings"
)

// Gender values recognized by the extractor.
const (
	GenderMale   = "male"
	GenderFemale = "female"
)

// Feature is a single extracted value together with the verbatim text span
// it was derived from. The source span is retained for traceability: it is
// always a case-insensitive substring of the original text.
type Feature struct {
	Value  string `json:"value"`
	Source string `json:"source"`
}

// IntFeature is a numeric extracted value (age, ECOG) with its source span.
type IntFeature struct {
	Value  int    `json:"value"`
	Source string `json:"source"`
}

// FeatureSet is the structured result of clinical feature extraction.
// Absent signals are nil/empty, never errors. List fields are deduplicated
// by lowercased value.
type FeatureSet struct {
	Age                *IntFeature        `json:"age,omitempty"`
	Gender             *Feature           `json:"gender,omitempty"`
	Diagnosis          *Feature           `json:"diagnosis,omitempty"`
	Stage              *Feature           `json:"stage,omitempty"`
	ECOG               *IntFeature        `json:"ecog,omitempty"`
	Mutations          []Feature          `json:"mutations,omitempty"`
	Metastases         []Feature          `json:"metastases,omitempty"`
	PreviousTreatments []Feature          `json:"previous_treatments,omitempty"`
	LabValues          map[string]Feature `json:"lab_values,omitempty"`
	OriginalText       string             `json:"original_text"`
}

// HasMutation reports whether a biomarker is recorded, matched
// case-insensitively.
func (f *FeatureSet) HasMutation(name string) bool {
	return containsValue(f.Mutations, name)
}

// HasMetastasis reports whether a metastasis site is recorded.
func (f *FeatureSet) HasMetastasis(site string) bool {
	return containsValue(f.Metastases, site)
}

// HasTreatment reports whether a previous treatment is recorded.
func (f *FeatureSet) HasTreatment(name string) bool {
	return containsValue(f.PreviousTreatments, name)
}

func containsValue(list []Feature, value string) bool {
	for _, f := range list {
		if strings.EqualFold(f.Value, value) {
			return true
		}
	}
	return false
}

// Strategy is the seam through which a semantic (LLM-backed) extractor can
// be substituted for the rule-based one. Both produce the same FeatureSet
// shape so downstream code is agnostic to which strategy ran.
type Strategy interface {
	Name() string
	Extract(ctx context.Context, text string) (*FeatureSet, error)
}

// Availability reports whether the semantic strategy is worth attempting.
// Implementations may cache the probe result with a TTL.
type Availability interface {
	Available(ctx context.Context) bool
}
