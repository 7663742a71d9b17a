package matching

import (
	"context"

	"github.com/medmatch/medmatch/internal/domain/extraction"
	"github.com/medmatch/medmatch/internal/domain/trials"
)

// MatchResult is the verdict for one criterion. Created fresh per
// evaluation and never mutated afterwards.
type MatchResult struct {
	Criterion   trials.Criterion `json:"criterion"`
	Matched     bool             `json:"matched"`
	Explanation string           `json:"explanation"`
}

// TrialMatch aggregates per-criterion verdicts for one trial.
type TrialMatch struct {
	TrialID         string        `json:"trial_id"`
	Title           string        `json:"title"`
	Phase           string        `json:"phase"`
	MatchPercentage int           `json:"match_percentage"`
	Matches         []MatchResult `json:"matches"`
	NonMatches      []MatchResult `json:"non_matches"`
	Description     string        `json:"description"`
}

// EvaluatorStrategy is the seam through which a semantic (LLM-backed)
// criterion evaluator can replace the rule-based one. Both answer the same
// question: does the patient satisfy the criterion as written.
type EvaluatorStrategy interface {
	Name() string
	Evaluate(ctx context.Context, c trials.Criterion, features *extraction.FeatureSet) (MatchResult, error)
}
