package matching

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/medmatch/medmatch/internal/domain/extraction"
	"github.com/medmatch/medmatch/internal/domain/trials"
)

// MinMatchPercentage is the cutoff below which a trial is dropped from
// the ranked output.
const MinMatchPercentage = 50

// Evaluator answers one criterion for one patient. The rule-based
// implementation never fails; a semantic one may.
type Evaluator func(ctx context.Context, c trials.Criterion, features *extraction.FeatureSet) MatchResult

// RuleEvaluator adapts the rule-based evaluator to the matcher's seam.
func RuleEvaluator(ctx context.Context, c trials.Criterion, features *extraction.FeatureSet) MatchResult {
	return Evaluate(c, features)
}

// Match scores every trial in the catalog against the patient's features
// and returns the ranked list. Trials are evaluated concurrently; results
// are keyed by catalog index so the stable sort preserves catalog order
// for equal percentages. Trials with zero criteria are excluded entirely,
// and trials under the percentage cutoff are dropped.
func Match(ctx context.Context, features *extraction.FeatureSet, catalog []*trials.ClinicalTrial, eval Evaluator) []TrialMatch {
	scored := make([]*TrialMatch, len(catalog))

	var wg sync.WaitGroup
	for i, trial := range catalog {
		if trial == nil || trial.CriteriaCount() == 0 {
			continue
		}
		wg.Add(1)
		go func(i int, trial *trials.ClinicalTrial) {
			defer wg.Done()
			m := matchTrial(ctx, features, trial, eval)
			scored[i] = &m
		}(i, trial)
	}
	wg.Wait()

	out := make([]TrialMatch, 0, len(catalog))
	for _, m := range scored {
		if m != nil && m.MatchPercentage >= MinMatchPercentage {
			out = append(out, *m)
		}
	}
	sort.SliceStable(out, func(a, b int) bool {
		return out[a].MatchPercentage > out[b].MatchPercentage
	})
	return out
}

func matchTrial(ctx context.Context, features *extraction.FeatureSet, trial *trials.ClinicalTrial, eval Evaluator) TrialMatch {
	m := TrialMatch{
		TrialID:     trial.ID,
		Title:       trial.Title,
		Phase:       trial.Phase,
		Description: trial.Description,
	}

	for _, c := range trial.InclusionCriteria {
		r := eval(ctx, c, features)
		if r.Matched {
			m.Matches = append(m.Matches, r)
		} else {
			m.NonMatches = append(m.NonMatches, r)
		}
	}

	// Exclusion criteria are evaluated as written and then inverted: a
	// patient who does not satisfy an exclusion statement is a better
	// candidate, not a worse one.
	for _, c := range trial.ExclusionCriteria {
		r := eval(ctx, c, features)
		if r.Matched {
			r.Matched = false
			r.Explanation = "patient meets exclusion criterion: " + r.Explanation
			m.NonMatches = append(m.NonMatches, r)
		} else {
			r.Matched = true
			r.Explanation = "patient does not meet exclusion criterion"
			m.Matches = append(m.Matches, r)
		}
	}

	total := len(m.Matches) + len(m.NonMatches)
	if total > 0 {
		m.MatchPercentage = int(math.Round(100 * float64(len(m.Matches)) / float64(total)))
	}
	return m
}
