package matching

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/medmatch/medmatch/internal/domain/extraction"
	"github.com/medmatch/medmatch/internal/domain/trials"
)

// Catalog supplies the full trial list for a matching pass.
type Catalog interface {
	ListAll(ctx context.Context) ([]*trials.ClinicalTrial, error)
}

// Service runs the matching pipeline: extract features, pick an evaluation
// strategy, score the catalog. A configured semantic evaluator is used per
// criterion when available; any of its errors fall back to the rule
// evaluator so a single flaky call never fails the pass.
type Service struct {
	catalog      Catalog
	semantic     EvaluatorStrategy
	availability extraction.Availability
	logger       zerolog.Logger
}

func NewService(catalog Catalog, semantic EvaluatorStrategy, availability extraction.Availability, logger zerolog.Logger) *Service {
	return &Service{
		catalog:      catalog,
		semantic:     semantic,
		availability: availability,
		logger:       logger,
	}
}

// MatchPatient ranks the catalog for the given feature set and reports
// which evaluation strategy was used.
func (s *Service) MatchPatient(ctx context.Context, features *extraction.FeatureSet) ([]TrialMatch, string, error) {
	catalog, err := s.catalog.ListAll(ctx)
	if err != nil {
		return nil, "", err
	}

	eval, strategy := s.pickEvaluator(ctx)
	results := Match(ctx, features, catalog, eval)

	s.logger.Info().
		Str("strategy", strategy).
		Int("catalog_size", len(catalog)).
		Int("matched_trials", len(results)).
		Msg("matching pass complete")
	return results, strategy, nil
}

func (s *Service) pickEvaluator(ctx context.Context) (Evaluator, string) {
	if s.semantic == nil || s.availability == nil || !s.availability.Available(ctx) {
		return RuleEvaluator, "rules"
	}
	semantic := s.semantic
	logger := s.logger
	return func(ctx context.Context, c trials.Criterion, features *extraction.FeatureSet) MatchResult {
		r, err := semantic.Evaluate(ctx, c, features)
		if err != nil {
			logger.Warn().Err(err).
				Str("strategy", semantic.Name()).
				Msg("semantic evaluation failed, falling back to rules")
			return Evaluate(c, features)
		}
		return r
	}, semantic.Name()
}
