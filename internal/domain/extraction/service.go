package extraction

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// Service runs clinical feature extraction. When a semantic strategy is
// configured and its availability probe passes, it is tried first; any
// error falls back to the rule engine so callers always get a feature set.
type Service struct {
	semantic     Strategy
	availability Availability
	logger       zerolog.Logger
}

func NewService(semantic Strategy, availability Availability, logger zerolog.Logger) *Service {
	return &Service{
		semantic:     semantic,
		availability: availability,
		logger:       logger,
	}
}

// ExtractFeatures returns the feature set for a clinical narrative along
// with the name of the strategy that produced it.
func (s *Service) ExtractFeatures(ctx context.Context, text string) (*FeatureSet, string) {
	if s.semantic != nil && s.availability != nil && s.availability.Available(ctx) {
		fs, err := s.semantic.Extract(ctx, text)
		if err == nil && fs != nil {
			fs.OriginalText = text
			return fs, s.semantic.Name()
		}
		s.logger.Warn().Err(err).
			Str("strategy", s.semantic.Name()).
			Msg("semantic extraction failed, falling back to rules")
	}
	return Extract(text), "rules"
}

// Validate reports whether the input is usable for extraction.
func Validate(text string) error {
	if text == "" {
		return fmt.Errorf("text is required")
	}
	return nil
}
