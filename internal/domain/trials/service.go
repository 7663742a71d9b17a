package trials

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/medmatch/medmatch/internal/platform/registry"
)

// RegistryClient is the subset of the registry API the catalog importer
// needs. Satisfied by *registry.Client.
type RegistryClient interface {
	GetStudy(ctx context.Context, nctID string) (*registry.Study, error)
	SearchStudies(ctx context.Context, query string) ([]*registry.Study, error)
}

type Service struct {
	repo     Repository
	registry RegistryClient
	logger   zerolog.Logger
}

func NewService(repo Repository, reg RegistryClient, logger zerolog.Logger) *Service {
	return &Service{repo: repo, registry: reg, logger: logger}
}

func (s *Service) Create(ctx context.Context, t *ClinicalTrial) error {
	if err := validateTrial(t); err != nil {
		return err
	}
	return s.repo.Create(ctx, t)
}

func (s *Service) Get(ctx context.Context, id string) (*ClinicalTrial, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Update(ctx context.Context, t *ClinicalTrial) error {
	if err := validateTrial(t); err != nil {
		return err
	}
	return s.repo.Update(ctx, t)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*ClinicalTrial, int, error) {
	return s.repo.List(ctx, limit, offset)
}

func (s *Service) ListAll(ctx context.Context) ([]*ClinicalTrial, error) {
	return s.repo.ListAll(ctx)
}

func validateTrial(t *ClinicalTrial) error {
	if strings.TrimSpace(t.ID) == "" {
		return fmt.Errorf("id is required")
	}
	if strings.TrimSpace(t.Title) == "" {
		return fmt.Errorf("title is required")
	}
	return nil
}

// FetchStudy imports a single registry study into the catalog.
func (s *Service) FetchStudy(ctx context.Context, nctID string) (*ClinicalTrial, error) {
	if s.registry == nil {
		return nil, fmt.Errorf("registry client not configured")
	}
	study, err := s.registry.GetStudy(ctx, nctID)
	if err != nil {
		return nil, err
	}
	t := FromRegistryStudy(study)
	if err := s.repo.Upsert(ctx, t); err != nil {
		return nil, fmt.Errorf("upsert trial %s: %w", t.ID, err)
	}
	return t, nil
}

// Sync imports every registry study matching the query. Defective records
// are skipped with a warning; the batch itself never aborts.
func (s *Service) Sync(ctx context.Context, query string) (imported int, err error) {
	if s.registry == nil {
		return 0, fmt.Errorf("registry client not configured")
	}
	studies, err := s.registry.SearchStudies(ctx, query)
	if err != nil {
		return 0, err
	}
	for _, study := range studies {
		t := FromRegistryStudy(study)
		if t.ID == "" {
			s.logger.Warn().Str("title", t.Title).Msg("skipping registry study without NCT ID")
			continue
		}
		if err := s.repo.Upsert(ctx, t); err != nil {
			s.logger.Warn().Err(err).Str("trial_id", t.ID).Msg("skipping trial that failed to upsert")
			continue
		}
		imported++
	}
	s.logger.Info().Str("query", query).Int("imported", imported).Int("found", len(studies)).Msg("registry sync complete")
	return imported, nil
}

// FromRegistryStudy converts a raw registry record into a catalog trial,
// splitting and tagging its eligibility text. A study with unparseable
// criteria degrades to empty criteria lists.
func FromRegistryStudy(study *registry.Study) *ClinicalTrial {
	inclusion, exclusion := SplitEligibility(study.EligibilityText)
	return &ClinicalTrial{
		ID:                study.NCTID,
		Title:             study.Title,
		Phase:             study.Phase,
		Description:       study.Description,
		InclusionCriteria: inclusion,
		ExclusionCriteria: exclusion,
		Status:            study.Status,
		StartDate:         study.StartDate,
		CompletionDate:    study.CompletionDate,
		Sponsor:           study.Sponsor,
		Locations:         study.Locations,
		MinAge:            study.MinimumAge,
		MaxAge:            study.MaximumAge,
		Gender:            strings.ToLower(study.Sex),
		OrgStudyID:        study.OrgStudyID,
		SecondaryIDs:      study.SecondaryIDs,
	}
}
