package trials

import "context"

// Repository is the persistence boundary for the trial catalog.
type Repository interface {
	Create(ctx context.Context, t *ClinicalTrial) error
	GetByID(ctx context.Context, id string) (*ClinicalTrial, error)
	Update(ctx context.Context, t *ClinicalTrial) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, limit, offset int) ([]*ClinicalTrial, int, error)
	// ListAll returns the full catalog for a matching pass.
	ListAll(ctx context.Context) ([]*ClinicalTrial, error)
	// Upsert inserts or refreshes a registry record keyed by NCT ID.
	Upsert(ctx context.Context, t *ClinicalTrial) error
}
