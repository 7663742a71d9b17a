package trials

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

const trialCols = `id, title, phase, description, inclusion_criteria, exclusion_criteria,
	status, start_date, completion_date, sponsor, locations, min_age, max_age,
	gender, org_study_id, secondary_ids, created_at, updated_at`

func (r *repoPG) scanTrial(row pgx.Row) (*ClinicalTrial, error) {
	var t ClinicalTrial
	var inclusion, exclusion []byte
	err := row.Scan(&t.ID, &t.Title, &t.Phase, &t.Description, &inclusion, &exclusion,
		&t.Status, &t.StartDate, &t.CompletionDate, &t.Sponsor, &t.Locations, &t.MinAge, &t.MaxAge,
		&t.Gender, &t.OrgStudyID, &t.SecondaryIDs, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(inclusion) > 0 {
		if err := json.Unmarshal(inclusion, &t.InclusionCriteria); err != nil {
			return nil, fmt.Errorf("decode inclusion criteria for %s: %w", t.ID, err)
		}
	}
	if len(exclusion) > 0 {
		if err := json.Unmarshal(exclusion, &t.ExclusionCriteria); err != nil {
			return nil, fmt.Errorf("decode exclusion criteria for %s: %w", t.ID, err)
		}
	}
	return &t, nil
}

func criteriaJSON(list []Criterion) ([]byte, error) {
	if list == nil {
		list = []Criterion{}
	}
	return json.Marshal(list)
}

func (r *repoPG) Create(ctx context.Context, t *ClinicalTrial) error {
	inclusion, err := criteriaJSON(t.InclusionCriteria)
	if err != nil {
		return err
	}
	exclusion, err := criteriaJSON(t.ExclusionCriteria)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO clinical_trial (id, title, phase, description, inclusion_criteria, exclusion_criteria,
			status, start_date, completion_date, sponsor, locations, min_age, max_age,
			gender, org_study_id, secondary_ids)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
		t.ID, t.Title, t.Phase, t.Description, inclusion, exclusion,
		t.Status, t.StartDate, t.CompletionDate, t.Sponsor, t.Locations, t.MinAge, t.MaxAge,
		t.Gender, t.OrgStudyID, t.SecondaryIDs)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id string) (*ClinicalTrial, error) {
	return r.scanTrial(r.pool.QueryRow(ctx, `SELECT `+trialCols+` FROM clinical_trial WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, t *ClinicalTrial) error {
	inclusion, err := criteriaJSON(t.InclusionCriteria)
	if err != nil {
		return err
	}
	exclusion, err := criteriaJSON(t.ExclusionCriteria)
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE clinical_trial SET title=$2, phase=$3, description=$4,
			inclusion_criteria=$5, exclusion_criteria=$6, status=$7,
			start_date=$8, completion_date=$9, sponsor=$10, locations=$11,
			min_age=$12, max_age=$13, gender=$14, org_study_id=$15,
			secondary_ids=$16, updated_at=NOW()
		WHERE id = $1`,
		t.ID, t.Title, t.Phase, t.Description, inclusion, exclusion, t.Status,
		t.StartDate, t.CompletionDate, t.Sponsor, t.Locations,
		t.MinAge, t.MaxAge, t.Gender, t.OrgStudyID, t.SecondaryIDs)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM clinical_trial WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*ClinicalTrial, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM clinical_trial`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `SELECT `+trialCols+` FROM clinical_trial ORDER BY id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*ClinicalTrial
	for rows.Next() {
		t, err := r.scanTrial(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, t)
	}
	return items, total, rows.Err()
}

func (r *repoPG) ListAll(ctx context.Context) ([]*ClinicalTrial, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+trialCols+` FROM clinical_trial ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*ClinicalTrial
	for rows.Next() {
		t, err := r.scanTrial(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}

func (r *repoPG) Upsert(ctx context.Context, t *ClinicalTrial) error {
	inclusion, err := criteriaJSON(t.InclusionCriteria)
	if err != nil {
		return err
	}
	exclusion, err := criteriaJSON(t.ExclusionCriteria)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO clinical_trial (id, title, phase, description, inclusion_criteria, exclusion_criteria,
			status, start_date, completion_date, sponsor, locations, min_age, max_age,
			gender, org_study_id, secondary_ids)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
		ON CONFLICT (id) DO UPDATE SET
			title=EXCLUDED.title, phase=EXCLUDED.phase, description=EXCLUDED.description,
			inclusion_criteria=EXCLUDED.inclusion_criteria, exclusion_criteria=EXCLUDED.exclusion_criteria,
			status=EXCLUDED.status, start_date=EXCLUDED.start_date,
			completion_date=EXCLUDED.completion_date, sponsor=EXCLUDED.sponsor,
			locations=EXCLUDED.locations, min_age=EXCLUDED.min_age, max_age=EXCLUDED.max_age,
			gender=EXCLUDED.gender, org_study_id=EXCLUDED.org_study_id,
			secondary_ids=EXCLUDED.secondary_ids, updated_at=NOW()`,
		t.ID, t.Title, t.Phase, t.Description, inclusion, exclusion,
		t.Status, t.StartDate, t.CompletionDate, t.Sponsor, t.Locations, t.MinAge, t.MaxAge,
		t.Gender, t.OrgStudyID, t.SecondaryIDs)
	return err
}
