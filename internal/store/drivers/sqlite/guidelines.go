package sqlite

import (
	"context"

	"github.com/clouddoctor/server/internal/domain"
)

type guidelinesRepo struct {
	db dbtx
}

const guidelineColumns = `id, provider, service, title, content, created_at, updated_at`

func scanGuideline(row interface{ Scan(...any) error }) (domain.Guideline, error) {
	var g domain.Guideline
	err := row.Scan(&g.ID, &g.Provider, &g.Service, &g.Title, &g.Content, &g.CreatedAt, &g.UpdatedAt)
	return g, err
}

func (r *guidelinesRepo) GetGuidelineByID(ctx context.Context, id int64) (domain.Guideline, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+guidelineColumns+` FROM guidelines WHERE id = ?`, id)
	g, err := scanGuideline(row)
	if err != nil {
		return domain.Guideline{}, mapNotFound(err)
	}
	return g, nil
}

func (r *guidelinesRepo) ListGuidelines(
	ctx context.Context,
	provider, service string,
) ([]domain.Guideline, error) {
	// Empty filter values match everything so one query serves all the
	// public browse pages.
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+guidelineColumns+` FROM guidelines
		 WHERE (? = '' OR provider = ?) AND (? = '' OR service = ?)
		 ORDER BY provider, service, id`,
		provider, provider, service, service)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Guideline
	for rows.Next() {
		g, err := scanGuideline(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r *guidelinesRepo) CreateGuideline(
	ctx context.Context,
	g domain.Guideline,
) (domain.Guideline, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO guidelines (provider, service, title, content) VALUES (?, ?, ?, ?)`,
		g.Provider, g.Service, g.Title, g.Content)
	if err != nil {
		return domain.Guideline{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.Guideline{}, err
	}
	return r.GetGuidelineByID(ctx, id)
}

func (r *guidelinesRepo) UpdateGuideline(ctx context.Context, g domain.Guideline) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE guidelines SET title = ?, content = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		g.Title, g.Content, g.ID)
	return err
}

func (r *guidelinesRepo) DeleteGuideline(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM guidelines WHERE id = ?`, id)
	return err
}
