package sqlite

import (
	"context"

	"github.com/clouddoctor/server/internal/domain"
)

type checklistsRepo struct {
	db dbtx
}

func (r *checklistsRepo) CreateChecklistResult(
	ctx context.Context,
	c domain.ChecklistResult,
) (domain.ChecklistResult, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO checklist_results (user_id, provider, service, payload) VALUES (?, ?, ?, ?)`,
		c.UserID, c.Provider, c.Service, c.Payload)
	if err != nil {
		return domain.ChecklistResult{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.ChecklistResult{}, err
	}

	var created domain.ChecklistResult
	err = r.db.QueryRowContext(ctx,
		`SELECT id, user_id, provider, service, payload, created_at
		 FROM checklist_results WHERE id = ?`, id).
		Scan(&created.ID, &created.UserID, &created.Provider, &created.Service, &created.Payload, &created.CreatedAt)
	if err != nil {
		return domain.ChecklistResult{}, mapNotFound(err)
	}
	return created, nil
}

func (r *checklistsRepo) ListChecklistResultsByUser(
	ctx context.Context,
	userID int64,
) ([]domain.ChecklistResult, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, provider, service, payload, created_at
		 FROM checklist_results WHERE user_id = ? ORDER BY created_at DESC, id DESC`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ChecklistResult
	for rows.Next() {
		var c domain.ChecklistResult
		if err := rows.Scan(&c.ID, &c.UserID, &c.Provider, &c.Service, &c.Payload, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *checklistsRepo) DeleteChecklistResult(ctx context.Context, userID, id int64) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM checklist_results WHERE id = ? AND user_id = ?`, id, userID)
	return err
}
