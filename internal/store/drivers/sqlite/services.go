package sqlite

import (
	"context"

	"github.com/clouddoctor/server/internal/domain"
)

type servicesRepo struct {
	db dbtx
}

func (r *servicesRepo) ListProviders(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT provider FROM services ORDER BY provider`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *servicesRepo) ListServicesByProvider(
	ctx context.Context,
	provider string,
) ([]domain.ServiceEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, provider, name, created_at FROM services WHERE provider = ? ORDER BY name`,
		provider)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ServiceEntry
	for rows.Next() {
		var s domain.ServiceEntry
		if err := rows.Scan(&s.ID, &s.Provider, &s.Name, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *servicesRepo) CreateService(
	ctx context.Context,
	s domain.ServiceEntry,
) (domain.ServiceEntry, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO services (provider, name) VALUES (?, ?)`,
		s.Provider, s.Name)
	if err != nil {
		return domain.ServiceEntry{}, mapConstraint(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.ServiceEntry{}, err
	}

	var created domain.ServiceEntry
	err = r.db.QueryRowContext(ctx,
		`SELECT id, provider, name, created_at FROM services WHERE id = ?`, id).
		Scan(&created.ID, &created.Provider, &created.Name, &created.CreatedAt)
	if err != nil {
		return domain.ServiceEntry{}, mapNotFound(err)
	}
	return created, nil
}

func (r *servicesRepo) DeleteService(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM services WHERE id = ?`, id)
	return err
}
