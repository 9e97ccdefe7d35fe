package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// TenantRepository implements domain.TenantRepository using PostgreSQL
type TenantRepository struct {
	pool *pgxpool.Pool
}

// NewTenantRepository creates a new TenantRepository
func NewTenantRepository(pool *pgxpool.Pool) *TenantRepository {
	return &TenantRepository{pool: pool}
}

// ListUserIDs returns every tenant id known to the engine. Tenants are
// whoever owns at least one recurring definition or open obligation.
func (r *TenantRepository) ListUserIDs() ([]int64, error) {
	ctx := context.Background()

	rows, err := r.pool.Query(ctx, `SELECT id FROM users ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
