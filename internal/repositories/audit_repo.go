package repositories

import (
	"context"

	"github.com/crowdbounty/backend/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AuditRepo struct {
	pool *pgxpool.Pool
}

func NewAuditRepo(pool *pgxpool.Pool) *AuditRepo {
	return &AuditRepo{pool: pool}
}

// Log appends an entry. Meta is stored as jsonb.
func (r *AuditRepo) Log(ctx context.Context, entry models.AuditLog) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO audit_log (actor_address, actor_type, action, entity_type, entity_id, meta)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, entry.ActorAddress, entry.ActorType, entry.Action, entry.EntityType, entry.EntityID, entry.Meta)
	return storeErr(err, "audit entry")
}

// GetByEntity returns the newest entries first. limit defaults to 50 and is
// capped at 200.
func (r *AuditRepo) GetByEntity(ctx context.Context, entityType string, entityID uuid.UUID, limit int) ([]models.AuditLog, error) {
	if limit <= 0 {
		limit = 50
	}
	limit = min(limit, 200)

	rows, err := r.pool.Query(ctx, `
		SELECT id, actor_address, actor_type, action, entity_type, entity_id, meta, created_at
		FROM audit_log WHERE entity_type = $1 AND entity_id = $2
		ORDER BY created_at DESC, id LIMIT $3
	`, entityType, entityID, limit)
	if err != nil {
		return nil, storeErr(err, "audit entry")
	}

	// Columns follow the field order of models.AuditLog.
	logs, err := pgx.CollectRows(rows, pgx.RowToStructByPos[models.AuditLog])
	return logs, storeErr(err, "audit entry")
}
