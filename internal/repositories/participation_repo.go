package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/crowdbounty/backend/internal/apperr"
	"github.com/crowdbounty/backend/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const participationColumns = `
	id, bounty_id, creator_address, platforms, promotion_links, status,
	reviewed_by, reviewed_at, created_at`

type ParticipationRepo struct {
	pool *pgxpool.Pool
}

func NewParticipationRepo(pool *pgxpool.Pool) *ParticipationRepo {
	return &ParticipationRepo{pool: pool}
}

func (r *ParticipationRepo) Exists(ctx context.Context, bountyID uuid.UUID, creatorAddress string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM bounty_participations WHERE bounty_id = $1 AND creator_address = $2)
	`, bountyID, creatorAddress).Scan(&exists)
	return exists, storeErr(err, "participation")
}

// Record inserts p and increments the bounty's recipient count in one
// transaction. The counter update runs first so that concurrent submissions
// for the same bounty serialize on its row lock; the unique constraint on
// (bounty_id, creator_address) rejects repeats. It returns the new count.
func (r *ParticipationRepo) Record(ctx context.Context, p *models.BountyParticipation, enforceCap bool) (int, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, storeErr(err, "participation")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var current int
	err = tx.QueryRow(ctx, `
		UPDATE bounties SET current_recipients = current_recipients + 1, updated_at = now()
		WHERE id = $1 AND status = 'active'
		  AND (NOT $2::boolean OR current_recipients < max_recipients)
		RETURNING current_recipients
	`, p.BountyID, enforceCap).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, rejectReason(ctx, tx, p.BountyID)
	}
	if err != nil {
		return 0, storeErr(err, "bounty")
	}

	if p.PromotionLinks == nil {
		p.PromotionLinks = map[string]string{}
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO bounty_participations (bounty_id, creator_address, platforms, promotion_links, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, p.BountyID, p.CreatorAddress, p.Platforms, p.PromotionLinks, p.Status).Scan(&p.ID, &p.CreatedAt)
	if isUniqueViolation(err) {
		return 0, apperr.Duplicate("already participated in this bounty")
	}
	if err != nil {
		return 0, storeErr(err, "participation")
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, storeErr(err, "participation")
	}
	return current, nil
}

// rejectReason explains why the conditional increment matched no row.
func rejectReason(ctx context.Context, tx pgx.Tx, bountyID uuid.UUID) error {
	var status string
	var current, max int
	err := tx.QueryRow(ctx, `
		SELECT status, current_recipients, max_recipients FROM bounties WHERE id = $1
	`, bountyID).Scan(&status, &current, &max)
	if err != nil {
		return storeErr(err, "bounty")
	}
	if status != models.BountyStatusActive {
		return apperr.Ineligible("bounty is not active")
	}
	return apperr.Ineligible("bounty is full (%d/%d recipients)", current, max)
}

func (r *ParticipationRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.BountyParticipation, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+participationColumns+` FROM bounty_participations WHERE id = $1`, id)
	p, err := scanParticipation(row)
	if err != nil {
		return nil, storeErr(err, "participation")
	}
	return p, nil
}

func (r *ParticipationRepo) ListByBounty(ctx context.Context, bountyID uuid.UUID) ([]models.BountyParticipation, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+participationColumns+` FROM bounty_participations
		WHERE bounty_id = $1 ORDER BY created_at DESC
	`, bountyID)
	if err != nil {
		return nil, storeErr(err, "participation")
	}
	defer rows.Close()

	var out []models.BountyParticipation
	for rows.Next() {
		p, err := scanParticipation(rows)
		if err != nil {
			return nil, storeErr(err, "participation")
		}
		out = append(out, *p)
	}
	return out, storeErr(rows.Err(), "participation")
}

// BountyIDsByParticipant returns the bounties an address has submitted to.
func (r *ParticipationRepo) BountyIDsByParticipant(ctx context.Context, creatorAddress string) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT bounty_id FROM bounty_participations WHERE creator_address = $1
	`, creatorAddress)
	if err != nil {
		return nil, storeErr(err, "participation")
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	return ids, storeErr(err, "participation")
}

// UpdateStatus records a review decision; it reports false when the
// participation was no longer in status from.
func (r *ParticipationRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to, reviewer string, at time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE bounty_participations SET status = $1, reviewed_by = $2, reviewed_at = $3
		WHERE id = $4 AND status = $5
	`, to, reviewer, at, id, from)
	if err != nil {
		return false, storeErr(err, "participation")
	}
	return tag.RowsAffected() == 1, nil
}

func scanParticipation(row pgx.Row) (*models.BountyParticipation, error) {
	var p models.BountyParticipation
	if err := row.Scan(&p.ID, &p.BountyID, &p.CreatorAddress, &p.Platforms, &p.PromotionLinks,
		&p.Status, &p.ReviewedBy, &p.ReviewedAt, &p.CreatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}
