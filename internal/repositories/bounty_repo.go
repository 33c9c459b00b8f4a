package repositories

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/crowdbounty/backend/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// MaxBountyList caps unpaginated listings.
const MaxBountyList = 500

const bountyColumns = `
	id, campaign_address, creator_address, campaign_name, deposit_amount::text,
	platforms, reward_description, activity_start, activity_end, vesting_schedule,
	max_recipients, current_recipients, status, created_at, updated_at`

type BountyRepo struct {
	pool *pgxpool.Pool
}

func NewBountyRepo(pool *pgxpool.Pool) *BountyRepo {
	return &BountyRepo{pool: pool}
}

func (r *BountyRepo) Create(ctx context.Context, b *models.Bounty) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO bounties (
			campaign_address, creator_address, campaign_name, deposit_amount, platforms,
			reward_description, activity_start, activity_end, vesting_schedule,
			max_recipients, current_recipients, status
		) VALUES ($1, $2, $3, $4::numeric, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at
	`, b.CampaignAddress, b.CreatorAddress, b.CampaignName, b.DepositAmount.String(), b.Platforms,
		b.RewardDescription, b.ActivityStart, b.ActivityEnd, b.VestingSchedule,
		b.MaxRecipients, b.CurrentRecipients, b.Status,
	).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
	return storeErr(err, "bounty")
}

func (r *BountyRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Bounty, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+bountyColumns+` FROM bounties WHERE id = $1`, id)
	b, err := scanBounty(row)
	if err != nil {
		return nil, storeErr(err, "bounty")
	}
	return b, nil
}

type BountyFilter struct {
	Status         *string
	CreatorAddress *string
	Limit          int
}

func (r *BountyRepo) List(ctx context.Context, f BountyFilter) ([]models.Bounty, error) {
	query := `SELECT ` + bountyColumns + ` FROM bounties`
	args := []any{}
	where := []string{}

	if f.Status != nil {
		args = append(args, *f.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.CreatorAddress != nil {
		args = append(args, *f.CreatorAddress)
		where = append(where, fmt.Sprintf("creator_address = $%d", len(args)))
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}

	limit := f.Limit
	if limit <= 0 || limit > MaxBountyList {
		limit = MaxBountyList
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, storeErr(err, "bounty")
	}
	defer rows.Close()

	var bounties []models.Bounty
	for rows.Next() {
		b, err := scanBounty(rows)
		if err != nil {
			return nil, storeErr(err, "bounty")
		}
		bounties = append(bounties, *b)
	}
	return bounties, storeErr(rows.Err(), "bounty")
}

// UpdateStatus moves a bounty from one status to another; it reports false
// when the bounty was not in the expected status.
func (r *BountyRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE bounties SET status = $1, updated_at = now()
		WHERE id = $2 AND status = $3
	`, to, id, from)
	if err != nil {
		return false, storeErr(err, "bounty")
	}
	return tag.RowsAffected() == 1, nil
}

// CompleteExpired closes active bounties whose activity window ended before now.
func (r *BountyRepo) CompleteExpired(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `
		UPDATE bounties SET status = 'completed', updated_at = now()
		WHERE status = 'active' AND activity_end IS NOT NULL AND activity_end < $1
		RETURNING id
	`, now)
	if err != nil {
		return nil, storeErr(err, "bounty")
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	return ids, storeErr(err, "bounty")
}

func scanBounty(row pgx.Row) (*models.Bounty, error) {
	var b models.Bounty
	var deposit string
	if err := row.Scan(&b.ID, &b.CampaignAddress, &b.CreatorAddress, &b.CampaignName, &deposit,
		&b.Platforms, &b.RewardDescription, &b.ActivityStart, &b.ActivityEnd, &b.VestingSchedule,
		&b.MaxRecipients, &b.CurrentRecipients, &b.Status, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	amount, err := decimal.NewFromString(deposit)
	if err != nil {
		return nil, fmt.Errorf("bounty %s deposit_amount: %w", b.ID, err)
	}
	b.DepositAmount = amount
	return &b, nil
}
