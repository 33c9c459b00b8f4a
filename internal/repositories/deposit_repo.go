package repositories

import (
	"context"
	"fmt"

	"github.com/crowdbounty/backend/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type DepositRepo struct {
	pool *pgxpool.Pool
}

func NewDepositRepo(pool *pgxpool.Pool) *DepositRepo {
	return &DepositRepo{pool: pool}
}

func (r *DepositRepo) Create(ctx context.Context, d *models.BountyDeposit) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO bounty_deposits (bounty_id, campaign_address, depositor_address, amount, custodial_address, tx_hash, status)
		VALUES ($1, $2, $3, $4::numeric, $5, $6, $7)
		RETURNING id, created_at
	`, d.BountyID, d.CampaignAddress, d.DepositorAddress, d.Amount.String(), d.CustodialAddress, d.TxHash, d.Status,
	).Scan(&d.ID, &d.CreatedAt)
	return storeErr(err, "deposit")
}

func (r *DepositRepo) ListByCampaign(ctx context.Context, campaignAddress string, limit int) ([]models.BountyDeposit, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, bounty_id, campaign_address, depositor_address, amount::text, custodial_address, tx_hash, status, created_at
		FROM bounty_deposits WHERE campaign_address = $1
		ORDER BY created_at DESC LIMIT $2
	`, campaignAddress, limit)
	if err != nil {
		return nil, storeErr(err, "deposit")
	}
	defer rows.Close()

	var deposits []models.BountyDeposit
	for rows.Next() {
		var d models.BountyDeposit
		var amount string
		if err := rows.Scan(&d.ID, &d.BountyID, &d.CampaignAddress, &d.DepositorAddress, &amount,
			&d.CustodialAddress, &d.TxHash, &d.Status, &d.CreatedAt); err != nil {
			return nil, storeErr(err, "deposit")
		}
		if d.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("deposit %s amount: %w", d.ID, err)
		}
		deposits = append(deposits, d)
	}
	return deposits, storeErr(rows.Err(), "deposit")
}
