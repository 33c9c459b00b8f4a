package repositories

import (
	"context"

	"github.com/crowdbounty/backend/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CampaignImageRepo struct {
	pool *pgxpool.Pool
}

func NewCampaignImageRepo(pool *pgxpool.Pool) *CampaignImageRepo {
	return &CampaignImageRepo{pool: pool}
}

func (r *CampaignImageRepo) FindByCampaign(ctx context.Context, campaignAddress string) (*models.CampaignImage, error) {
	var c models.CampaignImage
	err := r.pool.QueryRow(ctx, `
		SELECT id, campaign_address, creator_address, file_key, image_url, created_at, updated_at
		FROM campaign_images WHERE campaign_address = $1
	`, campaignAddress).Scan(&c.ID, &c.CampaignAddress, &c.CreatorAddress, &c.FileKey, &c.ImageURL,
		&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, storeErr(err, "campaign image")
	}
	return &c, nil
}

// Upsert keeps one image record per campaign. A nil FileKey or ImageURL
// leaves the stored value untouched.
func (r *CampaignImageRepo) Upsert(ctx context.Context, c *models.CampaignImage) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO campaign_images (campaign_address, creator_address, file_key, image_url)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (campaign_address) DO UPDATE SET
			creator_address = EXCLUDED.creator_address,
			file_key = COALESCE(EXCLUDED.file_key, campaign_images.file_key),
			image_url = COALESCE(EXCLUDED.image_url, campaign_images.image_url),
			updated_at = now()
		RETURNING id, file_key, image_url, created_at, updated_at
	`, c.CampaignAddress, c.CreatorAddress, c.FileKey, c.ImageURL,
	).Scan(&c.ID, &c.FileKey, &c.ImageURL, &c.CreatedAt, &c.UpdatedAt)
	return storeErr(err, "campaign image")
}
