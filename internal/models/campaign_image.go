package models

import (
	"time"

	"github.com/google/uuid"
)

// CampaignImage points at either a stored file (FileKey) or an external URL.
// A stored file wins when both are set.
type CampaignImage struct {
	ID              uuid.UUID `json:"id"`
	CampaignAddress string    `json:"campaign_address"`
	CreatorAddress  string    `json:"creator_address"`
	FileKey         *string   `json:"file_key,omitempty"`
	ImageURL        *string   `json:"image_url,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (c *CampaignImage) HasFile() bool {
	return c.FileKey != nil && *c.FileKey != ""
}

func (c *CampaignImage) HasURL() bool {
	return c.ImageURL != nil && *c.ImageURL != ""
}
