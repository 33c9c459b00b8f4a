package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Bounty statuses
const (
	BountyStatusActive    = "active"
	BountyStatusCompleted = "completed"
)

// Valid bounty transitions: from -> []to
var ValidBountyTransitions = map[string][]string{
	BountyStatusActive:    {BountyStatusCompleted},
	BountyStatusCompleted: {},
}

func IsValidBountyTransition(from, to string) bool {
	return contains(ValidBountyTransitions[from], to)
}

// Social platforms a bounty can require. The set is open: unknown names are
// accepted as long as they are non-empty.
const (
	PlatformTwitter   = "twitter"
	PlatformTikTok    = "tiktok"
	PlatformYouTube   = "youtube"
	PlatformTelegram  = "telegram"
	PlatformDiscord   = "discord"
	PlatformInstagram = "instagram"
)

var KnownPlatforms = []string{
	PlatformTwitter, PlatformTikTok, PlatformYouTube,
	PlatformTelegram, PlatformDiscord, PlatformInstagram,
}

const (
	DefaultMaxRecipients   = 100
	DefaultVestingSchedule = "No vesting"
)

type Bounty struct {
	ID                uuid.UUID       `json:"id"`
	CampaignAddress   string          `json:"campaign_address"`
	CreatorAddress    string          `json:"creator_address"`
	CampaignName      string          `json:"campaign_name"`
	DepositAmount     decimal.Decimal `json:"deposit_amount"`
	Platforms         []string        `json:"platforms"`
	RewardDescription string          `json:"reward_description"`
	ActivityStart     time.Time       `json:"activity_start"`
	ActivityEnd       *time.Time      `json:"activity_end,omitempty"`
	VestingSchedule   string          `json:"vesting_schedule"`
	MaxRecipients     int             `json:"max_recipients"`
	CurrentRecipients int             `json:"current_recipients"`
	Status            string          `json:"status"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// RequiresAny reports whether at least one of platforms is required by the bounty.
func (b *Bounty) RequiresAny(platforms []string) bool {
	for _, p := range platforms {
		if contains(b.Platforms, strings.ToLower(strings.TrimSpace(p))) {
			return true
		}
	}
	return false
}

func (b *Bounty) IsFull() bool {
	return b.CurrentRecipients >= b.MaxRecipients
}

// BountyWithImage decorates a bounty for listings.
type BountyWithImage struct {
	Bounty
	Image           *ImageRef `json:"image"`
	HasParticipated *bool     `json:"has_participated,omitempty"`
}

// ImageRef is a resolved, displayable campaign image.
type ImageRef struct {
	ImageURL     string `json:"image_url"`
	HasFile      bool   `json:"has_file"`
	SuggestProxy bool   `json:"suggest_proxy"`
}

// NormalizePlatforms lower-cases, trims and de-duplicates platform names,
// keeping first-seen order and dropping empty entries.
func NormalizePlatforms(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, p := range in {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

// NormalizeAddress canonicalizes wallet and campaign addresses for storage and lookups.
func NormalizeAddress(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
