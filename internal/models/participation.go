package models

import (
	"time"

	"github.com/google/uuid"
)

// Participation statuses
const (
	ParticipationStatusPending  = "pending"
	ParticipationStatusApproved = "approved"
	ParticipationStatusRejected = "rejected"
)

// Review is a one-shot decision: pending -> approved | rejected.
var ValidParticipationTransitions = map[string][]string{
	ParticipationStatusPending:  {ParticipationStatusApproved, ParticipationStatusRejected},
	ParticipationStatusApproved: {},
	ParticipationStatusRejected: {},
}

func IsValidParticipationTransition(from, to string) bool {
	return contains(ValidParticipationTransitions[from], to)
}

type BountyParticipation struct {
	ID             uuid.UUID         `json:"id"`
	BountyID       uuid.UUID         `json:"bounty_id"`
	CreatorAddress string            `json:"creator_address"`
	Platforms      []string          `json:"platforms"`
	PromotionLinks map[string]string `json:"promotion_links"`
	Status         string            `json:"status"`
	ReviewedBy     *string           `json:"reviewed_by,omitempty"`
	ReviewedAt     *time.Time        `json:"reviewed_at,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
}
