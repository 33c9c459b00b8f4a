package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const DepositStatusRecorded = "recorded"

// BountyDeposit records the intent to fund a bounty's reward pool. The
// transfer itself happens on-chain, outside this system.
type BountyDeposit struct {
	ID               uuid.UUID       `json:"id"`
	BountyID         *uuid.UUID      `json:"bounty_id,omitempty"`
	CampaignAddress  string          `json:"campaign_address"`
	DepositorAddress string          `json:"depositor_address"`
	Amount           decimal.Decimal `json:"amount"`
	CustodialAddress string          `json:"custodial_address"`
	TxHash           *string         `json:"tx_hash,omitempty"`
	Status           string          `json:"status"`
	CreatedAt        time.Time       `json:"created_at"`
}
