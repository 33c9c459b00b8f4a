package services

import (
	"context"
	"strings"

	"github.com/crowdbounty/backend/internal/apperr"
	"github.com/crowdbounty/backend/internal/config"
	"github.com/crowdbounty/backend/internal/models"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const txHashLength = 32

type DepositService struct {
	deposits  DepositStore
	bounties  BountyStore
	auditRepo AuditLogger
	validate  *validator.Validate
	cfg       *config.Config
	log       *zap.Logger
}

func NewDepositService(deposits DepositStore, bounties BountyStore, auditRepo AuditLogger, cfg *config.Config, log *zap.Logger) *DepositService {
	return &DepositService{
		deposits:  deposits,
		bounties:  bounties,
		auditRepo: auditRepo,
		validate:  newValidator(),
		cfg:       cfg,
		log:       log,
	}
}

// DepositAddress returns the custodial reward wallet in checksummed form.
func (s *DepositService) DepositAddress() (string, error) {
	addr := strings.TrimSpace(s.cfg.RewardWalletAddress)
	if addr == "" || !common.IsHexAddress(addr) {
		return "", apperr.Upstream(0, nil, "deposit address is not configured")
	}
	return common.HexToAddress(addr).Hex(), nil
}

type RecordDepositInput struct {
	CampaignAddress  string           `json:"campaignAddress" validate:"required"`
	DepositorAddress string           `json:"depositorAddress" validate:"required"`
	Amount           *decimal.Decimal `json:"amount" validate:"required"`
	BountyID         string           `json:"bountyId"`
	TxHash           string           `json:"txHash"`
}

// RecordDeposit stores the intent to fund a bounty. The transfer is not
// verified on-chain.
func (s *DepositService) RecordDeposit(ctx context.Context, in RecordDepositInput) (*models.BountyDeposit, error) {
	in.CampaignAddress = models.NormalizeAddress(in.CampaignAddress)
	in.DepositorAddress = models.NormalizeAddress(in.DepositorAddress)
	in.TxHash = strings.ToLower(strings.TrimSpace(in.TxHash))

	if err := s.validate.Struct(in); err != nil {
		return nil, validationError(err)
	}
	if !in.Amount.IsPositive() {
		return nil, apperr.Validation("amount must be greater than 0")
	}

	custodial, err := s.DepositAddress()
	if err != nil {
		return nil, err
	}

	d := &models.BountyDeposit{
		CampaignAddress:  in.CampaignAddress,
		DepositorAddress: in.DepositorAddress,
		Amount:           *in.Amount,
		CustodialAddress: custodial,
		Status:           models.DepositStatusRecorded,
	}

	if in.TxHash != "" {
		raw, err := hexutil.Decode(in.TxHash)
		if err != nil || len(raw) != txHashLength {
			return nil, apperr.Validation("txHash must be a 32-byte hex string")
		}
		d.TxHash = &in.TxHash
	}

	if strings.TrimSpace(in.BountyID) != "" {
		id, err := parseID(in.BountyID, "bountyId")
		if err != nil {
			return nil, err
		}
		bounty, err := s.bounties.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if bounty.CampaignAddress != d.CampaignAddress {
			return nil, apperr.Validation("bounty belongs to another campaign")
		}
		d.BountyID = &id
	}

	if err := s.deposits.Create(ctx, d); err != nil {
		return nil, err
	}

	if err := s.auditRepo.Log(ctx, models.AuditLog{
		ActorAddress: &d.DepositorAddress,
		ActorType:    "user",
		Action:       "deposit_recorded",
		EntityType:   "deposit",
		EntityID:     &d.ID,
		Meta:         map[string]any{"amount": d.Amount.String(), "campaign_address": d.CampaignAddress},
	}); err != nil {
		s.log.Warn("audit log failed", zap.String("action", "deposit_recorded"), zap.Error(err))
	}

	return d, nil
}

func (s *DepositService) ListDeposits(ctx context.Context, campaignAddress string, limit int) ([]models.BountyDeposit, error) {
	campaignAddress = models.NormalizeAddress(campaignAddress)
	if campaignAddress == "" {
		return nil, apperr.Validation("campaignAddress is required")
	}
	return s.deposits.ListByCampaign(ctx, campaignAddress, limit)
}
