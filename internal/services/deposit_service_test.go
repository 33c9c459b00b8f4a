package services

import (
	"context"
	"strings"
	"testing"

	"github.com/crowdbounty/backend/internal/apperr"
	"github.com/crowdbounty/backend/internal/config"
	"github.com/crowdbounty/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const rewardWallet = "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed"

type fakeDeposits struct {
	created []models.BountyDeposit
}

func (f *fakeDeposits) Create(_ context.Context, d *models.BountyDeposit) error {
	f.created = append(f.created, *d)
	return nil
}

func (f *fakeDeposits) ListByCampaign(_ context.Context, campaign string, _ int) ([]models.BountyDeposit, error) {
	var out []models.BountyDeposit
	for _, d := range f.created {
		if d.CampaignAddress == campaign {
			out = append(out, d)
		}
	}
	return out, nil
}

func newDepositFixture(wallet string) (*DepositService, *fakeDeposits, *memStore) {
	store := newMemStore()
	deposits := &fakeDeposits{}
	cfg := &config.Config{RewardWalletAddress: wallet}
	return NewDepositService(deposits, fakeBounties{store}, &fakeAudit{}, cfg, zap.NewNop()), deposits, store
}

func TestDepositAddress(t *testing.T) {
	svc, _, _ := newDepositFixture(rewardWallet)
	addr, err := svc.DepositAddress()
	require.NoError(t, err)
	assert.Equal(t, "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", addr, "checksummed")

	svc, _, _ = newDepositFixture("")
	_, err = svc.DepositAddress()
	assert.ErrorIs(t, err, apperr.ErrUpstream)

	svc, _, _ = newDepositFixture("not-an-address")
	_, err = svc.DepositAddress()
	assert.ErrorIs(t, err, apperr.ErrUpstream)
}

func TestRecordDeposit(t *testing.T) {
	ctx := context.Background()
	svc, deposits, store := newDepositFixture(rewardWallet)

	b := &models.Bounty{CampaignAddress: "0xabc", Status: models.BountyStatusActive}
	require.NoError(t, fakeBounties{store}.Create(ctx, b))

	txHash := "0xAB" + strings.Repeat("0", 62)
	d, err := svc.RecordDeposit(ctx, RecordDepositInput{
		CampaignAddress:  "0xABC",
		DepositorAddress: "0xDepositor",
		Amount:           dec(25),
		BountyID:         b.ID.String(),
		TxHash:           txHash,
	})
	require.NoError(t, err)
	assert.Equal(t, models.DepositStatusRecorded, d.Status)
	assert.Equal(t, "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", d.CustodialAddress)
	require.NotNil(t, d.TxHash)
	assert.Equal(t, "0xab"+strings.Repeat("0", 62), *d.TxHash)
	require.NotNil(t, d.BountyID)
	assert.Equal(t, b.ID, *d.BountyID)
	assert.Len(t, deposits.created, 1)

	list, err := svc.ListDeposits(ctx, "0xAbc", 10)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestRecordDepositRejects(t *testing.T) {
	ctx := context.Background()
	svc, deposits, store := newDepositFixture(rewardWallet)
	other := &models.Bounty{CampaignAddress: "0xother"}
	require.NoError(t, fakeBounties{store}.Create(ctx, other))

	valid := func() RecordDepositInput {
		return RecordDepositInput{CampaignAddress: "0xabc", DepositorAddress: "0xd", Amount: dec(1)}
	}

	tests := []struct {
		name   string
		mutate func(in *RecordDepositInput)
		kind   error
	}{
		{"missing campaign", func(in *RecordDepositInput) { in.CampaignAddress = "" }, apperr.ErrValidation},
		{"missing amount", func(in *RecordDepositInput) { in.Amount = nil }, apperr.ErrValidation},
		{"zero amount", func(in *RecordDepositInput) { in.Amount = dec(0) }, apperr.ErrValidation},
		{"short tx hash", func(in *RecordDepositInput) { in.TxHash = "0x1234" }, apperr.ErrValidation},
		{"bad bounty id", func(in *RecordDepositInput) { in.BountyID = "x" }, apperr.ErrValidation},
		{"unknown bounty", func(in *RecordDepositInput) { in.BountyID = "6f1c2f9e-4b9e-4a53-9d0c-0e6f3a1b2c3d" }, apperr.ErrNotFound},
		{"bounty of another campaign", func(in *RecordDepositInput) { in.BountyID = other.ID.String() }, apperr.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid()
			tt.mutate(&in)
			_, err := svc.RecordDeposit(ctx, in)
			assert.ErrorIs(t, err, tt.kind)
		})
	}
	assert.Empty(t, deposits.created)
}
