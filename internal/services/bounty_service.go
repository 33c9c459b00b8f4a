package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/crowdbounty/backend/internal/apperr"
	"github.com/crowdbounty/backend/internal/config"
	"github.com/crowdbounty/backend/internal/events"
	"github.com/crowdbounty/backend/internal/linkpreview"
	"github.com/crowdbounty/backend/internal/models"
	"github.com/crowdbounty/backend/internal/rbac"
	"github.com/crowdbounty/backend/internal/repositories"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ImageLookup resolves a campaign image without caching or rate limiting.
type ImageLookup interface {
	LookupCampaignImage(ctx context.Context, campaignAddress string) (*models.ImageRef, error)
}

type LinkPreviewer interface {
	FetchAll(ctx context.Context, links map[string]string) []linkpreview.Preview
}

type BountyService struct {
	bounties       BountyStore
	participations ParticipationStore
	images         ImageLookup
	auditRepo      AuditLogger
	previewer      LinkPreviewer
	publisher      events.Publisher
	validate       *validator.Validate
	cfg            *config.Config
	log            *zap.Logger
	now            func() time.Time
}

func NewBountyService(
	bounties BountyStore,
	participations ParticipationStore,
	images ImageLookup,
	auditRepo AuditLogger,
	previewer LinkPreviewer,
	publisher events.Publisher,
	cfg *config.Config,
	log *zap.Logger,
) *BountyService {
	return &BountyService{
		bounties:       bounties,
		participations: participations,
		images:         images,
		auditRepo:      auditRepo,
		previewer:      previewer,
		publisher:      publisher,
		validate:       newValidator(),
		cfg:            cfg,
		log:            log,
		now:            time.Now,
	}
}

type CreateBountyInput struct {
	CampaignAddress   string           `json:"campaignAddress" validate:"required"`
	CreatorAddress    string           `json:"creatorAddress" validate:"required"`
	CampaignName      string           `json:"campaignName"`
	DepositAmount     *decimal.Decimal `json:"depositAmount" validate:"required"`
	Platforms         []string         `json:"platforms" validate:"required,min=1"`
	RewardDescription string           `json:"rewardDescription"`
	ActivityStart     *time.Time       `json:"activityStart"`
	ActivityEnd       *time.Time       `json:"activityEnd"`
	VestingSchedule   string           `json:"vestingSchedule"`
	MaxRecipients     *int             `json:"maxRecipients"`
}

// CreateBounty records a new active bounty. It does not move funds; the
// deposit amount is the creator's declared reward pool.
func (s *BountyService) CreateBounty(ctx context.Context, in CreateBountyInput) (*models.Bounty, error) {
	in.CampaignAddress = models.NormalizeAddress(in.CampaignAddress)
	in.CreatorAddress = models.NormalizeAddress(in.CreatorAddress)
	in.Platforms = models.NormalizePlatforms(in.Platforms)
	in.CampaignName = strings.TrimSpace(in.CampaignName)

	if err := s.validate.Struct(in); err != nil {
		return nil, validationError(err)
	}
	if in.DepositAmount.IsNegative() {
		return nil, apperr.Validation("depositAmount must not be negative")
	}
	if in.MaxRecipients != nil && *in.MaxRecipients <= 0 {
		return nil, apperr.Validation("maxRecipients must be greater than 0")
	}

	b := &models.Bounty{
		CampaignAddress:   in.CampaignAddress,
		CreatorAddress:    in.CreatorAddress,
		CampaignName:      in.CampaignName,
		DepositAmount:     *in.DepositAmount,
		Platforms:         in.Platforms,
		RewardDescription: strings.TrimSpace(in.RewardDescription),
		ActivityStart:     s.now().UTC(),
		ActivityEnd:       in.ActivityEnd,
		VestingSchedule:   strings.TrimSpace(in.VestingSchedule),
		MaxRecipients:     models.DefaultMaxRecipients,
		CurrentRecipients: 0,
		Status:            models.BountyStatusActive,
	}
	if b.RewardDescription == "" {
		b.RewardDescription = defaultRewardDescription(in.CampaignName)
	}
	if in.ActivityStart != nil {
		b.ActivityStart = *in.ActivityStart
	}
	if b.ActivityEnd != nil && !b.ActivityEnd.After(b.ActivityStart) {
		return nil, apperr.Validation("activityEnd must be after activityStart")
	}
	if b.VestingSchedule == "" {
		b.VestingSchedule = models.DefaultVestingSchedule
	}
	if in.MaxRecipients != nil {
		b.MaxRecipients = *in.MaxRecipients
	}

	if err := s.bounties.Create(ctx, b); err != nil {
		return nil, err
	}

	s.audit(ctx, &b.CreatorAddress, "user", "bounty_created", "bounty", b.ID, map[string]any{
		"campaign_address": b.CampaignAddress,
		"deposit_amount":   b.DepositAmount.String(),
		"max_recipients":   b.MaxRecipients,
	})
	s.publish(ctx, events.EventBountyCreated, map[string]any{
		"bounty_id":        b.ID.String(),
		"campaign_address": b.CampaignAddress,
		"platforms":        b.Platforms,
	})

	return b, nil
}

func defaultRewardDescription(campaignName string) string {
	if campaignName == "" {
		campaignName = "this campaign"
	}
	return fmt.Sprintf("Promote %s on social media and earn rewards!", campaignName)
}

// ListBounties returns bounties with the given status, newest first, each
// decorated with its campaign image. An image that cannot be resolved is
// reported as null without failing the listing. When userAddress is set each
// item also says whether that address has participated.
func (s *BountyService) ListBounties(ctx context.Context, status, userAddress string) ([]models.BountyWithImage, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	if status == "" {
		status = models.BountyStatusActive
	}

	bounties, err := s.bounties.List(ctx, repositories.BountyFilter{Status: &status, Limit: repositories.MaxBountyList})
	if err != nil {
		return nil, err
	}

	var participated map[uuid.UUID]bool
	userAddress = models.NormalizeAddress(userAddress)
	if userAddress != "" {
		ids, err := s.participations.BountyIDsByParticipant(ctx, userAddress)
		if err != nil {
			return nil, err
		}
		participated = make(map[uuid.UUID]bool, len(ids))
		for _, id := range ids {
			participated[id] = true
		}
	}

	out := make([]models.BountyWithImage, 0, len(bounties))
	for _, b := range bounties {
		item := models.BountyWithImage{Bounty: b, Image: s.bestEffortImage(ctx, b.CampaignAddress)}
		if participated != nil {
			has := participated[b.ID]
			item.HasParticipated = &has
		}
		out = append(out, item)
	}
	return out, nil
}

func (s *BountyService) GetBounty(ctx context.Context, id string) (*models.BountyWithImage, error) {
	bountyID, err := parseID(id, "bountyId")
	if err != nil {
		return nil, err
	}
	b, err := s.bounties.GetByID(ctx, bountyID)
	if err != nil {
		return nil, err
	}
	return &models.BountyWithImage{Bounty: *b, Image: s.bestEffortImage(ctx, b.CampaignAddress)}, nil
}

func (s *BountyService) bestEffortImage(ctx context.Context, campaignAddress string) *models.ImageRef {
	img, err := s.images.LookupCampaignImage(ctx, campaignAddress)
	if err != nil {
		if !errors.Is(err, apperr.ErrNotFound) {
			s.log.Debug("bounty image lookup failed", zap.String("campaign", campaignAddress), zap.Error(err))
		}
		return nil
	}
	return img
}

type ParticipateInput struct {
	BountyID       string            `json:"bountyId" validate:"required"`
	CreatorAddress string            `json:"creatorAddress" validate:"required"`
	Platforms      []string          `json:"platforms" validate:"required,min=1"`
	PromotionLinks map[string]string `json:"promotionLinks"`
}

// ParticipateInBounty records a pending participation and bumps the bounty's
// recipient count. It returns the participation and the new count.
func (s *BountyService) ParticipateInBounty(ctx context.Context, in ParticipateInput) (*models.BountyParticipation, int, error) {
	in.BountyID = strings.TrimSpace(in.BountyID)
	in.CreatorAddress = models.NormalizeAddress(in.CreatorAddress)
	in.Platforms = models.NormalizePlatforms(in.Platforms)

	if err := s.validate.Struct(in); err != nil {
		return nil, 0, validationError(err)
	}
	bountyID, err := parseID(in.BountyID, "bountyId")
	if err != nil {
		return nil, 0, err
	}

	bounty, err := s.bounties.GetByID(ctx, bountyID)
	if err != nil {
		return nil, 0, err
	}
	if bounty.Status != models.BountyStatusActive {
		return nil, 0, apperr.Ineligible("bounty is not active")
	}
	if !bounty.RequiresAny(in.Platforms) {
		return nil, 0, apperr.Ineligible("missing required platform: bounty requires one of %s", strings.Join(bounty.Platforms, ", "))
	}

	// Fast path for the common repeat submission; Record enforces uniqueness.
	exists, err := s.participations.Exists(ctx, bountyID, in.CreatorAddress)
	if err != nil {
		return nil, 0, err
	}
	if exists {
		return nil, 0, apperr.Duplicate("already participated in this bounty")
	}
	if s.cfg.EnforceMaxRecipients && bounty.IsFull() {
		return nil, 0, apperr.Ineligible("bounty is full (%d/%d recipients)", bounty.CurrentRecipients, bounty.MaxRecipients)
	}

	p := &models.BountyParticipation{
		BountyID:       bountyID,
		CreatorAddress: in.CreatorAddress,
		Platforms:      in.Platforms,
		PromotionLinks: normalizeLinks(in.PromotionLinks),
		Status:         models.ParticipationStatusPending,
	}
	current, err := s.participations.Record(ctx, p, s.cfg.EnforceMaxRecipients)
	if err != nil {
		return nil, 0, err
	}

	s.audit(ctx, &p.CreatorAddress, "user", "participation_created", "bounty", bountyID, map[string]any{
		"participation_id":   p.ID.String(),
		"platforms":          p.Platforms,
		"current_recipients": current,
	})
	s.publish(ctx, events.EventParticipationCreated, map[string]any{
		"bounty_id":          bountyID.String(),
		"participation_id":   p.ID.String(),
		"current_recipients": current,
		"max_recipients":     bounty.MaxRecipients,
	})

	return p, current, nil
}

func normalizeLinks(links map[string]string) map[string]string {
	out := make(map[string]string, len(links))
	for platform, link := range links {
		platform = strings.ToLower(strings.TrimSpace(platform))
		link = strings.TrimSpace(link)
		if platform != "" && link != "" {
			out[platform] = link
		}
	}
	return out
}

// ListParticipations is available to the bounty creator and admins.
func (s *BountyService) ListParticipations(ctx context.Context, bountyID, actor string) ([]models.BountyParticipation, error) {
	id, err := parseID(bountyID, "bountyId")
	if err != nil {
		return nil, err
	}
	bounty, err := s.bounties.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(actor, bounty, rbac.PermViewParticipations); err != nil {
		return nil, err
	}
	return s.participations.ListByBounty(ctx, id)
}

// ReviewParticipation approves or rejects a pending participation. The
// decision is final.
func (s *BountyService) ReviewParticipation(ctx context.Context, participationID, actor, status string) (*models.BountyParticipation, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	if status != models.ParticipationStatusApproved && status != models.ParticipationStatusRejected {
		return nil, apperr.Validation("status must be one of: approved, rejected")
	}

	p, bounty, err := s.participationWithBounty(ctx, participationID)
	if err != nil {
		return nil, err
	}
	actor = models.NormalizeAddress(actor)
	if err := s.authorize(actor, bounty, rbac.PermReviewParticipation); err != nil {
		return nil, err
	}
	if !models.IsValidParticipationTransition(p.Status, status) {
		return nil, apperr.Ineligible("participation is already %s", p.Status)
	}

	now := s.now().UTC()
	ok, err := s.participations.UpdateStatus(ctx, p.ID, p.Status, status, actor, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.Ineligible("participation was already reviewed")
	}

	oldStatus := p.Status
	p.Status = status
	p.ReviewedBy = &actor
	p.ReviewedAt = &now

	s.audit(ctx, &actor, s.actorType(actor), fmt.Sprintf("participation_%s", status), "participation", p.ID, map[string]any{
		"bounty_id":  bounty.ID.String(),
		"old_status": oldStatus,
		"new_status": status,
	})
	s.publish(ctx, events.EventParticipationReviewed, map[string]any{
		"bounty_id":        bounty.ID.String(),
		"participation_id": p.ID.String(),
		"creator_address":  p.CreatorAddress,
		"status":           status,
	})

	return p, nil
}

// CompleteBounty closes an active bounty to new participations.
func (s *BountyService) CompleteBounty(ctx context.Context, bountyID, actor string) (*models.Bounty, error) {
	id, err := parseID(bountyID, "bountyId")
	if err != nil {
		return nil, err
	}
	bounty, err := s.bounties.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	actor = models.NormalizeAddress(actor)
	if err := s.authorize(actor, bounty, rbac.PermCompleteBounty); err != nil {
		return nil, err
	}
	if !models.IsValidBountyTransition(bounty.Status, models.BountyStatusCompleted) {
		return nil, apperr.Ineligible("bounty is already %s", bounty.Status)
	}

	ok, err := s.bounties.UpdateStatus(ctx, id, bounty.Status, models.BountyStatusCompleted)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.Ineligible("bounty is not active")
	}
	bounty.Status = models.BountyStatusCompleted

	s.audit(ctx, &actor, s.actorType(actor), "bounty_completed", "bounty", id, nil)
	s.publish(ctx, events.EventBountyCompleted, map[string]any{
		"bounty_id": id.String(),
		"reason":    "manual",
	})
	return bounty, nil
}

// CompleteExpiredBounties completes every active bounty whose activity window
// has ended and returns how many were closed.
func (s *BountyService) CompleteExpiredBounties(ctx context.Context) (int, error) {
	ids, err := s.bounties.CompleteExpired(ctx, s.now().UTC())
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		s.audit(ctx, nil, "system", "bounty_completed", "bounty", id, map[string]any{"reason": "expired"})
		s.publish(ctx, events.EventBountyCompleted, map[string]any{
			"bounty_id": id.String(),
			"reason":    "expired",
		})
	}
	return len(ids), nil
}

// PreviewPromotionLinks fetches the participant's promotion links for review.
func (s *BountyService) PreviewPromotionLinks(ctx context.Context, participationID, actor string) ([]linkpreview.Preview, error) {
	p, bounty, err := s.participationWithBounty(ctx, participationID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(actor, bounty, rbac.PermPreviewPromotion); err != nil {
		return nil, err
	}
	return s.previewer.FetchAll(ctx, p.PromotionLinks), nil
}

// BountyHistory returns the audit trail of a bounty. Admins only.
func (s *BountyService) BountyHistory(ctx context.Context, bountyID, actor string, limit int) ([]models.AuditLog, error) {
	id, err := parseID(bountyID, "bountyId")
	if err != nil {
		return nil, err
	}
	bounty, err := s.bounties.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(actor, bounty, rbac.PermViewAuditLog); err != nil {
		return nil, err
	}
	return s.auditRepo.GetByEntity(ctx, "bounty", id, limit)
}

func (s *BountyService) participationWithBounty(ctx context.Context, participationID string) (*models.BountyParticipation, *models.Bounty, error) {
	id, err := parseID(participationID, "participationId")
	if err != nil {
		return nil, nil, err
	}
	p, err := s.participations.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	bounty, err := s.bounties.GetByID(ctx, p.BountyID)
	if err != nil {
		return nil, nil, err
	}
	return p, bounty, nil
}

func (s *BountyService) authorize(actor string, bounty *models.Bounty, permission string) error {
	actor = models.NormalizeAddress(actor)
	if actor == "" {
		return apperr.Unauthorized("sign in required")
	}
	role := rbac.RoleFor(actor, bounty.CreatorAddress, s.cfg.IsAdmin(actor))
	if !rbac.HasPermission(role, permission) {
		return apperr.Forbidden("not allowed for role %s", role)
	}
	return nil
}

func (s *BountyService) actorType(actor string) string {
	if s.cfg.IsAdmin(actor) {
		return "admin"
	}
	return "user"
}

func (s *BountyService) audit(ctx context.Context, actor *string, actorType, action, entityType string, entityID uuid.UUID, meta map[string]any) {
	err := s.auditRepo.Log(ctx, models.AuditLog{
		ActorAddress: actor,
		ActorType:    actorType,
		Action:       action,
		EntityType:   entityType,
		EntityID:     &entityID,
		Meta:         meta,
	})
	if err != nil {
		s.log.Warn("audit log failed", zap.String("action", action), zap.Error(err))
	}
}

func (s *BountyService) publish(ctx context.Context, eventType string, payload map[string]any) {
	err := s.publisher.Publish(ctx, events.StreamBounty, events.Event{Type: eventType, Payload: payload})
	if err != nil {
		s.log.Warn("event publish failed", zap.String("type", eventType), zap.Error(err))
	}
}
