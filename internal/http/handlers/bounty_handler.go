package handlers

import (
	"context"

	"github.com/crowdbounty/backend/internal/http/dto"
	"github.com/crowdbounty/backend/internal/linkpreview"
	"github.com/crowdbounty/backend/internal/middleware"
	"github.com/crowdbounty/backend/internal/models"
	"github.com/crowdbounty/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type BountyService interface {
	CreateBounty(ctx context.Context, in services.CreateBountyInput) (*models.Bounty, error)
	ListBounties(ctx context.Context, status, userAddress string) ([]models.BountyWithImage, error)
	GetBounty(ctx context.Context, id string) (*models.BountyWithImage, error)
	ParticipateInBounty(ctx context.Context, in services.ParticipateInput) (*models.BountyParticipation, int, error)
	ListParticipations(ctx context.Context, bountyID, actor string) ([]models.BountyParticipation, error)
	ReviewParticipation(ctx context.Context, participationID, actor, status string) (*models.BountyParticipation, error)
	CompleteBounty(ctx context.Context, bountyID, actor string) (*models.Bounty, error)
	PreviewPromotionLinks(ctx context.Context, participationID, actor string) ([]linkpreview.Preview, error)
	BountyHistory(ctx context.Context, bountyID, actor string, limit int) ([]models.AuditLog, error)
}

type BountyHandler struct {
	bounties BountyService
	log      *zap.Logger
}

func NewBountyHandler(bounties BountyService, log *zap.Logger) *BountyHandler {
	return &BountyHandler{bounties: bounties, log: log}
}

func (h *BountyHandler) CreateBounty(c *fiber.Ctx) error {
	var req services.CreateBountyInput
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	bounty, err := h.bounties.CreateBounty(c.UserContext(), req)
	if err != nil {
		return fail(c, h.log, err)
	}
	return dto.Success(c, fiber.StatusCreated, fiber.Map{"bounty": bounty})
}

// ListBounties marks has_participated for userAddress, or for the signed-in
// wallet when the query does not name one.
func (h *BountyHandler) ListBounties(c *fiber.Ctx) error {
	user := c.Query("userAddress", middleware.GetAddress(c))
	bounties, err := h.bounties.ListBounties(c.UserContext(), c.Query("status"), user)
	if err != nil {
		return fail(c, h.log, err)
	}
	return dto.OK(c, fiber.Map{"bounties": bounties})
}

func (h *BountyHandler) GetBounty(c *fiber.Ctx) error {
	bounty, err := h.bounties.GetBounty(c.UserContext(), c.Params("id"))
	if err != nil {
		return fail(c, h.log, err)
	}
	return dto.OK(c, fiber.Map{"bounty": bounty})
}

func (h *BountyHandler) Participate(c *fiber.Ctx) error {
	var req services.ParticipateInput
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	participation, current, err := h.bounties.ParticipateInBounty(c.UserContext(), req)
	if err != nil {
		return fail(c, h.log, err)
	}
	return dto.Success(c, fiber.StatusCreated, fiber.Map{
		"participation":      participation,
		"current_recipients": current,
	})
}

func (h *BountyHandler) ListParticipations(c *fiber.Ctx) error {
	list, err := h.bounties.ListParticipations(c.UserContext(), c.Params("id"), middleware.GetAddress(c))
	if err != nil {
		return fail(c, h.log, err)
	}
	return dto.OK(c, fiber.Map{"participations": list})
}

func (h *BountyHandler) ReviewParticipation(c *fiber.Ctx) error {
	var req dto.ReviewParticipationRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	p, err := h.bounties.ReviewParticipation(c.UserContext(), c.Params("id"), middleware.GetAddress(c), req.Status)
	if err != nil {
		return fail(c, h.log, err)
	}
	return dto.OK(c, fiber.Map{"participation": p})
}

func (h *BountyHandler) PreviewLinks(c *fiber.Ctx) error {
	previews, err := h.bounties.PreviewPromotionLinks(c.UserContext(), c.Params("id"), middleware.GetAddress(c))
	if err != nil {
		return fail(c, h.log, err)
	}
	return dto.OK(c, fiber.Map{"previews": previews})
}

func (h *BountyHandler) CompleteBounty(c *fiber.Ctx) error {
	bounty, err := h.bounties.CompleteBounty(c.UserContext(), c.Params("id"), middleware.GetAddress(c))
	if err != nil {
		return fail(c, h.log, err)
	}
	return dto.OK(c, fiber.Map{"bounty": bounty})
}

func (h *BountyHandler) History(c *fiber.Ctx) error {
	entries, err := h.bounties.BountyHistory(c.UserContext(), c.Params("id"), middleware.GetAddress(c), c.QueryInt("limit", 50))
	if err != nil {
		return fail(c, h.log, err)
	}
	return dto.OK(c, fiber.Map{"history": entries})
}
