package handlers

import (
	"context"

	"github.com/crowdbounty/backend/internal/http/dto"
	"github.com/crowdbounty/backend/internal/models"
	"github.com/crowdbounty/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type DepositService interface {
	DepositAddress() (string, error)
	RecordDeposit(ctx context.Context, in services.RecordDepositInput) (*models.BountyDeposit, error)
	ListDeposits(ctx context.Context, campaignAddress string, limit int) ([]models.BountyDeposit, error)
}

type DepositHandler struct {
	deposits DepositService
	log      *zap.Logger
}

func NewDepositHandler(deposits DepositService, log *zap.Logger) *DepositHandler {
	return &DepositHandler{deposits: deposits, log: log}
}

// GetDeposit returns the custodial deposit address, plus the recorded
// deposits of a campaign when campaignAddress is given.
func (h *DepositHandler) GetDeposit(c *fiber.Ctx) error {
	addr, err := h.deposits.DepositAddress()
	if err != nil {
		return fail(c, h.log, err)
	}

	payload := fiber.Map{"depositAddress": addr}
	if campaign := c.Query("campaignAddress"); campaign != "" {
		list, err := h.deposits.ListDeposits(c.UserContext(), campaign, c.QueryInt("limit", 50))
		if err != nil {
			return fail(c, h.log, err)
		}
		payload["deposits"] = list
	}
	return dto.OK(c, payload)
}

func (h *DepositHandler) RecordDeposit(c *fiber.Ctx) error {
	var req services.RecordDepositInput
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	d, err := h.deposits.RecordDeposit(c.UserContext(), req)
	if err != nil {
		return fail(c, h.log, err)
	}
	return dto.Success(c, fiber.StatusCreated, fiber.Map{
		"deposit":        d,
		"depositAddress": d.CustodialAddress,
	})
}
