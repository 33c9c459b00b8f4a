package handlers

import (
	"context"

	"github.com/crowdbounty/backend/internal/http/dto"
	"github.com/crowdbounty/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type WalletAuth interface {
	IssueNonce(ctx context.Context, address string) (*services.NonceChallenge, error)
	Verify(ctx context.Context, address, signature string) (*services.Session, error)
}

type AuthHandler struct {
	auth WalletAuth
	log  *zap.Logger
}

func NewAuthHandler(auth WalletAuth, log *zap.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, log: log}
}

func (h *AuthHandler) Nonce(c *fiber.Ctx) error {
	var req dto.NonceRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	challenge, err := h.auth.IssueNonce(c.UserContext(), req.Address)
	if err != nil {
		return fail(c, h.log, err)
	}
	return dto.OK(c, fiber.Map{"challenge": challenge})
}

func (h *AuthHandler) Verify(c *fiber.Ctx) error {
	var req dto.VerifyRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	session, err := h.auth.Verify(c.UserContext(), req.Address, req.Signature)
	if err != nil {
		return fail(c, h.log, err)
	}
	return dto.OK(c, fiber.Map{
		"token":   session.Token,
		"address": session.Address,
		"isAdmin": session.IsAdmin,
	})
}
