// Package dto holds the JSON envelopes of the HTTP API.
package dto

import (
	"github.com/crowdbounty/backend/internal/apperr"
	"github.com/gofiber/fiber/v2"
)

type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// Error writes err as {error, code} with the status its kind maps to.
func Error(c *fiber.Ctx, err error) error {
	code := string(apperr.KindOf(err))
	if code == "" {
		code = "internal"
	}
	return c.Status(apperr.HTTPStatus(err)).JSON(ErrorResponse{
		Error:     apperr.Message(err),
		Code:      code,
		RequestID: c.GetRespHeader("X-Request-ID"),
	})
}

// Success writes {success: true, ...payload}.
func Success(c *fiber.Ctx, status int, payload fiber.Map) error {
	body := fiber.Map{"success": true}
	for k, v := range payload {
		body[k] = v
	}
	return c.Status(status).JSON(body)
}

// OK is Success with 200.
func OK(c *fiber.Ctx, payload fiber.Map) error {
	return Success(c, fiber.StatusOK, payload)
}
