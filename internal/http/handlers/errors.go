package handlers

import (
	"github.com/crowdbounty/backend/internal/apperr"
	"github.com/crowdbounty/backend/internal/http/dto"
	"github.com/crowdbounty/backend/internal/middleware"
	"github.com/crowdbounty/backend/internal/monitoring"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// fail writes err to the client. Server-side failures are also logged and
// reported.
func fail(c *fiber.Ctx, log *zap.Logger, err error) error {
	if apperr.HTTPStatus(err) >= fiber.StatusInternalServerError {
		reqID := middleware.GetRequestID(c)
		log.Error("request failed",
			zap.String("request_id", reqID),
			zap.String("path", c.Path()),
			zap.Error(err),
		)
		monitoring.Error(err, reqID)
	}
	return dto.Error(c, err)
}

func badBody(c *fiber.Ctx) error {
	return dto.Error(c, apperr.Validation("invalid request body"))
}
