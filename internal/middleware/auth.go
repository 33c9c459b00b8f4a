package middleware

import (
	"strings"

	"github.com/crowdbounty/backend/internal/apperr"
	"github.com/crowdbounty/backend/internal/auth"
	"github.com/crowdbounty/backend/internal/config"
	"github.com/crowdbounty/backend/internal/http/dto"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const CtxAddress = "address"

// AuthMiddleware requires a bearer session token and stores its wallet
// address in the request locals.
func AuthMiddleware(cfg *config.Config, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return dto.Error(c, apperr.Unauthorized("missing authorization header"))
		}

		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenStr == authHeader {
			return dto.Error(c, apperr.Unauthorized("invalid authorization format"))
		}

		claims, err := auth.ParseJWT(cfg.JWTSecret, tokenStr)
		if err != nil {
			log.Debug("jwt parse error", zap.Error(err))
			return dto.Error(c, apperr.Unauthorized("invalid or expired token"))
		}

		c.Locals(CtxAddress, claims.Address)
		return c.Next()
	}
}

// OptionalAuthMiddleware sets the address when a valid token is present and
// lets anonymous requests through unchanged.
func OptionalAuthMiddleware(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenStr, ok := strings.CutPrefix(c.Get("Authorization"), "Bearer ")
		if ok && tokenStr != "" {
			if claims, err := auth.ParseJWT(cfg.JWTSecret, tokenStr); err == nil {
				c.Locals(CtxAddress, claims.Address)
			}
		}
		return c.Next()
	}
}

// GetAddress returns the signed-in wallet address, or "".
func GetAddress(c *fiber.Ctx) string {
	addr, _ := c.Locals(CtxAddress).(string)
	return addr
}
