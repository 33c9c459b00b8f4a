package http

import (
	"time"

	"github.com/crowdbounty/backend/internal/config"
	"github.com/crowdbounty/backend/internal/http/handlers"
	"github.com/crowdbounty/backend/internal/middleware"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Handlers struct {
	Auth    *handlers.AuthHandler
	Bounty  *handlers.BountyHandler
	Media   *handlers.MediaHandler
	Upload  *handlers.UploadHandler
	Deposit *handlers.DepositHandler
	Meta    *handlers.MetaHandler
	WSHub   *handlers.WSHub
}

// SetupRouter mounts the API under /api. rdb may be nil, which disables the
// per-IP rate limit.
func SetupRouter(app *fiber.App, cfg *config.Config, log *zap.Logger, rdb *redis.Client, h Handlers) {
	// Global middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
		AllowMethods: "GET,POST,PATCH,OPTIONS",
	}))
	app.Use(middleware.RequestIDMiddleware())
	app.Use(middleware.LoggerMiddleware(log))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")
	if rdb != nil {
		api.Use(middleware.RateLimitMiddleware(rdb, cfg.APIRateLimitPerMinute, time.Minute, log))
	}

	// Wallet sign-in
	api.Post("/auth/nonce", h.Auth.Nonce)
	api.Post("/auth/verify", h.Auth.Verify)

	api.Get("/meta/platforms", h.Meta.GetPlatforms)

	// Public bounty endpoints
	api.Post("/bounties/create", h.Bounty.CreateBounty)
	api.Get("/bounties/list", middleware.OptionalAuthMiddleware(cfg), h.Bounty.ListBounties)
	api.Post("/bounties/participate", h.Bounty.Participate)
	api.Post("/bounties/upload-image", h.Upload.UploadImage)
	api.Get("/bounties/deposit", h.Deposit.GetDeposit)
	api.Post("/bounties/deposit", h.Deposit.RecordDeposit)

	// Media
	api.Get("/campaign-image/:campaignAddress", h.Media.CampaignImage)
	api.Get("/image-proxy", h.Media.ImageProxy)
	api.Get("/check-image-status", h.Media.CheckImageStatus)

	// Owner and admin endpoints
	requireAuth := middleware.AuthMiddleware(cfg, log)
	api.Post("/campaign-image", requireAuth, h.Media.SetCampaignImage)
	api.Get("/bounties/:id/participations", requireAuth, h.Bounty.ListParticipations)
	api.Get("/bounties/:id/history", requireAuth, h.Bounty.History)
	api.Post("/bounties/:id/complete", requireAuth, h.Bounty.CompleteBounty)
	api.Patch("/bounties/participations/:id/status", requireAuth, h.Bounty.ReviewParticipation)
	api.Get("/bounties/participations/:id/previews", requireAuth, h.Bounty.PreviewLinks)

	// Registered after the static /bounties/* paths.
	api.Get("/bounties/:id", h.Bounty.GetBounty)

	// WebSocket
	app.Use("/ws", handlers.WSUpgradeMiddleware())
	app.Get("/ws", websocket.New(h.WSHub.HandleWS))
}
