package handlers

import (
	"github.com/crowdbounty/backend/internal/http/dto"
	"github.com/crowdbounty/backend/internal/models"
	"github.com/gofiber/fiber/v2"
)

type MetaHandler struct{}

func NewMetaHandler() *MetaHandler {
	return &MetaHandler{}
}

type MetaPlatform struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

var platformLabels = map[string]string{
	models.PlatformTwitter:   "X (Twitter)",
	models.PlatformTikTok:    "TikTok",
	models.PlatformYouTube:   "YouTube",
	models.PlatformTelegram:  "Telegram",
	models.PlatformDiscord:   "Discord",
	models.PlatformInstagram: "Instagram",
}

func (h *MetaHandler) GetPlatforms(c *fiber.Ctx) error {
	out := make([]MetaPlatform, 0, len(models.KnownPlatforms))
	for _, p := range models.KnownPlatforms {
		out = append(out, MetaPlatform{ID: p, Label: platformLabels[p]})
	}
	return dto.OK(c, fiber.Map{"platforms": out})
}
