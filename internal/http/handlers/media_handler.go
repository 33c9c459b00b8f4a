package handlers

import (
	"context"

	"github.com/crowdbounty/backend/internal/http/dto"
	"github.com/crowdbounty/backend/internal/imageproxy"
	"github.com/crowdbounty/backend/internal/middleware"
	"github.com/crowdbounty/backend/internal/models"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type MediaService interface {
	ResolveCampaignImage(ctx context.Context, campaignAddress string) (*models.ImageRef, error)
	SetCampaignImage(ctx context.Context, campaignAddress, creatorAddress, imageURL string) (*models.ImageRef, error)
}

type ImageFetcher interface {
	Fetch(ctx context.Context, rawURL string) (*imageproxy.Image, error)
	Probe(ctx context.Context, rawURL string) (*imageproxy.ProbeResult, error)
}

type MediaHandler struct {
	media MediaService
	proxy ImageFetcher
	log   *zap.Logger
}

func NewMediaHandler(media MediaService, proxy ImageFetcher, log *zap.Logger) *MediaHandler {
	return &MediaHandler{media: media, proxy: proxy, log: log}
}

func (h *MediaHandler) CampaignImage(c *fiber.Ctx) error {
	img, err := h.media.ResolveCampaignImage(c.UserContext(), c.Params("campaignAddress"))
	if err != nil {
		return fail(c, h.log, err)
	}
	return dto.OK(c, fiber.Map{
		"imageUrl":     img.ImageURL,
		"hasFile":      img.HasFile,
		"suggestProxy": img.SuggestProxy,
	})
}

// SetCampaignImage records an external image URL for a campaign owned by the
// signed-in wallet.
func (h *MediaHandler) SetCampaignImage(c *fiber.Ctx) error {
	var req dto.SetCampaignImageRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	img, err := h.media.SetCampaignImage(c.UserContext(), req.CampaignAddress, middleware.GetAddress(c), req.ImageURL)
	if err != nil {
		return fail(c, h.log, err)
	}
	return dto.OK(c, fiber.Map{"image": img})
}

// ImageProxy relays a remote image from the API origin.
func (h *MediaHandler) ImageProxy(c *fiber.Ctx) error {
	img, err := h.proxy.Fetch(c.UserContext(), c.Query("url"))
	if err != nil {
		return fail(c, h.log, err)
	}

	c.Set(fiber.HeaderContentType, img.ContentType)
	c.Set(fiber.HeaderCacheControl, "public, max-age=3600")
	c.Set("X-Content-Type-Options", "nosniff")
	return c.Send(img.Body)
}

func (h *MediaHandler) CheckImageStatus(c *fiber.Ctx) error {
	res, err := h.proxy.Probe(c.UserContext(), c.Query("url"))
	if err != nil {
		return fail(c, h.log, err)
	}
	return dto.OK(c, fiber.Map{
		"ok":            res.OK,
		"status":        res.Status,
		"contentType":   res.ContentType,
		"contentLength": res.ContentLength,
		"isImage":       res.IsImage,
	})
}
