package handlers

import (
	"context"
	"io"

	"github.com/crowdbounty/backend/internal/apperr"
	"github.com/crowdbounty/backend/internal/http/dto"
	"github.com/crowdbounty/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type Uploader interface {
	Upload(ctx context.Context, in services.UploadInput) (*services.UploadResult, error)
}

type UploadHandler struct {
	uploads Uploader
	maxSize int64
	log     *zap.Logger
}

func NewUploadHandler(uploads Uploader, maxSize int64, log *zap.Logger) *UploadHandler {
	return &UploadHandler{uploads: uploads, maxSize: maxSize, log: log}
}

// UploadImage accepts a multipart form with a "file" part and optional
// campaignAddress, creatorAddress and campaignName fields.
func (h *UploadHandler) UploadImage(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return dto.Error(c, apperr.Validation("file is required"))
	}

	f, err := fh.Open()
	if err != nil {
		return fail(c, h.log, err)
	}
	defer f.Close()

	// One byte over the limit is enough for the service to reject it.
	data, err := io.ReadAll(io.LimitReader(f, h.maxSize+1))
	if err != nil {
		return fail(c, h.log, err)
	}

	res, err := h.uploads.Upload(c.UserContext(), services.UploadInput{
		Filename:        fh.Filename,
		Data:            data,
		CampaignAddress: c.FormValue("campaignAddress"),
		CreatorAddress:  c.FormValue("creatorAddress"),
		CampaignName:    c.FormValue("campaignName"),
	})
	if err != nil {
		return fail(c, h.log, err)
	}
	return dto.OK(c, fiber.Map{
		"url":         res.URL,
		"fileKey":     res.FileKey,
		"contentType": res.ContentType,
		"size":        res.Size,
		"stored":      res.Stored,
		"image":       res.Image,
	})
}
