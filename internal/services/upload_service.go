package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/crowdbounty/backend/internal/apperr"
	"github.com/crowdbounty/backend/internal/models"
	"github.com/docker/go-units"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"go.uber.org/zap"
)

const uploadKeyPrefix = "campaign-images"

var imageExtensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
	"image/bmp":  ".bmp",
}

type ObjectStore interface {
	Put(ctx context.Context, key string, body []byte, contentType string) error
	PublicURL(key string) string
}

type CampaignFileAttacher interface {
	AttachFile(ctx context.Context, campaignAddress, creatorAddress, fileKey string) (*models.ImageRef, error)
}

type UploadInput struct {
	Filename        string
	Data            []byte
	CampaignAddress string
	CreatorAddress  string
	CampaignName    string
}

type UploadResult struct {
	URL         string           `json:"url"`
	FileKey     string           `json:"file_key,omitempty"`
	ContentType string           `json:"content_type"`
	Size        int              `json:"size"`
	Stored      bool             `json:"stored"`
	Image       *models.ImageRef `json:"image,omitempty"`
}

// UploadService turns uploaded images into a storable form: an object in the
// bucket when one is configured, a data URL otherwise.
type UploadService struct {
	store   ObjectStore
	media   CampaignFileAttacher
	maxSize int64
	log     *zap.Logger
}

// NewUploadService accepts a nil store.
func NewUploadService(store ObjectStore, media CampaignFileAttacher, maxSize int64, log *zap.Logger) *UploadService {
	return &UploadService{store: store, media: media, maxSize: maxSize, log: log}
}

func (s *UploadService) Upload(ctx context.Context, in UploadInput) (*UploadResult, error) {
	if len(in.Data) == 0 {
		return nil, apperr.Validation("file is required")
	}
	if int64(len(in.Data)) > s.maxSize {
		return nil, apperr.Validation("file exceeds the %s limit", units.HumanSize(float64(s.maxSize)))
	}

	contentType := http.DetectContentType(in.Data)
	if !strings.HasPrefix(contentType, "image/") {
		return nil, apperr.Validation("file must be an image, got %s", contentType)
	}

	res := &UploadResult{ContentType: contentType, Size: len(in.Data)}
	if s.store == nil {
		res.URL = "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(in.Data)
		return res, nil
	}

	key := objectKey(in.CampaignName, in.Filename, contentType)
	if err := s.store.Put(ctx, key, in.Data, contentType); err != nil {
		return nil, apperr.Upstream(0, err, "failed to store image")
	}
	res.URL = s.store.PublicURL(key)
	res.FileKey = key
	res.Stored = true

	campaign := models.NormalizeAddress(in.CampaignAddress)
	creator := models.NormalizeAddress(in.CreatorAddress)
	if campaign != "" && creator != "" {
		img, err := s.media.AttachFile(ctx, campaign, creator, key)
		if err != nil {
			return nil, err
		}
		res.Image = img
	}

	s.log.Info("image uploaded", zap.String("key", key), zap.Int("size", len(in.Data)))
	return res, nil
}

// objectKey builds campaign-images/<slug>-<uuid><ext>.
func objectKey(campaignName, filename, contentType string) string {
	base := campaignName
	if base == "" {
		base = strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	}
	name := slug.Make(base)
	if name == "" || name == "." {
		name = "image"
	}

	ext, ok := imageExtensions[contentType]
	if !ok {
		ext = strings.ToLower(filepath.Ext(filename))
	}
	return fmt.Sprintf("%s/%s-%s%s", uploadKeyPrefix, name, uuid.NewString(), ext)
}
