package services

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/crowdbounty/backend/internal/apperr"
	"github.com/crowdbounty/backend/internal/imageproxy"
	"github.com/crowdbounty/backend/internal/mediacache"
	"github.com/crowdbounty/backend/internal/models"
	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

// Hosts of object storage providers that hand out expiring signed URLs.
var signedURLHosts = []string{
	"amazonaws.com",
	"storage.googleapis.com",
	"blob.core.windows.net",
	"r2.cloudflarestorage.com",
	"digitaloceanspaces.com",
	"backblazeb2.com",
	"wasabisys.com",
	"supabase.co",
}

// MediaService resolves campaign display images. Reads go through a per-key
// limiter and a short-lived cache before reaching the store.
type MediaService struct {
	images  CampaignImageStore
	cache   mediacache.Cache
	limiter *mediacache.KeyLimiter
	fileURL func(key string) string
	log     *zap.Logger
}

func NewMediaService(
	images CampaignImageStore,
	cache mediacache.Cache,
	limiter *mediacache.KeyLimiter,
	fileURL func(key string) string,
	log *zap.Logger,
) *MediaService {
	return &MediaService{
		images:  images,
		cache:   cache,
		limiter: limiter,
		fileURL: fileURL,
		log:     log,
	}
}

// ResolveCampaignImage returns the display image of a campaign. A repeated
// request for the same campaign inside the limiter window is rejected; within
// the cache TTL both hits and misses are served without a store query.
func (s *MediaService) ResolveCampaignImage(ctx context.Context, campaignAddress string) (*models.ImageRef, error) {
	key := models.NormalizeAddress(campaignAddress)
	if key == "" {
		return nil, apperr.Validation("campaignAddress is required")
	}

	// The limiter runs before the cache, so a repeat inside the window is
	// rejected even when a cached answer exists; the window bounds request
	// rate per campaign, not store load.
	if !s.limiter.Allow(key) {
		return nil, apperr.RateLimited("too many requests for this campaign image, retry shortly")
	}

	entry, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.log.Warn("media cache read failed", zap.String("campaign", key), zap.Error(err))
	}
	if ok {
		return entryResult(entry)
	}

	ref, err := s.LookupCampaignImage(ctx, key)
	switch {
	case err == nil:
		s.store(ctx, key, mediacache.Entry{Image: ref})
		return copyRef(ref), nil
	case errors.Is(err, apperr.ErrNotFound):
		s.store(ctx, key, mediacache.Entry{NotFound: true})
		return nil, err
	default:
		return nil, err
	}
}

// LookupCampaignImage reads the image record straight from the store. A
// stored file takes precedence over an external URL.
func (s *MediaService) LookupCampaignImage(ctx context.Context, campaignAddress string) (*models.ImageRef, error) {
	img, err := s.images.FindByCampaign(ctx, models.NormalizeAddress(campaignAddress))
	if err != nil {
		return nil, err
	}

	switch {
	case img.HasFile():
		u := s.fileURL(*img.FileKey)
		return &models.ImageRef{ImageURL: u, HasFile: true, SuggestProxy: SuggestProxy(u)}, nil
	case img.HasURL():
		return &models.ImageRef{ImageURL: *img.ImageURL, SuggestProxy: SuggestProxy(*img.ImageURL)}, nil
	default:
		return nil, apperr.NotFound("campaign image not found")
	}
}

// SetCampaignImage points a campaign at an external image URL. Only the
// creator who registered the image may replace it.
func (s *MediaService) SetCampaignImage(ctx context.Context, campaignAddress, creatorAddress, imageURL string) (*models.ImageRef, error) {
	if _, err := imageproxy.ParseImageURL(imageURL); err != nil {
		return nil, err
	}
	img := &models.CampaignImage{ImageURL: strPtr(strings.TrimSpace(imageURL))}
	return s.save(ctx, campaignAddress, creatorAddress, img)
}

// AttachFile records an uploaded object as the campaign's image.
func (s *MediaService) AttachFile(ctx context.Context, campaignAddress, creatorAddress, fileKey string) (*models.ImageRef, error) {
	if fileKey == "" {
		return nil, apperr.Validation("file key is required")
	}
	return s.save(ctx, campaignAddress, creatorAddress, &models.CampaignImage{FileKey: strPtr(fileKey)})
}

func (s *MediaService) save(ctx context.Context, campaignAddress, creatorAddress string, img *models.CampaignImage) (*models.ImageRef, error) {
	img.CampaignAddress = models.NormalizeAddress(campaignAddress)
	img.CreatorAddress = models.NormalizeAddress(creatorAddress)
	if img.CampaignAddress == "" {
		return nil, apperr.Validation("campaignAddress is required")
	}
	if img.CreatorAddress == "" {
		return nil, apperr.Validation("creatorAddress is required")
	}

	existing, err := s.images.FindByCampaign(ctx, img.CampaignAddress)
	switch {
	case err == nil:
		if existing.CreatorAddress != img.CreatorAddress {
			return nil, apperr.Forbidden("campaign image belongs to another creator")
		}
	case !errors.Is(err, apperr.ErrNotFound):
		return nil, err
	}

	if err := s.images.Upsert(ctx, img); err != nil {
		return nil, err
	}
	if err := s.Invalidate(ctx, img.CampaignAddress); err != nil {
		s.log.Warn("media cache invalidation failed", zap.String("campaign", img.CampaignAddress), zap.Error(err))
	}
	return s.LookupCampaignImage(ctx, img.CampaignAddress)
}

// Invalidate drops the cached result for a campaign.
func (s *MediaService) Invalidate(ctx context.Context, campaignAddress string) error {
	return s.cache.Delete(ctx, models.NormalizeAddress(campaignAddress))
}

// Sweep evicts expired cache entries and idle limiter keys.
func (s *MediaService) Sweep(ctx context.Context) {
	entries, err := s.cache.Sweep(ctx)
	if err != nil {
		s.log.Warn("media cache sweep failed", zap.Error(err))
	}
	limiters := s.limiter.Sweep()
	s.log.Debug("media sweep done", zap.Int("cache_evicted", entries), zap.Int("limiters_evicted", limiters))
}

// StartSweepScheduler runs Sweep every interval until the returned scheduler
// is shut down.
func (s *MediaService) StartSweepScheduler(interval time.Duration) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			s.Sweep(ctx)
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = sched.Shutdown()
		return nil, err
	}

	sched.Start()
	return sched, nil
}

func (s *MediaService) store(ctx context.Context, key string, entry mediacache.Entry) {
	if err := s.cache.Set(ctx, key, entry); err != nil {
		s.log.Warn("media cache write failed", zap.String("campaign", key), zap.Error(err))
	}
}

func entryResult(e mediacache.Entry) (*models.ImageRef, error) {
	if e.NotFound || e.Image == nil {
		return nil, apperr.NotFound("campaign image not found")
	}
	return copyRef(e.Image), nil
}

func copyRef(ref *models.ImageRef) *models.ImageRef {
	c := *ref
	return &c
}

// SuggestProxy reports whether rawURL is served by a storage provider known
// for expiring signed URLs, so clients should load it through the image proxy.
func SuggestProxy(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, h := range signedURLHosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}
