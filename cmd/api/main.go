package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/crowdbounty/backend/internal/config"
	"github.com/crowdbounty/backend/internal/db"
	"github.com/crowdbounty/backend/internal/events"
	apphttp "github.com/crowdbounty/backend/internal/http"
	"github.com/crowdbounty/backend/internal/http/dto"
	"github.com/crowdbounty/backend/internal/http/handlers"
	"github.com/crowdbounty/backend/internal/imageproxy"
	"github.com/crowdbounty/backend/internal/linkpreview"
	"github.com/crowdbounty/backend/internal/mediacache"
	"github.com/crowdbounty/backend/internal/monitoring"
	"github.com/crowdbounty/backend/internal/objectstore"
	"github.com/crowdbounty/backend/internal/repositories"
	"github.com/crowdbounty/backend/internal/services"
	"github.com/crowdbounty/backend/migrations"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	cfg.Validate(log)

	if err := monitoring.Init(cfg.SentryDSN, "api"); err != nil {
		log.Warn("sentry init failed", zap.Error(err))
	}
	defer monitoring.Flush(2 * time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	if err := db.RunMigrations(ctx, pool, migrations.FS, log); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	// Redis
	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	// Repositories
	bountyRepo := repositories.NewBountyRepo(pool)
	participationRepo := repositories.NewParticipationRepo(pool)
	imageRepo := repositories.NewCampaignImageRepo(pool)
	depositRepo := repositories.NewDepositRepo(pool)
	nonceRepo := repositories.NewAuthNonceRepo(pool)
	auditRepo := repositories.NewAuditRepo(pool)

	// Events
	publisher := events.NewRedisPublisher(rdb, log)
	subscriber := events.NewRedisSubscriber(rdb, log)

	// Media
	cache, err := newMediaCache(cfg, rdb)
	if err != nil {
		log.Fatal("failed to create media cache", zap.Error(err))
	}
	limiter := mediacache.NewKeyLimiter(cfg.MediaRateLimitWindow, time.Now)

	var store services.ObjectStore
	fileURL := func(key string) string { return objectstore.PublicURL(cfg.MediaPublicBaseURL, key) }
	if cfg.ObjectStoreEnabled() {
		s3Store, err := objectstore.New(ctx, objectstore.Options{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			Bucket:          cfg.S3Bucket,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			PublicBaseURL:   cfg.MediaPublicBaseURL,
		})
		if err != nil {
			log.Fatal("failed to create object store", zap.Error(err))
		}
		store = s3Store
		fileURL = s3Store.PublicURL
	}

	// Services
	mediaService := services.NewMediaService(imageRepo, cache, limiter, fileURL, log)
	previewer := linkpreview.NewFetcher(cfg.LinkPreviewTimeoutMS, cfg.LinkPreviewMaxRetries, log)
	bountyService := services.NewBountyService(bountyRepo, participationRepo, mediaService, auditRepo, previewer, publisher, cfg, log)
	uploadService := services.NewUploadService(store, mediaService, cfg.UploadMaxSize, log)
	depositService := services.NewDepositService(depositRepo, bountyRepo, auditRepo, cfg, log)
	authService := services.NewAuthService(nonceRepo, cfg, log)
	proxy := imageproxy.New(cfg.ImageProxyTimeout, cfg.ImageProxyMaxBytes)
	if cfg.ImageProxyAllowPrivate {
		proxy.AllowPrivateNetworks()
	}

	sweeper, err := mediaService.StartSweepScheduler(cfg.MediaSweepInterval)
	if err != nil {
		log.Fatal("failed to start media sweeper", zap.Error(err))
	}
	defer func() { _ = sweeper.Shutdown() }()

	// Handlers
	wsHub := handlers.NewWSHub(cfg, subscriber, log)
	if err := wsHub.Start(ctx); err != nil {
		log.Fatal("failed to subscribe to events", zap.Error(err))
	}

	h := apphttp.Handlers{
		Auth:    handlers.NewAuthHandler(authService, log),
		Bounty:  handlers.NewBountyHandler(bountyService, log),
		Media:   handlers.NewMediaHandler(mediaService, proxy, log),
		Upload:  handlers.NewUploadHandler(uploadService, cfg.UploadMaxSize, log),
		Deposit: handlers.NewDepositHandler(depositService, log),
		Meta:    handlers.NewMetaHandler(),
		WSHub:   wsHub,
	}

	// Fiber app
	app := fiber.New(fiber.Config{
		BodyLimit: int(cfg.UploadMaxSize) + 1<<20,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if e, ok := err.(*fiber.Error); ok {
				return c.Status(e.Code).JSON(dto.ErrorResponse{Error: e.Message, Code: "http"})
			}
			log.Error("unhandled error", zap.String("path", c.Path()), zap.Error(err))
			monitoring.Error(err, c.GetRespHeader("X-Request-ID"))
			return dto.Error(c, err)
		},
	})

	apphttp.SetupRouter(app, cfg, log, rdb, h)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")
		cancel()
		_ = app.ShutdownWithTimeout(10 * time.Second)
	}()

	addr := fmt.Sprintf(":%s", cfg.APIPort)
	log.Info("starting API server", zap.String("addr", addr), zap.String("media_cache", cfg.MediaCacheBackend))
	if err := app.Listen(addr); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}

// newMediaCache picks the per-process LRU or the shared Redis cache.
func newMediaCache(cfg *config.Config, rdb *redis.Client) (mediacache.Cache, error) {
	if cfg.MediaCacheBackend == config.MediaCacheRedis {
		return mediacache.NewRedisCache(rdb, cfg.MediaCacheTTL), nil
	}
	return mediacache.NewMemoryCache(cfg.MediaCacheTTL, cfg.MediaCacheMaxEntries, time.Now)
}
