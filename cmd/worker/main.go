package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/crowdbounty/backend/internal/config"
	"github.com/crowdbounty/backend/internal/db"
	"github.com/crowdbounty/backend/internal/events"
	"github.com/crowdbounty/backend/internal/monitoring"
	"github.com/crowdbounty/backend/internal/repositories"
	"github.com/crowdbounty/backend/internal/services"
	"go.uber.org/zap"
)

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	if err := monitoring.Init(cfg.SentryDSN, "worker"); err != nil {
		log.Warn("sentry init failed", zap.Error(err))
	}
	defer monitoring.Flush(2 * time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	// Expiry needs neither image lookups nor link previews.
	bountyService := services.NewBountyService(
		repositories.NewBountyRepo(pool),
		repositories.NewParticipationRepo(pool),
		nil,
		repositories.NewAuditRepo(pool),
		nil,
		events.NewRedisPublisher(rdb, log),
		cfg,
		log,
	)

	log.Info("worker started", zap.Duration("expiry_interval", cfg.WorkerExpiryInterval))

	expiryTicker := time.NewTicker(cfg.WorkerExpiryInterval)
	defer expiryTicker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	runExpiry(ctx, bountyService, log)
	for {
		select {
		case <-expiryTicker.C:
			runExpiry(ctx, bountyService, log)
		case <-sigCh:
			log.Info("shutting down worker")
			cancel()
			return
		case <-ctx.Done():
			return
		}
	}
}

func runExpiry(ctx context.Context, bountyService *services.BountyService, log *zap.Logger) {
	n, err := bountyService.CompleteExpiredBounties(ctx)
	if err != nil {
		log.Error("failed to complete expired bounties", zap.Error(err))
		monitoring.Error(err, "")
		return
	}
	if n > 0 {
		log.Info("completed expired bounties", zap.Int("count", n))
	}
}
