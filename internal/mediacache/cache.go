// Package mediacache holds the short-lived state that shields the record
// store from bursty campaign image lookups: a result cache and a per-key
// request limiter.
package mediacache

import (
	"context"
	"time"

	"github.com/crowdbounty/backend/internal/models"
)

// Entry is a cached resolution result. A NotFound entry caches a miss.
type Entry struct {
	Image    *models.ImageRef `json:"image,omitempty"`
	NotFound bool             `json:"not_found,omitempty"`
}

// Cache maps campaign addresses to resolution results for a fixed TTL.
type Cache interface {
	Get(ctx context.Context, key string) (Entry, bool, error)
	Set(ctx context.Context, key string, entry Entry) error
	Delete(ctx context.Context, key string) error
	// Sweep drops expired entries and returns how many were removed.
	Sweep(ctx context.Context) (int, error)
}

// Clock returns the current time. Tests substitute a manual clock.
type Clock func() time.Time
