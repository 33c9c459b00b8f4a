package mediacache

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type keyLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// KeyLimiter admits at most one request per key per window. It is local to
// the process.
type KeyLimiter struct {
	mu       sync.Mutex
	limiters map[string]*keyLimiter
	window   time.Duration
	clock    Clock
}

func NewKeyLimiter(window time.Duration, clock Clock) *KeyLimiter {
	if clock == nil {
		clock = time.Now
	}
	return &KeyLimiter{
		limiters: make(map[string]*keyLimiter),
		window:   window,
		clock:    clock,
	}
}

// Allow reports whether a request for key may proceed now.
func (l *KeyLimiter) Allow(key string) bool {
	now := l.clock()

	l.mu.Lock()
	defer l.mu.Unlock()

	kl, ok := l.limiters[key]
	if !ok {
		kl = &keyLimiter{limiter: rate.NewLimiter(rate.Every(l.window), 1)}
		l.limiters[key] = kl
	}
	kl.lastSeen = now
	return kl.limiter.AllowN(now, 1)
}

// Sweep forgets keys idle for longer than the window; their limiters would
// admit the next request anyway.
func (l *KeyLimiter) Sweep() int {
	now := l.clock()

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, kl := range l.limiters {
		if now.Sub(kl.lastSeen) > l.window {
			delete(l.limiters, key)
			removed++
		}
	}
	return removed
}

func (l *KeyLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}
