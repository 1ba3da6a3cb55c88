// Package guardrails applies abuse limits to the chat surface. Each LLM
// turn costs real money and can move real (demo) funds, so chat traffic
// is rate limited per user over a fixed window.
package guardrails

import (
	"errors"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto"
	"go.uber.org/zap"
)

// ErrRateLimited is returned when a user exceeds the chat turn limit.
var ErrRateLimited = errors.New("rate limit exceeded")

// Config tunes the chat limiter.
type Config struct {
	// TurnsPerWindow is the number of chat turns allowed per window.
	TurnsPerWindow int

	// Window is the measurement window.
	Window time.Duration
}

// DefaultConfig allows 20 turns per minute.
func DefaultConfig() Config {
	return Config{
		TurnsPerWindow: 20,
		Window:         time.Minute,
	}
}

type window struct {
	start time.Time
	count int
}

// Limiter is a fixed-window per-user rate limiter. Windows live in a
// ristretto cache so stale users age out without a sweeper.
type Limiter struct {
	cache  *ristretto.Cache
	cfg    Config
	logger *zap.Logger

	mu  sync.Mutex
	now func() time.Time
}

// NewLimiter creates a Limiter.
func NewLimiter(cfg Config, logger *zap.Logger) (*Limiter, error) {
	if cfg.TurnsPerWindow <= 0 {
		cfg.TurnsPerWindow = DefaultConfig().TurnsPerWindow
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultConfig().Window
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10_000,
		MaxCost:     1_000,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}

	return &Limiter{
		cache:  cache,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}, nil
}

// Allow records one chat turn for the user. It returns ErrRateLimited
// when the user has exhausted the current window.
func (l *Limiter) Allow(userID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	var w *window
	if v, ok := l.cache.Get(userID); ok {
		w = v.(*window)
	}
	if w == nil || now.Sub(w.start) >= l.cfg.Window {
		w = &window{start: now}
		l.cache.SetWithTTL(userID, w, 1, l.cfg.Window)
		// Ristretto admits writes asynchronously; flush so the window is
		// visible to the next call.
		l.cache.Wait()
	}

	if w.count >= l.cfg.TurnsPerWindow {
		l.logger.Warn("chat turn rate limited",
			zap.String("user_id", userID),
			zap.Int("limit", l.cfg.TurnsPerWindow))
		return ErrRateLimited
	}
	w.count++
	return nil
}

// Close releases the underlying cache.
func (l *Limiter) Close() {
	l.cache.Close()
}
