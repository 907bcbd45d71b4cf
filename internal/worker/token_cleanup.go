package worker

import (
	"context" // Worker lifetime
	"sync"    // Stop guard
	"time"    // Tick interval

	"bottle_credits/internal/token" // Token state

	"github.com/sirupsen/logrus" // Logrus for structured logging
	"gorm.io/gorm"               // GORM ORM library
)

// TokenCleanupWorker periodically marks expired unused tokens as used.
// Redemption already treats them as unusable, the sweep only keeps the table tidy.
type TokenCleanupWorker struct {
	db       *gorm.DB
	interval time.Duration
	now      func() time.Time
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewTokenCleanupWorker returns a worker sweeping every interval
func NewTokenCleanupWorker(db *gorm.DB, interval time.Duration) *TokenCleanupWorker {
	return &TokenCleanupWorker{
		db:       db,
		interval: interval,
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
}

// WithClock replaces the clock, used by tests
func (w *TokenCleanupWorker) WithClock(now func() time.Time) *TokenCleanupWorker {
	w.now = now
	return w
}

// Start blocks until Stop is called or ctx is cancelled
func (w *TokenCleanupWorker) Start(ctx context.Context) {
	logrus.WithField("interval", w.interval.String()).Info("Starting token cleanup worker")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := w.RunOnce(ctx); err != nil {
				logrus.WithError(err).Error("Token cleanup failed")
			}
		case <-w.stopChan:
			logrus.Info("Stopping token cleanup worker")
			return
		case <-ctx.Done():
			logrus.Info("Context cancelled, stopping token cleanup worker")
			return
		}
	}
}

// RunOnce performs a single sweep and returns how many tokens it retired
func (w *TokenCleanupWorker) RunOnce(ctx context.Context) (int64, error) {
	n, err := token.NewStore(w.db).ExpireStale(ctx, w.now().UnixMilli())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		logrus.WithField("expired", n).Info("Retired expired QR tokens")
	}
	return n, nil
}

// Stop ends Start. It is safe to call more than once.
func (w *TokenCleanupWorker) Stop() {
	w.stopOnce.Do(func() { close(w.stopChan) })
}
