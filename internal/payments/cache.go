// Package payments holds the session-wide payment cache and its read models.
package payments

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync/atomic"
	"time"

	"github.com/ashureev/cohub/internal/domain"
)

// Fetcher loads payment records, newest first.
type Fetcher interface {
	ListPayments(ctx context.Context) ([]domain.Payment, error)
}

// Snapshot is one immutable fetch result. Callers must not modify Payments.
type Snapshot struct {
	Payments  []domain.Payment
	FetchedAt time.Time
	Loaded    bool
}

// Cache holds the most recent payment snapshot. Refresh swaps the snapshot
// wholesale; readers never block and never observe a partial update.
type Cache struct {
	fetcher Fetcher
	current atomic.Pointer[Snapshot]
	logger  *slog.Logger
}

// NewCache creates an empty cache backed by fetcher.
func NewCache(fetcher Fetcher, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Cache{fetcher: fetcher, logger: logger}
	c.current.Store(&Snapshot{})
	return c
}

// Refresh fetches payments and replaces the snapshot. On failure the
// previous snapshot is kept and the error is returned after logging.
func (c *Cache) Refresh(ctx context.Context) error {
	payments, err := c.fetcher.ListPayments(ctx)
	if err != nil {
		c.logger.Error("Payment fetch failed, keeping previous snapshot", "error", err)
		return fmt.Errorf("fetch payments: %w", err)
	}

	c.current.Store(&Snapshot{
		Payments:  slices.Clone(payments),
		FetchedAt: time.Now(),
		Loaded:    true,
	})
	c.logger.Info("Payment cache refreshed", "count", len(payments))
	return nil
}

// Snapshot returns the current snapshot.
func (c *Cache) Snapshot() *Snapshot {
	return c.current.Load()
}

// Payments returns the cached records, newest first.
func (c *Cache) Payments() []domain.Payment {
	return c.current.Load().Payments
}
