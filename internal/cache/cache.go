// Package cache provides the durable metric cache consulted before any
// citation provider is called.
//
// # Backends
//
//   - badger: embedded key-value store, the default for single-node deployments
//   - sqlite: single-file SQL store for CLI use
//   - postgres: shared store for several service replicas
//
// Every backend stores a JSON-encoded Entry per normalized paper id. Entries
// live for a fixed TTL; an expired entry reads as a miss and is deleted lazily
// or by Purge. Badger additionally drops an entry itself one
// BadgerExpiryGrace after it expired, so Stats and Purge there only see
// entries that expired within that window.
//
// # Thread Safety
//
// All implementations are safe for concurrent use. Writes to the same key are
// last-write-wins.
package cache

import (
	"context"
	"time"

	"github.com/helixir/citation-graph-service/internal/domain"
)

// DefaultTTL is how long a resolved entry stays valid.
const DefaultTTL = 7 * 24 * time.Hour

// MetricCache stores resolved citation metrics keyed by paper id.
type MetricCache interface {
	// Get returns the cached metrics for key, or domain.ErrCacheMiss when the
	// key is absent or its entry has expired.
	Get(ctx context.Context, key string) (*domain.Metrics, error)

	// Put upserts the metrics for key. Unavailable metrics are rejected.
	Put(ctx context.Context, key string, metrics *domain.Metrics) error

	// Purge deletes expired entries and returns how many were removed.
	Purge(ctx context.Context) (int, error)

	// Stats counts stored entries. It reads every entry.
	Stats(ctx context.Context) (Stats, error)

	// Ping checks that the store answers without scanning it.
	Ping(ctx context.Context) error

	// Close releases the underlying store.
	Close() error
}

// Stats summarizes cache contents.
type Stats struct {
	Backend string        `json:"backend" yaml:"backend"`
	Total   int           `json:"total_entries" yaml:"total_entries"`
	Valid   int           `json:"valid_entries" yaml:"valid_entries"`
	Expired int           `json:"expired_entries" yaml:"expired_entries"`
	TTL     time.Duration `json:"ttl" yaml:"ttl"`
}

// Options are shared by every backend.
type Options struct {
	// TTL is the entry lifetime. Zero means DefaultTTL.
	TTL time.Duration
	// Now overrides the wall clock, for tests.
	Now func() time.Time
}

func (o Options) withDefaults() Options {
	if o.TTL <= 0 {
		o.TTL = DefaultTTL
	}
	if o.Now == nil {
		o.Now = func() time.Time { return time.Now().UTC() }
	}
	return o
}

// Key normalizes a paper id into a cache key.
func Key(paperID string) (string, error) {
	key := domain.NormalizePaperID(paperID)
	if key == "" {
		return "", domain.NewValidationError("key", "cache key is required")
	}
	return key, nil
}

// newEntry validates metrics for storage and stamps the expiry.
func newEntry(metrics *domain.Metrics, now time.Time, ttl time.Duration) (Entry, error) {
	if metrics == nil {
		return Entry{}, domain.NewValidationError("metrics", "metrics are required")
	}
	if metrics.Source == domain.MetricSourceUnavailable {
		return Entry{}, domain.NewValidationError("metrics", "unavailable metrics are not cached")
	}
	if err := metrics.Validate(); err != nil {
		return Entry{}, err
	}

	stored := metrics.Clone()
	if stored.ResolvedAt.IsZero() {
		stored.ResolvedAt = now
	}
	return Entry{Metrics: stored, ExpiresAt: now.Add(ttl)}, nil
}
