package cache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"

	"github.com/helixir/citation-graph-service/internal/domain"
)

// Compile-time interface verification.
var _ MetricCache = (*BadgerCache)(nil)

var badgerKeyPrefix = []byte("metrics/")

// BadgerExpiryGrace is how long badger keeps an entry past its expiry.
// Within it the entry is still counted by Stats and removed by Purge.
const BadgerExpiryGrace = 24 * time.Hour

// purgeChunk bounds the deletes per transaction to stay under badger's txn size limit.
const purgeChunk = 1000

// BadgerConfig configures the embedded badger store.
type BadgerConfig struct {
	// Path is the data directory. Ignored when InMemory is true.
	Path string
	// InMemory keeps everything in RAM, for tests.
	InMemory bool
	// SyncWrites fsyncs every commit.
	SyncWrites bool
	// GCInterval is how often value-log GC runs. Zero disables it.
	GCInterval time.Duration
	// GCDiscardRatio is the minimum garbage ratio that triggers a rewrite.
	GCDiscardRatio float64
}

// BadgerCache is a MetricCache backed by BadgerDB. Each Put is a single
// transaction, so a crash never leaves a partially written entry.
type BadgerCache struct {
	db     *badger.DB
	gc     *gcRunner
	opts   Options
	logger zerolog.Logger
}

// OpenBadger opens (or creates) a badger cache.
func OpenBadger(cfg BadgerConfig, opts Options, logger zerolog.Logger) (*BadgerCache, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent cache")
	}

	var bopts badger.Options
	if cfg.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create cache directory %s: %w", cfg.Path, err)
		}
		bopts = badger.DefaultOptions(cfg.Path)
	}
	bopts = bopts.
		WithSyncWrites(cfg.SyncWrites).
		WithNumVersionsToKeep(1).
		WithLogger(&badgerLogger{logger: logger})

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("open badger cache: %w", err)
	}

	c := &BadgerCache{
		db:     db,
		opts:   opts.withDefaults(),
		logger: logger.With().Str("component", "badger_cache").Logger(),
	}

	if cfg.GCInterval > 0 && !cfg.InMemory {
		ratio := cfg.GCDiscardRatio
		if ratio <= 0 || ratio >= 1 {
			ratio = 0.5
		}
		c.gc = newGCRunner(db, cfg.GCInterval, ratio, c.logger)
		c.gc.start()
	}

	return c, nil
}

func badgerKey(key string) []byte {
	return append(bytes.Clone(badgerKeyPrefix), key...)
}

// Get implements MetricCache.
func (c *BadgerCache) Get(ctx context.Context, key string) (*domain.Metrics, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key, err := Key(key)
	if err != nil {
		return nil, err
	}

	var entry Entry
	err = c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(badgerKey(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			entry, err = decodeEntry(val)
			return err
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, domain.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("badger get %s: %w", key, err)
	}

	now := c.opts.Now()
	if entry.Expired(now) {
		c.deleteIfExpired(key, now)
		return nil, domain.ErrCacheMiss
	}
	return entry.Metrics, nil
}

// deleteIfExpired removes key unless a concurrent Put refreshed it.
func (c *BadgerCache) deleteIfExpired(key string, now time.Time) {
	err := c.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(badgerKey(key))
		if err != nil {
			return err
		}
		var entry Entry
		if err := item.Value(func(val []byte) error {
			entry, err = decodeEntry(val)
			return err
		}); err != nil {
			return err
		}
		if !entry.Expired(now) {
			return nil
		}
		return txn.Delete(badgerKey(key))
	})
	if err != nil && !errors.Is(err, badger.ErrKeyNotFound) && !errors.Is(err, badger.ErrConflict) {
		c.logger.Warn().Err(err).Str("key", key).Msg("failed to delete expired cache entry")
	}
}

// Put implements MetricCache.
func (c *BadgerCache) Put(ctx context.Context, key string, metrics *domain.Metrics) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key, err := Key(key)
	if err != nil {
		return err
	}

	now := c.opts.Now()
	entry, err := newEntry(metrics, now, c.opts.TTL)
	if err != nil {
		return err
	}
	data, err := encodeEntry(entry)
	if err != nil {
		return err
	}

	// The badger TTL lets compaction drop keys nobody reads again.
	e := badger.NewEntry(badgerKey(key), data).WithTTL(c.opts.TTL + BadgerExpiryGrace)
	if err := c.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(e)
	}); err != nil {
		return fmt.Errorf("badger put %s: %w", key, err)
	}
	return nil
}

// Purge implements MetricCache.
func (c *BadgerCache) Purge(ctx context.Context) (int, error) {
	removed := 0
	for {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		n, err := c.purgeOnce(c.opts.Now())
		removed += n
		if err != nil {
			return removed, fmt.Errorf("badger purge: %w", err)
		}
		if n < purgeChunk {
			return removed, nil
		}
	}
}

func (c *BadgerCache) purgeOnce(now time.Time) (int, error) {
	deleted := 0
	err := c.db.Update(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		var expired [][]byte
		for it.Seek(badgerKeyPrefix); it.ValidForPrefix(badgerKeyPrefix) && len(expired) < purgeChunk; it.Next() {
			item := it.Item()
			var entry Entry
			err := item.Value(func(val []byte) error {
				var err error
				entry, err = decodeEntry(val)
				return err
			})
			if err != nil || entry.Expired(now) {
				expired = append(expired, item.KeyCopy(nil))
			}
		}

		for _, k := range expired {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		deleted = len(expired)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

// Stats implements MetricCache.
func (c *BadgerCache) Stats(ctx context.Context) (Stats, error) {
	if err := ctx.Err(); err != nil {
		return Stats{}, err
	}

	stats := Stats{Backend: "badger", TTL: c.opts.TTL}
	now := c.opts.Now()
	err := c.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(badgerKeyPrefix); it.ValidForPrefix(badgerKeyPrefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			stats.Total++
			var entry Entry
			err := it.Item().Value(func(val []byte) error {
				var err error
				entry, err = decodeEntry(val)
				return err
			})
			if err != nil || entry.Expired(now) {
				stats.Expired++
				continue
			}
			stats.Valid++
		}
		return nil
	})
	if err != nil {
		return Stats{}, fmt.Errorf("badger stats: %w", err)
	}
	return stats, nil
}

// Ping implements MetricCache.
func (c *BadgerCache) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := c.db.View(func(*badger.Txn) error { return nil }); err != nil {
		return fmt.Errorf("badger ping: %w", err)
	}
	return nil
}

// Close stops the GC runner and closes the database.
func (c *BadgerCache) Close() error {
	if c.gc != nil {
		c.gc.stop()
	}
	return c.db.Close()
}

// gcRunner periodically rewrites the value log.
type gcRunner struct {
	db       *badger.DB
	interval time.Duration
	ratio    float64
	stopCh   chan struct{}
	doneCh   chan struct{}
	logger   zerolog.Logger
}

func newGCRunner(db *badger.DB, interval time.Duration, ratio float64, logger zerolog.Logger) *gcRunner {
	return &gcRunner{
		db:       db,
		interval: interval,
		ratio:    ratio,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
		logger:   logger,
	}
}

func (r *gcRunner) start() {
	go r.run()
}

func (r *gcRunner) stop() {
	close(r.stopCh)
	<-r.doneCh
}

func (r *gcRunner) run() {
	defer close(r.doneCh)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C:
			// ErrNoRewrite means there was nothing worth collecting.
			if err := r.db.RunValueLogGC(r.ratio); err != nil && !errors.Is(err, badger.ErrNoRewrite) {
				r.logger.Warn().Err(err).Msg("badger value log GC failed")
			}
		}
	}
}

// badgerLogger adapts zerolog to badger's Logger interface. Badger is chatty
// at info level, so its info and debug output is logged at debug.
type badgerLogger struct {
	logger zerolog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error().Msgf(format, args...)
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn().Msgf(format, args...)
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug().Msgf(format, args...)
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug().Msgf(format, args...)
}
