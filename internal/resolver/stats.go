package resolver

import (
	"sync/atomic"

	"github.com/helixir/citation-graph-service/internal/domain"
)

// Stats counts resolution outcomes. It is safe for concurrent use and is
// shared by reference between the workers of a batch.
type Stats struct {
	primarySuccess atomic.Int64
	fallbackUsed   atomic.Int64
	cacheHits      atomic.Int64
	unavailable    atomic.Int64
}

// StatsSnapshot is a point-in-time copy of Stats.
type StatsSnapshot struct {
	PrimarySuccess int64 `json:"primary_success" yaml:"primary_success"`
	FallbackUsed   int64 `json:"fallback_used" yaml:"fallback_used"`
	CacheHits      int64 `json:"cache_hits" yaml:"cache_hits"`
	Unavailable    int64 `json:"unavailable" yaml:"unavailable"`
}

// Record counts one finished resolution by the source of its metrics.
func (s *Stats) Record(source domain.MetricSource) {
	if s == nil {
		return
	}
	switch source {
	case domain.MetricSourcePrimary:
		s.primarySuccess.Add(1)
	case domain.MetricSourceFallback:
		s.fallbackUsed.Add(1)
	case domain.MetricSourceCache:
		s.cacheHits.Add(1)
	default:
		s.unavailable.Add(1)
	}
}

// Snapshot returns the current counters.
func (s *Stats) Snapshot() StatsSnapshot {
	if s == nil {
		return StatsSnapshot{}
	}
	return StatsSnapshot{
		PrimarySuccess: s.primarySuccess.Load(),
		FallbackUsed:   s.fallbackUsed.Load(),
		CacheHits:      s.cacheHits.Load(),
		Unavailable:    s.unavailable.Load(),
	}
}

// SuccessRate is the share of resolutions that produced metrics.
func (s *Stats) SuccessRate() float64 {
	return s.Snapshot().SuccessRate()
}

// Total returns the number of recorded resolutions.
func (s StatsSnapshot) Total() int64 {
	return s.PrimarySuccess + s.FallbackUsed + s.CacheHits + s.Unavailable
}

// Resolved returns the number of resolutions that produced metrics.
func (s StatsSnapshot) Resolved() int64 {
	return s.PrimarySuccess + s.FallbackUsed + s.CacheHits
}

// SuccessRate returns Resolved/Total, or 0 when nothing was recorded.
func (s StatsSnapshot) SuccessRate() float64 {
	total := s.Total()
	if total == 0 {
		return 0
	}
	return float64(s.Resolved()) / float64(total)
}
