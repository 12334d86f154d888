package domain

import (
	"fmt"
	"slices"
	"time"
)

// MetricSource records where a Metrics value came from.
type MetricSource string

const (
	MetricSourcePrimary     MetricSource = "primary"
	MetricSourceFallback    MetricSource = "fallback"
	MetricSourceCache       MetricSource = "cache"
	MetricSourceUnavailable MetricSource = "unavailable"
)

// IsValid reports whether s is one of the known sources.
func (s MetricSource) IsValid() bool {
	switch s {
	case MetricSourcePrimary, MetricSourceFallback, MetricSourceCache, MetricSourceUnavailable:
		return true
	default:
		return false
	}
}

// Metrics holds resolved citation statistics for one paper.
//
// A paper can be named in several id schemes. Aliases lists the other ids
// the provider reported for the paper itself, and ReferenceAliases[k] the
// other ids of the paper ReferenceIDs[k] names.
//
// A Metrics value is never mutated once handed out; use the With* helpers
// to derive a modified copy.
type Metrics struct {
	PaperID                  string       `json:"paper_id" yaml:"paper_id"`
	CitationCount            int          `json:"citation_count" yaml:"citation_count"`
	InfluentialCitationCount int          `json:"influential_citation_count" yaml:"influential_citation_count"`
	Aliases                  []string     `json:"aliases,omitempty" yaml:"aliases,omitempty"`
	ReferenceIDs             []string     `json:"reference_ids,omitempty" yaml:"reference_ids,omitempty"`
	ReferenceAliases         [][]string   `json:"reference_aliases,omitempty" yaml:"reference_aliases,omitempty"`
	Source                   MetricSource `json:"source" yaml:"source"`
	Provider                 string       `json:"provider,omitempty" yaml:"provider,omitempty"`
	Year                     int          `json:"year,omitempty" yaml:"year,omitempty"`
	ResolvedAt               time.Time    `json:"resolved_at" yaml:"resolved_at"`
}

// UnavailableMetrics returns the degraded result used when no provider could
// resolve the paper.
func UnavailableMetrics(paperID string, at time.Time) *Metrics {
	return &Metrics{
		PaperID:    paperID,
		Source:     MetricSourceUnavailable,
		ResolvedAt: at,
	}
}

// Validate checks the count invariants.
func (m *Metrics) Validate() error {
	if m == nil {
		return NewValidationError("metrics", "metrics are nil")
	}
	if m.CitationCount < 0 {
		return NewValidationError("citation_count", fmt.Sprintf("must be >= 0, got %d", m.CitationCount))
	}
	if m.InfluentialCitationCount < 0 {
		return NewValidationError("influential_citation_count", fmt.Sprintf("must be >= 0, got %d", m.InfluentialCitationCount))
	}
	if m.InfluentialCitationCount > m.CitationCount {
		return NewValidationError("influential_citation_count",
			fmt.Sprintf("%d exceeds citation_count %d", m.InfluentialCitationCount, m.CitationCount))
	}
	if !m.Source.IsValid() {
		return NewValidationError("source", fmt.Sprintf("unknown source %q", m.Source))
	}
	return nil
}

// IsResolved reports whether the metrics came from a provider or the cache.
func (m *Metrics) IsResolved() bool {
	return m != nil && m.Source != MetricSourceUnavailable
}

// Clone returns a deep copy.
func (m *Metrics) Clone() *Metrics {
	if m == nil {
		return nil
	}
	c := *m
	c.Aliases = slices.Clone(m.Aliases)
	c.ReferenceIDs = slices.Clone(m.ReferenceIDs)
	if m.ReferenceAliases != nil {
		c.ReferenceAliases = make([][]string, len(m.ReferenceAliases))
		for k, aliases := range m.ReferenceAliases {
			c.ReferenceAliases[k] = slices.Clone(aliases)
		}
	}
	return &c
}

// WithSource returns a copy tagged with the given source.
func (m *Metrics) WithSource(source MetricSource) *Metrics {
	c := m.Clone()
	c.Source = source
	return c
}

// KnownIDs returns the paper id followed by its aliases.
func (m *Metrics) KnownIDs() []string {
	if m == nil {
		return nil
	}
	ids := make([]string, 0, 1+len(m.Aliases))
	if m.PaperID != "" {
		ids = append(ids, m.PaperID)
	}
	return append(ids, m.Aliases...)
}

// ReferenceCandidates returns the ids the k-th reference may be known by,
// its reference id first.
func (m *Metrics) ReferenceCandidates(k int) []string {
	if m == nil || k < 0 || k >= len(m.ReferenceIDs) {
		return nil
	}
	ids := []string{m.ReferenceIDs[k]}
	if k < len(m.ReferenceAliases) {
		ids = append(ids, m.ReferenceAliases[k]...)
	}
	return ids
}

// CitationVelocity returns citations per year since publication, counting
// at least one year. It returns 0 when the publication year is unknown.
func (m *Metrics) CitationVelocity(now time.Time) float64 {
	if m == nil || m.Year <= 0 {
		return 0
	}
	years := max(1, now.Year()-m.Year)
	return float64(m.CitationCount) / float64(years)
}
