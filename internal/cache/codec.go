package cache

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/helixir/citation-graph-service/internal/domain"
)

// Entry is the stored record for one paper.
type Entry struct {
	Metrics   *domain.Metrics `json:"metrics"`
	ExpiresAt time.Time       `json:"expires_at"`
}

// Expired reports whether the entry is no longer valid at now.
func (e Entry) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

func encodeEntry(e Entry) ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode cache entry: %w", err)
	}
	return data, nil
}

func decodeEntry(data []byte) (Entry, error) {
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return Entry{}, fmt.Errorf("decode cache entry: %w", err)
	}
	if e.Metrics == nil {
		return Entry{}, fmt.Errorf("decode cache entry: missing metrics")
	}
	return e, nil
}
