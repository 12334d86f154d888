package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event type constants for published events.
const (
	EventTypeResolveRequested = "citation.resolve_requested"
	EventTypeBatchResolved    = "citation.batch_resolved"
)

// Event is the envelope written to the event bus.
type Event struct {
	EventID      string            `json:"event_id"`
	EventVersion int               `json:"event_version"`
	EventType    string            `json:"event_type"`
	AggregateID  string            `json:"aggregate_id"`
	Payload      json.RawMessage   `json:"payload"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

// NewEvent creates a new event with the given parameters.
// The payload is JSON-serialized automatically.
func NewEvent(eventType, aggregateID string, payload interface{}) (*Event, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &Event{
		EventID:      uuid.New().String(),
		EventVersion: 1,
		EventType:    eventType,
		AggregateID:  aggregateID,
		Payload:      payloadBytes,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

// WithMetadata sets the metadata on the event.
func (e *Event) WithMetadata(metadata map[string]string) *Event {
	e.Metadata = metadata
	return e
}

// ResolveRequestedPayload asks a worker to resolve a set of papers.
type ResolveRequestedPayload struct {
	RequestID      string     `json:"request_id"`
	Papers         []PaperRef `json:"papers"`
	MaxConcurrency int        `json:"max_concurrency,omitempty"`
}

// BatchResolvedPayload is the payload for citation.batch_resolved events.
type BatchResolvedPayload struct {
	BatchID        uuid.UUID     `json:"batch_id"`
	RequestID      string        `json:"request_id,omitempty"`
	PaperCount     int           `json:"paper_count"`
	PrimarySuccess int64         `json:"primary_success"`
	FallbackUsed   int64         `json:"fallback_used"`
	CacheHits      int64         `json:"cache_hits"`
	Unavailable    int64         `json:"unavailable"`
	SuccessRate    float64       `json:"success_rate"`
	Advisory       string        `json:"advisory,omitempty"`
	Metrics        []*Metrics    `json:"metrics"`
	Duration       time.Duration `json:"duration_ns"`
}
