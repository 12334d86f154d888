package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/helixir/citation-graph-service/internal/batch"
	"github.com/helixir/citation-graph-service/internal/domain"
	"github.com/helixir/citation-graph-service/internal/observability"
)

// MessageReader is the part of *kafka.Reader the listener uses.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// BatchResolver runs a batch. *batch.Coordinator satisfies it.
type BatchResolver interface {
	ResolveMany(ctx context.Context, papers []domain.PaperRef, maxConcurrency int) (*batch.Result, error)
}

// ListenerConfig holds configuration for the request listener.
type ListenerConfig struct {
	// Brokers is the list of Kafka broker addresses.
	Brokers []string
	// Topic carries citation.resolve_requested events.
	Topic string
	// GroupID is the consumer group ID.
	GroupID string
}

// RequestListener consumes resolve requests from Kafka and runs each one as a batch.
type RequestListener struct {
	reader   MessageReader
	resolver BatchResolver
	logger   zerolog.Logger
}

// NewRequestListener creates a listener with a consumer-group kafka.Reader.
func NewRequestListener(cfg ListenerConfig, resolver BatchResolver, logger zerolog.Logger) *RequestListener {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  3 * time.Second,
	})
	return NewRequestListenerWithReader(reader, resolver, logger)
}

// NewRequestListenerWithReader creates a listener on an existing reader.
func NewRequestListenerWithReader(reader MessageReader, resolver BatchResolver, logger zerolog.Logger) *RequestListener {
	return &RequestListener{
		reader:   reader,
		resolver: resolver,
		logger:   logger.With().Str("component", "request_listener").Logger(),
	}
}

// Run consumes messages until ctx is cancelled. A message is committed once
// handled, including messages that can never succeed.
func (l *RequestListener) Run(ctx context.Context) error {
	l.logger.Info().Msg("starting request listener")

	for {
		msg, err := l.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				l.logger.Info().Msg("request listener stopped via context cancellation")
				return ctx.Err()
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			l.logger.Error().Err(err).Msg("failed to read message from Kafka")
			continue
		}

		l.logger.Debug().
			Int("partition", msg.Partition).
			Int64("offset", msg.Offset).
			Msg("received resolve request")

		if err := l.handle(ctx, msg); err != nil {
			l.logger.Error().Err(err).
				Int("partition", msg.Partition).
				Int64("offset", msg.Offset).
				Msg("failed to handle resolve request")
		}

		if err := l.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			l.logger.Error().Err(err).Int64("offset", msg.Offset).Msg("failed to commit message")
		}
	}
}

// handle decodes one message and resolves its papers.
func (l *RequestListener) handle(ctx context.Context, msg kafka.Message) error {
	var event domain.Event
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("unmarshal event: %w", err)
	}
	if event.EventType != domain.EventTypeResolveRequested {
		l.logger.Debug().Str("event_type", event.EventType).Msg("ignoring event")
		return nil
	}

	var payload domain.ResolveRequestedPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal resolve request %s: %w", event.EventID, err)
	}

	requestID := payload.RequestID
	if requestID == "" {
		requestID = event.EventID
	}
	ctx = observability.WithRequestID(ctx, requestID)
	logger := observability.WithRequestContext(l.logger, requestID)

	logger.Info().Int("papers", len(payload.Papers)).Msg("handling resolve request")

	result, err := l.resolver.ResolveMany(ctx, payload.Papers, payload.MaxConcurrency)
	if err != nil {
		return fmt.Errorf("resolve request %s: %w", requestID, err)
	}

	logger.Info().
		Str("batch_id", result.BatchID.String()).
		Float64("success_rate", result.SuccessRate).
		Msg("resolve request completed")
	return nil
}

// Close closes the Kafka reader.
func (l *RequestListener) Close() error {
	l.logger.Info().Msg("closing request listener")
	return l.reader.Close()
}
