// internal/eventstore/eventstore.go
package eventstore

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrConcurrencyConflict = errors.New("concurrency conflict: version mismatch")
	ErrInvalidVersion      = errors.New("invalid version number")
	ErrEmptyEventType      = errors.New("event type must not be empty")
)

// Event represents a domain event with full metadata
type Event struct {
	ID            int64                  `json:"id"`
	AggregateID   uuid.UUID              `json:"aggregate_id"`
	AggregateType string                 `json:"aggregate_type"`
	EventType     string                 `json:"event_type"`
	EventData     json.RawMessage        `json:"event_data"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
	Version       int                    `json:"version"`
	CreatedAt     time.Time              `json:"created_at"`
}

// EventStore is an in-process, append-only journal keyed by aggregate.
// Appends are all-or-nothing and checked against the caller's expected version.
type EventStore struct {
	mu       sync.Mutex
	events   []Event
	versions map[uuid.UUID]int
	lastID   int64
	now      func() time.Time
	tracer   trace.Tracer
}

// NewEventStore creates an empty journal.
func NewEventStore() *EventStore {
	return &EventStore{
		versions: make(map[uuid.UUID]int),
		now:      func() time.Time { return time.Now().UTC() },
		tracer:   otel.Tracer("librarydesk/eventstore"),
	}
}

// AppendEvents atomically appends events with optimistic concurrency control
func (es *EventStore) AppendEvents(ctx context.Context, aggregateID uuid.UUID, aggregateType string, expectedVersion int, events []Event) error {
	_, span := es.tracer.Start(ctx, "eventstore.append",
		trace.WithAttributes(
			attribute.String("aggregate.id", aggregateID.String()),
			attribute.String("aggregate.type", aggregateType),
			attribute.Int("expected.version", expectedVersion),
			attribute.Int("event.count", len(events)),
		),
	)
	defer span.End()

	if expectedVersion < 0 {
		return ErrInvalidVersion
	}
	for _, event := range events {
		if event.EventType == "" {
			return ErrEmptyEventType
		}
	}

	es.mu.Lock()
	defer es.mu.Unlock()

	currentVersion := es.versions[aggregateID]
	if currentVersion != expectedVersion {
		span.SetAttributes(
			attribute.Int("actual.version", currentVersion),
			attribute.Bool("conflict.detected", true),
		)
		return ErrConcurrencyConflict
	}

	for i, event := range events {
		es.lastID++
		event.ID = es.lastID
		event.AggregateID = aggregateID
		event.AggregateType = aggregateType
		event.Version = expectedVersion + i + 1
		event.CreatedAt = es.now()
		es.events = append(es.events, event)

		span.AddEvent("event.appended", trace.WithAttributes(
			attribute.Int64("event.id", event.ID),
			attribute.Int("event.version", event.Version),
			attribute.String("event.type", event.EventType),
		))
	}
	es.versions[aggregateID] = expectedVersion + len(events)

	span.SetAttributes(attribute.Bool("append.success", true))
	return nil
}

// LoadEvents retrieves all events for an aggregate with optional version range.
// A toVersion of 0 means no upper bound.
func (es *EventStore) LoadEvents(ctx context.Context, aggregateID uuid.UUID, fromVersion, toVersion int) ([]Event, error) {
	_, span := es.tracer.Start(ctx, "eventstore.load",
		trace.WithAttributes(
			attribute.String("aggregate.id", aggregateID.String()),
			attribute.Int("from.version", fromVersion),
			attribute.Int("to.version", toVersion),
		),
	)
	defer span.End()

	es.mu.Lock()
	defer es.mu.Unlock()

	var events []Event
	for _, event := range es.events {
		if event.AggregateID != aggregateID || event.Version < fromVersion {
			continue
		}
		if toVersion > 0 && event.Version > toVersion {
			continue
		}
		events = append(events, event)
	}

	span.SetAttributes(attribute.Int("events.loaded", len(events)))
	return events, nil
}

// GetCurrentVersion returns the latest version for an aggregate
func (es *EventStore) GetCurrentVersion(ctx context.Context, aggregateID uuid.UUID) (int, error) {
	_, span := es.tracer.Start(ctx, "eventstore.get_version",
		trace.WithAttributes(
			attribute.String("aggregate.id", aggregateID.String()),
		),
	)
	defer span.End()

	es.mu.Lock()
	version := es.versions[aggregateID]
	es.mu.Unlock()

	span.SetAttributes(attribute.Int("current.version", version))
	return version, nil
}

// StreamEvents provides a cursor-based event stream across all aggregates
func (es *EventStore) StreamEvents(ctx context.Context, fromID int64, batchSize int) ([]Event, error) {
	_, span := es.tracer.Start(ctx, "eventstore.stream",
		trace.WithAttributes(
			attribute.Int64("from.id", fromID),
			attribute.Int("batch.size", batchSize),
		),
	)
	defer span.End()

	es.mu.Lock()
	defer es.mu.Unlock()

	var events []Event
	for _, event := range es.events {
		if event.ID <= fromID {
			continue
		}
		if batchSize > 0 && len(events) == batchSize {
			break
		}
		events = append(events, event)
	}

	span.SetAttributes(attribute.Int("events.streamed", len(events)))
	return events, nil
}

// Reset drops every recorded event. Event ids keep increasing across resets.
func (es *EventStore) Reset() {
	es.mu.Lock()
	defer es.mu.Unlock()

	es.events = nil
	es.versions = make(map[uuid.UUID]int)
}
