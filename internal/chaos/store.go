// internal/chaos/store.go
package chaos

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"librarydesk/internal/storage"
)

// ErrInjected marks a failure produced by a Store rather than the backend.
var ErrInjected = errors.New("injected fault")

// Fault describes what to inject into one kind of operation.
type Fault struct {
	Operation   string        // save or load; empty matches both
	BlastRadius float64       // 0.0 to 1.0 (share of calls affected)
	Latency     time.Duration // added before affected calls
	Fail        bool          // affected calls return ErrInjected
}

// ErrorEvent is one injected failure.
type ErrorEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Operation string    `json:"operation"`
	Target    string    `json:"target"`
	Error     string    `json:"error"`
}

// Store wraps a storage.Store and injects latency and failures into Save
// and Load according to its faults.
type Store struct {
	next   storage.Store
	faults []Fault
	tracer trace.Tracer

	mu     sync.Mutex
	rng    *rand.Rand
	calls  int
	events []ErrorEvent
}

func NewStore(next storage.Store, seed int64, faults ...Fault) *Store {
	return &Store{
		next:   next,
		faults: faults,
		tracer: otel.Tracer("librarydesk/chaos"),
		rng:    rand.New(rand.NewSource(seed)),
	}
}

func (s *Store) Save(ctx context.Context, target string, snap storage.Snapshot) error {
	ctx, span := s.tracer.Start(ctx, "chaos.save", trace.WithAttributes(attribute.String("target", target)))
	defer span.End()

	if err := s.inject(ctx, span, "save", target); err != nil {
		return err
	}
	return s.next.Save(ctx, target, snap)
}

func (s *Store) Load(ctx context.Context, source string) (storage.Snapshot, error) {
	ctx, span := s.tracer.Start(ctx, "chaos.load", trace.WithAttributes(attribute.String("source", source)))
	defer span.End()

	if err := s.inject(ctx, span, "load", source); err != nil {
		return storage.Snapshot{}, err
	}
	return s.next.Load(ctx, source)
}

// DrillFaults builds failure faults for loads and saves with the given
// rates. Each fault also adds latency before the calls it hits.
func DrillFaults(loadFailure, saveFailure float64, latency time.Duration) []Fault {
	var faults []Fault
	if loadFailure > 0 {
		faults = append(faults, Fault{Operation: "load", BlastRadius: loadFailure, Latency: latency, Fail: true})
	}
	if saveFailure > 0 {
		faults = append(faults, Fault{Operation: "save", BlastRadius: saveFailure, Latency: latency, Fail: true})
	}
	return faults
}

// Wrap returns next itself when no fault can fire, otherwise a Store
// injecting faults in front of it.
func Wrap(next storage.Store, seed int64, faults ...Fault) storage.Store {
	active := faults[:0:0]
	for _, f := range faults {
		if f.BlastRadius > 0 {
			active = append(active, f)
		}
	}
	if len(active) == 0 {
		return next
	}
	return NewStore(next, seed, active...)
}

// Calls reports how many operations went through the store.
func (s *Store) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Events returns the injected failures in order.
func (s *Store) Events() []ErrorEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ErrorEvent(nil), s.events...)
}

func (s *Store) inject(ctx context.Context, span trace.Span, operation, name string) error {
	var delay time.Duration
	fail := false

	s.mu.Lock()
	s.calls++
	for _, f := range s.faults {
		if f.Operation != "" && f.Operation != operation {
			continue
		}
		if s.rng.Float64() >= f.BlastRadius {
			continue
		}
		delay += f.Latency
		fail = fail || f.Fail
	}
	s.mu.Unlock()

	if delay > 0 {
		span.AddEvent("injecting_latency", trace.WithAttributes(attribute.Int64("latency_ms", delay.Milliseconds())))
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	if !fail {
		return nil
	}

	err := fmt.Errorf("%s %s: %w", operation, name, ErrInjected)
	span.RecordError(err)

	s.mu.Lock()
	s.events = append(s.events, ErrorEvent{
		Timestamp: time.Now(),
		Operation: operation,
		Target:    name,
		Error:     err.Error(),
	})
	s.mu.Unlock()
	return err
}
