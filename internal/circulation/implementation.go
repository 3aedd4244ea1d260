// internal/circulation/implementation.go
package circulation

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"

	"librarydesk/internal/catalog"
	"librarydesk/internal/eventstore"
	"librarydesk/internal/logger"
	"librarydesk/internal/membership"
)

// library implements the Service interface. It is not safe for concurrent
// use; the console drives it from a single goroutine.
type library struct {
	catalog    *catalog.Catalog
	members    *membership.Registry
	eventStore *eventstore.EventStore
	log        *logger.Logger
	tracer     trace.Tracer

	issued   metric.Int64Counter
	returned metric.Int64Counter
	rejected metric.Int64Counter
}

// Option configures a library built by NewService.
type Option func(*options)

type options struct {
	meterProvider  metric.MeterProvider
	tracerProvider trace.TracerProvider
}

// WithMeterProvider records the lending counters into mp instead of the
// global meter provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) { o.meterProvider = mp }
}

// WithTracerProvider starts spans from tp instead of the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) { o.tracerProvider = tp }
}

// NewService creates an empty library.
func NewService(es *eventstore.EventStore, log *logger.Logger, opts ...Option) Service {
	if log == nil {
		log = logger.NewNop()
	}
	o := options{
		meterProvider:  otel.GetMeterProvider(),
		tracerProvider: otel.GetTracerProvider(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	meter := o.meterProvider.Meter("librarydesk/circulation")
	return &library{
		catalog:    catalog.New(),
		members:    membership.NewRegistry(),
		eventStore: es,
		log:        log.With("component", "circulation"),
		tracer:     o.tracerProvider.Tracer("librarydesk/circulation"),
		issued:     newCounter(meter, "library.books.issued", "Books lent to members"),
		returned:   newCounter(meter, "library.books.returned", "Books returned by members"),
		rejected:   newCounter(meter, "library.lending.rejected", "Issue or return requests that were refused"),
	}
}

func newCounter(meter metric.Meter, name, description string) metric.Int64Counter {
	counter, err := meter.Int64Counter(name, metric.WithDescription(description))
	if err != nil {
		counter, _ = noop.NewMeterProvider().Meter("librarydesk/circulation").Int64Counter(name)
	}
	return counter
}

// AddBook appends a book to the catalog. Titles and ISBNs are not deduplicated.
func (l *library) AddBook(ctx context.Context, title, author, isbn string) (catalog.Book, error) {
	ctx, span := l.tracer.Start(ctx, "library.add_book")
	defer span.End()

	book := l.catalog.Add(title, author, isbn)
	l.record(ctx, book.ID, catalog.AggregateType, catalog.BookAddedEventType, catalog.BookAddedEvent{
		ID:     book.ID,
		ISBN:   isbn,
		Title:  title,
		Author: author,
	})
	l.log.Debug("book added", "book_id", book.ID, "title", title)
	return book, nil
}

// RegisterUser adds a member unless the id is taken.
func (l *library) RegisterUser(ctx context.Context, name, id string) (membership.Member, error) {
	ctx, span := l.tracer.Start(ctx, "library.register_user", trace.WithAttributes(attribute.String("member.id", id)))
	defer span.End()

	member, err := l.members.Register(name, id)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		l.log.Info("registration rejected", "member_id", id, "reason", err)
		return membership.Member{}, err
	}
	l.record(ctx, membership.AggregateID(id), membership.AggregateType, membership.MemberRegisteredEventType, membership.MemberRegisteredEvent{
		ID:   id,
		Name: name,
	})
	return member, nil
}

func (l *library) FindBookByTitle(ctx context.Context, title string) (catalog.Book, error) {
	book, ok := l.catalog.FindByTitle(title)
	if !ok {
		return catalog.Book{}, fmt.Errorf("title %q: %w", title, ErrBookNotFound)
	}
	return book, nil
}

func (l *library) FindBooksByAuthor(ctx context.Context, author string) ([]catalog.Book, error) {
	return l.catalog.FindByAuthor(author), nil
}

func (l *library) FindUserByID(ctx context.Context, id string) (membership.Member, error) {
	member, ok := l.members.FindByID(id)
	if !ok {
		return membership.Member{}, fmt.Errorf("member %q: %w", id, ErrMemberNotFound)
	}
	return member.Clone(), nil
}

// IssueBook lends the first book titled title to member userID.
func (l *library) IssueBook(ctx context.Context, userID, title string) (catalog.Book, error) {
	ctx, span := l.tracer.Start(ctx, "library.issue_book", trace.WithAttributes(
		attribute.String("member.id", userID),
		attribute.String("book.title", title),
	))
	defer span.End()

	member, book, err := l.resolve(userID, title)
	if err == nil {
		err = Borrow(l.catalog, member, book.ID)
	}
	if err != nil {
		l.reject(ctx, span, "issue", userID, title, err)
		return catalog.Book{}, err
	}

	book.Available = false
	l.issued.Add(ctx, 1)
	l.record(ctx, book.ID, catalog.AggregateType, BookIssuedEventType, BookIssuedEvent{
		BookID:   book.ID,
		Title:    book.Title,
		MemberID: member.ID,
	})
	l.log.Info("book issued", "member_id", member.ID, "book_id", book.ID, "title", book.Title)
	return book, nil
}

// ReturnBook takes back the first book titled title from member userID.
func (l *library) ReturnBook(ctx context.Context, userID, title string) (catalog.Book, error) {
	ctx, span := l.tracer.Start(ctx, "library.return_book", trace.WithAttributes(
		attribute.String("member.id", userID),
		attribute.String("book.title", title),
	))
	defer span.End()

	member, book, err := l.resolve(userID, title)
	if err == nil {
		err = Release(l.catalog, member, book.ID)
	}
	if err != nil {
		l.reject(ctx, span, "return", userID, title, err)
		return catalog.Book{}, err
	}

	book.Available = true
	l.returned.Add(ctx, 1)
	l.record(ctx, book.ID, catalog.AggregateType, BookReturnedEventType, BookReturnedEvent{
		BookID:   book.ID,
		Title:    book.Title,
		MemberID: member.ID,
	})
	l.log.Info("book returned", "member_id", member.ID, "book_id", book.ID, "title", book.Title)
	return book, nil
}

// resolve looks up the member first, then the book.
func (l *library) resolve(userID, title string) (*membership.Member, catalog.Book, error) {
	member, ok := l.members.FindByID(userID)
	if !ok {
		return nil, catalog.Book{}, fmt.Errorf("member %q: %w", userID, ErrMemberNotFound)
	}
	book, ok := l.catalog.FindByTitle(title)
	if !ok {
		return nil, catalog.Book{}, fmt.Errorf("title %q: %w", title, ErrBookNotFound)
	}
	return member, book, nil
}

func (l *library) reject(ctx context.Context, span trace.Span, operation, userID, title string, err error) {
	span.SetStatus(codes.Error, err.Error())
	l.rejected.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", operation)))
	l.log.Info(operation+" rejected", "member_id", userID, "title", title, "reason", err)
}

// BorrowedBooks lists the books member userID holds, in borrow order.
func (l *library) BorrowedBooks(ctx context.Context, userID string) ([]catalog.Book, error) {
	member, ok := l.members.FindByID(userID)
	if !ok {
		return nil, fmt.Errorf("member %q: %w", userID, ErrMemberNotFound)
	}
	books := make([]catalog.Book, 0, len(member.Borrowed))
	for _, id := range member.Borrowed {
		if book, ok := l.catalog.Get(id); ok {
			books = append(books, book)
		}
	}
	return books, nil
}

func (l *library) ListBooks(ctx context.Context) []catalog.Book {
	return l.catalog.Books()
}

// History returns the journal of the first book titled title.
func (l *library) History(ctx context.Context, title string) ([]eventstore.Event, error) {
	book, err := l.FindBookByTitle(ctx, title)
	if err != nil {
		return nil, err
	}
	events, err := l.eventStore.LoadEvents(ctx, book.ID, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	return events, nil
}

const journalBatchSize = 100

// Journal returns every event recorded since the last load, oldest first.
func (l *library) Journal(ctx context.Context) ([]eventstore.Event, error) {
	ctx, span := l.tracer.Start(ctx, "library.journal")
	defer span.End()

	var events []eventstore.Event
	var cursor int64
	for {
		batch, err := l.eventStore.StreamEvents(ctx, cursor, journalBatchSize)
		if err != nil {
			return nil, fmt.Errorf("failed to stream journal: %w", err)
		}
		events = append(events, batch...)
		if len(batch) < journalBatchSize {
			return events, nil
		}
		cursor = batch[len(batch)-1].ID
	}
}

// record appends one event to the aggregate's journal, tagged with the
// current trace and span ids. Journal failures are logged and never undo
// the state change.
func (l *library) record(ctx context.Context, aggregateID uuid.UUID, aggregateType, eventType string, data interface{}) {
	payload, err := jsoniter.ConfigFastest.Marshal(data)
	if err != nil {
		l.log.Warn("failed to marshal event data", "event_type", eventType, "error", err)
		return
	}
	var metadata map[string]interface{}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		metadata = map[string]interface{}{
			"trace_id": sc.TraceID().String(),
			"span_id":  sc.SpanID().String(),
		}
	}
	version, err := l.eventStore.GetCurrentVersion(ctx, aggregateID)
	if err == nil {
		err = l.eventStore.AppendEvents(ctx, aggregateID, aggregateType, version, []eventstore.Event{{
			EventType: eventType,
			EventData: payload,
			Metadata:  metadata,
		}})
	}
	if err != nil {
		l.log.Warn("failed to append event", "event_type", eventType, "aggregate_id", aggregateID, "error", err)
	}
}
