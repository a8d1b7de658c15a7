package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/platinummonkey/grove/pkg/observability"
	"github.com/platinummonkey/grove/pkg/storage"
)

const tracerName = "github.com/platinummonkey/grove/pkg/storage/sqlstore"

// Dialect captures what differs between SQL backends.
type Dialect interface {
	// Name is the backend label used in metrics and spans.
	Name() string
	// Schema returns idempotent DDL statements creating the tables.
	Schema() []string
	// IsUniqueViolation reports whether err is a primary key or unique
	// constraint failure.
	IsUniqueViolation(err error) bool
	// Messages extracts the human readable validation messages from err.
	Messages(err error) []string
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store implements storage.Repository.
type Store struct {
	db      *sql.DB
	q       querier
	dialect Dialect
	metrics *observability.Metrics
	tracer  trace.Tracer
	now     func() time.Time
	inTx    bool
}

var _ storage.Repository = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithMetrics records storage metrics for every call.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Store) {
		s.metrics = m
	}
}

// WithClock overrides the timestamp source, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New wraps an open database handle. The Store owns db from here on and
// closes it in Close.
func New(db *sql.DB, dialect Dialect, opts ...Option) *Store {
	s := &Store{
		db:      db,
		q:       db,
		dialect: dialect,
		tracer:  otel.Tracer(tracerName),
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Bootstrap creates any missing tables.
func (s *Store) Bootstrap(ctx context.Context) (err error) {
	ctx, done := s.observe(ctx, "bootstrap")
	defer done(&err)

	for _, stmt := range s.dialect.Schema() {
		if _, err := s.q.ExecContext(ctx, stmt); err != nil {
			return s.wrap("bootstrap schema", err)
		}
	}
	return nil
}

// WithTx runs fn inside a transaction. Calls nested inside an existing
// transaction reuse it.
func (s *Store) WithTx(ctx context.Context, fn func(tx storage.Repository) error) (err error) {
	if s.inTx {
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return s.wrap("begin transaction", err)
	}

	txStore := *s
	txStore.q = tx
	txStore.inTx = true

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(&txStore); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return s.wrap("commit transaction", err)
	}
	return nil
}

// Counts returns the number of trees, insects and links.
func (s *Store) Counts(ctx context.Context) (counts storage.Counts, err error) {
	ctx, done := s.observe(ctx, "counts")
	defer done(&err)

	err = s.q.QueryRowContext(ctx, countsQuery).Scan(&counts.Trees, &counts.Insects, &counts.Associations)
	if err != nil {
		return storage.Counts{}, s.wrap("count rows", err)
	}
	return counts, nil
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Stats exposes the connection pool statistics.
func (s *Store) Stats() sql.DBStats {
	return s.db.Stats()
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	if s.inTx {
		return errors.New("close called inside a transaction")
	}
	return s.db.Close()
}

// wrap annotates a driver error with the operation and its validation
// messages.
func (s *Store) wrap(op string, err error) error {
	return &storage.StoreError{
		Op:       op,
		Messages: s.dialect.Messages(err),
		Err:      err,
	}
}

// observe starts a span for op and returns a completion func that records
// the outcome. Use as:
//
//	ctx, done := s.observe(ctx, "get_tree")
//	defer done(&err)
func (s *Store) observe(ctx context.Context, op string) (context.Context, func(*error)) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "sqlstore."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", s.dialect.Name()),
			attribute.String("db.operation", op),
		),
	)

	return ctx, func(errp *error) {
		var err error
		if errp != nil {
			err = *errp
		}
		errType := classify(err)
		if err != nil && errType != "not_found" {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		s.metrics.ObserveStorage(op, s.dialect.Name(), start, err, errType)
		span.End()
	}
}

func classify(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, storage.ErrNotFound):
		return "not_found"
	case errors.Is(err, storage.ErrAlreadyAssociated):
		return "conflict"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "store"
	}
}

// requireRow maps a zero-rows result to storage.ErrNotFound.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}
