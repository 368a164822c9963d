package audit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Logger defines the logging interface used by Log.
type Logger interface {
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Log is the activity log service: it stamps entries, stores them and
// notifies listeners (the WebSocket hub).
type Log struct {
	repo      Repository
	listeners []func(Entry)
	mu        sync.RWMutex
	logger    Logger
	now       func() time.Time
	newID     func() string
}

// NewLog creates an activity log backed by repo.
func NewLog(repo Repository) *Log {
	return &Log{repo: repo, logger: noopLogger{}, now: time.Now, newID: newEntryID}
}

// SetLogger sets the logger used when storage fails.
func (l *Log) SetLogger(logger Logger) {
	l.logger = logger
}

// OnAppend registers a listener called after each stored entry.
func (l *Log) OnAppend(fn func(Entry)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.listeners = append(l.listeners, fn)
}

// Append stores e, assigning ID and CreatedAt when empty, and returns the
// stored entry. A caller-supplied ID that is already stored fails with
// ErrDuplicateEntry.
func (l *Log) Append(ctx context.Context, e Entry) (Entry, error) {
	if !e.Type.Valid() {
		return Entry{}, fmt.Errorf("%w: unknown type %q", ErrInvalidEntry, e.Type)
	}
	if e.Message == "" {
		return Entry{}, fmt.Errorf("%w: message is required", ErrInvalidEntry)
	}
	generated := e.ID == ""
	if generated {
		e.ID = l.newID()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = l.now().UTC()
	}

	err := l.repo.Insert(ctx, e)
	if generated && errors.Is(err, ErrDuplicateEntry) {
		// Generated IDs get one retry on a clash.
		e.ID = l.newID()
		err = l.repo.Insert(ctx, e)
	}
	if err != nil {
		l.logger.Error("activity append failed", "type", e.Type, "message", e.Message, "error", err)
		return Entry{}, err
	}

	l.mu.RLock()
	listeners := l.listeners
	l.mu.RUnlock()
	for _, fn := range listeners {
		fn(e)
	}
	return e, nil
}

// Record is Append for callers that only log failures.
func (l *Log) Record(ctx context.Context, typ Type, message, deviceID, ruleID string) {
	_, _ = l.Append(ctx, Entry{Type: typ, Message: message, DeviceID: deviceID, RuleID: ruleID}) //nolint:errcheck // logged in Append
}

// Recent returns up to limit entries at or after since, newest first.
// limit <= 0 selects DefaultLimit; values above MaxLimit are clamped.
func (l *Log) Recent(ctx context.Context, limit int, since time.Time) ([]Entry, error) {
	return l.Query(ctx, Query{Limit: limit, Since: since})
}

// Query is Recent with a type filter.
func (l *Log) Query(ctx context.Context, q Query) ([]Entry, error) {
	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}
	if q.Type != "" && !q.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidEntry, q.Type)
	}
	return l.repo.Recent(ctx, q)
}

// Prune removes entries older than the cut-off. Retention only.
func (l *Log) Prune(ctx context.Context, before time.Time) (int64, error) {
	n, err := l.repo.Prune(ctx, before)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		l.logger.Warn("activity entries pruned", "count", n, "before", before.Format(time.RFC3339))
	}
	return n, nil
}

func newEntryID() string {
	return "act-" + uuid.NewString()
}
