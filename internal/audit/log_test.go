package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

const testSchema = `
CREATE TABLE activity_log (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL UNIQUE,
	type TEXT NOT NULL,
	message TEXT NOT NULL,
	device_id TEXT,
	rule_id TEXT,
	created_at TEXT NOT NULL
);
`

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	if _, err := db.Exec(testSchema); err != nil {
		t.Fatalf("creating schema: %v", err)
	}
	return db
}

func newTestLog(t *testing.T) (*Log, *time.Time) {
	t.Helper()
	l := NewLog(NewSQLiteRepository(setupTestDB(t)))
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return clock }
	return l, &clock
}

func TestAppend_AssignsIDAndTimestamp(t *testing.T) {
	l, _ := newTestLog(t)

	e, err := l.Append(context.Background(), Entry{Type: TypeSystem, Message: "started"})
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if !strings.HasPrefix(e.ID, "act-") {
		t.Fatalf("ID = %q, want act- prefix", e.ID)
	}
	if _, err := uuid.Parse(strings.TrimPrefix(e.ID, "act-")); err != nil {
		t.Errorf("ID = %q, want act-<uuid>: %v", e.ID, err)
	}
	if !e.CreatedAt.Equal(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("CreatedAt = %v, want injected clock", e.CreatedAt)
	}
}

func TestAppend_Validation(t *testing.T) {
	l, _ := newTestLog(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		entry Entry
	}{
		{"unknown type", Entry{Type: "chatter", Message: "x"}},
		{"empty type", Entry{Message: "x"}},
		{"empty message", Entry{Type: TypeError}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := l.Append(ctx, tt.entry)
			if !errors.Is(err, ErrInvalidEntry) {
				t.Errorf("Append() error = %v, want ErrInvalidEntry", err)
			}
		})
	}
}

func TestRecent_NewestFirst(t *testing.T) {
	l, clock := newTestLog(t)
	ctx := context.Background()

	for i := range 3 {
		*clock = clock.Add(time.Second)
		if _, err := l.Append(ctx, Entry{Type: TypeAutomation, Message: fmt.Sprintf("entry %d", i)}); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	got, err := l.Recent(ctx, 0, time.Time{})
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len(Recent()) = %d, want 3", len(got))
	}
	for i, want := range []string{"entry 2", "entry 1", "entry 0"} {
		if got[i].Message != want {
			t.Errorf("Recent()[%d].Message = %q, want %q", i, got[i].Message, want)
		}
	}
}

func TestRecent_SameTimestampUsesInsertionOrder(t *testing.T) {
	l, _ := newTestLog(t)
	ctx := context.Background()

	for _, msg := range []string{"first", "second"} {
		if _, err := l.Append(ctx, Entry{Type: TypeSystem, Message: msg}); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	got, err := l.Recent(ctx, 10, time.Time{})
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(got) != 2 || got[0].Message != "second" || got[1].Message != "first" {
		t.Errorf("Recent() = %+v, want second then first", got)
	}
}

func TestRecent_LimitAndSince(t *testing.T) {
	l, clock := newTestLog(t)
	ctx := context.Background()
	start := *clock

	for i := range 5 {
		*clock = start.Add(time.Duration(i) * time.Minute)
		if _, err := l.Append(ctx, Entry{Type: TypeSensor, Message: fmt.Sprintf("m%d", i)}); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	got, err := l.Recent(ctx, 2, time.Time{})
	if err != nil {
		t.Fatalf("Recent(limit=2) error = %v", err)
	}
	if len(got) != 2 || got[0].Message != "m4" {
		t.Errorf("Recent(limit=2) = %+v, want [m4 m3]", got)
	}

	got, err = l.Recent(ctx, 0, start.Add(3*time.Minute))
	if err != nil {
		t.Fatalf("Recent(since) error = %v", err)
	}
	if len(got) != 2 {
		t.Errorf("len(Recent(since +3m)) = %d, want 2", len(got))
	}
}

func TestQuery_TypeFilter(t *testing.T) {
	l, _ := newTestLog(t)
	ctx := context.Background()

	l.Record(ctx, TypeSystem, "emergency stop", "", "")
	l.Record(ctx, TypeAutomation, "fan on", "fan", "rule-1")
	l.Record(ctx, TypeAutomation, "fan off", "fan", "rule-1")

	got, err := l.Query(ctx, Query{Type: TypeAutomation})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len(Query(automation)) = %d, want 2", len(got))
	}
	if got[0].DeviceID != "fan" || got[0].RuleID != "rule-1" {
		t.Errorf("entry = %+v, want device fan rule rule-1", got[0])
	}

	if _, err := l.Query(ctx, Query{Type: "bogus"}); !errors.Is(err, ErrInvalidEntry) {
		t.Errorf("Query(bogus type) error = %v, want ErrInvalidEntry", err)
	}
}

func TestPrune(t *testing.T) {
	l, clock := newTestLog(t)
	ctx := context.Background()
	start := *clock

	for i := range 4 {
		*clock = start.Add(time.Duration(i) * 24 * time.Hour)
		l.Record(ctx, TypeSensor, fmt.Sprintf("day %d", i), "", "")
	}

	n, err := l.Prune(ctx, start.Add(2*24*time.Hour))
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if n != 2 {
		t.Errorf("Prune() = %d, want 2", n)
	}

	got, err := l.Recent(ctx, 0, time.Time{})
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(got) != 2 {
		t.Errorf("len(Recent()) after prune = %d, want 2", len(got))
	}
}

func TestOnAppend(t *testing.T) {
	l, _ := newTestLog(t)
	ctx := context.Background()

	var seen []Entry
	l.OnAppend(func(e Entry) { seen = append(seen, e) })

	l.Record(ctx, TypeDiagnosis, "leaf spots", "", "")
	l.Record(ctx, "nope", "rejected", "", "")

	if len(seen) != 1 || seen[0].Message != "leaf spots" {
		t.Errorf("listener saw %+v, want one diagnosis entry", seen)
	}
}

type failingRepo struct{}

func (failingRepo) Insert(context.Context, Entry) error { return errors.New("disk full") }
func (failingRepo) Recent(context.Context, Query) ([]Entry, error) {
	return nil, errors.New("disk full")
}
func (failingRepo) Prune(context.Context, time.Time) (int64, error) { return 0, errors.New("disk full") }

func TestAppend_StorageFailureSkipsListeners(t *testing.T) {
	l := NewLog(failingRepo{})
	called := false
	l.OnAppend(func(Entry) { called = true })

	if _, err := l.Append(context.Background(), Entry{Type: TypeError, Message: "x"}); err == nil {
		t.Error("Append() error = nil, want storage error")
	}
	if called {
		t.Error("listener called for an entry that was not stored")
	}
}

func TestAppend_DuplicateID(t *testing.T) {
	l, _ := newTestLog(t)
	ctx := context.Background()

	var delivered int
	l.OnAppend(func(Entry) { delivered++ })

	if _, err := l.Append(ctx, Entry{ID: "act-fixed", Type: TypeSystem, Message: "first"}); err != nil {
		t.Fatalf("first Append() error = %v", err)
	}
	_, err := l.Append(ctx, Entry{ID: "act-fixed", Type: TypeSystem, Message: "second"})
	if !errors.Is(err, ErrDuplicateEntry) {
		t.Fatalf("second Append() error = %v, want ErrDuplicateEntry", err)
	}
	if delivered != 1 {
		t.Errorf("listeners called %d times, want 1", delivered)
	}

	entries, err := l.Recent(ctx, 10, time.Time{})
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(entries) != 1 || entries[0].Message != "first" {
		t.Errorf("Recent() = %+v, want only the first entry", entries)
	}
}

func TestAppend_GeneratedIDClashRetries(t *testing.T) {
	l, _ := newTestLog(t)
	ctx := context.Background()

	ids := []string{"act-same", "act-same", "act-other"}
	l.newID = func() string {
		id := ids[0]
		ids = ids[1:]
		return id
	}

	if _, err := l.Append(ctx, Entry{Type: TypeSensor, Message: "first"}); err != nil {
		t.Fatalf("first Append() error = %v", err)
	}
	e, err := l.Append(ctx, Entry{Type: TypeSensor, Message: "second"})
	if err != nil {
		t.Fatalf("second Append() error = %v", err)
	}
	if e.ID != "act-other" {
		t.Errorf("ID = %q, want act-other after the clash", e.ID)
	}

	entries, err := l.Recent(ctx, 10, time.Time{})
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("len(Recent()) = %d, want 2", len(entries))
	}
}
