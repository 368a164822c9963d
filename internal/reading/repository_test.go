package reading

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const testSchema = `
CREATE TABLE sensor_readings (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	temperature REAL,
	humidity REAL,
	soil_moisture REAL,
	co2 REAL,
	recorded_at INTEGER NOT NULL
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

func TestSQLiteRepository_RecordAndHistory(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	readings := []Reading{
		{Temperature: Float(22.5), Humidity: Float(50), Timestamp: 1000},
		{Temperature: Float(23.0), SoilMoisture: Float(40), Timestamp: 2000},
		{CO2: Float(900), Timestamp: 3000},
	}
	for _, r := range readings {
		if err := repo.Record(ctx, r); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	got, err := repo.History(ctx, time.Unix(2000, 0))
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len(History()) = %d, want 2", len(got))
	}
	if got[0].Timestamp != 2000 || got[1].Timestamp != 3000 {
		t.Errorf("History() timestamps = %d, %d; want oldest first", got[0].Timestamp, got[1].Timestamp)
	}
	if got[0].Humidity != nil {
		t.Errorf("Humidity = %v, want nil preserved", *got[0].Humidity)
	}
	if got[1].CO2 == nil || *got[1].CO2 != 900 {
		t.Errorf("CO2 = %v, want 900", got[1].CO2)
	}

	latest, err := repo.Latest(ctx)
	if err != nil {
		t.Fatalf("Latest() error = %v", err)
	}
	if latest.Timestamp != 3000 {
		t.Errorf("Latest().Timestamp = %d, want 3000", latest.Timestamp)
	}
}

func TestSQLiteRepository_LatestEmpty(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))

	if _, err := repo.Latest(context.Background()); !errors.Is(err, ErrReadingUnavailable) {
		t.Errorf("Latest() error = %v, want ErrReadingUnavailable", err)
	}
}

func TestSQLiteRepository_Prune(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	for _, ts := range []int64{100, 200, 300} {
		if err := repo.Record(ctx, Reading{Temperature: Float(20), Timestamp: ts}); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	n, err := repo.Prune(ctx, time.Unix(250, 0))
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if n != 2 {
		t.Errorf("Prune() = %d, want 2", n)
	}

	got, err := repo.History(ctx, time.Unix(0, 0))
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(got) != 1 || got[0].Timestamp != 300 {
		t.Errorf("History() after prune = %+v, want only ts 300", got)
	}
}
