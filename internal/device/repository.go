package device

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Repository persists device state so it survives restarts.
type Repository interface {
	// List returns every stored device.
	List(ctx context.Context) ([]Device, error)

	// Save writes the state of one device.
	Save(ctx context.Context, d Device) error

	// SaveAll writes several devices in one transaction.
	SaveAll(ctx context.Context, devices []Device) error
}

// SQLiteRepository implements Repository on the devices table.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a device repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const upsertDeviceSQL = `
	INSERT INTO devices (id, is_on, last_changed, last_changed_by)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		is_on = excluded.is_on,
		last_changed = excluded.last_changed,
		last_changed_by = excluded.last_changed_by`

// List returns stored devices. Rows with an id outside the fixed set are
// skipped.
func (r *SQLiteRepository) List(ctx context.Context) ([]Device, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, is_on, last_changed, last_changed_by FROM devices`)
	if err != nil {
		return nil, fmt.Errorf("querying devices: %w", err)
	}
	defer rows.Close()

	var devices []Device
	for rows.Next() {
		var (
			d           Device
			id          string
			isOn        int
			lastChanged sql.NullString
			changedBy   sql.NullString
		)
		if err := rows.Scan(&id, &isOn, &lastChanged, &changedBy); err != nil {
			return nil, fmt.Errorf("scanning device: %w", err)
		}

		d.ID = ID(id)
		if !d.ID.Valid() {
			continue
		}
		d.On = isOn != 0
		if lastChanged.Valid {
			t, err := time.Parse(time.RFC3339Nano, lastChanged.String)
			if err != nil {
				return nil, fmt.Errorf("parsing last_changed for %s: %w", id, err)
			}
			d.LastChanged = &t
		}
		d.LastChangedBy = changedBy.String

		devices = append(devices, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating devices: %w", err)
	}
	return devices, nil
}

// Save upserts one device row.
func (r *SQLiteRepository) Save(ctx context.Context, d Device) error {
	if _, err := r.db.ExecContext(ctx, upsertDeviceSQL, deviceArgs(d)...); err != nil {
		return fmt.Errorf("saving device %s: %w", d.ID, err)
	}
	return nil
}

// SaveAll upserts devices atomically.
func (r *SQLiteRepository) SaveAll(ctx context.Context, devices []Device) error {
	if len(devices) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	stmt, err := tx.PrepareContext(ctx, upsertDeviceSQL)
	if err != nil {
		return fmt.Errorf("preparing device upsert: %w", err)
	}
	defer stmt.Close()

	for _, d := range devices {
		if _, err := stmt.ExecContext(ctx, deviceArgs(d)...); err != nil {
			return fmt.Errorf("saving device %s: %w", d.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing devices: %w", err)
	}
	return nil
}

func deviceArgs(d Device) []any {
	var lastChanged any
	if d.LastChanged != nil {
		lastChanged = d.LastChanged.UTC().Format(time.RFC3339Nano)
	}
	var changedBy any
	if d.LastChangedBy != "" {
		changedBy = d.LastChangedBy
	}
	return []any{string(d.ID), boolToInt(d.On), lastChanged, changedBy}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
