package reading

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Repository stores reading history.
type Repository interface {
	Record(ctx context.Context, r Reading) error
	History(ctx context.Context, since time.Time) ([]Reading, error)
	Latest(ctx context.Context) (Reading, error)
	Prune(ctx context.Context, before time.Time) (int64, error)
}

// SQLiteRepository implements Repository on the sensor_readings table.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a reading history repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Record appends a reading. Unavailable metrics are stored as NULL.
func (r *SQLiteRepository) Record(ctx context.Context, rd Reading) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sensor_readings (temperature, humidity, soil_moisture, co2, recorded_at)
		 VALUES (?, ?, ?, ?, ?)`,
		rd.Temperature, rd.Humidity, rd.SoilMoisture, rd.CO2, rd.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("recording reading: %w", err)
	}
	return nil
}

// History returns readings recorded at or after since, oldest first.
func (r *SQLiteRepository) History(ctx context.Context, since time.Time) ([]Reading, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT temperature, humidity, soil_moisture, co2, recorded_at
		 FROM sensor_readings
		 WHERE recorded_at >= ?
		 ORDER BY recorded_at, id`, since.Unix())
	if err != nil {
		return nil, fmt.Errorf("querying reading history: %w", err)
	}
	defer rows.Close()

	readings := []Reading{}
	for rows.Next() {
		rd, err := scanReading(rows)
		if err != nil {
			return nil, err
		}
		readings = append(readings, rd)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating reading history: %w", err)
	}
	return readings, nil
}

// Latest returns the most recent stored reading.
func (r *SQLiteRepository) Latest(ctx context.Context) (Reading, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT temperature, humidity, soil_moisture, co2, recorded_at
		 FROM sensor_readings
		 ORDER BY recorded_at DESC, id DESC
		 LIMIT 1`)
	rd, err := scanReading(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Reading{}, fmt.Errorf("%w: no readings recorded", ErrReadingUnavailable)
	}
	return rd, err
}

// Prune deletes readings recorded before the cut-off.
func (r *SQLiteRepository) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM sensor_readings WHERE recorded_at < ?", before.Unix())
	if err != nil {
		return 0, fmt.Errorf("pruning readings: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking pruned rows: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReading(s rowScanner) (Reading, error) {
	var (
		rd                        Reading
		temp, hum, soil, co2Value sql.NullFloat64
	)
	if err := s.Scan(&temp, &hum, &soil, &co2Value, &rd.Timestamp); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Reading{}, err
		}
		return Reading{}, fmt.Errorf("scanning reading: %w", err)
	}
	rd.Temperature = nullFloat(temp)
	rd.Humidity = nullFloat(hum)
	rd.SoilMoisture = nullFloat(soil)
	rd.CO2 = nullFloat(co2Value)
	return rd, nil
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return Float(v.Float64)
}
