package automation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/growwiz/growwiz-core/internal/device"
	"github.com/growwiz/growwiz-core/internal/reading"
)

// Repository defines rule persistence.
type Repository interface {
	List(ctx context.Context) ([]Rule, error)
	GetByID(ctx context.Context, id string) (*Rule, error)
	// Create assigns the next position and stores it on the rule.
	Create(ctx context.Context, rule *Rule) error
	Update(ctx context.Context, rule *Rule) error
	Delete(ctx context.Context, id string) error
}

const ruleColumns = `id, name, description, metric, low_threshold, high_threshold,
			target_device, action_below, action_above, enabled, hysteresis_margin,
			position, created_at, updated_at`

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed rule repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// List returns every rule in store order.
func (r *SQLiteRepository) List(ctx context.Context) ([]Rule, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+ruleColumns+` FROM rules ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("querying rules: %w", err)
	}
	defer rows.Close()

	var rules []Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, *rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rules: %w", err)
	}
	return rules, nil
}

// GetByID retrieves one rule.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Rule, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+ruleColumns+` FROM rules WHERE id = ?`, id)
	rule, err := scanRule(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRuleNotFound
		}
		return nil, fmt.Errorf("querying rule by id: %w", err)
	}
	return rule, nil
}

// Create inserts a rule at the end of the store order.
func (r *SQLiteRepository) Create(ctx context.Context, rule *Rule) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	var position int
	if err := tx.QueryRowContext(ctx, "SELECT COALESCE(MAX(position), 0) + 1 FROM rules").Scan(&position); err != nil {
		return fmt.Errorf("allocating rule position: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO rules (`+ruleColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rule.ID, rule.Name, nullableString(rule.Description), string(rule.Metric),
		rule.LowThreshold, rule.HighThreshold, string(rule.TargetDevice),
		string(rule.ActionBelow), string(rule.ActionAbove), boolToInt(rule.Enabled),
		rule.HysteresisMargin, position,
		rule.CreatedAt.UTC().Format(time.RFC3339Nano), rule.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("inserting rule: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing rule: %w", err)
	}

	rule.Position = position
	return nil
}

// Update rewrites a rule's definition. Position and created_at are kept.
func (r *SQLiteRepository) Update(ctx context.Context, rule *Rule) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE rules SET
			name = ?, description = ?, metric = ?, low_threshold = ?, high_threshold = ?,
			target_device = ?, action_below = ?, action_above = ?, enabled = ?,
			hysteresis_margin = ?, updated_at = ?
		 WHERE id = ?`,
		rule.Name, nullableString(rule.Description), string(rule.Metric),
		rule.LowThreshold, rule.HighThreshold, string(rule.TargetDevice),
		string(rule.ActionBelow), string(rule.ActionAbove), boolToInt(rule.Enabled),
		rule.HysteresisMargin, rule.UpdatedAt.UTC().Format(time.RFC3339Nano),
		rule.ID,
	)
	if err != nil {
		return fmt.Errorf("updating rule: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking updated rows: %w", err)
	}
	if n == 0 {
		return ErrRuleNotFound
	}
	return nil
}

// Delete removes a rule.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM rules WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting rule: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking deleted rows: %w", err)
	}
	if n == 0 {
		return ErrRuleNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRule(s rowScanner) (*Rule, error) {
	var (
		rule                 Rule
		description          sql.NullString
		metric, target       string
		below, above         string
		enabled              int
		createdAt, updatedAt string
	)
	err := s.Scan(
		&rule.ID, &rule.Name, &description, &metric, &rule.LowThreshold, &rule.HighThreshold,
		&target, &below, &above, &enabled, &rule.HysteresisMargin,
		&rule.Position, &createdAt, &updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning rule: %w", err)
	}

	rule.Description = description.String
	rule.Metric = reading.Metric(metric)
	rule.TargetDevice = device.ID(target)
	rule.ActionBelow = Action(below)
	rule.ActionAbove = Action(above)
	rule.Enabled = enabled != 0

	if rule.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("parsing rule created_at: %w", err)
	}
	if rule.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, fmt.Errorf("parsing rule updated_at: %w", err)
	}
	return &rule, nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
