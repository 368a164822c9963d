package automation

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Logger defines the logging interface used by the Store, Controller and
// Scheduler.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Store is the rule store: validated persistence plus an ordered
// in-memory cache. It holds no evaluation logic.
//
// The cache is loaded by RefreshCache and kept in sync by the write
// methods, which persist before touching the cache. All methods are safe
// for concurrent use.
type Store struct {
	repo   Repository
	rules  []Rule
	mu     sync.RWMutex
	logger Logger
	now    func() time.Time
}

// NewStore creates a rule store backed by repo.
func NewStore(repo Repository) *Store {
	return &Store{
		repo:   repo,
		logger: noopLogger{},
		now:    time.Now,
	}
}

// SetLogger sets the logger for the store.
func (s *Store) SetLogger(logger Logger) {
	s.logger = logger
}

// RefreshCache reloads every rule from the repository.
func (s *Store) RefreshCache(ctx context.Context) error {
	rules, err := s.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("loading rules: %w", err)
	}

	s.mu.Lock()
	s.rules = rules
	s.mu.Unlock()

	s.logger.Info("rule cache refreshed", "count", len(rules))
	return nil
}

// List returns all rules in store order.
func (s *Store) List() []Rule {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Rule, len(s.rules))
	copy(out, s.rules)
	return out
}

// ListEnabled returns the enabled rules in store order.
func (s *Store) ListEnabled() []Rule {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Rule, 0, len(s.rules))
	for _, r := range s.rules {
		if r.Enabled {
			out = append(out, r)
		}
	}
	return out
}

// Get returns one rule.
func (s *Store) Get(id string) (Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.indexOf(id); i >= 0 {
		return s.rules[i], nil
	}
	return Rule{}, ErrRuleNotFound
}

// Count returns the total and enabled rule counts.
func (s *Store) Count() (total, enabled int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.rules {
		if r.Enabled {
			enabled++
		}
	}
	return len(s.rules), enabled
}

// Upsert validates and stores rule. An empty ID creates a new rule with a
// generated ID; an unknown ID creates a rule with that ID; a known ID
// replaces the definition but keeps its position and creation time.
// It returns the stored rule and whether it was created.
func (s *Store) Upsert(ctx context.Context, rule Rule) (Rule, bool, error) {
	if rule.ID == "" {
		rule.ID = GenerateRuleID()
	}
	if err := ValidateRule(&rule); err != nil {
		return Rule{}, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	rule.UpdatedAt = now

	if i := s.indexOf(rule.ID); i >= 0 {
		rule.Position = s.rules[i].Position
		rule.CreatedAt = s.rules[i].CreatedAt
		if err := s.repo.Update(ctx, &rule); err != nil {
			return Rule{}, false, err
		}
		s.rules[i] = rule
		s.logger.Info("rule updated", "id", rule.ID, "name", rule.Name)
		return rule, false, nil
	}

	rule.CreatedAt = now
	if err := s.repo.Create(ctx, &rule); err != nil {
		return Rule{}, false, err
	}
	s.rules = append(s.rules, rule)
	s.logger.Info("rule created", "id", rule.ID, "name", rule.Name, "position", rule.Position)
	return rule, true, nil
}

// SetEnabled switches a rule on or off without changing its definition.
func (s *Store) SetEnabled(ctx context.Context, id string, enabled bool) (Rule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return Rule{}, ErrRuleNotFound
	}

	rule := s.rules[i]
	if rule.Enabled == enabled {
		return rule, nil
	}
	rule.Enabled = enabled
	rule.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, &rule); err != nil {
		return Rule{}, err
	}
	s.rules[i] = rule

	s.logger.Info("rule enabled state changed", "id", id, "enabled", enabled)
	return rule, nil
}

// Delete removes a rule.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return ErrRuleNotFound
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.rules = append(s.rules[:i], s.rules[i+1:]...)

	s.logger.Info("rule deleted", "id", id)
	return nil
}

// indexOf must be called with mu held.
func (s *Store) indexOf(id string) int {
	for i := range s.rules {
		if s.rules[i].ID == id {
			return i
		}
	}
	return -1
}
