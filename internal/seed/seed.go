// Package seed loads dashboard fixtures from YAML and keeps them in sync
// with the file on disk.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/ashureev/cohub/internal/domain"
	"github.com/ashureev/cohub/internal/store"
	"gopkg.in/yaml.v3"
)

// File is the on-disk fixture layout. Absent sections leave their table
// untouched; an explicit empty list clears it.
type File struct {
	Payments   *[]domain.Payment  `yaml:"payments"`
	Issues     *[]domain.Issue    `yaml:"issues"`
	Residents  *[]domain.Resident `yaml:"residents"`
	Properties *[]domain.Property `yaml:"properties"`
}

// Parse decodes and validates fixture YAML.
func Parse(data []byte) (store.Fixtures, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return store.Fixtures{}, fmt.Errorf("decode seed: %w", err)
	}

	var fx store.Fixtures
	if f.Payments != nil {
		fx.Payments = nonNil(*f.Payments)
		if err := validatePayments(fx.Payments); err != nil {
			return store.Fixtures{}, err
		}
	}
	if f.Issues != nil {
		fx.Issues = nonNil(*f.Issues)
		for i, is := range fx.Issues {
			if is.ID == "" {
				return store.Fixtures{}, fmt.Errorf("issue %d: id is required", i)
			}
			if is.Status == "" {
				fx.Issues[i].Status = domain.IssuePending
			}
		}
	}
	if f.Residents != nil {
		fx.Residents = nonNil(*f.Residents)
		for i, r := range fx.Residents {
			if r.ID == "" || r.Name == "" {
				return store.Fixtures{}, fmt.Errorf("resident %d: id and name are required", i)
			}
		}
	}
	if f.Properties != nil {
		fx.Properties = nonNil(*f.Properties)
		for i, p := range fx.Properties {
			if p.ID == "" {
				return store.Fixtures{}, fmt.Errorf("property %d: id is required", i)
			}
			if p.OccupiedUnits > p.Units {
				return store.Fixtures{}, fmt.Errorf("property %s: occupied units exceed units", p.ID)
			}
		}
	}
	return fx, nil
}

func validatePayments(payments []domain.Payment) error {
	seen := make(map[string]struct{}, len(payments))
	for i, p := range payments {
		if p.ID == "" {
			return fmt.Errorf("payment %d: id is required", i)
		}
		if _, dup := seen[p.ID]; dup {
			return fmt.Errorf("payment %s: duplicate id", p.ID)
		}
		seen[p.ID] = struct{}{}
		if p.Amount < 0 {
			return fmt.Errorf("payment %s: amount must be >= 0", p.ID)
		}
		switch p.Direction {
		case "", domain.DirectionReceived, domain.DirectionSent:
		default:
			return fmt.Errorf("payment %s: unknown direction %q", p.ID, p.Direction)
		}
		if p.CreatedAt.IsZero() {
			return fmt.Errorf("payment %s: created_at is required", p.ID)
		}
	}
	return nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// LoadFile reads and parses a fixture file.
func LoadFile(path string) (store.Fixtures, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return store.Fixtures{}, fmt.Errorf("read seed %s: %w", path, err)
	}
	return Parse(data)
}

// Sink receives parsed fixtures.
type Sink interface {
	ReplaceFixtures(ctx context.Context, f store.Fixtures) error
}

// Refresher reloads a cache after fixtures change.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Loader applies fixture files to the store and refreshes the payment cache.
type Loader struct {
	sink      Sink
	refresher Refresher
	onApply   func()
	logger    *slog.Logger
}

// NewLoader creates a loader. refresher may be nil.
func NewLoader(sink Sink, refresher Refresher, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{sink: sink, refresher: refresher, logger: logger}
}

// OnApply registers a callback run after every successful apply.
func (l *Loader) OnApply(fn func()) {
	l.onApply = fn
}

// Apply loads path into the store, then refreshes the cache.
func (l *Loader) Apply(ctx context.Context, path string) error {
	fx, err := LoadFile(path)
	if err != nil {
		return err
	}
	if err := l.sink.ReplaceFixtures(ctx, fx); err != nil {
		return fmt.Errorf("apply seed: %w", err)
	}
	if l.refresher != nil {
		if err := l.refresher.Refresh(ctx); err != nil {
			return fmt.Errorf("refresh after seed: %w", err)
		}
	}
	l.logger.Info("Seed applied",
		"path", path,
		"payments", len(fx.Payments),
		"issues", len(fx.Issues),
		"residents", len(fx.Residents),
		"properties", len(fx.Properties),
	)
	if l.onApply != nil {
		l.onApply()
	}
	return nil
}
