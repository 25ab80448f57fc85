// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/ashureev/cohub/internal/domain"
)

// ErrDuplicateCode is returned when a referral code is already taken.
var ErrDuplicateCode = errors.New("referral code already exists")

// Fixtures is a complete replacement set of seeded records.
// Nil slices leave the corresponding table untouched.
type Fixtures struct {
	Payments   []domain.Payment
	Issues     []domain.Issue
	Residents  []domain.Resident
	Properties []domain.Property
}

// Repository defines the interface for persisting dashboard data.
// Lookups of a single record return (nil, nil) when nothing matches.
type Repository interface {
	// GetUser retrieves a user by their user ID.
	GetUser(ctx context.Context, userID string) (*domain.User, error)

	// UpsertUser creates or updates a user record.
	UpsertUser(ctx context.Context, user *domain.User) error

	// UpdateLastSeen updates the last_seen_at timestamp for a user.
	UpdateLastSeen(ctx context.Context, userID string, lastSeen time.Time) error

	// ListPayments returns all payments ordered by creation time, newest first.
	ListPayments(ctx context.Context) ([]domain.Payment, error)

	// ReplaceFixtures swaps seeded tables in a single transaction.
	ReplaceFixtures(ctx context.Context, f Fixtures) error

	// ListIssues returns issues with the given status, or all issues when status is empty.
	ListIssues(ctx context.Context, status domain.IssueStatus) ([]domain.Issue, error)

	// ListResidents returns residents ordered by unit.
	ListResidents(ctx context.Context) ([]domain.Resident, error)

	// AddResident inserts a resident.
	AddResident(ctx context.Context, r *domain.Resident) error

	// ListProperties returns all properties ordered by name.
	ListProperties(ctx context.Context) ([]domain.Property, error)

	// AddProperty inserts a property.
	AddProperty(ctx context.Context, p *domain.Property) error

	// GetReferralByUser returns the referral owned by a user.
	GetReferralByUser(ctx context.Context, userID string) (*domain.Referral, error)

	// CreateReferral inserts a referral. Returns ErrDuplicateCode if the code is taken.
	CreateReferral(ctx context.Context, ref *domain.Referral) error

	// GetTranscript retrieves the persisted chat transcript for a tab session.
	GetTranscript(ctx context.Context, userID, sessionID string) (*domain.StoredTranscript, error)

	// UpsertTranscript creates or updates a persisted transcript.
	UpsertTranscript(ctx context.Context, t *domain.StoredTranscript) error

	// DeleteTranscript removes a persisted transcript.
	DeleteTranscript(ctx context.Context, userID, sessionID string) error

	// CleanupExpiredTranscripts removes transcripts not updated within ttl.
	CleanupExpiredTranscripts(ctx context.Context, ttl time.Duration) (int64, error)

	// Ping verifies database connectivity and returns an error if the database is unreachable.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
