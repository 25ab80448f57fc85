package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/ashureev/cohub/internal/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := newSQLite(filepath.Join(t.TempDir(), "cohub.db"))
	if err != nil {
		t.Fatalf("newSQLite failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestListPaymentsNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 8, 20, 10, 0, 0, 0, time.UTC)

	err := s.ReplaceFixtures(ctx, Fixtures{Payments: []domain.Payment{
		{ID: "p1", Amount: 10000, CustomerName: "John Smith", Status: "paid", CreatedAt: base},
		{ID: "p2", Amount: 25000, CreatedAt: base.Add(2 * time.Hour), Direction: domain.DirectionSent},
		{ID: "p3", Amount: 15050, CustomerName: "Johnny", Status: "due", CreatedAt: base.Add(time.Hour),
			Metadata: map[string]string{"unit": "2B"}},
	}})
	if err != nil {
		t.Fatalf("ReplaceFixtures failed: %v", err)
	}

	payments, err := s.ListPayments(ctx)
	if err != nil {
		t.Fatalf("ListPayments failed: %v", err)
	}
	if len(payments) != 3 {
		t.Fatalf("expected 3 payments, got %d", len(payments))
	}
	if payments[0].ID != "p2" || payments[1].ID != "p3" || payments[2].ID != "p1" {
		t.Fatalf("unexpected order: %s %s %s", payments[0].ID, payments[1].ID, payments[2].ID)
	}
	if payments[0].CustomerName != "" || payments[0].Status != "" {
		t.Fatalf("expected missing fields to stay empty, got %+v", payments[0])
	}
	if payments[0].Direction != domain.DirectionSent {
		t.Fatalf("expected sent direction, got %q", payments[0].Direction)
	}
	if payments[2].Direction != domain.DirectionReceived {
		t.Fatalf("expected default received direction, got %q", payments[2].Direction)
	}
	if payments[1].Metadata["unit"] != "2B" {
		t.Fatalf("expected metadata to round-trip, got %v", payments[1].Metadata)
	}
	if !payments[2].CreatedAt.Equal(base) {
		t.Fatalf("expected created_at %v, got %v", base, payments[2].CreatedAt)
	}
}

func TestReplaceFixturesLeavesNilTablesAlone(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.ReplaceFixtures(ctx, Fixtures{Payments: []domain.Payment{{ID: "p1", Amount: 1, CreatedAt: time.Now()}}}); err != nil {
		t.Fatalf("seed payments: %v", err)
	}
	if err := s.ReplaceFixtures(ctx, Fixtures{Issues: []domain.Issue{{ID: "i1", Title: "AC", Priority: domain.PriorityHigh, Status: domain.IssuePending}}}); err != nil {
		t.Fatalf("seed issues: %v", err)
	}

	payments, err := s.ListPayments(ctx)
	if err != nil {
		t.Fatalf("ListPayments failed: %v", err)
	}
	if len(payments) != 1 {
		t.Fatalf("expected payments to survive, got %d", len(payments))
	}
}

func TestListIssuesFiltersByStatus(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	err := s.ReplaceFixtures(ctx, Fixtures{Issues: []domain.Issue{
		{ID: "1", Title: "AC Unit Maintenance", Priority: domain.PriorityHigh, Status: domain.IssuePending},
		{ID: "2", Title: "Lease Renewal", Priority: domain.PriorityMedium, Status: domain.IssueInProgress},
		{ID: "3", Title: "Property Inspection", Priority: domain.PriorityLow, Status: domain.IssueResolved},
	}})
	if err != nil {
		t.Fatalf("ReplaceFixtures failed: %v", err)
	}

	all, err := s.ListIssues(ctx, "")
	if err != nil {
		t.Fatalf("ListIssues failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 issues, got %d", len(all))
	}

	pending, err := s.ListIssues(ctx, domain.IssuePending)
	if err != nil {
		t.Fatalf("ListIssues failed: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != "1" {
		t.Fatalf("unexpected pending issues: %+v", pending)
	}
}

func TestUpsertUserKeepsProfileFields(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	if err := s.UpsertUser(ctx, &domain.User{UserID: "u1", FullName: "Asha Rao", Email: "asha@example.com", LastSeenAt: now, CreatedAt: now, UpdatedAt: now}); err != nil {
		t.Fatalf("UpsertUser failed: %v", err)
	}
	if err := s.UpsertUser(ctx, &domain.User{UserID: "u1", LastSeenAt: now, CreatedAt: now, UpdatedAt: now}); err != nil {
		t.Fatalf("UpsertUser failed: %v", err)
	}

	user, err := s.GetUser(ctx, "u1")
	if err != nil || user == nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if user.FullName != "Asha Rao" || user.Email != "asha@example.com" {
		t.Fatalf("expected profile fields to be preserved, got %+v", user)
	}

	missing, err := s.GetUser(ctx, "nobody")
	if err != nil || missing != nil {
		t.Fatalf("expected (nil, nil) for missing user, got %v, %v", missing, err)
	}
}

func TestCreateReferralDuplicateCode(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateReferral(ctx, &domain.Referral{ID: "r1", UserID: "u1", Code: "ABCD2345", CreatedAt: time.Now()}); err != nil {
		t.Fatalf("CreateReferral failed: %v", err)
	}
	err := s.CreateReferral(ctx, &domain.Referral{ID: "r2", UserID: "u2", Code: "ABCD2345", CreatedAt: time.Now()})
	if !errors.Is(err, ErrDuplicateCode) {
		t.Fatalf("expected ErrDuplicateCode, got %v", err)
	}

	ref, err := s.GetReferralByUser(ctx, "u1")
	if err != nil || ref == nil {
		t.Fatalf("GetReferralByUser failed: %v", err)
	}
	if ref.Code != "ABCD2345" {
		t.Fatalf("unexpected code %q", ref.Code)
	}
}

func TestTranscriptLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tr := &domain.StoredTranscript{UserID: "u1", SessionID: "tab-1", MessagesJSON: `[]`}
	if err := s.UpsertTranscript(ctx, tr); err != nil {
		t.Fatalf("UpsertTranscript failed: %v", err)
	}
	tr.MessagesJSON = `[{"id":"1"}]`
	if err := s.UpsertTranscript(ctx, tr); err != nil {
		t.Fatalf("UpsertTranscript failed: %v", err)
	}

	got, err := s.GetTranscript(ctx, "u1", "tab-1")
	if err != nil || got == nil {
		t.Fatalf("GetTranscript failed: %v", err)
	}
	if got.MessagesJSON != `[{"id":"1"}]` {
		t.Fatalf("unexpected messages %q", got.MessagesJSON)
	}

	// A negative TTL puts the threshold in the future, expiring everything.
	deleted, err := s.CleanupExpiredTranscripts(ctx, -time.Hour)
	if err != nil {
		t.Fatalf("CleanupExpiredTranscripts failed: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("expected 1 deleted transcript, got %d", deleted)
	}
}

func TestResidentsAndProperties(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.AddResident(ctx, &domain.Resident{ID: "r1", Name: "Priya", Unit: "2B", MoveInDate: time.Now()}); err != nil {
		t.Fatalf("AddResident failed: %v", err)
	}
	if err := s.AddProperty(ctx, &domain.Property{ID: "p1", Name: "Lake View", Address: "12 Lake Rd", Units: 4, OccupiedUnits: 3}); err != nil {
		t.Fatalf("AddProperty failed: %v", err)
	}

	residents, err := s.ListResidents(ctx)
	if err != nil {
		t.Fatalf("ListResidents failed: %v", err)
	}
	if len(residents) != 1 || residents[0].Status != "active" {
		t.Fatalf("unexpected residents: %+v", residents)
	}

	properties, err := s.ListProperties(ctx)
	if err != nil {
		t.Fatalf("ListProperties failed: %v", err)
	}
	if len(properties) != 1 || properties[0].OccupiedUnits != 3 {
		t.Fatalf("unexpected properties: %+v", properties)
	}
}
