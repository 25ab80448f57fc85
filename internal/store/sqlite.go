package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ashureev/cohub/internal/domain"
	"github.com/ashureev/cohub/internal/shared"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db           *sql.DB
	transcriptMu sync.Mutex // serialises transcript writes to avoid SQLITE_BUSY
	retry        shared.RetryPolicy
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	return newSQLite(dbPath)
}

func newSQLite(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// WAL mode for concurrent readers while the seed watcher writes.
	dsn := "file:" + dbPath + "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db, retry: shared.DefaultRetryPolicy()}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS users (
		user_id TEXT PRIMARY KEY,
		full_name TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		is_guest INTEGER NOT NULL DEFAULT 0,
		last_seen_at INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS payments (
		id TEXT PRIMARY KEY,
		amount INTEGER NOT NULL DEFAULT 0,
		currency TEXT NOT NULL DEFAULT '',
		customer_name TEXT,
		status TEXT,
		direction TEXT NOT NULL DEFAULT 'received',
		metadata_json TEXT,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_payments_created ON payments(created_at DESC);

	CREATE TABLE IF NOT EXISTS referrals (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL UNIQUE,
		code TEXT NOT NULL UNIQUE,
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS issues (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		priority TEXT NOT NULL,
		reporter TEXT NOT NULL DEFAULT '',
		unit TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		reported_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_issues_status ON issues(status);

	CREATE TABLE IF NOT EXISTS residents (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		unit TEXT NOT NULL,
		email TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		move_in_date INTEGER NOT NULL,
		status TEXT NOT NULL DEFAULT 'active'
	);

	CREATE TABLE IF NOT EXISTS properties (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		address TEXT NOT NULL,
		units INTEGER NOT NULL DEFAULT 0,
		occupied_units INTEGER NOT NULL DEFAULT 0,
		monthly_revenue INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS transcripts (
		user_id TEXT NOT NULL,
		session_id TEXT NOT NULL,
		messages_json TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (user_id, session_id)
	);
	CREATE INDEX IF NOT EXISTS idx_transcripts_updated ON transcripts(updated_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// GetUser retrieves a user by their user ID.
func (s *SQLiteStore) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	query := `
		SELECT user_id, full_name, email, is_guest, last_seen_at, created_at, updated_at
		FROM users WHERE user_id = ?`

	var user domain.User
	var lastSeen, createdAt, updatedAt int64
	err := s.db.QueryRowContext(ctx, query, userID).Scan(
		&user.UserID, &user.FullName, &user.Email, &user.IsGuest,
		&lastSeen, &createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan user row: %w", err)
	}

	user.LastSeenAt = time.Unix(lastSeen, 0)
	user.CreatedAt = time.Unix(createdAt, 0)
	user.UpdatedAt = time.Unix(updatedAt, 0)
	return &user, nil
}

// UpsertUser creates or updates a user record.
// Profile fields are only overwritten by non-empty values.
func (s *SQLiteStore) UpsertUser(ctx context.Context, user *domain.User) error {
	query := `
	INSERT INTO users (user_id, full_name, email, is_guest, last_seen_at, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(user_id) DO UPDATE SET
		full_name = CASE WHEN excluded.full_name != '' THEN excluded.full_name ELSE users.full_name END,
		email = CASE WHEN excluded.email != '' THEN excluded.email ELSE users.email END,
		is_guest = excluded.is_guest,
		last_seen_at = excluded.last_seen_at,
		updated_at = excluded.updated_at`

	return shared.RetryOnConflict(ctx, "upsert user", s.retry, func() error {
		_, err := s.db.ExecContext(ctx, query,
			user.UserID, user.FullName, user.Email, user.IsGuest,
			user.LastSeenAt.Unix(), user.CreatedAt.Unix(), user.UpdatedAt.Unix(),
		)
		return err
	})
}

// UpdateLastSeen updates the last_seen_at timestamp for a user.
func (s *SQLiteStore) UpdateLastSeen(ctx context.Context, userID string, lastSeen time.Time) error {
	query := `UPDATE users SET last_seen_at = ?, updated_at = ? WHERE user_id = ?`
	result, err := s.db.ExecContext(ctx, query, lastSeen.Unix(), time.Now().Unix(), userID)
	if err != nil {
		return fmt.Errorf("update last_seen: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		slog.Warn("UpdateLastSeen affected 0 rows", "user_id", userID)
	}
	return nil
}

// ListPayments returns all payments ordered by creation time, newest first.
func (s *SQLiteStore) ListPayments(ctx context.Context) ([]domain.Payment, error) {
	query := `
		SELECT id, amount, currency, customer_name, status, direction, metadata_json, created_at
		FROM payments ORDER BY created_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query payments: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close payment rows", "error", closeErr)
		}
	}()

	var payments []domain.Payment
	for rows.Next() {
		var p domain.Payment
		var customer, status, metadata sql.NullString
		var direction string
		var createdAt int64
		if err := rows.Scan(&p.ID, &p.Amount, &p.Currency, &customer, &status, &direction, &metadata, &createdAt); err != nil {
			return nil, fmt.Errorf("scan payment row: %w", err)
		}
		p.CustomerName = customer.String
		p.Status = status.String
		p.Direction = domain.Direction(direction)
		p.CreatedAt = time.UnixMilli(createdAt)
		if metadata.Valid && metadata.String != "" {
			if err := json.Unmarshal([]byte(metadata.String), &p.Metadata); err != nil {
				slog.Warn("ignoring malformed payment metadata", "payment_id", p.ID, "error", err)
			}
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payments: %w", err)
	}
	return payments, nil
}

// ReplaceFixtures swaps seeded tables in a single transaction.
func (s *SQLiteStore) ReplaceFixtures(ctx context.Context, f Fixtures) error {
	return shared.RetryOnConflict(ctx, "replace fixtures", s.retry, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin: %w", err)
		}
		if err := replaceFixturesTx(ctx, tx, f); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				slog.Warn("fixture rollback failed", "error", rbErr)
			}
			return err
		}
		return tx.Commit()
	})
}

func replaceFixturesTx(ctx context.Context, tx *sql.Tx, f Fixtures) error {
	if f.Payments != nil {
		if _, err := tx.ExecContext(ctx, `DELETE FROM payments`); err != nil {
			return fmt.Errorf("clear payments: %w", err)
		}
		for _, p := range f.Payments {
			var metadata interface{}
			if len(p.Metadata) > 0 {
				raw, err := json.Marshal(p.Metadata)
				if err != nil {
					return fmt.Errorf("marshal metadata for %s: %w", p.ID, err)
				}
				metadata = string(raw)
			}
			direction := p.Direction
			if direction == "" {
				direction = domain.DirectionReceived
			}
			_, err := tx.ExecContext(ctx, `
				INSERT INTO payments (id, amount, currency, customer_name, status, direction, metadata_json, created_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				p.ID, p.Amount, p.Currency, nullString(p.CustomerName), nullString(p.Status),
				string(direction), metadata, p.CreatedAt.UnixMilli(),
			)
			if err != nil {
				return fmt.Errorf("insert payment %s: %w", p.ID, err)
			}
		}
	}

	if f.Issues != nil {
		if _, err := tx.ExecContext(ctx, `DELETE FROM issues`); err != nil {
			return fmt.Errorf("clear issues: %w", err)
		}
		for _, is := range f.Issues {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO issues (id, title, priority, reporter, unit, description, category, status, reported_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				is.ID, is.Title, string(is.Priority), is.Reporter, is.Unit,
				is.Description, is.Category, string(is.Status), is.ReportedAt.Unix(),
			)
			if err != nil {
				return fmt.Errorf("insert issue %s: %w", is.ID, err)
			}
		}
	}

	if f.Residents != nil {
		if _, err := tx.ExecContext(ctx, `DELETE FROM residents`); err != nil {
			return fmt.Errorf("clear residents: %w", err)
		}
		for i := range f.Residents {
			if err := insertResident(ctx, tx, &f.Residents[i]); err != nil {
				return err
			}
		}
	}

	if f.Properties != nil {
		if _, err := tx.ExecContext(ctx, `DELETE FROM properties`); err != nil {
			return fmt.Errorf("clear properties: %w", err)
		}
		for i := range f.Properties {
			if err := insertProperty(ctx, tx, &f.Properties[i]); err != nil {
				return err
			}
		}
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertResident(ctx context.Context, db execer, r *domain.Resident) error {
	status := r.Status
	if status == "" {
		status = "active"
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO residents (id, name, unit, email, phone, move_in_date, status)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Name, r.Unit, r.Email, r.Phone, r.MoveInDate.Unix(), status,
	)
	if err != nil {
		return fmt.Errorf("insert resident %s: %w", r.ID, err)
	}
	return nil
}

func insertProperty(ctx context.Context, db execer, p *domain.Property) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO properties (id, name, address, units, occupied_units, monthly_revenue)
		VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Address, p.Units, p.OccupiedUnits, p.MonthlyRevenue,
	)
	if err != nil {
		return fmt.Errorf("insert property %s: %w", p.ID, err)
	}
	return nil
}

// ListIssues returns issues with the given status, or all issues when status is empty.
func (s *SQLiteStore) ListIssues(ctx context.Context, status domain.IssueStatus) ([]domain.Issue, error) {
	query := `
		SELECT id, title, priority, reporter, unit, description, category, status, reported_at
		FROM issues`
	var args []interface{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY reported_at DESC, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query issues: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close issue rows", "error", closeErr)
		}
	}()

	var issues []domain.Issue
	for rows.Next() {
		var is domain.Issue
		var priority, st string
		var reportedAt int64
		if err := rows.Scan(&is.ID, &is.Title, &priority, &is.Reporter, &is.Unit,
			&is.Description, &is.Category, &st, &reportedAt); err != nil {
			return nil, fmt.Errorf("scan issue row: %w", err)
		}
		is.Priority = domain.Priority(priority)
		is.Status = domain.IssueStatus(st)
		is.ReportedAt = time.Unix(reportedAt, 0)
		issues = append(issues, is)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate issues: %w", err)
	}
	return issues, nil
}

// ListResidents returns residents ordered by unit.
func (s *SQLiteStore) ListResidents(ctx context.Context) ([]domain.Resident, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, unit, email, phone, move_in_date, status
		FROM residents ORDER BY unit, name`)
	if err != nil {
		return nil, fmt.Errorf("query residents: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close resident rows", "error", closeErr)
		}
	}()

	var residents []domain.Resident
	for rows.Next() {
		var r domain.Resident
		var moveIn int64
		if err := rows.Scan(&r.ID, &r.Name, &r.Unit, &r.Email, &r.Phone, &moveIn, &r.Status); err != nil {
			return nil, fmt.Errorf("scan resident row: %w", err)
		}
		r.MoveInDate = time.Unix(moveIn, 0)
		residents = append(residents, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate residents: %w", err)
	}
	return residents, nil
}

// AddResident inserts a resident.
func (s *SQLiteStore) AddResident(ctx context.Context, r *domain.Resident) error {
	return shared.RetryOnConflict(ctx, "add resident", s.retry, func() error {
		return insertResident(ctx, s.db, r)
	})
}

// ListProperties returns all properties ordered by name.
func (s *SQLiteStore) ListProperties(ctx context.Context) ([]domain.Property, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, address, units, occupied_units, monthly_revenue
		FROM properties ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("query properties: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close property rows", "error", closeErr)
		}
	}()

	var properties []domain.Property
	for rows.Next() {
		var p domain.Property
		if err := rows.Scan(&p.ID, &p.Name, &p.Address, &p.Units, &p.OccupiedUnits, &p.MonthlyRevenue); err != nil {
			return nil, fmt.Errorf("scan property row: %w", err)
		}
		properties = append(properties, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate properties: %w", err)
	}
	return properties, nil
}

// AddProperty inserts a property.
func (s *SQLiteStore) AddProperty(ctx context.Context, p *domain.Property) error {
	return shared.RetryOnConflict(ctx, "add property", s.retry, func() error {
		return insertProperty(ctx, s.db, p)
	})
}

// GetReferralByUser returns the referral owned by a user.
func (s *SQLiteStore) GetReferralByUser(ctx context.Context, userID string) (*domain.Referral, error) {
	var ref domain.Referral
	var createdAt int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, code, created_at FROM referrals WHERE user_id = ?`, userID,
	).Scan(&ref.ID, &ref.UserID, &ref.Code, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan referral: %w", err)
	}
	ref.CreatedAt = time.Unix(createdAt, 0)
	return &ref, nil
}

// CreateReferral inserts a referral. Returns ErrDuplicateCode if the code is taken.
func (s *SQLiteStore) CreateReferral(ctx context.Context, ref *domain.Referral) error {
	err := shared.RetryOnConflict(ctx, "create referral", s.retry, func() error {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO referrals (id, user_id, code, created_at) VALUES (?, ?, ?, ?)`,
			ref.ID, ref.UserID, ref.Code, ref.CreatedAt.Unix(),
		)
		return err
	})
	if shared.IsSQLiteUniqueError(err) {
		return fmt.Errorf("%w: %s", ErrDuplicateCode, ref.Code)
	}
	return err
}

// GetTranscript retrieves the persisted chat transcript for a tab session.
func (s *SQLiteStore) GetTranscript(ctx context.Context, userID, sessionID string) (*domain.StoredTranscript, error) {
	var t domain.StoredTranscript
	var createdAt, updatedAt int64
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, session_id, messages_json, created_at, updated_at
		FROM transcripts WHERE user_id = ? AND session_id = ?`, userID, sessionID,
	).Scan(&t.UserID, &t.SessionID, &t.MessagesJSON, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan transcript: %w", err)
	}
	t.CreatedAt = time.Unix(createdAt, 0)
	t.UpdatedAt = time.Unix(updatedAt, 0)
	return &t, nil
}

// UpsertTranscript creates or updates a persisted transcript.
func (s *SQLiteStore) UpsertTranscript(ctx context.Context, t *domain.StoredTranscript) error {
	s.transcriptMu.Lock()
	defer s.transcriptMu.Unlock()

	createdAt := t.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	return shared.RetryOnConflict(ctx, "upsert transcript", s.retry, func() error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO transcripts (user_id, session_id, messages_json, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(user_id, session_id) DO UPDATE SET
				messages_json = excluded.messages_json,
				updated_at = excluded.updated_at`,
			t.UserID, t.SessionID, t.MessagesJSON, createdAt.Unix(), time.Now().Unix(),
		)
		return err
	})
}

// DeleteTranscript removes a persisted transcript.
func (s *SQLiteStore) DeleteTranscript(ctx context.Context, userID, sessionID string) error {
	s.transcriptMu.Lock()
	defer s.transcriptMu.Unlock()

	return shared.RetryOnConflict(ctx, "delete transcript", s.retry, func() error {
		_, err := s.db.ExecContext(ctx,
			`DELETE FROM transcripts WHERE user_id = ? AND session_id = ?`, userID, sessionID)
		return err
	})
}

// CleanupExpiredTranscripts removes transcripts not updated within ttl.
func (s *SQLiteStore) CleanupExpiredTranscripts(ctx context.Context, ttl time.Duration) (int64, error) {
	s.transcriptMu.Lock()
	defer s.transcriptMu.Unlock()

	threshold := time.Now().Add(-ttl).Unix()
	result, err := s.db.ExecContext(ctx, `DELETE FROM transcripts WHERE updated_at < ?`, threshold)
	if err != nil {
		return 0, fmt.Errorf("cleanup expired transcripts: %w", err)
	}
	return result.RowsAffected()
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
