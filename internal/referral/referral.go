// Package referral hands out one shareable referral code per registered user.
package referral

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/ashureev/cohub/internal/domain"
	"github.com/ashureev/cohub/internal/store"
	"github.com/google/uuid"
)

const (
	// CodeLength is the number of characters in a referral code.
	CodeLength = 8
	// codeAlphabet omits 0, 1, I and O. Its length of 32 keeps byte&31 unbiased.
	codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	maxAttempts  = 5
)

var (
	// ErrGuest is returned for anonymous users, who cannot refer anyone.
	ErrGuest = errors.New("guests cannot create referral codes")
	// ErrExhausted is returned when no unique code was found.
	ErrExhausted = errors.New("could not allocate a unique referral code")
)

// Store is the persistence the service needs.
type Store interface {
	GetReferralByUser(ctx context.Context, userID string) (*domain.Referral, error)
	CreateReferral(ctx context.Context, ref *domain.Referral) error
}

// Info is a referral ready to share.
type Info struct {
	Code      string    `json:"code"`
	Link      string    `json:"link"`
	ShareText string    `json:"share_text"`
	CreatedAt time.Time `json:"created_at"`
}

// Service fetches or creates referral codes.
type Service struct {
	store   Store
	baseURL string
	newCode func() (string, error)
}

// NewService creates a referral service. Links are built under baseURL.
func NewService(s Store, baseURL string) *Service {
	return &Service{store: s, baseURL: baseURL, newCode: GenerateCode}
}

// GetOrCreate returns the user's referral, creating it on first use.
func (s *Service) GetOrCreate(ctx context.Context, user *domain.User) (*Info, error) {
	if user == nil || user.IsGuest {
		return nil, ErrGuest
	}

	ref, err := s.store.GetReferralByUser(ctx, user.UserID)
	if err != nil {
		return nil, fmt.Errorf("get referral: %w", err)
	}
	if ref != nil {
		return s.info(ref), nil
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		code, err := s.newCode()
		if err != nil {
			return nil, err
		}
		ref = &domain.Referral{
			ID:        uuid.NewString(),
			UserID:    user.UserID,
			Code:      code,
			CreatedAt: time.Now(),
		}
		err = s.store.CreateReferral(ctx, ref)
		if err == nil {
			slog.Info("Referral code created", "user_id", user.UserID, "attempt", attempt)
			return s.info(ref), nil
		}
		if !errors.Is(err, store.ErrDuplicateCode) {
			// A concurrent request may have created this user's row first.
			if existing, getErr := s.store.GetReferralByUser(ctx, user.UserID); getErr == nil && existing != nil {
				return s.info(existing), nil
			}
			return nil, fmt.Errorf("create referral: %w", err)
		}
		slog.Debug("Referral code collision, retrying", "attempt", attempt)
	}
	return nil, ErrExhausted
}

// Link builds the sign-up link for a code.
func (s *Service) Link(code string) string {
	return s.baseURL + "/auth?ref=" + url.QueryEscape(code)
}

func (s *Service) info(ref *domain.Referral) *Info {
	link := s.Link(ref.Code)
	return &Info{
		Code:      ref.Code,
		Link:      link,
		ShareText: fmt.Sprintf("Join me on CoHub! Use my referral code %s or sign up here: %s", ref.Code, link),
		CreatedAt: ref.CreatedAt,
	}
}

// GenerateCode returns a random CodeLength-character code.
func GenerateCode() (string, error) {
	buf := make([]byte, CodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate referral code: %w", err)
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[b&31]
	}
	return string(buf), nil
}
