package assistant

import (
	"fmt"
	"strings"

	"github.com/ashureev/cohub/internal/domain"
	"github.com/ashureev/cohub/internal/payments"
)

// NoPayments is the answer to any latest-payment question over an empty cache.
const NoPayments = "You don't have any payments yet."

// Answerer renders payment questions as text. All methods are pure.
type Answerer struct {
	format *payments.Formatter
}

// NewAnswerer creates an answerer that formats money and dates with f.
func NewAnswerer(f *payments.Formatter) *Answerer {
	return &Answerer{format: f}
}

// Answer dispatches a data-query intent over a payment snapshot.
func (a *Answerer) Answer(intent Intent, records []domain.Payment) string {
	switch intent.Query {
	case QueryLatest:
		return a.Latest(records)
	case QueryCount:
		return a.Count(records)
	case QueryTotal:
		return a.Total(records)
	case QueryStatus:
		return a.StatusOf(records, intent.Name)
	default:
		return fmt.Sprintf("I can't answer %q questions yet.", intent.Query)
	}
}

// Latest describes the payment with the greatest CreatedAt; ties go to the
// greatest ID.
func (a *Answerer) Latest(records []domain.Payment) string {
	if len(records) == 0 {
		return NoPayments
	}
	latest := records[0]
	for _, p := range records[1:] {
		if p.CreatedAt.After(latest.CreatedAt) ||
			(p.CreatedAt.Equal(latest.CreatedAt) && p.ID > latest.ID) {
			latest = p
		}
	}
	return fmt.Sprintf("The most recent payment was %s from %s on %s at %s.",
		a.format.Amount(latest.Amount),
		payments.CustomerName(latest),
		a.format.Date(latest.CreatedAt),
		a.format.Time(latest.CreatedAt),
	)
}

// Count states how many payments are cached.
func (a *Answerer) Count(records []domain.Payment) string {
	if len(records) == 1 {
		return "You have 1 payment."
	}
	return fmt.Sprintf("You have %d payments.", len(records))
}

// Total states the sum of all cached amounts.
func (a *Answerer) Total(records []domain.Payment) string {
	return fmt.Sprintf("The total amount paid is %s.", a.format.Amount(payments.Total(records)))
}

// StatusOf lists the distinct statuses of payments whose customer name
// contains name, case-insensitively, in first-seen order.
func (a *Answerer) StatusOf(records []domain.Payment, name string) string {
	needle := strings.ToLower(name)
	var statuses []string
	seen := make(map[string]bool)
	matched := false
	for _, p := range records {
		if p.CustomerName == "" || !strings.Contains(strings.ToLower(p.CustomerName), needle) {
			continue
		}
		matched = true
		status := p.Status
		if status == "" {
			status = "unknown"
		}
		if !seen[status] {
			seen[status] = true
			statuses = append(statuses, status)
		}
	}

	if !matched {
		return fmt.Sprintf("I couldn't find any payments for %q.", name)
	}
	if len(statuses) == 1 {
		return fmt.Sprintf("The status for %q is %s.", name, statuses[0])
	}
	return fmt.Sprintf("The statuses for %q are %s.", name, strings.Join(statuses, ", "))
}
