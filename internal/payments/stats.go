package payments

import (
	"github.com/ashureev/cohub/internal/domain"
)

// Stats aggregates a payment snapshot for the dashboard.
type Stats struct {
	Count    int            `json:"count"`
	Received int64          `json:"received_minor"`
	Sent     int64          `json:"sent_minor"`
	Net      int64          `json:"net_minor"`
	ByStatus map[string]int `json:"by_status"`
}

// ComputeStats sums received and sent amounts and counts statuses.
// A missing status is counted as "unknown".
func ComputeStats(payments []domain.Payment) Stats {
	s := Stats{Count: len(payments), ByStatus: make(map[string]int)}
	for _, p := range payments {
		if p.Direction == domain.DirectionSent {
			s.Sent += p.Amount
		} else {
			s.Received += p.Amount
		}
		status := p.Status
		if status == "" {
			status = "unknown"
		}
		s.ByStatus[status]++
	}
	s.Net = s.Received - s.Sent
	return s
}

// Total sums every amount regardless of direction.
func Total(payments []domain.Payment) int64 {
	var total int64
	for _, p := range payments {
		total += p.Amount
	}
	return total
}
