package payments

import (
	"github.com/ashureev/cohub/internal/domain"
)

// UnknownCustomer is shown when a payment has no customer name.
const UnknownCustomer = "Unknown Customer"

// View is a payment shaped for the payments screen.
type View struct {
	ID          string           `json:"id"`
	Direction   domain.Direction `json:"type"`
	AmountMinor int64            `json:"amount_minor"`
	Amount      string           `json:"amount"`
	Name        string           `json:"name"`
	AvatarSeed  string           `json:"avatar_seed"`
	Date        string           `json:"date"`
	Time        string           `json:"time"`
	Status      string           `json:"status,omitempty"`
}

// CustomerName returns the payment's customer or UnknownCustomer.
func CustomerName(p domain.Payment) string {
	if p.CustomerName == "" {
		return UnknownCustomer
	}
	return p.CustomerName
}

// Views converts payments to display rows, preserving order.
func Views(payments []domain.Payment, f *Formatter) []View {
	views := make([]View, 0, len(payments))
	for _, p := range payments {
		direction := p.Direction
		if direction == "" {
			direction = domain.DirectionReceived
		}
		seed := p.CustomerName
		if seed == "" {
			seed = p.ID
		}
		views = append(views, View{
			ID:          p.ID,
			Direction:   direction,
			AmountMinor: p.Signed(),
			Amount:      f.Signed(p.Signed()),
			Name:        CustomerName(p),
			AvatarSeed:  seed,
			Date:        f.ShortDate(p.CreatedAt),
			Time:        f.Time(p.CreatedAt),
			Status:      p.Status,
		})
	}
	return views
}
