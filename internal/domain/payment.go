package domain

import "time"

// Direction tells whether money came in or went out.
type Direction string

const (
	// DirectionReceived is money paid to the owner.
	DirectionReceived Direction = "received"
	// DirectionSent is money paid out by the owner.
	DirectionSent Direction = "sent"
)

// Payment is a single payment record as fetched from the store.
// Amount is in minor currency units (paise, cents).
type Payment struct {
	ID           string            `json:"id" yaml:"id"`
	Amount       int64             `json:"amount" yaml:"amount"`
	Currency     string            `json:"currency" yaml:"currency"`
	CustomerName string            `json:"customer_name,omitempty" yaml:"customer_name"`
	CreatedAt    time.Time         `json:"created_at" yaml:"created_at"`
	Status       string            `json:"status,omitempty" yaml:"status"`
	Direction    Direction         `json:"direction" yaml:"direction"`
	Metadata     map[string]string `json:"metadata,omitempty" yaml:"metadata"`
}

// Signed returns the amount with sent payments negated.
func (p Payment) Signed() int64 {
	if p.Direction == DirectionSent {
		return -p.Amount
	}
	return p.Amount
}
