package domain

import "time"

// IssueStatus is the lifecycle state of a maintenance or admin issue.
type IssueStatus string

const (
	IssuePending    IssueStatus = "pending"
	IssueInProgress IssueStatus = "in-progress"
	IssueResolved   IssueStatus = "resolved"
)

// Priority ranks issues.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Issue is a task raised against a unit.
type Issue struct {
	ID          string      `json:"id" yaml:"id"`
	Title       string      `json:"title" yaml:"title"`
	Priority    Priority    `json:"priority" yaml:"priority"`
	Reporter    string      `json:"reporter" yaml:"reporter"`
	Unit        string      `json:"unit" yaml:"unit"`
	Description string      `json:"description" yaml:"description"`
	Category    string      `json:"category" yaml:"category"`
	Status      IssueStatus `json:"status" yaml:"status"`
	ReportedAt  time.Time   `json:"reported_at" yaml:"reported_at"`
}

// Resident lives in one of the owner's units.
type Resident struct {
	ID         string    `json:"id" yaml:"id"`
	Name       string    `json:"name" yaml:"name"`
	Unit       string    `json:"unit" yaml:"unit"`
	Email      string    `json:"email,omitempty" yaml:"email"`
	Phone      string    `json:"phone,omitempty" yaml:"phone"`
	MoveInDate time.Time `json:"move_in_date" yaml:"move_in_date"`
	Status     string    `json:"status" yaml:"status"`
}

// Property is a building or house managed through the hub.
type Property struct {
	ID             string `json:"id" yaml:"id"`
	Name           string `json:"name" yaml:"name"`
	Address        string `json:"address" yaml:"address"`
	Units          int    `json:"units" yaml:"units"`
	OccupiedUnits  int    `json:"occupied_units" yaml:"occupied_units"`
	MonthlyRevenue int64  `json:"monthly_revenue" yaml:"monthly_revenue"`
}

// Referral is a user's invite code.
type Referral struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Code      string    `json:"referral_code"`
	CreatedAt time.Time `json:"created_at"`
}
