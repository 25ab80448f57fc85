package api

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ashureev/cohub/internal/domain"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

type propertyTotals struct {
	Properties     int    `json:"properties"`
	Units          int    `json:"units"`
	OccupiedUnits  int    `json:"occupied_units"`
	MonthlyRevenue int64  `json:"monthly_revenue_minor"`
	Revenue        string `json:"monthly_revenue"`
}

type issueStats struct {
	Total        int `json:"total"`
	Pending      int `json:"pending"`
	InProgress   int `json:"in_progress"`
	Resolved     int `json:"resolved"`
	HighPriority int `json:"high_priority"`
}

// GetDashboard returns property and issue summaries.
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	var (
		properties []domain.Property
		issues     []domain.Issue
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		properties, err = h.repo.ListProperties(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		issues, err = h.repo.ListIssues(ctx, "")
		return err
	})
	if err := g.Wait(); err != nil {
		slog.Error("Failed to load dashboard", "error", err)
		Error(w, http.StatusInternalServerError, "failed to load dashboard")
		return
	}

	totals := propertyTotals{Properties: len(properties)}
	for _, p := range properties {
		totals.Units += p.Units
		totals.OccupiedUnits += p.OccupiedUnits
		totals.MonthlyRevenue += p.MonthlyRevenue
	}
	totals.Revenue = h.format.Amount(totals.MonthlyRevenue)

	JSON(w, http.StatusOK, map[string]interface{}{
		"properties": totals,
		"issues":     summarizeIssues(issues),
	})
}

func summarizeIssues(issues []domain.Issue) issueStats {
	s := issueStats{Total: len(issues)}
	for _, is := range issues {
		switch is.Status {
		case domain.IssuePending:
			s.Pending++
		case domain.IssueInProgress:
			s.InProgress++
		case domain.IssueResolved:
			s.Resolved++
		}
		if is.Priority == domain.PriorityHigh {
			s.HighPriority++
		}
	}
	return s
}

// parseIssueStatus maps a query value to a filter; anything unknown means all.
func parseIssueStatus(v string) domain.IssueStatus {
	switch s := domain.IssueStatus(strings.ToLower(strings.TrimSpace(v))); s {
	case domain.IssuePending, domain.IssueInProgress, domain.IssueResolved:
		return s
	default:
		return ""
	}
}

// ListIssues returns issues filtered by ?status=.
func (h *Handler) ListIssues(w http.ResponseWriter, r *http.Request) {
	issues, err := h.repo.ListIssues(r.Context(), parseIssueStatus(r.URL.Query().Get("status")))
	if err != nil {
		slog.Error("Failed to list issues", "error", err)
		Error(w, http.StatusInternalServerError, "failed to list issues")
		return
	}
	if issues == nil {
		issues = []domain.Issue{}
	}
	JSON(w, http.StatusOK, map[string]interface{}{"issues": issues})
}

// ListResidents returns all residents.
func (h *Handler) ListResidents(w http.ResponseWriter, r *http.Request) {
	residents, err := h.repo.ListResidents(r.Context())
	if err != nil {
		slog.Error("Failed to list residents", "error", err)
		Error(w, http.StatusInternalServerError, "failed to list residents")
		return
	}
	if residents == nil {
		residents = []domain.Resident{}
	}
	JSON(w, http.StatusOK, map[string]interface{}{"residents": residents})
}

type addResidentRequest struct {
	Name       string    `json:"name"`
	Unit       string    `json:"unit"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone"`
	MoveInDate time.Time `json:"move_in_date"`
}

// AddResident creates a resident. Name and unit are required.
func (h *Handler) AddResident(w http.ResponseWriter, r *http.Request) {
	var req addResidentRequest
	if !decodeBody(w, r, &req) {
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Unit = strings.TrimSpace(req.Unit)
	if req.Name == "" || req.Unit == "" {
		Error(w, http.StatusBadRequest, "name and unit are required")
		return
	}
	if req.MoveInDate.IsZero() {
		req.MoveInDate = time.Now()
	}

	res := &domain.Resident{
		ID:         uuid.NewString(),
		Name:       req.Name,
		Unit:       req.Unit,
		Email:      strings.TrimSpace(req.Email),
		Phone:      strings.TrimSpace(req.Phone),
		MoveInDate: req.MoveInDate,
		Status:     "active",
	}
	if err := h.repo.AddResident(r.Context(), res); err != nil {
		slog.Error("Failed to add resident", "error", err)
		Error(w, http.StatusInternalServerError, "failed to add resident")
		return
	}
	JSON(w, http.StatusCreated, res)
}

// ListProperties returns all properties.
func (h *Handler) ListProperties(w http.ResponseWriter, r *http.Request) {
	properties, err := h.repo.ListProperties(r.Context())
	if err != nil {
		slog.Error("Failed to list properties", "error", err)
		Error(w, http.StatusInternalServerError, "failed to list properties")
		return
	}
	if properties == nil {
		properties = []domain.Property{}
	}
	JSON(w, http.StatusOK, map[string]interface{}{"properties": properties})
}

type addPropertyRequest struct {
	Name           string `json:"name"`
	Address        string `json:"address"`
	Units          int    `json:"units"`
	OccupiedUnits  int    `json:"occupied_units"`
	MonthlyRevenue int64  `json:"monthly_revenue"`
}

// AddProperty creates a property. Name and address are required.
func (h *Handler) AddProperty(w http.ResponseWriter, r *http.Request) {
	var req addPropertyRequest
	if !decodeBody(w, r, &req) {
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Address = strings.TrimSpace(req.Address)
	switch {
	case req.Name == "" || req.Address == "":
		Error(w, http.StatusBadRequest, "name and address are required")
		return
	case req.Units < 0 || req.OccupiedUnits < 0 || req.OccupiedUnits > req.Units:
		Error(w, http.StatusBadRequest, "occupied units must be between 0 and units")
		return
	case req.MonthlyRevenue < 0:
		Error(w, http.StatusBadRequest, "monthly revenue cannot be negative")
		return
	}

	p := &domain.Property{
		ID:             uuid.NewString(),
		Name:           req.Name,
		Address:        req.Address,
		Units:          req.Units,
		OccupiedUnits:  req.OccupiedUnits,
		MonthlyRevenue: req.MonthlyRevenue,
	}
	if err := h.repo.AddProperty(r.Context(), p); err != nil {
		slog.Error("Failed to add property", "error", err)
		Error(w, http.StatusInternalServerError, "failed to add property")
		return
	}
	JSON(w, http.StatusCreated, p)
}
