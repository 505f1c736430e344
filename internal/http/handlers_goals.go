package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"metas/internal/core"
	"metas/internal/services"
)

type goalJSON struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Target      string  `json:"target"`
	Current     string  `json:"current"`
	Status      string  `json:"status"`
	StartDate   string  `json:"startDate"`
	Deadline    *string `json:"deadline"`
	CompletedAt *string `json:"completedAt"`
	Color       string  `json:"color"`
}

type goalViewJSON struct {
	goalJSON
	Remaining       string `json:"remaining"`
	ProgressPercent string `json:"progressPercent"`
	IsOverdue       bool   `json:"isOverdue"`
	DaysRemaining   *int   `json:"daysRemaining"`
}

type statsJSON struct {
	TotalGoals             int    `json:"totalGoals"`
	ActiveGoals            int    `json:"activeGoals"`
	CompletedGoals         int    `json:"completedGoals"`
	TotalSaved             string `json:"totalSaved"`
	TotalTarget            string `json:"totalTarget"`
	OverallProgressPercent string `json:"overallProgressPercent"`
}

type deadlineAlertJSON struct {
	GoalID        int64  `json:"goalId"`
	Title         string `json:"title"`
	Deadline      string `json:"deadline"`
	DaysRemaining int    `json:"daysRemaining"`
}

func toGoalJSON(g core.Goal) goalJSON {
	out := goalJSON{
		ID:          g.ID,
		Title:       g.Title,
		Description: g.Description,
		Category:    g.Category,
		Target:      g.Target.String(),
		Current:     g.Current.String(),
		Status:      string(g.Status),
		StartDate:   g.StartDate.String(),
		Color:       g.Color,
	}
	if !g.Deadline.IsEmpty() {
		d := g.Deadline.String()
		out.Deadline = &d
	}
	if !g.CompletedAt.IsZero() {
		c := g.CompletedAt.UTC().Format("2006-01-02T15:04:05Z07:00")
		out.CompletedAt = &c
	}
	return out
}

func toGoalViewJSON(v core.GoalView) goalViewJSON {
	return goalViewJSON{
		goalJSON:        toGoalJSON(v.Goal),
		Remaining:       v.Remaining.String(),
		ProgressPercent: formatPercent(v.ProgressPercent),
		IsOverdue:       v.IsOverdue,
		DaysRemaining:   v.DaysRemaining,
	}
}

// formatPercent renders percentages with one decimal, matching the
// dashboard display precision.
func formatPercent(p float64) string {
	return strconv.FormatFloat(p, 'f', 1, 64)
}

type createGoalRequest struct {
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Category    string      `json:"category"`
	Color       string      `json:"color"`
	Target      json.Number `json:"target"`
	StartDate   string      `json:"startDate"`
	Deadline    string      `json:"deadline"`
}

type editGoalRequest struct {
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Category    string      `json:"category"`
	Color       string      `json:"color"`
	Target      json.Number `json:"target"`
	Deadline    string      `json:"deadline"`
}

type contributeRequest struct {
	Amount json.Number `json:"amount"`
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	return dec.Decode(v)
}

func parseMoney(n json.Number) (core.Money, error) {
	cents, err := core.ParseDecimalToCents(n.String())
	if err != nil {
		return core.Money{}, err
	}
	return core.Money{Cents: cents}, nil
}

func parseOptionalDate(s string) (core.Date, error) {
	if strings.TrimSpace(s) == "" {
		return core.Date{}, nil
	}
	return core.ParseDate(s)
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	return id, err == nil && id > 0
}

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request, ownerID string) {
	views, err := s.dashboardViews(r.Context(), ownerID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]goalViewJSON, len(views))
	for i, v := range views {
		out[i] = toGoalViewJSON(v)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request, ownerID string) {
	var req createGoalRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	target, err := parseMoney(req.Target)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid target amount")
		return
	}
	startDate, err := parseOptionalDate(req.StartDate)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid start date")
		return
	}
	deadline, err := parseOptionalDate(req.Deadline)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid deadline")
		return
	}

	goal := core.Goal{
		OwnerID:     ownerID,
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Color:       req.Color,
		Target:      target,
		StartDate:   startDate,
		Deadline:    deadline,
	}

	created, warning, err := s.goals.Create(r.Context(), goal)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	s.invalidateDashboard(ownerID)
	writeJSON(w, http.StatusCreated, struct {
		Goal    goalJSON `json:"goal"`
		Warning string   `json:"warning,omitempty"`
	}{Goal: toGoalJSON(created), Warning: warning})
}

func (s *Server) handleGetGoal(w http.ResponseWriter, r *http.Request, ownerID string) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid goal id")
		return
	}

	goal, err := s.goals.Get(r.Context(), ownerID, id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toGoalJSON(goal))
}

func (s *Server) handleGoalStats(w http.ResponseWriter, r *http.Request, ownerID string) {
	stats, err := s.goals.Stats(r.Context(), ownerID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, statsJSON{
		TotalGoals:             stats.TotalGoals,
		ActiveGoals:            stats.ActiveGoals,
		CompletedGoals:         stats.CompletedGoals,
		TotalSaved:             stats.TotalSaved.String(),
		TotalTarget:            stats.TotalTarget.String(),
		OverallProgressPercent: formatPercent(stats.OverallProgressPercent),
	})
}

func (s *Server) handleUpcomingDeadlines(w http.ResponseWriter, r *http.Request, ownerID string) {
	alerts, err := s.goals.Upcoming(r.Context(), ownerID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]deadlineAlertJSON, len(alerts))
	for i, a := range alerts {
		out[i] = deadlineAlertJSON{
			GoalID:        a.GoalID,
			Title:         a.Title,
			Deadline:      a.Deadline.String(),
			DaysRemaining: a.DaysRemaining,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleContribute(w http.ResponseWriter, r *http.Request, ownerID string) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid goal id")
		return
	}

	var req contributeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	amount, err := parseMoney(req.Amount)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid amount")
		return
	}

	goal, err := s.goals.Contribute(r.Context(), ownerID, id, amount)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	s.invalidateDashboard(ownerID)
	writeJSON(w, http.StatusOK, toGoalJSON(goal))
}

func (s *Server) handleCompleteGoal(w http.ResponseWriter, r *http.Request, ownerID string) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid goal id")
		return
	}

	goal, err := s.goals.CompleteManually(r.Context(), ownerID, id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	s.invalidateDashboard(ownerID)
	writeJSON(w, http.StatusOK, toGoalJSON(goal))
}

func (s *Server) handleCancelGoal(w http.ResponseWriter, r *http.Request, ownerID string) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid goal id")
		return
	}

	goal, err := s.goals.Cancel(r.Context(), ownerID, id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	s.invalidateDashboard(ownerID)
	writeJSON(w, http.StatusOK, toGoalJSON(goal))
}

func (s *Server) handleEditGoal(w http.ResponseWriter, r *http.Request, ownerID string) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid goal id")
		return
	}

	var req editGoalRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	target, err := parseMoney(req.Target)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid target amount")
		return
	}
	deadline, err := parseOptionalDate(req.Deadline)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid deadline")
		return
	}

	goal, err := s.goals.Edit(r.Context(), ownerID, id, services.EditGoalInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Color:       req.Color,
		Target:      target,
		Deadline:    deadline,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	s.invalidateDashboard(ownerID)
	writeJSON(w, http.StatusOK, toGoalJSON(goal))
}

func (s *Server) handleDeleteGoal(w http.ResponseWriter, r *http.Request, ownerID string) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid goal id")
		return
	}

	if err := s.goals.Delete(r.Context(), ownerID, id); err != nil {
		writeServiceError(w, r, err)
		return
	}

	s.invalidateDashboard(ownerID)
	w.WriteHeader(http.StatusNoContent)
}
