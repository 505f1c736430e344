package core

import "sort"

// UpcomingWindowDays is the inclusive deadline-alert horizon.
const UpcomingWindowDays = 7

type (
	// GoalView is a goal annotated with derived fields. Derived values are
	// recomputed from the stored goal and the supplied day on every read;
	// nothing here is ever persisted.
	GoalView struct {
		Goal
		Remaining       Money
		ProgressPercent float64
		IsOverdue       bool
		DaysRemaining   *int // nil when the goal has no deadline
	}

	// PortfolioStats aggregates a user's full goal set.
	PortfolioStats struct {
		TotalGoals     int
		ActiveGoals    int
		CompletedGoals int
		TotalSaved     Money // across all statuses
		TotalTarget    Money // active goals only
		// OverallProgressPercent is deliberately unclamped: saved amounts of
		// completed goals can push it past 100 against the remaining active
		// targets.
		OverallProgressPercent float64
	}

	// DeadlineAlert is an entry of the upcoming-deadline subset.
	DeadlineAlert struct {
		GoalID        int64
		Title         string
		Deadline      Date
		DaysRemaining int
	}
)

// ProgressPercent returns the goal's funding percentage clamped to [0, 100].
// A goal funded beyond its target reports exactly 100.
func (g Goal) ProgressPercent() float64 {
	if g.Target.Cents <= 0 {
		return 0
	}
	p := float64(g.Current.Cents) / float64(g.Target.Cents) * 100
	if p > 100 {
		return 100
	}
	if p < 0 {
		return 0
	}
	return p
}

// IsOverdue reports whether an active goal has sailed past its deadline.
// Completed and cancelled goals are never overdue.
func (g Goal) IsOverdue(today Date) bool {
	return g.Status == StatusActive && !g.Deadline.IsEmpty() && g.Deadline.Before(today.Time)
}

// BuildGoalView computes all derived fields for a single goal.
func BuildGoalView(g Goal, today Date) GoalView {
	v := GoalView{
		Goal:            g,
		Remaining:       g.Remaining(),
		ProgressPercent: g.ProgressPercent(),
		IsOverdue:       g.IsOverdue(today),
	}
	if !g.Deadline.IsEmpty() {
		days := g.Deadline.DaysUntil(today)
		v.DaysRemaining = &days
	}
	return v
}

// RankGoals returns the goals in dashboard order: by status precedence
// (active, completed, cancelled), then goals with a deadline before goals
// without, then ascending deadline. The sort is stable so insertion order
// breaks remaining ties.
func RankGoals(goals []Goal) []Goal {
	ranked := append([]Goal(nil), goals...)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Status.Rank() != b.Status.Rank() {
			return a.Status.Rank() < b.Status.Rank()
		}
		if a.Deadline.IsEmpty() != b.Deadline.IsEmpty() {
			return !a.Deadline.IsEmpty()
		}
		if a.Deadline.IsEmpty() {
			return false
		}
		return a.Deadline.Before(b.Deadline.Time)
	})
	return ranked
}

// RankedViews ranks the goals and annotates each with derived fields.
func RankedViews(goals []Goal, today Date) []GoalView {
	ranked := RankGoals(goals)
	views := make([]GoalView, len(ranked))
	for i, g := range ranked {
		views[i] = BuildGoalView(g, today)
	}
	return views
}

// BuildPortfolioStats aggregates the goal set regardless of order.
func BuildPortfolioStats(goals []Goal) PortfolioStats {
	var stats PortfolioStats
	stats.TotalGoals = len(goals)
	for _, g := range goals {
		stats.TotalSaved.Cents += g.Current.Cents
		switch g.Status {
		case StatusActive:
			stats.ActiveGoals++
			stats.TotalTarget.Cents += g.Target.Cents
		case StatusCompleted:
			stats.CompletedGoals++
		}
	}
	if stats.TotalTarget.Cents > 0 {
		stats.OverallProgressPercent = float64(stats.TotalSaved.Cents) / float64(stats.TotalTarget.Cents) * 100
	}
	return stats
}

// UpcomingDeadlines returns active goals whose deadline falls inside
// [today, today+7d], ascending by deadline.
func UpcomingDeadlines(goals []Goal, today Date) []DeadlineAlert {
	horizon := Date{Time: today.AddDate(0, 0, UpcomingWindowDays)}
	var alerts []DeadlineAlert
	for _, g := range goals {
		if g.Status != StatusActive || g.Deadline.IsEmpty() {
			continue
		}
		if g.Deadline.Before(today.Time) || g.Deadline.After(horizon.Time) {
			continue
		}
		alerts = append(alerts, DeadlineAlert{
			GoalID:        g.ID,
			Title:         g.Title,
			Deadline:      g.Deadline,
			DaysRemaining: g.Deadline.DaysUntil(today),
		})
	}
	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].Deadline.Before(alerts[j].Deadline.Time)
	})
	return alerts
}
