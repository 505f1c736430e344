package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"metas/internal/amqp"
	"metas/internal/clock"
	"metas/internal/core"
	"metas/internal/storage"
)

// WarnStartDateAdjusted is returned by Create when a future start date was
// moved back to today.
const WarnStartDateAdjusted = "start date was in the future and was adjusted to today"

// GoalStore is the persistence surface GoalService needs.
type GoalStore interface {
	CreateGoal(ctx context.Context, g core.Goal) (core.Goal, error)
	GetGoal(ctx context.Context, ownerID string, id int64) (core.Goal, error)
	ListGoals(ctx context.Context, ownerID string) ([]core.Goal, error)
	UpdateGoal(ctx context.Context, g core.Goal) (core.Goal, error)
	Contribute(ctx context.Context, ownerID string, id, amountCents int64, now time.Time) (core.Goal, error)
	CompleteGoal(ctx context.Context, ownerID string, id int64, now time.Time) (core.Goal, error)
	CancelGoal(ctx context.Context, ownerID string, id int64) (core.Goal, error)
	DeleteGoal(ctx context.Context, ownerID string, id int64) error
}

// EventPublisher fans out goal lifecycle notifications.
type EventPublisher interface {
	PublishGoalEvent(ctx context.Context, goalID int64, ownerID, event string) error
}

// EditGoalInput carries the fields a goal edit may change. Progress and
// lifecycle state are never editable.
type EditGoalInput struct {
	Title       string
	Description string
	Category    string
	Color       string
	Target      core.Money
	Deadline    core.Date // zero removes the deadline
}

// GoalService orchestrates goal operations across storage and AMQP.
type GoalService struct {
	store     GoalStore
	publisher EventPublisher
	clock     clock.Clock
}

func NewGoalService(store GoalStore, publisher EventPublisher, clk clock.Clock) *GoalService {
	if clk == nil {
		clk = clock.System{}
	}
	return &GoalService{
		store:     store,
		publisher: publisher,
		clock:     clk,
	}
}

// Create validates and stores a new goal. A future start date is adjusted
// to today and reported through the returned warning string.
func (s *GoalService) Create(ctx context.Context, g core.Goal) (core.Goal, string, error) {
	today := s.clock.Today()

	g.ID = 0
	g.Current = core.Money{}
	g.Status = core.StatusActive
	g.CompletedAt = time.Time{}
	g.Normalize()

	var warning string
	if g.StartDate.IsEmpty() {
		g.StartDate = today
	} else if g.StartDate.After(today.Time) {
		g.StartDate = today
		warning = WarnStartDateAdjusted
	}

	if err := g.Validate(); err != nil {
		return core.Goal{}, "", err
	}

	created, err := s.store.CreateGoal(ctx, g)
	if err != nil {
		return core.Goal{}, "", fmt.Errorf("save goal: %w", err)
	}

	// Publish async (non-blocking); the goal is saved either way.
	if err := s.publish(ctx, created.ID, created.OwnerID, amqp.EventGoalCreated); err != nil {
		slog.ErrorContext(ctx, "Failed to publish goal created event",
			"goal_id", created.ID, "error", err)
	}

	return created, warning, nil
}

// Get returns a single goal scoped to its owner.
func (s *GoalService) Get(ctx context.Context, ownerID string, id int64) (core.Goal, error) {
	return s.store.GetGoal(ctx, ownerID, id)
}

// Goals returns the owner's goals in dashboard order with derived fields.
func (s *GoalService) Goals(ctx context.Context, ownerID string) ([]core.GoalView, error) {
	goals, err := s.store.ListGoals(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	return core.RankedViews(goals, s.clock.Today()), nil
}

// Stats aggregates the owner's full goal set.
func (s *GoalService) Stats(ctx context.Context, ownerID string) (core.PortfolioStats, error) {
	goals, err := s.store.ListGoals(ctx, ownerID)
	if err != nil {
		return core.PortfolioStats{}, fmt.Errorf("list goals: %w", err)
	}
	return core.BuildPortfolioStats(goals), nil
}

// Upcoming returns active goals with a deadline within the alert window.
func (s *GoalService) Upcoming(ctx context.Context, ownerID string) ([]core.DeadlineAlert, error) {
	goals, err := s.store.ListGoals(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	return core.UpcomingDeadlines(goals, s.clock.Today()), nil
}

// Contribute adds a positive amount to an active goal. When the target is
// reached the goal completes in the same operation and a completion event
// is published.
func (s *GoalService) Contribute(ctx context.Context, ownerID string, id int64, amount core.Money) (core.Goal, error) {
	if amount.Cents <= 0 {
		return core.Goal{}, core.ErrInvalidAmount
	}

	g, err := s.store.Contribute(ctx, ownerID, id, amount.Cents, s.clock.Now())
	if err != nil {
		return core.Goal{}, err
	}

	if g.Status == core.StatusCompleted {
		if err := s.publish(ctx, g.ID, g.OwnerID, amqp.EventGoalCompleted); err != nil {
			slog.ErrorContext(ctx, "Failed to publish goal completed event",
				"goal_id", g.ID, "error", err)
		}
	}

	return g, nil
}

// CompleteManually marks a goal completed regardless of progress.
// Completing an already-completed goal is a no-op.
func (s *GoalService) CompleteManually(ctx context.Context, ownerID string, id int64) (core.Goal, error) {
	g, err := s.store.GetGoal(ctx, ownerID, id)
	if err != nil {
		return core.Goal{}, err
	}
	if g.Status == core.StatusCompleted {
		return g, nil
	}
	if !core.CanTransition(g.Status, core.StatusCompleted) {
		return core.Goal{}, storage.ErrNotFound
	}

	completed, err := s.store.CompleteGoal(ctx, ownerID, id, s.clock.Now())
	if err != nil {
		return core.Goal{}, err
	}

	if err := s.publish(ctx, completed.ID, completed.OwnerID, amqp.EventGoalCompleted); err != nil {
		slog.ErrorContext(ctx, "Failed to publish goal completed event",
			"goal_id", completed.ID, "error", err)
	}

	return completed, nil
}

// Edit updates a goal's descriptive fields and target. The stored start
// date is kept, and the new deadline is validated against it.
func (s *GoalService) Edit(ctx context.Context, ownerID string, id int64, input EditGoalInput) (core.Goal, error) {
	g, err := s.store.GetGoal(ctx, ownerID, id)
	if err != nil {
		return core.Goal{}, err
	}

	g.Title = input.Title
	g.Description = input.Description
	g.Category = input.Category
	g.Color = input.Color
	g.Target = input.Target
	g.Deadline = input.Deadline
	g.Normalize()

	if err := g.Validate(); err != nil {
		return core.Goal{}, err
	}

	return s.store.UpdateGoal(ctx, g)
}

// Cancel moves an active goal to cancelled.
func (s *GoalService) Cancel(ctx context.Context, ownerID string, id int64) (core.Goal, error) {
	return s.store.CancelGoal(ctx, ownerID, id)
}

// Delete removes a goal permanently.
func (s *GoalService) Delete(ctx context.Context, ownerID string, id int64) error {
	return s.store.DeleteGoal(ctx, ownerID, id)
}

func (s *GoalService) publish(ctx context.Context, goalID int64, ownerID, event string) error {
	if s.publisher == nil {
		slog.WarnContext(ctx, "Event publisher not available, skipping goal event")
		return nil
	}
	return s.publisher.PublishGoalEvent(ctx, goalID, ownerID, event)
}

// Close releases the underlying store and publisher when they hold
// resources.
func (s *GoalService) Close() error {
	var errs []error

	if c, ok := s.store.(io.Closer); ok && c != nil {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if c, ok := s.publisher.(io.Closer); ok && c != nil {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close goal service: %v", errs)
	}
	return nil
}
