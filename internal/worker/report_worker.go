package worker

import (
	"context"
	"fmt"
	"log/slog"

	"metas/internal/amqp"
	"metas/internal/core"
	"metas/internal/sheets"
)

// ReportStore is the storage surface the report worker needs.
type ReportStore interface {
	GetGoal(ctx context.Context, ownerID string, id int64) (core.Goal, error)
	ListReportPending(ctx context.Context, limit int) ([]core.Goal, error)
	MarkGoalReported(ctx context.Context, id int64) error
}

// ReportWorker mirrors goal snapshots from SQLite to the progress report.
type ReportWorker struct {
	storage   ReportStore
	sheets    sheets.ReportWriter
	batchSize int
}

func NewReportWorker(storage ReportStore, sheets sheets.ReportWriter, batchSize int) *ReportWorker {
	return &ReportWorker{
		storage:   storage,
		sheets:    sheets,
		batchSize: batchSize,
	}
}

// HandleGoalEvent processes a single goal event from AMQP. The message only
// carries identifiers; the current goal state is read from storage.
func (w *ReportWorker) HandleGoalEvent(ctx context.Context, msg *amqp.GoalEventMessage) error {
	slog.InfoContext(ctx, "Processing goal event",
		"goal_id", msg.GoalID,
		"event", msg.Event)

	goal, err := w.storage.GetGoal(ctx, msg.OwnerID, msg.GoalID)
	if err != nil {
		return fmt.Errorf("get goal from storage: %w", err)
	}

	if err := w.reportGoal(ctx, goal); err != nil {
		return fmt.Errorf("report goal: %w", err)
	}

	return nil
}

// ProcessPending reports any goals still flagged as unreported. This is a
// backup mechanism in case AMQP messages are lost.
func (w *ReportWorker) ProcessPending(ctx context.Context) error {
	pending, err := w.storage.ListReportPending(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending goals: %w", err)
	}

	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending goals", "count", len(pending))

	for _, goal := range pending {
		if err := w.reportGoal(ctx, goal); err != nil {
			slog.ErrorContext(ctx, "Failed to report goal", "goal_id", goal.ID, "error", err)
			continue
		}
	}

	return nil
}

// StartupCheck drains the pending backlog at worker startup, useful to
// recover from missed AMQP messages or worker downtime.
func (w *ReportWorker) StartupCheck(ctx context.Context) error {
	pending, err := w.storage.ListReportPending(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("get pending goals for startup check: %w", err)
	}

	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending goals found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending goals on startup, processing...",
		"count", len(pending))

	successCount := 0
	errorCount := 0

	for _, goal := range pending {
		if err := w.reportGoal(ctx, goal); err != nil {
			slog.ErrorContext(ctx, "Failed to report goal during startup",
				"goal_id", goal.ID, "error", err)
			errorCount++
			continue
		}
		successCount++
	}

	slog.InfoContext(ctx, "Startup report check completed",
		"total", len(pending),
		"reported", successCount,
		"errors", errorCount)

	return nil
}

func (w *ReportWorker) reportGoal(ctx context.Context, goal core.Goal) error {
	ref, err := w.sheets.Append(ctx, goal)
	if err != nil {
		// Leave the pending flag set; the periodic rescan retries later.
		return fmt.Errorf("append to sheets: %w", err)
	}

	if err := w.storage.MarkGoalReported(ctx, goal.ID); err != nil {
		slog.ErrorContext(ctx, "Failed to mark goal as reported", "goal_id", goal.ID, "error", err)
		// Don't return an error here, the report itself worked
	}

	slog.InfoContext(ctx, "Successfully reported goal",
		"goal_id", goal.ID,
		"sheets_ref", ref,
		"title", goal.Title,
		"status", goal.Status)

	return nil
}
