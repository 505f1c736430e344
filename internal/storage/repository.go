package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"metas/internal/core"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a row does not exist in the caller's scope.
// Rows owned by other users are reported with the same error so ownership
// is never leaked.
var ErrNotFound = errors.New("not found")

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	// SQLite allows one writer at a time; funneling all access through a
	// single connection avoids SQLITE_BUSY under concurrent contributions.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

const goalColumns = `id, owner_id, title, description, category, target_cents,
	current_cents, status, start_date, deadline, completed_at, color`

func scanGoal(row interface{ Scan(...any) error }) (core.Goal, error) {
	var (
		g           core.Goal
		status      string
		startDate   string
		deadline    sql.NullString
		completedAt sql.NullString
	)
	err := row.Scan(&g.ID, &g.OwnerID, &g.Title, &g.Description, &g.Category,
		&g.Target.Cents, &g.Current.Cents, &status, &startDate, &deadline,
		&completedAt, &g.Color)
	if err != nil {
		return core.Goal{}, err
	}
	g.Status = core.Status(status)
	if g.StartDate, err = core.ParseDate(startDate); err != nil {
		return core.Goal{}, fmt.Errorf("parse start date %q: %w", startDate, err)
	}
	if deadline.Valid && deadline.String != "" {
		if g.Deadline, err = core.ParseDate(deadline.String); err != nil {
			return core.Goal{}, fmt.Errorf("parse deadline %q: %w", deadline.String, err)
		}
	}
	if completedAt.Valid && completedAt.String != "" {
		t, err := time.Parse(time.RFC3339, completedAt.String)
		if err != nil {
			return core.Goal{}, fmt.Errorf("parse completed_at %q: %w", completedAt.String, err)
		}
		g.CompletedAt = t
	}
	return g, nil
}

func nullDate(d core.Date) any {
	if d.IsEmpty() {
		return nil
	}
	return d.String()
}

// CreateGoal persists a new goal and returns it with its assigned ID.
func (r *SQLiteRepository) CreateGoal(ctx context.Context, g core.Goal) (core.Goal, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO goals (owner_id, title, description, category, target_cents,
			current_cents, status, start_date, deadline, color, report_pending)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)`,
		g.OwnerID, g.Title, g.Description, g.Category, g.Target.Cents,
		g.Current.Cents, string(g.Status), g.StartDate.String(), nullDate(g.Deadline), g.Color)
	if err != nil {
		return core.Goal{}, fmt.Errorf("insert goal: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return core.Goal{}, fmt.Errorf("goal insert id: %w", err)
	}
	g.ID = id

	slog.InfoContext(ctx, "Goal saved to SQLite",
		"id", g.ID,
		"owner_id", g.OwnerID,
		"title", g.Title,
		"target_cents", g.Target.Cents)

	return g, nil
}

// GetGoal returns the goal with the given id in the owner's scope.
func (r *SQLiteRepository) GetGoal(ctx context.Context, ownerID string, id int64) (core.Goal, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+goalColumns+` FROM goals WHERE id = ? AND owner_id = ?`, id, ownerID)
	g, err := scanGoal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Goal{}, ErrNotFound
	}
	if err != nil {
		return core.Goal{}, fmt.Errorf("get goal: %w", err)
	}
	return g, nil
}

// ListGoals returns every goal of the owner in insertion order.
func (r *SQLiteRepository) ListGoals(ctx context.Context, ownerID string) ([]core.Goal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+goalColumns+` FROM goals WHERE owner_id = ? ORDER BY id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	defer rows.Close()

	var goals []core.Goal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		goals = append(goals, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list goals rows: %w", err)
	}
	return goals, nil
}

// UpdateGoal rewrites the editable fields of a goal. Amounts, status,
// start date and completion timestamp are deliberately not touched here.
func (r *SQLiteRepository) UpdateGoal(ctx context.Context, g core.Goal) (core.Goal, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE goals
		SET title = ?, description = ?, target_cents = ?, category = ?,
			deadline = ?, color = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND owner_id = ?`,
		g.Title, g.Description, g.Target.Cents, g.Category,
		nullDate(g.Deadline), g.Color, g.ID, g.OwnerID)
	if err != nil {
		return core.Goal{}, fmt.Errorf("update goal: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return core.Goal{}, fmt.Errorf("update goal rows: %w", err)
	} else if n == 0 {
		return core.Goal{}, ErrNotFound
	}
	return r.GetGoal(ctx, g.OwnerID, g.ID)
}

// Contribute atomically adds amountCents to a goal's saved amount and, when
// the target is reached, flips the goal to completed in the same transaction.
// Only active goals in the owner's scope are eligible; anything else is
// ErrNotFound. The additive UPDATE prevents lost updates under concurrent
// contributions, and the status guard keeps completion from firing twice.
func (r *SQLiteRepository) Contribute(ctx context.Context, ownerID string, id, amountCents int64, now time.Time) (core.Goal, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Goal{}, fmt.Errorf("begin contribute tx: %w", err)
	}
	defer tx.Rollback()

	completedAt := now.UTC().Format(time.RFC3339)
	res, err := tx.ExecContext(ctx, `
		UPDATE goals
		SET current_cents = current_cents + ?1,
			status = CASE WHEN current_cents + ?1 >= target_cents THEN 'completed' ELSE status END,
			completed_at = CASE WHEN current_cents + ?1 >= target_cents THEN ?2 ELSE completed_at END,
			report_pending = CASE WHEN current_cents + ?1 >= target_cents THEN 1 ELSE report_pending END,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?3 AND owner_id = ?4 AND status = 'active'`,
		amountCents, completedAt, id, ownerID)
	if err != nil {
		return core.Goal{}, fmt.Errorf("apply contribution: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return core.Goal{}, fmt.Errorf("contribution rows: %w", err)
	} else if n == 0 {
		return core.Goal{}, ErrNotFound
	}

	row := tx.QueryRowContext(ctx,
		`SELECT `+goalColumns+` FROM goals WHERE id = ? AND owner_id = ?`, id, ownerID)
	g, err := scanGoal(row)
	if err != nil {
		return core.Goal{}, fmt.Errorf("reread goal: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return core.Goal{}, fmt.Errorf("commit contribution: %w", err)
	}

	slog.InfoContext(ctx, "Contribution applied",
		"id", g.ID,
		"owner_id", g.OwnerID,
		"amount_cents", amountCents,
		"current_cents", g.Current.Cents,
		"status", string(g.Status))

	return g, nil
}

// CompleteGoal marks an active goal as completed. Completed goals pass
// through unchanged so manual completion stays idempotent; cancelled goals
// are rejected by the status filter.
func (r *SQLiteRepository) CompleteGoal(ctx context.Context, ownerID string, id int64, now time.Time) (core.Goal, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE goals
		SET status = 'completed', completed_at = ?, report_pending = 1,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND owner_id = ? AND status = 'active'`,
		now.UTC().Format(time.RFC3339), id, ownerID)
	if err != nil {
		return core.Goal{}, fmt.Errorf("complete goal: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return core.Goal{}, fmt.Errorf("complete goal rows: %w", err)
	}

	g, err := r.GetGoal(ctx, ownerID, id)
	if err != nil {
		return core.Goal{}, err
	}
	if n == 0 && g.Status != core.StatusCompleted {
		// Existing but not active and not completed: a cancelled goal
		// cannot be completed.
		return core.Goal{}, ErrNotFound
	}
	return g, nil
}

// CancelGoal moves an active goal to the cancelled terminal state.
func (r *SQLiteRepository) CancelGoal(ctx context.Context, ownerID string, id int64) (core.Goal, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE goals
		SET status = 'cancelled', updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND owner_id = ? AND status = 'active'`,
		id, ownerID)
	if err != nil {
		return core.Goal{}, fmt.Errorf("cancel goal: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return core.Goal{}, fmt.Errorf("cancel goal rows: %w", err)
	} else if n == 0 {
		return core.Goal{}, ErrNotFound
	}
	return r.GetGoal(ctx, ownerID, id)
}

// DeleteGoal removes the goal permanently.
func (r *SQLiteRepository) DeleteGoal(ctx context.Context, ownerID string, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM goals WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete goal: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("delete goal rows: %w", err)
	} else if n == 0 {
		return ErrNotFound
	}

	slog.InfoContext(ctx, "Goal deleted", "id", id, "owner_id", ownerID)
	return nil
}

// ListReportPending returns goals with unreported state changes, oldest first.
// Backup path for the report worker when AMQP messages are lost.
func (r *SQLiteRepository) ListReportPending(ctx context.Context, limit int) ([]core.Goal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+goalColumns+` FROM goals WHERE report_pending = 1 ORDER BY id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list report pending: %w", err)
	}
	defer rows.Close()

	var goals []core.Goal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pending goal: %w", err)
		}
		goals = append(goals, g)
	}
	return goals, rows.Err()
}

// MarkGoalReported clears the report-pending flag after a successful export.
func (r *SQLiteRepository) MarkGoalReported(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE goals SET report_pending = 0 WHERE id = ?`, id); err != nil {
		return fmt.Errorf("mark goal reported: %w", err)
	}
	return nil
}

// AppendTransaction persists a ledger entry and returns it with its ID.
func (r *SQLiteRepository) AppendTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions (owner_id, kind, amount_cents, description, category, tx_date)
		VALUES (?, ?, ?, ?, ?, ?)`,
		t.OwnerID, string(t.Kind), t.Amount.Cents, t.Description, t.Category, t.Date.String())
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction insert id: %w", err)
	}
	t.ID = id

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", t.ID,
		"owner_id", t.OwnerID,
		"kind", string(t.Kind),
		"amount_cents", t.Amount.Cents)

	return t, nil
}

// DeleteTransaction removes a ledger entry in the owner's scope.
func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, ownerID string, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM transactions WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("delete transaction rows: %w", err)
	} else if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListTransactions returns the owner's most recent ledger entries.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, ownerID string, limit int) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, owner_id, kind, amount_cents, description, category, tx_date
		FROM transactions
		WHERE owner_id = ?
		ORDER BY tx_date DESC, id DESC
		LIMIT ?`, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txs []core.Transaction
	for rows.Next() {
		var (
			t      core.Transaction
			kind   string
			txDate string
		)
		if err := rows.Scan(&t.ID, &t.OwnerID, &kind, &t.Amount.Cents,
			&t.Description, &t.Category, &txDate); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		t.Kind = core.TransactionKind(kind)
		if t.Date, err = core.ParseDate(txDate); err != nil {
			return nil, fmt.Errorf("parse tx date %q: %w", txDate, err)
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

// ReadBalanceSummary computes the owner's all-time balance and the given
// month's income/expense totals in one query each.
func (r *SQLiteRepository) ReadBalanceSummary(ctx context.Context, ownerID string, year, month int) (core.BalanceSummary, error) {
	summary := core.BalanceSummary{Year: year, Month: month}

	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(CASE WHEN kind = 'income' THEN amount_cents ELSE -amount_cents END), 0)
		FROM transactions WHERE owner_id = ?`, ownerID).Scan(&summary.Balance.Cents)
	if err != nil {
		return summary, fmt.Errorf("read balance: %w", err)
	}

	monthPrefix := fmt.Sprintf("%04d-%02d", year, month)
	err = r.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN kind = 'income' THEN amount_cents ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN kind = 'expense' THEN amount_cents ELSE 0 END), 0)
		FROM transactions
		WHERE owner_id = ? AND tx_date LIKE ? || '%'`,
		ownerID, monthPrefix).Scan(&summary.MonthIncome.Cents, &summary.MonthExpense.Cents)
	if err != nil {
		return summary, fmt.Errorf("read month totals: %w", err)
	}

	return summary, nil
}
