package core

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	// DefaultCategory is assigned when a goal or transaction comes in without one.
	DefaultCategory = "Other"
	// DefaultColor is the fallback display color for goals.
	DefaultColor = "#6366F1"

	// MinTitleLen is the minimum length, in runes, for goal titles and
	// transaction descriptions.
	MinTitleLen = 3
	// MaxDescriptionLen caps free-text fields, counted in runes.
	MaxDescriptionLen = 200
)

type (
	// Date is a calendar day, normalized to midnight UTC. The zero value means "no date".
	Date struct {
		time.Time
	}

	// Goal is a savings/spending target owned by a single user.
	Goal struct {
		ID          int64
		OwnerID     string
		Title       string
		Description string
		Category    string
		Target      Money
		Current     Money
		Status      Status
		StartDate   Date
		Deadline    Date      // zero when the goal has no deadline
		CompletedAt time.Time // zero unless Status == StatusCompleted
		Color       string
	}

	// TransactionKind distinguishes ledger entries.
	TransactionKind string

	// Transaction is a single income/expense ledger entry.
	Transaction struct {
		ID          int64
		OwnerID     string
		Kind        TransactionKind
		Amount      Money
		Description string
		Category    string
		Date        Date
	}
)

const (
	Income  TransactionKind = "income"
	Expense TransactionKind = "expense"
)

var (
	ErrTitleTooShort       = errors.New("title must have at least 3 characters")
	ErrDescriptionTooLong  = errors.New("description too long (max 200 characters)")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInvalidDate         = errors.New("invalid date")
	ErrDeadlineBeforeStart = errors.New("deadline cannot be earlier than start date")
	ErrInvalidKind         = errors.New("invalid transaction kind")
	ErrMissingOwner        = errors.New("missing owner")
)

// NewDate creates a Date from year, month, day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates a timestamp to its calendar day in UTC.
func DateOf(t time.Time) Date {
	y, m, d := t.UTC().Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// IsEmpty returns true when no date was set.
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

// String renders the date as YYYY-MM-DD, or "" for the zero value.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format("2006-01-02")
}

// DaysUntil returns the signed number of whole days from today until d.
// Negative when d is in the past.
func (d Date) DaysUntil(today Date) int {
	return int(d.Sub(today.Time).Hours() / 24)
}

// Normalize trims text fields and fills in default category and color.
func (g *Goal) Normalize() {
	g.Title = strings.TrimSpace(g.Title)
	g.Description = strings.TrimSpace(g.Description)
	if strings.TrimSpace(g.Category) == "" {
		g.Category = DefaultCategory
	}
	if strings.TrimSpace(g.Color) == "" {
		g.Color = DefaultColor
	}
}

// Validate checks the goal's field invariants. It does not check
// lifecycle state; transitions are validated by CanTransition.
func (g Goal) Validate() error {
	if strings.TrimSpace(g.OwnerID) == "" {
		return ErrMissingOwner
	}
	if utf8.RuneCountInString(strings.TrimSpace(g.Title)) < MinTitleLen {
		return ErrTitleTooShort
	}
	if utf8.RuneCountInString(g.Description) > MaxDescriptionLen {
		return ErrDescriptionTooLong
	}
	if g.Target.Cents <= 0 {
		return ErrInvalidAmount
	}
	if g.Current.Cents < 0 {
		return ErrInvalidAmount
	}
	if g.StartDate.IsEmpty() {
		return ErrInvalidDate
	}
	if !g.Deadline.IsEmpty() && g.Deadline.Before(g.StartDate.Time) {
		return ErrDeadlineBeforeStart
	}
	return nil
}

// Remaining returns how much is still missing to reach the target.
// Negative when a goal is funded beyond its target.
func (g Goal) Remaining() Money {
	return Money{Cents: g.Target.Cents - g.Current.Cents}
}

// Normalize trims text fields and applies the default category.
func (t *Transaction) Normalize() {
	t.Description = strings.TrimSpace(t.Description)
	t.Category = strings.TrimSpace(t.Category)
	if t.Category == "" {
		t.Category = DefaultCategory
	}
}

// Validate checks a ledger entry's invariants.
func (t Transaction) Validate() error {
	if strings.TrimSpace(t.OwnerID) == "" {
		return ErrMissingOwner
	}
	if t.Kind != Income && t.Kind != Expense {
		return ErrInvalidKind
	}
	if t.Amount.Cents <= 0 {
		return ErrInvalidAmount
	}
	if utf8.RuneCountInString(strings.TrimSpace(t.Description)) < MinTitleLen {
		return ErrTitleTooShort
	}
	if utf8.RuneCountInString(t.Description) > MaxDescriptionLen {
		return ErrDescriptionTooLong
	}
	if t.Date.IsEmpty() {
		return ErrInvalidDate
	}
	return nil
}
