package core

import (
	"errors"
	"strings"
	"testing"
)

func validGoal() Goal {
	return Goal{
		OwnerID:   "user-1",
		Title:     "Emergency fund",
		Category:  "Savings",
		Target:    Money{Cents: 600000},
		Status:    StatusActive,
		StartDate: NewDate(2026, 1, 10),
		Color:     DefaultColor,
	}
}

func TestGoalValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Goal)
		wantErr error
	}{
		{"valid", func(g *Goal) {}, nil},
		{"missing owner", func(g *Goal) { g.OwnerID = " " }, ErrMissingOwner},
		{"title too short", func(g *Goal) { g.Title = "ab" }, ErrTitleTooShort},
		{"title whitespace only", func(g *Goal) { g.Title = "   " }, ErrTitleTooShort},
		{"two accented runes too short", func(g *Goal) { g.Title = "éé" }, ErrTitleTooShort},
		{"three accented runes long enough", func(g *Goal) { g.Title = "fée" }, nil},
		{"long multibyte description fits", func(g *Goal) { g.Description = strings.Repeat("é", MaxDescriptionLen) }, nil},
		{"description over limit", func(g *Goal) { g.Description = strings.Repeat("é", MaxDescriptionLen+1) }, ErrDescriptionTooLong},
		{"zero target", func(g *Goal) { g.Target = Money{} }, ErrInvalidAmount},
		{"negative target", func(g *Goal) { g.Target = Money{Cents: -100} }, ErrInvalidAmount},
		{"negative current", func(g *Goal) { g.Current = Money{Cents: -1} }, ErrInvalidAmount},
		{"missing start date", func(g *Goal) { g.StartDate = Date{} }, ErrInvalidDate},
		{"deadline before start", func(g *Goal) { g.Deadline = NewDate(2026, 1, 9) }, ErrDeadlineBeforeStart},
		{"deadline equals start", func(g *Goal) { g.Deadline = NewDate(2026, 1, 10) }, nil},
		{"deadline after start", func(g *Goal) { g.Deadline = NewDate(2026, 3, 1) }, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := validGoal()
			tt.mutate(&g)
			err := g.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Goal.Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestGoalNormalize(t *testing.T) {
	g := Goal{Title: "  Trip to Lisbon  ", Category: "", Color: " "}
	g.Normalize()
	if g.Title != "Trip to Lisbon" {
		t.Errorf("Normalize() title = %q", g.Title)
	}
	if g.Category != DefaultCategory {
		t.Errorf("Normalize() category = %q, want %q", g.Category, DefaultCategory)
	}
	if g.Color != DefaultColor {
		t.Errorf("Normalize() color = %q, want %q", g.Color, DefaultColor)
	}
}

func TestTransactionValidate(t *testing.T) {
	valid := Transaction{
		OwnerID:     "user-1",
		Kind:        Expense,
		Amount:      Money{Cents: 4200},
		Description: "Groceries",
		Category:    "Food",
		Date:        NewDate(2026, 8, 30),
	}

	tests := []struct {
		name    string
		mutate  func(*Transaction)
		wantErr error
	}{
		{"valid expense", func(tx *Transaction) {}, nil},
		{"valid income", func(tx *Transaction) { tx.Kind = Income }, nil},
		{"unknown kind", func(tx *Transaction) { tx.Kind = "transfer" }, ErrInvalidKind},
		{"zero amount", func(tx *Transaction) { tx.Amount = Money{} }, ErrInvalidAmount},
		{"short description", func(tx *Transaction) { tx.Description = "ab" }, ErrTitleTooShort},
		{"two accented runes too short", func(tx *Transaction) { tx.Description = "éé" }, ErrTitleTooShort},
		{"three accented runes long enough", func(tx *Transaction) { tx.Description = "pão" }, nil},
		{"missing date", func(tx *Transaction) { tx.Date = Date{} }, ErrInvalidDate},
		{"missing owner", func(tx *Transaction) { tx.OwnerID = "" }, ErrMissingOwner},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := valid
			tt.mutate(&tx)
			err := tx.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Transaction.Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2026-08-30")
	if err != nil {
		t.Fatalf("ParseDate() error = %v", err)
	}
	if d.Year() != 2026 || int(d.Month()) != 8 || d.Day() != 30 {
		t.Errorf("ParseDate() = %v", d)
	}

	if _, err := ParseDate("30/08/2026"); !errors.Is(err, ErrInvalidDate) {
		t.Errorf("ParseDate(bad format) error = %v, want ErrInvalidDate", err)
	}
}

func TestDateDaysUntil(t *testing.T) {
	today := NewDate(2026, 8, 30)
	tests := []struct {
		name string
		d    Date
		want int
	}{
		{"same day", NewDate(2026, 8, 30), 0},
		{"tomorrow", NewDate(2026, 8, 31), 1},
		{"yesterday", NewDate(2026, 8, 29), -1},
		{"sixty days out", NewDate(2026, 10, 29), 60},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.d.DaysUntil(today); got != tt.want {
				t.Errorf("DaysUntil() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusActive, StatusCompleted, true},
		{StatusActive, StatusCancelled, true},
		{StatusCompleted, StatusActive, false},
		{StatusCompleted, StatusCancelled, false},
		{StatusCancelled, StatusCompleted, false},
		{StatusCancelled, StatusActive, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			if got := CanTransition(tt.from, tt.to); got != tt.want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}
