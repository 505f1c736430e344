// Package clock provides the time source injected into the goal services so
// overdue and days-remaining computations stay deterministic under test.
package clock

import (
	"time"

	"metas/internal/core"
)

// Clock supplies the current timestamp and calendar day.
type Clock interface {
	Now() time.Time
	Today() core.Date
}

// System reads the wall clock in UTC.
type System struct{}

func (System) Now() time.Time { return time.Now().UTC() }

func (s System) Today() core.Date { return core.DateOf(s.Now()) }

// Fixed always reports the same instant. Test use only.
type Fixed struct {
	Instant time.Time
}

// FixedAt pins the clock to the given instant.
func FixedAt(t time.Time) Fixed { return Fixed{Instant: t.UTC()} }

func (f Fixed) Now() time.Time { return f.Instant }

func (f Fixed) Today() core.Date { return core.DateOf(f.Instant) }
