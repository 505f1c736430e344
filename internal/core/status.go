package core

// Status is the lifecycle state of a goal.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// statusRank fixes the display precedence: active first, cancelled last.
var statusRank = map[Status]int{
	StatusActive:    0,
	StatusCompleted: 1,
	StatusCancelled: 2,
}

// transitions is the single source of truth for lifecycle legality.
// Completed and Cancelled are terminal; a cancelled goal cannot be
// resurrected by manual completion.
var transitions = map[Status][]Status{
	StatusActive:    {StatusCompleted, StatusCancelled},
	StatusCompleted: {},
	StatusCancelled: {},
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, ok := statusRank[s]
	return ok
}

// Rank returns the ordering precedence of s. Unknown statuses sort last.
func (s Status) Rank() int {
	if r, ok := statusRank[s]; ok {
		return r
	}
	return len(statusRank)
}

// CanTransition reports whether a goal may move from one status to another.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
