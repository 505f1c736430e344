package amqp

import (
	"encoding/json"
	"time"
)

// Goal event kinds carried on the wire.
const (
	EventGoalCreated   = "created"
	EventGoalCompleted = "completed"
)

// GoalEventMessage is a lightweight notification about a goal. It carries
// only identifiers; the worker fetches the full goal from the database.
type GoalEventMessage struct {
	GoalID    int64     `json:"goal_id"`
	OwnerID   string    `json:"owner_id"`
	Event     string    `json:"event"`
	Timestamp time.Time `json:"timestamp"`
}

func NewGoalEventMessage(goalID int64, ownerID, event string) *GoalEventMessage {
	return &GoalEventMessage{
		GoalID:    goalID,
		OwnerID:   ownerID,
		Event:     event,
		Timestamp: time.Now(),
	}
}

func (m *GoalEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func GoalEventMessageFromJSON(data []byte) (*GoalEventMessage, error) {
	var msg GoalEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
