package models

import "time"

// Status is the lifecycle state of a ticket. The set is closed: unknown
// values are rejected at the API boundary and the transition table in the
// store package decides which moves are legal.
type Status string

const (
	StatusWaiting    Status = "waiting"
	StatusCalled     Status = "called"
	StatusProcessing Status = "processing"
	StatusDone       Status = "done"
	StatusSkipped    Status = "skipped"
	StatusReleased   Status = "released"
	StatusReset      Status = "reset"
	StatusCancelled  Status = "cancelled"
)

type Ticket struct {
	ID          int64     `json:"id"`
	CounterID   int64     `json:"counter_id"`
	Number      int       `json:"number"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	CounterName string    `json:"counter_name,omitempty"`
}
