package store

import (
	"context"

	"antrean/queue-service/internal/models"
)

// CounterStatusValue is the administrative state requested for a counter:
// "active" and "inactive" flip the is_active flag, "disable" soft-deletes.
type CounterStatusValue string

const (
	CounterActive   CounterStatusValue = "active"
	CounterInactive CounterStatusValue = "inactive"
	CounterDisable  CounterStatusValue = "disable"
)

type CreateCounterInput struct {
	Name     string
	MaxQueue int
}

type UpdateCounterInput struct {
	ID       int64
	Name     *string
	MaxQueue *int
}

// StatusCounts is the fixed display shape returned by the metrics endpoint.
// Statuses outside this set are deliberately not reported.
type StatusCounts struct {
	Waiting    int64 `json:"waiting"`
	Called     int64 `json:"called"`
	Processing int64 `json:"processing"`
	Skipped    int64 `json:"skipped"`
	Done       int64 `json:"done"`
}

// Store is the transactional contract the HTTP layer depends on. Every
// multi-step operation commits atomically or not at all; domain failures are
// the sentinel errors in errors.go, anything else is a storage failure.
type Store interface {
	CreateCounter(ctx context.Context, input CreateCounterInput) (models.Counter, error)
	UpdateCounter(ctx context.Context, input UpdateCounterInput) (models.Counter, error)
	SetCounterStatus(ctx context.Context, id int64, status CounterStatusValue) error
	DeleteCounter(ctx context.Context, id int64) error
	GetCounter(ctx context.Context, id int64) (models.Counter, error)
	ListCounters(ctx context.Context, page, limit int) ([]models.Counter, Pagination, error)
	CurrentCounters(ctx context.Context) ([]models.Counter, error)

	IssueTicket(ctx context.Context, counterID int64) (models.Ticket, error)
	ClaimTicket(ctx context.Context) (models.Ticket, error)
	ReleaseTicket(ctx context.Context, ticketID int64) (models.Ticket, error)
	CallNext(ctx context.Context, counterID int64) (models.Ticket, bool, error)
	SkipCurrent(ctx context.Context, counterID int64) (models.Ticket, bool, error)
	AdvanceTicket(ctx context.Context, counterID int64) (models.Ticket, bool, error)
	ResetCounters(ctx context.Context, counterID *int64) error

	GetTicket(ctx context.Context, id int64) (models.Ticket, error)
	ListTickets(ctx context.Context, page, limit int, counterID *int64) ([]models.Ticket, Pagination, error)
	UpdateTicketStatus(ctx context.Context, id int64, status models.Status) (models.Ticket, error)
	DeleteTicket(ctx context.Context, id int64) error

	CountTicketsByStatus(ctx context.Context) (StatusCounts, error)
}
