package models

import "time"

// Counter is a service point with bounded ticket-issuing capacity.
// CurrentQueue is the highest ticket number issued since the last reset,
// not the number of tickets still pending.
type Counter struct {
	ID           int64      `json:"id"`
	Name         string     `json:"name"`
	CurrentQueue int        `json:"current_queue"`
	MaxQueue     int        `json:"max_queue"`
	IsActive     bool       `json:"is_active"`
	DeletedAt    *time.Time `json:"-"`
}
