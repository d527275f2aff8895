package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Table statuses
const (
	TableAvailable = "AVAILABLE"
	TablePending   = "PENDING"
	TableBooked    = "BOOKED"
)

// The event floor is a fixed 9x13 grid of 117 tables, seeded once at setup.
const (
	GridRows   = 9
	GridCols   = 13
	TableCount = GridRows * GridCols
)

type Table struct {
	bun.BaseModel `bun:"table:tables"`

	ID                int       `bun:"id,pk" json:"id"`
	Label             string    `bun:"label,notnull,unique" json:"label"`
	Status            string    `bun:"status,notnull" json:"status"`
	CurrentQueueCount int       `bun:"current_queue_count,notnull" json:"current_queue_count"`
	CreatedAt         time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
}

// TableWithBooking pairs a table with its active booking, if any,
// for rendering the reservation grid.
type TableWithBooking struct {
	Table
	CurrentBooking *Booking `json:"current_booking,omitempty"`
}
