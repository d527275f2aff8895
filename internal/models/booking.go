package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Booking statuses
const (
	BookingPendingVerification = "PENDING_VERIFICATION"
	BookingApproved            = "APPROVED"
	BookingRejected            = "REJECTED"
	BookingWaitingList         = "WAITING_LIST" // reserved, no transitions reach it
	BookingCancelled           = "CANCELLED"
	BookingCancelledBySystem   = "CANCELLED_BY_SYSTEM"
)

// Shirt order types and delivery choices
const (
	ShirtCrew = "crew"
	ShirtPolo = "polo"

	DeliveryPickup  = "pickup"
	DeliveryCourier = "delivery"
)

type ShirtOrder struct {
	Type     string `json:"type"`
	Size     string `json:"size"`
	Quantity int    `json:"quantity"`
}

type Booking struct {
	bun.BaseModel `bun:"table:bookings,alias:booking"`

	ID            string `bun:"id,pk" json:"id"`
	TableID       int    `bun:"table_id,notnull" json:"table_id"`
	UserName      string `bun:"user_name,notnull" json:"user_name"`
	Phone         string `bun:"phone,notnull" json:"phone"`
	Amount        int    `bun:"amount,notnull" json:"amount"`
	SlipURL       string `bun:"slip_url,nullzero" json:"slip_url,omitempty"`
	Status        string `bun:"status,notnull" json:"status"`
	QueuePosition int    `bun:"queue_position,notnull" json:"queue_position"`
	Memo          string `bun:"memo,nullzero" json:"memo,omitempty"`

	Donation             int          `bun:"donation,nullzero" json:"donation,omitempty"`
	ShirtOrders          []ShirtOrder `bun:"shirt_orders,type:jsonb,nullzero" json:"shirt_orders,omitempty"`
	ShirtDelivery        string       `bun:"shirt_delivery,nullzero" json:"shirt_delivery,omitempty"`
	ShirtDeliveryAddress string       `bun:"shirt_delivery_address,nullzero" json:"shirt_delivery_address,omitempty"`
	EDonationWant        bool         `bun:"e_donation_want,nullzero" json:"e_donation_want,omitempty"`
	EDonationName        string       `bun:"e_donation_name,nullzero" json:"e_donation_name,omitempty"`
	EDonationAddress     string       `bun:"e_donation_address,nullzero" json:"e_donation_address,omitempty"`
	EDonationID          string       `bun:"e_donation_id,nullzero" json:"e_donation_id,omitempty"`

	BookingGroupID string     `bun:"booking_group_id,nullzero" json:"booking_group_id,omitempty"`
	CheckedInAt    *time.Time `bun:"checked_in_at,nullzero" json:"checked_in_at,omitempty"`
	FoodReceivedAt *time.Time `bun:"food_received_at,nullzero" json:"food_received_at,omitempty"`
	CreatedAt      time.Time  `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`

	Table *Table `bun:"rel:belongs-to,join:table_id=id" json:"table,omitempty"`
}

// BookingGroup owns the extras shared by a multi-table purchase. Each member
// booking carries only its own table reference plus a back-reference here, so
// the "primary" booking never has to be inferred from amounts.
type BookingGroup struct {
	bun.BaseModel `bun:"table:booking_groups"`

	ID          string `bun:"id,pk" json:"id"`
	UserName    string `bun:"user_name,notnull" json:"user_name"`
	Phone       string `bun:"phone,notnull" json:"phone"`
	TotalAmount int    `bun:"total_amount,notnull" json:"total_amount"`
	SlipURL     string `bun:"slip_url,nullzero" json:"slip_url,omitempty"`

	Donation             int          `bun:"donation,nullzero" json:"donation,omitempty"`
	ShirtOrders          []ShirtOrder `bun:"shirt_orders,type:jsonb,nullzero" json:"shirt_orders,omitempty"`
	ShirtDelivery        string       `bun:"shirt_delivery,nullzero" json:"shirt_delivery,omitempty"`
	ShirtDeliveryAddress string       `bun:"shirt_delivery_address,nullzero" json:"shirt_delivery_address,omitempty"`
	EDonationWant        bool         `bun:"e_donation_want,nullzero" json:"e_donation_want,omitempty"`
	EDonationName        string       `bun:"e_donation_name,nullzero" json:"e_donation_name,omitempty"`
	EDonationAddress     string       `bun:"e_donation_address,nullzero" json:"e_donation_address,omitempty"`
	EDonationID          string       `bun:"e_donation_id,nullzero" json:"e_donation_id,omitempty"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
}

// GroupWithBookings is the admin view of a multi-table purchase.
type GroupWithBookings struct {
	Group    BookingGroup `json:"group"`
	Bookings []Booking    `json:"bookings"`
}
