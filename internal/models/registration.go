package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Registration is a donation/shirt-order record with no table attached.
// Append-only; the slip is reviewed by an admin but there is no state machine.
type Registration struct {
	bun.BaseModel `bun:"table:registrations"`

	ID                   string       `bun:"id,pk" json:"id"`
	UserName             string       `bun:"user_name,notnull" json:"user_name"`
	Phone                string       `bun:"phone,notnull" json:"phone"`
	Donation             int          `bun:"donation,notnull" json:"donation"`
	ShirtOrders          []ShirtOrder `bun:"shirt_orders,type:jsonb,nullzero" json:"shirt_orders"`
	ShirtDelivery        string       `bun:"shirt_delivery,nullzero" json:"shirt_delivery,omitempty"`
	ShirtDeliveryAddress string       `bun:"shirt_delivery_address,nullzero" json:"shirt_delivery_address,omitempty"`
	EDonationWant        bool         `bun:"e_donation_want,nullzero" json:"e_donation_want,omitempty"`
	EDonationName        string       `bun:"e_donation_name,nullzero" json:"e_donation_name,omitempty"`
	EDonationAddress     string       `bun:"e_donation_address,nullzero" json:"e_donation_address,omitempty"`
	EDonationID          string       `bun:"e_donation_id,nullzero" json:"e_donation_id,omitempty"`
	TotalAmount          int          `bun:"total_amount,notnull" json:"total_amount"`
	SlipURL              string       `bun:"slip_url,nullzero" json:"slip_url,omitempty"`
	CreatedAt            time.Time    `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
}
