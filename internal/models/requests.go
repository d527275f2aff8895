package models

// BookingExtras carries the optional add-ons attached to a reservation.
type BookingExtras struct {
	Donation             int          `json:"donation,omitempty"`
	ShirtOrders          []ShirtOrder `json:"shirt_orders,omitempty"`
	ShirtDelivery        string       `json:"shirt_delivery,omitempty"`
	ShirtDeliveryAddress string       `json:"shirt_delivery_address,omitempty"`
	EDonationWant        bool         `json:"e_donation_want,omitempty"`
	EDonationName        string       `json:"e_donation_name,omitempty"`
	EDonationAddress     string       `json:"e_donation_address,omitempty"`
	EDonationID          string       `json:"e_donation_id,omitempty"`
}

type CreateBookingRequest struct {
	TableID  int           `json:"table_id"`
	TableIDs []int         `json:"table_ids,omitempty"`
	UserName string        `json:"user_name"`
	Phone    string        `json:"phone"`
	Amount   int           `json:"amount"`
	SlipURL  string        `json:"slip_url"`
	Extras   BookingExtras `json:"extras"`
}

type ChangeTableRequest struct {
	OldTableID int `json:"old_table_id"`
	NewTableID int `json:"new_table_id"`
}

type MemoRequest struct {
	Memo string `json:"memo"`
}

type SlipRequest struct {
	SlipURL string `json:"slip_url"`
}

// UpdateBookingDetails uses pointers so absent fields stay untouched.
type UpdateBookingDetailsRequest struct {
	UserName             *string       `json:"user_name,omitempty"`
	Phone                *string       `json:"phone,omitempty"`
	Donation             *int          `json:"donation,omitempty"`
	ShirtOrders          *[]ShirtOrder `json:"shirt_orders,omitempty"`
	ShirtDelivery        *string       `json:"shirt_delivery,omitempty"`
	ShirtDeliveryAddress *string       `json:"shirt_delivery_address,omitempty"`
	EDonationWant        *bool         `json:"e_donation_want,omitempty"`
	EDonationName        *string       `json:"e_donation_name,omitempty"`
	EDonationAddress     *string       `json:"e_donation_address,omitempty"`
	EDonationID          *string       `json:"e_donation_id,omitempty"`
}

type CheckInRequest struct {
	// Code is the QR payload scanned at the door; it is the booking id.
	Code string `json:"code"`
}

type CreateRegistrationRequest struct {
	UserName             string       `json:"user_name"`
	Phone                string       `json:"phone"`
	Donation             int          `json:"donation"`
	ShirtOrders          []ShirtOrder `json:"shirt_orders"`
	ShirtDelivery        string       `json:"shirt_delivery"`
	ShirtDeliveryAddress string       `json:"shirt_delivery_address"`
	EDonationWant        bool         `json:"e_donation_want"`
	EDonationName        string       `json:"e_donation_name"`
	EDonationAddress     string       `json:"e_donation_address"`
	EDonationID          string       `json:"e_donation_id"`
	TotalAmount          int          `json:"total_amount"`
	SlipURL              string       `json:"slip_url"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"`
}
