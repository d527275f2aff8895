package booking

import "github.com/sooksun/tablebooking/internal/models"

// Actions on a booking.
const (
	ActionApprove     = "approve"
	ActionReject      = "reject"
	ActionCancel      = "cancel"
	ActionCheckIn     = "check_in"
	ActionConfirmFood = "confirm_food"
)

// transitionMap lists the booking statuses each action may start from.
// Approve deliberately includes APPROVED so a double-click on the admin
// dashboard is a no-op rather than an error; REJECTED and CANCELLED are
// terminal and may not be re-approved.
var transitionMap = map[string][]string{
	ActionApprove:     {models.BookingPendingVerification, models.BookingApproved},
	ActionReject:      {models.BookingPendingVerification, models.BookingApproved},
	ActionCancel:      {models.BookingPendingVerification, models.BookingApproved},
	ActionCheckIn:     {models.BookingApproved},
	ActionConfirmFood: {models.BookingApproved},
}

// ValidTransition reports whether action is legal from the given status.
func ValidTransition(action, fromStatus string) bool {
	allowed, ok := transitionMap[action]
	if !ok {
		return false
	}
	for _, status := range allowed {
		if status == fromStatus {
			return true
		}
	}
	return false
}

// AllowedSources returns the statuses an action may start from, for use in
// conditional UPDATE ... WHERE status IN (...) guards.
func AllowedSources(action string) []string {
	return transitionMap[action]
}

// Terminal reports whether a booking status admits no further transitions.
func Terminal(status string) bool {
	switch status {
	case models.BookingRejected, models.BookingCancelled,
		models.BookingCancelledBySystem, models.BookingWaitingList:
		return true
	}
	return false
}
