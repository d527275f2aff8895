package booking

import "errors"

// Validation errors
var (
	ErrInvalidAmount = errors.New("invalid payment amount")
	ErrInvalidPhone  = errors.New("invalid phone number")
	ErrMissingName   = errors.New("payer name is required")
	ErrNoTables      = errors.New("at least one table is required")
)

// Not-found errors
var (
	ErrBookingNotFound = errors.New("booking not found")
	ErrTableNotFound   = errors.New("table not found")
	ErrGroupNotFound   = errors.New("booking group not found")
)

// State-conflict errors
var (
	ErrTableBooked       = errors.New("table already booked")
	ErrTablePending      = errors.New("table already has a pending reservation")
	ErrTableNotAvailable = errors.New("table is not available")
	ErrTableHeld         = errors.New("table is being reserved by someone else")

	ErrNotApproved         = errors.New("booking not approved")
	ErrAlreadyCheckedIn    = errors.New("already checked in")
	ErrNotCheckedIn        = errors.New("not checked in yet")
	ErrFoodAlreadyReceived = errors.New("food already received")
	ErrBookingFinalized    = errors.New("booking is already rejected or cancelled")

	// ErrConflict reports a guarded update that matched no row: the record
	// changed between the service's read and the conditional write.
	ErrConflict = errors.New("booking state changed concurrently")
)

// IsNotFound reports whether err belongs to the not-found class.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrBookingNotFound) ||
		errors.Is(err, ErrTableNotFound) ||
		errors.Is(err, ErrGroupNotFound)
}

// IsConflict reports whether err belongs to the state-conflict class.
func IsConflict(err error) bool {
	return errors.Is(err, ErrTableBooked) ||
		errors.Is(err, ErrTablePending) ||
		errors.Is(err, ErrTableNotAvailable) ||
		errors.Is(err, ErrTableHeld) ||
		errors.Is(err, ErrNotApproved) ||
		errors.Is(err, ErrAlreadyCheckedIn) ||
		errors.Is(err, ErrNotCheckedIn) ||
		errors.Is(err, ErrFoodAlreadyReceived) ||
		errors.Is(err, ErrBookingFinalized) ||
		errors.Is(err, ErrConflict)
}

// IsValidation reports whether err belongs to the validation class.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInvalidPhone) ||
		errors.Is(err, ErrMissingName) ||
		errors.Is(err, ErrNoTables)
}
