package booking

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sooksun/tablebooking/internal/logger"
	"github.com/sooksun/tablebooking/internal/models"
	"github.com/sooksun/tablebooking/internal/pricing"
	"github.com/sooksun/tablebooking/internal/utils"
)

type DBLayer interface {
	GetTable(ctx context.Context, id int) (*models.Table, error)
	ListTablesWithBookings(ctx context.Context) ([]models.TableWithBooking, error)
	ListAvailableTables(ctx context.Context) ([]models.Table, error)

	GetBooking(ctx context.Context, id string) (*models.Booking, error)
	ListBookingsByStatus(ctx context.Context, statuses ...string) ([]models.Booking, error)
	ListAllBookings(ctx context.Context) ([]models.Booking, error)
	ListBookingsByTable(ctx context.Context, tableID int) ([]models.Booking, error)
	ListApprovedBookingsByPhone(ctx context.Context, phone string) ([]models.Booking, error)

	GetGroup(ctx context.Context, id string) (*models.BookingGroup, error)
	ListBookingsByGroup(ctx context.Context, groupID string) ([]models.Booking, error)

	CreateBooking(ctx context.Context, b *models.Booking) error
	CreateBookingGroup(ctx context.Context, g *models.BookingGroup, bs []models.Booking) error
	ApproveBooking(ctx context.Context, id string, tableID int, sources []string) error
	RejectBooking(ctx context.Context, id string, tableID int, sources []string) error
	CancelBooking(ctx context.Context, id string, tableID int, sources []string) error
	CancelGroup(ctx context.Context, groupID string) ([]int, error)
	MoveBooking(ctx context.Context, bookingID string, oldTableID, newTableID int) error
	SetCheckedIn(ctx context.Context, id string, at time.Time) error
	SetFoodReceived(ctx context.Context, id string, at time.Time) error

	UpdateBookingDetails(ctx context.Context, id string, req models.UpdateBookingDetailsRequest) error
	UpdateBookingMemo(ctx context.Context, id, memo string) error
	UpdateBookingSlip(ctx context.Context, id, slipURL string) error
	UpdateGroupSlip(ctx context.Context, groupID, slipURL string) error
}

// TableLocker serializes concurrent reservation attempts on the same table.
// Holds are short-lived: they cover only the create critical section, the
// database CAS remains the source of truth.
type TableLocker interface {
	HoldTables(ctx context.Context, tableIDs []int, owner string) (bool, error)
	ReleaseTables(ctx context.Context, tableIDs []int, owner string) error
}

type EventPublisher interface {
	BookingCreated(b models.Booking) error
	BookingApproved(b models.Booking) error
	BookingRejected(b models.Booking) error
	BookingCancelled(b models.Booking) error
	BookingCheckedIn(b models.Booking) error
	BookingFoodServed(b models.Booking) error
	TableStatus(tableID int, status string) error
}

type Service struct {
	DB      DBLayer
	Locks   TableLocker
	Events  EventPublisher
	Pricing *pricing.Calculator
	Logger  *logger.Logger

	now func() time.Time
}

func NewService(db DBLayer, locks TableLocker, events EventPublisher, pr *pricing.Calculator, log *logger.Logger) *Service {
	return &Service{
		DB:      db,
		Locks:   locks,
		Events:  events,
		Pricing: pr,
		Logger:  log,
		now:     time.Now,
	}
}

// ---------------- READS ----------------

func (s *Service) ListTables(ctx context.Context) ([]models.TableWithBooking, error) {
	return s.DB.ListTablesWithBookings(ctx)
}

func (s *Service) ListAvailableTables(ctx context.Context) ([]models.Table, error) {
	return s.DB.ListAvailableTables(ctx)
}

func (s *Service) PendingBookings(ctx context.Context) ([]models.Booking, error) {
	return s.DB.ListBookingsByStatus(ctx, models.BookingPendingVerification)
}

func (s *Service) AllBookings(ctx context.Context) ([]models.Booking, error) {
	return s.DB.ListAllBookings(ctx)
}

func (s *Service) TableBookings(ctx context.Context, tableID int) ([]models.Booking, error) {
	return s.DB.ListBookingsByTable(ctx, tableID)
}

func (s *Service) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	b, err := s.DB.GetBooking(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("booking %s: %w", id, err)
	}
	return b, nil
}

// BookingsByPhone returns the caller's approved bookings. The phone number
// doubles as the retrieval password, so it must be long enough to not be
// guessable by iterating table labels.
func (s *Service) BookingsByPhone(ctx context.Context, phone string) ([]models.Booking, error) {
	normalized := utils.NormalizePhone(phone)
	if len(normalized) < utils.MinPhoneDigits {
		return nil, ErrInvalidPhone
	}
	return s.DB.ListApprovedBookingsByPhone(ctx, normalized)
}

func (s *Service) BookingGroup(ctx context.Context, groupID string) (*models.GroupWithBookings, error) {
	group, err := s.DB.GetGroup(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("group %s: %w", groupID, err)
	}
	members, err := s.DB.ListBookingsByGroup(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("group %s members: %w", groupID, err)
	}
	return &models.GroupWithBookings{Group: *group, Bookings: members}, nil
}

// ---------------- CREATE ----------------

// CreateBooking reserves a single table: row inserted as
// PENDING_VERIFICATION, table flipped AVAILABLE -> PENDING. The flip is a
// compare-and-swap inside one transaction, so of two concurrent callers
// exactly one succeeds and the other sees a table-conflict error.
func (s *Service) CreateBooking(ctx context.Context, req models.CreateBookingRequest) (*models.Booking, error) {
	name := strings.TrimSpace(req.UserName)
	if name == "" {
		return nil, ErrMissingName
	}
	phone := utils.NormalizePhone(req.Phone)
	if len(phone) < utils.MinPhoneDigits {
		return nil, ErrInvalidPhone
	}
	if req.Amount < s.Pricing.BasePrice() {
		return nil, ErrInvalidAmount
	}

	owner := uuid.NewString()
	if s.Locks != nil {
		held, err := s.Locks.HoldTables(ctx, []int{req.TableID}, owner)
		if err != nil {
			return nil, fmt.Errorf("table hold: %w", err)
		}
		if !held {
			return nil, ErrTableHeld
		}
		defer func() {
			if err := s.Locks.ReleaseTables(ctx, []int{req.TableID}, owner); err != nil {
				s.Logger.Warn("LOCK", fmt.Sprintf("release table %d: %v", req.TableID, err))
			}
		}()
	}

	table, err := s.DB.GetTable(ctx, req.TableID)
	if err != nil {
		return nil, err
	}
	if table.Status == models.TableBooked {
		return nil, ErrTableBooked
	}
	if table.Status == models.TablePending || table.CurrentQueueCount >= 1 {
		return nil, ErrTablePending
	}

	b := models.Booking{
		ID:            uuid.NewString(),
		TableID:       req.TableID,
		UserName:      name,
		Phone:         phone,
		Amount:        req.Amount,
		SlipURL:       req.SlipURL,
		Status:        models.BookingPendingVerification,
		QueuePosition: 1,
		CreatedAt:     s.now(),
	}
	applyExtras(&b, req.Extras)

	if err := s.DB.CreateBooking(ctx, &b); err != nil {
		return nil, err
	}
	s.Logger.LogBooking("CREATE", b.ID, fmt.Sprintf("table %d reserved by %s", b.TableID, b.UserName))

	s.publish(func() error { return s.Events.BookingCreated(b) }, "booking created")
	s.publish(func() error { return s.Events.TableStatus(b.TableID, models.TablePending) }, "table status")
	return &b, nil
}

// CreateBookingGroup reserves several tables in one purchase. The shared
// extras live on the group row; each member booking carries only the base
// table price and a back-reference to the group.
func (s *Service) CreateBookingGroup(ctx context.Context, req models.CreateBookingRequest) (*models.GroupWithBookings, error) {
	if len(req.TableIDs) == 0 {
		return nil, ErrNoTables
	}
	name := strings.TrimSpace(req.UserName)
	if name == "" {
		return nil, ErrMissingName
	}
	phone := utils.NormalizePhone(req.Phone)
	if len(phone) < utils.MinPhoneDigits {
		return nil, ErrInvalidPhone
	}
	if req.Amount < s.Pricing.BookingTotal(len(req.TableIDs), req.Extras) {
		return nil, ErrInvalidAmount
	}

	owner := uuid.NewString()
	if s.Locks != nil {
		held, err := s.Locks.HoldTables(ctx, req.TableIDs, owner)
		if err != nil {
			return nil, fmt.Errorf("table hold: %w", err)
		}
		if !held {
			return nil, ErrTableHeld
		}
		defer func() {
			if err := s.Locks.ReleaseTables(ctx, req.TableIDs, owner); err != nil {
				s.Logger.Warn("LOCK", fmt.Sprintf("release tables %v: %v", req.TableIDs, err))
			}
		}()
	}

	for _, tableID := range req.TableIDs {
		table, err := s.DB.GetTable(ctx, tableID)
		if err != nil {
			return nil, err
		}
		if table.Status == models.TableBooked {
			return nil, fmt.Errorf("table %s: %w", table.Label, ErrTableBooked)
		}
		if table.Status == models.TablePending || table.CurrentQueueCount >= 1 {
			return nil, fmt.Errorf("table %s: %w", table.Label, ErrTablePending)
		}
	}

	group := models.BookingGroup{
		ID:          uuid.NewString(),
		UserName:    name,
		Phone:       phone,
		TotalAmount: req.Amount,
		SlipURL:     req.SlipURL,
		CreatedAt:   s.now(),
	}
	applyGroupExtras(&group, req.Extras)

	bookings := make([]models.Booking, len(req.TableIDs))
	for i, tableID := range req.TableIDs {
		bookings[i] = models.Booking{
			ID:             uuid.NewString(),
			TableID:        tableID,
			UserName:       name,
			Phone:          phone,
			Amount:         s.Pricing.BasePrice(),
			SlipURL:        req.SlipURL,
			Status:         models.BookingPendingVerification,
			QueuePosition:  1,
			BookingGroupID: group.ID,
			CreatedAt:      s.now(),
		}
	}

	if err := s.DB.CreateBookingGroup(ctx, &group, bookings); err != nil {
		return nil, err
	}
	s.Logger.LogBooking("CREATE_GROUP", group.ID, fmt.Sprintf("%d tables reserved by %s", len(bookings), name))

	for _, b := range bookings {
		b := b
		s.publish(func() error { return s.Events.BookingCreated(b) }, "booking created")
		s.publish(func() error { return s.Events.TableStatus(b.TableID, models.TablePending) }, "table status")
	}
	return &models.GroupWithBookings{Group: group, Bookings: bookings}, nil
}

// ---------------- ADMIN VERIFICATION ----------------

// ApproveBooking marks the booking APPROVED and its table BOOKED.
// Approving an already-approved booking is a no-op; approving a rejected or
// cancelled one is refused.
func (s *Service) ApproveBooking(ctx context.Context, id string) error {
	b, err := s.DB.GetBooking(ctx, id)
	if err != nil {
		return err
	}
	if !ValidTransition(ActionApprove, b.Status) {
		return fmt.Errorf("approve booking %s from %s: %w", id, b.Status, ErrBookingFinalized)
	}

	if err := s.DB.ApproveBooking(ctx, id, b.TableID, AllowedSources(ActionApprove)); err != nil {
		return fmt.Errorf("approve booking %s: %w", id, err)
	}
	s.Logger.LogBooking("APPROVE", id, fmt.Sprintf("table %d booked", b.TableID))

	b.Status = models.BookingApproved
	s.publish(func() error { return s.Events.BookingApproved(*b) }, "booking approved")
	s.publish(func() error { return s.Events.TableStatus(b.TableID, models.TableBooked) }, "table status")
	return nil
}

// RejectBooking marks the booking REJECTED and frees its table immediately.
// A booking that already reached a terminal state is refused: its table may
// have been reserved again, and releasing it would strand the newer booking.
func (s *Service) RejectBooking(ctx context.Context, id string) error {
	b, err := s.DB.GetBooking(ctx, id)
	if err != nil {
		return err
	}
	if !ValidTransition(ActionReject, b.Status) {
		return fmt.Errorf("reject booking %s from %s: %w", id, b.Status, ErrBookingFinalized)
	}

	if err := s.DB.RejectBooking(ctx, id, b.TableID, AllowedSources(ActionReject)); err != nil {
		return fmt.Errorf("reject booking %s: %w", id, err)
	}
	s.Logger.LogBooking("REJECT", id, fmt.Sprintf("table %d released", b.TableID))

	b.Status = models.BookingRejected
	s.publish(func() error { return s.Events.BookingRejected(*b) }, "booking rejected")
	s.publish(func() error { return s.Events.TableStatus(b.TableID, models.TableAvailable) }, "table status")
	return nil
}

// CancelBooking is the owner- or admin-initiated cancellation. The table
// goes back to AVAILABLE no matter whether the booking was pending or booked.
func (s *Service) CancelBooking(ctx context.Context, id string) error {
	b, err := s.DB.GetBooking(ctx, id)
	if err != nil {
		return err
	}
	if !ValidTransition(ActionCancel, b.Status) {
		return fmt.Errorf("cancel booking %s from %s: %w", id, b.Status, ErrBookingFinalized)
	}

	if err := s.DB.CancelBooking(ctx, id, b.TableID, AllowedSources(ActionCancel)); err != nil {
		return fmt.Errorf("cancel booking %s: %w", id, err)
	}
	s.Logger.LogBooking("CANCEL", id, fmt.Sprintf("table %d released", b.TableID))

	b.Status = models.BookingCancelled
	s.publish(func() error { return s.Events.BookingCancelled(*b) }, "booking cancelled")
	s.publish(func() error { return s.Events.TableStatus(b.TableID, models.TableAvailable) }, "table status")
	return nil
}

// CancelBookingGroup cancels every member of a multi-table purchase and
// resets each of their tables.
func (s *Service) CancelBookingGroup(ctx context.Context, groupID string) error {
	members, err := s.DB.ListBookingsByGroup(ctx, groupID)
	if err != nil {
		return err
	}
	if len(members) == 0 {
		return ErrGroupNotFound
	}

	tableIDs, err := s.DB.CancelGroup(ctx, groupID)
	if err != nil {
		return fmt.Errorf("cancel group %s: %w", groupID, err)
	}
	s.Logger.LogBooking("CANCEL_GROUP", groupID, fmt.Sprintf("%d tables released", len(tableIDs)))

	for _, m := range members {
		if Terminal(m.Status) {
			continue
		}
		m.Status = models.BookingCancelled
		member := m
		s.publish(func() error { return s.Events.BookingCancelled(member) }, "booking cancelled")
	}
	for _, tableID := range tableIDs {
		id := tableID
		s.publish(func() error { return s.Events.TableStatus(id, models.TableAvailable) }, "table status")
	}
	return nil
}

// ChangeBookingTable moves a booking to a new table. The destination must be
// AVAILABLE; the swap is compare-and-swapped so a concurrent reservation of
// the destination loses cleanly.
func (s *Service) ChangeBookingTable(ctx context.Context, bookingID string, oldTableID, newTableID int) error {
	b, err := s.DB.GetBooking(ctx, bookingID)
	if err != nil {
		return err
	}
	if b.TableID != oldTableID {
		return fmt.Errorf("booking %s is on table %d, not %d: %w", bookingID, b.TableID, oldTableID, ErrConflict)
	}

	if err := s.DB.MoveBooking(ctx, bookingID, oldTableID, newTableID); err != nil {
		return fmt.Errorf("move booking %s: %w", bookingID, err)
	}
	s.Logger.LogBooking("CHANGE_TABLE", bookingID, fmt.Sprintf("table %d -> %d", oldTableID, newTableID))

	s.publish(func() error { return s.Events.TableStatus(oldTableID, models.TableAvailable) }, "table status")
	s.publish(func() error { return s.Events.TableStatus(newTableID, models.TablePending) }, "table status")
	return nil
}

// ---------------- EVENT DAY ----------------

// CheckIn records arrival for an approved booking. The QR code on the ticket
// decodes to the booking id. A second scan fails instead of silently
// double-processing.
func (s *Service) CheckIn(ctx context.Context, bookingID string) (*models.Booking, error) {
	b, err := s.DB.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.Status != models.BookingApproved {
		return nil, ErrNotApproved
	}
	if b.CheckedInAt != nil {
		return nil, ErrAlreadyCheckedIn
	}

	at := s.now()
	if err := s.DB.SetCheckedIn(ctx, bookingID, at); err != nil {
		return nil, fmt.Errorf("check in booking %s: %w", bookingID, err)
	}
	s.Logger.LogBooking("CHECKIN", bookingID, fmt.Sprintf("table %d arrived", b.TableID))

	b.CheckedInAt = &at
	s.publish(func() error { return s.Events.BookingCheckedIn(*b) }, "booking checked in")
	return b, nil
}

// ConfirmFoodReceived records meal delivery. Strictly ordered after check-in
// for the same booking; there is no way to skip the check-in step.
func (s *Service) ConfirmFoodReceived(ctx context.Context, bookingID string) (*models.Booking, error) {
	b, err := s.DB.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.Status != models.BookingApproved {
		return nil, ErrNotApproved
	}
	if b.CheckedInAt == nil {
		return nil, ErrNotCheckedIn
	}
	if b.FoodReceivedAt != nil {
		return nil, ErrFoodAlreadyReceived
	}

	at := s.now()
	if err := s.DB.SetFoodReceived(ctx, bookingID, at); err != nil {
		return nil, fmt.Errorf("confirm food for booking %s: %w", bookingID, err)
	}
	s.Logger.LogBooking("FOOD", bookingID, fmt.Sprintf("table %d served", b.TableID))

	b.FoodReceivedAt = &at
	s.publish(func() error { return s.Events.BookingFoodServed(*b) }, "food served")
	return b, nil
}

// ---------------- ADMIN EDITS ----------------

func (s *Service) UpdateBookingDetails(ctx context.Context, id string, req models.UpdateBookingDetailsRequest) error {
	if _, err := s.DB.GetBooking(ctx, id); err != nil {
		return err
	}
	if req.UserName != nil {
		trimmed := strings.TrimSpace(*req.UserName)
		req.UserName = &trimmed
	}
	if req.Phone != nil {
		normalized := utils.NormalizePhone(*req.Phone)
		if len(normalized) < utils.MinPhoneDigits {
			return ErrInvalidPhone
		}
		req.Phone = &normalized
	}
	if req.Donation != nil && *req.Donation < 0 {
		zero := 0
		req.Donation = &zero
	}
	return s.DB.UpdateBookingDetails(ctx, id, req)
}

func (s *Service) UpdateBookingMemo(ctx context.Context, id, memo string) error {
	if _, err := s.DB.GetBooking(ctx, id); err != nil {
		return err
	}
	return s.DB.UpdateBookingMemo(ctx, id, memo)
}

func (s *Service) UpdateBookingSlip(ctx context.Context, id, slipURL string) error {
	if _, err := s.DB.GetBooking(ctx, id); err != nil {
		return err
	}
	return s.DB.UpdateBookingSlip(ctx, id, slipURL)
}

func (s *Service) UpdateGroupSlip(ctx context.Context, groupID, slipURL string) error {
	if _, err := s.DB.GetGroup(ctx, groupID); err != nil {
		return err
	}
	return s.DB.UpdateGroupSlip(ctx, groupID, slipURL)
}

// ---------------- helpers ----------------

func (s *Service) publish(fn func() error, what string) {
	if s.Events == nil {
		return
	}
	if err := fn(); err != nil {
		s.Logger.Warn("KAFKA", fmt.Sprintf("publish %s: %v", what, err))
	}
}

func applyExtras(b *models.Booking, extras models.BookingExtras) {
	b.Donation = clampNonNegative(extras.Donation)
	b.ShirtOrders = extras.ShirtOrders
	b.ShirtDelivery = extras.ShirtDelivery
	b.ShirtDeliveryAddress = strings.TrimSpace(extras.ShirtDeliveryAddress)
	b.EDonationWant = extras.EDonationWant
	if extras.EDonationWant {
		b.EDonationName = strings.TrimSpace(extras.EDonationName)
		b.EDonationAddress = strings.TrimSpace(extras.EDonationAddress)
		b.EDonationID = strings.TrimSpace(extras.EDonationID)
	}
}

func applyGroupExtras(g *models.BookingGroup, extras models.BookingExtras) {
	g.Donation = clampNonNegative(extras.Donation)
	g.ShirtOrders = extras.ShirtOrders
	g.ShirtDelivery = extras.ShirtDelivery
	g.ShirtDeliveryAddress = strings.TrimSpace(extras.ShirtDeliveryAddress)
	g.EDonationWant = extras.EDonationWant
	if extras.EDonationWant {
		g.EDonationName = strings.TrimSpace(extras.EDonationName)
		g.EDonationAddress = strings.TrimSpace(extras.EDonationAddress)
		g.EDonationID = strings.TrimSpace(extras.EDonationID)
	}
}

func clampNonNegative(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
