package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"

	"github.com/sooksun/tablebooking/internal/booking"
	"github.com/sooksun/tablebooking/internal/models"
)

// DB implements the booking service's storage layer on bun. Every state
// transition that touches both a booking and its table runs inside one
// transaction, and table status flips are guarded UPDATEs whose row count is
// checked, so concurrent writers cannot desynchronize the two.
type DB struct {
	Bun *bun.DB
}

// ---------------- TABLES ----------------

func (d *DB) GetTable(ctx context.Context, id int) (*models.Table, error) {
	var table models.Table
	err := d.Bun.NewSelect().
		Model(&table).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, booking.ErrTableNotFound
	}
	if err != nil {
		return nil, err
	}
	return &table, nil
}

// ListTablesWithBookings returns the full grid with each table's active
// booking (PENDING_VERIFICATION or APPROVED) attached.
func (d *DB) ListTablesWithBookings(ctx context.Context) ([]models.TableWithBooking, error) {
	var tables []models.Table
	err := d.Bun.NewSelect().
		Model(&tables).
		Order("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	var active []models.Booking
	err = d.Bun.NewSelect().
		Model(&active).
		Where("status IN (?)", bun.In([]string{models.BookingPendingVerification, models.BookingApproved})).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	byTable := make(map[int]*models.Booking, len(active))
	for i := range active {
		if _, ok := byTable[active[i].TableID]; !ok {
			byTable[active[i].TableID] = &active[i]
		}
	}

	result := make([]models.TableWithBooking, len(tables))
	for i, t := range tables {
		result[i] = models.TableWithBooking{Table: t, CurrentBooking: byTable[t.ID]}
	}
	return result, nil
}

func (d *DB) ListAvailableTables(ctx context.Context) ([]models.Table, error) {
	var tables []models.Table
	err := d.Bun.NewSelect().
		Model(&tables).
		Where("status = ?", models.TableAvailable).
		Order("label ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return tables, nil
}

// ---------------- BOOKINGS: READS ----------------

func (d *DB) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	var b models.Booking
	err := d.Bun.NewSelect().
		Model(&b).
		Relation("Table").
		Where("booking.id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, booking.ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (d *DB) ListBookingsByStatus(ctx context.Context, statuses ...string) ([]models.Booking, error) {
	var bookings []models.Booking
	err := d.Bun.NewSelect().
		Model(&bookings).
		Relation("Table").
		Where("booking.status IN (?)", bun.In(statuses)).
		Order("booking.created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return bookings, nil
}

func (d *DB) ListAllBookings(ctx context.Context) ([]models.Booking, error) {
	var bookings []models.Booking
	err := d.Bun.NewSelect().
		Model(&bookings).
		Relation("Table").
		Order("booking.created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return bookings, nil
}

func (d *DB) ListBookingsByTable(ctx context.Context, tableID int) ([]models.Booking, error) {
	var bookings []models.Booking
	err := d.Bun.NewSelect().
		Model(&bookings).
		Where("table_id = ?", tableID).
		Order("queue_position ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return bookings, nil
}

func (d *DB) ListApprovedBookingsByPhone(ctx context.Context, phone string) ([]models.Booking, error) {
	var bookings []models.Booking
	err := d.Bun.NewSelect().
		Model(&bookings).
		Relation("Table").
		Where("booking.phone = ?", phone).
		Where("booking.status = ?", models.BookingApproved).
		Order("booking.created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return bookings, nil
}

// ---------------- GROUPS ----------------

func (d *DB) GetGroup(ctx context.Context, id string) (*models.BookingGroup, error) {
	var g models.BookingGroup
	err := d.Bun.NewSelect().
		Model(&g).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, booking.ErrGroupNotFound
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (d *DB) ListBookingsByGroup(ctx context.Context, groupID string) ([]models.Booking, error) {
	var bookings []models.Booking
	err := d.Bun.NewSelect().
		Model(&bookings).
		Relation("Table").
		Where("booking.booking_group_id = ?", groupID).
		Order("booking.created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return bookings, nil
}

// ---------------- CREATE ----------------

// CreateBooking inserts the booking and flips its table
// AVAILABLE -> PENDING in one transaction. The flip is conditional on the
// table still being AVAILABLE; when it is not, the current status decides
// which conflict error the caller gets.
func (d *DB) CreateBooking(ctx context.Context, b *models.Booking) error {
	return d.Bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if err := reserveTable(ctx, tx, b.TableID); err != nil {
			return err
		}
		_, err := tx.NewInsert().Model(b).Exec(ctx)
		return err
	})
}

// CreateBookingGroup inserts the group row plus one booking per table,
// reserving every table or none.
func (d *DB) CreateBookingGroup(ctx context.Context, g *models.BookingGroup, bookings []models.Booking) error {
	return d.Bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		for i := range bookings {
			if err := reserveTable(ctx, tx, bookings[i].TableID); err != nil {
				return err
			}
		}
		if _, err := tx.NewInsert().Model(g).Exec(ctx); err != nil {
			return err
		}
		_, err := tx.NewInsert().Model(&bookings).Exec(ctx)
		return err
	})
}

func reserveTable(ctx context.Context, tx bun.Tx, tableID int) error {
	res, err := tx.NewUpdate().
		Model((*models.Table)(nil)).
		Set("status = ?", models.TablePending).
		Set("current_queue_count = ?", 1).
		Where("id = ?", tableID).
		Where("status = ?", models.TableAvailable).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 1 {
		return nil
	}

	// Lost the race or the table was never free. Read the status to report why.
	var status string
	err = tx.NewSelect().
		Column("status").
		Table("tables").
		Where("id = ?", tableID).
		Limit(1).
		Scan(ctx, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return booking.ErrTableNotFound
	}
	if err != nil {
		return err
	}
	if status == models.TableBooked {
		return booking.ErrTableBooked
	}
	return booking.ErrTablePending
}

func releaseTable(ctx context.Context, tx bun.Tx, tableID int) error {
	_, err := tx.NewUpdate().
		Model((*models.Table)(nil)).
		Set("status = ?", models.TableAvailable).
		Set("current_queue_count = ?", 0).
		Where("id = ?", tableID).
		Exec(ctx)
	return err
}

// ---------------- TRANSITIONS ----------------

// ApproveBooking sets the booking APPROVED and its table BOOKED. The booking
// update is guarded by the allowed source statuses; zero rows means the
// booking reached a terminal state since the service read it.
func (d *DB) ApproveBooking(ctx context.Context, id string, tableID int, sources []string) error {
	return d.Bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().
			Model((*models.Booking)(nil)).
			Set("status = ?", models.BookingApproved).
			Where("id = ?", id).
			Where("status IN (?)", bun.In(sources)).
			Exec(ctx)
		if err != nil {
			return err
		}
		if rows, err := res.RowsAffected(); err != nil {
			return err
		} else if rows == 0 {
			return booking.ErrConflict
		}

		_, err = tx.NewUpdate().
			Model((*models.Table)(nil)).
			Set("status = ?", models.TableBooked).
			Where("id = ?", tableID).
			Exec(ctx)
		return err
	})
}

func (d *DB) RejectBooking(ctx context.Context, id string, tableID int, sources []string) error {
	return d.setTerminal(ctx, id, tableID, models.BookingRejected, sources)
}

func (d *DB) CancelBooking(ctx context.Context, id string, tableID int, sources []string) error {
	return d.setTerminal(ctx, id, tableID, models.BookingCancelled, sources)
}

// setTerminal finalizes a booking and frees its table. The booking update is
// guarded by the allowed source statuses: a booking already finalized must
// not release its table again, because a newer booking may hold it by now.
func (d *DB) setTerminal(ctx context.Context, id string, tableID int, status string, sources []string) error {
	return d.Bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().
			Model((*models.Booking)(nil)).
			Set("status = ?", status).
			Where("id = ?", id).
			Where("status IN (?)", bun.In(sources)).
			Exec(ctx)
		if err != nil {
			return err
		}
		if rows, err := res.RowsAffected(); err != nil {
			return err
		} else if rows == 0 {
			var exists int
			err = tx.NewSelect().
				ColumnExpr("1").
				Table("bookings").
				Where("id = ?", id).
				Limit(1).
				Scan(ctx, &exists)
			if errors.Is(err, sql.ErrNoRows) {
				return booking.ErrBookingNotFound
			}
			if err != nil {
				return err
			}
			return booking.ErrConflict
		}
		return releaseTable(ctx, tx, tableID)
	})
}

// CancelGroup cancels every still-active member booking and releases their
// tables, returning the released table ids. Members already finalized on
// their own are left alone; their tables may belong to newer bookings.
func (d *DB) CancelGroup(ctx context.Context, groupID string) ([]int, error) {
	var tableIDs []int
	err := d.Bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		var members []struct {
			TableID int    `bun:"table_id"`
			Status  string `bun:"status"`
		}
		err := tx.NewSelect().
			Column("table_id", "status").
			Table("bookings").
			Where("booking_group_id = ?", groupID).
			Scan(ctx, &members)
		if err != nil {
			return err
		}
		if len(members) == 0 {
			return booking.ErrGroupNotFound
		}

		for _, m := range members {
			if !booking.Terminal(m.Status) {
				tableIDs = append(tableIDs, m.TableID)
			}
		}
		if len(tableIDs) == 0 {
			return booking.ErrBookingFinalized
		}

		_, err = tx.NewUpdate().
			Model((*models.Booking)(nil)).
			Set("status = ?", models.BookingCancelled).
			Where("booking_group_id = ?", groupID).
			Where("status IN (?)", bun.In(booking.AllowedSources(booking.ActionCancel))).
			Exec(ctx)
		if err != nil {
			return err
		}

		for _, tableID := range tableIDs {
			if err := releaseTable(ctx, tx, tableID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tableIDs, nil
}

// MoveBooking reassigns a booking to a new table. The destination flip is
// conditional on it being AVAILABLE, closing the race where two admins move
// bookings onto the same free table.
func (d *DB) MoveBooking(ctx context.Context, bookingID string, oldTableID, newTableID int) error {
	return d.Bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().
			Model((*models.Table)(nil)).
			Set("status = ?", models.TablePending).
			Set("current_queue_count = ?", 1).
			Where("id = ?", newTableID).
			Where("status = ?", models.TableAvailable).
			Exec(ctx)
		if err != nil {
			return err
		}
		if rows, err := res.RowsAffected(); err != nil {
			return err
		} else if rows == 0 {
			return booking.ErrTableNotAvailable
		}

		_, err = tx.NewUpdate().
			Model((*models.Booking)(nil)).
			Set("table_id = ?", newTableID).
			Where("id = ?", bookingID).
			Exec(ctx)
		if err != nil {
			return err
		}
		return releaseTable(ctx, tx, oldTableID)
	})
}

// ---------------- EVENT DAY ----------------

func (d *DB) SetCheckedIn(ctx context.Context, id string, at time.Time) error {
	res, err := d.Bun.NewUpdate().
		Model((*models.Booking)(nil)).
		Set("checked_in_at = ?", at).
		Where("id = ?", id).
		Where("status = ?", models.BookingApproved).
		Where("checked_in_at IS NULL").
		Exec(ctx)
	if err != nil {
		return err
	}
	if rows, err := res.RowsAffected(); err != nil {
		return err
	} else if rows == 0 {
		state, err := d.eventDayState(ctx, id)
		if err != nil {
			return err
		}
		if state.Status != models.BookingApproved {
			return booking.ErrNotApproved
		}
		return booking.ErrAlreadyCheckedIn
	}
	return nil
}

func (d *DB) SetFoodReceived(ctx context.Context, id string, at time.Time) error {
	res, err := d.Bun.NewUpdate().
		Model((*models.Booking)(nil)).
		Set("food_received_at = ?", at).
		Where("id = ?", id).
		Where("status = ?", models.BookingApproved).
		Where("checked_in_at IS NOT NULL").
		Where("food_received_at IS NULL").
		Exec(ctx)
	if err != nil {
		return err
	}
	if rows, err := res.RowsAffected(); err != nil {
		return err
	} else if rows == 0 {
		state, err := d.eventDayState(ctx, id)
		if err != nil {
			return err
		}
		switch {
		case state.Status != models.BookingApproved:
			return booking.ErrNotApproved
		case state.CheckedInAt == nil:
			return booking.ErrNotCheckedIn
		default:
			return booking.ErrFoodAlreadyReceived
		}
	}
	return nil
}

type eventDayState struct {
	Status      string     `bun:"status"`
	CheckedInAt *time.Time `bun:"checked_in_at"`
}

// eventDayState re-reads the columns the check-in and food guards depend on,
// so a zero-row conditional update can report why it missed.
func (d *DB) eventDayState(ctx context.Context, id string) (*eventDayState, error) {
	var state eventDayState
	err := d.Bun.NewSelect().
		Column("status", "checked_in_at").
		Table("bookings").
		Where("id = ?", id).
		Limit(1).
		Scan(ctx, &state)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, booking.ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}
	return &state, nil
}

// ---------------- ADMIN EDITS ----------------

func (d *DB) UpdateBookingDetails(ctx context.Context, id string, req models.UpdateBookingDetailsRequest) error {
	q := d.Bun.NewUpdate().
		Model((*models.Booking)(nil)).
		Where("id = ?", id)

	set := false
	if req.UserName != nil {
		q = q.Set("user_name = ?", *req.UserName)
		set = true
	}
	if req.Phone != nil {
		q = q.Set("phone = ?", *req.Phone)
		set = true
	}
	if req.Donation != nil {
		q = q.Set("donation = ?", *req.Donation)
		set = true
	}
	if req.ShirtOrders != nil {
		q = q.Set("shirt_orders = ?", *req.ShirtOrders)
		set = true
	}
	if req.ShirtDelivery != nil {
		q = q.Set("shirt_delivery = ?", *req.ShirtDelivery)
		set = true
	}
	if req.ShirtDeliveryAddress != nil {
		q = q.Set("shirt_delivery_address = ?", *req.ShirtDeliveryAddress)
		set = true
	}
	if req.EDonationWant != nil {
		q = q.Set("e_donation_want = ?", *req.EDonationWant)
		set = true
	}
	if req.EDonationName != nil {
		q = q.Set("e_donation_name = ?", *req.EDonationName)
		set = true
	}
	if req.EDonationAddress != nil {
		q = q.Set("e_donation_address = ?", *req.EDonationAddress)
		set = true
	}
	if req.EDonationID != nil {
		q = q.Set("e_donation_id = ?", *req.EDonationID)
		set = true
	}
	if !set {
		return nil
	}

	_, err := q.Exec(ctx)
	return err
}

func (d *DB) UpdateBookingMemo(ctx context.Context, id, memo string) error {
	_, err := d.Bun.NewUpdate().
		Model((*models.Booking)(nil)).
		Set("memo = ?", memo).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

func (d *DB) UpdateBookingSlip(ctx context.Context, id, slipURL string) error {
	_, err := d.Bun.NewUpdate().
		Model((*models.Booking)(nil)).
		Set("slip_url = ?", slipURL).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

// UpdateGroupSlip points both the group row and every member booking at a
// newly uploaded slip.
func (d *DB) UpdateGroupSlip(ctx context.Context, groupID, slipURL string) error {
	return d.Bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewUpdate().
			Model((*models.BookingGroup)(nil)).
			Set("slip_url = ?", slipURL).
			Where("id = ?", groupID).
			Exec(ctx)
		if err != nil {
			return err
		}
		_, err = tx.NewUpdate().
			Model((*models.Booking)(nil)).
			Set("slip_url = ?", slipURL).
			Where("booking_group_id = ?", groupID).
			Exec(ctx)
		return err
	})
}
