package db_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/sooksun/tablebooking/internal/booking"
	"github.com/sooksun/tablebooking/internal/booking/db"
	"github.com/sooksun/tablebooking/internal/models"
)

func setupTestDB(t *testing.T) *db.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, "file::memory:?cache=shared")
	require.NoError(t, err, "Failed to open SQLite in-memory database")
	sqldb.SetMaxOpenConns(1)

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())

	ctx := context.Background()
	for _, m := range []interface{}{
		(*models.Table)(nil),
		(*models.BookingGroup)(nil),
		(*models.Booking)(nil),
	} {
		require.NoError(t, bunDB.ResetModel(ctx, m), "Failed to reset model %T", m)
	}

	t.Cleanup(func() { bunDB.Close() })

	return &db.DB{Bun: bunDB}
}

func seedTables(t *testing.T, d *db.DB, count int) {
	t.Helper()

	tables := make([]models.Table, count)
	for i := range tables {
		tables[i] = models.Table{
			ID:     i + 1,
			Label:  string(rune('A'+i/13)) + "-" + string(rune('1'+i%13)),
			Status: models.TableAvailable,
		}
	}
	_, err := d.Bun.NewInsert().Model(&tables).Exec(context.Background())
	require.NoError(t, err, "Failed to seed tables")
}

func newBooking(id string, tableID int) models.Booking {
	return models.Booking{
		ID:            id,
		TableID:       tableID,
		UserName:      "Somchai",
		Phone:         "0812345678",
		Amount:        3000,
		Status:        models.BookingPendingVerification,
		QueuePosition: 1,
		CreatedAt:     time.Now().Round(time.Second),
	}
}

func TestCreateBooking_FlipsTablePending(t *testing.T) {
	d := setupTestDB(t)
	seedTables(t, d, 3)
	ctx := context.Background()

	b := newBooking("b1", 2)
	require.NoError(t, d.CreateBooking(ctx, &b))

	table, err := d.GetTable(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, models.TablePending, table.Status)
	assert.Equal(t, 1, table.CurrentQueueCount)

	got, err := d.GetBooking(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, models.BookingPendingVerification, got.Status)
	assert.NotNil(t, got.Table)
	assert.Equal(t, 2, got.Table.ID)
}

func TestCreateBooking_SecondWriterLoses(t *testing.T) {
	d := setupTestDB(t)
	seedTables(t, d, 3)
	ctx := context.Background()

	first := newBooking("b1", 1)
	require.NoError(t, d.CreateBooking(ctx, &first))

	// The conditional flip already consumed the table, so a second create on
	// the same table fails and inserts nothing.
	second := newBooking("b2", 1)
	err := d.CreateBooking(ctx, &second)
	assert.ErrorIs(t, err, booking.ErrTablePending)

	_, err = d.GetBooking(ctx, "b2")
	assert.ErrorIs(t, err, booking.ErrBookingNotFound)
}

func TestCreateBooking_BookedTable(t *testing.T) {
	d := setupTestDB(t)
	seedTables(t, d, 3)
	ctx := context.Background()

	_, err := d.Bun.NewUpdate().
		Model((*models.Table)(nil)).
		Set("status = ?", models.TableBooked).
		Where("id = ?", 1).
		Exec(ctx)
	require.NoError(t, err)

	b := newBooking("b1", 1)
	assert.ErrorIs(t, d.CreateBooking(ctx, &b), booking.ErrTableBooked)
}

func TestCreateBooking_UnknownTable(t *testing.T) {
	d := setupTestDB(t)
	seedTables(t, d, 3)

	b := newBooking("b1", 404)
	assert.ErrorIs(t, d.CreateBooking(context.Background(), &b), booking.ErrTableNotFound)
}

func TestCreateBookingGroup_AllOrNothing(t *testing.T) {
	d := setupTestDB(t)
	seedTables(t, d, 5)
	ctx := context.Background()

	// Table 3 is already taken.
	taken := newBooking("other", 3)
	require.NoError(t, d.CreateBooking(ctx, &taken))

	group := models.BookingGroup{ID: "g1", UserName: "Group Buyer", Phone: "0899999999", TotalAmount: 9000, CreatedAt: time.Now()}
	members := []models.Booking{newBooking("b1", 2), newBooking("b2", 3), newBooking("b3", 4)}
	for i := range members {
		members[i].BookingGroupID = "g1"
	}

	err := d.CreateBookingGroup(ctx, &group, members)
	assert.ErrorIs(t, err, booking.ErrTablePending)

	// The transaction rolled back: tables 2 and 4 stayed AVAILABLE and no
	// member rows were written.
	for _, id := range []int{2, 4} {
		table, err := d.GetTable(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, models.TableAvailable, table.Status, "table %d", id)
	}
	_, err = d.GetGroup(ctx, "g1")
	assert.ErrorIs(t, err, booking.ErrGroupNotFound)
}

func TestCreateBookingGroup_Success(t *testing.T) {
	d := setupTestDB(t)
	seedTables(t, d, 5)
	ctx := context.Background()

	group := models.BookingGroup{ID: "g1", UserName: "Group Buyer", Phone: "0899999999", TotalAmount: 6000, CreatedAt: time.Now()}
	members := []models.Booking{newBooking("b1", 1), newBooking("b2", 2)}
	for i := range members {
		members[i].BookingGroupID = "g1"
	}

	require.NoError(t, d.CreateBookingGroup(ctx, &group, members))

	got, err := d.ListBookingsByGroup(ctx, "g1")
	require.NoError(t, err)
	assert.Len(t, got, 2)

	for _, id := range []int{1, 2} {
		table, err := d.GetTable(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, models.TablePending, table.Status)
	}
}

func TestApproveBooking(t *testing.T) {
	d := setupTestDB(t)
	seedTables(t, d, 3)
	ctx := context.Background()

	b := newBooking("b1", 1)
	require.NoError(t, d.CreateBooking(ctx, &b))

	sources := booking.AllowedSources(booking.ActionApprove)
	require.NoError(t, d.ApproveBooking(ctx, "b1", 1, sources))

	got, err := d.GetBooking(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, models.BookingApproved, got.Status)

	table, err := d.GetTable(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, models.TableBooked, table.Status)
}

func TestApproveBooking_GuardedAgainstStaleRead(t *testing.T) {
	d := setupTestDB(t)
	seedTables(t, d, 3)
	ctx := context.Background()

	b := newBooking("b1", 1)
	require.NoError(t, d.CreateBooking(ctx, &b))

	// Another admin rejected the booking between our read and our write.
	require.NoError(t, d.RejectBooking(ctx, "b1", 1, booking.AllowedSources(booking.ActionReject)))

	err := d.ApproveBooking(ctx, "b1", 1, booking.AllowedSources(booking.ActionApprove))
	assert.ErrorIs(t, err, booking.ErrConflict)

	// The guard kept the table free.
	table, err := d.GetTable(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, models.TableAvailable, table.Status)
}

func TestRejectBooking_ReleasesTable(t *testing.T) {
	d := setupTestDB(t)
	seedTables(t, d, 3)
	ctx := context.Background()

	b := newBooking("b1", 1)
	require.NoError(t, d.CreateBooking(ctx, &b))
	require.NoError(t, d.RejectBooking(ctx, "b1", 1, booking.AllowedSources(booking.ActionReject)))

	got, err := d.GetBooking(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, models.BookingRejected, got.Status)

	table, err := d.GetTable(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, models.TableAvailable, table.Status)
	assert.Equal(t, 0, table.CurrentQueueCount)

	// The freed table accepts a fresh reservation.
	next := newBooking("b2", 1)
	assert.NoError(t, d.CreateBooking(ctx, &next))
}

func TestCancelBooking_FinalizedBookingKeepsTableReserved(t *testing.T) {
	d := setupTestDB(t)
	seedTables(t, d, 3)
	ctx := context.Background()

	b1 := newBooking("b1", 1)
	require.NoError(t, d.CreateBooking(ctx, &b1))
	require.NoError(t, d.RejectBooking(ctx, "b1", 1, booking.AllowedSources(booking.ActionReject)))

	// The table went back into the pool and someone else took it.
	b2 := newBooking("b2", 1)
	require.NoError(t, d.CreateBooking(ctx, &b2))

	// Cancelling the rejected booking must not free the table under b2.
	err := d.CancelBooking(ctx, "b1", 1, booking.AllowedSources(booking.ActionCancel))
	assert.ErrorIs(t, err, booking.ErrConflict)

	table, err := d.GetTable(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, models.TablePending, table.Status)

	got, err := d.GetBooking(ctx, "b2")
	require.NoError(t, err)
	assert.Equal(t, models.BookingPendingVerification, got.Status)
}

func TestCancelGroup(t *testing.T) {
	d := setupTestDB(t)
	seedTables(t, d, 5)
	ctx := context.Background()

	group := models.BookingGroup{ID: "g1", UserName: "Group Buyer", Phone: "0899999999", TotalAmount: 9000, CreatedAt: time.Now()}
	members := []models.Booking{newBooking("b1", 1), newBooking("b2", 2), newBooking("b3", 3)}
	for i := range members {
		members[i].BookingGroupID = "g1"
	}
	require.NoError(t, d.CreateBookingGroup(ctx, &group, members))

	tableIDs, err := d.CancelGroup(ctx, "g1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{1, 2, 3}, tableIDs)

	for _, id := range tableIDs {
		table, err := d.GetTable(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, models.TableAvailable, table.Status, "table %d", id)
	}

	got, err := d.ListBookingsByGroup(ctx, "g1")
	require.NoError(t, err)
	for _, m := range got {
		assert.Equal(t, models.BookingCancelled, m.Status)
	}

	_, err = d.CancelGroup(ctx, "g404")
	assert.ErrorIs(t, err, booking.ErrGroupNotFound)
}

func TestCancelGroup_SkipsFinalizedMembers(t *testing.T) {
	d := setupTestDB(t)
	seedTables(t, d, 5)
	ctx := context.Background()

	group := models.BookingGroup{ID: "g1", UserName: "Group Buyer", Phone: "0899999999", TotalAmount: 6000, CreatedAt: time.Now()}
	members := []models.Booking{newBooking("b1", 1), newBooking("b2", 2)}
	for i := range members {
		members[i].BookingGroupID = "g1"
	}
	require.NoError(t, d.CreateBookingGroup(ctx, &group, members))

	// One member was rejected on its own and its table taken by a new booking.
	require.NoError(t, d.RejectBooking(ctx, "b1", 1, booking.AllowedSources(booking.ActionReject)))
	outsider := newBooking("b3", 1)
	require.NoError(t, d.CreateBooking(ctx, &outsider))

	tableIDs, err := d.CancelGroup(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, []int{2}, tableIDs)

	// Only the active member's table was released.
	table1, err := d.GetTable(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, models.TablePending, table1.Status)

	table2, err := d.GetTable(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, models.TableAvailable, table2.Status)

	got, err := d.GetBooking(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, models.BookingRejected, got.Status)
}

func TestMoveBooking(t *testing.T) {
	d := setupTestDB(t)
	seedTables(t, d, 5)
	ctx := context.Background()

	b := newBooking("b1", 1)
	require.NoError(t, d.CreateBooking(ctx, &b))

	require.NoError(t, d.MoveBooking(ctx, "b1", 1, 4))

	got, err := d.GetBooking(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, 4, got.TableID)

	oldTable, err := d.GetTable(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, models.TableAvailable, oldTable.Status)

	newTable, err := d.GetTable(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, models.TablePending, newTable.Status)
}

func TestMoveBooking_DestinationTaken(t *testing.T) {
	d := setupTestDB(t)
	seedTables(t, d, 5)
	ctx := context.Background()

	b1 := newBooking("b1", 1)
	require.NoError(t, d.CreateBooking(ctx, &b1))
	b2 := newBooking("b2", 2)
	require.NoError(t, d.CreateBooking(ctx, &b2))

	err := d.MoveBooking(ctx, "b1", 1, 2)
	assert.ErrorIs(t, err, booking.ErrTableNotAvailable)

	// Rolled back: the booking stayed on its old table.
	got, err := d.GetBooking(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, 1, got.TableID)
	oldTable, err := d.GetTable(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, models.TablePending, oldTable.Status)
}

func TestSetCheckedIn(t *testing.T) {
	d := setupTestDB(t)
	seedTables(t, d, 3)
	ctx := context.Background()

	b := newBooking("b1", 1)
	require.NoError(t, d.CreateBooking(ctx, &b))
	require.NoError(t, d.ApproveBooking(ctx, "b1", 1, booking.AllowedSources(booking.ActionApprove)))

	at := time.Now().Round(time.Second)
	require.NoError(t, d.SetCheckedIn(ctx, "b1", at))

	got, err := d.GetBooking(ctx, "b1")
	require.NoError(t, err)
	require.NotNil(t, got.CheckedInAt)

	// A second scan matches no row.
	assert.ErrorIs(t, d.SetCheckedIn(ctx, "b1", time.Now()), booking.ErrAlreadyCheckedIn)
}

func TestSetCheckedIn_RefusesPendingBooking(t *testing.T) {
	d := setupTestDB(t)
	seedTables(t, d, 3)
	ctx := context.Background()

	b := newBooking("b1", 1)
	require.NoError(t, d.CreateBooking(ctx, &b))

	assert.ErrorIs(t, d.SetCheckedIn(ctx, "b1", time.Now()), booking.ErrNotApproved)
	assert.ErrorIs(t, d.SetCheckedIn(ctx, "missing", time.Now()), booking.ErrBookingNotFound)
}

func TestSetFoodReceived(t *testing.T) {
	d := setupTestDB(t)
	seedTables(t, d, 3)
	ctx := context.Background()

	b := newBooking("b1", 1)
	require.NoError(t, d.CreateBooking(ctx, &b))
	require.NoError(t, d.ApproveBooking(ctx, "b1", 1, booking.AllowedSources(booking.ActionApprove)))

	// Food before check-in matches no row.
	assert.ErrorIs(t, d.SetFoodReceived(ctx, "b1", time.Now()), booking.ErrNotCheckedIn)

	require.NoError(t, d.SetCheckedIn(ctx, "b1", time.Now()))
	require.NoError(t, d.SetFoodReceived(ctx, "b1", time.Now()))

	// Only once.
	assert.ErrorIs(t, d.SetFoodReceived(ctx, "b1", time.Now()), booking.ErrFoodAlreadyReceived)
}

func TestListTablesWithBookings(t *testing.T) {
	d := setupTestDB(t)
	seedTables(t, d, 3)
	ctx := context.Background()

	b := newBooking("b1", 2)
	require.NoError(t, d.CreateBooking(ctx, &b))

	grid, err := d.ListTablesWithBookings(ctx)
	require.NoError(t, err)
	require.Len(t, grid, 3)

	assert.Nil(t, grid[0].CurrentBooking)
	require.NotNil(t, grid[1].CurrentBooking)
	assert.Equal(t, "b1", grid[1].CurrentBooking.ID)
	assert.Nil(t, grid[2].CurrentBooking)
}

func TestListApprovedBookingsByPhone(t *testing.T) {
	d := setupTestDB(t)
	seedTables(t, d, 3)
	ctx := context.Background()

	b1 := newBooking("b1", 1)
	require.NoError(t, d.CreateBooking(ctx, &b1))
	b2 := newBooking("b2", 2)
	b2.Phone = "0899999999"
	require.NoError(t, d.CreateBooking(ctx, &b2))

	require.NoError(t, d.ApproveBooking(ctx, "b1", 1, booking.AllowedSources(booking.ActionApprove)))

	// Only approved bookings with the matching phone come back.
	got, err := d.ListApprovedBookingsByPhone(ctx, "0812345678")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "b1", got[0].ID)

	got, err = d.ListApprovedBookingsByPhone(ctx, "0899999999")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestUpdateGroupSlip(t *testing.T) {
	d := setupTestDB(t)
	seedTables(t, d, 3)
	ctx := context.Background()

	group := models.BookingGroup{ID: "g1", UserName: "Group Buyer", Phone: "0899999999", TotalAmount: 6000, CreatedAt: time.Now()}
	members := []models.Booking{newBooking("b1", 1), newBooking("b2", 2)}
	for i := range members {
		members[i].BookingGroupID = "g1"
	}
	require.NoError(t, d.CreateBookingGroup(ctx, &group, members))

	require.NoError(t, d.UpdateGroupSlip(ctx, "g1", "/slips/new.png"))

	g, err := d.GetGroup(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, "/slips/new.png", g.SlipURL)

	got, err := d.ListBookingsByGroup(ctx, "g1")
	require.NoError(t, err)
	for _, m := range got {
		assert.Equal(t, "/slips/new.png", m.SlipURL)
	}
}

func TestBookingLifecycle(t *testing.T) {
	d := setupTestDB(t)
	seedTables(t, d, 40)
	ctx := context.Background()

	// Reserve, verify, arrive, eat. Exactly the order the event runs in.
	b := newBooking("lifecycle", 33)
	require.NoError(t, d.CreateBooking(ctx, &b))
	require.NoError(t, d.ApproveBooking(ctx, "lifecycle", 33, booking.AllowedSources(booking.ActionApprove)))
	require.NoError(t, d.SetCheckedIn(ctx, "lifecycle", time.Now()))
	require.NoError(t, d.SetFoodReceived(ctx, "lifecycle", time.Now()))

	got, err := d.GetBooking(ctx, "lifecycle")
	require.NoError(t, err)
	assert.Equal(t, models.BookingApproved, got.Status)
	assert.NotNil(t, got.CheckedInAt)
	assert.NotNil(t, got.FoodReceivedAt)

	table, err := d.GetTable(ctx, 33)
	require.NoError(t, err)
	assert.Equal(t, models.TableBooked, table.Status)
}
