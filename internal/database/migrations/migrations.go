package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/sooksun/tablebooking/internal/models"
)

// The schema is small enough to manage with bun's model DDL: four tables,
// created in dependency order, plus a one-shot seed of the table grid.

func modelOrder() []interface{} {
	return []interface{}{
		(*models.Table)(nil),
		(*models.BookingGroup)(nil),
		(*models.Booking)(nil),
		(*models.Registration)(nil),
	}
}

// CreateSchema creates all tables if they do not exist.
func CreateSchema(ctx context.Context, db *bun.DB) error {
	for _, m := range modelOrder() {
		if _, err := db.NewCreateTable().Model(m).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table for %T: %w", m, err)
		}
	}
	return nil
}

// DropSchema drops all tables, newest dependencies first.
func DropSchema(ctx context.Context, db *bun.DB) error {
	order := modelOrder()
	for i := len(order) - 1; i >= 0; i-- {
		if _, err := db.NewDropTable().Model(order[i]).IfExists().Cascade().Exec(ctx); err != nil {
			return fmt.Errorf("drop table for %T: %w", order[i], err)
		}
	}
	return nil
}

// TableLabel renders the grid position of table id (1-based) as the printed
// label on the floor plan: rows A..I, columns 1..13, e.g. id 33 -> "C-07".
func TableLabel(id int) string {
	row := (id - 1) / models.GridCols
	col := (id-1)%models.GridCols + 1
	return fmt.Sprintf("%c-%02d", 'A'+row, col)
}

// SeedTables inserts the 117-table grid. Safe to re-run: existing rows are
// left alone.
func SeedTables(ctx context.Context, db *bun.DB) error {
	count, err := db.NewSelect().Model((*models.Table)(nil)).Count(ctx)
	if err != nil {
		return fmt.Errorf("count tables: %w", err)
	}
	if count > 0 {
		return nil
	}

	tables := make([]models.Table, models.TableCount)
	for i := range tables {
		id := i + 1
		tables[i] = models.Table{
			ID:                id,
			Label:             TableLabel(id),
			Status:            models.TableAvailable,
			CurrentQueueCount: 0,
		}
	}
	if _, err := db.NewInsert().Model(&tables).Exec(ctx); err != nil {
		return fmt.Errorf("seed tables: %w", err)
	}
	return nil
}

// Run prepares a database for the event: optionally wipes it, then creates
// the schema and seeds the grid.
func Run(ctx context.Context, db *bun.DB, reset bool) error {
	if reset {
		if err := DropSchema(ctx, db); err != nil {
			return err
		}
	}
	if err := CreateSchema(ctx, db); err != nil {
		return err
	}
	return SeedTables(ctx, db)
}
