package db

import (
	"context"

	"github.com/uptrace/bun"

	"github.com/sooksun/tablebooking/internal/models"
)

type DB struct {
	Bun *bun.DB
}

func (d *DB) CreateRegistration(ctx context.Context, r *models.Registration) error {
	_, err := d.Bun.NewInsert().Model(r).Exec(ctx)
	return err
}

func (d *DB) ListRegistrations(ctx context.Context) ([]models.Registration, error) {
	var regs []models.Registration
	err := d.Bun.NewSelect().
		Model(&regs).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return regs, nil
}
