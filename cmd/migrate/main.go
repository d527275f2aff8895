package main

import (
	"context"
	"database/sql"
	"flag"
	"log"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"github.com/sooksun/tablebooking/internal/config"
	"github.com/sooksun/tablebooking/internal/database/migrations"
)

func main() {
	reset := flag.Bool("reset", false, "drop all tables before recreating the schema")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println(".env file not found, using environment variables")
	}
	cfg := config.Load()

	ctx := context.Background()

	sqldb, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		log.Fatalf("Failed to open PostgreSQL: %v", err)
	}
	defer sqldb.Close()

	if err := sqldb.PingContext(ctx); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	db := bun.NewDB(sqldb, pgdialect.New())

	log.Println("Preparing schema...")
	if err := migrations.Run(ctx, db, *reset); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	log.Println("Done. 117 tables (9 rows x 13 columns) ready.")
}
