package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"github.com/sooksun/tablebooking/internal/auth"
	"github.com/sooksun/tablebooking/internal/booking"
	booking_api "github.com/sooksun/tablebooking/internal/booking/api"
	bookingdb "github.com/sooksun/tablebooking/internal/booking/db"
	rediswrap "github.com/sooksun/tablebooking/internal/booking/redis"
	"github.com/sooksun/tablebooking/internal/config"
	"github.com/sooksun/tablebooking/internal/database/migrations"
	"github.com/sooksun/tablebooking/internal/kafka"
	"github.com/sooksun/tablebooking/internal/logger"
	"github.com/sooksun/tablebooking/internal/pricing"
	"github.com/sooksun/tablebooking/internal/registration"
	registration_api "github.com/sooksun/tablebooking/internal/registration/api"
	registrationdb "github.com/sooksun/tablebooking/internal/registration/db"
	"github.com/sooksun/tablebooking/internal/storage"
	"github.com/sooksun/tablebooking/internal/tickets/qr"
)

func verifyConnections(ctx context.Context, cfg *config.Config, log *logger.Logger) (*bun.DB, *redis.Client) {
	var sqldb *sql.DB
	var err error
	maxRetries := 5

	for i := 0; i < maxRetries; i++ {
		log.Info("DATABASE", fmt.Sprintf("Connecting to PostgreSQL (attempt %d/%d)", i+1, maxRetries))
		sqldb, err = sql.Open("postgres", cfg.Database.DSN)
		if err == nil {
			err = sqldb.Ping()
			if err == nil {
				break
			}
		}
		log.Error("DATABASE", fmt.Sprintf("PostgreSQL not ready: %v", err))
		if i < maxRetries-1 {
			time.Sleep(2 * time.Second)
		}
	}
	if err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL after %d attempts: %v", maxRetries, err))
	}
	sqldb.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.Database.MaxLifetime)
	log.Info("DATABASE", "PostgreSQL connection successful")

	bunDB := bun.NewDB(sqldb, pgdialect.New())

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Redis connection error: %v", err))
	}
	if _, err := redisClient.ConfigSet(ctx, "notify-keyspace-events", "Ex").Result(); err != nil {
		log.Warn("REDIS", fmt.Sprintf("Failed to enable keyspace notifications: %v", err))
	}
	log.Info("DATABASE", fmt.Sprintf("Redis connection successful to %s", cfg.Redis.Addr))

	return bunDB, redisClient
}

// subscribeHoldExpiry listens for expired table holds. A hold only expires
// when a create request died mid-flight, so the grid may be showing a table
// as taken that the database never flipped; publishing its current status
// lets clients refresh.
func subscribeHoldExpiry(rdb *redis.Client, db *bookingdb.DB, producer *kafka.Producer, log *logger.Logger) {
	ctx := context.Background()
	pubsub := rdb.PSubscribe(ctx, "__keyevent@0__:expired")
	log.Info("REDIS", "Subscribed to expired table hold notifications")

	go func() {
		for msg := range pubsub.Channel() {
			tableID, ok := rediswrap.TableIDFromKey(msg.Payload)
			if !ok {
				continue
			}
			log.Warn("HOLD", fmt.Sprintf("Table hold expired for table %d", tableID))

			table, err := db.GetTable(ctx, tableID)
			if err != nil {
				log.Error("HOLD", fmt.Sprintf("Failed to read table %d: %v", tableID, err))
				continue
			}
			if err := producer.TableStatus(table.ID, table.Status); err != nil {
				log.Error("KAFKA", fmt.Sprintf("Failed to publish table status: %v", err))
			}
		}
	}()
}

func main() {
	log := logger.NewLogger()
	defer log.Close()

	log.Info("APP", "Starting Booking Service initialization")

	if err := godotenv.Load(); err != nil {
		log.Warn("CONFIG", ".env file not found, using environment variables")
	}
	cfg := config.Load()
	if cfg.Auth.AdminPasswordHash == "" || cfg.Auth.JWTSecret == "" {
		log.Fatal("CONFIG", "ADMIN_PASSWORD_HASH and JWT_SECRET must be set")
	}

	ctx := context.Background()
	bunDB, redisClient := verifyConnections(ctx, cfg, log)
	defer bunDB.Close()
	defer redisClient.Close()

	if err := migrations.Run(ctx, bunDB, false); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Schema preparation failed: %v", err))
	}
	log.Info("DATABASE", "Schema ready, table grid seeded")

	var producer *kafka.Producer
	var events booking.EventPublisher
	if cfg.Kafka.Enabled {
		producer = kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topics)
		defer producer.Close()
		if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, kafka.TopicList(cfg.Kafka.Topics)); err != nil {
			log.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
		}
		events = producer
		log.Info("KAFKA", "Producer initialized, topics ensured")
	} else {
		log.Warn("KAFKA", "Kafka disabled, events will not be published")
	}

	calculator := pricing.NewCalculator(cfg.Pricing)
	locks := rediswrap.NewLocks(redisClient, cfg.Redis.HoldTTL, log)
	dbLayer := &bookingdb.DB{Bun: bunDB}

	bookingService := booking.NewService(dbLayer, locks, events, calculator, log)
	registrationService := registration.NewService(&registrationdb.DB{Bun: bunDB}, calculator, log)

	slipStore, err := storage.NewSlipStore(cfg.Storage)
	if err != nil {
		log.Fatal("STORAGE", fmt.Sprintf("Slip store init failed: %v", err))
	}

	authenticator := auth.NewAuthenticator(cfg.Auth)

	bookingHandler := booking_api.NewHandler(bookingService, qr.NewGenerator(), log)
	registrationHandler := registration_api.NewHandler(registrationService, log)
	slipHandler := storage.NewHandler(slipStore, log)
	authHandler := auth.NewHandler(authenticator, log)

	log.Info("HTTP", "Setting up router and middleware")
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))

	// --- Public routes ---
	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", authHandler.Login)

		r.Get("/tables", bookingHandler.ListTables)
		r.Get("/tables/available", bookingHandler.ListAvailableTables)

		r.Post("/bookings", bookingHandler.CreateBooking)
		r.Get("/bookings/by-phone", bookingHandler.BookingsByPhone)
		r.Get("/bookings/{bookingId}/ticket", bookingHandler.TicketQR)

		r.Post("/registrations", registrationHandler.CreateRegistration)
		r.Post("/slips", slipHandler.UploadSlip)

		// --- Staff/admin routes ---
		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(authenticator))

			r.Get("/admin/bookings", bookingHandler.AllBookings)
			r.Get("/admin/bookings/pending", bookingHandler.PendingBookings)
			r.Get("/admin/bookings/{bookingId}", bookingHandler.GetBooking)
			r.Post("/admin/bookings/{bookingId}/approve", bookingHandler.ApproveBooking)
			r.Post("/admin/bookings/{bookingId}/reject", bookingHandler.RejectBooking)
			r.Post("/admin/bookings/{bookingId}/cancel", bookingHandler.CancelBooking)
			r.Put("/admin/bookings/{bookingId}", bookingHandler.UpdateBookingDetails)
			r.Put("/admin/bookings/{bookingId}/memo", bookingHandler.UpdateBookingMemo)
			r.Put("/admin/bookings/{bookingId}/slip", bookingHandler.UpdateBookingSlip)
			r.Put("/admin/bookings/{bookingId}/table", bookingHandler.ChangeBookingTable)

			r.Get("/admin/groups/{groupId}", bookingHandler.BookingGroup)
			r.Post("/admin/groups/{groupId}/cancel", bookingHandler.CancelBookingGroup)
			r.Put("/admin/groups/{groupId}/slip", bookingHandler.UpdateGroupSlip)

			r.Get("/admin/tables/{tableId}/bookings", bookingHandler.TableBookings)
			r.Get("/admin/registrations", registrationHandler.ListRegistrations)

			r.Post("/checkin", bookingHandler.CheckIn)
			r.Post("/food", bookingHandler.ConfirmFoodReceived)
		})
	})

	// Uploaded slips are public by URL; the URLs are unguessable UUIDs.
	r.Handle("/slips/*", http.StripPrefix("/slips/", http.FileServer(http.Dir(slipStore.Dir()))))

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	if producer != nil {
		subscribeHoldExpiry(redisClient, dbLayer, producer, log)
	}

	go func() {
		log.Info("HTTP", fmt.Sprintf("Booking Service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	log.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-stop

	log.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	ctxShutdown, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Error("HTTP", fmt.Sprintf("Server shutdown failed: %v", err))
	} else {
		log.Info("HTTP", "Booking Service shutdown complete")
	}
}
