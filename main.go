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
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"unistay/internal/admin"
	admin_api "unistay/internal/admin/api"
	admin_db "unistay/internal/admin/db"
	"unistay/internal/apartment"
	apartment_api "unistay/internal/apartment/api"
	apartment_db "unistay/internal/apartment/db"
	"unistay/internal/auth"
	"unistay/internal/booking"
	booking_api "unistay/internal/booking/api"
	booking_db "unistay/internal/booking/db"
	"unistay/internal/cache"
	"unistay/internal/config"
	"unistay/internal/database/migrations"
	"unistay/internal/kafka"
	"unistay/internal/logger"
	"unistay/internal/payment"
	payment_api "unistay/internal/payment/api"
	payment_db "unistay/internal/payment/db"
	"unistay/internal/user"
	user_api "unistay/internal/user/api"
	user_db "unistay/internal/user/db"
	"unistay/internal/wishlist"
	wishlist_api "unistay/internal/wishlist/api"
	wishlist_db "unistay/internal/wishlist/db"
)

func connectPostgres(cfg *config.Config, log *logger.Logger) *bun.DB {
	var sqldb *sql.DB
	var err error
	maxRetries := 5

	for i := 0; i < maxRetries; i++ {
		log.Info("DATABASE", fmt.Sprintf("Attempting to connect to PostgreSQL (attempt %d/%d)", i+1, maxRetries))
		sqldb, err = sql.Open("postgres", cfg.Database.DSN)
		if err != nil {
			log.Error("DATABASE", fmt.Sprintf("Failed to open PostgreSQL: %v", err))
			time.Sleep(2 * time.Second)
			continue
		}

		err = sqldb.Ping()
		if err == nil {
			break
		}

		log.Error("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL: %v", err))
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
	return bun.NewDB(sqldb, pgdialect.New())
}

func main() {
	log := logger.NewLogger()
	defer log.Close()

	log.Info("APP", "Starting UniStay API initialization")

	if err := godotenv.Load(); err != nil {
		log.Warn("CONFIG", ".env file not found, using environment variables")
	} else {
		log.Info("CONFIG", "Loaded environment variables from .env file")
	}

	cfg := config.Load()
	if cfg.Auth.JWTSecret == "" {
		log.Fatal("CONFIG", "JWT_SECRET not set")
	}

	ctx := context.Background()

	bunDB := connectPostgres(cfg, log)
	defer bunDB.Close()

	migrationRunner := migrations.NewRunner(bunDB, migrations.DefaultOptions())
	if err := migrationRunner.MigrateUp(); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Migrations failed: %v", err))
	}
	if version, _, err := migrationRunner.Version(); err == nil {
		log.Info("DATABASE", fmt.Sprintf("Schema at version %d", version))
	}
	defer migrationRunner.Close()

	var redisCache *cache.Cache
	if cfg.Redis.Enabled {
		redisCache = cache.New(cfg.Redis.Addr, log)
	}
	defer redisCache.Close()

	var producer *kafka.Producer
	if cfg.Kafka.Enabled {
		topics := []string{cfg.Kafka.Topics.BookingEvents, cfg.Kafka.Topics.PaymentEvents}
		if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, topics); err != nil {
			log.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
		}
		producer = kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topics.BookingEvents, cfg.Kafka.Topics.PaymentEvents)
		log.Info("KAFKA", "Kafka producer initialized")
	}
	defer producer.Close()

	var gateway payment.Gateway
	if cfg.Stripe.SecretKey != "" {
		stripeGW, err := payment.NewStripeGateway(cfg.Stripe.SecretKey, cfg.Stripe.WebhookSecret, log)
		if err != nil {
			log.Warn("STRIPE", fmt.Sprintf("Stripe unavailable, payments disabled: %v", err))
		} else {
			gateway = stripeGW
		}
	} else {
		log.Warn("STRIPE", "STRIPE_SECRET_KEY not set, payment processing disabled")
	}

	apartmentService := apartment.NewApartmentService(&apartment_db.DB{Bun: bunDB}, log)
	bookingService := booking.NewBookingService(&booking_db.DB{Bun: bunDB}, producer, log)
	paymentService := payment.NewPaymentService(&payment_db.DB{Bun: bunDB}, gateway, producer, log)
	wishlistService := wishlist.NewWishlistService(&wishlist_db.DB{Bun: bunDB}, redisCache, log)
	userService := user.NewUserService(&user_db.DB{Bun: bunDB}, log)
	adminService := admin.NewAdminService(&admin_db.DB{Bun: bunDB}, redisCache, log)

	apartmentHandler := apartment_api.NewHandler(apartmentService, log)
	bookingHandler := booking_api.NewHandler(bookingService, log)
	paymentHandler := payment_api.NewHandler(paymentService, log)
	wishlistHandler := wishlist_api.NewHandler(wishlistService, log)
	userHandler := user_api.NewHandler(userService, log)
	adminHandler := admin_api.NewHandler(adminService, apartmentService, log)

	log.Info("HTTP", "Setting up router and middleware")
	r := chi.NewRouter()

	// --- Public Routes ---
	r.Get("/apartments", apartmentHandler.ListApartments)
	r.Get("/apartments/{apartmentId}", apartmentHandler.GetApartment)
	// Webhook verifies its own signature and must see the raw body.
	r.Post("/payments/webhook", paymentHandler.StripeWebhook)

	// --- Protected Routes ---
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(cfg.Auth.JWTSecret))

		r.Route("/apartments", func(r chi.Router) {
			r.With(auth.RequireOwner()).Post("/", apartmentHandler.CreateApartment)
			r.Put("/{apartmentId}", apartmentHandler.UpdateApartment)
			r.Delete("/{apartmentId}", apartmentHandler.DeleteApartment)
			r.Post("/{apartmentId}/images", apartmentHandler.UploadImages)
		})

		r.Route("/bookings", func(r chi.Router) {
			r.With(auth.RequireStudent()).Post("/", bookingHandler.CreateBooking)
			r.Get("/", bookingHandler.ListMyBookings)
			r.With(auth.RequireOwner()).Get("/owner", bookingHandler.ListOwnerBookings)
			r.Get("/{bookingId}", bookingHandler.GetBooking)
			r.Put("/{bookingId}/status", bookingHandler.UpdateBookingStatus)
			r.Put("/{bookingId}/cancel", bookingHandler.CancelBooking)
		})

		r.Route("/payments", func(r chi.Router) {
			r.Post("/create-intent", paymentHandler.CreatePaymentIntent)
			r.Post("/confirm", paymentHandler.ConfirmPayment)
			r.Get("/history", paymentHandler.PaymentHistory)
			r.Get("/{paymentId}", paymentHandler.GetPayment)
			r.With(auth.RequireAdmin()).Post("/{paymentId}/refund", paymentHandler.RefundPayment)
		})

		r.Route("/wishlist", func(r chi.Router) {
			r.Use(auth.RequireStudent())
			r.Get("/", wishlistHandler.ListWishlist)
			r.Post("/", wishlistHandler.AddToWishlist)
			r.Get("/count", wishlistHandler.WishlistCount)
			r.Get("/check/{apartmentId}", wishlistHandler.CheckWishlist)
			r.Delete("/{apartmentId}", wishlistHandler.RemoveFromWishlist)
		})

		r.Route("/users", func(r chi.Router) {
			r.With(auth.RequireAdmin()).Get("/", userHandler.ListUsers)
			r.Get("/profile", userHandler.GetProfile)
			r.Get("/{userId}", userHandler.GetUser)
			r.Put("/{userId}", userHandler.UpdateUser)
			r.With(auth.RequireAdmin()).Delete("/{userId}", userHandler.DeleteUser)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(auth.RequireAdmin())
			r.Get("/dashboard", adminHandler.Dashboard)
			r.Get("/apartments", adminHandler.ListApartments)
			r.Get("/bookings", adminHandler.ListBookings)
			r.Put("/apartments/{apartmentId}/moderate", adminHandler.ModerateApartment)
			r.Get("/analytics/payments", adminHandler.PaymentAnalytics)
			r.Get("/logs", adminHandler.AdminLogs)
			r.Get("/health", adminHandler.Health)
		})
	})

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP", fmt.Sprintf("UniStay API running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("APP", "Shutdown signal received, cleaning up")

	ctxShutdown, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Fatal("HTTP", fmt.Sprintf("Server forced to shutdown: %v", err))
	}

	log.Info("APP", "Server exited gracefully")
}
