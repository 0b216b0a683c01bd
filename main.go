package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/dock-scheduler/board"
	"github.com/yeremiapane/dock-scheduler/config"
	"github.com/yeremiapane/dock-scheduler/controllers"
	"github.com/yeremiapane/dock-scheduler/database"
	"github.com/yeremiapane/dock-scheduler/middlewares"
	"github.com/yeremiapane/dock-scheduler/router"
	"github.com/yeremiapane/dock-scheduler/services"
	"github.com/yeremiapane/dock-scheduler/utils"
)

const shutdownTimeout = 15 * time.Second

func init() {
	utils.InitLogger()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		utils.ErrorLogger.Fatalf("Invalid configuration: %v", err)
	}
	utils.ConfigureLogger(cfg.LogLevel, cfg.LogFormat)

	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize DB
	db, err := config.InitDB(cfg)
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		utils.ErrorLogger.Fatalf("Failed to migrate: %v", err)
	}
	if _, err := database.SeedDefaultDock(db); err != nil {
		utils.ErrorLogger.Fatalf("Failed to seed docks: %v", err)
	}

	validator, gateway := buildPOValidator(cfg)

	hub := board.NewHub()
	notifiers := services.MultiNotifier{
		services.LogNotifier{Location: cfg.Location()},
		services.BoardNotifier{Hub: hub},
	}
	if cfg.RabbitURL != "" {
		amqpNotifier, err := services.NewAMQPNotifier(cfg.RabbitURL, cfg.BookingExchange)
		if err != nil {
			utils.ErrorLogger.Printf("RabbitMQ disabled: %v", err)
		} else {
			defer amqpNotifier.Close()
			notifiers = append(notifiers, amqpNotifier)
		}
	}

	dispatcher := services.NewDispatcher(notifiers, cfg.NotifyQueueSize)
	dispatcher.Start()

	locks := services.NewDockLocks()
	policy := services.BookingPolicy{
		SlotDuration:      cfg.SlotDuration(),
		StrictDuration:    cfg.StrictSlotDuration,
		StrictTransitions: cfg.StrictStatusTransitions,
		RequireVerifiedPO: cfg.RequireVerifiedPO,
		POTimeout:         cfg.POValidationTimeout,
		Location:          cfg.Location(),
	}
	bookingSvc := services.NewBookingService(db, locks, validator, dispatcher, policy)

	// Late monitor menandai booking yang melewati masa tenggang
	monitor := services.NewLateMonitor(db, dispatcher, cfg.LateGrace(), cfg.LateCheckInterval)
	monitor.Start()

	r := router.SetupRouter(router.Deps{
		DB:          db,
		Docks:       services.NewDockService(db, locks, dispatcher),
		Bookings:    bookingSvc,
		Metrics:     services.NewMetricsService(db, cfg.Location()),
		Drivers:     services.NewDriverDirectory(db),
		Auth:        services.NewAuthService(db, utils.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL())),
		Hub:         hub,
		POGateway:   gateway,
		RateLimiter: middlewares.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
		AllowOrigin: cfg.CORSAllowOrigin,
		Release:     cfg.GinMode == "release",
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		utils.InfoLogger.Printf("Listening on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.ErrorLogger.Fatal(err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	utils.InfoLogger.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		utils.ErrorLogger.Printf("Server forced to shutdown: %v", err)
	}

	monitor.Stop()
	dispatcher.Stop()
	utils.InfoLogger.Println("Server exited")
}

// buildPOValidator returns the Odoo client when configured, otherwise a
// validator that skips verification. The second value is nil when there is
// nothing to health check.
func buildPOValidator(cfg config.Config) (services.POValidator, controllers.Pinger) {
	if !cfg.OdooConfigured() {
		utils.InfoLogger.Println("Odoo not configured, PO verification skipped")
		return services.NoopPOValidator{}, nil
	}

	client := services.NewOdooClient(services.OdooConfig{
		URL:      cfg.OdooURL,
		DB:       cfg.OdooDB,
		User:     cfg.OdooUser,
		Password: cfg.OdooPassword,
		Timeout:  cfg.POValidationTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.POValidationTimeout)
	defer cancel()
	if err := client.Connect(ctx); err != nil {
		// koneksi akan dicoba lagi saat validasi pertama
		utils.ErrorLogger.Printf("Odoo connection failed: %v", err)
	}
	return client, client
}
