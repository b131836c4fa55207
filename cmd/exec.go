package cmd

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"eventease/config"
	"eventease/internal/handlers"
	"eventease/internal/services"
	"eventease/internal/store"
	"eventease/monitoring"
	"eventease/security"
	"eventease/utils"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/plugins/migratecmd"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	pubnub "github.com/pubnub/go"
	"github.com/redis/go-redis/v9"

	_ "eventease/migrations"
)

func Start() error {
	app := pocketbase.New()

	// Load configuration
	cfg := config.LoadConfig()

	// Initialize Redis
	redisClient, err := utils.NewRedisClient(cfg.RedisURL, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	// Initialize PubNub (optional: without keys the services run silent)
	var pn *pubnub.PubNub
	if cfg.PubNubPublishKey != "" && cfg.PubNubSubscribeKey != "" {
		pnConfig := pubnub.NewConfig()
		pnConfig.PublishKey = cfg.PubNubPublishKey
		pnConfig.SubscribeKey = cfg.PubNubSubscribeKey
		pnConfig.SecretKey = cfg.PubNubSecretKey
		pn = pubnub.NewPubNub(pnConfig)
	} else {
		slog.Warn("PubNub keys not configured, gateway subscription and user notifications disabled")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize services
	st := store.NewPBStore(app)
	monitor := monitoring.NewMonitor(redisClient)
	notifier := services.NewNotifier(pn)

	bookingService := services.NewBookingService(st, monitor, notifier, cfg.HoldDuration)
	ticketService := services.NewTicketService(st, monitor, notifier)
	paymentService := services.NewPaymentService(st, monitor, notifier, pn, cfg.GatewayChannel)
	sweeper := services.NewSweeperService(st, monitor, notifier, cfg.SweepInterval, cfg.SweepBatch)

	// Initialize handlers
	bookingHandler := handlers.NewBookingHandler(app, bookingService, ticketService)
	ticketHandler := handlers.NewTicketHandler(app, ticketService)
	eventHandler := handlers.NewEventHandler(app, st)
	paymentHandler := handlers.NewPaymentHandler(app, paymentService, cfg)
	adminHandler := handlers.NewAdminHandler(app, ticketService, sweeper)

	limiter := security.NewRateLimiter(redisClient)

	// Enable migrations
	migratecmd.MustRegister(app, app.RootCmd, migratecmd.Config{
		Automigrate: true,
	})

	// Start background tasks
	sweeper.Start(ctx)
	go paymentService.SubscribeToGatewayNotifications(ctx)

	// Setup graceful shutdown
	go handleShutdown(cancel, sweeper)

	app.OnServe().BindFunc(func(e *core.ServeEvent) error {
		syncActiveEventsToRedis(app, redisClient)

		// Booking endpoints
		e.Router.POST("/api/v1/bookings", bookingHandler.Book).
			BindFunc(limiter.Limit("booking", cfg.BookingRateLimit))
		e.Router.GET("/api/v1/bookings/history", bookingHandler.History)

		// Ticket endpoints
		e.Router.POST("/api/v1/tickets/{ticketId}/cancel", ticketHandler.Cancel)
		e.Router.POST("/api/v1/tickets/{ticketId}/check-in", ticketHandler.CheckIn)
		e.Router.GET("/api/v1/tickets/{ticketId}/verify", ticketHandler.Verify)

		// Event endpoints
		e.Router.GET("/api/v1/events/{eventId}/availability", eventHandler.Availability)

		// Payment gateway webhook (token-authenticated, not user-authenticated)
		e.Router.POST("/api/v1/payments/confirm", paymentHandler.ConfirmWebhook)

		// Admin endpoints
		e.Router.POST("/api/v1/admin/sweep", adminHandler.Sweep).
			Bind(apis.RequireSuperuserAuth())
		e.Router.POST("/api/v1/admin/events/{eventId}/cancel", adminHandler.CancelEvent)
		e.Router.GET("/api/v1/admin/events/{eventId}/inventory", adminHandler.Inventory).
			Bind(apis.RequireSuperuserAuth())

		// Test endpoint for payment simulation
		if cfg.Environment == "development" {
			e.Router.POST("/api/v1/test/simulate-payment", paymentHandler.SimulatePayment)
		}

		// Health check
		e.Router.GET("/health", func(e *core.RequestEvent) error {
			if err := utils.RedisHealthCheck(redisClient); err != nil {
				return e.JSON(503, map[string]string{
					"status": "unhealthy",
					"error":  err.Error(),
				})
			}
			return e.JSON(200, map[string]string{"status": "healthy"})
		})

		if cfg.EnableMetrics {
			e.Router.GET("/metrics", apis.WrapStdHandler(promhttp.Handler()))
		}

		log.Println("Server routes registered")

		setupEventHooks(app, redisClient)

		return e.Next()
	})

	// Start server
	if err := app.Start(); err != nil {
		log.Fatal(err)
	}
	return nil
}

// syncActiveEventsToRedis rebuilds the active_events set on boot so the
// monitor and any external consumers see the current catalog, not the one
// from before the restart.
func syncActiveEventsToRedis(app *pocketbase.PocketBase, redisClient *redis.Client) {
	ctx := context.Background()

	records, err := app.FindRecordsByFilter("events", "status = 'active'", "", 0, 0)
	if err != nil {
		log.Printf("Error fetching active events: %v", err)
		return
	}

	redisClient.Del(ctx, "active_events")

	if len(records) > 0 {
		eventIDs := make([]interface{}, 0, len(records))
		for _, record := range records {
			eventIDs = append(eventIDs, record.Id)
		}
		redisClient.SAdd(ctx, "active_events", eventIDs...)
		log.Printf("Synced %d active events to Redis", len(eventIDs))
	}
}

// setupEventHooks keeps the Redis active_events set in step with the events
// collection. Redis failures are logged, never surfaced: the set is a cache,
// the collection is the source of truth.
func setupEventHooks(app *pocketbase.PocketBase, redisClient *redis.Client) {
	app.OnRecordCreateRequest("events").BindFunc(func(e *core.RecordRequestEvent) error {
		if err := e.Next(); err != nil {
			return err
		}

		if e.Record.GetString("status") == "active" {
			if err := redisClient.SAdd(e.Request.Context(), "active_events", e.Record.Id).Err(); err != nil {
				slog.Error("failed to add new active event to Redis", "event_id", e.Record.Id, "error", err)
			}
		}
		return nil
	})

	app.OnRecordUpdateRequest("events").BindFunc(func(e *core.RecordRequestEvent) error {
		if err := e.Next(); err != nil {
			return err
		}

		ctx := e.Request.Context()
		if e.Record.GetString("status") == "active" {
			if err := redisClient.SAdd(ctx, "active_events", e.Record.Id).Err(); err != nil {
				slog.Error("failed to add updated event to Redis", "event_id", e.Record.Id, "error", err)
			}
		} else {
			if err := redisClient.SRem(ctx, "active_events", e.Record.Id).Err(); err != nil {
				slog.Error("failed to remove inactive event from Redis", "event_id", e.Record.Id, "error", err)
			}
		}
		return nil
	})

	app.OnRecordDeleteRequest("events").BindFunc(func(e *core.RecordRequestEvent) error {
		if err := e.Next(); err != nil {
			return err
		}

		if err := redisClient.SRem(e.Request.Context(), "active_events", e.Record.Id).Err(); err != nil {
			slog.Error("failed to remove deleted event from Redis", "event_id", e.Record.Id, "error", err)
		}
		return nil
	})
}

// handleShutdown handles graceful shutdown
func handleShutdown(cancel context.CancelFunc, sweeper *services.SweeperService) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	log.Println("Shutdown signal received, cleaning up...")
	cancel()
	sweeper.Shutdown()
}
