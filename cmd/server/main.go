package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/kavelio/studio-booking/internal/config"
	"github.com/kavelio/studio-booking/internal/database"
	"github.com/kavelio/studio-booking/internal/handler"
	"github.com/kavelio/studio-booking/internal/middleware"
	"github.com/kavelio/studio-booking/internal/payment"
	"github.com/kavelio/studio-booking/internal/policy"
	"github.com/kavelio/studio-booking/internal/qrtoken"
	"github.com/kavelio/studio-booking/internal/queue"
	"github.com/kavelio/studio-booking/internal/repository"
	"github.com/kavelio/studio-booking/internal/reservation"
	"github.com/kavelio/studio-booking/internal/router"
	event_publisher "github.com/kavelio/studio-booking/internal/service"
	"github.com/kavelio/studio-booking/internal/waitlist"
)

func main() {
	// .env is a development convenience; in prod everything comes from the
	// real environment.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Repositories.
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	activities := repository.NewActivityRepo(db)
	slots := repository.NewSlotRepo(db)
	bookings := repository.NewBookingRepo(db)
	payments := repository.NewPaymentRepo(db)
	qrTokens := repository.NewQRTokenRepo(db)
	waitlistRepo := repository.NewWaitlistRepo(db)
	activityLog := repository.NewActivityLogRepo(db)

	// Domain services.
	events := event_publisher.New("")

	rules := policy.NewEngine(policy.Config{
		RescheduleDeadlineHours: cfg.RescheduleDeadlineHours,
		MaxReschedules:          cfg.MaxReschedules,
		FullRefundHours:         cfg.FullRefundHours,
		PartialRefundHours:      cfg.PartialRefundHours,
		PartialRefundPercent:    cfg.PartialRefundPercent,
	})

	store := reservation.NewSQLStore(db, slots, bookings, activityLog)
	coordinator := reservation.NewCoordinator(store, rules, events)

	qrService := qrtoken.NewService(qrtoken.Config{
		Secret:      cfg.QRSecret,
		GraceWindow: cfg.QRGraceWindow,
		SingleUses:  uint32(cfg.QRSingleUses),
		GroupUses:   uint32(cfg.QRGroupUses),
		MultiUses:   uint32(cfg.QRMultiUses),
		MasterUses:  uint32(cfg.QRMasterUses),
	}, qrTokens, bookings, slots, activityLog, events)

	gateways := buildGateways(cfg)
	bridge := payment.NewBridge(gateways, payments, bookings, qrService, coordinator, activityLog, events, cfg.GatewayTimeout)

	wl := waitlist.NewService(waitlistRepo, slots, events, cfg.WaitlistNotifyWindow)

	// Handlers.
	authHandler := handler.NewAuthHandler(cfg, users, tokens)
	catalogHandler := handler.NewCatalogHandler(activities, slots)
	bookingHandler := &handler.BookingHandler{
		Coordinator: coordinator,
		Bridge:      bridge,
		Rules:       rules,
		Waitlist:    wl,
		Bookings:    bookings,
		Slots:       slots,
		Activities:  activities,
	}
	paymentHandler := &handler.PaymentHandler{
		Bridge:   bridge,
		Rules:    rules,
		Bookings: bookings,
		Slots:    slots,
	}
	checkinHandler := &handler.CheckinHandler{Tokens: qrService}
	waitlistHandler := &handler.WaitlistHandler{Waitlist: wl}

	// HTTP server. Redis is optional: with no client the rate limiter and
	// response cache degrade to pass-throughs.
	e := echo.New()
	rdb := config.NewRedisClient()
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	publicCache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	router.RegisterRoutes(e)
	router.RegisterAuth(e, authHandler, cfg.JWTSecret)
	router.RegisterPublic(e, catalogHandler, publicCache)
	router.RegisterWebhooks(e, paymentHandler)
	router.RegisterCustomer(e, bookingHandler, paymentHandler, waitlistHandler, cfg.JWTSecret)
	router.RegisterStaff(e, catalogHandler, paymentHandler, checkinHandler, cfg.JWTSecret)

	// Notified waitlist entries hold their claim for a window; a sweeper
	// ages out the ones that never came back.
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			if n, err := wl.ExpireStale(ctx); err != nil {
				log.Printf("waitlist sweep: %v", err)
			} else if n > 0 {
				log.Printf("waitlist sweep: expired %d stale entries", n)
			}
			cancel()
		}
	}()

	// The consumer mirrors domain events into logs/booking.log and keeps
	// reconnecting on its own; a dead broker only costs the log trail.
	go func() {
		if err := queue.StartEventConsumer(); err != nil {
			log.Printf("event consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}

// buildGateways registers every gateway that has credentials configured.
// The mock gateway is kept out of prod so a forged callback cannot settle a
// real booking.
func buildGateways(cfg config.Config) *payment.Registry {
	var gws []payment.Gateway
	if cfg.RazorpaySecret != "" {
		gws = append(gws, payment.NewRazorpay(cfg.RazorpaySecret))
	}
	if cfg.StripeSecret != "" {
		gws = append(gws, payment.NewStripe(cfg.StripeSecret))
	}
	if cfg.PhonePeSaltKey != "" {
		gws = append(gws, payment.NewPhonePe(cfg.PhonePeSaltKey, cfg.PhonePeSaltIdx))
	}
	if cfg.Env != "prod" {
		gws = append(gws, payment.NewMock())
	}
	return payment.NewRegistry(gws...)
}
