package main

import (
	"context"
	"log"
	"net/http"
	"os"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/robfig/cron/v3"
	"github.com/stripe/stripe-go/v82"

	"consultorio/internal/api"
	"consultorio/internal/auth"
	"consultorio/internal/bookingapi"
	"consultorio/internal/calendar"
	"consultorio/internal/config"
	"consultorio/internal/repository"
	"consultorio/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	stripe.Key = cfg.StripeKey

	redisClient, err := repository.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}

	cursorRepo := repository.NewCursorRepository(redisClient, cfg.CalendarID)
	locker := repository.NewRedisSlotLocker(redisClient, cfg.LockTTL)

	calendarClient := calendar.NewClient(cfg.CalendarBaseURL, cfg.CalendarID, cfg.CalendarToken)
	bookingClient := bookingapi.NewClient(cfg.BookingAPIBaseURL, cfg.BookingAPIKey)

	tokens := auth.NewRescheduleTokens(cfg.RescheduleSecret, cfg.RescheduleTTL)
	sender := service.NewSenderService(cfg.ClinicName, cfg.DoctorPhone, cfg.StripeSuccessURL, cfg.Timezone, tokens)

	slotSvc := service.NewSlotService(calendarClient, locker, sender)
	syncSvc := service.NewSyncService(calendarClient, cursorRepo, sender, cfg.SyncWindow)
	jobSvc := service.NewJobService(slotSvc, cfg.PendingHoldTTL, cfg.SyncWindow)
	stripeSvc := service.NewStripeService(cfg.StripeSuccessURL, cfg.StripeCancelURL)

	bookingHandler := api.NewBookingHandler(slotSvc, stripeSvc, tokens, cfg.ClinicName, cfg.ConsultationPrice, cfg.Currency)
	stripeHandler := api.NewStripeWebhookHandler(cfg.StripeWebhookSecret, slotSvc, bookingClient, stripeSvc)
	calendarHandler := api.NewCalendarWebhookHandler(syncSvc)
	adminHandler := api.NewAdminHandler(calendarClient, syncSvc, cfg.CalendarWebhookURL)

	r := mux.NewRouter()

	// Public endpoints
	r.HandleFunc("/api/slots", bookingHandler.ListSlots).Methods("GET")
	r.HandleFunc("/api/slots/{id}/reserve", bookingHandler.Reserve).Methods("POST")
	r.HandleFunc("/api/reschedule", bookingHandler.Reschedule).Methods("POST")
	r.HandleFunc("/api/reschedule/slots", bookingHandler.RescheduleSlots).Methods("GET")

	// Provider webhooks
	r.HandleFunc("/webhooks/stripe", stripeHandler.HandleWebhook).Methods("POST")
	r.HandleFunc("/webhooks/calendar", calendarHandler.HandleNotification).Methods("POST")

	// Admin endpoints (shared-secret protected)
	admin := r.PathPrefix("/admin").Subrouter()
	admin.Use(auth.AdminAuthMiddleware(cfg.AdminSecretHash))
	admin.HandleFunc("/setup", adminHandler.Setup).Methods("GET")
	admin.HandleFunc("/sync", adminHandler.TriggerSync).Methods("GET")

	c := cron.New()
	if _, err := c.AddFunc("@every 5m", func() {
		if err := syncSvc.Run(context.Background()); err != nil {
			log.Printf("Cron Job: sync cycle failed: %v", err)
		}
	}); err != nil {
		log.Fatalf("Failed to schedule sync job: %v", err)
	}
	if _, err := c.AddFunc("@every 10m", func() {
		if _, err := jobSvc.ReleaseStalePendingHolds(context.Background()); err != nil {
			log.Printf("Cron Job: stale hold release failed: %v", err)
		}
	}); err != nil {
		log.Fatalf("Failed to schedule hold release job: %v", err)
	}
	c.Start()

	corsHandler := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{"GET", "POST", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	)

	log.Printf("Server running on port %s", cfg.HTTPPort)
	log.Fatal(http.ListenAndServe(":"+cfg.HTTPPort, handlers.LoggingHandler(os.Stdout, corsHandler(r))))
}
