package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"dispatch-service/internal/booking"
	"dispatch-service/internal/config"
	"dispatch-service/internal/drivers"
	"dispatch-service/internal/maps"
	"dispatch-service/internal/matching"
	"dispatch-service/internal/notify"
	"dispatch-service/internal/rides"
	"dispatch-service/internal/suggest"
	"dispatch-service/internal/tracking"
	"dispatch-service/internal/users"
	"dispatch-service/migrations"
	"dispatch-service/pkg/apm"
	"dispatch-service/pkg/db"
	"dispatch-service/pkg/jwt"
	"dispatch-service/pkg/kafka"
	"dispatch-service/pkg/rabbitmq"
	rredis "dispatch-service/pkg/redis"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ── 1. Config + auth ──
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	if err := jwt.Init(cfg.Auth.JWTSecret); err != nil {
		log.Fatal(err)
	}
	federated, err := loadFederatedVerifier(cfg.Auth)
	if err != nil {
		log.Fatal(err)
	}

	// ── 2. PostgreSQL ──
	database, err := db.Connect(ctx, cfg.Database.URL)
	if err != nil {
		log.Fatal(err)
	}
	defer database.Close()

	if err := database.RunMigrations(ctx, migrations.FS); err != nil {
		log.Fatal("migrations failed:", err)
	}

	// ── 3. Redis ──
	redisClient, err := rredis.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatal(err)
	}
	defer redisClient.Close()
	jwt.SetRevocationCheck(redisClient.IsRevoked)

	// ── 4. Kafka ──
	kafkaClient := kafka.NewClient(cfg.Kafka.Brokers)
	defer kafkaClient.Close()

	if err := kafkaClient.EnsureTopics(ctx,
		kafka.TopicRideRequested,
		kafka.TopicRideStatusChanged,
		kafka.TopicRideFeedback,
	); err != nil {
		log.Fatal(err)
	}

	// ── 5. RabbitMQ (optional) ──
	var notifications notify.Publisher = notify.LogPublisher{}
	if cfg.RabbitMQ.URL != "" {
		pub, err := rabbitmq.Dial(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange)
		if err != nil {
			log.Fatal(err)
		}
		defer pub.Close()
		notifications = pub
	} else {
		log.Println("[notify] RABBITMQ_URL not set, notifications are logged only")
	}

	// ── 6. Services ──
	feed := rides.NewFeed()
	rideStore := rides.NewCachedStore(rides.NewPostgresStore(database.Pool), redisClient)
	rideSvc := rides.NewService(rideStore, feed, kafkaClient)

	userSvc := users.NewService(users.NewPostgresStore(database.Pool), federated, redisClient)
	driverSvc := drivers.NewService(drivers.NewPostgresStore(database.Pool), redisClient, rideSvc)
	bookingSvc := booking.NewService(redisClient, rideSvc, redisClient)

	suggestClient := suggest.NewClient(cfg.Suggestions.Endpoint, cfg.Suggestions.APIKey, cfg.Suggestions.Timeout)
	if !suggestClient.Configured() {
		log.Println("[suggest] GEMINI_API_KEY or SUGGESTIONS_ENDPOINT not set, destination suggestions disabled")
	}
	suggestSvc := suggest.NewService(suggestClient, redisClient)
	mapSvc := maps.NewService(cfg.Maps.APIKey)

	// ── 7. Background consumers ──
	matching.NewMatcher(kafkaClient, redisClient, driverSvc, rideSvc).Start(ctx)
	notify.NewNotifier(kafkaClient, notifications).Start(ctx)

	// ── 8. HTTP router ──
	nrApp, err := apm.NewApp(cfg.NewRelic.AppName, cfg.NewRelic.LicenseKey, cfg.NewRelic.Enabled)
	if err != nil {
		log.Fatal("new relic:", err)
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(apm.Middleware(nrApp))
	r.Use(jwt.OptionalAuth)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","service":"dispatch-service"}`))
	})

	r.Mount("/users", users.NewHandler(userSvc).Routes())
	r.Mount("/drivers", drivers.NewHandler(driverSvc).Routes())
	r.Mount("/booking", booking.NewHandler(bookingSvc).Routes())
	r.Mount("/rides", rides.NewHandler(rideSvc).Routes())
	r.Mount("/tracking", tracking.NewHandler(rideSvc).Routes())
	r.Mount("/suggestions", suggest.NewHandler(suggestSvc).Routes())
	r.Mount("/maps", maps.NewHandler(mapSvc).Routes())

	// ── 9. Start server ──
	srv := &http.Server{
		Addr:        ":" + cfg.Server.Port,
		Handler:     r,
		ReadTimeout: cfg.Server.ReadTimeout,
		// No WriteTimeout; tracking sockets are long-lived.
	}

	go func() {
		log.Printf("dispatch-service listening on :%s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	// ── 10. Graceful shutdown ──
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	shutCtx, shutCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutCancel()
	srv.Shutdown(shutCtx)
	cancel() // stop consumers
	if nrApp != nil {
		nrApp.Shutdown(cfg.Server.ShutdownTimeout)
	}
}

// loadFederatedVerifier returns nil when no provider key file is configured.
func loadFederatedVerifier(auth config.AuthConfig) (users.IdentityVerifier, error) {
	if auth.FederatedKeyFile == "" {
		log.Println("[auth] FEDERATED_KEY_FILE not set, federated sign-in disabled")
		return nil, nil
	}
	pem, err := os.ReadFile(auth.FederatedKeyFile)
	if err != nil {
		return nil, err
	}
	return jwt.NewFederatedVerifier(auth.FederatedProvider, auth.FederatedIssuer, auth.FederatedAudience, pem)
}
