package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/campuspass/checkin-server-go/internal/config"
	"github.com/campuspass/checkin-server-go/internal/credential"
	"github.com/campuspass/checkin-server-go/internal/database"
	"github.com/campuspass/checkin-server-go/internal/handler"
	"github.com/campuspass/checkin-server-go/internal/jobs"
	"github.com/campuspass/checkin-server-go/internal/middleware"
	"github.com/campuspass/checkin-server-go/internal/redis"
	"github.com/campuspass/checkin-server-go/internal/repository"
	"github.com/campuspass/checkin-server-go/internal/service"
	"github.com/campuspass/checkin-server-go/internal/session"
	"github.com/campuspass/checkin-server-go/internal/sse"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setLogLevel(cfg.LogLevel)

	isProduction := os.Getenv("FLY_APP_NAME") != ""
	if err := cfg.Validate(isProduction); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), config.DBPingTimeout)
	if err := db.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ping database")
	}
	cancel()
	log.Info().Msg("database connected")

	redisClient, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info().Msg("redis connected")

	userRepo := repository.NewUserRepository(db.DB)
	adminRoleRepo := repository.NewAdminRoleRepository(db.DB)
	activityRepo := repository.NewActivityRepository(db.DB)
	participationRepo := repository.NewParticipationRepository(db.DB)

	broker := sse.NewBroker(redisClient)
	defer broker.Close()

	sessionStore := session.NewStore(redisClient, broker, session.Config{
		TTL:         cfg.SessionTTL(),
		RememberTTL: cfg.RememberMeTTL(),
		MaxLifetime: cfg.SessionMaxLifetime(),
	})
	signer := credential.NewSigner(cfg.QRTTL())

	authService := service.NewAuthService(userRepo, adminRoleRepo, sessionStore)
	participationService := service.NewParticipationService(db, activityRepo, participationRepo)
	activityService := service.NewActivityService(activityRepo, participationService)
	checkinService := service.NewCheckinService(
		sessionStore, signer, activityRepo, participationRepo, participationService, broker,
	)

	sessionMW := middleware.NewSessionMiddleware(sessionStore, authService)
	loginLimitMW := middleware.NewRateLimitMiddleware(redisClient.Client, cfg.LoginRateLimitPerMin)
	scanLimitMW := middleware.NewRateLimitMiddleware(redisClient.Client, cfg.ScanRateLimitPerMin)
	bodyLimitMW := middleware.NewBodyLimitMiddleware(0)

	sessionHandler := handler.NewSessionHandler(authService, sessionMW, loginLimitMW.IPHandler)
	credentialHandler := handler.NewCredentialHandler(checkinService)
	activityHandler := handler.NewActivityHandler(activityService, checkinService, sessionMW, scanLimitMW.SessionHandler)
	eventsHandler := handler.NewEventsHandler(broker)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(bodyLimitMW.Handler)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"status":    "ok",
			"timestamp": time.Now().UnixMilli(),
		})
	})

	r.Route("/v1/sessions", func(r chi.Router) {
		r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))
		r.Mount("/", sessionHandler.Routes())
	})

	r.Route("/v1/credentials", func(r chi.Router) {
		r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))
		r.Use(sessionMW.Handler)
		r.Mount("/", credentialHandler.Routes())
	})

	r.Route("/v1/activities", func(r chi.Router) {
		r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))
		r.Use(sessionMW.Handler)
		r.Mount("/", activityHandler.Routes())
	})

	// SSE stays outside the request timeout: connections are long-lived.
	r.Route("/v1/events", func(r chi.Router) {
		r.Use(sessionMW.Handler)
		r.Get("/", eventsHandler.ServeHTTP)
	})

	sweepJob := jobs.NewSweepJob(participationService, sessionStore, config.SweepJobInterval)
	sweepJob.Start()
	defer sweepJob.Stop()

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: 0,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
