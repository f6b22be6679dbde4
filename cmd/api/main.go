package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/medibook/booking-api/internal/config"
	appointmentHandler "github.com/medibook/booking-api/internal/handler/appointment"
	doctorHandler "github.com/medibook/booking-api/internal/handler/doctor"
	healthHandler "github.com/medibook/booking-api/internal/handler/health"
	patientHandler "github.com/medibook/booking-api/internal/handler/patient"
	"github.com/medibook/booking-api/internal/middleware"
	"github.com/medibook/booking-api/internal/repository/postgres"
	"github.com/medibook/booking-api/internal/router"
	bookingService "github.com/medibook/booking-api/internal/service/booking"
	doctorService "github.com/medibook/booking-api/internal/service/doctor"
	patientService "github.com/medibook/booking-api/internal/service/patient"
	"github.com/medibook/booking-api/pkg/metrics"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log.Logger = zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	ctx := context.Background()
	if err := postgres.Bootstrap(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("failed to bootstrap schema")
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Warn().Err(err).Msg("redis unavailable, readiness will report degraded")
	}

	appointmentRepo := postgres.NewAppointmentRepository(db)
	patientRepo := postgres.NewPatientRepository(db)
	doctorRepo := postgres.NewDoctorRepository(db)
	outboxRepo := postgres.NewOutboxRepository(db)

	m := metrics.New(cfg.Metrics.Namespace)

	bookingSvc := bookingService.NewService(appointmentRepo, doctorRepo, patientRepo, outboxRepo, m)
	patientSvc := patientService.NewService(patientRepo, appointmentRepo)
	doctorSvc := doctorService.NewService(doctorRepo, appointmentRepo, bookingSvc.InvalidateDoctor)

	r := router.New(
		router.Config{
			Mode:       cfg.Server.Mode,
			RateLimit:  rate.Limit(cfg.RateLimit.RequestsPerSecond),
			RateBurst:  cfg.RateLimit.Burst,
			CORSConfig: middleware.DefaultCORSConfig(),
		},
		m,
		healthHandler.NewHandler(db, redisClient),
		appointmentHandler.NewHandler(bookingSvc),
		patientHandler.NewHandler(patientSvc),
		doctorHandler.NewHandler(doctorSvc),
	)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}
	if err := redisClient.Close(); err != nil {
		log.Error().Err(err).Msg("failed to close redis client")
	}

	log.Info().Msg("server stopped")
}
