package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/civicdesk/backend/internal/config"
	"github.com/civicdesk/backend/internal/db"
	"github.com/civicdesk/backend/internal/events"
	httpapi "github.com/civicdesk/backend/internal/http"
	"github.com/civicdesk/backend/internal/notify"
	"github.com/civicdesk/backend/internal/registry"
	"github.com/civicdesk/backend/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	zerolog.TimeFieldFormat = time.RFC3339
	level, _ := zerolog.ParseLevel(cfg.LogLevel)
	logger := log.Level(level).With().Str("service", "civicdesk-backend").Logger()

	ctx := context.Background()
	store, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect db")
	}
	defer store.Close()

	reg := registry.New(store, cfg.RegistryRefreshInterval, cfg.QueryTimeout, logger)
	if err := reg.Start(ctx); err != nil {
		logger.Warn().Err(err).Msg("initial registry load failed, starting with empty snapshot")
	}
	defer reg.Stop()

	var publisher events.Publisher = events.Noop{}
	if cfg.NATSURL != "" {
		natsPub, err := events.NewNATS(cfg.NATSURL, "civicdesk")
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect nats")
		}
		defer natsPub.Close()
		publisher = natsPub
	} else {
		logger.Info().Msg("no NATS_URL, events disabled")
	}

	tracker := service.NewTracker(store, cfg.QueryTimeout, cfg.WorkloadFailOpen, logger)
	if cfg.WorkloadFailOpen {
		logger.Warn().Msg("workload fail-open enabled: unreachable counts score as zero load")
	}

	coordinator := service.NewCoordinator(
		store, store, reg, tracker,
		notify.StoreSink{Store: store}, publisher,
		service.DefaultWeights(), logger,
	)

	router := httpapi.Router(cfg, store, coordinator, reg, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  cfg.RequestTimeout,
		WriteTimeout: cfg.RequestTimeout,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctxShutdown)
	logger.Info().Msg("server stopped")
}
