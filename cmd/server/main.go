package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	"skyrating/internal/cache"
	"skyrating/internal/config"
	"skyrating/internal/constants"
	fxmodules "skyrating/internal/fx"
	"skyrating/internal/middleware"
	"skyrating/internal/orchestrator"
	"skyrating/internal/repository"
	"skyrating/internal/server"
	"skyrating/internal/service"

	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

const defaultSeasonName = "Season 1"

func main() {
	fx.New(
		fxmodules.Module,
		fx.Invoke(runServer),
	).Run()
}

func runServer(
	lc fx.Lifecycle,
	ratingServer *server.RatingServer,
	elo *service.EloService,
	seasons *repository.SeasonRepository,
	store *cache.MultiplierStore,
	scheduler *orchestrator.Scheduler,
	cfg *config.Config,
	db *sql.DB,
	logger zerolog.Logger,
) {
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	handler := middleware.RequestID(logger)(middleware.Recover(c.Handler(ratingServer.Routes())))

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.ServerPort),
		Handler: handler,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			season, err := seasons.EnsureActive(ctx, defaultSeasonName)
			if err != nil {
				return fmt.Errorf("failed to ensure active season: %w", err)
			}

			// serve the last published multipliers until the first replay reports
			if metrics, ok, err := store.Load(ctx, season.ID); err != nil {
				logger.Warn().Err(err).Msg("failed to restore multipliers")
			} else if ok {
				elo.SetMultipliers(metrics)
			}

			go func() {
				logger.Info().Str("addr", srv.Addr).Int("season", season.ID).Msg("server starting")
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Fatal().Err(err).Msg("server failed")
				}
			}()

			scheduler.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info().Msg("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
			defer cancel()

			if err := scheduler.Shutdown(); err != nil {
				logger.Warn().Err(err).Msg("error stopping scheduler")
			}

			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error().Err(err).Msg("server shutdown failed")
				return err
			}

			if err := store.Close(); err != nil {
				logger.Warn().Err(err).Msg("error closing redis client")
			}
			if err := db.Close(); err != nil {
				logger.Warn().Err(err).Msg("error closing database connection")
			}

			logger.Info().Msg("server stopped gracefully")
			return nil
		},
	})
}
