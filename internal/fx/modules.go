package fx

import (
	"database/sql"

	"skyrating/internal/api"
	"skyrating/internal/cache"
	"skyrating/internal/config"
	"skyrating/internal/database"
	"skyrating/internal/db"
	"skyrating/internal/logger"
	"skyrating/internal/orchestrator"
	"skyrating/internal/rating"
	"skyrating/internal/repository"
	"skyrating/internal/server"
	"skyrating/internal/service"
	"skyrating/internal/storage"

	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

func ProvideQueries(sqlDB *sql.DB) *db.Queries {
	return db.New(sqlDB)
}

func ProvideRules(cfg *config.Config) *rating.Rules {
	return rating.NewRules(cfg.Rating, rating.DefaultTeamKillBanPolicy())
}

func ProvideEloService(
	users *repository.UserRepository,
	events *repository.EventRepository,
	seasons *repository.SeasonRepository,
	rules *rating.Rules,
	table *rating.TableHolder,
	logger zerolog.Logger,
) *service.EloService {
	return service.NewEloService(users, events, seasons, rules, table, logger)
}

func ProvideHistoryService(cfg *config.Config, uploader storage.Uploader, logger zerolog.Logger) *service.HistoryService {
	return service.NewHistoryService(cfg.HistoryDir, uploader, logger)
}

func ProvideOrchestrator(
	cfg *config.Config,
	seasons *repository.SeasonRepository,
	events *repository.EventRepository,
	users *repository.UserRepository,
	elo *service.EloService,
	store *cache.MultiplierStore,
	history *service.HistoryService,
	alerts *api.AlertClient,
	logger zerolog.Logger,
) *orchestrator.Orchestrator {
	return orchestrator.New(cfg, seasons, events, users, elo, store, history, alerts, logger)
}

func ProvideRatingServer(
	elo *service.EloService,
	history *service.HistoryService,
	orch *orchestrator.Orchestrator,
	logger zerolog.Logger,
) *server.RatingServer {
	return server.NewRatingServer(elo, history, orch, logger)
}

var Module = fx.Options(
	logger.Module,
	config.Module,
	fx.Provide(database.New),
	fx.Provide(ProvideQueries),
	// repos
	fx.Provide(repository.NewUserRepository),
	fx.Provide(repository.NewEventRepository),
	fx.Provide(repository.NewSeasonRepository),
	// rating core
	fx.Provide(ProvideRules),
	fx.Provide(rating.NewTableHolder),
	// external clients
	fx.Provide(cache.NewMultiplierStore),
	fx.Provide(api.NewAlertClient),
	fx.Provide(storage.NewUploader),
	// svc
	fx.Provide(ProvideEloService),
	fx.Provide(ProvideHistoryService),
	fx.Provide(ProvideOrchestrator),
	fx.Provide(orchestrator.NewScheduler),
	// server
	fx.Provide(ProvideRatingServer),
)
