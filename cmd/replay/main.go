package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"skyrating/internal/config"
	"skyrating/internal/constants"
	"skyrating/internal/database"
	"skyrating/internal/db"
	"skyrating/internal/dump"
	"skyrating/internal/ipc"
	"skyrating/internal/logger"
	"skyrating/internal/rating"
	"skyrating/internal/replay"
	"skyrating/internal/repository"

	"github.com/rs/zerolog"
)

var errStarted = errors.New("start received")

// The replay child. It is spawned by the server with the control pipe on fd 3
// and the message pipe on fd 4, and always leaves through os.Exit.
func main() {
	log := logger.NewChild(os.Stdout)

	ch, err := ipc.ChildChannel()
	if err != nil {
		log.Error().Err(err).Msg("replay must be started by the server")
		os.Exit(2)
	}

	if err := run(context.Background(), ch, log); err != nil {
		log.Error().Err(err).Msg("replay failed")
		_ = ch.Send(ipc.Error(err))
		os.Exit(1)
	}
	os.Exit(0)
}

func run(ctx context.Context, ch *ipc.Channel, log zerolog.Logger) error {
	cfg, err := config.Load(log)
	if err != nil {
		return err
	}

	seasonID, err := awaitStart(ch)
	if err != nil {
		return err
	}
	log.Info().Int("season", seasonID).Msg("replay starting")

	sqlDB, err := database.Open(cfg.DBPath, false, log)
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	queries := db.New(sqlDB)
	seasons := repository.NewSeasonRepository(sqlDB, queries, log)
	users := repository.NewUserRepository(sqlDB, queries, log)

	season, err := seasons.Get(ctx, seasonID)
	if err != nil {
		return err
	}
	candidates, err := users.ListSeasonCandidates(ctx, season.ID, cfg.Rating.DefaultElo)
	if err != nil {
		return err
	}
	log.Info().Int("users", len(candidates)).Msg("season users loaded")

	engine := replay.NewEngine(rating.NewRules(cfg.Rating, rating.DefaultTeamKillBanPolicy()), log)
	res, err := engine.Run(ctx, replay.DumpInput(season, candidates, dump.SeasonPaths(cfg.DumpDir, season.ID)))
	if err != nil {
		return err
	}

	if err := ch.Send(ipc.Mults(res.Metrics)); err != nil {
		return err
	}
	for _, batch := range replay.Batches(res.Changed, constants.ReplayBatchSize) {
		if err := ch.Send(ipc.Users(batch)); err != nil {
			return err
		}
	}
	return ch.Send(ipc.Done(res.TotalRanked))
}

func awaitStart(ch *ipc.Channel) (int, error) {
	var season int
	err := ch.Receive(func(m ipc.Message) error {
		if m.Type != ipc.TypeStart {
			return nil
		}
		season = m.Season
		return errStarted
	})
	switch {
	case errors.Is(err, errStarted):
		return season, nil
	case err != nil:
		return 0, fmt.Errorf("failed to read control pipe: %w", err)
	default:
		return 0, errors.New("control pipe closed before start")
	}
}
