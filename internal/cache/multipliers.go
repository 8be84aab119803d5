package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"skyrating/internal/config"
	"skyrating/internal/domain"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	MultipliersKey     = "skyrating:multipliers"
	MultipliersSeason  = "skyrating:multipliers:season"
	MultipliersUpdated = "skyrating:multipliers:updated_at"
	MultipliersChannel = "skyrating:multipliers:updates"
)

// MultiplierStore keeps a copy of the latest multiplier set in redis so a restarted
// server can serve ratings before its first replay finishes. A store without an
// address is disabled and every call is a no-op.
type MultiplierStore struct {
	rdb    *redis.Client
	logger zerolog.Logger
}

func NewMultiplierStore(cfg *config.Config, logger zerolog.Logger) *MultiplierStore {
	if cfg.RedisAddr == "" {
		logger.Info().Msg("redis address not set, multiplier publication disabled")
		return &MultiplierStore{logger: logger}
	}
	return NewMultiplierStoreWithClient(redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}), logger)
}

func NewMultiplierStoreWithClient(rdb *redis.Client, logger zerolog.Logger) *MultiplierStore {
	return &MultiplierStore{rdb: rdb, logger: logger}
}

func (s *MultiplierStore) Enabled() bool {
	return s.rdb != nil
}

// Publish stores metrics as the current set for season and notifies subscribers.
func (s *MultiplierStore) Publish(ctx context.Context, season int, metrics []domain.KillMetric) error {
	if !s.Enabled() {
		return nil
	}
	payload, err := json.Marshal(metrics)
	if err != nil {
		return fmt.Errorf("failed to encode multipliers: %w", err)
	}

	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, MultipliersKey, payload, 0)
	pipe.Set(ctx, MultipliersSeason, season, 0)
	pipe.Set(ctx, MultipliersUpdated, time.Now().UTC().Format(time.RFC3339), 0)
	pipe.Publish(ctx, MultipliersChannel, season)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to publish multipliers: %w", err)
	}

	s.logger.Debug().Int("season", season).Int("kill_strings", len(metrics)).Msg("multipliers published")
	return nil
}

// Load returns the stored set for season. ok is false when nothing usable is stored.
func (s *MultiplierStore) Load(ctx context.Context, season int) (metrics []domain.KillMetric, ok bool, err error) {
	if !s.Enabled() {
		return nil, false, nil
	}

	values, err := s.rdb.MGet(ctx, MultipliersKey, MultipliersSeason).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to load multipliers: %w", err)
	}
	raw, _ := values[0].(string)
	storedSeason, _ := values[1].(string)
	if raw == "" || storedSeason != strconv.Itoa(season) {
		return nil, false, nil
	}

	if err := json.Unmarshal([]byte(raw), &metrics); err != nil {
		return nil, false, fmt.Errorf("failed to decode multipliers: %w", err)
	}
	return metrics, true, nil
}

func (s *MultiplierStore) Close() error {
	if !s.Enabled() {
		return nil
	}
	return s.rdb.Close()
}
