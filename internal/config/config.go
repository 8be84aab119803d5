package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

type Config struct {
	DBPath     string
	ServerPort string
	LogLevel   string

	DumpDir        string
	HistoryDir     string
	ReplayBinary   string
	ReplayInterval time.Duration
	ReplayTimeout  time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	AlertWebhookURL string

	HistoryBucket         string
	HistoryBucketRegion   string
	HistoryBucketEndpoint string
	HistoryBucketKey      string
	HistoryBucketSecret   string

	Rating Rating
}

// Rating holds the tunables of the steal formula and the event rules.
type Rating struct {
	DefaultElo        float64
	BasePoints        float64
	GainRate          float64
	LossRate          float64
	MinPoints         float64
	MaxPoints         float64
	TeamKillPenalty   float64
	MultiplierCap     float64 // 0 disables the cap
	RankKillThreshold int
}

func DefaultRating() Rating {
	return Rating{
		DefaultElo:        2000,
		BasePoints:        10,
		GainRate:          0.01,
		LossRate:          0.01,
		MinPoints:         1,
		MaxPoints:         60,
		TeamKillPenalty:   0,
		MultiplierCap:     5,
		RankKillThreshold: 10,
	}
}

func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	cfg := &Config{
		DBPath:                getEnv("DB_PATH", "skyrating.db"),
		ServerPort:            getEnv("SERVER_PORT", "8080"),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		DumpDir:               getEnv("DUMP_DIR", "dumps"),
		HistoryDir:            getEnv("HISTORY_DIR", "histories"),
		ReplayBinary:          getEnv("REPLAY_BINARY", "./replay"),
		RedisAddr:             getEnv("REDIS_ADDR", ""),
		RedisPassword:         getEnv("REDIS_PASSWORD", ""),
		AlertWebhookURL:       getEnv("ALERT_WEBHOOK_URL", ""),
		HistoryBucket:         getEnv("HISTORY_BUCKET", ""),
		HistoryBucketRegion:   getEnv("HISTORY_BUCKET_REGION", "us-east-1"),
		HistoryBucketEndpoint: getEnv("HISTORY_BUCKET_ENDPOINT", ""),
		HistoryBucketKey:      getEnv("HISTORY_BUCKET_ACCESS_KEY", ""),
		HistoryBucketSecret:   getEnv("HISTORY_BUCKET_SECRET", ""),
	}

	var err error
	if cfg.ReplayInterval, err = getDuration("REPLAY_INTERVAL", time.Hour); err != nil {
		return nil, err
	}
	if cfg.ReplayTimeout, err = getDuration("REPLAY_TIMEOUT", 30*time.Minute); err != nil {
		return nil, err
	}
	if cfg.RedisDB, err = getInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.Rating, err = loadRating(); err != nil {
		return nil, err
	}

	logger.Info().
		Str("db_path", cfg.DBPath).
		Str("server_port", cfg.ServerPort).
		Str("log_level", cfg.LogLevel).
		Str("replay_binary", cfg.ReplayBinary).
		Dur("replay_interval", cfg.ReplayInterval).
		Dur("replay_timeout", cfg.ReplayTimeout).
		Float64("multiplier_cap", cfg.Rating.MultiplierCap).
		Msg("configuration loaded")

	return cfg, nil
}

func loadRating() (Rating, error) {
	r := DefaultRating()
	floats := []struct {
		key string
		dst *float64
	}{
		{"ELO_DEFAULT", &r.DefaultElo},
		{"ELO_BASE_POINTS", &r.BasePoints},
		{"ELO_GAIN_RATE", &r.GainRate},
		{"ELO_LOSS_RATE", &r.LossRate},
		{"ELO_MIN_POINTS", &r.MinPoints},
		{"ELO_MAX_POINTS", &r.MaxPoints},
		{"ELO_TEAMKILL_PENALTY", &r.TeamKillPenalty},
		{"ELO_MULTIPLIER_CAP", &r.MultiplierCap},
	}
	for _, f := range floats {
		v, err := getFloat(f.key, *f.dst)
		if err != nil {
			return r, err
		}
		*f.dst = v
	}

	threshold, err := getInt("ELO_RANK_KILL_THRESHOLD", r.RankKillThreshold)
	if err != nil {
		return r, err
	}
	r.RankKillThreshold = threshold

	if r.MinPoints > r.MaxPoints {
		return r, fmt.Errorf("ELO_MIN_POINTS (%v) must not exceed ELO_MAX_POINTS (%v)", r.MinPoints, r.MaxPoints)
	}
	return r, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid duration format for %s: %w", key, err)
	}
	return d, nil
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid integer format for %s: %w", key, err)
	}
	return i, nil
}

func getFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid float format for %s: %w", key, err)
	}
	return f, nil
}

var Module = fx.Provide(Load)
