package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"skyrating/internal/db"
	"skyrating/internal/domain"

	"github.com/rs/zerolog"
)

type SeasonRepository struct {
	queries *db.Queries
	db      *sql.DB
	logger  zerolog.Logger
}

func NewSeasonRepository(sqlDB *sql.DB, queries *db.Queries, logger zerolog.Logger) *SeasonRepository {
	return &SeasonRepository{
		queries: queries,
		db:      sqlDB,
		logger:  logger,
	}
}

func (r *SeasonRepository) GetActive(ctx context.Context) (*domain.Season, error) {
	row, err := r.queries.GetActiveSeason(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("no active season: %w", domain.ErrSeasonNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active season: %w", err)
	}
	return toDomainSeason(row), nil
}

func (r *SeasonRepository) Get(ctx context.Context, id int) (*domain.Season, error) {
	row, err := r.queries.GetSeason(ctx, int64(id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("season %d: %w", id, domain.ErrSeasonNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get season %d: %w", id, err)
	}
	return toDomainSeason(row), nil
}

// Start closes any active season and opens a new one, keeping exactly one active.
func (r *SeasonRepository) Start(ctx context.Context, name string, started time.Time) (*domain.Season, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	qtx := r.queries.WithTx(tx)
	if err := qtx.DeactivateSeasons(ctx, started); err != nil {
		return nil, fmt.Errorf("failed to close active season: %w", err)
	}
	id, err := qtx.InsertSeason(ctx, name, started)
	if err != nil {
		return nil, fmt.Errorf("failed to insert season: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit season: %w", err)
	}

	r.logger.Info().Int64("season", id).Str("name", name).Msg("season started")
	return &domain.Season{ID: int(id), Name: name, Started: started, Active: true}, nil
}

// EnsureActive returns the active season, starting one named name if none exists.
func (r *SeasonRepository) EnsureActive(ctx context.Context, name string) (*domain.Season, error) {
	season, err := r.GetActive(ctx)
	if err == nil {
		return season, nil
	}
	if !errors.Is(err, domain.ErrSeasonNotFound) {
		return nil, err
	}
	return r.Start(ctx, name, time.Now().UTC())
}

func (r *SeasonRepository) SetTotalRankedUsers(ctx context.Context, id, total int) error {
	if err := r.queries.UpdateSeasonTotalRanked(ctx, int64(id), int64(total)); err != nil {
		return fmt.Errorf("failed to set total ranked users for season %d: %w", id, err)
	}
	return nil
}

func toDomainSeason(row db.Season) *domain.Season {
	s := &domain.Season{
		ID:               int(row.ID),
		Name:             row.Name,
		Started:          row.Started,
		Active:           row.Active,
		TotalRankedUsers: int(row.TotalRankedUsers),
	}
	if row.Ended.Valid {
		ended := row.Ended.Time
		s.Ended = &ended
	}
	return s
}
