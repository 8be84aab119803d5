package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"skyrating/internal/constants"
	"skyrating/internal/db"
	"skyrating/internal/domain"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

type UserRepository struct {
	queries *db.Queries
	db      *sql.DB
	logger  zerolog.Logger
}

func NewUserRepository(sqlDB *sql.DB, queries *db.Queries, logger zerolog.Logger) *UserRepository {
	return &UserRepository{
		queries: queries,
		db:      sqlDB,
		logger:  logger,
	}
}

func (r *UserRepository) Get(ctx context.Context, id string) (*domain.User, error) {
	row, err := r.queries.GetUser(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", id, domain.ErrMissingUser)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user %s: %w", id, err)
	}
	return toDomainUser(row)
}

func (r *UserRepository) Upsert(ctx context.Context, user *domain.User) error {
	params, err := toDBUser(user)
	if err != nil {
		return err
	}
	if err := r.queries.UpsertUser(ctx, params); err != nil {
		return fmt.Errorf("failed to upsert user %s: %w", user.ID, err)
	}
	return nil
}

// BulkUpdate writes users in transactions of constants.DBBatchSize rows each.
func (r *UserRepository) BulkUpdate(ctx context.Context, users []*domain.User) error {
	for i := 0; i < len(users); i += constants.DBBatchSize {
		end := i + constants.DBBatchSize
		if end > len(users) {
			end = len(users)
		}
		if err := r.upsertChunk(ctx, users[i:end]); err != nil {
			return err
		}
		r.logger.Debug().Int("from", i).Int("to", end).Msg("users batch written")
	}
	return nil
}

func (r *UserRepository) upsertChunk(ctx context.Context, users []*domain.User) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	qtx := r.queries.WithTx(tx)
	for _, user := range users {
		params, err := toDBUser(user)
		if err != nil {
			return err
		}
		if err := qtx.UpsertUser(ctx, params); err != nil {
			return fmt.Errorf("failed to upsert user %s: %w", user.ID, err)
		}
	}

	return tx.Commit()
}

// ListSeasonCandidates returns the users a replay of season has to consider.
func (r *UserRepository) ListSeasonCandidates(ctx context.Context, season int, defaultElo float64) ([]*domain.User, error) {
	rows, err := r.queries.ListSeasonCandidates(ctx, defaultElo, int64(season))
	if err != nil {
		return nil, fmt.Errorf("failed to list season candidates: %w", err)
	}

	users := make([]*domain.User, 0, len(rows))
	for _, row := range rows {
		u, err := toDomainUser(row)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, nil
}

func (r *UserRepository) CountRanked(ctx context.Context) (int, error) {
	n, err := r.queries.CountRankedUsers(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count ranked users: %w", err)
	}
	return int(n), nil
}

func toDBUser(u *domain.User) (db.User, error) {
	var (
		row = db.User{
			ID:           u.ID,
			Pilotname:    u.Pilotname,
			Elo:          u.Elo,
			MaxElo:       u.MaxElo,
			Kills:        int64(u.Kills),
			Deaths:       int64(u.Deaths),
			TeamKills:    int64(u.TeamKills),
			IsBanned:     u.IsBanned,
			IsBahaBanned: u.IsBahaBanned,
			CreatedAt:    u.CreatedAt,
			UpdatedAt:    u.UpdatedAt,
		}
		err error
	)
	if u.Rank != nil {
		row.Rank = sql.NullInt64{Int64: int64(*u.Rank), Valid: true}
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = row.CreatedAt
	}

	columns := []struct {
		dst *string
		src any
	}{
		{&row.EloHistory, u.EloHistory},
		{&row.History, u.History},
		{&row.LoginTimes, u.LoginTimes},
		{&row.LogoutTimes, u.LogoutTimes},
		{&row.Sessions, u.Sessions},
		{&row.IgnoreKillsAgainstUsers, u.IgnoreKillsAgainstUsers},
	}
	for _, c := range columns {
		if *c.dst, err = encodeColumn(c.src); err != nil {
			return db.User{}, fmt.Errorf("failed to encode user %s: %w", u.ID, err)
		}
	}
	return row, nil
}

func toDomainUser(row db.User) (*domain.User, error) {
	u := &domain.User{
		ID:           row.ID,
		Pilotname:    row.Pilotname,
		Elo:          row.Elo,
		MaxElo:       row.MaxElo,
		Kills:        int(row.Kills),
		Deaths:       int(row.Deaths),
		TeamKills:    int(row.TeamKills),
		IsBanned:     row.IsBanned,
		IsBahaBanned: row.IsBahaBanned,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
	if row.Rank.Valid {
		rank := int(row.Rank.Int64)
		u.Rank = &rank
	}

	columns := []struct {
		src string
		dst any
	}{
		{row.EloHistory, &u.EloHistory},
		{row.History, &u.History},
		{row.LoginTimes, &u.LoginTimes},
		{row.LogoutTimes, &u.LogoutTimes},
		{row.Sessions, &u.Sessions},
		{row.IgnoreKillsAgainstUsers, &u.IgnoreKillsAgainstUsers},
	}
	for _, c := range columns {
		if c.src == "" {
			continue
		}
		if err := json.Unmarshal([]byte(c.src), c.dst); err != nil {
			return nil, fmt.Errorf("failed to decode user %s: %w", row.ID, err)
		}
	}
	return u, nil
}

// encodeColumn writes nil slices as "[]" so the columns never hold null.
func encodeColumn(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	if string(b) == "null" {
		return "[]", nil
	}
	return string(b), nil
}
