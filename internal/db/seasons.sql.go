package db

import (
	"context"
	"time"
)

const seasonColumns = `id, name, started, ended, active, total_ranked_users`

const getActiveSeason = `SELECT ` + seasonColumns + ` FROM seasons WHERE active = 1 ORDER BY id DESC LIMIT 1`

func (q *Queries) GetActiveSeason(ctx context.Context) (Season, error) {
	var s Season
	err := q.db.QueryRowContext(ctx, getActiveSeason).Scan(&s.ID, &s.Name, &s.Started, &s.Ended, &s.Active, &s.TotalRankedUsers)
	return s, err
}

const getSeason = `SELECT ` + seasonColumns + ` FROM seasons WHERE id = ?`

func (q *Queries) GetSeason(ctx context.Context, id int64) (Season, error) {
	var s Season
	err := q.db.QueryRowContext(ctx, getSeason, id).Scan(&s.ID, &s.Name, &s.Started, &s.Ended, &s.Active, &s.TotalRankedUsers)
	return s, err
}

const deactivateSeasons = `UPDATE seasons SET active = 0, ended = COALESCE(ended, ?) WHERE active = 1`

func (q *Queries) DeactivateSeasons(ctx context.Context, endedAt time.Time) error {
	_, err := q.db.ExecContext(ctx, deactivateSeasons, endedAt)
	return err
}

const insertSeason = `INSERT INTO seasons (name, started, active, total_ranked_users) VALUES (?, ?, 1, 0)`

func (q *Queries) InsertSeason(ctx context.Context, name string, started time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx, insertSeason, name, started)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

const updateSeasonTotalRanked = `UPDATE seasons SET total_ranked_users = ? WHERE id = ?`

func (q *Queries) UpdateSeasonTotalRanked(ctx context.Context, id, total int64) error {
	_, err := q.db.ExecContext(ctx, updateSeasonTotalRanked, total, id)
	return err
}
