package db

import (
	"context"
)

const userColumns = `id, pilotname, elo, max_elo, kills, deaths, team_kills, rank, elo_history, history,
	is_banned, is_baha_banned, login_times, logout_times, sessions, ignore_kills_against_users, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (User, error) {
	var u User
	err := row.Scan(
		&u.ID,
		&u.Pilotname,
		&u.Elo,
		&u.MaxElo,
		&u.Kills,
		&u.Deaths,
		&u.TeamKills,
		&u.Rank,
		&u.EloHistory,
		&u.History,
		&u.IsBanned,
		&u.IsBahaBanned,
		&u.LoginTimes,
		&u.LogoutTimes,
		&u.Sessions,
		&u.IgnoreKillsAgainstUsers,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	return u, err
}

const getUser = `SELECT ` + userColumns + ` FROM users WHERE id = ?`

func (q *Queries) GetUser(ctx context.Context, id string) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUser, id))
}

const upsertUser = `INSERT INTO users (` + userColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
	pilotname = excluded.pilotname,
	elo = excluded.elo,
	max_elo = excluded.max_elo,
	kills = excluded.kills,
	deaths = excluded.deaths,
	team_kills = excluded.team_kills,
	rank = excluded.rank,
	elo_history = excluded.elo_history,
	history = excluded.history,
	is_banned = excluded.is_banned,
	is_baha_banned = excluded.is_baha_banned,
	login_times = excluded.login_times,
	logout_times = excluded.logout_times,
	sessions = excluded.sessions,
	ignore_kills_against_users = excluded.ignore_kills_against_users,
	updated_at = excluded.updated_at`

func (q *Queries) UpsertUser(ctx context.Context, u User) error {
	_, err := q.db.ExecContext(ctx, upsertUser,
		u.ID,
		u.Pilotname,
		u.Elo,
		u.MaxElo,
		u.Kills,
		u.Deaths,
		u.TeamKills,
		u.Rank,
		u.EloHistory,
		u.History,
		u.IsBanned,
		u.IsBahaBanned,
		u.LoginTimes,
		u.LogoutTimes,
		u.Sessions,
		u.IgnoreKillsAgainstUsers,
		u.CreatedAt,
		u.UpdatedAt,
	)
	return err
}

// Users touched in a season: non-default rating, any death, or referenced by a season event.
const listSeasonCandidates = `SELECT ` + userColumns + ` FROM users
WHERE deaths != 0
	OR elo != ?1
	OR id IN (SELECT killer_id FROM kills WHERE season = ?2)
	OR id IN (SELECT victim_id FROM kills WHERE season = ?2)
	OR id IN (SELECT victim_id FROM deaths WHERE season = ?2)
	OR id IN (SELECT user_id FROM session_actions WHERE season = ?2)
ORDER BY id`

func (q *Queries) ListSeasonCandidates(ctx context.Context, defaultElo float64, season int64) ([]User, error) {
	rows, err := q.db.QueryContext(ctx, listSeasonCandidates, defaultElo, season)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, u)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const countRankedUsers = `SELECT COUNT(*) FROM users WHERE rank IS NOT NULL`

func (q *Queries) CountRankedUsers(ctx context.Context) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countRankedUsers).Scan(&count)
	return count, err
}
