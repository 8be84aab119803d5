package db

import (
	"context"
	"database/sql"
	"time"
)

type InsertKillParams struct {
	ID       string
	Season   int64
	Time     time.Time
	KillerID string
	VictimID string
	Weapon   string
	Payload  string
}

const insertKill = `INSERT INTO kills (id, season, time, killer_id, victim_id, weapon, payload)
VALUES (?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) InsertKill(ctx context.Context, arg InsertKillParams) error {
	_, err := q.db.ExecContext(ctx, insertKill,
		arg.ID, arg.Season, arg.Time, arg.KillerID, arg.VictimID, arg.Weapon, arg.Payload)
	return err
}

type InsertDeathParams struct {
	ID       string
	Season   int64
	Time     time.Time
	VictimID string
	KillID   sql.NullString
	Payload  string
}

const insertDeath = `INSERT INTO deaths (id, season, time, victim_id, kill_id, payload)
VALUES (?, ?, ?, ?, ?, ?)`

func (q *Queries) InsertDeath(ctx context.Context, arg InsertDeathParams) error {
	_, err := q.db.ExecContext(ctx, insertDeath,
		arg.ID, arg.Season, arg.Time, arg.VictimID, arg.KillID, arg.Payload)
	return err
}

type InsertSessionActionParams struct {
	ID      string
	Season  int64
	Time    time.Time
	UserID  string
	Kind    string
	Payload string
}

const insertSessionAction = `INSERT INTO session_actions (id, season, time, user_id, kind, payload)
VALUES (?, ?, ?, ?, ?, ?)`

func (q *Queries) InsertSessionAction(ctx context.Context, arg InsertSessionActionParams) error {
	_, err := q.db.ExecContext(ctx, insertSessionAction,
		arg.ID, arg.Season, arg.Time, arg.UserID, arg.Kind, arg.Payload)
	return err
}

// Insertion order (rowid) breaks timestamp ties so streams are reproducible.
const (
	streamKills          = `SELECT id, season, time, payload FROM kills WHERE season = ? ORDER BY time, rowid`
	streamDeaths         = `SELECT id, season, time, payload FROM deaths WHERE season = ? ORDER BY time, rowid`
	streamSessionActions = `SELECT id, season, time, payload FROM session_actions WHERE season = ? ORDER BY time, rowid`
)

func (q *Queries) StreamKills(ctx context.Context, season int64, fn func(Event) error) error {
	return q.stream(ctx, streamKills, season, fn)
}

func (q *Queries) StreamDeaths(ctx context.Context, season int64, fn func(Event) error) error {
	return q.stream(ctx, streamDeaths, season, fn)
}

func (q *Queries) StreamSessionActions(ctx context.Context, season int64, fn func(Event) error) error {
	return q.stream(ctx, streamSessionActions, season, fn)
}

func (q *Queries) stream(ctx context.Context, query string, season int64, fn func(Event) error) error {
	rows, err := q.db.QueryContext(ctx, query, season)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.Season, &e.Time, &e.Payload); err != nil {
			return err
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	return rows.Err()
}
