package db

import (
	"database/sql"
	"time"
)

// JSON columns hold encoded slices; the repository layer owns their shape.
type User struct {
	ID                      string
	Pilotname               string
	Elo                     float64
	MaxElo                  float64
	Kills                   int64
	Deaths                  int64
	TeamKills               int64
	Rank                    sql.NullInt64
	EloHistory              string
	History                 string
	IsBanned                bool
	IsBahaBanned            bool
	LoginTimes              string
	LogoutTimes             string
	Sessions                string
	IgnoreKillsAgainstUsers string
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

type Event struct {
	ID      string
	Season  int64
	Time    time.Time
	Payload string
}

type Season struct {
	ID               int64
	Name             string
	Started          time.Time
	Ended            sql.NullTime
	Active           bool
	TotalRankedUsers int64
}
