package domain

import (
	"fmt"
	"strings"
	"time"
)

const maxUserIDLength = 128

// ValidateUserID rejects ids that cannot safely name a history file.
func ValidateUserID(id string) error {
	switch {
	case id == "":
		return fmt.Errorf("%w: empty", ErrInvalidUserID)
	case len(id) > maxUserIDLength:
		return fmt.Errorf("%w: longer than %d bytes", ErrInvalidUserID, maxUserIDLength)
	case strings.ContainsAny(id, "/\\\x00"), strings.Contains(id, ".."):
		return fmt.Errorf("%w: %q", ErrInvalidUserID, id)
	}
	return nil
}

type EloSample struct {
	Time time.Time `json:"time"`
	Elo  float64   `json:"elo"`
}

type SessionWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type User struct {
	ID        string
	Pilotname string
	Elo       float64
	MaxElo    float64
	Kills     int
	Deaths    int
	TeamKills int
	Rank      *int

	EloHistory []EloSample
	History    []string

	IsBanned     bool
	IsBahaBanned bool

	LoginTimes  []time.Time
	LogoutTimes []time.Time
	Sessions    []SessionWindow

	IgnoreKillsAgainstUsers []string

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (u *User) Ignores(userID string) bool {
	for _, id := range u.IgnoreKillsAgainstUsers {
		if id == userID {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so replay snapshots never alias the working state.
func (u *User) Clone() *User {
	c := *u
	if u.Rank != nil {
		r := *u.Rank
		c.Rank = &r
	}
	c.EloHistory = append([]EloSample(nil), u.EloHistory...)
	c.History = append([]string(nil), u.History...)
	c.LoginTimes = append([]time.Time(nil), u.LoginTimes...)
	c.LogoutTimes = append([]time.Time(nil), u.LogoutTimes...)
	c.Sessions = append([]SessionWindow(nil), u.Sessions...)
	c.IgnoreKillsAgainstUsers = append([]string(nil), u.IgnoreKillsAgainstUsers...)
	return &c
}

type Vector struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// UserAircraft is the snapshot of one side of an engagement at event time.
type UserAircraft struct {
	OwnerID   string   `json:"ownerId"`
	Type      Aircraft `json:"type"`
	Team      Team     `json:"team"`
	Position  Vector   `json:"position"`
	Velocity  Vector   `json:"velocity"`
	Occupants []string `json:"occupants"`
}

type Kill struct {
	ID                      string       `json:"id"`
	Killer                  UserAircraft `json:"killer"`
	Victim                  UserAircraft `json:"victim"`
	Weapon                  Weapon       `json:"weapon"`
	WeaponUUID              string       `json:"weaponUuid"`
	PreviousDamagedByUserID string       `json:"previousDamagedByUserId,omitempty"`
	PreviousDamagedByWeapon Weapon       `json:"previousDamagedByWeapon,omitempty"`
	Time                    time.Time    `json:"time"`
	Season                  int          `json:"season"`
}

type Death struct {
	ID     string       `json:"id"`
	Victim UserAircraft `json:"victim"`
	KillID *string      `json:"killId,omitempty"`
	Time   time.Time    `json:"time"`
	Season int          `json:"season"`
}

type SessionKind string

const (
	SessionLogin  SessionKind = "login"
	SessionLogout SessionKind = "logout"
)

type SessionAction struct {
	ID     string      `json:"id"`
	UserID string      `json:"userId"`
	Kind   SessionKind `json:"kind"`
	Time   time.Time   `json:"time"`
	Season int         `json:"season"`
}

type Season struct {
	ID               int
	Name             string
	Started          time.Time
	Ended            *time.Time
	Active           bool
	TotalRankedUsers int
}

// Contains reports whether t falls inside the season window. An open season has no upper bound.
func (s *Season) Contains(t time.Time) bool {
	if t.Before(s.Started) {
		return false
	}
	return s.Ended == nil || !t.After(*s.Ended)
}

type KillMetric struct {
	KillStr    string  `json:"killStr"`
	Count      int     `json:"count"`
	Precision  float64 `json:"precision"`
	Multiplier float64 `json:"multiplier"`
}
