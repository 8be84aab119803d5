package ipc

import (
	"skyrating/internal/domain"
)

type Type string

const (
	TypeStart Type = "start"
	TypeMults Type = "mults"
	TypeUsers Type = "users"
	TypeDone  Type = "done"
	TypeError Type = "error"
)

// Message is one NDJSON record on the replay pipes. Which fields are set depends on Type.
type Message struct {
	Type        Type                `json:"type"`
	Season      int                 `json:"season,omitempty"`
	Metrics     []domain.KillMetric `json:"metrics,omitempty"`
	Users       []*domain.User      `json:"users,omitempty"`
	TotalRanked int                 `json:"totalRanked,omitempty"`
	Error       string              `json:"error,omitempty"`
}

func Start(season int) Message {
	return Message{Type: TypeStart, Season: season}
}

func Mults(metrics []domain.KillMetric) Message {
	return Message{Type: TypeMults, Metrics: metrics}
}

func Users(users []*domain.User) Message {
	return Message{Type: TypeUsers, Users: users}
}

func Done(totalRanked int) Message {
	return Message{Type: TypeDone, TotalRanked: totalRanked}
}

func Error(err error) Message {
	return Message{Type: TypeError, Error: err.Error()}
}
