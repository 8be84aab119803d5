package server

import (
	"fmt"
	"time"

	"skyrating/internal/domain"

	"github.com/goccy/go-json"
)

type EventType string

const (
	EventTypeKill    EventType = "kill"
	EventTypeDeath   EventType = "death"
	EventTypeSession EventType = "session"
)

// Envelope is the ingestion payload: a type tag plus exactly the matching body.
type Envelope struct {
	Type    EventType             `json:"type"`
	Kill    *domain.Kill          `json:"kill,omitempty"`
	Death   *domain.Death         `json:"death,omitempty"`
	Session *domain.SessionAction `json:"session,omitempty"`
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrInvalidEvent, fmt.Sprintf(format, args...))
}

// DecodeEnvelope parses and validates body. Missing event times default to now.
func DecodeEnvelope(body []byte, now time.Time) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, invalid("malformed json: %v", err)
	}

	set := 0
	for _, present := range []bool{env.Kill != nil, env.Death != nil, env.Session != nil} {
		if present {
			set++
		}
	}
	if set != 1 {
		return nil, invalid("expected exactly one event body, got %d", set)
	}

	switch env.Type {
	case EventTypeKill:
		if env.Kill == nil {
			return nil, invalid("type kill without kill body")
		}
		return &env, validateKill(env.Kill, now)
	case EventTypeDeath:
		if env.Death == nil {
			return nil, invalid("type death without death body")
		}
		return &env, validateDeath(env.Death, now)
	case EventTypeSession:
		if env.Session == nil {
			return nil, invalid("type session without session body")
		}
		return &env, validateSession(env.Session, now)
	default:
		return nil, invalid("unknown event type %q", env.Type)
	}
}

func validateAircraft(side string, a *domain.UserAircraft) error {
	if err := domain.ValidateUserID(a.OwnerID); err != nil {
		return invalid("%s owner: %v", side, err)
	}
	if !a.Type.Known() {
		return invalid("%s aircraft %q is unknown", side, a.Type)
	}
	switch a.Team {
	case domain.TeamAllied, domain.TeamEnemy, domain.TeamUnknown:
	default:
		return invalid("%s team %q is unknown", side, a.Team)
	}
	return nil
}

func validateKill(k *domain.Kill, now time.Time) error {
	if err := validateAircraft("killer", &k.Killer); err != nil {
		return err
	}
	if err := validateAircraft("victim", &k.Victim); err != nil {
		return err
	}
	if !k.Weapon.Known() {
		return invalid("weapon %q is unknown", k.Weapon)
	}
	if k.Time.IsZero() {
		k.Time = now
	}
	return nil
}

func validateDeath(d *domain.Death, now time.Time) error {
	if err := validateAircraft("victim", &d.Victim); err != nil {
		return err
	}
	if d.Time.IsZero() {
		d.Time = now
	}
	return nil
}

func validateSession(a *domain.SessionAction, now time.Time) error {
	if err := domain.ValidateUserID(a.UserID); err != nil {
		return invalid("session user: %v", err)
	}
	if a.Kind != domain.SessionLogin && a.Kind != domain.SessionLogout {
		return invalid("session kind %q is unknown", a.Kind)
	}
	if a.Time.IsZero() {
		a.Time = now
	}
	return nil
}
