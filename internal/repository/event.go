package repository

import (
	"context"
	"database/sql"
	"fmt"

	"skyrating/internal/db"
	"skyrating/internal/domain"

	"github.com/goccy/go-json"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

// EventRepository is the append-only store for kills, deaths and session actions.
type EventRepository struct {
	queries *db.Queries
	logger  zerolog.Logger
}

func NewEventRepository(queries *db.Queries, logger zerolog.Logger) *EventRepository {
	return &EventRepository{
		queries: queries,
		logger:  logger,
	}
}

func ensureID(id *string) error {
	if *id != "" {
		return nil
	}
	generated, err := gonanoid.New()
	if err != nil {
		return fmt.Errorf("failed to generate nanoid: %w", err)
	}
	*id = generated
	return nil
}

func (r *EventRepository) AddKill(ctx context.Context, kill *domain.Kill) error {
	if err := ensureID(&kill.ID); err != nil {
		return err
	}
	payload, err := json.Marshal(kill)
	if err != nil {
		return fmt.Errorf("failed to encode kill: %w", err)
	}
	err = r.queries.InsertKill(ctx, db.InsertKillParams{
		ID:       kill.ID,
		Season:   int64(kill.Season),
		Time:     kill.Time,
		KillerID: kill.Killer.OwnerID,
		VictimID: kill.Victim.OwnerID,
		Weapon:   string(kill.Weapon),
		Payload:  string(payload),
	})
	if err != nil {
		return fmt.Errorf("failed to insert kill %s: %w", kill.ID, err)
	}
	return nil
}

func (r *EventRepository) AddDeath(ctx context.Context, death *domain.Death) error {
	if err := ensureID(&death.ID); err != nil {
		return err
	}
	payload, err := json.Marshal(death)
	if err != nil {
		return fmt.Errorf("failed to encode death: %w", err)
	}
	var killID sql.NullString
	if death.KillID != nil {
		killID = sql.NullString{String: *death.KillID, Valid: true}
	}
	err = r.queries.InsertDeath(ctx, db.InsertDeathParams{
		ID:       death.ID,
		Season:   int64(death.Season),
		Time:     death.Time,
		VictimID: death.Victim.OwnerID,
		KillID:   killID,
		Payload:  string(payload),
	})
	if err != nil {
		return fmt.Errorf("failed to insert death %s: %w", death.ID, err)
	}
	return nil
}

func (r *EventRepository) AddSessionAction(ctx context.Context, action *domain.SessionAction) error {
	if err := ensureID(&action.ID); err != nil {
		return err
	}
	payload, err := json.Marshal(action)
	if err != nil {
		return fmt.Errorf("failed to encode session action: %w", err)
	}
	err = r.queries.InsertSessionAction(ctx, db.InsertSessionActionParams{
		ID:      action.ID,
		Season:  int64(action.Season),
		Time:    action.Time,
		UserID:  action.UserID,
		Kind:    string(action.Kind),
		Payload: string(payload),
	})
	if err != nil {
		return fmt.Errorf("failed to insert session action %s: %w", action.ID, err)
	}
	return nil
}

// StreamKills hands each stored payload of season to fn in time order without decoding it.
func (r *EventRepository) StreamKills(ctx context.Context, season int, fn func(payload []byte) error) error {
	return r.queries.StreamKills(ctx, int64(season), func(e db.Event) error {
		return fn([]byte(e.Payload))
	})
}

func (r *EventRepository) StreamDeaths(ctx context.Context, season int, fn func(payload []byte) error) error {
	return r.queries.StreamDeaths(ctx, int64(season), func(e db.Event) error {
		return fn([]byte(e.Payload))
	})
}

func (r *EventRepository) StreamSessionActions(ctx context.Context, season int, fn func(payload []byte) error) error {
	return r.queries.StreamSessionActions(ctx, int64(season), func(e db.Event) error {
		return fn([]byte(e.Payload))
	})
}
