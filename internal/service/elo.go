package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"skyrating/internal/constants"
	"skyrating/internal/domain"
	"skyrating/internal/rating"

	"github.com/rs/zerolog"
)

type UserStore interface {
	Get(ctx context.Context, id string) (*domain.User, error)
	Upsert(ctx context.Context, user *domain.User) error
	BulkUpdate(ctx context.Context, users []*domain.User) error
}

type EventStore interface {
	AddKill(ctx context.Context, kill *domain.Kill) error
	AddDeath(ctx context.Context, death *domain.Death) error
	AddSessionAction(ctx context.Context, action *domain.SessionAction) error
}

type SeasonProvider interface {
	GetActive(ctx context.Context) (*domain.Season, error)
}

// EloService is the live updater. Every event is appended to the event store
// before it touches any user.
type EloService struct {
	users   UserStore
	events  EventStore
	seasons SeasonProvider
	rules   *rating.Rules
	table   *rating.TableHolder
	locks   userLocks
	logger  zerolog.Logger
}

func NewEloService(users UserStore, events EventStore, seasons SeasonProvider, rules *rating.Rules, table *rating.TableHolder, logger zerolog.Logger) *EloService {
	return &EloService{
		users:   users,
		events:  events,
		seasons: seasons,
		rules:   rules,
		table:   table,
		logger:  logger,
	}
}

// RegisterUser creates the user at the default rating. An existing user only
// has the pilot name refreshed.
func (s *EloService) RegisterUser(ctx context.Context, id, pilotname string) (*domain.User, error) {
	if err := domain.ValidateUserID(id); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	unlock := s.locks.lock(id)
	defer unlock()

	user, err := s.users.Get(ctx, id)
	switch {
	case err == nil:
		if pilotname == "" || user.Pilotname == pilotname {
			return user, nil
		}
		user.Pilotname = pilotname
	case isMissing(err):
		now := time.Now().UTC()
		elo := s.rules.Params().DefaultElo
		user = &domain.User{ID: id, Pilotname: pilotname, Elo: elo, MaxElo: elo, CreatedAt: now}
		s.logger.Info().Str("user", id).Str("pilotname", pilotname).Msg("registering user")
	default:
		return nil, err
	}

	user.UpdatedAt = time.Now().UTC()
	if err := s.users.Upsert(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to save user: %w", err)
	}
	return user, nil
}

func (s *EloService) GetUser(ctx context.Context, id string) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()
	return s.users.Get(ctx, id)
}

// UpdateForKill records the kill and applies it to both users. A kill naming an
// unknown user is stored but changes nothing and returns ErrMissingUser.
func (s *EloService) UpdateForKill(ctx context.Context, kill *domain.Kill) (rating.KillResult, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	ignored := rating.KillResult{Outcome: rating.OutcomeIgnored}
	if err := s.stampSeason(ctx, &kill.Season); err != nil {
		return ignored, err
	}
	if err := s.events.AddKill(ctx, kill); err != nil {
		s.logger.Error().Err(err).Str("kill", kill.ID).Msg("failed to store kill")
		return ignored, err
	}

	killerID, victimID := kill.Killer.OwnerID, kill.Victim.OwnerID
	unlock := s.locks.lock(killerID, victimID)
	defer unlock()

	killer, err := s.users.Get(ctx, killerID)
	if err != nil {
		return ignored, s.missing(err, "kill", kill.ID)
	}
	victim := killer
	if victimID != killerID {
		if victim, err = s.users.Get(ctx, victimID); err != nil {
			return ignored, s.missing(err, "kill", kill.ID)
		}
	}

	res := s.rules.ApplyKill(kill, killer, victim, s.table.Load())

	if mutates(res, kill) {
		now := time.Now().UTC()
		killer.UpdatedAt, victim.UpdatedAt = now, now
		pair := []*domain.User{killer}
		if victim != killer {
			pair = append(pair, victim)
		}
		// one transaction, so a transfer is never half stored
		if err := s.users.BulkUpdate(ctx, pair); err != nil {
			return res, fmt.Errorf("failed to save kill participants: %w", err)
		}
	}

	s.logger.Info().
		Str("kill", kill.ID).
		Str("killer", killerID).
		Str("victim", victimID).
		Str("weapon", string(kill.Weapon)).
		Str("outcome", res.Outcome.String()).
		AnErr("reason", res.Outcome.Reason()).
		Float64("steal", res.EloSteal).
		Float64("multiplier", res.Multiplier).
		Bool("banned", res.Banned).
		Msg("kill applied")

	return res, nil
}

// UpdateForDeath records the death. Deaths referencing a kill are stored only.
func (s *EloService) UpdateForDeath(ctx context.Context, death *domain.Death) (rating.Outcome, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	if err := s.stampSeason(ctx, &death.Season); err != nil {
		return rating.OutcomeIgnored, err
	}
	if err := s.events.AddDeath(ctx, death); err != nil {
		return rating.OutcomeIgnored, err
	}
	if death.KillID != nil && *death.KillID != "" {
		return rating.OutcomeDuplicate, nil
	}

	victimID := death.Victim.OwnerID
	unlock := s.locks.lock(victimID)
	defer unlock()

	victim, err := s.users.Get(ctx, victimID)
	if err != nil {
		return rating.OutcomeIgnored, s.missing(err, "death", death.ID)
	}

	outcome := s.rules.ApplyDeath(death, victim)
	victim.UpdatedAt = time.Now().UTC()
	if err := s.users.Upsert(ctx, victim); err != nil {
		return outcome, fmt.Errorf("failed to save victim: %w", err)
	}
	return outcome, nil
}

func (s *EloService) RecordSession(ctx context.Context, action *domain.SessionAction) error {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	if err := s.stampSeason(ctx, &action.Season); err != nil {
		return err
	}
	if err := s.events.AddSessionAction(ctx, action); err != nil {
		return err
	}

	unlock := s.locks.lock(action.UserID)
	defer unlock()

	user, err := s.users.Get(ctx, action.UserID)
	if err != nil {
		return s.missing(err, "session", action.ID)
	}

	s.rules.ApplySession(action, user)
	user.UpdatedAt = time.Now().UTC()
	if err := s.users.Upsert(ctx, user); err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}

// SetMultipliers swaps the table used by subsequent kills.
func (s *EloService) SetMultipliers(metrics []domain.KillMetric) {
	s.table.Store(rating.NewMultiplierTable(metrics))
	s.logger.Info().Int("kill_strings", len(metrics)).Msg("live multipliers updated")
}

func (s *EloService) Multipliers() []domain.KillMetric {
	return s.table.Load().Metrics()
}

func (s *EloService) stampSeason(ctx context.Context, season *int) error {
	if *season != 0 {
		return nil
	}
	active, err := s.seasons.GetActive(ctx)
	if err != nil {
		return err
	}
	*season = active.ID
	return nil
}

func (s *EloService) missing(err error, kind, id string) error {
	if isMissing(err) {
		s.logger.Error().Err(err).Str(kind, id).Msgf("%s references unknown user, ignored", kind)
	}
	return err
}

func isMissing(err error) bool {
	return errors.Is(err, domain.ErrMissingUser)
}

// mutates reports whether ApplyKill changed either user document.
func mutates(res rating.KillResult, k *domain.Kill) bool {
	switch res.Outcome {
	case rating.OutcomeInvalid, rating.OutcomeDecoy, rating.OutcomeIgnored:
		return false
	case rating.OutcomeCollision:
		return k.Killer.OwnerID < k.Victim.OwnerID
	default:
		return true
	}
}
