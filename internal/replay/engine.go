package replay

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"skyrating/internal/domain"
	"skyrating/internal/rating"

	"github.com/rs/zerolog"
)

// Input is everything one season recompute reads. The iterators are consumed once.
type Input struct {
	Season   *domain.Season
	Users    []*domain.User
	Kills    func(fn func(*domain.Kill) error) error
	Deaths   func(fn func(*domain.Death) error) error
	Sessions func(fn func(*domain.SessionAction) error) error
}

type Stats struct {
	Events   int
	Outcomes map[rating.Outcome]int
	Skipped  int
	Duration time.Duration
}

type Result struct {
	Metrics     []domain.KillMetric
	Changed     []*domain.User
	TotalRanked int
	Stats       Stats
}

type Engine struct {
	rules  *rating.Rules
	logger zerolog.Logger
}

func NewEngine(rules *rating.Rules, logger zerolog.Logger) *Engine {
	return &Engine{rules: rules, logger: logger}
}

// Run recomputes the season from scratch: fresh multipliers from every countable
// kill, then every event re-applied in time order to users reset to defaults.
// Only users whose visible state differs from the input are returned.
func (e *Engine) Run(ctx context.Context, in Input) (*Result, error) {
	start := time.Now()
	params := e.rules.Params()

	snapshot := make(map[string]*domain.User, len(in.Users))
	working := make(map[string]*domain.User, len(in.Users))
	for _, u := range in.Users {
		snapshot[u.ID] = u.Clone()
		w := u.Clone()
		e.rules.ResetForSeason(w)
		working[u.ID] = w
	}

	events, tally, err := e.collect(in)
	if err != nil {
		return nil, err
	}

	metrics := tally.Metrics(params.MultiplierCap)
	table := rating.NewMultiplierTable(metrics)
	e.logger.Info().
		Int("countable_kills", tally.Total()).
		Int("kill_strings", len(metrics)).
		Int("events", len(events)).
		Msg("multipliers recalculated")

	stats := Stats{Events: len(events), Outcomes: make(map[rating.Outcome]int)}
	for i := range events {
		if i%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("replay cancelled: %w", err)
			}
		}
		e.apply(&events[i], working, table, &stats)
	}

	ranked := assignRanks(working, params.RankKillThreshold)
	changed := diff(snapshot, working)

	stats.Duration = time.Since(start)
	e.logger.Info().
		Int("users", len(working)).
		Int("changed", len(changed)).
		Int("ranked", ranked).
		Int("skipped", stats.Skipped).
		Dur("duration", stats.Duration).
		Msg("replay finished")

	return &Result{
		Metrics:     metrics,
		Changed:     changed,
		TotalRanked: ranked,
		Stats:       stats,
	}, nil
}

// collect drains the three iterators into one stable, time-ordered stream.
// Ties keep kills before deaths before actions, then storage order.
func (e *Engine) collect(in Input) ([]domain.Event, *rating.Tally, error) {
	var events []domain.Event
	tally := rating.NewTally()

	if in.Kills != nil {
		err := in.Kills(func(k *domain.Kill) error {
			tally.AddKill(k)
			events = append(events, domain.Event{Kind: domain.EventKill, Time: k.Time, Seq: len(events), Kill: k})
			return nil
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to stream kills: %w", err)
		}
	}
	if in.Deaths != nil {
		err := in.Deaths(func(d *domain.Death) error {
			events = append(events, domain.Event{Kind: domain.EventDeath, Time: d.Time, Seq: len(events), Death: d})
			return nil
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to stream deaths: %w", err)
		}
	}
	if in.Sessions != nil {
		err := in.Sessions(func(a *domain.SessionAction) error {
			if in.Season != nil && !in.Season.Contains(a.Time) {
				return nil
			}
			events = append(events, domain.Event{Kind: domain.EventAction, Time: a.Time, Seq: len(events), Action: a})
			return nil
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to stream session actions: %w", err)
		}
	}

	sort.SliceStable(events, func(i, j int) bool {
		if !events[i].Time.Equal(events[j].Time) {
			return events[i].Time.Before(events[j].Time)
		}
		return events[i].Seq < events[j].Seq
	})
	return events, tally, nil
}

func (e *Engine) apply(ev *domain.Event, users map[string]*domain.User, table *rating.MultiplierTable, stats *Stats) {
	switch ev.Kind {
	case domain.EventKill:
		killer, ok1 := users[ev.Kill.Killer.OwnerID]
		victim, ok2 := users[ev.Kill.Victim.OwnerID]
		if !ok1 || !ok2 {
			stats.Skipped++
			e.logger.Debug().Str("kill", ev.Kill.ID).Msg("kill references unknown user")
			return
		}
		res := e.rules.ApplyKill(ev.Kill, killer, victim, table)
		stats.Outcomes[res.Outcome]++

	case domain.EventDeath:
		victim, ok := users[ev.Death.Victim.OwnerID]
		if !ok {
			stats.Skipped++
			return
		}
		stats.Outcomes[e.rules.ApplyDeath(ev.Death, victim)]++

	case domain.EventAction:
		u, ok := users[ev.Action.UserID]
		if !ok {
			stats.Skipped++
			return
		}
		e.rules.ApplySession(ev.Action, u)
	}
}

// assignRanks orders eligible users by elo (ties by id) and clears everyone else's rank.
func assignRanks(users map[string]*domain.User, threshold int) int {
	eligible := make([]*domain.User, 0, len(users))
	for _, u := range users {
		u.Rank = nil
		if Eligible(u, threshold) {
			eligible = append(eligible, u)
		}
	}

	sort.Slice(eligible, func(i, j int) bool {
		if eligible[i].Elo != eligible[j].Elo {
			return eligible[i].Elo > eligible[j].Elo
		}
		return eligible[i].ID < eligible[j].ID
	})

	for i, u := range eligible {
		rank := i + 1
		u.Rank = &rank
	}
	return len(eligible)
}

func Eligible(u *domain.User, threshold int) bool {
	return !u.IsBanned && !u.IsBahaBanned && u.Kills >= threshold
}

func diff(before, after map[string]*domain.User) []*domain.User {
	var changed []*domain.User
	for id, u := range after {
		if visiblyChanged(before[id], u) {
			changed = append(changed, u)
		}
	}
	sort.Slice(changed, func(i, j int) bool { return changed[i].ID < changed[j].ID })
	return changed
}

func visiblyChanged(a, b *domain.User) bool {
	if a == nil {
		return true
	}
	return math.Round(a.Elo) != math.Round(b.Elo) ||
		!sameRank(a.Rank, b.Rank) ||
		a.Kills != b.Kills ||
		a.Deaths != b.Deaths ||
		a.IsBanned != b.IsBanned
}

func sameRank(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// Batches splits users into consecutive slices of at most size elements.
func Batches(users []*domain.User, size int) [][]*domain.User {
	if size <= 0 {
		size = len(users)
	}
	var out [][]*domain.User
	for i := 0; i < len(users); i += size {
		end := i + size
		if end > len(users) {
			end = len(users)
		}
		out = append(out, users[i:end])
	}
	return out
}
