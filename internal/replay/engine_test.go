package replay

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"skyrating/internal/config"
	"skyrating/internal/domain"
	"skyrating/internal/dump"
	"skyrating/internal/rating"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

func newEngine() *Engine {
	return NewEngine(rating.NewRules(config.DefaultRating(), rating.DefaultTeamKillBanPolicy()), zerolog.Nop())
}

func user(id string, elo float64) *domain.User {
	return &domain.User{ID: id, Pilotname: id, Elo: elo, MaxElo: elo}
}

func kill(id, killer, victim string, at time.Duration) *domain.Kill {
	return &domain.Kill{
		ID:     id,
		Killer: domain.UserAircraft{OwnerID: killer, Type: domain.AircraftFA26B, Team: domain.TeamAllied},
		Victim: domain.UserAircraft{OwnerID: victim, Type: domain.AircraftFA26B, Team: domain.TeamEnemy},
		Weapon: domain.WeaponAIM120,
		Time:   base.Add(at),
	}
}

func sliceIter[T any](items []*T) func(fn func(*T) error) error {
	return func(fn func(*T) error) error {
		for _, it := range items {
			if err := fn(it); err != nil {
				return err
			}
		}
		return nil
	}
}

func scenario() Input {
	var kills []*domain.Kill
	// out of storage order on purpose; replay must walk by time
	for i := 11; i >= 0; i-- {
		kills = append(kills, kill("k", "a", "b", time.Duration(i)*time.Minute))
	}
	season := &domain.Season{ID: 1, Started: base, Active: true}
	return Input{
		Season: season,
		Users: []*domain.User{
			user("a", 2000),
			user("b", 2000),
			user("idle", 2000),
			user("stale", 2150),
		},
		Kills: sliceIter(kills),
		Deaths: sliceIter([]*domain.Death{
			{Victim: domain.UserAircraft{OwnerID: "b"}, Time: base.Add(30 * time.Minute)},
		}),
		Sessions: sliceIter([]*domain.SessionAction{
			{UserID: "a", Kind: domain.SessionLogin, Time: base.Add(-time.Hour)},
			{UserID: "a", Kind: domain.SessionLogin, Time: base},
			{UserID: "a", Kind: domain.SessionLogout, Time: base.Add(time.Hour)},
		}),
	}
}

func byID(users []*domain.User) map[string]*domain.User {
	m := make(map[string]*domain.User, len(users))
	for _, u := range users {
		m[u.ID] = u
	}
	return m
}

func TestRunRecomputesSeason(t *testing.T) {
	res, err := newEngine().Run(context.Background(), scenario())
	require.NoError(t, err)

	require.Len(t, res.Metrics, 1)
	assert.Equal(t, rating.ReferenceKillStr, res.Metrics[0].KillStr)
	assert.Equal(t, 12, res.Metrics[0].Count)
	assert.InDelta(t, 1.0, res.Metrics[0].Multiplier, 1e-9)

	changed := byID(res.Changed)
	require.Contains(t, changed, "a")
	require.Contains(t, changed, "b")
	require.Contains(t, changed, "stale")
	assert.NotContains(t, changed, "idle")

	a, b := changed["a"], changed["b"]
	assert.Equal(t, 12, a.Kills)
	assert.Equal(t, 13, b.Deaths)
	assert.InDelta(t, 4000, a.Elo+b.Elo, 1e-6)
	assert.Greater(t, a.Elo, 2000.0)
	assert.Equal(t, a.Elo, a.MaxElo)
	assert.Len(t, a.EloHistory, 12)

	// first kill steals the base 10 points
	assert.InDelta(t, 2010, a.EloHistory[0].Elo, 1e-9)

	// the login before the season start is ignored
	assert.Len(t, a.LoginTimes, 1)
	require.Len(t, a.Sessions, 1)
	assert.Equal(t, time.Hour, a.Sessions[0].End.Sub(a.Sessions[0].Start))

	assert.Equal(t, 2000.0, changed["stale"].Elo)

	require.NotNil(t, a.Rank)
	assert.Equal(t, 1, *a.Rank)
	assert.Nil(t, b.Rank)
	assert.Equal(t, 1, res.TotalRanked)
	// twelve kills plus the unmatched death
	assert.Equal(t, 13, res.Stats.Outcomes[rating.OutcomeCounted])
}

func TestRunIsDeterministic(t *testing.T) {
	first, err := newEngine().Run(context.Background(), scenario())
	require.NoError(t, err)
	second, err := newEngine().Run(context.Background(), scenario())
	require.NoError(t, err)

	require.Equal(t, len(first.Changed), len(second.Changed))
	for i := range first.Changed {
		assert.Equal(t, first.Changed[i].ID, second.Changed[i].ID)
		assert.Equal(t, first.Changed[i].Elo, second.Changed[i].Elo)
		assert.Equal(t, first.Changed[i].History, second.Changed[i].History)
	}
	assert.Equal(t, first.Metrics, second.Metrics)
}

func TestRunDoesNotMutateInput(t *testing.T) {
	in := scenario()
	_, err := newEngine().Run(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, 2000.0, in.Users[0].Elo)
	assert.Zero(t, in.Users[0].Kills)
	assert.Equal(t, 2150.0, in.Users[3].Elo)
}

func TestRunSecondPassIsQuiet(t *testing.T) {
	in := scenario()
	first, err := newEngine().Run(context.Background(), in)
	require.NoError(t, err)

	next := scenario()
	updated := byID(first.Changed)
	for i, u := range next.Users {
		if c, ok := updated[u.ID]; ok {
			next.Users[i] = c
		}
	}

	second, err := newEngine().Run(context.Background(), next)
	require.NoError(t, err)
	assert.Empty(t, second.Changed)
}

func TestAssignRanksEligibility(t *testing.T) {
	users := map[string]*domain.User{
		"top":    {ID: "top", Elo: 2300, Kills: 40},
		"tie-b":  {ID: "tie-b", Elo: 2100, Kills: 10},
		"tie-a":  {ID: "tie-a", Elo: 2100, Kills: 10},
		"rookie": {ID: "rookie", Elo: 2500, Kills: 9},
		"banned": {ID: "banned", Elo: 2600, Kills: 50, IsBanned: true},
		"baha":   {ID: "baha", Elo: 2700, Kills: 50, IsBahaBanned: true},
	}
	stale := 1
	users["rookie"].Rank = &stale

	n := assignRanks(users, 10)
	assert.Equal(t, 3, n)

	rank := func(id string) *int { return users[id].Rank }
	require.NotNil(t, rank("top"))
	assert.Equal(t, 1, *rank("top"))
	assert.Equal(t, 2, *rank("tie-a"))
	assert.Equal(t, 3, *rank("tie-b"))
	assert.Nil(t, rank("rookie"))
	assert.Nil(t, rank("banned"))
	assert.Nil(t, rank("baha"))
}

func TestRunStopsOnStreamParseFailure(t *testing.T) {
	dir := t.TempDir()
	paths := dump.SeasonPaths(dir, 1)
	require.NoError(t, os.MkdirAll(paths.Dir, 0o755))
	require.NoError(t, os.WriteFile(paths.Kills, []byte("{\"id\":\"k1\"}\n{broken\n"), 0o644))
	require.NoError(t, os.WriteFile(paths.Deaths, nil, 0o644))
	require.NoError(t, os.WriteFile(paths.Sessions, nil, 0o644))

	in := DumpInput(&domain.Season{ID: 1, Started: base}, []*domain.User{user("a", 2000)}, paths)
	_, err := newEngine().Run(context.Background(), in)
	assert.ErrorIs(t, err, domain.ErrStreamParse)
	assert.Contains(t, err.Error(), filepath.Base(paths.Kills))
}

func TestRunFromDumps(t *testing.T) {
	dir := t.TempDir()
	paths := dump.SeasonPaths(dir, 1)
	require.NoError(t, os.MkdirAll(paths.Dir, 0o755))

	write := func(path string, records ...any) {
		f, err := os.Create(path)
		require.NoError(t, err)
		defer f.Close()
		w := dump.NewWriter(f)
		for _, r := range records {
			require.NoError(t, w.Encode(r))
		}
		require.NoError(t, w.Flush())
	}
	write(paths.Kills, kill("k1", "a", "b", 0), kill("k2", "b", "a", time.Minute))
	write(paths.Deaths)
	write(paths.Sessions)

	in := DumpInput(&domain.Season{ID: 1, Started: base}, []*domain.User{user("a", 2000), user("b", 2000)}, paths)
	res, err := newEngine().Run(context.Background(), in)
	require.NoError(t, err)

	changed := byID(res.Changed)
	require.Len(t, changed, 2)
	assert.Equal(t, 1, changed["a"].Kills)
	assert.Equal(t, 1, changed["b"].Kills)
	assert.Equal(t, 2, res.Stats.Events)
}

func TestBatches(t *testing.T) {
	users := make([]*domain.User, 2500)
	for i := range users {
		users[i] = user("u", 2000)
	}
	batches := Batches(users, 1000)
	require.Len(t, batches, 3)
	assert.Len(t, batches[0], 1000)
	assert.Len(t, batches[2], 500)
	assert.Empty(t, Batches(nil, 1000))
}
