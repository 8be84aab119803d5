package rating

import (
	"fmt"
	"math"
	"time"

	"skyrating/internal/config"
	"skyrating/internal/domain"
)

type Outcome int

const (
	OutcomeCounted Outcome = iota
	OutcomeTeamKill
	OutcomeCollision
	OutcomeSelfExcluded
	OutcomeDropped
	OutcomeSuicide
	OutcomeDecoy
	OutcomeInvalid
	OutcomeDuplicate
	OutcomeIgnored
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCounted:
		return "counted"
	case OutcomeTeamKill:
		return "team_kill"
	case OutcomeCollision:
		return "collision"
	case OutcomeSelfExcluded:
		return "self_excluded"
	case OutcomeDropped:
		return "dropped"
	case OutcomeSuicide:
		return "suicide"
	case OutcomeDecoy:
		return "decoy"
	case OutcomeInvalid:
		return "invalid"
	case OutcomeDuplicate:
		return "duplicate"
	default:
		return "ignored"
	}
}

// Reason is the error behind an outcome that refused to rate the kill, nil otherwise.
func (o Outcome) Reason() error {
	switch o {
	case OutcomeInvalid:
		return domain.ErrInvalidKill
	case OutcomeDropped:
		return domain.ErrDroppedCFIT
	default:
		return nil
	}
}

type KillResult struct {
	Outcome    Outcome
	KillerElo  float64
	VictimElo  float64
	EloSteal   float64
	KillStr    string
	Multiplier float64
	Banned     bool
}

// Rules is the per-event state machine shared by the live updater and the replay engine.
// It only mutates the users it is given; persistence is the caller's concern.
type Rules struct {
	params config.Rating
	ban    BanHook
}

func NewRules(params config.Rating, ban BanHook) *Rules {
	return &Rules{params: params, ban: ban}
}

func (r *Rules) Params() config.Rating {
	return r.params
}

// ApplyKill applies one kill. killer and victim must be the same pointer when the ids match.
func (r *Rules) ApplyKill(k *domain.Kill, killer, victim *domain.User, table *MultiplierTable) (res KillResult) {
	res.Outcome = OutcomeIgnored
	defer func() {
		res.KillerElo = killer.Elo
		res.VictimElo = victim.Elo
	}()

	switch {
	case killer.ID == victim.ID:
		victim.Deaths++
		r.log(victim, k.Time, "Crashed into own weapon effects (%s), no rating change", k.Weapon)
		pushSample(victim, k.Time)
		res.Outcome = OutcomeSuicide

	case k.Weapon == domain.WeaponCollision:
		res.Outcome = OutcomeCollision
		// Both parties report the collision; only the ordered copy is recorded.
		if killer.ID < victim.ID {
			line := fmt.Sprintf("Collision between %s (%s) and %s (%s), no rating change",
				name(killer), k.Killer.Type, name(victim), k.Victim.Type)
			r.log(killer, k.Time, "%s", line)
			r.log(victim, k.Time, "%s", line)
		}

	case k.Killer.Team == k.Victim.Team:
		res.Outcome = OutcomeTeamKill
		r.applyTeamKill(k, killer, victim, &res)

	case !IsKillValid(k):
		res.Outcome = OutcomeInvalid

	case k.Weapon == domain.WeaponMALD:
		res.Outcome = OutcomeDecoy

	case killer.Ignores(victim.ID):
		res.Outcome = OutcomeSelfExcluded
		r.log(killer, k.Time, "Killed %s with %s, excluded from rating", name(victim), k.Weapon)
		r.log(victim, k.Time, "Killed by %s with %s, excluded from rating", name(killer), k.Weapon)

	default:
		r.applyCounted(k, killer, victim, table, &res)
	}

	return res
}

func (r *Rules) applyTeamKill(k *domain.Kill, killer, victim *domain.User, res *KillResult) {
	before := killer.Elo
	penalty := killer.Elo * r.params.TeamKillPenalty
	killer.Elo = floorElo(killer.Elo - penalty)
	killer.TeamKills++

	r.log(killer, k.Time, "Team killed %s with %s, elo %.1f -> %.1f (-%.2f)",
		name(victim), k.Weapon, before, killer.Elo, penalty)
	pushSample(killer, k.Time)

	if r.ban != nil && !killer.IsBanned && r.ban.ShouldBan(killer) {
		killer.IsBanned = true
		res.Banned = true
		r.log(killer, k.Time, "Banned for team killing (%d team kills, %d kills)", killer.TeamKills, killer.Kills)
	}
}

func (r *Rules) applyCounted(k *domain.Kill, killer, victim *domain.User, table *MultiplierTable, res *KillResult) {
	weapon := k.Weapon
	killStr := KillString(k)
	if weapon == domain.WeaponCFIT {
		equivalent, ok := CFITWeaponEquivalent(k.Killer.Position, k.Victim.Position)
		if !ok {
			victim.Deaths++
			r.log(victim, k.Time, "Crashed (CFIT) %.1fnm from %s, no kill credited",
				HorizontalDistanceNM(k.Killer.Position, k.Victim.Position), name(killer))
			pushSample(victim, k.Time)
			res.Outcome = OutcomeDropped
			return
		}
		killStr = CFITKillString(equivalent)
		weapon = equivalent
	}

	mult := table.Lookup(killStr)
	offset := AircraftOffset(k.Killer.Type, k.Victim.Type)
	steal := StealPoints(killer.Elo, victim.Elo, offset, mult, r.params)

	killerBefore, victimBefore := killer.Elo, victim.Elo
	killer.Elo += steal
	victim.Elo = floorElo(victim.Elo - steal)
	if killer.Elo > killer.MaxElo {
		killer.MaxElo = killer.Elo
	}
	killer.Kills++
	victim.Deaths++

	via := string(k.Weapon)
	if k.Weapon == domain.WeaponCFIT {
		via = fmt.Sprintf("CFIT (as %s)", weapon)
	}
	r.log(killer, k.Time, "Killed %s (%.0f) with %s [%s vs %s] x%.2f, elo %.1f -> %.1f (+%.2f)",
		name(victim), victimBefore, via, k.Killer.Type, k.Victim.Type, mult, killerBefore, killer.Elo, steal)
	r.log(victim, k.Time, "Killed by %s (%.0f) with %s [%s vs %s] x%.2f, elo %.1f -> %.1f (-%.2f)",
		name(killer), killerBefore, via, k.Killer.Type, k.Victim.Type, mult, victimBefore, victim.Elo, steal)
	pushSample(killer, k.Time)
	pushSample(victim, k.Time)

	res.Outcome = OutcomeCounted
	res.EloSteal = steal
	res.KillStr = killStr
	res.Multiplier = mult
}

// ApplyDeath counts a death that has no matching kill. Deaths carrying a kill id were already
// accounted for by that kill.
func (r *Rules) ApplyDeath(d *domain.Death, victim *domain.User) Outcome {
	if d.KillID != nil && *d.KillID != "" {
		return OutcomeDuplicate
	}
	victim.Deaths++
	r.log(victim, d.Time, "Died in %s, no kill credited", d.Victim.Type)
	pushSample(victim, d.Time)
	return OutcomeCounted
}

// ApplySession records a login or logout and closes the open session window on logout.
func (r *Rules) ApplySession(a *domain.SessionAction, u *domain.User) {
	switch a.Kind {
	case domain.SessionLogin:
		u.LoginTimes = append(u.LoginTimes, a.Time)
	case domain.SessionLogout:
		u.LogoutTimes = append(u.LogoutTimes, a.Time)
		if open, ok := openLogin(u); ok && !a.Time.Before(open) {
			u.Sessions = append(u.Sessions, domain.SessionWindow{Start: open, End: a.Time})
		}
	}
}

// ResetForSeason restores the season defaults of everything replay recomputes.
func (r *Rules) ResetForSeason(u *domain.User) {
	u.Elo = r.params.DefaultElo
	u.MaxElo = r.params.DefaultElo
	u.Kills = 0
	u.Deaths = 0
	u.TeamKills = 0
	u.Rank = nil
	u.History = nil
	u.EloHistory = nil
	u.LoginTimes = nil
	u.LogoutTimes = nil
	u.Sessions = nil
}

func (r *Rules) log(u *domain.User, t time.Time, format string, args ...any) {
	u.History = append(u.History, fmt.Sprintf("[%s] ", t.UTC().Format(time.RFC3339))+fmt.Sprintf(format, args...))
}

func openLogin(u *domain.User) (time.Time, bool) {
	if len(u.LoginTimes) == 0 {
		return time.Time{}, false
	}
	last := u.LoginTimes[len(u.LoginTimes)-1]
	if n := len(u.Sessions); n > 0 && u.Sessions[n-1].Start.Equal(last) {
		return time.Time{}, false
	}
	return last, true
}

func pushSample(u *domain.User, t time.Time) {
	u.EloHistory = append(u.EloHistory, domain.EloSample{Time: t, Elo: u.Elo})
}

func floorElo(elo float64) float64 {
	return math.Max(elo, 1)
}

func name(u *domain.User) string {
	if u.Pilotname != "" {
		return u.Pilotname
	}
	return u.ID
}
