package rating

import "skyrating/internal/domain"

// BanHook is evaluated after every team kill.
type BanHook interface {
	ShouldBan(u *domain.User) bool
}

// TeamKillBanPolicy bans on an absolute team-kill count while a pilot has few kills,
// and on the team-kill to kill ratio afterwards.
type TeamKillBanPolicy struct {
	MinKills      int
	AbsoluteLimit int
	MaxRatio      float64
}

func DefaultTeamKillBanPolicy() TeamKillBanPolicy {
	return TeamKillBanPolicy{MinKills: 25, AbsoluteLimit: 5, MaxRatio: 0.2}
}

func (p TeamKillBanPolicy) ShouldBan(u *domain.User) bool {
	if u.Kills < p.MinKills {
		return u.TeamKills >= p.AbsoluteLimit
	}
	return float64(u.TeamKills)/float64(u.Kills) > p.MaxRatio
}
