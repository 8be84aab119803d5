package rating

import (
	"math"

	"skyrating/internal/config"
	"skyrating/internal/domain"
)

// AircraftBonus scales the points an airframe earns on a kill and concedes on a death.
type AircraftBonus struct {
	KillMult  float64
	DeathMult float64
}

var aircraftBonuses = map[domain.Aircraft]AircraftBonus{
	domain.AircraftT55:  {KillMult: 1.5, DeathMult: 0.9}, // trainer
	domain.AircraftAH94: {KillMult: 1.2, DeathMult: 1.0}, // helicopter
}

func BonusFor(a domain.Aircraft) AircraftBonus {
	if b, ok := aircraftBonuses[a]; ok {
		return b
	}
	return AircraftBonus{KillMult: 1, DeathMult: 1}
}

func AircraftOffset(killer, victim domain.Aircraft) float64 {
	return BonusFor(killer).KillMult * BonusFor(victim).DeathMult
}

// StealPoints returns the rating moved from victim to killer. Underdog kills gain GainRate per point
// of difference, favourite kills lose LossRate per point, floored at MinPoints before scaling and
// capped at MaxPoints after.
func StealPoints(killerElo, victimElo, aircraftOffset, multiplier float64, p config.Rating) float64 {
	diff := math.Abs(victimElo - killerElo)

	rate := -p.LossRate
	if killerElo < victimElo {
		rate = p.GainRate
	}

	raw := math.Max(p.BasePoints+diff*rate, p.MinPoints)
	return math.Min(raw*multiplier*aircraftOffset, p.MaxPoints)
}
