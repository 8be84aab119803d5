package rating

import (
	"math"

	"skyrating/internal/domain"
)

const metersPerNauticalMile = 1852.0

// CFITReferenceAircraft is the airframe pairing CFIT multipliers are looked up against.
const CFITReferenceAircraft = domain.AircraftFA26B

var cfitBands = []struct {
	maxNM  float64
	weapon domain.Weapon
}{
	{1, domain.WeaponGun},
	{5, domain.WeaponAIM9},
	{10, domain.WeaponAIM7},
	{20, domain.WeaponAIM120},
}

// HorizontalDistanceNM ignores altitude (Y).
func HorizontalDistanceNM(a, b domain.Vector) float64 {
	dx := a.X - b.X
	dz := a.Z - b.Z
	return math.Sqrt(dx*dx+dz*dz) / metersPerNauticalMile
}

// CFITWeaponEquivalent converts separation at impact into the weapon that would have covered it.
// ok is false when the attacker was too far away for the crash to be credited.
func CFITWeaponEquivalent(killer, victim domain.Vector) (weapon domain.Weapon, ok bool) {
	dist := HorizontalDistanceNM(killer, victim)
	for _, band := range cfitBands {
		if dist < band.maxNM {
			return band.weapon, true
		}
	}
	return domain.WeaponInvalid, false
}

func CFITKillString(equivalent domain.Weapon) string {
	return FormatKillString(CFITReferenceAircraft, equivalent, CFITReferenceAircraft)
}
