package rating

import (
	"slices"

	"skyrating/internal/domain"
)

var loadouts = map[domain.Aircraft][]domain.Weapon{
	domain.AircraftAV42C: {domain.WeaponGun, domain.WeaponAIM9, domain.WeaponAGM65, domain.WeaponAGM114},
	domain.AircraftFA26B: {
		domain.WeaponGun, domain.WeaponAIM120, domain.WeaponAIM9, domain.WeaponAIM7, domain.WeaponAIM9X,
		domain.WeaponAIM54, domain.WeaponAGM88, domain.WeaponAGM65, domain.WeaponGBU38,
	},
	domain.AircraftF45A: {
		domain.WeaponGun, domain.WeaponAIM120, domain.WeaponAIM9X, domain.WeaponAIRST,
		domain.WeaponAGM88, domain.WeaponGBU38,
	},
	domain.AircraftAH94: {domain.WeaponGun, domain.WeaponAIM9, domain.WeaponAGM114},
	domain.AircraftT55:  {domain.WeaponGun, domain.WeaponAIM9, domain.WeaponAIM9E, domain.WeaponAIM7},
	domain.AircraftEF24G: {
		domain.WeaponGun, domain.WeaponAIM120, domain.WeaponAIM9, domain.WeaponAIM9X, domain.WeaponAIRST,
		domain.WeaponAGM88, domain.WeaponAGM65,
	},
}

// IsSpecialWeapon reports weapons that are not fired at the victim and never enter multiplier statistics.
func IsSpecialWeapon(w domain.Weapon) bool {
	return w == domain.WeaponCFIT || w == domain.WeaponCollision || w == domain.WeaponMALD
}

func CanCarry(a domain.Aircraft, w domain.Weapon) bool {
	return slices.Contains(loadouts[a], w)
}

// IsKillValid checks aircraft, weapon, loadout and (for CFIT) occupant seat sanity.
func IsKillValid(k *domain.Kill) bool {
	if TierForAircraft(k.Killer.Type) == AircraftTierInvalid || TierForAircraft(k.Victim.Type) == AircraftTierInvalid {
		return false
	}
	if k.Weapon == domain.WeaponInvalid || !k.Weapon.Known() {
		return false
	}

	if k.Weapon == domain.WeaponCFIT {
		if len(k.Victim.Occupants) == 0 {
			return false
		}
		return slices.Contains(k.Killer.Occupants, k.Killer.OwnerID)
	}
	if IsSpecialWeapon(k.Weapon) {
		return true
	}
	return CanCarry(k.Killer.Type, k.Weapon)
}

// IsCountable reports whether a kill contributes to multiplier statistics.
func IsCountable(k *domain.Kill) bool {
	return IsKillValid(k) && !IsSpecialWeapon(k.Weapon)
}
