package rating

import (
	"fmt"

	"skyrating/internal/domain"
)

type AircraftTier int

const (
	AircraftTierInvalid AircraftTier = iota
	AircraftTierFourthGen
	AircraftTierFifthGen
)

func (t AircraftTier) String() string {
	switch t {
	case AircraftTierFourthGen:
		return "FourthGen"
	case AircraftTierFifthGen:
		return "FifthGen"
	default:
		return "Invalid"
	}
}

type WeaponTier int

const (
	WeaponTierInvalid WeaponTier = iota
	WeaponTierGun
	WeaponTierLowTechIR
	WeaponTierLowTechRadar
	WeaponTierHighTechIR
	WeaponTierHighTechRadar
	WeaponTierHARM
	WeaponTierAGM
)

func (t WeaponTier) String() string {
	switch t {
	case WeaponTierGun:
		return "Gun"
	case WeaponTierLowTechIR:
		return "LowTechIR"
	case WeaponTierLowTechRadar:
		return "LowTechRadar"
	case WeaponTierHighTechIR:
		return "HighTechIR"
	case WeaponTierHighTechRadar:
		return "HighTechRadar"
	case WeaponTierHARM:
		return "HARM"
	case WeaponTierAGM:
		return "AGM"
	default:
		return "Invalid"
	}
}

// TierForAircraft maps every aircraft onto its balance tier. Unknown values land in Invalid.
func TierForAircraft(a domain.Aircraft) AircraftTier {
	switch a {
	case domain.AircraftF45A:
		return AircraftTierFifthGen
	case domain.AircraftAV42C, domain.AircraftFA26B, domain.AircraftAH94, domain.AircraftT55, domain.AircraftEF24G:
		return AircraftTierFourthGen
	default:
		return AircraftTierInvalid
	}
}

func TierForWeapon(w domain.Weapon) WeaponTier {
	switch w {
	case domain.WeaponGun:
		return WeaponTierGun
	case domain.WeaponAIM9, domain.WeaponAIM9E:
		return WeaponTierLowTechIR
	case domain.WeaponAIM7:
		return WeaponTierLowTechRadar
	case domain.WeaponAIM9X, domain.WeaponAIRST:
		return WeaponTierHighTechIR
	case domain.WeaponAIM120, domain.WeaponAIM54:
		return WeaponTierHighTechRadar
	case domain.WeaponAGM88:
		return WeaponTierHARM
	case domain.WeaponAGM65, domain.WeaponAGM114, domain.WeaponGBU38:
		return WeaponTierAGM
	default:
		return WeaponTierInvalid
	}
}

func FormatKillString(killer domain.Aircraft, weapon domain.Weapon, victim domain.Aircraft) string {
	return fmt.Sprintf("%s->%s->%s", TierForAircraft(killer), TierForWeapon(weapon), TierForAircraft(victim))
}

// KillString classifies a kill into its "<killerTier>-><weaponTier>-><victimTier>" bucket.
func KillString(k *domain.Kill) string {
	return FormatKillString(k.Killer.Type, k.Weapon, k.Victim.Type)
}
