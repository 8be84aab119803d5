package domain

type Aircraft string

const (
	AircraftInvalid Aircraft = "Invalid"
	AircraftAV42C   Aircraft = "AV-42C"
	AircraftFA26B   Aircraft = "FA-26B"
	AircraftF45A    Aircraft = "F-45A"
	AircraftAH94    Aircraft = "AH-94"
	AircraftT55     Aircraft = "T-55"
	AircraftEF24G   Aircraft = "EF-24G"
)

var Aircrafts = []Aircraft{
	AircraftInvalid,
	AircraftAV42C,
	AircraftFA26B,
	AircraftF45A,
	AircraftAH94,
	AircraftT55,
	AircraftEF24G,
}

func (a Aircraft) Known() bool {
	for _, k := range Aircrafts {
		if a == k {
			return true
		}
	}
	return false
}

type Weapon string

const (
	WeaponInvalid   Weapon = "Invalid"
	WeaponGun       Weapon = "Gun"
	WeaponAIM120    Weapon = "AIM-120"
	WeaponAIM9      Weapon = "AIM-9"
	WeaponAIM7      Weapon = "AIM-7"
	WeaponAIM9X     Weapon = "AIM-9X"
	WeaponAIRST     Weapon = "AIRS-T"
	WeaponAIM9E     Weapon = "AIM-9E"
	WeaponAIM54     Weapon = "AIM-54"
	WeaponAGM88     Weapon = "AGM-88"
	WeaponAGM65     Weapon = "AGM-65"
	WeaponAGM114    Weapon = "AGM-114"
	WeaponGBU38     Weapon = "GBU-38"
	WeaponCFIT      Weapon = "CFIT"
	WeaponCollision Weapon = "Collision"
	WeaponMALD      Weapon = "MALD"
)

var Weapons = []Weapon{
	WeaponInvalid,
	WeaponGun,
	WeaponAIM120,
	WeaponAIM9,
	WeaponAIM7,
	WeaponAIM9X,
	WeaponAIRST,
	WeaponAIM9E,
	WeaponAIM54,
	WeaponAGM88,
	WeaponAGM65,
	WeaponAGM114,
	WeaponGBU38,
	WeaponCFIT,
	WeaponCollision,
	WeaponMALD,
}

func (w Weapon) Known() bool {
	for _, k := range Weapons {
		if w == k {
			return true
		}
	}
	return false
}

type Team string

const (
	TeamAllied  Team = "Allied"
	TeamEnemy   Team = "Enemy"
	TeamUnknown Team = "Unknown"
)
