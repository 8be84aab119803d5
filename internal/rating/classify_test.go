package rating

import (
	"strings"
	"testing"

	"skyrating/internal/domain"

	"github.com/stretchr/testify/assert"
)

func TestKillStringIsTotal(t *testing.T) {
	for _, killer := range domain.Aircrafts {
		for _, weapon := range domain.Weapons {
			for _, victim := range domain.Aircrafts {
				k := &domain.Kill{
					Killer: domain.UserAircraft{Type: killer},
					Victim: domain.UserAircraft{Type: victim},
					Weapon: weapon,
				}
				first := KillString(k)
				assert.Equal(t, first, KillString(k))
				assert.Len(t, strings.Split(first, "->"), 3)
			}
		}
	}
}

func TestKillStringMapping(t *testing.T) {
	tests := []struct {
		name   string
		killer domain.Aircraft
		weapon domain.Weapon
		victim domain.Aircraft
		want   string
	}{
		{"reference", domain.AircraftFA26B, domain.WeaponAIM120, domain.AircraftFA26B, "FourthGen->HighTechRadar->FourthGen"},
		{"fifthGenGun", domain.AircraftF45A, domain.WeaponGun, domain.AircraftF45A, "FifthGen->Gun->FifthGen"},
		{"harm", domain.AircraftEF24G, domain.WeaponAGM88, domain.AircraftAV42C, "FourthGen->HARM->FourthGen"},
		{"lowTechIR", domain.AircraftT55, domain.WeaponAIM9E, domain.AircraftF45A, "FourthGen->LowTechIR->FifthGen"},
		{"unknownAircraft", domain.Aircraft("Spitfire"), domain.WeaponGun, domain.AircraftFA26B, "Invalid->Gun->FourthGen"},
		{"cfit", domain.AircraftFA26B, domain.WeaponCFIT, domain.AircraftFA26B, "FourthGen->Invalid->FourthGen"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatKillString(tt.killer, tt.weapon, tt.victim))
		})
	}
}

func TestIsKillValid(t *testing.T) {
	base := func() domain.Kill {
		return domain.Kill{
			Killer: domain.UserAircraft{OwnerID: "a", Type: domain.AircraftFA26B, Team: domain.TeamAllied, Occupants: []string{"a"}},
			Victim: domain.UserAircraft{OwnerID: "b", Type: domain.AircraftF45A, Team: domain.TeamEnemy, Occupants: []string{"b"}},
			Weapon: domain.WeaponAIM120,
		}
	}

	tests := []struct {
		name      string
		mutate    func(k *domain.Kill)
		valid     bool
		countable bool
	}{
		{"plain", func(k *domain.Kill) {}, true, true},
		{"invalidWeapon", func(k *domain.Kill) { k.Weapon = domain.WeaponInvalid }, false, false},
		{"unknownWeapon", func(k *domain.Kill) { k.Weapon = "Laser" }, false, false},
		{"invalidVictim", func(k *domain.Kill) { k.Victim.Type = domain.AircraftInvalid }, false, false},
		{"loadoutMismatch", func(k *domain.Kill) { k.Killer.Type = domain.AircraftAH94 }, false, false},
		{"cfitSeated", func(k *domain.Kill) { k.Weapon = domain.WeaponCFIT }, true, false},
		{"cfitNotSeated", func(k *domain.Kill) { k.Weapon = domain.WeaponCFIT; k.Killer.Occupants = []string{"x"} }, false, false},
		{"cfitEmptyVictim", func(k *domain.Kill) { k.Weapon = domain.WeaponCFIT; k.Victim.Occupants = nil }, false, false},
		{"mald", func(k *domain.Kill) { k.Weapon = domain.WeaponMALD }, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k := base()
			tt.mutate(&k)
			assert.Equal(t, tt.valid, IsKillValid(&k))
			assert.Equal(t, tt.countable, IsCountable(&k))
		})
	}
}
