package rating

import (
	"math"
	"sort"

	"skyrating/internal/domain"
)

// ReferenceKillStr is the ordinary 4th-gen radar-missile kill the scale is pinned to.
var ReferenceKillStr = FormatKillString(domain.AircraftFA26B, domain.WeaponAIM120, domain.AircraftFA26B)

// Tally accumulates kill strings from countable kills.
type Tally struct {
	counts map[string]int
	total  int
}

func NewTally() *Tally {
	return &Tally{counts: make(map[string]int)}
}

// AddKill records the kill when it is countable and reports whether it was.
func (t *Tally) AddKill(k *domain.Kill) bool {
	if !IsCountable(k) {
		return false
	}
	t.Add(KillString(k))
	return true
}

func (t *Tally) Add(killStr string) {
	t.counts[killStr]++
	t.total++
}

func (t *Tally) Total() int {
	return t.total
}

// Metrics runs inverse-frequency normalization over the tally, scaled so the reference bucket
// sits at 1 when present. A cap <= 0 leaves multipliers unbounded.
func (t *Tally) Metrics(multiplierCap float64) []domain.KillMetric {
	if t.total == 0 {
		return []domain.KillMetric{}
	}

	total := float64(t.total)
	expected := 1 / float64(len(t.counts))

	normalizer := 1.0
	if refCount, ok := t.counts[ReferenceKillStr]; ok {
		normalizer = expected / (float64(refCount) / total)
	}

	metrics := make([]domain.KillMetric, 0, len(t.counts))
	for killStr, count := range t.counts {
		precision := float64(count) / total
		// Dividing by the normalizer pins the reference bucket at exactly 1.
		mult := expected / precision / normalizer
		if multiplierCap > 0 {
			mult = math.Min(mult, multiplierCap)
		}
		metrics = append(metrics, domain.KillMetric{
			KillStr:    killStr,
			Count:      count,
			Precision:  precision,
			Multiplier: mult,
		})
	}

	sort.Slice(metrics, func(i, j int) bool {
		if metrics[i].Count != metrics[j].Count {
			return metrics[i].Count > metrics[j].Count
		}
		return metrics[i].KillStr < metrics[j].KillStr
	})
	return metrics
}

// CalculateMultipliers is the one-shot form over an already classified multiset.
func CalculateMultipliers(killStrs []string, multiplierCap float64) []domain.KillMetric {
	t := NewTally()
	for _, s := range killStrs {
		t.Add(s)
	}
	return t.Metrics(multiplierCap)
}
