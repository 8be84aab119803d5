package rating

import (
	"sync/atomic"

	"skyrating/internal/domain"
)

// MultiplierTable is an immutable lookup built from one calculator run.
type MultiplierTable struct {
	byKillStr map[string]float64
	metrics   []domain.KillMetric
}

func NewMultiplierTable(metrics []domain.KillMetric) *MultiplierTable {
	t := &MultiplierTable{
		byKillStr: make(map[string]float64, len(metrics)),
		metrics:   append([]domain.KillMetric(nil), metrics...),
	}
	for _, m := range metrics {
		t.byKillStr[m.KillStr] = m.Multiplier
	}
	return t
}

// Lookup returns the multiplier for a kill string, 1 when the bucket is unknown.
func (t *MultiplierTable) Lookup(killStr string) float64 {
	if t == nil {
		return 1
	}
	if m, ok := t.byKillStr[killStr]; ok {
		return m
	}
	return 1
}

func (t *MultiplierTable) Metrics() []domain.KillMetric {
	if t == nil {
		return nil
	}
	return append([]domain.KillMetric(nil), t.metrics...)
}

func (t *MultiplierTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.metrics)
}

// TableHolder publishes the current table to concurrent readers without locking.
type TableHolder struct {
	p atomic.Pointer[MultiplierTable]
}

func NewTableHolder() *TableHolder {
	h := &TableHolder{}
	h.p.Store(NewMultiplierTable(nil))
	return h
}

func (h *TableHolder) Load() *MultiplierTable {
	return h.p.Load()
}

func (h *TableHolder) Store(t *MultiplierTable) {
	if t == nil {
		t = NewMultiplierTable(nil)
	}
	h.p.Store(t)
}
