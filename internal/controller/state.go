// Package controller owns the closed-loop decision logic: coherence history,
// regime classification and directive generation.
//
// It only ever sees scalar metrics decoded from the wire, never a phase field.
package controller

import "github.com/danmuck/resonator/internal/ring"

type Regime string

const (
	RegimeHigh     Regime = "high"
	RegimeMid      Regime = "mid"
	RegimeLow      Regime = "low"
	RegimeCritical Regime = "critical"
)

type Trend string

const (
	TrendRising  Trend = "rising"
	TrendFalling Trend = "falling"
	TrendStable  Trend = "stable"
	TrendUnknown Trend = "unknown"
)

const (
	DefaultHistoryCapacity = 20

	HighCoherenceThreshold = 0.75
	LowCoherenceThreshold  = 0.30
	CriticalLow            = 0.45
	CriticalHigh           = 0.55

	trendWindow = 3
	trendDelta  = 0.05
)

// ClassifyRegime maps an order parameter to a regime. The critical band is
// checked first and is inclusive at both ends.
func ClassifyRegime(r float64) Regime {
	switch {
	case r >= CriticalLow && r <= CriticalHigh:
		return RegimeCritical
	case r >= HighCoherenceThreshold:
		return RegimeHigh
	case r <= LowCoherenceThreshold:
		return RegimeLow
	default:
		return RegimeMid
	}
}

// CoherenceHistory is a sliding window of recent order parameters.
type CoherenceHistory struct {
	buf *ring.Buffer[float64]
}

func NewCoherenceHistory(capacity int) *CoherenceHistory {
	if capacity < 1 {
		capacity = DefaultHistoryCapacity
	}
	return &CoherenceHistory{buf: ring.New[float64](capacity)}
}

func (h *CoherenceHistory) Record(r float64) {
	h.buf.Push(r)
}

func (h *CoherenceHistory) Len() int { return h.buf.Len() }

func (h *CoherenceHistory) Cap() int { return h.buf.Cap() }

// Values returns the recorded samples oldest-first.
func (h *CoherenceHistory) Values() []float64 { return h.buf.Values() }

// Trend compares the newest of the last three samples against the oldest.
func (h *CoherenceHistory) Trend() Trend {
	if h.buf.Len() < trendWindow {
		return TrendUnknown
	}
	recent := h.buf.Last(trendWindow)
	first, last := recent[0], recent[len(recent)-1]
	switch {
	case last > first+trendDelta:
		return TrendRising
	case last < first-trendDelta:
		return TrendFalling
	default:
		return TrendStable
	}
}

// State is the controller's per-process memory. The regime is recomputed
// from scratch on every observation.
type State struct {
	history *CoherenceHistory
	regime  Regime
}

func NewState(capacity int) *State {
	return &State{
		history: NewCoherenceHistory(capacity),
		regime:  RegimeMid,
	}
}

// Observe records r and reclassifies.
func (s *State) Observe(r float64) Regime {
	s.history.Record(r)
	s.regime = ClassifyRegime(r)
	return s.regime
}

// Regime is the classification from the last observation, mid before any.
func (s *State) Regime() Regime { return s.regime }

func (s *State) Trend() Trend { return s.history.Trend() }

func (s *State) History() *CoherenceHistory { return s.history }
