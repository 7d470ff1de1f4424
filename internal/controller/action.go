package controller

import (
	"math"
	"math/rand"
	"slices"
)

type DirectiveKind string

const (
	KindWeakMeasurement DirectiveKind = "weak_measurement"
	KindModulate        DirectiveKind = "modulate"
)

const (
	GlyphGentle  = "gentle"
	GlyphFierce  = "fierce"
	GlyphBalance = "balance"
	GlyphSpark   = "spark"
	GlyphSilent  = "silent"
	GlyphSpiral  = "spiral"
	GlyphGrowth  = "growth"
)

const (
	DefaultPositionBound    = 80.0
	DefaultModulationChance = 0.1
	modulationHighThreshold = 0.85
	modulationLowThreshold  = 0.25
	fallingBoost            = 1.2
	risingDamp              = 0.8
	fierceBoost             = 1.3
	gentleDamp              = 0.7
	strengthDecimals        = 3
	radiusDecimals          = 1
)

// Range is a closed interval; Min == Max yields a fixed value.
type Range struct {
	Min float64
	Max float64
}

type RegimeParams struct {
	Strength Range
	Radius   Range
}

// DefaultRegimeParams returns the strength/radius bands per regime.
func DefaultRegimeParams() map[Regime]RegimeParams {
	return map[Regime]RegimeParams{
		RegimeHigh:     {Strength: Range{0.4, 0.6}, Radius: Range{25, 35}},
		RegimeMid:      {Strength: Range{0.8, 1.2}, Radius: Range{35, 50}},
		RegimeLow:      {Strength: Range{1.3, 1.8}, Radius: Range{45, 65}},
		RegimeCritical: {Strength: Range{1.0, 1.0}, Radius: Range{40, 40}},
	}
}

type Vec3 struct {
	X float64
	Y float64
	Z float64
}

// Directive is one perturbation or modulation instruction. Glyph is only set
// for KindModulate.
type Directive struct {
	Kind     DirectiveKind
	Strength float64
	Radius   float64
	Position Vec3
	Regime   Regime
	Trend    Trend
	Glyph    string
}

// Input is everything the generator may look at for one cycle.
type Input struct {
	Regime       Regime
	Trend        Trend
	ActiveGlyphs []string
}

// Generator draws directives from a private random source. Not safe for
// concurrent use.
type Generator struct {
	rng              *rand.Rand
	params           map[Regime]RegimeParams
	bound            float64
	modulationChance float64
}

func NewGenerator(rng *rand.Rand) *Generator {
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	return &Generator{
		rng:              rng,
		params:           DefaultRegimeParams(),
		bound:            DefaultPositionBound,
		modulationChance: DefaultModulationChance,
	}
}

// WithModulationChance overrides the per-cycle modulation probability.
func (g *Generator) WithModulationChance(p float64) *Generator {
	g.modulationChance = p
	return g
}

// Generate produces the primary weak-measurement directive.
func (g *Generator) Generate(in Input) Directive {
	params, ok := g.params[in.Regime]
	if !ok {
		params = g.params[RegimeMid]
	}

	pos := Vec3{
		X: g.uniform(-g.bound, g.bound),
		Y: g.uniform(-g.bound, g.bound),
		Z: g.uniform(-g.bound, g.bound),
	}
	strength := g.uniform(params.Strength.Min, params.Strength.Max)
	radius := g.uniform(params.Radius.Min, params.Radius.Max)

	switch {
	case in.Trend == TrendFalling && in.Regime != RegimeLow:
		strength *= fallingBoost
	case in.Trend == TrendRising && in.Regime == RegimeHigh:
		strength *= risingDamp
	}

	if slices.Contains(in.ActiveGlyphs, GlyphFierce) {
		strength *= fierceBoost
	}
	if slices.Contains(in.ActiveGlyphs, GlyphGentle) {
		strength *= gentleDamp
	}
	if slices.Contains(in.ActiveGlyphs, GlyphBalance) {
		pos = Vec3{}
	}

	return Directive{
		Kind:     KindWeakMeasurement,
		Strength: roundTo(strength, strengthDecimals),
		Radius:   roundTo(radius, radiusDecimals),
		Position: pos,
		Regime:   in.Regime,
		Trend:    in.Trend,
	}
}

// Modulation occasionally suggests a glyph for the overlay. The second
// return value is false when no suggestion is made this cycle.
func (g *Generator) Modulation(orderParam float64) (Directive, bool) {
	if g.rng.Float64() >= g.modulationChance {
		return Directive{}, false
	}
	candidates := ModulationCandidates(orderParam)
	return Directive{
		Kind:  KindModulate,
		Glyph: candidates[g.rng.Intn(len(candidates))],
	}, true
}

// ModulationCandidates lists the glyphs that may be suggested at orderParam.
func ModulationCandidates(orderParam float64) []string {
	switch {
	case orderParam > modulationHighThreshold:
		return []string{GlyphBalance, GlyphGentle, GlyphSilent}
	case orderParam < modulationLowThreshold:
		return []string{GlyphGrowth, GlyphSpark, GlyphFierce}
	default:
		return []string{GlyphSpiral, GlyphSpark}
	}
}

func (g *Generator) uniform(lo, hi float64) float64 {
	return lo + g.rng.Float64()*(hi-lo)
}

func roundTo(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}
