// Package order computes Kuramoto synchronization metrics from phase snapshots.
//
// Every function here is pure: it reads the matrix it is given and allocates
// its own output, so independent snapshots can be measured concurrently.
package order

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

var ErrInvalidWindow = errors.New("order: window must be a positive odd integer")

// Sample is one synchronization measurement.
type Sample struct {
	R   float64 `json:"R" yaml:"R"`
	Psi float64 `json:"psi" yaml:"psi"`
}

// Parameter returns |mean(exp(iθ))| clamped to [0, 1].
func Parameter(phases mat.Matrix) float64 {
	re, im := meanVector(phases)
	return clampUnit(math.Hypot(re, im))
}

// MeanPhase returns arg(mean(exp(iθ))) in (-π, π]; 0 when the mean vector vanishes.
func MeanPhase(phases mat.Matrix) float64 {
	re, im := meanVector(phases)
	return angle(re, im)
}

// Compute returns R and ψ from a single pass over the snapshot.
func Compute(phases mat.Matrix) Sample {
	re, im := meanVector(phases)
	return Sample{R: clampUnit(math.Hypot(re, im)), Psi: angle(re, im)}
}

// Local returns the per-cell order parameter of a window×window neighbourhood,
// wrapping at the edges.
func Local(phases mat.Matrix, window int) (*mat.Dense, error) {
	if window < 1 || window%2 == 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidWindow, window)
	}
	rows, cols := phases.Dims()
	cosField := mat.NewDense(rows, cols, nil)
	sinField := mat.NewDense(rows, cols, nil)
	cosField.Apply(func(_, _ int, v float64) float64 { return math.Cos(v) }, phases)
	sinField.Apply(func(_, _ int, v float64) float64 { return math.Sin(v) }, phases)

	cosSmooth := boxFilterWrap(cosField, window)
	sinSmooth := boxFilterWrap(sinField, window)

	out := mat.NewDense(rows, cols, nil)
	out.Apply(func(i, j int, c float64) float64 {
		return clampUnit(math.Hypot(c, sinSmooth.At(i, j)))
	}, cosSmooth)
	return out, nil
}

func meanVector(phases mat.Matrix) (float64, float64) {
	rows, cols := phases.Dims()
	n := rows * cols
	if n == 0 {
		return 0, 0
	}
	re := make([]float64, 0, n)
	im := make([]float64, 0, n)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			s, c := math.Sincos(phases.At(i, j))
			re = append(re, c)
			im = append(im, s)
		}
	}
	return floats.Sum(re) / float64(n), floats.Sum(im) / float64(n)
}

func angle(re, im float64) float64 {
	if re == 0 && im == 0 {
		return 0
	}
	psi := math.Atan2(im, re)
	if psi <= -math.Pi {
		psi = math.Pi
	}
	return psi
}

// boxFilterWrap is a separable uniform filter with toroidal boundaries.
func boxFilterWrap(src *mat.Dense, window int) *mat.Dense {
	rows, cols := src.Dims()
	half := window / 2
	scale := 1 / float64(window)

	horiz := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			var sum float64
			for k := -half; k <= half; k++ {
				sum += src.At(i, wrapIndex(j+k, cols))
			}
			horiz.Set(i, j, sum*scale)
		}
	}

	out := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			var sum float64
			for k := -half; k <= half; k++ {
				sum += horiz.At(wrapIndex(i+k, rows), j)
			}
			out.Set(i, j, sum*scale)
		}
	}
	return out
}

func wrapIndex(i, n int) int {
	return ((i % n) + n) % n
}

func clampUnit(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
