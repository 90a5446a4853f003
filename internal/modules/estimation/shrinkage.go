package estimation

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

const (
	defaultShrinkageIntensity = 0.2
	maxShrinkageIntensity     = 0.5
)

// ledoitWolf shrinks a sample covariance toward a structured target whose
// diagonal is the average variance and whose off-diagonal entries are the
// average covariance:
//
//	Σ_shrunk = (1-s)·Σ_sample + s·Σ_target
//
// The intensity s is estimated from the dispersion of the sample entries
// relative to their distance from the target and capped at 0.5.
func ledoitWolf(sample *mat.SymDense) (*mat.SymDense, float64) {
	n := sample.SymmetricDim()
	if n < 2 {
		out := mat.NewSymDense(n, nil)
		out.CopySym(sample)
		return out, 0
	}

	var avgVar, avgCov float64
	for i := 0; i < n; i++ {
		avgVar += sample.At(i, i)
		for j := 0; j < n; j++ {
			if i != j {
				avgCov += sample.At(i, j)
			}
		}
	}
	avgVar /= float64(n)
	avgCov /= float64(n * (n - 1))

	target := func(i, j int) float64 {
		if i == j {
			return avgVar
		}
		if avgVar > 0 {
			return avgCov
		}
		return 0
	}

	intensity := defaultShrinkageIntensity
	if n > 2 && avgVar > 0 {
		var sumSqDiff, sum, sumSq float64
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				v := sample.At(i, j)
				diff := v - target(i, j)
				sumSqDiff += diff * diff
				sum += v
				sumSq += v * v
			}
		}
		count := float64(n * n)
		meanSqDiff := sumSqDiff / count
		mean := sum / count
		dispersion := sumSq/count - mean*mean

		if dispersion > 0 && meanSqDiff > 0 {
			intensity = math.Min(maxShrinkageIntensity, math.Max(0, dispersion/(dispersion+meanSqDiff)))
		}
	}

	shrunk := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			shrunk.SetSym(i, j, (1-intensity)*sample.At(i, j)+intensity*target(i, j))
		}
	}
	return shrunk, intensity
}
