// Package stats provides the statistical primitives used by anomaly detection:
// population mean and standard deviation, the sample median, and the median
// absolute deviation scaled to be a consistent estimator of the standard
// deviation under normality.
package stats

import (
	"math"
	"sort"
)

// MADScale is the normal-consistency factor for the median absolute deviation.
const MADScale = 1.4826

// Mean returns the arithmetic mean of values, or 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// StdDev returns the population standard deviation of values.
func StdDev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean := Mean(values)
	var sumSq float64
	for _, v := range values {
		d := v - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(values)))
}

// Median returns the upper median: the element at index n/2 of the sorted
// values. For even-length input this is the higher of the two middle values.
func Median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	return sorted[len(sorted)/2]
}

// MAD returns the scaled median absolute deviation of values: the median of
// absolute deviations from the median, multiplied by MADScale.
func MAD(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	median := Median(values)
	deviations := make([]float64, len(values))
	for i, v := range values {
		deviations[i] = math.Abs(v - median)
	}
	return Median(deviations) * MADScale
}
