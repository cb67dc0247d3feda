// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package stats provides the pure numeric aggregation functions used by the
// benchmark orchestrators: mean, sample standard deviation, median,
// nearest-rank percentiles, and 95% confidence intervals.
//
// All functions are stateless, never mutate their input, and operate on
// plain float64 slices so callers can aggregate latencies (milliseconds),
// recall fractions, or batch durations with the same code.
package stats

import (
	"errors"
	"math"
	"sort"
)

// -----------------------------------------------------------------------------
// Errors
// -----------------------------------------------------------------------------

var (
	// ErrNoSamples indicates an empty input sequence.
	ErrNoSamples = errors.New("stats: no samples")

	// ErrInsufficientSample indicates too few samples for the requested
	// statistic (e.g. a sample standard deviation of a single value).
	ErrInsufficientSample = errors.New("stats: insufficient sample size")
)

// -----------------------------------------------------------------------------
// Aggregations
// -----------------------------------------------------------------------------

// Mean returns the arithmetic mean of xs.
//
// Outputs:
//   - float64: Sum of xs divided by len(xs).
//   - error: ErrNoSamples if xs is empty.
func Mean(xs []float64) (float64, error) {
	if len(xs) == 0 {
		return 0, ErrNoSamples
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs)), nil
}

// SampleStdDev returns the Bessel-corrected sample standard deviation of xs.
//
// Description:
//
//	Uses the n-1 divisor so the result is an unbiased estimator of the
//	population variance. A sample of fewer than two values has no defined
//	sample deviation.
//
// Outputs:
//   - float64: Sample standard deviation.
//   - error: ErrInsufficientSample if len(xs) < 2.
func SampleStdDev(xs []float64) (float64, error) {
	if len(xs) < 2 {
		return 0, ErrInsufficientSample
	}
	mean, _ := Mean(xs)
	var sumSq float64
	for _, x := range xs {
		d := x - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(xs)-1)), nil
}

// Median returns the median of xs.
//
// Description:
//
//	Sorts a copy of xs ascending. For odd n the middle element is returned;
//	for even n the average of the two middle elements.
//
// Outputs:
//   - float64: The median.
//   - error: ErrNoSamples if xs is empty.
func Median(xs []float64) (float64, error) {
	if len(xs) == 0 {
		return 0, ErrNoSamples
	}
	sorted := sortedCopy(xs)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2], nil
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2, nil
}

// Percentile returns the p-th percentile of xs using the nearest-rank method.
//
// Description:
//
//	Sorts a copy of xs ascending and selects the element at index
//	ceil(p/100 * n) - 1, clamped to [0, n-1]. No interpolation is performed,
//	so the result is always an element of xs. Percentile(xs, 100) is the
//	maximum; Percentile(xs, 0) is the smallest element after the clamp.
//
// Inputs:
//   - xs: Sample values. Must not be empty.
//   - p: Percentile in [0, 100]. Values outside the range are not rejected;
//     the index clamp keeps the result inside the sample.
//
// Outputs:
//   - float64: The selected sample value.
//   - error: ErrNoSamples if xs is empty.
func Percentile(xs []float64, p float64) (float64, error) {
	if len(xs) == 0 {
		return 0, ErrNoSamples
	}
	sorted := sortedCopy(xs)
	n := len(sorted)
	idx := int(math.Ceil(p/100*float64(n))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx > n-1 {
		idx = n - 1
	}
	return sorted[idx], nil
}

// Min returns the smallest value in xs.
func Min(xs []float64) (float64, error) {
	if len(xs) == 0 {
		return 0, ErrNoSamples
	}
	min := xs[0]
	for _, x := range xs[1:] {
		if x < min {
			min = x
		}
	}
	return min, nil
}

// Max returns the largest value in xs.
func Max(xs []float64) (float64, error) {
	if len(xs) == 0 {
		return 0, ErrNoSamples
	}
	max := xs[0]
	for _, x := range xs[1:] {
		if x > max {
			max = x
		}
	}
	return max, nil
}

// smallSampleT is the fixed critical value used for every sample below 30.
// This is the two-tailed 95% t value at 19 degrees of freedom, applied
// uniformly as a documented approximation rather than a per-df lookup.
// Changing it would change every reported confidence interval, so it is
// kept as-is.
const smallSampleT = 2.093

// CI95 returns the symmetric 95% confidence interval for the mean of xs.
//
// Description:
//
//	Computes mean ± t * std/sqrt(n). For n >= 30 the normal-approximation
//	critical value 1.96 is used; for smaller samples the fixed value 2.093
//	is applied regardless of the actual degrees of freedom.
//
// Outputs:
//   - lower, upper: Interval bounds.
//   - error: ErrInsufficientSample if len(xs) < 2.
func CI95(xs []float64) (lower, upper float64, err error) {
	std, err := SampleStdDev(xs)
	if err != nil {
		return 0, 0, err
	}
	mean, _ := Mean(xs)

	t := smallSampleT
	if len(xs) >= 30 {
		t = 1.96
	}

	margin := t * std / math.Sqrt(float64(len(xs)))
	return mean - margin, mean + margin, nil
}

// sortedCopy returns xs sorted ascending without mutating the input.
func sortedCopy(xs []float64) []float64 {
	sorted := make([]float64, len(xs))
	copy(sorted, xs)
	sort.Float64s(sorted)
	return sorted
}
