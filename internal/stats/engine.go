// Package stats provides the numeric reducers used to curate and aggregate
// performance measurements.
package stats

import (
	"errors"
	"math"
	"sort"
)

const (
	noSamplesMessageConstant        = "no samples provided"
	formattedTimeScaleFactor        = 100
	evenLengthMedianDivisorConstant = 2
)

// ErrNoSamples indicates a reducer was invoked with an empty sample sequence.
var ErrNoSamples = errors.New(noSamplesMessageConstant)

// Average computes the arithmetic mean of the provided samples.
func Average(samples []float64) (float64, error) {
	if len(samples) == 0 {
		return 0, ErrNoSamples
	}

	sum := 0.0
	for _, sample := range samples {
		sum += sample
	}
	return sum / float64(len(samples)), nil
}

// Median computes the median of the provided samples without mutating them.
// Even-length sequences yield the mean of the two middle elements.
func Median(samples []float64) (float64, error) {
	if len(samples) == 0 {
		return 0, ErrNoSamples
	}

	sortedSamples := make([]float64, len(samples))
	copy(sortedSamples, samples)
	sort.Float64s(sortedSamples)

	middleIndex := len(sortedSamples) / 2
	if len(sortedSamples)%2 == 1 {
		return sortedSamples[middleIndex], nil
	}
	return (sortedSamples[middleIndex-1] + sortedSamples[middleIndex]) / evenLengthMedianDivisorConstant, nil
}

// Minimum returns the smallest sample value.
func Minimum(samples []float64) (float64, error) {
	if len(samples) == 0 {
		return 0, ErrNoSamples
	}

	smallest := samples[0]
	for _, sample := range samples[1:] {
		if sample < smallest {
			smallest = sample
		}
	}
	return smallest, nil
}

// Maximum returns the largest sample value.
func Maximum(samples []float64) (float64, error) {
	if len(samples) == 0 {
		return 0, ErrNoSamples
	}

	largest := samples[0]
	for _, sample := range samples[1:] {
		if sample > largest {
			largest = sample
		}
	}
	return largest, nil
}

// FormatTime rounds a millisecond value to two decimal places using
// round-half-away-from-zero semantics.
func FormatTime(value float64) float64 {
	return math.Round(value*formattedTimeScaleFactor) / formattedTimeScaleFactor
}
