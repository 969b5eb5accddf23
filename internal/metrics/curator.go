package metrics

import (
	"fmt"

	"github.com/tyemirov/perfcomp/internal/stats"
)

const (
	missingMetricErrorTemplateConstant   = "metric %q absent from raw result bundle"
	curationFailureErrorTemplateConstant = "unable to curate metric %q: %s"
)

// MissingMetricError indicates a required metric key was absent from a raw bundle.
type MissingMetricError struct {
	MetricName MetricName
}

// Error describes the missing metric.
func (metricError MissingMetricError) Error() string {
	return fmt.Sprintf(missingMetricErrorTemplateConstant, string(metricError.MetricName))
}

// CurationError wraps reducer failures for a specific metric.
type CurationError struct {
	MetricName MetricName
	Cause      error
}

// Error describes the curation failure.
func (curationError CurationError) Error() string {
	return fmt.Sprintf(curationFailureErrorTemplateConstant, string(curationError.MetricName), curationError.Cause)
}

// Unwrap exposes the underlying error.
func (curationError CurationError) Unwrap() error {
	return curationError.Cause
}

// Curate reduces one raw multi-sample bundle into a curated per-metric summary.
// Every curated metric must be present; curation is all-or-nothing per bundle.
func Curate(rawBundle RawResultBundle) (CuratedResultBundle, error) {
	spreadMetrics := make(map[MetricName]struct{}, len(SpreadMetricNames()))
	for _, metricName := range SpreadMetricNames() {
		spreadMetrics[metricName] = struct{}{}
	}

	curatedBundle := make(CuratedResultBundle)
	for _, metricName := range CuratedMetricNames() {
		samples, metricPresent := rawBundle[metricName]
		if !metricPresent {
			return nil, MissingMetricError{MetricName: metricName}
		}

		averageValue, averageError := stats.Average(samples)
		if averageError != nil {
			return nil, CurationError{MetricName: metricName, Cause: averageError}
		}
		curatedBundle[string(metricName)] = averageValue

		if _, carriesSpread := spreadMetrics[metricName]; !carriesSpread {
			continue
		}

		minimumValue, minimumError := stats.Minimum(samples)
		if minimumError != nil {
			return nil, CurationError{MetricName: metricName, Cause: minimumError}
		}
		maximumValue, maximumError := stats.Maximum(samples)
		if maximumError != nil {
			return nil, CurationError{MetricName: metricName, Cause: maximumError}
		}

		curatedBundle[MinimumKey(metricName)] = minimumValue
		curatedBundle[MaximumKey(metricName)] = maximumValue
	}

	return curatedBundle, nil
}
