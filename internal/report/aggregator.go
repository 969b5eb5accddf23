// Package report reduces accumulated trial results into their final
// per-revision summaries and renders them for console and file consumers.
package report

import (
	"math"

	"github.com/tyemirov/perfcomp/internal/metrics"
	"github.com/tyemirov/perfcomp/internal/stats"
	"github.com/tyemirov/perfcomp/internal/suite"
	"github.com/tyemirov/perfcomp/internal/trials"
)

// AggregatedResults holds one reduced bundle per suite and revision.
type AggregatedResults map[suite.SuiteName]map[string]metrics.CuratedResultBundle

// Aggregate reduces per-round curated bundles to a single value per metric
// key: the median across rounds, rounded to two decimals. Every (suite,
// revision) pair present in the input appears in the output. Keys whose
// median is not a finite number are omitted; JSON cannot represent them and
// they carry no comparative signal.
func Aggregate(trialResults trials.TrialResults) AggregatedResults {
	aggregatedResults := AggregatedResults{}

	for suiteName, revisionBundles := range trialResults {
		aggregatedResults[suiteName] = map[string]metrics.CuratedResultBundle{}

		for revision, roundBundles := range revisionBundles {
			reducedBundle := metrics.CuratedResultBundle{}

			for _, metricKey := range collectMetricKeys(roundBundles) {
				roundValues := make([]float64, 0, len(roundBundles))
				for _, roundBundle := range roundBundles {
					if roundValue, keyPresent := roundBundle[metricKey]; keyPresent {
						roundValues = append(roundValues, roundValue)
					}
				}

				medianValue, medianError := stats.Median(roundValues)
				if medianError != nil {
					continue
				}
				formattedValue := stats.FormatTime(medianValue)
				if math.IsNaN(formattedValue) || math.IsInf(formattedValue, 0) {
					continue
				}
				reducedBundle[metricKey] = formattedValue
			}

			aggregatedResults[suiteName][revision] = reducedBundle
		}
	}

	return aggregatedResults
}

func collectMetricKeys(roundBundles []metrics.CuratedResultBundle) []string {
	seenKeys := map[string]struct{}{}
	orderedKeys := []string{}
	for _, roundBundle := range roundBundles {
		for metricKey := range roundBundle {
			if _, alreadySeen := seenKeys[metricKey]; alreadySeen {
				continue
			}
			seenKeys[metricKey] = struct{}{}
			orderedKeys = append(orderedKeys, metricKey)
		}
	}
	return orderedKeys
}
