// Package metrics defines the fixed measurement vocabulary shared by the
// suite runner, curator, and reporter, along with the bundle types that move
// samples between them.
package metrics

import "strings"

const (
	minimumKeyPrefixConstant = "min"
	maximumKeyPrefixConstant = "max"
)

// MetricName identifies one timed measurement produced by a suite run.
type MetricName string

// The curated metric set. Every suite result file carries exactly these keys.
const (
	MetricServerResponse       MetricName = "serverResponse"
	MetricFirstPaint           MetricName = "firstPaint"
	MetricDOMContentLoaded     MetricName = "domContentLoaded"
	MetricLoaded               MetricName = "loaded"
	MetricFirstContentfulPaint MetricName = "firstContentfulPaint"
	MetricFirstBlock           MetricName = "firstBlock"
	MetricType                 MetricName = "type"
	MetricFocus                MetricName = "focus"
	MetricInserterOpen         MetricName = "inserterOpen"
	MetricInserterSearch       MetricName = "inserterSearch"
	MetricInserterHover        MetricName = "inserterHover"
	MetricListViewOpen         MetricName = "listViewOpen"
)

// CuratedMetricNames lists every metric the curator requires, in report order.
func CuratedMetricNames() []MetricName {
	return []MetricName{
		MetricServerResponse,
		MetricFirstPaint,
		MetricDOMContentLoaded,
		MetricLoaded,
		MetricFirstContentfulPaint,
		MetricFirstBlock,
		MetricType,
		MetricFocus,
		MetricInserterOpen,
		MetricInserterSearch,
		MetricInserterHover,
		MetricListViewOpen,
	}
}

// SpreadMetricNames lists the metrics that additionally carry minimum and
// maximum values in curated bundles.
func SpreadMetricNames() []MetricName {
	return []MetricName{
		MetricType,
		MetricFocus,
		MetricInserterOpen,
		MetricInserterSearch,
		MetricInserterHover,
		MetricListViewOpen,
	}
}

// MinimumKey derives the curated-bundle key carrying a metric's smallest sample.
func MinimumKey(metricName MetricName) string {
	return minimumKeyPrefixConstant + capitalizeMetricName(metricName)
}

// MaximumKey derives the curated-bundle key carrying a metric's largest sample.
func MaximumKey(metricName MetricName) string {
	return maximumKeyPrefixConstant + capitalizeMetricName(metricName)
}

func capitalizeMetricName(metricName MetricName) string {
	name := string(metricName)
	if len(name) == 0 {
		return name
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

// RawResultBundle maps each metric to the ordered millisecond samples one
// suite execution produced for it.
type RawResultBundle map[MetricName][]float64

// CuratedResultBundle maps report keys (metric names plus min/max variants)
// to single millisecond values for one suite execution.
type CuratedResultBundle map[string]float64
