// Package measurement samples browser load metrics from a running
// environment without the npm suite harness.
package measurement

import (
	"context"
	"fmt"
	"strings"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/tyemirov/perfcomp/internal/metrics"
	"github.com/tyemirov/perfcomp/internal/stats"
)

const (
	bodySelectorConstant                = "body"
	sampleLogFieldNameConstant          = "sample"
	targetURLLogFieldNameConstant       = "url"
	samplingStartedMessageConstant      = "load metric sampling starting"
	samplingCompletedMessageConstant    = "load metric sampling completed"
	targetURLMissingMessageConstant     = "target URL required"
	invalidSampleCountTemplateConstant  = "sample count must be positive, got %d"
	collectionFailedTemplateConstant    = "load metric collection failed for %s: %s"
	navigationTimingExpressionConstant  = `(() => {
	const [navigationEntry] = performance.getEntriesByType('navigation');
	const paintEntries = performance.getEntriesByType('paint');
	const paintStart = (paintName) => {
		const paintEntry = paintEntries.find((candidate) => candidate.name === paintName);
		return paintEntry ? paintEntry.startTime : 0;
	};
	return {
		requestStart: navigationEntry.requestStart,
		responseStart: navigationEntry.responseStart,
		domContentLoaded: navigationEntry.domContentLoadedEventEnd,
		loaded: navigationEntry.loadEventEnd,
		firstPaint: paintStart('first-paint'),
		firstContentfulPaint: paintStart('first-contentful-paint')
	};
})()`
)

// NavigationSnapshot is one page load's raw timing readings, in milliseconds
// relative to navigation start.
type NavigationSnapshot struct {
	RequestStart         float64 `json:"requestStart"`
	ResponseStart        float64 `json:"responseStart"`
	DOMContentLoaded     float64 `json:"domContentLoaded"`
	Loaded               float64 `json:"loaded"`
	FirstPaint           float64 `json:"firstPaint"`
	FirstContentfulPaint float64 `json:"firstContentfulPaint"`
}

// CollectionError wraps a browser sampling failure with its target.
type CollectionError struct {
	TargetURL string
	Cause     error
}

// Error describes the collection failure.
func (collectionError CollectionError) Error() string {
	return fmt.Sprintf(collectionFailedTemplateConstant, collectionError.TargetURL, collectionError.Cause)
}

// Unwrap exposes the underlying error.
func (collectionError CollectionError) Unwrap() error {
	return collectionError.Cause
}

// InvalidSamplingInputError indicates validation failures for a sampling request.
type InvalidSamplingInputError struct {
	Message string
}

// Error describes the validation failure.
func (inputError InvalidSamplingInputError) Error() string {
	return inputError.Message
}

// LoadMetricsCollector samples navigation and paint timings through a
// headless browser. Each sample uses a fresh browser tab so loads stay cold.
type LoadMetricsCollector struct {
	logger *zap.Logger
}

// NewLoadMetricsCollector constructs a collector.
func NewLoadMetricsCollector(logger *zap.Logger) *LoadMetricsCollector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LoadMetricsCollector{logger: logger}
}

// Collect navigates to the target URL sampleCount times and returns the raw
// load-metric samples.
func (collector *LoadMetricsCollector) Collect(executionContext context.Context, targetURL string, sampleCount int) (metrics.RawResultBundle, error) {
	trimmedURL := strings.TrimSpace(targetURL)
	if len(trimmedURL) == 0 {
		return nil, InvalidSamplingInputError{Message: targetURLMissingMessageConstant}
	}
	if sampleCount <= 0 {
		return nil, InvalidSamplingInputError{Message: fmt.Sprintf(invalidSampleCountTemplateConstant, sampleCount)}
	}

	collector.logger.Info(samplingStartedMessageConstant,
		zap.String(targetURLLogFieldNameConstant, trimmedURL),
		zap.Int(sampleLogFieldNameConstant, sampleCount),
	)

	allocatorContext, cancelAllocator := chromedp.NewExecAllocator(executionContext, chromedp.DefaultExecAllocatorOptions[:]...)
	defer cancelAllocator()

	snapshots := make([]NavigationSnapshot, 0, sampleCount)
	for sampleIndex := 0; sampleIndex < sampleCount; sampleIndex++ {
		snapshot, sampleError := collector.sampleOnce(allocatorContext, trimmedURL)
		if sampleError != nil {
			return nil, CollectionError{TargetURL: trimmedURL, Cause: sampleError}
		}
		snapshots = append(snapshots, snapshot)
	}

	collector.logger.Info(samplingCompletedMessageConstant,
		zap.String(targetURLLogFieldNameConstant, trimmedURL),
		zap.Int(sampleLogFieldNameConstant, len(snapshots)),
	)
	return BundleFromSnapshots(snapshots), nil
}

func (collector *LoadMetricsCollector) sampleOnce(allocatorContext context.Context, targetURL string) (NavigationSnapshot, error) {
	browserContext, cancelBrowser := chromedp.NewContext(allocatorContext)
	defer cancelBrowser()

	snapshot := NavigationSnapshot{}
	runError := chromedp.Run(browserContext,
		chromedp.Navigate(targetURL),
		chromedp.WaitReady(bodySelectorConstant),
		chromedp.Evaluate(navigationTimingExpressionConstant, &snapshot),
	)
	if runError != nil {
		return NavigationSnapshot{}, runError
	}
	return snapshot, nil
}

// BundleFromSnapshots shapes raw timing readings into the load-metric subset
// of a raw result bundle.
func BundleFromSnapshots(snapshots []NavigationSnapshot) metrics.RawResultBundle {
	rawBundle := metrics.RawResultBundle{
		metrics.MetricServerResponse:       make([]float64, 0, len(snapshots)),
		metrics.MetricFirstPaint:           make([]float64, 0, len(snapshots)),
		metrics.MetricDOMContentLoaded:     make([]float64, 0, len(snapshots)),
		metrics.MetricLoaded:               make([]float64, 0, len(snapshots)),
		metrics.MetricFirstContentfulPaint: make([]float64, 0, len(snapshots)),
	}

	for _, snapshot := range snapshots {
		rawBundle[metrics.MetricServerResponse] = append(rawBundle[metrics.MetricServerResponse], snapshot.ResponseStart-snapshot.RequestStart)
		rawBundle[metrics.MetricFirstPaint] = append(rawBundle[metrics.MetricFirstPaint], snapshot.FirstPaint)
		rawBundle[metrics.MetricDOMContentLoaded] = append(rawBundle[metrics.MetricDOMContentLoaded], snapshot.DOMContentLoaded)
		rawBundle[metrics.MetricLoaded] = append(rawBundle[metrics.MetricLoaded], snapshot.Loaded)
		rawBundle[metrics.MetricFirstContentfulPaint] = append(rawBundle[metrics.MetricFirstContentfulPaint], snapshot.FirstContentfulPaint)
	}
	return rawBundle
}

// CurateLoadMetrics reduces raw load-metric samples to per-metric averages,
// rounded to two decimals.
func CurateLoadMetrics(rawBundle metrics.RawResultBundle) (metrics.CuratedResultBundle, error) {
	curatedBundle := metrics.CuratedResultBundle{}
	for _, metricName := range LoadMetricNames() {
		samples, metricPresent := rawBundle[metricName]
		if !metricPresent {
			return nil, metrics.MissingMetricError{MetricName: metricName}
		}
		averageValue, averageError := stats.Average(samples)
		if averageError != nil {
			return nil, metrics.CurationError{MetricName: metricName, Cause: averageError}
		}
		curatedBundle[string(metricName)] = stats.FormatTime(averageValue)
	}
	return curatedBundle, nil
}

// LoadMetricNames returns the metric subset a browser probe can observe.
func LoadMetricNames() []metrics.MetricName {
	return []metrics.MetricName{
		metrics.MetricServerResponse,
		metrics.MetricFirstPaint,
		metrics.MetricDOMContentLoaded,
		metrics.MetricLoaded,
		metrics.MetricFirstContentfulPaint,
	}
}
