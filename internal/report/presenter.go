package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/tyemirov/perfcomp/internal/metrics"
	"github.com/tyemirov/perfcomp/internal/suite"
)

const (
	artifactFileNameTemplateConstant     = "%s-performance-results.json"
	artifactFilePermissionConstant       = 0o644
	artifactDirectoryPermissionConstant  = 0o755
	artifactIndentationConstant          = "\t"
	millisecondValueTemplateConstant     = "%v ms"
	suiteHeadingTemplateConstant         = "\n%s\n"
	tableMetricColumnHeaderConstant      = "metric"
	tableColumnSeparatorConstant         = "\t"
	tableMissingValuePlaceholderConstant = "-"
	presenterWriterMissingMessage        = "presenter output writer not configured"
	artifactEncodeErrorTemplateConstant  = "unable to encode artifact for suite %s: %w"
	artifactWriteErrorTemplateConstant   = "unable to write artifact %s: %w"
	outputDirectoryErrorTemplateConstant = "unable to create output directory %s: %w"
)

// ErrOutputWriterNotConfigured indicates the Presenter was constructed without a writer.
var ErrOutputWriterNotConfigured = errors.New(presenterWriterMissingMessage)

// Presenter renders aggregated results as console tables and persists one
// JSON artifact per suite.
type Presenter struct {
	outputWriter io.Writer
}

// NewPresenter validates dependencies and constructs a Presenter.
func NewPresenter(outputWriter io.Writer) (*Presenter, error) {
	if outputWriter == nil {
		return nil, ErrOutputWriterNotConfigured
	}
	return &Presenter{outputWriter: outputWriter}, nil
}

// RenderTables prints one table per suite with metrics as rows and revisions
// as columns, each cell formatted as a millisecond value.
func (presenter *Presenter) RenderTables(aggregatedResults AggregatedResults) error {
	for _, suiteName := range sortedSuiteNames(aggregatedResults) {
		if _, writeError := fmt.Fprintf(presenter.outputWriter, suiteHeadingTemplateConstant, suiteName); writeError != nil {
			return writeError
		}

		revisionBundles := aggregatedResults[suiteName]
		revisions := sortedRevisions(revisionBundles)
		metricKeys := sortedMetricKeys(revisionBundles)

		tableWriter := tabwriter.NewWriter(presenter.outputWriter, 0, 0, 2, ' ', 0)
		headerCells := append([]string{tableMetricColumnHeaderConstant}, revisions...)
		if _, writeError := fmt.Fprintln(tableWriter, strings.Join(headerCells, tableColumnSeparatorConstant)); writeError != nil {
			return writeError
		}

		for _, metricKey := range metricKeys {
			rowCells := []string{metricKey}
			for _, revision := range revisions {
				metricValue, valuePresent := revisionBundles[revision][metricKey]
				if valuePresent {
					rowCells = append(rowCells, fmt.Sprintf(millisecondValueTemplateConstant, metricValue))
				} else {
					rowCells = append(rowCells, tableMissingValuePlaceholderConstant)
				}
			}
			if _, writeError := fmt.Fprintln(tableWriter, strings.Join(rowCells, tableColumnSeparatorConstant)); writeError != nil {
				return writeError
			}
		}

		if flushError := tableWriter.Flush(); flushError != nil {
			return flushError
		}
	}
	return nil
}

// PersistArtifacts writes one pretty-printed JSON file per suite under the
// output directory, keyed revision then metric.
func (presenter *Presenter) PersistArtifacts(aggregatedResults AggregatedResults, outputDirectory string) error {
	if directoryError := os.MkdirAll(outputDirectory, artifactDirectoryPermissionConstant); directoryError != nil {
		return fmt.Errorf(outputDirectoryErrorTemplateConstant, outputDirectory, directoryError)
	}

	for _, suiteName := range sortedSuiteNames(aggregatedResults) {
		artifactContent, encodeError := json.MarshalIndent(aggregatedResults[suiteName], "", artifactIndentationConstant)
		if encodeError != nil {
			return fmt.Errorf(artifactEncodeErrorTemplateConstant, suiteName, encodeError)
		}

		artifactFilePath := filepath.Join(outputDirectory, fmt.Sprintf(artifactFileNameTemplateConstant, suiteName))
		if writeError := os.WriteFile(artifactFilePath, artifactContent, artifactFilePermissionConstant); writeError != nil {
			return fmt.Errorf(artifactWriteErrorTemplateConstant, artifactFilePath, writeError)
		}
	}
	return nil
}

func sortedSuiteNames(aggregatedResults AggregatedResults) []suite.SuiteName {
	suiteNames := make([]suite.SuiteName, 0, len(aggregatedResults))
	for suiteName := range aggregatedResults {
		suiteNames = append(suiteNames, suiteName)
	}
	sort.Slice(suiteNames, func(firstIndex int, secondIndex int) bool {
		return suiteNames[firstIndex] < suiteNames[secondIndex]
	})
	return suiteNames
}

func sortedRevisions(revisionBundles map[string]metrics.CuratedResultBundle) []string {
	revisions := make([]string, 0, len(revisionBundles))
	for revision := range revisionBundles {
		revisions = append(revisions, revision)
	}
	sort.Strings(revisions)
	return revisions
}

func sortedMetricKeys(revisionBundles map[string]metrics.CuratedResultBundle) []string {
	seenKeys := map[string]struct{}{}
	metricKeys := []string{}
	for _, reducedBundle := range revisionBundles {
		for metricKey := range reducedBundle {
			if _, alreadySeen := seenKeys[metricKey]; alreadySeen {
				continue
			}
			seenKeys[metricKey] = struct{}{}
			metricKeys = append(metricKeys, metricKey)
		}
	}
	sort.Strings(metricKeys)
	return metricKeys
}
