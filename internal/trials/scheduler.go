// Package trials interleaves suite executions across revisions in repeated
// rounds and accumulates the per-round curated bundles.
package trials

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/tyemirov/perfcomp/internal/environment"
	"github.com/tyemirov/perfcomp/internal/metrics"
	"github.com/tyemirov/perfcomp/internal/suite"
)

const (
	defaultRoundCountConstant            = 3
	roundLogFieldNameConstant            = "round"
	trialSuiteLogFieldNameConstant       = "suite"
	trialRevisionLogFieldNameConstant    = "revision"
	roundStartedMessageConstant          = "trial round starting"
	trialsCompletedMessageConstant       = "all trial rounds completed"
	schedulerRunnerMissingMessage        = "trial scheduler suite runner not configured"
	noSuitesConfiguredMessageConstant    = "no suites configured"
	noRevisionsConfiguredMessageConstant = "no revisions configured"
	missingEnvironmentTemplateConstant   = "no environment materialized for revision %s"
	invalidRoundCountTemplateConstant    = "round count must be positive, got %d"
)

// SuiteRunner executes one suite against one environment.
type SuiteRunner interface {
	Run(executionContext context.Context, suiteName suite.SuiteName, instance *environment.Environment, sourceRoot string) (metrics.CuratedResultBundle, error)
}

// TrialResults accumulates curated bundles keyed by suite, then revision, in
// round order. The scheduler is the only writer.
type TrialResults map[suite.SuiteName]map[string][]metrics.CuratedResultBundle

// ErrSuiteRunnerNotConfigured indicates the Scheduler was constructed without a suite runner.
var ErrSuiteRunnerNotConfigured = errors.New(schedulerRunnerMissingMessage)

// InvalidTrialPlanError indicates the trial plan could not be executed as requested.
type InvalidTrialPlanError struct {
	Message string
}

// Error describes the plan defect.
func (planError InvalidTrialPlanError) Error() string {
	return planError.Message
}

// DefaultRoundCount returns the number of rounds used when none is configured.
func DefaultRoundCount() int {
	return defaultRoundCountConstant
}

// Scheduler runs suites against every revision's environment in alternating
// rounds: within each round, revisions are visited in the same fixed order,
// so environmental drift over time spreads across revisions instead of
// concentrating on one.
type Scheduler struct {
	runner SuiteRunner
	logger *zap.Logger
}

// NewScheduler validates dependencies and constructs a Scheduler.
func NewScheduler(runner SuiteRunner, logger *zap.Logger) (*Scheduler, error) {
	if runner == nil {
		return nil, ErrSuiteRunnerNotConfigured
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{runner: runner, logger: logger}, nil
}

// RunTrials executes roundCount rounds of every suite across every revision,
// returning the accumulated curated bundles. Execution stops at the first
// runner failure; partial results are discarded.
func (scheduler *Scheduler) RunTrials(
	executionContext context.Context,
	suites []suite.SuiteName,
	revisions []string,
	environments map[string]*environment.Environment,
	roundCount int,
	sourceRoot string,
) (TrialResults, error) {
	if len(suites) == 0 {
		return nil, InvalidTrialPlanError{Message: noSuitesConfiguredMessageConstant}
	}
	if len(revisions) == 0 {
		return nil, InvalidTrialPlanError{Message: noRevisionsConfiguredMessageConstant}
	}
	if roundCount <= 0 {
		return nil, InvalidTrialPlanError{Message: fmt.Sprintf(invalidRoundCountTemplateConstant, roundCount)}
	}
	for _, revision := range revisions {
		if environments[strings.TrimSpace(revision)] == nil {
			return nil, InvalidTrialPlanError{Message: fmt.Sprintf(missingEnvironmentTemplateConstant, revision)}
		}
	}

	trialResults := TrialResults{}
	for _, suiteName := range suites {
		trialResults[suiteName] = map[string][]metrics.CuratedResultBundle{}
	}

	for _, suiteName := range suites {
		for roundIndex := 0; roundIndex < roundCount; roundIndex++ {
			scheduler.logger.Info(roundStartedMessageConstant,
				zap.String(trialSuiteLogFieldNameConstant, string(suiteName)),
				zap.Int(roundLogFieldNameConstant, roundIndex+1),
			)

			for _, revision := range revisions {
				trimmedRevision := strings.TrimSpace(revision)
				instance := environments[trimmedRevision]

				curatedBundle, runError := scheduler.runner.Run(executionContext, suiteName, instance, sourceRoot)
				if runError != nil {
					return nil, runError
				}
				trialResults[suiteName][trimmedRevision] = append(trialResults[suiteName][trimmedRevision], curatedBundle)
			}
		}
	}

	scheduler.logger.Info(trialsCompletedMessageConstant,
		zap.Int(roundLogFieldNameConstant, roundCount),
	)
	return trialResults, nil
}
