// Package suite executes one measurement suite against a running environment
// and curates the raw samples it produces.
package suite

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/tyemirov/perfcomp/internal/environment"
	"github.com/tyemirov/perfcomp/internal/execshell"
	"github.com/tyemirov/perfcomp/internal/metrics"
)

const (
	npmRunSubcommandConstant               = "run"
	performanceTestScriptNameConstant      = "test:performance"
	scriptArgumentSeparatorConstant        = "--"
	suiteSpecificationPathTemplateConstant = "packages/e2e-tests/specs/performance/%s.test.js"
	suiteResultsPathTemplateConstant       = "packages/e2e-tests/specs/performance/%s.test.results.json"
	baseURLEnvironmentVariableNameConstant = "WP_BASE_URL"
	defaultEnvironmentBaseURLConstant      = "http://localhost:8888"
	suiteNameLogFieldConstant              = "suite"
	suiteRevisionLogFieldConstant          = "revision"
	suiteStartedMessageConstant            = "suite execution starting"
	suiteCompletedMessageConstant          = "suite execution completed"
	suiteStopFailureMessageConstant        = "environment stop failed after suite"
	runnerExecutorMissingMessageConstant   = "suite runner npm executor not configured"
	suiteNameMissingMessageConstant        = "suite name required"
	sourceRootMissingMessageConstant       = "suite source root required"
	environmentMissingMessageConstant      = "suite environment required"
	suiteFailedErrorTemplateConstant       = "suite %s failed for revision %s: %s"
	resultsFileReadErrorTemplateConstant   = "unable to read suite results %s: %w"
	resultsFileParseErrorTemplateConstant  = "unable to parse suite results %s: %w"
)

// SuiteName identifies one fixed measurement suite.
type SuiteName string

// The fixed measurement suites.
const (
	SuitePostEditor SuiteName = "post-editor"
	SuiteSiteEditor SuiteName = "site-editor"
)

// SuiteNames returns the fixed suites in execution order.
func SuiteNames() []SuiteName {
	return []SuiteName{SuitePostEditor, SuiteSiteEditor}
}

// NpmCommandExecutor exposes the subset of execshell functionality required to run suites.
type NpmCommandExecutor interface {
	ExecuteNpm(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// SuiteExecutionFailedError reports a suite that could not produce a curated bundle.
type SuiteExecutionFailedError struct {
	Suite    SuiteName
	Revision string
	Cause    error
}

// Error describes the suite failure.
func (executionError SuiteExecutionFailedError) Error() string {
	return fmt.Sprintf(suiteFailedErrorTemplateConstant, executionError.Suite, executionError.Revision, executionError.Cause)
}

// Unwrap exposes the underlying error.
func (executionError SuiteExecutionFailedError) Unwrap() error {
	return executionError.Cause
}

// ErrNpmExecutorNotConfigured indicates the Runner was constructed without an npm executor.
var ErrNpmExecutorNotConfigured = errors.New(runnerExecutorMissingMessageConstant)

// InvalidRunInputError indicates validation failures for a suite run.
type InvalidRunInputError struct {
	Message string
}

// Error describes the validation failure.
func (inputError InvalidRunInputError) Error() string {
	return inputError.Message
}

// Runner executes measurement suites through npm and curates their output.
type Runner struct {
	executor NpmCommandExecutor
	logger   *zap.Logger
	baseURL  string
}

// NewRunner validates dependencies and constructs a Runner.
func NewRunner(executor NpmCommandExecutor, logger *zap.Logger) (*Runner, error) {
	if executor == nil {
		return nil, ErrNpmExecutorNotConfigured
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{executor: executor, logger: logger, baseURL: defaultEnvironmentBaseURLConstant}, nil
}

// Run starts the environment, executes the suite, reads and curates the raw
// results, and stops the environment. Stop is always attempted, including
// when execution or parsing fails; a stop failure after a suite failure is
// logged but does not mask the suite error.
func (runner *Runner) Run(executionContext context.Context, suite SuiteName, instance *environment.Environment, sourceRoot string) (metrics.CuratedResultBundle, error) {
	if instance == nil {
		return nil, InvalidRunInputError{Message: environmentMissingMessageConstant}
	}
	if len(strings.TrimSpace(string(suite))) == 0 {
		return nil, runner.failed(suite, instance.Revision(), InvalidRunInputError{Message: suiteNameMissingMessageConstant})
	}
	trimmedSourceRoot := strings.TrimSpace(sourceRoot)
	if len(trimmedSourceRoot) == 0 {
		return nil, runner.failed(suite, instance.Revision(), InvalidRunInputError{Message: sourceRootMissingMessageConstant})
	}

	runner.logger.Info(suiteStartedMessageConstant,
		zap.String(suiteNameLogFieldConstant, string(suite)),
		zap.String(suiteRevisionLogFieldConstant, instance.Revision()),
	)

	if startError := instance.Start(executionContext); startError != nil {
		return nil, runner.failed(suite, instance.Revision(), startError)
	}
	defer func() {
		if stopError := instance.Stop(executionContext); stopError != nil {
			runner.logger.Warn(suiteStopFailureMessageConstant,
				zap.String(suiteNameLogFieldConstant, string(suite)),
				zap.String(suiteRevisionLogFieldConstant, instance.Revision()),
				zap.Error(stopError),
			)
		}
	}()

	testDetails := execshell.CommandDetails{
		Arguments: []string{
			npmRunSubcommandConstant,
			performanceTestScriptNameConstant,
			scriptArgumentSeparatorConstant,
			fmt.Sprintf(suiteSpecificationPathTemplateConstant, suite),
		},
		WorkingDirectory: trimmedSourceRoot,
		EnvironmentVariables: map[string]string{
			baseURLEnvironmentVariableNameConstant: runner.baseURL,
		},
	}
	if _, executionError := runner.executor.ExecuteNpm(executionContext, testDetails); executionError != nil {
		return nil, runner.failed(suite, instance.Revision(), executionError)
	}

	rawBundle, readError := readRawResults(trimmedSourceRoot, suite)
	if readError != nil {
		return nil, runner.failed(suite, instance.Revision(), readError)
	}

	curatedBundle, curationError := metrics.Curate(rawBundle)
	if curationError != nil {
		return nil, runner.failed(suite, instance.Revision(), curationError)
	}

	runner.logger.Info(suiteCompletedMessageConstant,
		zap.String(suiteNameLogFieldConstant, string(suite)),
		zap.String(suiteRevisionLogFieldConstant, instance.Revision()),
	)
	return curatedBundle, nil
}

func (runner *Runner) failed(suite SuiteName, revision string, cause error) error {
	failure := SuiteExecutionFailedError{Suite: suite, Revision: revision, Cause: cause}
	runner.logger.Error(failure.Error(),
		zap.String(suiteNameLogFieldConstant, string(suite)),
		zap.String(suiteRevisionLogFieldConstant, revision),
	)
	return failure
}

func readRawResults(sourceRoot string, suite SuiteName) (metrics.RawResultBundle, error) {
	resultsFilePath := filepath.Join(sourceRoot, fmt.Sprintf(suiteResultsPathTemplateConstant, suite))

	resultsContent, readError := os.ReadFile(resultsFilePath)
	if readError != nil {
		return nil, fmt.Errorf(resultsFileReadErrorTemplateConstant, resultsFilePath, readError)
	}

	rawBundle := metrics.RawResultBundle{}
	if parseError := json.Unmarshal(resultsContent, &rawBundle); parseError != nil {
		return nil, fmt.Errorf(resultsFileParseErrorTemplateConstant, resultsFilePath, parseError)
	}
	return rawBundle, nil
}
