// Package comparison orchestrates a full performance comparison run:
// revision resolution, environment materialization, trial scheduling,
// aggregation, and presentation.
package comparison

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/tyemirov/perfcomp/internal/environment"
	"github.com/tyemirov/perfcomp/internal/report"
	"github.com/tyemirov/perfcomp/internal/suite"
	"github.com/tyemirov/perfcomp/internal/trials"
)

const (
	workingCopyDirectoryNameConstant     = "source"
	environmentsDirectoryNameConstant    = "environments"
	shallowCloneDepthConstant            = 1
	confirmationPromptTemplateConstant   = "Compare revisions %s? [y/N] "
	revisionListSeparatorConstant        = ", "
	runDeclinedMessageConstant           = "comparison run declined"
	serviceProvisionerMissingMessage     = "comparison provisioner not configured"
	serviceClonerMissingMessageConstant  = "comparison cloner not configured"
	serviceSchedulerMissingMessage       = "comparison scheduler not configured"
	servicePresenterMissingMessage       = "comparison presenter not configured"
	revisionsResolvedMessageConstant     = "revisions resolved"
	workingRootReadyMessageConstant      = "working root ready"
	environmentsRemovedMessageConstant   = "environments removed"
	environmentsRetainedMessageConstant  = "environments retained"
	environmentCleanupFailureMessage     = "environment cleanup failed"
	revisionsLogFieldNameConstant        = "revisions"
	workingRootLogFieldNameConstant      = "working_root"
	workingRootCreationErrorTemplate     = "unable to create working root: %w"
	environmentsRootCreationTemplate     = "unable to create environments root %s: %w"
	workingRootTemporaryPatternConstant  = "perfcomp-"
)

// WorkingCopyCloner obtains the shared working copy the provisioner fetches into.
type WorkingCopyCloner interface {
	CloneShallow(executionContext context.Context, remoteURL string, destinationPath string, depth int) error
}

// EnvironmentProvisioner materializes one environment per revision.
type EnvironmentProvisioner interface {
	Materialize(executionContext context.Context, revision string, destinationPath string, options environment.MaterializeOptions) (*environment.Environment, error)
}

// TrialScheduler runs the interleaved trial rounds.
type TrialScheduler interface {
	RunTrials(executionContext context.Context, suites []suite.SuiteName, revisions []string, environments map[string]*environment.Environment, roundCount int, sourceRoot string) (trials.TrialResults, error)
}

// ResultPresenter renders and persists aggregated results.
type ResultPresenter interface {
	RenderTables(aggregatedResults report.AggregatedResults) error
	PersistArtifacts(aggregatedResults report.AggregatedResults, outputDirectory string) error
}

// ConfirmationPrompter asks the operator to confirm attended runs.
type ConfirmationPrompter interface {
	Confirm(prompt string) (bool, error)
}

// Initialization errors.
var (
	ErrClonerNotConfigured      = errors.New(serviceClonerMissingMessageConstant)
	ErrProvisionerNotConfigured = errors.New(serviceProvisionerMissingMessage)
	ErrSchedulerNotConfigured   = errors.New(serviceSchedulerMissingMessage)
	ErrPresenterNotConfigured   = errors.New(servicePresenterMissingMessage)
)

// ErrRunDeclined indicates the operator declined the confirmation prompt.
var ErrRunDeclined = errors.New(runDeclinedMessageConstant)

// ServiceDependencies describes the collaborators a Service requires.
type ServiceDependencies struct {
	Cloner      WorkingCopyCloner
	Provisioner EnvironmentProvisioner
	Scheduler   TrialScheduler
	Presenter   ResultPresenter
	Prompter    ConfirmationPrompter
	Logger      *zap.Logger
}

// Service executes comparison runs end to end on a single logical thread.
// Any failure aborts the run; nothing is retried.
type Service struct {
	cloner      WorkingCopyCloner
	provisioner EnvironmentProvisioner
	scheduler   TrialScheduler
	presenter   ResultPresenter
	prompter    ConfirmationPrompter
	logger      *zap.Logger
}

// NewService validates dependencies and constructs a Service. The prompter is
// optional; without one, attended confirmation is skipped.
func NewService(dependencies ServiceDependencies) (*Service, error) {
	if dependencies.Cloner == nil {
		return nil, ErrClonerNotConfigured
	}
	if dependencies.Provisioner == nil {
		return nil, ErrProvisionerNotConfigured
	}
	if dependencies.Scheduler == nil {
		return nil, ErrSchedulerNotConfigured
	}
	if dependencies.Presenter == nil {
		return nil, ErrPresenterNotConfigured
	}

	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		cloner:      dependencies.Cloner,
		provisioner: dependencies.Provisioner,
		scheduler:   dependencies.Scheduler,
		presenter:   dependencies.Presenter,
		prompter:    dependencies.Prompter,
		logger:      logger,
	}, nil
}

// WorkingCopyPath returns the shared checkout location under the working root.
func WorkingCopyPath(workingRoot string) string {
	return filepath.Join(workingRoot, workingCopyDirectoryNameConstant)
}

// EnsureWorkingRoot returns the configured working root, creating a temporary
// one when none is configured.
func EnsureWorkingRoot(configuredRoot string) (string, error) {
	trimmedRoot := strings.TrimSpace(configuredRoot)
	if len(trimmedRoot) > 0 {
		return trimmedRoot, nil
	}
	temporaryRoot, creationError := os.MkdirTemp("", workingRootTemporaryPatternConstant)
	if creationError != nil {
		return "", fmt.Errorf(workingRootCreationErrorTemplate, creationError)
	}
	return temporaryRoot, nil
}

// Execute runs one full comparison per the resolved configuration.
func (service *Service) Execute(executionContext context.Context, configuration RunConfiguration) error {
	resolvedConfiguration := configuration.WithDefaults()

	revisions, resolutionError := resolvedConfiguration.ResolveRevisions()
	if resolutionError != nil {
		return resolutionError
	}
	service.logger.Info(revisionsResolvedMessageConstant,
		zap.Strings(revisionsLogFieldNameConstant, revisions),
	)

	if !resolvedConfiguration.Unattended && service.prompter != nil {
		confirmationPrompt := fmt.Sprintf(confirmationPromptTemplateConstant, strings.Join(revisions, revisionListSeparatorConstant))
		confirmed, confirmError := service.prompter.Confirm(confirmationPrompt)
		if confirmError != nil {
			return confirmError
		}
		if !confirmed {
			return ErrRunDeclined
		}
	}

	workingRoot, rootError := EnsureWorkingRoot(resolvedConfiguration.WorkingRoot)
	if rootError != nil {
		return rootError
	}
	service.logger.Info(workingRootReadyMessageConstant,
		zap.String(workingRootLogFieldNameConstant, workingRoot),
	)

	workingCopyPath := WorkingCopyPath(workingRoot)
	if cloneError := service.cloner.CloneShallow(executionContext, resolvedConfiguration.RemoteURL, workingCopyPath, shallowCloneDepthConstant); cloneError != nil {
		return cloneError
	}

	environmentsRoot := filepath.Join(workingRoot, environmentsDirectoryNameConstant)
	if directoryError := os.MkdirAll(environmentsRoot, 0o755); directoryError != nil {
		return fmt.Errorf(environmentsRootCreationTemplate, environmentsRoot, directoryError)
	}

	environments := map[string]*environment.Environment{}
	for _, revision := range revisions {
		destinationPath := filepath.Join(environmentsRoot, DirectorySafeRevisionName(revision))
		materializeOptions := environment.MaterializeOptions{BaseVersion: resolvedConfiguration.BaseVersion}
		instance, materializeError := service.provisioner.Materialize(executionContext, revision, destinationPath, materializeOptions)
		if materializeError != nil {
			return materializeError
		}
		environments[revision] = instance
	}
	defer service.cleanupEnvironments(environmentsRoot, resolvedConfiguration.KeepEnvironments)

	testsDirectory := strings.TrimSpace(resolvedConfiguration.TestsDirectory)
	if len(testsDirectory) == 0 {
		testsDirectory = workingCopyPath
	}

	trialResults, trialError := service.scheduler.RunTrials(
		executionContext,
		suite.SuiteNames(),
		revisions,
		environments,
		resolvedConfiguration.RoundCount,
		testsDirectory,
	)
	if trialError != nil {
		return trialError
	}

	aggregatedResults := report.Aggregate(trialResults)
	if renderError := service.presenter.RenderTables(aggregatedResults); renderError != nil {
		return renderError
	}
	return service.presenter.PersistArtifacts(aggregatedResults, resolvedConfiguration.OutputDirectory)
}

func (service *Service) cleanupEnvironments(environmentsRoot string, keepEnvironments bool) {
	if keepEnvironments {
		service.logger.Info(environmentsRetainedMessageConstant,
			zap.String(workingRootLogFieldNameConstant, environmentsRoot),
		)
		return
	}
	if removalError := os.RemoveAll(environmentsRoot); removalError != nil {
		service.logger.Warn(environmentCleanupFailureMessage,
			zap.String(workingRootLogFieldNameConstant, environmentsRoot),
			zap.Error(removalError),
		)
		return
	}
	service.logger.Info(environmentsRemovedMessageConstant,
		zap.String(workingRootLogFieldNameConstant, environmentsRoot),
	)
}
