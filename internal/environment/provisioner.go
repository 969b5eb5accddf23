package environment

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/tyemirov/perfcomp/internal/execshell"
)

const (
	npmCleanInstallSubcommandConstant        = "ci"
	npmBuildScriptNameConstant               = "build"
	copyRecursiveFlagConstant                = "-R"
	provisioningStepLogFieldNameConstant     = "step"
	provisioningStartMessageConstant         = "materializing environment"
	provisioningCompletedMessageConstant     = "environment materialized"
	gitManagerMissingMessageConstant         = "provisioner git manager not configured"
	provisionShellExecutorMissingMessage     = "provisioner shell executor not configured"
	remoteURLMissingMessageConstant          = "provisioner remote URL not configured"
	workingCopyPathMissingMessageConstant    = "provisioner working copy path not configured"
	provisioningFailedErrorTemplateConstant  = "provisioning %s failed at step %s (exit code %d): %s"
	provisioningUnknownExitCodeValueConstant = -1
)

// ProvisioningStep names one stage of environment materialization.
type ProvisioningStep string

// Materialization stages, in execution order.
const (
	StepFetchRevision       ProvisioningStep = "fetch-revision"
	StepCheckoutRevision    ProvisioningStep = "checkout-revision"
	StepCopyWorkingCopy     ProvisioningStep = "copy-working-copy"
	StepInstallDependencies ProvisioningStep = "install-dependencies"
	StepBuildTarget         ProvisioningStep = "build-target"
	StepWriteConfiguration  ProvisioningStep = "write-environment-configuration"
	StepPatchBasePlatform   ProvisioningStep = "patch-base-platform"
)

// RevisionManager exposes the git operations materialization depends on.
type RevisionManager interface {
	ShallowFetchReference(executionContext context.Context, repositoryPath string, remoteURL string, reference string) error
	CheckoutReference(executionContext context.Context, repositoryPath string, reference string) error
	ResetHard(executionContext context.Context, repositoryPath string, reference string) error
}

// ProvisioningExecutor exposes the shell operations materialization depends on.
type ProvisioningExecutor interface {
	ExecuteNpm(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
	ExecuteCopy(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// MaterializeOptions carries optional materialization parameters.
type MaterializeOptions struct {
	BaseVersion string
}

// ProvisioningFailedError reports which materialization step failed and the
// exit status of the underlying process when one is available. Partial
// destination directories are left in place for diagnosis.
type ProvisioningFailedError struct {
	Revision string
	Step     ProvisioningStep
	ExitCode int
	Cause    error
}

// Error describes the provisioning failure.
func (provisioningError ProvisioningFailedError) Error() string {
	return fmt.Sprintf(
		provisioningFailedErrorTemplateConstant,
		provisioningError.Revision,
		provisioningError.Step,
		provisioningError.ExitCode,
		provisioningError.Cause,
	)
}

// Unwrap exposes the underlying error.
func (provisioningError ProvisioningFailedError) Unwrap() error {
	return provisioningError.Cause
}

var (
	// ErrGitManagerNotConfigured indicates the provisioner was constructed without a revision manager.
	ErrGitManagerNotConfigured = errors.New(gitManagerMissingMessageConstant)
	// ErrShellExecutorNotConfigured indicates the provisioner was constructed without a shell executor.
	ErrShellExecutorNotConfigured = errors.New(provisionShellExecutorMissingMessage)
	// ErrRemoteURLNotConfigured indicates the provisioner was constructed without a remote URL.
	ErrRemoteURLNotConfigured = errors.New(remoteURLMissingMessageConstant)
	// ErrWorkingCopyPathNotConfigured indicates the provisioner was constructed without a working copy path.
	ErrWorkingCopyPathNotConfigured = errors.New(workingCopyPathMissingMessageConstant)
)

// ProvisionerDependencies describes the collaborators a Provisioner requires.
type ProvisionerDependencies struct {
	RevisionManager           RevisionManager
	ShellExecutor             ProvisioningExecutor
	Logger                    *zap.Logger
	RemoteURL                 string
	WorkingCopyPath           string
	ConfigurationTemplateFile string
}

// Provisioner materializes one isolated environment per revision. A single
// shared working copy receives fetches and checkouts; each destination is a
// fresh copy of that working copy, built and configured independently.
type Provisioner struct {
	revisionManager           RevisionManager
	shellExecutor             ProvisioningExecutor
	logger                    *zap.Logger
	remoteURL                 string
	workingCopyPath           string
	configurationTemplateFile string
}

// NewProvisioner validates dependencies and constructs a Provisioner.
func NewProvisioner(dependencies ProvisionerDependencies) (*Provisioner, error) {
	if dependencies.RevisionManager == nil {
		return nil, ErrGitManagerNotConfigured
	}
	if dependencies.ShellExecutor == nil {
		return nil, ErrShellExecutorNotConfigured
	}
	if len(strings.TrimSpace(dependencies.RemoteURL)) == 0 {
		return nil, ErrRemoteURLNotConfigured
	}
	if len(strings.TrimSpace(dependencies.WorkingCopyPath)) == 0 {
		return nil, ErrWorkingCopyPathNotConfigured
	}

	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Provisioner{
		revisionManager:           dependencies.RevisionManager,
		shellExecutor:             dependencies.ShellExecutor,
		logger:                    logger,
		remoteURL:                 strings.TrimSpace(dependencies.RemoteURL),
		workingCopyPath:           strings.TrimSpace(dependencies.WorkingCopyPath),
		configurationTemplateFile: strings.TrimSpace(dependencies.ConfigurationTemplateFile),
	}, nil
}

// Materialize produces an isolated, runnable instance of the target system
// for the revision. Each call must target a fresh destination directory;
// re-using an existing destination is not supported.
func (provisioner *Provisioner) Materialize(executionContext context.Context, revision string, destinationPath string, options MaterializeOptions) (*Environment, error) {
	provisioner.logger.Info(provisioningStartMessageConstant,
		zap.String(revisionLogFieldNameConstant, revision),
		zap.String(directoryLogFieldNameConstant, destinationPath),
	)

	if fetchError := provisioner.revisionManager.ShallowFetchReference(executionContext, provisioner.workingCopyPath, provisioner.remoteURL, revision); fetchError != nil {
		return nil, provisioner.failedStep(revision, StepFetchRevision, fetchError)
	}

	if resetError := provisioner.revisionManager.ResetHard(executionContext, provisioner.workingCopyPath, fetchHeadReference); resetError != nil {
		return nil, provisioner.failedStep(revision, StepCheckoutRevision, resetError)
	}
	if checkoutError := provisioner.revisionManager.CheckoutReference(executionContext, provisioner.workingCopyPath, fetchHeadReference); checkoutError != nil {
		return nil, provisioner.failedStep(revision, StepCheckoutRevision, checkoutError)
	}

	copyDetails := execshell.CommandDetails{
		Arguments: []string{copyRecursiveFlagConstant, provisioner.workingCopyPath, destinationPath},
	}
	if _, copyError := provisioner.shellExecutor.ExecuteCopy(executionContext, copyDetails); copyError != nil {
		return nil, provisioner.failedStep(revision, StepCopyWorkingCopy, copyError)
	}

	installDetails := execshell.CommandDetails{
		Arguments:        []string{npmCleanInstallSubcommandConstant},
		WorkingDirectory: destinationPath,
	}
	if _, installError := provisioner.shellExecutor.ExecuteNpm(executionContext, installDetails); installError != nil {
		return nil, provisioner.failedStep(revision, StepInstallDependencies, installError)
	}

	buildDetails := execshell.CommandDetails{
		Arguments:        []string{npmRunSubcommandConstant, npmBuildScriptNameConstant},
		WorkingDirectory: destinationPath,
	}
	if _, buildError := provisioner.shellExecutor.ExecuteNpm(executionContext, buildDetails); buildError != nil {
		return nil, provisioner.failedStep(revision, StepBuildTarget, buildError)
	}

	configurationFilePath := filepath.Join(destinationPath, environmentConfigurationFileNameConstant)
	if len(provisioner.configurationTemplateFile) > 0 {
		if templateError := WriteConfigurationFromTemplate(provisioner.configurationTemplateFile, configurationFilePath); templateError != nil {
			return nil, provisioner.failedStep(revision, StepWriteConfiguration, templateError)
		}
	}

	if len(strings.TrimSpace(options.BaseVersion)) > 0 {
		if patchError := PatchCorePlatformReference(configurationFilePath, options.BaseVersion); patchError != nil {
			return nil, provisioner.failedStep(revision, StepPatchBasePlatform, patchError)
		}
	}

	provisioner.logger.Info(provisioningCompletedMessageConstant,
		zap.String(revisionLogFieldNameConstant, revision),
		zap.String(directoryLogFieldNameConstant, destinationPath),
	)

	return NewEnvironment(revision, destinationPath, provisioner.shellExecutor, provisioner.logger)
}

const fetchHeadReference = "FETCH_HEAD"

func (provisioner *Provisioner) failedStep(revision string, step ProvisioningStep, cause error) error {
	exitCode := provisioningUnknownExitCodeValueConstant

	var commandFailedError execshell.CommandFailedError
	if errors.As(cause, &commandFailedError) {
		exitCode = commandFailedError.Result.ExitCode
	}

	failure := ProvisioningFailedError{Revision: revision, Step: step, ExitCode: exitCode, Cause: cause}
	provisioner.logger.Error(failure.Error(),
		zap.String(revisionLogFieldNameConstant, revision),
		zap.String(provisioningStepLogFieldNameConstant, string(step)),
	)
	return failure
}
