// Package environment materializes and operates isolated, runnable instances
// of the target system, one per revision under comparison.
package environment

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/tyemirov/perfcomp/internal/execshell"
)

const (
	npmRunSubcommandConstant                  = "run"
	environmentToolScriptNameConstant         = "wp-env"
	environmentStartArgumentConstant          = "start"
	environmentStopArgumentConstant           = "stop"
	environmentStartMessageConstant           = "environment starting"
	environmentStopMessageConstant            = "environment stopping"
	revisionLogFieldNameConstant              = "revision"
	directoryLogFieldNameConstant             = "directory"
	runtimeExecutorMissingMessageConstant     = "environment npm executor not configured"
	environmentOperationErrorTemplateConstant = "environment %s failed for revision %s: %s"
)

// NpmCommandExecutor exposes the subset of execshell functionality required to operate environments.
type NpmCommandExecutor interface {
	ExecuteNpm(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// ErrNpmExecutorNotConfigured indicates an Environment was constructed without an npm executor.
var ErrNpmExecutorNotConfigured = errors.New(runtimeExecutorMissingMessageConstant)

// OperationError wraps start or stop failures with revision context.
type OperationError struct {
	Revision  string
	Operation string
	Cause     error
}

// Error describes the failed lifecycle operation.
func (operationError OperationError) Error() string {
	return fmt.Sprintf(environmentOperationErrorTemplateConstant, operationError.Operation, operationError.Revision, operationError.Cause)
}

// Unwrap exposes the underlying error.
func (operationError OperationError) Unwrap() error {
	return operationError.Cause
}

// Environment is a materialized, independently startable instance of the
// target system bound to one revision. Starting binds the fixed local port
// pair, so at most one environment may be running at a time.
type Environment struct {
	revision      string
	directoryPath string
	executor      NpmCommandExecutor
	logger        *zap.Logger
}

// NewEnvironment binds a materialized directory to its lifecycle executor.
func NewEnvironment(revision string, directoryPath string, executor NpmCommandExecutor, logger *zap.Logger) (*Environment, error) {
	if executor == nil {
		return nil, ErrNpmExecutorNotConfigured
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Environment{
		revision:      revision,
		directoryPath: directoryPath,
		executor:      executor,
		logger:        logger,
	}, nil
}

// Revision returns the revision this environment was built from.
func (instance *Environment) Revision() string {
	return instance.revision
}

// DirectoryPath returns the filesystem location owning the build artifacts.
func (instance *Environment) DirectoryPath() string {
	return instance.directoryPath
}

// Start brings the built instance up, blocking until the runtime reports readiness.
func (instance *Environment) Start(executionContext context.Context) error {
	instance.logger.Info(environmentStartMessageConstant,
		zap.String(revisionLogFieldNameConstant, instance.revision),
		zap.String(directoryLogFieldNameConstant, instance.directoryPath),
	)

	commandDetails := execshell.CommandDetails{
		Arguments:        []string{npmRunSubcommandConstant, environmentToolScriptNameConstant, environmentStartArgumentConstant},
		WorkingDirectory: instance.directoryPath,
	}
	if _, executionError := instance.executor.ExecuteNpm(executionContext, commandDetails); executionError != nil {
		return OperationError{Revision: instance.revision, Operation: environmentStartArgumentConstant, Cause: executionError}
	}
	return nil
}

// Stop tears the running instance down, releasing its port pair.
func (instance *Environment) Stop(executionContext context.Context) error {
	instance.logger.Info(environmentStopMessageConstant,
		zap.String(revisionLogFieldNameConstant, instance.revision),
		zap.String(directoryLogFieldNameConstant, instance.directoryPath),
	)

	commandDetails := execshell.CommandDetails{
		Arguments:        []string{npmRunSubcommandConstant, environmentToolScriptNameConstant, environmentStopArgumentConstant},
		WorkingDirectory: instance.directoryPath,
	}
	if _, executionError := instance.executor.ExecuteNpm(executionContext, commandDetails); executionError != nil {
		return OperationError{Revision: instance.revision, Operation: environmentStopArgumentConstant, Cause: executionError}
	}
	return nil
}
