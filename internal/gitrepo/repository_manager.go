// Package gitrepo wraps the git operations the provisioner needs to obtain
// revisions of the target system.
package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/tyemirov/perfcomp/internal/execshell"
)

const (
	gitCloneSubcommandConstant               = "clone"
	gitFetchSubcommandConstant               = "fetch"
	gitCheckoutSubcommandConstant            = "checkout"
	gitResetSubcommandConstant               = "reset"
	gitDepthFlagConstant                     = "--depth"
	gitHardFlagConstant                      = "--hard"
	repositoryPathFieldNameConstant          = "repository_path"
	remoteURLFieldNameConstant               = "remote_url"
	referenceFieldNameConstant               = "reference"
	destinationPathFieldNameConstant         = "destination_path"
	requiredValueMessageConstant             = "value required"
	executorNotConfiguredMessageConstant     = "git executor not configured"
	repositoryOperationErrorTemplateConstant = "%s operation failed"
	repositoryOperationErrorWithCauseFormat  = "%s operation failed: %s"
	invalidRepositoryInputTemplateConstant   = "%s: %s"
	cloneOperationNameConstant               = RepositoryOperationName("CloneRepository")
	fetchOperationNameConstant               = RepositoryOperationName("ShallowFetchReference")
	checkoutOperationNameConstant            = RepositoryOperationName("CheckoutReference")
	resetOperationNameConstant               = RepositoryOperationName("ResetHard")
)

// GitCommandExecutor exposes the subset of execshell functionality required by RepositoryManager.
type GitCommandExecutor interface {
	ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// RepositoryManager coordinates git operations through execshell.
type RepositoryManager struct {
	executor GitCommandExecutor
}

// ErrGitExecutorNotConfigured indicates the RepositoryManager was constructed without a git executor.
var ErrGitExecutorNotConfigured = errors.New(executorNotConfiguredMessageConstant)

// InvalidRepositoryInputError indicates validation failures for repository operations.
type InvalidRepositoryInputError struct {
	FieldName string
	Message   string
}

// Error describes the validation failure.
func (inputError InvalidRepositoryInputError) Error() string {
	return fmt.Sprintf(invalidRepositoryInputTemplateConstant, inputError.FieldName, inputError.Message)
}

// RepositoryOperationName captures descriptive names for repository operations.
type RepositoryOperationName string

// RepositoryOperationError wraps execution failures for git operations.
type RepositoryOperationError struct {
	Operation RepositoryOperationName
	Cause     error
}

// Error describes the repository operation failure.
func (operationError RepositoryOperationError) Error() string {
	if operationError.Cause == nil {
		return fmt.Sprintf(repositoryOperationErrorTemplateConstant, operationError.Operation)
	}
	return fmt.Sprintf(repositoryOperationErrorWithCauseFormat, operationError.Operation, operationError.Cause)
}

// Unwrap exposes the underlying error.
func (operationError RepositoryOperationError) Unwrap() error {
	return operationError.Cause
}

// NewRepositoryManager constructs a RepositoryManager for the provided executor.
func NewRepositoryManager(executor GitCommandExecutor) (*RepositoryManager, error) {
	if executor == nil {
		return nil, ErrGitExecutorNotConfigured
	}
	return &RepositoryManager{executor: executor}, nil
}

// CloneShallow clones the remote into destinationPath at the provided depth.
func (manager *RepositoryManager) CloneShallow(executionContext context.Context, remoteURL string, destinationPath string, depth int) error {
	trimmedRemote := strings.TrimSpace(remoteURL)
	if len(trimmedRemote) == 0 {
		return InvalidRepositoryInputError{FieldName: remoteURLFieldNameConstant, Message: requiredValueMessageConstant}
	}

	trimmedDestination := strings.TrimSpace(destinationPath)
	if len(trimmedDestination) == 0 {
		return InvalidRepositoryInputError{FieldName: destinationPathFieldNameConstant, Message: requiredValueMessageConstant}
	}

	commandArguments := []string{gitCloneSubcommandConstant}
	if depth > 0 {
		commandArguments = append(commandArguments, gitDepthFlagConstant, strconv.Itoa(depth))
	}
	commandArguments = append(commandArguments, trimmedRemote, trimmedDestination)

	commandDetails := execshell.CommandDetails{Arguments: commandArguments}

	_, executionError := manager.executor.ExecuteGit(executionContext, commandDetails)
	if executionError != nil {
		return RepositoryOperationError{Operation: cloneOperationNameConstant, Cause: executionError}
	}
	return nil
}

// ShallowFetchReference fetches a single reference from the remote at depth one.
func (manager *RepositoryManager) ShallowFetchReference(executionContext context.Context, repositoryPath string, remoteURL string, reference string) error {
	trimmedPath := strings.TrimSpace(repositoryPath)
	if len(trimmedPath) == 0 {
		return InvalidRepositoryInputError{FieldName: repositoryPathFieldNameConstant, Message: requiredValueMessageConstant}
	}

	trimmedRemote := strings.TrimSpace(remoteURL)
	if len(trimmedRemote) == 0 {
		return InvalidRepositoryInputError{FieldName: remoteURLFieldNameConstant, Message: requiredValueMessageConstant}
	}

	trimmedReference := strings.TrimSpace(reference)
	if len(trimmedReference) == 0 {
		return InvalidRepositoryInputError{FieldName: referenceFieldNameConstant, Message: requiredValueMessageConstant}
	}

	commandDetails := execshell.CommandDetails{
		Arguments:        []string{gitFetchSubcommandConstant, gitDepthFlagConstant, "1", trimmedRemote, trimmedReference},
		WorkingDirectory: trimmedPath,
	}

	_, executionError := manager.executor.ExecuteGit(executionContext, commandDetails)
	if executionError != nil {
		return RepositoryOperationError{Operation: fetchOperationNameConstant, Cause: executionError}
	}
	return nil
}

// CheckoutReference checks out the provided reference.
func (manager *RepositoryManager) CheckoutReference(executionContext context.Context, repositoryPath string, reference string) error {
	trimmedPath := strings.TrimSpace(repositoryPath)
	if len(trimmedPath) == 0 {
		return InvalidRepositoryInputError{FieldName: repositoryPathFieldNameConstant, Message: requiredValueMessageConstant}
	}

	trimmedReference := strings.TrimSpace(reference)
	if len(trimmedReference) == 0 {
		return InvalidRepositoryInputError{FieldName: referenceFieldNameConstant, Message: requiredValueMessageConstant}
	}

	commandDetails := execshell.CommandDetails{
		Arguments:        []string{gitCheckoutSubcommandConstant, trimmedReference},
		WorkingDirectory: trimmedPath,
	}

	_, executionError := manager.executor.ExecuteGit(executionContext, commandDetails)
	if executionError != nil {
		return RepositoryOperationError{Operation: checkoutOperationNameConstant, Cause: executionError}
	}
	return nil
}

// ResetHard discards local modifications, resetting the worktree to the provided reference.
func (manager *RepositoryManager) ResetHard(executionContext context.Context, repositoryPath string, reference string) error {
	trimmedPath := strings.TrimSpace(repositoryPath)
	if len(trimmedPath) == 0 {
		return InvalidRepositoryInputError{FieldName: repositoryPathFieldNameConstant, Message: requiredValueMessageConstant}
	}

	trimmedReference := strings.TrimSpace(reference)
	if len(trimmedReference) == 0 {
		return InvalidRepositoryInputError{FieldName: referenceFieldNameConstant, Message: requiredValueMessageConstant}
	}

	commandDetails := execshell.CommandDetails{
		Arguments:        []string{gitResetSubcommandConstant, gitHardFlagConstant, trimmedReference},
		WorkingDirectory: trimmedPath,
	}

	_, executionError := manager.executor.ExecuteGit(executionContext, commandDetails)
	if executionError != nil {
		return RepositoryOperationError{Operation: resetOperationNameConstant, Cause: executionError}
	}
	return nil
}
