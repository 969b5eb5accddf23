package environment_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tyemirov/perfcomp/internal/environment"
	"github.com/tyemirov/perfcomp/internal/execshell"
)

const (
	environmentSubtestNameTemplateConstant = "%d_%s"
	testRevisionNameConstant               = "trunk"
	testEnvironmentDirectoryConstant       = "/tmp/perf-envs/trunk"
	testNpmFailureMessageConstant          = "npm invocation failed"
)

type recordingNpmExecutor struct {
	recordedNpmDetails  []execshell.CommandDetails
	recordedCopyDetails []execshell.CommandDetails
	npmError            error
	copyError           error
}

func (executor *recordingNpmExecutor) ExecuteNpm(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error) {
	executor.recordedNpmDetails = append(executor.recordedNpmDetails, details)
	return execshell.ExecutionResult{}, executor.npmError
}

func (executor *recordingNpmExecutor) ExecuteCopy(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error) {
	executor.recordedCopyDetails = append(executor.recordedCopyDetails, details)
	return execshell.ExecutionResult{}, executor.copyError
}

func TestNewEnvironmentRequiresExecutor(testInstance *testing.T) {
	instance, creationError := environment.NewEnvironment(testRevisionNameConstant, testEnvironmentDirectoryConstant, nil, nil)
	require.ErrorIs(testInstance, creationError, environment.ErrNpmExecutorNotConfigured)
	require.Nil(testInstance, instance)
}

func TestEnvironmentLifecycleCommands(testInstance *testing.T) {
	testCases := []struct {
		name              string
		invoke            func(instance *environment.Environment) error
		expectedArguments []string
	}{
		{
			name: "start",
			invoke: func(instance *environment.Environment) error {
				return instance.Start(context.Background())
			},
			expectedArguments: []string{"run", "wp-env", "start"},
		},
		{
			name: "stop",
			invoke: func(instance *environment.Environment) error {
				return instance.Stop(context.Background())
			},
			expectedArguments: []string{"run", "wp-env", "stop"},
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf(environmentSubtestNameTemplateConstant, testCaseIndex, testCase.name), func(testInstance *testing.T) {
			executor := &recordingNpmExecutor{}
			instance, creationError := environment.NewEnvironment(testRevisionNameConstant, testEnvironmentDirectoryConstant, executor, nil)
			require.NoError(testInstance, creationError)

			require.NoError(testInstance, testCase.invoke(instance))
			require.Len(testInstance, executor.recordedNpmDetails, 1)
			require.Equal(testInstance, testCase.expectedArguments, executor.recordedNpmDetails[0].Arguments)
			require.Equal(testInstance, testEnvironmentDirectoryConstant, executor.recordedNpmDetails[0].WorkingDirectory)
		})
	}
}

func TestEnvironmentWrapsLifecycleFailures(testInstance *testing.T) {
	executor := &recordingNpmExecutor{npmError: errors.New(testNpmFailureMessageConstant)}
	instance, creationError := environment.NewEnvironment(testRevisionNameConstant, testEnvironmentDirectoryConstant, executor, nil)
	require.NoError(testInstance, creationError)

	startError := instance.Start(context.Background())

	var operationError environment.OperationError
	require.ErrorAs(testInstance, startError, &operationError)
	require.Equal(testInstance, testRevisionNameConstant, operationError.Revision)
	require.Equal(testInstance, "start", operationError.Operation)
	require.ErrorContains(testInstance, operationError.Cause, testNpmFailureMessageConstant)
}

func TestEnvironmentAccessors(testInstance *testing.T) {
	executor := &recordingNpmExecutor{}
	instance, creationError := environment.NewEnvironment(testRevisionNameConstant, testEnvironmentDirectoryConstant, executor, nil)
	require.NoError(testInstance, creationError)
	require.Equal(testInstance, testRevisionNameConstant, instance.Revision())
	require.Equal(testInstance, testEnvironmentDirectoryConstant, instance.DirectoryPath())
}
