package utils_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tyemirov/perfcomp/internal/utils"
)

func TestCommandContextAccessorRoundTrip(testInstance *testing.T) {
	accessor := utils.NewCommandContextAccessor()

	executionContext := accessor.WithConfigurationFilePath(context.Background(), "/etc/perfcomp/config.yaml")
	executionContext = accessor.WithLogLevel(executionContext, "debug")
	executionContext = accessor.WithExecutionFlags(executionContext, utils.ExecutionFlags{Unattended: true, UnattendedSet: true})

	configurationFilePath, pathAvailable := accessor.ConfigurationFilePath(executionContext)
	require.True(testInstance, pathAvailable)
	require.Equal(testInstance, "/etc/perfcomp/config.yaml", configurationFilePath)

	logLevel, levelAvailable := accessor.LogLevel(executionContext)
	require.True(testInstance, levelAvailable)
	require.Equal(testInstance, "debug", logLevel)

	executionFlags, flagsAvailable := accessor.ExecutionFlags(executionContext)
	require.True(testInstance, flagsAvailable)
	require.True(testInstance, executionFlags.Unattended)
	require.True(testInstance, executionFlags.UnattendedSet)
}

func TestCommandContextAccessorMissingValues(testInstance *testing.T) {
	accessor := utils.NewCommandContextAccessor()

	_, pathAvailable := accessor.ConfigurationFilePath(context.Background())
	require.False(testInstance, pathAvailable)

	_, levelAvailable := accessor.LogLevel(context.Background())
	require.False(testInstance, levelAvailable)

	_, flagsAvailable := accessor.ExecutionFlags(nil)
	require.False(testInstance, flagsAvailable)
}

func TestWithLogLevelIgnoresBlankValues(testInstance *testing.T) {
	accessor := utils.NewCommandContextAccessor()

	executionContext := accessor.WithLogLevel(context.Background(), "   ")

	_, levelAvailable := accessor.LogLevel(executionContext)
	require.False(testInstance, levelAvailable)
}
