package flags_test

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/tyemirov/perfcomp/internal/utils"
	flagutils "github.com/tyemirov/perfcomp/internal/utils/flags"
)

func newFlaggedCommand() *cobra.Command {
	command := &cobra.Command{Use: "flagged"}
	command.Flags().Bool(flagutils.UnattendedFlagName, false, "")
	command.Flags().String(flagutils.RemoteFlagName, "", "")
	command.Flags().Int("rounds", 3, "")
	return command
}

func TestFlagLookupsReportValueAndChangedState(testInstance *testing.T) {
	command := newFlaggedCommand()
	require.NoError(testInstance, command.Flags().Set(flagutils.UnattendedFlagName, "true"))
	require.NoError(testInstance, command.Flags().Set("rounds", "7"))

	unattendedValue, unattendedChanged, unattendedError := flagutils.BoolFlag(command, flagutils.UnattendedFlagName)
	require.NoError(testInstance, unattendedError)
	require.True(testInstance, unattendedValue)
	require.True(testInstance, unattendedChanged)

	remoteValue, remoteChanged, remoteError := flagutils.StringFlag(command, flagutils.RemoteFlagName)
	require.NoError(testInstance, remoteError)
	require.Empty(testInstance, remoteValue)
	require.False(testInstance, remoteChanged)

	roundsValue, roundsChanged, roundsError := flagutils.IntFlag(command, "rounds")
	require.NoError(testInstance, roundsError)
	require.Equal(testInstance, 7, roundsValue)
	require.True(testInstance, roundsChanged)
}

func TestFlagLookupsReportUndefinedFlags(testInstance *testing.T) {
	command := &cobra.Command{Use: "bare"}

	_, _, lookupError := flagutils.StringFlag(command, "missing")
	require.ErrorIs(testInstance, lookupError, flagutils.ErrFlagNotDefined)
}

func TestCollectExecutionFlags(testInstance *testing.T) {
	command := newFlaggedCommand()
	require.NoError(testInstance, command.Flags().Set(flagutils.UnattendedFlagName, "true"))
	require.NoError(testInstance, command.Flags().Set(flagutils.RemoteFlagName, "  https://example.test/fork.git  "))

	executionFlags := flagutils.CollectExecutionFlags(command)

	require.True(testInstance, executionFlags.Unattended)
	require.True(testInstance, executionFlags.UnattendedSet)
	require.Equal(testInstance, "https://example.test/fork.git", executionFlags.Remote)
	require.True(testInstance, executionFlags.RemoteSet)
}

func TestResolveExecutionFlagsPrefersContextValues(testInstance *testing.T) {
	command := newFlaggedCommand()
	require.NoError(testInstance, command.Flags().Set(flagutils.UnattendedFlagName, "true"))

	contextAccessor := utils.NewCommandContextAccessor()
	commandContext := contextAccessor.WithExecutionFlags(nil, utils.ExecutionFlags{Remote: "https://example.test/context.git", RemoteSet: true})
	command.SetContext(commandContext)

	resolvedFlags, available := flagutils.ResolveExecutionFlags(command)

	require.True(testInstance, available)
	require.Equal(testInstance, "https://example.test/context.git", resolvedFlags.Remote)
	require.False(testInstance, resolvedFlags.Unattended)
}

func TestResolveExecutionFlagsFallsBackToFlagValues(testInstance *testing.T) {
	command := newFlaggedCommand()
	require.NoError(testInstance, command.Flags().Set(flagutils.RemoteFlagName, "https://example.test/flag.git"))

	resolvedFlags, available := flagutils.ResolveExecutionFlags(command)

	require.True(testInstance, available)
	require.Equal(testInstance, "https://example.test/flag.git", resolvedFlags.Remote)
	require.True(testInstance, resolvedFlags.RemoteSet)
}
