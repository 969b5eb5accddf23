// Package flags provides helpers for reading standardized execution flags
// from Cobra commands.
package flags

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/tyemirov/perfcomp/internal/utils"
)

const (
	// UnattendedFlagName exposes the shared unattended-execution flag name.
	UnattendedFlagName = "ci"
	// RemoteFlagName exposes the shared remote flag name.
	RemoteFlagName = "remote"

	flagNotDefinedMessageConstant = "flag not defined"
)

// ErrFlagNotDefined indicates that the requested flag is not present on the command.
var ErrFlagNotDefined = errors.New(flagNotDefinedMessageConstant)

// BoolFlag returns the named boolean flag's value and whether it was set explicitly.
func BoolFlag(command *cobra.Command, name string) (bool, bool, error) {
	flagSet, flag := locateFlag(command, name)
	if flag == nil {
		return false, false, ErrFlagNotDefined
	}
	value, valueError := flagSet.GetBool(name)
	if valueError != nil {
		return false, false, valueError
	}
	return value, flag.Changed, nil
}

// StringFlag returns the named string flag's value and whether it was set explicitly.
func StringFlag(command *cobra.Command, name string) (string, bool, error) {
	flagSet, flag := locateFlag(command, name)
	if flag == nil {
		return "", false, ErrFlagNotDefined
	}
	value, valueError := flagSet.GetString(name)
	if valueError != nil {
		return "", false, valueError
	}
	return value, flag.Changed, nil
}

// IntFlag returns the named integer flag's value and whether it was set explicitly.
func IntFlag(command *cobra.Command, name string) (int, bool, error) {
	flagSet, flag := locateFlag(command, name)
	if flag == nil {
		return 0, false, ErrFlagNotDefined
	}
	value, valueError := flagSet.GetInt(name)
	if valueError != nil {
		return 0, false, valueError
	}
	return value, flag.Changed, nil
}

func locateFlag(command *cobra.Command, name string) (*pflag.FlagSet, *pflag.Flag) {
	if command == nil {
		return nil, nil
	}

	candidateSets := []*pflag.FlagSet{
		command.Flags(),
		command.PersistentFlags(),
		command.InheritedFlags(),
	}

	if rootCommand := command.Root(); rootCommand != nil {
		candidateSets = append(candidateSets, rootCommand.PersistentFlags())
	}

	for _, candidateSet := range candidateSets {
		if candidateSet == nil {
			continue
		}
		if locatedFlag := candidateSet.Lookup(name); locatedFlag != nil {
			return candidateSet, locatedFlag
		}
	}

	return nil, nil
}

// CollectExecutionFlags inspects the command's flags to produce execution flag values.
func CollectExecutionFlags(command *cobra.Command) utils.ExecutionFlags {
	executionFlags := utils.ExecutionFlags{}
	if command == nil {
		return executionFlags
	}

	if unattendedValue, unattendedChanged, unattendedError := BoolFlag(command, UnattendedFlagName); unattendedError == nil {
		executionFlags.Unattended = unattendedValue
		executionFlags.UnattendedSet = unattendedChanged
	}

	if remoteValue, remoteChanged, remoteError := StringFlag(command, RemoteFlagName); remoteError == nil {
		executionFlags.Remote = strings.TrimSpace(remoteValue)
		executionFlags.RemoteSet = remoteChanged
	}

	return executionFlags
}

// ResolveExecutionFlags returns execution flags from context or flag values, indicating whether any overrides are provided.
func ResolveExecutionFlags(command *cobra.Command) (utils.ExecutionFlags, bool) {
	contextAccessor := utils.NewCommandContextAccessor()
	if command != nil {
		if executionFlags, available := contextAccessor.ExecutionFlags(command.Context()); available {
			return executionFlags, true
		}
	}

	executionFlags := CollectExecutionFlags(command)
	available := executionFlags.UnattendedSet || executionFlags.RemoteSet
	return executionFlags, available
}
