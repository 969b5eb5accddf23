// Package cli wires the perfcomp root command, configuration loader, and
// structured logger.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	comparecmd "github.com/tyemirov/perfcomp/cmd/cli/compare"
	probecmd "github.com/tyemirov/perfcomp/cmd/cli/probe"
	"github.com/tyemirov/perfcomp/internal/utils"
	flagutils "github.com/tyemirov/perfcomp/internal/utils/flags"
	"github.com/tyemirov/perfcomp/internal/version"
)

const (
	applicationNameConstant             = "perfcomp"
	applicationShortDescriptionConstant = "Editor performance comparison harness"
	applicationLongDescriptionConstant  = "perfcomp compares editor performance across revisions by provisioning isolated environments and running measurement suites in alternating rounds."
	configFileFlagNameConstant          = "config"
	configFileFlagUsageConstant         = "Optional path to a configuration file (YAML or JSON)."
	logLevelFlagNameConstant            = "log-level"
	logLevelFlagUsageConstant           = "Override the configured log level."
	logFormatFlagNameConstant           = "log-format"
	logFormatFlagUsageConstant          = "Override the configured log format (structured or console)."
	versionFlagNameConstant             = "version"
	versionFlagUsageConstant            = "Print the application version and exit"
	versionOutputTemplateConstant       = "perfcomp version: %s\n"
	versionCommandUseNameConstant       = "version"
	versionCommandShortDescription      = "Print the perfcomp version"
	versionCommandLongDescription       = "version prints the current perfcomp release identifier."
	commonConfigurationKeyConstant      = "common"
	commonLogLevelConfigKeyConstant     = commonConfigurationKeyConstant + ".log_level"
	commonLogFormatConfigKeyConstant    = commonConfigurationKeyConstant + ".log_format"
	compareRemoteConfigKeyConstant      = "compare.remote"
	compareRoundsConfigKeyConstant      = "compare.rounds"
	compareMergeRefConfigKeyConstant    = "compare.merge_ref"
	compareBaseRefConfigKeyConstant     = "compare.base_ref"
	probeSamplesConfigKeyConstant       = "probe.samples"
	defaultCompareRemoteConstant        = "https://github.com/WordPress/gutenberg.git"
	defaultCompareRoundsConstant        = 3
	defaultProbeSamplesConstant         = 3
	environmentPrefixConstant           = "PERFCOMP"
	configurationNameConstant           = "config"
	configurationTypeConstant           = "yaml"
	defaultConfigurationSearchPath      = "."
	configurationLoadErrorTemplate      = "unable to load configuration: %w"
	loggerCreationErrorTemplate         = "unable to create logger: %w"
	loggerSyncErrorTemplateConstant     = "unable to flush logger: %w"
	configurationInitializedMessage     = "configuration initialized"
	logLevelLogFieldNameConstant        = "log_level"
	logFormatLogFieldNameConstant       = "log_format"
	configFileLogFieldNameConstant      = "config_file"
)

// ApplicationConfiguration describes the persisted configuration for the CLI entrypoint.
type ApplicationConfiguration struct {
	Common  ApplicationCommonConfiguration  `mapstructure:"common"`
	Compare comparecmd.CommandConfiguration `mapstructure:"compare"`
	Probe   probecmd.CommandConfiguration   `mapstructure:"probe"`
}

// ApplicationCommonConfiguration stores logging defaults shared across commands.
type ApplicationCommonConfiguration struct {
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

type loggerOutputsFactory interface {
	CreateLoggerOutputs(utils.LogLevel, utils.LogFormat) (utils.LoggerOutputs, error)
}

// Application wires the Cobra root command, configuration loader, and structured logger.
type Application struct {
	rootCommand            *cobra.Command
	configurationLoader    *utils.ConfigurationLoader
	loggerFactory          loggerOutputsFactory
	logger                 *zap.Logger
	consoleLogger          *zap.Logger
	configuration          ApplicationConfiguration
	configurationMetadata  utils.LoadedConfiguration
	configurationFilePath  string
	logLevelFlagValue      string
	logFormatFlagValue     string
	commandContextAccessor utils.CommandContextAccessor
	versionFlag            bool
	versionResolver        func(context.Context) string
	exitFunction           func(int)
}

// NewApplication assembles a fully wired CLI application instance.
func NewApplication() *Application {
	application := &Application{
		loggerFactory:          utils.NewLoggerFactory(),
		logger:                 zap.NewNop(),
		consoleLogger:          zap.NewNop(),
		commandContextAccessor: utils.NewCommandContextAccessor(),
	}
	application.versionResolver = application.resolveVersion
	application.exitFunction = os.Exit

	application.configurationLoader = utils.NewConfigurationLoader(
		configurationNameConstant,
		configurationTypeConstant,
		environmentPrefixConstant,
		[]string{defaultConfigurationSearchPath},
	)

	cobraCommand := &cobra.Command{
		Use:           applicationNameConstant,
		Short:         applicationShortDescriptionConstant,
		Long:          applicationLongDescriptionConstant,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(command *cobra.Command, arguments []string) error {
			if initializationError := application.initializeConfiguration(command); initializationError != nil {
				return initializationError
			}

			if application.versionFlag {
				application.printVersion(command)
				application.exitFunction(0)
			}
			return nil
		},
		RunE: func(command *cobra.Command, arguments []string) error {
			return command.Help()
		},
	}

	cobraCommand.SetContext(context.Background())
	cobraCommand.PersistentFlags().StringVar(&application.configurationFilePath, configFileFlagNameConstant, "", configFileFlagUsageConstant)
	cobraCommand.PersistentFlags().StringVar(&application.logLevelFlagValue, logLevelFlagNameConstant, "", logLevelFlagUsageConstant)
	cobraCommand.PersistentFlags().StringVar(&application.logFormatFlagValue, logFormatFlagNameConstant, "", logFormatFlagUsageConstant)
	cobraCommand.PersistentFlags().BoolVar(&application.versionFlag, versionFlagNameConstant, false, versionFlagUsageConstant)

	versionCommand := &cobra.Command{
		Use:           versionCommandUseNameConstant,
		Short:         versionCommandShortDescription,
		Long:          versionCommandLongDescription,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(command *cobra.Command, arguments []string) error {
			application.printVersion(command)
			return nil
		},
	}
	cobraCommand.AddCommand(versionCommand)

	compareBuilder := comparecmd.CommandBuilder{
		LoggerProvider: func() *zap.Logger {
			return application.logger
		},
		HumanReadableLoggingProvider: application.humanReadableLoggingEnabled,
		ConfigurationProvider: func() comparecmd.CommandConfiguration {
			return application.configuration.Compare
		},
	}
	if compareCommand, compareBuildError := compareBuilder.Build(); compareBuildError == nil {
		cobraCommand.AddCommand(compareCommand)
	}

	probeBuilder := probecmd.CommandBuilder{
		LoggerProvider: func() *zap.Logger {
			return application.logger
		},
		ConfigurationProvider: func() probecmd.CommandConfiguration {
			return application.configuration.Probe
		},
	}
	if probeCommand, probeBuildError := probeBuilder.Build(); probeBuildError == nil {
		cobraCommand.AddCommand(probeCommand)
	}

	application.rootCommand = cobraCommand

	return application
}

// Execute runs the configured Cobra command hierarchy and ensures logger flushing.
func (application *Application) Execute() error {
	application.rootCommand.SetArgs(os.Args[1:])

	executionError := application.rootCommand.Execute()
	if syncError := application.flushLogger(); syncError != nil {
		return fmt.Errorf(loggerSyncErrorTemplateConstant, syncError)
	}
	return executionError
}

// Execute builds a fresh application instance and executes the root command hierarchy.
func Execute() error {
	return NewApplication().Execute()
}

func (application *Application) initializeConfiguration(command *cobra.Command) error {
	// Viper only surfaces automatic-env values for keys it already knows, so
	// the inference refs carry empty defaults to stay overridable from the
	// environment.
	defaultValues := map[string]any{
		commonLogLevelConfigKeyConstant:  string(utils.LogLevelInfo),
		commonLogFormatConfigKeyConstant: string(utils.LogFormatConsole),
		compareRemoteConfigKeyConstant:   defaultCompareRemoteConstant,
		compareRoundsConfigKeyConstant:   defaultCompareRoundsConstant,
		compareMergeRefConfigKeyConstant: "",
		compareBaseRefConfigKeyConstant:  "",
		probeSamplesConfigKeyConstant:    defaultProbeSamplesConstant,
	}

	loadedConfiguration, loadError := application.configurationLoader.LoadConfiguration(application.configurationFilePath, defaultValues, &application.configuration)
	if loadError != nil {
		return fmt.Errorf(configurationLoadErrorTemplate, loadError)
	}
	application.configurationMetadata = loadedConfiguration

	if application.persistentFlagChanged(command, logLevelFlagNameConstant) {
		application.configuration.Common.LogLevel = application.logLevelFlagValue
	}
	if application.persistentFlagChanged(command, logFormatFlagNameConstant) {
		application.configuration.Common.LogFormat = application.logFormatFlagValue
	}

	loggerOutputs, loggerCreationError := application.loggerFactory.CreateLoggerOutputs(
		utils.LogLevel(application.configuration.Common.LogLevel),
		utils.LogFormat(application.configuration.Common.LogFormat),
	)
	if loggerCreationError != nil {
		return fmt.Errorf(loggerCreationErrorTemplate, loggerCreationError)
	}

	application.logger = loggerOutputs.DiagnosticLogger
	if application.logger == nil {
		application.logger = zap.NewNop()
	}
	application.consoleLogger = loggerOutputs.ConsoleLogger
	if application.consoleLogger == nil {
		application.consoleLogger = zap.NewNop()
	}

	application.consoleLogger.Debug(configurationInitializedMessage,
		zap.String(logLevelLogFieldNameConstant, application.configuration.Common.LogLevel),
		zap.String(logFormatLogFieldNameConstant, application.configuration.Common.LogFormat),
		zap.String(configFileLogFieldNameConstant, application.configurationMetadata.ConfigFileUsed),
	)

	if command != nil {
		updatedContext := application.commandContextAccessor.WithConfigurationFilePath(
			command.Context(),
			application.configurationMetadata.ConfigFileUsed,
		)
		updatedContext = application.commandContextAccessor.WithLogLevel(updatedContext, application.configuration.Common.LogLevel)
		if executionFlags := flagutils.CollectExecutionFlags(command); executionFlags.UnattendedSet || executionFlags.RemoteSet {
			updatedContext = application.commandContextAccessor.WithExecutionFlags(updatedContext, executionFlags)
		}

		command.SetContext(updatedContext)
		if rootCommand := command.Root(); rootCommand != nil {
			rootCommand.SetContext(updatedContext)
		}
	}

	return nil
}

// InitializeForCommand prepares application state for the provided command name without executing command logic.
func (application *Application) InitializeForCommand(commandUse string) error {
	command := &cobra.Command{Use: commandUse}
	return application.initializeConfiguration(command)
}

// ConfigFileUsed returns the configuration file path used during initialization.
func (application *Application) ConfigFileUsed() string {
	return application.configurationMetadata.ConfigFileUsed
}

func (application *Application) humanReadableLoggingEnabled() bool {
	logFormatValue := strings.TrimSpace(application.configuration.Common.LogFormat)
	return strings.EqualFold(logFormatValue, string(utils.LogFormatConsole))
}

func (application *Application) persistentFlagChanged(command *cobra.Command, flagName string) bool {
	if command == nil {
		return false
	}
	rootCommand := command.Root()
	if rootCommand == nil {
		return false
	}
	changedFlag := rootCommand.PersistentFlags().Lookup(flagName)
	return changedFlag != nil && changedFlag.Changed
}

func (application *Application) resolveVersion(executionContext context.Context) string {
	resolved := version.Detect(executionContext, version.Dependencies{})
	return strings.TrimSpace(resolved)
}

func (application *Application) printVersion(command *cobra.Command) {
	versionString := application.versionResolver(command.Context())
	fmt.Fprintf(command.OutOrStdout(), versionOutputTemplateConstant, versionString)
}

func (application *Application) flushLogger() error {
	if application.logger == nil {
		return nil
	}
	syncError := application.logger.Sync()
	switch {
	case syncError == nil:
		return nil
	case errors.Is(syncError, syscall.ENOTSUP):
		return nil
	case errors.Is(syncError, syscall.EINVAL):
		return nil
	case errors.Is(syncError, syscall.EBADF):
		return nil
	case errors.Is(syncError, syscall.ENOTTY):
		return nil
	default:
		return syncError
	}
}
