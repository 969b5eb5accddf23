// Package compare builds the CLI command that runs a full performance
// comparison across revisions.
package compare

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tyemirov/perfcomp/internal/comparison"
	"github.com/tyemirov/perfcomp/internal/environment"
	"github.com/tyemirov/perfcomp/internal/execshell"
	"github.com/tyemirov/perfcomp/internal/gitrepo"
	"github.com/tyemirov/perfcomp/internal/prompt"
	"github.com/tyemirov/perfcomp/internal/report"
	"github.com/tyemirov/perfcomp/internal/suite"
	"github.com/tyemirov/perfcomp/internal/trials"
	flagutils "github.com/tyemirov/perfcomp/internal/utils/flags"
)

const (
	commandUseConstant               = "compare [revisions...]"
	commandShortDescriptionConstant  = "Compare editor performance across revisions"
	commandLongDescriptionConstant   = "compare provisions one isolated environment per revision, runs the measurement suites in alternating rounds, and reports per-suite medians."
	wpVersionFlagNameConstant        = "wp-version"
	wpVersionFlagUsageConstant       = "Base platform version to pin environments to (for example 6.1.2)."
	unattendedFlagNameConstant       = "ci"
	unattendedFlagUsageConstant      = "Run unattended: skip confirmation and infer revisions when none are given."
	roundsFlagNameConstant           = "rounds"
	roundsFlagUsageConstant          = "Number of measurement rounds per suite."
	remoteFlagNameConstant           = "remote"
	remoteFlagUsageConstant          = "Git remote URL revisions are fetched from."
	testsDirectoryFlagNameConstant   = "tests-dir"
	testsDirectoryFlagUsageConstant  = "Directory the measurement suites execute from (defaults to the shared checkout)."
	outputDirectoryFlagNameConstant  = "output-dir"
	outputDirectoryFlagUsageConstant = "Directory receiving the per-suite result artifacts."
	keepFlagNameConstant             = "keep"
	keepFlagUsageConstant            = "Leave materialized environments in place after the run."
	loggerProviderMissingMessage     = "compare command logger provider not configured"
	configurationProviderMissing     = "compare command configuration provider not configured"
)

// CommandConfiguration carries the compare command's configurable defaults.
type CommandConfiguration struct {
	Remote                    string `mapstructure:"remote"`
	Rounds                    int    `mapstructure:"rounds"`
	BaseVersion               string `mapstructure:"wp_version"`
	TestsDirectory            string `mapstructure:"tests_dir"`
	OutputDirectory           string `mapstructure:"output_dir"`
	WorkingRoot               string `mapstructure:"working_root"`
	ConfigurationTemplateFile string `mapstructure:"env_config_template"`
	KeepEnvironments          bool   `mapstructure:"keep"`
	Unattended                bool   `mapstructure:"ci"`
	InferredMergeRef          string `mapstructure:"merge_ref"`
	InferredBaseRef           string `mapstructure:"base_ref"`
}

// Initialization errors.
var (
	ErrLoggerProviderNotConfigured        = errors.New(loggerProviderMissingMessage)
	ErrConfigurationProviderNotConfigured = errors.New(configurationProviderMissing)
)

// CommandBuilder assembles the compare command with its dependencies.
type CommandBuilder struct {
	LoggerProvider               func() *zap.Logger
	HumanReadableLoggingProvider func() bool
	ConfigurationProvider        func() CommandConfiguration
	ServiceFactory               func(command *cobra.Command, logger *zap.Logger, configuration comparison.RunConfiguration) (*comparison.Service, error)
}

// Build constructs the compare cobra command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	if builder.LoggerProvider == nil {
		return nil, ErrLoggerProviderNotConfigured
	}
	if builder.ConfigurationProvider == nil {
		return nil, ErrConfigurationProviderNotConfigured
	}

	command := &cobra.Command{
		Use:           commandUseConstant,
		Short:         commandShortDescriptionConstant,
		Long:          commandLongDescriptionConstant,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(command *cobra.Command, arguments []string) error {
			return builder.run(command, arguments)
		},
	}

	command.Flags().String(wpVersionFlagNameConstant, "", wpVersionFlagUsageConstant)
	command.Flags().Bool(unattendedFlagNameConstant, false, unattendedFlagUsageConstant)
	command.Flags().Int(roundsFlagNameConstant, trials.DefaultRoundCount(), roundsFlagUsageConstant)
	command.Flags().String(remoteFlagNameConstant, "", remoteFlagUsageConstant)
	command.Flags().String(testsDirectoryFlagNameConstant, "", testsDirectoryFlagUsageConstant)
	command.Flags().String(outputDirectoryFlagNameConstant, "", outputDirectoryFlagUsageConstant)
	command.Flags().Bool(keepFlagNameConstant, false, keepFlagUsageConstant)

	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	logger := builder.LoggerProvider()
	if logger == nil {
		logger = zap.NewNop()
	}

	runConfiguration, configurationError := builder.resolveRunConfiguration(command, arguments)
	if configurationError != nil {
		return configurationError
	}

	serviceFactory := builder.ServiceFactory
	if serviceFactory == nil {
		serviceFactory = builder.defaultServiceFactory
	}

	service, serviceError := serviceFactory(command, logger, runConfiguration)
	if serviceError != nil {
		return serviceError
	}

	return service.Execute(command.Context(), runConfiguration)
}

func (builder *CommandBuilder) resolveRunConfiguration(command *cobra.Command, arguments []string) (comparison.RunConfiguration, error) {
	configuration := builder.ConfigurationProvider()

	runConfiguration := comparison.RunConfiguration{
		Revisions:        arguments,
		RemoteURL:        configuration.Remote,
		BaseVersion:      configuration.BaseVersion,
		RoundCount:       configuration.Rounds,
		TestsDirectory:   configuration.TestsDirectory,
		OutputDirectory:  configuration.OutputDirectory,
		WorkingRoot:      configuration.WorkingRoot,
		Unattended:       configuration.Unattended,
		KeepEnvironments: configuration.KeepEnvironments,
		InferredMergeRef: configuration.InferredMergeRef,
		InferredBaseRef:  configuration.InferredBaseRef,
	}

	if flagValue, flagChanged, flagError := flagutils.StringFlag(command, wpVersionFlagNameConstant); flagError == nil && flagChanged {
		runConfiguration.BaseVersion = strings.TrimSpace(flagValue)
	}
	if flagValue, flagChanged, flagError := flagutils.IntFlag(command, roundsFlagNameConstant); flagError == nil && flagChanged {
		runConfiguration.RoundCount = flagValue
	}
	if flagValue, flagChanged, flagError := flagutils.StringFlag(command, testsDirectoryFlagNameConstant); flagError == nil && flagChanged {
		runConfiguration.TestsDirectory = strings.TrimSpace(flagValue)
	}
	if flagValue, flagChanged, flagError := flagutils.StringFlag(command, outputDirectoryFlagNameConstant); flagError == nil && flagChanged {
		runConfiguration.OutputDirectory = strings.TrimSpace(flagValue)
	}
	if flagValue, flagChanged, flagError := flagutils.BoolFlag(command, keepFlagNameConstant); flagError == nil && flagChanged {
		runConfiguration.KeepEnvironments = flagValue
	}

	executionFlags, overridesAvailable := flagutils.ResolveExecutionFlags(command)
	if overridesAvailable {
		if executionFlags.UnattendedSet {
			runConfiguration.Unattended = executionFlags.Unattended
		}
		if executionFlags.RemoteSet {
			runConfiguration.RemoteURL = executionFlags.Remote
		}
	}

	workingRoot, rootError := comparison.EnsureWorkingRoot(runConfiguration.WorkingRoot)
	if rootError != nil {
		return comparison.RunConfiguration{}, rootError
	}
	runConfiguration.WorkingRoot = workingRoot

	return runConfiguration.WithDefaults(), nil
}

func (builder *CommandBuilder) defaultServiceFactory(command *cobra.Command, logger *zap.Logger, runConfiguration comparison.RunConfiguration) (*comparison.Service, error) {
	humanReadableLogging := false
	if builder.HumanReadableLoggingProvider != nil {
		humanReadableLogging = builder.HumanReadableLoggingProvider()
	}

	shellExecutor, executorError := execshell.NewShellExecutor(logger, execshell.NewOSCommandRunner(), humanReadableLogging)
	if executorError != nil {
		return nil, executorError
	}

	repositoryManager, managerError := gitrepo.NewRepositoryManager(shellExecutor)
	if managerError != nil {
		return nil, managerError
	}

	configuration := builder.ConfigurationProvider()
	provisioner, provisionerError := environment.NewProvisioner(environment.ProvisionerDependencies{
		RevisionManager:           repositoryManager,
		ShellExecutor:             shellExecutor,
		Logger:                    logger,
		RemoteURL:                 runConfiguration.RemoteURL,
		WorkingCopyPath:           comparison.WorkingCopyPath(runConfiguration.WorkingRoot),
		ConfigurationTemplateFile: configuration.ConfigurationTemplateFile,
	})
	if provisionerError != nil {
		return nil, provisionerError
	}

	suiteRunner, runnerError := suite.NewRunner(shellExecutor, logger)
	if runnerError != nil {
		return nil, runnerError
	}

	scheduler, schedulerError := trials.NewScheduler(suiteRunner, logger)
	if schedulerError != nil {
		return nil, schedulerError
	}

	presenter, presenterError := report.NewPresenter(command.OutOrStdout())
	if presenterError != nil {
		return nil, presenterError
	}

	return comparison.NewService(comparison.ServiceDependencies{
		Cloner:      repositoryManager,
		Provisioner: provisioner,
		Scheduler:   scheduler,
		Presenter:   presenter,
		Prompter:    prompt.NewIOConfirmationPrompter(command.InOrStdin(), command.OutOrStdout()),
		Logger:      logger,
	})
}
