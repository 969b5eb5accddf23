// Package probe builds the CLI command that samples load metrics from an
// already-running environment.
package probe

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tyemirov/perfcomp/internal/measurement"
	"github.com/tyemirov/perfcomp/internal/metrics"
	"github.com/tyemirov/perfcomp/internal/report"
	"github.com/tyemirov/perfcomp/internal/suite"
	flagutils "github.com/tyemirov/perfcomp/internal/utils/flags"
)

const (
	commandUseConstant               = "probe <url>"
	commandShortDescriptionConstant  = "Sample browser load metrics from a running environment"
	commandLongDescriptionConstant   = "probe navigates a headless browser to the provided URL, samples navigation and paint timings, and reports per-metric averages."
	samplesFlagNameConstant          = "samples"
	samplesFlagUsageConstant         = "Number of page loads to sample."
	outputDirectoryFlagNameConstant  = "output-dir"
	outputDirectoryFlagUsageConstant = "Directory receiving the probe result artifact."
	defaultSampleCountConstant       = 3
	probeSuiteNameConstant           = "probe"
	loggerProviderMissingMessage     = "probe command logger provider not configured"
	configurationProviderMissing     = "probe command configuration provider not configured"
)

// CommandConfiguration carries the probe command's configurable defaults.
type CommandConfiguration struct {
	Samples         int    `mapstructure:"samples"`
	OutputDirectory string `mapstructure:"output_dir"`
}

// LoadMetricsSampler collects raw load metrics from a URL.
type LoadMetricsSampler interface {
	Collect(executionContext context.Context, targetURL string, sampleCount int) (metrics.RawResultBundle, error)
}

// Initialization errors.
var (
	ErrLoggerProviderNotConfigured        = errors.New(loggerProviderMissingMessage)
	ErrConfigurationProviderNotConfigured = errors.New(configurationProviderMissing)
)

// CommandBuilder assembles the probe command with its dependencies.
type CommandBuilder struct {
	LoggerProvider        func() *zap.Logger
	ConfigurationProvider func() CommandConfiguration
	SamplerFactory        func(logger *zap.Logger) LoadMetricsSampler
}

// Build constructs the probe cobra command.
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
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(command *cobra.Command, arguments []string) error {
			return builder.run(command, arguments[0])
		},
	}

	command.Flags().Int(samplesFlagNameConstant, defaultSampleCountConstant, samplesFlagUsageConstant)
	command.Flags().String(outputDirectoryFlagNameConstant, "", outputDirectoryFlagUsageConstant)

	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, targetURL string) error {
	logger := builder.LoggerProvider()
	if logger == nil {
		logger = zap.NewNop()
	}

	configuration := builder.ConfigurationProvider()
	sampleCount := configuration.Samples
	if sampleCount <= 0 {
		sampleCount = defaultSampleCountConstant
	}

	if flagValue, flagChanged, flagError := flagutils.IntFlag(command, samplesFlagNameConstant); flagError == nil && flagChanged {
		sampleCount = flagValue
	}

	outputDirectory := configuration.OutputDirectory
	if flagValue, flagChanged, flagError := flagutils.StringFlag(command, outputDirectoryFlagNameConstant); flagError == nil && flagChanged {
		outputDirectory = flagValue
	}

	samplerFactory := builder.SamplerFactory
	if samplerFactory == nil {
		samplerFactory = func(logger *zap.Logger) LoadMetricsSampler {
			return measurement.NewLoadMetricsCollector(logger)
		}
	}

	rawBundle, collectionError := samplerFactory(logger).Collect(command.Context(), targetURL, sampleCount)
	if collectionError != nil {
		return collectionError
	}

	curatedBundle, curationError := measurement.CurateLoadMetrics(rawBundle)
	if curationError != nil {
		return curationError
	}

	aggregatedResults := report.AggregatedResults{
		suite.SuiteName(probeSuiteNameConstant): {targetURL: curatedBundle},
	}

	presenter, presenterError := report.NewPresenter(command.OutOrStdout())
	if presenterError != nil {
		return presenterError
	}
	if renderError := presenter.RenderTables(aggregatedResults); renderError != nil {
		return renderError
	}
	if len(outputDirectory) > 0 {
		return presenter.PersistArtifacts(aggregatedResults, outputDirectory)
	}
	return nil
}
