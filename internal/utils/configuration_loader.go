package utils

import (
	"bytes"
	"errors"
	"strings"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

const (
	environmentKeySeparatorConstant    = "_"
	configurationKeySeparatorConstant  = "."
	mapstructureTagNameConstant        = "mapstructure"
	decodeTargetMissingMessageConstant = "configuration decode target not provided"
)

// LoadedConfiguration describes the outcome of a configuration load.
type LoadedConfiguration struct {
	ConfigFileUsed string
}

// ConfigurationLoader layers embedded defaults, configuration files, and
// environment overrides into typed configuration structs.
type ConfigurationLoader struct {
	configurationName         string
	configurationType         string
	environmentPrefix         string
	searchPaths               []string
	embeddedConfiguration     []byte
	embeddedConfigurationType string
}

// ErrDecodeTargetMissing indicates LoadConfiguration was called without a target struct.
var ErrDecodeTargetMissing = errors.New(decodeTargetMissingMessageConstant)

// NewConfigurationLoader constructs a loader for the named configuration.
func NewConfigurationLoader(configurationName string, configurationType string, environmentPrefix string, searchPaths []string) *ConfigurationLoader {
	return &ConfigurationLoader{
		configurationName: configurationName,
		configurationType: configurationType,
		environmentPrefix: environmentPrefix,
		searchPaths:       searchPaths,
	}
}

// SetEmbeddedConfiguration installs default configuration content merged below files and environment.
func (loader *ConfigurationLoader) SetEmbeddedConfiguration(configurationData []byte, configurationType string) {
	loader.embeddedConfiguration = configurationData
	loader.embeddedConfigurationType = configurationType
}

// LoadConfiguration resolves configuration values and decodes them into target.
// Precedence, lowest to highest: defaults, embedded configuration, discovered
// or explicit configuration file, environment variables.
func (loader *ConfigurationLoader) LoadConfiguration(explicitFilePath string, defaultValues map[string]any, target any) (LoadedConfiguration, error) {
	if target == nil {
		return LoadedConfiguration{}, ErrDecodeTargetMissing
	}

	viperInstance := viper.New()
	viperInstance.SetConfigName(loader.configurationName)
	viperInstance.SetConfigType(loader.configurationType)

	for defaultKey, defaultValue := range defaultValues {
		viperInstance.SetDefault(defaultKey, defaultValue)
	}

	if len(loader.embeddedConfiguration) > 0 {
		embeddedType := loader.embeddedConfigurationType
		if len(strings.TrimSpace(embeddedType)) == 0 {
			embeddedType = loader.configurationType
		}
		viperInstance.SetConfigType(embeddedType)
		if readError := viperInstance.ReadConfig(bytes.NewReader(loader.embeddedConfiguration)); readError != nil {
			return LoadedConfiguration{}, readError
		}
		viperInstance.SetConfigType(loader.configurationType)
	}

	if len(strings.TrimSpace(loader.environmentPrefix)) > 0 {
		viperInstance.SetEnvPrefix(loader.environmentPrefix)
		viperInstance.SetEnvKeyReplacer(strings.NewReplacer(configurationKeySeparatorConstant, environmentKeySeparatorConstant))
		viperInstance.AutomaticEnv()
	}

	configFileUsed := ""
	trimmedExplicitPath := strings.TrimSpace(explicitFilePath)
	if len(trimmedExplicitPath) > 0 {
		viperInstance.SetConfigFile(trimmedExplicitPath)
		if readError := viperInstance.MergeInConfig(); readError != nil {
			return LoadedConfiguration{}, readError
		}
		configFileUsed = viperInstance.ConfigFileUsed()
	} else if len(loader.searchPaths) > 0 {
		for _, searchPath := range loader.searchPaths {
			viperInstance.AddConfigPath(searchPath)
		}
		mergeError := viperInstance.MergeInConfig()
		if mergeError != nil {
			var notFoundError viper.ConfigFileNotFoundError
			if !errors.As(mergeError, &notFoundError) {
				return LoadedConfiguration{}, mergeError
			}
		} else {
			configFileUsed = viperInstance.ConfigFileUsed()
		}
	}

	decoderConfiguration := &mapstructure.DecoderConfig{
		TagName:          mapstructureTagNameConstant,
		Result:           target,
		WeaklyTypedInput: true,
	}
	decoder, decoderError := mapstructure.NewDecoder(decoderConfiguration)
	if decoderError != nil {
		return LoadedConfiguration{}, decoderError
	}
	if decodeError := decoder.Decode(viperInstance.AllSettings()); decodeError != nil {
		return LoadedConfiguration{}, decodeError
	}

	return LoadedConfiguration{ConfigFileUsed: configFileUsed}, nil
}
