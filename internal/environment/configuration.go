package environment

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"
)

const (
	environmentConfigurationFileNameConstant = ".wp-env.json"
	corePlatformConfigurationKeyConstant     = "core"
	corePlatformArchiveURLTemplateConstant   = "https://wordpress.org/wordpress-%s.zip"
	semverCandidatePrefixConstant            = "v"
	zeroPatchSuffixConstant                  = ".0"
	yamlTemplateExtensionConstant            = ".yaml"
	yamlTemplateShortExtensionConstant       = ".yml"
	invalidBaseVersionTemplateConstant       = "invalid base platform version %q"
	configurationReadErrorTemplateConstant   = "unable to read environment configuration %s: %w"
	configurationDecodeErrorTemplateConstant = "unable to decode environment configuration %s: %w"
	configurationEncodeErrorTemplateConstant = "unable to encode environment configuration %s: %w"
	configurationWriteErrorTemplateConstant  = "unable to write environment configuration %s: %w"
	configurationFilePermissionConstant      = 0o644
	configurationIndentationConstant         = "\t"
)

// InvalidBaseVersionError indicates the requested base platform version could not be parsed.
type InvalidBaseVersionError struct {
	BaseVersion string
}

// Error describes the invalid version.
func (versionError InvalidBaseVersionError) Error() string {
	return fmt.Sprintf(invalidBaseVersionTemplateConstant, versionError.BaseVersion)
}

// NormalizeBaseVersion maps zero-patch versions to their major.minor form
// (6.1.0 becomes 6.1) while leaving any other patch version unchanged.
func NormalizeBaseVersion(baseVersion string) (string, error) {
	semverCandidate := semverCandidatePrefixConstant + baseVersion
	if !semver.IsValid(semverCandidate) {
		return "", InvalidBaseVersionError{BaseVersion: baseVersion}
	}

	majorMinor := semver.MajorMinor(semverCandidate)
	if semver.Canonical(semverCandidate) == majorMinor+zeroPatchSuffixConstant {
		return majorMinor[len(semverCandidatePrefixConstant):], nil
	}
	return baseVersion, nil
}

// CorePlatformArchiveURL derives the base platform archive URL for a normalized version.
func CorePlatformArchiveURL(normalizedVersion string) string {
	return fmt.Sprintf(corePlatformArchiveURLTemplateConstant, normalizedVersion)
}

// PatchCorePlatformReference rewrites the configuration's core key to the
// version-specific base platform archive URL.
func PatchCorePlatformReference(configurationFilePath string, baseVersion string) error {
	normalizedVersion, normalizationError := NormalizeBaseVersion(baseVersion)
	if normalizationError != nil {
		return normalizationError
	}

	configurationContent, readError := os.ReadFile(configurationFilePath)
	if readError != nil {
		return fmt.Errorf(configurationReadErrorTemplateConstant, configurationFilePath, readError)
	}

	configurationValues := map[string]any{}
	if decodeError := json.Unmarshal(configurationContent, &configurationValues); decodeError != nil {
		return fmt.Errorf(configurationDecodeErrorTemplateConstant, configurationFilePath, decodeError)
	}

	configurationValues[corePlatformConfigurationKeyConstant] = CorePlatformArchiveURL(normalizedVersion)

	patchedContent, encodeError := json.MarshalIndent(configurationValues, "", configurationIndentationConstant)
	if encodeError != nil {
		return fmt.Errorf(configurationEncodeErrorTemplateConstant, configurationFilePath, encodeError)
	}

	if writeError := os.WriteFile(configurationFilePath, patchedContent, configurationFilePermissionConstant); writeError != nil {
		return fmt.Errorf(configurationWriteErrorTemplateConstant, configurationFilePath, writeError)
	}
	return nil
}

// WriteConfigurationFromTemplate renders the template file into the
// destination configuration. YAML templates are converted to the JSON form
// the environment tooling expects; JSON templates are re-encoded verbatim.
func WriteConfigurationFromTemplate(templateFilePath string, destinationFilePath string) error {
	templateContent, readError := os.ReadFile(templateFilePath)
	if readError != nil {
		return fmt.Errorf(configurationReadErrorTemplateConstant, templateFilePath, readError)
	}

	configurationValues := map[string]any{}
	templateExtension := strings.ToLower(filepath.Ext(templateFilePath))
	switch templateExtension {
	case yamlTemplateExtensionConstant, yamlTemplateShortExtensionConstant:
		if decodeError := yaml.Unmarshal(templateContent, &configurationValues); decodeError != nil {
			return fmt.Errorf(configurationDecodeErrorTemplateConstant, templateFilePath, decodeError)
		}
	default:
		if decodeError := json.Unmarshal(templateContent, &configurationValues); decodeError != nil {
			return fmt.Errorf(configurationDecodeErrorTemplateConstant, templateFilePath, decodeError)
		}
	}

	renderedContent, encodeError := json.MarshalIndent(configurationValues, "", configurationIndentationConstant)
	if encodeError != nil {
		return fmt.Errorf(configurationEncodeErrorTemplateConstant, templateFilePath, encodeError)
	}

	if writeError := os.WriteFile(destinationFilePath, renderedContent, configurationFilePermissionConstant); writeError != nil {
		return fmt.Errorf(configurationWriteErrorTemplateConstant, destinationFilePath, writeError)
	}
	return nil
}
