package comparison_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tyemirov/perfcomp/internal/comparison"
)

const comparisonSubtestNameTemplateConstant = "%d_%s"

func TestWithDefaults(testInstance *testing.T) {
	resolved := comparison.RunConfiguration{}.WithDefaults()
	require.Equal(testInstance, "https://github.com/WordPress/gutenberg.git", resolved.RemoteURL)
	require.Equal(testInstance, 3, resolved.RoundCount)
	require.Equal(testInstance, ".", resolved.OutputDirectory)

	configured := comparison.RunConfiguration{RemoteURL: "https://example.test/repo.git", RoundCount: 5, OutputDirectory: "/tmp/out"}.WithDefaults()
	require.Equal(testInstance, "https://example.test/repo.git", configured.RemoteURL)
	require.Equal(testInstance, 5, configured.RoundCount)
	require.Equal(testInstance, "/tmp/out", configured.OutputDirectory)
}

func TestResolveRevisions(testInstance *testing.T) {
	testCases := []struct {
		name              string
		configuration     comparison.RunConfiguration
		expectedRevisions []string
		expectFailure     bool
	}{
		{
			name:              "explicit_revisions",
			configuration:     comparison.RunConfiguration{Revisions: []string{"trunk", "feature-x"}},
			expectedRevisions: []string{"trunk", "feature-x"},
		},
		{
			name:              "explicit_revisions_trimmed_and_deduplicated",
			configuration:     comparison.RunConfiguration{Revisions: []string{" trunk ", "trunk", "feature-x"}},
			expectedRevisions: []string{"trunk", "feature-x"},
		},
		{
			name:          "single_explicit_revision_rejected",
			configuration: comparison.RunConfiguration{Revisions: []string{"trunk"}},
			expectFailure: true,
		},
		{
			name:          "attended_default_alone_rejected",
			configuration: comparison.RunConfiguration{},
			expectFailure: true,
		},
		{
			name: "unattended_inferred_refs",
			configuration: comparison.RunConfiguration{
				Unattended:       true,
				InferredMergeRef: "refs/pull/123/merge",
				InferredBaseRef:  "trunk",
			},
			expectedRevisions: []string{"refs/pull/123/merge", "trunk"},
		},
		{
			name:          "unattended_missing_base_ref_rejected",
			configuration: comparison.RunConfiguration{Unattended: true, InferredMergeRef: "refs/pull/123/merge"},
			expectFailure: true,
		},
		{
			name:          "unattended_missing_both_refs_rejected",
			configuration: comparison.RunConfiguration{Unattended: true},
			expectFailure: true,
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf(comparisonSubtestNameTemplateConstant, testCaseIndex, testCase.name), func(testInstance *testing.T) {
			revisions, resolutionError := testCase.configuration.ResolveRevisions()
			if testCase.expectFailure {
				var revisionsError comparison.InsufficientRevisionsError
				require.ErrorAs(testInstance, resolutionError, &revisionsError)
				require.Nil(testInstance, revisions)
				return
			}
			require.NoError(testInstance, resolutionError)
			require.Equal(testInstance, testCase.expectedRevisions, revisions)
		})
	}
}

func TestDirectorySafeRevisionName(testInstance *testing.T) {
	require.Equal(testInstance, "refs-pull-123-merge", comparison.DirectorySafeRevisionName("refs/pull/123/merge"))
	require.Equal(testInstance, "trunk", comparison.DirectorySafeRevisionName(" trunk "))
}
