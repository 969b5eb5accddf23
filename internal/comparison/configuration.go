package comparison

import (
	"fmt"
	"strings"

	"github.com/tyemirov/perfcomp/internal/trials"
)

const (
	defaultRemoteURLConstant              = "https://github.com/WordPress/gutenberg.git"
	defaultRevisionConstant               = "trunk"
	defaultOutputDirectoryConstant        = "."
	insufficientRevisionsTemplateConstant = "at least two distinct revisions required, resolved %d: %v"
	revisionPathSeparatorConstant         = "/"
	revisionPathReplacementConstant       = "-"
)

// RunConfiguration carries every resolved parameter of one comparison run.
type RunConfiguration struct {
	Revisions        []string
	RemoteURL        string
	BaseVersion      string
	RoundCount       int
	TestsDirectory   string
	OutputDirectory  string
	WorkingRoot      string
	Unattended       bool
	KeepEnvironments bool
	InferredMergeRef string
	InferredBaseRef  string
}

// InsufficientRevisionsError indicates fewer than two revisions resolved.
type InsufficientRevisionsError struct {
	Resolved []string
}

// Error describes the shortfall.
func (revisionsError InsufficientRevisionsError) Error() string {
	return fmt.Sprintf(insufficientRevisionsTemplateConstant, len(revisionsError.Resolved), revisionsError.Resolved)
}

// WithDefaults returns a copy with unset parameters replaced by defaults.
func (configuration RunConfiguration) WithDefaults() RunConfiguration {
	resolved := configuration
	if len(strings.TrimSpace(resolved.RemoteURL)) == 0 {
		resolved.RemoteURL = defaultRemoteURLConstant
	}
	if resolved.RoundCount <= 0 {
		resolved.RoundCount = trials.DefaultRoundCount()
	}
	if len(strings.TrimSpace(resolved.OutputDirectory)) == 0 {
		resolved.OutputDirectory = defaultOutputDirectoryConstant
	}
	return resolved
}

// ResolveRevisions produces the final ordered revision list. Explicit
// revisions win; unattended runs without explicit revisions use the inferred
// merge and base refs; attended runs without explicit revisions start from
// the default revision. Fewer than two distinct revisions is an error.
func (configuration RunConfiguration) ResolveRevisions() ([]string, error) {
	candidateRevisions := []string{}
	for _, revision := range configuration.Revisions {
		trimmedRevision := strings.TrimSpace(revision)
		if len(trimmedRevision) > 0 {
			candidateRevisions = append(candidateRevisions, trimmedRevision)
		}
	}

	if len(candidateRevisions) == 0 {
		if configuration.Unattended {
			trimmedMergeRef := strings.TrimSpace(configuration.InferredMergeRef)
			trimmedBaseRef := strings.TrimSpace(configuration.InferredBaseRef)
			if len(trimmedMergeRef) == 0 || len(trimmedBaseRef) == 0 {
				return nil, InsufficientRevisionsError{Resolved: candidateRevisions}
			}
			candidateRevisions = []string{trimmedMergeRef, trimmedBaseRef}
		} else {
			candidateRevisions = []string{defaultRevisionConstant}
		}
	}

	distinctRevisions := []string{}
	seenRevisions := map[string]struct{}{}
	for _, revision := range candidateRevisions {
		if _, alreadySeen := seenRevisions[revision]; alreadySeen {
			continue
		}
		seenRevisions[revision] = struct{}{}
		distinctRevisions = append(distinctRevisions, revision)
	}

	if len(distinctRevisions) < 2 {
		return nil, InsufficientRevisionsError{Resolved: distinctRevisions}
	}
	return distinctRevisions, nil
}

// DirectorySafeRevisionName maps a revision identifier to a filesystem-safe
// directory name.
func DirectorySafeRevisionName(revision string) string {
	return strings.ReplaceAll(strings.TrimSpace(revision), revisionPathSeparatorConstant, revisionPathReplacementConstant)
}
