package trials_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tyemirov/perfcomp/internal/environment"
	"github.com/tyemirov/perfcomp/internal/execshell"
	"github.com/tyemirov/perfcomp/internal/metrics"
	"github.com/tyemirov/perfcomp/internal/suite"
	"github.com/tyemirov/perfcomp/internal/trials"
)

const (
	trialsSubtestNameTemplateConstant = "%d_%s"
	testTrialSourceRootConstant       = "/tmp/perf-src"
	testTrunkRevisionConstant         = "trunk"
	testFeatureRevisionConstant       = "feature-x"
	testRunnerFailureMessageConstant  = "suite runner exploded"
)

type trialInvocation struct {
	suiteName suite.SuiteName
	revision  string
}

type scriptedSuiteRunner struct {
	invocations   []trialInvocation
	failOnCall    int
	bundleFactory func(invocation trialInvocation) metrics.CuratedResultBundle
}

func (runner *scriptedSuiteRunner) Run(executionContext context.Context, suiteName suite.SuiteName, instance *environment.Environment, sourceRoot string) (metrics.CuratedResultBundle, error) {
	invocation := trialInvocation{suiteName: suiteName, revision: instance.Revision()}
	runner.invocations = append(runner.invocations, invocation)
	if runner.failOnCall > 0 && len(runner.invocations) == runner.failOnCall {
		return nil, errors.New(testRunnerFailureMessageConstant)
	}
	if runner.bundleFactory != nil {
		return runner.bundleFactory(invocation), nil
	}
	return metrics.CuratedResultBundle{}, nil
}

type noopNpmExecutor struct{}

func (executor noopNpmExecutor) ExecuteNpm(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error) {
	return execshell.ExecutionResult{}, nil
}

func testEnvironments(testInstance *testing.T, revisions ...string) map[string]*environment.Environment {
	testInstance.Helper()
	environments := map[string]*environment.Environment{}
	for _, revision := range revisions {
		instance, creationError := environment.NewEnvironment(revision, "/tmp/perf-envs/"+revision, noopNpmExecutor{}, nil)
		require.NoError(testInstance, creationError)
		environments[revision] = instance
	}
	return environments
}

func TestNewSchedulerRequiresRunner(testInstance *testing.T) {
	scheduler, creationError := trials.NewScheduler(nil, nil)
	require.ErrorIs(testInstance, creationError, trials.ErrSuiteRunnerNotConfigured)
	require.Nil(testInstance, scheduler)
}

func TestDefaultRoundCount(testInstance *testing.T) {
	require.Equal(testInstance, 3, trials.DefaultRoundCount())
}

func TestRunTrialsInterleavesRevisionsInFixedOrder(testInstance *testing.T) {
	runner := &scriptedSuiteRunner{}
	scheduler, creationError := trials.NewScheduler(runner, nil)
	require.NoError(testInstance, creationError)

	revisions := []string{testTrunkRevisionConstant, testFeatureRevisionConstant}
	results, trialError := scheduler.RunTrials(
		context.Background(),
		[]suite.SuiteName{suite.SuitePostEditor},
		revisions,
		testEnvironments(testInstance, revisions...),
		2,
		testTrialSourceRootConstant,
	)

	require.NoError(testInstance, trialError)
	require.Equal(testInstance, []trialInvocation{
		{suiteName: suite.SuitePostEditor, revision: testTrunkRevisionConstant},
		{suiteName: suite.SuitePostEditor, revision: testFeatureRevisionConstant},
		{suiteName: suite.SuitePostEditor, revision: testTrunkRevisionConstant},
		{suiteName: suite.SuitePostEditor, revision: testFeatureRevisionConstant},
	}, runner.invocations)

	require.Len(testInstance, results[suite.SuitePostEditor][testTrunkRevisionConstant], 2)
	require.Len(testInstance, results[suite.SuitePostEditor][testFeatureRevisionConstant], 2)
}

func TestRunTrialsAccumulatesBundlesInRoundOrder(testInstance *testing.T) {
	callCounter := 0
	runner := &scriptedSuiteRunner{
		bundleFactory: func(invocation trialInvocation) metrics.CuratedResultBundle {
			callCounter++
			return metrics.CuratedResultBundle{"serverResponse": float64(callCounter)}
		},
	}
	scheduler, creationError := trials.NewScheduler(runner, nil)
	require.NoError(testInstance, creationError)

	revisions := []string{testTrunkRevisionConstant}
	results, trialError := scheduler.RunTrials(
		context.Background(),
		[]suite.SuiteName{suite.SuitePostEditor, suite.SuiteSiteEditor},
		revisions,
		testEnvironments(testInstance, revisions...),
		3,
		testTrialSourceRootConstant,
	)

	require.NoError(testInstance, trialError)
	postEditorBundles := results[suite.SuitePostEditor][testTrunkRevisionConstant]
	require.Len(testInstance, postEditorBundles, 3)
	require.Equal(testInstance, float64(1), postEditorBundles[0]["serverResponse"])
	require.Equal(testInstance, float64(2), postEditorBundles[1]["serverResponse"])
	require.Equal(testInstance, float64(3), postEditorBundles[2]["serverResponse"])
	require.Len(testInstance, results[suite.SuiteSiteEditor][testTrunkRevisionConstant], 3)
}

func TestRunTrialsFailsFast(testInstance *testing.T) {
	runner := &scriptedSuiteRunner{failOnCall: 2}
	scheduler, creationError := trials.NewScheduler(runner, nil)
	require.NoError(testInstance, creationError)

	revisions := []string{testTrunkRevisionConstant, testFeatureRevisionConstant}
	results, trialError := scheduler.RunTrials(
		context.Background(),
		[]suite.SuiteName{suite.SuitePostEditor},
		revisions,
		testEnvironments(testInstance, revisions...),
		3,
		testTrialSourceRootConstant,
	)

	require.Nil(testInstance, results)
	require.ErrorContains(testInstance, trialError, testRunnerFailureMessageConstant)
	require.Len(testInstance, runner.invocations, 2)
}

func TestRunTrialsValidatesPlan(testInstance *testing.T) {
	runner := &scriptedSuiteRunner{}
	scheduler, creationError := trials.NewScheduler(runner, nil)
	require.NoError(testInstance, creationError)

	environments := testEnvironments(testInstance, testTrunkRevisionConstant)

	testCases := []struct {
		name       string
		suites     []suite.SuiteName
		revisions  []string
		roundCount int
	}{
		{name: "no_suites", suites: nil, revisions: []string{testTrunkRevisionConstant}, roundCount: 3},
		{name: "no_revisions", suites: []suite.SuiteName{suite.SuitePostEditor}, revisions: nil, roundCount: 3},
		{name: "zero_rounds", suites: []suite.SuiteName{suite.SuitePostEditor}, revisions: []string{testTrunkRevisionConstant}, roundCount: 0},
		{name: "missing_environment", suites: []suite.SuiteName{suite.SuitePostEditor}, revisions: []string{testFeatureRevisionConstant}, roundCount: 3},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf(trialsSubtestNameTemplateConstant, testCaseIndex, testCase.name), func(testInstance *testing.T) {
			results, trialError := scheduler.RunTrials(
				context.Background(),
				testCase.suites,
				testCase.revisions,
				environments,
				testCase.roundCount,
				testTrialSourceRootConstant,
			)
			require.Nil(testInstance, results)
			var planError trials.InvalidTrialPlanError
			require.ErrorAs(testInstance, trialError, &planError)
			require.Empty(testInstance, runner.invocations)
		})
	}
}
