package policies

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"choco-cli/internal/types"
)

func TestIsSafeRollbackTarget(t *testing.T) {
	root := t.TempDir()
	paths := types.NewInstallPaths(root)

	tests := []struct {
		name     string
		location string
		want     bool
	}{
		{name: "empty", location: "", want: false},
		{name: "whitespace", location: "   ", want: false},
		{name: "packages root", location: paths.Packages, want: false},
		{name: "packages root trailing slash", location: paths.Packages + string(filepath.Separator), want: false},
		{name: "install root", location: root, want: false},
		{name: "package dir", location: paths.PackageDir("7zip"), want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsSafeRollbackTarget(tt.location, paths))
		})
	}
}

func TestPlanFailureUnsafeLocation(t *testing.T) {
	paths := types.NewInstallPaths(t.TempDir())
	result := types.NewPackageResult("bad", "1.0", paths.Packages)

	plan, err := PlanFailure(&types.OperationConfiguration{}, result, paths, true, true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not specific enough")
	assert.False(t, plan.Quarantine)
	assert.False(t, plan.Rollback)
}

func TestPlanFailurePrompt(t *testing.T) {
	paths := types.NewInstallPaths(t.TempDir())
	cfg := &types.OperationConfiguration{
		PromptForConfirmation: true,
		Information:           types.PlatformInformation{IsInteractive: true},
		Features:              types.FeaturesConfiguration{StopOnFirstPackageFailure: true},
	}
	result := types.NewPackageResult("git", "1.0", paths.PackageDir("git"))

	plan, err := PlanFailure(cfg, result, paths, true, true)
	require.NoError(t, err)
	assert.Equal(t, FailurePlan{Quarantine: true, Rollback: true, Prompt: true, Abort: true}, plan)

	result.Abandoned = true
	plan, err = PlanFailure(cfg, result, paths, true, true)
	require.NoError(t, err)
	assert.False(t, plan.Prompt)

	cfg.Information.IsInteractive = false
	result.Abandoned = false
	plan, err = PlanFailure(cfg, result, paths, true, true)
	require.NoError(t, err)
	assert.False(t, plan.Prompt)
}

func TestShouldExitForReboot(t *testing.T) {
	cfg := &types.OperationConfiguration{}
	result := types.NewPackageResult("kb", "1", "")
	result.ExitCode = types.ExitCodeRebootInitiated
	assert.False(t, ShouldExitForReboot(cfg, result))

	cfg.Features.ExitOnRebootDetected = true
	assert.True(t, ShouldExitForReboot(cfg, result))
	result.ExitCode = 0
	assert.False(t, ShouldExitForReboot(cfg, result))
}
