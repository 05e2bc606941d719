package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"choco-cli/internal/types"
)

func TestRememberedArgumentsRoundTrip(t *testing.T) {
	original := &types.OperationConfiguration{
		Version:                        "1.2.3",
		Sources:                        "/feeds/main",
		Prerelease:                     true,
		CommandExecutionTimeoutSeconds: 60,
		Credentials:                    types.SourceCredentials{User: "bob", Password: "pa$$ 'word'"},
		InstallSettings: types.InstallSettings{
			InstallArguments:  `/D="C:\Program Files\Tool"`,
			PackageParameters: "/NoDesktopIcon",
			ForceX86:          true,
		},
	}
	captured := CaptureArguments(original)
	assert.NotContains(t, captured, "1.2.3")

	replayed := &types.OperationConfiguration{}
	require.NoError(t, ApplyRememberedArguments(replayed, captured, nil))

	assert.Empty(t, replayed.Version)
	assert.Equal(t, original.Sources, replayed.Sources)
	assert.True(t, replayed.Prerelease)
	assert.Equal(t, 60, replayed.CommandExecutionTimeoutSeconds)
	assert.Equal(t, original.Credentials, replayed.Credentials)
	assert.Equal(t, original.InstallSettings, replayed.InstallSettings)
}

func TestApplyRememberedArgumentsKeepsExplicitFlags(t *testing.T) {
	cfg := &types.OperationConfiguration{Sources: "/feeds/explicit"}
	remembered := "--source='/feeds/old' --package-parameters='/Old'"

	err := ApplyRememberedArguments(cfg, remembered, func(flag string) bool { return flag == "source" })
	require.NoError(t, err)
	assert.Equal(t, "/feeds/explicit", cfg.Sources)
	assert.Equal(t, "/Old", cfg.InstallSettings.PackageParameters)
}

func TestApplyRememberedArgumentsRejectsUnknownFlags(t *testing.T) {
	err := ApplyRememberedArguments(&types.OperationConfiguration{}, "--bogus", nil)
	require.Error(t, err)
}

func TestDiffEnvironment(t *testing.T) {
	before := EnvironmentMap([]string{"PATH=/bin", "OLD=1", "SAME=x"})
	after := EnvironmentMap([]string{"PATH=/bin:/opt/tool", "NEW=2", "SAME=x"})

	changes := DiffEnvironment(before, after)
	require.Len(t, changes, 3)
	assert.Equal(t, EnvironmentChange{Name: "NEW", Kind: EnvironmentAdded, After: "2"}, changes[0])
	assert.Equal(t, EnvironmentChange{Name: "OLD", Kind: EnvironmentRemoved, Before: "1"}, changes[1])
	assert.Equal(t, EnvironmentChange{Name: "PATH", Kind: EnvironmentChanged, Before: "/bin", After: "/bin:/opt/tool"}, changes[2])
}
