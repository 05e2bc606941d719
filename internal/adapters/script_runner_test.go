package adapters

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"choco-cli/internal/types"
)

func writeScript(t *testing.T, location, name, body string) {
	t.Helper()
	dir := filepath.Join(location, "tools")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func scriptResult(t *testing.T) *types.PackageResult {
	t.Helper()
	return types.NewPackageResult("7zip", "19.0", filepath.Join(t.TempDir(), "7zip"))
}

func TestShellScriptRunner_NoScript(t *testing.T) {
	result := scriptResult(t)
	require.NoError(t, os.MkdirAll(result.InstallLocation, 0o755))

	ran, err := NewShellScriptRunner("/choco").Install(context.Background(), &types.OperationConfiguration{}, result, types.NewOperationContext())
	require.NoError(t, err)
	assert.False(t, ran)
	assert.True(t, result.Success)
}

func TestShellScriptRunner_InstallExportsVariables(t *testing.T) {
	result := scriptResult(t)
	writeScript(t, result.InstallLocation, "ChocolateyInstall.sh", `
echo "$ChocolateyPackageName $ChocolateyPackageVersion $ChocolateyInstall" > out.txt
ChocolateyInstallerType=msi
ChocolateyPackageInstallLocation="$ChocolateyPackageFolder/app"
`)
	opCtx := types.NewOperationContext()

	ran, err := NewShellScriptRunner("/choco").Install(context.Background(), &types.OperationConfiguration{}, result, opCtx)
	require.NoError(t, err)
	assert.True(t, ran)
	assert.True(t, result.Success)

	out, err := os.ReadFile(filepath.Join(result.InstallLocation, "tools", "out.txt"))
	require.NoError(t, err)
	assert.Equal(t, "7zip 19.0 /choco\n", string(out))
	assert.Equal(t, "msi", opCtx.Get(types.EnvInstallerType))
	assert.Equal(t, filepath.Join(result.InstallLocation, "app"), opCtx.Get(types.EnvPackageInstallLocation))
}

func TestShellScriptRunner_ReceivesContextValues(t *testing.T) {
	result := scriptResult(t)
	writeScript(t, result.InstallLocation, types.InstallScriptName, `echo "$ChocolateyToolsLocation" > out.txt`)
	opCtx := types.NewOperationContext()
	opCtx.Set(types.EnvToolsLocation, "/opt/tools")

	_, err := NewShellScriptRunner("/choco").Install(context.Background(), &types.OperationConfiguration{}, result, opCtx)
	require.NoError(t, err)

	out, err := os.ReadFile(filepath.Join(result.InstallLocation, "tools", "out.txt"))
	require.NoError(t, err)
	assert.Equal(t, "/opt/tools\n", string(out))
}

func TestShellScriptRunner_FailureSetsExitCode(t *testing.T) {
	result := scriptResult(t)
	writeScript(t, result.InstallLocation, types.InstallScriptName, "exit 5\n")

	ran, err := NewShellScriptRunner("/choco").Install(context.Background(), &types.OperationConfiguration{}, result, types.NewOperationContext())
	require.NoError(t, err)
	assert.True(t, ran)
	assert.False(t, result.Success)
	assert.Equal(t, types.ExitCodeFailure, result.ExitCode)
	msg, ok := result.FirstMessage(types.MessageKindError)
	require.True(t, ok)
	assert.Contains(t, msg.Text, "Error while running")
}

func TestShellScriptRunner_PackageExitCodes(t *testing.T) {
	result := scriptResult(t)
	writeScript(t, result.InstallLocation, types.InstallScriptName, "exit 5\n")
	cfg := &types.OperationConfiguration{Features: types.FeaturesConfiguration{UsePackageExitCodes: true}}

	_, err := NewShellScriptRunner("/choco").Install(context.Background(), cfg, result, types.NewOperationContext())
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, 5, result.ExitCode)
}

func TestShellScriptRunner_RebootCodeFromVariable(t *testing.T) {
	result := scriptResult(t)
	writeScript(t, result.InstallLocation, types.InstallScriptName, "ChocolateyExitCode=3010\n")

	_, err := NewShellScriptRunner("/choco").Install(context.Background(), &types.OperationConfiguration{}, result, types.NewOperationContext())
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, types.ExitCodeRebootRequired, result.ExitCode)
	assert.True(t, result.HasWarning())
	assert.True(t, result.RebootPending())
}

func TestShellScriptRunner_BeforeModifyOnlyWarns(t *testing.T) {
	result := scriptResult(t)
	writeScript(t, result.InstallLocation, types.BeforeModifyScriptName, "exit 3\n")

	ran, err := NewShellScriptRunner("/choco").BeforeModify(context.Background(), &types.OperationConfiguration{}, result, types.NewOperationContext())
	require.NoError(t, err)
	assert.True(t, ran)
	assert.True(t, result.Success)
	assert.Zero(t, result.ExitCode)
	assert.True(t, result.HasWarning())
}

func TestShellScriptRunner_ParseError(t *testing.T) {
	result := scriptResult(t)
	writeScript(t, result.InstallLocation, types.UninstallScriptName, "if then fi (\n")

	ran, err := NewShellScriptRunner("/choco").Uninstall(context.Background(), &types.OperationConfiguration{}, result, types.NewOperationContext())
	require.Error(t, err)
	assert.True(t, ran)
	assert.False(t, result.Success)
}
