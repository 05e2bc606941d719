package adapters

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"choco-cli/internal/ports"
	"choco-cli/internal/types"
)

type scriptedRun struct {
	stdout []string
	stderr []string
	result ports.ExecResult
	err    error
}

type fakeExecutor struct {
	runs     []scriptedRun
	requests []ports.ExecRequest
}

func (f *fakeExecutor) Execute(_ context.Context, req ports.ExecRequest) (ports.ExecResult, error) {
	f.requests = append(f.requests, req)
	if len(f.runs) == 0 {
		return ports.ExecResult{}, nil
	}
	run := f.runs[0]
	f.runs = f.runs[1:]
	for _, line := range run.stdout {
		if req.OnStdout != nil {
			req.OnStdout(line)
		}
	}
	for _, line := range run.stderr {
		if req.OnStderr != nil {
			req.OnStderr(line)
		}
	}
	return run.result, run.err
}

func staticLookPath(found ...string) LookPathFunc {
	return func(file string) (string, error) {
		for _, name := range found {
			if name == file {
				return "/usr/bin/" + file, nil
			}
		}
		return "", errors.New("not found")
	}
}

type fakeNormalRunner struct {
	FolderSourceRunner
	installs []*types.OperationConfiguration
	succeed  bool
}

func (f *fakeNormalRunner) Install(_ context.Context, cfg *types.OperationConfiguration, _ ports.PackageResultHandler, _ ports.BeforeModifyHandler) (types.RunOutcome, error) {
	f.installs = append(f.installs, cfg)
	outcome := types.NewRunOutcome()
	result := types.NewPackageResult(cfg.PackageNames, "1.0.0", "")
	if !f.succeed {
		result.AddError("boom")
	}
	outcome.Results.Put(result)
	return outcome, nil
}

func handledNames(handled *[]string) ports.PackageResultHandler {
	return func(_ context.Context, result *types.PackageResult, _ *types.OperationConfiguration) *types.BatchAbort {
		*handled = append(*handled, result.Name)
		return nil
	}
}

// -----------------------------------------------------------------------------
// Python
// -----------------------------------------------------------------------------

func TestPythonInstall_ParsesInstalledPackages(t *testing.T) {
	exec := &fakeExecutor{runs: []scriptedRun{{
		stdout: []string{
			"Collecting requests",
			"Successfully installed certifi-2024.2.2 charset_normalizer-3.3.2 requests-2.31.0",
		},
	}}}
	exit := types.NewExitStatus()
	runner := NewPythonSourceRunner(exec, exit, nil, types.NewInstallPaths(t.TempDir()), staticLookPath("python3"))

	var handled []string
	cfg := &types.OperationConfiguration{PackageNames: "Requests", Version: "2.31.0"}
	outcome, err := runner.Install(context.Background(), cfg, handledNames(&handled), nil)
	require.NoError(t, err)

	require.Len(t, exec.requests, 1)
	want := []string{"-m", "pip", "install", "requests==2.31.0", "--disable-pip-version-check"}
	if diff := cmp.Diff(want, exec.requests[0].Args); diff != "" {
		t.Fatalf("args mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "/usr/bin/python3", exec.requests[0].Command)
	assert.Equal(t, []string{"certifi", "charset-normalizer", "requests"}, handled)

	result, ok := outcome.Results.Get("requests")
	require.True(t, ok)
	assert.Equal(t, "2.31.0", result.Version)
	assert.Equal(t, types.SourceTypePython, result.SourceType)
	assert.Equal(t, 0, exit.Get())
}

func TestPythonInstall_NotFoundFailsAndPropagatesExitCode(t *testing.T) {
	exec := &fakeExecutor{runs: []scriptedRun{{
		stderr: []string{
			"ERROR: Could not find a version that satisfies the requirement nopez (from versions: none)",
			"ERROR: No matching distribution found for nopez",
		},
		result: ports.ExecResult{ExitCode: 7},
	}}}
	exit := types.NewExitStatus()
	runner := NewPythonSourceRunner(exec, exit, nil, types.NewInstallPaths(t.TempDir()), staticLookPath("python"))

	var handled []string
	outcome, err := runner.Install(context.Background(), &types.OperationConfiguration{PackageNames: "nopez"}, handledNames(&handled), nil)
	require.NoError(t, err)
	result, ok := outcome.Results.Get("nopez")
	require.True(t, ok)
	assert.False(t, result.Success)
	assert.Equal(t, 7, result.ExitCode)
	assert.Len(t, result.MessagesOf(types.MessageKindError), 1)
	assert.Empty(t, handled)
	assert.Equal(t, 7, exit.Get())
}

func TestPythonInstall_TimeoutFails(t *testing.T) {
	exec := &fakeExecutor{runs: []scriptedRun{{result: ports.ExecResult{ExitCode: -1, TimedOut: true}}}}
	runner := NewPythonSourceRunner(exec, types.NewExitStatus(), nil, types.NewInstallPaths(t.TempDir()), staticLookPath("python3"))

	cfg := &types.OperationConfiguration{PackageNames: "slow", CommandExecutionTimeoutSeconds: 5}
	outcome, err := runner.Install(context.Background(), cfg, nil, nil)
	require.NoError(t, err)
	result, _ := outcome.Results.Get("slow")
	require.NotNil(t, result)
	assert.False(t, result.Success)
	assert.Equal(t, float64(5), exec.requests[0].Timeout.Seconds())
}

func TestPythonUninstall_NotInstalled(t *testing.T) {
	exec := &fakeExecutor{runs: []scriptedRun{{
		stderr: []string{"WARNING: Skipping ghost as it is not installed."},
	}}}
	runner := NewPythonSourceRunner(exec, types.NewExitStatus(), nil, types.NewInstallPaths(t.TempDir()), staticLookPath("python3"))

	outcome, err := runner.Uninstall(context.Background(), &types.OperationConfiguration{PackageNames: "ghost"}, nil, nil)
	require.NoError(t, err)
	result, _ := outcome.Results.Get("ghost")
	require.NotNil(t, result)
	assert.False(t, result.Success)
	assert.Equal(t, []string{"-m", "pip", "uninstall", "ghost", "-y", "--disable-pip-version-check"}, exec.requests[0].Args)
}

func TestPythonList_ParsesFreezeOutput(t *testing.T) {
	exec := &fakeExecutor{runs: []scriptedRun{{
		stdout: []string{"PyYAML==6.0.1", "requests==2.31.0", "not a package line"},
		stderr: []string{"WARNING: ignored==1.0"},
	}}}
	runner := NewPythonSourceRunner(exec, types.NewExitStatus(), nil, types.NewInstallPaths(t.TempDir()), staticLookPath("python3"))

	results, err := runner.List(context.Background(), &types.OperationConfiguration{})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "pyyaml", results[0].Name)
	assert.Equal(t, "6.0.1", results[0].Version)
	assert.Equal(t, "requests", results[1].Name)
}

func TestPythonUpgradeDryRun_ParsesOutdatedJSON(t *testing.T) {
	exec := &fakeExecutor{runs: []scriptedRun{{
		stdout: []string{`[{"name": "requests", "version": "2.30.0", "latest_version": "2.31.0", "latest_filetype": "wheel"},`,
			`{"name": "PyYAML", "version": "5.4", "latest_version": "6.0.1", "latest_filetype": "wheel"}]`},
	}}}
	runner := NewPythonSourceRunner(exec, types.NewExitStatus(), nil, types.NewInstallPaths(t.TempDir()), staticLookPath("python3"))

	cfg := &types.OperationConfiguration{PackageNames: types.AllPackagesName, UpgradeSettings: types.UpgradeSettings{Except: []string{"pyyaml"}}}
	outcome, err := runner.UpgradeDryRun(context.Background(), cfg, nil)
	require.NoError(t, err)
	require.Equal(t, 1, outcome.Results.Len())
	result, _ := outcome.Results.Get("requests")
	require.NotNil(t, result)
	assert.Equal(t, "2.31.0", result.Version)
	assert.Equal(t, "2.30.0", result.PreviousVersion)
}

func TestPythonEnsureSourceAppInstalled(t *testing.T) {
	paths := types.NewInstallPaths(t.TempDir())

	present := NewPythonSourceRunner(&fakeExecutor{}, types.NewExitStatus(), nil, paths, staticLookPath("python3"))
	require.NoError(t, present.EnsureSourceAppInstalled(context.Background(), &types.OperationConfiguration{}, nil))

	normal := &fakeNormalRunner{succeed: true}
	missing := NewPythonSourceRunner(&fakeExecutor{}, types.NewExitStatus(), normal, paths, staticLookPath())
	cfg := &types.OperationConfiguration{PackageNames: "requests", Version: "2.0", SourceType: types.SourceTypePython}
	require.NoError(t, missing.EnsureSourceAppInstalled(context.Background(), cfg, nil))
	require.Len(t, normal.installs, 1)
	assert.Equal(t, "python", normal.installs[0].PackageNames)
	assert.Equal(t, types.SourceTypeNormal, normal.installs[0].SourceType)
	assert.Equal(t, types.DefaultFeedSource, normal.installs[0].Sources)
	assert.Empty(t, normal.installs[0].Version)
	assert.Equal(t, "requests", cfg.PackageNames)

	failing := NewPythonSourceRunner(&fakeExecutor{}, types.NewExitStatus(), &fakeNormalRunner{}, paths, staticLookPath())
	err := failing.EnsureSourceAppInstalled(context.Background(), cfg, nil)
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeFailedPrecondition, errbuilder.CodeOf(err))
}

// -----------------------------------------------------------------------------
// RubyGems
// -----------------------------------------------------------------------------

func TestRubyInstall_ParsesGemOutput(t *testing.T) {
	exec := &fakeExecutor{runs: []scriptedRun{{
		stdout: []string{"Fetching rake-13.1.0.gem", "Successfully installed rake-13.1.0", "1 gem installed"},
	}}}
	runner := NewRubyGemsSourceRunner(exec, types.NewExitStatus(), nil, types.NewInstallPaths(t.TempDir()), staticLookPath("gem"))

	cfg := &types.OperationConfiguration{PackageNames: "rake", Version: "13.1.0"}
	outcome, err := runner.Install(context.Background(), cfg, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"install", "rake", "--version", "13.1.0", "--no-document"}, exec.requests[0].Args)
	result, _ := outcome.Results.Get("rake")
	require.NotNil(t, result)
	assert.True(t, result.Success)
	assert.Equal(t, "13.1.0", result.Version)
}

func TestRubyInstall_UnknownGem(t *testing.T) {
	exec := &fakeExecutor{runs: []scriptedRun{{
		stderr: []string{"ERROR:  Could not find a valid gem 'nope' (>= 0) in any repository"},
		result: ports.ExecResult{ExitCode: 2},
	}}}
	runner := NewRubyGemsSourceRunner(exec, types.NewExitStatus(), nil, types.NewInstallPaths(t.TempDir()), staticLookPath("gem"))

	outcome, err := runner.Install(context.Background(), &types.OperationConfiguration{PackageNames: "nope"}, nil, nil)
	require.NoError(t, err)
	result, _ := outcome.Results.Get("nope")
	require.NotNil(t, result)
	assert.False(t, result.Success)
}

func TestRubyUnsupportedOperations(t *testing.T) {
	runner := NewRubyGemsSourceRunner(&fakeExecutor{}, types.NewExitStatus(), nil, types.NewInstallPaths(t.TempDir()), staticLookPath("gem"))
	_, err := runner.List(context.Background(), &types.OperationConfiguration{})
	assert.Equal(t, errbuilder.CodeFailedPrecondition, errbuilder.CodeOf(err))
	_, err = runner.Count(context.Background(), &types.OperationConfiguration{})
	assert.Equal(t, errbuilder.CodeFailedPrecondition, errbuilder.CodeOf(err))
	_, err = runner.Upgrade(context.Background(), &types.OperationConfiguration{}, nil, nil)
	assert.Equal(t, errbuilder.CodeFailedPrecondition, errbuilder.CodeOf(err))
}

// -----------------------------------------------------------------------------
// Cygwin and Windows features
// -----------------------------------------------------------------------------

func TestCygwinInstall_RequiresWindows(t *testing.T) {
	runner := NewCygwinSourceRunner(&fakeExecutor{}, types.NewExitStatus(), nil, types.NewInstallPaths(t.TempDir()), "/cygwin")
	runner.goos = "linux"
	_, err := runner.Install(context.Background(), &types.OperationConfiguration{PackageNames: "make"}, nil, nil)
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeFailedPrecondition, errbuilder.CodeOf(err))
}

func TestCygwinInstall_ParsesExtractedArchives(t *testing.T) {
	exec := &fakeExecutor{runs: []scriptedRun{{
		stdout: []string{
			"Extracting from file://C:/tools/cygwin/packages/http%3a%2f%2fmirror/x86_64/release/make/make-4.4.1-2.tar.zst",
		},
	}}}
	runner := NewCygwinSourceRunner(exec, types.NewExitStatus(), nil, types.NewInstallPaths(t.TempDir()), "/cygwin")
	runner.goos = "windows"

	var handled []string
	outcome, err := runner.Install(context.Background(), &types.OperationConfiguration{PackageNames: "make"}, handledNames(&handled), nil)
	require.NoError(t, err)
	result, _ := outcome.Results.Get("make")
	require.NotNil(t, result)
	assert.Equal(t, "4.4.1-2", result.Version)
	assert.Equal(t, []string{"make"}, handled)
	assert.Equal(t, filepath.Join("/cygwin", cygwinSetupName), exec.requests[0].Command)
	assert.Contains(t, strings.Join(exec.requests[0].Args, " "), "--packages make")
	assert.Contains(t, strings.Join(exec.requests[0].Args, " "), "--site "+cygwinDefaultSite)
}

type staticPlatform struct {
	info types.PlatformInformation
}

func (p staticPlatform) Information(context.Context) types.PlatformInformation {
	return p.info
}

func TestWindowsFeaturesInstall(t *testing.T) {
	exec := &fakeExecutor{runs: []scriptedRun{
		{stdout: []string{"Enabling feature(s)", "The operation completed successfully."}, result: ports.ExecResult{ExitCode: types.ExitCodeRebootRequired}},
		{stdout: []string{"Error: 0x800f080c", "Feature name Nope is unknown."}, result: ports.ExecResult{ExitCode: 87}},
	}}
	exit := types.NewExitStatus()
	platform := staticPlatform{info: types.PlatformInformation{PlatformVersion: "10.0.19045 Build 19045", Is64BitOperatingSystem: true, Is64BitProcess: true}}
	runner := NewWindowsFeaturesSourceRunner(exec, exit, platform)
	runner.goos = "windows"

	var handled []string
	outcome, err := runner.Install(context.Background(), &types.OperationConfiguration{PackageNames: "IIS-WebServer;Nope"}, handledNames(&handled), nil)
	require.NoError(t, err)

	iis, _ := outcome.Results.Get("IIS-WebServer")
	require.NotNil(t, iis)
	assert.True(t, iis.Success)
	assert.Equal(t, types.ExitCodeRebootRequired, iis.ExitCode)
	assert.Contains(t, exec.requests[0].Args, "/All")
	assert.True(t, strings.HasSuffix(exec.requests[0].Command, "dism.exe"))
	assert.Contains(t, exec.requests[0].Command, "System32")

	nope, _ := outcome.Results.Get("Nope")
	require.NotNil(t, nope)
	assert.False(t, nope.Success)
	assert.Equal(t, []string{"IIS-WebServer"}, handled)
	assert.Equal(t, 87, exit.Get())
}

func TestSupportsAllFlag(t *testing.T) {
	assert.True(t, supportsAllFlag("6.2.9200"))
	assert.True(t, supportsAllFlag("10.0.22631 Build 22631"))
	assert.False(t, supportsAllFlag("6.1.7601"))
	assert.False(t, supportsAllFlag(""))
}

// -----------------------------------------------------------------------------
// Auto uninstaller
// -----------------------------------------------------------------------------

type staticRegistry struct {
	snapshot types.RegistrySnapshot
}

func (r staticRegistry) InstallerKeys(context.Context) (types.RegistrySnapshot, error) {
	return r.snapshot, nil
}

func TestSplitUninstallCommand(t *testing.T) {
	tests := []struct {
		in   string
		exe  string
		args []string
	}{
		{in: `"C:\Program Files\7-Zip\Uninstall.exe" /S`, exe: `C:\Program Files\7-Zip\Uninstall.exe`, args: []string{"/S"}},
		{in: `C:\Program Files\Git\unins000.exe /VERYSILENT /NORESTART`, exe: `C:\Program Files\Git\unins000.exe`, args: []string{"/VERYSILENT", "/NORESTART"}},
		{in: `MsiExec.exe /I{1234}`, exe: `MsiExec.exe`, args: []string{"/I{1234}"}},
		{in: "", exe: ""},
	}
	for _, tt := range tests {
		exe, args := SplitUninstallCommand(tt.in)
		assert.Equal(t, tt.exe, exe, tt.in)
		if diff := cmp.Diff(tt.args, args); diff != "" {
			t.Fatalf("args mismatch for %q (-want +got):\n%s", tt.in, diff)
		}
	}
}

func TestAutoUninstaller_RunsQuietUninstallForRemainingKeys(t *testing.T) {
	key := types.RegistryApplicationKey{KeyPath: `HKLM\Uninstall\7-Zip`, QuietUninstallString: `"C:\7z\Uninstall.exe" /S`}
	gone := types.RegistryApplicationKey{KeyPath: `HKLM\Uninstall\Old`, UninstallString: `C:\old\remove.exe`}
	exec := &fakeExecutor{}
	adapter := NewAutoUninstallerAdapter(exec, staticRegistry{snapshot: types.RegistrySnapshot{Keys: []types.RegistryApplicationKey{key}}})

	cfg := &types.OperationConfiguration{Features: types.FeaturesConfiguration{AutoUninstaller: true}}
	result := types.NewPackageResult("7zip", "19.0", "")
	info := types.PackageInformation{Name: "7zip", RegistrySnapshot: &types.RegistrySnapshot{Keys: []types.RegistryApplicationKey{key, gone}}}
	require.NoError(t, adapter.Run(context.Background(), cfg, result, info))

	require.Len(t, exec.requests, 1)
	assert.Equal(t, `C:\7z\Uninstall.exe`, exec.requests[0].Command)
	assert.Equal(t, []string{"/S"}, exec.requests[0].Args)
	assert.True(t, result.Success)
}

func TestAutoUninstaller_FailureSeverity(t *testing.T) {
	key := types.RegistryApplicationKey{KeyPath: `HKLM\Uninstall\App`, UninstallString: `MsiExec.exe /I{ABC}`, WindowsInstaller: true}
	snapshot := types.RegistrySnapshot{Keys: []types.RegistryApplicationKey{key}}
	info := types.PackageInformation{Name: "app", RegistrySnapshot: &snapshot}

	exec := &fakeExecutor{runs: []scriptedRun{{result: ports.ExecResult{ExitCode: 1603}}}}
	adapter := NewAutoUninstallerAdapter(exec, staticRegistry{snapshot: snapshot})
	cfg := &types.OperationConfiguration{Features: types.FeaturesConfiguration{AutoUninstaller: true}}
	result := types.NewPackageResult("app", "1.0", "")
	require.NoError(t, adapter.Run(context.Background(), cfg, result, info))
	assert.True(t, result.Success)
	assert.True(t, result.HasWarning())
	assert.Equal(t, []string{"/X{ABC}", "/qn", "/norestart"}, exec.requests[0].Args)

	exec = &fakeExecutor{runs: []scriptedRun{{result: ports.ExecResult{ExitCode: 1603}}}}
	adapter = NewAutoUninstallerAdapter(exec, staticRegistry{snapshot: snapshot})
	cfg.Features.FailOnAutoUninstaller = true
	result = types.NewPackageResult("app", "1.0", "")
	require.NoError(t, adapter.Run(context.Background(), cfg, result, info))
	assert.False(t, result.Success)
}

func TestAutoUninstaller_SkippedWhenDisabled(t *testing.T) {
	exec := &fakeExecutor{}
	adapter := NewAutoUninstallerAdapter(exec, staticRegistry{})
	snapshot := types.RegistrySnapshot{Keys: []types.RegistryApplicationKey{{KeyPath: "k", UninstallString: "x.exe"}}}
	cfg := &types.OperationConfiguration{
		Features:          types.FeaturesConfiguration{AutoUninstaller: true},
		UninstallSettings: types.UninstallSettings{SkipAutoUninstaller: true},
	}
	require.NoError(t, adapter.Run(context.Background(), cfg, types.NewPackageResult("x", "", ""), types.PackageInformation{RegistrySnapshot: &snapshot}))
	assert.Empty(t, exec.requests)
}
