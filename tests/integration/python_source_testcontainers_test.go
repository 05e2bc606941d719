//go:build integration

package integration

import (
	"bufio"
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcexec "github.com/testcontainers/testcontainers-go/exec"
	"github.com/testcontainers/testcontainers-go/wait"

	"choco-cli/internal/adapters"
	"choco-cli/internal/app"
	"choco-cli/internal/ports"
	"choco-cli/internal/types"
)

const (
	pythonImage    = "python:3.12-slim"
	pipPackageName = "six"
	pipVersion     = "1.16.0"
)

// containerExecutor runs commands inside a container. Output is
// multiplexed, so every line is reported as stdout.
type containerExecutor struct {
	container testcontainers.Container
}

func (e containerExecutor) Execute(ctx context.Context, req ports.ExecRequest) (ports.ExecResult, error) {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}
	options := []tcexec.ProcessOption{tcexec.Multiplexed()}
	if len(req.Env) > 0 {
		options = append(options, tcexec.WithEnv(req.Env))
	}
	if req.WorkingDir != "" {
		options = append(options, tcexec.WithWorkingDir(req.WorkingDir))
	}
	code, reader, err := e.container.Exec(ctx, append([]string{req.Command}, req.Args...), options...)
	if err != nil {
		return ports.ExecResult{ExitCode: -1}, err
	}
	var output bytes.Buffer
	if _, err := output.ReadFrom(reader); err != nil {
		return ports.ExecResult{ExitCode: code}, err
	}
	scanner := bufio.NewScanner(&output)
	for scanner.Scan() {
		if req.OnStdout != nil {
			req.OnStdout(scanner.Text())
		}
	}
	return ports.ExecResult{ExitCode: code}, nil
}

var _ ports.CommandExecutorPort = containerExecutor{}

func startPythonContainer(ctx context.Context, t *testing.T) testcontainers.Container {
	t.Helper()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:      pythonImage,
			Cmd:        []string{"sleep", "infinity"},
			WaitingFor: wait.ForExec([]string{"python3", "-m", "pip", "--version"}).WithStartupTimeout(2 * time.Minute),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})
	return container
}

func TestPythonSourceLifecycleWithTestcontainers(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping testcontainers integration in short mode")
	}

	ctx := t.Context()
	container := startPythonContainer(ctx, t)

	paths := types.NewInstallPaths(filepath.Join(t.TempDir(), "choco"))
	exit := types.NewExitStatus()
	out := &bytes.Buffer{}
	service := app.NewService(paths, exit, out)
	service.Runners.Register(adapters.NewPythonSourceRunner(
		containerExecutor{container: container},
		exit,
		nil,
		paths,
		func(string) (string, error) { return "python3", nil },
	))

	cfg := &types.OperationConfiguration{
		PackageNames: pipPackageName,
		Version:      pipVersion,
		SourceType:   types.SourceTypePython,
	}
	outcome, err := service.Install(ctx, cfg)
	require.NoError(t, err, out.String())
	result, ok := outcome.Results.Get(pipPackageName)
	require.True(t, ok, out.String())
	assert.True(t, result.Success, out.String())
	assert.Equal(t, pipVersion, result.Version)
	assert.Equal(t, 0, exit.Get())
	assert.Contains(t, out.String(), "Chocolatey installed 1/1 packages.")

	listed, err := service.List(ctx, &types.OperationConfiguration{
		PackageNames: pipPackageName,
		SourceType:   types.SourceTypePython,
		ListSettings: types.ListSettings{LocalOnly: true},
	})
	require.NoError(t, err)
	var versions []string
	for _, pkg := range listed {
		if strings.EqualFold(pkg.Name, pipPackageName) {
			versions = append(versions, pkg.Version)
		}
	}
	assert.Equal(t, []string{pipVersion}, versions)

	outcome, err = service.Uninstall(ctx, &types.OperationConfiguration{
		PackageNames: pipPackageName,
		SourceType:   types.SourceTypePython,
	})
	require.NoError(t, err)
	result, ok = outcome.Results.Get(pipPackageName)
	require.True(t, ok)
	assert.True(t, result.Success, out.String())
}

func TestPythonSourceUnknownPackageFails(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping testcontainers integration in short mode")
	}

	ctx := t.Context()
	container := startPythonContainer(ctx, t)

	paths := types.NewInstallPaths(filepath.Join(t.TempDir(), "choco"))
	exit := types.NewExitStatus()
	service := app.NewService(paths, exit, &bytes.Buffer{})
	service.Runners.Register(adapters.NewPythonSourceRunner(
		containerExecutor{container: container},
		exit,
		nil,
		paths,
		func(string) (string, error) { return "python3", nil },
	))

	outcome, err := service.Install(ctx, &types.OperationConfiguration{
		PackageNames: "no-such-package-choco-integration",
		SourceType:   types.SourceTypePython,
	})
	require.NoError(t, err)
	result, ok := outcome.Results.Get("no-such-package-choco-integration")
	require.True(t, ok)
	assert.False(t, result.Success)
	assert.Equal(t, types.ExitCodeFailure, exit.Get())
}
