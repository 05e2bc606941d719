package adapters

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"

	"choco-cli/internal/ports"
	"choco-cli/internal/types"
)

// ShellScriptRunner interprets the POSIX shell scripts shipped in a package
// with an embedded interpreter, so no system shell is required.
type ShellScriptRunner struct {
	installRoot string
}

func NewShellScriptRunner(installRoot string) ShellScriptRunner {
	return ShellScriptRunner{installRoot: installRoot}
}

func (r ShellScriptRunner) Install(ctx context.Context, cfg *types.OperationConfiguration, result *types.PackageResult, opCtx *types.OperationContext) (bool, error) {
	return r.run(ctx, cfg, result, opCtx, types.InstallScriptName, true)
}

func (r ShellScriptRunner) Uninstall(ctx context.Context, cfg *types.OperationConfiguration, result *types.PackageResult, opCtx *types.OperationContext) (bool, error) {
	return r.run(ctx, cfg, result, opCtx, types.UninstallScriptName, true)
}

// BeforeModify failures are reported as warnings and never fail the package.
func (r ShellScriptRunner) BeforeModify(ctx context.Context, cfg *types.OperationConfiguration, result *types.PackageResult, opCtx *types.OperationContext) (bool, error) {
	return r.run(ctx, cfg, result, opCtx, types.BeforeModifyScriptName, false)
}

func (r ShellScriptRunner) run(ctx context.Context, cfg *types.OperationConfiguration, result *types.PackageResult, opCtx *types.OperationContext, scriptName string, failOnError bool) (bool, error) {
	script, err := FindPackageScript(result.InstallLocation, scriptName)
	if err != nil || script == "" {
		return false, err
	}
	logger := log.Ctx(ctx).With().Str("pkg", result.Name).Str("script", scriptName).Logger()
	fail := func(msg string) {
		if failOnError {
			result.AddError(msg)
			return
		}
		result.AddWarning(msg)
	}

	content, err := os.ReadFile(script)
	if err != nil {
		fail(fmt.Sprintf("Unable to read '%s'.", script))
		return true, scriptError("failed to read "+script, err)
	}
	prog, err := syntax.NewParser().Parse(bytes.NewReader(content), script)
	if err != nil {
		fail(fmt.Sprintf("Error while parsing '%s'.\n %s", script, err))
		return true, scriptError("failed to parse "+script, err)
	}

	stdout := newLogLineWriter(logger, zerolog.InfoLevel)
	stderr := newLogLineWriter(logger, zerolog.ErrorLevel)
	runner, err := interp.New(
		interp.Dir(filepath.Dir(script)),
		interp.Env(expand.ListEnviron(r.environment(cfg, result, opCtx)...)),
		interp.StdIO(nil, stdout, stderr),
	)
	if err != nil {
		fail(fmt.Sprintf("Unable to prepare '%s'.", script))
		return true, scriptError("failed to create interpreter", err)
	}

	timeout := time.Duration(cfg.TimeoutSeconds()) * time.Second
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	logger.Info().Str("path", script).Msg("running package script")
	runErr := runner.Run(runCtx, prog)
	stdout.Flush()
	stderr.Flush()

	for _, key := range opCtx.CapturedKeys() {
		if variable, ok := runner.Vars[key]; ok {
			if value := variable.String(); value != "" {
				opCtx.Set(key, value)
			}
		}
	}

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		fail(fmt.Sprintf("'%s' timed out after %d seconds.", script, cfg.TimeoutSeconds()))
		return true, nil
	}
	code := 0
	if runErr != nil {
		var status interp.ExitStatus
		if !errors.As(runErr, &status) {
			fail(fmt.Sprintf("Error while running '%s'.\n %s", script, runErr))
			return true, nil
		}
		code = int(status)
	}
	// Shell exit statuses are 8-bit, so larger installer codes travel in
	// a variable instead.
	if variable, ok := runner.Vars[types.EnvPackageExitCode]; ok {
		if reported, err := strconv.Atoi(strings.TrimSpace(variable.String())); err == nil && reported != 0 {
			code = reported
		}
	}
	if code == 0 {
		return true, nil
	}
	switch {
	case code == types.ExitCodeRebootInitiated || code == types.ExitCodeRebootRequired:
		if failOnError {
			result.ExitCode = code
		}
		result.AddWarning(fmt.Sprintf("%s requires a reboot (exit code %d).", result.Name, code))
	case cfg.Features.UsePackageExitCodes && cfg.IsValidExitCode(code):
		if failOnError {
			result.ExitCode = code
		}
	default:
		if failOnError {
			result.ExitCode = types.ExitCodeFailure
			if cfg.Features.UsePackageExitCodes {
				result.ExitCode = code
			}
		}
		fail(fmt.Sprintf("Error while running '%s'.\n See log for details.", script))
	}
	return true, nil
}

func (r ShellScriptRunner) environment(cfg *types.OperationConfiguration, result *types.PackageResult, opCtx *types.OperationContext) []string {
	env := os.Environ()
	env = append(env,
		types.EnvInstallRoot+"="+r.installRoot,
		types.EnvPackageName+"="+result.Name,
		types.EnvPackageVersion+"="+result.Version,
		types.EnvPackageFolder+"="+result.InstallLocation,
		types.EnvPackageParameters+"="+cfg.InstallSettings.PackageParameters,
		types.EnvInstallArguments+"="+cfg.InstallSettings.InstallArguments,
	)
	if cfg.InstallSettings.ForceX86 {
		env = append(env, types.EnvForceX86+"=true")
	}
	return append(env, opCtx.Environ()...)
}

// FindPackageScript returns the first file below dir named scriptName,
// compared case-insensitively, or "" when there is none.
func FindPackageScript(dir, scriptName string) (string, error) {
	if strings.TrimSpace(dir) == "" {
		return "", nil
	}
	if _, err := os.Stat(dir); err != nil {
		return "", nil
	}
	var found string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(d.Name(), scriptName) {
			found = path
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", scriptError("failed to search for "+scriptName, err)
	}
	return found, nil
}

// logLineWriter forwards complete output lines to a logger.
type logLineWriter struct {
	mu     sync.Mutex
	logger zerolog.Logger
	level  zerolog.Level
	buf    bytes.Buffer
}

func newLogLineWriter(logger zerolog.Logger, level zerolog.Level) *logLineWriter {
	return &logLineWriter{logger: logger, level: level}
}

func (w *logLineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf.Write(p)
	for {
		line, err := w.buf.ReadString('\n')
		if err != nil {
			w.buf.WriteString(line)
			break
		}
		w.emit(strings.TrimRight(line, "\r\n"))
	}
	return len(p), nil
}

func (w *logLineWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.buf.Len() > 0 {
		w.emit(w.buf.String())
		w.buf.Reset()
	}
}

func (w *logLineWriter) emit(line string) {
	if strings.TrimSpace(line) == "" {
		return
	}
	w.logger.WithLevel(w.level).Msg(line)
}

func scriptError(msg string, err error) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeInternal).
		WithMsg(msg).
		WithCause(err)
}

var _ ports.ScriptRunnerPort = ShellScriptRunner{}
