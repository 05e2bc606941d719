package adapters

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"choco-cli/internal/ports"
	"choco-cli/internal/types"
)

// LookPathFunc resolves an executable on the search path.
type LookPathFunc func(file string) (string, error)

// lineParser inspects one line of tool output for the package named in
// the invocation. It runs with the invocation's results locked.
type lineParser func(line string, invocation toolInvocation, results *types.ResultSet)

type toolInvocation struct {
	command    string
	args       []string
	name       string
	version    string
	parse      lineParser
	stdoutOnly bool
}

// externalTool drives one backend executable per package and folds its
// output into a result set.
type externalTool struct {
	sourceType types.SourceType
	executor   ports.CommandExecutorPort
	exit       *types.ExitStatus
}

func (t externalTool) run(ctx context.Context, cfg *types.OperationConfiguration, invocation toolInvocation, results *types.ResultSet) *types.PackageResult {
	logger := log.Ctx(ctx).With().Str("source", string(t.sourceType)).Str("package", invocation.name).Logger()
	var mu sync.Mutex
	onLine := func(stderr bool) func(string) {
		return func(line string) {
			if strings.TrimSpace(line) == "" {
				return
			}
			if stderr {
				logger.Error().Msg(line)
			} else {
				logger.Info().Msg(line)
			}
			if invocation.parse == nil || stderr && invocation.stdoutOnly {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			invocation.parse(line, invocation, results)
		}
	}

	logger.Debug().Str("command", invocation.command).Strs("args", invocation.args).Msg("running source tool")
	execResult, err := t.executor.Execute(ctx, ports.ExecRequest{
		Command:  invocation.command,
		Args:     invocation.args,
		Timeout:  time.Duration(cfg.TimeoutSeconds()) * time.Second,
		OnStdout: onLine(false),
		OnStderr: onLine(true),
	})

	result := results.GetOrAdd(invocation.name, func() *types.PackageResult {
		return t.newResult(invocation.name, invocation.version)
	})
	switch {
	case err != nil:
		result.AddError(fmt.Sprintf("Running %s failed: %v", invocation.command, err))
		t.setExit(types.ExitCodeFailure)
	case execResult.TimedOut:
		result.AddError(fmt.Sprintf("%s did not finish within %d seconds and was stopped.", invocation.command, cfg.TimeoutSeconds()))
		t.setExit(types.ExitCodeFailure)
	case execResult.ExitCode != 0:
		t.setExit(execResult.ExitCode)
		result.ExitCode = execResult.ExitCode
		if !cfg.IsValidExitCode(execResult.ExitCode) && result.Success {
			result.AddError(fmt.Sprintf("%s exited with code %d.", invocation.command, execResult.ExitCode))
		}
	}
	return result
}

func (t externalTool) newResult(name, version string) *types.PackageResult {
	result := types.NewPackageResult(name, version, "")
	result.SourceType = t.sourceType
	return result
}

func (t externalTool) setExit(code int) {
	if t.exit != nil {
		t.exit.Set(code)
	}
}

// finish runs the continuation over every result the tool reported.
func finish(ctx context.Context, cfg *types.OperationConfiguration, handler ports.PackageResultHandler, results *types.ResultSet, outcome *types.RunOutcome) bool {
	for _, result := range results.Results() {
		outcome.Results.Put(result)
		if handler == nil || !result.Success || result.Inconclusive {
			continue
		}
		if abort := handler(ctx, result, cfg); abort != nil {
			outcome.Abort = abort
			return false
		}
	}
	return true
}

func notSupported(sourceType types.SourceType, operation string) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeFailedPrecondition).
		WithMsg(fmt.Sprintf("%s is not supported for the %s source.", operation, sourceType))
}

// sourceAppBootstrapper installs the tool an alternative source depends on
// as a normal package.
type sourceAppBootstrapper struct {
	normal ports.SourceRunnerPort
	paths  types.InstallPaths
}

func (b sourceAppBootstrapper) installed(appPackage string) bool {
	info, err := os.Stat(b.paths.PackageDir(appPackage))
	return err == nil && info.IsDir()
}

func (b sourceAppBootstrapper) ensure(ctx context.Context, cfg *types.OperationConfiguration, sourceType types.SourceType, appPackage string, handler ports.PackageResultHandler) error {
	if b.installed(appPackage) {
		return nil
	}
	if b.normal == nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg(fmt.Sprintf("%s is required for the %s source and cannot be installed automatically.", appPackage, sourceType))
	}
	log.Ctx(ctx).Info().Msgf("%s is required for the %s source. Installing it first.", appPackage, sourceType)

	bootCfg := cfg.Clone()
	bootCfg.CommandName = types.CommandInstall
	bootCfg.PackageNames = appPackage
	bootCfg.Version = ""
	bootCfg.SourceType = types.SourceTypeNormal
	bootCfg.Sources = cfg.BootstrapSource
	if bootCfg.Sources == "" {
		bootCfg.Sources = types.DefaultFeedSource
	}
	bootCfg.InstallSettings = types.InstallSettings{}
	bootCfg.Noop = false

	outcome, err := b.normal.Install(ctx, bootCfg, handler, nil)
	if err != nil {
		return err
	}
	if result, ok := outcome.Results.Get(appPackage); !ok || !result.Success {
		return errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg(fmt.Sprintf("Unable to install %s, which is required for the %s source.", appPackage, sourceType))
	}
	return nil
}

func defaultLookPath(lookPath LookPathFunc) LookPathFunc {
	if lookPath == nil {
		return exec.LookPath
	}
	return lookPath
}
