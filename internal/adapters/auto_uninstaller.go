package adapters

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"choco-cli/internal/ports"
	"choco-cli/internal/types"
)

// AutoUninstallerAdapter runs the native uninstaller recorded for a package
// when its installer registry entries are still present.
type AutoUninstallerAdapter struct {
	executor ports.CommandExecutorPort
	registry ports.RegistryInspectorPort
}

func NewAutoUninstallerAdapter(executor ports.CommandExecutorPort, registry ports.RegistryInspectorPort) AutoUninstallerAdapter {
	return AutoUninstallerAdapter{executor: executor, registry: registry}
}

func (a AutoUninstallerAdapter) Run(ctx context.Context, cfg *types.OperationConfiguration, result *types.PackageResult, info types.PackageInformation) error {
	logger := log.Ctx(ctx)
	if !cfg.Features.AutoUninstaller || cfg.UninstallSettings.SkipAutoUninstaller {
		logger.Debug().Str("package", result.Name).Msg("auto uninstaller disabled")
		return nil
	}
	if info.RegistrySnapshot == nil || len(info.RegistrySnapshot.Keys) == 0 {
		logger.Info().Msg(" Skipping auto uninstaller - No registry snapshot.")
		return nil
	}

	current, err := a.registry.InstallerKeys(ctx)
	if err != nil {
		return err
	}
	present := map[string]struct{}{}
	for _, key := range current.Keys {
		present[strings.ToLower(key.KeyPath)] = struct{}{}
	}

	ran := false
	for _, key := range info.RegistrySnapshot.Keys {
		if _, ok := present[strings.ToLower(key.KeyPath)]; !ok {
			logger.Debug().Str("key", key.KeyPath).Msg("installer key already removed")
			continue
		}
		command := key.QuietUninstallString
		if command == "" {
			command = key.UninstallString
		}
		exe, args := SplitUninstallCommand(command)
		if exe == "" {
			continue
		}
		if strings.Contains(strings.ToLower(exe), "msiexec") {
			args = msiUninstallArgs(args)
		}
		ran = true
		logger.Info().Msgf(" Running auto uninstaller for %s: %s %s", result.Name, exe, strings.Join(args, " "))

		execResult, err := a.executor.Execute(ctx, ports.ExecRequest{
			Command:  exe,
			Args:     args,
			Timeout:  time.Duration(cfg.TimeoutSeconds()) * time.Second,
			OnStdout: func(line string) { logger.Info().Msg(line) },
			OnStderr: func(line string) { logger.Warn().Msg(line) },
		})
		switch {
		case err != nil:
			a.report(cfg, result, fmt.Sprintf("Auto uninstaller for %s could not run: %v", result.Name, err))
		case execResult.TimedOut:
			a.report(cfg, result, fmt.Sprintf("Auto uninstaller for %s did not finish within %d seconds.", result.Name, cfg.TimeoutSeconds()))
		case !cfg.IsValidExitCode(execResult.ExitCode):
			a.report(cfg, result, fmt.Sprintf("Auto uninstaller for %s failed with exit code %d.", result.Name, execResult.ExitCode))
		}
	}
	if ran && result.Success {
		logger.Info().Msgf(" Auto uninstaller has successfully uninstalled %s or detected previous uninstall.", result.Name)
	}
	return nil
}

func (a AutoUninstallerAdapter) report(cfg *types.OperationConfiguration, result *types.PackageResult, msg string) {
	if cfg.Features.FailOnAutoUninstaller {
		result.AddError(msg)
		return
	}
	result.AddWarning(msg)
}

// SplitUninstallCommand separates the executable from a registry uninstall
// string. A quoted path or the first ".exe" ends the executable.
func SplitUninstallCommand(command string) (string, []string) {
	command = strings.TrimSpace(command)
	if command == "" {
		return "", nil
	}
	if strings.HasPrefix(command, `"`) {
		if end := strings.Index(command[1:], `"`); end >= 0 {
			return command[1 : end+1], strings.Fields(command[end+2:])
		}
	}
	if idx := strings.Index(strings.ToLower(command), ".exe"); idx >= 0 {
		end := idx + len(".exe")
		return command[:end], strings.Fields(command[end:])
	}
	fields := strings.Fields(command)
	return fields[0], fields[1:]
}

// msiUninstallArgs turns an msiexec install or repair string into a quiet
// removal.
func msiUninstallArgs(args []string) []string {
	out := make([]string, 0, len(args)+2)
	for _, arg := range args {
		upper := strings.ToUpper(arg)
		switch {
		case strings.HasPrefix(upper, "/I"), strings.HasPrefix(upper, "/X"):
			out = append(out, "/X"+arg[2:])
		case upper == "/QN", upper == "/NORESTART":
		default:
			out = append(out, arg)
		}
	}
	return append(out, "/qn", "/norestart")
}

var _ ports.AutoUninstallerPort = AutoUninstallerAdapter{}
