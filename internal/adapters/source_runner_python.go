package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"choco-cli/internal/core"
	"choco-cli/internal/ports"
	"choco-cli/internal/shared"
	"choco-cli/internal/types"
)

const pythonAppPackage = "python"

var (
	pipInstalledPattern   = regexp.MustCompile(`^\s*Successfully installed (.+)$`)
	pipUninstalledPattern = regexp.MustCompile(`^\s*Successfully uninstalled (\S+)`)
	pipSatisfiedPattern   = regexp.MustCompile(`^\s*Requirement already satisfied: ([A-Za-z0-9._-]+)`)
	pipNotFoundPattern    = regexp.MustCompile(`(?i)(Could not find a version that satisfies the requirement|No matching distribution found for)`)
	pipNotInstalledPat    = regexp.MustCompile(`^\s*WARNING: Skipping (\S+) as it is not installed`)
	pipFreezePattern      = regexp.MustCompile(`^([A-Za-z0-9._-]+)==(\S+)$`)
)

// PythonSourceRunner manages packages through pip.
type PythonSourceRunner struct {
	tool      externalTool
	bootstrap sourceAppBootstrapper
	lookPath  LookPathFunc
}

func NewPythonSourceRunner(executor ports.CommandExecutorPort, exit *types.ExitStatus, normal ports.SourceRunnerPort, paths types.InstallPaths, lookPath LookPathFunc) *PythonSourceRunner {
	return &PythonSourceRunner{
		tool:      externalTool{sourceType: types.SourceTypePython, executor: executor, exit: exit},
		bootstrap: sourceAppBootstrapper{normal: normal, paths: paths},
		lookPath:  defaultLookPath(lookPath),
	}
}

func (r *PythonSourceRunner) SourceType() types.SourceType {
	return types.SourceTypePython
}

func (r *PythonSourceRunner) interpreter() (string, error) {
	for _, candidate := range []string{"python3", "python"} {
		if path, err := r.lookPath(candidate); err == nil {
			return path, nil
		}
	}
	return "", errbuilder.New().
		WithCode(errbuilder.CodeFailedPrecondition).
		WithMsg("Python is not available on the search path.")
}

func (r *PythonSourceRunner) EnsureSourceAppInstalled(ctx context.Context, cfg *types.OperationConfiguration, handler ports.PackageResultHandler) error {
	if _, err := r.interpreter(); err == nil {
		return nil
	}
	return r.bootstrap.ensure(ctx, cfg, types.SourceTypePython, pythonAppPackage, handler)
}

func (r *PythonSourceRunner) Count(ctx context.Context, cfg *types.OperationConfiguration) (int, error) {
	packages, err := r.List(ctx, cfg)
	return len(packages), err
}

func (r *PythonSourceRunner) List(ctx context.Context, cfg *types.OperationConfiguration) ([]*types.PackageResult, error) {
	python, err := r.interpreter()
	if err != nil {
		return nil, err
	}
	results := types.NewResultSet()
	listing := results.GetOrAdd("pip list", func() *types.PackageResult { return r.tool.newResult("pip list", "") })
	invocation := toolInvocation{
		command: python,
		args:    []string{"-m", "pip", "list", "--format=freeze", "--disable-pip-version-check"},
		name:    "pip list",
		parse: func(line string, _ toolInvocation, results *types.ResultSet) {
			match := pipFreezePattern.FindStringSubmatch(strings.TrimSpace(line))
			if match == nil {
				return
			}
			name := shared.NormalizePipName(match[1])
			if !matchesListFilter(cfg, name) {
				return
			}
			results.Put(r.tool.newResult(name, match[2]))
		},
		stdoutOnly: true,
	}
	r.tool.run(ctx, cfg, invocation, results)
	if !listing.Success {
		msg, _ := listing.FirstMessage(types.MessageKindError)
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(msg.Text)
	}
	results.Delete("pip list")
	return results.Results(), nil
}

func (r *PythonSourceRunner) InstallDryRun(ctx context.Context, cfg *types.OperationConfiguration, _ ports.PackageResultHandler) error {
	for _, name := range cfg.PackageNameList() {
		log.Ctx(ctx).Info().Msgf("Would have run 'pip install %s'.", pipRequirement(name, cfg.Version))
	}
	return nil
}

func (r *PythonSourceRunner) Install(ctx context.Context, cfg *types.OperationConfiguration, handler ports.PackageResultHandler, _ ports.BeforeModifyHandler) (types.RunOutcome, error) {
	return r.modify(ctx, cfg, handler, func(name string) []string {
		return []string{"-m", "pip", "install", pipRequirement(name, cfg.Version), "--disable-pip-version-check"}
	})
}

func (r *PythonSourceRunner) UpgradeDryRun(ctx context.Context, cfg *types.OperationConfiguration, _ ports.PackageResultHandler) (types.RunOutcome, error) {
	outcome := types.NewRunOutcome()
	python, err := r.interpreter()
	if err != nil {
		return outcome, err
	}
	var payload strings.Builder
	results := types.NewResultSet()
	r.tool.run(ctx, cfg, toolInvocation{
		command: python,
		args:    []string{"-m", "pip", "list", "--outdated", "--format=json", "--disable-pip-version-check"},
		name:    "pip list",
		parse: func(line string, _ toolInvocation, _ *types.ResultSet) {
			payload.WriteString(line)
		},
		stdoutOnly: true,
	}, results)
	if listing, ok := results.Get("pip list"); ok && !listing.Success {
		msg, _ := listing.FirstMessage(types.MessageKindError)
		return outcome, errbuilder.New().WithCode(errbuilder.CodeInternal).WithMsg(msg.Text)
	}

	var outdated []struct {
		Name          string `json:"name"`
		Version       string `json:"version"`
		LatestVersion string `json:"latest_version"`
	}
	if text := strings.TrimSpace(payload.String()); text != "" {
		if err := json.Unmarshal([]byte(text), &outdated); err != nil {
			return outcome, errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("failed to parse pip outdated listing").
				WithCause(err)
		}
	}
	wanted := cfg.PackageNameList()
	all := len(wanted) == 0 || len(wanted) == 1 && strings.EqualFold(wanted[0], types.AllPackagesName)
	for _, pkg := range outdated {
		name := shared.NormalizePipName(pkg.Name)
		if cfg.IsExcepted(name) || !all && !containsPipName(wanted, name) {
			continue
		}
		result := r.tool.newResult(name, pkg.LatestVersion)
		result.PreviousVersion = pkg.Version
		result.AddNote(fmt.Sprintf("You have %s v%s installed. Version %s is available based on your source(s).", name, pkg.Version, pkg.LatestVersion))
		outcome.Results.Put(result)
	}
	return outcome, nil
}

func (r *PythonSourceRunner) Upgrade(ctx context.Context, cfg *types.OperationConfiguration, handler ports.PackageResultHandler, _ ports.BeforeModifyHandler) (types.RunOutcome, error) {
	return r.modify(ctx, cfg, handler, func(name string) []string {
		return []string{"-m", "pip", "install", "--upgrade", pipRequirement(name, cfg.Version), "--disable-pip-version-check"}
	})
}

func (r *PythonSourceRunner) UninstallDryRun(ctx context.Context, cfg *types.OperationConfiguration, _ ports.PackageResultHandler) error {
	for _, name := range cfg.PackageNameList() {
		log.Ctx(ctx).Info().Msgf("Would have run 'pip uninstall %s -y'.", name)
	}
	return nil
}

func (r *PythonSourceRunner) Uninstall(ctx context.Context, cfg *types.OperationConfiguration, handler ports.PackageResultHandler, _ ports.BeforeModifyHandler) (types.RunOutcome, error) {
	return r.modify(ctx, cfg, handler, func(name string) []string {
		return []string{"-m", "pip", "uninstall", name, "-y", "--disable-pip-version-check"}
	})
}

func (r *PythonSourceRunner) modify(ctx context.Context, cfg *types.OperationConfiguration, handler ports.PackageResultHandler, args func(name string) []string) (types.RunOutcome, error) {
	outcome := types.NewRunOutcome()
	python, err := r.interpreter()
	if err != nil {
		return outcome, err
	}
	for _, name := range cfg.PackageNameList() {
		name = shared.NormalizePipName(name)
		results := types.NewResultSet()
		r.tool.run(ctx, cfg, toolInvocation{
			command: python,
			args:    args(name),
			name:    name,
			version: cfg.Version,
			parse:   r.parseLine,
		}, results)
		if !finish(ctx, cfg, handler, results, &outcome) {
			return outcome, nil
		}
	}
	return outcome, nil
}

func (r *PythonSourceRunner) parseLine(line string, invocation toolInvocation, results *types.ResultSet) {
	requested := func() *types.PackageResult {
		return results.GetOrAdd(invocation.name, func() *types.PackageResult {
			return r.tool.newResult(invocation.name, invocation.version)
		})
	}
	switch {
	case pipInstalledPattern.MatchString(line):
		for _, token := range strings.Fields(pipInstalledPattern.FindStringSubmatch(line)[1]) {
			name, version, ok := core.SplitNameVersion(types.SourceTypePython, token)
			if !ok {
				continue
			}
			name = shared.NormalizePipName(name)
			result := results.GetOrAdd(name, func() *types.PackageResult { return r.tool.newResult(name, version) })
			result.Version = version
			result.AddNote(fmt.Sprintf("Installed %s v%s", name, version))
		}
	case pipUninstalledPattern.MatchString(line):
		name, version, _ := core.SplitNameVersion(types.SourceTypePython, pipUninstalledPattern.FindStringSubmatch(line)[1])
		name = shared.NormalizePipName(name)
		result := results.GetOrAdd(name, func() *types.PackageResult { return r.tool.newResult(name, version) })
		if version != "" {
			result.Version = version
		}
		result.AddNote(fmt.Sprintf("%s has been successfully uninstalled.", name))
	case pipSatisfiedPattern.MatchString(line):
		name := shared.NormalizePipName(pipSatisfiedPattern.FindStringSubmatch(line)[1])
		if name == invocation.name {
			result := requested()
			result.AddWarning(fmt.Sprintf("%s is already installed.", name))
			result.Inconclusive = true
		}
	case pipNotInstalledPat.MatchString(line):
		result := requested()
		result.AddError(fmt.Sprintf("%s is not installed. Cannot uninstall a non-existent package.", invocation.name))
	case pipNotFoundPattern.MatchString(line):
		result := requested()
		if result.Success {
			result.AddError(fmt.Sprintf("%s: Not a known package in the source.", invocation.name))
		}
	}
}

func pipRequirement(name, version string) string {
	if version == "" {
		return name
	}
	return name + "==" + version
}

func containsPipName(names []string, name string) bool {
	for _, candidate := range names {
		if shared.NormalizePipName(candidate) == name {
			return true
		}
	}
	return false
}

var _ ports.SourceRunnerPort = (*PythonSourceRunner)(nil)
