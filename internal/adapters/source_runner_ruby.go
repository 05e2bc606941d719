package adapters

import (
	"context"
	"fmt"
	"regexp"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"choco-cli/internal/core"
	"choco-cli/internal/ports"
	"choco-cli/internal/types"
)

const rubyAppPackage = "ruby"

var (
	gemInstalledPattern   = regexp.MustCompile(`^\s*Successfully installed (\S+)`)
	gemUninstalledPattern = regexp.MustCompile(`^\s*Successfully uninstalled (\S+)`)
	gemNotFoundPattern    = regexp.MustCompile(`ERROR:\s+Could not find a valid gem`)
	gemNotInstalledPat    = regexp.MustCompile(`(?i)is not installed`)
)

// RubyGemsSourceRunner installs and removes gems. Listing and upgrades are
// not available for this source.
type RubyGemsSourceRunner struct {
	tool      externalTool
	bootstrap sourceAppBootstrapper
	lookPath  LookPathFunc
}

func NewRubyGemsSourceRunner(executor ports.CommandExecutorPort, exit *types.ExitStatus, normal ports.SourceRunnerPort, paths types.InstallPaths, lookPath LookPathFunc) *RubyGemsSourceRunner {
	return &RubyGemsSourceRunner{
		tool:      externalTool{sourceType: types.SourceTypeRuby, executor: executor, exit: exit},
		bootstrap: sourceAppBootstrapper{normal: normal, paths: paths},
		lookPath:  defaultLookPath(lookPath),
	}
}

func (r *RubyGemsSourceRunner) SourceType() types.SourceType {
	return types.SourceTypeRuby
}

func (r *RubyGemsSourceRunner) gem() (string, error) {
	path, err := r.lookPath("gem")
	if err != nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg("RubyGems is not available on the search path.").
			WithCause(err)
	}
	return path, nil
}

func (r *RubyGemsSourceRunner) EnsureSourceAppInstalled(ctx context.Context, cfg *types.OperationConfiguration, handler ports.PackageResultHandler) error {
	if _, err := r.gem(); err == nil {
		return nil
	}
	return r.bootstrap.ensure(ctx, cfg, types.SourceTypeRuby, rubyAppPackage, handler)
}

func (r *RubyGemsSourceRunner) Count(context.Context, *types.OperationConfiguration) (int, error) {
	return 0, notSupported(types.SourceTypeRuby, "Count")
}

func (r *RubyGemsSourceRunner) List(context.Context, *types.OperationConfiguration) ([]*types.PackageResult, error) {
	return nil, notSupported(types.SourceTypeRuby, "List")
}

func (r *RubyGemsSourceRunner) InstallDryRun(ctx context.Context, cfg *types.OperationConfiguration, _ ports.PackageResultHandler) error {
	for _, name := range cfg.PackageNameList() {
		log.Ctx(ctx).Info().Msgf("Would have run 'gem install %s'.", name)
	}
	return nil
}

func (r *RubyGemsSourceRunner) Install(ctx context.Context, cfg *types.OperationConfiguration, handler ports.PackageResultHandler, _ ports.BeforeModifyHandler) (types.RunOutcome, error) {
	return r.modify(ctx, cfg, handler, func(name string) []string {
		args := []string{"install", name}
		if cfg.Version != "" {
			args = append(args, "--version", cfg.Version)
		}
		return append(args, "--no-document")
	})
}

func (r *RubyGemsSourceRunner) UpgradeDryRun(context.Context, *types.OperationConfiguration, ports.PackageResultHandler) (types.RunOutcome, error) {
	return types.NewRunOutcome(), notSupported(types.SourceTypeRuby, "Upgrade")
}

func (r *RubyGemsSourceRunner) Upgrade(context.Context, *types.OperationConfiguration, ports.PackageResultHandler, ports.BeforeModifyHandler) (types.RunOutcome, error) {
	return types.NewRunOutcome(), notSupported(types.SourceTypeRuby, "Upgrade")
}

func (r *RubyGemsSourceRunner) UninstallDryRun(ctx context.Context, cfg *types.OperationConfiguration, _ ports.PackageResultHandler) error {
	for _, name := range cfg.PackageNameList() {
		log.Ctx(ctx).Info().Msgf("Would have run 'gem uninstall %s'.", name)
	}
	return nil
}

func (r *RubyGemsSourceRunner) Uninstall(ctx context.Context, cfg *types.OperationConfiguration, handler ports.PackageResultHandler, _ ports.BeforeModifyHandler) (types.RunOutcome, error) {
	return r.modify(ctx, cfg, handler, func(name string) []string {
		args := []string{"uninstall", name, "-x"}
		if cfg.Version != "" {
			return append(args, "--version", cfg.Version)
		}
		return append(args, "-a")
	})
}

func (r *RubyGemsSourceRunner) modify(ctx context.Context, cfg *types.OperationConfiguration, handler ports.PackageResultHandler, args func(name string) []string) (types.RunOutcome, error) {
	outcome := types.NewRunOutcome()
	gem, err := r.gem()
	if err != nil {
		return outcome, err
	}
	for _, name := range cfg.PackageNameList() {
		results := types.NewResultSet()
		r.tool.run(ctx, cfg, toolInvocation{
			command: gem,
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

func (r *RubyGemsSourceRunner) parseLine(line string, invocation toolInvocation, results *types.ResultSet) {
	requested := func() *types.PackageResult {
		return results.GetOrAdd(invocation.name, func() *types.PackageResult {
			return r.tool.newResult(invocation.name, invocation.version)
		})
	}
	record := func(token, note string) {
		name, version, ok := core.SplitNameVersion(types.SourceTypeRuby, token)
		if !ok {
			return
		}
		result := results.GetOrAdd(name, func() *types.PackageResult { return r.tool.newResult(name, version) })
		result.Version = version
		result.AddNote(fmt.Sprintf(note, name, version))
	}
	switch {
	case gemInstalledPattern.MatchString(line):
		record(gemInstalledPattern.FindStringSubmatch(line)[1], "Installed %s v%s")
	case gemUninstalledPattern.MatchString(line):
		record(gemUninstalledPattern.FindStringSubmatch(line)[1], "%s v%s has been successfully uninstalled.")
	case gemNotFoundPattern.MatchString(line):
		requested().AddError(fmt.Sprintf("%s: Not a known package in the source.", invocation.name))
	case gemNotInstalledPat.MatchString(line):
		requested().AddError(fmt.Sprintf("%s is not installed. Cannot uninstall a non-existent package.", invocation.name))
	}
}

var _ ports.SourceRunnerPort = (*RubyGemsSourceRunner)(nil)
