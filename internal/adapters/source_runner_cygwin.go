package adapters

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"runtime"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"choco-cli/internal/core"
	"choco-cli/internal/ports"
	"choco-cli/internal/shared"
	"choco-cli/internal/types"
)

const (
	cygwinAppPackage  = "cygwin"
	cygwinSetupName   = "cygwinsetup.exe"
	cygwinDefaultRoot = `C:\tools\cygwin`
	cygwinDefaultSite = "https://mirrors.kernel.org/sourceware/cygwin/"
)

var cygwinInstalledPattern = regexp.MustCompile(`Extracting from .*/([^/]+)\.tar`)

// CygwinSourceRunner installs packages with the Cygwin setup program. It
// only supports install.
type CygwinSourceRunner struct {
	tool      externalTool
	bootstrap sourceAppBootstrapper
	root      string
	goos      string
}

func NewCygwinSourceRunner(executor ports.CommandExecutorPort, exit *types.ExitStatus, normal ports.SourceRunnerPort, paths types.InstallPaths, cygwinRoot string) *CygwinSourceRunner {
	return &CygwinSourceRunner{
		tool:      externalTool{sourceType: types.SourceTypeCygwin, executor: executor, exit: exit},
		bootstrap: sourceAppBootstrapper{normal: normal, paths: paths},
		root:      shared.FirstNonEmpty(cygwinRoot, cygwinDefaultRoot),
		goos:      runtime.GOOS,
	}
}

func (r *CygwinSourceRunner) SourceType() types.SourceType {
	return types.SourceTypeCygwin
}

func (r *CygwinSourceRunner) requireWindows() error {
	if r.goos == "windows" {
		return nil
	}
	return errbuilder.New().
		WithCode(errbuilder.CodeFailedPrecondition).
		WithMsg("The cygwin source is only available on Windows.")
}

func (r *CygwinSourceRunner) EnsureSourceAppInstalled(ctx context.Context, cfg *types.OperationConfiguration, handler ports.PackageResultHandler) error {
	if err := r.requireWindows(); err != nil {
		return err
	}
	return r.bootstrap.ensure(ctx, cfg, types.SourceTypeCygwin, cygwinAppPackage, handler)
}

func (r *CygwinSourceRunner) Count(context.Context, *types.OperationConfiguration) (int, error) {
	return 0, notSupported(types.SourceTypeCygwin, "Count")
}

func (r *CygwinSourceRunner) List(context.Context, *types.OperationConfiguration) ([]*types.PackageResult, error) {
	return nil, notSupported(types.SourceTypeCygwin, "List")
}

func (r *CygwinSourceRunner) InstallDryRun(ctx context.Context, cfg *types.OperationConfiguration, _ ports.PackageResultHandler) error {
	for _, name := range cfg.PackageNameList() {
		log.Ctx(ctx).Info().Msgf("Would have run '%s' for package %s.", r.setupPath(), name)
	}
	return nil
}

func (r *CygwinSourceRunner) Install(ctx context.Context, cfg *types.OperationConfiguration, handler ports.PackageResultHandler, _ ports.BeforeModifyHandler) (types.RunOutcome, error) {
	outcome := types.NewRunOutcome()
	if err := r.requireWindows(); err != nil {
		return outcome, err
	}
	site := cygwinDefaultSite
	if sources := cfg.SourceList(); len(sources) > 0 {
		site = sources[0]
	}
	for _, name := range cfg.PackageNameList() {
		results := types.NewResultSet()
		r.tool.run(ctx, cfg, toolInvocation{
			command: r.setupPath(),
			args:    r.installArgs(site, name),
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

func (r *CygwinSourceRunner) installArgs(site, name string) []string {
	return []string{
		"--quiet-mode",
		"--no-desktop",
		"--no-startmenu",
		"--root", r.root,
		"--local-package-dir", filepath.Join(r.root, "packages"),
		"--site", site,
		"--packages", name,
	}
}

func (r *CygwinSourceRunner) setupPath() string {
	return filepath.Join(r.root, cygwinSetupName)
}

func (r *CygwinSourceRunner) parseLine(line string, _ toolInvocation, results *types.ResultSet) {
	match := cygwinInstalledPattern.FindStringSubmatch(line)
	if match == nil {
		return
	}
	name, version, ok := core.SplitNameVersion(types.SourceTypeCygwin, match[1])
	if !ok {
		return
	}
	result := results.GetOrAdd(name, func() *types.PackageResult { return r.tool.newResult(name, version) })
	result.Version = version
	result.AddNote(fmt.Sprintf("Installed %s v%s", name, version))
}

func (r *CygwinSourceRunner) UpgradeDryRun(context.Context, *types.OperationConfiguration, ports.PackageResultHandler) (types.RunOutcome, error) {
	return types.NewRunOutcome(), notSupported(types.SourceTypeCygwin, "Upgrade")
}

func (r *CygwinSourceRunner) Upgrade(context.Context, *types.OperationConfiguration, ports.PackageResultHandler, ports.BeforeModifyHandler) (types.RunOutcome, error) {
	return types.NewRunOutcome(), notSupported(types.SourceTypeCygwin, "Upgrade")
}

func (r *CygwinSourceRunner) UninstallDryRun(context.Context, *types.OperationConfiguration, ports.PackageResultHandler) error {
	return notSupported(types.SourceTypeCygwin, "Uninstall")
}

func (r *CygwinSourceRunner) Uninstall(context.Context, *types.OperationConfiguration, ports.PackageResultHandler, ports.BeforeModifyHandler) (types.RunOutcome, error) {
	return types.NewRunOutcome(), notSupported(types.SourceTypeCygwin, "Uninstall")
}

var _ ports.SourceRunnerPort = (*CygwinSourceRunner)(nil)
