package app

import (
	"context"
	"fmt"

	"choco-cli/internal/core"
	"choco-cli/internal/ports"
	"choco-cli/internal/types"
)

const uninstallGuidance = `If a package uninstall is failing and/or you've already uninstalled the
 software outside of Chocolatey, you can attempt to run the command with
 '-n' to skip running a chocolateyUninstall script, additionally adding
 '--skip-autouninstaller' to skip an attempt to automatically remove
 system-installed software. Only the packaging files will be removed and
 not things like software installed to Programs and Features.`

// Uninstall removes the requested packages. Failed packages are neither
// quarantined nor rolled back.
func (s Service) Uninstall(ctx context.Context, cfg *types.OperationConfiguration) (types.RunOutcome, error) {
	cfg = s.prepare(ctx, cfg, types.CommandUninstall)
	if err := core.ValidatePackageNames(cfg, s.FileSystem.FileExists); err != nil {
		return types.NewRunOutcome(), err
	}
	runner, err := s.runnerFor(cfg)
	if err != nil {
		return types.NewRunOutcome(), err
	}
	if cfg.Noop {
		return types.NewRunOutcome(), runner.UninstallDryRun(ctx, cfg, nil)
	}

	before := s.environment()
	b := s.newBatch("uninstalled")
	defer s.printUninstallGuidance(b)
	defer b.finish(ctx, cfg)

	if err := runner.EnsureSourceAppInstalled(ctx, cfg, s.HandlePackageResult); err != nil {
		return b.outcome, err
	}

	err = b.dispatch(ctx, runner, []*types.OperationConfiguration{cfg}, s.HandlePackageUninstall, false,
		func(ctx context.Context, runner ports.SourceRunnerPort, cfg *types.OperationConfiguration, handler ports.PackageResultHandler) (types.RunOutcome, error) {
			return runner.Uninstall(ctx, cfg, handler, s.BeforeModify)
		})
	s.logEnvironmentChanges(ctx, cfg, before)
	return b.outcome, err
}

func (s Service) printUninstallGuidance(b *batch) {
	for _, result := range b.outcome.Results.Results() {
		if !result.Success {
			fmt.Fprintln(s.Out)
			fmt.Fprintln(s.Out, uninstallGuidance)
			return
		}
	}
}
