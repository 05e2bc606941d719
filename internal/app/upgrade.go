package app

import (
	"context"

	"github.com/rs/zerolog/log"

	"choco-cli/internal/core"
	"choco-cli/internal/ports"
	"choco-cli/internal/types"
)

// Upgrade upgrades the requested packages, or every installed package for
// "all". packages.config manifests are rejected.
func (s Service) Upgrade(ctx context.Context, cfg *types.OperationConfiguration) (types.RunOutcome, error) {
	cfg = s.prepare(ctx, cfg, types.CommandUpgrade)
	if err := core.ValidatePackageNames(cfg, s.FileSystem.FileExists); err != nil {
		return types.NewRunOutcome(), err
	}
	runner, err := s.runnerFor(cfg)
	if err != nil {
		return types.NewRunOutcome(), err
	}
	if cfg.Noop {
		outcome, err := runner.UpgradeDryRun(ctx, cfg, nil)
		if err == nil {
			core.ReportActionSummary(s.Out, outcome.Results, "can upgrade")
		}
		return outcome, err
	}

	before := s.environment()
	b := s.newBatch("upgraded")
	defer b.finish(ctx, cfg)

	if err := runner.EnsureSourceAppInstalled(ctx, cfg, s.HandlePackageResult); err != nil {
		return b.outcome, err
	}
	if cfg.SourceType == types.SourceTypeNormal {
		s.removeStalePending(ctx)
	}

	err = b.dispatch(ctx, runner, []*types.OperationConfiguration{cfg}, s.handleUpgradeResult, true,
		func(ctx context.Context, runner ports.SourceRunnerPort, cfg *types.OperationConfiguration, handler ports.PackageResultHandler) (types.RunOutcome, error) {
			return runner.Upgrade(ctx, cfg, handler, s.BeforeModify)
		})
	s.logEnvironmentChanges(ctx, cfg, before)
	return b.outcome, err
}

func (s Service) handleUpgradeResult(ctx context.Context, result *types.PackageResult, cfg *types.OperationConfiguration) *types.BatchAbort {
	if cfg.Features.UseRememberedArgumentsForUpgrades {
		cfg = s.rememberedConfiguration(ctx, result, cfg)
	}
	return s.HandlePackageResult(ctx, result, cfg)
}

// rememberedConfiguration replays the arguments captured at install time
// onto a per-package clone of cfg.
func (s Service) rememberedConfiguration(ctx context.Context, result *types.PackageResult, cfg *types.OperationConfiguration) *types.OperationConfiguration {
	logger := log.Ctx(ctx).With().Str("pkg", result.Name).Logger()
	info, err := s.PackageInfo.Get(result.Name)
	if err != nil || info.Arguments == "" || s.Encryptor == nil {
		return cfg
	}
	arguments, err := s.Encryptor.Decrypt(info.Arguments)
	if err != nil {
		logger.Warn().Err(err).Msg("unable to decrypt remembered arguments")
		return cfg
	}
	remembered := cfg.Clone()
	remembered.PackageNames = result.Name
	if err := core.ApplyRememberedArguments(remembered, arguments, s.ExplicitFlag); err != nil {
		logger.Warn().Err(err).Msg("unable to apply remembered arguments")
		return cfg
	}
	logger.Debug().Msg("using remembered arguments")
	return remembered
}
