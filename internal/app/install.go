package app

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"choco-cli/internal/core"
	"choco-cli/internal/ports"
	"choco-cli/internal/shared"
	"choco-cli/internal/types"
)

// Install installs every requested package, expanding packages.config
// manifests into one configuration per enabled entry.
func (s Service) Install(ctx context.Context, cfg *types.OperationConfiguration) (types.RunOutcome, error) {
	cfg = s.prepare(ctx, cfg, types.CommandInstall)
	if err := core.ValidatePackageNames(cfg, s.FileSystem.FileExists); err != nil {
		return types.NewRunOutcome(), err
	}
	runner, err := s.runnerFor(cfg)
	if err != nil {
		return types.NewRunOutcome(), err
	}
	if cfg.Noop {
		return types.NewRunOutcome(), runner.InstallDryRun(ctx, cfg, nil)
	}

	b := s.newBatch("installed")
	defer b.finish(ctx, cfg)

	if err := runner.EnsureSourceAppInstalled(ctx, cfg, s.HandlePackageResult); err != nil {
		return b.outcome, err
	}
	if cfg.SourceType == types.SourceTypeNormal {
		s.removeStalePending(ctx)
	}

	configs := s.expandManifests(ctx, cfg, b.outcome.Results)
	err = b.dispatch(ctx, runner, configs, s.HandlePackageResult, true,
		func(ctx context.Context, runner ports.SourceRunnerPort, cfg *types.OperationConfiguration, handler ports.PackageResultHandler) (types.RunOutcome, error) {
			return runner.Install(ctx, cfg, handler, s.BeforeModify)
		})
	return b.outcome, err
}

// expandManifests returns the configurations to dispatch: one for the
// plain package ids and one per enabled manifest entry. Unreadable
// manifests are recorded as failed results.
func (s Service) expandManifests(ctx context.Context, cfg *types.OperationConfiguration, results *types.ResultSet) []*types.OperationConfiguration {
	names, manifests := core.SplitManifestNames(cfg)
	var configs []*types.OperationConfiguration
	if len(names) > 0 {
		plain := cfg.Clone()
		plain.PackageNames = strings.Join(names, ";")
		configs = append(configs, plain)
	}
	for _, manifest := range manifests {
		entries, err := s.PackagesConfig.Parse(manifest)
		if err != nil {
			log.Ctx(ctx).Error().Err(err).Str("manifest", manifest).Msg("unable to read packages.config")
			result := types.NewPackageResult(manifest, "", "")
			result.AddError(shared.ErrorMessage(err))
			results.Put(result)
			continue
		}
		expanded := core.ExpandManifestEntries(cfg, entries)
		log.Ctx(ctx).Debug().Str("manifest", manifest).Int("packages", len(expanded)).Msg("expanded packages.config")
		configs = append(configs, expanded...)
	}
	return configs
}

// BeforeModify runs the package's before-modify script ahead of an upgrade
// or uninstall. Failures only warn.
func (s Service) BeforeModify(ctx context.Context, result *types.PackageResult, cfg *types.OperationConfiguration) {
	if cfg.SkipPackageInstallProvider || s.Scripts == nil {
		return
	}
	if _, err := s.Scripts.BeforeModify(ctx, cfg, result, s.Context); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("pkg", result.Name).Msg("before-modify script did not run cleanly")
	}
}
