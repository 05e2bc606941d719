package app

import (
	"context"
	"fmt"

	assert "github.com/ZanzyTHEbar/assert-lib"
	"github.com/rs/zerolog/log"

	"choco-cli/internal/policies"
	"choco-cli/internal/shared"
	"choco-cli/internal/types"
)

// HandlePackageUninstall post-processes one package the runner is about to
// remove. Package information is only dropped when every step succeeded.
func (s Service) HandlePackageUninstall(ctx context.Context, result *types.PackageResult, cfg *types.OperationConfiguration) *types.BatchAbort {
	assert.NotEmpty(ctx, result.Name, "package result must carry a name")
	logger := log.Ctx(ctx).With().Str("pkg", result.Name).Str("version", result.Version).Logger()
	s.Context.Reset()

	if err := s.Pending.MarkPending(result, cfg.Features.UsePackageInstallLock); err != nil {
		result.AddError(fmt.Sprintf("Unable to mark %s as pending: %s", result.Name, shared.ErrorMessage(err)))
		s.publishPackage(ctx, cfg, result)
		return s.handleFailure(ctx, cfg, result, false)
	}

	info, err := s.PackageInfo.Get(result.Name)
	if err != nil {
		logger.Warn().Err(err).Msg("unable to read package information")
		info = types.PackageInformation{Name: result.Name}
	}

	if !cfg.SkipPackageInstallProvider {
		if _, err := s.Scripts.Uninstall(ctx, cfg, result, s.Context); err != nil {
			logger.Warn().Err(err).Msg("uninstall script did not run cleanly")
		}
	}
	if result.Success && s.AutoUninstaller != nil {
		if err := s.AutoUninstaller.Run(ctx, cfg, result, info); err != nil {
			logger.Warn().Err(err).Msg("auto uninstaller did not run cleanly")
		}
	}

	if result.Success {
		if err := s.Shims.Uninstall(ctx, result); err != nil {
			logger.Warn().Err(err).Msg("unable to remove shims")
		}
		s.removeSpecialPackage(ctx, result)
		if err := s.PackageInfo.Remove(result.Name); err != nil {
			logger.Warn().Err(err).Msg("unable to remove package information")
		}
	}
	s.publishPackage(ctx, cfg, result)

	if policies.ShouldExitForReboot(cfg, result) {
		return s.rebootAbort(result)
	}
	if err := s.Pending.UnmarkPending(result); err != nil {
		logger.Warn().Err(err).Msg("unable to remove pending marker")
	}

	if !result.Success {
		return s.handleFailure(ctx, cfg, result, false)
	}
	if result.ExitCode != 0 {
		s.Exit.Set(result.ExitCode)
	}
	return nil
}
