package app

import (
	"context"
	"fmt"

	assert "github.com/ZanzyTHEbar/assert-lib"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"choco-cli/internal/core"
	"choco-cli/internal/policies"
	"choco-cli/internal/shared"
	"choco-cli/internal/types"
)

// HandlePackageResult post-processes one installed or upgraded package.
// Steps after the pending marker tolerate faults and only log them. A
// non-nil return stops the batch.
func (s Service) HandlePackageResult(ctx context.Context, result *types.PackageResult, cfg *types.OperationConfiguration) *types.BatchAbort {
	assert.NotEmpty(ctx, result.Name, "package result must carry a name")
	logger := log.Ctx(ctx).With().Str("pkg", result.Name).Str("version", result.Version).Logger()
	s.Context.Reset()

	if err := s.Pending.MarkPending(result, cfg.Features.UsePackageInstallLock); err != nil {
		result.AddError(fmt.Sprintf("Unable to mark %s as pending: %s", result.Name, shared.ErrorMessage(err)))
		s.publishPackage(ctx, cfg, result)
		return s.handleFailure(ctx, cfg, result, true)
	}

	keys := s.runInstallScript(ctx, logger, cfg, result)

	if err := s.Files.EnsureCompatibleFileAttributes(ctx, result); err != nil {
		logger.Warn().Err(err).Msg("unable to normalize file attributes")
	}
	if _, err := s.Files.WriteArchitectureIgnoreFiles(ctx, result, core.Prefer32Bit(cfg)); err != nil {
		logger.Warn().Err(err).Msg("unable to write architecture ignore files")
	}
	if err := s.Transforms.Run(ctx, result); err != nil {
		logger.Warn().Err(err).Msg("unable to apply config transforms")
	}
	snapshot, err := s.Files.CaptureSnapshot(ctx, result)
	if err != nil {
		logger.Warn().Err(err).Msg("unable to capture files snapshot")
	}

	if result.Success {
		s.installSpecialPackage(ctx, result)
		if !cfg.SkipPackageInstallProvider {
			if _, err := s.Shims.Install(ctx, result); err != nil {
				logger.Warn().Err(err).Msg("unable to create shims")
			}
		}
		s.savePackageInformation(ctx, logger, cfg, result, keys, snapshot)
	}

	location := core.ResolveInstallLocation(
		s.Context.Get(types.EnvToolsLocation),
		shared.FirstNonEmpty(s.Context.Get(types.EnvPackageInstallLocation), result.InstallLocation),
		keys,
	)
	if location != "" {
		s.Context.Set(types.EnvPackageInstallLocation, location)
	}
	if err := s.Context.Publish(); err != nil {
		logger.Warn().Err(err).Msg("unable to publish install location")
	}
	s.publishPackage(ctx, cfg, result)

	if policies.ShouldExitForReboot(cfg, result) {
		return s.rebootAbort(result)
	}

	if err := s.Pending.UnmarkPending(result); err != nil {
		logger.Warn().Err(err).Msg("unable to remove pending marker")
	}

	if !result.Success {
		return s.handleFailure(ctx, cfg, result, true)
	}
	if result.ExitCode != 0 {
		s.Exit.Set(result.ExitCode)
	}
	s.removeBackup(ctx, result)
	s.reportInstallLocation(location)
	fmt.Fprintf(s.Out, " The %s of %s was successful.\n", cfg.CommandName, result.Name)
	return nil
}

// runInstallScript runs the package's install script. On Windows the
// installed-programs registry is read around it and the new keys returned.
func (s Service) runInstallScript(ctx context.Context, logger zerolog.Logger, cfg *types.OperationConfiguration, result *types.PackageResult) []types.RegistryApplicationKey {
	if cfg.SkipPackageInstallProvider {
		return nil
	}
	native := cfg.Information.PlatformType == types.PlatformWindows && s.Registry != nil
	var before types.RegistrySnapshot
	if native {
		before = s.installerKeys(ctx, logger)
	}
	if _, err := s.Scripts.Install(ctx, cfg, result, s.Context); err != nil {
		logger.Warn().Err(err).Msg("install script did not run cleanly")
	}
	if !native {
		return nil
	}
	return core.DiffInstallerKeys(before, s.installerKeys(ctx, logger))
}

func (s Service) installerKeys(ctx context.Context, logger zerolog.Logger) types.RegistrySnapshot {
	snapshot, err := s.Registry.InstallerKeys(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("unable to read installer registry keys")
	}
	return snapshot
}

func (s Service) savePackageInformation(ctx context.Context, logger zerolog.Logger, cfg *types.OperationConfiguration, result *types.PackageResult, keys []types.RegistryApplicationKey, snapshot types.FilesSnapshot) {
	info, err := s.PackageInfo.Get(result.Name)
	if err != nil {
		logger.Warn().Err(err).Msg("unable to read package information, starting a new record")
		info = types.PackageInformation{}
	}
	info.Name = result.Name
	info.Version = result.Version
	if len(keys) > 0 {
		info.RegistrySnapshot = &types.RegistrySnapshot{Keys: keys}
		info.HasSilentUninstall = core.HasSilentUninstall(keys)
	}
	if len(snapshot.Files) > 0 {
		info.FilesSnapshot = &snapshot
	}
	if arguments := core.CaptureArguments(cfg); arguments != "" && s.Encryptor != nil {
		encrypted, err := s.Encryptor.Encrypt(arguments)
		if err != nil {
			logger.Warn().Err(err).Msg("unable to encrypt remembered arguments")
		} else {
			info.Arguments = encrypted
		}
	}
	if cfg.PinPackage {
		info.IsPinned = true
	}
	if err := s.PackageInfo.Save(info); err != nil {
		logger.Warn().Err(err).Msg("unable to save package information")
	}
}

func (s Service) rebootAbort(result *types.PackageResult) *types.BatchAbort {
	s.Exit.Set(types.ExitCodeInstallSuspend)
	return &types.BatchAbort{
		Reason:         fmt.Sprintf("Exiting as %s requires a reboot (exit code %d). Reboot and run the command again to continue.", result.Name, result.ExitCode),
		ExitCode:       types.ExitCodeInstallSuspend,
		RebootRequired: true,
	}
}

func (s Service) removeBackup(ctx context.Context, result *types.PackageResult) {
	if !policies.IsSafeRollbackTarget(result.InstallLocation, s.Paths) {
		return
	}
	backup := s.Paths.BackupDir(result.InstallLocation)
	if !s.FileSystem.DirectoryExists(backup) {
		return
	}
	if err := s.FileSystem.DeleteDirectory(backup); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("path", backup).Msg("unable to remove backup")
	}
}

func (s Service) reportInstallLocation(location string) {
	switch installer := s.Context.Get(types.EnvInstallerType); {
	case location != "":
		fmt.Fprintf(s.Out, " Software installed to '%s'\n", location)
	case installer != "":
		fmt.Fprintf(s.Out, " Software installed as '%s', install location is likely default.\n", installer)
	default:
		fmt.Fprintln(s.Out, " Software install location not explicitly set, it could be in package or\n default install location of installer.")
	}
}

func (s Service) publishPackage(ctx context.Context, cfg *types.OperationConfiguration, result *types.PackageResult) {
	s.publish(ctx, types.OperationEvent{
		Kind:            types.EventPackageCompleted,
		Command:         cfg.CommandName,
		PackageName:     result.Name,
		Version:         result.Version,
		InstallLocation: result.InstallLocation,
		Success:         result.Success,
		ExitCode:        result.ExitCode,
	})
}
