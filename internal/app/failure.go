package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"choco-cli/internal/policies"
	"choco-cli/internal/shared"
	"choco-cli/internal/types"
)

// handleFailure logs a failed result, sets the exit status and, when
// restore is set, moves the failed tree aside and restores the backup.
func (s Service) handleFailure(ctx context.Context, cfg *types.OperationConfiguration, result *types.PackageResult, restore bool) *types.BatchAbort {
	logger := log.Ctx(ctx).With().Str("pkg", result.Name).Logger()
	for _, msg := range result.MessagesOf(types.MessageKindError) {
		logger.Error().Msg(msg.Text)
	}
	code := result.ExitCode
	if code == 0 {
		code = types.ExitCodeFailure
	}
	s.Exit.Set(code)

	plan, err := policies.PlanFailure(cfg, result, s.Paths, restore, restore)
	if err != nil {
		result.AddError(shared.ErrorMessage(err))
		logger.Error().Msg(shared.ErrorMessage(err))
	}
	if plan.Quarantine {
		s.quarantine(ctx, result)
	}
	if plan.Rollback {
		s.rollback(ctx, result, plan.Prompt)
	}
	if plan.Abort {
		return &types.BatchAbort{
			Reason:   fmt.Sprintf("Stopping further execution as %s has failed %s.", result.Name, cfg.CommandName),
			ExitCode: code,
		}
	}
	return nil
}

func (s Service) quarantine(ctx context.Context, result *types.PackageResult) {
	if !s.FileSystem.DirectoryExists(result.InstallLocation) {
		return
	}
	target := s.Paths.FailureDir(result.InstallLocation)
	if err := s.FileSystem.MoveDirectory(result.InstallLocation, target); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("path", target).Msg("unable to move failed package")
		return
	}
	log.Ctx(ctx).Warn().Str("pkg", result.Name).Str("path", target).Msg("moved failed package to the failures folder")
}

// rollback restores the most recent backup of the package, asking first
// when prompt is set.
func (s Service) rollback(ctx context.Context, result *types.PackageResult, prompt bool) {
	backup := s.Paths.BackupDir(result.InstallLocation)
	if !s.FileSystem.DirectoryExists(backup) {
		return
	}
	logger := log.Ctx(ctx).With().Str("pkg", result.Name).Logger()
	if prompt && s.Prompter != nil {
		question := fmt.Sprintf("%s not installed. An error occurred during installation:\n %s\nDo you want to rollback to the previous version?", result.Name, firstError(result))
		ok, err := s.Prompter.Confirm(ctx, question, true)
		if err != nil {
			logger.Warn().Err(err).Msg("unable to ask for rollback confirmation")
		}
		if !ok {
			return
		}
	}
	if err := s.FileSystem.MoveDirectory(backup, result.InstallLocation); err != nil {
		logger.Warn().Err(err).Msg("unable to roll back to the previous version")
		return
	}
	logger.Warn().Msgf("Rolled back %s to the previous version.", result.Name)
}

func firstError(result *types.PackageResult) string {
	msg, _ := result.FirstMessage(types.MessageKindError)
	return msg.Text
}
