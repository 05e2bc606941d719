package app

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"choco-cli/internal/core"
	"choco-cli/internal/ports"
	"choco-cli/internal/types"
)

// runnerCall drives one source runner operation for one configuration.
type runnerCall func(ctx context.Context, runner ports.SourceRunnerPort, cfg *types.OperationConfiguration, handler ports.PackageResultHandler) (types.RunOutcome, error)

// batch tracks one command across every configuration it dispatches.
type batch struct {
	svc     Service
	action  string
	outcome types.RunOutcome

	mu      sync.Mutex
	handled map[string]bool
}

func (s Service) newBatch(action string) *batch {
	return &batch{svc: s, action: action, outcome: types.NewRunOutcome(), handled: map[string]bool{}}
}

// wrap records which results reached a handler so failures the runner
// reported on its own still get failure handling afterwards.
func (b *batch) wrap(handler ports.PackageResultHandler) ports.PackageResultHandler {
	return func(ctx context.Context, result *types.PackageResult, cfg *types.OperationConfiguration) *types.BatchAbort {
		b.mu.Lock()
		b.handled[strings.ToLower(result.Name)] = true
		b.mu.Unlock()
		return handler(ctx, result, cfg)
	}
}

func (b *batch) wasHandled(name string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.handled[strings.ToLower(name)]
}

// dispatch runs call for each configuration in order and merges the
// outcomes. It stops at the first batch abort or runner error.
func (b *batch) dispatch(ctx context.Context, runner ports.SourceRunnerPort, configs []*types.OperationConfiguration, handler ports.PackageResultHandler, rollback bool, call runnerCall) error {
	wrapped := b.wrap(handler)
	for _, cfg := range configs {
		outcome, err := call(ctx, runner, cfg, wrapped)
		if outcome.Results != nil {
			b.outcome.Results.Merge(outcome.Results)
			if abort := b.handleUnhandledFailures(ctx, cfg, outcome.Results, rollback); abort != nil && outcome.Abort == nil {
				outcome.Abort = abort
			}
		}
		if err != nil {
			return err
		}
		if outcome.Abort != nil {
			b.outcome.Abort = outcome.Abort
			log.Ctx(ctx).Warn().Msg(outcome.Abort.Reason)
			return nil
		}
	}
	return nil
}

func (b *batch) handleUnhandledFailures(ctx context.Context, cfg *types.OperationConfiguration, results *types.ResultSet, rollback bool) *types.BatchAbort {
	var abort *types.BatchAbort
	for _, result := range results.Results() {
		if result.Success || result.Inconclusive || b.wasHandled(result.Name) {
			continue
		}
		b.mu.Lock()
		b.handled[strings.ToLower(result.Name)] = true
		b.mu.Unlock()
		if next := b.svc.handleFailure(ctx, cfg, result, rollback); next != nil && abort == nil {
			abort = next
		}
	}
	return abort
}

// finish prints the summary and settles the process exit status. It runs
// whether or not the command returned an error.
func (b *batch) finish(ctx context.Context, cfg *types.OperationConfiguration) {
	s := b.svc
	failures := core.ReportActionSummary(s.Out, b.outcome.Results, b.action)
	if b.outcome.Abort != nil {
		fmt.Fprintln(s.Out, b.outcome.Abort.Reason)
		if b.outcome.Abort.ExitCode != 0 {
			s.Exit.Set(b.outcome.Abort.ExitCode)
		}
	}
	if failures > 0 {
		s.Exit.SetIfUnset(types.ExitCodeFailure)
	}
	s.publish(ctx, types.OperationEvent{
		Kind:     types.EventCommandCompleted,
		Command:  cfg.CommandName,
		Success:  failures == 0 && b.outcome.Abort == nil,
		ExitCode: s.Exit.Get(),
	})
}

// prepare clones cfg for command and fills in platform facts the caller
// left empty.
func (s Service) prepare(ctx context.Context, cfg *types.OperationConfiguration, command types.CommandName) *types.OperationConfiguration {
	prepared := cfg.Clone()
	prepared.CommandName = command
	if prepared.InstallRoot == "" {
		prepared.InstallRoot = s.Paths.Root
	}
	if prepared.Information.PlatformType == "" && s.Platform != nil {
		prepared.Information = s.Platform.Information(ctx)
	}
	return prepared
}

func (s Service) runnerFor(cfg *types.OperationConfiguration) (ports.SourceRunnerPort, error) {
	runner, err := s.Runners.Lookup(cfg.SourceType)
	if err != nil {
		return nil, err
	}
	cfg.SourceType = runner.SourceType()
	return runner, nil
}

// removeStalePending deletes package folders left behind by an install
// that never finished, so they are installed again from scratch.
func (s Service) removeStalePending(ctx context.Context) {
	if s.Pending == nil {
		return
	}
	stale, err := s.Pending.StalePending(s.Paths.Packages)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("unable to check for pending packages")
		return
	}
	for _, dir := range stale {
		log.Ctx(ctx).Warn().Str("path", dir).Msg("removing package left pending by a previous run")
		if err := s.FileSystem.DeleteDirectory(dir); err != nil {
			log.Ctx(ctx).Warn().Err(err).Str("path", dir).Msg("unable to remove pending package")
		}
	}
}

func (s Service) publish(ctx context.Context, event types.OperationEvent) {
	if s.Events == nil {
		return
	}
	s.Events.Publish(ctx, event)
}

func (s Service) environment() map[string]string {
	if s.Environ == nil {
		return map[string]string{}
	}
	return core.EnvironmentMap(s.Environ())
}

// logEnvironmentChanges reports what changed in the process environment
// since before was taken. Values are only logged when enabled.
func (s Service) logEnvironmentChanges(ctx context.Context, cfg *types.OperationConfiguration, before map[string]string) {
	changes := core.DiffEnvironment(before, s.environment())
	if len(changes) == 0 {
		return
	}
	logger := log.Ctx(ctx)
	logger.Info().Int("changes", len(changes)).Msg("Environment Vars (like PATH) have changed. Close/reopen your shell to see the changes (or in powershell/cmd.exe just type `refreshenv`).")
	for _, change := range changes {
		event := logger.Debug().Str("name", change.Name).Str("change", string(change.Kind))
		if cfg.Features.LogEnvironmentValues {
			event = event.Str("before", change.Before).Str("after", change.After)
		}
		event.Msg("environment variable changed")
	}
}
