package app

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"choco-cli/internal/core"
	"choco-cli/internal/types"
)

const unmanagedProgramNote = "Not managed with Chocolatey."

// List prints the packages a source offers, or the installed packages
// when LocalOnly is set.
func (s Service) List(ctx context.Context, cfg *types.OperationConfiguration) ([]*types.PackageResult, error) {
	return s.list(ctx, cfg, types.CommandList)
}

func (s Service) Search(ctx context.Context, cfg *types.OperationConfiguration) ([]*types.PackageResult, error) {
	return s.list(ctx, cfg, types.CommandSearch)
}

func (s Service) list(ctx context.Context, cfg *types.OperationConfiguration, command types.CommandName) ([]*types.PackageResult, error) {
	cfg = s.prepare(ctx, cfg, command)
	runner, err := s.runnerFor(cfg)
	if err != nil {
		return nil, err
	}
	results, err := runner.List(ctx, cfg)
	if err != nil {
		return nil, err
	}
	packages := len(results)
	if cfg.SourceType == types.SourceTypeNormal && cfg.ListSettings.LocalOnly && cfg.ListSettings.IncludeRegistryPrograms {
		results = append(results, s.unmanagedPrograms(ctx, results)...)
	}

	for _, result := range results {
		if cfg.ListSettings.IdOnly {
			fmt.Fprintln(s.Out, result.Name)
			continue
		}
		fmt.Fprintf(s.Out, "%s %s\n", result.Name, result.Version)
	}
	if !cfg.ListSettings.IdOnly {
		verb := "found"
		if cfg.ListSettings.LocalOnly {
			verb = "installed"
		}
		fmt.Fprintf(s.Out, "%d packages %s.\n", packages, verb)
		if extra := len(results) - packages; extra > 0 {
			fmt.Fprintf(s.Out, "%d applications not managed with Chocolatey.\n", extra)
		}
	}
	if len(results) == 0 && cfg.Features.UseEnhancedExitCodes {
		s.Exit.Set(types.ExitCodeNoResults)
	}
	return results, nil
}

// unmanagedPrograms returns installed programs whose registry entries no
// installed package recorded.
func (s Service) unmanagedPrograms(ctx context.Context, packages []*types.PackageResult) []*types.PackageResult {
	if s.Registry == nil {
		return nil
	}
	snapshot, err := s.Registry.InstallerKeys(ctx)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("unable to read installed programs")
		return nil
	}
	managed := map[string]bool{}
	for _, pkg := range packages {
		info, err := s.PackageInfo.Get(pkg.Name)
		if err != nil || info.RegistrySnapshot == nil {
			continue
		}
		for _, key := range info.RegistrySnapshot.Keys {
			managed[key.DisplayName] = true
		}
	}

	var out []*types.PackageResult
	for _, key := range snapshot.Keys {
		if !core.IsInProgramsAndFeatures(key) || core.IsInternalKey(key) || managed[key.DisplayName] {
			continue
		}
		result := types.NewPackageResult(key.DisplayName, key.DisplayVersion, key.InstallLocation)
		result.AddNote(unmanagedProgramNote)
		out = append(out, result)
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out
}

// Outdated reports installed packages with a newer version available as
// "name|current|available|pinned" lines.
func (s Service) Outdated(ctx context.Context, cfg *types.OperationConfiguration) (types.RunOutcome, error) {
	cfg = s.prepare(ctx, cfg, types.CommandOutdated)
	if len(cfg.PackageNameList()) == 0 {
		cfg.PackageNames = types.AllPackagesName
	}
	cfg.UpgradeSettings.NotifyOnlyAvailableUpgrades = true
	runner, err := s.runnerFor(cfg)
	if err != nil {
		return types.NewRunOutcome(), err
	}
	outcome, err := runner.UpgradeDryRun(ctx, cfg, nil)
	if err != nil {
		return outcome, err
	}

	fmt.Fprintln(s.Out, "Outdated Packages")
	fmt.Fprintln(s.Out, " Output is package name | current version | available version | pinned?")
	fmt.Fprintln(s.Out)
	outdated := 0
	for _, result := range outcome.Results.Results() {
		if !result.Success || result.Inconclusive || result.PreviousVersion == "" {
			continue
		}
		pinned := false
		if info, err := s.PackageInfo.Get(result.Name); err == nil {
			pinned = info.IsPinned
		}
		fmt.Fprintf(s.Out, "%s|%s|%s|%t\n", result.Name, result.PreviousVersion, result.Version, pinned)
		outdated++
	}
	fmt.Fprintln(s.Out)
	fmt.Fprintf(s.Out, "Chocolatey has determined %d package(s) are outdated.\n", outdated)
	if outdated == 0 && cfg.Features.UseEnhancedExitCodes {
		s.Exit.Set(types.ExitCodeNoResults)
	}
	return outcome, nil
}
