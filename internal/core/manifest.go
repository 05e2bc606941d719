package core

import (
	"strings"

	"choco-cli/internal/types"
)

// SplitManifestNames separates packages.config paths from plain package ids.
func SplitManifestNames(cfg *types.OperationConfiguration) ([]string, []string) {
	var names, manifests []string
	for _, name := range cfg.PackageNameList() {
		if IsPackagesConfig(name) {
			manifests = append(manifests, name)
			continue
		}
		names = append(names, name)
	}
	return names, manifests
}

// ExpandManifestEntries produces one configuration per enabled entry. Each
// clone inherits every field from parent that the entry leaves unset.
func ExpandManifestEntries(parent *types.OperationConfiguration, entries []types.PackagesConfigEntry) []*types.OperationConfiguration {
	var out []*types.OperationConfiguration
	for _, entry := range entries {
		if entry.Disabled || strings.TrimSpace(entry.ID) == "" {
			continue
		}
		cfg := parent.Clone()
		cfg.PackageNames = strings.TrimSpace(entry.ID)
		if entry.Version != "" {
			cfg.Version = entry.Version
		}
		if entry.Source != "" {
			cfg.Sources = entry.Source
		}
		if entry.InstallArguments != "" {
			cfg.InstallSettings.InstallArguments = entry.InstallArguments
		}
		if entry.PackageParameters != "" {
			cfg.InstallSettings.PackageParameters = entry.PackageParameters
		}
		if entry.Timeout > 0 {
			cfg.CommandExecutionTimeoutSeconds = entry.Timeout
		}
		cfg.InstallSettings.ForceX86 = cfg.InstallSettings.ForceX86 || entry.ForceX86
		cfg.IgnoreDependencies = cfg.IgnoreDependencies || entry.IgnoreDependencies
		cfg.Force = cfg.Force || entry.Force
		cfg.Prerelease = cfg.Prerelease || entry.Prerelease
		cfg.PinPackage = cfg.PinPackage || entry.PinPackage
		cfg.SkipPackageInstallProvider = cfg.SkipPackageInstallProvider || entry.SkipScripts
		out = append(out, cfg)
	}
	return out
}
