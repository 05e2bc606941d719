package core

import (
	"strings"

	"choco-cli/internal/types"
)

// ResolveInstallLocation picks where the software itself landed: an
// explicit tools location, then the reported install directory, then the
// first registry key that names one.
func ResolveInstallLocation(toolsOverride string, reported string, keys []types.RegistryApplicationKey) string {
	if strings.TrimSpace(toolsOverride) != "" {
		return strings.TrimSpace(toolsOverride)
	}
	if strings.TrimSpace(reported) != "" {
		return reported
	}
	for _, key := range keys {
		if strings.TrimSpace(key.InstallLocation) != "" {
			return key.InstallLocation
		}
	}
	return ""
}

// Prefer32Bit reports whether 32-bit binaries should win when a package
// ships both architectures.
func Prefer32Bit(cfg *types.OperationConfiguration) bool {
	return !cfg.Information.Is64BitProcess || cfg.InstallSettings.ForceX86
}
