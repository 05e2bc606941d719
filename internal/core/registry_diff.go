package core

import (
	"strings"

	"choco-cli/internal/types"
)

// DiffInstallerKeys returns the keys present in after but not in before.
func DiffInstallerKeys(before, after types.RegistrySnapshot) []types.RegistryApplicationKey {
	seen := map[string]struct{}{}
	for _, key := range before.Keys {
		seen[registryIdentity(key)] = struct{}{}
	}
	var added []types.RegistryApplicationKey
	for _, key := range after.Keys {
		if _, ok := seen[registryIdentity(key)]; ok {
			continue
		}
		added = append(added, key)
	}
	return added
}

func registryIdentity(key types.RegistryApplicationKey) string {
	return strings.ToLower(key.KeyPath) + "|" + key.DisplayName + "|" + key.DisplayVersion
}

// IsInProgramsAndFeatures reports whether a key would be shown to the user
// as an installed program.
func IsInProgramsAndFeatures(key types.RegistryApplicationKey) bool {
	return strings.TrimSpace(key.DisplayName) != "" &&
		strings.TrimSpace(key.UninstallString) != "" &&
		!key.SystemComponent &&
		strings.TrimSpace(key.ReleaseType) == "" &&
		strings.TrimSpace(key.ParentKeyName) == ""
}

// IsInternalKey reports keys written by this tool for its own bookkeeping.
func IsInternalKey(key types.RegistryApplicationKey) bool {
	return strings.Contains(strings.ToLower(key.KeyPath), types.InternalRegistryMarker)
}

// HasSilentUninstall reports whether any of keys can be removed without
// user interaction.
func HasSilentUninstall(keys []types.RegistryApplicationKey) bool {
	for _, key := range keys {
		if strings.TrimSpace(key.QuietUninstallString) != "" || key.WindowsInstaller {
			return true
		}
	}
	return false
}
