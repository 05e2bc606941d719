//go:build !windows

package adapters

import (
	"context"

	"choco-cli/internal/ports"
	"choco-cli/internal/types"
)

// RegistryAdapter has nothing to inspect off Windows.
type RegistryAdapter struct{}

func NewRegistryAdapter() RegistryAdapter {
	return RegistryAdapter{}
}

func (a RegistryAdapter) InstallerKeys(context.Context) (types.RegistrySnapshot, error) {
	return types.RegistrySnapshot{}, nil
}

var _ ports.RegistryInspectorPort = RegistryAdapter{}
