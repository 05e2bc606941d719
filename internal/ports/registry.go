package ports

import (
	"context"

	"choco-cli/internal/types"
)

type RegistryInspectorPort interface {
	InstallerKeys(ctx context.Context) (types.RegistrySnapshot, error)
}
