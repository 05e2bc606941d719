package ports

import (
	"context"

	"choco-cli/internal/types"
)

type AutoUninstallerPort interface {
	Run(ctx context.Context, cfg *types.OperationConfiguration, result *types.PackageResult, info types.PackageInformation) error
}
