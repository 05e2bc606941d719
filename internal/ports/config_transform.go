package ports

import (
	"context"

	"choco-cli/internal/types"
)

type ConfigTransformPort interface {
	Run(ctx context.Context, result *types.PackageResult) error
}
