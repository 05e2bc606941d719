package ports

import (
	"context"

	"choco-cli/internal/types"
)

type ShimPort interface {
	Install(ctx context.Context, result *types.PackageResult) ([]string, error)
	Uninstall(ctx context.Context, result *types.PackageResult) error
}
