package ports

import (
	"context"

	"choco-cli/internal/types"
)

// ScriptRunnerPort runs the scripts shipped inside a package. Each method
// reports whether a script was found.
type ScriptRunnerPort interface {
	Install(ctx context.Context, cfg *types.OperationConfiguration, result *types.PackageResult, opCtx *types.OperationContext) (bool, error)
	Uninstall(ctx context.Context, cfg *types.OperationConfiguration, result *types.PackageResult, opCtx *types.OperationContext) (bool, error)
	BeforeModify(ctx context.Context, cfg *types.OperationConfiguration, result *types.PackageResult, opCtx *types.OperationContext) (bool, error)
}
