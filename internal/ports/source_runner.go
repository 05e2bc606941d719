package ports

import (
	"context"

	"choco-cli/internal/types"
)

// PackageResultHandler post-processes one completed package. A non-nil
// BatchAbort stops the runner from touching further packages.
type PackageResultHandler func(ctx context.Context, result *types.PackageResult, cfg *types.OperationConfiguration) *types.BatchAbort

// BeforeModifyHandler runs before an installed package is replaced or removed.
type BeforeModifyHandler func(ctx context.Context, result *types.PackageResult, cfg *types.OperationConfiguration)

type SourceRunnerPort interface {
	SourceType() types.SourceType
	EnsureSourceAppInstalled(ctx context.Context, cfg *types.OperationConfiguration, handler PackageResultHandler) error
	Count(ctx context.Context, cfg *types.OperationConfiguration) (int, error)
	List(ctx context.Context, cfg *types.OperationConfiguration) ([]*types.PackageResult, error)
	InstallDryRun(ctx context.Context, cfg *types.OperationConfiguration, handler PackageResultHandler) error
	Install(ctx context.Context, cfg *types.OperationConfiguration, handler PackageResultHandler, beforeModify BeforeModifyHandler) (types.RunOutcome, error)
	UpgradeDryRun(ctx context.Context, cfg *types.OperationConfiguration, handler PackageResultHandler) (types.RunOutcome, error)
	Upgrade(ctx context.Context, cfg *types.OperationConfiguration, handler PackageResultHandler, beforeModify BeforeModifyHandler) (types.RunOutcome, error)
	UninstallDryRun(ctx context.Context, cfg *types.OperationConfiguration, handler PackageResultHandler) error
	Uninstall(ctx context.Context, cfg *types.OperationConfiguration, handler PackageResultHandler, beforeModify BeforeModifyHandler) (types.RunOutcome, error)
}

// PackagingPort is implemented by runners that can build and publish archives.
type PackagingPort interface {
	Pack(ctx context.Context, cfg *types.OperationConfiguration) (string, error)
	Push(ctx context.Context, cfg *types.OperationConfiguration) error
}
