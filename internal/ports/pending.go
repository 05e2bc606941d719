package ports

import "choco-cli/internal/types"

// PendingPort manages the marker that flags a package as mid-install.
type PendingPort interface {
	MarkPending(result *types.PackageResult, lock bool) error
	UnmarkPending(result *types.PackageResult) error
	StalePending(packagesDir string) ([]string, error)
}
