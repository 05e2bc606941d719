package ports

import "choco-cli/internal/types"

type PackagesConfigPort interface {
	Parse(path string) ([]types.PackagesConfigEntry, error)
}
