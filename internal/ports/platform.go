package ports

import (
	"context"

	"choco-cli/internal/types"
)

type PlatformPort interface {
	Information(ctx context.Context) types.PlatformInformation
}
