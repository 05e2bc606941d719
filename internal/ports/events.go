package ports

import (
	"context"

	"choco-cli/internal/types"
)

type EventPublisherPort interface {
	Publish(ctx context.Context, event types.OperationEvent)
}
