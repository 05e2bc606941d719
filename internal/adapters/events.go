package adapters

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"choco-cli/internal/ports"
	"choco-cli/internal/types"
)

// EventBusAdapter fans operation events out to in-process subscribers.
type EventBusAdapter struct {
	mu          sync.RWMutex
	subscribers []func(types.OperationEvent)
}

func NewEventBusAdapter() *EventBusAdapter {
	return &EventBusAdapter{}
}

func (b *EventBusAdapter) Subscribe(fn func(types.OperationEvent)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers = append(b.subscribers, fn)
}

func (b *EventBusAdapter) Publish(ctx context.Context, event types.OperationEvent) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Time.IsZero() {
		event.Time = time.Now().UTC()
	}
	log.Ctx(ctx).Debug().
		Str("event", event.ID).
		Str("kind", string(event.Kind)).
		Str("pkg", event.PackageName).
		Bool("success", event.Success).
		Msg("publishing operation event")

	b.mu.RLock()
	subscribers := slices.Clone(b.subscribers)
	b.mu.RUnlock()
	for _, fn := range subscribers {
		fn(event)
	}
}

var _ ports.EventPublisherPort = (*EventBusAdapter)(nil)
