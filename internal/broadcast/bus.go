package broadcast

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/asaskevich/EventBus"
	"go.uber.org/zap"
)

var ErrHandlerRegistered = errors.New("handler already registered for topic")

// Handler receives a signal published on the topic it was registered for.
type Handler func(ctx context.Context, s Signal)

type registration struct {
	name string
	fn   func(ctx context.Context, s Signal)
}

// Bus dispatches signals synchronously to one handler per topic. Handlers run
// while the underlying bus holds its lock, so they must not broadcast.
type Bus struct {
	bus    EventBus.Bus
	logger *zap.Logger

	mu         sync.Mutex
	registered map[Topic]registration
}

func New(logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{
		bus:        EventBus.New(),
		logger:     logger,
		registered: make(map[Topic]registration),
	}
}

// On registers the handler for topic. A second registration for the same
// topic fails with ErrHandlerRegistered.
func (b *Bus) On(topic Topic, name string, h Handler) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if existing, ok := b.registered[topic]; ok {
		return fmt.Errorf("%w: %s (%s)", ErrHandlerRegistered, topic, existing.name)
	}

	fn := func(ctx context.Context, s Signal) {
		defer func() {
			if r := recover(); r != nil {
				b.logger.Error("signal handler panicked",
					zap.String("topic", string(topic)),
					zap.String("handler", name),
					zap.Any("panic", r),
				)
			}
		}()
		h(ctx, s)
	}
	if err := b.bus.Subscribe(string(topic), fn); err != nil {
		return fmt.Errorf("subscribe %s: %w", topic, err)
	}

	b.registered[topic] = registration{name: name, fn: fn}
	return nil
}

// Broadcast delivers s to the handler registered for its topic, if any.
func (b *Bus) Broadcast(ctx context.Context, s Signal) {
	if s == nil {
		return
	}
	topic := string(s.Topic())
	if !b.bus.HasCallback(topic) {
		b.logger.Debug("no handler for signal", zap.String("topic", topic))
		return
	}
	b.bus.Publish(topic, ctx, s)
}

func (b *Bus) Registered(topic Topic) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.registered[topic]
	return ok
}

// Close removes every registered handler.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for topic, reg := range b.registered {
		if err := b.bus.Unsubscribe(string(topic), reg.fn); err != nil {
			b.logger.Warn("unsubscribe failed",
				zap.String("topic", string(topic)),
				zap.String("handler", reg.name),
				zap.Error(err),
			)
		}
		delete(b.registered, topic)
	}
}
