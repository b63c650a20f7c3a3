package datalayer

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/andreasstove999/ecommerce-system/analytics-service-go/internal/ecommerce"
)

// RenderContext tells where the storefront is executing. Only client sessions
// have a data layer; server-side renders never push.
type RenderContext string

const (
	RenderClient RenderContext = "client"
	RenderServer RenderContext = "server"
)

// ParseRenderContext maps an inbound value to a RenderContext. Empty means
// client.
func ParseRenderContext(v string) (RenderContext, error) {
	switch RenderContext(v) {
	case "", RenderClient:
		return RenderClient, nil
	case RenderServer:
		return RenderServer, nil
	}
	return "", fmt.Errorf("unknown render context %q", v)
}

func (rc RenderContext) IsClient() bool {
	return rc == RenderClient
}

// Sink is the append-only queue behind the data layer.
type Sink interface {
	Name() string
	// Reset pushes the {"ecommerce":null} marker that clears the previously
	// merged ecommerce object.
	Reset(ctx context.Context) error
	Append(ctx context.Context, ev ecommerce.Event) error
}

// Reader is implemented by sinks whose contents can be read back.
type Reader interface {
	Entries(ctx context.Context) ([]json.RawMessage, error)
}

// Deleter is implemented by sinks holding per-session state outside the
// process, dropped when the session closes.
type Deleter interface {
	Delete(ctx context.Context) error
}

// Observer is notified about deliveries.
type Observer interface {
	EventPublished(name string)
	SinkFailed(sink string)
}

type noopObserver struct{}

func (noopObserver) EventPublished(string) {}
func (noopObserver) SinkFailed(string)     {}

type QueueOptions struct {
	Logger   *zap.Logger
	Observer Observer
}

// Queue publishes events into a Sink, each preceded by a reset marker.
type Queue struct {
	sink     Sink
	render   RenderContext
	logger   *zap.Logger
	observer Observer
}

func NewQueue(sink Sink, render RenderContext, opts QueueOptions) *Queue {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	observer := opts.Observer
	if observer == nil {
		observer = noopObserver{}
	}
	return &Queue{
		sink:     sink,
		render:   render,
		logger:   logger,
		observer: observer,
	}
}

func (q *Queue) Sink() Sink {
	return q.sink
}

// Publish pushes the reset marker and then ev. Failures are logged and
// swallowed; outside a client render context it does nothing.
func (q *Queue) Publish(ctx context.Context, ev ecommerce.Event) {
	if !q.render.IsClient() || q.sink == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			q.observer.SinkFailed(q.sink.Name())
			q.logger.Error("data layer push panicked",
				zap.String("sink", q.sink.Name()),
				zap.String("event", ev.Name),
				zap.Any("panic", r),
			)
		}
	}()

	if err := q.sink.Reset(ctx); err != nil {
		q.fail(ev, fmt.Errorf("push reset marker: %w", err))
		return
	}
	if err := q.sink.Append(ctx, ev); err != nil {
		q.fail(ev, fmt.Errorf("push event: %w", err))
		return
	}

	q.observer.EventPublished(ev.Name)
	q.logger.Debug("data layer push",
		zap.String("sink", q.sink.Name()),
		zap.String("event", ev.Name),
	)
}

func (q *Queue) fail(ev ecommerce.Event, err error) {
	q.observer.SinkFailed(q.sink.Name())
	q.logger.Warn("data layer push failed",
		zap.String("sink", q.sink.Name()),
		zap.String("event", ev.Name),
		zap.Error(err),
	)
}
