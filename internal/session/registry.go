package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/andreasstove999/ecommerce-system/analytics-service-go/internal/broadcast"
	"github.com/andreasstove999/ecommerce-system/analytics-service-go/internal/datalayer"
	"github.com/andreasstove999/ecommerce-system/analytics-service-go/internal/ecommerce"
	"github.com/andreasstove999/ecommerce-system/analytics-service-go/internal/tracker"
)

var ErrNotFound = errors.New("session not found")

const (
	ReasonClosed   = "closed"
	ReasonIdle     = "idle"
	ReasonShutdown = "shutdown"
)

// bound on dropping a closed session's remote data layer
const deleteTimeout = 3 * time.Second

// SinkFactory creates the data layer sink of a new session.
type SinkFactory func(sessionID string) (datalayer.Sink, error)

// Observer is notified about deliveries and session lifecycle.
type Observer interface {
	datalayer.Observer
	SessionOpened()
	SessionClosed(reason string)
}

type noopObserver struct{}

func (noopObserver) EventPublished(string) {}
func (noopObserver) SinkFailed(string)     {}
func (noopObserver) SessionOpened()        {}
func (noopObserver) SessionClosed(string)  {}

type Options struct {
	Sinks         SinkFactory
	Observer      Observer
	Logger        *zap.Logger
	CartDebounce  time.Duration
	CheckoutRoute string
	IdleTimeout   time.Duration
	Now           func() time.Time
}

// Registry owns the open sessions, one tracker and data layer each.
type Registry struct {
	sinks         SinkFactory
	observer      Observer
	logger        *zap.Logger
	cartDebounce  time.Duration
	checkoutRoute string
	idleTimeout   time.Duration
	now           func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewRegistry(opts Options) *Registry {
	sinks := opts.Sinks
	if sinks == nil {
		sinks = func(string) (datalayer.Sink, error) { return datalayer.NewMemorySink(), nil }
	}
	observer := opts.Observer
	if observer == nil {
		observer = noopObserver{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Registry{
		sinks:         sinks,
		observer:      observer,
		logger:        logger,
		cartDebounce:  opts.CartDebounce,
		checkoutRoute: opts.CheckoutRoute,
		idleTimeout:   opts.IdleTimeout,
		now:           now,
		sessions:      make(map[string]*Session),
	}
}

// Open starts a session with its own bus, tracker and data layer.
func (r *Registry) Open(render datalayer.RenderContext, currency string) (*Session, error) {
	id := uuid.NewString()
	logger := r.logger.With(zap.String("session_id", id))

	sink, err := r.sinks(id)
	if err != nil {
		return nil, fmt.Errorf("create sink: %w", err)
	}

	queue := datalayer.NewQueue(sink, render, datalayer.QueueOptions{
		Logger:   logger,
		Observer: r.observer,
	})
	cur := &Currency{}
	cur.Set(currency)

	tr := tracker.New(
		broadcast.New(logger),
		ecommerce.NewReporter(queue, logger),
		cur,
		tracker.Options{
			Render:        render,
			CartDebounce:  r.cartDebounce,
			CheckoutRoute: r.checkoutRoute,
			Logger:        logger,
		},
	)
	if err := tr.Start(); err != nil {
		tr.Close()
		return nil, fmt.Errorf("start tracker: %w", err)
	}

	s := &Session{
		ID:       id,
		Render:   render,
		Tracker:  tr,
		Queue:    queue,
		currency: cur,
		openedAt: r.now(),
	}
	s.touch(r.now())

	r.mu.Lock()
	r.sessions[id] = s
	r.mu.Unlock()

	r.observer.SessionOpened()
	logger.Info("session opened", zap.String("render", string(render)), zap.String("sink", sink.Name()))
	return s, nil
}

// Get returns the session and marks it as seen.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	r.mu.Unlock()
	if !ok {
		return nil, ErrNotFound
	}
	s.touch(r.now())
	return s, nil
}

func (r *Registry) Close(id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	r.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	r.dispose(s, ReasonClosed)
	return nil
}

// SweepIdle closes sessions not seen within the idle timeout and returns how
// many were closed.
func (r *Registry) SweepIdle() int {
	if r.idleTimeout <= 0 {
		return 0
	}
	cutoff := r.now().Add(-r.idleTimeout)

	r.mu.Lock()
	var idle []*Session
	for id, s := range r.sessions {
		if s.LastSeen().Before(cutoff) {
			idle = append(idle, s)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, s := range idle {
		r.dispose(s, ReasonIdle)
	}
	return len(idle)
}

func (r *Registry) CloseAll() {
	r.mu.Lock()
	all := make([]*Session, 0, len(r.sessions))
	for id, s := range r.sessions {
		all = append(all, s)
		delete(r.sessions, id)
	}
	r.mu.Unlock()

	for _, s := range all {
		r.dispose(s, ReasonShutdown)
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *Registry) dispose(s *Session, reason string) {
	s.Tracker.Close()
	if d, ok := datalayer.DeleterOf(s.Queue.Sink()); ok {
		ctx, cancel := context.WithTimeout(context.Background(), deleteTimeout)
		if err := d.Delete(ctx); err != nil {
			r.logger.Warn("drop session data layer failed", zap.String("session_id", s.ID), zap.Error(err))
		}
		cancel()
	}
	r.observer.SessionClosed(reason)
	r.logger.Info("session closed",
		zap.String("session_id", s.ID),
		zap.String("reason", reason),
		zap.Duration("age", r.now().Sub(s.openedAt)),
	)
}
