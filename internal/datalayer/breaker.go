package datalayer

import (
	"context"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/andreasstove999/ecommerce-system/analytics-service-go/internal/ecommerce"
)

// NewBreaker returns a circuit breaker meant to be shared by all sessions
// writing to the same backend. It opens once at least half of five or more
// pushes in an interval fail.
func NewBreaker(name string, logger *zap.Logger) *gobreaker.CircuitBreaker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("sink circuit breaker state changed",
				zap.String("sink", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
}

// BreakerSink guards the pushes of another sink with a circuit breaker. While
// the breaker is open pushes fail fast with gobreaker.ErrOpenState.
type BreakerSink struct {
	inner Sink
	cb    *gobreaker.CircuitBreaker
}

func NewBreakerSink(inner Sink, cb *gobreaker.CircuitBreaker) *BreakerSink {
	return &BreakerSink{inner: inner, cb: cb}
}

func (s *BreakerSink) Name() string {
	return s.inner.Name()
}

func (s *BreakerSink) Unwrap() Sink {
	return s.inner
}

func (s *BreakerSink) Reset(ctx context.Context) error {
	_, err := s.cb.Execute(func() (interface{}, error) {
		return nil, s.inner.Reset(ctx)
	})
	return err
}

func (s *BreakerSink) Append(ctx context.Context, ev ecommerce.Event) error {
	_, err := s.cb.Execute(func() (interface{}, error) {
		return nil, s.inner.Append(ctx, ev)
	})
	return err
}

// ReaderOf returns the Reader behind sink, looking through wrappers.
func ReaderOf(sink Sink) (Reader, bool) {
	return unwrapAs[Reader](sink)
}

// DeleterOf returns the Deleter behind sink, looking through wrappers.
func DeleterOf(sink Sink) (Deleter, bool) {
	return unwrapAs[Deleter](sink)
}

func unwrapAs[T any](sink Sink) (T, bool) {
	var zero T
	for sink != nil {
		if v, ok := sink.(T); ok {
			return v, true
		}
		w, ok := sink.(interface{ Unwrap() Sink })
		if !ok {
			return zero, false
		}
		sink = w.Unwrap()
	}
	return zero, false
}
