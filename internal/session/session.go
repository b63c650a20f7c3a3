package session

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/andreasstove999/ecommerce-system/analytics-service-go/internal/datalayer"
	"github.com/andreasstove999/ecommerce-system/analytics-service-go/internal/tracker"
)

// Currency is the session's currency provider; the storefront updates it when
// the visitor switches currency.
type Currency struct {
	mu   sync.RWMutex
	code string
}

func (c *Currency) ISOCode() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.code
}

func (c *Currency) Set(code string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.code = code
}

type Session struct {
	ID      string
	Render  datalayer.RenderContext
	Tracker *tracker.Tracker
	Queue   *datalayer.Queue

	currency *Currency
	openedAt time.Time
	lastSeen atomic.Int64
}

func (s *Session) Currency() string {
	return s.currency.ISOCode()
}

func (s *Session) SetCurrency(code string) {
	s.currency.Set(code)
}

func (s *Session) LastSeen() time.Time {
	return time.Unix(0, s.lastSeen.Load())
}

func (s *Session) touch(now time.Time) {
	s.lastSeen.Store(now.UnixNano())
}
