package tracker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/andreasstove999/ecommerce-system/analytics-service-go/internal/broadcast"
	"github.com/andreasstove999/ecommerce-system/analytics-service-go/internal/datalayer"
	"github.com/andreasstove999/ecommerce-system/analytics-service-go/internal/ecommerce"
	"github.com/andreasstove999/ecommerce-system/analytics-service-go/internal/storefront"
)

const (
	DefaultCartDebounce  = 500 * time.Millisecond
	DefaultCheckoutRoute = "checkout"
)

// CurrencyProvider exposes the storefront's active currency.
type CurrencyProvider interface {
	ISOCode() string
}

type Options struct {
	Render        datalayer.RenderContext
	CartDebounce  time.Duration
	CheckoutRoute string
	Logger        *zap.Logger
}

// Tracker turns storefront state changes into semantic signals on its bus and
// reports those signals as analytics events.
type Tracker struct {
	bus           *broadcast.Bus
	reporter      *ecommerce.Reporter
	currency      CurrencyProvider
	render        datalayer.RenderContext
	debounce      time.Duration
	checkoutRoute string
	logger        *zap.Logger

	// lifetime of deferred cart evaluations
	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	closed      bool
	page        storefront.Page
	cart        storefront.Cart
	sidebarOpen bool
	prevCart    *storefront.Cart
	pendingCart storefront.Cart
	timer       *time.Timer
	generation  uint64
}

func New(bus *broadcast.Bus, reporter *ecommerce.Reporter, currency CurrencyProvider, opts Options) *Tracker {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	debounce := opts.CartDebounce
	if debounce <= 0 {
		debounce = DefaultCartDebounce
	}
	checkoutRoute := opts.CheckoutRoute
	if checkoutRoute == "" {
		checkoutRoute = DefaultCheckoutRoute
	}
	render := opts.Render
	if render == "" {
		render = datalayer.RenderClient
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Tracker{
		bus:           bus,
		reporter:      reporter,
		currency:      currency,
		render:        render,
		debounce:      debounce,
		checkoutRoute: checkoutRoute,
		logger:        logger,
		ctx:           ctx,
		cancel:        cancel,
	}
}

// Start registers the signal listeners. Outside a client render context the
// tracker stays inert.
func (t *Tracker) Start() error {
	if !t.render.IsClient() {
		t.logger.Debug("tracker disabled outside client render context", zap.String("render", string(t.render)))
		return nil
	}
	for _, l := range t.listeners() {
		if err := t.bus.On(l.topic, l.name, l.handler); err != nil {
			return fmt.Errorf("register %s: %w", l.name, err)
		}
	}
	return nil
}

func (t *Tracker) active() bool {
	if !t.render.IsClient() {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.closed
}

// PageChanged reports a product detail view when the page shows a product.
func (t *Tracker) PageChanged(ctx context.Context, page storefront.Page) {
	if !t.active() {
		return
	}
	t.mu.Lock()
	t.page = page
	t.mu.Unlock()

	if page.Product != nil {
		t.bus.Broadcast(ctx, broadcast.ViewedProductDetail{Product: *page.Product})
	}
}

// CartSidebarChanged reports a cart view when the sidebar goes from closed to
// open.
func (t *Tracker) CartSidebarChanged(ctx context.Context, open bool) {
	if !t.active() {
		return
	}
	t.mu.Lock()
	wasOpen := t.sidebarOpen
	t.sidebarOpen = open
	cart := t.cart
	t.mu.Unlock()

	if open && !wasOpen {
		t.bus.Broadcast(ctx, broadcast.ViewedCart{Cart: cart})
	}
}

// ListingChanged reports a product list view when the current page belongs to
// a category.
func (t *Tracker) ListingChanged(ctx context.Context, listing storefront.Listing) {
	if !t.active() {
		return
	}
	t.mu.Lock()
	category := t.page.Category
	t.mu.Unlock()

	if category != nil {
		t.bus.Broadcast(ctx, broadcast.ViewedProductList{
			Items:    listing.Elements,
			ListName: category.Name,
		})
	}
}

func (t *Tracker) RouteChanged(ctx context.Context, route storefront.Route) {
	if !t.active() || route.Name != t.checkoutRoute {
		return
	}
	t.mu.Lock()
	cart := t.cart
	t.mu.Unlock()

	t.bus.Broadcast(ctx, broadcast.BeganCheckout{Cart: cart})
}

// CartChanged records the new cart and (re)arms the debounce timer. Only the
// cart seen last when the timer fires is compared with the previous snapshot.
func (t *Tracker) CartChanged(ctx context.Context, cart storefront.Cart) {
	if !t.render.IsClient() {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}

	t.cart = cart
	t.pendingCart = cart
	if t.timer != nil {
		t.timer.Stop()
	}
	t.generation++
	gen := t.generation
	t.timer = time.AfterFunc(t.debounce, func() {
		t.evaluateCart(gen)
	})
}

func (t *Tracker) evaluateCart(gen uint64) {
	t.mu.Lock()
	if t.closed || gen != t.generation {
		t.mu.Unlock()
		return
	}
	cart := t.pendingCart
	var signals []broadcast.Signal
	if t.prevCart != nil {
		signals = diffLineItems(*t.prevCart, cart)
	}
	t.prevCart = &cart
	t.timer = nil
	t.mu.Unlock()

	for _, s := range signals {
		t.bus.Broadcast(t.ctx, s)
	}
}

// AddedToCart forwards the storefront's add-to-cart broadcast.
func (t *Tracker) AddedToCart(ctx context.Context, product storefront.Product, quantity int) {
	if !t.active() {
		return
	}
	t.bus.Broadcast(ctx, broadcast.AddedToCart{Product: product, Quantity: quantity})
}

// OrderPlaced forwards the storefront's order-placed broadcast.
func (t *Tracker) OrderPlaced(ctx context.Context, order storefront.Order) {
	if !t.active() {
		return
	}
	t.bus.Broadcast(ctx, broadcast.OrderPlaced{Order: order})
}

// Close cancels a pending cart evaluation and removes the listeners. Later
// notifications are ignored.
func (t *Tracker) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.generation++
	t.mu.Unlock()

	t.cancel()
	t.bus.Close()
}

func (t *Tracker) currencyCode() string {
	if t.currency == nil {
		return ""
	}
	return t.currency.ISOCode()
}

func (t *Tracker) currencyOr(fallback string) string {
	if code := t.currencyCode(); code != "" {
		return code
	}
	return fallback
}
