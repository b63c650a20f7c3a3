package tracker

import (
	"context"

	"github.com/andreasstove999/ecommerce-system/analytics-service-go/internal/broadcast"
)

type listener struct {
	topic   broadcast.Topic
	name    string
	handler broadcast.Handler
}

// All listeners pass the currency as its ISO code. Line item events fall back
// to the cart's currency when the provider has none.
func (t *Tracker) listeners() []listener {
	return []listener{
		{broadcast.TopicAddToCart, "addToCartListener", t.onAddToCart},
		{broadcast.TopicViewCart, "viewCartListener", t.onViewCart},
		{broadcast.TopicViewProductList, "viewProductListListener", t.onViewProductList},
		{broadcast.TopicViewProductDetail, "viewProductDetailListener", t.onViewProductDetail},
		{broadcast.TopicBeginCheckout, "beginCheckoutListener", t.onBeginCheckout},
		{broadcast.TopicRemoveFromCart, "removeFromCartListener", t.onRemoveFromCart},
		{broadcast.TopicOrderPlace, "orderPlaceListener", t.onOrderPlace},
		{broadcast.TopicLineItemQuantityChange, "lineItemListener", t.onLineItemQuantityChange},
	}
}

func (t *Tracker) onAddToCart(ctx context.Context, s broadcast.Signal) {
	if ev, ok := s.(broadcast.AddedToCart); ok {
		t.reporter.LogAddToCart(ctx, ev.Product, t.currencyCode(), ev.Quantity)
	}
}

func (t *Tracker) onViewCart(ctx context.Context, s broadcast.Signal) {
	if ev, ok := s.(broadcast.ViewedCart); ok {
		t.reporter.LogCartView(ctx, ev.Cart, t.currencyCode())
	}
}

func (t *Tracker) onViewProductList(ctx context.Context, s broadcast.Signal) {
	if ev, ok := s.(broadcast.ViewedProductList); ok {
		t.reporter.LogProductListView(ctx, ev.Items, ev.ListName, t.currencyCode())
	}
}

func (t *Tracker) onViewProductDetail(ctx context.Context, s broadcast.Signal) {
	if ev, ok := s.(broadcast.ViewedProductDetail); ok {
		t.reporter.LogProductView(ctx, ev.Product, t.currencyCode())
	}
}

func (t *Tracker) onBeginCheckout(ctx context.Context, s broadcast.Signal) {
	if ev, ok := s.(broadcast.BeganCheckout); ok {
		t.reporter.LogBeginCheckout(ctx, ev.Cart, t.currencyCode())
	}
}

func (t *Tracker) onRemoveFromCart(ctx context.Context, s broadcast.Signal) {
	if ev, ok := s.(broadcast.RemovedFromCart); ok {
		t.reporter.LogRemoveFromCart(ctx, ev.LineItem, t.currencyOr(ev.CartCurrency), 0)
	}
}

func (t *Tracker) onOrderPlace(ctx context.Context, s broadcast.Signal) {
	if ev, ok := s.(broadcast.OrderPlaced); ok {
		t.reporter.LogPurchase(ctx, ev.Order, t.currencyCode())
	}
}

// A negative delta is a removal of -delta units, anything else a quantity bump
// from the cart.
func (t *Tracker) onLineItemQuantityChange(ctx context.Context, s broadcast.Signal) {
	ev, ok := s.(broadcast.LineItemQuantityChanged)
	if !ok {
		return
	}
	currency := t.currencyOr(ev.CartCurrency)
	if ev.Delta < 0 {
		t.reporter.LogRemoveFromCart(ctx, ev.LineItem, currency, -ev.Delta)
		return
	}
	t.reporter.LogUpQuantityInCart(ctx, ev.LineItem, currency, ev.Delta)
}
