package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/andreasstove999/ecommerce-system/analytics-service-go/internal/storefront"
	"github.com/andreasstove999/ecommerce-system/analytics-service-go/internal/tracker"
)

var (
	errUnknownSignal  = errors.New("unknown signal type")
	errMissingPayload = errors.New("missing signal payload")
	errMissingProduct = errors.New("add_to_cart needs a product id")
)

// Inbound signal types forwarded by the storefront.
const (
	signalPage        = "page"
	signalCartSidebar = "cart_sidebar"
	signalListing     = "listing"
	signalRoute       = "route"
	signalCart        = "cart"
	signalAddToCart   = "add_to_cart"
	signalOrderPlaced = "order_placed"
)

type signalRequest struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type cartSidebarPayload struct {
	Open bool `json:"open"`
}

type addToCartPayload struct {
	Product  storefront.Product `json:"product"`
	Quantity int                `json:"quantity"`
}

func dispatchSignal(ctx context.Context, t *tracker.Tracker, req signalRequest) error {
	switch req.Type {
	case signalPage:
		var page storefront.Page
		if err := decodePayload(req.Payload, &page); err != nil {
			return err
		}
		t.PageChanged(ctx, page)
	case signalCartSidebar:
		var p cartSidebarPayload
		if err := decodePayload(req.Payload, &p); err != nil {
			return err
		}
		t.CartSidebarChanged(ctx, p.Open)
	case signalListing:
		var listing storefront.Listing
		if err := decodePayload(req.Payload, &listing); err != nil {
			return err
		}
		t.ListingChanged(ctx, listing)
	case signalRoute:
		var route storefront.Route
		if err := decodePayload(req.Payload, &route); err != nil {
			return err
		}
		t.RouteChanged(ctx, route)
	case signalCart:
		var cart storefront.Cart
		if err := decodePayload(req.Payload, &cart); err != nil {
			return err
		}
		t.CartChanged(ctx, cart)
	case signalAddToCart:
		var p addToCartPayload
		if err := decodePayload(req.Payload, &p); err != nil {
			return err
		}
		if p.Product.ID == "" {
			return errMissingProduct
		}
		t.AddedToCart(ctx, p.Product, p.Quantity)
	case signalOrderPlaced:
		var order storefront.Order
		if err := decodePayload(req.Payload, &order); err != nil {
			return err
		}
		t.OrderPlaced(ctx, order)
	default:
		return fmt.Errorf("%w: %q", errUnknownSignal, req.Type)
	}
	return nil
}

// decodePayload rejects an absent or null payload; a zero value would read
// as an emptied cart or a product without id.
func decodePayload(raw json.RawMessage, v any) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return errMissingPayload
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}
