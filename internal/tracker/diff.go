package tracker

import (
	"github.com/andreasstove999/ecommerce-system/analytics-service-go/internal/broadcast"
	"github.com/andreasstove999/ecommerce-system/analytics-service-go/internal/storefront"
)

// diffLineItems walks the previous cart only. A line item whose quantity
// changed yields LineItemQuantityChanged, a line item that disappeared yields
// RemovedFromCart. Line items that only exist in next are not reported;
// additions arrive through the add-to-cart signal.
func diffLineItems(prev, next storefront.Cart) []broadcast.Signal {
	cartCurrency := next.Currency
	if cartCurrency == "" {
		cartCurrency = prev.Currency
	}
	var signals []broadcast.Signal
	for _, old := range prev.LineItems {
		current, ok := next.LineItem(old.ID)
		if !ok {
			signals = append(signals, broadcast.RemovedFromCart{LineItem: old, CartCurrency: cartCurrency})
			continue
		}
		if current.Quantity != old.Quantity {
			signals = append(signals, broadcast.LineItemQuantityChanged{
				LineItem:     old,
				Delta:        current.Quantity - old.Quantity,
				CartCurrency: cartCurrency,
			})
		}
	}
	return signals
}
