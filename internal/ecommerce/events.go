package ecommerce

import "github.com/andreasstove999/ecommerce-system/analytics-service-go/internal/storefront"

// The builders below follow the GA4 ecommerce event reference
// (https://developers.google.com/analytics/devguides/collection/ga4/ecommerce).

func ViewItem(p storefront.Product, currency string) Event {
	return Event{
		Name: EventViewItem,
		Ecommerce: &Payload{
			Items: []Item{productToItem(p, currency, 0)},
		},
	}
}

// ViewCart reports the cart's total price as value, or 0 when the cart has no
// computed price.
func ViewCart(c storefront.Cart, currency string) Event {
	value := 0.0
	if c.Price != nil {
		value = c.Price.TotalPrice
	}
	return Event{
		Name: EventViewCart,
		Ecommerce: &Payload{
			Currency: resolveCurrency(currency, c.Currency),
			Value:    &value,
			Items:    lineItemsToItems(c.LineItems, currency, c.Currency),
		},
	}
}

func BeginCheckout(c storefront.Cart, currency string) Event {
	return Event{
		Name: EventBeginCheckout,
		Ecommerce: &Payload{
			Items: lineItemsToItems(c.LineItems, currency, c.Currency),
		},
	}
}

func ViewItemList(products []storefront.Product, listName, currency string) Event {
	items := make([]Item, 0, len(products))
	for _, p := range products {
		item := productToItem(p, currency, 0)
		item.ListName = listName
		items = append(items, item)
	}
	return Event{
		Name:      EventViewItemList,
		Ecommerce: &Payload{Items: items},
	}
}

func AddToCart(p storefront.Product, currency string, quantity int) Event {
	return Event{
		Name: EventAddToCart,
		Ecommerce: &Payload{
			Items: []Item{productToItem(p, currency, quantity)},
		},
	}
}

// UpQuantityInCart is an add_to_cart for a line item already in the cart. A
// quantity bump always comes from the cart view, so the item carries the
// cart list context.
func UpQuantityInCart(li storefront.LineItem, currency string, quantity int) Event {
	item := lineItemToItem(li, currency, "", quantity)
	item.ListID = CartListID
	item.ListName = CartListName
	return Event{
		Name:      EventAddToCart,
		Ecommerce: &Payload{Items: []Item{item}},
	}
}

func RemoveFromCart(li storefront.LineItem, currency string, quantity int) Event {
	return Event{
		Name: EventRemoveFromCart,
		Ecommerce: &Payload{
			Items: []Item{lineItemToItem(li, currency, "", quantity)},
		},
	}
}

// Purchase maps the fields an order carries. Coupon and affiliation have no
// source in the order and are never set.
func Purchase(o storefront.Order, currency string) Event {
	p := &Payload{
		TransactionID: o.OrderNumber,
		Currency:      resolveCurrency(currency, o.Currency),
		Items:         lineItemsToItems(o.LineItems, currency, o.Currency),
	}
	if p.TransactionID == "" {
		p.TransactionID = o.ID
	}
	if o.Price != nil {
		value := o.Price.TotalPrice
		tax := 0.0
		for _, t := range o.Price.CalculatedTaxes {
			tax += t.Tax
		}
		p.Value = &value
		p.Tax = &tax
	}
	shipping := o.ShippingTotal
	p.Shipping = &shipping
	return Event{Name: EventPurchase, Ecommerce: p}
}
