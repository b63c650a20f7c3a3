package ecommerce

import "github.com/andreasstove999/ecommerce-system/analytics-service-go/internal/storefront"

func resolveCurrency(explicit, fallback string) string {
	if explicit != "" {
		return explicit
	}
	if fallback != "" {
		return fallback
	}
	return DefaultCurrency
}

func resolveQuantity(explicit, fallback int) int {
	if explicit > 0 {
		return explicit
	}
	if fallback > 0 {
		return fallback
	}
	return 1
}

func brandOf(m *storefront.Manufacturer) string {
	if m == nil {
		return ""
	}
	return m.Name
}

func categoryNames(categories []storefront.Category) []string {
	if len(categories) == 0 {
		return nil
	}
	names := make([]string, 0, len(categories))
	for _, c := range categories {
		names = append(names, c.Name)
	}
	return names
}

// productToItem converts a storefront product. A zero quantity means "not
// given" and falls back to the product's calculated quantity, then 1.
func productToItem(p storefront.Product, currency string, quantity int) Item {
	return Item{
		ID:         p.ID,
		Name:       p.Name,
		Brand:      brandOf(p.Manufacturer),
		Price:      p.CalculatedPrice.UnitPrice,
		Currency:   resolveCurrency(currency, ""),
		Quantity:   resolveQuantity(quantity, p.CalculatedPrice.Quantity),
		Categories: categoryNames(p.Categories),
	}
}

// lineItemToItem converts a cart line item. fallbackCurrency is the currency
// of the cart or order the line item belongs to, if known.
func lineItemToItem(li storefront.LineItem, currency, fallbackCurrency string, quantity int) Item {
	return Item{
		ID:         li.ID,
		Name:       li.Label,
		Brand:      brandOf(li.Manufacturer),
		Price:      li.Price.UnitPrice,
		Currency:   resolveCurrency(currency, fallbackCurrency),
		Quantity:   resolveQuantity(quantity, li.Quantity),
		Categories: categoryNames(li.Categories),
	}
}

func lineItemsToItems(lineItems []storefront.LineItem, currency, fallbackCurrency string) []Item {
	items := make([]Item, 0, len(lineItems))
	for _, li := range lineItems {
		items = append(items, lineItemToItem(li, currency, fallbackCurrency, 0))
	}
	return items
}
