package ecommerce

import (
	"encoding/json"
	"strconv"
)

// DefaultCurrency is used whenever no currency is known for an item.
const DefaultCurrency = "EUR"

const (
	EventViewItem       = "view_item"
	EventViewCart       = "view_cart"
	EventBeginCheckout  = "begin_checkout"
	EventViewItemList   = "view_item_list"
	EventAddToCart      = "add_to_cart"
	EventRemoveFromCart = "remove_from_cart"
	EventPurchase       = "purchase"
)

const (
	CartListID   = "cart"
	CartListName = "Shopping cart"
)

const categoryKeyPrefix = "item_category"

// CategoryKey returns the item key for the category at position i:
// item_category, item_category1, item_category2, ...
func CategoryKey(i int) string {
	if i == 0 {
		return categoryKeyPrefix
	}
	return categoryKeyPrefix + strconv.Itoa(i)
}

// Item is one entry of an ecommerce items list. Categories are flattened into
// positional keys when encoded.
type Item struct {
	ID         string
	Name       string
	Brand      string
	Price      float64
	Currency   string
	Quantity   int
	Categories []string
	ListID     string
	ListName   string
}

func (it Item) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, 6+len(it.Categories)+2)
	m["item_id"] = it.ID
	m["item_name"] = it.Name
	m["item_brand"] = it.Brand
	m["price"] = it.Price
	m["currency"] = it.Currency
	m["quantity"] = it.Quantity
	for i, name := range it.Categories {
		m[CategoryKey(i)] = name
	}
	if it.ListID != "" {
		m["item_list_id"] = it.ListID
	}
	if it.ListName != "" {
		m["item_list_name"] = it.ListName
	}
	return json.Marshal(m)
}

// Payload is the ecommerce object of an event. Only the fields an event type
// defines are set.
type Payload struct {
	TransactionID string   `json:"transaction_id,omitempty"`
	Currency      string   `json:"currency,omitempty"`
	Value         *float64 `json:"value,omitempty"`
	Tax           *float64 `json:"tax,omitempty"`
	Shipping      *float64 `json:"shipping,omitempty"`
	Items         []Item   `json:"items"`
}

// Event is a data layer entry. The zero Event encodes as {"ecommerce":null},
// the marker that clears the previous ecommerce object.
type Event struct {
	Name      string   `json:"event,omitempty"`
	Ecommerce *Payload `json:"ecommerce"`
}

func ResetMarker() Event {
	return Event{}
}

func (e Event) IsReset() bool {
	return e.Name == "" && e.Ecommerce == nil
}
