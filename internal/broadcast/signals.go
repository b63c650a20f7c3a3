package broadcast

import "github.com/andreasstove999/ecommerce-system/analytics-service-go/internal/storefront"

// Topic identifies a semantic storefront signal. The set is closed: every
// Signal type below maps to exactly one Topic.
type Topic string

const (
	TopicViewProductDetail      Topic = "viewProductDetail"
	TopicViewCart               Topic = "viewCart"
	TopicViewProductList        Topic = "viewProductList"
	TopicBeginCheckout          Topic = "beginCheckout"
	TopicLineItemQuantityChange Topic = "lineItemQuantityChange"
	TopicRemoveFromCart         Topic = "removeFromCart"
	TopicAddToCart              Topic = "addToCart"
	TopicOrderPlace             Topic = "orderPlace"
)

// Topics lists every known topic.
var Topics = []Topic{
	TopicViewProductDetail,
	TopicViewCart,
	TopicViewProductList,
	TopicBeginCheckout,
	TopicLineItemQuantityChange,
	TopicRemoveFromCart,
	TopicAddToCart,
	TopicOrderPlace,
}

type Signal interface {
	Topic() Topic
}

type ViewedProductDetail struct {
	Product storefront.Product
}

type ViewedCart struct {
	Cart storefront.Cart
}

type ViewedProductList struct {
	Items    []storefront.Product
	ListName string
}

type BeganCheckout struct {
	Cart storefront.Cart
}

// LineItemQuantityChanged carries the signed quantity delta (new - old).
// CartCurrency is the ISO code of the cart the line item belongs to, if known.
type LineItemQuantityChanged struct {
	LineItem     storefront.LineItem
	Delta        int
	CartCurrency string
}

type RemovedFromCart struct {
	LineItem     storefront.LineItem
	CartCurrency string
}

type AddedToCart struct {
	Product  storefront.Product
	Quantity int
}

type OrderPlaced struct {
	Order storefront.Order
}

func (ViewedProductDetail) Topic() Topic     { return TopicViewProductDetail }
func (ViewedCart) Topic() Topic              { return TopicViewCart }
func (ViewedProductList) Topic() Topic       { return TopicViewProductList }
func (BeganCheckout) Topic() Topic           { return TopicBeginCheckout }
func (LineItemQuantityChanged) Topic() Topic { return TopicLineItemQuantityChange }
func (RemovedFromCart) Topic() Topic         { return TopicRemoveFromCart }
func (AddedToCart) Topic() Topic             { return TopicAddToCart }
func (OrderPlaced) Topic() Topic             { return TopicOrderPlace }
