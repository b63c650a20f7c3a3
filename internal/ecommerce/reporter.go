package ecommerce

import (
	"context"

	"go.uber.org/zap"

	"github.com/andreasstove999/ecommerce-system/analytics-service-go/internal/storefront"
)

// Publisher delivers a built event to the data layer.
type Publisher interface {
	Publish(ctx context.Context, ev Event)
}

// Reporter builds analytics events from storefront objects and hands them to
// a Publisher.
type Reporter struct {
	pub    Publisher
	logger *zap.Logger
}

func NewReporter(pub Publisher, logger *zap.Logger) *Reporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reporter{pub: pub, logger: logger}
}

func (r *Reporter) LogProductView(ctx context.Context, p storefront.Product, currency string) {
	r.pub.Publish(ctx, ViewItem(p, currency))
}

func (r *Reporter) LogCartView(ctx context.Context, c storefront.Cart, currency string) {
	r.pub.Publish(ctx, ViewCart(c, currency))
}

func (r *Reporter) LogBeginCheckout(ctx context.Context, c storefront.Cart, currency string) {
	r.pub.Publish(ctx, BeginCheckout(c, currency))
}

func (r *Reporter) LogProductListView(ctx context.Context, products []storefront.Product, listName, currency string) {
	r.pub.Publish(ctx, ViewItemList(products, listName, currency))
}

func (r *Reporter) LogAddToCart(ctx context.Context, p storefront.Product, currency string, quantity int) {
	r.pub.Publish(ctx, AddToCart(p, currency, quantity))
}

func (r *Reporter) LogUpQuantityInCart(ctx context.Context, li storefront.LineItem, currency string, quantity int) {
	r.pub.Publish(ctx, UpQuantityInCart(li, currency, quantity))
}

func (r *Reporter) LogRemoveFromCart(ctx context.Context, li storefront.LineItem, currency string, quantity int) {
	r.pub.Publish(ctx, RemoveFromCart(li, currency, quantity))
}

func (r *Reporter) LogPurchase(ctx context.Context, o storefront.Order, currency string) {
	r.logger.Debug("purchase",
		zap.String("order_id", o.ID),
		zap.String("order_number", o.OrderNumber),
		zap.Int("line_items", len(o.LineItems)),
	)
	r.pub.Publish(ctx, Purchase(o, currency))
}
