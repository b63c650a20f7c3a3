package storefront

// Category is one entry of a product's ordered category list.
type Category struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

type Manufacturer struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

// CalculatedPrice is the storefront's computed price record for a product.
type CalculatedPrice struct {
	UnitPrice  float64 `json:"unitPrice"`
	TotalPrice float64 `json:"totalPrice,omitempty"`
	Quantity   int     `json:"quantity,omitempty"`
}

type Product struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Manufacturer    *Manufacturer   `json:"manufacturer,omitempty"`
	Categories      []Category      `json:"categories,omitempty"`
	CalculatedPrice CalculatedPrice `json:"calculatedPrice"`
}

type LineItemPrice struct {
	UnitPrice  float64 `json:"unitPrice"`
	TotalPrice float64 `json:"totalPrice,omitempty"`
	Quantity   int     `json:"quantity,omitempty"`
}

type LineItem struct {
	ID           string        `json:"id"`
	Label        string        `json:"label"`
	Manufacturer *Manufacturer `json:"manufacturer,omitempty"`
	Categories   []Category    `json:"categories,omitempty"`
	Price        LineItemPrice `json:"price"`
	Quantity     int           `json:"quantity"`
}

type CartPrice struct {
	TotalPrice    float64 `json:"totalPrice"`
	NetPrice      float64 `json:"netPrice,omitempty"`
	PositionPrice float64 `json:"positionPrice,omitempty"`
}

type Cart struct {
	Token     string     `json:"token,omitempty"`
	LineItems []LineItem `json:"lineItems"`
	Price     *CartPrice `json:"price,omitempty"`
	// Currency is the ISO code the cart was priced in, when known.
	Currency string `json:"currency,omitempty"`
}

// LineItem returns the line item with the given id.
func (c Cart) LineItem(id string) (LineItem, bool) {
	for _, li := range c.LineItems {
		if li.ID == id {
			return li, true
		}
	}
	return LineItem{}, false
}

type CalculatedTax struct {
	Tax     float64 `json:"tax"`
	TaxRate float64 `json:"taxRate"`
	Price   float64 `json:"price"`
}

type OrderPrice struct {
	TotalPrice      float64         `json:"totalPrice"`
	NetPrice        float64         `json:"netPrice,omitempty"`
	CalculatedTaxes []CalculatedTax `json:"calculatedTaxes,omitempty"`
}

type Order struct {
	ID            string      `json:"id"`
	OrderNumber   string      `json:"orderNumber,omitempty"`
	LineItems     []LineItem  `json:"lineItems"`
	Price         *OrderPrice `json:"price,omitempty"`
	ShippingTotal float64     `json:"shippingTotal,omitempty"`
	Currency      string      `json:"currency,omitempty"`
}

// Page is the CMS page currently displayed.
type Page struct {
	Product  *Product  `json:"product,omitempty"`
	Category *Category `json:"category,omitempty"`
}

// Listing is the category listing currently displayed.
type Listing struct {
	Elements []Product `json:"elements"`
}

type Route struct {
	Name string `json:"routeName"`
}
