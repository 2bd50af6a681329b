package models

import "time"

// LineItem is a single purchased line within an order.
type LineItem struct {
	ProductID int64   `json:"product_id"`
	Title     string  `json:"title"`
	Price     float64 `json:"price,string"`
	Quantity  int64   `json:"quantity"`
}

// Order is one order record from the upstream order surface. Tags arrive as
// a single comma-separated string upstream; the gateway splits them.
type Order struct {
	ID          int64      `json:"id"`
	TotalPrice  float64    `json:"total_price,string"`
	Tags        []string   `json:"tags"`
	CreatedAt   time.Time  `json:"created_at"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
	LineItems   []LineItem `json:"line_items"`
}

// Cancelled reports whether the order was cancelled upstream.
func (o *Order) Cancelled() bool {
	return o.CancelledAt != nil && !o.CancelledAt.IsZero()
}

// ContainsProduct reports whether any line item references the product.
func (o *Order) ContainsProduct(productID int64) bool {
	for _, li := range o.LineItems {
		if li.ProductID == productID {
			return true
		}
	}
	return false
}
