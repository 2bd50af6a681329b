package engine

import "github.com/pagepulse/pagepulse/internal/models"

// Strategy decides how order revenue is attributed to a product page.
// The two policies produce materially different AOV figures and a result
// always records which one produced it.
type Strategy interface {
	// Name identifies the strategy in results, cache keys and logs.
	Name() string

	// Attribute returns the revenue and order count attributable to the
	// product across the (already eligibility-filtered) order set.
	Attribute(orders []models.Order, productID int64) (revenue float64, orderCount int)
}

// FullOrderTotal attributes the entire order total of every order containing
// the target product. AOV then reflects real cart value. This is the
// committed default.
type FullOrderTotal struct{}

func (FullOrderTotal) Name() string { return "full_order_total" }

func (FullOrderTotal) Attribute(orders []models.Order, productID int64) (float64, int) {
	var revenue float64
	var count int
	for i := range orders {
		if !orders[i].ContainsProduct(productID) {
			continue
		}
		revenue += orders[i].TotalPrice
		count++
	}
	return revenue, count
}

// LineItemOnly attributes only the matched line items (unit price times
// quantity) within each containing order. AOV then reflects product-level
// contribution rather than cart value.
type LineItemOnly struct{}

func (LineItemOnly) Name() string { return "line_item_only" }

func (LineItemOnly) Attribute(orders []models.Order, productID int64) (float64, int) {
	var revenue float64
	var count int
	for i := range orders {
		matched := false
		for _, li := range orders[i].LineItems {
			if li.ProductID != productID {
				continue
			}
			matched = true
			revenue += li.Price * float64(li.Quantity)
		}
		if matched {
			count++
		}
	}
	return revenue, count
}

// StrategyByName resolves a configured strategy name, defaulting to
// FullOrderTotal for anything unrecognized.
func StrategyByName(name string) Strategy {
	if name == (LineItemOnly{}).Name() {
		return LineItemOnly{}
	}
	return FullOrderTotal{}
}
