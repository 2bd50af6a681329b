package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pagepulse/pagepulse/internal/models"
)

func TestRound2_HalfAwayFromZero(t *testing.T) {
	assert.Equal(t, 1.01, Round2(1.005))
	assert.Equal(t, -1.01, Round2(-1.005))
	assert.Equal(t, 2.35, Round2(2.345))
	assert.Equal(t, 0.0, Round2(0))
	assert.Equal(t, 100.0, Round2(99.999))
}

func TestComputePage_Scenario(t *testing.T) {
	// 100 sessions, 5 eligible orders totaling $500.
	m := ComputePage("/products/a", "Product A", 100, 500, 5)

	assert.Equal(t, int64(100), m.Sessions)
	assert.Equal(t, 5, m.OrderCount)
	assert.Equal(t, 500.00, m.TotalRevenue)
	assert.Equal(t, 5.00, m.RevenuePerVisitor)
	assert.Equal(t, 5.00, m.ConversionRate)
	assert.Equal(t, 100.00, m.AverageOrderValue)
}

func TestComputePage_ZeroSessions(t *testing.T) {
	// Zero sessions zeroes every session-derived field regardless of orders.
	m := ComputePage("/products/b", "Product B", 0, 250, 3)

	assert.Equal(t, 0.0, m.RevenuePerVisitor)
	assert.Equal(t, 0.0, m.ConversionRate)
	assert.Equal(t, 250.00, m.TotalRevenue)
	assert.Equal(t, 83.33, m.AverageOrderValue)
}

func TestComputePage_ZeroOrders(t *testing.T) {
	m := ComputePage("/products/c", "Product C", 50, 0, 0)

	assert.Equal(t, 0.0, m.AverageOrderValue)
	assert.Equal(t, 0.0, m.ConversionRate)
	assert.Equal(t, 0.0, m.TotalRevenue)
}

func TestComputePage_RoundingAppliedOnce(t *testing.T) {
	// 3 orders of $3.333333: summed first, rounded at the end.
	m := ComputePage("/products/d", "Product D", 3, 9.999999, 3)

	assert.Equal(t, 10.00, m.TotalRevenue)
	assert.Equal(t, 3.33, m.RevenuePerVisitor)
	assert.Equal(t, 3.33, m.AverageOrderValue)
	assert.Equal(t, 100.00, m.ConversionRate)
}

func order(id int64, total float64, tags ...string) models.Order {
	return models.Order{
		ID:         id,
		TotalPrice: total,
		Tags:       tags,
		LineItems:  []models.LineItem{{ProductID: 7, Price: total, Quantity: 1}},
	}
}

func TestIsEligible_RebillExcluded(t *testing.T) {
	tests := []struct {
		name string
		tag  string
	}{
		{"exact", "Subscription Recurring Order"},
		{"lower case", "subscription recurring order"},
		{"upper case", "SUBSCRIPTION RECURRING ORDER"},
		{"surrounding whitespace", "  Subscription Recurring Order  "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := order(1, 100, tt.tag)
			assert.False(t, IsEligible(&o, nil))
		})
	}

	o := order(2, 100, "Subscription")
	assert.True(t, IsEligible(&o, nil), "partial tag match must not exclude")
}

func TestIsEligible_Cancelled(t *testing.T) {
	o := order(1, 100)
	cancelled := o.CreatedAt
	o.CancelledAt = &cancelled
	// Zero CancelledAt means not cancelled.
	assert.True(t, IsEligible(&o, nil))

	at := o.CreatedAt.AddDate(0, 0, 1)
	o.CancelledAt = &at
	assert.False(t, IsEligible(&o, nil))
}

func TestTagFilter_AndLogic(t *testing.T) {
	filter := &models.TagFilter{Tags: []string{"vip", "sale"}, Logic: models.TagLogicAnd}

	partial := order(1, 100, "vip")
	assert.False(t, TagFilterMatches(&partial, filter))

	both := order(2, 100, "VIP", " sale ")
	assert.True(t, TagFilterMatches(&both, filter))
}

func TestTagFilter_OrLogic(t *testing.T) {
	filter := &models.TagFilter{Tags: []string{"vip", "sale"}, Logic: models.TagLogicOr}

	partial := order(1, 100, "vip")
	assert.True(t, TagFilterMatches(&partial, filter))

	neither := order(2, 100, "wholesale")
	assert.False(t, TagFilterMatches(&neither, filter))
}

func TestEligibleOrders_FilterExcludesAll(t *testing.T) {
	orders := []models.Order{
		order(1, 100, "retail"),
		order(2, 200, "retail"),
	}
	filter := &models.TagFilter{Tags: []string{"wholesale"}, Logic: models.TagLogicOr}

	assert.Empty(t, EligibleOrders(orders, filter))
}

func TestStrategies_DisagreeOnMixedCarts(t *testing.T) {
	orders := []models.Order{
		{
			ID:         1,
			TotalPrice: 150, // cart holds the target product plus something else
			LineItems: []models.LineItem{
				{ProductID: 7, Price: 50, Quantity: 1},
				{ProductID: 9, Price: 100, Quantity: 1},
			},
		},
		{
			ID:         2,
			TotalPrice: 100,
			LineItems: []models.LineItem{
				{ProductID: 7, Price: 50, Quantity: 2},
			},
		},
		{
			ID:         3,
			TotalPrice: 999, // does not contain the target product
			LineItems: []models.LineItem{
				{ProductID: 9, Price: 999, Quantity: 1},
			},
		},
	}

	fullRev, fullCount := FullOrderTotal{}.Attribute(orders, 7)
	assert.Equal(t, 250.0, fullRev)
	assert.Equal(t, 2, fullCount)

	liRev, liCount := LineItemOnly{}.Attribute(orders, 7)
	assert.Equal(t, 150.0, liRev)
	assert.Equal(t, 2, liCount)
}

func TestStrategyByName(t *testing.T) {
	assert.Equal(t, "full_order_total", StrategyByName("").Name())
	assert.Equal(t, "full_order_total", StrategyByName("bogus").Name())
	assert.Equal(t, "line_item_only", StrategyByName("line_item_only").Name())
}
