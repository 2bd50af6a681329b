package engine

import (
	"strings"

	"github.com/pagepulse/pagepulse/internal/models"
)

// HasTag reports whether the order carries the tag, comparing trimmed and
// case-insensitively.
func HasTag(order *models.Order, tag string) bool {
	for _, t := range order.Tags {
		if strings.EqualFold(strings.TrimSpace(t), strings.TrimSpace(tag)) {
			return true
		}
	}
	return false
}

// TagFilterMatches evaluates the user's tag filter against an order.
// AND requires every filter tag on the order; OR requires at least one.
// An inactive filter matches everything.
func TagFilterMatches(order *models.Order, filter *models.TagFilter) bool {
	if !filter.IsActive() {
		return true
	}

	if filter.Logic == models.TagLogicOr {
		for _, tag := range filter.Tags {
			if HasTag(order, tag) {
				return true
			}
		}
		return false
	}

	// Default to AND, matching how the filter is presented in the dashboard.
	for _, tag := range filter.Tags {
		if !HasTag(order, tag) {
			return false
		}
	}
	return true
}

// IsEligible decides whether an order counts toward revenue and order count:
// not cancelled, not a subscription rebill, and passing the active filter.
func IsEligible(order *models.Order, filter *models.TagFilter) bool {
	if order.Cancelled() {
		return false
	}
	if HasTag(order, RebillTag) {
		return false
	}
	return TagFilterMatches(order, filter)
}

// EligibleOrders filters an order set down to the attributable ones.
func EligibleOrders(orders []models.Order, filter *models.TagFilter) []models.Order {
	out := make([]models.Order, 0, len(orders))
	for i := range orders {
		if IsEligible(&orders[i], filter) {
			out = append(out, orders[i])
		}
	}
	return out
}
