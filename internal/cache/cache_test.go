package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pagepulse/pagepulse/internal/models"
)

func TestKey_Deterministic(t *testing.T) {
	dr := models.DateRange{Start: "2024-01-01", End: "2024-01-31"}
	urls := []string{"/products/a", "/products/b"}

	k1 := Key(urls, dr, nil, "full_order_total")
	k2 := Key(urls, dr, nil, "full_order_total")
	assert.Equal(t, k1, k2)
	assert.Len(t, k1, 64)
}

func TestKey_SensitiveToParameters(t *testing.T) {
	dr := models.DateRange{Start: "2024-01-01", End: "2024-01-31"}
	urls := []string{"/products/a"}
	base := Key(urls, dr, nil, "full_order_total")

	assert.NotEqual(t, base, Key([]string{"/products/b"}, dr, nil, "full_order_total"))
	assert.NotEqual(t, base, Key(urls, models.DateRange{Start: "2024-01-01", End: "2024-02-01"}, nil, "full_order_total"))
	assert.NotEqual(t, base, Key(urls, dr, nil, "line_item_only"))

	filter := &models.TagFilter{Tags: []string{"vip"}, Logic: models.TagLogicOr}
	assert.NotEqual(t, base, Key(urls, dr, filter, "full_order_total"))
}

func TestKey_InactiveFilterEqualsNil(t *testing.T) {
	dr := models.DateRange{Start: "2024-01-01", End: "2024-01-31"}
	urls := []string{"/products/a"}

	empty := &models.TagFilter{}
	assert.Equal(t, Key(urls, dr, nil, "full_order_total"), Key(urls, dr, empty, "full_order_total"))
}

func TestKey_URLOrderMatters(t *testing.T) {
	// URL order determines response ordering, so it is part of the identity.
	dr := models.DateRange{Start: "2024-01-01", End: "2024-01-31"}

	a := Key([]string{"/products/a", "/products/b"}, dr, nil, "full_order_total")
	b := Key([]string{"/products/b", "/products/a"}, dr, nil, "full_order_total")
	assert.NotEqual(t, a, b)
}
