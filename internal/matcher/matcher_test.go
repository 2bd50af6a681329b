package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagepulse/pagepulse/internal/models"
)

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"absolute url", "https://shop.example.com/products/blue-mug", "/products/blue-mug"},
		{"absolute url with query", "https://shop.example.com/products/blue-mug?variant=1", "/products/blue-mug"},
		{"absolute url root", "https://shop.example.com", "/"},
		{"relative with slash", "/collections/all", "/collections/all"},
		{"relative without slash", "products/blue-mug", "/products/blue-mug"},
		{"relative with query", "/products/blue-mug?utm_source=x", "/products/blue-mug"},
		{"fragment stripped", "products/blue-mug#reviews", "/products/blue-mug"},
		{"malformed", "://not a url", "/://not a url"},
		{"empty", "", "/"},
		{"whitespace", "  /products/a  ", "/products/a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizePath(tt.in))
		})
	}
}

func TestExtractSlug(t *testing.T) {
	assert.Equal(t, "blue-mug", ExtractSlug("/products/blue-mug"))
	assert.Equal(t, "blue-mug", ExtractSlug("/products/blue-mug/"))
	assert.Equal(t, "blue-mug", ExtractSlug("/products/blue-mug?variant=1"))
	assert.Equal(t, "", ExtractSlug("/collections/all"))
	assert.Equal(t, "", ExtractSlug("/products/"))
	assert.Equal(t, "", ExtractSlug("/pages/products"))
}

func TestPathsMatch(t *testing.T) {
	assert.True(t, PathsMatch("/products/foo", "/products/foo"))
	assert.True(t, PathsMatch("/products/foo", "/products/foo/"))
	assert.True(t, PathsMatch("/products/foo/", "/products/foo"))
	assert.True(t, PathsMatch("/Products/Foo", "/products/foo"))

	assert.False(t, PathsMatch("/products/foo", "/products/foobar"))
	assert.False(t, PathsMatch("/products/foo", "/products/fo"))
	// Tolerance is one trailing slash, not two.
	assert.False(t, PathsMatch("/products/foo", "/products/foo//"))
}

func TestTitlesMatch(t *testing.T) {
	assert.True(t, TitlesMatch("Blue Mug", "blue mug"))
	assert.True(t, TitlesMatch("  Blue Mug ", "BLUE MUG"))
	assert.False(t, TitlesMatch("Blue Mug", "Blue Mugs"))
}

func TestMatchRows_SumsVariants(t *testing.T) {
	rows := []models.AnalyticsRow{
		{GroupKey: "/products/foo", Sessions: 60, ConversionRate: 0.05},
		{GroupKey: "/products/foo/", Sessions: 40, ConversionRate: 0.10},
		{GroupKey: "/products/bar", Sessions: 999, ConversionRate: 0.50},
	}

	m := MatchRows("/products/foo", rows)
	require.True(t, m.Found)
	assert.Equal(t, int64(100), m.Row.Sessions)
	// Session-weighted: (60*0.05 + 40*0.10) / 100 = 0.07
	assert.InDelta(t, 0.07, m.Row.ConversionRate, 1e-9)
}

func TestMatchRows_UnmatchedIsExplicit(t *testing.T) {
	rows := []models.AnalyticsRow{
		{GroupKey: "/products/other", Sessions: 10, ConversionRate: 0.1},
	}

	m := MatchRows("/products/foo", rows)
	assert.False(t, m.Found)
	assert.Zero(t, m.Row.Sessions)
}

func TestMatchRows_ZeroSessionsStillFound(t *testing.T) {
	rows := []models.AnalyticsRow{
		{GroupKey: "/products/foo", Sessions: 0, ConversionRate: 0},
	}

	m := MatchRows("/products/foo", rows)
	assert.True(t, m.Found)
	assert.Zero(t, m.Row.Sessions)
	assert.Zero(t, m.Row.ConversionRate)
}
