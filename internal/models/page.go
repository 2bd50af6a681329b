package models

import (
	"fmt"
	"time"
)

// PageRequest pairs a user-supplied URL with its normalized routable path.
// The path is derived exactly once, when the request enters the pipeline.
type PageRequest struct {
	URL  string `json:"url"`
	Path string `json:"path"`
}

// Product is the catalog entity a storefront page resolves to.
type Product struct {
	ID     int64  `json:"id"`
	Title  string `json:"title"`
	Handle string `json:"handle"`
}

// AnalyticsRow is one group-by bucket from the analytics query surface.
// GroupKey is a landing-page path (or a page title, depending on the query),
// already case-folded by the gateway.
type AnalyticsRow struct {
	GroupKey       string  `json:"group_key"`
	Sessions       int64   `json:"sessions"`
	ConversionRate float64 `json:"conversion_rate"` // fraction in [0,1]
}

// DateRange is an inclusive calendar-day range.
type DateRange struct {
	Start string `json:"start"` // YYYY-MM-DD
	End   string `json:"end"`   // YYYY-MM-DD
}

// Validate checks both bounds parse and are ordered.
func (d DateRange) Validate() error {
	start, err := time.Parse("2006-01-02", d.Start)
	if err != nil {
		return fmt.Errorf("invalid start date %q", d.Start)
	}
	end, err := time.Parse("2006-01-02", d.End)
	if err != nil {
		return fmt.Errorf("invalid end date %q", d.End)
	}
	if end.Before(start) {
		return fmt.Errorf("end date precedes start date")
	}
	return nil
}

// TagFilterLogic selects how multiple filter tags combine.
type TagFilterLogic string

const (
	TagLogicAnd TagFilterLogic = "AND"
	TagLogicOr  TagFilterLogic = "OR"
)

// TagFilter restricts order eligibility by order tags.
type TagFilter struct {
	Tags  []string       `json:"tags"`
	Logic TagFilterLogic `json:"logic"`
}

// IsActive reports whether the filter constrains anything.
func (f *TagFilter) IsActive() bool {
	return f != nil && len(f.Tags) > 0
}

// PageMetrics is the computed metric set for one requested URL.
// TotalRevenue, RevenuePerVisitor, ConversionRate and AverageOrderValue are
// rounded to 2 decimal places; ConversionRate is a percentage.
type PageMetrics struct {
	URL               string  `json:"url"`
	Title             string  `json:"title"`
	Sessions          int64   `json:"sessions"`
	TotalRevenue      float64 `json:"total_revenue"`
	RevenuePerVisitor float64 `json:"revenue_per_visitor"`
	ConversionRate    float64 `json:"conversion_rate"`
	AverageOrderValue float64 `json:"average_order_value"`
	OrderCount        int     `json:"order_count"`
}

// ComparisonResult is the cacheable unit returned for one analytics request.
// Immutable once produced.
type ComparisonResult struct {
	Pages      []PageMetrics `json:"pages"`
	DateRange  DateRange     `json:"date_range"`
	TagFilter  *TagFilter    `json:"tag_filter,omitempty"`
	Strategy   string        `json:"strategy"`
	ComputedAt time.Time     `json:"computed_at"`
}
