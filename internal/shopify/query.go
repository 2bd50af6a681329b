package shopify

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// identRe limits datasets, fields and group-by keys to bare ShopifyQL
// identifiers. Anything else is rejected before serialization, so malformed
// or hostile input can never surface as an opaque upstream parse error.
var identRe = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// QueryBuilder assembles a ShopifyQL query from validated parts.
type QueryBuilder struct {
	dataset string
	show    []string
	groupBy string
	since   string
	until   string
	limit   int
}

// NewQuery starts a query over the named dataset (e.g. "sessions").
func NewQuery(dataset string) *QueryBuilder {
	return &QueryBuilder{dataset: dataset}
}

// Show adds the metric fields to select.
func (b *QueryBuilder) Show(fields ...string) *QueryBuilder {
	b.show = append(b.show, fields...)
	return b
}

// GroupBy sets the single group-by dimension.
func (b *QueryBuilder) GroupBy(field string) *QueryBuilder {
	b.groupBy = field
	return b
}

// Between sets the inclusive date bounds (YYYY-MM-DD).
func (b *QueryBuilder) Between(since, until string) *QueryBuilder {
	b.since = since
	b.until = until
	return b
}

// Limit caps the number of returned rows.
func (b *QueryBuilder) Limit(n int) *QueryBuilder {
	b.limit = n
	return b
}

// Build validates every part and serializes the query text.
func (b *QueryBuilder) Build() (string, error) {
	if !identRe.MatchString(b.dataset) {
		return "", fmt.Errorf("invalid dataset %q", b.dataset)
	}
	if len(b.show) == 0 {
		return "", fmt.Errorf("query needs at least one SHOW field")
	}
	for _, f := range b.show {
		if !identRe.MatchString(f) {
			return "", fmt.Errorf("invalid field %q", f)
		}
	}
	if b.groupBy != "" && !identRe.MatchString(b.groupBy) {
		return "", fmt.Errorf("invalid group-by field %q", b.groupBy)
	}
	for _, d := range []string{b.since, b.until} {
		if d == "" {
			continue
		}
		if _, err := time.Parse("2006-01-02", d); err != nil {
			return "", fmt.Errorf("invalid date bound %q", d)
		}
	}
	if (b.since == "") != (b.until == "") {
		return "", fmt.Errorf("date bounds must be set together")
	}
	if b.limit < 0 {
		return "", fmt.Errorf("invalid limit %d", b.limit)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "FROM %s SHOW %s", b.dataset, strings.Join(b.show, ", "))
	if b.groupBy != "" {
		fmt.Fprintf(&sb, " GROUP BY %s", b.groupBy)
	}
	if b.since != "" {
		fmt.Fprintf(&sb, " SINCE %s UNTIL %s", b.since, b.until)
	}
	if b.limit > 0 {
		fmt.Fprintf(&sb, " LIMIT %d", b.limit)
	}
	return sb.String(), nil
}
