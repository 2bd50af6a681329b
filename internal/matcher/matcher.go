// Package matcher maps user-supplied page URLs onto upstream identifiers:
// catalog slugs, analytics group-by paths and product titles. Matching is
// deliberately conservative: exact equality modulo case and at most one
// trailing-slash difference.
package matcher

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/pagepulse/pagepulse/internal/models"
)

var productSlugRe = regexp.MustCompile(`^/products/([^/?#]+)`)

// NormalizePath reduces a URL string to its routable path. Absolute URLs
// lose scheme, host and query; relative strings get a leading slash.
// Malformed input falls back to the leading-slash rule instead of failing.
func NormalizePath(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "/"
	}

	if u, err := url.Parse(raw); err == nil && u.Host != "" {
		if u.Path == "" {
			return "/"
		}
		return ensureLeadingSlash(u.Path)
	}

	// Relative or unparseable: strip query/fragment manually.
	if i := strings.IndexAny(raw, "?#"); i >= 0 {
		raw = raw[:i]
	}
	return ensureLeadingSlash(raw)
}

func ensureLeadingSlash(p string) string {
	if !strings.HasPrefix(p, "/") {
		return "/" + p
	}
	return p
}

// NewPageRequest derives the normalized path for a URL once.
func NewPageRequest(rawURL string) models.PageRequest {
	return models.PageRequest{URL: rawURL, Path: NormalizePath(rawURL)}
}

// ExtractSlug returns the product slug embedded in a normalized path, or ""
// when the path is not a product page.
func ExtractSlug(path string) string {
	m := productSlugRe.FindStringSubmatch(path)
	if m == nil {
		return ""
	}
	return m[1]
}

// PathsMatch reports whether an analytics row path refers to the target
// page path. Comparison is case-insensitive and tolerates exactly one
// trailing-slash mismatch in either direction.
func PathsMatch(target, row string) bool {
	t := strings.ToLower(target)
	r := strings.ToLower(row)
	return t == r || t+"/" == r || t == r+"/"
}

// TitlesMatch compares product titles case-insensitively, ignoring
// surrounding whitespace.
func TitlesMatch(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// RowMatch is the explicit outcome of looking a page up in an analytics
// result set. Found distinguishes "the row reported zero sessions" from
// "no row matched at all".
type RowMatch struct {
	Row   models.AnalyticsRow
	Found bool
}

// MatchRows resolves a target path against a set of analytics rows. Rows for
// path variants (trailing slash) are summed, not overwritten; conversion rate
// is combined session-weighted so the merged rate stays consistent.
func MatchRows(target string, rows []models.AnalyticsRow) RowMatch {
	var (
		sessions    int64
		conversions float64
		found       bool
	)
	for _, row := range rows {
		if !PathsMatch(target, row.GroupKey) {
			continue
		}
		found = true
		sessions += row.Sessions
		conversions += float64(row.Sessions) * row.ConversionRate
	}
	if !found {
		return RowMatch{}
	}

	merged := models.AnalyticsRow{GroupKey: strings.ToLower(target), Sessions: sessions}
	if sessions > 0 {
		merged.ConversionRate = conversions / float64(sessions)
	}
	return RowMatch{Row: merged, Found: true}
}
