// Package report renders computed page metrics as downloadable documents.
package report

import (
	"fmt"
	"strings"

	"github.com/pagepulse/pagepulse/internal/models"
)

// Filename derives the attachment name for an export over the given range.
func Filename(dateRange models.DateRange) string {
	return fmt.Sprintf("page-performance_%s_%s.csv", dateRange.Start, dateRange.End)
}

// RenderCSV renders page metrics as a CSV document. Monetary and percentage
// columns keep the two-decimal precision the engine computed.
func RenderCSV(pages []models.PageMetrics) string {
	var sb strings.Builder

	sb.WriteString("url,title,sessions,total_revenue,revenue_per_visitor,conversion_rate,average_order_value,order_count\n")

	for _, p := range pages {
		sb.WriteString(fmt.Sprintf("%s,%s,%d,%.2f,%.2f,%.2f,%.2f,%d\n",
			csvField(p.URL),
			csvField(p.Title),
			p.Sessions,
			p.TotalRevenue,
			p.RevenuePerVisitor,
			p.ConversionRate,
			p.AverageOrderValue,
			p.OrderCount,
		))
	}

	return sb.String()
}

// csvField quotes a value when it contains a delimiter, quote or newline.
// Product titles routinely carry commas.
func csvField(v string) string {
	if !strings.ContainsAny(v, ",\"\n") {
		return v
	}
	return `"` + strings.ReplaceAll(v, `"`, `""`) + `"`
}
