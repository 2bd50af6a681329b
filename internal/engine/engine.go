// Package engine computes the per-page metric set from resolved sessions,
// conversion and order inputs. Everything here is pure and deterministic:
// no I/O, no clocks, no logging.
package engine

import (
	"github.com/shopspring/decimal"

	"github.com/pagepulse/pagepulse/internal/models"
)

// RebillTag marks subscription rebill orders, which never count toward
// revenue or order count. Matched case-insensitively with trimming.
const RebillTag = "Subscription Recurring Order"

// Round2 rounds to 2 decimal places, half away from zero. Applied exactly
// once, after all arithmetic. Going through decimal avoids the binary-float
// trap where e.g. 1.005 sits just below the halfway point.
func Round2(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}

// ComputePage derives the full metric set for one page. sessions and
// orderCount of zero hit the documented zero-division policy: the dependent
// ratio is zero, never NaN.
func ComputePage(url, title string, sessions int64, revenue float64, orderCount int) models.PageMetrics {
	m := models.PageMetrics{
		URL:          url,
		Title:        title,
		Sessions:     sessions,
		OrderCount:   orderCount,
		TotalRevenue: Round2(revenue),
	}

	if sessions > 0 {
		m.RevenuePerVisitor = Round2(revenue / float64(sessions))
		m.ConversionRate = Round2(100 * float64(orderCount) / float64(sessions))
	}
	if orderCount > 0 {
		m.AverageOrderValue = Round2(revenue / float64(orderCount))
	}

	return m
}
