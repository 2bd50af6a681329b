package shopify

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/pagepulse/pagepulse/internal/matcher"
	"github.com/pagepulse/pagepulse/internal/models"
)

// graphqlRequest is the envelope for the analytics query surface.
type graphqlRequest struct {
	Query string `json:"query"`
}

type graphqlResponse struct {
	Data struct {
		ShopifyqlQuery struct {
			TypeName  string `json:"__typename"`
			TableData struct {
				Columns []struct {
					Name     string `json:"name"`
					DataType string `json:"dataType"`
				} `json:"columns"`
				RowData [][]string `json:"rowData"`
			} `json:"tableData"`
			ParseErrors []struct {
				Message string `json:"message"`
			} `json:"parseErrors"`
		} `json:"shopifyqlQuery"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// QuerySessions submits one ShopifyQL query for sessions and conversion rate
// grouped by landing page path over the date range, and matches the returned
// rows against the requested paths. Unmatched paths come back as an explicit
// not-found outcome. Upstream query-language errors are non-fatal: the whole
// result degrades to all-not-found and the caller proceeds with zero data.
// Only the caller's (stage) deadline is returned as an error.
func (c *Client) QuerySessions(ctx context.Context, creds *models.ShopCredentials, paths []string, dateRange models.DateRange) (map[string]matcher.RowMatch, error) {
	empty := make(map[string]matcher.RowMatch, len(paths))
	for _, p := range paths {
		empty[p] = matcher.RowMatch{}
	}

	query, err := NewQuery("sessions").
		Show("sessions", "conversion_rate").
		GroupBy("landing_page_path").
		Between(dateRange.Start, dateRange.End).
		Limit(c.cfg.QueryRowLimit).
		Build()
	if err != nil {
		c.logger.Warn("analytics query build failed", zap.Error(err))
		c.metrics.RecordUpstreamFailure("analytics", "build")
		return empty, nil
	}

	gqlBody := graphqlRequest{Query: shopifyqlEnvelope(query)}
	var resp graphqlResponse
	rawURL := c.shopURL(creds.Shop, c.apiPath("graphql.json"))
	if _, err := c.doJSON(ctx, creds, http.MethodPost, rawURL, gqlBody, &resp); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.logger.Warn("analytics query failed", zap.String("shop", creds.Shop), zap.Error(err))
		c.metrics.RecordUpstreamFailure("analytics", "transport")
		return empty, nil
	}

	if len(resp.Errors) > 0 || len(resp.Data.ShopifyqlQuery.ParseErrors) > 0 {
		msg := ""
		if len(resp.Errors) > 0 {
			msg = resp.Errors[0].Message
		} else {
			msg = resp.Data.ShopifyqlQuery.ParseErrors[0].Message
		}
		c.logger.Warn("analytics query rejected upstream",
			zap.String("shop", creds.Shop),
			zap.String("message", msg),
		)
		c.metrics.RecordUpstreamFailure("analytics", "parse")
		return empty, nil
	}

	rows := parseAnalyticsRows(resp)
	out := make(map[string]matcher.RowMatch, len(paths))
	for _, p := range paths {
		out[p] = matcher.MatchRows(p, rows)
	}
	return out, nil
}

// shopifyqlEnvelope wraps the query text in the GraphQL operation. The
// query text itself was validated by the builder; quoting here covers the
// JSON string escape only.
func shopifyqlEnvelope(query string) string {
	escaped, _ := json.Marshal(query)
	return `{ shopifyqlQuery(query: ` + string(escaped) + `) { __typename ... on TableResponse { tableData { columns { name dataType } rowData } parseErrors { message } } } }`
}

// parseAnalyticsRows converts the tabular response into AnalyticsRows.
// Columns are located by name so upstream column reordering is harmless;
// rows with an unparsable numeric cell are skipped.
func parseAnalyticsRows(resp graphqlResponse) []models.AnalyticsRow {
	pathIdx, sessIdx, cvrIdx := -1, -1, -1
	for i, col := range resp.Data.ShopifyqlQuery.TableData.Columns {
		switch col.Name {
		case "landing_page_path":
			pathIdx = i
		case "sessions":
			sessIdx = i
		case "conversion_rate":
			cvrIdx = i
		}
	}
	if pathIdx < 0 || sessIdx < 0 {
		return nil
	}

	var rows []models.AnalyticsRow
	for _, raw := range resp.Data.ShopifyqlQuery.TableData.RowData {
		if pathIdx >= len(raw) || sessIdx >= len(raw) {
			continue
		}
		sessions, err := strconv.ParseInt(strings.TrimSpace(raw[sessIdx]), 10, 64)
		if err != nil {
			continue
		}
		row := models.AnalyticsRow{
			GroupKey: strings.ToLower(strings.TrimSpace(raw[pathIdx])),
			Sessions: sessions,
		}
		if cvrIdx >= 0 && cvrIdx < len(raw) {
			if cvr, err := strconv.ParseFloat(strings.TrimSpace(raw[cvrIdx]), 64); err == nil {
				row.ConversionRate = cvr
			}
		}
		rows = append(rows, row)
	}
	return rows
}
