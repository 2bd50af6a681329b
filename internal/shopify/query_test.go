package shopify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryBuilder_Build(t *testing.T) {
	q, err := NewQuery("sessions").
		Show("sessions", "conversion_rate").
		GroupBy("landing_page_path").
		Between("2024-01-01", "2024-01-31").
		Limit(1000).
		Build()

	require.NoError(t, err)
	assert.Equal(t,
		"FROM sessions SHOW sessions, conversion_rate GROUP BY landing_page_path SINCE 2024-01-01 UNTIL 2024-01-31 LIMIT 1000",
		q,
	)
}

func TestQueryBuilder_MinimalQuery(t *testing.T) {
	q, err := NewQuery("sales").Show("total_sales").Build()
	require.NoError(t, err)
	assert.Equal(t, "FROM sales SHOW total_sales", q)
}

func TestQueryBuilder_RejectsBadInput(t *testing.T) {
	tests := []struct {
		name  string
		build func() (string, error)
	}{
		{"injection in dataset", func() (string, error) {
			return NewQuery("sessions SHOW x").Show("sessions").Build()
		}},
		{"injection in field", func() (string, error) {
			return NewQuery("sessions").Show("sessions, evil").Build()
		}},
		{"bad group by", func() (string, error) {
			return NewQuery("sessions").Show("sessions").GroupBy("path; DROP").Build()
		}},
		{"bad date", func() (string, error) {
			return NewQuery("sessions").Show("sessions").Between("01/01/2024", "2024-01-31").Build()
		}},
		{"half-open range", func() (string, error) {
			return NewQuery("sessions").Show("sessions").Between("2024-01-01", "").Build()
		}},
		{"no show fields", func() (string, error) {
			return NewQuery("sessions").Build()
		}},
		{"uppercase identifier", func() (string, error) {
			return NewQuery("Sessions").Show("sessions").Build()
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.build()
			assert.Error(t, err)
		})
	}
}
