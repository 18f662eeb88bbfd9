package api

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tpcpower/pkg/contracts/domain"
)

func TestQueryRequest_Criteria(t *testing.T) {
	defaults := domain.FilterCriteria{
		DateFrom: domain.MustParseDate("2024-01-01"),
		DateTo:   domain.MustParseDate("2024-01-31"),
		TimeFrom: domain.StartOfDay,
		TimeTo:   domain.EndOfDay,
		Types:    []string{"solar", "wind"},
	}

	tests := []struct {
		name      string
		req       QueryRequest
		wantTypes []string
		wantNames []string
		wantSite  bool
	}{
		{
			name:      "defaults when types are absent",
			req:       QueryRequest{},
			wantTypes: []string{"solar", "wind"},
		},
		{
			name:      "explicit empty types are kept",
			req:       QueryRequest{Types: []string{}},
			wantTypes: []string{},
		},
		{
			name:      "repeated labels collapse to one type",
			req:       QueryRequest{Types: []string{"solar", "solar"}, Names: []string{"A", "A"}},
			wantTypes: []string{"solar"},
			wantNames: []string{"A"},
			wantSite:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := tt.req.Criteria(defaults)
			require.NoError(t, err)
			assert.Equal(t, tt.wantTypes, c.Types)
			assert.Equal(t, tt.wantNames, c.Names)
			assert.Equal(t, tt.wantSite, c.SiteFilterActive())
		})
	}
}

func TestQueryRequest_CriteriaRejectsMalformedDate(t *testing.T) {
	_, err := QueryRequest{DateFrom: "2024-13-01"}.Criteria(domain.FilterCriteria{})
	assert.ErrorContains(t, err, "date_from")
}
