// Package api contains API contract definitions for the TPC power information dashboard.
// Version v1 represents the current stable API version.
package api

import (
	"fmt"

	"tpcpower/pkg/contracts/domain"
)

// QueryRequest carries the user's filter selection. Omitted fields fall back
// to the dataset defaults: its full date span, the whole day and every type.
// An explicitly empty types list is kept and rejected downstream.
type QueryRequest struct {
	DateFrom string   `json:"date_from,omitempty" query:"date_from" validate:"omitempty,datetime=2006-01-02"`
	DateTo   string   `json:"date_to,omitempty" query:"date_to" validate:"omitempty,datetime=2006-01-02"`
	TimeFrom string   `json:"time_from,omitempty" query:"time_from" validate:"omitempty,datetime=15:04"`
	TimeTo   string   `json:"time_to,omitempty" query:"time_to" validate:"omitempty,datetime=15:04"`
	Types    []string `json:"types" query:"type" validate:"omitempty,dive,required,max=100"`
	Names    []string `json:"names,omitempty" query:"name" validate:"omitempty,dive,required,max=200"`
	Format   string   `json:"format,omitempty" query:"format" validate:"omitempty,oneof=csv parquet xlsx excel delimited-text columnar-binary"`
	Limit    int      `json:"limit,omitempty" query:"limit" validate:"omitempty,min=1,max=100000"`
}

// Criteria resolves the request against defaults. Formats are assumed to
// have been validated already; a malformed value still returns an error.
func (q QueryRequest) Criteria(defaults domain.FilterCriteria) (domain.FilterCriteria, error) {
	c := defaults
	var err error

	if q.DateFrom != "" {
		if c.DateFrom, err = domain.ParseDate(q.DateFrom); err != nil {
			return c, fmt.Errorf("date_from: %w", err)
		}
	}
	if q.DateTo != "" {
		if c.DateTo, err = domain.ParseDate(q.DateTo); err != nil {
			return c, fmt.Errorf("date_to: %w", err)
		}
	}
	if q.TimeFrom != "" {
		if c.TimeFrom, err = domain.ParseTimeOfDay(q.TimeFrom); err != nil {
			return c, fmt.Errorf("time_from: %w", err)
		}
	}
	if q.TimeTo != "" {
		if c.TimeTo, err = domain.ParseTimeOfDay(q.TimeTo); err != nil {
			return c, fmt.Errorf("time_to: %w", err)
		}
	}
	if q.Types != nil {
		c.Types = domain.Distinct(q.Types)
	}
	c.Names = domain.Distinct(q.Names)
	return c, nil
}

// ExportRequest identifies one download of a query result
type ExportRequest struct {
	QueryRequest
	Dataset string `json:"dataset" param:"dataset" validate:"required,oneof=filtered_raw aggregated_by_time"`
}

// HealthCheckRequest represents a health check request
type HealthCheckRequest struct {
	Verbose bool `json:"verbose" query:"verbose"`
}
