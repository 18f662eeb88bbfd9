package api

import (
	"time"

	"tpcpower/pkg/contracts/domain"
)

// DatasetSummary describes the loaded dataset
type DatasetSummary struct {
	Path     string           `json:"path"`
	Rows     int              `json:"rows"`
	DateFrom *domain.Date     `json:"date_from,omitempty"`
	DateTo   *domain.Date     `json:"date_to,omitempty"`
	Types    []string         `json:"types"`
	Columns  []string         `json:"columns"`
	Stats    domain.LoadStats `json:"stats"`
	Source   domain.Source    `json:"source"`
	LoadedAt time.Time        `json:"loaded_at"`
}

// NamesResponse lists the sites recorded for one type
type NamesResponse struct {
	Type  string   `json:"type"`
	Names []string `json:"names"`
}

// DownloadLink points at one export of the current query
type DownloadLink struct {
	Dataset  string `json:"dataset"`
	Format   string `json:"format"`
	FileName string `json:"file_name"`
	URL      string `json:"url"`
}

// QueryResponse is the result of one filter and aggregate cycle. Rows is
// capped; TotalRows is the size of the full filtered set.
type QueryResponse struct {
	Criteria  domain.FilterCriteria   `json:"criteria"`
	TotalRows int                     `json:"total_rows"`
	Truncated bool                    `json:"truncated"`
	Columns   []string                `json:"columns"`
	Rows      []domain.Reading        `json:"rows"`
	Series    domain.AggregatedSeries `json:"series"`
	Downloads []DownloadLink          `json:"downloads,omitempty"`
}

// ReloadResponse reports the outcome of an explicit dataset reload
type ReloadResponse struct {
	Reloaded bool           `json:"reloaded"`
	Dataset  DatasetSummary `json:"dataset"`
	Duration string         `json:"duration"`
}
