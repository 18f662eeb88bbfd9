// Package http implements the HTTP handlers of the TPC power information
// dashboard. Handlers stay thin: they bind and validate the request, call
// the dashboard service and render the result.
//
// # Routes
//
//	GET  /                         dashboard page (filter form, chart, table, downloads)
//	GET  /api/dataset              dataset summary
//	GET  /api/dataset/types        distinct types
//	GET  /api/dataset/types/{type}/names
//	POST /api/dataset/reload       re-read the dataset file
//	POST /api/query                one filter and aggregate cycle as JSON
//	GET  /api/export/{file}        download, file is <dataset>.<ext>
//	GET  /api/health[/ready|/live] health checks
//	GET  /metrics                  Prometheus exposition
//
// # Error Handling
//
// Errors are rendered as RFC 7807 problem details by the shared error
// handler:
//
//	{
//	    "type": "/errors/query/invalid-criteria",
//	    "title": "Validation Failed",
//	    "status": 400,
//	    "detail": "at least one type must be selected",
//	    "instance": "/api/query"
//	}
//
// The dashboard page renders rejected selections inline instead, with
// status 400, so the form stays usable.
//
// # Testing
//
// JSON handlers are tested with httptest against a mocked
// DashboardServiceInterface; the page is rendered against a real service
// backed by an in-memory table.
package http
