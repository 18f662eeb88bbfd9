// Package services implements the business logic between the HTTP and
// WebSocket transports and the dataset.
//
// DashboardService resolves a user's selection against the loaded dataset,
// runs the filter and aggregate pipeline and encodes downloads:
//
//	svc := services.NewDashboardService(cache, pipeline, exp, services.DashboardOptions{MaxRows: 500}, logger)
//	resp, err := svc.Query(ctx, api.QueryRequest{Types: []string{"solar"}})
//
// Errors are returned as *errors.AppError or *errors.APIError values that the
// transport's ErrorHandler renders as RFC 7807 problems: invalid criteria are
// VALIDATION errors, an unreadable dataset is a STORAGE or PARSING error.
//
// HealthService backs the health, readiness and version endpoints.
package services
