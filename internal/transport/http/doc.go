// Package http exposes the stored startup table over a read-only JSON API.
//
// Handlers stay thin: they parse query parameters, call the store or the
// aggregation functions, and render JSON with go-chi/render. Failures are
// answered as RFC 7807 problem details through errors.ErrorHandler.
//
// Routes:
//
//	GET /healthz
//	GET /metrics
//	GET /api/v1/startups?sector=
//	GET /api/v1/sectors/valuation
//	GET /api/v1/sectors/growth?as_of=YYYY-MM-DD
//	GET /api/v1/sectors/challenged?as_of=YYYY-MM-DD
//	GET /api/v1/summary?as_of=YYYY-MM-DD
//	GET /api/v1/report
//	GET /api/v1/report/chart
package http
