// Package http provides the HTTP handlers and routes of the item API.
//
// Endpoints:
//   - GET /health: lifecycle state, 503 unless ready
//   - GET /metrics: Prometheus exposition
//   - GET /api/items: every item with full name, display name, URL and kind
//   - GET /api/metrics: JSON counter snapshot
//   - POST /api/items: creates a job or folder
//   - GET /job/*path: resolves job/<a>/job/<b>/ to one item
//   - POST /api/build/*item: runs a build and records its log
//
// Until the host is ready, every route except /health and /metrics answers
// 503 with the boot failure message when there is one.
//
// Example Usage:
//
//	router := gin.New()
//	http.Register(router, inst)
package http
