// Package middleware provides the HTTP middleware stack of the orchestration host.
//
// Middleware stack includes:
//   - RequestID: tags each request with a prefixed ULID, echoed in X-Request-ID
//   - AccessLog: one debug log line per request
//   - CORS: cross-origin reads of the item API
//   - RateLimit: per-IP token bucket with idle client eviction
//   - GlobalRateLimit: a single bucket shared by every client
package middleware
