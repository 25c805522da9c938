// Package server assembles the orchestration host: configuration, logging,
// metrics, the loader registry, the host instance and the HTTP router.
//
// Middleware order: Recovery, RequestID, AccessLog, metrics, CORS and, when
// enabled, the per-IP rate limiter.
//
// Example Usage:
//
//	srv, err := server.NewServer(cfg)
//	if err != nil { ... }
//	if err := srv.Boot(ctx); err != nil { ... } // boot failures are terminal
//	go srv.Run()
//	defer srv.Shutdown(ctx)
package server
