// Package main is the entry point of the CI orchestration host.
//
// On start the server validates the home directory, runs every registered
// item loader and only then serves the item API. A home that fails
// validation is reported and the process exits with status 1 without
// serving anything.
//
// Configuration:
//   - Environment variables (see internal/config)
//   - CLI flags (override env vars)
//
// Usage:
//
//	# Serve ./ci-home on :8080
//	./server
//
//	# Another home, development logging
//	./server --home /srv/ci -p 9090 --dev
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
//   - SIGHUP: Reload items from disk
package main
