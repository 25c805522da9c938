/*
Package monitoring provides Prometheus metrics for the orchestration host.

# Overview

Each Metrics value owns a private registry, so nothing is registered with the
global default registerer and tests can create as many as they need.

# Metrics

- ci_loader_invocations_total{loader,status}, ci_loader_items{loader}, ci_loader_duration_seconds{loader}
- ci_startup_duration_seconds, ci_boot_failures_total, ci_namespace_items
- ci_item_hydration_failures_total, ci_folder_child_errors_total, ci_name_collisions_total{policy}
- ci_buildlog_sinks_open, ci_buildlog_finalize_errors_total{method}, ci_buildlog_bytes_total{method}
- ci_http_requests_total, ci_http_request_duration_seconds, ci_uptime_seconds

# Usage

	metrics := monitoring.NewMetrics()
	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	timer := monitoring.NewTimer(metrics, "directory")
	items, err := loader.Load(ctx, root)
	timer.Stop(monitoring.StatusSuccess, len(items))
*/
package monitoring
