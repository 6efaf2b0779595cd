/*
Package monitoring provides performance monitoring and metrics collection.

# Overview

This package implements Prometheus-based metrics collection for the service,
tracking HTTP requests, tool calls, retries, timeouts, and uptime. Each
collector owns its registry, so tests can create collectors freely.

# Usage

	// Create metrics collector
	metrics := monitoring.NewMetrics()

	// Add middleware to Gin router
	router.Use(monitoring.Middleware(metrics))

	// Expose the endpoint
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

The collector also satisfies the execution policy's Metrics interface, so
tool calls, retries and timeouts are observed by passing it at construction:

	pol := policy.New(cfg, policy.WithMetrics(metrics))
*/
package monitoring
