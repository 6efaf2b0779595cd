// Package main is the entry point for the AgentFS server.
//
// The server exposes a virtual filesystem, key-value store, content search,
// and audit trail as agent tools over HTTP, with every call routed through
// the execution policy (validation, retry, timeout, audit).
//
// Configuration:
//   - Environment variables (12-factor)
//   - CLI flags (override env vars)
//   - Defaults for development
//
// Usage:
//
//	# In-memory store (default)
//	./server -port 8700
//
//	# Remote document store
//	./server -store remote -store-addr http://localhost:8900
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
