// Package httpserver provides the HTTP server for shardmap.
//
// It serves the key API from package handler, the health and readiness
// probes, and the Prometheus scrape endpoint. Requests pass through a
// middleware chain: Recover, RequestID, RateLimit, Audit and Auth.
package httpserver
