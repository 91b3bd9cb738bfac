// Package timeouts defines shared timeout constants used across Indogram
// processes.
package timeouts

import "time"

// ReadHeader limits how long the HTTP API waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long the HTTP API waits for in-flight requests
// during graceful shutdown.
const Shutdown = 5 * time.Second

// HealthProbe caps one gRPC health check attempt.
const HealthProbe = time.Second

// TrendingCacheTTL is how long an aggregated trending-tag list is reused.
const TrendingCacheTTL = time.Minute

// TokenLifetime is the default validity of an issued bearer token.
const TokenLifetime = 7 * 24 * time.Hour

// TelemetryFlush limits how long a process waits for pending spans on exit.
const TelemetryFlush = 5 * time.Second
