// Package retry runs fetch operations in a bounded loop with backoff.
// Transient failures (transport, rate limit, 5xx) are retried up to
// MaxAttempts; everything else returns immediately.
package retry
