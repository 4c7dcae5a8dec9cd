// Package resilience provides retry primitives for the eureka client.
//
// Retries are attempt-aware: the retried function receives the current
// attempt number so callers can vary behavior across attempts (the
// transport uses this to resolve a different server per attempt).
// Backoff grows linearly and waits are context-aware, so a cancelled
// client never leaves a sleeping retry behind.
package resilience
