// Package transport is the resilient request pipeline between the client
// and the Eureka servers.
//
// Every request runs three stages: a cluster resolver picks the base URL
// for the current attempt, a pluggable middleware transforms the outgoing
// request, and the HTTP call executes. Transport failures and 5xx
// responses retry with linear backoff, re-resolving the URL each time so
// successive attempts land on different servers. Registration,
// deregistration, heartbeat renewal, and registry fetches all ride this
// pipeline; they differ only in method, path, and body.
package transport
