package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Common resolver errors.
var (
	ErrNoServers       = errors.New("no eureka servers configured")
	ErrEmptyResolution = errors.New("dns resolution produced no hosts")
	ErrMissingRegion   = errors.New("region is required for dns resolution")
	ErrMissingHost     = errors.New("discovery host is required")
)

// ClusterResolver produces the next candidate server base URL for a
// request attempt. retryAttempt is 0 for the first try; a positive value
// rotates the candidate ring so the retry lands on a different server.
type ClusterResolver interface {
	Resolve(ctx context.Context, retryAttempt int) (string, error)
}

// DefaultZone is the implicit zone used when no region→zone mapping is
// configured.
const DefaultZone = "default"

const defaultServicePath = "/eureka/v2/apps/"

// baseURL assembles a server base URL from its parts.
func baseURL(secure bool, host string, port int, servicePath string) string {
	scheme := "http"
	if secure {
		scheme = "https"
	}
	if servicePath == "" {
		servicePath = defaultServicePath
	}
	if !strings.HasPrefix(servicePath, "/") {
		servicePath = "/" + servicePath
	}
	return fmt.Sprintf("%s://%s:%d%s", scheme, host, port, servicePath)
}
