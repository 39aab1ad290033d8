// Package tools invokes external tool endpoints and fans a query out to
// several of them concurrently, degrading per-endpoint failures into
// warnings instead of failing the request.
package tools

import "time"

// Endpoint is one invocable external capability.
type Endpoint struct {
	ID         string
	Name       string
	Target     string // invocation target, e.g. "mock://tool-a" or "https://..."
	AuthType   string // "none" or "bearer"
	AuthSecret string
	Enabled    bool
	Timeout    time.Duration // per-call deadline
}

// InvocationResult is the successful outcome of one endpoint invocation.
// Failures never produce a result; they produce a warning string on the
// router's warning list instead.
type InvocationResult struct {
	EndpointID   string `json:"endpoint_id"`
	EndpointName string `json:"endpoint_name"`
	Output       string `json:"output"`
}
