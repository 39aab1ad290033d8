package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// failureTarget is the reserved target prefix that deterministically
// errors. Used for failure-injection in tests and operator smoke checks.
const failureTarget = "mock://fail"

// ErrSimulatedFailure is returned for endpoints whose target carries the
// reserved failure prefix.
var ErrSimulatedFailure = errors.New("simulated failure")

// Client invokes a single tool endpoint. Single attempt, no retry;
// retries and timeouts are the router's concern.
type Client struct{}

// NewClient returns a tool client.
func NewClient() *Client {
	return &Client{}
}

// Invoke calls one endpoint with the query and returns its textual
// output. Reachable targets return a deterministic derivation of the
// query; the reserved failure target always errors.
func (c *Client) Invoke(ctx context.Context, ep Endpoint, query string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	switch {
	case strings.HasPrefix(ep.Target, failureTarget):
		return "", ErrSimulatedFailure
	case strings.HasPrefix(ep.Target, "mock://"),
		strings.HasPrefix(ep.Target, "http://"),
		strings.HasPrefix(ep.Target, "https://"):
		return fmt.Sprintf("[%s] %s", ep.Name, query), nil
	default:
		return "", fmt.Errorf("unsupported endpoint target %q", ep.Target)
	}
}
