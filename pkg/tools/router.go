package tools

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

const defaultMaxParallel = 3

// Invoker is the single-endpoint contract the router fans out over.
type Invoker interface {
	Invoke(ctx context.Context, ep Endpoint, query string) (string, error)
}

// EndpointResolver looks up enabled endpoints by id.
type EndpointResolver interface {
	// EnabledEndpoint returns the endpoint with the given id, or false
	// when the id is unknown or the endpoint is disabled.
	EnabledEndpoint(ctx context.Context, id string) (Endpoint, bool)
}

// Router fans a query out to the requested endpoints concurrently,
// bounded by a worker limit and each endpoint's own timeout.
type Router struct {
	client      Invoker
	resolver    EndpointResolver
	maxParallel int
	logger      *zap.Logger
}

// NewRouter creates a router. maxParallel <= 0 falls back to the default.
func NewRouter(client Invoker, resolver EndpointResolver, maxParallel int, logger *zap.Logger) *Router {
	if maxParallel <= 0 {
		maxParallel = defaultMaxParallel
	}
	return &Router{
		client:      client,
		resolver:    resolver,
		maxParallel: maxParallel,
		logger:      logger,
	}
}

// Route invokes every resolvable endpoint in ids concurrently and
// collects results plus warnings. Every requested id produces exactly one
// outcome: a result, or a warning naming the id or endpoint. Route never
// returns an error; all failure is degraded into warnings.
//
// Result order follows completion order, not request order.
func (r *Router) Route(ctx context.Context, ids []string, query string) ([]InvocationResult, []string) {
	if len(ids) == 0 {
		return []InvocationResult{}, []string{}
	}

	warnings := make([]string, 0)
	resolved := make([]Endpoint, 0, len(ids))
	for _, id := range ids {
		ep, ok := r.resolver.EnabledEndpoint(ctx, id)
		if !ok {
			warnings = append(warnings, fmt.Sprintf("endpoint unavailable: %s", id))
			continue
		}
		resolved = append(resolved, ep)
	}
	if len(resolved) == 0 {
		return []InvocationResult{}, warnings
	}

	workers := min(r.maxParallel, len(resolved))

	jobs := make(chan Endpoint)
	var mu sync.Mutex
	results := make([]InvocationResult, 0, len(resolved))

	var wg sync.WaitGroup
	wg.Add(workers)
	for range workers {
		go func() {
			defer wg.Done()
			for ep := range jobs {
				output, err := r.invokeBounded(ctx, ep, query)
				mu.Lock()
				if err != nil {
					warnings = append(warnings, fmt.Sprintf("%s: %v", ep.Name, err))
				} else {
					results = append(results, InvocationResult{
						EndpointID:   ep.ID,
						EndpointName: ep.Name,
						Output:       output,
					})
				}
				mu.Unlock()
			}
		}()
	}

	for _, ep := range resolved {
		jobs <- ep
	}
	close(jobs)
	wg.Wait()

	r.logger.Debug("tool fan-out complete",
		zap.Int("requested", len(ids)),
		zap.Int("results", len(results)),
		zap.Int("warnings", len(warnings)),
	)

	return results, warnings
}

// invokeBounded applies the endpoint's own timeout to a single call. The
// invocation runs in its own goroutine so a hung call cannot outlive its
// deadline from the router's point of view.
func (r *Router) invokeBounded(ctx context.Context, ep Endpoint, query string) (string, error) {
	callCtx := ctx
	if ep.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, ep.Timeout)
		defer cancel()
	}

	type outcome struct {
		output string
		err    error
	}
	done := make(chan outcome, 1)

	go func() {
		output, err := r.client.Invoke(callCtx, ep, query)
		done <- outcome{output: output, err: err}
	}()

	select {
	case o := <-done:
		return o.output, o.err
	case <-callCtx.Done():
		return "", callCtx.Err()
	}
}
