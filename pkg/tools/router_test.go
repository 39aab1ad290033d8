package tools_test

import (
	"context"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papercomputeco/answerline/pkg/tools"
)

// mapResolver serves endpoints from a fixed map.
type mapResolver struct {
	endpoints map[string]tools.Endpoint
}

func (r *mapResolver) EnabledEndpoint(_ context.Context, id string) (tools.Endpoint, bool) {
	ep, ok := r.endpoints[id]
	if !ok || !ep.Enabled {
		return tools.Endpoint{}, false
	}
	return ep, true
}

// countingInvoker records concurrency while delegating to the real client.
type countingInvoker struct {
	mu      sync.Mutex
	active  int
	peak    int
	delay   time.Duration
	wrapped tools.Invoker
}

func (i *countingInvoker) Invoke(ctx context.Context, ep tools.Endpoint, query string) (string, error) {
	i.mu.Lock()
	i.active++
	if i.active > i.peak {
		i.peak = i.active
	}
	i.mu.Unlock()

	if i.delay > 0 {
		time.Sleep(i.delay)
	}

	defer func() {
		i.mu.Lock()
		i.active--
		i.mu.Unlock()
	}()
	return i.wrapped.Invoke(ctx, ep, query)
}

// hangingInvoker blocks until its context is done.
type hangingInvoker struct{}

func (hangingInvoker) Invoke(ctx context.Context, _ tools.Endpoint, _ string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

var _ = Describe("Router", func() {
	var resolver *mapResolver

	newEndpoint := func(id, name, target string) tools.Endpoint {
		return tools.Endpoint{ID: id, Name: name, Target: target, Enabled: true}
	}

	BeforeEach(func() {
		resolver = &mapResolver{endpoints: map[string]tools.Endpoint{
			"a": newEndpoint("a", "tool-a", "mock://a"),
			"b": newEndpoint("b", "tool-b", "mock://b"),
			"c": newEndpoint("c", "tool-c", "mock://c"),
		}}
	})

	It("returns empty results and warnings for an empty id list", func() {
		router := tools.NewRouter(tools.NewClient(), resolver, 3, zap.NewNop())
		results, warnings := router.Route(context.Background(), nil, "q")
		Expect(results).To(BeEmpty())
		Expect(warnings).To(BeEmpty())
	})

	It("produces one result per reachable endpoint", func() {
		router := tools.NewRouter(tools.NewClient(), resolver, 3, zap.NewNop())
		results, warnings := router.Route(context.Background(), []string{"a", "b", "c"}, "q")
		Expect(warnings).To(BeEmpty())
		Expect(results).To(HaveLen(3))

		seen := map[string]string{}
		for _, r := range results {
			seen[r.EndpointID] = r.Output
		}
		Expect(seen).To(Equal(map[string]string{
			"a": "[tool-a] q",
			"b": "[tool-b] q",
			"c": "[tool-c] q",
		}))
	})

	It("warns for unknown ids without failing the rest", func() {
		router := tools.NewRouter(tools.NewClient(), resolver, 3, zap.NewNop())
		results, warnings := router.Route(context.Background(), []string{"a", "missing"}, "q")
		Expect(results).To(HaveLen(1))
		Expect(warnings).To(ConsistOf("endpoint unavailable: missing"))
	})

	It("warns for disabled endpoints", func() {
		disabled := newEndpoint("d", "tool-d", "mock://d")
		disabled.Enabled = false
		resolver.endpoints["d"] = disabled

		router := tools.NewRouter(tools.NewClient(), resolver, 3, zap.NewNop())
		results, warnings := router.Route(context.Background(), []string{"d"}, "q")
		Expect(results).To(BeEmpty())
		Expect(warnings).To(ConsistOf("endpoint unavailable: d"))
	})

	It("degrades invocation failures into name-prefixed warnings", func() {
		resolver.endpoints["bad"] = newEndpoint("bad", "tool-bad", "mock://fail")

		router := tools.NewRouter(tools.NewClient(), resolver, 3, zap.NewNop())
		results, warnings := router.Route(context.Background(), []string{"a", "bad", "b"}, "q")
		Expect(results).To(HaveLen(2))
		Expect(warnings).To(ConsistOf("tool-bad: simulated failure"))
	})

	It("yields exactly one outcome per requested id", func() {
		resolver.endpoints["bad"] = newEndpoint("bad", "tool-bad", "mock://fail")

		router := tools.NewRouter(tools.NewClient(), resolver, 2, zap.NewNop())
		ids := []string{"a", "b", "c", "bad", "missing"}
		results, warnings := router.Route(context.Background(), ids, "q")
		Expect(len(results) + len(warnings)).To(Equal(len(ids)))
	})

	It("bounds concurrency by the worker limit", func() {
		invoker := &countingInvoker{delay: 20 * time.Millisecond, wrapped: tools.NewClient()}
		router := tools.NewRouter(invoker, resolver, 2, zap.NewNop())

		_, warnings := router.Route(context.Background(), []string{"a", "b", "c"}, "q")
		Expect(warnings).To(BeEmpty())
		Expect(invoker.peak).To(BeNumerically("<=", 2))
	})

	It("times out a hung endpoint without blocking the others", func() {
		hung := newEndpoint("hung", "tool-hung", "mock://hung")
		hung.Timeout = 30 * time.Millisecond
		resolver.endpoints["hung"] = hung

		client := tools.NewClient()
		router := tools.NewRouter(routeByID{hung: hangingInvoker{}, fallback: client}, resolver, 3, zap.NewNop())

		start := time.Now()
		results, warnings := router.Route(context.Background(), []string{"a", "hung", "b"}, "q")
		Expect(time.Since(start)).To(BeNumerically("<", time.Second))

		Expect(results).To(HaveLen(2))
		Expect(warnings).To(HaveLen(1))
		Expect(warnings[0]).To(ContainSubstring("tool-hung"))
		Expect(warnings[0]).To(ContainSubstring(context.DeadlineExceeded.Error()))
	})
})

// routeByID sends the hung endpoint to the hanging invoker and everything
// else to the fallback.
type routeByID struct {
	hung     tools.Invoker
	fallback tools.Invoker
}

func (r routeByID) Invoke(ctx context.Context, ep tools.Endpoint, query string) (string, error) {
	if ep.Name == "tool-hung" {
		return r.hung.Invoke(ctx, ep, query)
	}
	return r.fallback.Invoke(ctx, ep, query)
}

var _ = Describe("NewRouter", func() {
	It("falls back to the default worker limit for non-positive values", func() {
		resolver := &mapResolver{endpoints: map[string]tools.Endpoint{
			"a": {ID: "a", Name: "tool-a", Target: "mock://a", Enabled: true},
		}}
		router := tools.NewRouter(tools.NewClient(), resolver, 0, zap.NewNop())
		results, warnings := router.Route(context.Background(), []string{"a"}, "q")
		Expect(warnings).To(BeEmpty())
		Expect(results).To(HaveLen(1))
	})
})

var _ = Describe("simulated failure isolation", func() {
	It("never lets a failing endpoint error escape as a route error", func() {
		resolver := &mapResolver{endpoints: map[string]tools.Endpoint{
			"bad": {ID: "bad", Name: "tool-bad", Target: "mock://fail", Enabled: true},
		}}
		router := tools.NewRouter(tools.NewClient(), resolver, 1, zap.NewNop())
		results, warnings := router.Route(context.Background(), []string{"bad"}, "q")
		Expect(results).To(BeEmpty())
		Expect(warnings).To(ConsistOf("tool-bad: simulated failure"))
	})
})
