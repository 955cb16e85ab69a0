package tools

import (
	"context"
	"sync"
)

// Collector accumulates the source citations recorded by tool executions
// during a single query. Each query gets its own Collector, carried through
// the request context, so concurrent sessions never observe each other's
// citations.
//
// Thread-safe: a query may execute several tools and they may run
// concurrently.
type Collector struct {
	mu      sync.Mutex
	sources []Source
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Add records sources. Safe to call on a nil collector, so tools can run
// outside a query context (direct invocation, warmup) without recording.
func (c *Collector) Add(sources ...Source) {
	if c == nil || len(sources) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sources = append(c.sources, sources...)
}

// Take returns everything collected so far and empties the collector in one
// atomic step. A second Take returns nil.
func (c *Collector) Take() []Source {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	taken := c.sources
	c.sources = nil
	return taken
}

type collectorKey struct{}

// WithCollector returns a context carrying the collector. Tools executed
// under the returned context record their citations into it.
func WithCollector(ctx context.Context, c *Collector) context.Context {
	return context.WithValue(ctx, collectorKey{}, c)
}

// CollectorFrom extracts the query's collector from the context, or nil when
// the tool runs outside a query.
func CollectorFrom(ctx context.Context) *Collector {
	c, _ := ctx.Value(collectorKey{}).(*Collector)
	return c
}
