package summary

import (
	"context"
	stderrors "errors"
	"sync"
)

// ErrSuperseded is returned by a run whose key was claimed by a newer run
// before it finished. Its result is discarded.
var ErrSuperseded = stderrors.New("summary superseded by a newer request")

// Coordinator keeps at most one live summary run per key. The zero value is
// ready to use.
type Coordinator struct {
	mu       sync.Mutex
	seq      uint64
	inflight map[string]*run
}

type run struct {
	id     uint64
	cancel context.CancelFunc
}

// NewCoordinator returns an empty Coordinator.
func NewCoordinator() *Coordinator {
	return &Coordinator{inflight: make(map[string]*run)}
}

// Run executes fn for key. A run already in flight for key has its context
// canceled; when it returns, its result is dropped in favor of ErrSuperseded.
func (c *Coordinator) Run(ctx context.Context, key string, fn func(context.Context) (*Response, error)) (*Response, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.mu.Lock()
	if c.inflight == nil {
		c.inflight = make(map[string]*run)
	}
	if prev, ok := c.inflight[key]; ok {
		prev.cancel()
	}
	c.seq++
	id := c.seq
	c.inflight[key] = &run{id: id, cancel: cancel}
	c.mu.Unlock()

	resp, err := fn(runCtx)

	c.mu.Lock()
	current, ok := c.inflight[key]
	superseded := !ok || current.id != id
	if !superseded {
		delete(c.inflight, key)
	}
	c.mu.Unlock()

	if superseded {
		return nil, ErrSuperseded
	}
	return resp, err
}

// InFlight reports whether a run for key has not finished yet.
func (c *Coordinator) InFlight(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.inflight[key]
	return ok
}
