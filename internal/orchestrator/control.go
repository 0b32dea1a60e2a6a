package orchestrator

import "sync"

// Control carries the pause and cancel signals for one batch run. Pausing
// takes effect only at chunk boundaries; the run goroutine blocks in
// WaitWhilePaused until resumed or cancelled.
type Control struct {
	mu        sync.Mutex
	cond      *sync.Cond
	paused    bool
	cancelled bool
}

func newControl() *Control {
	c := &Control{}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// Pause requests that the run stop before starting the next chunk.
func (c *Control) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paused = true
}

// Resume clears the pause flag and wakes the run goroutine.
func (c *Control) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paused = false
	c.cond.Broadcast()
}

// Cancel requests that the run stop before starting the next chunk. A paused
// run is woken so it can observe the cancellation.
func (c *Control) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelled = true
	c.cond.Broadcast()
}

// Cancelled reports whether Cancel has been called.
func (c *Control) Cancelled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancelled
}

// Paused reports whether the run is currently pause-requested.
func (c *Control) Paused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paused
}

// WaitWhilePaused blocks while the run is paused. It returns immediately if
// the run has been cancelled.
func (c *Control) WaitWhilePaused() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.paused && !c.cancelled {
		c.cond.Wait()
	}
}
