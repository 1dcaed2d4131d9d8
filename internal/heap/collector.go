package heap

import "sync"

// safePointCoordinator implements safe-point ordering: when a
// collection is requested, every mutator is expected to reach a safe
// point before the collector proceeds, and every mutator already
// parked inside SafePointWith counts as having reached one.
//
// This is a request-flag/park/release coordinator built on a plain
// sync.Cond: the collector publishes a request and waits for every
// live mutator to check in, then releases them all together once its
// strategy has finished running.
type safePointCoordinator struct {
	mu         sync.Mutex
	cond       *sync.Cond
	requested  bool
	parked     int
	generation uint64
}

func (c *safePointCoordinator) init() {
	c.cond = sync.NewCond(&c.mu)
}

// requestAndWait publishes the request flag and blocks the requesting
// goroutine (the collector) until liveCount() mutators have parked.
func (c *safePointCoordinator) requestAndWait(liveCount func() int) {
	c.mu.Lock()
	c.requested = true
	want := liveCount()
	for c.parked < want {
		c.cond.Wait()
	}
	c.mu.Unlock()
}

// release ends the current cycle: clears the request flag, resets the
// parked count, and wakes every mutator waiting to resume.
func (c *safePointCoordinator) release() {
	c.mu.Lock()
	c.requested = false
	c.parked = 0
	c.generation++
	c.cond.Broadcast()
	c.mu.Unlock()
}

// enter is called by Mutator.SafePoint: if a cycle has been requested,
// park until release() advances the generation.
func (c *safePointCoordinator) enter() {
	c.mu.Lock()
	if !c.requested {
		c.mu.Unlock()
		return
	}
	c.park()
}

// park marks the calling mutator as parked and waits for the next
// release(). Must be called with c.mu held; releases it before returning.
func (c *safePointCoordinator) park() {
	c.parked++
	gen := c.generation
	c.cond.Broadcast()
	for c.generation == gen {
		c.cond.Wait()
	}
	c.mu.Unlock()
}

// enterUnconditional is used by SafePointWith: the mutator parks
// immediately, regardless of whether a cycle has been requested yet,
// since it is considered parked for the whole duration of the foreign
// call.
func (c *safePointCoordinator) enterUnconditional() uint64 {
	c.mu.Lock()
	c.parked++
	gen := c.generation
	c.cond.Broadcast()
	c.mu.Unlock()
	return gen
}

// waitForGenerationPast ends a SafePointWith park. If no cycle was
// requested while the mutator was parked, it withdraws the park and
// returns at once; otherwise it blocks until release() advances the
// generation past gen.
func (c *safePointCoordinator) waitForGenerationPast(gen uint64) {
	c.mu.Lock()
	if c.generation == gen && !c.requested {
		c.parked--
		c.mu.Unlock()
		return
	}
	for c.generation == gen {
		c.cond.Wait()
	}
	c.mu.Unlock()
}

// CollectionStrategy performs one collection cycle over a Heap that
// has already brought every mutator to a safe point. This package
// intentionally does not fix a single moving or tracing algorithm;
// CollectionStrategy is the pluggable seam a host plugs one into.
// MarkSweep below is the one concrete implementation this package
// ships; it traces reachability from every root but never moves or
// reclaims objects, leaving block reclamation to whatever moving
// collector a host supplies.
type CollectionStrategy interface {
	Name() string
	Collect(h *Heap)
}

// MarkSweep is the default, non-moving CollectionStrategy. It walks
// every root-reachable object and records the reachable set in Stats
// for observability; it intentionally never frees memory, leaving
// block reclamation to a future moving collector a host may plug in
// via CollectionStrategy.
type MarkSweep struct {
	lastReachable int
}

func (m *MarkSweep) Name() string { return "mark-sweep (non-moving, non-reclaiming)" }

func (m *MarkSweep) Collect(h *Heap) {
	seen := make(map[ObjectRef]struct{})

	var mark func(ObjectRef)
	mark = func(ref ObjectRef) {
		if ref.IsDangling() {
			return
		}
		if _, ok := seen[ref]; ok {
			return
		}
		seen[ref] = struct{}{}

		switch ref.Kind() {
		case KindArray:
			for _, elem := range ViewArray(ref) {
				mark(elem)
			}
		case KindSlot:
			mark(ViewSlot(ref))
		}
	}

	mark(h.preAlloc.Undef())
	mark(h.preAlloc.BooleanTrue())
	mark(h.preAlloc.BooleanFalse())
	mark(h.preAlloc.EmptyString())

	h.mu.Lock()
	for ref := range h.pinCounts {
		mark(ref)
	}
	for mut := range h.mutators {
		mut.forEachRoot(mark)
	}
	h.mu.Unlock()

	m.lastReachable = len(seen)
}

// LastReachable reports the size of the reachable set found by the
// most recent Collect call, for tests and diagnostics.
func (m *MarkSweep) LastReachable() int { return m.lastReachable }
