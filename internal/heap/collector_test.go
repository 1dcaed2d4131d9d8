package heap

import (
	"sync"
	"testing"
	"time"
)

func TestMarkSweepFindsRootedArray(t *testing.T) {
	_ = WithHeap(func(h *Heap) error {
		m, err := NewMutator(h)
		if err != nil {
			t.Fatalf("NewMutator: %v", err)
		}
		defer m.Drop()

		return m.WithStackRoots(1, func(batch *StackRootBatch) error {
			root := batch.At(0)
			if err := NewArrayFromFn(m, root, 2, func(elems []ObjectRef) {
				elems[0] = h.PreAlloc().True()
				elems[1] = h.PreAlloc().False()
			}); err != nil {
				t.Fatalf("NewArrayFromFn: %v", err)
			}

			strategy := &MarkSweep{}
			strategy.Collect(h)

			// At least: undef, true, false, empty string, the array, and
			// its two elements (true/false are already counted once).
			if strategy.LastReachable() < 5 {
				t.Fatalf("LastReachable() = %d, want at least 5", strategy.LastReachable())
			}
			return nil
		})
	})
}

func TestMarkSweepIgnoresDanglingRoots(t *testing.T) {
	_ = WithHeap(func(h *Heap) error {
		m, err := NewMutator(h)
		if err != nil {
			t.Fatalf("NewMutator: %v", err)
		}
		defer m.Drop()

		return m.WithStackRoots(1, func(batch *StackRootBatch) error {
			batch.At(0).Set(Dangling())
			strategy := &MarkSweep{}
			strategy.Collect(h)
			if strategy.LastReachable() == 0 {
				t.Fatal("the four pre-allocated singletons should always be reachable")
			}
			return nil
		})
	})
}

func TestRequestCollectionReleasesParkedMutators(t *testing.T) {
	_ = WithHeap(func(h *Heap) error {
		m, err := NewMutator(h)
		if err != nil {
			t.Fatalf("NewMutator: %v", err)
		}
		defer m.Drop()

		collected := make(chan struct{})
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Only a safe point reached after the request is published
			// parks, so the mutator keeps polling, as a running mutator
			// would, until the cycle has finished.
			for {
				select {
				case <-collected:
					return
				default:
					m.SafePoint()
				}
			}
		}()

		h.RequestCollection(&MarkSweep{})
		close(collected)

		done := make(chan struct{})
		go func() {
			wg.Wait()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("mutator was not released after RequestCollection completed")
		}
		return nil
	})
}

func TestSafePointWithReleasesAfterCallback(t *testing.T) {
	_ = WithHeap(func(h *Heap) error {
		m, err := NewMutator(h)
		if err != nil {
			t.Fatalf("NewMutator: %v", err)
		}
		defer m.Drop()

		ran := false
		done := make(chan struct{})
		go func() {
			m.SafePointWith(func() { ran = true })
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("SafePointWith did not return")
		}

		if !ran {
			t.Fatal("SafePointWith did not invoke its callback")
		}
		return nil
	})
}
