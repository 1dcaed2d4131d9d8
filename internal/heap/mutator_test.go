package heap

import "testing"

func TestAllocateAdvancesAcrossBlockBoundary(t *testing.T) {
	_ = WithHeap(func(h *Heap) error {
		m, err := NewMutator(h)
		if err != nil {
			t.Fatalf("NewMutator: %v", err)
		}
		defer m.Drop()

		before := h.Stats().RetiredBlocks
		for i := 0; i < 2000; i++ {
			if _, err := m.Allocate(64); err != nil {
				t.Fatalf("Allocate #%d: %v", i, err)
			}
		}
		after := h.Stats().RetiredBlocks

		if after <= before {
			t.Fatalf("RetiredBlocks did not grow across many allocations: before=%d after=%d", before, after)
		}
		return nil
	})
}

func TestAllocateLargeObjectBypassesBumpBlock(t *testing.T) {
	_ = WithHeap(func(h *Heap) error {
		m, err := NewMutator(h)
		if err != nil {
			t.Fatalf("NewMutator: %v", err)
		}
		defer m.Drop()

		before := h.Stats().RetiredBlocks
		if _, err := m.Allocate(largeObjectThreshold + 1); err != nil {
			t.Fatalf("Allocate(large): %v", err)
		}
		after := h.Stats().RetiredBlocks
		if after != before+1 {
			t.Fatalf("RetiredBlocks = %d after one large allocation, want %d", after, before+1)
		}
		return nil
	})
}

func TestAllocateAfterDropPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("Allocate after Drop should panic")
		}
	}()
	_ = WithHeap(func(h *Heap) error {
		m, err := NewMutator(h)
		if err != nil {
			t.Fatalf("NewMutator: %v", err)
		}
		m.Drop()
		_, _ = m.Allocate(8)
		return nil
	})
}

func TestDropTwicePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("second Drop should panic")
		}
	}()
	_ = WithHeap(func(h *Heap) error {
		m, err := NewMutator(h)
		if err != nil {
			t.Fatalf("NewMutator: %v", err)
		}
		m.Drop()
		m.Drop()
		return nil
	})
}

func TestStackRootBatchIsLIFO(t *testing.T) {
	_ = WithHeap(func(h *Heap) error {
		m, err := NewMutator(h)
		if err != nil {
			t.Fatalf("NewMutator: %v", err)
		}
		defer m.Drop()

		return m.WithStackRoots(1, func(outer *StackRootBatch) error {
			return m.WithStackRoots(1, func(inner *StackRootBatch) error {
				if len(m.rootBatches) != 2 {
					t.Fatalf("expected 2 open batches, got %d", len(m.rootBatches))
				}
				return nil
			})
		})
	})
}

func TestPopRootBatchOutOfOrderPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("popping a non-topmost batch should panic")
		}
	}()

	_ = WithHeap(func(h *Heap) error {
		m, err := NewMutator(h)
		if err != nil {
			t.Fatalf("NewMutator: %v", err)
		}
		defer m.Drop()

		outer := &StackRootBatch{roots: make([]StackRoot, 1)}
		m.rootBatches = append(m.rootBatches, outer)
		inner := &StackRootBatch{roots: make([]StackRoot, 1)}
		m.rootBatches = append(m.rootBatches, inner)

		m.popRootBatch(outer) // inner is topmost, not outer
		return nil
	})
}

func TestWithStackRootsInitializesToUndef(t *testing.T) {
	_ = WithHeap(func(h *Heap) error {
		m, err := NewMutator(h)
		if err != nil {
			t.Fatalf("NewMutator: %v", err)
		}
		defer m.Drop()

		return m.WithStackRoots(3, func(batch *StackRootBatch) error {
			if batch.Len() != 3 {
				t.Fatalf("Len() = %d, want 3", batch.Len())
			}
			for i := 0; i < batch.Len(); i++ {
				if batch.At(i).Borrow().Kind() != KindUndef {
					t.Errorf("root %d not initialized to undef", i)
				}
			}
			return nil
		})
	})
}

func TestWithPinnedStackRootForbidsMovementDuringScope(t *testing.T) {
	_ = WithHeap(func(h *Heap) error {
		m, err := NewMutator(h)
		if err != nil {
			t.Fatalf("NewMutator: %v", err)
		}
		defer m.Drop()

		return m.WithStackRoots(1, func(batch *StackRootBatch) error {
			root := batch.At(0)
			NewBooleanFromBool(m, root, true)
			ref := root.Borrow()

			return m.WithPinnedStackRoot(ref, func(pinned *PinnedStackRoot) error {
				if len(m.pinnedStack) != 1 {
					t.Fatalf("pinnedStack length = %d, want 1", len(m.pinnedStack))
				}
				if !pinned.Borrow().Equal(ref) {
					t.Fatal("PinnedStackRoot does not borrow the pinned object")
				}
				return nil
			})
		})
	})
}
