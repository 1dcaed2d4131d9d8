package heap

import "testing"

func TestCompactRegionAllocateAndView(t *testing.T) {
	r, err := NewCompactRegion(DefaultBlockSize)
	if err != nil {
		t.Fatalf("NewCompactRegion: %v", err)
	}
	defer r.Drop()

	c := r.Lock()
	defer c.Unlock()

	ref, err := c.NewBooleanFromBool(true)
	if err != nil {
		t.Fatalf("NewBooleanFromBool: %v", err)
	}
	if !ViewBoolean(ref) {
		t.Fatal("compacted boolean did not view as true")
	}
}

func TestCompactRegionCloneAndDropReclaimsOnLastDrop(t *testing.T) {
	r, err := NewCompactRegion(DefaultBlockSize)
	if err != nil {
		t.Fatalf("NewCompactRegion: %v", err)
	}

	clone := r.Clone()
	if clone != r {
		t.Fatal("Clone should return the same region pointer")
	}

	r.Drop() // refcount 2 -> 1, should not reclaim yet
	clone.Drop()
}

func TestCompactRegionAcquireOwnershipIsIdempotent(t *testing.T) {
	owner, err := NewCompactRegion(DefaultBlockSize)
	if err != nil {
		t.Fatalf("NewCompactRegion: %v", err)
	}
	defer owner.Drop()

	owned, err := NewCompactRegion(DefaultBlockSize)
	if err != nil {
		t.Fatalf("NewCompactRegion: %v", err)
	}

	c := owner.Lock()
	if _, err := c.NewCompactRegionHandleFromCompactRegion(owned); err != nil {
		t.Fatalf("first handle: %v", err)
	}
	if _, err := c.NewCompactRegionHandleFromCompactRegion(owned); err != nil {
		t.Fatalf("second handle: %v", err)
	}
	c.Unlock()

	if len(owner.ownedRegions) != 1 {
		t.Fatalf("ownedRegions has %d entries, want 1 (idempotent ownership)", len(owner.ownedRegions))
	}

	// owner now shares ownership of owned; dropping our direct reference
	// must not reclaim it while owner still holds one.
	owned.Drop()
	c2 := owner.Lock()
	if _, err := c2.NewUndef(); err != nil {
		t.Fatalf("owner region still usable: %v", err)
	}
	c2.Unlock()
}

func TestCompactRegionAcquireOwnershipSkipsSelf(t *testing.T) {
	r, err := NewCompactRegion(DefaultBlockSize)
	if err != nil {
		t.Fatalf("NewCompactRegion: %v", err)
	}
	defer r.Drop()

	r.acquireOwnership(r)
	if len(r.ownedRegions) != 0 {
		t.Fatalf("a region should never register ownership of itself, got %d entries", len(r.ownedRegions))
	}
}

func TestExportImportCompactRegionRoundtrip(t *testing.T) {
	r, err := NewCompactRegion(DefaultBlockSize)
	if err != nil {
		t.Fatalf("NewCompactRegion: %v", err)
	}

	c := r.Lock()
	_, err = c.NewStringFromFn(3, func(b []byte) { copy(b, "abc") })
	if err != nil {
		t.Fatalf("NewStringFromFn: %v", err)
	}
	c.Unlock()

	blocks := r.ExportBlocks()
	if len(blocks) == 0 {
		t.Fatal("ExportBlocks returned no blocks")
	}

	imported, err := ImportCompactRegion(blocks)
	if err != nil {
		t.Fatalf("ImportCompactRegion: %v", err)
	}
	defer imported.Drop()

	if len(imported.retiredBlocks) != len(blocks) {
		t.Fatalf("imported %d blocks, want %d", len(imported.retiredBlocks), len(blocks))
	}
}

func TestImportCompactRegionRejectsTruncatedBlock(t *testing.T) {
	_, err := ImportCompactRegion([][]byte{make([]byte, 2)})
	if err != ErrSizeOverflow {
		t.Fatalf("ImportCompactRegion(truncated) error = %v, want ErrSizeOverflow", err)
	}
}
