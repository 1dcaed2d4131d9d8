//go:build unix

package heap

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// acquireAlignedMemory reserves a zeroed, page-backed region of at
// least size bytes whose base address is a multiple of align. When
// align is at most the page size a plain mmap suffices; otherwise it
// uses an over-reservation-then-trim mmap, since mmap itself only
// guarantees page alignment, not an arbitrary power-of-two alignment
// larger than the page size.
func acquireAlignedMemory(size, align uintptr) ([]byte, error) {
	pageSize := uintptr(unix.Getpagesize())
	if align <= pageSize {
		mem, err := unix.Mmap(-1, 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
		if err != nil {
			return nil, fmt.Errorf("mmap %d bytes: %w", size, err)
		}

		return mem, nil
	}

	overshoot := size + align
	raw, err := unix.Mmap(-1, 0, int(overshoot), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, fmt.Errorf("mmap %d bytes: %w", overshoot, err)
	}

	base := uintptr(unsafe.Pointer(&raw[0]))
	aligned := alignUp(base, align)
	offset := aligned - base

	if offset > 0 {
		if err := unix.Munmap(raw[:offset]); err != nil {
			_ = err // best-effort trim; keep the larger mapping on failure
		}
	}

	tailStart := offset + size
	if rounded := alignUp(tailStart, pageSize); rounded < uintptr(len(raw)) {
		if err := unix.Munmap(raw[rounded:]); err != nil {
			_ = err
		}
	}

	return raw[offset : offset+size], nil
}

func releaseMemory(mem []byte) error {
	return unix.Munmap(mem)
}
