//go:build !unix && !windows

package heap

import "unsafe"

// acquireAlignedMemory falls back to an over-allocate-and-offset
// strategy on platforms without mmap/VirtualAlloc (wasm, plan9),
// backing the allocation with a plain Go []byte when no OS-level
// alignment primitive is available.
func acquireAlignedMemory(size, align uintptr) ([]byte, error) {
	raw := make([]byte, size+align)
	base := uintptr(unsafe.Pointer(&raw[0]))
	offset := alignUp(base, align) - base

	return raw[offset : offset+size : offset+size], nil
}

func releaseMemory(mem []byte) error {
	return nil
}
