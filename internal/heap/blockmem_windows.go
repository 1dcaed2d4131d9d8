//go:build windows

package heap

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

// acquireAlignedMemory reserves memory via VirtualAlloc. Windows'
// VirtualAlloc always returns addresses aligned to the allocation
// granularity (64 KiB on every supported Windows target), which is a
// multiple of BlockAlign, so no trimming dance is required here the
// way it is on the mmap path.
func acquireAlignedMemory(size, align uintptr) ([]byte, error) {
	addr, err := windows.VirtualAlloc(0, size, windows.MEM_COMMIT|windows.MEM_RESERVE, windows.PAGE_READWRITE)
	if err != nil {
		return nil, fmt.Errorf("VirtualAlloc %d bytes: %w", size, err)
	}

	if addr%uintptr(align) != 0 {
		_ = windows.VirtualFree(addr, 0, windows.MEM_RELEASE)
		return nil, fmt.Errorf("VirtualAlloc returned misaligned address %#x", addr)
	}

	var mem []byte
	sh := (*sliceHeader)(unsafe.Pointer(&mem))
	sh.Data = addr
	sh.Len = int(size)
	sh.Cap = int(size)

	return mem, nil
}

type sliceHeader struct {
	Data uintptr
	Len  int
	Cap  int
}

func releaseMemory(mem []byte) error {
	addr := uintptr(unsafe.Pointer(&mem[0]))
	return windows.VirtualFree(addr, 0, windows.MEM_RELEASE)
}
