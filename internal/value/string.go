package value

import "unsafe"

// shortStringMaxLen is the longest string that fits inline: 6 bytes,
// leaving one byte for the tag+length nibble pair in a 64-bit word.
const shortStringMaxLen = 6

// onHeapString is the trailing-array payload of an on-heap string:
// length followed by length+1 bytes (the extra byte is the implicit
// terminating zero, matching the heap package's String object layout).
type onHeapString struct {
	header onHeapHeader
	length uintptr
}

var onHeapStringHeaderSize = unsafe.Sizeof(onHeapString{})

// FromString constructs a Value from a byte string, choosing the
// inline short-string encoding for 0–6 bytes and an on-heap record
// otherwise.
func FromString(s []byte) Value {
	if len(s) <= shortStringMaxLen {
		return fromShortString(s)
	}
	return fromLongString(s)
}

// fromShortString packs up to 6 bytes into the high bytes of the word
// using a canonical byte layout: byte 0 carries tag|length, bytes 1..6
// carry the string (left-aligned, zero-padded).
func fromShortString(s []byte) Value {
	if len(s) > shortStringMaxLen {
		panic("value: fromShortString called with >6 bytes")
	}

	var buf [8]byte
	buf[0] = byte(len(s)<<4) | tagString
	copy(buf[1:], s)

	return Value(*(*uint64)(unsafe.Pointer(&buf)))
}

func fromLongString(s []byte) Value {
	size := onHeapStringHeaderSize + uintptr(len(s)) + 1
	buf := make([]byte, size)

	rec := (*onHeapString)(unsafe.Pointer(&buf[0]))
	rec.header = onHeapHeader{refCount: 1, extraWord: uint32(onHeapKindString)}
	rec.length = uintptr(len(s))

	payload := unsafe.Slice((*byte)(unsafe.Add(unsafe.Pointer(&buf[0]), onHeapStringHeaderSize)), len(s)+1)
	copy(payload, s)
	payload[len(s)] = 0

	addr := registerOnHeap(buf)

	return Value(addr)
}

// String returns the logical byte contents of a string-kinded value,
// regardless of whether it is inline or on-heap.
func (v Value) String() []byte {
	if v.Kind() != KindString {
		panic("value: String on non-string value")
	}

	if v.IsOnHeap() {
		rec := (*onHeapString)(unsafe.Pointer(uintptr(v)))
		base := unsafe.Add(unsafe.Pointer(rec), onHeapStringHeaderSize)
		return unsafe.Slice((*byte)(base), rec.length)[:rec.length]
	}

	var buf [8]byte
	*(*uint64)(unsafe.Pointer(&buf)) = uint64(v)
	length := buf[0] >> 4

	return append([]byte(nil), buf[1:1+length]...)
}

func destroyOnHeapString(v Value) {
	addr := uintptr(v)
	unregisterOnHeap(addr)
}

// Concatenate implements the bytecode string-concatenate operation: it
// computes the total length, and on overflow returns false instead of
// a Value so the caller can raise a throwable value rather than abort.
func Concatenate(a, b Value) (Value, bool) {
	as, bs := a.String(), b.String()

	total := len(as) + len(bs)
	if total < len(as) { // overflow
		return 0, false
	}

	buf := make([]byte, total)
	copy(buf, as)
	copy(buf[len(as):], bs)

	return FromString(buf), true
}
