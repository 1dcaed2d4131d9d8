// Package value implements the tagged one-word value representation
// of the snowflake-sub000 runtime: a single 64-bit union discriminating
// inline immediates from atomic-refcounted on-heap pointers.
package value

import "fmt"

// Value is a one-word tagged union. The low bit discriminates inline
// (1) from pointer (0); inline values further discriminate by the low
// nibble.
type Value uint64

// Inline tag nibbles (low bit always 1).
const (
	tagUndef   = 0b0001
	tagBoolean = 0b0011
	tagInteger = 0b0101
	tagString  = 0b0111
)

const tagMask = 0b1111

// Undef is the canonical encoding of the undef value. There is exactly
// one bit pattern for it: every constructor in this package must
// produce this value and no other when building an undef.
const Undef Value = tagUndef

// booleanBit is the bit that carries the boolean's truth value, placed
// immediately above the tag nibble.
const booleanBit = 1 << 4

// False and True are the two canonical boolean encodings.
const (
	False Value = tagBoolean
	True  Value = tagBoolean | booleanBit
)

// IsInline reports whether v is an inline (non-pointer) value.
func (v Value) IsInline() bool { return v&1 == 1 }

// IsOnHeap reports whether v is a pointer to an OnHeap record.
func (v Value) IsOnHeap() bool { return v&1 == 0 && v != 0 }

func (v Value) inlineTag() uint8 { return uint8(v & tagMask) }

// Kind enumerates the logical type of a Value, independent of its
// physical inline-vs-pointer representation.
type Kind uint8

const (
	KindUndef Kind = iota
	KindBoolean
	KindInteger
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindUndef:
		return "undef"
	case KindBoolean:
		return "boolean"
	case KindInteger:
		return "integer"
	case KindString:
		return "string"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Kind reports the logical kind of v without fully borrowing it.
func (v Value) Kind() Kind {
	if v.IsOnHeap() {
		return onHeapHeaderOf(v).kind()
	}
	switch v.inlineTag() {
	case tagUndef:
		return KindUndef
	case tagBoolean:
		return KindBoolean
	case tagInteger:
		return KindInteger
	case tagString:
		return KindString
	default:
		// Unreachable in practice: every public constructor in this
		// package only ever produces the four tags above, so the hot
		// path above never needs to check for an unknown nibble.
		panic(fmt.Sprintf("value: corrupt tag nibble %#b", v.inlineTag()))
	}
}

// FromBool constructs the canonical encoding of a boolean.
func FromBool(b bool) Value {
	if b {
		return True
	}
	return False
}

// maxInt60 / minInt60 bound the inline integer range (60 significant
// bits, sign included).
const (
	maxInt60 = 1<<59 - 1
	minInt60 = -(1 << 59)
)

// ErrIntegerOutOfRange is returned by FromInt60 when the value does not
// fit in the 60-bit inline integer representation.
var ErrIntegerOutOfRange = fmt.Errorf("value: integer out of inline range")

// FromInt60 constructs an inline integer value: the payload is stored
// as (value << 4), and recovered by an arithmetic right shift of 4 so
// sign extension is preserved.
func FromInt60(n int64) (Value, error) {
	if n < minInt60 || n > maxInt60 {
		return 0, ErrIntegerOutOfRange
	}
	payload := uint64(n) << 4
	return Value(payload | tagInteger), nil
}

// MustInt60 is FromInt60 but panics on range error, for callers that
// have already validated the range (e.g. a verified bytecode constant
// pool).
func MustInt60(n int64) Value {
	v, err := FromInt60(n)
	if err != nil {
		panic(err)
	}
	return v
}

// Int60 extracts the integer payload of an integer-kinded value. Casts
// to a signed 64-bit integer before shifting so the shift is
// arithmetic and sign extension is preserved.
func (v Value) Int60() int64 {
	if v.Kind() != KindInteger {
		panic("value: Int60 on non-integer value")
	}
	return int64(v) >> 4
}

// Bool extracts the boolean payload of a boolean-kinded value.
func (v Value) Bool() bool {
	if v.Kind() != KindBoolean {
		panic("value: Bool on non-boolean value")
	}
	return v&booleanBit != 0
}
