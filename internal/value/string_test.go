package value

import (
	"bytes"
	"testing"
)

func TestShortStringRoundtrip(t *testing.T) {
	cases := []string{"", "a", "ab", "abcdef"}
	for _, s := range cases {
		v := FromString([]byte(s))
		if !v.IsInline() {
			t.Errorf("FromString(%q) did not stay inline", s)
		}
		if v.Kind() != KindString {
			t.Fatalf("Kind() = %v, want %v", v.Kind(), KindString)
		}
		if got := v.String(); !bytes.Equal(got, []byte(s)) {
			t.Errorf("String() = %q, want %q", got, s)
		}
	}
}

func TestLongStringRoundtrip(t *testing.T) {
	s := []byte("this string is long enough to spill onto the heap")
	v := FromString(s)
	if v.IsInline() {
		t.Fatal("a 7+ byte string should not be inline")
	}
	if v.Kind() != KindString {
		t.Fatalf("Kind() = %v, want %v", v.Kind(), KindString)
	}
	if got := v.String(); !bytes.Equal(got, s) {
		t.Errorf("String() = %q, want %q", got, s)
	}
	v.Drop()
}

func TestLongStringCloneSharesRefcount(t *testing.T) {
	s := []byte("also long enough to live on the heap, not inline")
	v := FromString(s)
	c := v.Clone()

	if !bytes.Equal(c.String(), s) {
		t.Fatalf("clone diverged from original contents")
	}

	// Dropping once must not destroy the record while the clone is
	// still outstanding.
	v.Drop()
	if got := c.String(); !bytes.Equal(got, s) {
		t.Fatalf("String() after one Drop = %q, want %q (clone still owns a reference)", got, s)
	}
	c.Drop()
}

func TestConcatenateShortStrings(t *testing.T) {
	a := FromString([]byte("foo"))
	b := FromString([]byte("bar"))

	result, ok := Concatenate(a, b)
	if !ok {
		t.Fatal("Concatenate reported failure for a small, non-overflowing input")
	}
	if got := result.String(); !bytes.Equal(got, []byte("foobar")) {
		t.Errorf("Concatenate result = %q, want %q", got, "foobar")
	}
}

func TestConcatenateSpillsToLongString(t *testing.T) {
	a := FromString([]byte("abcdef"))
	b := FromString([]byte("ghijkl"))

	result, ok := Concatenate(a, b)
	if !ok {
		t.Fatal("Concatenate reported failure unexpectedly")
	}
	if result.IsInline() {
		t.Fatal("a 12-byte concatenation result should not be inline")
	}
	if got := result.String(); !bytes.Equal(got, []byte("abcdefghijkl")) {
		t.Errorf("Concatenate result = %q, want %q", got, "abcdefghijkl")
	}
	result.Drop()
}

func TestFromStringBoundary(t *testing.T) {
	six := FromString([]byte("123456"))
	if !six.IsInline() {
		t.Fatal("a 6-byte string must still be inline")
	}

	seven := FromString([]byte("1234567"))
	if seven.IsInline() {
		t.Fatal("a 7-byte string must spill to an on-heap record")
	}
	seven.Drop()
}
