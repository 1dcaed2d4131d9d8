package value

import "testing"

func TestUndefIsCanonical(t *testing.T) {
	if Undef.Kind() != KindUndef {
		t.Fatalf("Undef.Kind() = %v, want %v", Undef.Kind(), KindUndef)
	}
	if !Undef.IsInline() {
		t.Fatal("Undef should be inline")
	}
}

func TestFromBoolRoundtrip(t *testing.T) {
	t.Run("true", func(t *testing.T) {
		v := FromBool(true)
		if v.Kind() != KindBoolean {
			t.Fatalf("Kind() = %v, want %v", v.Kind(), KindBoolean)
		}
		if !v.Bool() {
			t.Fatal("Bool() = false, want true")
		}
	})

	t.Run("false", func(t *testing.T) {
		v := FromBool(false)
		if v.Kind() != KindBoolean {
			t.Fatalf("Kind() = %v, want %v", v.Kind(), KindBoolean)
		}
		if v.Bool() {
			t.Fatal("Bool() = true, want false")
		}
	})
}

func TestFromInt60Roundtrip(t *testing.T) {
	cases := []int64{0, 1, -1, 12345, -12345, maxInt60, minInt60}
	for _, n := range cases {
		v, err := FromInt60(n)
		if err != nil {
			t.Fatalf("FromInt60(%d) error: %v", n, err)
		}
		if v.Kind() != KindInteger {
			t.Fatalf("Kind() = %v, want %v", v.Kind(), KindInteger)
		}
		if got := v.Int60(); got != n {
			t.Fatalf("Int60() = %d, want %d", got, n)
		}
	}
}

func TestFromInt60OutOfRange(t *testing.T) {
	cases := []int64{maxInt60 + 1, minInt60 - 1}
	for _, n := range cases {
		if _, err := FromInt60(n); err != ErrIntegerOutOfRange {
			t.Fatalf("FromInt60(%d) error = %v, want ErrIntegerOutOfRange", n, err)
		}
	}
}

func TestMustInt60PanicsOnOutOfRange(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("MustInt60 did not panic on out-of-range value")
		}
	}()
	MustInt60(maxInt60 + 1)
}

func TestIntOnNonIntegerPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("Int60 did not panic on a non-integer value")
		}
	}()
	Undef.Int60()
}

func TestBoolOnNonBooleanPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("Bool did not panic on a non-boolean value")
		}
	}()
	Undef.Bool()
}

func TestKindString(t *testing.T) {
	cases := map[Kind]string{
		KindUndef:   "undef",
		KindBoolean: "boolean",
		KindInteger: "integer",
		KindString:  "string",
	}
	for k, want := range cases {
		if got := k.String(); got != want {
			t.Errorf("Kind(%d).String() = %q, want %q", k, got, want)
		}
	}
}

func TestIsOnHeapFalseForInline(t *testing.T) {
	vals := []Value{Undef, True, False, MustInt60(7), FromString([]byte("hi"))}
	for _, v := range vals {
		if v.IsOnHeap() {
			t.Errorf("%#v reported IsOnHeap, want inline", v)
		}
		if !v.IsInline() {
			t.Errorf("%#v reported not inline", v)
		}
	}
}
