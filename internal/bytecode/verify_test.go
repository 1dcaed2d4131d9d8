package bytecode

import (
	"testing"

	"github.com/zopsicle/snowflake-sub000/internal/value"
)

func TestVerifyRejectsEmptyProgram(t *testing.T) {
	_, err := Verify(Procedure{})
	ve, ok := err.(*VerifyError)
	if !ok || ve.Kind != EmptyProgram {
		t.Fatalf("Verify(empty) error = %v, want EmptyProgram", err)
	}
}

func TestVerifyRejectsNonTerminatorLast(t *testing.T) {
	p := Procedure{
		MaxRegister: 0,
		Instructions: []Instruction{
			{Op: OpCopyConstant, A: 0, Constant: 0},
		},
		Constants: []value.Value{value.Undef},
	}
	_, err := Verify(p)
	ve, ok := err.(*VerifyError)
	if !ok || ve.Kind != LastNotTerminator {
		t.Fatalf("Verify error = %v, want LastNotTerminator", err)
	}
}

func TestVerifyRejectsRegisterOutOfRange(t *testing.T) {
	p := Procedure{
		MaxRegister: 0,
		Instructions: []Instruction{
			{Op: OpReturn, A: 5},
		},
	}
	_, err := Verify(p)
	ve, ok := err.(*VerifyError)
	if !ok || ve.Kind != RegisterOutOfRange {
		t.Fatalf("Verify error = %v, want RegisterOutOfRange", err)
	}
}

func TestVerifyRejectsJumpOutOfRange(t *testing.T) {
	p := Procedure{
		MaxRegister: 0,
		Instructions: []Instruction{
			{Op: OpJump, Target: 99},
			{Op: OpReturn, A: 0},
		},
	}
	_, err := Verify(p)
	ve, ok := err.(*VerifyError)
	if !ok || ve.Kind != JumpOutOfRange {
		t.Fatalf("Verify error = %v, want JumpOutOfRange", err)
	}
}

func TestVerifyAcceptsWellFormedProcedure(t *testing.T) {
	p := Procedure{
		MaxRegister: 1,
		Instructions: []Instruction{
			{Op: OpCopyConstant, A: 0, Constant: 0},
			{Op: OpJumpIfFalse, A: 0, Target: 3},
			{Op: OpCopyConstant, A: 1, Constant: 1},
			{Op: OpReturn, A: 1},
		},
		Constants: []value.Value{value.True, value.MustInt60(42)},
	}
	v, err := Verify(p)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if v.Procedure().MaxRegister != 1 {
		t.Fatalf("Procedure() round trip lost MaxRegister")
	}
}

func TestVerifyRejectsOutOfRangeConstant(t *testing.T) {
	p := Procedure{
		MaxRegister: 0,
		Instructions: []Instruction{
			{Op: OpCopyConstant, A: 0, Constant: 7},
			{Op: OpReturn, A: 0},
		},
		Constants: nil,
	}
	_, err := Verify(p)
	if err == nil {
		t.Fatal("Verify accepted an out-of-range constant index")
	}
}

func TestVerifyErrorKindString(t *testing.T) {
	cases := map[VerifyErrorKind]string{
		EmptyProgram:       "empty program",
		LastNotTerminator:  "last instruction is not a terminator",
		RegisterOutOfRange: "register index out of range",
		JumpOutOfRange:     "jump target out of range",
	}
	for k, want := range cases {
		if got := k.String(); got != want {
			t.Errorf("%v.String() = %q, want %q", k, got, want)
		}
	}
}

func TestIsTerminator(t *testing.T) {
	terminators := []Opcode{OpReturn, OpThrow}
	for _, op := range terminators {
		if !op.IsTerminator() {
			t.Errorf("%v should be a terminator", op)
		}
	}

	nonTerminators := []Opcode{OpCopyConstant, OpCopyRegister, OpJump, OpJumpIfFalse}
	for _, op := range nonTerminators {
		if op.IsTerminator() {
			t.Errorf("%v should not be a terminator", op)
		}
	}
}
