// Package bytecode implements a register-machine bytecode record and
// its interpreter loop: load-constant, register-copy, string and
// numeric coercion and arithmetic, unconditional and conditional jump,
// and the two call-ending terminators (return, throw).
package bytecode

import "github.com/zopsicle/snowflake-sub000/internal/value"

// Register indexes the register file of a Procedure.
type Register uint16

// Opcode enumerates the supported instructions.
type Opcode uint8

const (
	// OpCopyConstant loads Constants[Constant] into register A.
	OpCopyConstant Opcode = iota
	// OpCopyRegister copies register B into register A.
	OpCopyRegister
	// OpStringConcatenate coerces registers B and C to strings,
	// concatenates them, and stores the result in A.
	OpStringConcatenate
	// OpNumericAdd coerces registers B and C to numbers, adds them,
	// and stores the result in A. Undef, booleans and integers are
	// coercible; a string operand panics.
	OpNumericAdd
	// OpToBoolean coerces register B to a boolean and stores it in A.
	OpToBoolean
	// OpToNumeric coerces register B to a number and stores it in A.
	// Undef, booleans and integers are coercible; a string panics.
	OpToNumeric
	// OpToString coerces register B to a string and stores it in A.
	OpToString
	// OpJump transfers control unconditionally to Target.
	OpJump
	// OpJumpIfFalse transfers control to Target when register A
	// coerces to false (undef, false, zero, or the empty string).
	OpJumpIfFalse
	// OpReturn is a terminator: it ends the procedure, yielding
	// register A as the result.
	OpReturn
	// OpThrow is a terminator: it ends the procedure by raising
	// register A as a throwable value.
	OpThrow
)

// IsTerminator reports whether op ends a basic block of control flow
// and may legally be the last instruction of a Procedure.
func (op Opcode) IsTerminator() bool {
	return op == OpReturn || op == OpThrow
}

// Instruction is a fixed-size register-machine instruction. Not every
// field is meaningful for every Opcode; see the Op* constants above.
type Instruction struct {
	Op       Opcode
	A, B, C  Register
	Constant uint16
	Target   int32
}

// Procedure is an unverified sequence of instructions plus a declared
// upper bound on register indices and a constant pool.
type Procedure struct {
	MaxRegister  Register
	Instructions []Instruction
	Constants    []value.Value
}

// Verified wraps a Procedure that has passed Verify. The interpreter
// only accepts *Verified values, and may assume, without rechecking,
// that every register index is in range and every jump target is in
// bounds, and that the final instruction is a terminator.
type Verified struct {
	procedure Procedure
}

// Procedure returns the wrapped, now-immutable procedure.
func (v *Verified) Procedure() *Procedure { return &v.procedure }

// Unit is a multi-procedure compilation artifact holding procedures in
// index order. The instruction set has no call instruction, so no
// instruction refers to another procedure of the Unit.
type Unit struct {
	Filepath string
	// InstructionSetVersion is a semver string compatibility-checked
	// against the interpreter by CheckCompatible (see version.go).
	InstructionSetVersion string
	Procedures            []*Verified
}
