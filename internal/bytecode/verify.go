package bytecode

import (
	"fmt"

	"github.com/zopsicle/snowflake-sub000/internal/value"
)

// VerifyErrorKind enumerates the ways a Procedure can fail verification.
type VerifyErrorKind uint8

const (
	EmptyProgram VerifyErrorKind = iota
	LastNotTerminator
	RegisterOutOfRange
	JumpOutOfRange
)

func (k VerifyErrorKind) String() string {
	switch k {
	case EmptyProgram:
		return "empty program"
	case LastNotTerminator:
		return "last instruction is not a terminator"
	case RegisterOutOfRange:
		return "register index out of range"
	case JumpOutOfRange:
		return "jump target out of range"
	default:
		return "unknown verifier error"
	}
}

// VerifyError reports why Verify rejected a Procedure.
type VerifyError struct {
	Kind             VerifyErrorKind
	InstructionIndex int
}

func (e *VerifyError) Error() string {
	return fmt.Sprintf("bytecode: verification failed at instruction %d: %s", e.InstructionIndex, e.Kind)
}

// Verify checks the properties a procedure must satisfy before the
// interpreter may trust it without further checks:
//
//  1. the last instruction is a terminator (return, throw);
//  2. every referenced register index is <= MaxRegister;
//  3. every jump target, if present, is in [0, len(Instructions));
//  4. every constant index is in [0, len(Constants)), reported as
//     RegisterOutOfRange when it is not.
func Verify(p Procedure) (*Verified, error) {
	if len(p.Instructions) == 0 {
		return nil, &VerifyError{Kind: EmptyProgram, InstructionIndex: -1}
	}

	last := p.Instructions[len(p.Instructions)-1]
	if !last.Op.IsTerminator() {
		return nil, &VerifyError{Kind: LastNotTerminator, InstructionIndex: len(p.Instructions) - 1}
	}

	for i, inst := range p.Instructions {
		if err := verifyRegisters(p.MaxRegister, i, inst); err != nil {
			return nil, err
		}
		if err := verifyConstant(p.Constants, i, inst); err != nil {
			return nil, err
		}
		if err := verifyJump(len(p.Instructions), i, inst); err != nil {
			return nil, err
		}
	}

	return &Verified{procedure: p}, nil
}

func verifyRegisters(maxRegister Register, index int, inst Instruction) error {
	check := func(r Register) error {
		if r > maxRegister {
			return &VerifyError{Kind: RegisterOutOfRange, InstructionIndex: index}
		}
		return nil
	}

	switch inst.Op {
	case OpCopyConstant:
		return check(inst.A)
	case OpCopyRegister, OpToBoolean, OpToNumeric, OpToString:
		if err := check(inst.A); err != nil {
			return err
		}
		return check(inst.B)
	case OpStringConcatenate, OpNumericAdd:
		if err := check(inst.A); err != nil {
			return err
		}
		if err := check(inst.B); err != nil {
			return err
		}
		return check(inst.C)
	case OpJump:
		return nil
	case OpJumpIfFalse:
		return check(inst.A)
	case OpReturn, OpThrow:
		return check(inst.A)
	default:
		return &VerifyError{Kind: RegisterOutOfRange, InstructionIndex: index}
	}
}

func verifyConstant(constants []value.Value, index int, inst Instruction) error {
	if inst.Op != OpCopyConstant {
		return nil
	}
	if int(inst.Constant) >= len(constants) {
		return &VerifyError{Kind: RegisterOutOfRange, InstructionIndex: index}
	}
	return nil
}

func verifyJump(numInstructions, index int, inst Instruction) error {
	if inst.Op != OpJump && inst.Op != OpJumpIfFalse {
		return nil
	}
	if inst.Target < 0 || int(inst.Target) >= numInstructions {
		return &VerifyError{Kind: JumpOutOfRange, InstructionIndex: index}
	}
	return nil
}
