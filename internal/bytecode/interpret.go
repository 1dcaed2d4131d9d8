package bytecode

import (
	"strconv"

	"github.com/zopsicle/snowflake-sub000/internal/value"
)

// DeltaKind discriminates how a procedure's execution ended.
type DeltaKind uint8

const (
	DeltaReturn DeltaKind = iota
	DeltaThrow
)

// CallStackDelta is the result of running a Verified procedure to
// completion: either it returned a value, or it raised one via throw.
type CallStackDelta struct {
	Kind  DeltaKind
	Value value.Value
}

// Interpret runs v starting at instruction 0 over the given register
// file. registers must have at least v.Procedure().MaxRegister+1
// live, owned slots; Interpret takes ownership of (and will Drop) any
// register it overwrites with CopyRegister's move semantics.
//
// Because v is Verified, every register index and jump target the loop
// encounters is known in range, so the loop adds no range checks of its
// own. Registers and instructions are reached by ordinary slice
// indexing rather than raw unsafe.Pointer increments; Go's own bounds
// checks on those accesses stay in place and, given verification,
// never fail.
func Interpret(registers []value.Value, v *Verified) CallStackDelta {
	proc := v.Procedure()
	instructions := proc.Instructions
	constants := proc.Constants

	pc := 0
	for {
		inst := instructions[pc]

		switch inst.Op {
		case OpCopyConstant:
			setRegister(registers, inst.A, constants[inst.Constant].Clone())

		case OpCopyRegister:
			moved := moveRegister(registers, inst.B)
			setRegister(registers, inst.A, moved)

		case OpStringConcatenate:
			left := borrowRegister(registers, inst.B)
			right := borrowRegister(registers, inst.C)
			result, ok := stringConcatenate(left, right)
			if !ok {
				return CallStackDelta{Kind: DeltaThrow, Value: value.FromString([]byte("string concatenation overflow"))}
			}
			setRegister(registers, inst.A, result)

		case OpNumericAdd:
			left := borrowRegister(registers, inst.B)
			right := borrowRegister(registers, inst.C)
			result := numericAdd(left, right)
			setRegister(registers, inst.A, result)

		case OpToBoolean:
			v := borrowRegister(registers, inst.B)
			setRegister(registers, inst.A, value.FromBool(toBoolean(v)))

		case OpToNumeric:
			v := borrowRegister(registers, inst.B)
			setRegister(registers, inst.A, toNumeric(v))

		case OpToString:
			v := borrowRegister(registers, inst.B)
			setRegister(registers, inst.A, value.FromString(toStringBytes(v)))

		case OpJump:
			pc = int(inst.Target)
			continue

		case OpJumpIfFalse:
			cond := borrowRegister(registers, inst.A)
			if !toBoolean(cond) {
				pc = int(inst.Target)
				continue
			}

		case OpReturn:
			return CallStackDelta{Kind: DeltaReturn, Value: moveRegister(registers, inst.A)}

		case OpThrow:
			return CallStackDelta{Kind: DeltaThrow, Value: moveRegister(registers, inst.A)}

		default:
			panic("bytecode: unreachable opcode in verified procedure")
		}

		pc++
	}
}

// setRegister drops the register's previous owned value before
// overwriting it, since Value carries refcounted ownership.
func setRegister(registers []value.Value, r Register, v value.Value) {
	old := registers[r]
	old.Drop()
	registers[r] = v
}

// moveRegister takes ownership of a register's value, leaving Undef
// behind so the slot's former refcount contribution is not double-counted.
func moveRegister(registers []value.Value, r Register) value.Value {
	v := registers[r]
	registers[r] = value.Undef
	return v
}

// borrowRegister reads a register without transferring ownership.
func borrowRegister(registers []value.Value, r Register) value.Value {
	return registers[r]
}

func stringConcatenate(a, b value.Value) (value.Value, bool) {
	as := toStringBytes(a)
	bs := toStringBytes(b)
	return value.Concatenate(value.FromString(as), value.FromString(bs))
}

func numericAdd(a, b value.Value) value.Value {
	an := toNumeric(a)
	bn := toNumeric(b)
	return value.MustInt60(an.Int60() + bn.Int60())
}

func toBoolean(v value.Value) bool {
	switch v.Kind() {
	case value.KindBoolean:
		return v.Bool()
	case value.KindUndef:
		return false
	case value.KindInteger:
		return v.Int60() != 0
	case value.KindString:
		return len(v.String()) != 0
	default:
		panic("bytecode: unreachable value kind")
	}
}

func toNumeric(v value.Value) value.Value {
	switch v.Kind() {
	case value.KindInteger:
		return v
	case value.KindBoolean:
		if v.Bool() {
			return value.MustInt60(1)
		}
		return value.MustInt60(0)
	case value.KindUndef:
		return value.MustInt60(0)
	default:
		panic("bytecode: value is not coercible to a number")
	}
}

func toStringBytes(v value.Value) []byte {
	switch v.Kind() {
	case value.KindString:
		return v.String()
	case value.KindUndef:
		return []byte("undef")
	case value.KindBoolean:
		if v.Bool() {
			return []byte("true")
		}
		return []byte("false")
	case value.KindInteger:
		return []byte(strconv.FormatInt(v.Int60(), 10))
	default:
		panic("bytecode: value is not coercible to a string")
	}
}
