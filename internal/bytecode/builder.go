package bytecode

import (
	"fmt"

	"github.com/zopsicle/snowflake-sub000/internal/value"
)

// maxRegisterCount bounds how many live temporaries a single procedure
// may use, since Register is a bounded integer type.
const maxRegisterCount = int(^Register(0))

// ErrTooManyRegisters is returned by Builder.WithRegister when the
// stack-discipline allocator would exceed maxRegisterCount live
// temporaries.
var ErrTooManyRegisters = fmt.Errorf("bytecode: too many registers")

// Builder assembles a Procedure using a stack-discipline temporary
// register allocator: WithRegister hands out the next free register,
// tracks the high-water mark as MaxRegister, and frees the register
// again once the callback returns.
type Builder struct {
	instructions []Instruction
	constants    []value.Value
	nextRegister int
	maxRegister  int
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// WithRegister allocates one temporary register, runs f with it, and
// frees it again on return (even if f returns an error).
func (b *Builder) WithRegister(f func(Register) error) error {
	if b.nextRegister >= maxRegisterCount {
		return ErrTooManyRegisters
	}

	r := Register(b.nextRegister)
	b.nextRegister++
	if b.nextRegister-1 > b.maxRegister {
		b.maxRegister = b.nextRegister - 1
	}

	err := f(r)

	b.nextRegister--

	return err
}

// Constant appends v to the constant pool, returning its index. Equal
// values are not deduplicated.
func (b *Builder) Constant(v value.Value) uint16 {
	b.constants = append(b.constants, v)
	return uint16(len(b.constants) - 1)
}

// Emit appends inst to the instruction stream and returns its index,
// for patching jump targets once a later label's position is known.
func (b *Builder) Emit(inst Instruction) int {
	b.instructions = append(b.instructions, inst)
	return len(b.instructions) - 1
}

// PatchTarget overwrites the jump target of a previously emitted
// instruction, for forward jumps whose destination was not yet known
// at Emit time.
func (b *Builder) PatchTarget(index int, target int) {
	b.instructions[index].Target = int32(target)
}

// NextInstructionIndex reports where the next Emit'd instruction will land.
func (b *Builder) NextInstructionIndex() int {
	return len(b.instructions)
}

// Build finalizes the procedure and runs it through Verify.
func (b *Builder) Build() (*Verified, error) {
	p := Procedure{
		MaxRegister:  Register(b.maxRegister),
		Instructions: b.instructions,
		Constants:    b.constants,
	}
	return Verify(p)
}
