package vm

import "fmt"

// FatalError is the common shape of every error that unwinds the run loop.
// EIP() is the value of EIP when the fault was detected, which for most
// errors is already past the opcode and operand bytes; UnknownOpcode
// instead reports the address of the instruction (or, for an undefined
// /digit, of its ModR/M byte). Bytes() is non-nil only for UnknownOpcode;
// the other error types carry no instruction bytes.
type FatalError interface {
	error
	EIP() uint32
	Bytes() []byte
}

type fatalBase struct {
	eip   uint32
	bytes []byte
}

func (f fatalBase) EIP() uint32   { return f.eip }
func (f fatalBase) Bytes() []byte { return f.bytes }

// BoundsError is raised by any Memory access outside [0, size).
type BoundsError struct {
	fatalBase
	Addr uint32
	Size uint32
	Mem  uint32
}

func (e *BoundsError) Error() string {
	return fmt.Sprintf("bounds error: access [%#x, %#x) exceeds memory size %#x (eip=%#x)",
		e.Addr, e.Addr+e.Size, e.Mem, e.eip)
}

func newBoundsError(eip, addr, size, memSize uint32) *BoundsError {
	return &BoundsError{fatalBase: fatalBase{eip: eip}, Addr: addr, Size: size, Mem: memSize}
}

// StackUnderflow is the stack-specific counterpart of BoundsError, raised
// by a pop that would read past the top of memory, or a push that would
// run ESP below 0. It is a separate type: errors.As does not match it as a
// *BoundsError.
type StackUnderflow struct {
	fatalBase
	ESP uint32
}

func (e *StackUnderflow) Error() string {
	return fmt.Sprintf("stack underflow/overflow: esp=%#x (eip=%#x)", e.ESP, e.eip)
}

// UnknownOpcode is raised when no handler exists for the decoded
// (prefix, primary[, secondary][, /digit]) tuple.
type UnknownOpcode struct {
	fatalBase
}

func (e *UnknownOpcode) Error() string {
	return fmt.Sprintf("unknown opcode %#x at eip=%#x", e.bytes, e.eip)
}

func newUnknownOpcode(eip uint32, bytes []byte) *UnknownOpcode {
	return &UnknownOpcode{fatalBase{eip: eip, bytes: bytes}}
}

// UnsupportedSyscall is raised by int 0x80 when EAX names a syscall number
// this gate doesn't implement.
type UnsupportedSyscall struct {
	fatalBase
	Number uint32
}

func (e *UnsupportedSyscall) Error() string {
	return fmt.Sprintf("unsupported syscall eax=%d at eip=%#x", e.Number, e.eip)
}

// UnsupportedInterrupt is raised by INT imm8 (0xCD) for every vector other
// than 0x80 (the syscall gate), including 3. The one-byte int3 opcode
// (0xCC) never raises it.
type UnsupportedInterrupt struct {
	fatalBase
	Vector uint8
}

func (e *UnsupportedInterrupt) Error() string {
	return fmt.Sprintf("unsupported interrupt vector %#x at eip=%#x", e.Vector, e.eip)
}

// DivideError is raised by div/idiv on division by zero or quotient
// overflow.
type DivideError struct {
	fatalBase
}

func (e *DivideError) Error() string {
	return fmt.Sprintf("divide error at eip=%#x", e.eip)
}

func newDivideError(eip uint32) *DivideError {
	return &DivideError{fatalBase{eip: eip}}
}
