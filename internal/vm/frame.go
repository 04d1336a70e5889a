package vm

import (
	"fmt"

	"github.com/kilnvm/kiln/internal/object"
)

// Frame is the ephemeral per-call execution context. Locals is
// positionally aligned with Code.Varnames: parameter slots come first
// and are populated by the caller, remaining slots start nil.
type Frame struct {
	// Code is the code object being executed
	Code *CodeObject

	// Locals holds local-variable/argument slots
	Locals []object.Object

	in    *Interp
	stack []object.Object
	ip    int
}

func newFrame(in *Interp, code *CodeObject, args []object.Object) *Frame {
	locals := make([]object.Object, code.LocalCount())
	copy(locals, args)
	return &Frame{
		Code:   code,
		Locals: locals,
		in:     in,
		stack:  make([]object.Object, 0, 8),
	}
}

// Interp returns the interpreter state executing this frame.
func (f *Frame) Interp() *Interp { return f.in }

func (f *Frame) push(v object.Object) {
	f.stack = append(f.stack, v)
}

func (f *Frame) pop() (object.Object, error) {
	if len(f.stack) == 0 {
		return nil, f.errorf("stack underflow")
	}
	v := f.stack[len(f.stack)-1]
	f.stack = f.stack[:len(f.stack)-1]
	return v, nil
}

func (f *Frame) peek() (object.Object, error) {
	if len(f.stack) == 0 {
		return nil, f.errorf("stack underflow")
	}
	return f.stack[len(f.stack)-1], nil
}

func (f *Frame) readByte() byte {
	b := f.Code.Bytecode[f.ip]
	f.ip++
	return b
}

func (f *Frame) readU16() int {
	v := f.Code.ReadU16(f.ip)
	f.ip += 2
	return v
}

// line returns the source line of the instruction most recently read.
func (f *Frame) line() int {
	idx := f.ip - 1
	if idx >= 0 && idx < len(f.Code.Lines) {
		return f.Code.Lines[idx]
	}
	return 0
}

func (f *Frame) errorf(format string, args ...any) error {
	return fmt.Errorf("%s:%d: %s", f.Code.Name, f.line(), fmt.Sprintf(format, args...))
}
