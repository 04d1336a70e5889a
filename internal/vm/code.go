package vm

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/kilnvm/kiln/internal/object"
)

// CodeObject is the immutable compiled form of a function body. It
// holds structural metadata only; per-call state lives in the Frame.
// Code objects are shared by logical reference: the builder hands out
// the creation reference, every FunctionObject bound to the code takes
// another, and the object is destroyed when the count drops to zero.
type CodeObject struct {
	// Name is the function name the code was compiled for (diagnostics)
	Name string

	// Arity is the number of parameters
	Arity int

	// Varnames lists local variable names: parameters first, then other
	// locals. Frame locals are positionally aligned with this sequence.
	Varnames []string

	// Bytecode instructions
	Bytecode []byte

	// Constants pool - literals, global names, callee functions
	Constants []object.Object

	// Lines maps bytecode offset to source line number (for errors)
	Lines []int

	rt   *Runtime
	refs atomic.Int32

	// extra is the per-code auxiliary-slot storage, indexed by
	// process-registered extra indices. Grown on demand.
	extraMu sync.Mutex
	extra   []any
}

func (c *CodeObject) Type() *object.Type { return object.CodeType }
func (c *CodeObject) Inspect() string    { return fmt.Sprintf("<code %s>", c.Name) }

// LocalCount returns the number of local-variable slots a frame
// executing this code needs.
func (c *CodeObject) LocalCount() int { return len(c.Varnames) }

// Refs returns the current logical reference count.
func (c *CodeObject) Refs() int32 { return c.refs.Load() }

// IncRef takes a logical reference to the code object.
func (c *CodeObject) IncRef() { c.refs.Add(1) }

// DecRef drops a logical reference. When the count reaches zero the
// code object is torn down: every populated extra slot is handed to its
// registered release callback and the object leaves the heap.
func (c *CodeObject) DecRef() {
	if c.refs.Add(-1) != 0 {
		return
	}
	if c.rt != nil {
		c.rt.heap.destroyCode(c)
		c.releaseExtras(c.rt.extras)
	}
}

// GetExtra reads the auxiliary slot at the registered index. It reports
// an error when the slot mechanism is unavailable for this code object
// (not attached to a runtime, or the index was never registered);
// callers are expected to fail open.
func (c *CodeObject) GetExtra(idx int) (any, error) {
	if c.rt == nil {
		return nil, fmt.Errorf("code %s: extra slots unavailable", c.Name)
	}
	if idx < 0 || idx >= c.rt.extras.count() {
		return nil, fmt.Errorf("code %s: extra index %d not registered", c.Name, idx)
	}
	c.extraMu.Lock()
	defer c.extraMu.Unlock()
	if idx >= len(c.extra) {
		return nil, nil
	}
	return c.extra[idx], nil
}

// SetExtra stores a value into the auxiliary slot at the registered
// index. The stored value is opaque to the runtime; it is handed back
// to the index's release callback when the code object is destroyed.
func (c *CodeObject) SetExtra(idx int, v any) error {
	if c.rt == nil {
		return fmt.Errorf("code %s: extra slots unavailable", c.Name)
	}
	if idx < 0 || idx >= c.rt.extras.count() {
		return fmt.Errorf("code %s: extra index %d not registered", c.Name, idx)
	}
	c.extraMu.Lock()
	defer c.extraMu.Unlock()
	for len(c.extra) <= idx {
		c.extra = append(c.extra, nil)
	}
	c.extra[idx] = v
	return nil
}

func (c *CodeObject) releaseExtras(reg *extraRegistry) {
	c.extraMu.Lock()
	extra := c.extra
	c.extra = nil
	c.extraMu.Unlock()

	for idx, v := range extra {
		if v != nil {
			reg.release(idx, v)
		}
	}
}

// ReadU16 reads a 2-byte big-endian operand at offset.
func (c *CodeObject) ReadU16(offset int) int {
	return int(c.Bytecode[offset])<<8 | int(c.Bytecode[offset+1])
}

// CodeBuilder assembles a CodeObject instruction by instruction. It is
// the embedding-side replacement for a compiler front end: tests and
// the CLI demo construct code with it directly.
type CodeBuilder struct {
	name     string
	varnames []string
	arity    int
	code     []byte
	consts   []object.Object
	lines    []int
}

// NewCodeBuilder starts a code object for a function with the given
// parameters. Parameters occupy the first local slots.
func NewCodeBuilder(name string, params ...string) *CodeBuilder {
	return &CodeBuilder{
		name:     name,
		varnames: append([]string(nil), params...),
		arity:    len(params),
		code:     make([]byte, 0, 64),
		consts:   make([]object.Object, 0, 8),
		lines:    make([]int, 0, 64),
	}
}

// AddLocal declares a non-parameter local and returns its slot index.
func (b *CodeBuilder) AddLocal(name string) int {
	b.varnames = append(b.varnames, name)
	return len(b.varnames) - 1
}

// LocalIndex returns the slot index of a declared local, or -1.
func (b *CodeBuilder) LocalIndex(name string) int {
	for i, n := range b.varnames {
		if n == name {
			return i
		}
	}
	return -1
}

// Emit appends an opcode with line info
func (b *CodeBuilder) Emit(op Opcode, line int) {
	b.emitByte(byte(op), line)
}

// EmitByte appends an opcode followed by a 1-byte operand
func (b *CodeBuilder) EmitByte(op Opcode, operand byte, line int) {
	b.emitByte(byte(op), line)
	b.emitByte(operand, line)
}

// EmitU16 appends an opcode followed by a 2-byte operand
func (b *CodeBuilder) EmitU16(op Opcode, operand int, line int) {
	b.emitByte(byte(op), line)
	b.emitByte(byte(operand>>8), line)
	b.emitByte(byte(operand), line)
}

// AddConstant adds a constant to the pool and returns its index
func (b *CodeBuilder) AddConstant(v object.Object) int {
	b.consts = append(b.consts, v)
	return len(b.consts) - 1
}

// EmitConst writes OP_CONST followed by the constant's pool index
func (b *CodeBuilder) EmitConst(v object.Object, line int) {
	b.EmitU16(OP_CONST, b.AddConstant(v), line)
}

// EmitJump writes a jump with a placeholder target and returns the
// offset to patch once the target is known.
func (b *CodeBuilder) EmitJump(op Opcode, line int) int {
	b.emitByte(byte(op), line)
	at := len(b.code)
	b.emitByte(0xff, line)
	b.emitByte(0xff, line)
	return at
}

// PatchJump resolves a placeholder written by EmitJump to the current
// end of the bytecode.
func (b *CodeBuilder) PatchJump(at int) {
	target := len(b.code)
	b.code[at] = byte(target >> 8)
	b.code[at+1] = byte(target)
}

func (b *CodeBuilder) emitByte(bt byte, line int) {
	b.code = append(b.code, bt)
	b.lines = append(b.lines, line)
}

// Build freezes the builder into a CodeObject registered with the
// runtime's heap. The returned object holds the creation reference.
func (b *CodeBuilder) Build(rt *Runtime) *CodeObject {
	c := &CodeObject{
		Name:      b.name,
		Arity:     b.arity,
		Varnames:  append([]string(nil), b.varnames...),
		Bytecode:  append([]byte(nil), b.code...),
		Constants: append([]object.Object(nil), b.consts...),
		Lines:     append([]int(nil), b.lines...),
		rt:        rt,
	}
	c.refs.Store(1)
	rt.heap.addCode(c)
	return c
}
