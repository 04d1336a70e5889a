package vm

import (
	"fmt"

	"github.com/kilnvm/kiln/internal/object"
)

// EvalFrameDefault is the runtime's default frame-evaluation routine.
// It executes a frame's bytecode to completion and returns the frame's
// result. Calls made by the frame dispatch through the interpreter
// state's *active* evaluator, so an installed hook sees every call in
// the process, recursively.
func EvalFrameDefault(in *Interp, f *Frame) (object.Object, error) {
	code := f.Code

	for f.ip < len(code.Bytecode) {
		op := Opcode(f.readByte())

		switch op {
		case OP_CONST:
			idx := f.readU16()
			if idx >= len(code.Constants) {
				return nil, f.errorf("invalid constant index %d", idx)
			}
			f.push(code.Constants[idx])

		case OP_NIL:
			f.push(object.NilValue)

		case OP_TRUE:
			f.push(object.True)

		case OP_FALSE:
			f.push(object.False)

		case OP_POP:
			if _, err := f.pop(); err != nil {
				return nil, err
			}

		case OP_DUP:
			v, err := f.peek()
			if err != nil {
				return nil, err
			}
			f.push(v)

		case OP_ADD, OP_SUB, OP_MUL, OP_DIV:
			if err := f.binaryOp(op); err != nil {
				return nil, err
			}

		case OP_NEG:
			v, err := f.pop()
			if err != nil {
				return nil, err
			}
			switch n := v.(type) {
			case *object.Int:
				f.push(object.NewInt(-n.Value))
			case *object.Float:
				f.push(object.NewFloat(-n.Value))
			default:
				return nil, f.errorf("unknown operator: -%s", v.Type())
			}

		case OP_EQ:
			b, err := f.pop()
			if err != nil {
				return nil, err
			}
			a, err := f.pop()
			if err != nil {
				return nil, err
			}
			f.push(object.FromBool(objectsEqual(a, b)))

		case OP_NE:
			b, err := f.pop()
			if err != nil {
				return nil, err
			}
			a, err := f.pop()
			if err != nil {
				return nil, err
			}
			f.push(object.FromBool(!objectsEqual(a, b)))

		case OP_LT, OP_GT:
			if err := f.comparisonOp(op); err != nil {
				return nil, err
			}

		case OP_GET_LOCAL:
			slot := int(f.readByte())
			if slot >= len(f.Locals) {
				return nil, f.errorf("invalid local slot %d", slot)
			}
			v := f.Locals[slot]
			if v == nil {
				v = object.NilValue
			}
			f.push(v)

		case OP_SET_LOCAL:
			slot := int(f.readByte())
			if slot >= len(f.Locals) {
				return nil, f.errorf("invalid local slot %d", slot)
			}
			v, err := f.pop()
			if err != nil {
				return nil, err
			}
			f.Locals[slot] = v

		case OP_GET_GLOBAL:
			name, err := f.constantName(f.readU16())
			if err != nil {
				return nil, err
			}
			v, ok := in.globals[name]
			if !ok {
				return nil, f.errorf("undefined variable '%s'", name)
			}
			f.push(v)

		case OP_SET_GLOBAL:
			name, err := f.constantName(f.readU16())
			if err != nil {
				return nil, err
			}
			v, err := f.pop()
			if err != nil {
				return nil, err
			}
			in.globals[name] = v

		case OP_JUMP:
			f.ip = f.readU16()

		case OP_JUMP_IF_FALSE:
			target := f.readU16()
			v, err := f.pop()
			if err != nil {
				return nil, err
			}
			if !isTruthy(v) {
				f.ip = target
			}

		case OP_CALL:
			argc := int(f.readByte())
			if err := f.callTop(in, argc); err != nil {
				return nil, err
			}

		case OP_RETURN:
			return f.pop()

		case OP_PRINT:
			v, err := f.pop()
			if err != nil {
				return nil, err
			}
			fmt.Fprintln(in.out, v.Inspect())

		default:
			return nil, f.errorf("unknown opcode %d", op)
		}
	}

	// Fell off the end without an explicit return
	return object.NilValue, nil
}

// callTop calls the function sitting below argc arguments on the
// operand stack. The callee's frame is evaluated through the state's
// active evaluator, which is the hook's interception point.
func (f *Frame) callTop(in *Interp, argc int) error {
	if len(f.stack) < argc+1 {
		return f.errorf("stack underflow in call")
	}
	calleeIdx := len(f.stack) - argc - 1
	callee := f.stack[calleeIdx]

	fn, ok := callee.(*FunctionObject)
	if !ok {
		return f.errorf("can only call functions, got %s", callee.Type())
	}
	if argc != fn.Code.Arity {
		return f.errorf("%s: expected %d arguments but got %d", fn.Name, fn.Code.Arity, argc)
	}

	args := f.stack[calleeIdx+1:]
	callFrame := newFrame(in, fn.Code, args)
	result, err := in.EvalFrame()(in, callFrame)
	if err != nil {
		return err
	}

	f.stack = f.stack[:calleeIdx]
	f.push(result)
	return nil
}

func (f *Frame) constantName(idx int) (string, error) {
	if idx >= len(f.Code.Constants) {
		return "", f.errorf("invalid constant index %d", idx)
	}
	s, ok := f.Code.Constants[idx].(*object.Str)
	if !ok {
		return "", f.errorf("constant %d is not a name", idx)
	}
	return s.Value, nil
}

func (f *Frame) binaryOp(op Opcode) error {
	b, err := f.pop()
	if err != nil {
		return err
	}
	a, err := f.pop()
	if err != nil {
		return err
	}

	ai, aInt := a.(*object.Int)
	bi, bInt := b.(*object.Int)
	if aInt && bInt {
		switch op {
		case OP_ADD:
			f.push(object.NewInt(ai.Value + bi.Value))
		case OP_SUB:
			f.push(object.NewInt(ai.Value - bi.Value))
		case OP_MUL:
			f.push(object.NewInt(ai.Value * bi.Value))
		case OP_DIV:
			if bi.Value == 0 {
				return f.errorf("division by zero")
			}
			f.push(object.NewInt(ai.Value / bi.Value))
		}
		return nil
	}

	af, aok := numericValue(a)
	bf, bok := numericValue(b)
	if !aok || !bok {
		if op == OP_ADD {
			if as, ok := a.(*object.Str); ok {
				if bs, ok := b.(*object.Str); ok {
					f.push(object.NewStr(as.Value + bs.Value))
					return nil
				}
			}
		}
		return f.errorf("unsupported operand types %s and %s", a.Type(), b.Type())
	}

	switch op {
	case OP_ADD:
		f.push(object.NewFloat(af + bf))
	case OP_SUB:
		f.push(object.NewFloat(af - bf))
	case OP_MUL:
		f.push(object.NewFloat(af * bf))
	case OP_DIV:
		if bf == 0 {
			return f.errorf("division by zero")
		}
		f.push(object.NewFloat(af / bf))
	}
	return nil
}

func (f *Frame) comparisonOp(op Opcode) error {
	b, err := f.pop()
	if err != nil {
		return err
	}
	a, err := f.pop()
	if err != nil {
		return err
	}

	af, aok := numericValue(a)
	bf, bok := numericValue(b)
	if !aok || !bok {
		return f.errorf("unsupported operand types %s and %s", a.Type(), b.Type())
	}

	switch op {
	case OP_LT:
		f.push(object.FromBool(af < bf))
	case OP_GT:
		f.push(object.FromBool(af > bf))
	}
	return nil
}

func numericValue(v object.Object) (float64, bool) {
	switch n := v.(type) {
	case *object.Int:
		return float64(n.Value), true
	case *object.Float:
		return n.Value, true
	}
	return 0, false
}

func objectsEqual(a, b object.Object) bool {
	switch av := a.(type) {
	case *object.Int:
		bv, ok := b.(*object.Int)
		return ok && av.Value == bv.Value
	case *object.Float:
		bv, ok := b.(*object.Float)
		return ok && av.Value == bv.Value
	case *object.Str:
		bv, ok := b.(*object.Str)
		return ok && av.Value == bv.Value
	case *object.Bool:
		bv, ok := b.(*object.Bool)
		return ok && av.Value == bv.Value
	case *object.Nil:
		_, ok := b.(*object.Nil)
		return ok
	}
	return a == b
}

func isTruthy(v object.Object) bool {
	switch b := v.(type) {
	case *object.Bool:
		return b.Value
	case *object.Nil:
		return false
	}
	return true
}
