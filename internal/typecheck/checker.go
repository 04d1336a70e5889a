package typecheck

import (
	"github.com/charmbracelet/log"

	"github.com/kilnvm/kiln/internal/object"
	"github.com/kilnvm/kiln/internal/vm"
)

// MissingParamPolicy decides what happens when an annotation names a
// parameter absent from the code object's local-variable sequence. That
// state means function and code metadata disagree, which is a
// programming-model violation rather than a user error.
type MissingParamPolicy int

const (
	// AbortOnMissingParam exits the process. The default: inconsistent
	// metadata is not recoverable at this layer.
	AbortOnMissingParam MissingParamPolicy = iota

	// SkipMissingParam logs the inconsistency and skips the entry,
	// for embeddings that rebuild code objects out from under live
	// functions.
	SkipMissingParam
)

// Checker compares annotated parameters against the live argument
// values in a frame's local slots.
type Checker struct {
	missing MissingParamPolicy
}

// Check inspects every annotated parameter of fn against the frame's
// locals and returns the first mismatch, or nil when the call passes.
// Annotation entries are visited in map order; no order may be assumed
// beyond "iteration stops at the first mismatch".
func (c *Checker) Check(fn *vm.FunctionObject, code *vm.CodeObject, f *vm.Frame) *vm.TypeError {
	if fn.Annotations == nil {
		return nil
	}

	for name, ann := range fn.Annotations {
		slot := -1
		for i, varname := range code.Varnames {
			if varname == name {
				slot = i
				break
			}
		}
		if slot < 0 {
			if c.missing == SkipMissingParam {
				log.Warn("annotated parameter missing from code object, skipping",
					"func", fn.Name, "param", name)
				continue
			}
			log.Fatalf("typecheck: annotated parameter '%s' of %s is not a local variable of its code object",
				name, fn.Name)
		}

		// Only exact type references are supported as annotations.
		// Forward references, generics and unions are out of scope for
		// now, and silently ignoring them would report checks that
		// never ran.
		expected, ok := ann.(*object.Type)
		if !ok {
			log.Fatalf("typecheck: annotation for parameter '%s' of %s must be a type, got '%s'",
				name, fn.Name, ann.Type())
		}

		arg := f.Locals[slot]
		if arg == nil {
			arg = object.NilValue
		}

		// Exact nominal match: type object identity, no subclass
		// acceptance.
		if arg.Type() != expected {
			return &vm.TypeError{
				Func:     fn.Name,
				Param:    name,
				Expected: expected.Name,
				Actual:   arg.Type().Name,
			}
		}
	}
	return nil
}
