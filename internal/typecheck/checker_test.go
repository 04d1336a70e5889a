package typecheck

import (
	"errors"
	"testing"

	"github.com/kilnvm/kiln/internal/object"
	"github.com/kilnvm/kiln/internal/vm"
)

func TestSkipMissingParamPolicy(t *testing.T) {
	in, h := newHookedInterp(t, WithMissingParamPolicy(SkipMissingParam))

	// "ghost" is not a local of the code object: under the skip policy
	// the entry is logged and ignored, and the intact "x" entry is
	// still enforced.
	fn := in.DefineFunction("f", buildIdentity(in.Runtime(), "f"),
		annotations("ghost", object.StrType, "x", object.IntType))

	if _, err := in.CallFunction(fn, object.NewInt(1)); err != nil {
		t.Fatalf("call with consistent argument raised: %s", err)
	}

	_, err := in.CallFunction(fn, object.NewStr("oops"))
	var te *vm.TypeError
	if !errors.As(err, &te) {
		t.Fatalf("surviving annotation not enforced. got=%v", err)
	}
	if te.Param != "x" {
		t.Errorf("violation parameter. got=%q, want=%q", te.Param, "x")
	}
	if s := h.Stats(); s.Violations != 1 {
		t.Errorf("violations. got=%d, want=1", s.Violations)
	}
}

func TestAnnotatedLocalCheckedAsNil(t *testing.T) {
	in, _ := newHookedInterp(t)

	// Annotating a non-parameter local is legal metadata; its slot is
	// still empty when the check runs, so it reads as nil.
	b := vm.NewCodeBuilder("f", "x")
	b.AddLocal("y")
	b.EmitByte(vm.OP_GET_LOCAL, 0, 1)
	b.Emit(vm.OP_RETURN, 1)
	fn := in.DefineFunction("f", b.Build(in.Runtime()),
		annotations("y", object.StrType))

	_, err := in.CallFunction(fn, object.NewInt(1))
	var te *vm.TypeError
	if !errors.As(err, &te) {
		t.Fatalf("expected a type error, got %v", err)
	}
	if te.Param != "y" || te.Actual != "nil" {
		t.Errorf("violation fields. got=%+v", te)
	}
}

func TestNilAnnotationAccepted(t *testing.T) {
	in, _ := newHookedInterp(t)
	fn := in.DefineFunction("f", buildIdentity(in.Runtime(), "f"),
		annotations("x", object.NilType))

	if _, err := in.CallFunction(fn, object.NilValue); err != nil {
		t.Fatalf("nil-annotated call with nil raised: %s", err)
	}

	_, err := in.CallFunction(fn, object.NewInt(1))
	var te *vm.TypeError
	if !errors.As(err, &te) {
		t.Fatalf("expected a type error, got %v", err)
	}
	if te.Expected != "nil" || te.Actual != "int" {
		t.Errorf("violation fields. got=%+v", te)
	}
}
