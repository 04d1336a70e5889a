package typecheck

import (
	"testing"

	"github.com/kilnvm/kiln/internal/object"
	"github.com/kilnvm/kiln/internal/vm"
)

func TestResolveFindsOwningFunction(t *testing.T) {
	rt := vm.NewRuntime()
	in := rt.NewInterp()
	code := buildIdentity(rt, "f")
	fn := in.DefineFunction("f", code, annotations("x", object.IntType))

	r := NewResolver(rt.Heap())
	got := r.Resolve(code)
	if got != fn {
		t.Fatalf("resolved wrong function. got=%v, want=%v", got, fn)
	}
	if refs := fn.Refs(); refs != 2 {
		t.Errorf("Resolve must add a strong reference. got refs=%d, want=2", refs)
	}
	if got := r.Calls(); got != 1 {
		t.Errorf("call counter. got=%d, want=1", got)
	}
}

func TestResolveBareCode(t *testing.T) {
	rt := vm.NewRuntime()
	code := buildIdentity(rt, "loose")

	r := NewResolver(rt.Heap())
	if got := r.Resolve(code); got != nil {
		t.Fatalf("bare code resolved to %v, want nil", got)
	}
	if got := r.Calls(); got != 1 {
		t.Errorf("call counter. got=%d, want=1", got)
	}
}

func TestResolveUnknownCode(t *testing.T) {
	rt := vm.NewRuntime()
	r := NewResolver(rt.Heap())

	stray := &vm.CodeObject{Name: "stray"}
	if got := r.Resolve(stray); got != nil {
		t.Fatalf("unknown code resolved to %v, want nil", got)
	}
}

func TestResolveAfterFunctionDestroyed(t *testing.T) {
	rt := vm.NewRuntime()
	in := rt.NewInterp()
	code := buildIdentity(rt, "f")
	fn := in.DefineFunction("f", code, nil)
	fn.DecRef()

	r := NewResolver(rt.Heap())
	if got := r.Resolve(code); got != nil {
		t.Fatalf("destroyed function still resolvable. got=%v", got)
	}
}
