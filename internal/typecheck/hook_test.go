package typecheck

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kilnvm/kiln/internal/audit"
	"github.com/kilnvm/kiln/internal/object"
	"github.com/kilnvm/kiln/internal/vm"
)

func newHookedInterp(t *testing.T, opts ...Option) (*vm.Interp, *Hook) {
	t.Helper()
	rt := vm.NewRuntime()
	in := rt.NewInterp()
	h, err := Enable(rt, opts...)
	if err != nil {
		t.Fatalf("enabling hook: %s", err)
	}
	return in, h
}

// buildIdentity compiles fn(x) { return x }.
func buildIdentity(rt *vm.Runtime, name string) *vm.CodeObject {
	b := vm.NewCodeBuilder(name, "x")
	b.EmitByte(vm.OP_GET_LOCAL, 0, 1)
	b.Emit(vm.OP_RETURN, 1)
	return b.Build(rt)
}

// buildFirst compiles fn(x, y) { return x }.
func buildFirst(rt *vm.Runtime, name string) *vm.CodeObject {
	b := vm.NewCodeBuilder(name, "x", "y")
	b.EmitByte(vm.OP_GET_LOCAL, 0, 1)
	b.Emit(vm.OP_RETURN, 1)
	return b.Build(rt)
}

func annotations(pairs ...any) map[string]object.Object {
	m := make(map[string]object.Object, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		m[pairs[i].(string)] = pairs[i+1].(object.Object)
	}
	return m
}

func TestAnnotatedCallPasses(t *testing.T) {
	in, h := newHookedInterp(t)
	fn := in.DefineFunction("f", buildIdentity(in.Runtime(), "f"),
		annotations("x", object.IntType))

	result, err := in.CallFunction(fn, object.NewInt(21))
	if err != nil {
		t.Fatalf("runtime error: %s", err)
	}
	got, ok := result.(*object.Int)
	if !ok || got.Value != 21 {
		t.Errorf("result. got=%v, want=21", result)
	}
	if s := h.Stats(); s.Violations != 0 {
		t.Errorf("violations. got=%d, want=0", s.Violations)
	}
}

func TestAnnotatedCallRejected(t *testing.T) {
	in, h := newHookedInterp(t)
	fn := in.DefineFunction("f", buildIdentity(in.Runtime(), "f"),
		annotations("x", object.IntType))

	_, err := in.CallFunction(fn, object.NewStr("oops"))
	if err == nil {
		t.Fatalf("expected a type error, got none")
	}

	var te *vm.TypeError
	if !errors.As(err, &te) {
		t.Fatalf("error is not *vm.TypeError. got=%T (%v)", err, err)
	}
	if te.Func != "f" || te.Param != "x" || te.Expected != "int" || te.Actual != "str" {
		t.Errorf("violation fields. got=%+v", te)
	}
	want := "expected type 'int', got 'str' for parameter 'x'"
	if !strings.Contains(err.Error(), want) {
		t.Errorf("message. got=%q, want substring %q", err.Error(), want)
	}
	if s := h.Stats(); s.Violations != 1 {
		t.Errorf("violations. got=%d, want=1", s.Violations)
	}
}

func TestRejectionThroughBytecodeCall(t *testing.T) {
	in, _ := newHookedInterp(t)
	in.DefineFunction("f", buildIdentity(in.Runtime(), "f"),
		annotations("x", object.IntType))

	b := vm.NewCodeBuilder("caller")
	b.EmitU16(vm.OP_GET_GLOBAL, b.AddConstant(object.NewStr("f")), 1)
	b.EmitConst(object.NewStr("oops"), 1)
	b.EmitByte(vm.OP_CALL, 1, 1)
	b.Emit(vm.OP_RETURN, 1)

	_, err := in.RunCode(b.Build(in.Runtime()))
	var te *vm.TypeError
	if !errors.As(err, &te) {
		t.Fatalf("nested call did not surface a type error. got=%v", err)
	}
}

func TestUnannotatedFunctionUnchecked(t *testing.T) {
	in, h := newHookedInterp(t)
	fn := in.DefineFunction("f", buildIdentity(in.Runtime(), "f"), nil)

	for _, arg := range []object.Object{
		object.NewInt(1), object.NewStr("s"), object.True, object.NilValue,
	} {
		if _, err := in.CallFunction(fn, arg); err != nil {
			t.Fatalf("unannotated call raised: %s", err)
		}
	}
	if s := h.Stats(); s.Violations != 0 {
		t.Errorf("violations. got=%d, want=0", s.Violations)
	}
}

func TestSubtypeValueRejected(t *testing.T) {
	in, _ := newHookedInterp(t)
	fn := in.DefineFunction("f", buildIdentity(in.Runtime(), "f"),
		annotations("x", object.IntType))

	myInt := object.NewSubtype("myint", object.IntType)
	arg := &object.Int{Value: 7, T: myInt}

	_, err := in.CallFunction(fn, arg)
	var te *vm.TypeError
	if !errors.As(err, &te) {
		t.Fatalf("subtype value must be rejected under exact matching. got=%v", err)
	}
	if te.Expected != "int" || te.Actual != "myint" {
		t.Errorf("violation names. got expected=%q actual=%q", te.Expected, te.Actual)
	}
}

func TestMismatchOnSecondParameter(t *testing.T) {
	in, _ := newHookedInterp(t)
	fn := in.DefineFunction("g", buildFirst(in.Runtime(), "g"),
		annotations("x", object.IntType, "y", object.StrType))

	// x passes, so the reported mismatch is deterministic regardless of
	// annotation iteration order.
	_, err := in.CallFunction(fn, object.NewInt(1), object.NewInt(2))
	var te *vm.TypeError
	if !errors.As(err, &te) {
		t.Fatalf("expected a type error, got %v", err)
	}
	if te.Param != "y" || te.Expected != "str" || te.Actual != "int" {
		t.Errorf("violation fields. got=%+v", te)
	}

	if _, err := in.CallFunction(fn, object.NewInt(1), object.NewStr("ok")); err != nil {
		t.Errorf("matching call raised: %s", err)
	}
}

func TestResolutionCachedAcrossCalls(t *testing.T) {
	in, h := newHookedInterp(t)
	fn := in.DefineFunction("f", buildIdentity(in.Runtime(), "f"),
		annotations("x", object.IntType))

	for i := 0; i < 3; i++ {
		if _, err := in.CallFunction(fn, object.NewInt(int64(i))); err != nil {
			t.Fatalf("call %d: %s", i, err)
		}
	}

	if got := h.resolver.Calls(); got != 1 {
		t.Errorf("resolver calls. got=%d, want=1", got)
	}
	s := h.Stats()
	if s.Frames != 3 || s.Resolutions != 1 || s.CacheHits != 2 {
		t.Errorf("stats. got frames=%d resolutions=%d cacheHits=%d, want 3/1/2",
			s.Frames, s.Resolutions, s.CacheHits)
	}
}

func TestBareCodeUnresolvedIsPermanent(t *testing.T) {
	in, h := newHookedInterp(t)
	code := buildIdentity(in.Runtime(), "loose")

	// No function owns this code: the first run resolves to nothing and
	// caches the sentinel, the second short-circuits on it.
	if _, err := in.RunCode(code, object.NewStr("whatever")); err != nil {
		t.Fatalf("bare code raised: %s", err)
	}
	if _, err := in.RunCode(code, object.NewStr("whatever")); err != nil {
		t.Fatalf("bare code raised on second run: %s", err)
	}
	s := h.Stats()
	if s.Resolutions != 1 || s.Unresolved != 1 {
		t.Errorf("stats. got resolutions=%d unresolved=%d, want 1/1", s.Resolutions, s.Unresolved)
	}

	// Binding a function afterwards does not reopen the entry: the code
	// object stays unchecked for its whole lifetime.
	fn := in.DefineFunction("late", code, annotations("x", object.IntType))
	if _, err := in.CallFunction(fn, object.NewStr("oops")); err != nil {
		t.Errorf("late-bound code must stay unchecked. got=%s", err)
	}
	if got := h.resolver.Calls(); got != 1 {
		t.Errorf("resolver calls after late bind. got=%d, want=1", got)
	}
}

func TestDetachedCodeFailsOpen(t *testing.T) {
	in, h := newHookedInterp(t)

	// A code object never attached to a runtime has no extra slots; the
	// hook must let its frames run unchecked rather than fail the call.
	detached := &vm.CodeObject{
		Name:     "detached",
		Bytecode: []byte{byte(vm.OP_NIL), byte(vm.OP_RETURN)},
		Lines:    []int{1, 1},
	}

	result, err := in.RunCode(detached)
	if err != nil {
		t.Fatalf("detached code raised: %s", err)
	}
	if result != object.NilValue {
		t.Errorf("result. got=%v, want=nil", result)
	}
	if s := h.Stats(); s.FailOpens != 1 {
		t.Errorf("failOpens. got=%d, want=1", s.FailOpens)
	}
}

func TestEnableTwiceFails(t *testing.T) {
	rt := vm.NewRuntime()
	rt.NewInterp()

	if _, err := Enable(rt); err != nil {
		t.Fatalf("first Enable: %s", err)
	}
	if _, err := Enable(rt); err == nil {
		t.Fatalf("second Enable must fail")
	}
}

func TestCodeDestroyReleasesCachedReference(t *testing.T) {
	in, _ := newHookedInterp(t)
	code := buildIdentity(in.Runtime(), "f")
	fn := in.DefineFunction("f", code, annotations("x", object.IntType))

	if _, err := in.CallFunction(fn, object.NewInt(1)); err != nil {
		t.Fatalf("call: %s", err)
	}
	if got := fn.Refs(); got != 2 {
		t.Fatalf("function refs after first call. got=%d, want=2 (definition + cache)", got)
	}

	// Drop both logical references to the code object; the teardown must
	// hand the cached entry to the release callback, which gives back
	// exactly the one reference the cache took.
	code.DecRef()
	code.DecRef()
	if got := fn.Refs(); got != 1 {
		t.Errorf("function refs after code destroy. got=%d, want=1", got)
	}
}

func TestViolationRecordedToAuditStore(t *testing.T) {
	store, err := audit.Open(filepath.Join(t.TempDir(), "kiln.db"))
	if err != nil {
		t.Fatalf("opening store: %s", err)
	}
	defer store.Close()

	in, _ := newHookedInterp(t, WithAuditStore(store))
	fn := in.DefineFunction("f", buildIdentity(in.Runtime(), "f"),
		annotations("x", object.IntType))

	if _, err := in.CallFunction(fn, object.NewStr("oops")); err == nil {
		t.Fatalf("expected a type error, got none")
	}

	n, err := store.Count()
	if err != nil {
		t.Fatalf("counting violations: %s", err)
	}
	if n != 1 {
		t.Fatalf("recorded violations. got=%d, want=1", n)
	}

	recent, err := store.Recent(1)
	if err != nil {
		t.Fatalf("reading violations: %s", err)
	}
	v := recent[0]
	if v.Func != "f" || v.Param != "x" || v.Expected != "int" || v.Actual != "str" {
		t.Errorf("stored violation. got=%+v", v)
	}
	if v.ID == "" || v.At.IsZero() {
		t.Errorf("stored violation missing ID or timestamp: %+v", v)
	}
}
