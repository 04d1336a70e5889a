package main

import (
	"fmt"

	"github.com/kilnvm/kiln/internal/object"
	"github.com/kilnvm/kiln/internal/vm"
)

// defineDemoFunctions assembles two annotated functions:
//
//	double(x: int) -> x * 2
//	greet(name: str) -> "hello, " + name
func defineDemoFunctions(rt *vm.Runtime, in *vm.Interp) (*vm.FunctionObject, *vm.FunctionObject) {
	b := vm.NewCodeBuilder("double", "x")
	b.EmitByte(vm.OP_GET_LOCAL, 0, 1)
	b.EmitConst(object.NewInt(2), 1)
	b.Emit(vm.OP_MUL, 1)
	b.Emit(vm.OP_RETURN, 1)
	double := in.DefineFunction("double", b.Build(rt), map[string]object.Object{
		"x": object.IntType,
	})

	b = vm.NewCodeBuilder("greet", "name")
	b.EmitConst(object.NewStr("hello, "), 2)
	b.EmitByte(vm.OP_GET_LOCAL, 0, 2)
	b.Emit(vm.OP_ADD, 2)
	b.Emit(vm.OP_RETURN, 2)
	greet := in.DefineFunction("greet", b.Build(rt), map[string]object.Object{
		"name": object.StrType,
	})

	return double, greet
}

func runDemoCalls(in *vm.Interp, double, greet *vm.FunctionObject) {
	calls := []struct {
		fn  *vm.FunctionObject
		arg object.Object
	}{
		{double, object.NewInt(21)},
		{double, object.NewStr("oops")},
		{greet, object.NewStr("kiln")},
		{greet, object.NewInt(7)},
	}

	for _, c := range calls {
		result, err := in.CallFunction(c.fn, c.arg)
		if err != nil {
			fmt.Printf("%s(%s): %v\n", c.fn.Name, c.arg.Inspect(), err)
			continue
		}
		fmt.Printf("%s(%s) = %s\n", c.fn.Name, c.arg.Inspect(), result.Inspect())
	}
}
