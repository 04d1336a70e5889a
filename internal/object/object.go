package object

import "fmt"

// Object is the interface implemented by every runtime value.
type Object interface {
	// Type returns the value's exact runtime type. Type objects are
	// canonical: two values have the same type iff Type() returns the
	// same pointer.
	Type() *Type
	Inspect() string
}

// Type is a nominal runtime type. It is itself an Object (its type is
// TypeType), so it can live in constant pools and annotation maps.
// Identity is pointer identity; Name is for diagnostics only and two
// distinct types may legally share a name.
type Type struct {
	Name string

	// Parent is the type this one was derived from, nil for roots.
	// Parent plays no role in type checks: kiln compares exact types,
	// never the derivation chain.
	Parent *Type
}

func (t *Type) Type() *Type     { return TypeType }
func (t *Type) Inspect() string { return fmt.Sprintf("<type %s>", t.Name) }
func (t *Type) String() string  { return t.Name }

// NewSubtype creates a fresh nominal type derived from parent. Values
// minted with the new type are not accepted where parent is annotated.
func NewSubtype(name string, parent *Type) *Type {
	return &Type{Name: name, Parent: parent}
}

// Built-in canonical types.
var (
	TypeType     = &Type{Name: "type"}
	IntType      = &Type{Name: "int"}
	FloatType    = &Type{Name: "float"}
	BoolType     = &Type{Name: "bool"}
	StrType      = &Type{Name: "str"}
	NilType      = &Type{Name: "nil"}
	FunctionType = &Type{Name: "function"}
	CodeType     = &Type{Name: "code"}
)
