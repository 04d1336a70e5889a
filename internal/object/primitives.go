package object

import (
	"fmt"
	"strconv"
)

// Int is a 64-bit integer value.
type Int struct {
	Value int64

	// T overrides the value's type, allowing an Int to be minted as a
	// nominal subtype of int. Nil means plain int.
	T *Type
}

func (i *Int) Type() *Type {
	if i.T != nil {
		return i.T
	}
	return IntType
}
func (i *Int) Inspect() string { return strconv.FormatInt(i.Value, 10) }

// Float is a 64-bit floating point value.
type Float struct {
	Value float64
	T     *Type
}

func (f *Float) Type() *Type {
	if f.T != nil {
		return f.T
	}
	return FloatType
}
func (f *Float) Inspect() string { return strconv.FormatFloat(f.Value, 'g', -1, 64) }

// Str is an immutable string value.
type Str struct {
	Value string
	T     *Type
}

func (s *Str) Type() *Type {
	if s.T != nil {
		return s.T
	}
	return StrType
}
func (s *Str) Inspect() string { return fmt.Sprintf("%q", s.Value) }

// Bool is a boolean value.
type Bool struct {
	Value bool
}

func (b *Bool) Type() *Type { return BoolType }
func (b *Bool) Inspect() string {
	if b.Value {
		return "true"
	}
	return "false"
}

// Nil is the absence of a value.
type Nil struct{}

func (n *Nil) Type() *Type     { return NilType }
func (n *Nil) Inspect() string { return "nil" }

// Shared instances for values that carry no state.
var (
	True     = &Bool{Value: true}
	False    = &Bool{Value: false}
	NilValue = &Nil{}
)

// NewInt returns a plain int value.
func NewInt(v int64) *Int { return &Int{Value: v} }

// NewFloat returns a plain float value.
func NewFloat(v float64) *Float { return &Float{Value: v} }

// NewStr returns a plain str value.
func NewStr(v string) *Str { return &Str{Value: v} }

// FromBool returns one of the shared boolean instances.
func FromBool(v bool) *Bool {
	if v {
		return True
	}
	return False
}
