package vm

import "fmt"

// TypeError reports an annotated-parameter mismatch. It is raised by
// the type-checking hook instead of evaluating the frame body and
// unwinds through the normal error-propagation path.
type TypeError struct {
	// Func is the name of the function whose call was rejected
	Func string

	// Param is the annotated parameter that mismatched
	Param string

	// Expected is the annotated type's name
	Expected string

	// Actual is the argument's exact runtime type name
	Actual string
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("typecheck: expected type '%s', got '%s' for parameter '%s' of %s",
		e.Expected, e.Actual, e.Param, e.Func)
}
