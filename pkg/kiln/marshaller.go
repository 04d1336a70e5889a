package kiln

import (
	"fmt"
	"reflect"

	"github.com/kilnvm/kiln/internal/object"
)

// Marshaller handles conversion between Go and kiln values.
type Marshaller struct{}

func NewMarshaller() *Marshaller {
	return &Marshaller{}
}

// ToValue converts a Go value to a kiln Object.
func (m *Marshaller) ToValue(val interface{}) (object.Object, error) {
	if val == nil {
		return object.NilValue, nil
	}

	// Already a runtime object, pass through untouched
	if obj, ok := val.(object.Object); ok {
		return obj, nil
	}

	v := reflect.ValueOf(val)
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return object.NewInt(v.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return object.NewInt(int64(v.Uint())), nil
	case reflect.Float32, reflect.Float64:
		return object.NewFloat(v.Float()), nil
	case reflect.Bool:
		return object.FromBool(v.Bool()), nil
	case reflect.String:
		return object.NewStr(v.String()), nil
	default:
		return nil, fmt.Errorf("unsupported Go type for conversion: %T", val)
	}
}

// FromValue converts a kiln Object to a Go value.
// targetType is optional; if provided, tries to convert to that type.
func (m *Marshaller) FromValue(obj object.Object, targetType reflect.Type) (interface{}, error) {
	if obj == nil {
		return nil, nil
	}

	// If the target type is object.Object, return as is
	if targetType != nil && targetType == reflect.TypeOf((*object.Object)(nil)).Elem() {
		return obj, nil
	}

	switch o := obj.(type) {
	case *object.Int:
		if targetType != nil {
			switch targetType.Kind() {
			case reflect.Int:
				return int(o.Value), nil
			case reflect.Int64:
				return o.Value, nil
			case reflect.Float64:
				return float64(o.Value), nil
			}
		}
		return o.Value, nil
	case *object.Float:
		return o.Value, nil
	case *object.Bool:
		return o.Value, nil
	case *object.Str:
		return o.Value, nil
	case *object.Nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported type for conversion: %s", o.Type())
	}
}
