package loader

import (
	"fmt"

	"github.com/tetratelabs/wazero/api"
	"go.bytecodealliance.org/wit"
)

// FlatValueType maps a WIT primitive type to its core wasm representation.
// Import stubs only ever declare primitives; compound types have no meaning
// for a function that discards its arguments.
func FlatValueType(t wit.Type) (api.ValueType, error) {
	switch t.(type) {
	case wit.Bool, wit.U8, wit.S8, wit.U16, wit.S16, wit.U32, wit.S32, wit.Char:
		return api.ValueTypeI32, nil
	case wit.U64, wit.S64:
		return api.ValueTypeI64, nil
	case wit.F32:
		return api.ValueTypeF32, nil
	case wit.F64:
		return api.ValueTypeF64, nil
	default:
		return 0, fmt.Errorf("unsupported stub type %T", t)
	}
}

// FlatValueTypes maps a WIT type list to core wasm value types.
func FlatValueTypes(types []wit.Type) ([]api.ValueType, error) {
	if len(types) == 0 {
		return nil, nil
	}
	out := make([]api.ValueType, 0, len(types))
	for _, t := range types {
		vt, err := FlatValueType(t)
		if err != nil {
			return nil, err
		}
		out = append(out, vt)
	}
	return out, nil
}
