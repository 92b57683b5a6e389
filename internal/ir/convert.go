package ir

import (
	"encoding/json"
	"fmt"
)

// Encode converts a Go value (usually a struct with json tags) to an Object.
// Float fields are rejected.
func Encode(v any) (Object, error) {
	if obj, ok := v.(Object); ok {
		return obj, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %T: %w", v, err)
	}
	val, err := ParseJSON(data)
	if err != nil {
		return nil, fmt.Errorf("encode %T: %w", v, err)
	}
	obj, ok := val.(Object)
	if !ok {
		return nil, fmt.Errorf("encode %T: expected object, got %T", v, val)
	}
	return obj, nil
}

// Decode fills dst (a pointer) from an Object using its json tags.
func Decode(obj Object, dst any) error {
	if p, ok := dst.(*Object); ok {
		*p = obj.Clone()
		return nil
	}
	data, err := obj.MarshalJSON()
	if err != nil {
		return fmt.Errorf("decode into %T: %w", dst, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode into %T: %w", dst, err)
	}
	return nil
}
