package linestore

import (
	"bytes"
	"fmt"
	"math"
	"reflect"

	jsoniter "github.com/json-iterator/go"
)

// Codec encodes records to and decodes them from JSON
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(d []byte, v any) error
}

// JSONiter is the default Codec: compact output without HTML escaping,
// map keys sorted so that equal records encode to the same bytes
var JSONiter Codec = jsoniter.Config{
	EscapeHTML:             false,
	SortMapKeys:            true,
	ValidateJsonRawMessage: true,
	CaseSensitive:          true,
}.Froze()

// DefaultFunc converts a value the codec can't encode into one it can
type DefaultFunc func(v any) (any, error)

func isUnsupported(v any) bool {
	if v == nil {
		return false
	}
	switch reflect.TypeOf(v).Kind() {
	case reflect.Chan, reflect.Func, reflect.Complex64, reflect.Complex128, reflect.UnsafePointer:
		return true
	case reflect.Float32, reflect.Float64:
		f := reflect.ValueOf(v).Float()
		return math.IsNaN(f) || math.IsInf(f, 0)
	}
	return false
}

// applyDefault replaces values that can't be encoded as JSON with the
// result of fn. It descends into map[string]any and []any, copying them.
// With nil fn, such values are an error.
func applyDefault(v any, fn DefaultFunc) (any, error) {
	switch x := v.(type) {
	case map[string]any:
		res := make(map[string]any, len(x))
		for k, el := range x {
			el2, err := applyDefault(el, fn)
			if err != nil {
				return nil, err
			}
			res[k] = el2
		}
		return res, nil
	case []any:
		res := make([]any, len(x))
		for i, el := range x {
			el2, err := applyDefault(el, fn)
			if err != nil {
				return nil, err
			}
			res[i] = el2
		}
		return res, nil
	}
	if !isUnsupported(v) {
		return v, nil
	}
	if fn == nil {
		return nil, fmt.Errorf("unsupported value of type %T", v)
	}
	v2, err := fn(v)
	if err != nil {
		return nil, err
	}
	if isUnsupported(v2) {
		return nil, fmt.Errorf("default func returned unsupported value of type %T", v2)
	}
	return v2, nil
}

// encode returns v as a single line of JSON, without the newline
func (s *Store[T]) encode(v T) ([]byte, error) {
	rec, err := applyDefault(v, s.defaultFn)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCodec, err)
	}
	d, err := s.codec.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCodec, err)
	}
	d = bytes.TrimSuffix(d, []byte{'\n'})
	if bytes.IndexByte(d, '\n') >= 0 {
		return nil, fmt.Errorf("%w: encoded record spans multiple lines", ErrCodec)
	}
	return d, nil
}

func (s *Store[T]) decode(d []byte) (T, error) {
	var v T
	if len(bytes.TrimSpace(d)) == 0 {
		return v, fmt.Errorf("%w: empty record", ErrCodec)
	}
	if err := s.codec.Unmarshal(d, &v); err != nil {
		return v, fmt.Errorf("%w: %w", ErrCodec, err)
	}
	return v, nil
}
