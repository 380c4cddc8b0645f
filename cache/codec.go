package cache

import (
	"encoding"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Codec serializes values for the cache repository
type Codec interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, v any) error
}

// JSONCodec encodes values as JSON. Values JSON can't represent are encoded through a fallback: time values become
// ISO-8601 strings, structs become a mapping of their fields and anything else becomes its textual form. Values that
// refer back to themselves can't be encoded and return an error. Decoding is
// plain JSON decoding, so a value only comes back as its original type if the target type can hold it.
type JSONCodec struct{}

// Encode returns the JSON encoding of v
func (JSONCodec) Encode(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err == nil {
		return b, nil
	}
	var unsupportedType *json.UnsupportedTypeError
	var unsupportedValue *json.UnsupportedValueError
	if !errors.As(err, &unsupportedType) && !errors.As(err, &unsupportedValue) {
		return nil, errors.Wrap(err, "encoding value")
	}
	fv, err := newFallback().encodable(reflect.ValueOf(v))
	if err != nil {
		return nil, errors.Wrap(err, "encoding value")
	}
	b, err = json.Marshal(fv)
	return b, errors.Wrap(err, "encoding value")
}

// Decode parses JSON encoded data into v
func (JSONCodec) Decode(data []byte, v any) error {
	return errors.Wrap(json.Unmarshal(data, v), "decoding value")
}

var (
	jsonMarshalerType = reflect.TypeOf((*json.Marshaler)(nil)).Elem()
	textMarshalerType = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()
	timeType          = reflect.TypeOf(time.Time{})

	errCycle = errors.New("value contains a cycle")
)

// ref identifies a pointer, map or slice on the current path of the fallback walk
type ref struct {
	ptr uintptr
	typ reflect.Type
	len int
}

type fallback struct {
	path map[ref]struct{}
}

func newFallback() *fallback {
	return &fallback{path: make(map[ref]struct{})}
}

// enter marks rv as being walked. The returned func has to be called once rv is done.
func (f *fallback) enter(rv reflect.Value) (func(), error) {
	r := ref{ptr: rv.Pointer(), typ: rv.Type()}
	if rv.Kind() == reflect.Slice {
		r.len = rv.Len()
	}
	if _, ok := f.path[r]; ok {
		return nil, errors.Wrapf(errCycle, "at %s", rv.Type())
	}
	f.path[r] = struct{}{}
	return func() { delete(f.path, r) }, nil
}

// encodable converts rv into something json.Marshal accepts
func (f *fallback) encodable(rv reflect.Value) (any, error) {
	if !rv.IsValid() {
		return nil, nil
	}
	if rv.Type() == timeType {
		return rv.Interface().(time.Time).Format(time.RFC3339Nano), nil
	}
	if rv.Type().Implements(jsonMarshalerType) || rv.Type().Implements(textMarshalerType) {
		if (rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface) && rv.IsNil() {
			return nil, nil
		}
		return rv.Interface(), nil
	}

	switch rv.Kind() {
	case reflect.Interface:
		if rv.IsNil() {
			return nil, nil
		}
		return f.encodable(rv.Elem())
	case reflect.Pointer:
		if rv.IsNil() {
			return nil, nil
		}
		leave, err := f.enter(rv)
		if err != nil {
			return nil, err
		}
		defer leave()
		return f.encodable(rv.Elem())
	case reflect.Struct:
		m := make(map[string]any, rv.NumField())
		rt := rv.Type()
		for i := 0; i < rv.NumField(); i++ {
			field := rt.Field(i)
			if !field.IsExported() {
				continue
			}
			name := field.Name
			if tag, ok := field.Tag.Lookup("json"); ok {
				tagName, _, _ := strings.Cut(tag, ",")
				if tagName == "-" {
					continue
				}
				if tagName != "" {
					name = tagName
				}
			}
			v, err := f.encodable(rv.Field(i))
			if err != nil {
				return nil, err
			}
			m[name] = v
		}
		return m, nil
	case reflect.Map:
		if rv.IsNil() {
			return nil, nil
		}
		leave, err := f.enter(rv)
		if err != nil {
			return nil, err
		}
		defer leave()
		m := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			v, err := f.encodable(iter.Value())
			if err != nil {
				return nil, err
			}
			m[fmt.Sprint(iter.Key().Interface())] = v
		}
		return m, nil
	case reflect.Slice:
		if rv.IsNil() {
			return nil, nil
		}
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return rv.Bytes(), nil
		}
		leave, err := f.enter(rv)
		if err != nil {
			return nil, err
		}
		defer leave()
		return f.elements(rv)
	case reflect.Array:
		return f.elements(rv)
	case reflect.Float32, reflect.Float64:
		fl := rv.Float()
		if math.IsNaN(fl) || math.IsInf(fl, 0) {
			return fmt.Sprint(fl), nil
		}
		return fl, nil
	case reflect.Chan, reflect.Func, reflect.Complex64, reflect.Complex128, reflect.UnsafePointer:
		return fmt.Sprint(rv.Interface()), nil
	default:
		return rv.Interface(), nil
	}
}

func (f *fallback) elements(rv reflect.Value) (any, error) {
	s := make([]any, rv.Len())
	for i := range s {
		v, err := f.encodable(rv.Index(i))
		if err != nil {
			return nil, err
		}
		s[i] = v
	}
	return s, nil
}
