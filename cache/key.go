package cache

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

const (
	keySeparator = ":"

	// UpdateCacheArg is the reserved named argument that forces a refresh of the cached value. It is passed on to the
	// wrapped function but never becomes part of the cache key.
	UpdateCacheArg = "update_cache"
)

// Arg is a single argument of a cached call. Positional arguments have an empty Name.
type Arg struct {
	Name  string
	Value any
}

// Args are the arguments of a cached call in call order
type Args []Arg

// Positional returns a positional argument
func Positional(v any) Arg {
	return Arg{Value: v}
}

// Named returns a named argument
func Named(name string, v any) Arg {
	return Arg{Name: name, Value: v}
}

// Lookup returns the value of the first named argument with the given name
func (a Args) Lookup(name string) (any, bool) {
	for _, arg := range a {
		if name != "" && arg.Name == name {
			return arg.Value, true
		}
	}
	return nil, false
}

// ForceRefresh reports whether the call asks for the cached value to be recomputed
func (a Args) ForceRefresh() bool {
	v, ok := a.Lookup(UpdateCacheArg)
	return ok && truthy(v)
}

// Key derives the cache key for a call of the operation name with the given arguments. Positional arguments come first,
// followed by named arguments, each in the order they were passed. Only numbers, strings, booleans and time values take
// part with their value; every other argument only contributes the name of its type, so calls that differ in such an
// argument share a key.
func Key(name string, args Args) string {
	parts := []string{name}
	for _, arg := range args {
		if arg.Name == "" {
			parts = append(parts, token(arg.Value))
		}
	}
	for _, arg := range args {
		if arg.Name == "" || arg.Name == UpdateCacheArg {
			continue
		}
		parts = append(parts, arg.Name+"="+token(arg.Value))
	}
	return strings.Join(parts, keySeparator)
}

// token renders a single argument. Defined types count by their underlying kind, so a named int64 type keys like an
// int64.
func token(v any) string {
	if t, ok := v.(time.Time); ok {
		return t.Format(time.RFC3339Nano)
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return rv.String()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10)
	case reflect.Float32:
		return strconv.FormatFloat(rv.Float(), 'g', -1, 32)
	case reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'g', -1, 64)
	case reflect.Bool:
		return strconv.FormatBool(rv.Bool())
	default:
		return fmt.Sprintf("%T", v)
	}
}

func truthy(v any) bool {
	if v == nil {
		return false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array, reflect.String, reflect.Chan:
		return rv.Len() > 0
	case reflect.Pointer, reflect.Interface:
		return !rv.IsNil()
	default:
		return !rv.IsZero()
	}
}
