package loadgate

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
)

// Output is the loosely-typed value returned by a load step. Every field is
// optional and untrusted; a nil Output means the load step returned nothing.
//
// Values may be Go-native (int, float64, string, error, []string) or come
// from FromJSON/FromYAML (json.Number, []any, map[string]any).
type Output map[string]any

// Field names recognized by Normalize.
const (
	FieldData         = "data"
	FieldStatus       = "status"
	FieldError        = "error"
	FieldRedirect     = "redirect"
	FieldDependencies = "dependencies"
	// Removed or renamed options; their presence is always a violation.
	FieldFallthrough = "fallthrough"
	FieldMaxAge      = "maxage"
	FieldContext     = "context"
)

// Has reports whether key is present, regardless of its value.
func (o Output) Has(key string) bool {
	_, ok := o[key]
	return ok
}

// truthy mirrors the loose truthiness load steps rely on: nil, false, "",
// zero and NaN are false; everything else (including empty slices and maps)
// is true.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case json.Number:
		f, err := t.Float64()
		return err != nil || (f != 0 && !math.IsNaN(f))
	}
	if f, ok := asNumber(v); ok {
		return f != 0 && !math.IsNaN(f)
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Func:
		return !rv.IsNil()
	case reflect.Bool:
		return rv.Bool()
	case reflect.String:
		return rv.Len() > 0
	}
	return true
}

// asNumber reports v as float64 when it is any Go numeric kind or a
// json.Number. Strings are never numbers.
func asNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case float64:
		return t, true
	case int:
		return float64(t), true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}

// statusOf returns the status when it is a truthy number.
func statusOf(o Output) (float64, bool) {
	v := o[FieldStatus]
	if !truthy(v) {
		return 0, false
	}
	return asNumber(v)
}

// formatNumber renders f in its shortest decimal form (404, 404.5).
func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// typeOf names the dynamic type of v in JSON vocabulary where one applies.
func typeOf(v any) string {
	if v == nil {
		return "null"
	}
	if _, ok := asNumber(v); ok {
		return "number"
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return "null"
		}
		return typeOf(rv.Elem().Interface())
	}
	switch rv.Kind() {
	case reflect.Bool:
		return "boolean"
	case reflect.String:
		return "string"
	case reflect.Map, reflect.Struct:
		return "object"
	case reflect.Slice, reflect.Array:
		return "array"
	case reflect.Func:
		return "function"
	}
	return fmt.Sprintf("%T", v)
}
