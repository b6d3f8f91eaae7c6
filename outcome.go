package loadgate

import (
	"math"
	"reflect"
)

// Kind names the three outcome shapes.
type Kind int

const (
	KindEmpty Kind = iota
	KindFailure
	KindSuccess
)

func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindFailure:
		return "failure"
	case KindSuccess:
		return "success"
	}
	return "unknown"
}

// Outcome is the normalized result of a load step. It is implemented only by
// Empty, Failure and Success, so a type switch over those three is exhaustive.
type Outcome interface {
	Kind() Kind
	outcome()
}

// Empty means the load step returned nothing; render with defaults.
type Empty struct{}

// Failure means an error page must be rendered. Status is always within
// [400,599].
type Failure struct {
	Status int
	Err    error
}

// Success carries the load output unchanged. It may describe a redirect.
type Success struct {
	Output Output
}

func (Empty) Kind() Kind   { return KindEmpty }
func (Failure) Kind() Kind { return KindFailure }
func (Success) Kind() Kind { return KindSuccess }

func (Empty) outcome()   {}
func (Failure) outcome() {}
func (Success) outcome() {}

// Get returns a raw field of the output.
func (s Success) Get(key string) (any, bool) {
	v, ok := s.Output[key]
	return v, ok
}

// Status returns the status code when one was supplied as a number.
func (s Success) Status() (int, bool) {
	f, ok := asNumber(s.Output[FieldStatus])
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return int(f), true
}

// Redirect returns the validated redirect target, if any.
func (s Success) Redirect() (string, bool) {
	r, ok := s.Output[FieldRedirect].(string)
	if !ok || r == "" {
		return "", false
	}
	return r, true
}

// IsRedirect reports whether the client should be redirected.
func (s Success) IsRedirect() bool {
	_, ok := s.Redirect()
	return ok
}

// Dependencies returns the validated dependency list.
func (s Success) Dependencies() []string {
	deps, _ := stringSlice(s.Output[FieldDependencies])
	return deps
}

// stringSlice reports whether v is a sequence made only of strings.
func stringSlice(v any) ([]string, bool) {
	switch t := v.(type) {
	case nil:
		return nil, false
	case []string:
		return t, true
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			s, ok := e.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]string, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		e := rv.Index(i)
		if e.Kind() == reflect.Interface {
			e = e.Elem()
		}
		if !e.IsValid() || e.Kind() != reflect.String {
			return nil, false
		}
		out = append(out, e.String())
	}
	return out, true
}
