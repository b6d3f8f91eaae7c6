package loadgate_test

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"testing"

	loadgate "github.com/reoring/loadgate"
	"github.com/reoring/loadgate/logger"
)

// recLogger records warnings; other levels are dropped.
type recLogger struct {
	mu    sync.Mutex
	warns []string
}

func (r *recLogger) Debug(string, ...any) {}
func (r *recLogger) Info(string, ...any)  {}
func (r *recLogger) Error(string, ...any) {}
func (r *recLogger) Warn(msg string, _ ...any) {
	r.mu.Lock()
	r.warns = append(r.warns, msg)
	r.mu.Unlock()
}
func (r *recLogger) With(...any) logger.Logger { return r }

func (r *recLogger) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.warns)
}

func normalize(t *testing.T, out loadgate.Output) (loadgate.Outcome, *recLogger, error) {
	t.Helper()
	rec := &recLogger{}
	ctx := logger.ContextWithLogger(context.Background(), rec)
	oc, err := loadgate.Normalize(ctx, out)
	return oc, rec, err
}

func mustFailure(t *testing.T, oc loadgate.Outcome, err error) loadgate.Failure {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected violation: %v", err)
	}
	f, ok := oc.(loadgate.Failure)
	if !ok {
		t.Fatalf("expected Failure, got %#v", oc)
	}
	return f
}

func mustIssue(t *testing.T, oc loadgate.Outcome, err error, code string, contains ...string) loadgate.Issue {
	t.Helper()
	if oc != nil {
		t.Fatalf("expected no outcome alongside a violation, got %#v", oc)
	}
	is, ok := loadgate.AsIssue(err)
	if !ok {
		t.Fatalf("expected Issue, got %v", err)
	}
	if is.Code != code {
		t.Fatalf("expected code %s, got %s (%s)", code, is.Code, is.Message)
	}
	for _, s := range contains {
		if !strings.Contains(err.Error(), s) {
			t.Fatalf("expected message to mention %q, got %q", s, err.Error())
		}
	}
	return is
}

func TestNormalize_Absent(t *testing.T) {
	oc, rec, err := normalize(t, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := oc.(loadgate.Empty); !ok || oc.Kind() != loadgate.KindEmpty {
		t.Fatalf("expected Empty, got %#v", oc)
	}
	if rec.count() != 0 {
		t.Fatalf("expected no warnings")
	}
}

func TestNormalize_EmptyObjectIsSuccess(t *testing.T) {
	oc, _, err := normalize(t, loadgate.Output{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if oc.Kind() != loadgate.KindSuccess {
		t.Fatalf("expected Success, got %#v", oc)
	}
}

func TestNormalize_ErrorStatusWithoutError(t *testing.T) {
	for _, st := range []any{404, 400, 599, json.Number("404"), float64(503), int64(418)} {
		oc, rec, err := normalize(t, loadgate.Output{"status": st})
		f := mustFailure(t, oc, err)
		if float64(f.Status) != mustFloat(t, st) {
			t.Fatalf("status %v: got %d", st, f.Status)
		}
		if f.Err == nil || f.Err.Error() != strconv.FormatFloat(mustFloat(t, st), 'f', -1, 64) {
			t.Fatalf("status %v: unexpected error %v", st, f.Err)
		}
		if rec.count() != 0 {
			t.Fatalf("status %v: expected no warning", st)
		}
	}
}

func mustFloat(t *testing.T, v any) float64 {
	t.Helper()
	switch n := v.(type) {
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case float64:
		return n
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			t.Fatal(err)
		}
		return f
	}
	t.Fatalf("not a number: %#v", v)
	return 0
}

func TestNormalize_FractionalErrorStatus(t *testing.T) {
	oc, _, err := normalize(t, loadgate.Output{"status": 404.5})
	f := mustFailure(t, oc, err)
	if f.Status != 404 || f.Err.Error() != "404.5" {
		t.Fatalf("got %d %q", f.Status, f.Err)
	}
}

func TestNormalize_StringErrorWithoutStatusWarnsOnce(t *testing.T) {
	oc, rec, err := normalize(t, loadgate.Output{"error": "oops"})
	f := mustFailure(t, oc, err)
	if f.Status != 500 || f.Err.Error() != "oops" {
		t.Fatalf("got %d %v", f.Status, f.Err)
	}
	if rec.count() != 1 || rec.warns[0] != loadgate.MsgMissingStatus {
		t.Fatalf("expected exactly one status warning, got %v", rec.warns)
	}
}

func TestNormalize_ErrorWithInvalidStatus(t *testing.T) {
	for _, st := range []any{200, 302, 600, 399.9, "404", nil} {
		oc, rec, err := normalize(t, loadgate.Output{"error": "boom", "status": st})
		f := mustFailure(t, oc, err)
		if f.Status != 500 {
			t.Fatalf("status %v: expected 500, got %d", st, f.Status)
		}
		if rec.count() != 1 {
			t.Fatalf("status %v: expected one warning, got %d", st, rec.count())
		}
	}
}

func TestNormalize_ErrorWithValidStatus(t *testing.T) {
	sentinel := errors.New("not found")
	oc, rec, err := normalize(t, loadgate.Output{"error": sentinel, "status": 404})
	f := mustFailure(t, oc, err)
	if f.Status != 404 || !errors.Is(f.Err, sentinel) {
		t.Fatalf("got %d %v", f.Status, f.Err)
	}
	if rec.count() != 0 {
		t.Fatalf("expected no warning")
	}
}

func TestNormalize_ErrorOfWrongType(t *testing.T) {
	cases := map[string]any{
		"number":  123,
		"boolean": true,
		"object":  map[string]any{"message": "x"},
		"array":   []any{"x"},
	}
	for typ, v := range cases {
		oc, rec, err := normalize(t, loadgate.Output{"error": v, "status": 404})
		f := mustFailure(t, oc, err)
		if f.Status != 500 {
			t.Fatalf("%s: expected forced 500, got %d", typ, f.Status)
		}
		is, ok := loadgate.AsIssue(f.Err)
		if !ok || is.Code != loadgate.CodeInvalidType || is.Path != "/error" {
			t.Fatalf("%s: expected invalid_type diagnostic, got %v", typ, f.Err)
		}
		if !strings.Contains(is.Message, `received type "`+typ+`"`) {
			t.Fatalf("%s: message should name the type, got %q", typ, is.Message)
		}
		if rec.count() != 0 {
			t.Fatalf("%s: expected no warning", typ)
		}
	}
}

func TestNormalize_ErrorPointerReportsPointee(t *testing.T) {
	n := 7
	cases := map[string]any{
		"object": &struct{ Message string }{"x"},
		"number": &n,
	}
	for typ, v := range cases {
		oc, _, err := normalize(t, loadgate.Output{"error": v, "status": 404})
		f := mustFailure(t, oc, err)
		is, ok := loadgate.AsIssue(f.Err)
		if !ok || is.Code != loadgate.CodeInvalidType {
			t.Fatalf("%s: expected invalid_type diagnostic, got %v", typ, f.Err)
		}
		if !strings.Contains(is.Message, `received type "`+typ+`"`) {
			t.Fatalf("%s: message should name the pointee type, got %q", typ, is.Message)
		}
	}
}

func TestNormalize_FalsyErrorIsIgnored(t *testing.T) {
	for _, v := range []any{"", false, 0, nil} {
		oc, _, err := normalize(t, loadgate.Output{"error": v, "status": 200})
		if err != nil || oc.Kind() != loadgate.KindSuccess {
			t.Fatalf("error %#v: expected Success, got %#v %v", v, oc, err)
		}
	}
}

func TestNormalize_ErrorShortCircuitsLaterChecks(t *testing.T) {
	oc, _, err := normalize(t, loadgate.Output{
		"error":        "boom",
		"status":       500,
		"redirect":     42,
		"dependencies": "nope",
		"context":      map[string]any{},
	})
	f := mustFailure(t, oc, err)
	if f.Status != 500 {
		t.Fatalf("got %d", f.Status)
	}
}

func TestNormalize_Redirect(t *testing.T) {
	in := loadgate.Output{"redirect": "/login", "status": 302}
	oc, _, err := normalize(t, in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s, ok := oc.(loadgate.Success)
	if !ok {
		t.Fatalf("expected Success, got %#v", oc)
	}
	if !reflect.DeepEqual(s.Output, in) {
		t.Fatalf("output changed: %#v", s.Output)
	}
	if to, ok := s.Redirect(); !ok || to != "/login" || !s.IsRedirect() {
		t.Fatalf("unexpected redirect %q", to)
	}
	if st, ok := s.Status(); !ok || st != 302 {
		t.Fatalf("unexpected status %d", st)
	}
}

func TestNormalize_RedirectStatusBounds(t *testing.T) {
	for _, st := range []any{300, 399, 399.9, json.Number("307")} {
		if _, _, err := normalize(t, loadgate.Output{"redirect": "/x", "status": st}); err != nil {
			t.Fatalf("status %v: unexpected violation %v", st, err)
		}
	}
	for _, st := range []any{200, 299.9, 400, 404, 0, nil, "302"} {
		oc, _, err := normalize(t, loadgate.Output{"redirect": "/x", "status": st})
		mustIssue(t, oc, err, loadgate.CodeInvalidStatus, "3xx")
	}
}

func TestNormalize_RedirectMustBeString(t *testing.T) {
	oc, _, err := normalize(t, loadgate.Output{"redirect": 42, "status": 302})
	is := mustIssue(t, oc, err, loadgate.CodeInvalidType, "redirect", "string")
	if is.Path != "/redirect" {
		t.Fatalf("unexpected path %s", is.Path)
	}
}

func TestNormalize_Dependencies(t *testing.T) {
	for _, deps := range []any{[]string{"a", "b"}, []any{"a"}, []any{}, []string{}} {
		oc, _, err := normalize(t, loadgate.Output{"dependencies": deps})
		if err != nil {
			t.Fatalf("deps %#v: unexpected violation %v", deps, err)
		}
		if oc.(loadgate.Success).Dependencies() == nil {
			t.Fatalf("deps %#v: expected non-nil dependency list", deps)
		}
	}
	for _, deps := range []any{[]any{"a", 1}, "a", map[string]any{"a": "b"}, []int{1}, true} {
		oc, _, err := normalize(t, loadgate.Output{"dependencies": deps})
		mustIssue(t, oc, err, loadgate.CodeInvalidType, "dependencies", "string[]")
	}
}

func TestNormalize_RemovedOptions(t *testing.T) {
	for _, v := range []any{true, false, nil} {
		oc, _, err := normalize(t, loadgate.Output{"fallthrough": v, "status": 404, "error": "x"})
		mustIssue(t, oc, err, loadgate.CodeRemovedOption, "fallthrough", "matchers")
	}
	oc, _, err := normalize(t, loadgate.Output{"maxage": 60, "error": "x"})
	is := mustIssue(t, oc, err, loadgate.CodeRenamedOption, "maxage", "cache")
	if is.Hint == "" {
		t.Fatalf("expected a remediation hint")
	}
}

func TestNormalize_FallthroughBeforeMaxAge(t *testing.T) {
	oc, _, err := normalize(t, loadgate.Output{"fallthrough": true, "maxage": 1})
	mustIssue(t, oc, err, loadgate.CodeRemovedOption, "fallthrough")
}

func TestNormalize_Context(t *testing.T) {
	oc, _, err := normalize(t, loadgate.Output{"context": map[string]any{"a": 1}})
	is := mustIssue(t, oc, err, loadgate.CodeRenamedOption, "context", "stuff")
	if is.Path != "/context" {
		t.Fatalf("unexpected path %s", is.Path)
	}
}

func TestNormalize_ContextCheckedAfterRedirectAndDependencies(t *testing.T) {
	oc, _, err := normalize(t, loadgate.Output{"context": 1, "redirect": "/x", "status": 200})
	mustIssue(t, oc, err, loadgate.CodeInvalidStatus)

	oc, _, err = normalize(t, loadgate.Output{"context": 1, "dependencies": []any{1}})
	mustIssue(t, oc, err, loadgate.CodeInvalidType, "dependencies")
}

func TestNormalize_NonErrorStatusPassesThrough(t *testing.T) {
	for _, st := range []any{200, 201, 399, 600, 0, "404"} {
		oc, _, err := normalize(t, loadgate.Output{"status": st})
		if err != nil || oc.Kind() != loadgate.KindSuccess {
			t.Fatalf("status %#v: expected Success, got %#v %v", st, oc, err)
		}
	}
}

func TestNormalize_RoundTrip(t *testing.T) {
	inputs := []loadgate.Output{
		{"data": map[string]any{"title": "hello"}},
		{"data": []any{1, 2}, "status": 200},
		{"redirect": "/a", "status": 301, "dependencies": []string{"/api/a"}},
		{"props": map[string]any{"x": 1}, "dependencies": []any{"a", "b"}, "cache": map[string]any{"maxage": 60}},
		{"stuff": map[string]any{"nav": true}},
	}
	for _, in := range inputs {
		oc, rec, err := normalize(t, in)
		if err != nil {
			t.Fatalf("%#v: unexpected violation %v", in, err)
		}
		s, ok := oc.(loadgate.Success)
		if !ok || !reflect.DeepEqual(s.Output, in) {
			t.Fatalf("%#v: expected unchanged Success, got %#v", in, oc)
		}
		if rec.count() != 0 {
			t.Fatalf("%#v: expected no warnings", in)
		}
	}
}

func TestNormalize_ExplicitLoggerWins(t *testing.T) {
	explicit := &recLogger{}
	ctxLog := &recLogger{}
	n := loadgate.New(loadgate.WithLogger(explicit))
	ctx := logger.ContextWithLogger(context.Background(), ctxLog)
	if _, err := n.Normalize(ctx, loadgate.Output{"error": "x"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if explicit.count() != 1 || ctxLog.count() != 0 {
		t.Fatalf("expected warning on explicit logger only, got %d/%d", explicit.count(), ctxLog.count())
	}
}

type countObserver struct {
	mu         sync.Mutex
	outcomes   map[loadgate.Kind]int
	violations map[string]int
}

func (c *countObserver) ObserveOutcome(k loadgate.Kind) {
	c.mu.Lock()
	c.outcomes[k]++
	c.mu.Unlock()
}

func (c *countObserver) ObserveViolation(code string) {
	c.mu.Lock()
	c.violations[code]++
	c.mu.Unlock()
}

func TestNormalize_ObserverConcurrent(t *testing.T) {
	obs := &countObserver{outcomes: map[loadgate.Kind]int{}, violations: map[string]int{}}
	n := loadgate.New(loadgate.WithObserver(obs), loadgate.WithLogger(&recLogger{}))
	inputs := []loadgate.Output{
		nil,
		{"status": 404},
		{"redirect": "/a", "status": 302},
		{"fallthrough": true},
	}
	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		for _, in := range inputs {
			wg.Add(1)
			go func(in loadgate.Output) {
				defer wg.Done()
				_, _ = n.Normalize(context.Background(), in)
			}(in)
		}
	}
	wg.Wait()
	if obs.outcomes[loadgate.KindEmpty] != 25 || obs.outcomes[loadgate.KindFailure] != 25 || obs.outcomes[loadgate.KindSuccess] != 25 {
		t.Fatalf("unexpected outcome counts: %v", obs.outcomes)
	}
	if obs.violations[loadgate.CodeRemovedOption] != 25 {
		t.Fatalf("unexpected violation counts: %v", obs.violations)
	}
}

func TestNormalize_ZeroValueNormalizer(t *testing.T) {
	var n loadgate.Normalizer
	ctx := logger.ContextWithLogger(context.Background(), &recLogger{})
	oc, err := n.Normalize(ctx, loadgate.Output{"status": 500})
	f := mustFailure(t, oc, err)
	if f.Status != 500 || f.Err.Error() != "500" {
		t.Fatalf("got %d %v", f.Status, f.Err)
	}
}
