package loadgate

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/reoring/loadgate/logger"
)

// Fixed diagnostic texts. Tooling matches on these; do not reword.
const (
	MsgFallthrough     = `"fallthrough" is no longer supported. Use matchers instead`
	MsgMaxAge          = `"maxage" should be replaced with cache: { maxage }`
	MsgErrorType       = `"error" property returned from load must be a string or an error, received type "%s"`
	MsgMissingStatus   = `"error" returned from load without a valid status code, defaulting to 500`
	MsgRedirectStatus  = `"redirect" property returned from load must be accompanied by a 3xx status code`
	MsgRedirectType    = `"redirect" property returned from load must be a string`
	MsgDependencies    = `"dependencies" property returned from load must be of type string[]`
	MsgContextRenamed  = `You are returning "context" from a load function. "context" was renamed to "stuff", please adjust your code accordingly.`
	defaultErrorStatus = 500
)

// Observer is notified once per Normalize call, either with the resulting
// outcome kind or with the code of the violation that stopped it.
type Observer interface {
	ObserveOutcome(k Kind)
	ObserveViolation(code string)
}

// Normalizer validates load outputs. The zero value is ready to use; it logs
// through the logger found in the call context.
type Normalizer struct {
	log      logger.Logger
	observer Observer
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithLogger sets the sink for the non-fatal status warning, overriding the
// context logger.
func WithLogger(l logger.Logger) Option { return func(n *Normalizer) { n.log = l } }

// WithObserver registers an Observer.
func WithObserver(o Observer) Option { return func(n *Normalizer) { n.observer = o } }

// New returns a Normalizer configured with opts.
func New(opts ...Option) *Normalizer {
	n := &Normalizer{}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

var std = New()

// Normalize validates out with the default Normalizer.
func Normalize(ctx context.Context, out Output) (Outcome, error) {
	return std.Normalize(ctx, out)
}

// Normalize turns a load output into an Outcome. A non-nil error is always
// an Issue describing a contract violation in the load step; the Outcome is
// nil in that case.
//
// Checks run in a fixed order and the first violation wins:
// removed options, error handling (which short-circuits everything after it),
// redirect, dependencies, then the renamed "context" option.
func (n *Normalizer) Normalize(ctx context.Context, out Output) (Outcome, error) {
	oc, err := n.normalize(ctx, out)
	if n.observer != nil {
		if is, ok := AsIssue(err); ok {
			n.observer.ObserveViolation(is.Code)
		} else if oc != nil {
			n.observer.ObserveOutcome(oc.Kind())
		}
	}
	return oc, err
}

func (n *Normalizer) normalize(ctx context.Context, out Output) (Outcome, error) {
	if out == nil {
		return Empty{}, nil
	}

	if out.Has(FieldFallthrough) {
		return nil, newIssue("/"+FieldFallthrough, CodeRemovedOption, MsgFallthrough,
			map[string]any{"field": FieldFallthrough}, nil)
	}
	if out.Has(FieldMaxAge) {
		return nil, newIssue("/"+FieldMaxAge, CodeRenamedOption, MsgMaxAge,
			map[string]any{"field": FieldMaxAge, "replacement": "cache.maxage"},
			map[string]string{"replacement": "cache: { maxage }"})
	}

	status, isNumber := statusOf(out)
	hasErrorStatus := isNumber && status >= 400 && status <= 599 && !truthy(out[FieldRedirect])
	if truthy(out[FieldError]) || hasErrorStatus {
		return n.failure(ctx, out, status, isNumber, hasErrorStatus), nil
	}

	if truthy(out[FieldRedirect]) {
		if !isNumber || math.Floor(status/100) != 3 {
			return nil, newIssue("/"+FieldStatus, CodeInvalidStatus, MsgRedirectStatus,
				map[string]any{"field": FieldStatus, "got": out[FieldStatus]}, nil)
		}
		if _, ok := out[FieldRedirect].(string); !ok {
			return nil, newIssue("/"+FieldRedirect, CodeInvalidType, MsgRedirectType,
				map[string]any{"field": FieldRedirect, "got": typeOf(out[FieldRedirect])},
				map[string]string{"expected": "string"})
		}
	}

	if deps := out[FieldDependencies]; truthy(deps) {
		if _, ok := stringSlice(deps); !ok {
			return nil, newIssue("/"+FieldDependencies, CodeInvalidType, MsgDependencies,
				map[string]any{"field": FieldDependencies, "got": typeOf(deps)},
				map[string]string{"expected": "string[]"})
		}
	}

	if out.Has(FieldContext) {
		return nil, newIssue("/"+FieldContext, CodeRenamedOption, MsgContextRenamed,
			map[string]any{"field": FieldContext, "replacement": "stuff"},
			map[string]string{"replacement": "stuff"})
	}

	return Success{Output: out}, nil
}

// failure builds the error outcome. It never fails: an unusable error value
// becomes a 500 carrying a diagnostic, and a missing or out-of-range status
// is defaulted to 500 with a warning.
func (n *Normalizer) failure(ctx context.Context, out Output, status float64, isNumber, hasErrorStatus bool) Failure {
	raw := out[FieldError]
	if !truthy(raw) && hasErrorStatus {
		return Failure{Status: int(status), Err: errors.New(formatNumber(status))}
	}

	var errVal error
	switch t := raw.(type) {
	case string:
		errVal = errors.New(t)
	case error:
		errVal = t
	default:
		got := typeOf(raw)
		return Failure{
			Status: defaultErrorStatus,
			Err: newIssue("/"+FieldError, CodeInvalidType, fmt.Sprintf(MsgErrorType, got),
				map[string]any{"field": FieldError, "got": got},
				map[string]string{"expected": "string or error"}),
		}
	}

	if !isNumber || status < 400 || status > 599 {
		n.logger(ctx).Warn(MsgMissingStatus, "field", FieldStatus, "got", out[FieldStatus])
		return Failure{Status: defaultErrorStatus, Err: errVal}
	}
	return Failure{Status: int(status), Err: errVal}
}

func (n *Normalizer) logger(ctx context.Context) logger.Logger {
	if n.log != nil {
		return n.log
	}
	return logger.FromContext(ctx)
}
