package middleware

import (
	"context"
	"net/http"

	json "github.com/goccy/go-json"

	loadgate "github.com/reoring/loadgate"
	"github.com/reoring/loadgate/logger"
)

// Loader runs the load step for a request.
type Loader func(r *http.Request) (loadgate.Output, error)

// ctxKeyOutcome is a typed context key for storing the normalized outcome.
type ctxKeyOutcome struct{}

// ContextWithOutcome attaches an Outcome to the context.
func ContextWithOutcome(ctx context.Context, oc loadgate.Outcome) context.Context {
	return context.WithValue(ctx, ctxKeyOutcome{}, oc)
}

// OutcomeFromContext retrieves the Outcome stored by Load.
func OutcomeFromContext(ctx context.Context) (loadgate.Outcome, bool) {
	oc, ok := ctx.Value(ctxKeyOutcome{}).(loadgate.Outcome)
	return oc, ok
}

// Option configures Load.
type Option func(*config)

type config struct {
	normalizer *loadgate.Normalizer
}

// WithNormalizer replaces the default normalizer (for observers or a fixed
// logger).
func WithNormalizer(n *loadgate.Normalizer) Option {
	return func(c *config) { c.normalizer = n }
}

// Load runs loader, normalizes its output and hands the Outcome to next via
// the request context. Deciding how to render each outcome is left to next.
//
// A loader error or a contract violation never reaches next: it is logged
// and answered with a 500 JSON body built by ErrorPayload.
func Load(loader Loader, next http.Handler, opts ...Option) http.Handler {
	cfg := config{normalizer: loadgate.New()}
	for _, opt := range opts {
		opt(&cfg)
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		log := logger.FromContext(ctx).With("method", r.Method, "path", r.URL.Path)

		out, err := loader(r)
		if err != nil {
			log.Error("load failed", "error", err)
			writeError(w, err)
			return
		}
		oc, err := cfg.normalizer.Normalize(ctx, out)
		if err != nil {
			log.Error("load returned an invalid result", "error", err)
			writeError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(ContextWithOutcome(ctx, oc)))
	})
}

// ErrorPayload shapes a load failure for JSON responses. Issues keep their
// code and path; other errors are reported as a single message.
func ErrorPayload(err error) map[string]any {
	if iss, ok := loadgate.AsIssues(err); ok {
		return map[string]any{"issues": iss}
	}
	if is, ok := loadgate.AsIssue(err); ok {
		return map[string]any{"issues": loadgate.Issues{is}}
	}
	return map[string]any{"message": err.Error()}
}

func writeError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	_ = json.NewEncoder(w).Encode(ErrorPayload(err))
}
