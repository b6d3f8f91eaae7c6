package loadgate

import (
	"context"
	"errors"
	"io"

	eng "github.com/reoring/loadgate/internal/engine"
	"github.com/reoring/loadgate/logger"
	"github.com/reoring/loadgate/source/gojson"
	yamlsrc "github.com/reoring/loadgate/source/yaml"
)

// FromJSON decodes a JSON load output. A top-level null yields the absent
// (nil) Output; any other non-object value is rejected. Numbers are kept as
// json.Number. With no opts, DefaultDecodeOpt applies.
func FromJSON(ctx context.Context, data []byte, opts ...DecodeOpt) (Output, error) {
	opt := pickDecodeOpt(opts)
	if opt.MaxBytes > 0 && int64(len(data)) > opt.MaxBytes {
		return nil, AppendIssues(nil, newIssue("/", CodeTruncated, "max bytes exceeded", map[string]any{"max": opt.MaxBytes}, nil))
	}
	return fromSource(ctx, gojson.NewBytes(data), opt)
}

// FromJSONReader streams a JSON load output from r. MaxBytes is enforced
// against the decoder offset while tokens are consumed.
func FromJSONReader(ctx context.Context, r io.Reader, opts ...DecodeOpt) (Output, error) {
	return fromSource(ctx, gojson.NewReader(r), pickDecodeOpt(opts))
}

// FromYAML decodes the first document of a YAML load output. An empty
// document yields the absent (nil) Output.
func FromYAML(ctx context.Context, data []byte, opts ...DecodeOpt) (Output, error) {
	opt := pickDecodeOpt(opts)
	v, err := yamlsrc.Decode(data, limits(ctx, opt))
	if err != nil {
		return nil, toIssues(err)
	}
	return asOutput(v)
}

func fromSource(ctx context.Context, src eng.TokenSource, opt DecodeOpt) (Output, error) {
	v, err := eng.Decode(src, limits(ctx, opt))
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, AppendIssues(nil, newIssue("/", CodeParseError, "empty input", nil, nil))
		}
		return nil, toIssues(err)
	}
	return asOutput(v)
}

func asOutput(v any) (Output, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		return Output(t), nil
	}
	got := typeOf(v)
	return nil, AppendIssues(nil, newIssue("/", CodeInvalidType, "load output must be an object, received type \""+got+"\"",
		map[string]any{"got": got}, map[string]string{"expected": "object"}))
}

func pickDecodeOpt(opts []DecodeOpt) DecodeOpt {
	if len(opts) > 0 {
		return opts[len(opts)-1]
	}
	return DefaultDecodeOpt()
}

// limits projects public options onto engine limits. Duplicate keys under
// Warn are logged through the context logger.
func limits(ctx context.Context, opt DecodeOpt) eng.Limits {
	lim := eng.Limits{
		OnDuplicate: toEngineDup(opt.OnDuplicateKey),
		MaxDepth:    opt.MaxDepth,
		MaxBytes:    opt.MaxBytes,
	}
	if opt.OnDuplicateKey == Warn {
		log := logger.FromContext(ctx)
		lim.IssueSink = func(si eng.SimpleIssue) {
			log.Warn(si.Message, "code", si.Code, "path", si.Path)
		}
	}
	return lim
}

func toEngineDup(s Severity) eng.DuplicateStrictness {
	switch s {
	case Error:
		return eng.DupError
	case Warn:
		return eng.DupWarn
	default:
		return eng.DupIgnore
	}
}
