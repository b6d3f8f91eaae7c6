package loadgate

import (
	"errors"
	"fmt"
	"strings"

	eng "github.com/reoring/loadgate/internal/engine"
	"github.com/reoring/loadgate/i18n"
)

// Issue codes (exported consts for IDE completion and type safety by convention)
const (
	// Contract violations raised by Normalize.
	CodeRemovedOption = "removed_option"
	CodeRenamedOption = "renamed_option"
	CodeInvalidType   = "invalid_type"
	CodeInvalidStatus = "invalid_status"
	// Wire decoding.
	CodeDuplicateKey = "duplicate_key"
	CodeParseError   = "parse_error"
	CodeTruncated    = "truncated"
)

// Issue represents a single contract violation.
type Issue struct {
	Path    string `json:"path"`           // JSON Pointer of the offending field (for example: /redirect).
	Code    string `json:"code"`           // One of the codes listed above.
	Message string `json:"message"`        // Fixed human-readable text; safe to match on.
	Hint    string `json:"hint,omitempty"` // Optional: localized remediation hint.
	Cause   error  `json:"-"`              // Optional: underlying error.
	// Params carries structured parameters (e.g., {"field":"status","got":200})
	// for i18n and observability.
	Params map[string]any `json:"params,omitempty"`
}

// Error returns the message verbatim so tooling can match on its content.
func (i Issue) Error() string { return i.Message }

// Unwrap returns the underlying cause, if any.
func (i Issue) Unwrap() error { return i.Cause }

// Issues is a collection of decoding errors that implements error.
type Issues []Issue

// Error summarizes the first few issues.
func (iss Issues) Error() string {
	if len(iss) == 0 {
		return ""
	}
	const maxShown = 3
	b := &strings.Builder{}
	n := len(iss)
	lim := min(n, maxShown)
	for i := 0; i < lim; i++ {
		if i > 0 {
			b.WriteString("; ")
		}
		it := iss[i]
		// e.g. duplicate_key at /status: key 'status' duplicated
		fmt.Fprintf(b, "%s at %s: %s", it.Code, it.Path, it.Message)
	}
	if n > lim {
		fmt.Fprintf(b, "; ... (total %d)", n)
	}
	return b.String()
}

// AppendIssues appends issues to the destination, initializing the slice when
// needed.
func AppendIssues(dst Issues, more ...Issue) Issues {
	if dst == nil {
		dst = Issues{}
	}
	dst = append(dst, more...)
	return dst
}

// AsIssue extracts a single Issue from an error using errors.As internally.
func AsIssue(err error) (Issue, bool) {
	if err == nil {
		return Issue{}, false
	}
	var is Issue
	if errors.As(err, &is) {
		return is, true
	}
	if iss, ok := AsIssues(err); ok && len(iss) > 0 {
		return iss[0], true
	}
	return Issue{}, false
}

// AsIssues extracts Issues from an error using errors.As internally.
func AsIssues(err error) (Issues, bool) {
	if err == nil {
		return nil, false
	}
	var iss Issues
	if errors.As(err, &iss) {
		return iss, true
	}
	return nil, false
}

// newIssue builds an Issue and resolves its hint through the active translator.
func newIssue(path, code, msg string, params map[string]any, hintData map[string]string) Issue {
	return Issue{Path: path, Code: code, Message: msg, Hint: i18n.T(code, hintData), Params: params}
}

func toIssues(err error) Issues {
	if err == nil {
		return nil
	}
	if ii, ok := AsIssues(err); ok {
		return ii
	}
	var ie eng.IssueError
	if errors.As(err, &ie) {
		return AppendIssues(nil, newIssue(ie.Path, ie.Code, ie.Message, nil, nil))
	}
	return AppendIssues(nil, Issue{Code: CodeParseError, Path: "/", Message: err.Error(), Hint: i18n.T(CodeParseError, nil), Cause: err})
}
