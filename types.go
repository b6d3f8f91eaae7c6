package loadgate

// Severity expresses the severity level for decoding issues.
type Severity int

const (
	Ignore Severity = iota
	Warn
	Error
)

// ParseSeverity maps "ignore", "warn" and "error" to a Severity; anything
// else reports false.
func ParseSeverity(s string) (Severity, bool) {
	switch s {
	case "ignore":
		return Ignore, true
	case "warn":
		return Warn, true
	case "error":
		return Error, true
	}
	return Ignore, false
}

// DecodeOpt bundles wire decoding options.
type DecodeOpt struct {
	OnDuplicateKey Severity // Warn logs and keeps the last value; Error rejects.
	MaxDepth       int      // 0 disables the cap.
	MaxBytes       int64    // 0 disables the cap.
}

// DefaultDecodeOpt is the recommended setting for untrusted load outputs:
// duplicate keys are errors.
func DefaultDecodeOpt() DecodeOpt {
	return DecodeOpt{OnDuplicateKey: Error}
}
