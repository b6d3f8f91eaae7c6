// Package loadgate validates what a page or route load step returns before it
// reaches rendering.
//
// A load step hands back a loosely-typed Output (status, error, redirect,
// dependencies and arbitrary payload fields). Normalize rejects malformed or
// removed shapes with a stable Issue and otherwise produces exactly one of
// three outcomes:
//
//   - Empty: nothing was returned; render with defaults.
//   - Failure: render an error page at Status (always 400-599).
//   - Success: the output unchanged, possibly describing a redirect.
//
// Design policy:
//   - Keep only public APIs in the root package; put token handling under
//     internal/engine and wire formats under source/.
//   - Contract violations are returned as Issue values whose Message text is
//     fixed; match on Code in code, on Message in tooling.
//   - The only side effect is one warning, written to the logger in the
//     context (see package logger), when an error comes without a usable
//     status.
//
// Typical usage:
//
//	out, err := loadgate.FromJSON(ctx, body)
//	oc, err := loadgate.Normalize(ctx, out)
//	switch oc := oc.(type) {
//	case loadgate.Empty:
//	case loadgate.Failure:
//		renderError(oc.Status, oc.Err)
//	case loadgate.Success:
//		if to, ok := oc.Redirect(); ok {
//			redirect(to)
//		}
//	}
package loadgate
