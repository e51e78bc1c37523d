// Package diag defines the error model shared by every stage of the JIT core.
//
// # Data model
//
// Error is the central record. It contains:
//
//   - Code – compact numeric identifier (see codes.go) with stable string form.
//   - Name – the symbol the failure is about, when there is one.
//   - Msg – human oriented text; keep it short and actionable.
//   - Cause – an optional underlying error.
//
// Every Error unwraps to the sentinel of its code, so callers test the
// category with errors.Is(err, diag.ErrTypeMismatch) regardless of how many
// fmt.Errorf("...: %w") layers were added on the way up.
//
// # Panics
//
// Contract violations that indicate a bug in the caller (releasing code that
// was never produced, popping the root scope) panic with an *Error value
// instead of returning one.
package diag
