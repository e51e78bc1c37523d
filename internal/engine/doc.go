// Package engine turns finalized compilation units into executable images
// and keeps track of them.
//
// A Manager owns at most one open unit at a time (Current). Finalize runs
// the pass pipeline over it, lowers it with backend/amd64, resolves its
// external declarations against earlier images and host symbols, and maps
// the result executable. Images stay alive until released.
//
// Generated code runs on a private stack owned by the Manager, so calls into
// images of one Manager must not overlap. Go code calls an entry stub through
// a function value built by MakeFunc.
package engine
