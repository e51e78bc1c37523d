package engine

import (
	"fmt"
	"reflect"
	"runtime"
	"unsafe"

	"jitcc/internal/vmem"
)

// CanExecute reports whether this host can run generated code.
func CanExecute() bool {
	return runtime.GOARCH == "amd64" && vmem.Supported
}

// MakeFunc builds a Go function value of type F that jumps to the entry
// stub at entry. The stub expects Go's register ABI, so F must match the
// signature the stub was generated for.
func MakeFunc[F any](entry uintptr) F {
	if t := reflect.TypeFor[F](); t.Kind() != reflect.Func {
		panic(fmt.Sprintf("engine: MakeFunc needs a function type, got %s", t))
	}
	if entry == 0 {
		panic("engine: MakeFunc of a nil entry")
	}
	// a func value points at a closure whose first word is the code address
	code := new(uintptr)
	*code = entry
	return *(*F)(unsafe.Pointer(&code))
}
