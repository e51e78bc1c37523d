// Package ops provides the standard primitive operators of the compiler:
// arithmetic, bitwise, comparison, logic, numeric conversion and arrays.
package ops

import (
	"jitcc/internal/diag"
	"jitcc/internal/jit"
	"jitcc/internal/types"
)

// Entry is a named operator.
type Entry struct {
	Name string
	Op   jit.Op
}

// Standard returns the operator set in registration order.
func Standard() []Entry {
	out := []Entry{
		{"+", binary{"+", opsAdd}},
		{"-", binary{"-", opsSub}},
		{"*", binary{"*", opsMul}},
		{"/", binary{"/", opsDiv}},
		{"%", binary{"%", opsRem}},
		{"band", binary{"band", opsAnd}},
		{"bor", binary{"bor", opsOr}},
		{"bxor", binary{"bxor", opsXor}},
		{"shl", binary{"shl", opsShl}},
		{"shr", binary{"shr", opsShr}},
		{"neg", negate{}},
		{"sqrt", sqrt{}},
		{"not", not{}},
		{"and", logic{or: false}},
		{"or", logic{or: true}},
		{"newArray", newArray{}},
		{"length", length{}},
		{"index", index{}},
		{"update", update{}},
	}
	for _, cmp := range comparisons {
		out = append(out, Entry{cmp.name, compare{cmp}})
	}
	for _, cv := range conversions {
		out = append(out, Entry{cv.name, convert{cv}})
	}
	return out
}

// Install binds every standard operator into c.
func Install(c *jit.Compiler) error {
	for _, e := range Standard() {
		if err := c.BindInstruction(e.Name, e.Op); err != nil {
			return err
		}
	}
	return nil
}

func kindOf(c *jit.Compiler, t types.TypeID) types.Kind {
	return c.TypeEnv().Types().KindOf(t)
}

func unsupported(c *jit.Compiler, op string, t types.TypeID) error {
	return diag.New(diag.TypeMismatch, op, "not defined on %s", c.TypeEnv().Types().String(t))
}
