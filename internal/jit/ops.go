package jit

import (
	"errors"
	"fmt"

	"jitcc/internal/diag"
	"jitcc/internal/expr"
	"jitcc/internal/mir"
	"jitcc/internal/symbols"
	"jitcc/internal/types"
)

// Op is a primitive operation emitted inline at its application sites.
type Op interface {
	// Type reports the possibly polymorphic type of the operation.
	Type(env *types.Env) types.Poly
	// Apply emits code for one use at concrete argument and result types.
	Apply(c *Compiler, argTypes []types.TypeID, rty types.TypeID, args []expr.Expr) (mir.Value, error)
}

// BindInstruction registers op under name and publishes its type in the
// type environment.
func (c *Compiler) BindInstruction(name string, op Op) error {
	name = symbols.Canonical(name)
	if _, ok := c.ops[name]; ok {
		return diag.New(diag.DuplicateSymbol, name, "operator already bound")
	}
	c.ops[name] = op
	c.env.Bind(name, op.Type(c.env))
	return nil
}

// LookupOp returns the operator bound to name, or nil.
func (c *Compiler) LookupOp(name string) Op {
	return c.ops[symbols.Canonical(name)]
}

// OpNames lists bound operators in the type environment's order.
func (c *Compiler) OpNames() []string {
	var out []string
	for _, name := range c.env.Names() {
		if _, ok := c.ops[name]; ok {
			out = append(out, name)
		}
	}
	return out
}

func (c *Compiler) applyOp(name string, op Op, e *expr.App) (mir.Value, error) {
	argTypes := make([]types.TypeID, len(e.Args))
	for i, a := range e.Args {
		argTypes[i] = a.Type()
	}
	if _, err := c.in.Instantiate(op.Type(c.env), argTypes, e.Ty); err != nil {
		var de *diag.Error
		if errors.As(err, &de) && de.Name == "" {
			de.Name = name
			return nil, de
		}
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	v, err := op.Apply(c, argTypes, e.Ty, e.Args)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return v, nil
}
