package jit

import (
	"jitcc/internal/expr"
	"jitcc/internal/symbols"
)

// InlineGlobals rewrites e so calls of global functions become applications
// of their retained bodies and references to global constants become their
// literals. A body is not inlined where a local of the call site would
// capture one of its free names, nor into itself. Globals defined by other
// expressions stay references so their initializers run once.
func (c *Compiler) InlineGlobals(e expr.Expr) expr.Expr {
	return c.inline(e, map[string]int{}, map[string]bool{})
}

func (c *Compiler) inline(e expr.Expr, bound map[string]int, active map[string]bool) expr.Expr {
	switch n := e.(type) {
	case *expr.Var:
		if bound[n.Name] > 0 {
			return n
		}
		if lit, ok := c.retained[symbols.Canonical(n.Name)].(*expr.Lit); ok {
			return lit
		}
		return n
	case *expr.Let:
		value := c.inline(n.Value, bound, active)
		bound[n.Name]++
		body := c.inline(n.Body, bound, active)
		bound[n.Name]--
		if value == n.Value && body == n.Body {
			return n
		}
		return &expr.Let{Ty: n.Ty, Name: n.Name, Value: value, Body: body}
	case *expr.LetRec:
		for _, b := range n.Bindings {
			bound[b.Name]++
		}
		out := &expr.LetRec{Ty: n.Ty, Bindings: make([]expr.Binding, len(n.Bindings))}
		changed := false
		for i, b := range n.Bindings {
			fn := c.inline(b.Fn, bound, active).(*expr.Fn)
			changed = changed || fn != b.Fn
			out.Bindings[i] = expr.Binding{Name: b.Name, Fn: fn}
		}
		out.Body = c.inline(n.Body, bound, active)
		for _, b := range n.Bindings {
			bound[b.Name]--
		}
		if !changed && out.Body == n.Body {
			return n
		}
		return out
	case *expr.Fn:
		for _, p := range n.Params {
			bound[p]++
		}
		body := c.inline(n.Body, bound, active)
		for _, p := range n.Params {
			bound[p]--
		}
		if body == n.Body {
			return n
		}
		return &expr.Fn{Ty: n.Ty, Params: n.Params, Body: body}
	case *expr.App:
		args := make([]expr.Expr, len(n.Args))
		changed := false
		for i, a := range n.Args {
			args[i] = c.inline(a, bound, active)
			changed = changed || args[i] != a
		}
		if fn := c.inlinable(n, bound, active); fn != nil {
			return &expr.App{Ty: n.Ty, Fn: fn, Args: args}
		}
		head := c.inline(n.Fn, bound, active)
		if !changed && head == n.Fn {
			return n
		}
		return &expr.App{Ty: n.Ty, Fn: head, Args: args}
	case *expr.If:
		cond := c.inline(n.Cond, bound, active)
		then := c.inline(n.Then, bound, active)
		els := c.inline(n.Else, bound, active)
		if cond == n.Cond && then == n.Then && els == n.Else {
			return n
		}
		return &expr.If{Ty: n.Ty, Cond: cond, Then: then, Else: els}
	default:
		return e
	}
}

// inlinable returns the inlined body of the global function n calls, or
// nil when the call must stay a call.
func (c *Compiler) inlinable(n *expr.App, bound map[string]int, active map[string]bool) *expr.Fn {
	v, ok := n.Fn.(*expr.Var)
	if !ok || bound[v.Name] > 0 {
		return nil
	}
	name := symbols.Canonical(v.Name)
	fn, ok := c.retained[name].(*expr.Fn)
	if !ok || active[name] || len(fn.Params) != len(n.Args) {
		return nil
	}
	if v.Ty != 0 && fn.Ty != v.Ty {
		return nil
	}
	for free := range expr.FreeVars(fn) {
		if bound[free] > 0 {
			return nil
		}
	}
	active[name] = true
	defer delete(active, name)
	// the body is closed over globals only
	body := c.inline(fn, map[string]int{}, active).(*expr.Fn)
	return body
}
