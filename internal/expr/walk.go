package expr

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"jitcc/internal/types"
)

// Walk calls visit on e and its children in pre-order. Returning false
// skips the children of that node.
func Walk(e Expr, visit func(Expr) bool) {
	if e == nil || !visit(e) {
		return
	}
	switch e := e.(type) {
	case *Let:
		Walk(e.Value, visit)
		Walk(e.Body, visit)
	case *LetRec:
		for _, b := range e.Bindings {
			Walk(b.Fn, visit)
		}
		Walk(e.Body, visit)
	case *Fn:
		Walk(e.Body, visit)
	case *App:
		Walk(e.Fn, visit)
		for _, a := range e.Args {
			Walk(a, visit)
		}
	case *If:
		Walk(e.Cond, visit)
		Walk(e.Then, visit)
		Walk(e.Else, visit)
	}
}

// FreeVars returns the names referenced by e that e itself does not bind.
func FreeVars(e Expr) map[string]struct{} {
	free := make(map[string]struct{})
	collectFree(e, map[string]int{}, free)
	return free
}

func collectFree(e Expr, bound map[string]int, free map[string]struct{}) {
	bind := func(names ...string) {
		for _, n := range names {
			bound[n]++
		}
	}
	unbind := func(names ...string) {
		for _, n := range names {
			if bound[n]--; bound[n] == 0 {
				delete(bound, n)
			}
		}
	}
	switch e := e.(type) {
	case *Var:
		if _, ok := bound[e.Name]; !ok {
			free[e.Name] = struct{}{}
		}
	case *Let:
		collectFree(e.Value, bound, free)
		bind(e.Name)
		collectFree(e.Body, bound, free)
		unbind(e.Name)
	case *LetRec:
		names := make([]string, len(e.Bindings))
		for i, b := range e.Bindings {
			names[i] = b.Name
		}
		bind(names...)
		for _, b := range e.Bindings {
			collectFree(b.Fn, bound, free)
		}
		collectFree(e.Body, bound, free)
		unbind(names...)
	case *Fn:
		bind(e.Params...)
		collectFree(e.Body, bound, free)
		unbind(e.Params...)
	case *App:
		collectFree(e.Fn, bound, free)
		for _, a := range e.Args {
			collectFree(a, bound, free)
		}
	case *If:
		collectFree(e.Cond, bound, free)
		collectFree(e.Then, bound, free)
		collectFree(e.Else, bound, free)
	}
}

// Rewrite rebuilds e bottom-up, replacing every node n by f(n) once its
// children have been rewritten. Nodes f leaves alone are shared.
func Rewrite(e Expr, f func(Expr) Expr) Expr {
	if e == nil {
		return nil
	}
	switch n := e.(type) {
	case *Let:
		v, b := Rewrite(n.Value, f), Rewrite(n.Body, f)
		if v != n.Value || b != n.Body {
			e = &Let{Ty: n.Ty, Name: n.Name, Value: v, Body: b}
		}
	case *LetRec:
		changed := false
		bs := make([]Binding, len(n.Bindings))
		for i, b := range n.Bindings {
			fn := Rewrite(b.Fn, f).(*Fn)
			changed = changed || fn != b.Fn
			bs[i] = Binding{Name: b.Name, Fn: fn}
		}
		body := Rewrite(n.Body, f)
		if changed || body != n.Body {
			e = &LetRec{Ty: n.Ty, Bindings: bs, Body: body}
		}
	case *Fn:
		if b := Rewrite(n.Body, f); b != n.Body {
			e = &Fn{Ty: n.Ty, Params: n.Params, Body: b}
		}
	case *App:
		fn := Rewrite(n.Fn, f)
		changed := fn != n.Fn
		args := make([]Expr, len(n.Args))
		for i, a := range n.Args {
			args[i] = Rewrite(a, f)
			changed = changed || args[i] != a
		}
		if changed {
			e = &App{Ty: n.Ty, Fn: fn, Args: args}
		}
	case *If:
		c, t, el := Rewrite(n.Cond, f), Rewrite(n.Then, f), Rewrite(n.Else, f)
		if c != n.Cond || t != n.Then || el != n.Else {
			e = &If{Ty: n.Ty, Cond: c, Then: t, Else: el}
		}
	}
	return f(e)
}

// Format renders e as an s-expression. With a non-nil interner variables
// and functions are annotated with their types.
func Format(e Expr, in *types.Interner) string {
	var sb strings.Builder
	format(&sb, e, in)
	return sb.String()
}

func format(sb *strings.Builder, e Expr, in *types.Interner) {
	switch e := e.(type) {
	case nil:
		sb.WriteString("<nil>")
	case *Lit:
		switch {
		case e.IsString():
			sb.WriteString(strconv.Quote(e.Str))
		case e.Kind == types.KindUnit:
			sb.WriteString("()")
		case e.Kind == types.KindBool:
			sb.WriteString(strconv.FormatBool(e.Int != 0))
		case e.Kind == types.KindChar:
			sb.WriteString(strconv.QuoteRune(rune(byte(e.Int))))
		case e.Kind.IsFloat():
			sb.WriteString(strconv.FormatFloat(e.Float, 'g', -1, 64))
		default:
			sb.WriteString(strconv.FormatInt(e.Int, 10))
		}
	case *Var:
		sb.WriteString(e.Name)
		if in != nil {
			fmt.Fprintf(sb, ":%s", in.String(e.Ty))
		}
	case *Let:
		fmt.Fprintf(sb, "(let %s ", e.Name)
		format(sb, e.Value, in)
		sb.WriteByte(' ')
		format(sb, e.Body, in)
		sb.WriteByte(')')
	case *LetRec:
		sb.WriteString("(letrec (")
		for i, b := range e.Bindings {
			if i > 0 {
				sb.WriteByte(' ')
			}
			fmt.Fprintf(sb, "[%s ", b.Name)
			format(sb, b.Fn, in)
			sb.WriteByte(']')
		}
		sb.WriteString(") ")
		format(sb, e.Body, in)
		sb.WriteByte(')')
	case *Fn:
		fmt.Fprintf(sb, "(fn (%s) ", strings.Join(e.Params, " "))
		format(sb, e.Body, in)
		sb.WriteByte(')')
	case *App:
		sb.WriteByte('(')
		format(sb, e.Fn, nil)
		for _, a := range e.Args {
			sb.WriteByte(' ')
			format(sb, a, in)
		}
		sb.WriteByte(')')
	case *If:
		sb.WriteString("(if ")
		format(sb, e.Cond, in)
		sb.WriteByte(' ')
		format(sb, e.Then, in)
		sb.WriteByte(' ')
		format(sb, e.Else, in)
		sb.WriteByte(')')
	default:
		fmt.Fprintf(sb, "<%T>", e)
	}
}

// SortedNames returns the keys of a name set in order.
func SortedNames(set map[string]struct{}) []string {
	return slices.Sorted(maps.Keys(set))
}
