// Package expr defines the typed expression forms the JIT compiles.
//
// Every node carries the monotype assigned by the type checker. The forms
// are deliberately small: richer surface constructs are desugared into
// them before they reach the compiler.
package expr

import "jitcc/internal/types"

// Expr is a type-annotated expression node.
type Expr interface {
	Type() types.TypeID
	exprNode()
}

// Lit is a literal. Int holds bool, char, byte, short, int and long values,
// Float holds float and double values, Str holds strings.
type Lit struct {
	Ty    types.TypeID
	Kind  types.Kind
	Int   int64
	Float float64
	Str   string
}

// Var references a local, constant, global or operator by name.
type Var struct {
	Ty   types.TypeID
	Name string
}

// Let binds Name to Value while compiling Body.
type Let struct {
	Ty    types.TypeID
	Name  string
	Value Expr
	Body  Expr
}

// Binding names one function of a LetRec group.
type Binding struct {
	Name string
	Fn   *Fn
}

// LetRec binds a group of possibly mutually recursive functions.
type LetRec struct {
	Ty       types.TypeID
	Bindings []Binding
	Body     Expr
}

// Fn is a function literal. Ty is its function type; parameter types come
// from it.
type Fn struct {
	Ty     types.TypeID
	Params []string
	Body   Expr
}

// App applies Fn to Args. Fn is usually a Var naming an operator or a
// function, or a Fn literal.
type App struct {
	Ty   types.TypeID
	Fn   Expr
	Args []Expr
}

// If evaluates Then or Else depending on Cond.
type If struct {
	Ty   types.TypeID
	Cond Expr
	Then Expr
	Else Expr
}

func (e *Lit) Type() types.TypeID    { return e.Ty }
func (e *Var) Type() types.TypeID    { return e.Ty }
func (e *Let) Type() types.TypeID    { return e.Ty }
func (e *LetRec) Type() types.TypeID { return e.Ty }
func (e *Fn) Type() types.TypeID     { return e.Ty }
func (e *App) Type() types.TypeID    { return e.Ty }
func (e *If) Type() types.TypeID     { return e.Ty }

func (*Lit) exprNode()    {}
func (*Var) exprNode()    {}
func (*Let) exprNode()    {}
func (*LetRec) exprNode() {}
func (*Fn) exprNode()     {}
func (*App) exprNode()    {}
func (*If) exprNode()     {}
