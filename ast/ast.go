// Package ast contains the typed AST produced by the parser: a pure
// tree with unique ownership throughout. Every child belongs to
// exactly one parent, so there are no back-edges to represent.
//
// Every expression-level node (the binary chains, Unary, Primary)
// carries the Type the parser resolved for it; the generator never
// re-derives a type, it only reads the one already annotated here.
package ast

import "github.com/skx/subc/types"

// Program is the root of the tree: a non-empty sequence of function
// definitions.
type Program struct {
	Funcs []*Fdef
}

// VarDef is a resolved identifier binding - a local variable or a
// function parameter. Offset is the number of bytes subtracted from
// rbp to reach this variable's slot. Dims holds, for an array, the
// already-constant-folded size of each dimension (see parser's
// constant-folding of array-size expressions).
type VarDef struct {
	Name   string
	Type   *types.Type
	Offset int
	Dims   []int
}

// Fdef is a single function definition: a name, a return type, its
// ordered parameters, the number of local stack bytes it requires,
// and its body.
type Fdef struct {
	Name           string
	ReturnType     *types.Type
	Params         []*VarDef
	RequiredMemory int
	Body           *Block
}

// Block is a brace-delimited sequence of statements.
type Block struct {
	Stmts []Statement
}

// Statement is implemented by every statement-level node.
type Statement interface {
	statementNode()
}

// IfStmt is `if (Cond) Then [else Else]`. Else is nil when there is
// no else-branch.
type IfStmt struct {
	Cond Expr
	Then Statement
	Else Statement
}

// WhileStmt is `while (Cond) Body`.
type WhileStmt struct {
	Cond Expr
	Body Statement
}

// ForStmt is `for (Init; Cond; Step) Body`; any of Init, Cond, Step
// may be nil when that clause was omitted.
type ForStmt struct {
	Init Expr
	Cond Expr
	Step Expr
	Body Statement
}

// BlockStmt wraps a nested Block as a Statement.
type BlockStmt struct {
	Block *Block
}

// ExprStmt is a bare `expr ;`.
type ExprStmt struct {
	Expr Expr
}

// EmptyStmt is a bare `;`.
type EmptyStmt struct{}

func (*IfStmt) statementNode()    {}
func (*WhileStmt) statementNode() {}
func (*ForStmt) statementNode()   {}
func (*BlockStmt) statementNode() {}
func (*ExprStmt) statementNode()  {}
func (*EmptyStmt) statementNode() {}

// Expr is implemented by the two expression forms a statement can
// hold: a variable declaration, or an assignment-expression.
type Expr interface {
	exprNode()
}

// VarDeclExpr is `type declarator (, declarator)* [= init] ;`. Init is
// nil when there is no initializer; when present, it is applied to
// every declarator in Defs.
type VarDeclExpr struct {
	Defs []*VarDef
	Init Expr
}

// AssignExpr wraps an Assign; IsReturn is set when the statement began
// with the `return` keyword.
type AssignExpr struct {
	Assign   Assign
	IsReturn bool
}

func (*VarDeclExpr) exprNode() {}
func (*AssignExpr) exprNode()  {}

// Assign is implemented by a bare r-value (Rvar) and an assignment
// (Asgn).
type Assign interface {
	assignNode()
	Type() *types.Type
}

// Rvar is an Equality that is not the target of an assignment.
type Rvar struct {
	Eq *Equality
}

// Asgn is `Lhs = Rhs`. Lhs must satisfy IsLvalueEquality.
type Asgn struct {
	Lhs *Equality
	Rhs Expr
}

func (*Rvar) assignNode() {}
func (*Asgn) assignNode() {}

// Type returns the Equality's type for a bare r-value.
func (r *Rvar) Type() *types.Type { return r.Eq.Type }

// Type returns the l-value's type for an assignment.
func (a *Asgn) Type() *types.Type { return a.Lhs.Type }

// Equality is `Relational (("==" | "!=") Relational)*`.
type Equality struct {
	First *Relational
	Rest  []EqualityTerm
	Type  *types.Type
}

// EqualityTerm is one (operator, operand) pair in an Equality chain.
type EqualityTerm struct {
	Op    string
	Value *Relational
}

// Relational is `Add (("<" | "<=" | ">" | ">=") Add)*`.
type Relational struct {
	First *Add
	Rest  []RelationalTerm
	Type  *types.Type
}

// RelationalTerm is one (operator, operand) pair in a Relational chain.
type RelationalTerm struct {
	Op    string
	Value *Add
}

// Add is `Mul (("+" | "-") Mul)*`.
type Add struct {
	First *Mul
	Rest  []AddTerm
	Type  *types.Type
}

// AddTerm is one (operator, operand) pair in an Add chain.
type AddTerm struct {
	Op    string
	Value *Mul
}

// Mul is `Unary (("*" | "/") Unary)*`.
type Mul struct {
	First Unary
	Rest  []MulTerm
	Type  *types.Type
}

// MulTerm is one (operator, operand) pair in a Mul chain.
type MulTerm struct {
	Op    string
	Value Unary
}

// Unary is implemented by the pointer forms (PtrUnary: `&x`, `*x`) and
// the plain variable/primary form (VarUnary: optional sign, a
// Primary, and trailing array indices).
type Unary interface {
	unaryNode()
	Type() *types.Type
}

// PtrUnary is `& Unary` or `* Unary`.
type PtrUnary struct {
	Op    string // "&" or "*"
	Inner Unary
	Typ   *types.Type
}

// VarUnary is `[+|-] Primary ("[" Expr "]")*`.
type VarUnary struct {
	Sign    string // "", "+", or "-"
	Prim    Primary
	Indices []Expr
	Typ     *types.Type
}

func (*PtrUnary) unaryNode() {}
func (*VarUnary) unaryNode() {}

// Type returns the resolved type of a pointer unary.
func (p *PtrUnary) Type() *types.Type { return p.Typ }

// Type returns the resolved type of a variable/primary unary.
func (v *VarUnary) Type() *types.Type { return v.Typ }

// Primary is implemented by the four leaf expression forms.
type Primary interface {
	primaryNode()
	Type() *types.Type
}

// NumPrimary is an integer literal.
type NumPrimary struct {
	Value string
	Typ   *types.Type
}

// ParenPrimary is a parenthesized expression.
type ParenPrimary struct {
	Inner Expr
	Typ   *types.Type
}

// FcallPrimary is a function call `name(arg, arg, ...)`.
type FcallPrimary struct {
	Name string
	Args []Expr
	Typ  *types.Type
}

// LvPrimary is a reference to a previously-declared variable.
type LvPrimary struct {
	Var *VarDef
	Typ *types.Type
}

func (*NumPrimary) primaryNode()   {}
func (*ParenPrimary) primaryNode() {}
func (*FcallPrimary) primaryNode() {}
func (*LvPrimary) primaryNode()    {}

// Type returns the resolved type of a numeric literal.
func (n *NumPrimary) Type() *types.Type { return n.Typ }

// Type returns the resolved type of a parenthesized expression.
func (p *ParenPrimary) Type() *types.Type { return p.Typ }

// Type returns the resolved return type of a function call.
func (f *FcallPrimary) Type() *types.Type { return f.Typ }

// Type returns the resolved type of a variable reference.
func (l *LvPrimary) Type() *types.Type { return l.Typ }
