package parser

import (
	"fmt"

	"github.com/skx/subc/ast"
	"github.com/skx/subc/types"
)

// parseProgram is the grammar's start symbol: a non-empty sequence of
// function definitions running to end of input.
func (p *Parser) parseProgram() (*ast.Program, error) {
	var funcs []*ast.Fdef
	for !p.atEOF() {
		fn, err := p.parseFdef()
		if err != nil {
			return nil, err
		}
		funcs = append(funcs, fn)
	}
	if len(funcs) == 0 {
		return nil, p.fail("empty program")
	}
	return &ast.Program{Funcs: funcs}, nil
}

// parseBaseType consumes the `int` keyword. It is the only base type
// the language has; every other type is built from it with `*` and
// `[...]`.
func (p *Parser) parseBaseType() (*types.Type, error) {
	if !p.consumeKeyword("int") {
		return nil, p.fail("expected a type")
	}
	return types.NewInt(), nil
}

// parseDeclarator parses one `*`-prefixed, optionally-array-suffixed
// name on top of an already-parsed base type: `*a`, `b`, `c[4][4]`.
func (p *Parser) parseDeclarator(base *types.Type) (name string, ty *types.Type, dims []int, err error) {
	ty = base
	for p.consume("*") {
		ty = types.NewPtr(ty)
	}
	var ok bool
	name, ok = p.readIdentifier()
	if !ok {
		err = p.fail("identity expected")
		return
	}
	dims, err = p.parseArrayDims()
	if err != nil {
		return
	}
	if len(dims) > 0 {
		ty = types.NewArray(ty, len(dims))
	}
	return
}

// parseFdef parses one function definition. The return type is
// registered before the body is parsed, so a function can call
// itself; a fresh variable scope backs the parameter list and body,
// exactly as though a child parser had been spawned for it.
func (p *Parser) parseFdef() (*ast.Fdef, error) {
	base, err := p.parseBaseType()
	if err != nil {
		return nil, err
	}
	retType := base
	for p.consume("*") {
		retType = types.NewPtr(retType)
	}

	name, ok := p.readIdentifier()
	if !ok {
		return nil, p.fail("identity expected")
	}
	p.defineFunc(name, retType)

	if !p.consume("(") {
		return nil, p.fail("expected (")
	}

	savedVars, savedMemory := p.beginFunctionScope()

	var params []*ast.VarDef
	if !p.check(")") {
		for {
			pbase, err := p.parseBaseType()
			if err != nil {
				p.endFunctionScope(savedVars, savedMemory)
				return nil, err
			}
			pname, pty, pdims, err := p.parseDeclarator(pbase)
			if err != nil {
				p.endFunctionScope(savedVars, savedMemory)
				return nil, err
			}
			v, err := p.defineVar(pname, pty, pdims)
			if err != nil {
				p.endFunctionScope(savedVars, savedMemory)
				return nil, err
			}
			params = append(params, v)
			if p.consume(",") {
				continue
			}
			break
		}
	}
	if !p.consume(")") {
		p.endFunctionScope(savedVars, savedMemory)
		return nil, p.fail("parenthesis unbalanced")
	}
	if !p.consume("{") {
		p.endFunctionScope(savedVars, savedMemory)
		return nil, p.fail("block begin { expected")
	}

	body, err := p.parseBlockBody()
	if err != nil {
		p.endFunctionScope(savedVars, savedMemory)
		return nil, err
	}
	if !p.consume("}") {
		p.endFunctionScope(savedVars, savedMemory)
		return nil, p.fail("brace not balanced")
	}

	required := p.endFunctionScope(savedVars, savedMemory)

	return &ast.Fdef{
		Name:           name,
		ReturnType:     retType,
		Params:         params,
		RequiredMemory: required,
		Body:           body,
	}, nil
}

// parseBlockBody parses the statement sequence inside a `{ ... }`,
// stopping (without consuming) at the closing brace.
func (p *Parser) parseBlockBody() (*ast.Block, error) {
	var stmts []ast.Statement
	for !p.check("}") && !p.atEOF() {
		s, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s)
	}
	return &ast.Block{Stmts: stmts}, nil
}

// parseStatement parses a single statement.
func (p *Parser) parseStatement() (ast.Statement, error) {
	switch {
	case p.consume(";"):
		return &ast.EmptyStmt{}, nil

	case p.consume("{"):
		block, err := p.parseBlockBody()
		if err != nil {
			return nil, err
		}
		if !p.consume("}") {
			return nil, p.fail("brace not balanced")
		}
		return &ast.BlockStmt{Block: block}, nil

	case p.consumeKeyword("if"):
		return p.parseIf()

	case p.consumeKeyword("while"):
		return p.parseWhile()

	case p.consumeKeyword("for"):
		return p.parseFor()

	case p.consumeKeyword("return"):
		assign, err := p.parseAssign()
		if err != nil {
			return nil, err
		}
		if !p.consume(";") {
			return nil, p.fail("; expected")
		}
		return &ast.ExprStmt{Expr: &ast.AssignExpr{Assign: assign, IsReturn: true}}, nil

	case p.checkKeyword("int"):
		decl, err := p.parseVarDeclNoSemi()
		if err != nil {
			return nil, err
		}
		if !p.consume(";") {
			return nil, p.fail("; expected")
		}
		return &ast.ExprStmt{Expr: decl}, nil

	default:
		assign, err := p.parseAssign()
		if err != nil {
			return nil, err
		}
		if !p.consume(";") {
			return nil, p.fail("; expected")
		}
		return &ast.ExprStmt{Expr: &ast.AssignExpr{Assign: assign}}, nil
	}
}

func (p *Parser) parseIf() (ast.Statement, error) {
	if !p.consume("(") {
		return nil, p.fail("expected (")
	}
	cond, err := p.parseAssignExpr()
	if err != nil {
		return nil, err
	}
	if !p.consume(")") {
		return nil, p.fail("parenthesis unbalanced")
	}
	then, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	var elseStmt ast.Statement
	if p.consumeKeyword("else") {
		elseStmt, err = p.parseStatement()
		if err != nil {
			return nil, err
		}
	}
	return &ast.IfStmt{Cond: cond, Then: then, Else: elseStmt}, nil
}

func (p *Parser) parseWhile() (ast.Statement, error) {
	if !p.consume("(") {
		return nil, p.fail("expected (")
	}
	cond, err := p.parseAssignExpr()
	if err != nil {
		return nil, err
	}
	if !p.consume(")") {
		return nil, p.fail("parenthesis unbalanced")
	}
	body, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	return &ast.WhileStmt{Cond: cond, Body: body}, nil
}

func (p *Parser) parseFor() (ast.Statement, error) {
	if !p.consume("(") {
		return nil, p.fail("expected (")
	}

	var init, cond, step ast.Expr
	var err error

	if !p.check(";") {
		if p.checkKeyword("int") {
			init, err = p.parseVarDeclNoSemi()
		} else {
			init, err = p.parseAssignExpr()
		}
		if err != nil {
			return nil, err
		}
	}
	if !p.consume(";") {
		return nil, p.fail("; expected")
	}

	if !p.check(";") {
		cond, err = p.parseAssignExpr()
		if err != nil {
			return nil, err
		}
	}
	if !p.consume(";") {
		return nil, p.fail("; expected")
	}

	if !p.check(")") {
		step, err = p.parseAssignExpr()
		if err != nil {
			return nil, err
		}
	}
	if !p.consume(")") {
		return nil, p.fail("parenthesis unbalanced")
	}

	body, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	return &ast.ForStmt{Init: init, Cond: cond, Step: step, Body: body}, nil
}

// parseVarDeclNoSemi parses `type declarator (, declarator)* [= init]`
// without consuming the trailing `;` - both an ordinary declaration
// statement and a for-loop's init clause share this shape but differ
// in what follows it.
func (p *Parser) parseVarDeclNoSemi() (*ast.VarDeclExpr, error) {
	base, err := p.parseBaseType()
	if err != nil {
		return nil, err
	}

	var defs []*ast.VarDef
	for {
		name, ty, dims, err := p.parseDeclarator(base)
		if err != nil {
			return nil, err
		}
		v, err := p.defineVar(name, ty, dims)
		if err != nil {
			return nil, err
		}
		defs = append(defs, v)
		if p.consume(",") {
			continue
		}
		break
	}

	var init ast.Expr
	if p.consume("=") {
		assign, err := p.parseAssign()
		if err != nil {
			return nil, err
		}
		init = &ast.AssignExpr{Assign: assign}
	}

	return &ast.VarDeclExpr{Defs: defs, Init: init}, nil
}

// parseAssignExpr parses an assignment-expression and wraps it as an
// Expr, the shape an `if`/`while`/`for` clause and a bare
// expression-statement both need.
func (p *Parser) parseAssignExpr() (ast.Expr, error) {
	assign, err := p.parseAssign()
	if err != nil {
		return nil, err
	}
	return &ast.AssignExpr{Assign: assign}, nil
}

// parseAssign is `Equality ["=" Assign]`, right-associative. The
// left-hand side must be shaped like an l-value or the `=` is
// rejected outright.
func (p *Parser) parseAssign() (ast.Assign, error) {
	eq, err := p.parseEquality()
	if err != nil {
		return nil, err
	}
	if p.consume("=") {
		if !ast.IsLvalueEquality(eq) {
			return nil, p.fail("left value is not assignable")
		}
		rhs, err := p.parseAssign()
		if err != nil {
			return nil, err
		}
		return &ast.Asgn{Lhs: eq, Rhs: &ast.AssignExpr{Assign: rhs}}, nil
	}
	return &ast.Rvar{Eq: eq}, nil
}

// parseEquality is `Relational (("==" | "!=") Relational)*`.
func (p *Parser) parseEquality() (*ast.Equality, error) {
	first, err := p.parseRelational()
	if err != nil {
		return nil, err
	}
	eq := &ast.Equality{First: first, Type: first.Type}
	for {
		var op string
		switch {
		case p.consume("=="):
			op = "=="
		case p.consume("!="):
			op = "!="
		default:
			return eq, nil
		}
		val, err := p.parseRelational()
		if err != nil {
			return nil, err
		}
		eq.Rest = append(eq.Rest, ast.EqualityTerm{Op: op, Value: val})
		eq.Type = types.NewInt()
	}
}

// parseRelational is `Add (("<" | "<=" | ">" | ">=") Add)*`.
func (p *Parser) parseRelational() (*ast.Relational, error) {
	first, err := p.parseAdd()
	if err != nil {
		return nil, err
	}
	rel := &ast.Relational{First: first, Type: first.Type}
	for {
		var op string
		switch {
		case p.consume("<="):
			op = "<="
		case p.consume(">="):
			op = ">="
		case p.consume("<"):
			op = "<"
		case p.consume(">"):
			op = ">"
		default:
			return rel, nil
		}
		val, err := p.parseAdd()
		if err != nil {
			return nil, err
		}
		rel.Rest = append(rel.Rest, ast.RelationalTerm{Op: op, Value: val})
		rel.Type = types.NewInt()
	}
}

// parseAdd is `Mul (("+" | "-") Mul)*`, threading pointer-arithmetic
// typing through the chain: adding or subtracting an integer from a
// pointer keeps the pointer's type; a pointer can never be the
// right-hand operand of `-`.
func (p *Parser) parseAdd() (*ast.Add, error) {
	first, err := p.parseMul()
	if err != nil {
		return nil, err
	}
	a := &ast.Add{First: first}
	t := first.Type
	for {
		var op string
		switch {
		case p.consume("+"):
			op = "+"
		case p.consume("-"):
			op = "-"
		default:
			a.Type = t
			return a, nil
		}
		val, err := p.parseMul()
		if err != nil {
			return nil, err
		}
		nt, terr := addResultType(t, val.Type, op)
		if terr != nil {
			return nil, p.fail(terr.Error())
		}
		a.Rest = append(a.Rest, ast.AddTerm{Op: op, Value: val})
		t = nt
	}
}

func addResultType(lhs, rhs *types.Type, op string) (*types.Type, error) {
	if lhs.IsPointerLike() {
		if !rhs.IsIntegral() {
			return nil, fmt.Errorf("bad operator usage")
		}
		return lhs.Decay(), nil
	}
	if rhs.IsPointerLike() {
		if op == "-" {
			return nil, fmt.Errorf("bad operator usage")
		}
		return rhs.Decay(), nil
	}
	return types.NewInt(), nil
}

// parseMul is `Unary (("*" | "/") Unary)*`. Once an operator is
// present, neither operand may be pointer-like and the result is Int;
// a lone Unary keeps its own type.
func (p *Parser) parseMul() (*ast.Mul, error) {
	first, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	m := &ast.Mul{First: first}
	t := first.Type()
	for {
		var op string
		switch {
		case p.consume("*"):
			op = "*"
		case p.consume("/"):
			op = "/"
		default:
			m.Type = t
			return m, nil
		}
		val, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		if !t.IsIntegral() || !val.Type().IsIntegral() {
			return nil, p.fail("bad operator usage")
		}
		m.Rest = append(m.Rest, ast.MulTerm{Op: op, Value: val})
		t = types.NewInt()
	}
}

// parseUnary is `("&" | "*") Unary | ["+"|"-"] Primary ("[" Assign "]")*`.
func (p *Parser) parseUnary() (ast.Unary, error) {
	if p.consume("&") {
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		if !ast.IsLvalueUnary(inner) {
			return nil, p.fail("cannot take the address of a non-lvalue")
		}
		return &ast.PtrUnary{Op: "&", Inner: inner, Typ: types.NewPtr(inner.Type())}, nil
	}
	if p.consume("*") {
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		it := inner.Type()
		if !it.IsPointerLike() {
			return nil, p.failf("cannot get ref of type %s", it)
		}
		elem, ierr := it.Index()
		if ierr != nil {
			return nil, p.fail(ierr.Error())
		}
		return &ast.PtrUnary{Op: "*", Inner: inner, Typ: elem}, nil
	}

	sign := ""
	if p.consume("+") {
		sign = "+"
	} else if p.consume("-") {
		sign = "-"
	}

	prim, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}

	ty := prim.Type()
	arrayDepth := 0
	if ty.Kind == types.Array {
		arrayDepth = ty.Depth
	}
	var indices []ast.Expr
	for p.consume("[") {
		idx, err := p.parseAssignExpr()
		if err != nil {
			return nil, err
		}
		if !p.consume("]") {
			return nil, p.fail("expected ]")
		}
		if ae, ok := idx.(*ast.AssignExpr); ok && !ae.Assign.Type().CanBeArrayIndex() {
			return nil, p.fail("this type is not available for array index")
		}
		if arrayDepth > 0 && len(indices)+1 > arrayDepth {
			return nil, p.failf("this array has %d dimensions, cannot access %d", arrayDepth, len(indices)+1)
		}
		next, ierr := ty.Index()
		if ierr != nil {
			return nil, p.fail(ierr.Error())
		}
		indices = append(indices, idx)
		ty = next
	}

	return &ast.VarUnary{Sign: sign, Prim: prim, Indices: indices, Typ: ty}, nil
}

// parsePrimary is `"(" Assign ")" | number | ident "(" args ")" | ident`.
func (p *Parser) parsePrimary() (ast.Primary, error) {
	if p.consume("(") {
		inner, err := p.parseAssignExpr()
		if err != nil {
			return nil, err
		}
		if !p.consume(")") {
			return nil, p.fail("parenthesis unbalanced")
		}
		return &ast.ParenPrimary{Inner: inner, Typ: inner.(*ast.AssignExpr).Assign.Type()}, nil
	}

	if p.checkFunc(isDigit) {
		lit := p.consumeWhile(isDigit)
		return &ast.NumPrimary{Value: lit, Typ: types.NewLInt()}, nil
	}

	name, ok := p.readIdentifier()
	if !ok {
		return nil, p.fail("number or ( expected")
	}

	if p.consume("(") {
		var args []ast.Expr
		if !p.check(")") {
			for {
				arg, err := p.parseAssignExpr()
				if err != nil {
					return nil, err
				}
				args = append(args, arg)
				if p.consume(",") {
					continue
				}
				break
			}
		}
		if !p.consume(")") {
			return nil, p.fail("parenthesis unbalanced")
		}
		ret, ok := p.lookupFunc(name)
		if !ok {
			return nil, p.fail(fmt.Sprintf("func %s is undefined", name))
		}
		return &ast.FcallPrimary{Name: name, Args: args, Typ: ret}, nil
	}

	v, ok := p.lookupVar(name)
	if !ok {
		return nil, p.fail(fmt.Sprintf("var %s undeclared", name))
	}
	return &ast.LvPrimary{Var: v, Typ: v.Type}, nil
}
