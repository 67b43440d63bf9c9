package codegen

import (
	"fmt"

	"github.com/skx/subc/ast"
	"github.com/skx/subc/types"
	"github.com/skx/subc/util"
)

// genStatementExpr compiles an Expr used at statement position
// (a declaration, or a bare `expr ;`/`return expr ;`). Unlike genExpr,
// it owns disposing of the value the expression leaves behind: a
// `return` pops it into rax and jumps to the epilogue; anything else
// just pops and discards it, since nothing downstream will ever read
// it.
func (g *Generator) genStatementExpr(e ast.Expr) ([]string, error) {
	switch n := e.(type) {
	case *ast.VarDeclExpr:
		return g.genVarDecl(n)
	case *ast.AssignExpr:
		trailer := []string{"pop rax"}
		if n.IsReturn {
			trailer = append(trailer, fmt.Sprintf("jmp %s", g.epilogueLabel))
		}
		return util.ConcatMulti(
			util.Emit(g.genAssign(n.Assign)),
			util.Emit(trailer, nil),
		)
	default:
		return nil, fmt.Errorf("codegen: unhandled statement expression %T", e)
	}
}

// genExpr compiles an Expr used in a value-producing position -  an
// if/while/for clause, a call argument, an array index, or the
// right-hand side of an assignment. These are always AssignExprs; a
// declaration can only ever appear at statement position.
func (g *Generator) genExpr(e ast.Expr) ([]string, error) {
	ae, ok := e.(*ast.AssignExpr)
	if !ok {
		return nil, fmt.Errorf("codegen: expected a value-producing expression, got %T", e)
	}
	return g.genAssign(ae.Assign)
}

// genVarDecl applies a declaration's shared initializer, if any, to
// every declarator it names, and stamps the stride metadata for any
// array declared here. A declaration with no initializer and no array
// declarators emits nothing - the bytes it needs were already reserved
// by the function's prologue.
func (g *Generator) genVarDecl(n *ast.VarDeclExpr) ([]string, error) {
	emissions := []util.Emission{}
	for _, def := range n.Defs {
		if def.Type.Kind == types.Array {
			emissions = append(emissions, util.Emit(g.genArrayMetadata(def), nil))
		}
	}

	if n.Init == nil {
		return util.ConcatMulti(emissions...)
	}

	emissions = append(emissions, util.Emit(g.genExpr(n.Init)), util.Emit([]string{"pop rax"}, nil))
	for _, def := range n.Defs {
		// Array initializer lists aren't supported; the shared
		// initializer only ever applies to scalar declarators.
		if def.Type.Kind == types.Array {
			continue
		}
		size := def.Type.Size()
		store := fmt.Sprintf("mov %s [rbp-%d], %s", util.SizeDirective(size), def.Offset, util.Register(size, "a"))
		emissions = append(emissions, util.Emit([]string{store}, nil))
	}
	return util.ConcatMulti(emissions...)
}

// genArrayMetadata stamps the byte-stride of each dimension of def
// into the metadata slots sitting directly above its data, one mov
// per dimension, so that genIndexedAddress can read them back when
// the array is indexed.
func (g *Generator) genArrayMetadata(def *ast.VarDef) []string {
	itemSize := def.Type.Elem.Size()
	var out []string
	for i := 0; i < def.Type.Depth; i++ {
		stride := itemSize
		for j := i + 1; j < len(def.Dims); j++ {
			stride *= def.Dims[j]
		}
		out = append(out, fmt.Sprintf("mov QWORD PTR [rbp-%d], %d", def.Offset-(i+2)*8, stride))
	}
	return out
}

// genAssign compiles an Assign, leaving its resulting value on the
// stack - the value assigned, for an Asgn, so that `a = b = 5` keeps
// working; the bare comparison/arithmetic value, for an Rvar.
func (g *Generator) genAssign(assign ast.Assign) ([]string, error) {
	switch n := assign.(type) {
	case *ast.Rvar:
		return g.genEquality(n.Eq)
	case *ast.Asgn:
		size := n.Lhs.Type.Size()
		store := fmt.Sprintf("mov %s [rbx], %s", util.SizeDirective(size), util.Register(size, "a"))
		return util.ConcatMulti(
			util.Emit(g.genExpr(n.Rhs)),
			util.Emit(g.genLvalueAddress(n.Lhs)),
			util.Emit([]string{"pop rbx", "pop rax", store, "push rax"}, nil),
		)
	default:
		return nil, fmt.Errorf("codegen: unhandled assign %T", assign)
	}
}

// genLvalueAddress computes the address an assignable Equality names.
// It relies on ast.IsLvalueEquality having already rejected every
// shape that doesn't bottom out, through zero or more `*`
// dereferences, in a plain variable reference.
func (g *Generator) genLvalueAddress(eq *ast.Equality) ([]string, error) {
	return g.genLvalueUnaryAddress(eq.First.First.First.First)
}

func (g *Generator) genLvalueUnaryAddress(u ast.Unary) ([]string, error) {
	switch n := u.(type) {
	case *ast.VarUnary:
		return g.genVarAddress(n)
	case *ast.PtrUnary:
		if n.Op != "*" {
			return nil, fmt.Errorf("codegen: %s is not an assignable location", n.Op)
		}
		// The address of *p is simply p's value.
		return g.genUnary(n.Inner)
	default:
		return nil, fmt.Errorf("codegen: unhandled lvalue %T", u)
	}
}

// genEquality, genRelational, genAdd and genMul all fold a First
// operand against a left-to-right chain of (operator, operand) pairs:
// evaluate both sides, pop them back off in rhs-then-lhs order, compute,
// and push the one result - ready to be either the next fold's lhs or
// the chain's final value. Each fold joins its emitted line-groups with
// util.ConcatMulti, so the first failing sub-expression aborts the
// whole chain.

func (g *Generator) genEquality(eq *ast.Equality) ([]string, error) {
	emissions := []util.Emission{util.Emit(g.genRelational(eq.First))}
	for _, term := range eq.Rest {
		setInstr := "sete al"
		if term.Op == "!=" {
			setInstr = "setne al"
		}
		emissions = append(emissions,
			util.Emit(g.genRelational(term.Value)),
			util.Emit([]string{"pop rdi", "pop rax", "cmp rax, rdi", setInstr, "movzx rax, al", "push rax"}, nil),
		)
	}
	return util.ConcatMulti(emissions...)
}

func (g *Generator) genRelational(rel *ast.Relational) ([]string, error) {
	emissions := []util.Emission{util.Emit(g.genAdd(rel.First))}
	for _, term := range rel.Rest {
		setInstr := relationalSetInstr(term.Op)
		emissions = append(emissions,
			util.Emit(g.genAdd(term.Value)),
			util.Emit([]string{"pop rdi", "pop rax", "cmp rax, rdi", setInstr, "movzx rax, al", "push rax"}, nil),
		)
	}
	return util.ConcatMulti(emissions...)
}

func relationalSetInstr(op string) string {
	switch op {
	case "<":
		return "setl al"
	case "<=":
		return "setle al"
	case ">":
		return "setg al"
	default:
		return "setge al"
	}
}

// genAdd additionally scales whichever side is pointer-like by
// sizeof_item of the pointee before combining, so `p + 1` advances by
// one element rather than one byte.
func (g *Generator) genAdd(a *ast.Add) ([]string, error) {
	emissions := []util.Emission{util.Emit(g.genMul(a.First))}
	curType := a.First.Type
	for _, term := range a.Rest {
		var scale []string
		if curType.IsPointerLike() {
			if s := curType.SizeOfItem(); s != 1 {
				scale = []string{fmt.Sprintf("imul rdi, %d", s)}
			}
		} else if term.Value.Type.IsPointerLike() {
			if s := term.Value.Type.SizeOfItem(); s != 1 {
				scale = []string{fmt.Sprintf("imul rax, %d", s)}
			}
		}
		combine := "add rax, rdi"
		if term.Op == "-" {
			combine = "sub rax, rdi"
		}
		emissions = append(emissions,
			util.Emit(g.genMul(term.Value)),
			util.Emit([]string{"pop rdi", "pop rax"}, nil),
			util.Emit(scale, nil),
			util.Emit([]string{combine, "push rax"}, nil),
		)
		curType = nextAddType(curType, term.Value.Type)
	}
	return util.ConcatMulti(emissions...)
}

func nextAddType(lhs, rhs *types.Type) *types.Type {
	if lhs.IsPointerLike() {
		return lhs.Decay()
	}
	if rhs.IsPointerLike() {
		return rhs.Decay()
	}
	return types.NewInt()
}

func (g *Generator) genMul(m *ast.Mul) ([]string, error) {
	emissions := []util.Emission{util.Emit(g.genUnary(m.First))}
	for _, term := range m.Rest {
		opLines := []string{"imul rax, rdi"}
		if term.Op == "/" {
			opLines = []string{"cqo", "idiv rdi"}
		}
		emissions = append(emissions,
			util.Emit(g.genUnary(term.Value)),
			util.Emit([]string{"pop rdi", "pop rax"}, nil),
			util.Emit(opLines, nil),
			util.Emit([]string{"push rax"}, nil),
		)
	}
	return util.ConcatMulti(emissions...)
}

func (g *Generator) genUnary(u ast.Unary) ([]string, error) {
	switch n := u.(type) {
	case *ast.PtrUnary:
		switch n.Op {
		case "&":
			return g.genLvalueUnaryAddress(n.Inner)
		case "*":
			// A pointer-to-pointer value can be loaded and passed
			// around fine; it's stacking two `*` in the same chain
			// the generator declines to fold.
			if inner, ok := n.Inner.(*ast.PtrUnary); ok && inner.Op == "*" {
				return nil, fmt.Errorf("cannot handle multiple dereference")
			}
			return util.ConcatMulti(
				util.Emit(g.genUnary(n.Inner)),
				util.Emit([]string{"pop rax", loadFromAddressInRax(n.Typ.Size()), "push rax"}, nil),
			)
		default:
			return nil, fmt.Errorf("codegen: unknown unary operator %q", n.Op)
		}
	case *ast.VarUnary:
		return g.genVarUnary(n)
	default:
		return nil, fmt.Errorf("codegen: unhandled unary %T", u)
	}
}

func (g *Generator) genVarUnary(n *ast.VarUnary) ([]string, error) {
	var valueEm util.Emission
	if len(n.Indices) > 0 {
		lv, ok := n.Prim.(*ast.LvPrimary)
		if !ok {
			return nil, fmt.Errorf("codegen: indexing requires a variable")
		}
		valueEm = util.Emit(util.ConcatMulti(
			util.Emit(g.genIndexedAddress(lv.Var, n.Indices)),
			util.Emit([]string{"pop rax", loadFromAddressInRax(n.Typ.Size()), "push rax"}, nil),
		))
	} else {
		valueEm = util.Emit(g.genPrimary(n.Prim))
	}

	if n.Sign != "-" {
		return valueEm.Lines, valueEm.Err
	}
	return util.ConcatMulti(valueEm, util.Emit([]string{"pop rax", "neg rax", "push rax"}, nil))
}

func (g *Generator) genPrimary(prim ast.Primary) ([]string, error) {
	switch n := prim.(type) {
	case *ast.NumPrimary:
		return []string{fmt.Sprintf("push %s", n.Value)}, nil
	case *ast.ParenPrimary:
		return g.genExpr(n.Inner)
	case *ast.LvPrimary:
		return g.genLoadVar(n.Var)
	case *ast.FcallPrimary:
		return g.genCall(n)
	default:
		return nil, fmt.Errorf("codegen: unhandled primary %T", prim)
	}
}

func (g *Generator) genLoadVar(def *ast.VarDef) ([]string, error) {
	switch def.Type.Kind {
	case types.Array:
		// An array used as an r-value decays to its base address.
		return []string{fmt.Sprintf("lea rax, [rbp-%d]", def.Offset), "push rax"}, nil
	case types.Ptr:
		return []string{fmt.Sprintf("mov rax, QWORD PTR [rbp-%d]", def.Offset), "push rax"}, nil
	default:
		return []string{fmt.Sprintf("movsx rax, DWORD PTR [rbp-%d]", def.Offset), "push rax"}, nil
	}
}

// genVarAddress computes the address of a (possibly indexed) variable
// reference - the shape every lvalue ultimately bottoms out in.
func (g *Generator) genVarAddress(n *ast.VarUnary) ([]string, error) {
	lv, ok := n.Prim.(*ast.LvPrimary)
	if !ok {
		return nil, fmt.Errorf("codegen: address-of requires a variable")
	}
	return g.genIndexedAddress(lv.Var, n.Indices)
}

// genIndexedAddress computes def's element address after applying
// indices left to right.
//
// An Array's dimensions carry a per-dimension byte-stride table,
// written just above (at smaller stack offsets than) the array's own
// base; indexing reads the stride for the current dimension out of
// that table and subtracts idx*stride from the base, since the
// array's data occupies the larger-offset (lower address) bytes past
// its base. A Ptr has no such table - its stride is just sizeof its
// pointee, and indexing advances the address forward the ordinary way.
func (g *Generator) genIndexedAddress(def *ast.VarDef, indices []ast.Expr) ([]string, error) {
	// With no subscripts this is just the address of the variable's own
	// slot - what a plain assignment target or a bare `&x` needs,
	// whatever def's type happens to be.
	if len(indices) == 0 {
		return []string{fmt.Sprintf("lea rax, [rbp-%d]", def.Offset), "push rax"}, nil
	}

	switch def.Type.Kind {
	case types.Array:
		emissions := []util.Emission{util.Emit([]string{
			fmt.Sprintf("lea rbx, [rbp-%d]", def.Offset),
			"mov rax, rbx",
		}, nil)}
		for i, idxExpr := range indices {
			emissions = append(emissions,
				util.Emit([]string{"push rax"}, nil),
				util.Emit(g.genExpr(idxExpr)),
				util.Emit([]string{
					"pop rcx", "pop rax",
					fmt.Sprintf("mov rdx, QWORD PTR [rbx+%d]", (i+2)*8),
					"imul rcx, rdx",
					"sub rax, rcx",
				}, nil),
			)
		}
		emissions = append(emissions, util.Emit([]string{"push rax"}, nil))
		return util.ConcatMulti(emissions...)

	case types.Ptr:
		emissions := []util.Emission{util.Emit([]string{fmt.Sprintf("mov rax, QWORD PTR [rbp-%d]", def.Offset)}, nil)}
		cur := def.Type
		for _, idxExpr := range indices {
			elem, ierr := cur.Index()
			if ierr != nil {
				return nil, ierr
			}
			scaleLines := []string{"add rax, rcx"}
			if stride := elem.Size(); stride != 1 {
				scaleLines = []string{fmt.Sprintf("imul rcx, %d", stride), "add rax, rcx"}
			}
			emissions = append(emissions,
				util.Emit([]string{"push rax"}, nil),
				util.Emit(g.genExpr(idxExpr)),
				util.Emit([]string{"pop rcx", "pop rax"}, nil),
				util.Emit(scaleLines, nil),
			)
			cur = elem
		}
		emissions = append(emissions, util.Emit([]string{"push rax"}, nil))
		return util.ConcatMulti(emissions...)

	default:
		return nil, fmt.Errorf("codegen: cannot index variable %s of type %s", def.Name, def.Type)
	}
}

// genCall marshals arguments into the System V integer argument
// registers, evaluating them right to left so that later arguments
// can't clobber registers an earlier one already landed in. Arguments
// past the sixth stay on the stack, caller-cleaned after the call.
func (g *Generator) genCall(n *ast.FcallPrimary) ([]string, error) {
	// `_p` needs no special casing here: lookupFunc resolves it without
	// a declaration, but once parsed it is an ordinary call to a
	// function supplied outside this module at link time.
	emissions := make([]util.Emission, 0, len(n.Args)+1)
	for i := len(n.Args) - 1; i >= 0; i-- {
		emissions = append(emissions, util.Emit(g.genExpr(n.Args[i])))
	}

	regCount := len(n.Args)
	if regCount > len(util.ArgRegisters) {
		regCount = len(util.ArgRegisters)
	}
	var pops []string
	for i := 0; i < regCount; i++ {
		pops = append(pops, fmt.Sprintf("pop %s", util.Register(8, util.ArgRegisters[i])))
	}
	emissions = append(emissions, util.Emit(pops, nil))

	trailer := []string{fmt.Sprintf("call %s", n.Name)}
	if extra := len(n.Args) - len(util.ArgRegisters); extra > 0 {
		trailer = append(trailer, fmt.Sprintf("add rsp, %d", extra*8))
	}
	trailer = append(trailer, "push rax")
	emissions = append(emissions, util.Emit(trailer, nil))

	return util.ConcatMulti(emissions...)
}

func loadFromAddressInRax(size int) string {
	if size == 8 {
		return "mov rax, QWORD PTR [rax]"
	}
	return "movsx rax, DWORD PTR [rax]"
}
