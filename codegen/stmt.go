package codegen

import (
	"fmt"

	"github.com/skx/subc/ast"
	"github.com/skx/subc/util"
)

// genBlock compiles each statement in a block in order, joining their
// lines with util.ConcatMulti so the first statement to fail aborts
// the whole block instead of silently compiling the rest of it.
func (g *Generator) genBlock(b *ast.Block) ([]string, error) {
	emissions := make([]util.Emission, len(b.Stmts))
	for i, s := range b.Stmts {
		emissions[i] = util.Emit(g.genStatement(s))
	}
	return util.ConcatMulti(emissions...)
}

func (g *Generator) genStatement(s ast.Statement) ([]string, error) {
	switch n := s.(type) {
	case *ast.EmptyStmt:
		return nil, nil
	case *ast.BlockStmt:
		return g.genBlock(n.Block)
	case *ast.ExprStmt:
		return g.genStatementExpr(n.Expr)
	case *ast.IfStmt:
		return g.genIf(n)
	case *ast.WhileStmt:
		return g.genWhile(n)
	case *ast.ForStmt:
		return g.genFor(n)
	default:
		return nil, fmt.Errorf("codegen: unhandled statement %T", s)
	}
}

// genIf emits `cmp .. ; je else ; <then> ; jmp end ; else: <else> ; end:`,
// collapsing to a single end label when there is no else branch.
func (g *Generator) genIf(n *ast.IfStmt) ([]string, error) {
	id := g.labels.Next()
	endLabel := fmt.Sprintf(".LIfEnd_%d", id)

	condEm := util.Emit(g.genExpr(n.Cond))
	thenEm := util.Emit(g.genStatement(n.Then))

	if n.Else == nil {
		return util.ConcatMulti(
			condEm,
			util.Emit([]string{"pop rax", "cmp rax, 0", fmt.Sprintf("je %s", endLabel)}, nil),
			thenEm,
			util.Emit([]string{endLabel + ":"}, nil),
		)
	}

	elseLabel := fmt.Sprintf(".LIfElse_%d", id)
	elseEm := util.Emit(g.genStatement(n.Else))
	return util.ConcatMulti(
		condEm,
		util.Emit([]string{"pop rax", "cmp rax, 0", fmt.Sprintf("je %s", elseLabel)}, nil),
		thenEm,
		util.Emit([]string{fmt.Sprintf("jmp %s", endLabel), elseLabel + ":"}, nil),
		elseEm,
		util.Emit([]string{endLabel + ":"}, nil),
	)
}

// genWhile emits the classic condition-at-top loop.
func (g *Generator) genWhile(n *ast.WhileStmt) ([]string, error) {
	id := g.labels.Next()
	start := fmt.Sprintf(".LWhileStart_%d", id)
	end := fmt.Sprintf(".LWhileEnd_%d", id)

	condEm := util.Emit(g.genExpr(n.Cond))
	bodyEm := util.Emit(g.genStatement(n.Body))

	return util.ConcatMulti(
		util.Emit([]string{start + ":"}, nil),
		condEm,
		util.Emit([]string{"pop rax", "cmp rax, 0", fmt.Sprintf("je %s", end)}, nil),
		bodyEm,
		util.Emit([]string{fmt.Sprintf("jmp %s", start), end + ":"}, nil),
	)
}

// genFor emits init; start: [cond; test] body step; jmp start; end:,
// skipping whichever of init/cond/step the parser left nil.
func (g *Generator) genFor(n *ast.ForStmt) ([]string, error) {
	id := g.labels.Next()
	start := fmt.Sprintf(".LForStart_%d", id)
	end := fmt.Sprintf(".LForEnd_%d", id)

	emissions := []util.Emission{util.Emit([]string{}, nil)}

	if n.Init != nil {
		emissions = append(emissions, util.Emit(g.genStatementExpr(n.Init)))
	}
	emissions = append(emissions, util.Emit([]string{start + ":"}, nil))

	if n.Cond != nil {
		emissions = append(emissions,
			util.Emit(g.genExpr(n.Cond)),
			util.Emit([]string{"pop rax", "cmp rax, 0", fmt.Sprintf("je %s", end)}, nil),
		)
	}

	emissions = append(emissions, util.Emit(g.genStatement(n.Body)))

	if n.Step != nil {
		emissions = append(emissions, util.Emit(g.genExpr(n.Step)), util.Emit([]string{"pop rax"}, nil))
	}

	emissions = append(emissions, util.Emit([]string{fmt.Sprintf("jmp %s", start), end + ":"}, nil))

	return util.ConcatMulti(emissions...)
}
