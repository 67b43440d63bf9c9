// Package codegen turns a typed *ast.Program into GAS, Intel-syntax
// x86-64 assembly targeting the System V AMD64 calling convention.
//
// The generator is a stack machine: every expression-emitting method
// leaves exactly one 8-byte value on the runtime stack (sign-extending
// a 4-byte int as it goes there), and every operator pops its operands
// back off, computes, and pushes the result. This is what lets a
// deeply nested expression tree be compiled by walking it once,
// emitting instructions bottom-up, with no explicit register
// allocator.
package codegen

import (
	"fmt"

	"github.com/skx/subc/ast"
	"github.com/skx/subc/util"
)

// Generator holds the state threaded through one function's
// compilation: the label counter (so every if/while/for gets its own
// unique pair of labels) and the label a `return` jumps to.
type Generator struct {
	labels        util.Labels
	epilogueLabel string
}

// New returns a ready-to-use Generator.
func New() *Generator {
	return &Generator{}
}

// Generate compiles prog into the ordered instruction lines making up
// its text section, not including the `.intel_syntax noprefix` /
// `.globl main` header - that belongs to the compiler package, which
// owns the overall output shape.
func (g *Generator) Generate(prog *ast.Program) ([]string, error) {
	emissions := make([]util.Emission, len(prog.Funcs))
	for i, fn := range prog.Funcs {
		emissions[i] = util.Emit(g.genFdef(fn))
	}
	return util.ConcatMulti(emissions...)
}

// genFdef emits one function: label, prologue, body, epilogue. Every
// `return` statement in the body jumps to the epilogue label rather
// than emitting the restore sequence inline, so a function can return
// from anywhere in its body and still tear down its frame exactly
// once.
func (g *Generator) genFdef(fn *ast.Fdef) ([]string, error) {
	g.epilogueLabel = fmt.Sprintf(".Lepilogue_%s", fn.Name)

	bodyLines, err := g.genBlock(fn.Body)
	if err != nil {
		return nil, fmt.Errorf("in function %s: %w", fn.Name, err)
	}

	return util.ConcatMulti(
		util.Emit(g.prologue(fn), nil),
		util.Emit(g.genArgSpill(fn), nil),
		util.Emit(bodyLines, nil),
		util.Emit([]string{g.epilogueLabel + ":"}, nil),
		util.Emit(g.epilogue(), nil),
	)
}

// prologue emits the standard frame setup: push the caller's base
// pointer, make rbp the new frame base, and carve out RequiredMemory
// bytes of local storage - rounded up to 16 so the frame itself never
// misaligns the stack.
func (g *Generator) prologue(fn *ast.Fdef) []string {
	frame := align16(fn.RequiredMemory)
	return []string{
		fmt.Sprintf("%s:", fn.Name),
		"push rbp",
		"mov rbp, rsp",
		fmt.Sprintf("sub rsp, %d", frame),
	}
}

// epilogue restores the caller's frame and returns. The value to
// return is already sitting in rax, left there by the `return`
// statement that jumped here (or garbage, if the function fell off
// its end without one).
func (g *Generator) epilogue() []string {
	return []string{
		"mov rsp, rbp",
		"pop rbp",
		"ret",
	}
}

// genArgSpill copies every parameter into its stack slot, so the rest
// of the body can treat a parameter exactly like any other local
// variable. The first six come straight out of the argument
// registers; the seventh and beyond were pushed by the caller and are
// read back from [rbp+8+8*(i-5)] (8 for the saved return address, one
// more 8 per slot past the sixth).
func (g *Generator) genArgSpill(fn *ast.Fdef) []string {
	var out []string
	for i, param := range fn.Params {
		size := param.Type.Size()
		if i < len(util.ArgRegisters) {
			reg := util.Register(size, util.ArgRegisters[i])
			out = append(out, fmt.Sprintf("mov %s [rbp-%d], %s", util.SizeDirective(size), param.Offset, reg))
			continue
		}
		srcOffset := 8 + 8*(i-5)
		out = append(out, fmt.Sprintf("mov rcx, [rbp+%d]", srcOffset))
		out = append(out, fmt.Sprintf("mov %s [rbp-%d], %s", util.SizeDirective(size), param.Offset, util.Register(size, "c")))
	}
	return out
}

func align16(n int) int {
	if n%16 == 0 {
		return n
	}
	return n + (16 - n%16)
}
