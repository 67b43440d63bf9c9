// Package parser implements the compiler's single pass: a
// character-level recursive-descent parser that simultaneously lexes,
// resolves identifiers against a lexical symbol table, computes stack
// offsets, and annotates every expression node with its resolved
// type. The output is a typed *ast.Program, ready for codegen.
//
// There is deliberately no separate lexer package - lexing here is
// just a handful of cursor primitives (consume, consumeWhile,
// consumeKeyword, check) called directly by the grammar productions in
// grammar.go, exactly as the spec this parser implements describes
// the front end.
package parser

import (
	"fmt"
	"strings"

	"github.com/skx/subc/ast"
	"github.com/skx/subc/types"
)

// Parser holds the parse-time state: the character cursor, the
// function-scoped variable table, and the program-scoped function
// table (name -> return type), which every Fdef shares.
type Parser struct {
	input []rune
	lines []string

	pos  int
	line int // 1-based
	col  int // 1-based

	vars           map[string]*ast.VarDef
	requiredMemory int

	funcs map[string]*types.Type
}

// New creates a Parser over the given source text.
func New(input string) *Parser {
	return &Parser{
		input: []rune(input),
		lines: strings.Split(strings.ReplaceAll(input, "\r\n", "\n"), "\n"),
		line:  1,
		col:   1,
		vars:  make(map[string]*ast.VarDef),
		funcs: make(map[string]*types.Type),
	}
}

// Parse runs the parser over the whole program, producing a typed
// Program or the first ParseFailure encountered.
func Parse(input string) (*ast.Program, error) {
	p := New(input)
	return p.parseProgram()
}

// --- cursor primitives -----------------------------------------------------

type mark struct {
	pos, line, col int
}

func (p *Parser) mark() mark {
	return mark{p.pos, p.line, p.col}
}

func (p *Parser) reset(m mark) {
	p.pos, p.line, p.col = m.pos, m.line, m.col
}

func (p *Parser) peek() rune {
	if p.pos >= len(p.input) {
		return 0
	}
	return p.input[p.pos]
}

func (p *Parser) peekAt(offset int) rune {
	i := p.pos + offset
	if i >= len(p.input) {
		return 0
	}
	return p.input[i]
}

func (p *Parser) advance() rune {
	c := p.peek()
	if c == 0 {
		return 0
	}
	p.pos++
	if c == '\n' {
		p.line++
		p.col = 1
	} else {
		p.col++
	}
	return c
}

// skipWhitespace skips spaces, tabs, CR and LF, tracking line/column
// as it goes. Every lexing primitive below calls this first.
func (p *Parser) skipWhitespace() {
	for {
		switch p.peek() {
		case ' ', '\t', '\r', '\n':
			p.advance()
		default:
			return
		}
	}
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

func isAlpha(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isIdentStart(r rune) bool { return isAlpha(r) || r == '_' }

func isTokenChar(r rune) bool { return isAlpha(r) || isDigit(r) || r == '_' }

// atEOF reports whether, after skipping whitespace, there is no more
// input.
func (p *Parser) atEOF() bool {
	p.skipWhitespace()
	return p.pos >= len(p.input)
}

// consume skips whitespace, then if the literal string s appears next
// in the input, advances past it and returns true; otherwise the
// cursor is left where whitespace-skipping put it and false is
// returned.
func (p *Parser) consume(s string) bool {
	p.skipWhitespace()
	for i, r := range []rune(s) {
		if p.peekAt(i) != r {
			return false
		}
	}
	for range []rune(s) {
		p.advance()
	}
	return true
}

// check is consume's read-only twin: lookahead without consuming.
func (p *Parser) check(s string) bool {
	m := p.mark()
	ok := p.consume(s)
	p.reset(m)
	return ok
}

// consumeWhile skips whitespace, then consumes and returns the
// longest run of characters satisfying pred (possibly empty).
func (p *Parser) consumeWhile(pred func(rune) bool) string {
	p.skipWhitespace()
	var sb strings.Builder
	for pred(p.peek()) {
		sb.WriteRune(p.advance())
	}
	return sb.String()
}

// consumeKeyword behaves like consumeWhile(isTokenChar), but only
// succeeds - and only then consumes - if the run is exactly s. This
// is what keeps `if` from matching a prefix of `iffy`.
func (p *Parser) consumeKeyword(s string) bool {
	m := p.mark()
	got := p.consumeWhile(isTokenChar)
	if got == s {
		return true
	}
	p.reset(m)
	return false
}

// checkKeyword is consumeKeyword's read-only twin.
func (p *Parser) checkKeyword(s string) bool {
	m := p.mark()
	ok := p.consumeKeyword(s)
	p.reset(m)
	return ok
}

// checkFunc is checkF from the spec: lookahead on a predicate without
// consuming.
func (p *Parser) checkFunc(pred func(rune) bool) bool {
	p.skipWhitespace()
	return pred(p.peek())
}

func (p *Parser) readIdentifier() (string, bool) {
	if !p.checkFunc(isIdentStart) {
		return "", false
	}
	return p.consumeWhile(isTokenChar), true
}

// --- error helper -----------------------------------------------------

func (p *Parser) fail(reason string) *ParseFailure {
	line := ""
	if p.line-1 >= 0 && p.line-1 < len(p.lines) {
		line = p.lines[p.line-1]
	}
	return &ParseFailure{
		Line:       p.line,
		Column:     p.col,
		SourceLine: line,
		Reason:     reason,
	}
}

func (p *Parser) failf(format string, args ...interface{}) *ParseFailure {
	return p.fail(fmt.Sprintf(format, args...))
}

// --- symbol tables -----------------------------------------------------

// lookupVar resolves name against the current function's variable
// table.
func (p *Parser) lookupVar(name string) (*ast.VarDef, bool) {
	v, ok := p.vars[name]
	return v, ok
}

// defineVar registers a new variable in the current function scope,
// rejecting redefinition, and bumps requiredMemory by the bytes this
// declaration needs. dims holds the already constant-folded size of
// each array dimension (empty for a non-array).
func (p *Parser) defineVar(name string, ty *types.Type, dims []int) (*ast.VarDef, error) {
	if _, exists := p.vars[name]; exists {
		return nil, p.failf("multi definition for %s", name)
	}

	var offset int
	if ty.Kind == types.Array {
		metadata := (ty.Depth + 2) * 8
		data := ty.SizeOfItem()
		for _, d := range dims {
			data *= d
		}
		p.requiredMemory += metadata + data
		offset = p.requiredMemory - data
	} else {
		p.requiredMemory += ty.Size()
		offset = p.requiredMemory
	}

	v := &ast.VarDef{Name: name, Type: ty, Offset: offset, Dims: dims}
	p.vars[name] = v
	return v, nil
}

// lookupFunc resolves name against the program-scoped function table.
// The builtin `_p` always resolves to Int without needing a prior
// declaration.
func (p *Parser) lookupFunc(name string) (*types.Type, bool) {
	if name == "_p" {
		return types.NewInt(), true
	}
	ret, ok := p.funcs[name]
	return ret, ok
}

// defineFunc registers name's return type before its body is parsed,
// so that self-recursion resolves.
func (p *Parser) defineFunc(name string, ret *types.Type) {
	p.funcs[name] = ret
}

// beginFunctionScope saves the current variable table and memory
// counter, and installs a fresh scope - the Go stand-in for spawning
// a child parser with its own symbol table while still sharing this
// Parser's function table and cursor.
func (p *Parser) beginFunctionScope() (savedVars map[string]*ast.VarDef, savedMemory int) {
	savedVars, savedMemory = p.vars, p.requiredMemory
	p.vars = make(map[string]*ast.VarDef)
	p.requiredMemory = 0
	return
}

// endFunctionScope restores the scope beginFunctionScope saved, after
// recording the bytes the finished function required.
func (p *Parser) endFunctionScope(savedVars map[string]*ast.VarDef, savedMemory int) int {
	required := p.requiredMemory
	p.vars, p.requiredMemory = savedVars, savedMemory
	return required
}
