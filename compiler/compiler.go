// Package compiler ties the parser and the code generator together
// and owns the shape of the final assembly file: the directives that
// wrap the generator's instruction lines. The one built-in, `_p`, is
// not emitted here; it is linked in from outside.
package compiler

import (
	"fmt"
	"strings"

	"github.com/skx/subc/ast"
	"github.com/skx/subc/codegen"
	"github.com/skx/subc/parser"
)

// Compiler compiles one program's source text into assembly.
type Compiler struct {
	source string
	debug  bool
}

// New returns a Compiler over the given source text.
func New(source string) *Compiler {
	return &Compiler{source: source}
}

// SetDebug toggles emission of an `int3` breakpoint at the top of
// main, the same debugging aid the teacher's own compiler offers.
func (c *Compiler) SetDebug(val bool) {
	c.debug = val
}

// Parse runs only the front end, returning the typed AST - exposed
// separately so callers (and tests) can inspect the tree without
// paying for code generation.
func (c *Compiler) Parse() (*ast.Program, error) {
	return parser.Parse(c.source)
}

// Compile runs the parser and the generator and assembles the result
// into one GAS source file, ready to be handed to an assembler.
func (c *Compiler) Compile() (string, error) {
	prog, err := c.Parse()
	if err != nil {
		return "", err
	}

	gen := codegen.New()
	body, err := gen.Generate(prog)
	if err != nil {
		return "", err
	}

	return c.output(body), nil
}

// output wraps the generator's instruction lines in the file-level
// directives. `_p` is left as a bare `call` - it is resolved at link
// time against a small external runtime object supplied outside this
// module, not anything this package emits.
func (c *Compiler) output(body []string) string {
	var b strings.Builder

	fmt.Fprintln(&b, ".intel_syntax noprefix")
	fmt.Fprintln(&b, ".globl main")
	fmt.Fprintln(&b)

	for _, line := range body {
		if strings.HasSuffix(line, ":") {
			fmt.Fprintln(&b, line)
			if c.debug && line == "main:" {
				fmt.Fprintln(&b, "    int3")
			}
			continue
		}
		fmt.Fprintf(&b, "    %s\n", line)
	}

	return b.String()
}
