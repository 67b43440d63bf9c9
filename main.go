// This is the main-driver for our compiler.
package main

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/skx/subc/compiler"
)

// maybeReadFile lets the developer conveniences (--compile/--run) point
// at a source file on disk instead of pasting the whole program inline,
// without disturbing the spec's contract that argv[1] *is* the program
// text: if arg names a file that exists, its contents are used in
// place of the literal argument.
func maybeReadFile(arg string) string {
	if data, err := os.ReadFile(arg); err == nil {
		return string(data)
	}
	return arg
}

func main() {
	var debug bool
	var doCompile bool
	var run bool
	var program string

	cmd := &cobra.Command{
		Use:   "subc [file]",
		Short: "subc compiles a small C-like language to x86-64 assembly.",
		// Arg validation is handled by hand in RunE below: a missing
		// filename isn't an error, it's just a no-op with a message.
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if run {
				doCompile = true
			}

			if len(args) != 1 {
				fmt.Println("no arg given")
				return nil
			}

			return runCompiler(maybeReadFile(args[0]), debug, doCompile, run, program)
		},
	}

	cmd.Flags().BoolVar(&debug, "debug", false, "Insert debug \"stuff\" in our generated output.")
	cmd.Flags().BoolVar(&doCompile, "compile", false, "Compile the program, via invoking gcc.")
	cmd.Flags().StringVar(&program, "filename", "a.out", "The binary to write to.")
	cmd.Flags().BoolVar(&run, "run", false, "Run the binary, post-compile.")

	if err := cmd.Execute(); err != nil {
		fmt.Printf("Error: %s\n", err.Error())
		os.Exit(1)
	}
}

// runCompiler compiles src, the program text, and then either prints
// the generated assembly, assembles it via gcc, or assembles and runs
// it - depending on which flags were given.
func runCompiler(src string, debug, doCompile, run bool, program string) error {
	comp := compiler.New(src)
	if debug {
		comp.SetDebug(true)
	}

	out, err := comp.Compile()
	if err != nil {
		fmt.Printf("Error compiling: %s\n", err.Error())
		os.Exit(1)
	}

	if !doCompile {
		fmt.Printf("%s", out)
		return nil
	}

	gcc := exec.Command("gcc", "-static", "-o", program, "-x", "assembler", "-")
	gcc.Stdout = os.Stdout
	gcc.Stderr = os.Stderr

	var b bytes.Buffer
	b.WriteString(out)
	gcc.Stdin = &b

	if err := gcc.Run(); err != nil {
		fmt.Printf("Error launching gcc: %s\n", err)
		os.Exit(1)
	}

	if run {
		exe := exec.Command(program)
		exe.Stdout = os.Stdout
		exe.Stderr = os.Stderr
		if err := exe.Run(); err != nil {
			fmt.Printf("Error launching %s: %s\n", program, err)
			os.Exit(1)
		}
	}

	return nil
}
