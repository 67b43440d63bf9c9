package compiler

import (
	"strings"
	"testing"
)

func TestCompileValidProgram(t *testing.T) {
	tests := []string{
		`int main() { return 42; }`,
		`int fact(int n) { if (n <= 1) { return 1; } return n * fact(n - 1); } int main() { return fact(5); }`,
		`int sum(int *a, int n) { int i; int total; total = 0; for (i = 0; i < n; i = i + 1) { total = total + a[i]; } return total; } int main() { int x; x = 3; return sum(&x, 1); }`,
		`int main() { int x; int *p; x = 7; p = &x; *p = 9; return x; }`,
	}
	for _, src := range tests {
		c := New(src)
		out, err := c.Compile()
		if err != nil {
			t.Fatalf("unexpected error compiling %q: %s", src, err)
		}
		if !strings.Contains(out, ".intel_syntax noprefix") {
			t.Errorf("expected the GAS Intel-syntax directive, got:\n%s", out)
		}
		if !strings.Contains(out, ".globl main") {
			t.Errorf("expected main to be exported, got:\n%s", out)
		}
		if !strings.Contains(out, "main:") {
			t.Errorf("expected a main label, got:\n%s", out)
		}
	}
}

func TestCompileBogusInput(t *testing.T) {
	tests := []struct {
		src        string
		wantReason string
	}{
		{``, "empty program"},
		{`int main() { return y; }`, "var y undeclared"},
		{`int main() { return missing(); }`, "func missing is undefined"},
		{`int main() { int z; int z; return 0; }`, "multi definition for z"},
	}
	for _, test := range tests {
		_, err := New(test.src).Compile()
		if err == nil {
			t.Fatalf("expected an error compiling %q", test.src)
		}
		if !strings.Contains(err.Error(), test.wantReason) {
			t.Errorf("error %q does not contain %q", err.Error(), test.wantReason)
		}
	}
}

func TestDebugInsertsBreakpointInMain(t *testing.T) {
	c := New(`int main() { return 0; }`)
	c.SetDebug(true)
	out, err := c.Compile()
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if !strings.Contains(out, "int3") {
		t.Errorf("expected a debug breakpoint in the output, got:\n%s", out)
	}
}

func TestPrintBuiltinCompilesToAnOrdinaryCall(t *testing.T) {
	c := New(`int main() { _p(1); return 0; }`)
	out, err := c.Compile()
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if !strings.Contains(out, "call _p") {
		t.Errorf("expected _p(1) to compile to a call, got:\n%s", out)
	}
}
