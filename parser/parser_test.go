package parser

import (
	"strings"
	"testing"
)

func mustParse(t *testing.T, src string) {
	t.Helper()
	if _, err := Parse(src); err != nil {
		t.Fatalf("unexpected error parsing %q: %s", src, err)
	}
}

func mustFail(t *testing.T, src, wantReason string) {
	t.Helper()
	_, err := Parse(src)
	if err == nil {
		t.Fatalf("expected an error parsing %q, got none", src)
	}
	if !strings.Contains(err.Error(), wantReason) {
		t.Errorf("error %q does not contain %q", err.Error(), wantReason)
	}
}

func TestValidPrograms(t *testing.T) {
	tests := []string{
		`int main() { return 0; }`,
		`int add(int a, int b) { return a + b; }`,
		`int main() { int x; x = 1; while (x < 10) { x = x + 1; } return x; }`,
		`int main() { int i; for (i = 0; i < 10; i = i + 1) { _p(i); } return 0; }`,
		`int fact(int n) { if (n <= 1) { return 1; } return n * fact(n - 1); }`,
		`int main() { int a[10]; a[0] = 5; return a[0]; }`,
		`int main() { int x; int *p; x = 10; p = &x; *p = 20; return x; }`,
		`int main() { int m[2][3]; m[1][2] = 7; return m[1][2]; }`,
		`int main() { return -5 + 3; }`,
		`int main() { int x; x = 1; return (x == 1); }`,
	}
	for _, src := range tests {
		mustParse(t, src)
	}
}

func TestUndeclaredVariable(t *testing.T) {
	mustFail(t, `int main() { return x; }`, "var x undeclared")
}

func TestUndefinedFunction(t *testing.T) {
	mustFail(t, `int main() { return missing(1); }`, "func missing is undefined")
}

func TestMultiDefinition(t *testing.T) {
	mustFail(t, `int main() { int x; int x; return 0; }`, "multi definition for x")
}

func TestAssignToNonLvalue(t *testing.T) {
	mustFail(t, `int main() { 1 = 2; return 0; }`, "left value is not assignable")
}

func TestAddressOfNonLvalue(t *testing.T) {
	mustFail(t, `int main() { int *p; p = &1; return 0; }`, "cannot take the address of a non-lvalue")
}

func TestEmptyProgram(t *testing.T) {
	mustFail(t, ``, "empty program")
}

func TestArrayDimensionMustBeConstant(t *testing.T) {
	mustFail(t, `int main() { int n; n = 4; int a[n]; return 0; }`, "array dimension must be a constant expression")
}

func TestOverIndexingAnArrayIsRejected(t *testing.T) {
	mustFail(t, `int main() { int a[2][3]; return a[0][1][2]; }`, "this array has 2 dimensions, cannot access 3")
}

func TestErrorIncludesSourceLineAndCaret(t *testing.T) {
	_, err := Parse("int main() {\n  return x;\n}")
	if err == nil {
		t.Fatalf("expected an error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "at line 2") {
		t.Errorf("expected the diagnostic to point at line 2, got: %s", msg)
	}
	if !strings.Contains(msg, "something wrong here") {
		t.Errorf("expected the diagnostic to include the caret message, got: %s", msg)
	}
}
