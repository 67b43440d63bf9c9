package codegen

import (
	"strings"
	"testing"

	"github.com/skx/subc/parser"
)

func mustGenerate(t *testing.T, src string) []string {
	t.Helper()
	prog, err := parser.Parse(src)
	if err != nil {
		t.Fatalf("unexpected parse error: %s", err)
	}
	lines, err := New().Generate(prog)
	if err != nil {
		t.Fatalf("unexpected codegen error: %s", err)
	}
	return lines
}

func TestGeneratesFunctionLabelAndFrame(t *testing.T) {
	lines := mustGenerate(t, `int main() { return 0; }`)
	joined := strings.Join(lines, "\n")
	if !strings.Contains(joined, "main:") {
		t.Errorf("expected a main: label, got:\n%s", joined)
	}
	if !strings.Contains(joined, "push rbp") || !strings.Contains(joined, "pop rbp") {
		t.Errorf("expected a balanced prologue/epilogue, got:\n%s", joined)
	}
	if !strings.Contains(joined, "ret") {
		t.Errorf("expected a ret instruction, got:\n%s", joined)
	}
}

func TestEveryFunctionHasOneEpilogueLabel(t *testing.T) {
	lines := mustGenerate(t, `
		int early(int n) {
			if (n < 0) {
				return 0;
			}
			return n;
		}
	`)
	count := 0
	for _, l := range lines {
		if strings.HasPrefix(l, ".Lepilogue_early:") {
			count++
		}
	}
	if count != 1 {
		t.Errorf("expected exactly one epilogue label, found %d", count)
	}
}

func TestIfElseLabelsAreUnique(t *testing.T) {
	lines := mustGenerate(t, `
		int pick(int a, int b) {
			if (a < b) {
				return a;
			} else {
				return b;
			}
		}
	`)
	seen := map[string]int{}
	for _, l := range lines {
		if strings.HasSuffix(l, ":") {
			seen[l]++
		}
	}
	for label, n := range seen {
		if n != 1 {
			t.Errorf("label %s defined %d times, want 1", label, n)
		}
	}
}

func TestWhileLoopHasStartAndEndLabels(t *testing.T) {
	lines := mustGenerate(t, `
		int count(int n) {
			int i;
			i = 0;
			while (i < n) {
				i = i + 1;
			}
			return i;
		}
	`)
	joined := strings.Join(lines, "\n")
	if !strings.Contains(joined, ".LWhileStart_") || !strings.Contains(joined, ".LWhileEnd_") {
		t.Errorf("expected while start/end labels, got:\n%s", joined)
	}
}

func TestPointerArithmeticScalesByElementSize(t *testing.T) {
	lines := mustGenerate(t, `
		int main() {
			int a[4];
			int *p;
			p = &a[0];
			p = p + 1;
			return *p;
		}
	`)
	joined := strings.Join(lines, "\n")
	if !strings.Contains(joined, "imul rdi, 4") && !strings.Contains(joined, "imul rax, 4") {
		t.Errorf("expected pointer advance to be scaled by sizeof(int), got:\n%s", joined)
	}
}

func TestArrayIndexReadsStrideFromMetadata(t *testing.T) {
	lines := mustGenerate(t, `
		int main() {
			int m[2][3];
			m[1][2] = 9;
			return m[1][2];
		}
	`)
	joined := strings.Join(lines, "\n")
	if !strings.Contains(joined, "QWORD PTR [rbx+16]") || !strings.Contains(joined, "QWORD PTR [rbx+24]") {
		t.Errorf("expected metadata reads at (i+2)*8 offsets, got:\n%s", joined)
	}
}

func TestArrayDeclarationWritesStrideMetadata(t *testing.T) {
	lines := mustGenerate(t, `
		int main() {
			int m[2][3];
			return m[0][0];
		}
	`)
	joined := strings.Join(lines, "\n")
	if !strings.Contains(joined, "mov QWORD PTR [rbp-") {
		t.Errorf("expected stride metadata writes at declaration, got:\n%s", joined)
	}
	if !strings.Contains(joined, "], 4") || !strings.Contains(joined, "], 12") {
		t.Errorf("expected the innermost stride (4) and outer stride (3*4=12) to be stamped, got:\n%s", joined)
	}
}

func TestMultipleDereferenceIsRejected(t *testing.T) {
	prog, err := parser.Parse(`
		int main() {
			int x;
			int *p;
			int **pp;
			p = &x;
			pp = &p;
			return **pp;
		}
	`)
	if err != nil {
		t.Fatalf("unexpected parse error: %s", err)
	}
	_, genErr := New().Generate(prog)
	if genErr == nil {
		t.Fatalf("expected a codegen error for a doubled dereference")
	}
	if !strings.Contains(genErr.Error(), "cannot handle multiple dereference") {
		t.Errorf("expected a multiple-dereference error, got: %s", genErr)
	}
}

func TestCallMarshalsArgumentsIntoRegisters(t *testing.T) {
	lines := mustGenerate(t, `
		int add(int a, int b) { return a + b; }
		int main() { return add(1, 2); }
	`)
	joined := strings.Join(lines, "\n")
	if !strings.Contains(joined, "call add") {
		t.Errorf("expected a call to add, got:\n%s", joined)
	}
	if !strings.Contains(joined, "pop rdi") || !strings.Contains(joined, "pop rsi") {
		t.Errorf("expected the first two arguments in rdi/rsi, got:\n%s", joined)
	}
}
