package types

import "testing"

func TestSize(t *testing.T) {
	tests := []struct {
		typ      *Type
		expected int
	}{
		{NewInt(), 4},
		{NewLInt(), 4},
		{NewPtr(NewInt()), 8},
		{NewArray(NewInt(), 3), 8},
	}

	for _, test := range tests {
		got := test.typ.Size()
		if got != test.expected {
			t.Errorf("Size(%s): expected %d, got %d", test.typ, test.expected, got)
		}
	}
}

func TestSizeOfItem(t *testing.T) {
	tests := []struct {
		typ      *Type
		expected int
	}{
		{NewInt(), 4},
		{NewLInt(), 4},
		{NewPtr(NewInt()), 4},
		{NewPtr(NewPtr(NewInt())), 8},
		{NewArray(NewInt(), 2), 4},
		{NewArray(NewPtr(NewInt()), 1), 4},
	}

	for _, test := range tests {
		got := test.typ.SizeOfItem()
		if got != test.expected {
			t.Errorf("SizeOfItem(%s): expected %d, got %d", test.typ, test.expected, got)
		}
	}
}

func TestCanBeArrayIndex(t *testing.T) {
	tests := []struct {
		typ      *Type
		expected bool
	}{
		{NewInt(), true},
		{NewLInt(), true},
		{NewPtr(NewInt()), false},
		{NewArray(NewInt(), 1), false},
	}

	for _, test := range tests {
		got := test.typ.CanBeArrayIndex()
		if got != test.expected {
			t.Errorf("CanBeArrayIndex(%s): expected %v, got %v", test.typ, test.expected, got)
		}
	}
}

func TestDecay(t *testing.T) {
	tests := []struct {
		typ      *Type
		expected string
	}{
		{NewInt(), "int"},
		{NewPtr(NewInt()), "*int"},
		{NewArray(NewInt(), 1), "*int"},
		{NewArray(NewInt(), 3), "*int[2]"},
	}

	for _, test := range tests {
		got := test.typ.Decay().String()
		if got != test.expected {
			t.Errorf("Decay(%s): expected %q, got %q", test.typ, test.expected, got)
		}
	}
}

func TestIndex(t *testing.T) {
	tests := []struct {
		typ      *Type
		expected string
	}{
		{NewArray(NewInt(), 1), "int"},
		{NewArray(NewInt(), 3), "int[2]"},
		{NewPtr(NewInt()), "int"},
	}

	for _, test := range tests {
		got, err := test.typ.Index()
		if err != nil {
			t.Fatalf("Index(%s): unexpected error: %s", test.typ, err)
		}
		if got.String() != test.expected {
			t.Errorf("Index(%s): expected %q, got %q", test.typ, test.expected, got.String())
		}
	}
}

func TestIndexRejectsNonIndexable(t *testing.T) {
	if _, err := NewInt().Index(); err == nil {
		t.Errorf("expected Index() on a plain int to fail")
	}
}

func TestSizePanicsOnPanicType(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Errorf("expected Size() of the Panic type to panic")
		}
	}()
	(&Type{Kind: Panic}).Size()
}

func TestString(t *testing.T) {
	tests := []struct {
		typ      *Type
		expected string
	}{
		{NewInt(), "int"},
		{NewPtr(NewInt()), "*int"},
		{NewArray(NewInt(), 3), "int[3]"},
	}

	for _, test := range tests {
		got := test.typ.String()
		if got != test.expected {
			t.Errorf("String(): expected %q, got %q", test.expected, got)
		}
	}
}
