// Package util centralizes the handful of mechanical mappings the
// code generator leans on everywhere: picking a register name (or a
// DWORD/QWORD size directive) for a given operand width, and joining
// the line-vectors each expression-emitting function returns while
// propagating the first failure - the Go analogue of the original
// compiler's Result-returning `concat`/`concat_multi`.
package util

import (
	"fmt"

	"github.com/samber/lo"
)

// SizeDirective returns the GAS size directive for a size-byte memory
// operand: "DWORD PTR" for a 4-byte int, "QWORD PTR" for an 8-byte
// pointer/array address.
func SizeDirective(size int) string {
	switch size {
	case 4:
		return "DWORD PTR"
	case 8:
		return "QWORD PTR"
	default:
		panic(fmt.Sprintf("util.SizeDirective: unsupported size %d", size))
	}
}

var registerNames = map[string]map[int]string{
	"a":  {4: "eax", 8: "rax"},
	"d":  {4: "edx", 8: "rdx"},
	"c":  {4: "ecx", 8: "rcx"},
	"b":  {4: "ebx", 8: "rbx"},
	"di": {4: "edi", 8: "rdi"},
	"si": {4: "esi", 8: "rsi"},
	"r8": {4: "r8d", 8: "r8"},
	"r9": {4: "r9d", 8: "r9"},
}

// Register returns the width-correct name of one of the registers the
// generator threads values through, e.g. Register(4, "a") is "eax",
// Register(8, "a") is "rax".
func Register(size int, role string) string {
	table, ok := registerNames[role]
	if !ok {
		panic(fmt.Sprintf("util.Register: unknown role %q", role))
	}
	name, ok := table[size]
	if !ok {
		panic(fmt.Sprintf("util.Register: unsupported size %d for role %q", size, role))
	}
	return name
}

// ArgRegisters is the System V AMD64 order in which the first six
// integer/pointer arguments are passed.
var ArgRegisters = []string{"di", "si", "d", "c", "r8", "r9"}

// Emission pairs a line-vector with the error that produced it, the
// unit ConcatMulti is built from.
type Emission struct {
	Lines []string
	Err   error
}

// Emit wraps a (lines, err) pair - the return shape of every
// expression-emitting method in codegen - as an Emission.
func Emit(lines []string, err error) Emission {
	return Emission{Lines: lines, Err: err}
}

// Concat joins two emissions, propagating whichever's error comes
// first.
func Concat(l, r Emission) Emission {
	if l.Err != nil {
		return l
	}
	if r.Err != nil {
		return r
	}
	return Emission{Lines: Flatten([][]string{l.Lines, r.Lines})}
}

// ConcatMulti joins a series of emissions in order, stopping at - and
// returning - the first error encountered.
func ConcatMulti(emissions ...Emission) ([]string, error) {
	out := Emission{Lines: []string{}}
	for _, e := range emissions {
		out = Concat(out, e)
		if out.Err != nil {
			return nil, out.Err
		}
	}
	return out.Lines, nil
}

// Flatten concatenates a slice of line-vectors into one, using
// samber/lo's generic flattening rather than a hand-rolled loop.
func Flatten(groups [][]string) []string {
	return lo.Flatten(groups)
}

// Labels hands out a monotonically increasing sequence of integers
// that codegen turns into unique jump-label names (".LIfEnd_3",
// ".LWhileStart_7", ...).
// The zero value is ready to use.
type Labels struct {
	next int
}

// Next returns the next label id and advances the counter.
func (l *Labels) Next() int {
	id := l.next
	l.next++
	return id
}
