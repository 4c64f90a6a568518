package depscan

import (
	"testing"

	"formulang/internal/bytecode"
	"formulang/internal/compiler"
	"formulang/internal/lexer"
	"formulang/internal/parser"
)

func mustCompile(t *testing.T, input string) *bytecode.Chunk {
	t.Helper()
	tokens, err := lexer.NewScanner(input).ScanTokens()
	if err != nil {
		t.Fatalf("scan error: %v", err)
	}
	body, err := parser.New(tokens, input).Parse()
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	chunk, err := compiler.Compile(body)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	return chunk
}

func TestDependenciesSimple(t *testing.T) {
	chunk := mustCompile(t, "a + b")
	deps := Dependencies(chunk)
	assertNames(t, deps, []string{"a", "b"})
}

func TestDependenciesExcludeBuiltins(t *testing.T) {
	chunk := mustCompile(t, "SUM(points; status == 2)")
	deps := Dependencies(chunk)
	assertNames(t, deps, []string{"points"})
}

func TestDependenciesPreservesDuplicatesInOccurrenceOrder(t *testing.T) {
	chunk := mustCompile(t, "a + a + a")
	deps := Dependencies(chunk)
	assertNames(t, deps, []string{"a", "a", "a"})
}

func TestDependenciesPropertyAccessRoot(t *testing.T) {
	chunk := mustCompile(t, "subtask.estimatePoint")
	deps := Dependencies(chunk)
	assertNames(t, deps, []string{"subtask"})
}

func assertNames(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got %v, want %v", got, want)
			return
		}
	}
}
