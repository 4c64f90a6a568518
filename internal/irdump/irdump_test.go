package irdump

import (
	"strings"
	"testing"

	"formulang/internal/bytecode"
	"formulang/internal/compiler"
	"formulang/internal/lexer"
	"formulang/internal/parser"
)

func mustCompile(t *testing.T, src string) *bytecode.Chunk {
	t.Helper()
	scanner := lexer.NewScanner(src)
	tokens, err := scanner.ScanTokens()
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	p := parser.New(tokens, src)
	body, err := p.Parse()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	chunk, err := compiler.Compile(body)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	return chunk
}

func TestDumpArithmetic(t *testing.T) {
	chunk := mustCompile(t, "1 + 2 * 3")
	ir, err := Dump(chunk)
	if err != nil {
		t.Fatalf("Dump: %v", err)
	}
	for _, want := range []string{"define", "fml_add", "fml_mul", "fml_push_number"} {
		if !strings.Contains(ir, want) {
			t.Errorf("IR missing %q:\n%s", want, ir)
		}
	}
}

func TestDumpPropertyAccessAndFilter(t *testing.T) {
	chunk := mustCompile(t, "SUM(subtask.estimatePoint; status == 2)")
	ir, err := Dump(chunk)
	if err != nil {
		t.Fatalf("Dump: %v", err)
	}
	for _, want := range []string{"fml_filter", "fml_dot", "fml_call1", "fml_load"} {
		if !strings.Contains(ir, want) {
			t.Errorf("IR missing %q:\n%s", want, ir)
		}
	}
}

func TestDumpUnbalancedStackErrors(t *testing.T) {
	empty := &bytecode.Chunk{}
	if _, err := Dump(empty); err == nil {
		t.Fatalf("expected error for an empty chunk")
	}
}
