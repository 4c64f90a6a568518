package formulang

import "testing"

func TestCompileRunArithmetic(t *testing.T) {
	compiled, err := Compile("1 + 2 * 3")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	result, err := Run(compiled, []byte(`{}`), Clock{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result != "7" {
		t.Errorf("got %q, want 7", result)
	}
}

func TestCompileRunPropertyAccessAndFilter(t *testing.T) {
	compiled, err := Compile("SUM(subtask.estimatePoint; status == 2)")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	record := []byte(`{"subtask": [{"estimatePoint": 3, "status": 2}, {"estimatePoint": 7, "status": 1}]}`)
	result, err := Run(compiled, record, Clock{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result != "3" {
		t.Errorf("got %q, want 3 (only the status==2 subtask counted)", result)
	}
}

func TestCompileRunTimeVariable(t *testing.T) {
	compiled, err := Compile("GET_NOW - GET_UPDATE_TIME")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	result, err := Run(compiled, []byte(`{}`), Clock{Now: 5000, UpdateTime: 2000})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result != "3000" {
		t.Errorf("got %q, want 3000", result)
	}
}

func TestDependenciesSkipsBuiltinsButKeepsTimeVars(t *testing.T) {
	compiled, err := Compile("SUM(subtask.estimatePoint; status == 2) + GET_NOW")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	deps, err := Dependencies(compiled)
	if err != nil {
		t.Fatalf("Dependencies: %v", err)
	}
	want := map[string]bool{"subtask": true, "status": true, "GET_NOW": true}
	if len(deps) != len(want) {
		t.Fatalf("got %v, want exactly %v", deps, want)
	}
	for _, d := range deps {
		if !want[d] {
			t.Errorf("unexpected dependency %q", d)
		}
	}
}

func TestCompileRejectsBareComparison(t *testing.T) {
	if _, err := Compile("status == 2"); err == nil {
		t.Error("expected compile error for a bare top-level comparison")
	}
}

func TestRunBytecodeRoundTripsThroughBytes(t *testing.T) {
	compiled, err := Compile(`"a" + "b"`)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	// Simulate storing and reloading compiled bytecode, e.g. from a cache.
	copied := append([]byte(nil), compiled...)
	result, err := Run(copied, []byte(`{}`), Clock{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result != "ab" {
		t.Errorf("got %q, want ab", result)
	}
}
