package hostctx

import (
	"testing"

	"formulang/internal/bytecode"
	"formulang/internal/compiler"
	"formulang/internal/lexer"
	"formulang/internal/parser"
	"formulang/internal/value"
)

func mustCompile(t *testing.T, formula string) *bytecode.Chunk {
	t.Helper()
	tokens, err := lexer.NewScanner(formula).ScanTokens()
	if err != nil {
		t.Fatalf("scan error: %v", err)
	}
	body, err := parser.New(tokens, formula).Parse()
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	chunk, err := compiler.Compile(body)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	return chunk
}

func TestBuildConvertsFields(t *testing.T) {
	record := []byte(`{"status": 2, "name": "task", "active": true, "tags": null}`)
	chunk := mustCompile(t, "COUNT(status, name, active, tags)")
	heap, err := Build(record, chunk, TimeContext{Now: 1000, Today: 900, UpdateTime: 800, CreateTime: 700})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if heap["status"].Kind != value.KindNumber {
		t.Errorf("status kind = %s, want Number", heap["status"].Kind)
	}
	if heap["name"].AsString() != "task" {
		t.Errorf("name = %q, want task", heap["name"].AsString())
	}
	if heap["active"].Kind != value.KindBool || !heap["active"].AsBool() {
		t.Errorf("active = %#v, want Bool(true)", heap["active"])
	}
	if !heap["tags"].IsNull() {
		t.Errorf("tags should be Null")
	}
}

func TestBuildOnlyConvertsRequestedFields(t *testing.T) {
	// "unused" can't convert (NaN has no exact decimal text via
	// UseNumber, but a bad literal does); it must never be touched
	// since the formula never reads it.
	record := []byte(`{"status": 2, "unused": 1e400}`)
	chunk := mustCompile(t, "status")
	heap, err := Build(record, chunk, TimeContext{})
	if err != nil {
		t.Fatalf("Build: %v, want success since the unconvertible field is never requested", err)
	}
	if _, ok := heap["unused"]; ok {
		t.Error("heap should not contain an unrequested field")
	}
	if heap["status"].Kind != value.KindNumber {
		t.Errorf("status kind = %s, want Number", heap["status"].Kind)
	}
}

func TestBuildSeedsTimeVariables(t *testing.T) {
	chunk := mustCompile(t, "1")
	heap, err := Build([]byte(`{}`), chunk, TimeContext{Now: 1, Today: 2, UpdateTime: 3, CreateTime: 4})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if heap["GET_NOW"].Kind != value.KindNumber || value.Display(heap["GET_NOW"]) != "1" {
		t.Errorf("GET_NOW = %#v, want Number(1)", heap["GET_NOW"])
	}
	if value.Display(heap["GET_TODAY"]) != "2" {
		t.Errorf("GET_TODAY = %s, want 2", value.Display(heap["GET_TODAY"]))
	}
	if value.Display(heap["GET_UPDATE_TIME"]) != "3" {
		t.Errorf("GET_UPDATE_TIME = %s, want 3", value.Display(heap["GET_UPDATE_TIME"]))
	}
	if value.Display(heap["GET_CREATE_TIME"]) != "4" {
		t.Errorf("GET_CREATE_TIME = %s, want 4", value.Display(heap["GET_CREATE_TIME"]))
	}
}

func TestBuildSeedsBuiltins(t *testing.T) {
	chunk := mustCompile(t, "1")
	heap, err := Build([]byte(`{}`), chunk, TimeContext{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if heap["SUM"].Kind != value.KindFunction {
		t.Error("expected SUM to be seeded as a Function value")
	}
}

func TestBuildNestedArrayOfObjects(t *testing.T) {
	record := []byte(`{"subtask": [{"estimatePoint": 3, "status": 2}, {"estimatePoint": 7, "status": 1}]}`)
	chunk := mustCompile(t, "subtask.estimatePoint")
	heap, err := Build(record, chunk, TimeContext{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	arr := heap["subtask"].AsArray()
	if len(arr) != 2 {
		t.Fatalf("got %d elements, want 2", len(arr))
	}
	v, ok := arr[0].Field("estimatePoint")
	if !ok || value.Display(v) != "3" {
		t.Errorf("got %#v, want estimatePoint=3", v)
	}
}

func TestBuildRejectsInvalidJSON(t *testing.T) {
	chunk := mustCompile(t, "1")
	if _, err := Build([]byte(`not json`), chunk, TimeContext{}); err == nil {
		t.Error("expected error for invalid JSON record")
	}
}

func TestBuildExactDecimal(t *testing.T) {
	chunk := mustCompile(t, "price")
	heap, err := Build([]byte(`{"price": 19.99}`), chunk, TimeContext{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if got := value.Display(heap["price"]); got != "19.99" {
		t.Errorf("price displayed as %q, want 19.99 (exact decimal, no float rounding)", got)
	}
}
