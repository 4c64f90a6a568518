package vm

import (
	"testing"

	"formulang/internal/bytecode"
	"formulang/internal/ferrors"
	"formulang/internal/rational"
	"formulang/internal/value"
)

func runChunk(t *testing.T, chunk *bytecode.Chunk, heap map[string]value.Value) value.Value {
	t.Helper()
	if heap == nil {
		heap = map[string]value.Value{}
	}
	SeedBuiltins(heap)
	ctx := NewRuntimeContext(heap)
	result, err := Run(chunk, ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return result
}

func TestRunArithmetic(t *testing.T) {
	c := bytecode.NewChunk()
	i1 := c.AddNumberConstant(rational.FromInt(1))
	i2 := c.AddNumberConstant(rational.FromInt(2))
	c.WriteOp(bytecode.OpPushNumber)
	c.WriteUint16(i1)
	c.WriteOp(bytecode.OpPushNumber)
	c.WriteUint16(i2)
	c.WriteOp(bytecode.OpAdd)

	result := runChunk(t, c, nil)
	if result.Kind != value.KindNumber {
		t.Fatalf("got kind %s", result.Kind)
	}
	if value.Display(result) != "3" {
		t.Errorf("got %s, want 3", value.Display(result))
	}
}

func TestRunResultCountMismatch(t *testing.T) {
	c := bytecode.NewChunk()
	idx := c.AddNumberConstant(rational.FromInt(1))
	c.WriteOp(bytecode.OpPushNumber)
	c.WriteUint16(idx)
	c.WriteOp(bytecode.OpPushNumber)
	c.WriteUint16(idx)
	// leaves two values on the stack instead of one

	ctx := NewRuntimeContext(map[string]value.Value{})
	_, err := Run(c, ctx)
	if !ferrors.Is(err, ferrors.ResultCountMismatch) {
		t.Errorf("got %v, want ResultCountMismatch", err)
	}
}

func TestRunIdentifierNotFound(t *testing.T) {
	c := bytecode.NewChunk()
	idx := c.AddStringConstant("missing")
	c.WriteOp(bytecode.OpLoadIdentifier)
	c.WriteUint16(idx)

	ctx := NewRuntimeContext(map[string]value.Value{})
	_, err := Run(c, ctx)
	if !ferrors.Is(err, ferrors.IdentifierNotFound) {
		t.Errorf("got %v, want IdentifierNotFound", err)
	}
}

func TestRunFilterExpressionAndProjection(t *testing.T) {
	obj1 := value.NewObject().Set("status", value.Int(2)).Set("estimatePoint", value.Int(3)).Build()
	obj2 := value.NewObject().Set("status", value.Int(1)).Set("estimatePoint", value.Int(7)).Build()
	heap := map[string]value.Value{
		"subtask": value.Array([]value.Value{obj1, obj2}),
	}

	c := bytecode.NewChunk()
	root := c.AddStringConstant("subtask")
	c.WriteOp(bytecode.OpLoadIdentifier)
	c.WriteUint16(root)

	field := c.AddStringConstant("status")
	literal := c.AddStringConstant("2")
	c.WriteOp(bytecode.OpFilterExpression)
	c.WriteUint16(field)
	c.WriteByte(byte(bytecode.FilterEq))
	c.WriteUint16(literal)

	proj := c.AddStringConstant("estimatePoint")
	c.WriteOp(bytecode.OpLoadPropertyAccess)
	c.WriteUint16(proj)

	result := runChunk(t, c, heap)
	if result.Kind != value.KindArray {
		t.Fatalf("got kind %s", result.Kind)
	}
	arr := result.AsArray()
	if len(arr) != 1 {
		t.Fatalf("got %d elements, want 1 (filtered to status==2)", len(arr))
	}
	if value.Display(arr[0]) != "3" {
		t.Errorf("got %s, want 3", value.Display(arr[0]))
	}
}

func TestRunPropertyAccessMissingFieldIsNull(t *testing.T) {
	obj := value.NewObject().Set("status", value.Int(1)).Build()
	heap := map[string]value.Value{"items": value.Array([]value.Value{obj})}

	c := bytecode.NewChunk()
	root := c.AddStringConstant("items")
	c.WriteOp(bytecode.OpLoadIdentifier)
	c.WriteUint16(root)
	field := c.AddStringConstant("missing")
	c.WriteOp(bytecode.OpLoadPropertyAccess)
	c.WriteUint16(field)

	result := runChunk(t, c, heap)
	arr := result.AsArray()
	if len(arr) != 1 || arr[0].Kind != value.KindNull {
		t.Errorf("got %#v, want a single Null element", arr)
	}
}

func TestRunCallSumBuiltin(t *testing.T) {
	heap := map[string]value.Value{}
	c := bytecode.NewChunk()
	calleeIdx := c.AddStringConstant("SUM")
	c.WriteOp(bytecode.OpLoadIdentifier)
	c.WriteUint16(calleeIdx)
	for _, n := range []int64{1, 2, 3} {
		idx := c.AddNumberConstant(rational.FromInt(n))
		c.WriteOp(bytecode.OpPushNumber)
		c.WriteUint16(idx)
	}
	c.WriteOp(bytecode.OpCall)
	c.WriteByte(3)

	result := runChunk(t, c, heap)
	if value.Display(result) != "6" {
		t.Errorf("SUM(1,2,3) = %s, want 6", value.Display(result))
	}
}
