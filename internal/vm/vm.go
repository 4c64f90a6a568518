package vm

import (
	"formulang/internal/bytecode"
	"formulang/internal/ferrors"
	"formulang/internal/keywords"
	"formulang/internal/rational"
	"formulang/internal/value"
)

// keywordTree resolves a mistyped reserved name to the one it likely
// means, for friendlier FunctionNotFound messages. Built once; New only
// fails if Names contains a duplicate, which it does not.
var keywordTree = func() *keywords.Tree {
	t, err := keywords.New()
	if err != nil {
		panic(err)
	}
	return t
}()

// Run executes chunk against ctx to a single result value.
// Precondition: the stack is empty on entry (StackNotEmpty otherwise).
// Postcondition: the stack holds exactly one value (ResultCountMismatch
// otherwise).
func Run(chunk *bytecode.Chunk, ctx *RuntimeContext) (value.Value, error) {
	if ctx.depth() != 0 {
		return value.Value{}, ferrors.New(ferrors.StackNotEmpty, "stack has %d values on entry", ctx.depth())
	}

	code := chunk.Code
	ip := 0
	for ip < len(code) {
		op := bytecode.OpCode(code[ip])
		ip++

		switch op {
		case bytecode.OpPushNumber:
			var idx uint16
			idx, ip = bytecode.ReadUint16(code, ip)
			ctx.push(value.Number(chunk.Constants[idx].(rational.Rational)))

		case bytecode.OpPushString:
			var idx uint16
			idx, ip = bytecode.ReadUint16(code, ip)
			ctx.push(value.String(chunk.Constants[idx].(string)))

		case bytecode.OpLoadIdentifier:
			var idx uint16
			idx, ip = bytecode.ReadUint16(code, ip)
			name := chunk.Constants[idx].(string)
			v, ok := ctx.Heap[name]
			if !ok {
				return value.Value{}, ferrors.New(ferrors.IdentifierNotFound, "%s", name)
			}
			ctx.push(v)

		case bytecode.OpAdd, bytecode.OpSub, bytecode.OpMul, bytecode.OpDiv, bytecode.OpMod, bytecode.OpPow:
			rhs := ctx.pop()
			lhs := ctx.pop()
			result, err := applyArithmetic(op, lhs, rhs)
			if err != nil {
				return value.Value{}, err
			}
			ctx.push(result)

		case bytecode.OpFactorial:
			operand := ctx.pop()
			result, err := value.Factorial(operand)
			if err != nil {
				return value.Value{}, err
			}
			ctx.push(result)

		case bytecode.OpLoadPropertyAccess:
			var idx uint16
			idx, ip = bytecode.ReadUint16(code, ip)
			field := chunk.Constants[idx].(string)
			arr := ctx.pop()
			result, err := loadPropertyAccess(arr, field)
			if err != nil {
				return value.Value{}, err
			}
			ctx.push(result)

		case bytecode.OpFilterExpression:
			var fieldIdx, litIdx uint16
			fieldIdx, ip = bytecode.ReadUint16(code, ip)
			filterOp := bytecode.FilterOp(code[ip])
			ip++
			litIdx, ip = bytecode.ReadUint16(code, ip)
			field := chunk.Constants[fieldIdx].(string)
			literalText := chunk.Constants[litIdx].(string)
			arr := ctx.pop()
			result, err := filterExpression(arr, field, filterOp, literalText)
			if err != nil {
				return value.Value{}, err
			}
			ctx.push(result)

		case bytecode.OpCall:
			argc := int(code[ip])
			ip++
			if ctx.depth() < argc+1 {
				return value.Value{}, ferrors.New(ferrors.StackNotEmpty, "call stack underflow")
			}
			args := make([]value.Value, argc)
			for i := argc - 1; i >= 0; i-- {
				args[i] = ctx.pop()
			}
			callee := ctx.pop()
			result, err := callFunction(callee, args)
			if err != nil {
				return value.Value{}, err
			}
			ctx.push(result)

		default:
			return value.Value{}, ferrors.New(ferrors.ParseError, "unknown opcode %d", op)
		}
	}

	if ctx.depth() != 1 {
		return value.Value{}, ferrors.New(ferrors.ResultCountMismatch, "expected 1 result, got %d", ctx.depth())
	}
	return ctx.pop(), nil
}

func applyArithmetic(op bytecode.OpCode, lhs, rhs value.Value) (value.Value, error) {
	switch op {
	case bytecode.OpAdd:
		return value.Add(lhs, rhs)
	case bytecode.OpSub:
		return value.Sub(lhs, rhs)
	case bytecode.OpMul:
		return value.Mul(lhs, rhs)
	case bytecode.OpDiv:
		return value.Div(lhs, rhs)
	case bytecode.OpMod:
		return value.Mod(lhs, rhs)
	case bytecode.OpPow:
		return value.Pow(lhs, rhs)
	default:
		return value.Value{}, ferrors.New(ferrors.OperatorMismatch, "not an arithmetic opcode")
	}
}

// loadPropertyAccess implements the map-over-array projection: arr must
// be an Array of Objects; missing fields push Null, and a non-object
// element fails DotInputNotObjectArray.
func loadPropertyAccess(arr value.Value, field string) (value.Value, error) {
	if arr.Kind != value.KindArray {
		return value.Value{}, ferrors.New(ferrors.DotInputNotObjectArray, "%s", field)
	}
	elems := arr.AsArray()
	if len(elems) == 0 {
		return value.Array(nil), nil
	}
	out := make([]value.Value, len(elems))
	for i, elem := range elems {
		if elem.Kind != value.KindObject {
			return value.Value{}, ferrors.New(ferrors.DotInputNotObjectArray, "%s", field)
		}
		if v, ok := elem.Field(field); ok {
			out[i] = v
		} else {
			out[i] = value.Null()
		}
	}
	return value.Array(out), nil
}

// filterExpression requires arr to be an Array of
// Objects; keeps elements where element[field] op literal holds.
func filterExpression(arr value.Value, field string, op bytecode.FilterOp, literalText string) (value.Value, error) {
	if arr.Kind != value.KindArray {
		return value.Value{}, ferrors.New(ferrors.DotInputNotObjectArray, "%s", field)
	}
	elems := arr.AsArray()
	if len(elems) == 0 {
		return value.Array(nil), nil
	}
	literal := value.ParseFilterLiteral(literalText)
	var kept []value.Value
	for _, elem := range elems {
		if elem.Kind != value.KindObject {
			return value.Value{}, ferrors.New(ferrors.DotInputNotObjectArray, "%s", field)
		}
		fv, ok := elem.Field(field)
		if !ok {
			continue
		}
		match, err := compareFilter(fv, op, literal)
		if err != nil {
			return value.Value{}, err
		}
		if match {
			kept = append(kept, elem)
		}
	}
	return value.Array(kept), nil
}

func compareFilter(a value.Value, op bytecode.FilterOp, b value.Value) (bool, error) {
	if op == bytecode.FilterEq || op == bytecode.FilterNotEq {
		eq := valuesEqual(a, b)
		if op == bytecode.FilterEq {
			return eq, nil
		}
		return !eq, nil
	}
	cmp, err := value.Compare(a, b)
	if err != nil {
		return false, err
	}
	switch op {
	case bytecode.FilterLT:
		return cmp < 0, nil
	case bytecode.FilterLE:
		return cmp <= 0, nil
	case bytecode.FilterGT:
		return cmp > 0, nil
	case bytecode.FilterGE:
		return cmp >= 0, nil
	default:
		return false, ferrors.New(ferrors.OperatorMismatch, "unknown filter operator %d", op)
	}
}

func valuesEqual(a, b value.Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	cmp, err := value.Compare(a, b)
	if err != nil {
		return false
	}
	return cmp == 0
}

func callFunction(callee value.Value, args []value.Value) (value.Value, error) {
	if callee.Kind != value.KindFunction {
		return value.Value{}, ferrors.New(ferrors.NotAFunction, "call target is not a function")
	}
	fn, ok := Builtins[callee.FunctionName()]
	if !ok {
		name := callee.FunctionName()
		if suggestion, ok := keywordTree.Lookup(name); ok && suggestion != name {
			return value.Value{}, ferrors.New(ferrors.FunctionNotFound, "%s (did you mean %s?)", name, suggestion)
		}
		return value.Value{}, ferrors.New(ferrors.FunctionNotFound, "%s", name)
	}
	return fn(args)
}
