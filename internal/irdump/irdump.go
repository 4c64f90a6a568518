// Package irdump renders a compiled formula's bytecode as textual LLVM
// IR, for a `--emit-ir` debug flag that lets a host developer inspect
// what a formula lowers to without a bytecode disassembler. It is a
// rendering aid only — the output is never fed back into an LLVM
// toolchain, just printed. Every stack opcode becomes a call into a
// small, declared-only "fml_*" runtime namespace operating on an opaque
// i8* value handle, mirroring how a real compiler lowers a dynamically
// typed stack machine to calls against a boxed-value runtime.
package irdump

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
	llvalue "github.com/llir/llvm/ir/value"

	"formulang/internal/bytecode"
)

// Dump renders chunk as a single LLVM IR function named "formula",
// returning its textual form.
func Dump(chunk *bytecode.Chunk) (string, error) {
	m := ir.NewModule()
	runtime := declareRuntime(m)

	fn := m.NewFunc("formula", types.I8Ptr)
	block := fn.NewBlock("entry")

	var stack []llvalue.Value
	pop := func() llvalue.Value {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		return v
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
			lit := constant.NewInt(types.I64, int64(idx))
			stack = append(stack, block.NewCall(runtime.pushNumber, lit))

		case bytecode.OpPushString:
			var idx uint16
			idx, ip = bytecode.ReadUint16(code, ip)
			lit := constant.NewInt(types.I64, int64(idx))
			stack = append(stack, block.NewCall(runtime.pushString, lit))

		case bytecode.OpLoadIdentifier:
			var idx uint16
			idx, ip = bytecode.ReadUint16(code, ip)
			lit := constant.NewInt(types.I64, int64(idx))
			stack = append(stack, block.NewCall(runtime.load, lit))

		case bytecode.OpAdd:
			stack = append(stack, binary(block, runtime.add, &stack))
		case bytecode.OpSub:
			stack = append(stack, binary(block, runtime.sub, &stack))
		case bytecode.OpMul:
			stack = append(stack, binary(block, runtime.mul, &stack))
		case bytecode.OpDiv:
			stack = append(stack, binary(block, runtime.div, &stack))
		case bytecode.OpMod:
			stack = append(stack, binary(block, runtime.mod, &stack))
		case bytecode.OpPow:
			stack = append(stack, binary(block, runtime.pow, &stack))

		case bytecode.OpFactorial:
			v := pop()
			stack = append(stack, block.NewCall(runtime.factorial, v))

		case bytecode.OpLoadPropertyAccess:
			var idx uint16
			idx, ip = bytecode.ReadUint16(code, ip)
			arr := pop()
			lit := constant.NewInt(types.I64, int64(idx))
			stack = append(stack, block.NewCall(runtime.dot, arr, lit))

		case bytecode.OpFilterExpression:
			var fieldIdx, litIdx uint16
			fieldIdx, ip = bytecode.ReadUint16(code, ip)
			filterOp := code[ip]
			ip++
			litIdx, ip = bytecode.ReadUint16(code, ip)
			arr := pop()
			stack = append(stack, block.NewCall(runtime.filter, arr,
				constant.NewInt(types.I64, int64(fieldIdx)),
				constant.NewInt(types.I8, int64(filterOp)),
				constant.NewInt(types.I64, int64(litIdx))))

		case bytecode.OpCall:
			argc := int(code[ip])
			ip++
			args := make([]llvalue.Value, argc)
			for i := argc - 1; i >= 0; i-- {
				args[i] = pop()
			}
			callee := pop()
			fn := callN(runtime, argc)
			stack = append(stack, block.NewCall(fn, append([]llvalue.Value{callee}, args...)...))

		default:
			return "", fmt.Errorf("irdump: unknown opcode %d", op)
		}
	}

	if len(stack) != 1 {
		return "", fmt.Errorf("irdump: expected one result value, got %d", len(stack))
	}
	block.NewRet(stack[0])

	return m.String(), nil
}

// runtimeFuncs are the declared (bodyless) external functions every
// emitted call targets — the "fml_*" boxed-value runtime this debug IR
// assumes a real backend would link against.
type runtimeFuncs struct {
	pushNumber, pushString, load *ir.Func
	add, sub, mul, div, mod, pow *ir.Func
	factorial, dot, filter       *ir.Func
	call1, call2, call3, call4   *ir.Func
}

func declareRuntime(m *ir.Module) *runtimeFuncs {
	i8ptr, i64, i8 := types.I8Ptr, types.I64, types.I8
	declare := func(name string, params ...*ir.Param) *ir.Func {
		return m.NewFunc(name, i8ptr, params...)
	}
	p := func(name string, t types.Type) *ir.Param { return ir.NewParam(name, t) }

	return &runtimeFuncs{
		pushNumber: declare("fml_push_number", p("const_idx", i64)),
		pushString: declare("fml_push_string", p("const_idx", i64)),
		load:       declare("fml_load", p("name_idx", i64)),
		add:        declare("fml_add", p("lhs", i8ptr), p("rhs", i8ptr)),
		sub:        declare("fml_sub", p("lhs", i8ptr), p("rhs", i8ptr)),
		mul:        declare("fml_mul", p("lhs", i8ptr), p("rhs", i8ptr)),
		div:        declare("fml_div", p("lhs", i8ptr), p("rhs", i8ptr)),
		mod:        declare("fml_mod", p("lhs", i8ptr), p("rhs", i8ptr)),
		pow:        declare("fml_pow", p("lhs", i8ptr), p("rhs", i8ptr)),
		factorial:  declare("fml_factorial", p("v", i8ptr)),
		dot:        declare("fml_dot", p("arr", i8ptr), p("field_idx", i64)),
		filter:     declare("fml_filter", p("arr", i8ptr), p("field_idx", i64), p("op", i8), p("lit_idx", i64)),
		call1:      declare("fml_call1", p("callee", i8ptr), p("a0", i8ptr)),
		call2:      declare("fml_call2", p("callee", i8ptr), p("a0", i8ptr), p("a1", i8ptr)),
		call3:      declare("fml_call3", p("callee", i8ptr), p("a0", i8ptr), p("a1", i8ptr), p("a2", i8ptr)),
		call4:      declare("fml_call4", p("callee", i8ptr), p("a0", i8ptr), p("a1", i8ptr), p("a2", i8ptr), p("a3", i8ptr)),
	}
}

func callN(r *runtimeFuncs, argc int) *ir.Func {
	switch argc {
	case 1:
		return r.call1
	case 2:
		return r.call2
	case 3:
		return r.call3
	default:
		return r.call4
	}
}

func binary(block *ir.Block, fn *ir.Func, stack *[]llvalue.Value) llvalue.Value {
	s := *stack
	rhs := s[len(s)-1]
	lhs := s[len(s)-2]
	*stack = s[:len(s)-2]
	return block.NewCall(fn, lhs, rhs)
}
