// Package depscan extracts the free host identifiers a compiled formula
// reads, by walking the bytecode the same way a disassembler walks a
// Chunk to print it, but collecting LoadIdentifier operands instead of
// formatting them.
package depscan

import (
	"formulang/internal/bytecode"
	"formulang/internal/vm"
)

// Dependencies returns the identifier names chunk reads via
// OpLoadIdentifier, in bytecode occurrence order, excluding builtin
// names. Duplicates are preserved: a formula referencing the same
// identifier twice reports it twice, in the order it was read; callers
// that want a unique set dedupe themselves.
func Dependencies(chunk *bytecode.Chunk) []string {
	var names []string
	code := chunk.Code
	ip := 0
	for ip < len(code) {
		op := bytecode.OpCode(code[ip])
		ip++

		switch op {
		case bytecode.OpPushNumber, bytecode.OpPushString, bytecode.OpLoadPropertyAccess:
			_, ip = bytecode.ReadUint16(code, ip)

		case bytecode.OpLoadIdentifier:
			var idx uint16
			idx, ip = bytecode.ReadUint16(code, ip)
			name := chunk.Constants[idx].(string)
			if !vm.ReservedNames[name] {
				names = append(names, name)
			}

		case bytecode.OpFilterExpression:
			_, ip = bytecode.ReadUint16(code, ip) // field name
			ip++                                  // FilterOp byte
			_, ip = bytecode.ReadUint16(code, ip)  // literal text

		case bytecode.OpCall:
			ip++ // argc byte

		// OpAdd/OpSub/OpMul/OpDiv/OpMod/OpPow/OpFactorial carry no operand.
		default:
		}
	}

	return names
}
