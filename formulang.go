// Package formulang is the embeddable formula language's public entry
// point: compile, run, and dependency-scan a single-line formula
// expression against a JSON record.
package formulang

import (
	"formulang/internal/bytecode"
	"formulang/internal/compiler"
	"formulang/internal/depscan"
	"formulang/internal/ferrors"
	"formulang/internal/hostctx"
	"formulang/internal/lexer"
	"formulang/internal/parser"
	"formulang/internal/value"
	"formulang/internal/vm"
)

// Compile lexes, parses, and compiles a formula expression to its opaque
// bytecode encoding. The returned bytes round-trip through
// Run and Dependencies; their exact framing is not part of this API's
// contract.
func Compile(expr string) ([]byte, error) {
	chunk, err := compileChunk(expr)
	if err != nil {
		return nil, err
	}
	return bytecode.Encode(chunk), nil
}

// Clock supplies the four host-clock variables a formula may read, as
// Number values. All four are epoch-millisecond instants.
type Clock struct {
	Now        int64
	Today      int64
	UpdateTime int64
	CreateTime int64
}

// Run decodes previously compiled bytecode and evaluates it against
// recordJSON (a JSON object) and clock, returning the display-formatted
// result string.
func Run(compiled []byte, recordJSON []byte, clock Clock) (string, error) {
	chunk, err := bytecode.Decode(compiled)
	if err != nil {
		return "", ferrors.New(ferrors.ParseError, "invalid bytecode: %s", err)
	}
	heap, err := hostctx.Build(recordJSON, chunk, hostctx.TimeContext{
		Now:        clock.Now,
		Today:      clock.Today,
		UpdateTime: clock.UpdateTime,
		CreateTime: clock.CreateTime,
	})
	if err != nil {
		return "", err
	}
	ctx := vm.NewRuntimeContext(heap)
	result, err := vm.Run(chunk, ctx)
	if err != nil {
		return "", err
	}
	return value.Display(result), nil
}

// Dependencies decodes previously compiled bytecode and returns the
// free host identifiers it reads, excluding builtins, in bytecode
// occurrence order with duplicates preserved.
func Dependencies(compiled []byte) ([]string, error) {
	chunk, err := bytecode.Decode(compiled)
	if err != nil {
		return nil, ferrors.New(ferrors.ParseError, "invalid bytecode: %s", err)
	}
	return depscan.Dependencies(chunk), nil
}

func compileChunk(expr string) (*bytecode.Chunk, error) {
	scanner := lexer.NewScanner(expr)
	tokens, err := scanner.ScanTokens()
	if err != nil {
		lexErr := err.(*lexer.Error)
		return nil, ferrors.NewParseError(lexErr.Message, lexErr.Offset, lexErr.Line, lexErr.Column)
	}
	p := parser.New(tokens, expr)
	body, err := p.Parse()
	if err != nil {
		return nil, err
	}
	return compiler.Compile(body)
}
