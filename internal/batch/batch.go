// Package batch evaluates a compiled formula against many host records
// concurrently and collapses concurrent compiles of the same formula
// source into one compile, following the worker-pool shape used across
// this codebase's concurrency-heavy packages, but built directly from
// `golang.org/x/sync` rather than hand-rolled channels/WaitGroups, since
// that module is already in the dependency graph.
package batch

import (
	"context"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"formulang/internal/bytecode"
	"formulang/internal/compiler"
	"formulang/internal/ferrors"
	"formulang/internal/hostctx"
	"formulang/internal/lexer"
	"formulang/internal/parser"
	"formulang/internal/value"
	"formulang/internal/vm"
)

// Compiler collapses concurrent compiles of identical source text via
// singleflight, so a burst of records sharing one formula only pays the
// lex/parse/compile cost once.
type Compiler struct {
	group singleflight.Group
}

// Compile returns the bytecode Chunk for expr, compiling it at most once
// per distinct source string even under concurrent callers.
func (c *Compiler) Compile(expr string) (*bytecode.Chunk, error) {
	v, err, _ := c.group.Do(expr, func() (interface{}, error) {
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
	})
	if err != nil {
		return nil, err
	}
	return v.(*bytecode.Chunk), nil
}

// Record pairs a host record's identity with its JSON body and clock
// values, the unit of work fanned out across goroutines.
type Record struct {
	ID    string
	JSON  []byte
	Clock hostctx.TimeContext
}

// Result is one Record's outcome: either Display holds the formula's
// rendered result, or Err holds the reason it failed for that record
// alone (a per-record failure never aborts the rest of the batch).
type Result struct {
	ID      string
	Display string
	Err     error
}

// Run evaluates chunk against every record in records concurrently,
// bounded by limit simultaneous goroutines (limit <= 0 means
// unbounded). Order of the returned slice matches the order of records.
func Run(ctx context.Context, chunk *bytecode.Chunk, records []Record, limit int) ([]Result, error) {
	results := make([]Result, len(records))
	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, rec := range records {
		i, rec := i, rec
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i] = Result{ID: rec.ID, Err: err}
				return nil
			}
			heap, err := hostctx.Build(rec.JSON, chunk, rec.Clock)
			if err != nil {
				results[i] = Result{ID: rec.ID, Err: err}
				return nil
			}
			runCtx := vm.NewRuntimeContext(heap)
			out, err := vm.Run(chunk, runCtx)
			if err != nil {
				results[i] = Result{ID: rec.ID, Err: err}
				return nil
			}
			results[i] = Result{ID: rec.ID, Display: value.Display(out)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}
