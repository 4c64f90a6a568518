package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/subcommands"
	"github.com/kr/pretty"

	"formulang"
	"formulang/internal/bytecode"
	"formulang/internal/irdump"
	"formulang/internal/lexer"
	"formulang/internal/parser"
)

type compileCmd struct {
	out     string
	emitIR  bool
	dumpAST bool
	verbose bool
}

func (*compileCmd) Name() string     { return "compile" }
func (*compileCmd) Synopsis() string { return "Compile a formula expression to bytecode" }
func (*compileCmd) Usage() string {
	return `compile [-o file] [-emit-ir] [-dump-ast] [-v] "<formula>":
  Compile a formula expression, writing its bytecode to stdout or -o.
`
}

func (c *compileCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.out, "o", "", "write bytecode to this file instead of stdout")
	f.BoolVar(&c.emitIR, "emit-ir", false, "print the formula's textual LLVM IR rendering to stderr")
	f.BoolVar(&c.dumpAST, "dump-ast", false, "pretty-print the parsed AST to stderr before compiling")
	f.BoolVar(&c.verbose, "v", false, "print compile timing to stderr")
}

func (c *compileCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	args := f.Args()
	if len(args) < 1 {
		return fail("💥 no formula expression provided")
	}
	expr := args[0]

	if c.dumpAST {
		scanner := lexer.NewScanner(expr)
		tokens, err := scanner.ScanTokens()
		if err != nil {
			return fail("💥 lex error: %v", err)
		}
		body, err := parser.New(tokens, expr).Parse()
		if err != nil {
			return fail("💥 parse error: %v", err)
		}
		fmt.Fprintf(os.Stderr, "%# v\n", pretty.Formatter(body))
	}

	start := time.Now()
	compiled, err := formulang.Compile(expr)
	if err != nil {
		return fail("💥 compile error: %v", err)
	}
	if c.verbose {
		fmt.Fprintf(os.Stderr, "compiled %s in %s\n",
			humanize.Bytes(uint64(len(compiled))), time.Since(start))
	}

	if c.emitIR {
		chunk, err := bytecode.Decode(compiled)
		if err != nil {
			return fail("💥 decoding freshly compiled bytecode: %v", err)
		}
		ir, err := irdump.Dump(chunk)
		if err != nil {
			return fail("💥 rendering IR: %v", err)
		}
		fmt.Fprintln(os.Stderr, ir)
	}

	if c.out == "" {
		os.Stdout.Write(compiled)
		return subcommands.ExitSuccess
	}
	if err := os.WriteFile(c.out, compiled, 0o644); err != nil {
		return fail("💥 writing %s: %v", c.out, err)
	}
	return subcommands.ExitSuccess
}
