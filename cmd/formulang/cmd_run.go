package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/subcommands"
	"github.com/ncruces/go-strftime"

	"formulang"
)

type runCmd struct {
	bytecodeFile bool
	now          int64
	today        int64
	updateTime   int64
	createTime   int64
	verbose      bool
}

func (*runCmd) Name() string     { return "run" }
func (*runCmd) Synopsis() string { return "Run a formula (or compiled bytecode file) against a record" }
func (*runCmd) Usage() string {
	return `run [-bytecode] <formula-or-file> <record.json>:
  Evaluate a formula against a JSON record and print the result.
`
}

func (r *runCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&r.bytecodeFile, "bytecode", false, "treat the first argument as a path to compiled bytecode, not a formula string")
	now := time.Now().UnixMilli()
	f.Int64Var(&r.now, "now", now, "GET_NOW, epoch milliseconds")
	f.Int64Var(&r.today, "today", now, "GET_TODAY, epoch milliseconds")
	f.Int64Var(&r.updateTime, "update-time", now, "GET_UPDATE_TIME, epoch milliseconds")
	f.Int64Var(&r.createTime, "create-time", now, "GET_CREATE_TIME, epoch milliseconds")
	f.BoolVar(&r.verbose, "v", false, "print the resolved clock values in human-readable form to stderr")
}

func (r *runCmd) logClock() {
	for _, clk := range []struct {
		name string
		ms   int64
	}{
		{"GET_NOW", r.now}, {"GET_TODAY", r.today},
		{"GET_UPDATE_TIME", r.updateTime}, {"GET_CREATE_TIME", r.createTime},
	} {
		t := time.UnixMilli(clk.ms).UTC()
		human, err := strftime.Format("%Y-%m-%d %H:%M:%S UTC", t)
		if err != nil {
			human = t.String()
		}
		fmt.Fprintf(os.Stderr, "%s = %d (%s)\n", clk.name, clk.ms, human)
	}
}

func (r *runCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	args := f.Args()
	if len(args) < 2 {
		return fail("💥 usage: run [-bytecode] <formula-or-file> <record.json>")
	}

	var compiled []byte
	if r.bytecodeFile {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fail("💥 reading bytecode file: %v", err)
		}
		compiled = data
	} else {
		c, err := formulang.Compile(args[0])
		if err != nil {
			return fail("💥 compile error: %v", err)
		}
		compiled = c
	}

	record, err := os.ReadFile(args[1])
	if err != nil {
		return fail("💥 reading record file: %v", err)
	}

	if r.verbose {
		r.logClock()
	}

	result, err := formulang.Run(compiled, record, formulang.Clock{
		Now:        r.now,
		Today:      r.today,
		UpdateTime: r.updateTime,
		CreateTime: r.createTime,
	})
	if err != nil {
		return fail("💥 runtime error: %v", err)
	}
	fmt.Println(result)
	return subcommands.ExitSuccess
}
