package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"

	"formulang"
)

type depsCmd struct{}

func (*depsCmd) Name() string     { return "deps" }
func (*depsCmd) Synopsis() string { return "List the host identifiers a formula reads" }
func (*depsCmd) Usage() string {
	return `deps "<formula>":
  Print the free host identifiers the formula depends on, one per line.
`
}
func (*depsCmd) SetFlags(f *flag.FlagSet) {}

func (*depsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	args := f.Args()
	if len(args) < 1 {
		return fail("💥 no formula expression provided")
	}

	compiled, err := formulang.Compile(args[0])
	if err != nil {
		return fail("💥 compile error: %v", err)
	}
	names, err := formulang.Dependencies(compiled)
	if err != nil {
		return fail("💥 dependency scan error: %v", err)
	}
	for _, name := range names {
		fmt.Println(name)
	}
	return subcommands.ExitSuccess
}
