// Command formulang is the CLI front end for the formula-language
// library: compile a formula to bytecode, run it against a JSON record,
// list its host dependencies, warm a bytecode cache, serve a network
// adapter, or start an interactive session. One `cmd_*.go` file per
// verb, registered with `github.com/google/subcommands`.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, "formulang")
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")
	commander.Register(&compileCmd{}, "")
	commander.Register(&runCmd{}, "")
	commander.Register(&depsCmd{}, "")
	commander.Register(&replCmd{}, "")
	commander.Register(&serveCmd{}, "")
	commander.Register(&cacheCmd{}, "")

	flag.Parse()
	ctx := context.Background()
	os.Exit(int(commander.Execute(ctx)))
}

func fail(format string, args ...interface{}) subcommands.ExitStatus {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	return subcommands.ExitFailure
}
