package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/google/subcommands"

	"formulang/internal/hostctx"
	"formulang/internal/replterm"
)

type replCmd struct {
	recordFile string
}

func (*replCmd) Name() string     { return "repl" }
func (*replCmd) Synopsis() string { return "Start an interactive formula REPL" }
func (*replCmd) Usage() string {
	return `repl [-record file.json]:
  Start an interactive session evaluating one formula per line.
`
}

func (c *replCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.recordFile, "record", "", "JSON record to evaluate formulas against (default: {})")
}

func (c *replCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	record := []byte(`{}`)
	if c.recordFile != "" {
		data, err := os.ReadFile(c.recordFile)
		if err != nil {
			return fail("💥 reading record file: %v", err)
		}
		record = data
	}

	now := time.Now().UnixMilli()
	err := replterm.Run(replterm.Options{
		Record: record,
		Clock: hostctx.TimeContext{
			Now:        now,
			Today:      now,
			UpdateTime: now,
			CreateTime: now,
		},
		Out: os.Stdout,
	})
	if err != nil {
		return fail("💥 repl error: %v", err)
	}
	return subcommands.ExitSuccess
}
