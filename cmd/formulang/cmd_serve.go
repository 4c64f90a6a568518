package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"formulang/internal/netserve"
)

type serveCmd struct {
	addr string
}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "Start a WebSocket formula evaluation server" }
func (*serveCmd) Usage() string {
	return `serve [-addr :8080]:
  Accept WebSocket connections on /eval, evaluating one formula request per message.
`
}

func (c *serveCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.addr, "addr", ":8080", "address to listen on")
}

func (c *serveCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	srv := netserve.New(c.addr)
	fmt.Fprintf(os.Stderr, "formulang: listening on %s (ws://%s/eval)\n", c.addr, c.addr)
	if err := srv.ListenAndServe(); err != nil {
		return fail("💥 server error: %v", err)
	}
	return subcommands.ExitSuccess
}
