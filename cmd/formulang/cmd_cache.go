package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/subcommands"

	"formulang"
	"formulang/internal/cache"
)

// cacheCmd warms a BoltStore-backed bytecode cache from formula source
// files, so a long-running host can start from a populated cache
// instead of compiling every formula on first use.
type cacheCmd struct {
	store string
}

func (*cacheCmd) Name() string     { return "cache" }
func (*cacheCmd) Synopsis() string { return "Warm a bytecode cache from formula source files" }
func (*cacheCmd) Usage() string {
	return `cache -store path.bolt <formula-file>...:
  Compile each formula (one per line) and store its bytecode, keyed by
  the blake2b hash of its source text.
`
}

func (c *cacheCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.store, "store", "formulang.bolt", "path to the bbolt cache file")
}

func (c *cacheCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	args := f.Args()
	if len(args) < 1 {
		return fail("💥 no formula source file provided")
	}

	store, err := cache.OpenBoltStore(c.store)
	if err != nil {
		return fail("💥 opening cache store: %v", err)
	}
	defer store.Close()
	logged := cache.LoggingStore{Store: store}

	warmed := 0
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return fail("💥 reading %s: %v", path, err)
		}
		for _, rawLine := range strings.Split(string(data), "\n") {
			line := strings.TrimSpace(rawLine)
			if line == "" {
				continue
			}
			compiled, err := formulang.Compile(line)
			if err != nil {
				fmt.Fprintf(os.Stderr, "skipping %q: %v\n", line, err)
				continue
			}
			key := cache.KeyOf(line)
			if _, hit, _ := logged.Get(key); hit {
				continue
			}
			if err := logged.Put(key, compiled); err != nil {
				return fail("💥 writing cache entry: %v", err)
			}
			warmed++
		}
	}
	fmt.Printf("warmed %d formulas into %s\n", warmed, c.store)
	return subcommands.ExitSuccess
}
