// Package replterm is an interactive one-formula-per-line REPL, with
// line editing and history via `github.com/chzyer/readline`.
package replterm

import (
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"

	"formulang/internal/batch"
	"formulang/internal/ferrors"
	"formulang/internal/hostctx"
	"formulang/internal/value"
	"formulang/internal/vm"
)

// Options configures a REPL session. Record supplies the JSON record
// each formula is evaluated against; Clock supplies the four host-clock
// variables.
type Options struct {
	Record []byte
	Clock  hostctx.TimeContext
	Out    io.Writer
}

// Run starts an interactive session, reading formula lines until "exit"
// or EOF. Each line is compiled and run independently against
// opts.Record; parse/compile/runtime errors are printed and do not end
// the session.
func Run(opts Options) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:      ">>> ",
		HistoryFile: "",
	})
	if err != nil {
		return fmt.Errorf("replterm: starting readline: %w", err)
	}
	defer rl.Close()

	fmt.Fprintln(opts.Out, "formulang REPL — type a formula, or \"exit\" to quit.")

	var compiler batch.Compiler
	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "exit" {
			return nil
		}

		result, err := evaluate(&compiler, line, opts.Record, opts.Clock)
		if err != nil {
			fmt.Fprintln(opts.Out, err)
			continue
		}
		fmt.Fprintln(opts.Out, result)
	}
}

func evaluate(compiler *batch.Compiler, line string, record []byte, clock hostctx.TimeContext) (string, error) {
	chunk, err := compiler.Compile(line)
	if err != nil {
		return "", err
	}
	heap, err := hostctx.Build(record, chunk, clock)
	if err != nil {
		return "", ferrors.New(ferrors.ParseError, "building record context: %s", err)
	}
	out, err := vm.Run(chunk, vm.NewRuntimeContext(heap))
	if err != nil {
		return "", err
	}
	return value.Display(out), nil
}
