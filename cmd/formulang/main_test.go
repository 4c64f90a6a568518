package main

import (
	"os"
	"testing"

	"github.com/rogpeppe/go-internal/testscript"
)

// TestMain lets `go test` double as the testscript-spawned binary
// (the `exec formulang` lines in testdata/*.txtar run this same test
// binary re-invoked as a subprocess), the standard testscript wiring.
func TestMain(m *testing.M) {
	os.Exit(testscript.RunMain(m, map[string]func() int{
		"formulang": func() int {
			main()
			return 0
		},
	}))
}

func TestCLI(t *testing.T) {
	testscript.Run(t, testscript.Params{
		Dir: "testdata/script",
	})
}
