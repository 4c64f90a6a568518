package vm

import (
	"formulang/internal/ferrors"
	"formulang/internal/value"
)

// Builtin is a host-registered named function: pop N args, push one
// result, report typed errors.
type Builtin func(args []value.Value) (value.Value, error)

// Builtins is the dispatch table: exactly SUM and COUNT,
// extensible by the host via the same calling convention. ReservedNames
// is the set the dependency extractor excludes from its
// output.
var Builtins = map[string]Builtin{
	"SUM":   builtinSum,
	"COUNT": builtinCount,
}

// ReservedNames is the builtin set the dependency extractor treats as
// already bound, never reporting them as free identifiers.
var ReservedNames = map[string]bool{
	"SUM":   true,
	"COUNT": true,
}

// SeedBuiltins adds Function values for every registered builtin to a
// heap, the way the host adapter does before evaluation.
func SeedBuiltins(heap map[string]value.Value) {
	for name := range Builtins {
		heap[name] = value.Function(name)
	}
}

func builtinSum(args []value.Value) (value.Value, error) {
	if len(args) == 1 && args[0].Kind == value.KindArray {
		total := value.Int(0)
		for _, elem := range args[0].AsArray() {
			if elem.Kind != value.KindNumber {
				return value.Value{}, invalidArg("SUM", []string{"Number", "Number[]"}, args)
			}
			var err error
			total, err = value.Add(total, elem)
			if err != nil {
				return value.Value{}, err
			}
		}
		return total, nil
	}
	if allNumbers(args) {
		total := value.Int(0)
		for _, a := range args {
			var err error
			total, err = value.Add(total, a)
			if err != nil {
				return value.Value{}, err
			}
		}
		return total, nil
	}
	return value.Value{}, invalidArg("SUM", []string{"Number", "Number[]"}, args)
}

func builtinCount(args []value.Value) (value.Value, error) {
	if len(args) == 1 && args[0].Kind == value.KindArray {
		return value.Int(int64(len(args[0].AsArray()))), nil
	}
	if allNumbers(args) {
		return value.Int(int64(len(args))), nil
	}
	return value.Value{}, invalidArg("COUNT", []string{"Number", "Array"}, args)
}

func allNumbers(args []value.Value) bool {
	if len(args) == 0 {
		return false
	}
	for _, a := range args {
		if a.Kind != value.KindNumber {
			return false
		}
	}
	return true
}

func invalidArg(name string, expected []string, actual []value.Value) error {
	kinds := make([]string, len(actual))
	for i, a := range actual {
		kinds[i] = a.Kind.String()
	}
	return ferrors.New(ferrors.FunctionInvalidArgument,
		"%s: expected one of %v, got %v", name, expected, kinds)
}
