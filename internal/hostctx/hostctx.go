// Package hostctx builds the VM heap from a host JSON record the way a
// real integration would: recursive JSON→Value conversion plus the
// GET_NOW/GET_TODAY/GET_UPDATE_TIME/GET_CREATE_TIME time variables every
// formula may reference.
package hostctx

import (
	"bytes"
	"encoding/json"
	"fmt"

	"formulang/internal/bytecode"
	"formulang/internal/depscan"
	"formulang/internal/ferrors"
	"formulang/internal/rational"
	"formulang/internal/value"
	"formulang/internal/vm"
)

// TimeContext supplies the four host-clock variables, each an
// epoch-millisecond instant seeded as Number so that a formula like
// `... + GET_NOW - GET_UPDATE_TIME` type-checks against the existing
// Number arithmetic dispatch table without new DateTime cases.
type TimeContext struct {
	Now        int64
	Today      int64
	UpdateTime int64
	CreateTime int64
}

// Build converts a JSON record into a heap of bound identifiers: the
// four GET_* time variables, every registered builtin, and only the
// top-level JSON fields chunk's dependency scan actually requests.
// recordJSON's top-level value must be a JSON object.
//
// Converting only requested fields means a record field the formula
// never reads, but whose JSON value this language can't represent (an
// overflowing number, say), doesn't abort evaluation: the dependency
// extractor is what lets a host skip binding fields it doesn't need.
func Build(recordJSON []byte, chunk *bytecode.Chunk, tc TimeContext) (map[string]value.Value, error) {
	dec := json.NewDecoder(bytes.NewReader(recordJSON))
	dec.UseNumber() // preserve exact decimal text instead of rounding through float64
	var raw map[string]interface{}
	if err := dec.Decode(&raw); err != nil {
		return nil, ferrors.New(ferrors.ParseError, "invalid record JSON: %s", err)
	}

	needed := make(map[string]bool)
	for _, name := range depscan.Dependencies(chunk) {
		needed[name] = true
	}

	heap := make(map[string]value.Value, len(needed)+8)
	for k, v := range raw {
		if !needed[k] {
			continue
		}
		conv, err := convert(v)
		if err != nil {
			return nil, err
		}
		heap[k] = conv
	}

	heap["GET_NOW"] = value.Int(tc.Now)
	heap["GET_TODAY"] = value.Int(tc.Today)
	heap["GET_UPDATE_TIME"] = value.Int(tc.UpdateTime)
	heap["GET_CREATE_TIME"] = value.Int(tc.CreateTime)

	vm.SeedBuiltins(heap)
	return heap, nil
}

// convert maps one decoded JSON value to the language's tagged Value
// domain, recursing into arrays and objects (conversion
// table: JSON number→Number via its exact decimal text, JSON
// string→String, JSON object→Object, JSON array→Array, null→Null).
func convert(v interface{}) (value.Value, error) {
	switch tv := v.(type) {
	case nil:
		return value.Null(), nil
	case bool:
		return value.Bool(tv), nil
	case json.Number:
		r, err := rational.FromDecimalString(string(tv))
		if err != nil {
			return value.Value{}, ferrors.New(ferrors.NumberConversionError, "%s", err)
		}
		return value.Number(r), nil
	case float64:
		r, err := rational.FromFloat64(tv)
		if err != nil {
			return value.Value{}, ferrors.New(ferrors.NumberConversionError, "%s", err)
		}
		return value.Number(r), nil
	case string:
		return value.String(tv), nil
	case []interface{}:
		elems := make([]value.Value, len(tv))
		for i, e := range tv {
			conv, err := convert(e)
			if err != nil {
				return value.Value{}, err
			}
			elems[i] = conv
		}
		return value.Array(elems), nil
	case map[string]interface{}:
		b := value.NewObject()
		for _, k := range sortedKeys(tv) {
			conv, err := convert(tv[k])
			if err != nil {
				return value.Value{}, err
			}
			b.Set(k, conv)
		}
		return b.Build(), nil
	default:
		return value.Value{}, fmt.Errorf("hostctx: unsupported JSON value %T", v)
	}
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	// insertion order is not recoverable from encoding/json's
	// map[string]interface{} decode; a stable lexical order keeps Object
	// display deterministic across runs.
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j-1] > keys[j]; j-- {
			keys[j-1], keys[j] = keys[j], keys[j-1]
		}
	}
	return keys
}
