// Package keywords resolves reserved names (SUM, COUNT, and the GET_*
// host-clock variables) by exact name or unambiguous prefix, backing
// the VM's "did you mean" diagnostics, using
// `github.com/beevik/prefixtree/v2`'s generic prefix tree.
package keywords

import (
	"fmt"

	"github.com/beevik/prefixtree/v2"
)

// Names are the reserved identifiers: the two aggregate builtins plus
// the four host-clock variables. depscan.Dependencies excludes only the
// builtins (vm.ReservedNames); the GET_* names are reported.
var Names = []string{
	"SUM",
	"COUNT",
	"GET_NOW",
	"GET_TODAY",
	"GET_UPDATE_TIME",
	"GET_CREATE_TIME",
}

// Tree is a prefix-matching index over Names, for resolving a possibly
// abbreviated or mistyped identifier to the reserved name it likely
// means.
type Tree struct {
	tree *prefixtree.Tree[string]
}

// New builds a Tree indexing every entry of Names.
func New() (*Tree, error) {
	t := prefixtree.New[string]()
	for _, name := range Names {
		if err := t.Add(name, name); err != nil {
			return nil, fmt.Errorf("keywords: adding %q: %w", name, err)
		}
	}
	return &Tree{tree: t}, nil
}

// Lookup resolves prefix to the single reserved name it unambiguously
// identifies. ok is false if prefix matches no name or matches more
// than one.
func (t *Tree) Lookup(prefix string) (name string, ok bool) {
	name, err := t.tree.Find(prefix)
	if err != nil {
		return "", false
	}
	return name, true
}

// IsReserved reports whether name is exactly one of Names.
func IsReserved(name string) bool {
	for _, n := range Names {
		if n == name {
			return true
		}
	}
	return false
}
