// Package evaluator implements the tree-walking Node→Value evaluator:
// environment chain, Var resolution through the Runtime, invocation
// dispatch across every callable variant, the recur trampoline, and
// try/catch/throw, per spec §4.E. Grounded on the teacher's
// internal/backend package (the stage that walks compiled instructions
// and drives a call stack) — generalized from bytecode dispatch to
// direct ast.Node recursion, since spec §4.E mandates a single
// tree-walking interpreter rather than a VM.
package evaluator

import "github.com/cloverlang/clover/internal/value"

// Env is one lexical frame, a parallel structure to analyzer.Scope: each
// Let/Loop/fn-arity introduces exactly one frame, matching the
// LocalDepth the analyzer computed for every KLocalRef.
type Env struct {
	names  []string
	vals   []value.Value
	parent *Env
}

func NewEnv(parent *Env, names []string, vals []value.Value) *Env {
	return &Env{names: names, vals: vals, parent: parent}
}

// Get walks `depth` frames out then linear-scans that frame for name,
// which the analyzer has already guaranteed is present there.
func (e *Env) Get(depth int, name string) value.Value {
	frame := e
	for i := 0; i < depth; i++ {
		frame = frame.parent
	}
	for i, n := range frame.names {
		if n == name {
			return frame.vals[i]
		}
	}
	return value.NilValue
}
