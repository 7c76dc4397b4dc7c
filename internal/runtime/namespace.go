package runtime

import (
	"fmt"

	"github.com/cloverlang/clover/internal/rterr"
	"github.com/cloverlang/clover/internal/value"
	"github.com/google/uuid"
)

// Namespace has interns (locally owned Vars), refers (Vars owned
// elsewhere, imported under a local name) and aliases (local name for
// another Namespace), per spec §3.
type Namespace struct {
	Name    string
	Interns map[string]*Var
	Refers  map[string]*Var
	Aliases map[string]*Namespace

	// Handle is a debug-only stable id (spec §9 / SPEC_FULL §10.5) that
	// names a namespace without holding a Go pointer to it; Hash is
	// derived from it. The REPL has no command that displays it.
	Handle uuid.UUID
}

func NewNamespace(name string) *Namespace {
	return &Namespace{
		Name:    name,
		Interns: make(map[string]*Var),
		Refers:  make(map[string]*Var),
		Aliases: make(map[string]*Namespace),
		Handle:  uuid.New(),
	}
}

// Intern binds name in this namespace, idempotently: an existing Var is
// returned unchanged rather than replaced.
func (ns *Namespace) Intern(name string) *Var {
	if v, ok := ns.Interns[name]; ok {
		return v
	}
	v := NewVar(ns.Name, name)
	v.Handle = uuid.New().String()
	ns.Interns[name] = v
	return v
}

// Refer imports other's Var under localName. Conflict policy per spec
// §4.F: overwrite silently unless localName was previously interned
// LOCALLY (owned by this namespace), in which case reject.
func (ns *Namespace) Refer(localName string, v *Var) error {
	if _, ownedLocally := ns.Interns[localName]; ownedLocally {
		return rterr.New(rterr.ValueError, "refer of %s would shadow local interned var in %s", localName, ns.Name)
	}
	ns.Refers[localName] = v
	return nil
}

func (ns *Namespace) Alias(aliasName string, target *Namespace) {
	ns.Aliases[aliasName] = target
}

// Publics returns all public (non-private) interned vars.
func (ns *Namespace) Publics() map[string]*Var {
	out := make(map[string]*Var)
	for name, v := range ns.Interns {
		if !v.Private {
			out[name] = v
		}
	}
	return out
}

// NsMap returns interns ∪ refers (refers win only where no local intern
// exists, matching normal Clojure semantics since a name cannot be both).
func (ns *Namespace) NsMap() map[string]*Var {
	out := make(map[string]*Var, len(ns.Interns)+len(ns.Refers))
	for name, v := range ns.Refers {
		out[name] = v
	}
	for name, v := range ns.Interns {
		out[name] = v
	}
	return out
}

// Resolve looks up a symbol (ns, name) per spec §3's resolution order:
// qualified symbols check aliases then the global namespace table;
// unqualified symbols check interns then refers.
func (rt *Runtime) Resolve(ns *Namespace, symNs, symName string) (*Var, error) {
	if symNs != "" {
		if target, ok := ns.Aliases[symNs]; ok {
			if v, ok := target.Interns[symName]; ok {
				return v, nil
			}
			return nil, rterr.New(rterr.EvalError, "unable to resolve %s/%s via alias", symNs, symName)
		}
		target, ok := rt.Namespaces[symNs]
		if !ok {
			return nil, rterr.New(rterr.NamespaceNotFound, "no such namespace: %s", symNs)
		}
		if v, ok := target.Interns[symName]; ok {
			return v, nil
		}
		return nil, rterr.New(rterr.EvalError, "unable to resolve %s/%s", symNs, symName)
	}
	if v, ok := ns.Interns[symName]; ok {
		return v, nil
	}
	if v, ok := ns.Refers[symName]; ok {
		return v, nil
	}
	return nil, rterr.New(rterr.EvalError, "unable to resolve symbol: %s", symName)
}

func (ns *Namespace) String() string { return fmt.Sprintf("#<namespace %s>", ns.Name) }

// Tag/Hash/InspectStr let a Namespace sit in the Value model directly —
// (find-ns 'foo) and (the-ns 'foo) hand the namespace itself back to
// clover code, matching real Clojure where namespaces are first-class.
func (ns *Namespace) Tag() value.Tag { return value.TagNamespace }
func (ns *Namespace) Hash() uint32 {
	h := uint32(2166136261)
	for _, b := range ns.Handle {
		h = (h ^ uint32(b)) * 16777619
	}
	return h
}
func (ns *Namespace) InspectStr() string { return ns.String() }

