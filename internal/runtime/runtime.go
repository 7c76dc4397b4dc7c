package runtime

import (
	"github.com/cloverlang/clover/internal/multimethod"
	"github.com/cloverlang/clover/internal/rterr"
	"github.com/cloverlang/clover/internal/value"
	"github.com/google/uuid"
)

// BindingFrame is one push-thread-bindings frame: a list of (var,
// value) entries, per spec §3's "dynamic bindings form a push-down
// stack of binding-frames."
type BindingFrame struct {
	Handle  uuid.UUID
	Entries map[*Var]value.Value
}

// Runtime owns all process-wide mutable state spec §9 calls out as
// having the runtime's own lifetime: the namespace table, the current-ns
// pointer, the dynamic-binding stack and the gensym counter.
type Runtime struct {
	Namespaces map[string]*Namespace
	CurrentNS  *Namespace

	// Hierarchy backs isa?/derive and defmulti dispatch resolution — one
	// shared global hierarchy per runtime, per spec §4.I.
	Hierarchy *multimethod.Hierarchy

	bindingStack []*BindingFrame
	gensymCounter int64
}

func NewRuntime() *Runtime {
	rt := &Runtime{Namespaces: make(map[string]*Namespace), Hierarchy: multimethod.NewHierarchy()}
	core := rt.CreateNS("clojure.core")
	user := rt.CreateNS("user")
	rt.CurrentNS = user
	for name, v := range core.Publics() {
		_ = user.Refer(name, v)
	}
	return rt
}

func (rt *Runtime) CreateNS(name string) *Namespace {
	if ns, ok := rt.Namespaces[name]; ok {
		return ns
	}
	ns := NewNamespace(name)
	rt.Namespaces[name] = ns
	return ns
}

func (rt *Runtime) FindNS(name string) (*Namespace, bool) {
	ns, ok := rt.Namespaces[name]
	return ns, ok
}

// InNS switches the current namespace, creating it if absent, and
// auto-refers clojure.core's publics (matching real Clojure's `in-ns`).
func (rt *Runtime) InNS(name string) *Namespace {
	ns := rt.CreateNS(name)
	rt.CurrentNS = ns
	if core, ok := rt.Namespaces["clojure.core"]; ok && name != "clojure.core" {
		for pubName, v := range core.Publics() {
			if _, exists := ns.Interns[pubName]; !exists {
				_ = ns.Refer(pubName, v)
			}
		}
	}
	return ns
}

// Gensym returns a fresh symbol prefix<n> from the process-wide counter.
func (rt *Runtime) Gensym(prefix string) *value.Symbol {
	if prefix == "" {
		prefix = "G__"
	}
	rt.gensymCounter++
	return value.Sym(prefix + itoa(rt.gensymCounter))
}

func itoa(n int64) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// PushThreadBindings creates a new frame where each entry is (dynamic
// var, value); rejects non-dynamic vars with *value-error* per spec
// §4.F.
func (rt *Runtime) PushThreadBindings(pairs map[*Var]value.Value) error {
	for v := range pairs {
		if !v.Dynamic {
			return rterr.New(rterr.ValueError, "can't dynamically bind non-dynamic var: %s", v.Qualified())
		}
	}
	rt.bindingStack = append(rt.bindingStack, &BindingFrame{Handle: uuid.New(), Entries: pairs})
	return nil
}

func (rt *Runtime) PopThreadBindings() error {
	if len(rt.bindingStack) == 0 {
		return rterr.New(rterr.ValueError, "no thread bindings to pop")
	}
	rt.bindingStack = rt.bindingStack[:len(rt.bindingStack)-1]
	return nil
}

// ThreadBound reports whether v has a frame-level entry anywhere on the
// current binding stack.
func (rt *Runtime) ThreadBound(v *Var) bool {
	for i := len(rt.bindingStack) - 1; i >= 0; i-- {
		if _, ok := rt.bindingStack[i].Entries[v]; ok {
			return true
		}
	}
	return false
}

// DerefVar walks the binding stack from most-recent to oldest for an
// entry bound to v, falling back to the root value.
func (rt *Runtime) DerefVar(v *Var) value.Value {
	for i := len(rt.bindingStack) - 1; i >= 0; i-- {
		if val, ok := rt.bindingStack[i].Entries[v]; ok {
			return val
		}
	}
	return v.Root()
}

// SetDynamic writes val into the innermost frame binding v, used by
// set! on a thread-bound dynamic var. Returns false if v has no
// thread-local binding (evaluator then reports *value-error*).
func (rt *Runtime) SetDynamic(v *Var, val value.Value) bool {
	for i := len(rt.bindingStack) - 1; i >= 0; i-- {
		if _, ok := rt.bindingStack[i].Entries[v]; ok {
			rt.bindingStack[i].Entries[v] = val
			return true
		}
	}
	return false
}

// AlterVarRoot atomically replaces v's root with f(old, extra...).
// Atomicity is satisfied by sequential evaluation — the runtime is
// single-threaded, per spec §4.F.
func (rt *Runtime) AlterVarRoot(v *Var, f func(old value.Value) (value.Value, error)) (value.Value, error) {
	newVal, err := f(v.Root())
	if err != nil {
		return nil, err
	}
	v.BindRoot(newVal)
	return newVal, nil
}
