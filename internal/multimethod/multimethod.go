// Package multimethod implements defmulti/defmethod dispatch: a dispatch
// function picks a value, dispatch value is matched against registered
// methods first exactly then through an isa? hierarchy, and an optional
// preference table breaks ties between ambiguous candidates. Grounded on
// spec §4.I; the dispatch-cache-invalidation pattern follows the
// teacher's backend method-table caches (internal/backend), generalized
// from compiled opcodes to dynamic dispatch-value lookup.
package multimethod

import (
	"github.com/cloverlang/clover/internal/rterr"
	"github.com/cloverlang/clover/internal/value"
)

// DispatchFn computes the dispatch value from the call args.
type DispatchFn func(args []value.Value) (value.Value, error)

// MethodFn is a registered method body.
type MethodFn func(args []value.Value) (value.Value, error)

// Hierarchy answers isa? queries between dispatch values, per spec
// §4.I's "global hierarchy of ad-hoc 'isa?' relationships between
// keywords/symbols/types."
type Hierarchy struct {
	// parents[child] = set of direct parents
	parents map[string]map[string]bool
}

func NewHierarchy() *Hierarchy {
	return &Hierarchy{parents: make(map[string]map[string]bool)}
}

func dispatchKey(v value.Value) string {
	return value.PrStr(v)
}

func (h *Hierarchy) Derive(child, parent value.Value) {
	ck, pk := dispatchKey(child), dispatchKey(parent)
	if h.parents[ck] == nil {
		h.parents[ck] = make(map[string]bool)
	}
	h.parents[ck][pk] = true
}

// Isa reports whether a is-a b, directly or transitively, or a equals b,
// per spec §4.H: keywords/symbols/types compare through the derive
// parent graph, and two vectors of equal length match when every
// element pairwise isa? (a vector dispatch value is typically used for
// multiple-dispatch on a tuple of types/keywords).
func (h *Hierarchy) Isa(a, b value.Value) bool {
	if value.Eql(a, b) {
		return true
	}
	va, aIsVec := a.(*value.Vector)
	vb, bIsVec := b.(*value.Vector)
	if aIsVec || bIsVec {
		if !aIsVec || !bIsVec || va.Count() != vb.Count() {
			return false
		}
		for i := 0; i < va.Count(); i++ {
			ea, _ := va.Nth(i)
			eb, _ := vb.Nth(i)
			if !h.Isa(ea, eb) {
				return false
			}
		}
		return true
	}
	return h.isaKey(dispatchKey(a), dispatchKey(b), make(map[string]bool))
}

func (h *Hierarchy) isaKey(a, b string, seen map[string]bool) bool {
	if a == b {
		return true
	}
	if seen[a] {
		return false
	}
	seen[a] = true
	for p := range h.parents[a] {
		if h.isaKey(p, b, seen) {
			return true
		}
	}
	return false
}

// method pairs a registered dispatch value with its body, so resolve
// can run Hierarchy.Isa (which needs the real Value for the vector
// pairwise rule) against candidates instead of just their string keys.
type method struct {
	val value.Value
	fn  MethodFn
}

// preference records a PreferMethod(x, y) call by its actual dispatch
// values, so pickWinner can test ancestor-based preference (spec
// §4.H point 3: x beats y if some registered preference (p, q) has
// x isa? p and y isa? q, not just an exact (x, y) match).
type preference struct {
	x, y value.Value
}

// MultiFn is a defmulti value: implements value.Value/value.Inspector so
// it can sit in a Var root and print like any other callable.
type MultiFn struct {
	Name       string
	Dispatch   DispatchFn
	Hierarchy  *Hierarchy
	Default    value.Value // dispatch value treated as fallback, default :default

	methods map[string]method
	prefers []preference

	cache map[string]MethodFn
}

func NewMultiFn(name string, dispatch DispatchFn, h *Hierarchy) *MultiFn {
	return &MultiFn{
		Name:      name,
		Dispatch:  dispatch,
		Hierarchy: h,
		Default:   value.Kw("", "default"),
		methods:   make(map[string]method),
		cache:     make(map[string]MethodFn),
	}
}

func (m *MultiFn) Tag() value.Tag  { return value.TagMultiFn }
func (m *MultiFn) Hash() uint32    { return hashString(m.Name) }
func (m *MultiFn) InspectStr() string { return "#<multifn " + m.Name + ">" }

func hashString(s string) uint32 {
	var h uint32 = 2166136261
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= 16777619
	}
	return h
}

// AddMethod registers/overwrites the method for dispatchVal and
// invalidates the cache, since a new method can change prior resolutions.
func (m *MultiFn) AddMethod(dispatchVal value.Value, fn MethodFn) {
	m.methods[dispatchKey(dispatchVal)] = method{val: dispatchVal, fn: fn}
	m.cache = make(map[string]MethodFn)
}

func (m *MultiFn) RemoveMethod(dispatchVal value.Value) {
	delete(m.methods, dispatchKey(dispatchVal))
	m.cache = make(map[string]MethodFn)
}

// PreferMethod records that, among ambiguous candidates, x should win
// over y.
func (m *MultiFn) PreferMethod(x, y value.Value) {
	m.prefers = append(m.prefers, preference{x: x, y: y})
	m.cache = make(map[string]MethodFn)
}

// Invoke computes the dispatch value, resolves a method (exact match,
// then hierarchy search with preference-based tie-break, then :default),
// caches the resolution and calls it.
func (m *MultiFn) Invoke(args []value.Value) (value.Value, error) {
	dv, err := m.Dispatch(args)
	if err != nil {
		return nil, err
	}
	key := dispatchKey(dv)
	if fn, ok := m.cache[key]; ok {
		return fn(args)
	}
	fn, err := m.resolve(dv, key)
	if err != nil {
		return nil, err
	}
	m.cache[key] = fn
	return fn(args)
}

func (m *MultiFn) resolve(dv value.Value, key string) (MethodFn, error) {
	if meth, ok := m.methods[key]; ok {
		return meth.fn, nil
	}
	var candidates []method
	for mk, meth := range m.methods {
		if mk == dispatchKey(m.Default) {
			continue
		}
		// a candidate matches if dv isa? the method's declared value,
		// using the real Value (not just its key) so a vector dispatch
		// value can match through the pairwise-isa? rule.
		if m.Hierarchy.Isa(dv, meth.val) {
			candidates = append(candidates, meth)
		}
	}
	winner, err := m.pickWinner(candidates)
	if err != nil {
		return nil, err
	}
	if winner != nil {
		return winner.fn, nil
	}
	if meth, ok := m.methods[dispatchKey(m.Default)]; ok {
		return meth.fn, nil
	}
	return nil, rterr.New(rterr.ValueError, "no method in multimethod '%s' for dispatch value: %s", m.Name, key)
}

// pickWinner reduces candidates to a single best match using the
// preference table; ties with no recorded preference are ambiguous.
func (m *MultiFn) pickWinner(candidates []method) (*method, error) {
	if len(candidates) == 0 {
		return nil, nil
	}
	best := candidates[0]
	for _, c := range candidates[1:] {
		if m.beats(c.val, best.val) {
			best = c
		} else if !m.beats(best.val, c.val) && dispatchKey(c.val) != dispatchKey(best.val) {
			return nil, rterr.New(rterr.ValueError, "multiple methods in multimethod '%s' match dispatch value, and none is preferred", m.Name)
		}
	}
	return &best, nil
}

// beats reports whether dispatch value a is preferred over b, per spec
// §4.H point 3: either a direct PreferMethod(a, b) call, or a preference
// (p, q) where a isa? p and b isa? q (an ancestor-based preference
// extends to every pair of values that is-a the preferred pair).
func (m *MultiFn) beats(a, b value.Value) bool {
	for _, p := range m.prefers {
		if m.Hierarchy.Isa(a, p.x) && m.Hierarchy.Isa(b, p.y) {
			return true
		}
	}
	return false
}
