// Package runtime implements the Namespace/Var system: qualified name
// resolution, interning, dynamic bindings, aliases and refers, per spec
// §3 Namespace & Var / §4.F. Grounded on the teacher's
// internal/symbols/symbol_table_core.go Symbol struct (a name + flags +
// definition-site metadata record kept in a scope map) — we keep that
// "plain record in a name-keyed map" shape and drop the Hindley-Milner
// type-inference fields, since clover is dynamically typed.
package runtime

import "github.com/cloverlang/clover/internal/value"

// Var is a mutable named binding owned by a namespace. Per spec §9's
// design note, a Var holds its owning namespace by NAME, not by a Go
// pointer back to *Namespace, so Namespace and Var never form a
// reference cycle — resolution always goes through the Runtime's
// namespace table.
type Var struct {
	Ns   string
	Name string

	root Value
	Meta *value.PersistentMap

	Dynamic bool
	Macro   bool
	Private bool

	Doc      string
	Arglists value.Value
	Added    string
	File     string
	Line     int

	// Handle is a debug-only stable identifier (spec §9's arena/stable
	// -handle recommendation); it never participates in Eql/Hash.
	Handle string
}

// Value is an alias to avoid a stutter-y value.Value everywhere in this
// file; kept local to this package.
type Value = value.Value

func NewVar(ns, name string) *Var {
	return &Var{Ns: ns, Name: name, root: value.NilValue}
}

func (v *Var) Tag() value.Tag { return value.TagVarRef }

func (v *Var) Hash() uint32 {
	return uint32(len(v.Ns))*31 + uint32(len(v.Name))
}

func (v *Var) VarNamespace() string { return v.Ns }
func (v *Var) VarName() string     { return v.Name }

func (v *Var) InspectStr() string {
	if v.Ns == "" {
		return "#'" + v.Name
	}
	return "#'" + v.Ns + "/" + v.Name
}

// BindRoot sets the root slot directly (used by `def`).
func (v *Var) BindRoot(val Value) { v.root = val }

func (v *Var) Root() Value { return v.root }

// Qualified returns the ns/name symbol form used in printing and in
// syntax-quote auto-qualification.
func (v *Var) Qualified() string {
	if v.Ns == "" {
		return v.Name
	}
	return v.Ns + "/" + v.Name
}

// MetaWithWellKnown synthesizes the Var's meta map merging the
// well-known struct fields (:name :ns :doc :arglists :added :file :line
// :macro :dynamic :private) with any user-supplied metadata, per spec
// §6.
func (v *Var) MetaWithWellKnown() *value.PersistentMap {
	m := value.EmptyMap()
	if v.Meta != nil {
		v.Meta.Each(func(k, val Value) { m = m.Assoc(k, val) })
	}
	m = m.Assoc(value.Kw("", "name"), value.Sym(v.Name))
	m = m.Assoc(value.Kw("", "ns"), value.Str_(v.Ns))
	if v.Doc != "" {
		m = m.Assoc(value.Kw("", "doc"), value.Str_(v.Doc))
	}
	if v.Arglists != nil {
		m = m.Assoc(value.Kw("", "arglists"), v.Arglists)
	}
	if v.Added != "" {
		m = m.Assoc(value.Kw("", "added"), value.Str_(v.Added))
	}
	if v.File != "" {
		m = m.Assoc(value.Kw("", "file"), value.Str_(v.File))
	}
	m = m.Assoc(value.Kw("", "line"), value.Int_(int64(v.Line)))
	m = m.Assoc(value.Kw("", "macro"), value.Bool_(v.Macro))
	m = m.Assoc(value.Kw("", "dynamic"), value.Bool_(v.Dynamic))
	m = m.Assoc(value.Kw("", "private"), value.Bool_(v.Private))
	return m
}
