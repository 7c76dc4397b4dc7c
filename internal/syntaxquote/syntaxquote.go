// Package syntaxquote implements syntax-quote (`) expansion: namespace
// qualification of bare symbols, unquote (~) and unquote-splicing (~@),
// and gensym hygiene for trailing-# symbols, all scoped to one
// syntax-quote form per spec §4.G. Grounded on the teacher's
// internal/analyzer macro-expansion pass, generalized from its
// single-pass substitution to syntax-quote's list/vector/map/set
// template rebuilding via (concat ...) forms wrapped in vec, hash-map or
// set for the non-list collections.
package syntaxquote

import (
	"github.com/cloverlang/clover/internal/rterr"
	"github.com/cloverlang/clover/internal/value"
)

// Resolver qualifies a bare symbol to ns/name the way the current
// namespace would resolve it (for special forms and macros it returns
// the symbol unqualified).
type Resolver interface {
	QualifySymbol(sym *value.Symbol) *value.Symbol
}

// Expander holds the gensym table for one top-level syntax-quote;
// `x#` is only stable within that single form, per spec §4.G.
type Expander struct {
	resolver Resolver
	gensyms  map[string]*value.Symbol
	counter  *int64
}

func NewExpander(r Resolver, counter *int64) *Expander {
	return &Expander{resolver: r, gensyms: make(map[string]*value.Symbol), counter: counter}
}

// Expand lowers a syntax-quoted form into a plain data-construction form
// (keywords/numbers/strings as self-evaluating constants, symbols and
// other leaves quoted; a list becomes a (concat ...) call, a vector
// (vec (concat ...)), a map (apply hash-map (concat ...)) and a set
// (set (concat ...)), so unquote splices correctly at eval time).
func (e *Expander) Expand(form value.Value) (value.Value, error) {
	switch v := form.(type) {
	case *value.Symbol:
		return e.expandSymbol(v), nil
	case *value.List:
		return e.expandSeq(v.Slice())
	case *value.Vector:
		items, err := e.expandSeq(v.Slice())
		if err != nil {
			return nil, err
		}
		return value.ListFrom([]value.Value{value.Sym("vec"), items}), nil
	case *value.PersistentMap:
		var flat []value.Value
		v.Each(func(k, val value.Value) { flat = append(flat, k, val) })
		items, err := e.expandSeq(flat)
		if err != nil {
			return nil, err
		}
		return value.ListFrom([]value.Value{value.Sym("apply"), value.Sym("hash-map"), items}), nil
	case *value.Set:
		items, err := e.expandSeq(v.Slice())
		if err != nil {
			return nil, err
		}
		return value.ListFrom([]value.Value{value.Sym("set"), items}), nil
	default:
		return quoteLeaf(form), nil
	}
}

func quoteLeaf(v value.Value) value.Value {
	switch v.(type) {
	case *value.Int, *value.Float, *value.Str, *value.Keyword, *value.Bool, *value.Nil, *value.Char:
		return v
	default:
		return value.ListFrom([]value.Value{value.Sym("quote"), v})
	}
}

func (e *Expander) expandSymbol(sym *value.Symbol) value.Value {
	if sym.Ns == "" && len(sym.Name) > 1 && sym.Name[len(sym.Name)-1] == '#' {
		base := sym.Name[:len(sym.Name)-1]
		if g, ok := e.gensyms[base]; ok {
			return quoteLeaf(g)
		}
		*e.counter++
		g := value.Sym(base + "__" + itoa(*e.counter) + "__auto__")
		e.gensyms[base] = g
		return quoteLeaf(g)
	}
	if sym.Name == "&" || sym.Name == "." {
		return quoteLeaf(sym)
	}
	qualified := sym
	if e.resolver != nil {
		qualified = e.resolver.QualifySymbol(sym)
	}
	return quoteLeaf(qualified)
}

// expandSeq rebuilds a sequence of forms into a (concat (list a) (list
// b) ...) call, treating each unquote-splice as its own segment and
// everything else as a one-element (list item) segment, matching the teacher's
// template-rebuild approach of alternating literal runs with spliced
// runs.
func (e *Expander) expandSeq(items []value.Value) (value.Value, error) {
	var segments []value.Value
	i := 0
	for i < len(items) {
		item := items[i]
		if isUnquoteSplice(item) {
			inner := unquoteArg(item)
			segments = append(segments, inner)
			i++
			continue
		}
		if isUnquote(item) {
			inner := unquoteArg(item)
			segments = append(segments, value.ListFrom([]value.Value{value.Sym("list"), inner}))
			i++
			continue
		}
		expanded, err := e.Expand(item)
		if err != nil {
			return nil, err
		}
		segments = append(segments, value.ListFrom([]value.Value{value.Sym("list"), expanded}))
		i++
	}
	call := append([]value.Value{value.Sym("concat")}, segments...)
	return value.ListFrom(call), nil
}

func isUnquote(v value.Value) bool {
	l, ok := v.(*value.List)
	if !ok || l == nil {
		return false
	}
	sym, ok := l.First().(*value.Symbol)
	return ok && sym.Ns == "" && sym.Name == "unquote"
}

func isUnquoteSplice(v value.Value) bool {
	l, ok := v.(*value.List)
	if !ok || l == nil {
		return false
	}
	sym, ok := l.First().(*value.Symbol)
	return ok && sym.Ns == "" && sym.Name == "unquote-splicing"
}

func unquoteArg(v value.Value) value.Value {
	l := v.(*value.List)
	return l.Rest().First()
}

func itoa(n int64) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

// Macroexpand1 expands a single macro call at the head of form, if the
// head symbol resolves to a macro Var. MacroInvoker abstracts over the
// evaluator so this package needn't import it.
type MacroInvoker interface {
	// ResolveMacro returns the macro function and true if sym names a
	// macro var visible from the given namespace.
	ResolveMacro(sym *value.Symbol) (func(args []value.Value) (value.Value, error), bool)
}

func Macroexpand1(form value.Value, inv MacroInvoker) (value.Value, bool, error) {
	l, ok := form.(*value.List)
	if !ok || l == nil || l.IsEmpty() {
		return form, false, nil
	}
	sym, ok := l.First().(*value.Symbol)
	if !ok {
		return form, false, nil
	}
	fn, ok := inv.ResolveMacro(sym)
	if !ok {
		return form, false, nil
	}
	args := l.Rest().Slice()
	expanded, err := fn(args)
	if err != nil {
		return nil, false, err
	}
	return expanded, true, nil
}

// Macroexpand repeatedly applies Macroexpand1 until the form stops
// changing, bounded per spec §4.G to guard against a macro that expands
// to itself forever.
func Macroexpand(form value.Value, inv MacroInvoker) (value.Value, error) {
	const maxIterations = 1000
	cur := form
	for i := 0; i < maxIterations; i++ {
		next, expanded, err := Macroexpand1(cur, inv)
		if err != nil {
			return nil, err
		}
		if !expanded {
			return cur, nil
		}
		cur = next
	}
	return nil, rterr.New(rterr.EvalError, "macroexpand exceeded %d iterations, possible infinite macro", maxIterations)
}
