package analyzer

import (
	"github.com/cloverlang/clover/internal/rterr"
	"github.com/cloverlang/clover/internal/value"
)

// desugar rewrites the built-in macro forms listed in the switch below
// (defn, defmacro, when, when-not, cond, ->, ->>, and, or, ns, dotimes,
// defmulti, defmethod, binding, delay) into core special forms and
// builtin calls. They are not defmacro-defined; only user macros created
// with defmacro go through the expandMacro path.
func desugar(name string, args []value.Value) (value.Value, bool, error) {
	switch name {
	case "defn":
		return desugarDefn(args, false)
	case "defmacro":
		return desugarDefn(args, true)
	case "when":
		return desugarWhen(args, false)
	case "when-not":
		return desugarWhen(args, true)
	case "cond":
		return desugarCond(args)
	case "->":
		return desugarThreadFirst(args)
	case "->>":
		return desugarThreadLast(args)
	case "and":
		return desugarAnd(args), true, nil
	case "or":
		return desugarOr(args), true, nil
	case "ns":
		return desugarNs(args)
	case "dotimes":
		return desugarDotimes(args)
	case "defmulti":
		return desugarDefmulti(args)
	case "defmethod":
		return desugarDefmethod(args)
	case "binding":
		return desugarBinding(args)
	case "delay":
		return desugarDelay(args), true, nil
	default:
		return nil, false, nil
	}
}

// desugarDelay handles (delay body...) => (new-delay* (fn [] body...)),
// so the body isn't evaluated until deref forces it; new-delay* is a
// builtin since value.NewDelay takes a Go thunk the analyzer can't build.
func desugarDelay(args []value.Value) value.Value {
	fnForm := value.ListFrom(append([]value.Value{value.Sym("fn"), value.EmptyVector()}, args...))
	return list(value.Sym("new-delay*"), fnForm)
}

func list(items ...value.Value) value.Value { return value.ListFrom(items) }

// desugarDefn handles (defn name doc? attr-map? ([params] body...)+ )
// and the single-arity shorthand (defn name [params] body...), producing
// (def name (fn name ([params] body...)+)); defmacro additionally tags
// the resulting var ^:macro.
func desugarDefn(args []value.Value, isMacro bool) (value.Value, bool, error) {
	if len(args) < 2 {
		return nil, false, rterr.New(rterr.AnalyzeError, "defn requires a name and at least one arity")
	}
	sym, ok := args[0].(*value.Symbol)
	if !ok {
		return nil, false, rterr.New(rterr.AnalyzeError, "defn requires a symbol name")
	}
	rest := args[1:]
	var doc *value.Str
	if s, ok := rest[0].(*value.Str); ok && len(rest) > 1 {
		doc = s
		rest = rest[1:]
	}
	meta := value.EmptyMap()
	if m, ok := rest[0].(*value.PersistentMap); ok && len(rest) > 1 {
		meta = m
		rest = rest[1:]
	}
	fnForm := value.ListFrom(append([]value.Value{value.Sym("fn"), value.Sym(sym.Name)}, rest...))

	if isMacro {
		meta = meta.Assoc(value.Kw("", "macro"), value.True)
	}
	if doc != nil {
		meta = meta.Assoc(value.Kw("", "doc"), doc)
	}
	nameSym := sym.WithMeta(meta)
	return list(value.Sym("def"), nameSym, fnForm), true, nil
}

// desugarWhen handles (when test body...) => (if test (do body...)) and
// when-not's negation.
func desugarWhen(args []value.Value, negate bool) (value.Value, bool, error) {
	if len(args) < 1 {
		return nil, false, rterr.New(rterr.AnalyzeError, "when requires a test")
	}
	test := args[0]
	if negate {
		test = list(value.Sym("not"), test)
	}
	body := append([]value.Value{value.Sym("do")}, args[1:]...)
	return list(value.Sym("if"), test, value.ListFrom(body)), true, nil
}

// desugarCond handles (cond test1 expr1 test2 expr2 ... :else default)
// by right-folding into nested ifs.
func desugarCond(args []value.Value) (value.Value, bool, error) {
	if len(args) == 0 {
		return value.NilValue, true, nil
	}
	if len(args) == 1 {
		return nil, false, rterr.New(rterr.AnalyzeError, "cond requires an even number of forms")
	}
	rest, _, err := desugarCond(args[2:])
	if err != nil {
		return nil, false, err
	}
	return list(value.Sym("if"), args[0], args[1], rest), true, nil
}

// desugarThreadFirst handles (-> x (f a) g) => (g (f x a)).
func desugarThreadFirst(args []value.Value) (value.Value, bool, error) {
	if len(args) == 0 {
		return nil, false, rterr.New(rterr.AnalyzeError, "-> requires at least one form")
	}
	acc := args[0]
	for _, step := range args[1:] {
		acc = threadInto(step, acc, true)
	}
	return acc, true, nil
}

// desugarThreadLast handles (->> x (f a) g) => (g (f a x)).
func desugarThreadLast(args []value.Value) (value.Value, bool, error) {
	if len(args) == 0 {
		return nil, false, rterr.New(rterr.AnalyzeError, "->> requires at least one form")
	}
	acc := args[0]
	for _, step := range args[1:] {
		acc = threadInto(step, acc, false)
	}
	return acc, true, nil
}

func threadInto(step, acc value.Value, first bool) value.Value {
	if l, ok := step.(*value.List); ok && l != nil {
		items := l.Slice()
		var newItems []value.Value
		if first {
			newItems = append([]value.Value{items[0], acc}, items[1:]...)
		} else {
			newItems = append(append([]value.Value{}, items...), acc)
		}
		return value.ListFrom(newItems)
	}
	return list(step, acc)
}

// desugarAnd/desugarOr expand to nested `if`/`let` so that every operand
// is evaluated at most once, matching real Clojure's expansion.
func desugarAnd(args []value.Value) value.Value {
	if len(args) == 0 {
		return value.True
	}
	if len(args) == 1 {
		return args[0]
	}
	g := value.Sym("and__auto__")
	return list(value.Sym("let"), value.VectorFrom([]value.Value{g, args[0]}),
		list(value.Sym("if"), g, desugarAnd(args[1:]), g))
}

func desugarOr(args []value.Value) value.Value {
	if len(args) == 0 {
		return value.NilValue
	}
	if len(args) == 1 {
		return args[0]
	}
	g := value.Sym("or__auto__")
	return list(value.Sym("let"), value.VectorFrom([]value.Value{g, args[0]}),
		list(value.Sym("if"), g, g, desugarOr(args[1:])))
}

// desugarNs handles (ns name (:require [other :as o]) (:require [other2
// :refer [a b]])), producing an (in-ns 'name) call followed by require
// calls — in-ns/require are builtins registered by the evaluator
// bootstrap, not special forms, since they mutate Runtime state that
// only the evaluator's builtin table has access to.
func desugarNs(args []value.Value) (value.Value, bool, error) {
	if len(args) == 0 {
		return nil, false, rterr.New(rterr.AnalyzeError, "ns requires a name")
	}
	sym, ok := args[0].(*value.Symbol)
	if !ok {
		return nil, false, rterr.New(rterr.AnalyzeError, "ns requires a symbol name")
	}
	forms := []value.Value{list(value.Sym("in-ns"), list(value.Sym("quote"), sym))}
	for _, clause := range args[1:] {
		l, ok := clause.(*value.List)
		if !ok || l == nil {
			continue
		}
		items := l.Slice()
		headName := ""
		switch head := items[0].(type) {
		case *value.Keyword:
			headName = head.Name
		case *value.Symbol:
			headName = head.Name
		}
		if headName != "require" && headName != "use" {
			continue
		}
		for _, spec := range items[1:] {
			forms = append(forms, list(value.Sym("require"), list(value.Sym("quote"), spec)))
		}
	}
	return value.ListFrom(append([]value.Value{value.Sym("do")}, forms...)), true, nil
}

// desugarDotimes handles (dotimes [i n] body...) => (loop [i 0] (when (<
// i n) body... (recur (inc i)))).
func desugarDotimes(args []value.Value) (value.Value, bool, error) {
	if len(args) < 1 {
		return nil, false, rterr.New(rterr.AnalyzeError, "dotimes requires a binding vector")
	}
	vec, ok := args[0].(*value.Vector)
	if !ok || vec.Count() != 2 {
		return nil, false, rterr.New(rterr.AnalyzeError, "dotimes binding must be [i n]")
	}
	i, _ := vec.Nth(0)
	n, _ := vec.Nth(1)
	body := append([]value.Value{value.Sym("do")}, args[1:]...)
	body = append(body, list(value.Sym("recur"), list(value.Sym("inc"), i)))
	loopBody := list(value.Sym("when"), list(value.Sym("<"), i, n), value.ListFrom(body))
	return list(value.Sym("loop"), value.VectorFrom([]value.Value{i, value.Int_(0)}), loopBody), true, nil
}

// desugarDefmulti handles (defmulti name dispatch-fn) => (def name
// (multi-fn* 'name dispatch-fn)); multi-fn* is a builtin constructor.
func desugarDefmulti(args []value.Value) (value.Value, bool, error) {
	if len(args) < 2 {
		return nil, false, rterr.New(rterr.AnalyzeError, "defmulti requires a name and a dispatch function")
	}
	sym, ok := args[0].(*value.Symbol)
	if !ok {
		return nil, false, rterr.New(rterr.AnalyzeError, "defmulti requires a symbol name")
	}
	return list(value.Sym("def"), sym, list(value.Sym("multi-fn*"), list(value.Sym("quote"), sym), args[1])), true, nil
}

// desugarBinding handles (binding [v1 val1 v2 val2 ...] body...), per
// spec §4.F's dynamic binding stack, by pushing a frame built from (var
// v) pairs, running body in a try, and always popping in finally.
func desugarBinding(args []value.Value) (value.Value, bool, error) {
	if len(args) < 1 {
		return nil, false, rterr.New(rterr.AnalyzeError, "binding requires a binding vector")
	}
	vec, ok := args[0].(*value.Vector)
	if !ok {
		return nil, false, rterr.New(rterr.AnalyzeError, "binding requires a vector of var/value pairs")
	}
	pairs := vec.Slice()
	if len(pairs)%2 != 0 {
		return nil, false, rterr.New(rterr.AnalyzeError, "binding vector must have an even number of forms")
	}
	var mapArgs []value.Value
	for i := 0; i < len(pairs); i += 2 {
		sym, ok := pairs[i].(*value.Symbol)
		if !ok {
			return nil, false, rterr.New(rterr.AnalyzeError, "binding target must be a symbol")
		}
		mapArgs = append(mapArgs, list(value.Sym("var"), sym), pairs[i+1])
	}
	pushForm := list(value.Sym("push-thread-bindings"), value.ListFrom(append([]value.Value{value.Sym("hash-map")}, mapArgs...)))
	body := append([]value.Value{value.Sym("do")}, args[1:]...)
	tryForm := value.ListFrom([]value.Value{
		value.Sym("try"),
		value.ListFrom(body),
		list(value.Sym("finally"), list(value.Sym("pop-thread-bindings"))),
	})
	return value.ListFrom([]value.Value{value.Sym("do"), pushForm, tryForm}), true, nil
}

// desugarDefmethod handles (defmethod name dispatch-val [params] body...)
// => (add-method! name dispatch-val (fn [params] body...)); add-method!
// mutates the MultiFn in place and is a builtin, since MultiFn.AddMethod
// requires the concrete multimethod.MultiFn type the analyzer doesn't
// import.
func desugarDefmethod(args []value.Value) (value.Value, bool, error) {
	if len(args) < 3 {
		return nil, false, rterr.New(rterr.AnalyzeError, "defmethod requires a name, dispatch value and a parameter list")
	}
	sym, ok := args[0].(*value.Symbol)
	if !ok {
		return nil, false, rterr.New(rterr.AnalyzeError, "defmethod requires a symbol name")
	}
	dispatchVal := args[1]
	fnForm := value.ListFrom(append([]value.Value{value.Sym("fn")}, args[2:]...))
	return list(value.Sym("add-method!"), sym, dispatchVal, fnForm), true, nil
}
