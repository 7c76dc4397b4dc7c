package evaluator

import (
	"github.com/cloverlang/clover/internal/ast"
	"github.com/cloverlang/clover/internal/rterr"
	"github.com/cloverlang/clover/internal/runtime"
	"github.com/cloverlang/clover/internal/value"
)

// Fn is a closure: an analyzed FnSpec paired with the Env it closed
// over. It lives in this package (not value) because calling it
// requires the tree-walking Eval loop, which would make package value
// depend on package evaluator — so Fn satisfies value.Value/value.
// Inspector structurally instead.
type Fn struct {
	Spec    *ast.FnSpec
	Closure *Env
	RT      *runtime.Runtime
	Meta    *value.PersistentMap
}

func (f *Fn) Tag() value.Tag { return value.TagFn }

func (f *Fn) Hash() uint32 {
	return fnHash(f)
}

// fnHash gives Fn values a stable-for-this-process hash without
// importing unsafe; identity is all that matters since two distinct
// closures are never Eql.
func fnHash(f *Fn) uint32 {
	h := uint32(2166136261)
	for _, a := range f.Spec.Arities {
		h = h*16777619 + uint32(len(a.Params))
	}
	return h
}

func (f *Fn) InspectStr() string {
	if f.Spec.Name != "" {
		return "#<fn " + f.Spec.Name + ">"
	}
	return "#<fn anonymous>"
}

// Invoke selects the matching arity (exact arg count first, else a
// variadic arity whose fixed-param count is <= len(args)) and runs its
// body, trampolining on recur until the body returns a non-recur value.
func (f *Fn) Invoke(args []value.Value) (value.Value, error) {
	arity, err := f.selectArity(len(args))
	if err != nil {
		return nil, err
	}
	closure := f.Closure
	if f.Spec.Name != "" {
		closure = NewEnv(f.Closure, []string{f.Spec.Name}, []value.Value{f})
	}
	names, vals := bindParams(arity, args)
	frame := NewEnv(closure, names, vals)
	for {
		result, err := evalBody(arity.Body, frame, f.RT)
		if err != nil {
			return nil, err
		}
		rec, ok := result.(*recurSignal)
		if !ok {
			return result, nil
		}
		names, vals = bindParams(arity, rec.Args)
		frame = NewEnv(closure, names, vals)
	}
}

func (f *Fn) selectArity(n int) (*ast.Arity, error) {
	var variadic *ast.Arity
	for i := range f.Spec.Arities {
		a := &f.Spec.Arities[i]
		if a.Variadic {
			variadic = a
			continue
		}
		if len(a.Params) == n {
			return a, nil
		}
	}
	if variadic != nil && n >= len(variadic.Params) {
		return variadic, nil
	}
	return nil, rterr.New(rterr.ArityError, "wrong number of arguments (%d) passed to %s", n, fnName(f))
}

func fnName(f *Fn) string {
	if f.Spec.Name != "" {
		return f.Spec.Name
	}
	return "fn"
}

func bindParams(arity *ast.Arity, args []value.Value) ([]string, []value.Value) {
	names := append([]string{}, arity.Params...)
	vals := append([]value.Value{}, args[:len(arity.Params)]...)
	if arity.Variadic {
		names = append(names, arity.RestName)
		rest := value.EmptyList()
		var restList *value.List
		restList = rest
		for i := len(args) - 1; i >= len(arity.Params); i-- {
			restList = restList.Conj(args[i])
		}
		vals = append(vals, seqOrNil(restList))
	}
	return names, vals
}

func seqOrNil(l *value.List) value.Value {
	if l == nil {
		return value.NilValue
	}
	return l
}
