package evaluator

import (
	"github.com/cloverlang/clover/internal/ast"
	"github.com/cloverlang/clover/internal/multimethod"
	"github.com/cloverlang/clover/internal/rterr"
	"github.com/cloverlang/clover/internal/runtime"
	"github.com/cloverlang/clover/internal/value"
)

// recurSignal is the in-flight "jump back to the loop/fn entry" marker
// produced by evaluating a KRecur node; it only ever travels between a
// KRecur node and the nearest enclosing KLoop/Fn.Invoke trampoline that
// installed the recur point, both within this package, so it need not
// be a real part of the Value model.
type recurSignal struct {
	Args []value.Value
}

func (r *recurSignal) Tag() value.Tag { return value.TagNil }
func (r *recurSignal) Hash() uint32   { return 0 }

// Eval walks one ast.Node, per spec §4.E.
func Eval(node *ast.Node, env *Env, rt *runtime.Runtime) (value.Value, error) {
	switch node.Kind {
	case ast.KConst:
		return node.ConstVal, nil
	case ast.KLocalRef:
		return env.Get(node.LocalDepth, node.LocalName), nil
	case ast.KVarRef:
		return rt.DerefVar(node.Var.(*runtime.Var)), nil
	case ast.KQuote:
		return node.QuotedForm, nil
	case ast.KIf:
		return evalIf(node, env, rt)
	case ast.KDo:
		return evalBody(node.Body, env, rt)
	case ast.KLet:
		return evalLet(node, env, rt)
	case ast.KLoop:
		return evalLoop(node, env, rt)
	case ast.KRecur:
		return evalRecur(node, env, rt)
	case ast.KFn:
		return &Fn{Spec: node.Fn, Closure: env, RT: rt}, nil
	case ast.KInvoke:
		return evalInvoke(node, env, rt)
	case ast.KDef:
		return evalDef(node, env, rt)
	case ast.KTry:
		return evalTry(node, env, rt)
	case ast.KThrow:
		return evalThrow(node, env, rt)
	case ast.KNew:
		return evalNew(node, env, rt)
	case ast.KSetBang:
		return evalSetBang(node, env, rt)
	case ast.KCase:
		return evalCase(node, env, rt)
	default:
		return nil, rterr.New(rterr.EvalError, "unhandled node kind")
	}
}

func evalBody(nodes []*ast.Node, env *Env, rt *runtime.Runtime) (value.Value, error) {
	var result value.Value = value.NilValue
	for _, n := range nodes {
		v, err := Eval(n, env, rt)
		if err != nil {
			return nil, err
		}
		result = v
	}
	return result, nil
}

func evalIf(node *ast.Node, env *Env, rt *runtime.Runtime) (value.Value, error) {
	test, err := Eval(node.Test, env, rt)
	if err != nil {
		return nil, err
	}
	if value.Truthy(test) {
		return Eval(node.Then, env, rt)
	}
	return Eval(node.Else, env, rt)
}

func evalLet(node *ast.Node, env *Env, rt *runtime.Runtime) (value.Value, error) {
	cur := env
	for _, b := range node.Bindings {
		v, err := Eval(b.Init, cur, rt)
		if err != nil {
			return nil, err
		}
		cur = NewEnv(cur, []string{b.Name}, []value.Value{v})
	}
	return evalBody(node.Body, cur, rt)
}

func evalLoop(node *ast.Node, env *Env, rt *runtime.Runtime) (value.Value, error) {
	base := env
	names := make([]string, len(node.Bindings))
	vals := make([]value.Value, len(node.Bindings))
	frame := base
	for i, b := range node.Bindings {
		v, err := Eval(b.Init, frame, rt)
		if err != nil {
			return nil, err
		}
		names[i] = b.Name
		vals[i] = v
		frame = NewEnv(frame, []string{b.Name}, []value.Value{v})
	}
	for {
		result, err := evalBody(node.Body, frame, rt)
		if err != nil {
			return nil, err
		}
		rec, ok := result.(*recurSignal)
		if !ok {
			return result, nil
		}
		vals = rec.Args
		frame = base
		for i, name := range names {
			frame = NewEnv(frame, []string{name}, []value.Value{vals[i]})
		}
	}
}

func evalRecur(node *ast.Node, env *Env, rt *runtime.Runtime) (value.Value, error) {
	args := make([]value.Value, len(node.RecurArgs))
	for i, a := range node.RecurArgs {
		v, err := Eval(a, env, rt)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return &recurSignal{Args: args}, nil
}

func evalInvoke(node *ast.Node, env *Env, rt *runtime.Runtime) (value.Value, error) {
	callee, err := Eval(node.Op, env, rt)
	if err != nil {
		return nil, err
	}
	args := make([]value.Value, len(node.Args))
	for i, a := range node.Args {
		v, err := Eval(a, env, rt)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return Apply(callee, args, rt)
}

// Apply dispatches a call across every callable variant spec §4.E
// names: builtin/closure/multimethod Vars, and the "collection as
// function" shorthands (keyword, map, set, vector).
func Apply(callee value.Value, args []value.Value, rt *runtime.Runtime) (value.Value, error) {
	switch c := callee.(type) {
	case *value.BuiltinFn:
		return c.Call(args)
	case *Fn:
		return c.Invoke(args)
	case *multimethod.MultiFn:
		return c.Invoke(args)
	case *runtime.Var:
		return Apply(rt.DerefVar(c), args, rt)
	case *value.Keyword:
		return applyKeyword(c, args)
	case *value.PersistentMap:
		return applyMap(c, args)
	case *value.Set:
		return applySet(c, args)
	case *value.Vector:
		return applyVector(c, args)
	default:
		return nil, rterr.New(rterr.TypeError, "%s is not a function", value.TypeName(callee))
	}
}

func applyKeyword(k *value.Keyword, args []value.Value) (value.Value, error) {
	if len(args) < 1 || len(args) > 2 {
		return nil, rterr.New(rterr.ArityError, "wrong number of arguments (%d) to keyword lookup", len(args))
	}
	m, ok := args[0].(*value.PersistentMap)
	if !ok {
		if len(args) == 2 {
			return args[1], nil
		}
		return value.NilValue, nil
	}
	if v, ok := m.Get(k); ok {
		return v, nil
	}
	if len(args) == 2 {
		return args[1], nil
	}
	return value.NilValue, nil
}

func applyMap(m *value.PersistentMap, args []value.Value) (value.Value, error) {
	if len(args) < 1 || len(args) > 2 {
		return nil, rterr.New(rterr.ArityError, "wrong number of arguments (%d) to map lookup", len(args))
	}
	if v, ok := m.Get(args[0]); ok {
		return v, nil
	}
	if len(args) == 2 {
		return args[1], nil
	}
	return value.NilValue, nil
}

func applySet(s *value.Set, args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return nil, rterr.New(rterr.ArityError, "wrong number of arguments (%d) to set lookup", len(args))
	}
	if s.Contains(args[0]) {
		return args[0], nil
	}
	return value.NilValue, nil
}

func applyVector(v *value.Vector, args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return nil, rterr.New(rterr.ArityError, "wrong number of arguments (%d) to vector lookup", len(args))
	}
	i, ok := args[0].(*value.Int)
	if !ok {
		return nil, rterr.New(rterr.TypeError, "vector lookup index must be an integer")
	}
	el, err := v.Nth(int(i.Value))
	if err != nil {
		return nil, rterr.New(rterr.IndexError, "%v", err)
	}
	return el, nil
}

func evalDef(node *ast.Node, env *Env, rt *runtime.Runtime) (value.Value, error) {
	ns, ok := rt.FindNS(node.DefNs)
	if !ok {
		ns = rt.CreateNS(node.DefNs)
	}
	v := ns.Intern(node.DefName)
	if node.DefMeta != nil {
		v.Meta = node.DefMeta
	}
	if node.DefInit != nil {
		val, err := Eval(node.DefInit, env, rt)
		if err != nil {
			return nil, err
		}
		v.BindRoot(val)
	}
	return v, nil
}

func evalTry(node *ast.Node, env *Env, rt *runtime.Runtime) (value.Value, error) {
	result, err := evalBody(node.TryBody, env, rt)
	if err != nil {
		excVal := reify(err)
		matched := false
		for _, c := range node.Catches {
			if matchesCatch(c.ExceptionType, excVal) {
				catchEnv := NewEnv(env, []string{c.BindingName}, []value.Value{excVal})
				result, err = evalBody(c.Body, catchEnv, rt)
				matched = true
				break
			}
		}
		if !matched {
			if len(node.Finally) > 0 {
				if _, ferr := evalBody(node.Finally, env, rt); ferr != nil {
					return nil, ferr
				}
			}
			return nil, err
		}
	}
	if len(node.Finally) > 0 {
		if _, ferr := evalBody(node.Finally, env, rt); ferr != nil {
			return nil, ferr
		}
	}
	return result, err
}

func evalThrow(node *ast.Node, env *Env, rt *runtime.Runtime) (value.Value, error) {
	v, err := Eval(node.ThrowExpr, env, rt)
	if err != nil {
		return nil, err
	}
	return nil, &Thrown{V: v}
}

func evalNew(node *ast.Node, env *Env, rt *runtime.Runtime) (value.Value, error) {
	args := make([]value.Value, len(node.NewArgs))
	for i, a := range node.NewArgs {
		v, err := Eval(a, env, rt)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	switch node.ClassName {
	case "Atom":
		if len(args) != 1 {
			return nil, rterr.New(rterr.ArityError, "Atom constructor requires exactly 1 argument")
		}
		return value.NewAtom(args[0]), nil
	case "Volatile":
		if len(args) != 1 {
			return nil, rterr.New(rterr.ArityError, "Volatile constructor requires exactly 1 argument")
		}
		return value.NewVolatile(args[0]), nil
	default:
		return nil, rterr.New(rterr.TypeError, "unknown constructible type: %s", node.ClassName)
	}
}

func evalSetBang(node *ast.Node, env *Env, rt *runtime.Runtime) (value.Value, error) {
	if node.SetTarget.Kind != ast.KVarRef {
		return nil, rterr.New(rterr.EvalError, "set! target must be a dynamic var reference")
	}
	v, ok := node.SetTarget.Var.(*runtime.Var)
	if !ok {
		return nil, rterr.New(rterr.EvalError, "set! target must be a var")
	}
	val, err := Eval(node.SetVal, env, rt)
	if err != nil {
		return nil, err
	}
	if !rt.SetDynamic(v, val) {
		return nil, rterr.New(rterr.ValueError, "can't set! %s: not thread-bound", v.Qualified())
	}
	return val, nil
}

func evalCase(node *ast.Node, env *Env, rt *runtime.Runtime) (value.Value, error) {
	test, err := Eval(node.CaseExpr, env, rt)
	if err != nil {
		return nil, err
	}
	for _, clause := range node.CaseClauses {
		for _, t := range clause.Tests {
			if value.Eql(t, test) {
				return Eval(clause.Body, env, rt)
			}
		}
	}
	if node.CaseDefault != nil {
		return Eval(node.CaseDefault, env, rt)
	}
	return nil, rterr.New(rterr.ValueError, "no matching clause: %s", value.PrStr(test))
}
