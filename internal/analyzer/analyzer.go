package analyzer

import (
	"github.com/cloverlang/clover/internal/ast"
	"github.com/cloverlang/clover/internal/rterr"
	"github.com/cloverlang/clover/internal/runtime"
	"github.com/cloverlang/clover/internal/value"
)

// Analyzer turns Value forms into ast.Node trees, per spec §4.D. It
// needs the Runtime to intern Vars for `def` and to resolve symbols
// against the current namespace, and an Apply hook (wired by the
// evaluator at startup, to avoid an analyzer→evaluator import cycle) so
// that defmacro-defined macros can actually run during analysis.
type Analyzer struct {
	RT    *runtime.Runtime
	Apply func(fn value.Value, args []value.Value) (value.Value, error)
}

func New(rt *runtime.Runtime) *Analyzer {
	return &Analyzer{RT: rt}
}

// actx threads tail-position and recur-target information through one
// top-level Analyze call, per spec's "recur only valid in tail position
// of the nearest enclosing fn/loop, with matching arity" invariant.
type actx struct {
	scope     *Scope
	tail      bool
	hasLoop   bool
	loopArity int
}

func (a *Analyzer) Analyze(form value.Value, scope *Scope) (*ast.Node, error) {
	return a.analyze(form, &actx{scope: scope, tail: false})
}

func (a *Analyzer) analyze(form value.Value, ctx *actx) (*ast.Node, error) {
	if form == nil {
		return constNode(value.NilValue), nil
	}
	switch v := form.(type) {
	case *value.Symbol:
		return a.analyzeSymbol(v, ctx)
	case *value.List:
		return a.analyzeList(v, ctx)
	case *value.Vector:
		return a.analyzeCollection(v.Slice(), ctx, "vector")
	case *value.Set:
		return a.analyzeCollection(v.Slice(), ctx, "hash-set")
	case *value.PersistentMap:
		var flat []value.Value
		v.Each(func(k, val value.Value) { flat = append(flat, k, val) })
		return a.analyzeMapLiteral(flat, ctx)
	default:
		return constNode(form), nil
	}
}

func constNode(v value.Value) *ast.Node {
	return &ast.Node{Kind: ast.KConst, ConstVal: v}
}

func (a *Analyzer) analyzeSymbol(sym *value.Symbol, ctx *actx) (*ast.Node, error) {
	if sym.Ns == "" {
		if depth, ok := ctx.scope.Resolve(sym.Name); ok {
			return &ast.Node{Kind: ast.KLocalRef, LocalName: sym.Name, LocalDepth: depth}, nil
		}
	}
	v, err := a.RT.Resolve(a.RT.CurrentNS, sym.Ns, sym.Name)
	if err != nil {
		return nil, err
	}
	return &ast.Node{Kind: ast.KVarRef, Var: v}, nil
}

// analyzeCollection desugars vector/set literals into a builtin
// constructor invoke: (vector a b c) / (hash-set a b c), folding to a
// single KConst when every element is already constant, matching how
// Clojure's own compiler treats collection literals as "constant unless
// it contains a non-constant sub-form."
func (a *Analyzer) analyzeCollection(items []value.Value, ctx *actx, ctor string) (*ast.Node, error) {
	argCtx := &actx{scope: ctx.scope, tail: false}
	args := make([]*ast.Node, len(items))
	allConst := true
	constVals := make([]value.Value, len(items))
	for i, item := range items {
		n, err := a.analyze(item, argCtx)
		if err != nil {
			return nil, err
		}
		args[i] = n
		if n.Kind == ast.KConst {
			constVals[i] = n.ConstVal
		} else {
			allConst = false
		}
	}
	if allConst {
		switch ctor {
		case "vector":
			return constNode(value.VectorFrom(constVals)), nil
		case "hash-set":
			return constNode(value.SetFromAllowDup(constVals)), nil
		}
	}
	ctorVar, err := a.RT.Resolve(a.RT.CurrentNS, "clojure.core", ctor)
	if err != nil {
		return nil, err
	}
	return &ast.Node{Kind: ast.KInvoke, Op: &ast.Node{Kind: ast.KVarRef, Var: ctorVar}, Args: args}, nil
}

func (a *Analyzer) analyzeMapLiteral(flat []value.Value, ctx *actx) (*ast.Node, error) {
	argCtx := &actx{scope: ctx.scope, tail: false}
	args := make([]*ast.Node, len(flat))
	allConst := true
	constVals := make([]value.Value, len(flat))
	for i, item := range flat {
		n, err := a.analyze(item, argCtx)
		if err != nil {
			return nil, err
		}
		args[i] = n
		if n.Kind == ast.KConst {
			constVals[i] = n.ConstVal
		} else {
			allConst = false
		}
	}
	if allConst {
		m := value.EmptyMap()
		for i := 0; i < len(constVals); i += 2 {
			m = m.Assoc(constVals[i], constVals[i+1])
		}
		return constNode(m), nil
	}
	ctorVar, err := a.RT.Resolve(a.RT.CurrentNS, "clojure.core", "hash-map")
	if err != nil {
		return nil, err
	}
	return &ast.Node{Kind: ast.KInvoke, Op: &ast.Node{Kind: ast.KVarRef, Var: ctorVar}, Args: args}, nil
}

func (a *Analyzer) analyzeList(l *value.List, ctx *actx) (*ast.Node, error) {
	if l == nil {
		return constNode(value.EmptyList()), nil
	}
	head := l.First()
	rest := l.Rest().Slice()

	if sym, ok := head.(*value.Symbol); ok && sym.Ns == "" {
		if _, shadowed := ctx.scope.Resolve(sym.Name); !shadowed {
			if fn, ok := specialForms[sym.Name]; ok {
				return fn(a, rest, ctx)
			}
			if rewritten, ok, err := desugar(sym.Name, rest); err != nil {
				return nil, err
			} else if ok {
				return a.analyze(rewritten, ctx)
			}
			if v, err := a.RT.Resolve(a.RT.CurrentNS, "", sym.Name); err == nil && v.Macro {
				expanded, err := a.expandMacro(v, rest)
				if err != nil {
					return nil, err
				}
				return a.analyze(expanded, ctx)
			}
		}
	}

	return a.analyzeInvoke(head, rest, ctx)
}

func (a *Analyzer) expandMacro(v *runtime.Var, args []value.Value) (value.Value, error) {
	if a.Apply == nil {
		return nil, rterr.New(rterr.EvalError, "macro %s cannot expand: no evaluator wired", v.Qualified())
	}
	return a.Apply(v.Root(), args)
}

func (a *Analyzer) analyzeInvoke(head value.Value, rest []value.Value, ctx *actx) (*ast.Node, error) {
	argCtx := &actx{scope: ctx.scope, tail: false}
	op, err := a.analyze(head, argCtx)
	if err != nil {
		return nil, err
	}
	args := make([]*ast.Node, len(rest))
	for i, arg := range rest {
		n, err := a.analyze(arg, argCtx)
		if err != nil {
			return nil, err
		}
		args[i] = n
	}
	return &ast.Node{Kind: ast.KInvoke, Op: op, Args: args}, nil
}

type specialFormFn func(a *Analyzer, args []value.Value, ctx *actx) (*ast.Node, error)

var specialForms map[string]specialFormFn

func init() {
	specialForms = map[string]specialFormFn{
		"quote":    (*Analyzer).analyzeQuote,
		"if":       (*Analyzer).analyzeIf,
		"do":       (*Analyzer).analyzeDo,
		"def":      (*Analyzer).analyzeDef,
		"fn":       (*Analyzer).analyzeFn,
		"fn*":      (*Analyzer).analyzeFn,
		"let":      (*Analyzer).analyzeLet,
		"let*":     (*Analyzer).analyzeLet,
		"loop":     (*Analyzer).analyzeLoop,
		"loop*":    (*Analyzer).analyzeLoop,
		"recur":    (*Analyzer).analyzeRecur,
		"throw":    (*Analyzer).analyzeThrow,
		"try":      (*Analyzer).analyzeTry,
		"new":      (*Analyzer).analyzeNew,
		"set!":     (*Analyzer).analyzeSetBang,
		"var":      (*Analyzer).analyzeVar,
		"case":     (*Analyzer).analyzeCase,
		"case*":    (*Analyzer).analyzeCase,
	}
}

func (a *Analyzer) analyzeQuote(args []value.Value, ctx *actx) (*ast.Node, error) {
	if len(args) != 1 {
		return nil, rterr.New(rterr.AnalyzeError, "quote expects exactly 1 argument, got %d", len(args))
	}
	return &ast.Node{Kind: ast.KQuote, QuotedForm: args[0]}, nil
}

func (a *Analyzer) analyzeIf(args []value.Value, ctx *actx) (*ast.Node, error) {
	if len(args) < 2 || len(args) > 3 {
		return nil, rterr.New(rterr.AnalyzeError, "if expects 2 or 3 arguments, got %d", len(args))
	}
	testCtx := &actx{scope: ctx.scope, tail: false}
	test, err := a.analyze(args[0], testCtx)
	if err != nil {
		return nil, err
	}
	branchCtx := &actx{scope: ctx.scope, tail: ctx.tail, hasLoop: ctx.hasLoop, loopArity: ctx.loopArity}
	then, err := a.analyze(args[1], branchCtx)
	if err != nil {
		return nil, err
	}
	var elseNode *ast.Node
	if len(args) == 3 {
		elseNode, err = a.analyze(args[2], branchCtx)
		if err != nil {
			return nil, err
		}
	} else {
		elseNode = constNode(value.NilValue)
	}
	return &ast.Node{Kind: ast.KIf, Test: test, Then: then, Else: elseNode}, nil
}

func (a *Analyzer) analyzeDo(args []value.Value, ctx *actx) (*ast.Node, error) {
	body, err := a.analyzeBody(args, ctx)
	if err != nil {
		return nil, err
	}
	return &ast.Node{Kind: ast.KDo, Body: body}, nil
}

// analyzeBody analyzes a sequence of forms where only the last one is in
// tail position relative to ctx.
func (a *Analyzer) analyzeBody(forms []value.Value, ctx *actx) ([]*ast.Node, error) {
	out := make([]*ast.Node, len(forms))
	nonTail := &actx{scope: ctx.scope, tail: false}
	for i, f := range forms {
		c := nonTail
		if i == len(forms)-1 {
			c = ctx
		}
		n, err := a.analyze(f, c)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

func (a *Analyzer) analyzeDef(args []value.Value, ctx *actx) (*ast.Node, error) {
	if len(args) < 1 {
		return nil, rterr.New(rterr.AnalyzeError, "def requires a name")
	}
	sym, ok := args[0].(*value.Symbol)
	if !ok {
		return nil, rterr.New(rterr.AnalyzeError, "def requires a symbol name")
	}
	ns := a.RT.CurrentNS
	v := ns.Intern(sym.Name)
	if sym.Meta != nil {
		applyVarMeta(v, sym.Meta)
	}
	var initForm value.Value
	switch len(args) {
	case 1:
	case 2:
		initForm = args[1]
	case 3:
		if doc, ok := args[1].(*value.Str); ok {
			v.Doc = doc.Value
		}
		initForm = args[2]
	default:
		return nil, rterr.New(rterr.AnalyzeError, "def expects 1 to 3 arguments, got %d", len(args))
	}
	node := &ast.Node{Kind: ast.KDef, DefName: sym.Name, DefNs: ns.Name, DefMeta: sym.Meta}
	if initForm != nil {
		initCtx := &actx{scope: ctx.scope, tail: false}
		init, err := a.analyze(initForm, initCtx)
		if err != nil {
			return nil, err
		}
		node.DefInit = init
	}
	return node, nil
}

func applyVarMeta(v *runtime.Var, meta *value.PersistentMap) {
	v.Meta = meta
	if b, ok := meta.Get(value.Kw("", "dynamic")); ok {
		v.Dynamic = value.Truthy(b)
	}
	if b, ok := meta.Get(value.Kw("", "macro")); ok {
		v.Macro = value.Truthy(b)
	}
	if b, ok := meta.Get(value.Kw("", "private")); ok {
		v.Private = value.Truthy(b)
	}
	if d, ok := meta.Get(value.Kw("", "doc")); ok {
		if s, ok := d.(*value.Str); ok {
			v.Doc = s.Value
		}
	}
}

// analyzeFn handles both single-arity `(fn [params] body...)` and
// multi-arity `(fn ([params] body...) ([params] body...))`, with an
// optional leading self-reference name for recursive anonymous fns.
func (a *Analyzer) analyzeFn(args []value.Value, ctx *actx) (*ast.Node, error) {
	name := ""
	if len(args) > 0 {
		if sym, ok := args[0].(*value.Symbol); ok {
			name = sym.Name
			args = args[1:]
		}
	}
	if len(args) == 0 {
		return nil, rterr.New(rterr.AnalyzeError, "fn requires at least one parameter list")
	}

	var arityForms [][]value.Value
	if _, ok := args[0].(*value.Vector); ok {
		arityForms = [][]value.Value{args}
	} else {
		for _, f := range args {
			l, ok := f.(*value.List)
			if !ok {
				return nil, rterr.New(rterr.AnalyzeError, "fn arity must be a list of (params body...)")
			}
			arityForms = append(arityForms, l.Slice())
		}
	}

	selfScope := ctx.scope
	if name != "" {
		selfScope = NewScope(ctx.scope, []string{name})
	}

	fnScope := &actx{scope: selfScope}
	spec := &ast.FnSpec{Name: name}
	outerNames := ctx.scope.Flatten()

	for _, form := range arityForms {
		params, ok := form[0].(*value.Vector)
		if !ok {
			return nil, rterr.New(rterr.AnalyzeError, "fn parameter list must be a vector")
		}
		names, variadic, restName, err := parseParamList(params.Slice())
		if err != nil {
			return nil, err
		}
		allNames := append(append([]string{}, names...), restNameOrEmpty(restName)...)
		paramScope := NewScope(fnScope.scope, allNames)
		bodyCtx := &actx{scope: paramScope, tail: true, hasLoop: true, loopArity: len(names)}
		body, err := a.analyzeBody(form[1:], bodyCtx)
		if err != nil {
			return nil, err
		}
		spec.Arities = append(spec.Arities, ast.Arity{Params: names, Variadic: variadic, RestName: restName, Body: body})
		for n := range NewScope(nil, allNames).Flatten() {
			if outerNames[n] {
				spec.CaptureSet = appendUnique(spec.CaptureSet, n)
			}
		}
	}

	return &ast.Node{Kind: ast.KFn, Fn: spec}, nil
}

func restNameOrEmpty(r string) []string {
	if r == "" {
		return nil
	}
	return []string{r}
}

func appendUnique(s []string, v string) []string {
	for _, x := range s {
		if x == v {
			return s
		}
	}
	return append(s, v)
}

// parseParamList splits a [a b & rest] vector into fixed names plus an
// optional variadic rest-binding name.
func parseParamList(items []value.Value) (names []string, variadic bool, restName string, err error) {
	for i := 0; i < len(items); i++ {
		sym, ok := items[i].(*value.Symbol)
		if !ok {
			return nil, false, "", rterr.New(rterr.AnalyzeError, "fn parameters must be symbols")
		}
		if sym.Name == "&" {
			if i+2 != len(items) {
				return nil, false, "", rterr.New(rterr.AnalyzeError, "fn variadic marker must be followed by exactly one binding")
			}
			restSym, ok := items[i+1].(*value.Symbol)
			if !ok {
				return nil, false, "", rterr.New(rterr.AnalyzeError, "fn rest binding must be a symbol")
			}
			return names, true, restSym.Name, nil
		}
		names = append(names, sym.Name)
	}
	return names, false, "", nil
}

func (a *Analyzer) analyzeLet(args []value.Value, ctx *actx) (*ast.Node, error) {
	return a.analyzeLetOrLoop(args, ctx, false)
}

func (a *Analyzer) analyzeLoop(args []value.Value, ctx *actx) (*ast.Node, error) {
	return a.analyzeLetOrLoop(args, ctx, true)
}

func (a *Analyzer) analyzeLetOrLoop(args []value.Value, ctx *actx, isLoop bool) (*ast.Node, error) {
	if len(args) < 1 {
		return nil, rterr.New(rterr.AnalyzeError, "let/loop requires a binding vector")
	}
	bindingVec, ok := args[0].(*value.Vector)
	if !ok {
		return nil, rterr.New(rterr.AnalyzeError, "let/loop bindings must be a vector")
	}
	pairs := bindingVec.Slice()
	if len(pairs)%2 != 0 {
		return nil, rterr.New(rterr.AnalyzeError, "let/loop bindings must have an even number of forms")
	}
	scope := ctx.scope
	var bindings []ast.LetBinding
	for i := 0; i < len(pairs); i += 2 {
		sym, ok := pairs[i].(*value.Symbol)
		if !ok {
			return nil, rterr.New(rterr.AnalyzeError, "let/loop binding name must be a symbol")
		}
		initCtx := &actx{scope: scope, tail: false}
		init, err := a.analyze(pairs[i+1], initCtx)
		if err != nil {
			return nil, err
		}
		bindings = append(bindings, ast.LetBinding{Name: sym.Name, Init: init})
		scope = NewScope(scope, []string{sym.Name})
	}
	bodyTail := &actx{scope: scope, tail: ctx.tail, hasLoop: ctx.hasLoop, loopArity: ctx.loopArity}
	if isLoop {
		bodyTail = &actx{scope: scope, tail: true, hasLoop: true, loopArity: len(bindings)}
	}
	body, err := a.analyzeBody(args[1:], bodyTail)
	if err != nil {
		return nil, err
	}
	kind := ast.KLet
	if isLoop {
		kind = ast.KLoop
	}
	return &ast.Node{Kind: kind, Bindings: bindings, Body: body, IsLoop: isLoop, RecurArity: len(bindings)}, nil
}

func (a *Analyzer) analyzeRecur(args []value.Value, ctx *actx) (*ast.Node, error) {
	if !ctx.tail || !ctx.hasLoop {
		return nil, rterr.New(rterr.AnalyzeError, "can only recur from tail position")
	}
	if len(args) != ctx.loopArity {
		return nil, rterr.New(rterr.AnalyzeError, "mismatched argument count to recur, expected %d, got %d", ctx.loopArity, len(args))
	}
	argCtx := &actx{scope: ctx.scope, tail: false}
	nodes := make([]*ast.Node, len(args))
	for i, arg := range args {
		n, err := a.analyze(arg, argCtx)
		if err != nil {
			return nil, err
		}
		nodes[i] = n
	}
	return &ast.Node{Kind: ast.KRecur, RecurArgs: nodes}, nil
}

func (a *Analyzer) analyzeThrow(args []value.Value, ctx *actx) (*ast.Node, error) {
	if len(args) != 1 {
		return nil, rterr.New(rterr.AnalyzeError, "throw expects exactly 1 argument")
	}
	argCtx := &actx{scope: ctx.scope, tail: false}
	expr, err := a.analyze(args[0], argCtx)
	if err != nil {
		return nil, err
	}
	return &ast.Node{Kind: ast.KThrow, ThrowExpr: expr}, nil
}

// analyzeTry handles (try body... (catch kind binding body...)* (finally
// body...)?). recur cannot cross a try boundary, per real Clojure
// semantics, so bodies inside try/catch/finally are never in tail
// position with respect to an outer loop.
func (a *Analyzer) analyzeTry(args []value.Value, ctx *actx) (*ast.Node, error) {
	node := &ast.Node{Kind: ast.KTry}
	noRecur := &actx{scope: ctx.scope, tail: false}
	i := 0
	for ; i < len(args); i++ {
		if isClauseHead(args[i], "catch") || isClauseHead(args[i], "finally") {
			break
		}
		n, err := a.analyze(args[i], noRecur)
		if err != nil {
			return nil, err
		}
		node.TryBody = append(node.TryBody, n)
	}
	for ; i < len(args); i++ {
		l, ok := args[i].(*value.List)
		if !ok {
			return nil, rterr.New(rterr.AnalyzeError, "try clause must be a list")
		}
		items := l.Slice()
		head := items[0].(*value.Symbol)
		if head.Name == "catch" {
			if len(items) < 3 {
				return nil, rterr.New(rterr.AnalyzeError, "catch requires a type, a binding and a body")
			}
			excType := items[1]
			bindSym, ok := items[2].(*value.Symbol)
			if !ok {
				return nil, rterr.New(rterr.AnalyzeError, "catch binding must be a symbol")
			}
			catchScope := &actx{scope: NewScope(ctx.scope, []string{bindSym.Name}), tail: false}
			body, err := a.analyzeBody(items[3:], catchScope)
			if err != nil {
				return nil, err
			}
			node.Catches = append(node.Catches, ast.CatchClause{ExceptionType: excType, BindingName: bindSym.Name, Body: body})
		} else if head.Name == "finally" {
			body, err := a.analyzeBody(items[1:], noRecur)
			if err != nil {
				return nil, err
			}
			node.Finally = body
		} else {
			return nil, rterr.New(rterr.AnalyzeError, "unexpected clause in try: %s", head.Name)
		}
	}
	return node, nil
}

func isClauseHead(v value.Value, name string) bool {
	l, ok := v.(*value.List)
	if !ok || l == nil {
		return false
	}
	sym, ok := l.First().(*value.Symbol)
	return ok && sym.Ns == "" && sym.Name == name
}

// analyzeNew handles (new TypeName args...). clover has no user-defined
// host types, so the only constructible "classes" are the small set of
// runtime builtins (atom, volatile) — ClassName is resolved to the
// matching builtin constructor by the evaluator.
func (a *Analyzer) analyzeNew(args []value.Value, ctx *actx) (*ast.Node, error) {
	if len(args) < 1 {
		return nil, rterr.New(rterr.AnalyzeError, "new requires a type name")
	}
	sym, ok := args[0].(*value.Symbol)
	if !ok {
		return nil, rterr.New(rterr.AnalyzeError, "new requires a symbol type name")
	}
	argCtx := &actx{scope: ctx.scope, tail: false}
	nodeArgs := make([]*ast.Node, len(args)-1)
	for i, arg := range args[1:] {
		n, err := a.analyze(arg, argCtx)
		if err != nil {
			return nil, err
		}
		nodeArgs[i] = n
	}
	return &ast.Node{Kind: ast.KNew, ClassName: sym.Name, NewArgs: nodeArgs}, nil
}

func (a *Analyzer) analyzeSetBang(args []value.Value, ctx *actx) (*ast.Node, error) {
	if len(args) != 2 {
		return nil, rterr.New(rterr.AnalyzeError, "set! expects exactly 2 arguments")
	}
	argCtx := &actx{scope: ctx.scope, tail: false}
	target, err := a.analyze(args[0], argCtx)
	if err != nil {
		return nil, err
	}
	val, err := a.analyze(args[1], argCtx)
	if err != nil {
		return nil, err
	}
	return &ast.Node{Kind: ast.KSetBang, SetTarget: target, SetVal: val}, nil
}

func (a *Analyzer) analyzeVar(args []value.Value, ctx *actx) (*ast.Node, error) {
	if len(args) != 1 {
		return nil, rterr.New(rterr.AnalyzeError, "var expects exactly 1 argument")
	}
	sym, ok := args[0].(*value.Symbol)
	if !ok {
		return nil, rterr.New(rterr.AnalyzeError, "var requires a symbol")
	}
	v, err := a.RT.Resolve(a.RT.CurrentNS, sym.Ns, sym.Name)
	if err != nil {
		return nil, err
	}
	return &ast.Node{Kind: ast.KConst, ConstVal: v}, nil
}

// analyzeCase handles (case expr test1 result1 test2 result2 ... default?).
// Each test is a literal or a list of alternative literals (sharing one
// result); the analyzer resolves keywords/symbols/numbers/strings as
// literal dispatch values per spec §4.D.
func (a *Analyzer) analyzeCase(args []value.Value, ctx *actx) (*ast.Node, error) {
	if len(args) < 1 {
		return nil, rterr.New(rterr.AnalyzeError, "case requires an expression")
	}
	argCtx := &actx{scope: ctx.scope, tail: false}
	expr, err := a.analyze(args[0], argCtx)
	if err != nil {
		return nil, err
	}
	rest := args[1:]
	node := &ast.Node{Kind: ast.KCase, CaseExpr: expr}
	i := 0
	for ; i+1 < len(rest); i += 2 {
		var tests []value.Value
		if l, ok := rest[i].(*value.List); ok {
			tests = l.Slice()
		} else {
			tests = []value.Value{rest[i]}
		}
		body, err := a.analyze(rest[i+1], ctx)
		if err != nil {
			return nil, err
		}
		node.CaseClauses = append(node.CaseClauses, ast.CaseClause{Tests: tests, Body: body})
	}
	if i < len(rest) {
		def, err := a.analyze(rest[i], ctx)
		if err != nil {
			return nil, err
		}
		node.CaseDefault = def
	}
	return node, nil
}
