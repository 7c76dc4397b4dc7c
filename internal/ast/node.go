// Package ast defines Node, the analyzer's output tree — spec §3 Node /
// §4.D Analyzer. It lives in its own package (rather than inside
// analyzer or evaluator) because both the analyzer (which builds Node
// trees) and the evaluator (which walks them) need the same
// representation, and putting it in either would force an import cycle.
package ast

import "github.com/cloverlang/clover/internal/value"

type Kind int

const (
	KConst Kind = iota
	KLocalRef
	KVarRef
	KInvoke
	KIf
	KDo
	KLet
	KLoop
	KRecur
	KFn
	KQuote
	KDef
	KTry
	KThrow
	KNew
	KSetBang
	KCase
)

// VarTarget is implemented by runtime.Var; Node references it through
// this small interface so package ast need not import package runtime.
type VarTarget interface {
	value.Value
	VarNamespace() string
	VarName() string
}

// Node is a tagged AST operation. Not every field applies to every
// Kind; see the per-Kind comment.
type Node struct {
	Kind Kind
	Line int
	Col  int

	// KConst
	ConstVal value.Value

	// KLocalRef
	LocalName  string
	LocalDepth int // lexical frame distance, 0 = innermost

	// KVarRef
	Var VarTarget

	// KInvoke
	Op   *Node
	Args []*Node

	// KIf
	Test, Then, Else *Node

	// KDo / KTry body / KLet body / KLoop body
	Body []*Node

	// KLet / KLoop
	Bindings []LetBinding
	IsLoop   bool

	// KLet/KLoop binding count; the recur arity check itself is done by
	// the analyzer, and the evaluator does not read this field
	RecurArity int

	// KRecur
	RecurArgs []*Node

	// KFn
	Fn *FnSpec

	// KQuote
	QuotedForm value.Value

	// KDef
	DefName     string
	DefNs       string
	DefInit     *Node // nil if (def x) with no init
	DefMeta     *value.PersistentMap

	// KTry
	TryBody     []*Node
	Catches     []CatchClause
	Finally     []*Node

	// KThrow
	ThrowExpr *Node

	// KNew
	ClassName string
	NewArgs   []*Node

	// KSetBang
	SetTarget *Node
	SetVal    *Node

	// KCase
	CaseExpr    *Node
	CaseClauses []CaseClause
	CaseDefault *Node
}

type LetBinding struct {
	Name string
	Init *Node
}

type CatchClause struct {
	ExceptionType value.Value // a keyword filter (:default matches anything), or a value matched by Eql
	BindingName   string
	Body          []*Node
}

type CaseClause struct {
	Tests []value.Value
	Body  *Node
}

// Arity is one parameter list + body for a (possibly multi-arity) fn.
type Arity struct {
	Params   []string
	Variadic bool
	RestName string // name bound to the rest seq when Variadic
	Body     []*Node
}

// FnSpec is the analyzed shape of fn*: one or more arities dispatched by
// argument count, with the variadic arity (if any) as fallback, plus the
// set of outer-lexical locals the closure must capture.
type FnSpec struct {
	Name       string // optional self-reference name, for (fn rec [...] ...)
	Arities    []Arity
	CaptureSet []string
}
