package analyzer_test

import (
	"testing"

	"github.com/cloverlang/clover/internal/analyzer"
	"github.com/cloverlang/clover/internal/evaluator"
	"github.com/cloverlang/clover/internal/runtime"
	"github.com/cloverlang/clover/internal/value"
)

func newAnalyzer(t *testing.T) (*runtime.Runtime, *analyzer.Analyzer) {
	t.Helper()
	rt := runtime.NewRuntime()
	az := analyzer.New(rt)
	evaluator.Bootstrap(rt, az)
	return rt, az
}

// fnForm builds (fn [params...] body...).
func fnForm(params []value.Value, body ...value.Value) value.Value {
	items := append([]value.Value{value.Sym("fn"), value.VectorFrom(params)}, body...)
	return value.ListFrom(items)
}

func callForm(head string, args ...value.Value) value.Value {
	items := append([]value.Value{value.Sym(head)}, args...)
	return value.ListFrom(items)
}

// TestRecurNonTailPositionRejected checks that a recur nested inside a
// non-tail argument position of the fn body fails analysis, per the
// recur-only-in-tail-position invariant.
func TestRecurNonTailPositionRejected(t *testing.T) {
	_, az := newAnalyzer(t)
	n := value.Sym("n")
	// (fn [n] (+ n (recur n))) -- recur is an argument to +, not a tail call
	form := fnForm([]value.Value{n}, callForm("+", n, callForm("recur", n)))
	_, err := az.Analyze(form, analyzer.NewScope(nil, nil))
	if err == nil {
		t.Fatal("expected an error for non-tail recur, got none")
	}
}

// TestRecurTailPositionAccepted checks that a recur in the tail position
// of an if-branch inside fn's body analyzes cleanly.
func TestRecurTailPositionAccepted(t *testing.T) {
	_, az := newAnalyzer(t)
	n := value.Sym("n")
	// (fn [n] (if (< n 1) n (recur (dec n))))
	ifForm := callForm("if", callForm("<", n, value.Int_(1)), n, callForm("recur", callForm("dec", n)))
	form := fnForm([]value.Value{n}, ifForm)
	if _, err := az.Analyze(form, analyzer.NewScope(nil, nil)); err != nil {
		t.Fatalf("unexpected error for tail-position recur: %v", err)
	}
}

// TestLetLexicalScope checks that let introduces names resolvable in its
// body without touching the enclosing namespace.
func TestLetLexicalScope(t *testing.T) {
	_, az := newAnalyzer(t)
	x := value.Sym("x")
	// (let [x 5] (+ x 1))
	letForm := value.ListFrom([]value.Value{
		value.Sym("let"),
		value.VectorFrom([]value.Value{x, value.Int_(5)}),
		callForm("+", x, value.Int_(1)),
	})
	if _, err := az.Analyze(letForm, analyzer.NewScope(nil, nil)); err != nil {
		t.Fatalf("unexpected error analyzing let: %v", err)
	}
}

// TestUnresolvedSymbolIsAnalyzeError checks that referencing an unbound,
// unqualified symbol fails analysis rather than deferring to eval time.
func TestUnresolvedSymbolIsAnalyzeError(t *testing.T) {
	_, az := newAnalyzer(t)
	form := value.Sym("no-such-var-anywhere")
	if _, err := az.Analyze(form, analyzer.NewScope(nil, nil)); err == nil {
		t.Fatal("expected an error resolving an unbound symbol")
	}
}
