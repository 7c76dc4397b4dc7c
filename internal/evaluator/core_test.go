package evaluator

import (
	"testing"

	"github.com/cloverlang/clover/internal/analyzer"
	"github.com/cloverlang/clover/internal/pipeline"
	"github.com/cloverlang/clover/internal/runtime"
	"github.com/cloverlang/clover/internal/value"
)

// newTestRuntime wires a fresh Runtime/Analyzer pair with clojure.core
// bootstrapped, the way cmd/clover does at startup.
func newTestRuntime(t *testing.T) (*runtime.Runtime, *analyzer.Analyzer) {
	t.Helper()
	rt := runtime.NewRuntime()
	az := analyzer.New(rt)
	Bootstrap(rt, az)
	RegisterDynamicVars(rt, DynamicVarSeed{})
	return rt, az
}

// run evaluates every top-level form in src and returns the last result,
// failing the test on any error.
func run(t *testing.T, src string) value.Value {
	t.Helper()
	rt, az := newTestRuntime(t)
	return runWith(t, rt, az, src)
}

// runWith is like run but against a caller-supplied Runtime/Analyzer,
// for tests that need to seed dynamic vars before running.
func runWith(t *testing.T, rt *runtime.Runtime, az *analyzer.Analyzer, src string) value.Value {
	t.Helper()
	results, errs := pipeline.RunSource(rt, az, src, "test")
	if len(errs) > 0 {
		t.Fatalf("unexpected errors running %q: %v", src, errs)
	}
	if len(results) == 0 {
		t.Fatalf("no results for %q", src)
	}
	return results[len(results)-1]
}

func TestArithmetic(t *testing.T) {
	got := run(t, `(+ 1 2 (* 3 4))`)
	if value.PrStr(got) != "15" {
		t.Errorf("got %s, want 15", value.PrStr(got))
	}
}

func TestLet(t *testing.T) {
	got := run(t, `(let [x 2 y 3] (+ x y))`)
	if value.PrStr(got) != "5" {
		t.Errorf("got %s, want 5", value.PrStr(got))
	}
}

func TestRecursiveFib(t *testing.T) {
	got := run(t, `
		(defn fib [n] (if (< n 2) n (+ (fib (- n 1)) (fib (- n 2)))))
		(fib 10)`)
	if value.PrStr(got) != "55" {
		t.Errorf("got %s, want 55", value.PrStr(got))
	}
}

func TestAtomDotimes(t *testing.T) {
	got := run(t, `
		(def counter (atom 0))
		(dotimes [i 5] (swap! counter inc))
		@counter`)
	if value.PrStr(got) != "5" {
		t.Errorf("got %s, want 5", value.PrStr(got))
	}
}

func TestRegexFindGroups(t *testing.T) {
	got := run(t, `(re-find #"(\d+)-(\d+)" "order 12-34 shipped")`)
	want := `["12-34" "12" "34"]`
	if value.PrStr(got) != want {
		t.Errorf("got %s, want %s", value.PrStr(got), want)
	}
}

func TestMultimethodDispatch(t *testing.T) {
	got := run(t, `
		(defmulti area :shape)
		(defmethod area :square [s] (* (:side s) (:side s)))
		(defmethod area :circle [s] (* 314 (:radius s) (:radius s)))
		(area {:shape :square :side 4})`)
	if value.PrStr(got) != "16" {
		t.Errorf("got %s, want 16", value.PrStr(got))
	}
}

func TestTransientVectorBuild(t *testing.T) {
	got := run(t, `(persistent! (reduce conj! (transient []) [1 2 3]))`)
	if value.PrStr(got) != "[1 2 3]" {
		t.Errorf("got %s, want [1 2 3]", value.PrStr(got))
	}
}

func TestSyntaxQuoteNamespaceQualification(t *testing.T) {
	got := run(t, `
		(defmacro capture [] `+"`"+`(+ 1 2))
		(macroexpand-1 '(capture))`)
	want := `(clojure.core/+ 1 2)`
	if value.PrStr(got) != want {
		t.Errorf("got %s, want %s", value.PrStr(got), want)
	}
}

func TestTryCatchBindsExceptionData(t *testing.T) {
	got := run(t, `
		(try
		  (throw (ex-info "boom" {:code 42}))
		  (catch :default e
		    (:code (ex-data e))))`)
	if value.PrStr(got) != "42" {
		t.Errorf("got %s, want 42", value.PrStr(got))
	}
}

func TestTryFinallyRunsOnNormalReturn(t *testing.T) {
	got := run(t, `
		(def ran (atom false))
		(try
		  (+ 1 2)
		  (finally (reset! ran true)))
		@ran`)
	if value.PrStr(got) != "true" {
		t.Errorf("got %s, want true (finally must run even without a thrown value)", value.PrStr(got))
	}
}

func TestNamespaceAliasResolvesQualifiedSymbol(t *testing.T) {
	got := run(t, `
		(in-ns 'other.ns)
		(def greeting "hi")
		(in-ns 'user)
		(require '[other.ns :as o])
		o/greeting`)
	if value.PrStr(got) != `"hi"` {
		t.Errorf("got %s, want \"hi\"", value.PrStr(got))
	}
}

func TestReadTaggedDispatchesToDataReader(t *testing.T) {
	rt := runtime.NewRuntime()
	az := analyzer.New(rt)
	Bootstrap(rt, az)
	RegisterDynamicVars(rt, DynamicVarSeed{DataReaders: map[string]string{"mytag": "my-tag-fn"}})

	got := runWith(t, rt, az, `
		(defn my-tag-fn [x] (str "tagged:" x))
		#mytag 42`)
	if value.PrStr(got) != `"tagged:42"` {
		t.Errorf("got %s, want \"tagged:42\"", value.PrStr(got))
	}
}

func TestReadTaggedUnknownTagErrors(t *testing.T) {
	rt, az := newTestRuntime(t)
	_, errs := pipeline.RunSource(rt, az, `#no-such-tag 1`, "test")
	if len(errs) == 0 {
		t.Fatal("expected an error for an unregistered tag, got none")
	}
}

func TestDiscardDoesNotBreakReadingTrailingForms(t *testing.T) {
	got := run(t, `[1 2 #_3]`)
	if value.PrStr(got) != "[1 2]" {
		t.Errorf("got %s, want [1 2]", value.PrStr(got))
	}
}

func TestMultimethodVectorDispatchMatchesPairwiseIsa(t *testing.T) {
	got := run(t, `
		(derive :dog :animal)
		(derive :cat :animal)
		(defmulti encounter (fn [a b] [a b]))
		(defmethod encounter [:animal :animal] [a b] :interact)
		(encounter :dog :cat)`)
	if value.PrStr(got) != ":interact" {
		t.Errorf("got %s, want :interact", value.PrStr(got))
	}
}

func TestDelayMemoizesBody(t *testing.T) {
	got := run(t, `
		(def n (atom 0))
		(def d (delay (swap! n inc)))
		@d
		@d
		@n`)
	if value.PrStr(got) != "1" {
		t.Errorf("got %s, want 1 (delay body must run only once)", value.PrStr(got))
	}
}
