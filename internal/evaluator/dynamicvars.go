package evaluator

import (
	"github.com/cloverlang/clover/internal/runtime"
	"github.com/cloverlang/clover/internal/value"
)

// DynamicVarSeed carries the startup values cmd/clover read from
// internal/config before calling RegisterDynamicVars. Kept separate from
// Bootstrap's signature so core.go (and every other evaluator file) can
// stay free of an internal/config import: config is a driver-level
// concern, not a language-runtime one.
type DynamicVarSeed struct {
	PrintLength        *int64
	PrintLevel         *int64
	PrintNamespaceMaps bool
	DataReaders        map[string]string
	SourcePath         []string
	CommandLineArgs    []string
	File               string
}

// RegisterDynamicVars interns clojure.core's predefined dynamic vars
// (spec §3's "environment-ish" bindings real Clojure carries at the
// REPL), seeding the print/reader-control ones from seed. Call once,
// after Bootstrap, before running any source.
func RegisterDynamicVars(rt *runtime.Runtime, seed DynamicVarSeed) {
	core := rt.CreateNS("clojure.core")

	dyn := func(name string, root value.Value) {
		v := core.Intern(name)
		v.Dynamic = true
		v.BindRoot(root)
	}

	dyn("*ns*", rt.CurrentNS)
	dyn("*file*", value.Str_(seed.File))

	args := make([]value.Value, len(seed.CommandLineArgs))
	for i, a := range seed.CommandLineArgs {
		args[i] = value.Str_(a)
	}
	dyn("*command-line-args*", value.ListFrom(args))

	dyn("*e*", value.NilValue)
	dyn("*flush-on-newline*", value.Bool_(true))
	dyn("*print-dup*", value.Bool_(false))
	dyn("*print-length*", intOrNil(seed.PrintLength))
	dyn("*print-level*", intOrNil(seed.PrintLevel))
	dyn("*print-meta*", value.Bool_(false))
	dyn("*print-namespace-maps*", value.Bool_(seed.PrintNamespaceMaps))
	dyn("*print-readably*", value.Bool_(true))
	dyn("*read-eval*", value.Bool_(true))

	readers := value.EmptyMap()
	for tag, handler := range seed.DataReaders {
		readers = readers.Assoc(value.Sym(tag), value.Sym(handler))
	}
	dyn("*data-readers*", readers)
	dyn("*default-data-reader-fn*", value.NilValue)

	paths := make([]value.Value, len(seed.SourcePath))
	for i, p := range seed.SourcePath {
		paths[i] = value.Str_(p)
	}
	dyn("*source-path*", value.VectorFrom(paths))
	dyn("*unchecked-math*", value.Bool_(false))

	// *out*/*err*/*in* are present as bindable dynamic vars for
	// completeness (code can `(binding [*out* ...] ...)` without a
	// resolve error), but print/println/prn still target os.Stdout
	// directly: there is no redirectable I/O port abstraction.
	dyn("*out*", value.Kw("", "stdout"))
	dyn("*err*", value.Kw("", "stderr"))
	dyn("*in*", value.Kw("", "stdin"))
}

func intOrNil(n *int64) value.Value {
	if n == nil {
		return value.NilValue
	}
	return value.Int_(*n)
}

// SetCurrentNS re-binds *ns*'s root after in-ns/ns switches the
// runtime's current namespace, keeping the var's value (rather than just
// rt.CurrentNS) in sync for code that derefs #'clojure.core/*ns* directly.
func SetCurrentNS(rt *runtime.Runtime, ns *runtime.Namespace) {
	core, ok := rt.Namespaces["clojure.core"]
	if !ok {
		return
	}
	if v, ok := core.Interns["*ns*"]; ok {
		v.BindRoot(ns)
	}
}
