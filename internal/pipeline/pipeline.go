// Package pipeline wires reader, analyzer and evaluator into the
// Read->Analyze->Eval stage sequence cmd/clover drives for both file
// and REPL execution. Grounded on the teacher's internal/pipeline
// package (a Pipeline of Processor stages threading one *PipelineContext
// through Lex->Parse->Analyze->Execute, "continue on errors to collect
// diagnostics from all stages"): clover keeps the same
// context-threaded-through-stages shape, but one PipelineContext now
// covers a single top-level form rather than a whole compiled program,
// since forms must be read, analyzed and evaluated one at a time for
// earlier def/defmacro forms to take effect before later ones are read.
package pipeline

import (
	"github.com/cloverlang/clover/internal/analyzer"
	"github.com/cloverlang/clover/internal/ast"
	"github.com/cloverlang/clover/internal/evaluator"
	"github.com/cloverlang/clover/internal/reader"
	"github.com/cloverlang/clover/internal/runtime"
	"github.com/cloverlang/clover/internal/value"
)

// PipelineContext carries one top-level form through Read, Analyze and
// Eval. Each stage appends to Errors rather than aborting the whole run,
// matching the teacher's "LSP needs both parse and semantic errors"
// rationale — here so the REPL can report an eval error on form N and
// still read form N+1.
type PipelineContext struct {
	RT *runtime.Runtime
	AZ *analyzer.Analyzer

	Form   value.Value
	Node   *ast.Node
	Result value.Value

	Errors []error
}

// Processor is one pipeline stage.
type Processor interface {
	Process(ctx *PipelineContext) *PipelineContext
}

// Pipeline runs a fixed sequence of Processors over one PipelineContext.
type Pipeline struct {
	processors []Processor
}

func New(processors ...Processor) *Pipeline {
	return &Pipeline{processors: processors}
}

func (p *Pipeline) Run(ctx *PipelineContext) *PipelineContext {
	for _, proc := range p.processors {
		ctx = proc.Process(ctx)
	}
	return ctx
}

// AnalyzeProcessor turns ctx.Form into ctx.Node via the Analyzer, using
// a fresh top-level Scope (no enclosing lexical frame) per form.
type AnalyzeProcessor struct{}

func (AnalyzeProcessor) Process(ctx *PipelineContext) *PipelineContext {
	if ctx.Form == nil || len(ctx.Errors) > 0 {
		return ctx
	}
	node, err := ctx.AZ.Analyze(ctx.Form, analyzer.NewScope(nil, nil))
	if err != nil {
		ctx.Errors = append(ctx.Errors, err)
		return ctx
	}
	ctx.Node = node
	return ctx
}

// EvalProcessor evaluates ctx.Node at the top level (nil lexical Env —
// only def/defmacro/ns-style forms and plain expressions reach here,
// never a raw KLocalRef, since those only occur inside a fn/let body the
// analyzer has already closed over).
type EvalProcessor struct{}

func (EvalProcessor) Process(ctx *PipelineContext) *PipelineContext {
	if ctx.Node == nil || len(ctx.Errors) > 0 {
		return ctx
	}
	result, err := evaluator.Eval(ctx.Node, nil, ctx.RT)
	if err != nil {
		ctx.Errors = append(ctx.Errors, err)
		return ctx
	}
	ctx.Result = result
	return ctx
}

// Standard is the Analyze->Eval pipeline shared by file execution and
// the REPL; reading happens one form earlier, in RunSource/RunForm,
// since the reader needs the Runtime's current namespace and alias
// table for ::kw auto-qualification before a PipelineContext exists.
func Standard() *Pipeline {
	return New(AnalyzeProcessor{}, EvalProcessor{})
}

// NewReader builds a Reader wired to rt's current namespace and alias
// table for `::kw`/`::alias/kw` resolution, the way both RunSource and
// cmd/clover's REPL need it.
func NewReader(rt *runtime.Runtime, src string) *reader.Reader {
	r := reader.New(src)
	r.CurrentNS = func() string { return rt.CurrentNS.Name }
	r.ResolveAlias = func(alias string) (string, bool) {
		ns, ok := rt.CurrentNS.Aliases[alias]
		if !ok {
			return "", false
		}
		return ns.Name, true
	}
	return r
}

// RunForm pushes one already-read form through the standard pipeline.
func RunForm(rt *runtime.Runtime, az *analyzer.Analyzer, form value.Value) (value.Value, []error) {
	ctx := &PipelineContext{RT: rt, AZ: az, Form: form}
	ctx = Standard().Run(ctx)
	return ctx.Result, ctx.Errors
}

// RunSource reads every top-level form from src in turn, running each
// through RunForm immediately so that a `def`/`defmacro`/`ns` form takes
// effect before the next form is even read (the reader consults
// rt.CurrentNS for `::kw` resolution). A read error aborts the whole
// run (the remaining source cannot be parsed); an analyze or eval error
// on one form is recorded but does not stop the next form from running,
// matching REPL behavior.
func RunSource(rt *runtime.Runtime, az *analyzer.Analyzer, src, file string) ([]value.Value, []error) {
	r := NewReader(rt, src)

	var results []value.Value
	var errs []error
	for {
		f, err := r.ReadOne()
		if err != nil {
			errs = append(errs, err)
			return results, errs
		}
		if f == nil {
			return results, errs
		}
		form, err := analyzer.FormToValue(f, nil)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if form == nil {
			continue // a top-level #_discard form has nothing to evaluate
		}
		result, formErrs := RunForm(rt, az, form)
		if len(formErrs) > 0 {
			errs = append(errs, formErrs...)
			continue
		}
		results = append(results, result)
	}
}
