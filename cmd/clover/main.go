// Command clover is the runtime's driver: enough to run a source file
// or an -e expression, and to read a prompt loop from a terminal. Per
// SPEC_FULL's explicit boundary, this stays a minimal driver — no
// readline history, no tab completion, no LSP server — the teacher's
// own pkg/cli/entry.go Run() is a proper compiler frontend with build/
// compile/test subcommands; clover only needs the two or three things a
// script runner and a REPL actually do.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/cloverlang/clover/internal/analyzer"
	"github.com/cloverlang/clover/internal/config"
	"github.com/cloverlang/clover/internal/evaluator"
	"github.com/cloverlang/clover/internal/pipeline"
	"github.com/cloverlang/clover/internal/runtime"
	"github.com/cloverlang/clover/internal/utils"
	"github.com/cloverlang/clover/internal/value"
	"github.com/mattn/go-isatty"
)

const version = "0.1.0"

func main() {
	defer func() {
		if r := recover(); r != nil {
			if os.Getenv("DEBUG") == "1" {
				panic(r)
			}
			fmt.Fprintf(os.Stderr, "Internal error: %v\n", r)
			os.Exit(1)
		}
	}()

	args := os.Args[1:]
	if len(args) > 0 {
		switch args[0] {
		case "-v", "-version", "--version":
			fmt.Println("clover " + version)
			return
		case "-h", "-help", "--help":
			printUsage()
			return
		}
	}

	cfg, err := config.Load(config.FileName)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	rt := runtime.NewRuntime()
	az := analyzer.New(rt)
	evaluator.Bootstrap(rt, az)

	var evalExpr string
	var fileArg string
	var scriptArgs []string
	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "-e" && i+1 < len(args):
			evalExpr = args[i+1]
			i++
		case fileArg == "" && !strings.HasPrefix(args[i], "-"):
			fileArg = args[i]
		default:
			scriptArgs = append(scriptArgs, args[i])
		}
	}

	evaluator.RegisterDynamicVars(rt, evaluator.DynamicVarSeed{
		PrintLength:        int64Ptr(cfg.PrintLength),
		PrintLevel:         int64Ptr(cfg.PrintLevel),
		PrintNamespaceMaps: cfg.PrintNamespaceMaps,
		DataReaders:        cfg.DataReaders,
		SourcePath:         cfg.RequirePath,
		CommandLineArgs:    scriptArgs,
		File:               fileArg,
	})

	switch {
	case evalExpr != "":
		runAndReport(rt, az, evalExpr, "-e")
	case fileArg != "":
		runFile(rt, az, fileArg, cfg.RequirePath)
	default:
		repl(rt, az)
	}
}

func int64Ptr(n *int) *int64 {
	if n == nil {
		return nil
	}
	v := int64(*n)
	return &v
}

func printUsage() {
	fmt.Println(`usage: clover [-e expr | file] [args...]

  -e expr      evaluate expr and print its result
  file         run a source file
  (no args)    start a prompt loop reading forms from stdin
  -v           print version
  -h           print this message`)
}

func runFile(rt *runtime.Runtime, az *analyzer.Analyzer, path string, searchPath []string) {
	src, err := os.ReadFile(path)
	if err != nil {
		if resolved, ok := utils.FindNamespaceFile(searchPath, path); ok {
			src, err = os.ReadFile(resolved)
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
	_, errs := pipeline.RunSource(rt, az, string(src), path)
	for _, e := range errs {
		fmt.Fprintln(os.Stderr, e)
	}
	if len(errs) > 0 {
		os.Exit(1)
	}
}

func runAndReport(rt *runtime.Runtime, az *analyzer.Analyzer, src, file string) {
	results, errs := pipeline.RunSource(rt, az, src, file)
	for _, e := range errs {
		fmt.Fprintln(os.Stderr, e)
	}
	if len(errs) > 0 {
		os.Exit(1)
	}
	if len(results) > 0 {
		fmt.Println(value.PrStr(results[len(results)-1]))
	}
}

// repl reads one top-level form at a time from stdin, growing its
// buffer across lines until a form parses cleanly, then trims the
// buffer down to whatever the reader left unconsumed (reader.Pos())
// before evaluating — so a half-typed next form sitting after a
// complete one on the same line is never re-evaluated alongside it.
// Prompts only appear when stdin is an interactive terminal, so
// `clover < script.clj` behaves like running a file.
func repl(rt *runtime.Runtime, az *analyzer.Analyzer) {
	interactive := isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
	in := bufio.NewScanner(os.Stdin)
	in.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var buf strings.Builder
	prompt := func() {
		if interactive {
			fmt.Fprint(os.Stdout, promptFor(rt))
		}
	}
	prompt()
	for in.Scan() {
		buf.WriteString(in.Text())
		buf.WriteByte('\n')

		for {
			r := pipeline.NewReader(rt, buf.String())
			form, err := r.ReadOne()
			if err != nil {
				if strings.Contains(err.Error(), "unexpected EOF") {
					break // form isn't closed yet, wait for the next line
				}
				fmt.Fprintln(os.Stderr, err)
				buf.Reset()
				break
			}
			if form == nil {
				buf.Reset()
				break
			}
			remaining := buf.String()[r.Pos():]
			buf.Reset()
			buf.WriteString(remaining)

			v, err := analyzer.FormToValue(form, nil)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				continue
			}
			if v == nil {
				continue // a top-level #_discard form has nothing to evaluate
			}
			result, errs := pipeline.RunForm(rt, az, v)
			for _, e := range errs {
				fmt.Fprintln(os.Stderr, e)
			}
			if len(errs) == 0 {
				fmt.Println(value.PrStr(result))
			}
		}
		prompt()
	}
	if interactive {
		fmt.Println()
	}
}

func promptFor(rt *runtime.Runtime) string {
	return rt.CurrentNS.Name + "=> "
}
