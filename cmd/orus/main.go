// Command orus is the embedder CLI of spec §6: it drives a program through
// the optimizer and emitter and into the interpreter, and reports the exit
// codes spec.md §6 names (0 success, 1 compile error, 2 runtime error,
// non-zero on I/O failure). Since the surface lexer/parser are explicitly
// out of scope, this command builds a fixed demo typed AST rather than
// reading Orus source text, standing in for a front end that would
// otherwise produce that tree from parsed source.
package main

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/jordyorel/orus-lang-sub009/internal/ast"
	"github.com/jordyorel/orus-lang-sub009/internal/builtins"
	"github.com/jordyorel/orus-lang-sub009/internal/emitter"
	"github.com/jordyorel/orus-lang-sub009/internal/interp"
	"github.com/jordyorel/orus-lang-sub009/internal/optimizer"
	"github.com/jordyorel/orus-lang-sub009/internal/value"
)

const (
	exitOK           = 0
	exitCompileError = 1
	exitRuntimeError = 2
	exitIOFailure    = 3
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// mainRun is the entry point testscript's Main harness invokes in place of
// a compiled binary (main_test.go's TestMain), so the script suite under
// testdata/script exercises the exact same run() the real binary runs.
func mainRun() int {
	return run(os.Args[1:], os.Stdout, os.Stderr)
}

func run(args []string, stdout, stderr *os.File) int {
	colorize := isatty.IsTerminal(stderr.Fd()) || isatty.IsCygwinTerminal(stderr.Fd())

	program := demoProgram()

	ctx := optimizer.NewContext()
	optimizer.RunAffinity(program, ctx)
	optimizer.RunResidency(program, ctx)

	em := emitter.NewProgramEmitter("demo.orus", ctx)
	chunk, err := em.EmitProgram(program)
	if err != nil {
		reportError(stderr, colorize, "compile error", err)
		return exitCompileError
	}

	m := interp.New(interp.DefaultOptions())
	builtins.Register(m)

	if rerr := m.Run(chunk, "main"); rerr != nil {
		reportError(stderr, colorize, "runtime error", rerr)
		return exitRuntimeError
	}

	fmt.Fprintln(stdout, "ok")
	return exitOK
}

// reportError prints msg, red when stderr is a terminal: diagnostics only
// colorize when isatty confirms an interactive terminal rather than a
// redirected pipe or file.
func reportError(stderr *os.File, colorize bool, label string, err error) {
	if colorize {
		fmt.Fprintf(stderr, "\x1b[31m%s:\x1b[0m %v\n", label, err)
		return
	}
	fmt.Fprintf(stderr, "%s: %v\n", label, err)
}

// demoProgram builds a small typed AST exercising a counted loop over a
// global accumulator, the scenario spec §8 calls out first ("a tight
// counted loop summing into an accumulator"). A real front end would
// produce this tree from source text; here it stands in for one.
func demoProgram() *ast.Node {
	sumDecl := ast.VarDecl("sum", ast.Literal(value.I64Val(0)))
	addToSum := ast.Assign("sum", ast.Binary(ast.OpAdd,
		ast.Identifier("sum", value.I64, false),
		ast.Identifier("i", value.I64, false),
		value.I64, true))
	loop := ast.ForRange("i",
		ast.Literal(value.I64Val(0)),
		ast.Literal(value.I64Val(1000)),
		nil, false,
		[]*ast.Node{addToSum})
	return ast.Program(sumDecl, loop)
}
