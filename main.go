// Command quill compiles Quill source code into bytecode and runs it in a
// stack-based virtual machine.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/subcommands"

	"github.com/dr8co/quill/bytecode"
	"github.com/dr8co/quill/compiler"
	"github.com/dr8co/quill/lexer"
	"github.com/dr8co/quill/parser"
	"github.com/dr8co/quill/platform"
	"github.com/dr8co/quill/repl"
	"github.com/dr8co/quill/vm"
)

const version = "0.1.0"

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")
	subcommands.Register(&evalCmd{}, "")
	subcommands.Register(&disasmCmd{}, "")
	subcommands.Register(&compileCmd{}, "")
	subcommands.Register(&replCmd{}, "")
	subcommands.Register(&versionCmd{}, "")

	flag.Parse()

	if flag.NArg() == 0 {
		os.Exit(int(new(replCmd).Execute(context.Background(), flag.CommandLine)))
	}

	os.Exit(int(subcommands.Execute(context.Background())))
}

// parseAndCompile lexes, parses, and compiles source, printing parser errors
// to stderr and returning ok=false if any stage failed.
func parseAndCompile(src string) (*compiler.Bytecode, bool) {
	l := lexer.New(src)
	p := parser.New(l)
	program := p.ParseProgram()

	if len(p.Errors()) != 0 {
		printParserErrors(p.Errors())
		return nil, false
	}

	comp := compiler.New()
	if err := comp.Compile(program); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "compile error: %s\n", err)
		return nil, false
	}

	return comp.Bytecode(), true
}

func printParserErrors(errors []string) {
	_, _ = fmt.Fprintln(os.Stderr, "parser errors:")
	for _, msg := range errors {
		_, _ = fmt.Fprintln(os.Stderr, "\t"+msg)
	}
}

func readSource(path string) (string, error) {
	cleaned := filepath.Clean(path)
	//nolint:gosec // path comes from the operator's own command line
	content, err := os.ReadFile(cleaned)
	if err != nil {
		return "", err
	}
	return string(content), nil
}

// evalCmd lexes, parses, compiles, and runs either a source file or an
// inline expression, printing the last popped stack value.
type evalCmd struct {
	eval string
}

func (*evalCmd) Name() string     { return "eval" }
func (*evalCmd) Synopsis() string { return "compile and run a Quill source file or expression" }
func (*evalCmd) Usage() string {
	return "eval [-e expr] [file]:\n  Run a Quill script file, or an inline expression with -e.\n"
}

func (c *evalCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.eval, "e", "", "evaluate an inline expression instead of a file")
}

func (c *evalCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	var src string
	if c.eval != "" {
		src = c.eval
	} else {
		if f.NArg() == 0 {
			_, _ = fmt.Fprintln(os.Stderr, "eval: no file or -e expression given")
			return subcommands.ExitUsageError
		}
		content, err := readSource(f.Arg(0))
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "eval: %s\n", err)
			return subcommands.ExitFailure
		}
		src = content
	}

	bc, ok := parseAndCompile(src)
	if !ok {
		return subcommands.ExitFailure
	}

	machine := vm.New(bc, platform.Native(f.Args()))
	if err := machine.Run(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "vm error: %s\n", err)
		_, _ = fmt.Fprintf(os.Stderr, "stack:\n%s", machine.StackTrace())
		_, _ = fmt.Fprintf(os.Stderr, "globals:\n%s", machine.GlobalsDump())
		return subcommands.ExitStatus(2)
	}

	if top := machine.LastPoppedStackElem(); top != nil {
		fmt.Println(top.Describe())
	}
	return subcommands.ExitSuccess
}

// disasmCmd prints the disassembled instructions for a source file or a
// previously compiled bytecode file.
type disasmCmd struct {
	compiled bool
}

func (*disasmCmd) Name() string     { return "disasm" }
func (*disasmCmd) Synopsis() string { return "disassemble a Quill source or bytecode file" }
func (*disasmCmd) Usage() string {
	return "disasm [-c] <file>:\n  Print the bytecode instructions for a source file, or -c for a compiled .qlbc file.\n"
}

func (c *disasmCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.compiled, "c", false, "treat the input as an already-compiled .qlbc file")
}

func (c *disasmCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		_, _ = fmt.Fprintln(os.Stderr, "disasm: no file given")
		return subcommands.ExitUsageError
	}

	var bc *compiler.Bytecode
	if c.compiled {
		data, err := os.ReadFile(filepath.Clean(f.Arg(0)))
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "disasm: %s\n", err)
			return subcommands.ExitFailure
		}
		decoded, err := bytecode.Decode(data)
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "disasm: %s\n", err)
			return subcommands.ExitFailure
		}
		bc = decoded
	} else {
		src, err := readSource(f.Arg(0))
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "disasm: %s\n", err)
			return subcommands.ExitFailure
		}
		compiled, ok := parseAndCompile(src)
		if !ok {
			return subcommands.ExitFailure
		}
		bc = compiled
	}

	fmt.Print(bc.Instructions.String())
	for i, cst := range bc.Constants {
		fmt.Printf("CONSTANT %d %s\n", i, cst.Describe())
	}
	return subcommands.ExitSuccess
}

// compileCmd compiles a source file and persists the resulting bytecode to
// an output file in the engine's binary format.
type compileCmd struct {
	out string
}

func (*compileCmd) Name() string     { return "compile" }
func (*compileCmd) Synopsis() string { return "compile a Quill source file to a bytecode file" }
func (*compileCmd) Usage() string {
	return "compile [-o out.qlbc] <file>:\n  Compile a Quill script and write its bytecode to disk.\n"
}

func (c *compileCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.out, "o", "", "output path (defaults to <file>.qlbc)")
}

func (c *compileCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		_, _ = fmt.Fprintln(os.Stderr, "compile: no file given")
		return subcommands.ExitUsageError
	}

	src, err := readSource(f.Arg(0))
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "compile: %s\n", err)
		return subcommands.ExitFailure
	}

	bc, ok := parseAndCompile(src)
	if !ok {
		return subcommands.ExitFailure
	}

	data, err := bytecode.Encode(bc)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "compile: %s\n", err)
		return subcommands.ExitFailure
	}

	out := c.out
	if out == "" {
		out = f.Arg(0) + ".qlbc"
	}
	if err := os.WriteFile(out, data, 0o644); err != nil { //nolint:gosec
		_, _ = fmt.Fprintf(os.Stderr, "compile: %s\n", err)
		return subcommands.ExitFailure
	}
	fmt.Println(out)
	return subcommands.ExitSuccess
}

// replCmd starts the interactive REPL. It is the default action when no
// subcommand is given.
type replCmd struct {
	noColor bool
	debug   bool
}

func (*replCmd) Name() string     { return "repl" }
func (*replCmd) Synopsis() string { return "start the interactive Quill REPL" }
func (*replCmd) Usage() string    { return "repl:\n  Start the interactive read-eval-print loop.\n" }

func (c *replCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.noColor, "no-color", false, "disable syntax highlighting and colored output")
	f.BoolVar(&c.debug, "debug", false, "enable verbose debug output")
}

func (c *replCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	username := "there"
	if u, ok := os.LookupEnv("USER"); ok && u != "" {
		username = u
	}

	repl.Start(username, repl.Options{NoColor: c.noColor, Debug: c.debug})
	return subcommands.ExitSuccess
}

// versionCmd prints the engine's version string.
type versionCmd struct{}

func (*versionCmd) Name() string             { return "version" }
func (*versionCmd) Synopsis() string         { return "print the engine version" }
func (*versionCmd) Usage() string            { return "version:\n  Print the engine version.\n" }
func (*versionCmd) SetFlags(*flag.FlagSet)   {}
func (*versionCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	fmt.Println("quill " + version)
	return subcommands.ExitSuccess
}
