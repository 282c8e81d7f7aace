package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/subcommands"

	"indigo/compiler"
	"indigo/lexer"
	"indigo/parser"
)

// emitCmd compiles a source file and writes its bytecode file and a
// disassembly alongside it, without executing it. Grounded in the
// teacher's emitBytecodeCmd (cmd_emit_bytecode.go).
type emitCmd struct {
	out string
}

func (*emitCmd) Name() string     { return "emit" }
func (*emitCmd) Synopsis() string { return "compile a source file to bytecode without running it" }
func (*emitCmd) Usage() string {
	return `emit <file>:
  Compile <file>, writing its bytecode and a disassembly next to it.
`
}

func (cmd *emitCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&cmd.out, "out", "", "output file path (default: <file> with its extension replaced by .dat)")
}

func (cmd *emitCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	args := f.Args()
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "💥 emit expects exactly one file argument")
		return subcommands.ExitUsageError
	}
	path := args[0]

	source, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "💥 failed to read %q: %v\n", path, err)
		return subcommands.ExitFailure
	}

	lex := lexer.New(string(source))
	tokens, lexErrs := lex.Scan()
	if len(lexErrs) > 0 {
		printAll(lexErrs)
		return subcommands.ExitFailure
	}

	p := parser.New(tokens)
	stmts, parseErrs := p.Parse()
	if len(parseErrs) > 0 {
		printAll(parseErrs)
		return subcommands.ExitFailure
	}

	c := compiler.New(compiler.DefaultNatives())
	program, compileErrs := c.Compile(stmts)
	if len(compileErrs) > 0 {
		printAll(compileErrs)
		return subcommands.ExitFailure
	}

	outPath := cmd.out
	if outPath == "" {
		outPath = stripExt(path) + ".dat"
	}
	if err := os.WriteFile(outPath, compiler.WriteProgram(program), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "💥 failed to write %q: %v\n", outPath, err)
		return subcommands.ExitFailure
	}

	disasmPath := stripExt(outPath) + ".disasm"
	if err := os.WriteFile(disasmPath, []byte(compiler.DisassembleProgram(program)), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "💥 failed to write %q: %v\n", disasmPath, err)
		return subcommands.ExitFailure
	}

	fmt.Printf("wrote %s and %s\n", outPath, disasmPath)
	return subcommands.ExitSuccess
}

func stripExt(path string) string {
	if idx := strings.LastIndex(path, "."); idx >= 0 {
		return path[:idx]
	}
	return path
}

func printAll(errs []error) {
	for _, e := range errs {
		fmt.Fprintf(os.Stderr, "\t%v\n", e)
	}
}
