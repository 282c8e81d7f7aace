// Command indigo is the primary entry point (spec.md §6.3): with no
// arguments it runs an interactive prompt stub; given one argument it
// compiles that source file, writes bytecode.dat in the working
// directory, and executes it. Any other argument count is a usage error.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/chzyer/readline"

	"indigo/compiler"
	"indigo/lexer"
	"indigo/parser"
	"indigo/vm"
)

const bytecodeFileName = "bytecode.dat"

func main() {
	switch len(os.Args) {
	case 1:
		prompt()
	case 2:
		if err := runFile(os.Args[1]); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	default:
		fmt.Fprintln(os.Stderr, "usage: indigo [script]")
		os.Exit(64)
	}
}

// prompt is the interactive stub spec.md §6.3 calls for: it reads lines
// with history/editing (via chzyer/readline, one of the teacher's own
// go.mod dependencies, otherwise unused there) and echoes each one back
// until a blank line ends the session. It does not compile or execute —
// spec.md §1 leaves the interactive prompt itself out of scope.
func prompt() {
	fmt.Println("indigo — press enter on a blank line to exit")
	rl, err := readline.New("indigo> ")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			if len(line) == 0 {
				break
			}
			continue
		}
		if err == io.EOF || line == "" {
			break
		}
		fmt.Println(line)
	}
}

// runFile implements spec.md §6.3's compile-then-execute path: the
// lexer/parser/compiler pipeline produces a Program, which is persisted
// to bytecode.dat and then immediately re-read and handed to a fresh VM,
// so every run goes through the binary bytecode file (§6.2). The CLI has
// no mode that executes an existing bytecode file without compiling.
func runFile(path string) error {
	source, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("💥 failed to read %q: %w", path, err)
	}

	lex := lexer.New(string(source))
	tokens, lexErrs := lex.Scan()
	if len(lexErrs) > 0 {
		return reportErrors("lexing", lexErrs)
	}

	p := parser.New(tokens)
	stmts, parseErrs := p.Parse()
	if len(parseErrs) > 0 {
		return reportErrors("parsing", parseErrs)
	}

	c := compiler.New(compiler.DefaultNatives())
	program, compileErrs := c.Compile(stmts)
	if len(compileErrs) > 0 {
		return reportErrors("compilation", compileErrs)
	}

	if err := os.WriteFile(bytecodeFileName, compiler.WriteProgram(program), 0o644); err != nil {
		return fmt.Errorf("💥 failed to write %q: %w", bytecodeFileName, err)
	}

	loaded, err := loadProgram(bytecodeFileName, program.Natives)
	if err != nil {
		return err
	}

	machine := vm.New(loaded, nil)
	if err := machine.Run(); err != nil {
		return err
	}
	return nil
}

func loadProgram(path string, natives []compiler.NativeFunction) (*compiler.Program, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("💥 failed to open %q: %w", path, err)
	}
	defer f.Close()

	program, err := compiler.ReadProgram(f, natives)
	if err != nil {
		return nil, fmt.Errorf("💥 failed to read %q: %w", path, err)
	}
	return program, nil
}

func reportErrors(phase string, errs []error) error {
	fmt.Fprintf(os.Stderr, "💥 %s failed:\n", phase)
	for _, e := range errs {
		fmt.Fprintf(os.Stderr, "\t%v\n", e)
	}
	return fmt.Errorf("%s failed with %d error(s)", phase, len(errs))
}
