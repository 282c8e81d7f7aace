package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
	"golang.org/x/sync/errgroup"

	"indigo/compiler"
)

// disasmCmd loads one or more persisted bytecode files and prints their
// disassembly. Multiple files are disassembled concurrently with
// errgroup: each file's disassembly only reads its own Program, so the
// fan-out is safe and never touches the single synchronous VM spec.md §5
// describes.
type disasmCmd struct{}

func (*disasmCmd) Name() string     { return "disasm" }
func (*disasmCmd) Synopsis() string { return "disassemble one or more persisted bytecode files" }
func (*disasmCmd) Usage() string {
	return `disasm <file...>:
  Print the disassembly of one or more bytecode.dat-style files.
`
}
func (*disasmCmd) SetFlags(f *flag.FlagSet) {}

func (*disasmCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	paths := f.Args()
	if len(paths) == 0 {
		fmt.Fprintln(os.Stderr, "💥 disasm expects at least one file argument")
		return subcommands.ExitUsageError
	}

	listings := make([]string, len(paths))
	g, _ := errgroup.WithContext(ctx)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			listing, err := disassembleFile(path)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			listings[i] = listing
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		fmt.Fprintf(os.Stderr, "💥 %v\n", err)
		return subcommands.ExitFailure
	}

	for i, path := range paths {
		fmt.Printf("=== %s ===\n%s\n", path, listings[i])
	}
	return subcommands.ExitSuccess
}

func disassembleFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	program, err := compiler.ReadProgram(f, compiler.DefaultNatives())
	if err != nil {
		return "", err
	}
	return compiler.DisassembleProgram(program), nil
}
