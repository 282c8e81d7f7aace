// Command indigo-tools is the secondary binary SPEC_FULL.md §2.6 calls
// for: bytecode emission and disassembly, kept separate from cmd/indigo so
// that tool's exact argument-count contract (spec.md §6.3) stays untouched.
// Grounded in the teacher's cmd_emit_bytecode.go, built on the teacher's
// own google/subcommands dependency.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/google/subcommands"
)

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")
	subcommands.Register(&emitCmd{}, "")
	subcommands.Register(&disasmCmd{}, "")

	flag.Parse()
	os.Exit(int(subcommands.Execute(context.Background())))
}
