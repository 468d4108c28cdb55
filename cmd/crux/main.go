// Command crux is the entry point for the language: run a script file,
// drop into an interactive REPL, or print the build version.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/kristofer/crux/pkg/chunk"
	"github.com/kristofer/crux/pkg/compiler"
	"github.com/kristofer/crux/pkg/object"
	"github.com/kristofer/crux/pkg/vm"
)

const version = "0.1.0"

// exit codes, matching the conventions sysexits.h lays out and clox's
// CLI mirrors: 0 success, 64 usage, 65 data/compile error, 70 software
// (runtime) error, 74 I/O error.
const (
	exitUsage       = 64
	exitCompileErr  = 65
	exitRuntimeErr  = 70
	exitIOErr       = 74
	maxReplLineSize = 1024
)

var traceFlag bool

func main() {
	root := &cobra.Command{
		Use:     "crux [script]",
		Short:   "crux runs scripts written in the crux language",
		Args:    cobra.MaximumNArgs(1),
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				runREPL()
				return nil
			}
			runFile(args[0])
			return nil
		},
	}
	root.PersistentFlags().BoolVar(&traceFlag, "trace", false, "disassemble compiled chunks before running them")

	runCmd := &cobra.Command{
		Use:   "run <script>",
		Short: "Compile and run a script file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runFile(args[0])
			return nil
		},
	}

	replCmd := &cobra.Command{
		Use:   "repl",
		Short: "Start an interactive REPL",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			runREPL()
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the crux version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("crux version %s\n", version)
		},
	}

	root.AddCommand(runCmd, replCmd, versionCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitUsage)
	}
}

func runFile(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading file: %v\n", err)
		os.Exit(exitIOErr)
	}

	source := string(data)
	if traceFlag {
		traceSource(source)
	}

	m := vm.New(os.Stdout, os.Stderr)
	switch m.Interpret(source) {
	case vm.ResultCompileError:
		os.Exit(exitCompileErr)
	case vm.ResultRuntimeError:
		os.Exit(exitRuntimeErr)
	}
}

// traceSource compiles source on its own throwaway interner and
// disassembles the resulting function and every nested function it
// constants-references, then discards the result — the run that follows
// recompiles through the VM's own interner so traced identifiers still
// intern identically to a non-traced run.
func traceSource(source string) {
	fn, ok := compiler.Compile(source, object.NewInterner(), os.Stderr)
	if !ok {
		return
	}
	dumpChunk(fn, map[*object.Function]bool{})
}

func dumpChunk(fn *object.Function, seen map[*object.Function]bool) {
	if seen[fn] {
		return
	}
	seen[fn] = true

	name := "<script>"
	if fn.Name != nil {
		name = fn.Name.Chars
	}
	chunk.Disassemble(os.Stderr, fn.Chunk, name)

	for _, k := range fn.Chunk.Constants {
		if nested, ok := k.Obj.(*object.Function); ok {
			dumpChunk(nested, seen)
		}
	}
}

// runREPL runs a read-compile-run loop with line history, sharing one VM
// (and so one global environment and intern table) across every line
// entered, the way a script's top-level scope would persist.
func runREPL() {
	fmt.Printf("crux %s\n", version)

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	m := vm.New(os.Stdout, os.Stderr)

	for {
		input, err := line.Prompt("> ")
		if err != nil {
			break
		}
		if len(input) > maxReplLineSize {
			fmt.Fprintf(os.Stderr, "Line too long (max %d bytes).\n", maxReplLineSize)
			continue
		}
		trimmed := strings.TrimSpace(input)
		if trimmed == "" {
			continue
		}
		line.AppendHistory(input)

		if traceFlag {
			traceSource(input)
		}
		m.Interpret(input)
	}
}
