package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/fatih/color"
	isatty "github.com/mattn/go-isatty"

	"github.com/kotolang/koto"
	"github.com/kotolang/koto/bytecode"
	"github.com/kotolang/koto/dis"
	"github.com/kotolang/koto/errz"
)

func runScript(path string, scriptArgs []string) error {
	source, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	chunk, err := compile(path, string(source))
	if err != nil {
		return err
	}

	rt := koto.New(
		koto.WithArgs(scriptArgs),
		koto.WithShowBytecode(showBytecode),
		koto.WithShowAnnotated(showAnnotated),
	)
	result, err := rt.Execute(chunk)
	if err != nil {
		printRuntimeError(err)
		os.Exit(1)
	}
	if result != nil {
		fmt.Println(result.String())
	}
	return nil
}

// runREPL reads script input line by line, compiling and executing each
// line against a shared runtime instance, persisting each line to
// historyFilePath().
func runREPL(scriptArgs []string) error {
	rt := koto.New(koto.WithArgs(scriptArgs))
	historyPath := historyFilePath()

	var history *os.File
	if historyPath != "" {
		var err error
		history, err = os.OpenFile(historyPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err == nil {
			defer history.Close()
		}
	}

	prompt := "koto> "
	if isatty.IsTerminal(os.Stdin.Fd()) {
		prompt = color.New(color.FgCyan).Sprint("koto> ")
	}

	scanner := bufio.NewScanner(os.Stdin)
	fmt.Print(prompt)
	for scanner.Scan() {
		line := scanner.Text()
		if history != nil {
			fmt.Fprintln(history, line)
		}
		chunk, err := compile("<repl>", line)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			fmt.Print(prompt)
			continue
		}
		result, err := rt.Execute(chunk)
		if err != nil {
			printRuntimeError(err)
		} else if result != nil {
			fmt.Println(result.String())
		}
		fmt.Print(prompt)
	}
	return scanner.Err()
}

func printRuntimeError(err error) {
	red := color.New(color.FgRed).SprintFunc()
	if se, ok := err.(*errz.Error); ok {
		fmt.Fprint(os.Stderr, red(se.Report()))
		return
	}
	fmt.Fprintln(os.Stderr, red(err.Error()))
}

// printChunkBytecode drives dis.Disassemble/Print for the standalone
// `disasm` subcommand, which disassembles without executing the script
// (runScript instead lets the VM print its own bytecode via
// koto.WithShowBytecode/WithShowAnnotated, so its disassembly reflects
// exactly what's about to run).
func printChunkBytecode(c *bytecode.Chunk) {
	instrs, err := dis.Disassemble(c)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return
	}
	useColor := !color.NoColor
	if showAnnotated {
		dis.PrintAnnotated(c, instrs, os.Stdout, useColor)
	} else {
		dis.Print(instrs, os.Stdout, useColor)
	}
}
