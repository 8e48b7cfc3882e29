package main

import (
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var disasmCmd = &cobra.Command{
	Use:   "disasm [script]",
	Short: "Disassemble a script's compiled bytecode",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if noColor {
			color.NoColor = true
		}
		source, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		chunk, err := compile(args[0], string(source))
		if err != nil {
			return err
		}
		printChunkBytecode(chunk)
		return nil
	},
}
