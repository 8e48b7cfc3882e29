// Command koto is the thin CLI driver around the runtime core: a cobra
// command tree, fatih/color + mattn/go-isatty for output, and
// mitchellh/go-homedir for locating the REPL history file.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
)

var (
	showBytecode  bool
	showAnnotated bool
	noColor       bool
)

var rootCmd = &cobra.Command{
	Use:   "koto [script]",
	Short: "Koto: an embeddable dynamic scripting language",
	Args: func(cmd *cobra.Command, args []string) error {
		return cobra.MaximumNArgs(1)(cmd, args[:len(args)-len(splitTrailingArgs(cmd))])
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if noColor {
			color.NoColor = true
		}
		scriptArgs := splitTrailingArgs(cmd)
		if len(args) == len(scriptArgs) {
			return runREPL(scriptArgs)
		}
		return runScript(args[0], scriptArgs)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&showBytecode, "show_bytecode", "b", false, "print disassembled bytecode before execution")
	rootCmd.PersistentFlags().BoolVarP(&showAnnotated, "show_annotated", "B", false, "print bytecode interleaved with source lines")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.AddCommand(disasmCmd)
}

// splitTrailingArgs returns whatever followed a literal "--" on the
// command line, forwarded to the script as its `args` global.
func splitTrailingArgs(cmd *cobra.Command) []string {
	dash := cmd.ArgsLenAtDash()
	if dash < 0 {
		return nil
	}
	return cmd.Flags().Args()[dash:]
}

// historyFilePath locates the REPL history file in the user's home
// directory.
func historyFilePath() string {
	home, err := homedir.Dir()
	if err != nil {
		return ""
	}
	return home + "/.koto_history"
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		red := color.New(color.FgRed).SprintfFunc()
		fmt.Fprintln(os.Stderr, red("error: %s", err))
		os.Exit(1)
	}
}
