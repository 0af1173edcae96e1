// Command jsfec drives the front end's two-call pipeline over a single
// source file: ParseScript, then ResolveVariables, then either a
// disassembly listing or a structured error.
package main

import (
	"fmt"
	"os"

	"github.com/go-jsfe/jsfe"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	asModule bool
	strict   bool
	htmlComments bool
	tree     bool
	verbose  bool

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "jsfec <file.js|file.mjs>",
	Short: "Parse and resolve an ECMAScript source file",
	Long: "jsfec parses a single .js or .mjs file, runs scope resolution over it, " +
		"and prints either the resulting bytecode disassembly or a structured error.",
	Args: cobra.ExactArgs(1),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := zap.NewProductionConfig()
		if verbose {
			cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
		}
		l, err := cfg.Build()
		if err != nil {
			return err
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
	RunE: runParse,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug-level logging")
	rootCmd.Flags().BoolVarP(&asModule, "module", "m", false, "parse as a module instead of a script")
	rootCmd.Flags().BoolVar(&strict, "strict", false, "force strict mode for the whole unit")
	rootCmd.Flags().BoolVar(&htmlComments, "html-comments", false, "allow legacy <!-- --> comment syntax")
	rootCmd.Flags().BoolVarP(&tree, "tree", "t", false, "print the function tree instead of a flat disassembly")
}

func runParse(cmd *cobra.Command, args []string) error {
	path := args[0]
	source, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	goal := jsfe.GoalScript
	if asModule {
		goal = jsfe.GoalModule
	}

	var flags jsfe.ParseFlags
	if strict {
		flags |= jsfe.FlagStrict
	}
	if htmlComments {
		flags |= jsfe.FlagAllowHTMLComments
	}

	fd, err := jsfe.ParseScriptWithLogger(source, path, goal, flags, jsfe.NewZapLogger(logger))
	if err != nil {
		printError(cmd, path, err)
		os.Exit(1)
		return nil
	}

	if err := jsfe.ResolveVariables(fd); err != nil {
		printError(cmd, path, err)
		os.Exit(1)
		return nil
	}

	// ParseScriptWithLogger does not hand back the ParserState that owns
	// the AtomTable, so atom operands print as raw indices rather than
	// resolved names.
	if tree {
		fmt.Fprintln(cmd.OutOrStdout(), fd.DisasmTree(nil))
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), fd.Disasm(nil))
	}
	return nil
}

func printError(cmd *cobra.Command, path string, err error) {
	switch e := err.(type) {
	case *jsfe.SyntaxError:
		fmt.Fprintf(cmd.ErrOrStderr(), "%s\n", e.Error())
	case *jsfe.RangeError:
		fmt.Fprintf(cmd.ErrOrStderr(), "%s\n", e.Error())
	default:
		fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", path, err.Error())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
