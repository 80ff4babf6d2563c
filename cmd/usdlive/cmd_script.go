package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/chazu/usdlive/pkg/engine"
)

// scriptCmd runs a procedural scene script
var scriptCmd = &cobra.Command{
	Use:   "script [file]",
	Short: "Run a scene script and print the USDA it produces",
	Long: `Evaluates a sandboxed Lisp script whose builtins (xform, sphere, cube,
cylinder, cone, reference, payload, vec3, keys) build prims, then writes
them out as a USDA layer.

Example:
  usdlive script tower.lisp -o tower.usda`,
	Args: cobra.ExactArgs(1),
	RunE: runScript,
}

func init() {
	scriptCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write to a file instead of stdout")
}

func runScript(cmd *cobra.Command, args []string) error {
	source, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read script: %w", err)
	}
	timeout, err := settings().ScriptTimeout()
	if err != nil {
		return err
	}

	eng := engine.NewEngine(engine.WithTimeout(timeout), engine.WithLogger(currentLogger().Named("engine")))
	text, evalErrs, err := eng.EvaluateUSDA(string(source))
	if err != nil {
		return err
	}
	if len(evalErrs) > 0 {
		for _, e := range evalErrs {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", args[0], e.Error())
		}
		return fmt.Errorf("%d script errors", len(evalErrs))
	}
	return writeOutput(cmd, text)
}
