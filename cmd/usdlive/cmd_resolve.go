package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chazu/usdlive/pkg/compose"
	"github.com/chazu/usdlive/pkg/outline"
	"github.com/chazu/usdlive/pkg/usda"
)

// resolveCmd prints the composed hierarchy of one file
var resolveCmd = &cobra.Command{
	Use:   "resolve [file]",
	Short: "Resolve a file's references and print the composed hierarchy",
	Long: `Parses the file, pulls in every reference and payload it names from the
workspace, drops inactive prims and prints the resulting outline followed by
any composition errors.

Example:
  usdlive resolve main.usda
  usdlive resolve main.usda --json`,
	Args: cobra.ExactArgs(1),
	RunE: runResolve,
}

// flattenCmd writes a file with every arc baked in
var flattenCmd = &cobra.Command{
	Use:   "flatten [file]",
	Short: "Write the composed stage as a single USDA layer",
	Args:  cobra.ExactArgs(1),
	RunE:  runFlatten,
}

func init() {
	resolveCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the result as JSON")
	flattenCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write to a file instead of stdout")
}

func runResolve(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	_, res, err := composeFile(store, args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		if res.Errors == nil {
			res.Errors = []compose.Error{}
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return err
		}
		return errorCount(len(res.Errors))
	}

	if tree := outline.Render(outline.Build(res.Prims), outline.DefaultStyles()); tree != "" {
		fmt.Fprintln(out, tree)
	}
	printErrors(cmd, res.Errors)
	return errorCount(len(res.Errors))
}

func runFlatten(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	_, res, err := composeFile(store, args[0])
	if err != nil {
		return err
	}
	if err := writeOutput(cmd, usda.Format(usda.Flatten(res.Prims))); err != nil {
		return err
	}
	printErrors(cmd, res.Errors)
	return errorCount(len(res.Errors))
}

// printErrors lists composition errors on stderr, one per line.
func printErrors(cmd *cobra.Command, errs []compose.Error) {
	for _, e := range errs {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", e.Kind, e.Error())
	}
}
