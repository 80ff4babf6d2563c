// Command usdlive resolves, checks and previews USDA scene files from the
// terminal.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/chazu/usdlive/pkg/compose"
	"github.com/chazu/usdlive/pkg/config"
	"github.com/chazu/usdlive/pkg/logging"
	"github.com/chazu/usdlive/pkg/workspace"
)

var (
	// Global flags
	verbose      bool
	workspaceDir string
	configPath   string

	// Shared command flags
	timeCode   float64
	outputPath string
	jsonOutput bool

	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "usdlive",
	Short: "Compose and preview USDA scenes",
	Long: `usdlive parses USDA text, resolves references and payloads across the
files of a workspace, and reports what the composed stage looks like.

Paths given to commands are relative to the workspace directory.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if path == "" {
			path = filepath.Join(workspaceDir, config.FileName)
		}
		c, err := config.Load(path)
		if err != nil {
			return err
		}
		if verbose {
			c.Logging.Level = "debug"
		}
		if err := c.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
		cfg = c

		logger, err = logging.New(cfg.Logging)
		if err != nil {
			return err
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&workspaceDir, "workspace", "w", "", "Workspace directory (default: config or current)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: <workspace>/usdlive.yaml)")

	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(flattenCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(sampleCmd)
	rootCmd.AddCommand(meshCmd)
	rootCmd.AddCommand(scriptCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// settings returns the loaded config, falling back to defaults when a
// command runs without the root pre-run hook. The --workspace flag wins
// over the config file.
func settings() *config.Config {
	if cfg == nil {
		cfg = config.Default()
	}
	if workspaceDir != "" {
		cfg.Workspace.Dir = workspaceDir
	}
	if cfg.Workspace.Dir == "" {
		cfg.Workspace.Dir = "."
	}
	return cfg
}

func currentLogger() *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

func openStore() (*workspace.Store, error) {
	return workspace.NewDirStore(settings().Workspace.Dir, workspace.WithLogger(currentLogger().Named("workspace")))
}

func newResolver(files compose.FileSource) *compose.Resolver {
	return compose.NewResolver(files,
		compose.WithMaxReferenceDepth(settings().Compose.MaxReferenceDepth),
		compose.WithLogger(currentLogger().Named("compose")))
}

// composeFile resolves one stored file against a snapshot of the workspace.
func composeFile(store *workspace.Store, p string) (compose.VirtualFile, compose.Result, error) {
	f, err := store.Get(p)
	if err != nil {
		return compose.VirtualFile{}, compose.Result{}, err
	}
	files, err := store.Snapshot()
	if err != nil {
		return compose.VirtualFile{}, compose.Result{}, err
	}
	return f, newResolver(files).ParseAndResolve(f.Content, f.Path), nil
}

// errorCount turns a number of composition errors into a command failure.
func errorCount(n int) error {
	if n == 0 {
		return nil
	}
	return fmt.Errorf("%d composition errors", n)
}

// writeOutput writes text to --output, or to the command's stdout.
func writeOutput(cmd *cobra.Command, text string) error {
	if outputPath == "" {
		_, err := fmt.Fprint(cmd.OutOrStdout(), text)
		return err
	}
	if err := os.WriteFile(outputPath, []byte(text), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", outputPath, err)
	}
	return nil
}
