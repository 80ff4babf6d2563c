package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/chazu/usdlive/pkg/compose"
	"github.com/chazu/usdlive/pkg/workspace"
)

// checkCmd resolves every file in the workspace
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Resolve every scene file in the workspace and report errors",
	Long: `Resolves all .usda and .usd files concurrently against one snapshot of
the workspace. Exits non-zero when any file has composition errors.`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

// watchCmd re-checks the workspace whenever files change
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-check the workspace whenever scene files change",
	Args:  cobra.NoArgs,
	RunE:  runWatch,
}

// fileReport is the check result for one file.
type fileReport struct {
	Path   string
	Errors []compose.Error
}

func runCheck(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	reports, err := checkAll(cmd.Context(), store)
	if err != nil {
		return err
	}
	total := printReports(cmd, reports)
	return errorCount(total)
}

// checkAll resolves every file in store concurrently. Reports come back in
// path order.
func checkAll(ctx context.Context, store *workspace.Store) ([]fileReport, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	snapshot, err := store.Snapshot()
	if err != nil {
		return nil, err
	}
	resolver := newResolver(snapshot)

	// Iterate the snapshot itself so every checked file is the one the
	// resolver sees.
	paths := snapshot.Paths()
	reports := make([]fileReport, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, p := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			f, _ := snapshot.Lookup(p)
			res := resolver.ParseAndResolve(f.Content, f.Path)
			reports[i] = fileReport{Path: f.Path, Errors: res.Errors}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}

// printReports writes one line per file and returns the error total.
func printReports(cmd *cobra.Command, reports []fileReport) int {
	out := cmd.OutOrStdout()
	total := 0
	for _, r := range reports {
		if len(r.Errors) == 0 {
			fmt.Fprintf(out, "ok    %s\n", r.Path)
			continue
		}
		fmt.Fprintf(out, "FAIL  %s (%d errors)\n", r.Path, len(r.Errors))
		for _, e := range r.Errors {
			fmt.Fprintf(out, "      %s: %s\n", e.Kind, e.Error())
		}
		total += len(r.Errors)
	}
	fmt.Fprintf(out, "%d files, %d errors\n", len(reports), total)
	return total
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore()
	if err != nil {
		return err
	}
	debounce, err := settings().DebounceDuration()
	if err != nil {
		return err
	}
	w, err := workspace.NewWatcher(store,
		workspace.WithDebounce(debounce),
		workspace.WithWatchLogger(currentLogger().Named("watcher")))
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Start(ctx); err != nil {
		return err
	}

	check := func() {
		reports, err := checkAll(ctx, store)
		if err != nil {
			currentLogger().Warn("check failed", zap.Error(err))
			return
		}
		printReports(cmd, reports)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "watching %s\n", store.Dir())
	check()
	for {
		select {
		case <-ctx.Done():
			return nil
		case paths, ok := <-w.Events():
			if !ok {
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\n%s changed: %v\n", time.Now().Format(time.TimeOnly), paths)
			check()
		}
	}
}
