package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/aretw0/notekeep"
	"github.com/aretw0/notekeep/internal/platform"
	"github.com/aretw0/notekeep/pkg/events"
)

var (
	verbose     bool
	dir         string
	adapterName string
	key         string
	debounce    time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "notekeep",
	Short: "A single-user notes store with crash-safe persistence",
	Long: `notekeep keeps notes and view settings in one versioned document.
Writes are debounced, corrupt data is backed up before being reset, and
changes made by another notekeep process are picked up live.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		slog.SetDefault(logger)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	flags.StringVarP(&dir, "dir", "d", "", "Notebook directory (default: .notekeep of the enclosing root)")
	flags.StringVarP(&adapterName, "adapter", "a", "", "Storage adapter: fs, sqlite or memory")
	flags.StringVarP(&key, "key", "k", "", "Storage key of the notes document")
	flags.DurationVar(&debounce, "debounce", 0, "Quiet period before writes")
}

// notebookDir resolves --dir, falling back to the enclosing notebook root.
func notebookDir() string {
	if dir != "" {
		return dir
	}
	wd, err := os.Getwd()
	if err != nil {
		fatal("Failed to get CWD", err)
	}
	return platform.DefaultDir(wd)
}

// openNotebook opens the notebook selected by the global flags. Flags
// override notekeep.yaml. Error events are printed to stderr.
func openNotebook(cmd *cobra.Command, extra ...notekeep.Option) *notekeep.Notebook {
	path := notebookDir()
	cfg, err := notekeep.LoadConfig(path)
	if err != nil {
		fatal("Failed to load config", err)
	}

	opts := []notekeep.Option{
		notekeep.WithConfig(cfg),
		notekeep.WithLogger(slog.Default()),
		notekeep.WithErrorHandler(printWarning),
	}
	if cmd.Flags().Changed("adapter") {
		opts = append(opts, notekeep.WithAdapter(adapterName))
	}
	if cmd.Flags().Changed("key") {
		opts = append(opts, notekeep.WithKey(key))
	}
	if cmd.Flags().Changed("debounce") {
		opts = append(opts, notekeep.WithDebounce(debounce))
	}
	opts = append(opts, extra...)

	nb, err := notekeep.Open(cmd.Context(), path, opts...)
	if err != nil {
		fatal("Failed to open notebook", err)
	}
	return nb
}

func printWarning(e events.ErrorEvent) {
	writeWarning(os.Stderr, e)
}

func writeWarning(w io.Writer, e events.ErrorEvent) {
	if e.Detail != "" {
		fmt.Fprintf(w, "warning: %s (%s)\n", e.Message, e.Detail)
		return
	}
	fmt.Fprintf(w, "warning: %s\n", e.Message)
}

func closeNotebook(nb *notekeep.Notebook) {
	if err := nb.Close(context.Background()); err != nil {
		fatal("Failed to save notebook", err)
	}
}
