package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aretw0/notekeep"
	nklifecycle "github.com/aretw0/notekeep/pkg/adapters/lifecycle"
	"github.com/aretw0/notekeep/pkg/core"
	"github.com/aretw0/notekeep/pkg/storage"
)

var watchEvents bool

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print the notes every time another process changes them",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		nb := openNotebook(cmd, notekeep.WithWatch(true))
		defer closeNotebook(nb)

		if watchEvents {
			if err := printEvents(ctx, nb); err != nil {
				fatal("Failed to watch storage", err)
			}
		}

		unsubscribe := nb.OnChange(func(view []core.Note) {
			fmt.Println("---")
			if err := printNotes(os.Stdout, view, "text"); err != nil {
				fmt.Fprintln(os.Stderr, err)
			}
		})
		defer unsubscribe()

		printNotes(os.Stdout, nb.View(), "text")
		<-ctx.Done()
	},
}

// printEvents logs every raw storage change for the notebook key.
func printEvents(ctx context.Context, nb *notekeep.Notebook) error {
	w, ok := nb.Repository().(core.Watchable)
	if !ok {
		return fmt.Errorf("adapter %T cannot be watched", nb.Repository())
	}
	src := nklifecycle.NewSource(w, storage.EscapeGlob(nb.Bridge().Key()))
	if err := src.Start(ctx); err != nil {
		return err
	}
	go func() {
		for ev := range src.Events() {
			fmt.Fprintf(os.Stderr, "event: %s\n", ev)
		}
	}()
	return nil
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().BoolVar(&watchEvents, "events", false, "Also print raw storage events to stderr")
}
