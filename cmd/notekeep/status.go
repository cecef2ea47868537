package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/aretw0/introspection"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the internal state of every storage layer",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		nb := openNotebook(cmd)
		defer closeNotebook(nb)

		components := []any{nb.Repository(), nb.Adapter(), nb.Bridge()}
		out := make(map[string]any, len(components))
		for _, c := range components {
			intro, ok := c.(introspection.Introspectable)
			if !ok {
				continue
			}
			name := fmt.Sprintf("%T", c)
			if comp, ok := c.(introspection.Component); ok {
				name = comp.ComponentType()
			}
			out[name] = intro.State()
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			fatal("Failed to encode status", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
