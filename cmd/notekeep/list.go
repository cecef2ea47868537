package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/notekeep"
)

var (
	listFormat string
	listAll    bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List notes as the current settings display them",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		nb := openNotebook(cmd)
		defer closeNotebook(nb)

		shown := nb.View()
		if listAll {
			shown = nb.Notes()
		}
		if err := printNotes(os.Stdout, shown, listFormat); err != nil {
			fatal("Failed to print notes", err)
		}
	},
}

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print one note",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		nb := openNotebook(cmd)
		defer closeNotebook(nb)

		n, ok := nb.Note(args[0])
		if !ok {
			mustExist(false, args[0])
			return
		}
		if listFormat == "text" {
			fmt.Printf("# %s\n\n%s\n", n.Title, n.Content)
			if len(n.Tags) > 0 {
				fmt.Printf("\ntags: %s\n", strings.Join(n.Tags, ", "))
			}
			return
		}
		if err := printValue(os.Stdout, n, listFormat); err != nil {
			fatal("Failed to print note", err)
		}
	},
}

func printNotes(w io.Writer, list []notekeep.Note, format string) error {
	if format != "text" {
		return printValue(w, list, format)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, n := range list {
		flags := ""
		if n.Pinned {
			flags += "P"
		}
		if n.Archived {
			flags += "A"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", n.ID, flags, n.Title, strings.Join(n.Tags, ","))
	}
	return tw.Flush()
}

func printValue(w io.Writer, v any, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(v)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

func init() {
	rootCmd.AddCommand(listCmd, showCmd)
	for _, c := range []*cobra.Command{listCmd, showCmd} {
		c.Flags().StringVarP(&listFormat, "format", "f", "text", "Output format: text, json or yaml")
	}
	listCmd.Flags().BoolVar(&listAll, "all", false, "Ignore filters and list every note")
}
