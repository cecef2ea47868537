package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/notekeep/pkg/settings"
)

var (
	sortBy         string
	sortDir        string
	filterQuery    string
	filterPinned   bool
	filterArchived bool
	filterReset    bool
	settingsFormat string
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Print the current settings",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		nb := openNotebook(cmd)
		defer closeNotebook(nb)
		if err := printValue(os.Stdout, nb.Settings(), settingsFormat); err != nil {
			fatal("Failed to print settings", err)
		}
	},
}

var themeCmd = &cobra.Command{
	Use:       "theme <light|dark>",
	Short:     "Select the theme",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"light", "dark"},
	Run: func(cmd *cobra.Command, args []string) {
		nb := openNotebook(cmd)
		defer closeNotebook(nb)
		nb.SetTheme(args[0])
	},
}

var sortCmd = &cobra.Command{
	Use:   "sort",
	Short: "Choose how notes are ordered",
	Long:  `Invalid values are ignored and the current choice is kept.`,
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		nb := openNotebook(cmd)
		defer closeNotebook(nb)
		nb.SetSort(sortBy, sortDir)
	},
}

var filterCmd = &cobra.Command{
	Use:   "filter",
	Short: "Narrow the listed notes",
	Long:  `Only the flags given on the command line are changed.`,
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		nb := openNotebook(cmd)
		defer closeNotebook(nb)

		if filterReset {
			nb.ResetFilters()
			return
		}
		var f settings.SetFilters
		flags := cmd.Flags()
		if flags.Changed("query") {
			f.Query = &filterQuery
		}
		if flags.Changed("pinned-only") {
			f.PinnedOnly = &filterPinned
		}
		if flags.Changed("archived") {
			f.Archived = &filterArchived
		}
		nb.SetFilters(f)
	},
}

func init() {
	rootCmd.AddCommand(settingsCmd, themeCmd, sortCmd, filterCmd)
	settingsCmd.Flags().StringVarP(&settingsFormat, "format", "f", "yaml", "Output format: json or yaml")
	sortCmd.Flags().StringVar(&sortBy, "by", "", "Sort field: updatedAt, createdAt or title")
	sortCmd.Flags().StringVar(&sortDir, "direction", "", "Sort direction: asc or desc")
	filterCmd.Flags().StringVarP(&filterQuery, "query", "q", "", "Text to search for")
	filterCmd.Flags().BoolVar(&filterPinned, "pinned-only", false, "Show pinned notes only")
	filterCmd.Flags().BoolVar(&filterArchived, "archived", false, "Show archived notes instead of active ones")
	filterCmd.Flags().BoolVar(&filterReset, "reset", false, "Clear every filter")
}
