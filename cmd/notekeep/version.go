package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/notekeep"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of notekeep",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("notekeep version %s\n", notekeep.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
